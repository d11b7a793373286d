// cmd_list.go - List Command
// Hauptfunktionen: ListHandler, newListCmd
package cmd

import (
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/quickmt/quickmt/api"
	"github.com/quickmt/quickmt/format"
	"github.com/quickmt/quickmt/hub"
)

// ListHandler - Listet alle Katalog-Modelle samt Cache- und Ladezustand auf
func ListHandler(cmd *cobra.Command, args []string) error {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return err
	}

	models, err := client.ListModels(cmd.Context())
	if err != nil {
		return err
	}

	var data [][]string

	for _, m := range models.Models {
		if len(args) == 0 || strings.HasPrefix(strings.ToLower(m.ModelID), strings.ToLower(args[0])) {
			// Groesse aus dem lokalen Hub-Cache; "-" wenn nicht geladen
			size := "-"
			if n := hub.SnapshotSize(m.ModelID); n > 0 {
				size = format.HumanBytes(n)
			}

			loaded := ""
			if m.Loaded {
				loaded = "yes"
			}

			data = append(data, []string{m.ModelID, m.SrcLang, m.TgtLang, size, loaded})
		}
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"MODEL", "SRC", "TGT", "SIZE", "LOADED"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()

	return nil
}

// newListCmd - Erstellt den list Command
func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List models",
		PreRunE: checkServerHeartbeat,
		RunE:    ListHandler,
	}
}
