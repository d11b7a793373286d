// cmd_languages.go - Languages Command
// Hauptfunktionen: LanguagesHandler, languageName, newLanguagesCmd
package cmd

import (
	"os"
	"slices"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/quickmt/quickmt/api"
)

// languageName - Loest einen ISO-Code in den englischen Anzeigenamen auf
func languageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return code
}

// LanguagesHandler - Zeigt die verfuegbaren Sprachpaare an
func LanguagesHandler(cmd *cobra.Command, args []string) error {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return err
	}

	languages, err := client.Languages(cmd.Context())
	if err != nil {
		return err
	}

	srcs := make([]string, 0, len(languages))
	for src := range languages {
		srcs = append(srcs, src)
	}
	slices.Sort(srcs)

	var data [][]string
	for _, src := range srcs {
		data = append(data, []string{src, languageName(src), strings.Join(languages[src], ", ")})
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"SRC", "NAME", "TARGETS"})
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

// newLanguagesCmd - Erstellt den languages Command
func newLanguagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "languages",
		Short:   "List available language pairs",
		PreRunE: checkServerHeartbeat,
		RunE:    LanguagesHandler,
	}
}
