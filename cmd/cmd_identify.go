// cmd_identify.go - Identify Command
// Hauptfunktionen: IdentifyHandler, newIdentifyCmd
package cmd

import (
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/quickmt/quickmt/api"
)

// IdentifyHandler - Bestimmt die Sprache(n) der Eingabetexte
func IdentifyHandler(cmd *cobra.Command, args []string) error {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return err
	}

	texts, scalar, err := readInputTexts(cmd, args)
	if err != nil {
		return err
	}

	req := &api.IdentifyRequest{}
	if scalar {
		req.Src = api.Scalar(texts[0])
	} else {
		req.Src = api.List(texts...)
	}
	req.K, _ = cmd.Flags().GetInt("candidates")

	resp, err := client.IdentifyLanguage(cmd.Context(), req)
	if err != nil {
		return err
	}

	var data [][]string
	for i, detections := range resp.Results.Values {
		text := ""
		if i < len(texts) {
			text = runewidth.Truncate(strings.Join(strings.Fields(texts[i]), " "), 40, "...")
		}
		for _, det := range detections {
			data = append(data, []string{text, det.Lang, strconv.FormatFloat(det.Score, 'f', 4, 64)})
			// Folgezeilen der Top-k ohne Textwiederholung
			text = ""
		}
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"TEXT", "LANGUAGE", "SCORE"})
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

// newIdentifyCmd - Erstellt den identify Command
func newIdentifyCmd() *cobra.Command {
	identifyCmd := &cobra.Command{
		Use:     "identify [TEXT...]",
		Short:   "Identify the language of text",
		PreRunE: checkServerHeartbeat,
		RunE:    IdentifyHandler,
	}

	identifyCmd.Flags().IntP("candidates", "k", 1, "Number of language candidates per text")
	identifyCmd.Flags().String("file", "", "Read input from a text or PDF file")

	return identifyCmd
}
