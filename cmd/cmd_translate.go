// cmd_translate.go - Translate Command
// Hauptfunktionen: TranslateHandler, newTranslateCmd
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/quickmt/quickmt/api"
)

// TranslateHandler - Uebersetzt Texte ueber den Server
func TranslateHandler(cmd *cobra.Command, args []string) error {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return err
	}

	texts, scalar, err := readInputTexts(cmd, args)
	if err != nil {
		return err
	}

	req := &api.TranslateRequest{}
	if scalar {
		req.Src = api.Scalar(texts[0])
	} else {
		req.Src = api.List(texts...)
	}

	if from, _ := cmd.Flags().GetString("from"); from != "" {
		srcLang := api.Scalar(from)
		req.SrcLang = &srcLang
	}
	req.TgtLang, _ = cmd.Flags().GetString("to")

	if cmd.Flags().Changed("beam-size") {
		n, _ := cmd.Flags().GetInt("beam-size")
		req.BeamSize = &n
	}
	if cmd.Flags().Changed("patience") {
		n, _ := cmd.Flags().GetInt("patience")
		req.Patience = &n
	}
	if cmd.Flags().Changed("length-penalty") {
		f, _ := cmd.Flags().GetFloat64("length-penalty")
		req.LengthPenalty = &f
	}
	if cmd.Flags().Changed("coverage-penalty") {
		f, _ := cmd.Flags().GetFloat64("coverage-penalty")
		req.CoveragePenalty = &f
	}
	if cmd.Flags().Changed("repetition-penalty") {
		f, _ := cmd.Flags().GetFloat64("repetition-penalty")
		req.RepetitionPenalty = &f
	}
	if cmd.Flags().Changed("max-decoding-length") {
		n, _ := cmd.Flags().GetInt("max-decoding-length")
		req.MaxDecodingLength = &n
	}

	resp, err := client.Translate(cmd.Context(), req)
	if err != nil {
		return err
	}

	// Erkannte Sprachen nur anzeigen, wenn sie nicht vorgegeben waren
	if req.SrcLang == nil {
		for i, lang := range resp.SrcLang.Values {
			if lang == "" {
				continue
			}
			var score float64
			if i < len(resp.SrcLangScore.Values) {
				score = resp.SrcLangScore.Values[i]
			}
			fmt.Fprintf(os.Stderr, "detected language: %s (%.2f)\n", lang, score)
		}
	}

	wordWrap := term.IsTerminal(int(os.Stdout.Fd()))
	for i, translation := range resp.Translation.Values {
		if i > 0 {
			fmt.Println()
		}
		state := &displayResponseState{}
		displayResponse(translation, wordWrap, state)
		fmt.Println()
	}

	return nil
}

// newTranslateCmd - Erstellt den translate Command
func newTranslateCmd() *cobra.Command {
	translateCmd := &cobra.Command{
		Use:     "translate [TEXT...]",
		Short:   "Translate text",
		Long:    "Translate text given as arguments, read from --file (.txt or .pdf) or piped via stdin.",
		PreRunE: checkServerHeartbeat,
		RunE:    TranslateHandler,
	}

	translateCmd.Flags().String("to", "en", "Target language code")
	translateCmd.Flags().String("from", "", "Source language code (auto-detected when empty)")
	translateCmd.Flags().String("file", "", "Read input from a text or PDF file")
	translateCmd.Flags().Int("beam-size", 0, "Beam size for decoding")
	translateCmd.Flags().Int("patience", 0, "Beam search patience")
	translateCmd.Flags().Float64("length-penalty", 0, "Length penalty applied during decoding")
	translateCmd.Flags().Float64("coverage-penalty", 0, "Coverage penalty applied during decoding")
	translateCmd.Flags().Float64("repetition-penalty", 0, "Penalty applied to repeated tokens")
	translateCmd.Flags().Int("max-decoding-length", 0, "Maximum number of decoded tokens")

	return translateCmd
}
