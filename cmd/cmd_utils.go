// cmd_utils.go - Gemeinsame Hilfsfunktionen
// Hauptfunktionen: checkServerHeartbeat, readInputTexts, extractPDFText
package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/spf13/cobra"

	"github.com/quickmt/quickmt/api"
)

// checkServerHeartbeat - Prueft ob der Server erreichbar ist
func checkServerHeartbeat(cmd *cobra.Command, _ []string) error {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return err
	}
	if err := client.Heartbeat(cmd.Context()); err != nil {
		if strings.Contains(err.Error(), " refused") || strings.Contains(err.Error(), "could not connect") {
			return errors.New("could not connect to a running quickmt instance, start one with 'quickmt serve'")
		}
		return err
	}
	return nil
}

// readStdinContent - Liest Inhalt von stdin
func readStdinContent() (string, error) {
	in, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return string(in), nil
}

// readInputTexts - Sammelt die Eingabetexte eines Commands.
// Quellen in dieser Reihenfolge: --file, Argumente, stdin. Das zweite
// Ergebnis meldet, ob die Anfrage skalar gestellt werden soll.
func readInputTexts(cmd *cobra.Command, args []string) ([]string, bool, error) {
	if file, _ := cmd.Flags().GetString("file"); file != "" {
		text, err := readFileContent(file)
		if err != nil {
			return nil, false, err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, false, fmt.Errorf("file %s contains no text", file)
		}
		return []string{text}, true, nil
	}

	if len(args) > 0 {
		return args, len(args) == 1, nil
	}

	text, err := readStdinContent()
	if err != nil {
		return nil, false, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, false, errors.New("no input text, pass TEXT arguments, --file or pipe via stdin")
	}
	return []string{text}, true, nil
}

// readFileContent - Liest eine Eingabedatei; PDF wird als Klartext extrahiert
func readFileContent(path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return extractPDFText(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// extractPDFText - Extrahiert den Klartext eines PDF-Dokuments
func extractPDFText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}
