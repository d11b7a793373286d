// dotenv.go - Laden einer .env-Datei in die Prozessumgebung
// Bereits gesetzte Umgebungsvariablen werden nicht ueberschrieben.
package envconfig

import (
	"bufio"
	"os"
	"strings"
)

// LoadDotEnv liest die Datei unter path (typisch ".env") und setzt jede
// KEY=VALUE-Zeile als Umgebungsvariable, sofern der Schluessel noch nicht
// (in beliebiger Schreibweise) gesetzt ist. Kommentarzeilen beginnen mit '#'.
// Eine fehlende Datei ist kein Fehler.
func LoadDotEnv(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" || Var(key) != "" {
			continue
		}
		if err := os.Setenv(key, clean(value)); err != nil {
			return err
		}
	}

	return scanner.Err()
}
