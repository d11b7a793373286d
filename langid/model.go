// model.go - fastText-Backend und Modell-Beschaffung
//
// Dieses Modul enthaelt:
// - NewFastTextPool: Pool mit fastText-Klassifikatoren je Worker
// - EnsureModel: lid.176.bin lokal bereitstellen (Download bei Bedarf)
// - DefaultModelPath: Ablageort im XDG-Cache
package langid

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/quickmt/quickmt/format"
	"github.com/quickmt/quickmt/langid/fasttext"
)

// modelURL ist die veroeffentlichte Quelle des Sprachmodells; in Tests
// ueberschreibbar.
var modelURL = "https://dl.fbaipublicfiles.com/fasttext/supervised-models/lid.176.bin"

const modelFileName = "lid.176.bin"

// NewFastTextPool laedt das Modell unter path einmal je Worker und
// startet den Pool. Der Aufrufer stellt mit EnsureModel vorher sicher,
// dass die Datei existiert.
func NewFastTextPool(workers int, path string) (*Pool, error) {
	return NewPool(workers, func() (Classifier, error) {
		model, err := fasttext.Load(path)
		if err != nil {
			return nil, err
		}
		return &fastTextClassifier{model: model}, nil
	})
}

type fastTextClassifier struct {
	model *fasttext.Model
}

func (c *fastTextClassifier) Classify(texts []string, k int, threshold float64) ([][]Detection, error) {
	out := make([][]Detection, len(texts))
	for i, text := range texts {
		preds, err := c.model.Predict(text, k, threshold)
		if err != nil {
			return nil, err
		}
		detections := make([]Detection, len(preds))
		for j, p := range preds {
			detections[j] = Detection{Lang: p.Label, Score: p.Prob}
		}
		out[i] = detections
	}
	return out, nil
}

// DefaultModelPath liefert den Standard-Ablageort des Sprachmodells,
// $XDG_CACHE_HOME/fasttext_language_id/lid.176.bin.
func DefaultModelPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("cache-verzeichnis nicht bestimmbar: %w", err)
	}
	return filepath.Join(dir, "fasttext_language_id", modelFileName), nil
}

// EnsureModel sorgt dafuer, dass das Sprachmodell lokal vorliegt, und
// gibt den Pfad zurueck. Ein leerer Pfad waehlt den Standardort. Der
// Download laeuft ueber eine .download-Datei und wird erst nach Erfolg
// umbenannt, halbe Dateien bleiben so nie liegen.
func EnsureModel(ctx context.Context, path string) (string, error) {
	if path == "" {
		var err error
		if path, err = DefaultModelPath(); err != nil {
			return "", err
		}
	}

	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	slog.Info("downloading language identification model", "url", modelURL, "path", path)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("modellverzeichnis anlegen: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, modelURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sprachmodell herunterladen: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("sprachmodell herunterladen: status %d", resp.StatusCode)
	}

	tmp := path + ".download"
	f, err := os.Create(tmp)
	if err != nil {
		return "", err
	}

	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("sprachmodell herunterladen: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", err
	}

	slog.Info("language identification model ready", "path", path, "size", format.HumanBytes(n))
	return path, nil
}
