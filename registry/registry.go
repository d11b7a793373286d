// Package registry - Modellkatalog aus der Hub-Collection
//
// Diese Datei enthaelt:
// - Descriptor: Ein Katalogeintrag (id, Quell- und Zielsprache)
// - Registry: In-Memory-Katalog mit Refresh/Resolve/Artifact
// - ParseModelID: Strenger Parser fuer quickmt-<src>-<tgt>-Namen
// - Suggest: Naechstes bekanntes Sprachpaar per Levenshtein-Distanz
//
// Der Katalog ist die Hub-Collection quickmt/quickmt-models. Refresh
// laedt sie in den Speicher, Artifact holt einzelne Modelle lokal-
// zuerst in den Cache. Ein fehlgeschlagener Refresh laesst den alten
// Stand unangetastet.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
	"github.com/emirpasic/gods/v2/maps/treemap"

	"github.com/quickmt/quickmt/hub"
)

// DefaultCollection ist die Hub-Collection mit allen quickmt-Modellen.
const DefaultCollection = "quickmt/quickmt-models"

const modelIDPrefix = "quickmt-"

// Artefakt-Dateien eines Uebersetzungsmodells. Die eole-Rohfassungen
// in den Repos braucht die Engine nicht.
var (
	artifactAllowPatterns = []string{
		"README.md",
		"config.json",
		"model.bin",
		"source_vocabulary.json",
		"src.spm.model",
		"target_vocabulary.json",
		"tgt.spm.model",
		"joint.spm.model",
	}
	artifactExcludePatterns = []string{"eole-model/*", "eole_model/*"}
)

// ErrModelNotFound meldet ein unbekanntes Sprachpaar.
var ErrModelNotFound = errors.New("model not found")

// NotFoundError traegt das angefragte Paar und, falls vorhanden, den
// naechstgelegenen bekannten Vorschlag. Die Meldung geht woertlich in
// den 404-Body.
type NotFoundError struct {
	Src        string
	Tgt        string
	Suggestion string
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("Model for %s->%s not found in Hugging Face collection", e.Src, e.Tgt)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (closest available pair: %s)", e.Suggestion)
	}
	return msg
}

func (e *NotFoundError) Unwrap() error { return ErrModelNotFound }

// Descriptor ist ein Katalogeintrag. Nach der Entdeckung unveraenderlich.
type Descriptor struct {
	ID  string
	Src string
	Tgt string
}

// Pair gibt die API-Schreibweise "src-tgt" zurueck.
func (d Descriptor) Pair() string { return d.Src + "-" + d.Tgt }

// Registry haelt den Katalog im Speicher. Alle Methoden sind
// nebenlaeufig sicher.
type Registry struct {
	client     *hub.Client
	collection string

	mu     sync.RWMutex
	models []Descriptor
	byPair map[string]Descriptor
}

// Option konfiguriert die Registry beim Erstellen.
type Option func(*Registry)

// WithCollection ersetzt die Standard-Collection.
func WithCollection(slug string) Option {
	return func(r *Registry) { r.collection = slug }
}

// New erstellt eine leere Registry; Refresh fuellt sie.
func New(client *hub.Client, opts ...Option) *Registry {
	r := &Registry{
		client:     client,
		collection: DefaultCollection,
		byPair:     map[string]Descriptor{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Refresh laedt die Collection neu. Eintraege, die keinem
// quickmt-<src>-<tgt>-Muster folgen oder keine Modelle sind, werden
// stillschweigend uebersprungen. Bei Fehlern bleibt der alte Katalog
// stehen.
func (r *Registry) Refresh(ctx context.Context) error {
	collection, err := r.client.GetCollection(ctx, r.collection)
	if err != nil {
		return fmt.Errorf("katalog aktualisieren: %w", err)
	}

	var models []Descriptor
	byPair := make(map[string]Descriptor)
	for _, item := range collection.Items {
		if item.ItemType != "model" {
			continue
		}
		src, tgt, ok := ParseModelID(item.ItemID)
		if !ok {
			slog.Debug("skipping collection item with unexpected id", "id", item.ItemID)
			continue
		}
		d := Descriptor{ID: item.ItemID, Src: src, Tgt: tgt}
		models = append(models, d)
		byPair[d.Pair()] = d
	}

	r.mu.Lock()
	r.models = models
	r.byPair = byPair
	r.mu.Unlock()

	slog.Info("model catalogue refreshed", "collection", r.collection, "models", len(models))
	return nil
}

// Resolve sucht den Descriptor eines Sprachpaars.
func (r *Registry) Resolve(src, tgt string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byPair[src+"-"+tgt]
	return d, ok
}

// Models gibt eine Kopie des Katalogs in Collection-Reihenfolge zurueck.
func (r *Registry) Models() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, len(r.models))
	copy(out, r.models)
	return out
}

// LanguagePairs liefert je Quellsprache die sortierten Zielsprachen.
// Der Zwischenschritt ueber die Treemap haelt auch die Reihenfolge der
// Quellsprachen beim Aufbau deterministisch.
func (r *Registry) LanguagePairs() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tm := treemap.New[string, []string]()
	for _, d := range r.models {
		tgts, _ := tm.Get(d.Src)
		tm.Put(d.Src, append(tgts, d.Tgt))
	}

	out := make(map[string][]string, tm.Size())
	it := tm.Iterator()
	for it.Next() {
		tgts := it.Value()
		sort.Strings(tgts)
		out[it.Key()] = tgts
	}
	return out
}

// Suggest gibt das bekannte Paar mit der kleinsten Levenshtein-Distanz
// zu "src-tgt" zurueck, oder "" wenn keines nah genug liegt.
func (r *Registry) Suggest(src, tgt string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	want := src + "-" + tgt
	best := ""
	bestScore := 3 // bei fuenf Zeichen je Paar ist mehr kein Tippfehler

	for _, d := range r.models {
		if score := levenshtein.ComputeDistance(want, d.Pair()); score < bestScore {
			bestScore = score
			best = d.Pair()
		}
	}
	return best
}

// NotFound baut den Fehler fuer ein unaufloesbares Paar inklusive
// Vorschlag.
func (r *Registry) NotFound(src, tgt string) error {
	return &NotFoundError{Src: src, Tgt: tgt, Suggestion: r.Suggest(src, tgt)}
}

// Artifact stellt das Artefakt eines Modells lokal bereit und gibt das
// Snapshot-Verzeichnis zurueck. Ein vollstaendiger Cache-Treffer
// vermeidet jeden Netzzugriff.
func (r *Registry) Artifact(ctx context.Context, desc Descriptor, opts ...hub.DownloadOption) (string, error) {
	if dir, ok := hub.CachedSnapshot(desc.ID); ok {
		if _, err := os.Stat(filepath.Join(dir, "model.bin")); err == nil {
			slog.Debug("model artifact found in cache", "model", desc.ID, "path", dir)
			return dir, nil
		}
	}

	slog.Info("fetching model artifact", "model", desc.ID)
	opts = append([]hub.DownloadOption{
		hub.WithAllowPatterns(artifactAllowPatterns...),
		hub.WithExcludePatterns(artifactExcludePatterns...),
	}, opts...)
	return r.client.Snapshot(ctx, desc.ID, opts...)
}

// ParseModelID zerlegt eine Katalog-ID der Form
// <namespace>/quickmt-<src>-<tgt>. Der Parser ist streng: nach dem
// Praefix muessen genau zwei nicht-leere Felder stehen.
func ParseModelID(id string) (src, tgt string, ok bool) {
	name := id
	if i := strings.LastIndex(id, "/"); i >= 0 {
		name = id[i+1:]
	}

	rest, found := strings.CutPrefix(name, modelIDPrefix)
	if !found {
		return "", "", false
	}
	parts := strings.Split(rest, "-")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
