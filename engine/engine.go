// Package engine - Vertrag zur externen Uebersetzungs-Engine.
//
// Diese Datei enthaelt:
// - Engine: Interface fuer Batch-Uebersetzung auf Token-Ebene
// - Options: Dekodierparameter eines Engine-Aufrufs
// - Config: Lade-Parameter (Geraet, Praezision, Threads)
// - Register/New: Backend-Registry; Backends registrieren sich per init()
//   hinter Build-Tags (z.B. ein cgo-Binding unter dem Tag "ct2")
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var ErrNoBackend = errors.New("keine engine-implementierung einkompiliert")

// Hypothesis ist eine Uebersetzungshypothese der Engine.
// Tokens ist die beste Token-Folge fuer einen Eingabesatz.
type Hypothesis struct {
	Tokens []string
	Score  float64
}

// Options sind die Dekodierparameter eines Engine-Aufrufs.
// Der Typ ist vergleichbar; Jobs mit identischen Options duerfen
// in einem Batch zusammengefasst werden.
type Options struct {
	BeamSize          int
	Patience          int
	LengthPenalty     float64
	CoveragePenalty   float64
	RepetitionPenalty float64
	MaxDecodingLength int
}

// Config beschreibt, wie ein Modellverzeichnis geladen wird.
type Config struct {
	// Backend waehlt eine registrierte Implementierung; leer = einzige
	// registrierte bzw. "ct2".
	Backend      string
	Device       string // cpu|gpu|auto
	ComputeType  string
	InterThreads int
	IntraThreads int
}

// Engine uebersetzt Batches vortokenisierter Saetze.
// Implementierungen muessen fuer parallele Translate-Aufrufe sicher sein;
// ein laufender Batch ist nicht unterbrechbar.
type Engine interface {
	Translate(ctx context.Context, batch [][]string, opts Options) ([]Hypothesis, error)
	Close() error
}

// Factory erstellt eine Engine aus einem Artefakt-Verzeichnis.
// Laden ist blockierend und gehoert nie auf einen latenzkritischen Pfad.
type Factory func(dir string, cfg Config) (Engine, error)

var (
	backendsMu sync.RWMutex
	backends   = make(map[string]Factory)
)

// Register registriert ein Backend unter dem angegebenen Namen.
// Ueberschreibt existierende Eintraege ohne Warnung.
func Register(name string, factory Factory) {
	backendsMu.Lock()
	defer backendsMu.Unlock()

	backends[name] = factory
}

// Backends gibt die Namen aller registrierten Backends zurueck.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	return names
}

// New laedt ein Modellverzeichnis ueber das konfigurierte Backend.
// Ohne registriertes Backend wird ErrNoBackend zurueckgegeben.
func New(dir string, cfg Config) (Engine, error) {
	backendsMu.RLock()
	defer backendsMu.RUnlock()

	if len(backends) == 0 {
		return nil, ErrNoBackend
	}

	name := cfg.Backend
	if name == "" {
		if len(backends) == 1 {
			for only := range backends {
				name = only
			}
		} else {
			name = "ct2"
		}
	}

	factory, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("engine-backend %q nicht registriert: %w", name, ErrNoBackend)
	}

	return factory(dir, cfg)
}
