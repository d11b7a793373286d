// Package langid - Spracherkennung ueber einen Worker-Pool
//
// Diese Datei enthaelt:
// - Detection: Ein erkanntes Sprachkuerzel mit Wahrscheinlichkeit
// - Classifier: Schnittstelle fuer austauschbare Backends
// - Pool: Fester Satz Worker, jeder mit eigener Klassifikator-Instanz
//
// Der Pool nimmt ganze Request-Batches entgegen. Innerhalb eines
// Workers laufen Anfragen seriell, ueber die Worker hinweg parallel.
package langid

import (
	"context"
	"strings"
	"sync"
)

// Detection ist das Ergebnis fuer einen Text: Sprachkuerzel und Score.
type Detection struct {
	Lang  string  `json:"lang"`
	Score float64 `json:"score"`
}

// UnknownLang wird geliefert, wenn der Klassifikator fuer einen Text
// kein Label ueber dem Schwellwert findet.
const UnknownLang = "unknown"

// Classifier klassifiziert einen Batch von Texten. Implementierungen
// muessen nicht nebenlaeufig sicher sein, jeder Worker besitzt seine
// eigene Instanz.
type Classifier interface {
	Classify(texts []string, k int, threshold float64) ([][]Detection, error)
}

// Factory erzeugt die Klassifikator-Instanz eines Workers.
type Factory func() (Classifier, error)

type task struct {
	texts     []string
	k         int
	threshold float64
	result    chan taskResult
}

type taskResult struct {
	detections [][]Detection
	err        error
}

// Pool verteilt Klassifikationsanfragen auf feste Worker-Goroutinen.
type Pool struct {
	tasks     chan task
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewPool baut zuerst alle Klassifikatoren und startet dann die
// Worker. Schlaegt eine Factory fehl, startet gar nichts.
func NewPool(workers int, factory Factory) (*Pool, error) {
	if workers < 1 {
		workers = 1
	}

	classifiers := make([]Classifier, workers)
	for i := range classifiers {
		c, err := factory()
		if err != nil {
			return nil, err
		}
		classifiers[i] = c
	}

	p := &Pool{tasks: make(chan task)}
	for _, c := range classifiers {
		p.wg.Add(1)
		go p.worker(c)
	}
	return p, nil
}

func (p *Pool) worker(c Classifier) {
	defer p.wg.Done()
	for t := range p.tasks {
		detections, err := c.Classify(t.texts, t.k, t.threshold)
		t.result <- taskResult{detections: detections, err: err}
	}
}

// Classify reicht einen Batch an einen freien Worker durch. Zeilenumbrueche
// werden vorher durch Leerzeichen ersetzt, der Klassifikator sieht nur
// einzeilige Texte. Bei k=1 bekommen Texte ohne Label den Platzhalter
// ("unknown", 0.0), damit Aufrufer nicht mit leeren Listen hantieren.
func (p *Pool) Classify(ctx context.Context, texts []string, k int, threshold float64) ([][]Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sanitized := make([]string, len(texts))
	for i, t := range texts {
		sanitized[i] = strings.ReplaceAll(t, "\n", " ")
	}

	t := task{
		texts:     sanitized,
		k:         k,
		threshold: threshold,
		// gepuffert, damit ein Worker nie auf einen verschwundenen
		// Aufrufer wartet
		result: make(chan taskResult, 1),
	}

	select {
	case p.tasks <- t:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-t.result:
		if res.err != nil {
			return nil, res.err
		}
		if k == 1 {
			for i, d := range res.detections {
				if len(d) == 0 {
					res.detections[i] = []Detection{{Lang: UnknownLang, Score: 0}}
				}
			}
		}
		return res.detections, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stoppt die Worker und wartet, bis alle fertig sind. Mehrfaches
// Schliessen ist erlaubt.
func (p *Pool) Close() {
	p.closeOnce.Do(func() { close(p.tasks) })
	p.wg.Wait()
}
