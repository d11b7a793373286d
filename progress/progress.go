// progress.go - Mehrzeilige Fortschrittsanzeige fuer das Terminal
// Enthaelt: State-Interface, Progress mit Render-Schleife, Stop/StopAndClear
package progress

import (
	"bufio"
	"fmt"
	"io"
	"sync"
	"time"
)

// State ist eine einzelne Anzeigezeile (Bar oder Spinner).
type State interface {
	String() string
}

// Progress rendert alle registrierten States periodisch untereinander.
type Progress struct {
	mu sync.Mutex
	// Gepufferte Ausgabe reduziert Flackern auf langsamen Terminals
	w *bufio.Writer

	pos int

	ticker *time.Ticker
	states []State
}

// NewProgress startet die Render-Schleife auf w (ueblicherweise os.Stderr).
func NewProgress(w io.Writer) *Progress {
	p := &Progress{w: bufio.NewWriter(w)}
	go p.start()
	return p
}

func (p *Progress) stop() bool {
	for _, state := range p.states {
		if spinner, ok := state.(*Spinner); ok {
			spinner.Stop()
		}
	}

	if p.ticker != nil {
		p.ticker.Stop()
		p.ticker = nil
		p.render()
		return true
	}

	return false
}

// Stop beendet die Anzeige und laesst die letzten Zeilen stehen.
func (p *Progress) Stop() bool {
	stopped := p.stop()
	if stopped {
		fmt.Fprint(p.w, "\n")
		p.w.Flush()
	}
	return stopped
}

// StopAndClear beendet die Anzeige und loescht alle gerenderten Zeilen.
func (p *Progress) StopAndClear() bool {
	fmt.Fprint(p.w, "\033[?25l")
	defer fmt.Fprint(p.w, "\033[?25h")

	stopped := p.stop()
	if stopped {
		// alle Fortschrittszeilen entfernen
		for i := range p.pos {
			if i > 0 {
				fmt.Fprint(p.w, "\033[A")
			}
			fmt.Fprint(p.w, "\033[2K\033[1G")
		}
		p.w.Flush()
	}

	return stopped
}

// Add registriert eine weitere Anzeigezeile. Der Schluessel dient dem
// Aufrufer zur Buchfuehrung; gerendert wird in Einfuegereihenfolge.
func (p *Progress) Add(key string, state State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.states = append(p.states, state)
}

func (p *Progress) render() {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprint(p.w, "\033[?25l")
	defer fmt.Fprint(p.w, "\033[?25h")

	// Cursor zurueck an den Anfang des Blocks
	for range p.pos - 1 {
		fmt.Fprint(p.w, "\033[A")
	}
	fmt.Fprint(p.w, "\033[1G")

	for i, state := range p.states {
		fmt.Fprint(p.w, state.String(), "\033[K")
		if i < len(p.states)-1 {
			fmt.Fprint(p.w, "\n")
		}
	}

	p.pos = len(p.states)

	p.w.Flush()
}

func (p *Progress) start() {
	p.ticker = time.NewTicker(100 * time.Millisecond)
	for range p.ticker.C {
		p.render()
	}
}
