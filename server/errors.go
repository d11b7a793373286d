// errors.go - Fehlertypen der API-Schicht
// Enthaelt: Validierungs- und Bereitschaftsfehler, Lade- und
// Uebersetzungsfehler, Abbildung auf HTTP-Status
//
// Fehlertexte, die Teil des Wire-Formats sind (detail-Feld), stehen
// woertlich hier; gewrappt wird ausschliesslich mit %w bzw. Unwrap.

package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/quickmt/quickmt/registry"
)

// errBadRequest kennzeichnet Validierungsfehler; Handler antworten mit 422.
var errBadRequest = errors.New("unprocessable request")

type requestError struct{ msg string }

func (e *requestError) Error() string { return e.msg }
func (e *requestError) Unwrap() error { return errBadRequest }

// badRequestf baut einen Validierungsfehler, dessen Text woertlich als
// detail in den Fehler-Body geht.
func badRequestf(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

// ErrNotReady kennzeichnet fehlende Komponenten; Handler antworten mit 503.
var ErrNotReady = errors.New("not ready")

type notReadyError struct{ msg string }

func (e *notReadyError) Error() string { return e.msg }
func (e *notReadyError) Unwrap() error { return ErrNotReady }

var (
	errManagerNotReady = &notReadyError{msg: "Model manager not initialized"}
	errLangIDNotReady  = &notReadyError{msg: "Language identification not initialized"}
	errManagerClosed   = &notReadyError{msg: "Model manager shutting down"}
)

// ErrMaxQueue wird zurueckgegeben wenn die Runner-Queue voll ist.
var ErrMaxQueue = errors.New("server busy, please try again.  maximum pending requests exceeded")

// ErrRunnerClosed meldet einen Job, der den Runner erst nach dessen
// Draining erreicht hat. Der Orchestrator laedt in dem Fall neu.
var ErrRunnerClosed = errors.New("model runner closed")

// LoadError meldet einen fehlgeschlagenen Ladevorgang (Artefakt, Engine
// oder Tokenizer). Der naechste Get fuer das Paar versucht es erneut.
type LoadError struct {
	Pair string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load model %s: %v", e.Pair, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// TranslationError meldet einen Engine-Fehler waehrend der Inferenz.
// Der Runner bleibt danach nutzbar.
type TranslationError struct {
	Pair string
	Err  error
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("translation failed for %s: %v", e.Pair, e.Err)
}

func (e *TranslationError) Unwrap() error { return e.Err }

// errHypothesisCount meldet eine Engine, die nicht genau eine Hypothese
// pro Satz liefert.
func errHypothesisCount(got, want int) error {
	return fmt.Errorf("engine returned %d hypotheses for %d sentences", got, want)
}

// errorStatus bildet Fehler am HTTP-Rand auf Statuscodes ab. Alles
// Unbekannte ist ein 500.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusUnprocessableEntity
	case errors.Is(err, registry.ErrModelNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNotReady), errors.Is(err, ErrMaxQueue):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
