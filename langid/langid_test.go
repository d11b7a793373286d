// langid_test.go - Tests fuer den Worker-Pool und die Modell-Beschaffung
package langid

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
)

// fakeClassifier erkennt Texte per Praefix und zeichnet auf, was er
// gesehen hat.
type fakeClassifier struct {
	mu    sync.Mutex
	seen  [][]string
	calls atomic.Int64
	err   error
}

func (f *fakeClassifier) Classify(texts []string, k int, threshold float64) ([][]Detection, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.seen = append(f.seen, texts)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	out := make([][]Detection, len(texts))
	for i, t := range texts {
		switch {
		case t == "":
			out[i] = nil
		case t[0] == 'f':
			out[i] = []Detection{{Lang: "fr", Score: 0.9}}
		default:
			out[i] = []Detection{{Lang: "en", Score: 0.8}}
		}
	}
	return out, nil
}

func newFakePool(t *testing.T, workers int, fake *fakeClassifier) *Pool {
	t.Helper()
	p, err := NewPool(workers, func() (Classifier, error) { return fake, nil })
	if err != nil {
		t.Fatalf("unerwarteter Fehler: %v", err)
	}
	t.Cleanup(p.Close)
	return p
}

func TestPoolClassify(t *testing.T) {
	defer goleak.VerifyNone(t)

	fake := &fakeClassifier{}
	p := newFakePool(t, 2, fake)

	got, err := p.Classify(context.Background(), []string{"fromage", "cheese"}, 1, 0)
	if err != nil {
		t.Fatalf("unerwarteter Fehler: %v", err)
	}
	expect := [][]Detection{
		{{Lang: "fr", Score: 0.9}},
		{{Lang: "en", Score: 0.8}},
	}
	if diff := cmp.Diff(expect, got); diff != "" {
		t.Errorf("Classify (-want +got):\n%s", diff)
	}
	p.Close()
}

func TestPoolUnknownFallback(t *testing.T) {
	fake := &fakeClassifier{}
	p := newFakePool(t, 1, fake)

	got, err := p.Classify(context.Background(), []string{""}, 1, 0)
	if err != nil {
		t.Fatalf("unerwarteter Fehler: %v", err)
	}
	expect := [][]Detection{{{Lang: UnknownLang, Score: 0}}}
	if diff := cmp.Diff(expect, got); diff != "" {
		t.Errorf("Fallback (-want +got):\n%s", diff)
	}

	// Bei k > 1 bleibt die leere Liste erhalten.
	got, err = p.Classify(context.Background(), []string{""}, 3, 0)
	if err != nil {
		t.Fatalf("unerwarteter Fehler: %v", err)
	}
	if len(got[0]) != 0 {
		t.Errorf("erwartet keine detections, erhalten %+v", got[0])
	}
}

func TestPoolSanitizesNewlines(t *testing.T) {
	fake := &fakeClassifier{}
	p := newFakePool(t, 1, fake)

	if _, err := p.Classify(context.Background(), []string{"bonjour\nmonde"}, 1, 0); err != nil {
		t.Fatalf("unerwarteter Fehler: %v", err)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.seen) != 1 || fake.seen[0][0] != "bonjour monde" {
		t.Errorf("zeilenumbruch nicht ersetzt: %q", fake.seen)
	}
}

func TestPoolClassifierError(t *testing.T) {
	boom := errors.New("kaputt")
	p := newFakePool(t, 1, &fakeClassifier{err: boom})

	if _, err := p.Classify(context.Background(), []string{"x"}, 1, 0); !errors.Is(err, boom) {
		t.Errorf("erwartet %v, erhalten %v", boom, err)
	}
}

func TestPoolContextCancelled(t *testing.T) {
	p := newFakePool(t, 1, &fakeClassifier{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Classify(ctx, []string{"x"}, 1, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("erwartet context.Canceled, erhalten %v", err)
	}
}

func TestPoolFactoryError(t *testing.T) {
	boom := errors.New("laden fehlgeschlagen")
	if _, err := NewPool(3, func() (Classifier, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Errorf("erwartet %v, erhalten %v", boom, err)
	}
}

func TestPoolConcurrentCallers(t *testing.T) {
	defer goleak.VerifyNone(t)

	fake := &fakeClassifier{}
	p := newFakePool(t, 4, fake)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.Classify(context.Background(), []string{"hello"}, 1, 0); err != nil {
				t.Errorf("unerwarteter Fehler: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := fake.calls.Load(); got != 32 {
		t.Errorf("erwartet 32 aufrufe, erhalten %d", got)
	}
	p.Close()
}

func TestPoolCloseIdempotent(t *testing.T) {
	p := newFakePool(t, 2, &fakeClassifier{})
	p.Close()
	p.Close()
}

func TestEnsureModelExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, modelFileName)
	if err := os.WriteFile(path, []byte("modell"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := EnsureModel(context.Background(), path)
	if err != nil {
		t.Fatalf("unerwarteter Fehler: %v", err)
	}
	if got != path {
		t.Errorf("erwartet %s, erhalten %s", path, got)
	}
}

func TestEnsureModelDownload(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("fasttext-bytes"))
	}))
	defer srv.Close()

	orig := modelURL
	modelURL = srv.URL
	t.Cleanup(func() { modelURL = orig })

	path := filepath.Join(t.TempDir(), "sub", modelFileName)
	got, err := EnsureModel(context.Background(), path)
	if err != nil {
		t.Fatalf("unerwarteter Fehler: %v", err)
	}
	if got != path {
		t.Errorf("erwartet %s, erhalten %s", path, got)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "fasttext-bytes" {
		t.Errorf("unerwarteter inhalt: %q", data)
	}

	// Zweiter Aufruf trifft den Server nicht mehr.
	if _, err := EnsureModel(context.Background(), path); err != nil {
		t.Fatalf("unerwarteter Fehler: %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("erwartet 1 download, erhalten %d", hits.Load())
	}
}

func TestEnsureModelHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "weg", http.StatusNotFound)
	}))
	defer srv.Close()

	orig := modelURL
	modelURL = srv.URL
	t.Cleanup(func() { modelURL = orig })

	if _, err := EnsureModel(context.Background(), filepath.Join(t.TempDir(), modelFileName)); err == nil {
		t.Fatal("Fehler erwartet, keiner erhalten")
	}
}

func TestDefaultModelPath(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/cachetest")
	got, err := DefaultModelPath()
	if err != nil {
		t.Fatalf("unerwarteter Fehler: %v", err)
	}
	expect := filepath.Join("/tmp/cachetest", "fasttext_language_id", modelFileName)
	if got != expect {
		t.Errorf("erwartet %s, erhalten %s", expect, got)
	}
}

// Der Pool darf einen Aufrufer, der aufgibt, nicht blockieren.
func TestPoolAbandonedCaller(t *testing.T) {
	slow := make(chan struct{})
	blocking := classifierFunc(func(texts []string, k int, threshold float64) ([][]Detection, error) {
		<-slow
		return make([][]Detection, len(texts)), nil
	})

	p, err := NewPool(1, func() (Classifier, error) { return blocking, nil })
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(p.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := p.Classify(ctx, []string{"x"}, 1, 0); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("erwartet DeadlineExceeded, erhalten %v", err)
	}

	close(slow)
	if _, err := p.Classify(context.Background(), []string{"y"}, 1, 0); err != nil {
		t.Errorf("pool nach abgebrochenem aufruf unbrauchbar: %v", err)
	}
}

type classifierFunc func(texts []string, k int, threshold float64) ([][]Detection, error)

func (f classifierFunc) Classify(texts []string, k int, threshold float64) ([][]Detection, error) {
	return f(texts, k, threshold)
}
