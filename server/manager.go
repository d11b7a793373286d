// manager.go - LRU-Verwaltung geladener Uebersetzungsmodelle
// Enthaelt:
// - Catalogue: Sicht des Managers auf die Registry (fuer Tests austauschbar)
// - pendingLoad: Broadcast fuer parallele Anfragen desselben Sprachpaars
// - Manager: Get/ListModels/LoadedPairs/Shutdown mit LRU-Verdraengung
//
// Alles Langsame (Artefakt-Download, Engine-Laden, Runner-Stop) laeuft
// grundsaetzlich ausserhalb des Mutex.

package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/quickmt/quickmt/api"
	"github.com/quickmt/quickmt/engine"
	"github.com/quickmt/quickmt/envconfig"
	"github.com/quickmt/quickmt/format"
	"github.com/quickmt/quickmt/hub"
	"github.com/quickmt/quickmt/observe"
	"github.com/quickmt/quickmt/registry"
	"github.com/quickmt/quickmt/tokenize"
)

// Catalogue ist die Schnittstelle des Managers zum Modellkatalog.
// *registry.Registry erfuellt sie.
type Catalogue interface {
	Resolve(src, tgt string) (registry.Descriptor, bool)
	Artifact(ctx context.Context, desc registry.Descriptor, opts ...hub.DownloadOption) (string, error)
	Models() []registry.Descriptor
	LanguagePairs() map[string][]string
	NotFound(src, tgt string) error
}

// pendingLoad buendelt parallele Gets desselben Paars auf einen
// einzigen Ladevorgang. err ist erst nach close(done) gueltig.
type pendingLoad struct {
	done chan struct{}
	err  error
}

// Manager haelt bis zu maxLoaded Runner in einer orderedmap: der
// aelteste Eintrag steht vorn und wird bei Platzmangel verdraengt,
// jeder Treffer wandert ans Ende.
type Manager struct {
	catalogue Catalogue
	engineCfg engine.Config
	runnerCfg runnerConfig

	mu        sync.Mutex
	loaded    *orderedmap.OrderedMap[string, *modelRunner]
	pending   map[string]*pendingLoad
	maxLoaded int
	closed    bool

	// fuer Tests austauschbar
	newEngineFn      func(dir string, cfg engine.Config) (engine.Engine, error)
	loadTokenizersFn func(dir string) (tokenizerPair, error)
}

// NewManager erstellt einen Manager; Engine- und Runner-Parameter
// kommen aus der Umgebung.
func NewManager(catalogue Catalogue) *Manager {
	return &Manager{
		catalogue: catalogue,
		engineCfg: engine.Config{
			Device:       envconfig.Device(),
			ComputeType:  envconfig.ComputeType(),
			InterThreads: envconfig.InterThreads(),
			IntraThreads: envconfig.IntraThreads(),
		},
		runnerCfg: runnerConfig{
			maxBatch:     max(envconfig.MaxBatchSize(), 1),
			batchTimeout: time.Duration(envconfig.BatchTimeoutMillis()) * time.Millisecond,
			queueSize:    max(envconfig.MaxQueue(), 1),
			cacheSize:    max(envconfig.TranslationCacheSize(), 1),
			metrics:      observe.DefaultMetrics(),
		},
		loaded:           orderedmap.New[string, *modelRunner](),
		pending:          map[string]*pendingLoad{},
		maxLoaded:        max(envconfig.MaxLoadedModels(), 1),
		newEngineFn:      engine.New,
		loadTokenizersFn: func(dir string) (tokenizerPair, error) { return tokenize.Load(dir) },
	}
}

// Get liefert den Runner eines Sprachpaars und laedt das Modell bei
// Bedarf nach. Parallele Anfragen desselben Paars warten auf denselben
// Ladevorgang; das Laden selbst laeuft abgekoppelt weiter, auch wenn
// der ausloesende Aufrufer abbricht.
func (m *Manager) Get(ctx context.Context, src, tgt string) (*modelRunner, error) {
	pair := src + "-" + tgt

	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return nil, errManagerClosed
		}
		if r, ok := m.loaded.Get(pair); ok {
			_ = m.loaded.MoveToBack(pair)
			m.mu.Unlock()
			return r, nil
		}
		if p, ok := m.pending[pair]; ok {
			m.mu.Unlock()
			select {
			case <-p.done:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			if p.err != nil {
				return nil, p.err
			}
			// Der frische Runner kann theoretisch schon wieder
			// verdraengt sein, daher erneut nachschlagen.
			continue
		}

		desc, ok := m.catalogue.Resolve(src, tgt)
		if !ok {
			m.mu.Unlock()
			return nil, m.catalogue.NotFound(src, tgt)
		}

		p := &pendingLoad{done: make(chan struct{})}
		m.pending[pair] = p
		m.mu.Unlock()

		go func() {
			runner, err := m.load(context.Background(), pair, desc)
			m.finishLoad(pair, p, runner, err)
		}()

		select {
		case <-p.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if p.err != nil {
			return nil, p.err
		}
	}
}

// load holt das Artefakt und baut Engine, Tokenizer und Runner.
func (m *Manager) load(ctx context.Context, pair string, desc registry.Descriptor) (*modelRunner, error) {
	start := time.Now()
	metrics := m.runnerCfg.metrics

	dir, err := m.catalogue.Artifact(ctx, desc)
	if err != nil {
		metrics.RecordModelLoad(ctx, pair, "error")
		return nil, &LoadError{Pair: pair, Err: err}
	}

	slog.Info("loading model", "model", desc.ID, "device", m.engineCfg.Device, "compute_type", m.engineCfg.ComputeType)
	eng, err := m.newEngineFn(dir, m.engineCfg)
	if err != nil {
		metrics.RecordModelLoad(ctx, pair, "error")
		return nil, &LoadError{Pair: pair, Err: err}
	}

	tok, err := m.loadTokenizersFn(dir)
	if err != nil {
		if cerr := eng.Close(); cerr != nil {
			slog.Warn("engine close failed", "model", pair, "error", cerr)
		}
		metrics.RecordModelLoad(ctx, pair, "error")
		return nil, &LoadError{Pair: pair, Err: err}
	}

	runner := newModelRunner(desc, eng, tok, m.runnerCfg)
	metrics.RecordModelLoad(ctx, pair, "ok")
	metrics.LoadedModels.Add(ctx, 1)
	slog.Info("model loaded", "model", desc.ID, "size", format.HumanBytes2(uint64(hub.SnapshotSize(desc.ID))), "duration", time.Since(start))
	return runner, nil
}

// finishLoad traegt einen fertigen Ladevorgang in die LRU ein,
// verdraengt dabei die aeltesten Runner und weckt alle Wartenden.
// Verdraengte Runner stoppen ausserhalb des Mutex.
func (m *Manager) finishLoad(pair string, p *pendingLoad, runner *modelRunner, err error) {
	var victims []*modelRunner

	m.mu.Lock()
	delete(m.pending, pair)
	if err == nil {
		if m.closed {
			// Shutdown hat den Ladevorgang ueberholt
			err = errManagerClosed
			victims = append(victims, runner)
		} else {
			for m.loaded.Len() >= m.maxLoaded {
				oldest := m.loaded.Oldest()
				victims = append(victims, oldest.Value)
				_, _ = m.loaded.Delete(oldest.Key)
				slog.Info("evicting model", "pair", oldest.Key, "replaced_by", pair)
			}
			m.loaded.Set(pair, runner)
		}
	}
	p.err = err
	close(p.done)
	m.mu.Unlock()

	for _, v := range victims {
		m.runnerCfg.metrics.RecordModelEviction(context.Background(), v.pair)
		m.runnerCfg.metrics.LoadedModels.Add(context.Background(), -1)
		go v.stop()
	}
}

// ListModels gibt den vollstaendigen Katalog samt Ladezustand zurueck.
func (m *Manager) ListModels() []api.Model {
	m.mu.Lock()
	loadedPairs := make(map[string]bool, m.loaded.Len())
	for e := m.loaded.Oldest(); e != nil; e = e.Next() {
		loadedPairs[e.Key] = true
	}
	m.mu.Unlock()

	descs := m.catalogue.Models()
	models := make([]api.Model, 0, len(descs))
	for _, d := range descs {
		models = append(models, api.Model{
			ModelID: d.ID,
			SrcLang: d.Src,
			TgtLang: d.Tgt,
			Loaded:  loadedPairs[d.Pair()],
		})
	}
	return models
}

// LoadedPairs gibt die geladenen Sprachpaare in LRU-Reihenfolge
// zurueck, aeltestes zuerst.
func (m *Manager) LoadedPairs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	pairs := make([]string, 0, m.loaded.Len())
	for e := m.loaded.Oldest(); e != nil; e = e.Next() {
		pairs = append(pairs, e.Key)
	}
	return pairs
}

// Len gibt die Anzahl aktuell geladener Modelle zurueck.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded.Len()
}

// MaxLoaded gibt die konfigurierte Obergrenze geladener Modelle zurueck.
func (m *Manager) MaxLoaded() int { return m.maxLoaded }

// Shutdown stoppt alle Runner synchron und weist ab sofort jeden Get
// ab. Idempotent.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	runners := make([]*modelRunner, 0, m.loaded.Len())
	for e := m.loaded.Oldest(); e != nil; e = e.Next() {
		runners = append(runners, e.Value)
	}
	m.loaded = orderedmap.New[string, *modelRunner]()
	m.mu.Unlock()

	for _, r := range runners {
		r.stop()
		m.runnerCfg.metrics.LoadedModels.Add(context.Background(), -1)
	}
	if len(runners) > 0 {
		slog.Info("model runners stopped", "count", len(runners))
	}
}
