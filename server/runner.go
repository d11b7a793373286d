// runner.go - Batch-Runner eines geladenen Uebersetzungsmodells
// Enthaelt:
// - translateJob: Auftrag mit Promise-Kanal
// - modelRunner: Queue, Batcher-Goroutine und Uebersetzungs-Cache je Modell
// - Batch-Schleife: sammelt parameterkompatible Jobs bis Batchgroesse
//   oder Timeout und loest alle Promises gemeinsam auf

package server

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/quickmt/quickmt/engine"
	"github.com/quickmt/quickmt/observe"
	"github.com/quickmt/quickmt/registry"
	"github.com/quickmt/quickmt/segment"
)

// Runner-Zustaende. Uebergaenge nur vorwaerts: ready -> draining -> closed.
const (
	runnerReady int32 = iota
	runnerDraining
	runnerClosed
)

// tokenizerPair abstrahiert das Tokenizer-Paar eines Modells, damit
// Tests den Runner ohne SentencePiece-Dateien bauen koennen.
type tokenizerPair interface {
	EncodeSource(text string) []string
	DecodeTarget(tokens []string) string
}

// cacheKey ist der Fingerprint einer Uebersetzung. Das Sprachpaar
// steckt im Runner selbst, daher genuegen Text und Decoding-Parameter.
type cacheKey struct {
	text string
	opts engine.Options
}

type jobResult struct {
	text string
	err  error
}

// translateJob ist ein Auftrag in der Runner-Queue. result hat
// Kapazitaet 1, damit aufgegebene Aufrufer den Batcher nie blockieren.
type translateJob struct {
	ctx    context.Context
	text   string
	opts   engine.Options
	result chan jobResult
}

type runnerConfig struct {
	maxBatch     int
	batchTimeout time.Duration
	queueSize    int
	cacheSize    int
	metrics      *observe.Metrics
}

// modelRunner besitzt Engine und Tokenizer eines geladenen Modells und
// buendelt eingehende Jobs zu Engine-Batches. Genau eine
// Batcher-Goroutine pro Runner, damit die Engine nie parallel
// aufgerufen wird.
type modelRunner struct {
	desc registry.Descriptor
	pair string

	engine engine.Engine
	tok    tokenizerPair

	queue chan *translateJob
	cache *lru.Cache[cacheKey, string]
	cfg   runnerConfig

	state    atomic.Int32
	done     chan struct{}
	stopOnce sync.Once
}

func newModelRunner(desc registry.Descriptor, eng engine.Engine, tok tokenizerPair, cfg runnerConfig) *modelRunner {
	// cacheSize > 0 stellt der Manager sicher
	cache, _ := lru.New[cacheKey, string](cfg.cacheSize)
	r := &modelRunner{
		desc:   desc,
		pair:   desc.Pair(),
		engine: eng,
		tok:    tok,
		queue:  make(chan *translateJob, cfg.queueSize),
		cache:  cache,
		cfg:    cfg,
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

// Translate uebersetzt einen einzelnen Text ueber die Batch-Queue.
// Cache-Treffer kehren sofort zurueck; ist die Queue voll, kommt
// ErrMaxQueue statt Blockieren.
func (r *modelRunner) Translate(ctx context.Context, text string, opts engine.Options) (string, error) {
	if r.state.Load() != runnerReady {
		return "", ErrRunnerClosed
	}

	key := cacheKey{text: text, opts: opts}
	if out, ok := r.cache.Get(key); ok {
		r.cfg.metrics.RecordCacheLookup(ctx, r.pair, true)
		return out, nil
	}
	r.cfg.metrics.RecordCacheLookup(ctx, r.pair, false)

	job := &translateJob{ctx: ctx, text: text, opts: opts, result: make(chan jobResult, 1)}
	select {
	case r.queue <- job:
	default:
		return "", ErrMaxQueue
	}

	select {
	case res := <-job.result:
		return res.text, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	case <-r.done:
		// Batcher ist weg; der Job kann noch unbearbeitet in der
		// Queue haengen oder von stop bereits beantwortet sein.
		select {
		case res := <-job.result:
			return res.text, res.err
		default:
			return "", ErrRunnerClosed
		}
	}
}

// run ist die Batcher-Goroutine. Ein nil-Job ist das Stop-Signal von
// stop; pending traegt den Job, der wegen abweichender Parameter nicht
// mehr in den letzten Batch passte.
func (r *modelRunner) run() {
	defer close(r.done)

	var pending *translateJob
	for {
		first := pending
		pending = nil
		if first == nil {
			first = <-r.queue
			if first == nil {
				return
			}
		}
		if err := first.ctx.Err(); err != nil {
			first.result <- jobResult{err: err}
			continue
		}

		batch := []*translateJob{first}
		stopping := false
		timer := time.NewTimer(r.cfg.batchTimeout)
	collect:
		for len(batch) < r.cfg.maxBatch {
			select {
			case job := <-r.queue:
				if job == nil {
					stopping = true
					break collect
				}
				if err := job.ctx.Err(); err != nil {
					job.result <- jobResult{err: err}
					continue
				}
				if job.opts != first.opts {
					// Abweichende Parameter eroeffnen den naechsten Batch
					pending = job
					break collect
				}
				batch = append(batch, job)
			case <-timer.C:
				break collect
			}
		}
		timer.Stop()

		r.runBatch(batch)
		if stopping {
			return
		}
	}
}

// runBatch segmentiert, tokenisiert und uebersetzt einen kompletten
// Batch und loest die Promises in Ankunftsreihenfolge auf. Ein
// Engine-Fehler schlaegt auf jeden Job des Batches durch; der Runner
// bleibt danach nutzbar. Ein einmal begonnener Batch laeuft zu Ende,
// auch wenn einzelne Aufrufer inzwischen abgebrochen haben.
func (r *modelRunner) runBatch(jobs []*translateJob) {
	texts := make([]string, len(jobs))
	for i, job := range jobs {
		texts[i] = job.text
	}

	inputIDs, paragraphIDs, sentences := segment.Split(texts)

	outs := make([]string, len(jobs))
	if len(sentences) > 0 {
		tokenized := make([][]string, len(sentences))
		for i, s := range sentences {
			tokenized[i] = r.tok.EncodeSource(s)
		}

		start := time.Now()
		hyps, err := r.engine.Translate(context.Background(), tokenized, jobs[0].opts)
		r.cfg.metrics.RecordEngineBatch(context.Background(), r.pair, len(sentences), time.Since(start).Seconds())
		if err == nil && len(hyps) != len(sentences) {
			err = errHypothesisCount(len(hyps), len(sentences))
		}
		if err != nil {
			terr := &TranslationError{Pair: r.pair, Err: err}
			slog.Error("engine batch failed", "model", r.pair, "sentences", len(sentences), "error", err)
			for _, job := range jobs {
				job.result <- jobResult{err: terr}
			}
			return
		}

		decoded := make([]string, len(hyps))
		for i, h := range hyps {
			decoded[i] = r.tok.DecodeTarget(h.Tokens)
		}
		outs = segment.Join(inputIDs, paragraphIDs, decoded, len(jobs))
	}

	slog.Debug("batch translated", "model", r.pair, "jobs", len(jobs), "sentences", len(sentences))
	for i, job := range jobs {
		r.cache.Add(cacheKey{text: job.text, opts: job.opts}, outs[i])
		job.result <- jobResult{text: outs[i]}
	}
}

// stop entleert den Runner und gibt die Engine frei. Idempotent;
// blockiert, bis der laufende Batch abgeschlossen ist.
func (r *modelRunner) stop() {
	r.stopOnce.Do(func() {
		r.state.Store(runnerDraining)
		r.queue <- nil
		<-r.done

		// Nachzuegler, die das Draining noch nicht gesehen hatten
		for {
			select {
			case job := <-r.queue:
				if job != nil {
					job.result <- jobResult{err: ErrRunnerClosed}
				}
			default:
				r.state.Store(runnerClosed)
				if err := r.engine.Close(); err != nil {
					slog.Warn("engine close failed", "model", r.pair, "error", err)
				}
				slog.Info("model runner stopped", "model", r.pair)
				return
			}
		}
	})
}
