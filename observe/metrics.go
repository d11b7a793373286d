// Package observe - OpenTelemetry-Metriken fuer quickmt
//
// Diese Datei enthaelt:
// - Metrics: Alle Instrumente der Anwendung (Histogramme, Counter, Gauges)
// - NewMetrics: Erstellt Instrumente aus einem MeterProvider
// - DefaultMetrics: Lazy initialisierte Paket-Instanz ueber den globalen Provider
//
// Aufgezeichnet wird ueber die OTel-Metrics-API; der Export laeuft ueber
// die Prometheus-Bruecke aus provider.go und wird unter /metrics gescrapt.
// Tests verwenden NewMetrics mit einem eigenen Provider, damit sich
// Messwerte nicht ueber Testgrenzen hinweg vermischen.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName ist der Instrumentation-Scope aller quickmt-Metriken.
const meterName = "github.com/quickmt/quickmt"

// latencyBuckets sind die Histogramm-Grenzen in Sekunden. Uebersetzungen
// grosser Batches liegen im Sekundenbereich, daher reicht die Skala bis 30s.
var latencyBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// Metrics buendelt alle Instrumente. Die OTel-Typen synchronisieren
// selbst, die Felder sind nebenlaeufig nutzbar.
type Metrics struct {
	// TranslateDuration misst die Gesamtdauer einer Uebersetzungsanfrage.
	TranslateDuration metric.Float64Histogram

	// IdentifyDuration misst die Dauer einer Spracherkennungsanfrage.
	IdentifyDuration metric.Float64Histogram

	// EngineDuration misst die Dauer einzelner Engine-Batchaufrufe.
	// Attribut: model.
	EngineDuration metric.Float64Histogram

	// BatchSize misst die Anzahl Saetze pro Engine-Batch. Attribut: model.
	BatchSize metric.Int64Histogram

	// CacheHits/CacheMisses zaehlen Treffer des Uebersetzungs-Caches.
	// Attribut: model.
	CacheHits   metric.Int64Counter
	CacheMisses metric.Int64Counter

	// ModelLoads zaehlt Ladevorgaenge. Attribute: model, status (ok|error).
	ModelLoads metric.Int64Counter

	// ModelEvictions zaehlt LRU-Verdraengungen. Attribut: model.
	ModelEvictions metric.Int64Counter

	// LoadedModels ist die Anzahl aktuell geladener Modelle.
	LoadedModels metric.Int64UpDownCounter

	// HTTPRequestDuration misst HTTP-Latenz. Attribute: method, path, status.
	HTTPRequestDuration metric.Float64Histogram
}

// NewMetrics erstellt alle Instrumente ueber den angegebenen Provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.TranslateDuration, err = m.Float64Histogram("quickmt.translate.duration",
		metric.WithDescription("Gesamtdauer einer Uebersetzungsanfrage."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.IdentifyDuration, err = m.Float64Histogram("quickmt.identify.duration",
		metric.WithDescription("Dauer einer Spracherkennungsanfrage."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.EngineDuration, err = m.Float64Histogram("quickmt.engine.duration",
		metric.WithDescription("Dauer einzelner Engine-Batchaufrufe je Modell."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.BatchSize, err = m.Int64Histogram("quickmt.engine.batch_size",
		metric.WithDescription("Saetze pro Engine-Batch je Modell."),
	); err != nil {
		return nil, err
	}

	if met.CacheHits, err = m.Int64Counter("quickmt.cache.hits",
		metric.WithDescription("Treffer des Uebersetzungs-Caches je Modell."),
	); err != nil {
		return nil, err
	}
	if met.CacheMisses, err = m.Int64Counter("quickmt.cache.misses",
		metric.WithDescription("Fehltreffer des Uebersetzungs-Caches je Modell."),
	); err != nil {
		return nil, err
	}
	if met.ModelLoads, err = m.Int64Counter("quickmt.model.loads",
		metric.WithDescription("Ladevorgaenge je Modell und Status."),
	); err != nil {
		return nil, err
	}
	if met.ModelEvictions, err = m.Int64Counter("quickmt.model.evictions",
		metric.WithDescription("LRU-Verdraengungen je Modell."),
	); err != nil {
		return nil, err
	}

	if met.LoadedModels, err = m.Int64UpDownCounter("quickmt.models.loaded",
		metric.WithDescription("Anzahl aktuell geladener Modelle."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("quickmt.http.request.duration",
		metric.WithDescription("HTTP-Latenz je Methode, Pfad und Status."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics gibt die Paket-Instanz zurueck und erstellt sie beim
// ersten Aufruf ueber den globalen Provider. Vor InitProvider erzeugte
// Instrumente sind No-Ops, der Aufruf ist daher immer gefahrlos.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: default-metriken nicht erstellbar: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordEngineBatch zeichnet Dauer und Groesse eines Engine-Aufrufs auf.
func (m *Metrics) RecordEngineBatch(ctx context.Context, model string, sentences int, seconds float64) {
	attrs := metric.WithAttributes(attribute.String("model", model))
	m.EngineDuration.Record(ctx, seconds, attrs)
	m.BatchSize.Record(ctx, int64(sentences), attrs)
}

// RecordCacheLookup zaehlt einen Cache-Zugriff.
func (m *Metrics) RecordCacheLookup(ctx context.Context, model string, hit bool) {
	attrs := metric.WithAttributes(attribute.String("model", model))
	if hit {
		m.CacheHits.Add(ctx, 1, attrs)
	} else {
		m.CacheMisses.Add(ctx, 1, attrs)
	}
}

// RecordModelLoad zaehlt einen Ladevorgang.
func (m *Metrics) RecordModelLoad(ctx context.Context, model, status string) {
	m.ModelLoads.Add(ctx, 1, metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("status", status),
	))
}

// RecordModelEviction zaehlt eine Verdraengung.
func (m *Metrics) RecordModelEviction(ctx context.Context, model string) {
	m.ModelEvictions.Add(ctx, 1, metric.WithAttributes(attribute.String("model", model)))
}
