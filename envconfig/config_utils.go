// config_utils.go - Utility-Funktionen und Export fuer Konfiguration
//
// Dieses Modul enthaelt:
// - BoolWithDefault/Bool: Boolean-Getter mit Default-Wert
// - String: String-Getter
// - Uint/Uint64: Integer-Getter mit Default-Wert
// - EnvVar: Struktur fuer Environment-Variablen-Info
// - AsMap: Gibt alle Konfigurationen als Map zurueck
// - Values: Gibt alle Konfigurationswerte als String-Map zurueck
package envconfig

import (
	"fmt"
	"log/slog"
	"strconv"
)

// BoolWithDefault gibt eine Funktion zurueck, die einen Bool mit Default-Wert liest
func BoolWithDefault(k string) func(defaultValue bool) bool {
	return func(defaultValue bool) bool {
		if s := Var(k); s != "" {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return true
			}
			return b
		}
		return defaultValue
	}
}

// Bool gibt eine Funktion zurueck, die einen Bool liest (Default: false)
func Bool(k string) func() bool {
	withDefault := BoolWithDefault(k)
	return func() bool {
		return withDefault(false)
	}
}

// String gibt eine Funktion zurueck, die einen String liest
func String(s string) func() string {
	return func() string {
		return Var(s)
	}
}

// Uint gibt eine Funktion zurueck, die einen uint mit Default-Wert liest
func Uint(key string, defaultValue uint) func() uint {
	return func() uint {
		if s := Var(key); s != "" {
			if n, err := strconv.ParseUint(s, 10, 64); err != nil {
				slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
			} else {
				return uint(n)
			}
		}
		return defaultValue
	}
}

// Uint64 gibt eine Funktion zurueck, die einen uint64 mit Default-Wert liest
func Uint64(key string, defaultValue uint64) func() uint64 {
	return func() uint64 {
		if s := Var(key); s != "" {
			if n, err := strconv.ParseUint(s, 10, 64); err != nil {
				slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
			} else {
				return n
			}
		}
		return defaultValue
	}
}

// EnvVar repraesentiert eine Environment-Variable mit Metadaten
type EnvVar struct {
	Name        string
	Value       any
	Description string
}

// AsMap gibt alle Konfigurationen als Map zurueck
// Enthaelt Namen, aktuelle Werte und Beschreibungen
func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"MAX_LOADED_MODELS":      {"MAX_LOADED_MODELS", MaxLoadedModels(), "Maximum number of translation models kept loaded (default 5)"},
		"DEVICE":                 {"DEVICE", Device(), "Compute device for the engine: cpu, gpu or auto (default cpu)"},
		"COMPUTE_TYPE":           {"COMPUTE_TYPE", ComputeType(), "Compute precision forwarded to the engine (default \"default\")"},
		"INTER_THREADS":          {"INTER_THREADS", InterThreads(), "Number of concurrent translations in the engine (default 1)"},
		"INTRA_THREADS":          {"INTRA_THREADS", IntraThreads(), "Threads per translation in the engine (default 4)"},
		"MAX_BATCH_SIZE":         {"MAX_BATCH_SIZE", MaxBatchSize(), "Maximum number of jobs coalesced into one engine call (default 32)"},
		"BATCH_TIMEOUT_MS":       {"BATCH_TIMEOUT_MS", BatchTimeoutMillis(), "Batch collection window in milliseconds (default 5)"},
		"MAX_QUEUE":              {"MAX_QUEUE", MaxQueue(), "Per-model queue size (default 512)"},
		"LANGID_MODEL_PATH":      {"LANGID_MODEL_PATH", LangIDModelPath(), "Path to the language identification model (default: XDG cache)"},
		"LANGID_WORKERS":         {"LANGID_WORKERS", LangIDWorkers(), "Number of language identification workers (default 2)"},
		"TRANSLATION_CACHE_SIZE": {"TRANSLATION_CACHE_SIZE", TranslationCacheSize(), "Entries in the per-model translation cache (default 10000)"},
		"HOST":                   {"HOST", Host(), "IP address for the quickmt server (default 127.0.0.1:8000)"},
		"PORT":                   {"PORT", Port(), "Port for the quickmt server (default 8000)"},
		"QUICKMT_DEBUG":          {"QUICKMT_DEBUG", LogLevel(), "Show additional debug information (e.g. QUICKMT_DEBUG=1)"},
		"QUICKMT_ORIGINS":        {"QUICKMT_ORIGINS", AllowedOrigins(), "A comma separated list of allowed origins"},
	}
}

// Values gibt alle Konfigurationswerte als String-Map zurueck
func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}
