// config.go - Haupt-Konfigurationsfunktionen fuer quickmt
//
// Dieses Modul enthaelt:
// - Host: Gibt Scheme und Host zurueck (HOST/PORT bzw. QUICKMT_HOST)
// - AllowedOrigins: Gibt erlaubte Origins zurueck (QUICKMT_ORIGINS)
// - Device/ComputeType: Engine-Parameter (DEVICE/COMPUTE_TYPE)
// - InterThreads/IntraThreads: Thread-Konfiguration der Engine
// - MaxLoadedModels: Kapazitaet der Model-LRU (MAX_LOADED_MODELS)
// - MaxBatchSize/BatchTimeout: Batching-Parameter des Runners
// - MaxQueue: Groesse der Runner-Queue (MAX_QUEUE)
// - LangIDModelPath/LangIDWorkers: Spracherkennung
// - TranslationCacheSize: Groesse des Uebersetzungs-Caches
// - LogLevel: Gibt Log-Level zurueck (QUICKMT_DEBUG)
//
// Alle Variablen werden case-insensitiv gelesen; eine .env-Datei kann
// Werte vorbelegen (siehe dotenv.go). Gesetzte Umgebungsvariablen gewinnen.
package envconfig

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// Host gibt Scheme und Host des Servers zurueck.
// QUICKMT_HOST akzeptiert host, host:port oder eine vollstaendige URL;
// HOST und PORT setzen die Einzelteile.
// Default: http://127.0.0.1:8000
func Host() *url.URL {
	defaultPort := strconv.FormatUint(uint64(Port()), 10)

	s := strings.TrimSpace(Var("QUICKMT_HOST"))
	if s == "" {
		s = strings.TrimSpace(Var("HOST"))
	}
	scheme, hostport, ok := strings.Cut(s, "://")
	switch {
	case !ok:
		scheme, hostport = "http", s
	case scheme == "http":
		defaultPort = "80"
	case scheme == "https":
		defaultPort = "443"
	}

	hostport, path, _ := strings.Cut(hostport, "/")
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		host, port = "127.0.0.1", defaultPort
		if ip := net.ParseIP(strings.Trim(hostport, "[]")); ip != nil {
			host = ip.String()
		} else if hostport != "" {
			host = hostport
		}
	}

	if n, err := strconv.ParseInt(port, 10, 32); err != nil || n > 65535 || n < 0 {
		slog.Warn("invalid port, using default", "port", port, "default", defaultPort)
		port = defaultPort
	}

	return &url.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(host, port),
		Path:   path,
	}
}

// Port gibt den Server-Port zurueck (PORT, Default 8000).
func Port() uint {
	return Uint("PORT", 8000)()
}

// AllowedOrigins gibt erlaubte CORS-Origins zurueck.
// Konfigurierbar via QUICKMT_ORIGINS (komma-separiert),
// Standard-Origins fuer localhost sind immer enthalten.
func AllowedOrigins() (origins []string) {
	if s := Var("QUICKMT_ORIGINS"); s != "" {
		origins = strings.Split(s, ",")
	}

	for _, origin := range []string{"localhost", "127.0.0.1", "0.0.0.0"} {
		origins = append(origins,
			fmt.Sprintf("http://%s", origin),
			fmt.Sprintf("https://%s", origin),
			fmt.Sprintf("http://%s", net.JoinHostPort(origin, "*")),
			fmt.Sprintf("https://%s", net.JoinHostPort(origin, "*")),
		)
	}

	origins = append(origins,
		"app://*",
		"file://*",
		"tauri://*",
		"vscode-webview://*",
		"vscode-file://*",
	)

	return origins
}

// MaxLoadedModels gibt die Kapazitaet der Model-LRU zurueck.
// Konfigurierbar via MAX_LOADED_MODELS, Default 5.
func MaxLoadedModels() int {
	if n := int(Uint("MAX_LOADED_MODELS", 5)()); n > 0 {
		return n
	}
	return 1
}

// Device gibt das Rechengeraet der Engine zurueck (cpu|gpu|auto).
// Konfigurierbar via DEVICE, Default cpu.
func Device() string {
	switch d := strings.ToLower(Var("DEVICE")); d {
	case "cpu", "gpu", "auto":
		return d
	case "":
		return "cpu"
	default:
		slog.Warn("invalid device, using default", "device", d, "default", "cpu")
		return "cpu"
	}
}

// ComputeType gibt den Praezisions-Tag fuer die Engine zurueck.
// Konfigurierbar via COMPUTE_TYPE, Default "default".
func ComputeType() string {
	if s := Var("COMPUTE_TYPE"); s != "" {
		return s
	}
	return "default"
}

// InterThreads gibt die Anzahl paralleler Uebersetzungen der Engine zurueck.
// Konfigurierbar via INTER_THREADS, Default 1.
func InterThreads() int {
	return int(Uint("INTER_THREADS", 1)())
}

// IntraThreads gibt die Threads pro Uebersetzung zurueck.
// Konfigurierbar via INTRA_THREADS, Default 4.
func IntraThreads() int {
	return int(Uint("INTRA_THREADS", 4)())
}

// MaxBatchSize gibt die maximale Batch-Groesse des Runners zurueck.
// Konfigurierbar via MAX_BATCH_SIZE, Default 32.
func MaxBatchSize() int {
	if n := int(Uint("MAX_BATCH_SIZE", 32)()); n > 0 {
		return n
	}
	return 32
}

// BatchTimeoutMillis gibt das Batch-Sammelfenster in Millisekunden zurueck.
// Konfigurierbar via BATCH_TIMEOUT_MS, Default 5.
func BatchTimeoutMillis() int {
	return int(Uint("BATCH_TIMEOUT_MS", 5)())
}

// MaxQueue gibt die Groesse der Runner-Queue zurueck.
// Konfigurierbar via MAX_QUEUE, Default 512.
func MaxQueue() int {
	if n := int(Uint("MAX_QUEUE", 512)()); n > 0 {
		return n
	}
	return 512
}

// LangIDModelPath gibt den Pfad zum Spracherkennungs-Modell zurueck.
// Konfigurierbar via LANGID_MODEL_PATH; leer bedeutet XDG-Cache-Default
// (aufgeloest im langid-Paket).
func LangIDModelPath() string {
	return Var("LANGID_MODEL_PATH")
}

// LangIDWorkers gibt die Worker-Anzahl des Spracherkennungs-Pools zurueck.
// Konfigurierbar via LANGID_WORKERS, Default 2.
func LangIDWorkers() int {
	if n := int(Uint("LANGID_WORKERS", 2)()); n > 0 {
		return n
	}
	return 1
}

// TranslationCacheSize gibt die Groesse des Fingerprint-Caches pro Runner
// zurueck. Konfigurierbar via TRANSLATION_CACHE_SIZE, Default 10000.
func TranslationCacheSize() int {
	return int(Uint("TRANSLATION_CACHE_SIZE", 10000)())
}

// LogLevel gibt das Log-Level zurueck.
// Konfigurierbar via QUICKMT_DEBUG
// Werte: 0/false = INFO (Default), 1/true = DEBUG, 2 = TRACE
func LogLevel() slog.Level {
	level := slog.LevelInfo
	if s := Var("QUICKMT_DEBUG"); s != "" {
		if b, _ := strconv.ParseBool(s); b {
			level = slog.LevelDebug
		} else if i, _ := strconv.ParseInt(s, 10, 64); i != 0 {
			level = slog.Level(i * -4)
		}
	}

	return level
}

// Var gibt eine Environment-Variable zurueck.
// Der Name wird case-insensitiv aufgeloest; fuehrende/trailing Quotes
// und Leerzeichen werden entfernt.
func Var(key string) string {
	if s := os.Getenv(key); s != "" {
		return clean(s)
	}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok && strings.EqualFold(k, key) && v != "" {
			return clean(v)
		}
	}
	return ""
}

func clean(s string) string {
	return strings.Trim(strings.TrimSpace(s), "\"'")
}
