// config_test.go - Tests fuer die Konfigurationsfunktionen
package envconfig

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestHost(t *testing.T) {
	cases := map[string]struct {
		value  string
		expect string
	}{
		"empty":            {"", "127.0.0.1:8000"},
		"only address":     {"1.2.3.4", "1.2.3.4:8000"},
		"only port":        {":1234", ":1234"},
		"address and port": {"1.2.3.4:1234", "1.2.3.4:1234"},
		"hostname":         {"example.com", "example.com:8000"},
		"hostname port":    {"example.com:1234", "example.com:1234"},
		"zero port":        {":0", ":0"},
		"too large port":   {":66000", ":8000"},
		"ipv6 localhost":   {"[::1]", "[::1]:8000"},
		"ipv6 world open":  {"[::]", "[::]:8000"},
		"http":             {"http://1.2.3.4", "1.2.3.4:80"},
		"https":            {"https://1.2.3.4", "1.2.3.4:443"},
		"trailing slash":   {"example.com/", "example.com:8000"},
	}

	for name, tt := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("QUICKMT_HOST", tt.value)
			if host := Host(); host.Host != tt.expect {
				t.Errorf("%s: erwartet %s, erhalten %s", name, tt.expect, host.Host)
			}
		})
	}
}

func TestVarCaseInsensitive(t *testing.T) {
	t.Setenv("max_loaded_models", "3")
	if got := MaxLoadedModels(); got != 3 {
		t.Errorf("erwartet 3, erhalten %d", got)
	}
}

func TestDefaults(t *testing.T) {
	// Umgebung fuer diesen Test leeren
	for _, k := range []string{"MAX_LOADED_MODELS", "DEVICE", "COMPUTE_TYPE", "INTER_THREADS", "INTRA_THREADS", "MAX_BATCH_SIZE", "BATCH_TIMEOUT_MS", "LANGID_WORKERS", "TRANSLATION_CACHE_SIZE", "PORT"} {
		t.Setenv(k, "")
	}

	if got := MaxLoadedModels(); got != 5 {
		t.Errorf("MaxLoadedModels: erwartet 5, erhalten %d", got)
	}
	if got := Device(); got != "cpu" {
		t.Errorf("Device: erwartet cpu, erhalten %s", got)
	}
	if got := ComputeType(); got != "default" {
		t.Errorf("ComputeType: erwartet default, erhalten %s", got)
	}
	if got := InterThreads(); got != 1 {
		t.Errorf("InterThreads: erwartet 1, erhalten %d", got)
	}
	if got := IntraThreads(); got != 4 {
		t.Errorf("IntraThreads: erwartet 4, erhalten %d", got)
	}
	if got := MaxBatchSize(); got != 32 {
		t.Errorf("MaxBatchSize: erwartet 32, erhalten %d", got)
	}
	if got := BatchTimeoutMillis(); got != 5 {
		t.Errorf("BatchTimeoutMillis: erwartet 5, erhalten %d", got)
	}
	if got := LangIDWorkers(); got != 2 {
		t.Errorf("LangIDWorkers: erwartet 2, erhalten %d", got)
	}
	if got := TranslationCacheSize(); got != 10000 {
		t.Errorf("TranslationCacheSize: erwartet 10000, erhalten %d", got)
	}
	if got := Port(); got != 8000 {
		t.Errorf("Port: erwartet 8000, erhalten %d", got)
	}
}

func TestDevice(t *testing.T) {
	cases := map[string]string{
		"cpu":     "cpu",
		"gpu":     "gpu",
		"auto":    "auto",
		"GPU":     "gpu",
		"quantum": "cpu",
		"":        "cpu",
	}

	for value, expect := range cases {
		t.Run("device "+value, func(t *testing.T) {
			t.Setenv("DEVICE", value)
			if got := Device(); got != expect {
				t.Errorf("DEVICE=%q: erwartet %s, erhalten %s", value, expect, got)
			}
		})
	}
}

func TestLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":      slog.LevelInfo,
		"false": slog.LevelInfo,
		"0":     slog.LevelInfo,
		"1":     slog.LevelDebug,
		"true":  slog.LevelDebug,
		"2":     slog.Level(-8),
	}

	for value, expect := range cases {
		t.Run("debug "+value, func(t *testing.T) {
			t.Setenv("QUICKMT_DEBUG", value)
			if got := LogLevel(); got != expect {
				t.Errorf("QUICKMT_DEBUG=%q: erwartet %d, erhalten %d", value, expect, got)
			}
		})
	}
}

func TestVarTrimsQuotes(t *testing.T) {
	t.Setenv("COMPUTE_TYPE", "\"int8\"")
	if got := ComputeType(); got != "int8" {
		t.Errorf("erwartet int8, erhalten %s", got)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# Kommentar\nMAX_LOADED_MODELS=2\nexport DEVICE=\"gpu\"\nPORT=9001\n\nINVALID LINE\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	// PORT ist bereits gesetzt und darf nicht ueberschrieben werden
	t.Setenv("PORT", "8123")
	t.Setenv("MAX_LOADED_MODELS", "")
	t.Setenv("DEVICE", "")
	defer func() {
		os.Unsetenv("MAX_LOADED_MODELS")
		os.Unsetenv("DEVICE")
	}()

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv fehlgeschlagen: %v", err)
	}

	if got := MaxLoadedModels(); got != 2 {
		t.Errorf("MAX_LOADED_MODELS: erwartet 2, erhalten %d", got)
	}
	if got := Device(); got != "gpu" {
		t.Errorf("DEVICE: erwartet gpu, erhalten %s", got)
	}
	if got := Port(); got != 8123 {
		t.Errorf("PORT: erwartet 8123 (env gewinnt), erhalten %d", got)
	}
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "nope.env")); err != nil {
		t.Errorf("fehlende Datei darf kein Fehler sein: %v", err)
	}
}
