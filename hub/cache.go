// cache.go - Lokaler Modell-Cache im huggingface_hub-Layout
//
// Dieses Modul enthaelt:
// - CacheDir: Aufloesung des Cache-Verzeichnisses (HF_HUB_CACHE usw.)
// - CachedSnapshot: Pruefen, ob ein Snapshot lokal vorliegt
// - SnapshotSize: Plattenplatz eines gecachten Modells
//
// Das Layout ist mit der Python-Bibliothek kompatibel, beide Seiten
// koennen denselben Cache benutzen:
// <cache>/models--<owner>--<name>/snapshots/<revision>/<datei>
package hub

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	defaultCacheSubdir = "huggingface/hub"
	snapshotDirName    = "snapshots"
	modelDirPrefix     = "models--"

	// DefaultRevision ist der Snapshot-Name, solange quickmt keine
	// Git-Revisionen unterscheidet.
	DefaultRevision = "main"
)

// CacheDir loest das Cache-Verzeichnis auf: HF_HUB_CACHE gewinnt, dann
// HF_HOME/hub, sonst der XDG-Standardpfad.
func CacheDir() string {
	if dir := os.Getenv("HF_HUB_CACHE"); dir != "" {
		return dir
	}
	if home := os.Getenv(EnvHFHome); home != "" {
		return filepath.Join(home, "hub")
	}
	return defaultCacheDir()
}

func defaultCacheDir() string {
	var base string
	switch runtime.GOOS {
	case "windows":
		if profile := os.Getenv("USERPROFILE"); profile != "" {
			base = filepath.Join(profile, ".cache")
		} else {
			base = filepath.Join(os.TempDir(), "huggingface_cache")
		}
	default:
		if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
			base = xdg
		} else if home, err := os.UserHomeDir(); err == nil {
			base = filepath.Join(home, ".cache")
		} else {
			base = filepath.Join(os.TempDir(), "huggingface_cache")
		}
	}
	return filepath.Join(base, defaultCacheSubdir)
}

// SnapshotDir gibt den Snapshot-Pfad eines Modells zurueck, ohne zu
// pruefen, ob er existiert.
func SnapshotDir(modelID, revision string) string {
	if revision == "" {
		revision = DefaultRevision
	}
	return filepath.Join(CacheDir(), modelIDToCacheDir(modelID), snapshotDirName, revision)
}

// CachedSnapshot prueft, ob der Snapshot eines Modells lokal vorliegt,
// und gibt dessen Pfad zurueck. Ein leeres Snapshot-Verzeichnis zaehlt
// nicht als Treffer.
func CachedSnapshot(modelID string) (string, bool) {
	return CachedSnapshotWithRevision(modelID, DefaultRevision)
}

// CachedSnapshotWithRevision prueft eine bestimmte Revision.
func CachedSnapshotWithRevision(modelID, revision string) (string, bool) {
	path := SnapshotDir(modelID, revision)
	stat, err := os.Stat(path)
	if err != nil || !stat.IsDir() {
		return "", false
	}
	entries, err := os.ReadDir(path)
	if err != nil || len(entries) == 0 {
		return "", false
	}
	return path, true
}

// SnapshotSize summiert die Dateigroessen eines gecachten Modells.
// Fehlt das Modell, ist das Ergebnis 0.
func SnapshotSize(modelID string) int64 {
	path, ok := CachedSnapshot(modelID)
	if !ok {
		return 0
	}
	var size int64
	filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size
}

func modelIDToCacheDir(modelID string) string {
	return modelDirPrefix + strings.ReplaceAll(modelID, "/", "--")
}
