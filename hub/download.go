// download.go - Snapshot-Downloads in den lokalen Cache
//
// Dieses Modul enthaelt:
// - Snapshot: Alle passenden Repo-Dateien parallel herunterladen
// - DownloadOption: Muster, Parallelitaet, Progress-Callback
// - doDownload: Einzeldatei mit Range-Fortsetzung und Wiederholungen
package hub

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const (
	downloadChunkSize  = 1 << 20
	maxDownloadRetries = 3
	downloadRetryDelay = 2 * time.Second
	progressInterval   = 100 * time.Millisecond
	defaultParallelism = 4
)

// ProgressFunc wird waehrend eines Snapshot-Downloads periodisch mit
// den bisher geladenen und den gesamten Bytes aufgerufen.
type ProgressFunc func(downloaded, total int64)

// DownloadOption konfiguriert einen Snapshot-Download.
type DownloadOption func(*downloadConfig)

type downloadConfig struct {
	revision        string
	allowPatterns   []string
	excludePatterns []string
	parallelism     int
	progressFn      ProgressFunc
}

// WithRevision setzt die Git-Revision, Standard ist "main".
func WithRevision(revision string) DownloadOption {
	return func(cfg *downloadConfig) {
		if revision != "" {
			cfg.revision = revision
		}
	}
}

// WithAllowPatterns begrenzt den Download auf Dateien, die eines der
// Glob-Muster treffen.
func WithAllowPatterns(patterns ...string) DownloadOption {
	return func(cfg *downloadConfig) { cfg.allowPatterns = patterns }
}

// WithExcludePatterns schliesst Dateien nach Glob-Mustern aus.
// Ausschluss gewinnt gegen Erlaubnis.
func WithExcludePatterns(patterns ...string) DownloadOption {
	return func(cfg *downloadConfig) { cfg.excludePatterns = patterns }
}

// WithParallelism setzt die Anzahl gleichzeitiger Datei-Downloads.
func WithParallelism(n int) DownloadOption {
	return func(cfg *downloadConfig) {
		if n > 0 {
			cfg.parallelism = n
		}
	}
}

// WithProgress setzt den Progress-Callback.
func WithProgress(fn ProgressFunc) DownloadOption {
	return func(cfg *downloadConfig) { cfg.progressFn = fn }
}

// Snapshot laedt die passenden Dateien eines Repos in den Cache und
// gibt das Snapshot-Verzeichnis zurueck. Bereits vollstaendig
// vorhandene Dateien werden uebersprungen, angefangene fortgesetzt.
func (c *Client) Snapshot(ctx context.Context, modelID string, opts ...DownloadOption) (string, error) {
	cfg := &downloadConfig{revision: DefaultRevision, parallelism: defaultParallelism}
	for _, opt := range opts {
		opt(cfg)
	}

	info, err := c.GetModelInfo(ctx, modelID)
	if err != nil {
		return "", err
	}

	files := filterSiblings(info.Siblings, cfg)
	if len(files) == 0 {
		return "", fmt.Errorf("%w: keine passenden dateien in %s", ErrDownloadFailed, modelID)
	}

	snapshotDir := SnapshotDir(modelID, cfg.revision)
	if err := os.MkdirAll(snapshotDir, 0o755); err != nil {
		return "", fmt.Errorf("snapshot-verzeichnis anlegen: %w", err)
	}

	var total int64
	for _, f := range files {
		total += f.FileSize()
	}
	progress := newProgressTracker(cfg.progressFn, total)

	g, ctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(cfg.parallelism))
	for _, file := range files {
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			target := filepath.Join(snapshotDir, file.Filename)
			if stat, err := os.Stat(target); err == nil && stat.Size() == file.FileSize() && file.FileSize() > 0 {
				progress.add(file.FileSize())
				return nil
			}

			url := fmt.Sprintf("%s/%s/resolve/%s/%s", c.baseURL, modelID, cfg.revision, file.Filename)
			if err := c.downloadWithRetry(ctx, url, target, progress.add); err != nil {
				return fmt.Errorf("download von %s: %w", file.Filename, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	progress.finish()
	return snapshotDir, nil
}

func (c *Client) downloadWithRetry(ctx context.Context, url, target string, progressFn func(int64)) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("verzeichnis anlegen: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxDownloadRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(downloadRetryDelay):
			}
		}
		if err := c.doDownload(ctx, url, target, progressFn); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("%w: nach %d versuchen: %v", ErrDownloadFailed, maxDownloadRetries, lastErr)
}

// doDownload holt eine Datei ueber eine .download-Zwischendatei.
// Existiert diese schon, wird mit einem Range-Request fortgesetzt;
// antwortet der Server trotzdem mit 200, beginnt der Download von vorn.
func (c *Client) doDownload(ctx context.Context, url, target string, progressFn func(int64)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	c.setHeaders(req)

	tmp := target + ".download"
	var existing int64
	if stat, err := os.Stat(tmp); err == nil {
		existing = stat.Size()
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", existing))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK && existing > 0 {
		existing = 0
		os.Remove(tmp)
	} else if err := c.handleResponseError(resp); err != nil {
		return err
	}

	flags := os.O_WRONLY | os.O_CREATE
	if existing > 0 {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	file, err := os.OpenFile(tmp, flags, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	buf := make([]byte, downloadChunkSize)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := file.Write(buf[:n]); werr != nil {
				return werr
			}
			if progressFn != nil {
				progressFn(int64(n))
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}

	if err := file.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, target)
}

// progressTracker drosselt Callback-Aufrufe auf das Update-Intervall.
type progressTracker struct {
	mu         sync.Mutex
	fn         ProgressFunc
	total      int64
	downloaded int64
	lastUpdate time.Time
}

func newProgressTracker(fn ProgressFunc, total int64) *progressTracker {
	return &progressTracker{fn: fn, total: total, lastUpdate: time.Now()}
}

func (p *progressTracker) add(n int64) {
	if p.fn == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.downloaded += n
	if now := time.Now(); now.Sub(p.lastUpdate) >= progressInterval {
		p.fn(p.downloaded, p.total)
		p.lastUpdate = now
	}
}

func (p *progressTracker) finish() {
	if p.fn == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fn(p.total, p.total)
}

func filterSiblings(siblings []Sibling, cfg *downloadConfig) []Sibling {
	var out []Sibling
	for _, s := range siblings {
		if len(cfg.allowPatterns) > 0 && !matchAny(cfg.allowPatterns, s.Filename) {
			continue
		}
		if matchAny(cfg.excludePatterns, s.Filename) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func matchAny(patterns []string, name string) bool {
	for _, pattern := range patterns {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}
