// client.go - Hugging-Face-Hub-Client fuer den Modellkatalog
//
// Dieses Modul enthaelt:
// - Client: HTTP-Client mit Token-, Endpoint- und Timeout-Optionen
// - GetCollection: Eintraege einer Hub-Collection abrufen
// - GetModelInfo: Metadaten und Dateiliste eines Repos abrufen
//
// quickmt bezieht seinen Katalog aus einer Hub-Collection und laedt
// Modell-Artefakte als Snapshots in den huggingface_hub-kompatiblen
// Cache. Mehr Hub-API braucht der Server nicht.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/quickmt/quickmt/version"
)

const (
	DefaultHubURL = "https://huggingface.co"

	// Downloads von model.bin koennen dauern, der Timeout ist daher
	// bewusst grosszuegig.
	DefaultClientTimeout = 30 * time.Minute

	EnvHFToken    = "HF_TOKEN"
	EnvHFHome     = "HF_HOME"
	EnvHFEndpoint = "HF_ENDPOINT"
)

var (
	ErrModelNotFound      = errors.New("modell nicht gefunden")
	ErrCollectionNotFound = errors.New("collection nicht gefunden")
	ErrUnauthorized       = errors.New("authentifizierung fehlgeschlagen")
	ErrRateLimited        = errors.New("rate limit ueberschritten")
	ErrNetworkError       = errors.New("netzwerkfehler")
	ErrInvalidModelID     = errors.New("ungueltige modell-id")
	ErrDownloadFailed     = errors.New("download fehlgeschlagen")
	ErrInvalidResponse    = errors.New("ungueltige server-antwort")
)

// ModelInfo enthaelt die Metadaten eines Hub-Repos, soweit quickmt sie
// auswertet.
type ModelInfo struct {
	ID           string    `json:"id"`
	SHA          string    `json:"sha"`
	LastModified time.Time `json:"lastModified"`
	Private      bool      `json:"private"`
	Downloads    int64     `json:"downloads"`
	Siblings     []Sibling `json:"siblings"`
}

// Sibling ist eine Datei im Repo. Die Groesse kommt je nach Datei aus
// dem LFS-Block.
type Sibling struct {
	Filename string   `json:"rfilename"`
	Size     int64    `json:"size"`
	LFS      *LFSInfo `json:"lfs,omitempty"`
}

// FileSize gibt die beste bekannte Dateigroesse zurueck, 0 wenn die
// API keine liefert.
func (s Sibling) FileSize() int64 {
	if s.Size > 0 {
		return s.Size
	}
	if s.LFS != nil {
		return s.LFS.Size
	}
	return 0
}

// LFSInfo enthaelt die LFS-Metadaten grosser Dateien.
type LFSInfo struct {
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}

// Collection ist eine Hub-Collection mit ihren Eintraegen.
type Collection struct {
	Slug  string           `json:"slug"`
	Title string           `json:"title"`
	Items []CollectionItem `json:"items"`
}

// CollectionItem ist ein Eintrag einer Collection; fuer quickmt zaehlen
// nur Eintraege vom Typ "model".
type CollectionItem struct {
	ItemID   string `json:"id"`
	ItemType string `json:"item_type"`
}

// Client spricht die Hub-API. Der Nullwert ist nicht brauchbar,
// NewClient verwenden.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	userAgent  string
}

// ClientOption konfiguriert den Client beim Erstellen.
type ClientOption func(*Client)

// WithToken setzt den Hub-Token explizit statt aus HF_TOKEN.
func WithToken(token string) ClientOption {
	return func(c *Client) { c.token = token }
}

// WithBaseURL setzt einen anderen Hub-Endpoint, etwa fuer Tests.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(url, "/") }
}

// WithClientTimeout setzt den HTTP-Timeout.
func WithClientTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) { c.httpClient.Timeout = timeout }
}

// WithHTTPClient ersetzt den HTTP-Client komplett.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = client }
}

// NewClient erstellt einen Hub-Client. HF_ENDPOINT und HF_TOKEN aus
// der Umgebung werden beruecksichtigt, Optionen gewinnen.
func NewClient(options ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultClientTimeout},
		baseURL:    DefaultHubURL,
		userAgent: fmt.Sprintf("quickmt/%s (%s %s) Go/%s",
			version.Version, runtime.GOARCH, runtime.GOOS, runtime.Version()),
	}
	if token := os.Getenv(EnvHFToken); token != "" {
		c.token = token
	}
	if endpoint := os.Getenv(EnvHFEndpoint); endpoint != "" {
		c.baseURL = strings.TrimSuffix(endpoint, "/")
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// GetCollection ruft eine Collection ab, slug im Format
// "owner/name" oder "owner/name-suffix".
func (c *Client) GetCollection(ctx context.Context, slug string) (*Collection, error) {
	if slug == "" {
		return nil, fmt.Errorf("%w: leerer collection-slug", ErrInvalidModelID)
	}

	url := fmt.Sprintf("%s/api/collections/%s", c.baseURL, slug)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, slug)
	}
	if err := c.handleResponseError(resp); err != nil {
		return nil, err
	}

	var collection Collection
	if err := json.NewDecoder(resp.Body).Decode(&collection); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return &collection, nil
}

// GetModelInfo ruft Metadaten und Dateiliste eines Repos ab.
func (c *Client) GetModelInfo(ctx context.Context, modelID string) (*ModelInfo, error) {
	if err := validateModelID(modelID); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/api/models/%s", c.baseURL, modelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if err := c.handleResponseError(resp); err != nil {
		return nil, err
	}

	var info ModelInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return &info, nil
}

// BaseURL gibt den konfigurierten Hub-Endpoint zurueck.
func (c *Client) BaseURL() string { return c.baseURL }

// HasToken meldet, ob ein Token konfiguriert ist.
func (c *Client) HasToken() bool { return c.token != "" }

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func (c *Client) handleResponseError(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusOK, http.StatusPartialContent:
		return nil
	case http.StatusNotFound:
		return ErrModelNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			return fmt.Errorf("%w: status %d - %s", ErrInvalidResponse, resp.StatusCode, string(body))
		}
		return nil
	}
}

func validateModelID(modelID string) error {
	if modelID == "" {
		return fmt.Errorf("%w: modell-id darf nicht leer sein", ErrInvalidModelID)
	}
	parts := strings.Split(modelID, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("%w: erwartet format 'owner/model'", ErrInvalidModelID)
	}
	return nil
}
