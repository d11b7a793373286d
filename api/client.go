// Package api - Hauptmodul des quickmt API-Clients.
// Dieses Modul enthaelt die Client-Struktur, Basis-Methoden und die
// Endpunkt-Methoden (Translate, IdentifyLanguage, ListModels, ...).
//
// Package api implements the client-side API for code wishing to interact
// with the quickmt service. The methods of the [Client] type correspond to
// the quickmt REST API. The quickmt command-line client itself uses this
// package to interact with the backend service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"runtime"

	"github.com/quickmt/quickmt/envconfig"
	"github.com/quickmt/quickmt/version"
)

// Client encapsulates client state for interacting with the quickmt
// service. Use [ClientFromEnvironment] to create new Clients.
type Client struct {
	base *url.URL
	http *http.Client
}

func checkError(resp *http.Response, body []byte) error {
	if resp.StatusCode < http.StatusBadRequest {
		return nil
	}

	apiError := StatusError{StatusCode: resp.StatusCode, Status: resp.Status}

	err := json.Unmarshal(body, &apiError)
	if err != nil {
		// Use the full body as the message if we fail to decode a response.
		apiError.ErrorMessage = string(body)
	}

	return apiError
}

// ClientFromEnvironment creates a new [Client] using configuration from the
// environment variable QUICKMT_HOST, which points to the network host and
// port on which the quickmt service is listening. The format of this
// variable is:
//
//	<scheme>://<host>:<port>
//
// If the variable is not specified, a default quickmt host and port will be
// used.
func ClientFromEnvironment() (*Client, error) {
	return &Client{
		base: envconfig.Host(),
		http: http.DefaultClient,
	}, nil
}

func NewClient(base *url.URL, http *http.Client) *Client {
	return &Client{
		base: base,
		http: http,
	}
}

func (c *Client) do(ctx context.Context, method, path string, reqData, respData any) error {
	var reqBody io.Reader
	var data []byte
	var err error

	switch reqData := reqData.(type) {
	case io.Reader:
		reqBody = reqData
	case nil:
		// noop
	default:
		data, err = json.Marshal(reqData)
		if err != nil {
			return err
		}

		reqBody = bytes.NewReader(data)
	}

	requestURL := c.base.JoinPath(path)

	request, err := http.NewRequestWithContext(ctx, method, requestURL.String(), reqBody)
	if err != nil {
		return err
	}

	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")
	request.Header.Set("User-Agent", fmt.Sprintf("quickmt/%s (%s %s) Go/%s", version.Version, runtime.GOARCH, runtime.GOOS, runtime.Version()))

	respObj, err := c.http.Do(request)
	if err != nil {
		return err
	}
	defer respObj.Body.Close()

	respBody, err := io.ReadAll(respObj.Body)
	if err != nil {
		return err
	}

	if err := checkError(respObj, respBody); err != nil {
		return err
	}

	if len(respBody) > 0 && respData != nil {
		if err := json.Unmarshal(respBody, respData); err != nil {
			return err
		}
	}
	return nil
}

// Translate uebersetzt die Quelltexte der Anfrage.
func (c *Client) Translate(ctx context.Context, req *TranslateRequest) (*TranslateResponse, error) {
	var resp TranslateResponse
	if err := c.do(ctx, http.MethodPost, "/api/translate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// IdentifyLanguage bestimmt die Sprache(n) der Quelltexte.
func (c *Client) IdentifyLanguage(ctx context.Context, req *IdentifyRequest) (*IdentifyResponse, error) {
	var resp IdentifyResponse
	if err := c.do(ctx, http.MethodPost, "/api/identify-language", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListModels listet alle Katalog-Modelle samt Ladezustand.
func (c *Client) ListModels(ctx context.Context) (*ModelsResponse, error) {
	var resp ModelsResponse
	if err := c.do(ctx, http.MethodGet, "/api/models", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Languages liefert die verfuegbaren Sprachpaare.
func (c *Client) Languages(ctx context.Context) (LanguagesResponse, error) {
	var resp LanguagesResponse
	if err := c.do(ctx, http.MethodGet, "/api/languages", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Health liefert den Serverzustand samt geladener Modelle.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Version liefert die Server-Version.
func (c *Client) Version(ctx context.Context) (string, error) {
	var resp VersionResponse
	if err := c.do(ctx, http.MethodGet, "/api/version", nil, &resp); err != nil {
		return "", err
	}
	return resp.Version, nil
}

// Heartbeat prueft, ob der Server erreichbar ist.
func (c *Client) Heartbeat(ctx context.Context) error {
	if err := c.do(ctx, http.MethodHead, "/", nil, nil); err != nil {
		return err
	}
	return nil
}
