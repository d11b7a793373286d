// routes_handlers.go - HTTP-Handler der API-Endpunkte
// Enthaelt: TranslateHandler, IdentifyHandler, ModelsHandler,
// LanguagesHandler, HealthHandler sowie die Fehlerantwort
//
// Alle Fehler tragen den Body {"detail": "..."}; der Status kommt aus
// errorStatus. Handler validieren nur die Body-Form, alles Weitere
// entscheidet der Orchestrator.

package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quickmt/quickmt/api"
	"github.com/quickmt/quickmt/envconfig"
)

// abortWithError beendet die Anfrage mit dem zum Fehler passenden
// Status. Interne Fehler landen zusaetzlich im Log.
func abortWithError(c *gin.Context, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "path", c.FullPath(), "request_id", c.GetString("request_id"), "error", err)
	}
	c.AbortWithStatusJSON(status, api.ErrorResponse{Detail: err.Error()})
}

// bindJSON dekodiert den Body; Form-Fehler sind Validierungsfehler (422).
func bindJSON(c *gin.Context, req any) bool {
	switch err := c.ShouldBindJSON(req); {
	case errors.Is(err, io.EOF):
		abortWithError(c, badRequestf("missing request body"))
		return false
	case err != nil:
		abortWithError(c, badRequestf("%s", err.Error()))
		return false
	}
	return true
}

// TranslateHandler bedient POST /api/translate.
func (s *Server) TranslateHandler(c *gin.Context) {
	var req api.TranslateRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := s.Translate(c.Request.Context(), &req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// IdentifyHandler bedient POST /api/identify-language.
func (s *Server) IdentifyHandler(c *gin.Context) {
	var req api.IdentifyRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := s.Identify(c.Request.Context(), &req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ModelsHandler bedient GET /api/models mit dem Katalog samt
// Ladezustand.
func (s *Server) ModelsHandler(c *gin.Context) {
	if s.manager == nil {
		abortWithError(c, errManagerNotReady)
		return
	}
	c.JSON(http.StatusOK, api.ModelsResponse{Models: s.manager.ListModels()})
}

// LanguagesHandler bedient GET /api/languages mit der Abbildung
// Quellsprache -> sortierte Zielsprachen.
func (s *Server) LanguagesHandler(c *gin.Context) {
	if s.manager == nil {
		abortWithError(c, errManagerNotReady)
		return
	}
	c.JSON(http.StatusOK, api.LanguagesResponse(s.manager.catalogue.LanguagePairs()))
}

// HealthHandler bedient GET /api/health. Antwortet immer mit 200,
// auch wenn der Manager (noch) fehlt.
func (s *Server) HealthHandler(c *gin.Context) {
	resp := api.HealthResponse{
		Status:       "ok",
		LoadedModels: []string{},
		MaxModels:    envconfig.MaxLoadedModels(),
	}
	if s.manager != nil {
		resp.LoadedModels = s.manager.LoadedPairs()
		resp.MaxModels = s.manager.MaxLoaded()
	}
	c.JSON(http.StatusOK, resp)
}
