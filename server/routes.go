// Package server - Haupt-Router und Server-Setup fuer quickmt
// Beinhaltet: Server-Struct, Router-Registrierung, Server-Start
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quickmt/quickmt/api"
	"github.com/quickmt/quickmt/envconfig"
	"github.com/quickmt/quickmt/hub"
	"github.com/quickmt/quickmt/langid"
	"github.com/quickmt/quickmt/logutil"
	"github.com/quickmt/quickmt/observe"
	"github.com/quickmt/quickmt/registry"
	"github.com/quickmt/quickmt/version"
)

var mode string = gin.DebugMode

// Server verwaltet den HTTP-Server, den Modell-Manager und den
// Spracherkennungs-Pool. manager und pool duerfen nil sein, solange die
// jeweilige Komponente nicht initialisiert ist; die Handler antworten
// dann mit 503.
type Server struct {
	addr    net.Addr
	manager *Manager
	pool    *langid.Pool
	metrics *observe.Metrics
}

func init() {
	switch mode {
	case gin.DebugMode:
	case gin.ReleaseMode:
	case gin.TestMode:
	default:
		mode = gin.DebugMode
	}

	gin.SetMode(mode)
}

// GenerateRoutes registriert Middleware und Endpunkte.
func (s *Server) GenerateRoutes() http.Handler {
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowWildcard = true
	corsConfig.AllowBrowserExtensions = true
	corsConfig.AllowHeaders = []string{
		"Authorization",
		"Content-Type",
		"User-Agent",
		"Accept",
		"X-Requested-With",
		"X-Request-Id",
	}
	corsConfig.AllowOrigins = envconfig.AllowedOrigins()

	r := gin.Default()
	r.HandleMethodNotAllowed = true
	r.Use(
		cors.New(corsConfig),
		allowedHostsMiddleware(s.addr),
		requestIDMiddleware(),
		metricsMiddleware(s.metrics),
	)

	// General
	r.HEAD("/", func(c *gin.Context) { c.String(http.StatusOK, "quickmt is running") })
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "quickmt is running") })
	r.HEAD("/api/version", func(c *gin.Context) { c.JSON(http.StatusOK, api.VersionResponse{Version: version.Version}) })
	r.GET("/api/version", func(c *gin.Context) { c.JSON(http.StatusOK, api.VersionResponse{Version: version.Version}) })

	// Inference
	r.POST("/api/translate", s.TranslateHandler)
	r.POST("/api/identify-language", s.IdentifyHandler)

	// Catalogue and state
	r.GET("/api/models", s.ModelsHandler)
	r.GET("/api/languages", s.LanguagesHandler)
	r.GET("/api/health", s.HealthHandler)

	// Prometheus exposition
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// Serve startet Katalog, Spracherkennung, Manager und HTTP-Server und
// faehrt bei SIGINT/SIGTERM geordnet herunter.
func Serve(ln net.Listener) error {
	if err := envconfig.LoadDotEnv(".env"); err != nil {
		return err
	}
	slog.SetDefault(logutil.NewLogger(os.Stderr, envconfig.LogLevel()))
	slog.Info("server config", "env", envconfig.Values())

	shutdownMetrics, err := observe.InitProvider(context.Background(), "quickmt", version.Version)
	if err != nil {
		return err
	}

	// Modellkatalog aus der Hugging-Face-Collection
	reg := registry.New(hub.NewClient())
	if err := reg.Refresh(context.Background()); err != nil {
		return fmt.Errorf("modellkatalog laden: %w", err)
	}

	// Spracherkennung: Modelldatei sicherstellen, dann Worker starten
	lidPath, err := langid.EnsureModel(context.Background(), envconfig.LangIDModelPath())
	if err != nil {
		return fmt.Errorf("spracherkennungsmodell laden: %w", err)
	}
	pool, err := langid.NewFastTextPool(envconfig.LangIDWorkers(), lidPath)
	if err != nil {
		return fmt.Errorf("spracherkennung starten: %w", err)
	}

	manager := NewManager(reg)

	s := &Server{
		addr:    ln.Addr(),
		manager: manager,
		pool:    pool,
		metrics: observe.DefaultMetrics(),
	}

	slog.Info(fmt.Sprintf("Listening on %s (version %s)", ln.Addr(), version.Version))
	srvr := &http.Server{Handler: s.GenerateRoutes()}

	// listen for a ctrl+c and stop all loaded models
	ctx, done := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		srvr.Close()
		pool.Close()
		manager.Shutdown()
		if err := shutdownMetrics(context.Background()); err != nil {
			slog.Warn("metrics shutdown failed", "error", err)
		}
		done()
	}()

	err = srvr.Serve(ln)
	// If server is closed from the signal handler, wait for the ctx to
	// be done, otherwise error out quickly
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-ctx.Done()
	return nil
}
