// Package httpserver exposes the LAN-facing HTTP surface: the mobile
// page, upload ingress, download egress and the realtime endpoint.
package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/yudhap/lanflow/internal/event"
	"github.com/yudhap/lanflow/internal/hub"
	"github.com/yudhap/lanflow/internal/metrics"
	"github.com/yudhap/lanflow/internal/received"
	"github.com/yudhap/lanflow/internal/store"
	"github.com/yudhap/lanflow/internal/web"
)

// Server is the LAN-facing HTTP server.
type Server struct {
	host      string
	port      int
	uploadDir string
	store     *store.Store
	registry  *received.Registry
	bus       *event.Bus
	hub       *hub.Hub
	logger    zerolog.Logger
	metrics   *metrics.Metrics
	server    *http.Server
}

// Config holds server construction parameters.
type Config struct {
	Host      string
	Port      int
	UploadDir string
	Store     *store.Store
	Registry  *received.Registry
	Bus       *event.Bus
	Hub       *hub.Hub
	Logger    zerolog.Logger
	Metrics   *metrics.Metrics
}

// NewServer creates the server and ensures the upload directory exists.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Port <= 0 {
		return nil, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Hub == nil {
		return nil, fmt.Errorf("hub is required")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("received registry is required")
	}
	if cfg.Bus == nil {
		return nil, fmt.Errorf("event bus is required")
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewMetrics()
	}
	if cfg.UploadDir == "" {
		return nil, fmt.Errorf("upload directory is required")
	}

	if err := os.MkdirAll(cfg.UploadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	return &Server{
		host:      cfg.Host,
		port:      cfg.Port,
		uploadDir: cfg.UploadDir,
		store:     cfg.Store,
		registry:  cfg.Registry,
		bus:       cfg.Bus,
		hub:       cfg.Hub,
		logger:    cfg.Logger.With().Str("component", "httpserver").Logger(),
		metrics:   cfg.Metrics,
	}, nil
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("GET /download/{batchID}/{fileID}", s.handleDownload)
	mux.HandleFunc("GET /download-batch/{batchID}", s.handleDownloadBatch)
	mux.HandleFunc("GET /ws", s.hub.HandleWebSocket)
	mux.Handle("GET /metrics", s.metrics.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}

// Start starts serving in a background goroutine.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.host, s.port),
		Handler: s.Handler(),
	}

	s.logger.Info().Int("port", s.port).Msg("Starting LAN server")

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("LAN server error")
		}
	}()

	return nil
}

// Stop disconnects clients and shuts the listener down gracefully.
func (s *Server) Stop() error {
	s.logger.Info().Msg("Shutting down LAN server")

	s.hub.CloseAll()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info().Msg("LAN server stopped")
	return nil
}

// handleIndex serves the mobile-facing page.
func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(web.MobilePage())
}
