// Package server exposes the tracker over a local HTTP API with an MJPEG
// camera stream and a websocket status feed.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ayusman/studybuddy/internal/app"
	"github.com/ayusman/studybuddy/internal/server/api"
)

// Tracker is the part of app.App the server needs.
type Tracker interface {
	api.Tracker
	FrameJPEG() ([]byte, bool)
}

// Config holds the server configuration.
type Config struct {
	Tracker   Tracker
	StaticDir string
	// PushInterval is how often the websocket feed checks for a new view.
	PushInterval time.Duration
	Logger       *slog.Logger
}

// Server is the HTTP front of a running tracker.
type Server struct {
	config Config
	mux    *http.ServeMux
	hub    *StatusHub
	logger *slog.Logger
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.PushInterval <= 0 {
		config.PushInterval = app.DefaultTick
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		logger: logger,
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if t := s.config.Tracker; t != nil {
		s.mux.Handle("/api/status", api.NewStatusHandler(t))
		s.mux.Handle("/api/session/", api.NewSessionHandler(t))
		s.mux.Handle("/api/snapshot", api.NewSnapshotHandler(t))
		s.mux.Handle("/api/stream", NewStreamHandler(t))

		s.hub = NewStatusHub(t, s.config.PushInterval, s.logger)
		s.mux.Handle("/api/ws", s.hub)
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Hub returns the websocket status hub, or nil without a tracker.
func (s *Server) Hub() *StatusHub {
	return s.hub
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.start)

	response := map[string]interface{}{
		"status": "ok",
		"uptime": uptime.String(),
	}
	if s.hub != nil {
		response["ws_clients"] = s.hub.Clients()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	if s.hub != nil {
		go s.hub.Run(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if s.hub != nil {
			s.hub.CloseAll()
		}
		return srv.Shutdown(shutdownCtx)
	}
}
