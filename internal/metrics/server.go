// Package metrics serves the process's prometheus collectors and a JSON dump
// of the projected client state for debugging.
package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wethinkt/go-panes/internal/tuilog"
)

// Snapshot returns a JSON-serializable value describing the client state.
type Snapshot func() any

// Server is the optional diagnostics HTTP server.
type Server struct {
	router   chi.Router
	snapshot Snapshot
}

// NewServer builds the router. snapshot may be nil.
func NewServer(snapshot Snapshot) *Server {
	s := &Server{snapshot: snapshot}
	s.router = s.setupRouter()
	return s
}

func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	if tuilog.Log.Enabled() && tuilog.Log.Level() == tuilog.LevelDebug {
		r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
			Logger:  logAdapter{},
			NoColor: true,
		}))
	}

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/debug/state", s.handleState)
	return r
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	if s.snapshot == nil {
		http.Error(w, "state not available", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.snapshot()); err != nil {
		tuilog.Log.Warn("metrics: encoding state", "error", err)
	}
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	tuilog.Log.Info("metrics: serving", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type logAdapter struct{}

func (logAdapter) Print(v ...any) {
	tuilog.Log.Debug(fmt.Sprint(v...))
}
