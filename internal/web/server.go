// Package web serves the panel to browsers: the rendered page, button
// presses, a JSON snapshot and a WebSocket feed of view changes.
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/espanel/internal/led"
	"github.com/dokzlo13/espanel/internal/view"
)

// Presser presses LED panel buttons.
type Presser interface {
	Press(ctx context.Context, b led.Button) led.State
}

// Server is the panel HTTP server.
type Server struct {
	addr       string
	doc        *view.Document
	leds       Presser
	hub        *Hub
	streamURL  string
	httpServer *http.Server
}

// NewServer creates a new panel server.
func NewServer(addr string, doc *view.Document, leds Presser, hub *Hub, streamURL string) *Server {
	s := &Server{
		addr:      addr,
		doc:       doc,
		leds:      leds,
		hub:       hub,
		streamURL: streamURL,
	}
	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: s.routes(),
	}
	return s
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /state", s.handleState)
	mux.HandleFunc("POST /buttons/{id}", s.handlePress)
	mux.HandleFunc("GET /ws", s.handleWS)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	return mux
}

// Run starts the server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	log.Info().Str("addr", s.addr).Msg("Starting panel server")

	// Handle graceful shutdown
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Panel server shutdown error")
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderPage(w, s.doc.Snapshot(), s.streamURL); err != nil {
		log.Error().Err(err).Msg("Failed to render panel")
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.doc.Snapshot())
}

// StateResponse is returned by a JSON button press.
type StateResponse struct {
	LED  led.State     `json:"led"`
	View view.Snapshot `json:"view"`
}

func (s *Server) handlePress(w http.ResponseWriter, r *http.Request) {
	b, err := led.ParseButton(r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	state := s.leds.Press(r.Context(), b)

	log.Debug().
		Str("button", string(b)).
		Str("remote", r.RemoteAddr).
		Msg("Button pressed over HTTP")

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, StateResponse{LED: state, View: s.doc.Snapshot()})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if err := s.hub.Serve(w, r, s.doc.Snapshot()); err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
	}
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to write JSON response")
	}
}
