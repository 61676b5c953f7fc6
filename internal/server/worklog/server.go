// Package worklog implements the admin HTTP control plane described by
// SPEC_FULL.md §12.3: a small operator-facing surface for the pipeline's own
// host (cron, an operator's curl, a dashboard), not a product UI. Routing
// follows the teacher's internal/server/workspacehttp package: a
// gorilla/mux router behind one CORS middleware, a gorilla/websocket
// upgrade for streaming events, and a swaggo/http-swagger docs UI.
package worklog

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/brianly1003/worklog-ingest/internal/security"
	"github.com/brianly1003/worklog-ingest/internal/worklog/progress"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// BatchRunner triggers an out-of-band batch run on behalf of the admin
// API; the CLI's serve command supplies the concrete implementation.
type BatchRunner interface {
	RunOnce(ctx context.Context) (Summary, error)
}

// Summary reports the outcome of a batch run. GET /api/status serves the
// one most recently run through POST /api/batch/run; batches that the
// serve command starts on its interval or watcher trigger are not
// recorded there.
type Summary struct {
	StartedAt       time.Time            `json:"started_at"`
	FinishedAt      time.Time            `json:"finished_at"`
	Processed       int                  `json:"processed"`
	Published       int                  `json:"published"`
	Significant     int                  `json:"significant"`
	SkippedByReason map[string]int       `json:"skipped_by_reason"`
	HighWaterMarks  map[string]time.Time `json:"high_water_marks"`
	Err             string               `json:"error,omitempty"`
}

// Server is the admin HTTP control plane.
type Server struct {
	runner         BatchRunner
	hub            *progress.Hub
	trustedProxies []*net.IPNet

	addr       string
	httpServer *http.Server

	mu      sync.RWMutex
	last    Summary
	running bool
}

// New constructs a Server bound to host:port. trustedProxies is the same
// CIDR/IP list internal/security parses elsewhere in the pipeline.
func New(host string, port int, runner BatchRunner, hub *progress.Hub, trustedProxies []string) (*Server, error) {
	proxies, err := security.ParseTrustedProxies(trustedProxies)
	if err != nil {
		return nil, fmt.Errorf("worklog server: %w", err)
	}
	return &Server{
		runner:         runner,
		hub:            hub,
		trustedProxies: proxies,
		addr:           fmt.Sprintf("%s:%d", host, port),
	}, nil
}

// Start begins serving in a background goroutine.
func (s *Server) Start() error {
	router := mux.NewRouter()

	router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/batch/run", s.handleBatchRun).Methods(http.MethodPost)

	router.HandleFunc("/ws/progress", s.handleProgressWS)

	router.PathPrefix("/swagger/").Handler(httpSwagger.Handler(
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("none"),
		httpSwagger.DomID("swagger-ui"),
	))

	handler := s.loggingMiddleware(corsMiddleware(router))

	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Info().Str("addr", s.addr).Msg("admin HTTP control plane starting")

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("admin HTTP server error")
		}
	}()

	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// handleHealthz handles GET /healthz
//
//	@Summary	Liveness check
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	map[string]string
//	@Router		/healthz [get]
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStatus handles GET /api/status
//
//	@Summary	Last batch run summary
//	@Tags		status
//	@Produce	json
//	@Success	200	{object}	Summary
//	@Router		/api/status [get]
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	last := s.last
	running := s.running
	s.mu.RUnlock()

	respondJSON(w, http.StatusOK, map[string]any{
		"running":  running,
		"last_run": last,
	})
}

// handleBatchRun handles POST /api/batch/run
//
//	@Summary	Trigger an out-of-band batch run
//	@Tags		batch
//	@Produce	json
//	@Success	202	{object}	map[string]string
//	@Failure	409	{object}	map[string]string
//	@Router		/api/batch/run [post]
func (s *Server) handleBatchRun(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		respondJSON(w, http.StatusConflict, map[string]string{"error": "a batch run is already in progress"})
		return
	}
	s.running = true
	s.mu.Unlock()

	clientIP := security.RequestClientIP(r, s.trustedProxies)
	log.Info().Str("client_ip", clientIP).Msg("batch run triggered via admin API")

	go func() {
		started := time.Now()
		summary, err := s.runner.RunOnce(context.Background())
		summary.StartedAt = started
		summary.FinishedAt = time.Now()
		if err != nil {
			summary.Err = err.Error()
			log.Error().Err(err).Msg("batch run triggered via admin API failed")
		}

		s.mu.Lock()
		s.last = summary
		s.running = false
		s.mu.Unlock()
	}()

	respondJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// handleProgressWS handles GET /ws/progress, upgrading to a WebSocket and
// streaming ProcessResult events from the progress hub until the client
// disconnects or the server shuts down.
//
//	@Summary	Stream batch progress events
//	@Tags		progress
//	@Router		/ws/progress [get]
func (s *Server) handleProgressWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade progress websocket")
		return
	}
	defer func() { _ = conn.Close() }()

	subscriberID := fmt.Sprintf("%p", conn)
	events := s.hub.Subscribe(subscriberID)
	defer s.hub.Unsubscribe(subscriberID)

	log.Debug().Str("subscriber_id", subscriberID).Msg("progress websocket client connected")

	for result := range events {
		if err := conn.WriteJSON(result); err != nil {
			log.Debug().Err(err).Str("subscriber_id", subscriberID).Msg("progress websocket client disconnected")
			return
		}
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("failed to encode admin API JSON response")
	}
}

// corsMiddleware adds permissive CORS headers; this surface is an
// operations endpoint bound to localhost by default, not a public API.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("client_ip", security.RequestClientIP(r, s.trustedProxies)).
			Dur("duration", time.Since(start)).
			Msg("admin HTTP request")
	})
}
