// Package api serves the simulation over HTTP.
// GET /api/state advances the world (at most once per tick interval) and
// returns the snapshot; the remaining endpoints observe or nudge it.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/websocket"

	"github.com/talgya/outbreak/internal/agents"
	"github.com/talgya/outbreak/internal/engine"
	"github.com/talgya/outbreak/internal/persistence"
)

const defaultMaxStreams = 8

// Server serves the world state over HTTP.
type Server struct {
	Sim         *engine.Simulation
	DB          *persistence.DB // Nil when history is disabled
	Addr        string
	CORSOrigins []string // Allowed in addition to the localhost dev servers
	MaxStreams  int      // Concurrent websocket viewers

	// Restart is the only endpoint that discards state, so it is throttled per IP.
	RestartLimiter *RateLimiter

	streams  int32
	upgrader websocket.Upgrader
}

// Handler builds the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	if s.RestartLimiter == nil {
		s.RestartLimiter = NewRateLimiter(30, time.Minute)
	}
	if s.MaxStreams <= 0 {
		s.MaxStreams = defaultMaxStreams
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	mux := http.NewServeMux()

	// Endpoints the browser client polls.
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/state/restart", RateLimitMiddleware(s.RestartLimiter, s.handleRestart))
	mux.HandleFunc("POST /api/state/person/{id}/home", s.handleGoHome)

	// Observation endpoints.
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/events", s.handleEvents)
	mux.HandleFunc("GET /api/v1/runs", s.handleRuns)
	mux.HandleFunc("GET /api/v1/stats/history", s.handleStatsHistory)
	mux.HandleFunc("GET /api/v1/stream", s.handleStream)

	return corsMiddleware(s.CORSOrigins, mux)
}

// Start begins serving the HTTP API in a goroutine. The returned server is
// used for shutdown.
func (s *Server) Start() *http.Server {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", s.Addr, "history", s.DB != nil, "max_streams", s.MaxStreams)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	return srv
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Localhost dev servers are always allowed.
func corsMiddleware(origins []string, next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
		"http://localhost:5000": true,
	}
	for _, origin := range origins {
		if origin != "" {
			allowedOrigins[origin] = true
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Sim.AdvanceTick()
	if err != nil {
		slog.Error("advance tick failed", "tick", snap.Tick, "error", err)
		http.Error(w, "simulation step failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, snap)
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Sim.Restart()
	if err != nil {
		slog.Error("restart failed", "error", err)
		http.Error(w, "restart failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, snap)
}

func (s *Server) handleGoHome(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid person id", http.StatusBadRequest)
		return
	}

	changed, err := s.Sim.GoHome(agents.PersonID(id))
	if errors.Is(err, engine.ErrUnknownPerson) {
		http.Error(w, "person not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("go home failed", "person", id, "error", err)
		http.Error(w, "go home failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"id":       id,
		"sentHome": changed,
		"runId":    s.Sim.Snapshot().RunID,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.Sim.Snapshot()
	last := s.Sim.LastUpdated()

	writeJSON(w, map[string]any{
		"name":              "outbreak",
		"run_id":            snap.RunID,
		"tick":              snap.Tick,
		"seed":              s.Sim.Seed(),
		"houses":            len(snap.Map.Houses),
		"stats":             snap.Stats,
		"last_update":       last.UTC().Format(time.RFC3339),
		"last_update_human": humanize.Time(last),
		"streams":           s.Sim.Subscribers(),
		"history":           s.DB != nil,
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50, 1000)
	writeJSON(w, s.Sim.RecentEvents(limit))
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "history not available", http.StatusServiceUnavailable)
		return
	}
	runs, err := s.DB.Runs(queryInt(r, "limit", 20, 500))
	if err != nil {
		slog.Error("runs query failed", "error", err)
		http.Error(w, "history query failed", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []persistence.RunRow{}
	}
	writeJSON(w, runs)
}

func (s *Server) handleStatsHistory(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "history not available", http.StatusServiceUnavailable)
		return
	}

	runID := r.URL.Query().Get("run")
	if runID == "" {
		runID = s.Sim.Snapshot().RunID
	}
	fromTick := uint64(0)
	toTick := uint64(1<<63 - 1) // Max int64; SQLite integers are signed.
	if f := r.URL.Query().Get("from"); f != "" {
		if v, err := strconv.ParseUint(f, 10, 63); err == nil {
			fromTick = v
		}
	}
	if t := r.URL.Query().Get("to"); t != "" {
		if v, err := strconv.ParseUint(t, 10, 63); err == nil {
			toTick = v
		}
	}
	limit := queryInt(r, "limit", 100, 5000)

	rows, err := s.DB.LoadStatsHistory(runID, fromTick, toTick, limit)
	if err != nil {
		slog.Error("stats history query failed", "run", runID, "error", err)
		http.Error(w, "history query failed", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []persistence.StatsRow{}
	}
	writeJSON(w, rows)
}

// queryInt reads a positive integer query parameter, falling back to def
// when absent, malformed, or above max.
func queryInt(r *http.Request, name string, def, max int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= max {
			return n
		}
	}
	return def
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	if err := enc.Encode(data); err != nil {
		slog.Debug("write response failed", "error", err)
	}
}
