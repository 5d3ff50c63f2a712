// Package api provides the read-only HTTP API over the gate catalog.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"

	"github.com/warrook/Gate/internal/address"
	"github.com/warrook/Gate/internal/catalog"
	"github.com/warrook/Gate/internal/dialer"
	"github.com/warrook/Gate/internal/galaxy"
	"github.com/warrook/Gate/internal/persistence"
)

const defaultGateLimit = 100

// Server serves the catalog over HTTP.
type Server struct {
	Catalog *catalog.Catalog
	DB      *persistence.DB // Optional; adds run metadata to status
	Port    int

	// Requests per second and burst allowed per client IP.
	RateLimit float64
	Burst     int

	srv     *http.Server
	limiter *RateLimiter
}

type gateSummary struct {
	Galaxy       int       `json:"galaxy"`
	Index        int       `json:"index"`
	Position     r3.Vector `json:"position"`
	GridPosition r3.Vector `json:"grid_position"`
	Address      string    `json:"address,omitempty"`
	Kind         string    `json:"kind"`
	InRange      bool      `json:"in_range"`
	Visited      string    `json:"visited"`
}

func summarize(g *galaxy.Gate) gateSummary {
	s := gateSummary{
		Galaxy:       g.GalaxyIndex(),
		Index:        g.Index,
		Position:     g.Position,
		GridPosition: g.GridPosition,
		Kind:         g.Kind.String(),
		InRange:      g.InRange,
		Visited:      g.Visited.String(),
	}
	if g.StaticAddress != nil {
		s.Address = g.StaticAddress.String()
	}
	return s
}

// Handler builds the routing tree.
func (s *Server) Handler() http.Handler {
	if s.limiter == nil {
		rps, burst := s.RateLimit, s.Burst
		if rps <= 0 {
			rps = 20
		}
		if burst <= 0 {
			burst = 40
		}
		s.limiter = NewRateLimiter(rps, burst)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/status", RateLimitMiddleware(s.limiter, s.handleStatus))
	mux.HandleFunc("/api/v1/gates", RateLimitMiddleware(s.limiter, s.handleGates))
	mux.HandleFunc("/api/v1/decode", RateLimitMiddleware(s.limiter, s.handleDecode))
	mux.HandleFunc("/api/v1/gate/", RateLimitMiddleware(s.limiter, s.handleGateDetail))
	return corsMiddleware(getOnly(mux))
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	s.srv = &http.Server{Addr: addr, Handler: s.Handler()}
	slog.Info("HTTP API starting", "addr", addr)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// Shutdown stops the server and its rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// getOnly rejects anything but GET, HEAD and preflight requests.
func getOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
		default:
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of extra allowed origins.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.Catalog.Stats()
	status := map[string]any{
		"name":       "gate",
		"galaxies":   st.Galaxies,
		"gates":      st.Gates,
		"in_range":   st.InRange,
		"kinds":      st.KindNames,
		"computed":   st.Computed,
		"generation": st.Generation,
	}
	if s.DB != nil {
		if runID, err := s.DB.GetMeta(persistence.MetaRunID); err == nil {
			status["run_id"] = runID
		}
	}
	writeJSON(w, status)
}

func (s *Server) handleGates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	gi, err := intParam(q.Get("galaxy"), 0)
	if err != nil {
		http.Error(w, "invalid galaxy", http.StatusBadRequest)
		return
	}
	limit, err := intParam(q.Get("limit"), defaultGateLimit)
	if err != nil || limit < 0 {
		http.Error(w, "invalid limit", http.StatusBadRequest)
		return
	}

	gates, err := s.Catalog.Gates(gi, limit)
	if err != nil {
		http.Error(w, "galaxy not found", http.StatusNotFound)
		return
	}
	result := make([]gateSummary, len(gates))
	for i := range gates {
		result[i] = summarize(&gates[i])
	}
	writeJSON(w, result)
}

func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("address")
	if raw == "" {
		http.Error(w, "missing address", http.StatusBadRequest)
		return
	}
	a, err := address.Parse(raw)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	g, err := s.Catalog.Decode(a)
	switch {
	case errors.Is(err, dialer.ErrUnknownGalaxy):
		http.Error(w, "galaxy not found", http.StatusNotFound)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case g == nil:
		http.Error(w, "no gate at address", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]any{
		"address": a.String(),
		"gate":    summarize(g),
	})
}

// handleGateDetail serves GET /api/v1/gate/:galaxy/:index.
func (s *Server) handleGateDetail(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 5 {
		http.Error(w, "expected /api/v1/gate/:galaxy/:index", http.StatusBadRequest)
		return
	}
	gi, err1 := strconv.Atoi(parts[3])
	idx, err2 := strconv.Atoi(parts[4])
	if err1 != nil || err2 != nil {
		http.Error(w, "invalid gate id", http.StatusBadRequest)
		return
	}

	g, err := s.Catalog.Gate(gi, idx)
	if err != nil {
		http.Error(w, "gate not found", http.StatusNotFound)
		return
	}
	writeJSON(w, summarize(g))
}

func intParam(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
