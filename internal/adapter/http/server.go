package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/climate-records/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// GroupRegistry describes the sub-hour channel groups the engine folds
// raw channel values into.
type GroupRegistry interface {
	GroupIDs() []int
	GroupByName(name string) (int, bool)
	GroupVariable(groupID int) (domain.Variable, bool)
	Channels(groupID int) []int
	Offset(rawID int) (string, bool)
}

// Server exposes health, readiness, metrics, and sub-hour group endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and
// /groups routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, groups GroupRegistry, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /groups", handleGroups(groups))
	mux.HandleFunc("GET /groups/{name}", handleGroup(groups))

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type channelJSON struct {
	VariableID int    `json:"variable_id"`
	Offset     string `json:"offset"`
}

type groupJSON struct {
	ID          int           `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Channels    []channelJSON `json:"channels"`
}

func describeGroup(groups GroupRegistry, id int) groupJSON {
	v, _ := groups.GroupVariable(id)
	g := groupJSON{ID: id, Name: v.Name, Description: v.Description}
	for _, ch := range groups.Channels(id) {
		offset, _ := groups.Offset(ch)
		g.Channels = append(g.Channels, channelJSON{VariableID: ch, Offset: offset})
	}
	return g
}

func handleGroups(groups GroupRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		ids := groups.GroupIDs()
		out := make([]groupJSON, 0, len(ids))
		for _, id := range ids {
			out = append(out, describeGroup(groups, id))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleGroup(groups GroupRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		id, ok := groups.GroupByName(name)
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown group " + name})
			return
		}
		writeJSON(w, http.StatusOK, describeGroup(groups, id))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
