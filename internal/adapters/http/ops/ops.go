// Package ops exposes the operational HTTP surface: health, metrics and a
// read-only debugging view of room state. Game traffic never flows through
// HTTP; clients talk to the sync boundary directly.
package ops

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	syncapi "github.com/okian/mouton/internal/adapters/sync"
	"github.com/okian/mouton/pkg/logger"
)

// SnapshotReader reads a room's full durable state by code.
type SnapshotReader interface {
	ReadRoomState(ctx context.Context, code string) (syncapi.Snapshot, error)
}

// StatsProvider supplies the runtime counters shown on /stats.
type StatsProvider interface {
	GetStats() map[string]any
}

// Server registers the operational routes.
type Server struct {
	reader SnapshotReader
	stats  StatsProvider
	logger logger.Logger
}

// NewServer creates an ops server over the given dependencies.
func NewServer(reader SnapshotReader, stats StatsProvider) *Server {
	return &Server{
		reader: reader,
		stats:  stats,
		logger: logger.Get().Named("ops"),
	}
}

// Register wires the routes into the mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /metrics", handleMetrics)
	mux.HandleFunc("GET /rooms/{code}", s.handleRoom)
	mux.HandleFunc("GET /stats", s.handleStats)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRoom(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing_code", errors.New("room code is required"))
		return
	}

	snap, err := s.reader.ReadRoomState(r.Context(), code)
	if err != nil {
		if errors.Is(err, syncapi.ErrNotFound) {
			writeError(w, http.StatusNotFound, "room_not_found", err)
			return
		}
		s.logger.Error(r.Context(), "room read failed",
			logger.String("room_code", code),
			logger.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "read_failed", err)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	if s.stats == nil {
		writeJSON(w, http.StatusOK, map[string]any{})
		return
	}
	writeJSON(w, http.StatusOK, s.stats.GetStats())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	writeJSON(w, status, map[string]string{
		"code":  code,
		"error": err.Error(),
	})
}
