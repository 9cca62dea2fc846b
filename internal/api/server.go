// Package api serves analysis results over HTTP: run listings, persistence
// summaries and decorated-edge tables, all read from the results database.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/amanda-brooke/trackmate7-pipeline/internal/db"
	"github.com/amanda-brooke/trackmate7-pipeline/internal/monitoring"
	"github.com/amanda-brooke/trackmate7-pipeline/internal/version"
)

// Server serves the results API over one tracking database.
type Server struct {
	db *db.DB
}

// NewServer creates a Server backed by the given database.
func NewServer(database *db.DB) *Server {
	return &Server{db: database}
}

// ServeMux returns the route table for the results API.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.healthz)
	mux.HandleFunc("/api/runs", s.listRuns)
	mux.HandleFunc("/api/persistence", s.showPersistence)
	mux.HandleFunc("/api/radial_edges", s.listRadialEdges)
	s.db.AttachAdminRoutes(mux)
	return mux
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{"status": "ok", "version": version.String()})
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.db.Runs()
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "failed to list runs")
		monitoring.Logf("api: failed to list runs: %v", err)
		return
	}
	if runs == nil {
		runs = []db.Run{}
	}
	s.writeJSON(w, runs)
}

// showPersistence serves the persistence summary tables. Query params:
// run_id (required), by=file|track (default file), file_id (track mode only).
func (s *Server) showPersistence(w http.ResponseWriter, r *http.Request) {
	runID := r.URL.Query().Get("run_id")
	if runID == "" {
		s.writeJSONError(w, http.StatusBadRequest, "run_id is required")
		return
	}

	switch by := r.URL.Query().Get("by"); by {
	case "", "file":
		results, err := s.db.PersistenceByFile(runID)
		if err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, "failed to query persistence")
			monitoring.Logf("api: failed to query file persistence: %v", err)
			return
		}
		if results == nil {
			results = []db.FilePersistence{}
		}
		s.writeJSON(w, results)
	case "track":
		results, err := s.db.PersistenceByTrack(runID, r.URL.Query().Get("file_id"))
		if err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, "failed to query persistence")
			monitoring.Logf("api: failed to query track persistence: %v", err)
			return
		}
		if results == nil {
			results = []db.TrackPersistence{}
		}
		s.writeJSON(w, results)
	default:
		s.writeJSONError(w, http.StatusBadRequest, "by must be 'file' or 'track'")
	}
}

func (s *Server) listRadialEdges(w http.ResponseWriter, r *http.Request) {
	runID := r.URL.Query().Get("run_id")
	if runID == "" {
		s.writeJSONError(w, http.StatusBadRequest, "run_id is required")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			s.writeJSONError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	edges, err := s.db.RadialEdges(runID, r.URL.Query().Get("file_id"), limit)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "failed to query radial edges")
		monitoring.Logf("api: failed to query radial edges: %v", err)
		return
	}
	if edges == nil {
		edges = []db.RadialEdge{}
	}
	s.writeJSON(w, edges)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		monitoring.Logf("api: failed to encode response: %v", err)
	}
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
