package web

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fabtrak/takeoff/internal/importer"
)

// analyzeRequest is the body of POST /api/projects/{projectID}/import/analyze.
// Headers and rows come straight from the client-side spreadsheet parse.
type analyzeRequest struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// handleAnalyze runs the full dry-run pipeline: column mapping, row
// validation, metadata discovery, and preview aggregation. Nothing is
// written to the database.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	projectID, ok := s.projectID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxBodyBytes)

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, err, decodeStatus(err))
		return
	}

	if len(req.Headers) == 0 {
		s.respondBadRequest(w, r, "headers must not be empty")
		return
	}

	state, err := s.service.Analyze(r.Context(), projectID, req.Headers, req.Rows)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, state)
}

// handleCommit persists a previously analyzed payload in a single
// transaction. The committer reports failures inside the result body
// rather than as transport errors, so a well-formed request always
// gets a 200 and the caller inspects success in the body; only
// malformed or oversized requests get a 4xx.
func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	projectID, ok := s.projectID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxBodyBytes)

	var payload importer.ImportPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.respondError(w, r, err, decodeStatus(err))
		return
	}

	// The URL is authoritative for the target project
	if payload.ProjectID == uuid.Nil {
		payload.ProjectID = projectID
	} else if payload.ProjectID != projectID {
		s.respondBadRequest(w, r, "payload project does not match URL")
		return
	}

	result := s.service.Commit(r.Context(), &payload)

	writeJSON(w, http.StatusOK, result)
}

// handleFields returns the canonical field vocabulary so clients can
// render mapping UIs and build correction workflows.
func (s *Server) handleFields(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, importer.Vocabulary())
}

// handleHealth reports liveness and database reachability.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "degraded",
			"database": "down",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"database": "up",
	})
}

// projectID extracts and validates the projectID URL parameter. On
// failure it writes the error response and returns false.
func (s *Server) projectID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "projectID")
	id, err := uuid.Parse(raw)
	if err != nil {
		s.respondBadRequest(w, r, "invalid project ID")
		return uuid.Nil, false
	}
	return id, true
}
