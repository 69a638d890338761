package web

// errors.go provides unified error response handling for the web layer.
//
// It ensures all errors are:
//   - Logged with full technical details for debugging (server-side)
//   - Returned to clients as user-friendly messages with action suggestions
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err, statusCode)
//  3. Error is mapped via importer.MapError to get user-friendly message
//  4. Technical error + context is logged with request ID for correlation
//  5. User message is returned as JSON

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/fabtrak/takeoff/internal/importer"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Error, Action) fields.
type ErrorResponse struct {
	Error  string `json:"error"`
	Action string `json:"action,omitempty"`
	Code   string `json:"code"`
}

// respondError handles error responses with user-friendly messages.
// It logs the technical error server-side and returns the mapped message
// as JSON.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := importer.MapError(err)

	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	writeJSON(w, statusCode, ErrorResponse{
		Error:  userMsg.Message,
		Action: userMsg.Action,
		Code:   userMsg.Code,
	})
}

// respondBadRequest returns a 400 with a literal message, bypassing the
// error pattern table. Used for malformed requests where the raw decode
// error is already user-appropriate.
func (s *Server) respondBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	slog.Warn("bad request",
		"path", r.URL.Path,
		"method", r.Method,
		"detail", message,
		"request_id", middleware.GetReqID(r.Context()),
	)

	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error: message,
		Code:  "REQ001",
	})
}

// decodeStatus maps a JSON decode failure to the right HTTP status.
// Oversized bodies rejected by http.MaxBytesReader get 413, everything
// else is a plain 400.
func decodeStatus(err error) int {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

// writeJSON encodes v as JSON with the given status code.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
