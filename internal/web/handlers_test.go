package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fabtrak/takeoff/internal/config"
	"github.com/fabtrak/takeoff/internal/importer"
)

// stubStore is an importer.Store with no backing database. References
// never exist and commits succeed trivially.
type stubStore struct {
	pingErr error
}

func (s *stubStore) LookupReferences(context.Context, uuid.UUID, importer.ReferenceType, []string) (map[string]uuid.UUID, error) {
	return map[string]uuid.UUID{}, nil
}

func (s *stubStore) RunImport(_ context.Context, fn func(tx importer.ImportTx) error) error {
	return fn(stubTx{})
}

func (s *stubStore) Ping(context.Context) error { return s.pingErr }

type stubTx struct{}

func (stubTx) UpsertReferences(_ context.Context, _ uuid.UUID, _ importer.ReferenceType, values []string) (int, map[string]uuid.UUID, error) {
	out := make(map[string]uuid.UUID, len(values))
	for _, v := range values {
		out[v] = uuid.New()
	}
	return len(values), out, nil
}

func (stubTx) UpsertDrawings(_ context.Context, _ uuid.UUID, numbers []string) (int, map[string]uuid.UUID, error) {
	out := make(map[string]uuid.UUID, len(numbers))
	for _, n := range numbers {
		out[n] = uuid.New()
	}
	return len(numbers), out, nil
}

func (stubTx) InsertComponents(_ context.Context, rows []importer.ComponentRecord) (int64, error) {
	return int64(len(rows)), nil
}

func testServer(store *stubStore) *Server {
	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:            8080,
			RequestTimeout:  time.Minute,
			ShutdownTimeout: time.Second,
		},
		Import: config.ImportConfig{
			MaxRows:         100,
			MaxPayloadBytes: 1 << 20,
			MaxBodyBytes:    1 << 21,
			CommitTimeout:   time.Second,
			SampleSize:      10,
		},
		Rate:    config.RateLimitConfig{Enabled: false},
		Logging: config.LoggingConfig{Level: "error", Format: "text"},
	}
	return NewServer(importer.NewService(store, cfg), cfg)
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

// ============================================================================
// Vocabulary and Health
// ============================================================================

func TestHandleFields(t *testing.T) {
	rec := doJSON(t, testServer(&stubStore{}), http.MethodGet, "/api/import/fields", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var vocab importer.FieldVocabulary
	if err := json.Unmarshal(rec.Body.Bytes(), &vocab); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if vocab.Version != importer.VocabularyVersion {
		t.Errorf("version = %q, want %q", vocab.Version, importer.VocabularyVersion)
	}
	if len(vocab.Fields) == 0 || len(vocab.Required) == 0 {
		t.Error("vocabulary must carry fields and required sets")
	}
}

func TestHandleHealth(t *testing.T) {
	store := &stubStore{}
	srv := testServer(store)

	rec := doJSON(t, srv, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	store.pingErr = context.DeadlineExceeded
	rec = doJSON(t, srv, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503 when the database is down", rec.Code)
	}
}

// ============================================================================
// Analyze
// ============================================================================

func TestHandleAnalyze(t *testing.T) {
	srv := testServer(&stubStore{})
	projectID := uuid.New()

	body := analyzeRequest{
		Headers: []string{"DRAWING", "TYPE", "QTY", "CMDTY_CODE"},
		Rows: [][]string{
			{"P-1", "valve", "1", "VLV-1"},
			{"P-2", "Gasket", "1", "GSK-1"},
		},
	}

	rec := doJSON(t, srv, http.MethodPost, "/api/projects/"+projectID.String()+"/import/analyze", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}

	var state importer.PreviewState
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if state.Summary.ValidRows != 1 || state.Summary.SkippedRows != 1 {
		t.Errorf("Summary = %+v, want 1 valid, 1 skipped", state.Summary)
	}
	if !state.CanCommit {
		t.Errorf("CanCommit = false, blockers: %v", state.Blockers)
	}
}

func TestHandleAnalyze_BadRequests(t *testing.T) {
	srv := testServer(&stubStore{})
	projectID := uuid.New().String()

	tests := []struct {
		name string
		path string
		body any
		want int
	}{
		{
			name: "invalid project id",
			path: "/api/projects/not-a-uuid/import/analyze",
			body: analyzeRequest{Headers: []string{"DRAWING"}},
			want: http.StatusBadRequest,
		},
		{
			name: "empty headers",
			path: "/api/projects/" + projectID + "/import/analyze",
			body: analyzeRequest{},
			want: http.StatusBadRequest,
		},
		{
			name: "malformed body",
			path: "/api/projects/" + projectID + "/import/analyze",
			body: "not json at all",
			want: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec *httptest.ResponseRecorder
			if s, ok := tt.body.(string); ok {
				req := httptest.NewRequest(http.MethodPost, tt.path, bytes.NewBufferString(s))
				rec = httptest.NewRecorder()
				srv.Router().ServeHTTP(rec, req)
			} else {
				rec = doJSON(t, srv, http.MethodPost, tt.path, tt.body)
			}
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

// ============================================================================
// Commit
// ============================================================================

func TestHandleCommit(t *testing.T) {
	srv := testServer(&stubStore{})
	projectID := uuid.New()

	payload := importer.ImportPayload{
		Rows: []importer.ImportRow{
			{RowNumber: 1, Drawing: "P-1", ComponentType: "valve", CmdtyCode: "VLV-1", Size: "N/A", Quantity: 1},
		},
	}

	rec := doJSON(t, srv, http.MethodPost, "/api/projects/"+projectID.String()+"/import/commit", payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}

	var result importer.ImportResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !result.Success || result.Created.Components != 1 {
		t.Errorf("result = %+v, want a successful single-component commit", result)
	}
}

func TestHandleCommit_FailureStillReturnsOK(t *testing.T) {
	srv := testServer(&stubStore{})
	projectID := uuid.New()

	// An empty payload fails the commit, but the failure travels in the
	// result body, not in the status code.
	rec := doJSON(t, srv, http.MethodPost, "/api/projects/"+projectID.String()+"/import/commit", importer.ImportPayload{})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with the failure in the body", rec.Code)
	}

	var result importer.ImportResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Success || result.Error == "" {
		t.Errorf("result = %+v, want failure with a coded error", result)
	}
	if result.Created.Components != 0 || result.Created.Drawings != 0 {
		t.Errorf("created = %+v, want zero counts on failure", result.Created)
	}
}

func TestHandleCommit_ProjectMismatch(t *testing.T) {
	srv := testServer(&stubStore{})

	payload := importer.ImportPayload{
		ProjectID: uuid.New(), // differs from the URL
		Rows: []importer.ImportRow{
			{RowNumber: 1, Drawing: "P-1", ComponentType: "valve", CmdtyCode: "VLV-1", Size: "N/A", Quantity: 1},
		},
	}

	rec := doJSON(t, srv, http.MethodPost, "/api/projects/"+uuid.New().String()+"/import/commit", payload)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 on project mismatch", rec.Code)
	}
}
