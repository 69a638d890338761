package importer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fabtrak/takeoff/internal/config"
	"github.com/fabtrak/takeoff/internal/metrics"
)

// DefaultCommitTimeout bounds the commit transaction when no configured
// value is supplied.
var DefaultCommitTimeout = 2 * time.Minute

// Service wires the import pipeline to a datastore. One Service handles
// any number of concurrent sessions; all per-file state lives in the
// preview/commit calls, never on the Service.
type Service struct {
	store         Store
	rules         RuleSet
	commitTimeout time.Duration
	log           *slog.Logger
}

// NewService creates a Service from configuration.
func NewService(store Store, cfg *config.Config) *Service {
	rules := DefaultRuleSet()
	if cfg != nil {
		rules.MaxRows = cfg.Import.MaxRows
		rules.MaxPayloadBytes = cfg.Import.MaxPayloadBytes
		rules.SampleSize = cfg.Import.SampleSize
	}

	timeout := DefaultCommitTimeout
	if cfg != nil && cfg.Import.CommitTimeout > 0 {
		timeout = cfg.Import.CommitTimeout
	}

	return &Service{
		store:         store,
		rules:         rules,
		commitTimeout: timeout,
	}
}

// WithLogger returns the service with a dedicated logger attached.
func (s *Service) WithLogger(log *slog.Logger) *Service {
	s.log = log
	return s
}

func (s *Service) logger() *slog.Logger {
	if s.log != nil {
		return s.log
	}
	return slog.Default()
}

// Rules exposes the active rule set (ceilings included) so transport
// layers can run advisory checks before calling Analyze.
func (s *Service) Rules() RuleSet {
	return s.rules
}

// Ping verifies datastore connectivity for health checks.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Analyze runs the read-only half of the pipeline: column mapping, row
// classification, metadata discovery and preview aggregation. It touches
// the datastore only for reference existence checks and creates no state.
func (s *Service) Analyze(ctx context.Context, projectID uuid.UUID, headers []string, rows [][]string) (*PreviewState, error) {
	start := time.Now()

	mapping := MapColumns(headers)
	results := ValidateRows(&mapping, s.rules, rows)

	discoveries, err := DiscoverMetadata(ctx, s.store, projectID, results)
	if err != nil {
		metrics.ImportsTotal.WithLabelValues("analyze", "error").Inc()
		return nil, fmt.Errorf("discover metadata: %w", err)
	}

	state := BuildPreview(&mapping, results, discoveries, s.rules)

	metrics.ImportsTotal.WithLabelValues("analyze", "ok").Inc()
	metrics.RowsClassified.WithLabelValues(string(RowValid)).Add(float64(state.Summary.ValidRows))
	metrics.RowsClassified.WithLabelValues(string(RowSkipped)).Add(float64(state.Summary.SkippedRows))
	metrics.RowsClassified.WithLabelValues(string(RowError)).Add(float64(state.Summary.ErrorRows))

	s.logger().Info("preview built",
		"project_id", projectID,
		"total_rows", state.Summary.TotalRows,
		"valid", state.Summary.ValidRows,
		"skipped", state.Summary.SkippedRows,
		"errors", state.Summary.ErrorRows,
		"can_commit", state.CanCommit,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return state, nil
}
