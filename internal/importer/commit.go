package importer

// commit.go is the transactional committer: the only component allowed to
// mutate persistent state.
//
// The whole protocol is one unit of work: authoritative ceiling checks,
// reference upserts, natural-key resolution with maps built fresh inside
// the transaction, and a bulk insert. Any error at any step rolls back
// everything; callers observe either a full commit or zero side effects.
// A cross-session duplicate slips past the file-local dedup and is caught
// here by the datastore's uniqueness constraint — a clean preview can
// therefore still fail at commit, and that failure is surfaced as-is.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/fabtrak/takeoff/internal/metrics"
)

// Sentinel errors for the commit protocol. MapError translates these into
// coded user messages.
var (
	ErrRowCeiling     = errors.New("row ceiling exceeded")
	ErrPayloadCeiling = errors.New("payload ceiling exceeded")
	ErrEmptyPayload   = errors.New("no rows to import")
)

// invariantError marks a condition that validation should have made
// unreachable. It aborts the transaction and carries the row detail.
type invariantError struct {
	issue  RowIssue
	reason string
}

func (e *invariantError) Error() string {
	return fmt.Sprintf("unresolved reference: %s (row %d)", e.reason, e.issue.Row)
}

// Commit executes the import payload as a single atomic unit of work and
// returns an ImportResult. It never returns a Go error: transactional
// failures are folded into the result with Success=false and all created
// counts zero.
func (s *Service) Commit(ctx context.Context, payload *ImportPayload) *ImportResult {
	start := time.Now()
	result := &ImportResult{}

	ctx, cancel := context.WithTimeout(ctx, s.commitTimeout)
	defer cancel()

	err := s.checkCeilings(payload)
	if err == nil {
		err = s.store.RunImport(ctx, func(tx ImportTx) error {
			return s.commitTx(ctx, tx, payload, result)
		})
	}

	result.DurationMs = time.Since(start).Milliseconds()
	metrics.CommitDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		// All-or-nothing: wipe any counts accumulated before the abort.
		*result = ImportResult{
			Success:    false,
			DurationMs: result.DurationMs,
			Error:      formatUserError(err),
			RowIssues:  commitRowIssues(err),
		}
		metrics.ImportsTotal.WithLabelValues("commit", "error").Inc()
		s.logger().Error("import commit failed",
			"project_id", payload.ProjectID,
			"rows", len(payload.Rows),
			"error", err,
		)
		return result
	}

	result.Success = true
	metrics.ImportsTotal.WithLabelValues("commit", "ok").Inc()
	metrics.RowsCommitted.Add(float64(result.Created.Components))
	metrics.ReferencesCreated.WithLabelValues(string(RefArea)).Add(float64(result.References.Areas))
	metrics.ReferencesCreated.WithLabelValues(string(RefSystem)).Add(float64(result.References.Systems))
	metrics.ReferencesCreated.WithLabelValues(string(RefTestPackage)).Add(float64(result.References.TestPackages))
	s.logger().Info("import committed",
		"project_id", payload.ProjectID,
		"components", result.Created.Components,
		"drawings", result.Created.Drawings,
		"duration_ms", result.DurationMs,
	)
	return result
}

// checkCeilings is the authoritative re-check of the payload limits.
// Client-side checks during preview are advisory only.
func (s *Service) checkCeilings(payload *ImportPayload) error {
	if len(payload.Rows) == 0 {
		return ErrEmptyPayload
	}
	if s.rules.MaxRows > 0 && len(payload.Rows) > s.rules.MaxRows {
		return fmt.Errorf("%w: %d rows, ceiling %d", ErrRowCeiling, len(payload.Rows), s.rules.MaxRows)
	}
	if s.rules.MaxPayloadBytes > 0 {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
		if int64(len(encoded)) > s.rules.MaxPayloadBytes {
			return fmt.Errorf("%w: %d bytes, ceiling %d", ErrPayloadCeiling, len(encoded), s.rules.MaxPayloadBytes)
		}
	}
	return nil
}

// commitTx runs the resolve-then-insert protocol inside the transaction.
func (s *Service) commitTx(ctx context.Context, tx ImportTx, payload *ImportPayload, result *ImportResult) error {
	// Reference rows per category type: create if absent, else no-op.
	// The maps cover every referenced value, created or pre-existing.
	refIDs := make(map[ReferenceType]map[string]uuid.UUID)
	for _, typ := range ReferenceTypes() {
		values := referencedValues(payload, typ)
		created, ids, err := tx.UpsertReferences(ctx, payload.ProjectID, typ, values)
		if err != nil {
			return err
		}
		refIDs[typ] = ids
		switch typ {
		case RefArea:
			result.References.Areas = created
		case RefSystem:
			result.References.Systems = created
		case RefTestPackage:
			result.References.TestPackages = created
		}
	}

	// Drawings, keyed by normalized number.
	drawingIDs, err := s.upsertDrawings(ctx, tx, payload, result)
	if err != nil {
		return err
	}

	// Resolve every row via the maps built above. An unresolved reference
	// here means the maps and the payload disagree — abort, never skip.
	records := make([]ComponentRecord, 0, len(payload.Rows))
	for i := range payload.Rows {
		row := &payload.Rows[i]

		drawingID, ok := drawingIDs[row.Drawing]
		if !ok {
			return &invariantError{
				reason: "drawing " + row.Drawing,
				issue:  RowIssue{Row: row.RowNumber, Issue: "unresolved drawing", ContextKey: row.Drawing},
			}
		}

		rec := ComponentRecord{
			ID:            uuid.New(),
			ProjectID:     payload.ProjectID,
			DrawingID:     drawingID,
			ComponentType: row.ComponentType,
			CmdtyCode:     row.CmdtyCode,
			Size:          row.Size,
			Quantity:      row.Quantity,
			Spec:          toPgText(row.Spec),
			Description:   toPgText(row.Description),
			Comments:      toPgText(row.Comments),
			Attributes:    row.Attributes,
		}

		if rec.AreaID, err = resolveRef(refIDs[RefArea], row.Area, row.RowNumber, RefArea); err != nil {
			return err
		}
		if rec.SystemID, err = resolveRef(refIDs[RefSystem], row.System, row.RowNumber, RefSystem); err != nil {
			return err
		}
		if rec.TestPackageID, err = resolveRef(refIDs[RefTestPackage], row.TestPackage, row.RowNumber, RefTestPackage); err != nil {
			return err
		}

		records = append(records, rec)
	}

	inserted, err := tx.InsertComponents(ctx, records)
	if err != nil {
		return err
	}
	result.Created.Components = int(inserted)

	return nil
}

func (s *Service) upsertDrawings(ctx context.Context, tx ImportTx, payload *ImportPayload, result *ImportResult) (map[string]uuid.UUID, error) {
	seen := make(map[string]struct{})
	for i := range payload.Rows {
		seen[payload.Rows[i].Drawing] = struct{}{}
	}
	numbers := make([]string, 0, len(seen))
	for n := range seen {
		numbers = append(numbers, n)
	}
	sort.Strings(numbers)

	created, ids, err := tx.UpsertDrawings(ctx, payload.ProjectID, numbers)
	if err != nil {
		return nil, err
	}
	result.Created.Drawings = created
	return ids, nil
}

// resolveRef maps an optional category value to its surrogate id. Empty
// values resolve to NULL; a non-empty value missing from the map is an
// invariant violation.
func resolveRef(ids map[string]uuid.UUID, value string, rowNumber int, typ ReferenceType) (resolved pgtype.UUID, err error) {
	if value == "" {
		return toPgUUID(uuid.UUID{}, false), nil
	}
	id, ok := ids[value]
	if !ok {
		return resolved, &invariantError{
			reason: string(typ) + " " + value,
			issue:  RowIssue{Row: rowNumber, Issue: "unresolved " + string(typ), ContextKey: value},
		}
	}
	return toPgUUID(id, true), nil
}

// referencedValues collects the distinct values of one category type across
// the payload rows, merged with the client's metadataToCreate list.
func referencedValues(payload *ImportPayload, typ ReferenceType) []string {
	seen := make(map[string]struct{})
	for i := range payload.Rows {
		if v := referenceValue(&payload.Rows[i], typ); v != "" {
			seen[v] = struct{}{}
		}
	}

	var declared []string
	switch typ {
	case RefArea:
		declared = payload.MetadataToCreate.Areas
	case RefSystem:
		declared = payload.MetadataToCreate.Systems
	case RefTestPackage:
		declared = payload.MetadataToCreate.TestPackages
	}
	for _, v := range declared {
		if v != "" {
			seen[v] = struct{}{}
		}
	}

	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}

// formatUserError renders the coded user message for a failed commit.
func formatUserError(err error) string {
	msg := MapError(err)
	return fmt.Sprintf("%s (%s). %s", msg.Message, msg.Code, msg.Action)
}

// commitRowIssues extracts itemized row detail from an abort, where
// determinable.
func commitRowIssues(err error) []RowIssue {
	var inv *invariantError
	if errors.As(err, &inv) {
		return []RowIssue{inv.issue}
	}
	if detail := ConstraintContext(err); detail != "" {
		return []RowIssue{{Issue: "constraint violation", ContextKey: detail}}
	}
	return nil
}
