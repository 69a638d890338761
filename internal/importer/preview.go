package importer

// preview.go merges mapping, validation and discovery into one reviewable
// state and computes the commit-eligibility gate. Pure aggregation with no
// side effects: this is the last point a human can abort at zero cost.

import (
	"fmt"

	"github.com/google/uuid"
)

// BuildPreview aggregates the pipeline outputs into a PreviewState.
//
// The gate: canCommit is true iff there are no error rows, every required
// canonical field has exactly one unambiguous mapping, and the row count
// stays under the ceiling. Skipped rows never block, and neither does an
// ambiguous header whose contested field is mapped through another column.
func BuildPreview(mapping *MappingResult, results []ValidationResult, discoveries MetadataDiscoveryResult, rules RuleSet) *PreviewState {
	state := &PreviewState{
		Mappings:        mapping.Mappings,
		UnmappedHeaders: mapping.Unmapped,
		Results:         results,
		Discoveries:     discoveries,
	}

	state.Summary.TotalRows = len(results)
	for _, r := range results {
		switch r.Status {
		case RowValid:
			state.Summary.ValidRows++
			if len(state.RowSample) < rules.SampleSize {
				state.RowSample = append(state.RowSample, *r.Payload)
			}
		case RowSkipped:
			state.Summary.SkippedRows++
		case RowError:
			state.Summary.ErrorRows++
		}
	}

	if state.Summary.ErrorRows > 0 {
		state.Blockers = append(state.Blockers,
			fmt.Sprintf("%d rows have blocking errors", state.Summary.ErrorRows))
	}

	// Ambiguous headers are excluded from mapping; they only matter here
	// when that exclusion leaves a required field unmapped, which the
	// missing-required check reports.
	for _, f := range mapping.MissingRequired() {
		state.Blockers = append(state.Blockers,
			fmt.Sprintf("required field %s is not mapped", f))
	}

	if rules.MaxRows > 0 && state.Summary.TotalRows > rules.MaxRows {
		state.Blockers = append(state.Blockers,
			fmt.Sprintf("file has %d rows, ceiling is %d", state.Summary.TotalRows, rules.MaxRows))
	}

	state.CanCommit = len(state.Blockers) == 0
	return state
}

// BuildPayload assembles the commit payload from a preview: valid rows
// only, the mapping audit trail, and the not-yet-existing subset of the
// discovered references. Raw file data never crosses the commit boundary.
func BuildPayload(projectID uuid.UUID, state *PreviewState) *ImportPayload {
	payload := &ImportPayload{
		ProjectID:      projectID,
		ColumnMappings: state.Mappings,
		MetadataToCreate: MetadataToCreate{
			Areas:        state.Discoveries.Missing(RefArea),
			Systems:      state.Discoveries.Missing(RefSystem),
			TestPackages: state.Discoveries.Missing(RefTestPackage),
		},
	}

	for _, r := range state.Results {
		if r.Status == RowValid && r.Payload != nil {
			payload.Rows = append(payload.Rows, *r.Payload)
		}
	}

	return payload
}
