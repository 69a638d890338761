package importer

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

// fakeLookup is an in-memory ReferenceLookup for discovery tests.
type fakeLookup struct {
	existing map[ReferenceType]map[string]uuid.UUID
	calls    map[ReferenceType][]string
	err      error
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{
		existing: make(map[ReferenceType]map[string]uuid.UUID),
		calls:    make(map[ReferenceType][]string),
	}
}

func (f *fakeLookup) add(typ ReferenceType, value string) uuid.UUID {
	if f.existing[typ] == nil {
		f.existing[typ] = make(map[string]uuid.UUID)
	}
	id := uuid.New()
	f.existing[typ][value] = id
	return id
}

func (f *fakeLookup) LookupReferences(_ context.Context, _ uuid.UUID, typ ReferenceType, values []string) (map[string]uuid.UUID, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.calls[typ] = append([]string(nil), values...)
	out := make(map[string]uuid.UUID)
	for _, v := range values {
		if id, ok := f.existing[typ][v]; ok {
			out[v] = id
		}
	}
	return out, nil
}

func validResult(rowNumber int, payload ImportRow) ValidationResult {
	payload.RowNumber = rowNumber
	return ValidationResult{RowNumber: rowNumber, Status: RowValid, Payload: &payload}
}

// ============================================================================
// Metadata Discovery
// ============================================================================

func TestDiscoverMetadata_ExistingAndMissing(t *testing.T) {
	lookup := newFakeLookup()
	wantID := lookup.add(RefArea, "UNIT-1")

	results := []ValidationResult{
		validResult(1, ImportRow{Drawing: "P-1", Area: "UNIT-1"}),
		validResult(2, ImportRow{Drawing: "P-2", Area: "UNIT-2"}),
	}

	out, err := DiscoverMetadata(context.Background(), lookup, uuid.New(), results)
	if err != nil {
		t.Fatalf("DiscoverMetadata() error = %v", err)
	}

	if len(out.Areas) != 2 {
		t.Fatalf("got %d area discoveries, want 2", len(out.Areas))
	}

	byValue := make(map[string]MetadataDiscovery)
	for _, d := range out.Areas {
		byValue[d.Value] = d
	}

	existing := byValue["UNIT-1"]
	if !existing.Exists {
		t.Error("UNIT-1 should be flagged as existing")
	}
	if existing.ResolvedID == nil || *existing.ResolvedID != wantID {
		t.Error("existing discovery should carry its resolved id")
	}

	missing := byValue["UNIT-2"]
	if missing.Exists {
		t.Error("UNIT-2 should be flagged as missing")
	}
	if missing.ResolvedID != nil {
		t.Error("missing discovery must not carry a resolved id")
	}
}

func TestDiscoverMetadata_OnlyValidRowsContribute(t *testing.T) {
	lookup := newFakeLookup()

	results := []ValidationResult{
		validResult(1, ImportRow{Area: "UNIT-1"}),
		{RowNumber: 2, Status: RowSkipped, Category: ReasonUnsupportedType, Reason: "x"},
		{RowNumber: 3, Status: RowError, Category: ReasonMissingRequiredField, Reason: "x"},
	}

	out, err := DiscoverMetadata(context.Background(), lookup, uuid.New(), results)
	if err != nil {
		t.Fatalf("DiscoverMetadata() error = %v", err)
	}

	if got := lookup.calls[RefArea]; len(got) != 1 || got[0] != "UNIT-1" {
		t.Errorf("lookup values = %v, want only the valid row's area", got)
	}
	if len(out.Areas) != 1 {
		t.Errorf("got %d area discoveries, want 1", len(out.Areas))
	}
}

func TestDiscoverMetadata_DistinctSortedPerType(t *testing.T) {
	lookup := newFakeLookup()

	results := []ValidationResult{
		validResult(1, ImportRow{Area: "B", System: "SYS-2", TestPackage: "TP-1"}),
		validResult(2, ImportRow{Area: "A", System: "SYS-2"}),
		validResult(3, ImportRow{Area: "B"}),
	}

	_, err := DiscoverMetadata(context.Background(), lookup, uuid.New(), results)
	if err != nil {
		t.Fatalf("DiscoverMetadata() error = %v", err)
	}

	if got := lookup.calls[RefArea]; len(got) != 2 || got[0] != "A" || got[1] != "B" {
		t.Errorf("area values = %v, want sorted distinct [A B]", got)
	}
	if got := lookup.calls[RefSystem]; len(got) != 1 || got[0] != "SYS-2" {
		t.Errorf("system values = %v, want [SYS-2]", got)
	}
	if got := lookup.calls[RefTestPackage]; len(got) != 1 || got[0] != "TP-1" {
		t.Errorf("test package values = %v, want [TP-1]", got)
	}
}

func TestDiscoverMetadata_NoReferences_NoQueries(t *testing.T) {
	lookup := newFakeLookup()

	results := []ValidationResult{
		validResult(1, ImportRow{Drawing: "P-1"}),
	}

	out, err := DiscoverMetadata(context.Background(), lookup, uuid.New(), results)
	if err != nil {
		t.Fatalf("DiscoverMetadata() error = %v", err)
	}
	if len(lookup.calls) != 0 {
		t.Errorf("lookup calls = %v, want none for a file without references", lookup.calls)
	}
	if out.Areas != nil || out.Systems != nil || out.TestPackages != nil {
		t.Errorf("discoveries = %+v, want all empty", out)
	}
}

func TestDiscoverMetadata_LookupError(t *testing.T) {
	lookup := newFakeLookup()
	lookup.err = errors.New("connection refused")

	results := []ValidationResult{
		validResult(1, ImportRow{Area: "UNIT-1"}),
	}

	if _, err := DiscoverMetadata(context.Background(), lookup, uuid.New(), results); err == nil {
		t.Fatal("DiscoverMetadata() expected lookup error to propagate")
	}
}
