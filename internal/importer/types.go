package importer

// types.go holds the shared domain types that travel between the pipeline
// stages: mapping outcomes, row classifications, discovery results, the
// preview state and the commit payload/result pair.

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// MatchTier identifies which matching tier produced a column mapping.
type MatchTier string

const (
	TierExact           MatchTier = "exact"
	TierCaseInsensitive MatchTier = "case-insensitive"
	TierSynonym         MatchTier = "synonym"
)

// Confidence per tier. Kept as named constants so the preview can render
// them without knowing the tier ordering.
const (
	ConfidenceExact           = 100
	ConfidenceCaseInsensitive = 95
	ConfidenceSynonym         = 85
)

// ColumnMapping records how one raw header was mapped onto a canonical
// field. Computed once per file and immutable afterwards; it travels with
// the commit payload as an audit trail.
type ColumnMapping struct {
	SourceHeader   string         `json:"sourceHeader"`
	CanonicalField CanonicalField `json:"canonicalField"`
	Confidence     int            `json:"confidence"`
	MatchTier      MatchTier      `json:"matchTier"`
}

// RowStatus classifies a source row. Every row gets exactly one status.
type RowStatus string

const (
	RowValid   RowStatus = "valid"
	RowSkipped RowStatus = "skipped"
	RowError   RowStatus = "error"
)

// Reason categories for skipped and error rows.
const (
	ReasonMissingRequiredField = "missing_required_field"
	ReasonUnsupportedType      = "unsupported_type"
	ReasonInvalidQuantity      = "invalid_quantity"
	ReasonZeroQuantity         = "zero_quantity"
	ReasonDuplicateIdentityKey = "duplicate_identity_key"
)

// ValidationResult is the outcome of validating one source row.
//
// Invariants: Status==RowValid implies Payload != nil and Reason empty;
// Status in {RowSkipped, RowError} implies Reason and Category set and
// Payload nil.
type ValidationResult struct {
	RowNumber int        `json:"rowNumber"`
	Status    RowStatus  `json:"status"`
	Reason    string     `json:"reason,omitempty"`
	Category  string     `json:"category,omitempty"`
	Payload   *ImportRow `json:"payload,omitempty"`
}

// ImportRow is a normalized, accepted row ready for commit. Identifier
// fields are uppercased with collapsed whitespace; ComponentType is stored
// lowercase; Size defaults to SizeSentinel.
type ImportRow struct {
	RowNumber     int               `json:"rowNumber"`
	Drawing       string            `json:"drawing"`
	ComponentType string            `json:"componentType"`
	CmdtyCode     string            `json:"cmdtyCode"`
	Size          string            `json:"size"`
	Quantity      int               `json:"quantity"`
	Spec          string            `json:"spec,omitempty"`
	Description   string            `json:"description,omitempty"`
	Comments      string            `json:"comments,omitempty"`
	Area          string            `json:"area,omitempty"`
	System        string            `json:"system,omitempty"`
	TestPackage   string            `json:"testPackage,omitempty"`
	Attributes    map[string]string `json:"attributes,omitempty"`
}

// NaturalKey returns the composite identity key for file-local duplicate
// detection and datastore uniqueness: drawing|type|code|size.
func (r *ImportRow) NaturalKey() string {
	return r.Drawing + "|" + r.ComponentType + "|" + r.CmdtyCode + "|" + r.Size
}

// ReferenceType is a cross-referenced category resolved against project
// reference data by name.
type ReferenceType string

const (
	RefArea        ReferenceType = "area"
	RefSystem      ReferenceType = "system"
	RefTestPackage ReferenceType = "test_package"
)

// ReferenceTypes returns all category types in stable order.
func ReferenceTypes() []ReferenceType {
	return []ReferenceType{RefArea, RefSystem, RefTestPackage}
}

// MetadataDiscovery flags one distinct category value as already known to
// the datastore or pending creation. Exists implies ResolvedID is set;
// a missing value carries a nil ResolvedID until the commit transaction
// resolves it.
type MetadataDiscovery struct {
	Type       ReferenceType `json:"type"`
	Value      string        `json:"value"`
	Exists     bool          `json:"exists"`
	ResolvedID *uuid.UUID    `json:"resolvedId,omitempty"`
}

// MetadataDiscoveryResult groups discoveries by category type. Values are
// unique per type and sorted, so the result is order-independent.
type MetadataDiscoveryResult struct {
	Areas        []MetadataDiscovery `json:"areas"`
	Systems      []MetadataDiscovery `json:"systems"`
	TestPackages []MetadataDiscovery `json:"testPackages"`
}

// Missing returns the not-yet-existing values for one category type.
func (m *MetadataDiscoveryResult) Missing(typ ReferenceType) []string {
	var out []string
	for _, d := range m.byType(typ) {
		if !d.Exists {
			out = append(out, d.Value)
		}
	}
	return out
}

func (m *MetadataDiscoveryResult) byType(typ ReferenceType) []MetadataDiscovery {
	switch typ {
	case RefArea:
		return m.Areas
	case RefSystem:
		return m.Systems
	case RefTestPackage:
		return m.TestPackages
	}
	return nil
}

// PreviewSummary contains the row classification counts. TotalRows is
// always the sum of the other three.
type PreviewSummary struct {
	TotalRows   int `json:"totalRows"`
	ValidRows   int `json:"validRows"`
	SkippedRows int `json:"skippedRows"`
	ErrorRows   int `json:"errorRows"`
}

// PreviewState is the complete, human-reviewable summary of an import
// before any data is committed. Session-scoped; never persisted.
type PreviewState struct {
	Summary         PreviewSummary          `json:"summary"`
	Mappings        []ColumnMapping         `json:"mappings"`
	UnmappedHeaders []string                `json:"unmappedHeaders,omitempty"`
	Results         []ValidationResult      `json:"results"`
	Discoveries     MetadataDiscoveryResult `json:"discoveries"`
	RowSample       []ImportRow             `json:"rowSample,omitempty"`
	CanCommit       bool                    `json:"canCommit"`
	Blockers        []string                `json:"blockers,omitempty"`
}

// MetadataToCreate lists the not-yet-existing category values the commit
// transaction must create before inserting rows.
type MetadataToCreate struct {
	Areas        []string `json:"areas,omitempty"`
	Systems      []string `json:"systems,omitempty"`
	TestPackages []string `json:"testPackages,omitempty"`
}

// ImportPayload crosses the commit boundary. It carries only valid,
// normalized rows plus the mapping audit trail; raw file data never
// reaches the committer.
type ImportPayload struct {
	ProjectID        uuid.UUID        `json:"projectId"`
	Rows             []ImportRow      `json:"rows"`
	ColumnMappings   []ColumnMapping  `json:"columnMappings"`
	MetadataToCreate MetadataToCreate `json:"metadataToCreate"`
}

// CreatedCounts reports entities inserted by a successful commit.
type CreatedCounts struct {
	Components int `json:"components"`
	Drawings   int `json:"drawings"`
}

// PerTypeCounts reports category reference rows created per type.
type PerTypeCounts struct {
	Areas        int `json:"areas"`
	Systems      int `json:"systems"`
	TestPackages int `json:"testPackages"`
}

// RowIssue is an itemized row-level error detail on a failed commit.
type RowIssue struct {
	Row        int    `json:"row"`
	Issue      string `json:"issue"`
	ContextKey string `json:"contextKey,omitempty"`
}

// ImportResult is the committer's response. Invariant: Success==false
// implies all created counts are zero; callers never observe a partial
// commit.
type ImportResult struct {
	Success    bool          `json:"success"`
	Created    CreatedCounts `json:"created"`
	References PerTypeCounts `json:"references"`
	DurationMs int64         `json:"durationMs"`
	Error      string        `json:"error,omitempty"`
	RowIssues  []RowIssue    `json:"rowIssues,omitempty"`
}
