package importer

// mapping.go maps raw header strings onto the canonical field vocabulary.
//
// Matching is a deterministic tiered lookup, highest confidence first:
//
//  1. exact match against the canonical identifier          -> 100
//  2. case-insensitive, whitespace-collapsed match          -> 95
//  3. membership in the synonym table (fields.go)           -> 85
//
// First match wins. A header that matches nothing stays unmapped and is
// preserved verbatim as an opaque per-row attribute. The whole thing is a
// pure function of the header list plus the static synonym table.

import "strings"

// AmbiguousHeader records a header whose synonym lookup produced more than
// one canonical candidate. Such headers are excluded from auto-mapping; the
// commit gate closes only if that leaves a required field unmapped.
type AmbiguousHeader struct {
	SourceHeader string           `json:"sourceHeader"`
	Candidates   []CanonicalField `json:"candidates"`
}

// MappingResult is the full outcome of mapping one header row.
type MappingResult struct {
	Mappings  []ColumnMapping   `json:"mappings"`
	Unmapped  []string          `json:"unmapped,omitempty"`
	Ambiguous []AmbiguousHeader `json:"ambiguous,omitempty"`

	// columns indexes each mapped canonical field to its source column
	// position. Not serialized; consumed by the row validator.
	columns map[CanonicalField]int

	// unmappedCols indexes unmapped headers to their column positions,
	// preserving the original header text for the attributes map.
	unmappedCols map[int]string
}

// MapColumns maps an ordered header row onto the canonical vocabulary.
//
// Each header maps to at most one canonical field and each canonical field
// is claimed at most once: when duplicate headers (or two synonyms of the
// same field) appear, the earliest occurrence wins and later ones stay
// unmapped.
func MapColumns(headers []string) MappingResult {
	result := MappingResult{
		columns:      make(map[CanonicalField]int),
		unmappedCols: make(map[int]string),
	}

	for i, raw := range headers {
		header := CleanCell(raw)
		if header == "" {
			continue
		}

		mapping, ambiguous := matchHeader(header)

		if ambiguous != nil {
			result.Ambiguous = append(result.Ambiguous, *ambiguous)
			result.unmappedCols[i] = header
			continue
		}

		if mapping == nil {
			result.Unmapped = append(result.Unmapped, header)
			result.unmappedCols[i] = header
			continue
		}

		// Earliest occurrence wins; a later header targeting an already
		// claimed field falls back to unmapped.
		if _, claimed := result.columns[mapping.CanonicalField]; claimed {
			result.Unmapped = append(result.Unmapped, header)
			result.unmappedCols[i] = header
			continue
		}

		result.columns[mapping.CanonicalField] = i
		result.Mappings = append(result.Mappings, *mapping)
	}

	return result
}

// matchHeader runs one header through the three tiers.
// Returns (nil, nil) when nothing matched, and a non-nil AmbiguousHeader
// when the synonym tier produced multiple candidates.
func matchHeader(header string) (*ColumnMapping, *AmbiguousHeader) {
	// Tier 1: exact.
	for _, f := range CanonicalFields() {
		if header == string(f) {
			return &ColumnMapping{
				SourceHeader:   header,
				CanonicalField: f,
				Confidence:     ConfidenceExact,
				MatchTier:      TierExact,
			}, nil
		}
	}

	// Tier 2: case-insensitive, trimmed and whitespace-collapsed.
	norm := NormalizeHeader(header)
	for _, f := range CanonicalFields() {
		if norm == strings.ToLower(string(f)) {
			return &ColumnMapping{
				SourceHeader:   header,
				CanonicalField: f,
				Confidence:     ConfidenceCaseInsensitive,
				MatchTier:      TierCaseInsensitive,
			}, nil
		}
	}

	// Tier 3: synonym table.
	candidates, ok := fieldSynonyms[norm]
	if !ok {
		return nil, nil
	}
	if len(candidates) > 1 {
		return nil, &AmbiguousHeader{SourceHeader: header, Candidates: candidates}
	}
	return &ColumnMapping{
		SourceHeader:   header,
		CanonicalField: candidates[0],
		Confidence:     ConfidenceSynonym,
		MatchTier:      TierSynonym,
	}, nil
}

// Column returns the source column index for a canonical field.
func (m *MappingResult) Column(f CanonicalField) (int, bool) {
	pos, ok := m.columns[f]
	return pos, ok
}

// MissingRequired returns the required canonical fields that do not have
// exactly one unambiguous mapping. An empty result means the structural
// half of the commit gate is satisfied.
func (m *MappingResult) MissingRequired() []CanonicalField {
	var missing []CanonicalField
	for _, f := range RequiredFields() {
		if _, ok := m.columns[f]; !ok {
			missing = append(missing, f)
		}
	}
	return missing
}
