package importer

// validate.go classifies source rows into valid/skipped/error and
// normalizes the accepted ones.
//
// Every row receives exactly one ValidationResult; the first failing rule
// wins. Skips are warnings (the batch proceeds without the row); errors
// block the entire import at the preview gate. Duplicate detection is
// stateful across the file in input order but never consults the live
// datastore — cross-session uniqueness is the commit transaction's job.

import (
	"fmt"
	"strings"
)

// RuleSet carries the validation rules and ceilings for one import run.
type RuleSet struct {
	Required        []CanonicalField
	AllowedTypes    []string
	MaxRows         int
	MaxPayloadBytes int64
	SampleSize      int
}

// DefaultRuleSet returns the production rule set. The ceilings here are
// advisory during preview; the committer re-checks them authoritatively.
func DefaultRuleSet() RuleSet {
	return RuleSet{
		Required:        RequiredFields(),
		AllowedTypes:    AllowedComponentTypes,
		MaxRows:         10000,
		MaxPayloadBytes: 5767168, // 5.5MB effective under the 6MB transport cap
		SampleSize:      10,
	}
}

// RowValidator validates rows against a mapping result and rule set.
// It is stateful: accepted natural keys are remembered so later rows in
// the same file can be flagged as duplicates.
type RowValidator struct {
	mapping *MappingResult
	rules   RuleSet

	// seen maps accepted natural keys to the row number that first
	// claimed them.
	seen map[string]int
}

// NewRowValidator creates a validator for one file. Not safe for
// concurrent use; a file is validated in input order.
func NewRowValidator(mapping *MappingResult, rules RuleSet) *RowValidator {
	return &RowValidator{
		mapping: mapping,
		rules:   rules,
		seen:    make(map[string]int),
	}
}

// ValidateRow classifies one source row. rowNumber is 1-based over data
// rows (the header row is not counted).
func (v *RowValidator) ValidateRow(rowNumber int, row []string) ValidationResult {
	// Rule 1: required canonical fields present and non-empty.
	for _, f := range v.rules.Required {
		pos, ok := v.mapping.Column(f)
		if !ok || cellAt(row, pos) == "" {
			return ValidationResult{
				RowNumber: rowNumber,
				Status:    RowError,
				Category:  ReasonMissingRequiredField,
				Reason:    fmt.Sprintf("required field %s is empty", f),
			}
		}
	}

	// Rule 2: component type inside the allowed enum. A warning, not a
	// blocker: one unrecognized type must not void the batch.
	rawType := v.fieldValue(FieldType, row)
	if !v.allowedType(rawType) {
		return ValidationResult{
			RowNumber: rowNumber,
			Status:    RowSkipped,
			Category:  ReasonUnsupportedType,
			Reason:    fmt.Sprintf("component type %q is not supported", rawType),
		}
	}

	// Rule 3: quantity coerces to an integer >= 1.
	rawQty := v.fieldValue(FieldQty, row)
	qty, ok := ParseQuantity(rawQty)
	if !ok {
		return ValidationResult{
			RowNumber: rowNumber,
			Status:    RowSkipped,
			Category:  ReasonInvalidQuantity,
			Reason:    fmt.Sprintf("quantity %q is not a whole number", rawQty),
		}
	}
	if qty < 1 {
		return ValidationResult{
			RowNumber: rowNumber,
			Status:    RowSkipped,
			Category:  ReasonZeroQuantity,
			Reason:    fmt.Sprintf("quantity must be at least 1, got %d", qty),
		}
	}

	payload := v.buildPayload(rowNumber, row, qty)

	// Rule 4: natural key must not collide with an already-accepted row.
	key := payload.NaturalKey()
	if first, dup := v.seen[key]; dup {
		return ValidationResult{
			RowNumber: rowNumber,
			Status:    RowError,
			Category:  ReasonDuplicateIdentityKey,
			Reason:    fmt.Sprintf("identity key %s already accepted at row %d", key, first),
		}
	}
	v.seen[key] = rowNumber

	return ValidationResult{
		RowNumber: rowNumber,
		Status:    RowValid,
		Payload:   payload,
	}
}

// fieldValue returns the cleaned cell for a mapped canonical field, or ""
// when the field has no mapping.
func (v *RowValidator) fieldValue(f CanonicalField, row []string) string {
	pos, ok := v.mapping.Column(f)
	if !ok {
		return ""
	}
	return cellAt(row, pos)
}

func (v *RowValidator) allowedType(s string) bool {
	for _, t := range v.rules.AllowedTypes {
		if strings.EqualFold(t, s) {
			return true
		}
	}
	return false
}

// buildPayload normalizes an accepted row: identifiers uppercased with
// collapsed whitespace, missing size defaulted to the sentinel, type
// lowercased for storage, unmapped columns preserved in the attributes map.
func (v *RowValidator) buildPayload(rowNumber int, row []string, qty int) *ImportRow {
	get := func(f CanonicalField) string { return v.fieldValue(f, row) }

	size := NormalizeIdentifier(get(FieldSize))
	if size == "" {
		size = SizeSentinel
	}

	payload := &ImportRow{
		RowNumber:     rowNumber,
		Drawing:       NormalizeIdentifier(get(FieldDrawing)),
		ComponentType: strings.ToLower(get(FieldType)),
		CmdtyCode:     NormalizeIdentifier(get(FieldCmdtyCode)),
		Size:          size,
		Quantity:      qty,
		Spec:          get(FieldSpec),
		Description:   get(FieldDescription),
		Comments:      get(FieldComments),
		Area:          NormalizeIdentifier(get(FieldArea)),
		System:        NormalizeIdentifier(get(FieldSystem)),
		TestPackage:   NormalizeIdentifier(get(FieldTestPackage)),
	}

	for pos, header := range v.mapping.unmappedCols {
		val := cellAt(row, pos)
		if val == "" {
			continue
		}
		if payload.Attributes == nil {
			payload.Attributes = make(map[string]string)
		}
		payload.Attributes[header] = val
	}

	return payload
}

// ValidateRows classifies an entire file, one result per source row,
// skipping fully empty rows without assigning them a status.
func ValidateRows(mapping *MappingResult, rules RuleSet, rows [][]string) []ValidationResult {
	v := NewRowValidator(mapping, rules)
	results := make([]ValidationResult, 0, len(rows))

	for i, row := range rows {
		if isEmptyRow(row) {
			continue
		}
		results = append(results, v.ValidateRow(i+1, row))
	}

	return results
}
