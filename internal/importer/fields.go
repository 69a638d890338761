package importer

// fields.go defines the canonical field vocabulary that all source columns
// are mapped onto, plus the synonym table used by the third matching tier.
//
// The vocabulary is versioned: clients negotiate against VocabularyVersion
// so that a synonym-table change never silently reinterprets an old file.

import "strings"

// VocabularyVersion identifies the current canonical-field enumeration.
const VocabularyVersion = "v1"

// CanonicalField is a fixed target field identifier. Source columns are
// mapped onto these; anything that does not map stays an opaque attribute.
type CanonicalField string

const (
	FieldDrawing     CanonicalField = "DRAWING"
	FieldType        CanonicalField = "TYPE"
	FieldSize        CanonicalField = "SIZE"
	FieldQty         CanonicalField = "QTY"
	FieldCmdtyCode   CanonicalField = "CMDTY_CODE"
	FieldSpec        CanonicalField = "SPEC"
	FieldDescription CanonicalField = "DESCRIPTION"
	FieldComments    CanonicalField = "COMMENTS"
	FieldArea        CanonicalField = "AREA"
	FieldSystem      CanonicalField = "SYSTEM"
	FieldTestPackage CanonicalField = "TEST_PACKAGE"
)

// CanonicalFields returns the full vocabulary in stable order.
func CanonicalFields() []CanonicalField {
	return []CanonicalField{
		FieldDrawing, FieldType, FieldSize, FieldQty, FieldCmdtyCode,
		FieldSpec, FieldDescription, FieldComments,
		FieldArea, FieldSystem, FieldTestPackage,
	}
}

// RequiredFields are the canonical fields that must be mapped and non-empty
// for a row to be committed.
func RequiredFields() []CanonicalField {
	return []CanonicalField{FieldDrawing, FieldType, FieldQty, FieldCmdtyCode}
}

// AllowedComponentTypes is the closed set of component types accepted by the
// validator. Values are stored lowercase.
var AllowedComponentTypes = []string{
	"spool", "valve", "fitting", "flange", "pipe", "support", "instrument",
}

// IsAllowedComponentType reports whether a raw type value is in the allowed
// enum, case-insensitively.
func IsAllowedComponentType(s string) bool {
	for _, t := range AllowedComponentTypes {
		if strings.EqualFold(t, s) {
			return true
		}
	}
	return false
}

// SizeSentinel is stored when a row has no usable size value. The natural
// key includes size, so absent sizes must still compare equal to each other.
const SizeSentinel = "N/A"

// fieldSynonyms maps normalized header names (lowercase, whitespace
// collapsed) to their canonical field candidates. This table is data:
// extending it never touches the matching logic in mapping.go.
//
// A key with more than one candidate is deliberately ambiguous and is
// excluded from auto-mapping; the admin has to rename the column upstream.
var fieldSynonyms = map[string][]CanonicalField{
	// Drawing
	"drawings":       {FieldDrawing},
	"drawing no":     {FieldDrawing},
	"drawing number": {FieldDrawing},
	"dwg":            {FieldDrawing},
	"dwg no":         {FieldDrawing},
	"iso":            {FieldDrawing},
	"iso no":         {FieldDrawing},
	"isometric":      {FieldDrawing},

	// Type
	"component type": {FieldType},
	"item type":      {FieldType},
	"part type":      {FieldType},

	// Size
	"nominal size": {FieldSize},
	"nps":          {FieldSize},
	"dia":          {FieldSize},
	"diameter":     {FieldSize},

	// Quantity
	"quantity": {FieldQty},
	"qnty":     {FieldQty},
	"count":    {FieldQty},

	// Commodity code
	"cmdty code":     {FieldCmdtyCode},
	"commodity code": {FieldCmdtyCode},
	"commodity":      {FieldCmdtyCode},
	"ident code":     {FieldCmdtyCode},
	"ident":          {FieldCmdtyCode},

	// Spec
	"piping spec": {FieldSpec},
	"spec code":   {FieldSpec},
	"pipe spec":   {FieldSpec},

	// "code" alone has meant both of these in the wild; refuse to guess.
	"code": {FieldCmdtyCode, FieldSpec},

	// Description
	"desc":             {FieldDescription},
	"item description": {FieldDescription},
	"short desc":       {FieldDescription},

	// Comments
	"comment": {FieldComments},
	"remarks": {FieldComments},
	"notes":   {FieldComments},

	// Area
	"unit":      {FieldArea},
	"area code": {FieldArea},

	// System
	"sys":         {FieldSystem},
	"system code": {FieldSystem},
	"system no":   {FieldSystem},

	// Test package
	"test package":  {FieldTestPackage},
	"test pack":     {FieldTestPackage},
	"test pkg":      {FieldTestPackage},
	"hydro package": {FieldTestPackage},
	"tp no":         {FieldTestPackage},
}

// FieldVocabulary is the client-facing description of the mapping target,
// served so upstream tools can pre-map columns before sending a file.
type FieldVocabulary struct {
	Version        string           `json:"version"`
	Fields         []CanonicalField `json:"fields"`
	Required       []CanonicalField `json:"required"`
	ComponentTypes []string         `json:"componentTypes"`
}

// Vocabulary returns the current field vocabulary.
func Vocabulary() FieldVocabulary {
	return FieldVocabulary{
		Version:        VocabularyVersion,
		Fields:         CanonicalFields(),
		Required:       RequiredFields(),
		ComponentTypes: AllowedComponentTypes,
	}
}
