package importer

// convert.go provides cell cleanup and value normalization for raw
// spreadsheet data.
//
// These functions handle the messy reality of third-party exports:
//   - Excel formula prefixes (="value")
//   - stray surrounding quotes and BOM artifacts
//   - thousands separators in quantities
//   - inconsistent casing and internal whitespace in identifiers
//
// Quantity parsing is deliberately strict: values are coerced to integers
// and anything non-integral is invalid, never rounded.

import (
	"regexp"
	"strconv"
	"strings"
)

// intRegex validates a quantity string after cleanup. Integers only;
// "1.5" is a data problem, not something to round away.
var intRegex = regexp.MustCompile(`^[+-]?\d+$`)

// wsRegex collapses runs of internal whitespace in identifiers.
var wsRegex = regexp.MustCompile(`\s+`)

// CleanCell removes common spreadsheet artifacts from a cell value:
// - Trims whitespace and a leading BOM
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimPrefix(s, "\uFEFF")
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	s = strings.Trim(s, `"'`)

	return strings.TrimSpace(s)
}

// NormalizeIdentifier canonicalizes an identity-bearing value (drawing
// number, commodity code, size): trims, collapses internal whitespace and
// uppercases. Two identifiers that differ only in case or spacing must
// produce the same natural key.
func NormalizeIdentifier(s string) string {
	s = CleanCell(s)
	s = wsRegex.ReplaceAllString(s, " ")
	return strings.ToUpper(s)
}

// NormalizeHeader prepares a raw header for case-insensitive and synonym
// lookup: cleaned, lowercased, internal whitespace collapsed.
func NormalizeHeader(s string) string {
	s = CleanCell(s)
	s = wsRegex.ReplaceAllString(s, " ")
	return strings.ToLower(s)
}

// ParseQuantity coerces a raw quantity cell to an integer.
// Thousands separators are stripped; anything else non-integral fails.
// Returns ok=false for non-parsable values.
func ParseQuantity(s string) (int, bool) {
	s = CleanCell(s)
	s = strings.ReplaceAll(s, ",", "")
	if !intRegex.MatchString(s) {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// isEmptyRow reports whether every cell in the row is blank.
func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// cellAt returns the cleaned cell at position pos, or "" when the row is
// ragged and the position does not exist.
func cellAt(row []string, pos int) string {
	if pos < 0 || pos >= len(row) {
		return ""
	}
	return CleanCell(row[pos])
}
