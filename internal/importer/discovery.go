package importer

// discovery.go determines which referenced category values are new versus
// already known to the datastore.
//
// Only valid rows contribute: references that appear solely on skipped or
// error rows are excluded so a rejected file can never seed orphan
// reference data. Existence is checked with one batch query per category
// type; final resolution is deferred to the commit transaction to avoid
// preview/commit races.

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// ReferenceLookup is the read-only datastore port the discoverer needs.
type ReferenceLookup interface {
	// LookupReferences resolves category values to ids for one project
	// and type, returning a map containing only the values that exist.
	LookupReferences(ctx context.Context, projectID uuid.UUID, typ ReferenceType, values []string) (map[string]uuid.UUID, error)
}

// DiscoverMetadata projects the valid rows onto their optional category
// references, deduplicates per type, and flags each distinct value as
// existing or pending creation. Output is sorted per type so the result is
// independent of input order.
func DiscoverMetadata(ctx context.Context, lookup ReferenceLookup, projectID uuid.UUID, results []ValidationResult) (MetadataDiscoveryResult, error) {
	var out MetadataDiscoveryResult

	for _, typ := range ReferenceTypes() {
		values := distinctReferences(results, typ)
		if len(values) == 0 {
			continue
		}

		existing, err := lookup.LookupReferences(ctx, projectID, typ, values)
		if err != nil {
			return MetadataDiscoveryResult{}, fmt.Errorf("lookup %s references: %w", typ, err)
		}

		discoveries := make([]MetadataDiscovery, 0, len(values))
		for _, v := range values {
			d := MetadataDiscovery{Type: typ, Value: v}
			if id, ok := existing[v]; ok {
				d.Exists = true
				resolved := id
				d.ResolvedID = &resolved
			}
			discoveries = append(discoveries, d)
		}

		switch typ {
		case RefArea:
			out.Areas = discoveries
		case RefSystem:
			out.Systems = discoveries
		case RefTestPackage:
			out.TestPackages = discoveries
		}
	}

	return out, nil
}

// distinctReferences collects the sorted distinct values of one category
// type across the valid rows.
func distinctReferences(results []ValidationResult, typ ReferenceType) []string {
	seen := make(map[string]struct{})
	for _, r := range results {
		if r.Status != RowValid || r.Payload == nil {
			continue
		}
		v := referenceValue(r.Payload, typ)
		if v == "" {
			continue
		}
		seen[v] = struct{}{}
	}

	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}

func referenceValue(row *ImportRow, typ ReferenceType) string {
	switch typ {
	case RefArea:
		return row.Area
	case RefSystem:
		return row.System
	case RefTestPackage:
		return row.TestPackage
	}
	return ""
}
