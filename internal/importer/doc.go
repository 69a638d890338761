// Package importer provides the business logic for spreadsheet import
// operations.
//
// This package is the heart of the takeoff importer, containing all domain
// logic independent of any transport layer. It can be used by web handlers,
// CLI tools, or tests without modification.
//
// # Architecture
//
// The pipeline runs in two phases with very different trust levels:
//
//   - Preview (local, read-only): [MapColumns] maps raw headers onto the
//     canonical field vocabulary, [ValidateRows] classifies every row as
//     valid, skipped, or error, [DiscoverMetadata] checks which referenced
//     category values already exist, and [BuildPreview] folds everything
//     into a [PreviewState] with the commit-eligibility gate.
//   - Commit (transactional): [Service.Commit] takes an [ImportPayload] of
//     valid rows only, upserts missing reference data, resolves natural
//     keys to surrogate ids inside the transaction, and bulk-inserts via
//     the COPY protocol. Any failure rolls back everything.
//
// The split exists because the commit boundary carries a hard payload-size
// ceiling: previews can be arbitrarily iterated at zero cost, commits are
// bounded, synchronous, and atomic.
//
// # Column Mapping
//
// Headers come from uncontrolled external sources, so mapping is a
// deterministic tiered lookup (exact, case-insensitive, synonym table)
// rather than anything clever. The synonym table in fields.go is data;
// extending it never touches the matching logic.
//
// # Row Classification
//
// Exactly one status per row, first failing rule wins. Skips (unsupported
// type, bad quantity) exclude the row but let the batch proceed; errors
// (missing required field, duplicate identity key) block the entire
// import. The asymmetry is inherited product behavior — see DESIGN.md.
//
// # Error Handling
//
// Validation issues are classified, never thrown: they end up as
// [ValidationResult] values in the preview. Transactional errors are
// mapped to coded user messages via [MapError] (DB001, SIZE001, ...) and
// returned as one failed [ImportResult] with zero created counts.
package importer
