// Package importer provides the business logic for spreadsheet import
// operations.
//
// # Error Codes Reference
//
// This file maps technical errors from the commit boundary to
// user-friendly messages with codes for support reference. A transactional
// failure always means nothing was imported; these codes explain why.
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key: a component with this identity already exists
//	        Patterns: "duplicate key", pg code 23505
//	DB002 - Unique constraint: a value that must be unique already exists
//	        Patterns: "unique constraint", "violates unique"
//	DB003 - Foreign key: a referenced record does not exist
//	        Patterns: "foreign key", pg code 23503
//	DB004 - Connection refused: unable to reach the database
//	DB005 - Connection reset: database connection was interrupted
//	DB006 - Timeout: the commit transaction timed out
//	DB007 - Deadlock: conflicting concurrent operations
//
// # Payload Errors (SIZE001-SIZE099)
//
//	SIZE001 - Row ceiling exceeded
//	SIZE002 - Payload byte ceiling exceeded
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - Unresolved reference: a row referenced a key the transaction
//	         failed to resolve (invariant violation, should be unreachable)
//	IMP002 - Empty payload: commit called with no rows
//
// # Pattern Matching
//
// PostgreSQL error codes are checked first via pgconn.PgError; string
// patterns are matched case-insensitively with strings.Contains, first
// match wins, so specific patterns come before general ones.
package importer

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// UserMessage provides user-friendly error information with actionable
// guidance and a code for support reference.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// PostgreSQL SQLSTATE codes the committer cares about.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

var errorPatterns = []errorPattern{
	// Database constraint errors
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A component with this identity already exists in the project",
			Action:  "Remove rows that were already imported and retry",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "A value that must be unique already exists",
			Action:  "Review your file for values imported previously",
			Code:    "DB002",
		},
	},
	{
		pattern: "violates unique",
		msg: UserMessage{
			Message: "A value that must be unique already exists",
			Action:  "Review your file for values imported previously",
			Code:    "DB002",
		},
	},
	{
		pattern: "foreign key",
		msg: UserMessage{
			Message: "A referenced record does not exist",
			Action:  "Re-run the preview so references are rediscovered",
			Code:    "DB003",
		},
	},

	// Database connection errors
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to the database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "The database connection was interrupted",
			Action:  "Please try again; nothing was imported",
			Code:    "DB005",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "The commit timed out",
			Action:  "Try a smaller file or try again later; nothing was imported",
			Code:    "DB006",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "The commit timed out",
			Action:  "Try a smaller file or try again later; nothing was imported",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "The database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},

	// Payload ceilings
	{
		pattern: "row ceiling",
		msg: UserMessage{
			Message: "The import exceeds the maximum row count",
			Action:  "Split the file and import in parts",
			Code:    "SIZE001",
		},
	},
	{
		pattern: "payload ceiling",
		msg: UserMessage{
			Message: "The import payload exceeds the maximum size",
			Action:  "Split the file and import in parts",
			Code:    "SIZE002",
		},
	},

	// Import invariants
	{
		pattern: "unresolved reference",
		msg: UserMessage{
			Message: "An internal reference could not be resolved",
			Action:  "Re-run the preview and commit again; nothing was imported",
			Code:    "IMP001",
		},
	},
	{
		pattern: "no rows to import",
		msg: UserMessage{
			Message: "The payload contained no importable rows",
			Action:  "Check the preview for blocking errors",
			Code:    "IMP002",
		},
	},
}

// defaultMessage is returned when no pattern matches.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error into a user-friendly message.
// PostgreSQL error codes win over string patterns.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return errorPatterns[0].msg // DB001
		case pgForeignKeyViolation:
			return UserMessage{
				Message: "A referenced record does not exist",
				Action:  "Re-run the preview so references are rediscovered",
				Code:    "DB003",
			}
		}
	}

	lower := strings.ToLower(err.Error())
	for _, p := range errorPatterns {
		if strings.Contains(lower, p.pattern) {
			return p.msg
		}
	}

	return defaultMessage
}

// ConstraintContext extracts the offending key detail from a PostgreSQL
// constraint violation, when the server provided one. Returns "" when the
// error carries no usable detail.
func ConstraintContext(err error) string {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return ""
	}
	// Detail looks like: Key (project_id, drawing_id, ...)=(...) already exists.
	if pgErr.Detail != "" {
		return pgErr.Detail
	}
	return pgErr.ConstraintName
}
