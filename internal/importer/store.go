package importer

// store.go is the datastore port and its PostgreSQL implementation.
//
// Reference upserts use INSERT ... ON CONFLICT DO NOTHING RETURNING, so the
// returned rows are exactly the newly created ones: replaying the same
// create list a second time creates nothing and resolves to the same ids.
// Component rows go in through the COPY protocol; the unique index on the
// component natural key is what turns a cross-session duplicate into a
// transaction abort.

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ComponentRecord is a fully resolved component row ready for insertion.
// All natural-key references have been replaced by surrogate ids.
type ComponentRecord struct {
	ID            uuid.UUID
	ProjectID     uuid.UUID
	DrawingID     uuid.UUID
	AreaID        pgtype.UUID
	SystemID      pgtype.UUID
	TestPackageID pgtype.UUID
	ComponentType string
	CmdtyCode     string
	Size          string
	Quantity      int
	Spec          pgtype.Text
	Description   pgtype.Text
	Comments      pgtype.Text
	Attributes    map[string]string
}

// ImportTx is the unit-of-work port the committer drives. Every method
// runs inside the same database transaction; any returned error rolls the
// whole import back.
type ImportTx interface {
	// UpsertReferences creates the missing values for one category type
	// and returns the number created plus a complete name->id map for all
	// requested values.
	UpsertReferences(ctx context.Context, projectID uuid.UUID, typ ReferenceType, values []string) (int, map[string]uuid.UUID, error)

	// UpsertDrawings does the same for drawings, keyed by normalized number.
	UpsertDrawings(ctx context.Context, projectID uuid.UUID, numbers []string) (int, map[string]uuid.UUID, error)

	// InsertComponents bulk-inserts resolved rows and returns the count.
	InsertComponents(ctx context.Context, rows []ComponentRecord) (int64, error)
}

// Store is the full datastore port: read-only reference lookup for the
// preview phase and a transactional unit of work for the commit phase.
type Store interface {
	ReferenceLookup

	// RunImport executes fn inside a single transaction. fn returning an
	// error (or a panic) rolls back everything.
	RunImport(ctx context.Context, fn func(tx ImportTx) error) error

	// Ping verifies datastore connectivity.
	Ping(ctx context.Context) error
}

// referenceTables maps category types to their backing tables. Table names
// come only from this whitelist, never from input.
var referenceTables = map[ReferenceType]string{
	RefArea:        "areas",
	RefSystem:      "systems",
	RefTestPackage: "test_packages",
}

// PgStore implements Store on a pgx connection pool.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a Store backed by the given pool.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// Ping verifies connectivity.
func (s *PgStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// LookupReferences resolves existing category values to their ids.
func (s *PgStore) LookupReferences(ctx context.Context, projectID uuid.UUID, typ ReferenceType, values []string) (map[string]uuid.UUID, error) {
	table, ok := referenceTables[typ]
	if !ok {
		return nil, fmt.Errorf("unknown reference type: %s", typ)
	}
	if len(values) == 0 {
		return map[string]uuid.UUID{}, nil
	}

	query := fmt.Sprintf(
		`SELECT name, id FROM %s WHERE project_id = $1 AND name = ANY($2)`, table)

	rows, err := s.pool.Query(ctx, query, projectID, values)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	return scanNameIDMap(rows)
}

// RunImport runs fn inside one transaction.
func (s *PgStore) RunImport(ctx context.Context, fn func(tx ImportTx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&pgImportTx{tx: tx})
	})
}

// pgImportTx implements ImportTx on an open pgx transaction.
type pgImportTx struct {
	tx pgx.Tx
}

func (t *pgImportTx) UpsertReferences(ctx context.Context, projectID uuid.UUID, typ ReferenceType, values []string) (int, map[string]uuid.UUID, error) {
	table, ok := referenceTables[typ]
	if !ok {
		return 0, nil, fmt.Errorf("unknown reference type: %s", typ)
	}
	return t.upsertNamed(ctx, table, projectID, values)
}

func (t *pgImportTx) UpsertDrawings(ctx context.Context, projectID uuid.UUID, numbers []string) (int, map[string]uuid.UUID, error) {
	if len(numbers) == 0 {
		return 0, map[string]uuid.UUID{}, nil
	}

	insert := `INSERT INTO drawings (id, project_id, number)
		SELECT gen_random_uuid(), $1, unnest($2::text[])
		ON CONFLICT (project_id, number) DO NOTHING
		RETURNING number, id`

	created, ids, err := t.runUpsert(ctx, insert, projectID, numbers)
	if err != nil {
		return 0, nil, fmt.Errorf("upsert drawings: %w", err)
	}

	// Pick up the values that already existed.
	rows, err := t.tx.Query(ctx,
		`SELECT number, id FROM drawings WHERE project_id = $1 AND number = ANY($2)`,
		projectID, numbers)
	if err != nil {
		return 0, nil, fmt.Errorf("select drawings: %w", err)
	}
	defer rows.Close()

	full, err := scanNameIDMap(rows)
	if err != nil {
		return 0, nil, err
	}
	for k, v := range ids {
		full[k] = v
	}
	return created, full, nil
}

// upsertNamed creates missing (project_id, name) rows in a reference table
// and returns created count plus the complete name->id map.
func (t *pgImportTx) upsertNamed(ctx context.Context, table string, projectID uuid.UUID, values []string) (int, map[string]uuid.UUID, error) {
	if len(values) == 0 {
		return 0, map[string]uuid.UUID{}, nil
	}

	insert := fmt.Sprintf(`INSERT INTO %s (id, project_id, name)
		SELECT gen_random_uuid(), $1, unnest($2::text[])
		ON CONFLICT (project_id, name) DO NOTHING
		RETURNING name, id`, table)

	created, ids, err := t.runUpsert(ctx, insert, projectID, values)
	if err != nil {
		return 0, nil, fmt.Errorf("upsert %s: %w", table, err)
	}

	query := fmt.Sprintf(
		`SELECT name, id FROM %s WHERE project_id = $1 AND name = ANY($2)`, table)
	rows, err := t.tx.Query(ctx, query, projectID, values)
	if err != nil {
		return 0, nil, fmt.Errorf("select %s: %w", table, err)
	}
	defer rows.Close()

	full, err := scanNameIDMap(rows)
	if err != nil {
		return 0, nil, err
	}
	for k, v := range ids {
		full[k] = v
	}
	return created, full, nil
}

func (t *pgImportTx) runUpsert(ctx context.Context, insert string, projectID uuid.UUID, values []string) (int, map[string]uuid.UUID, error) {
	rows, err := t.tx.Query(ctx, insert, projectID, values)
	if err != nil {
		return 0, nil, err
	}
	defer rows.Close()

	ids, err := scanNameIDMap(rows)
	if err != nil {
		return 0, nil, err
	}
	return len(ids), ids, nil
}

// componentColumns lists the COPY target columns in CopyFromRows order.
var componentColumns = []string{
	"id", "project_id", "drawing_id", "area_id", "system_id",
	"test_package_id", "component_type", "cmdty_code", "size",
	"quantity", "spec", "description", "comments", "attributes",
}

func (t *pgImportTx) InsertComponents(ctx context.Context, records []ComponentRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	copyRows := make([][]any, len(records))
	for i, r := range records {
		var attrs []byte
		if len(r.Attributes) > 0 {
			b, err := json.Marshal(r.Attributes)
			if err != nil {
				return 0, fmt.Errorf("marshal attributes for row: %w", err)
			}
			attrs = b
		}
		copyRows[i] = []any{
			r.ID, r.ProjectID, r.DrawingID, r.AreaID, r.SystemID,
			r.TestPackageID, r.ComponentType, r.CmdtyCode, r.Size,
			r.Quantity, r.Spec, r.Description, r.Comments, attrs,
		}
	}

	n, err := t.tx.CopyFrom(ctx,
		pgx.Identifier{"components"},
		componentColumns,
		pgx.CopyFromRows(copyRows),
	)
	if err != nil {
		return 0, fmt.Errorf("copy components: %w", err)
	}
	return n, nil
}

// scanNameIDMap drains (name, id) rows into a map.
func scanNameIDMap(rows pgx.Rows) (map[string]uuid.UUID, error) {
	out := make(map[string]uuid.UUID)
	for rows.Next() {
		var name string
		var id uuid.UUID
		if err := rows.Scan(&name, &id); err != nil {
			return nil, fmt.Errorf("scan reference row: %w", err)
		}
		out[name] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read reference rows: %w", err)
	}
	return out, nil
}

// toPgText converts a string to pgtype.Text, invalid (NULL) when empty.
func toPgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

// toPgUUID wraps a resolved surrogate id, invalid (NULL) when absent.
func toPgUUID(id uuid.UUID, ok bool) pgtype.UUID {
	if !ok {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: id, Valid: true}
}
