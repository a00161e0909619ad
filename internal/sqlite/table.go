package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/nutrihub/pkg/types"
)

// querier is the subset of *sql.DB and *sql.Tx the table accessors use.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// session binds table accessors either to the backend's database or to one
// open transaction. A transaction session is owned by the goroutine running
// RunInTransaction and is not safe for concurrent use.
type session struct {
	backend *Backend
	tx      *sql.Tx
	touched map[string]bool
}

// enter returns the querier for one table operation and a release func. Outside
// a transaction it holds the backend read lock until release.
func (s *session) enter() (querier, func(), error) {
	if s.tx != nil {
		return s.tx, func() {}, nil
	}
	s.backend.mu.RLock()
	if !s.backend.attached {
		s.backend.mu.RUnlock()
		return nil, nil, types.ErrStoreDetached
	}
	return s.backend.db, s.backend.mu.RUnlock, nil
}

// wrote records a successful write to table. Outside a transaction the
// backend persists and notifies right away; inside one the table is
// remembered until commit. The caller must be between enter and release.
func (s *session) wrote(ctx context.Context, table string) error {
	if s.tx != nil {
		s.touched[table] = true
		return nil
	}
	return s.backend.afterWrite(ctx, []string{table})
}

func (s *session) touchedTables() []string {
	tables := make([]string, 0, len(s.touched))
	for _, name := range types.StandardTableNames {
		if s.touched[name] {
			tables = append(tables, name)
		}
	}
	return tables
}

func isStandardTable(name string) bool {
	for _, t := range types.StandardTableNames {
		if t == name {
			return true
		}
	}
	return false
}

// tableSet implements types.Tables over one session.
type tableSet map[string]types.Table

func newTableSet(s *session) tableSet {
	return tableSet{
		types.PatientsTable: &patientsTable{s: s},
		types.PlansTable:    &plansTable{s: s},
		types.MealsTable:    &mealsTable{s: s},
		types.FoodsTable:    &foodsTable{s: s},
	}
}

func (ts tableSet) GetTable(name string) (types.Table, error) {
	t, ok := ts[name]
	if !ok {
		return nil, types.ErrTableNotFound
	}
	return t, nil
}

// upsert inserts a row or replaces the row with the same id. With id 0 the
// database assigns one. Returns the id of the written row.
func upsert(ctx context.Context, q querier, table string, columns []string, id int64, values []any) (int64, error) {
	if id == 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
		res, err := q.ExecContext(ctx, fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "), placeholders,
		), values...)
		if err != nil {
			return 0, fmt.Errorf("inserting into %s: %w", table, err)
		}
		newID, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("reading %s insert id: %w", table, err)
		}
		return newID, nil
	}

	updates := make([]string, len(columns))
	for i, col := range columns {
		updates[i] = col + " = excluded." + col
	}
	placeholders := strings.Repeat(", ?", len(columns))
	_, err := q.ExecContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (id, %s) VALUES (?%s) ON CONFLICT(id) DO UPDATE SET %s",
		table, strings.Join(columns, ", "), placeholders, strings.Join(updates, ", "),
	), append([]any{id}, values...)...)
	if err != nil {
		return 0, fmt.Errorf("upserting %s %d: %w", table, id, err)
	}
	return id, nil
}

// deleteByID removes the row with id, returning ErrNotFound when none exists.
func deleteByID(ctx context.Context, q querier, table string, id int64) error {
	res, err := q.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", table), id)
	if err != nil {
		return fmt.Errorf("deleting %s %d: %w", table, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading %s delete count: %w", table, err)
	}
	if n == 0 {
		return types.ErrNotFound
	}
	return nil
}

// resolveID picks the id for Set: the explicit argument wins over the
// entity's own ID.
func resolveID(id, entityID int64) (int64, error) {
	if id == 0 {
		id = entityID
	}
	if id < 0 {
		return 0, types.ErrInvalidID
	}
	return id, nil
}

// selectQuery accumulates WHERE conditions for a Fetch.
type selectQuery struct {
	base       string
	conditions []string
	args       []any
	suffix     string
}

func (sq *selectQuery) where(cond string, args ...any) {
	sq.conditions = append(sq.conditions, cond)
	sq.args = append(sq.args, args...)
}

// paginate applies the limit and offset filter keys.
func (sq *selectQuery) paginate(filter types.Filter) error {
	if limit, ok := filter[types.FilterLimit]; ok {
		l, ok := toInt(limit)
		if !ok {
			return types.ErrInvalidFilter
		}
		if l > 0 {
			sq.suffix += fmt.Sprintf(" LIMIT %d", l)
		}
	}
	if offset, ok := filter[types.FilterOffset]; ok {
		o, ok := toInt(offset)
		if !ok {
			return types.ErrInvalidFilter
		}
		if o > 0 {
			if !strings.Contains(sq.suffix, "LIMIT") {
				sq.suffix += " LIMIT -1"
			}
			sq.suffix += fmt.Sprintf(" OFFSET %d", o)
		}
	}
	return nil
}

func (sq *selectQuery) String() string {
	query := sq.base
	if len(sq.conditions) > 0 {
		query += " WHERE " + strings.Join(sq.conditions, " AND ")
	}
	return query + " ORDER BY id" + sq.suffix
}

// fetchRows runs sq and hydrates every row with scan. The rows are fully
// drained before returning so the connection is free for the next query.
func fetchRows(ctx context.Context, q querier, sq *selectQuery, scan func(rowScanner) (any, error)) ([]any, error) {
	rows, err := q.QueryContext(ctx, sq.String(), sq.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []any{}
	for rows.Next() {
		entity, err := scan(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

// int64Filter reads an id-valued filter key.
func int64Filter(filter types.Filter, key string) (int64, bool, error) {
	v, ok := filter[key]
	if !ok {
		return 0, false, nil
	}
	switch n := v.(type) {
	case int64:
		return n, true, nil
	case int:
		return int64(n), true, nil
	default:
		return 0, false, types.ErrInvalidFilter
	}
}

// toInt converts various numeric types to int.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// escapeLike escapes the LIKE wildcards in s for use with ESCAPE '\'.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func nullableInt64(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
