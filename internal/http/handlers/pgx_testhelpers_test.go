package handlers

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeSQL routes queries to test-provided closures. Unrouted queries fail the
// scan instead of panicking so tests see a useful error.
type fakeSQL struct {
	onExec     func(query string, args []any) (pgconn.CommandTag, error)
	onQueryRow func(query string, args []any) pgx.Row
	onQuery    func(query string, args []any) (pgx.Rows, error)
}

func (f *fakeSQL) Exec(_ context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	if f.onExec == nil {
		return pgconn.CommandTag{}, fmt.Errorf("unexpected exec: %s", query)
	}
	return f.onExec(query, args)
}

func (f *fakeSQL) QueryRow(_ context.Context, query string, args ...any) pgx.Row {
	if f.onQueryRow == nil {
		return scanFunc(func(...any) error { return fmt.Errorf("unexpected query row: %s", query) })
	}
	return f.onQueryRow(query, args)
}

func (f *fakeSQL) Query(_ context.Context, query string, args ...any) (pgx.Rows, error) {
	if f.onQuery == nil {
		return nil, fmt.Errorf("unexpected query: %s", query)
	}
	return f.onQuery(query, args)
}

// scanFunc adapts a closure into a pgx.Row.
type scanFunc func(dest ...any) error

func (s scanFunc) Scan(dest ...any) error { return s(dest...) }

// fakeRows iterates scan closures, one per row.
type fakeRows struct {
	scans []func(dest ...any) error
	idx   int
}

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.scans) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	if r.idx == 0 || r.idx > len(r.scans) {
		return pgx.ErrNoRows
	}
	return r.scans[r.idx-1](dest...)
}

func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) Close()                                       {}
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

var _ pgx.Rows = (*fakeRows)(nil)
