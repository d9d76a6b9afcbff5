package postgres

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// assign copies scripted row values into Scan destinations, converting
// where the types differ the way pgx would for compatible columns.
func assign(dest []any, vals []any) error {
	if len(dest) != len(vals) {
		return fmt.Errorf("scan: want %d destinations, got %d", len(vals), len(dest))
	}
	for i, v := range vals {
		dv := reflect.ValueOf(dest[i]).Elem()
		sv := reflect.ValueOf(v)
		if !sv.Type().ConvertibleTo(dv.Type()) {
			return fmt.Errorf("scan: cannot assign %T to %s", v, dv.Type())
		}
		dv.Set(sv.Convert(dv.Type()))
	}
	return nil
}

type fakeRow struct {
	vals []any
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assign(dest, r.vals)
}

type fakeRows struct {
	rows [][]any
	idx  int
	err  error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Next() bool                                   { r.idx++; return r.idx <= len(r.rows) }
func (r *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Scan(dest ...any) error {
	return assign(dest, r.rows[r.idx-1])
}

type execCall struct {
	sql  string
	args []any
}

// fakePool scripts QueryRow results in call order and records Exec calls.
type fakePool struct {
	mu        sync.Mutex
	rows      []fakeRow
	queryRows *fakeRows
	queryErr  error
	execErr   error
	execs     []execCall
	rowSQL    []string
}

func (p *fakePool) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.execs = append(p.execs, execCall{sql: sql, args: args})
	return pgconn.CommandTag{}, p.execErr
}

func (p *fakePool) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rowSQL = append(p.rowSQL, sql)
	if len(p.rows) == 0 {
		return fakeRow{err: pgx.ErrNoRows}
	}
	row := p.rows[0]
	p.rows = p.rows[1:]
	return row
}

func (p *fakePool) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	if p.queryErr != nil {
		return nil, p.queryErr
	}
	return p.queryRows, nil
}

func (p *fakePool) BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error) {
	return nil, errors.New("not supported in fake")
}

func (p *fakePool) ledgerExecs() []execCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []execCall
	for _, e := range p.execs {
		if strings.Contains(e.sql, "credit_ledger") {
			out = append(out, e)
		}
	}
	return out
}
