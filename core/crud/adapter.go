// Package crud provides a generic data-access adapter over one remote table,
// keeping a local mirror of the last fetched rows.
package crud

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/remote"
)

// Record is a row type with an integer primary key.
type Record interface {
	RecordID() int64
}

// Observer is notified of every remote call made by an Adapter.
type Observer interface {
	ObserveCall(table, op string, err error, elapsed time.Duration)
}

type FetchOptions struct {
	Columns   []string               // projection; defaults to the record's columns
	Eq        map[string]interface{} // column -> required value, ANDed
	OrderBy   string
	Ascending bool
	Limit     int
}

type Option func(*options)

type options struct {
	pk       string
	logger   core.Logger
	observer Observer
}

func WithPrimaryKey(column string) Option  { return func(o *options) { o.pk = column } }
func WithLogger(logger core.Logger) Option { return func(o *options) { o.logger = logger } }
func WithObserver(obs Observer) Option     { return func(o *options) { o.observer = obs } }

// Adapter is a CRUD façade over one remote table.
// Each call reports its own outcome; concurrent calls only share the mirror, which is lock-protected.
type Adapter[T Record] struct {
	name     string
	table    remote.Table
	schema   *schema
	opts     options
	inFlight atomic.Int64

	mu    sync.RWMutex
	items []T
}

func New[T Record](svc remote.Service, table string, opts ...Option) *Adapter[T] {
	o := options{pk: "id", logger: core.NopLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Adapter[T]{
		name:   table,
		table:  svc.From(table),
		schema: schemaOf(reflect.TypeOf((*T)(nil)).Elem()),
		opts:   o,
	}
}

// Table returns the remote table name.
func (a *Adapter[T]) Table() string { return a.name }

// InFlight returns the number of calls currently waiting on the remote service.
func (a *Adapter[T]) InFlight() int { return int(a.inFlight.Load()) }

// Items returns a copy of the local mirror.
func (a *Adapter[T]) Items() []T {
	a.mu.RLock()
	defer a.mu.RUnlock()
	items := make([]T, len(a.items))
	copy(items, a.items)
	return items
}

// Columns returns the columns of T, in declaration order.
func (a *Adapter[T]) Columns() []string {
	cols := make([]string, len(a.schema.columns))
	copy(cols, a.schema.columns)
	return cols
}

func (a *Adapter[T]) begin() time.Time {
	a.inFlight.Add(1)
	return time.Now()
}

func (a *Adapter[T]) end(op string, start time.Time, err error) error {
	a.inFlight.Add(-1)
	if a.opts.observer != nil {
		a.opts.observer.ObserveCall(a.name, op, err, time.Since(start))
	}
	if err != nil {
		msg := fmt.Sprintf("%s %s", op, a.name)
		if err == core.ErrNotFound {
			a.opts.logger.Debug(msg, err)
		} else {
			a.opts.logger.Error(msg, err)
		}
		return errors.Wrap(err, msg)
	}
	return nil
}

// FetchAll returns the rows matching opts and replaces the local mirror with them.
func (a *Adapter[T]) FetchAll(ctx context.Context, opts FetchOptions) (res []T, err error) {
	start := a.begin()
	defer func() { err = a.end("fetching", start, err) }()

	cols := opts.Columns
	if len(cols) == 0 {
		cols = a.schema.columns
	} else if unknown := a.schema.unknownColumns(cols); len(unknown) > 0 {
		return nil, &core.SchemaMismatchError{Table: a.name, Unknown: unknown}
	}

	q := remote.Query{Columns: cols, Eq: opts.Eq, Limit: opts.Limit}
	if opts.OrderBy != "" {
		q.Order = &core.Ordering{Field: opts.OrderBy, Ascending: opts.Ascending}
	}
	rows, err := a.table.Select(ctx, q)
	if err != nil {
		return nil, err
	}

	res = make([]T, 0, len(rows))
	for _, row := range rows {
		rec, err := decodeRow[T](a.name, a.schema, row, cols)
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}

	a.mu.Lock()
	a.items = make([]T, len(res))
	copy(a.items, res)
	a.mu.Unlock()
	return res, nil
}

// FetchByID returns exactly one row by primary key, or core.ErrNotFound.
func (a *Adapter[T]) FetchByID(ctx context.Context, id int64) (T, error) {
	return a.FetchOneBy(ctx, a.opts.pk, id)
}

// FetchOneBy returns the single row where column = value, or core.ErrNotFound if zero or several rows match.
// The local mirror is left untouched.
func (a *Adapter[T]) FetchOneBy(ctx context.Context, column string, value interface{}) (rec T, err error) {
	start := a.begin()
	defer func() { err = a.end("fetching one", start, err) }()

	row, err := a.table.SelectOne(ctx, column, value, a.schema.columns...)
	if err != nil {
		return rec, err
	}
	return decodeRow[T](a.name, a.schema, row, a.schema.columns)
}

// Create inserts one row and appends the persisted row to the local mirror.
func (a *Adapter[T]) Create(ctx context.Context, data interface{}) (rec T, err error) {
	start := a.begin()
	defer func() { err = a.end("creating", start, err) }()

	row, err := toRow(data)
	if err != nil {
		return rec, err
	}
	saved, err := a.table.Insert(ctx, row)
	if err != nil {
		return rec, err
	}
	if rec, err = decodeRow[T](a.name, a.schema, a.project(saved), nil); err != nil {
		return rec, err
	}

	a.mu.Lock()
	a.items = append(a.items, rec)
	a.mu.Unlock()
	return rec, nil
}

// Update patches one row by primary key and replaces its mirror entry with the server's row.
func (a *Adapter[T]) Update(ctx context.Context, id int64, patch interface{}) (rec T, err error) {
	start := a.begin()
	defer func() { err = a.end("updating", start, err) }()

	row, err := toRow(patch)
	if err != nil {
		return rec, err
	}
	delete(row, a.opts.pk)
	saved, err := a.table.Update(ctx, a.opts.pk, id, row)
	if err != nil {
		return rec, err
	}
	if rec, err = decodeRow[T](a.name, a.schema, a.project(saved), nil); err != nil {
		return rec, err
	}

	a.mu.Lock()
	for i := range a.items {
		if a.items[i].RecordID() == id {
			a.items[i] = rec
			break
		}
	}
	a.mu.Unlock()
	return rec, nil
}

// Remove deletes one row by primary key and drops it from the local mirror.
func (a *Adapter[T]) Remove(ctx context.Context, id int64) (ok bool, err error) {
	start := a.begin()
	defer func() { err = a.end("deleting", start, err) }()

	if err = a.table.Delete(ctx, a.opts.pk, id); err != nil {
		return false, err
	}

	a.mu.Lock()
	for i := range a.items {
		if a.items[i].RecordID() == id {
			a.items = append(a.items[:i], a.items[i+1:]...)
			break
		}
	}
	a.mu.Unlock()
	return true, nil
}

// project drops write-only columns (the ones T does not declare) echoed back by inserts and updates.
// Rows from selects are never projected: there, extra columns are a schema mismatch.
func (a *Adapter[T]) project(row remote.Row) remote.Row {
	out := make(remote.Row, len(row))
	for col, v := range row {
		if a.schema.known[col] {
			out[col] = v
		}
	}
	return out
}
