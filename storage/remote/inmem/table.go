package inmem

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/remote"
)

const pk = "id"

type table struct {
	name     string
	columns  []string
	known    map[string]bool
	defaults map[string]func() interface{}
	unique   []string

	mutex sync.RWMutex
	rows  map[int64]remote.Row
	pkSeq int64
}

func newTable(name string, columns []string, defaults map[string]func() interface{}, unique []string) *table {
	known := make(map[string]bool, len(columns))
	for _, c := range columns {
		known[c] = true
	}
	return &table{
		name:     name,
		columns:  columns,
		known:    known,
		defaults: defaults,
		unique:   unique,
		rows:     make(map[int64]remote.Row),
	}
}

func (t *table) checkColumns(cols ...string) error {
	for _, c := range cols {
		if !t.known[c] {
			return &core.RemoteError{
				Status:  http.StatusBadRequest,
				Code:    "42703",
				Message: fmt.Sprintf("column %s.%s does not exist", t.name, c),
			}
		}
	}
	return nil
}

func (t *table) checkQuery(q remote.Query) error {
	if err := t.checkColumns(q.Columns...); err != nil {
		return err
	}
	for col := range q.Eq {
		if err := t.checkColumns(col); err != nil {
			return err
		}
	}
	if q.Order != nil {
		return t.checkColumns(q.Order.Field)
	}
	return nil
}

// query returns the rows matching eq, ordered by id. Callers must hold the lock.
func (t *table) query(eq map[string]interface{}) []remote.Row {
	ids := make([]int64, 0, len(t.rows))
	for id := range t.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	rows := make([]remote.Row, 0, len(ids))
	for _, id := range ids {
		row := t.rows[id]
		if matches(row, eq) {
			rows = append(rows, row)
		}
	}
	return rows
}

func (t *table) project(row remote.Row, cols []string) remote.Row {
	if len(cols) == 0 {
		cols = t.columns
	}
	out := make(remote.Row, len(cols))
	for _, c := range cols {
		out[c] = row[c]
	}
	return out
}

func (t *table) Select(ctx context.Context, q remote.Query) ([]remote.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := t.checkQuery(q); err != nil {
		return nil, err
	}

	t.mutex.RLock()
	defer t.mutex.RUnlock()

	rows := t.query(normalizeRow(q.Eq))
	if q.Order != nil {
		field, asc := q.Order.Field, q.Order.Ascending
		sort.SliceStable(rows, func(i, j int) bool {
			c := compare(rows[i][field], rows[j][field])
			if asc {
				return c < 0
			}
			return c > 0
		})
	}
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}

	res := make([]remote.Row, 0, len(rows))
	for _, row := range rows {
		res = append(res, t.project(row, q.Columns))
	}
	return res, nil
}

func (t *table) SelectOne(ctx context.Context, column string, value interface{}, columns ...string) (remote.Row, error) {
	rows, err := t.Select(ctx, remote.Query{Columns: columns, Eq: map[string]interface{}{column: value}, Limit: 2})
	if err != nil {
		return nil, err
	}
	if len(rows) != 1 {
		return nil, core.ErrNotFound
	}
	return rows[0], nil
}

func (t *table) Insert(ctx context.Context, row remote.Row) (remote.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	row = normalizeRow(row)
	for col := range row {
		if err := t.checkColumns(col); err != nil {
			return nil, err
		}
	}

	t.mutex.Lock()
	defer t.mutex.Unlock()

	if err := t.checkUnique(row, 0); err != nil {
		return nil, err
	}

	var id int64
	if v, ok := row[pk]; ok && v != nil {
		n, ok := toFloat(v)
		if !ok {
			return nil, invalidInput(v)
		}
		id = int64(n)
		if _, exists := t.rows[id]; exists {
			return nil, duplicateKey(t.name, pk, id)
		}
	} else {
		t.pkSeq++
		for t.rows[t.pkSeq] != nil {
			t.pkSeq++
		}
		id = t.pkSeq
	}
	if id > t.pkSeq {
		t.pkSeq = id
	}

	saved := make(remote.Row, len(t.columns))
	for _, c := range t.columns {
		saved[c] = nil
		if def, ok := t.defaults[c]; ok {
			saved[c] = def()
		}
	}
	for c, v := range row {
		saved[c] = v
	}
	saved[pk] = float64(id)
	t.rows[id] = saved
	return copyRow(saved), nil
}

func (t *table) Update(ctx context.Context, column string, value interface{}, patch remote.Row) (remote.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	patch = normalizeRow(patch)
	if err := t.checkColumns(column); err != nil {
		return nil, err
	}
	for col := range patch {
		if err := t.checkColumns(col); err != nil {
			return nil, err
		}
	}

	t.mutex.Lock()
	defer t.mutex.Unlock()

	rows := t.query(normalizeRow(remote.Row{column: value}))
	if len(rows) != 1 {
		return nil, core.ErrNotFound
	}
	row := rows[0]
	id, _ := toFloat(row[pk])
	if err := t.checkUnique(patch, int64(id)); err != nil {
		return nil, err
	}
	for c, v := range patch {
		if c == pk {
			continue
		}
		row[c] = v
	}
	return copyRow(row), nil
}

func (t *table) Delete(ctx context.Context, column string, value interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.checkColumns(column); err != nil {
		return err
	}

	t.mutex.Lock()
	defer t.mutex.Unlock()

	for _, row := range t.query(normalizeRow(remote.Row{column: value})) {
		id, _ := toFloat(row[pk])
		delete(t.rows, int64(id))
	}
	return nil
}

// checkUnique rejects row if one of its unique columns is already taken by a row other than exclID.
func (t *table) checkUnique(row remote.Row, exclID int64) error {
	for _, col := range t.unique {
		v, ok := row[col]
		if !ok || v == nil {
			continue
		}
		for id, other := range t.rows {
			if id != exclID && compare(other[col], v) == 0 {
				return duplicateKey(t.name, col, v)
			}
		}
	}
	return nil
}

func duplicateKey(table, col string, v interface{}) error {
	return &core.RemoteError{
		Status:  http.StatusConflict,
		Code:    "23505",
		Message: fmt.Sprintf("duplicate key value violates unique constraint \"%s_%s_key\": (%s)=(%v) already exists", table, col, col, v),
	}
}

func invalidInput(v interface{}) error {
	return &core.RemoteError{
		Status:  http.StatusBadRequest,
		Code:    "22P02",
		Message: fmt.Sprintf("invalid input syntax for type bigint: %q", fmt.Sprint(v)),
	}
}

// missingTable fails every call with the error of an undefined relation.
type missingTable string

func (m missingTable) err() error {
	return &core.RemoteError{
		Status:  http.StatusNotFound,
		Code:    "42P01",
		Message: fmt.Sprintf("relation \"public.%s\" does not exist", string(m)),
	}
}

func (m missingTable) Select(context.Context, remote.Query) ([]remote.Row, error) {
	return nil, m.err()
}
func (m missingTable) SelectOne(context.Context, string, interface{}, ...string) (remote.Row, error) {
	return nil, m.err()
}
func (m missingTable) Insert(context.Context, remote.Row) (remote.Row, error) { return nil, m.err() }
func (m missingTable) Update(context.Context, string, interface{}, remote.Row) (remote.Row, error) {
	return nil, m.err()
}
func (m missingTable) Delete(context.Context, string, interface{}) error { return m.err() }

// normalizeRow gives row the shape it would have after a JSON round-trip: numbers become float64, times strings.
func normalizeRow(row map[string]interface{}) remote.Row {
	if row == nil {
		return nil
	}
	data, err := json.Marshal(row)
	if err != nil {
		return copyRow(row)
	}
	var out remote.Row
	if err = json.Unmarshal(data, &out); err != nil {
		return copyRow(row)
	}
	return out
}

func copyRow(row map[string]interface{}) remote.Row {
	out := make(remote.Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}
