package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/remote"
)

type table struct {
	db   *DB
	name string
}

var _ remote.Table = (*table)(nil)

func (t *table) authorize(ctx context.Context) error {
	if t.db.opts.ServiceRole {
		return nil
	}
	_, err := t.db.auth.Authorize(ctx)
	return err
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func columnList(cols []string) string {
	if len(cols) == 0 {
		return "*"
	}
	quoted := make([]string, 0, len(cols))
	for _, c := range cols {
		quoted = append(quoted, pq.QuoteIdentifier(c))
	}
	return strings.Join(quoted, ", ")
}

// where renders eq as an ANDed condition list whose placeholders start at $next.
func where(eq map[string]interface{}, next int) (string, []interface{}) {
	if len(eq) == 0 {
		return "", nil
	}
	conds := make([]string, 0, len(eq))
	args := make([]interface{}, 0, len(eq))
	for _, col := range sortedKeys(eq) {
		v := eq[col]
		if v == nil {
			conds = append(conds, pq.QuoteIdentifier(col)+" IS NULL")
			continue
		}
		conds = append(conds, fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(col), next))
		args = append(args, v)
		next++
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func buildSelect(name string, q remote.Query) (string, []interface{}) {
	var sb strings.Builder
	sb.WriteString("SELECT " + columnList(q.Columns) + " FROM " + pq.QuoteIdentifier(name))
	cond, args := where(q.Eq, 1)
	sb.WriteString(cond)
	if q.Order != nil {
		dir := "DESC"
		if q.Order.Ascending {
			dir = "ASC"
		}
		sb.WriteString(" ORDER BY " + pq.QuoteIdentifier(q.Order.Field) + " " + dir)
	}
	if q.Limit > 0 {
		sb.WriteString(" LIMIT " + strconv.Itoa(q.Limit))
	}
	return sb.String(), args
}

func buildInsert(name string, row remote.Row) (string, []interface{}) {
	if len(row) == 0 {
		return "INSERT INTO " + pq.QuoteIdentifier(name) + " DEFAULT VALUES RETURNING *", nil
	}
	cols := sortedKeys(row)
	quoted := make([]string, 0, len(cols))
	holders := make([]string, 0, len(cols))
	args := make([]interface{}, 0, len(cols))
	for i, c := range cols {
		quoted = append(quoted, pq.QuoteIdentifier(c))
		holders = append(holders, "$"+strconv.Itoa(i+1))
		args = append(args, row[c])
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		pq.QuoteIdentifier(name), strings.Join(quoted, ", "), strings.Join(holders, ", ")), args
}

func buildUpdate(name, column string, value interface{}, patch remote.Row) (string, []interface{}) {
	cols := sortedKeys(patch)
	sets := make([]string, 0, len(cols))
	args := make([]interface{}, 0, len(cols)+1)
	for i, c := range cols {
		sets = append(sets, fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(c), i+1))
		args = append(args, patch[c])
	}
	cond, condArgs := where(map[string]interface{}{column: value}, len(cols)+1)
	if len(sets) == 0 {
		// no-op update still returns the row
		sets = append(sets, pq.QuoteIdentifier(column)+" = "+pq.QuoteIdentifier(column))
	}
	return fmt.Sprintf("UPDATE %s SET %s%s RETURNING *",
		pq.QuoteIdentifier(name), strings.Join(sets, ", "), cond), append(args, condArgs...)
}

func buildDelete(name, column string, value interface{}) (string, []interface{}) {
	cond, args := where(map[string]interface{}{column: value}, 1)
	return "DELETE FROM " + pq.QuoteIdentifier(name) + cond, args
}

type queryer interface {
	QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error)
}

// scan reads every row of query into remote rows shaped like JSON documents.
func (t *table) scan(ctx context.Context, q queryer, query string, args []interface{}) ([]remote.Row, error) {
	rows, err := q.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, remoteError(err)
	}
	defer func() { _ = rows.Close() }()

	res := make([]remote.Row, 0)
	for rows.Next() {
		m := make(map[string]interface{})
		if err = rows.MapScan(m); err != nil {
			return nil, errors.Wrap(err, "scanning row")
		}
		row, err := t.normalize(m)
		if err != nil {
			return nil, err
		}
		res = append(res, row)
	}
	if err = rows.Err(); err != nil {
		return nil, remoteError(err)
	}
	return res, nil
}

// normalize drops write-only columns and round-trips m through JSON, the way a REST backend returns it.
func (t *table) normalize(m map[string]interface{}) (remote.Row, error) {
	for _, c := range writeOnly[t.name] {
		delete(m, c)
	}
	for k, v := range m {
		if b, ok := v.([]byte); ok {
			m[k] = string(b)
		}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(err, "encoding row")
	}
	var row remote.Row
	if err = json.Unmarshal(data, &row); err != nil {
		return nil, errors.Wrap(err, "decoding row")
	}
	return row, nil
}

func (t *table) Select(ctx context.Context, q remote.Query) ([]remote.Row, error) {
	if err := t.authorize(ctx); err != nil {
		return nil, err
	}
	query, args := buildSelect(t.name, q)
	return t.scan(ctx, t.db.db, query, args)
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
	if err := t.authorize(ctx); err != nil {
		return nil, err
	}
	query, args := buildInsert(t.name, row)
	rows, err := t.scan(ctx, t.db.db, query, args)
	if err != nil {
		return nil, err
	}
	return rows[0], nil
}

// Update patches the single row where column = value; it changes nothing when several rows match.
func (t *table) Update(ctx context.Context, column string, value interface{}, patch remote.Row) (res remote.Row, err error) {
	if err = t.authorize(ctx); err != nil {
		return nil, err
	}
	tx, err := t.db.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, remoteError(err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	query, args := buildUpdate(t.name, column, value, patch)
	rows, err := t.scan(ctx, tx, query, args)
	if err != nil {
		return nil, err
	}
	if len(rows) != 1 {
		return nil, core.ErrNotFound
	}
	if err = tx.Commit(); err != nil {
		return nil, remoteError(err)
	}
	return rows[0], nil
}

func (t *table) Delete(ctx context.Context, column string, value interface{}) error {
	if err := t.authorize(ctx); err != nil {
		return err
	}
	query, args := buildDelete(t.name, column, value)
	if _, err := t.db.db.ExecContext(ctx, query, args...); err != nil {
		return remoteError(err)
	}
	return nil
}

// remoteError converts driver errors into *core.RemoteError, with PostgREST's status mapping.
func remoteError(err error) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return core.ErrNotFound
	}
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	status := http.StatusBadRequest
	switch {
	case pqErr.Code == "23505", pqErr.Code == "23503":
		status = http.StatusConflict
	case pqErr.Code == "42P01":
		status = http.StatusNotFound
	case pqErr.Code == "42501":
		status = http.StatusForbidden
	case pqErr.Code.Class() == "08", pqErr.Code.Class() == "53", pqErr.Code.Class() == "57":
		status = http.StatusServiceUnavailable
	}
	return &core.RemoteError{Status: status, Code: string(pqErr.Code), Message: pqErr.Message}
}

type missingTable string

func (name missingTable) err() error {
	return &core.RemoteError{
		Status:  http.StatusNotFound,
		Code:    "42P01",
		Message: fmt.Sprintf("relation %q does not exist", string(name)),
	}
}

func (name missingTable) Select(context.Context, remote.Query) ([]remote.Row, error) {
	return nil, name.err()
}

func (name missingTable) SelectOne(context.Context, string, interface{}, ...string) (remote.Row, error) {
	return nil, name.err()
}

func (name missingTable) Insert(context.Context, remote.Row) (remote.Row, error) {
	return nil, name.err()
}

func (name missingTable) Update(context.Context, string, interface{}, remote.Row) (remote.Row, error) {
	return nil, name.err()
}

func (name missingTable) Delete(context.Context, string, interface{}) error {
	return name.err()
}
