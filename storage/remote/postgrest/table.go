package postgrest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/remote"
)

const returnRepresentation = "return=representation"

type table struct {
	client *Client
	name   string
}

var _ remote.Table = (*table)(nil)

// filterValue renders v as a PostgREST filter operand.
func filterValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "is.null"
	case string:
		return "eq." + val
	case bool:
		return "is." + strconv.FormatBool(val)
	case float64:
		return "eq." + strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return "eq." + strconv.FormatFloat(float64(val), 'f', -1, 32)
	case time.Time:
		return "eq." + val.UTC().Format(time.RFC3339Nano)
	}
	return fmt.Sprintf("eq.%v", v)
}

func filters(eq map[string]interface{}) url.Values {
	q := make(url.Values, len(eq)+3)
	for col, v := range eq {
		q.Set(col, filterValue(v))
	}
	return q
}

func (t *table) token(ctx context.Context) string {
	if s := t.client.auth.current(ctx); s != nil {
		return s.AccessToken
	}
	return ""
}

func (t *table) Select(ctx context.Context, q remote.Query) ([]remote.Row, error) {
	query := filters(q.Eq)
	if len(q.Columns) > 0 {
		query.Set("select", strings.Join(q.Columns, ","))
	} else {
		query.Set("select", "*")
	}
	if q.Order != nil {
		dir := "desc"
		if q.Order.Ascending {
			dir = "asc"
		}
		query.Set("order", q.Order.Field+"."+dir)
	}
	if q.Limit > 0 {
		query.Set("limit", strconv.Itoa(q.Limit))
	}

	var rows []remote.Row
	err := t.client.do(ctx, request{
		method: http.MethodGet,
		path:   restPath + t.name,
		query:  query,
		token:  t.token(ctx),
	}, &rows)
	if err != nil {
		return nil, err
	}
	return rows, nil
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
	var rows []remote.Row
	err := t.client.do(ctx, request{
		method:  http.MethodPost,
		path:    restPath + t.name,
		body:    row,
		token:   t.token(ctx),
		headers: map[string]string{"Prefer": returnRepresentation},
	}, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) != 1 {
		return nil, &core.RemoteError{Status: http.StatusOK, Message: fmt.Sprintf("insert into %s returned %d rows", t.name, len(rows))}
	}
	return rows[0], nil
}

func (t *table) Update(ctx context.Context, column string, value interface{}, patch remote.Row) (remote.Row, error) {
	var rows []remote.Row
	err := t.client.do(ctx, request{
		method:  http.MethodPatch,
		path:    restPath + t.name,
		query:   filters(map[string]interface{}{column: value}),
		body:    patch,
		token:   t.token(ctx),
		headers: map[string]string{"Prefer": returnRepresentation},
	}, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) != 1 {
		return nil, core.ErrNotFound
	}
	return rows[0], nil
}

func (t *table) Delete(ctx context.Context, column string, value interface{}) error {
	return t.client.do(ctx, request{
		method: http.MethodDelete,
		path:   restPath + t.name,
		query:  filters(map[string]interface{}{column: value}),
		token:  t.token(ctx),
	}, nil)
}
