package crud

import (
	"bytes"
	"encoding/json"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/remote"
)

// schema lists the columns of a record type, read from its json tags.
// Columns tagged `omitempty` may be absent from remote rows; every other projected column is required.
type schema struct {
	columns  []string
	known    map[string]bool
	optional map[string]bool
}

var schemaCache sync.Map // reflect.Type -> *schema

func schemaOf(t reflect.Type) *schema {
	if s, ok := schemaCache.Load(t); ok {
		return s.(*schema)
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	s := &schema{known: make(map[string]bool), optional: make(map[string]bool)}
	collectColumns(t, s)
	schemaCache.Store(t, s)
	return s
}

func collectColumns(t reflect.Type, s *schema) {
	for i := 0; i < t.NumField(); i++ {
		fld := t.Field(i)
		if fld.PkgPath != "" && !fld.Anonymous { // unexported
			continue
		}
		tag := fld.Tag.Get("json")
		if tag == "-" {
			continue
		}
		parts := strings.Split(tag, ",")
		name := parts[0]
		if fld.Anonymous && name == "" && fld.Type.Kind() == reflect.Struct {
			collectColumns(fld.Type, s)
			continue
		}
		if name == "" {
			name = fld.Name
		}
		s.columns = append(s.columns, name)
		s.known[name] = true
		for _, opt := range parts[1:] {
			if opt == "omitempty" {
				s.optional[name] = true
			}
		}
	}
}

// check reports unknown columns of row and required projected columns missing from it.
func (s *schema) check(row remote.Row, projection []string) (unknown, missing []string) {
	for col := range row {
		if !s.known[col] {
			unknown = append(unknown, col)
		}
	}
	if len(projection) == 0 {
		projection = s.columns
	}
	for _, col := range projection {
		if s.optional[col] {
			continue
		}
		if _, ok := row[col]; !ok {
			missing = append(missing, col)
		}
	}
	sort.Strings(unknown)
	sort.Strings(missing)
	return unknown, missing
}

func (s *schema) unknownColumns(cols []string) []string {
	var unknown []string
	for _, c := range cols {
		if !s.known[c] {
			unknown = append(unknown, c)
		}
	}
	return unknown
}

// decodeRow strictly decodes row into a T.
func decodeRow[T any](table string, s *schema, row remote.Row, projection []string) (T, error) {
	var rec T
	if unknown, missing := s.check(row, projection); len(unknown) > 0 || len(missing) > 0 {
		return rec, &core.SchemaMismatchError{Table: table, Unknown: unknown, Missing: missing}
	}
	data, err := json.Marshal(row)
	if err != nil {
		return rec, &core.SchemaMismatchError{Table: table, Err: err}
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err = dec.Decode(&rec); err != nil {
		return rec, &core.SchemaMismatchError{Table: table, Err: err}
	}
	return rec, nil
}

// toRow converts a payload (remote.Row, map or json-tagged struct) into a remote.Row.
func toRow(data interface{}) (remote.Row, error) {
	switch d := data.(type) {
	case remote.Row:
		return copyRow(d), nil
	case map[string]interface{}:
		return copyRow(d), nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var row remote.Row
	if err = json.Unmarshal(raw, &row); err != nil {
		return nil, err
	}
	return row, nil
}

// copyRow returns a shallow copy so that callers keep ownership of the map they passed in.
func copyRow(m map[string]interface{}) remote.Row {
	row := make(remote.Row, len(m))
	for k, v := range m {
		row[k] = v
	}
	return row
}
