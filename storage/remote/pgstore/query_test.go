package pgstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/remote"
)

func TestBuildSelect(t *testing.T) {
	tests := []struct {
		name     string
		q        remote.Query
		wantSQL  string
		wantArgs []interface{}
	}{
		{
			name:    "everything",
			q:       remote.Query{},
			wantSQL: `SELECT * FROM "estudiantes"`,
		},
		{
			name: "projection filters order limit",
			q: remote.Query{
				Columns: []string{"id", "nombre"},
				Eq:      map[string]interface{}{"semestre": 3, "estado": "activo", "avatar": nil},
				Order:   &core.Ordering{Field: "nombre", Ascending: true},
				Limit:   5,
			},
			wantSQL:  `SELECT "id", "nombre" FROM "estudiantes" WHERE "avatar" IS NULL AND "estado" = $1 AND "semestre" = $2 ORDER BY "nombre" ASC LIMIT 5`,
			wantArgs: []interface{}{"activo", 3},
		},
		{
			name:    "quoted identifiers",
			q:       remote.Query{Order: &core.Ordering{Field: `nombre"; DROP TABLE roles; --`}},
			wantSQL: `SELECT * FROM "estudiantes" ORDER BY "nombre""; DROP TABLE roles; --" DESC`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			query, args := buildSelect(remote.TableStudents, tc.q)
			assert.Equal(t, tc.wantSQL, query)
			assert.Equal(t, tc.wantArgs, args)
		})
	}
}

func TestBuildWrites(t *testing.T) {
	query, args := buildInsert(remote.TableRoles, remote.Row{"nombre": "Profesor", "id": 3})
	assert.Equal(t, `INSERT INTO "roles" ("id", "nombre") VALUES ($1, $2) RETURNING *`, query)
	assert.Equal(t, []interface{}{3, "Profesor"}, args)

	query, args = buildUpdate(remote.TableStudents, "id", 7, remote.Row{"semestre": 4, "estado": "inactivo"})
	assert.Equal(t, `UPDATE "estudiantes" SET "estado" = $1, "semestre" = $2 WHERE "id" = $3 RETURNING *`, query)
	assert.Equal(t, []interface{}{"inactivo", 4, 7}, args)

	query, _ = buildUpdate(remote.TableStudents, "id", 7, remote.Row{})
	assert.Equal(t, `UPDATE "estudiantes" SET "id" = "id" WHERE "id" = $1 RETURNING *`, query)

	query, args = buildDelete(remote.TableStudents, "correo", "ana@uni.edu")
	assert.Equal(t, `DELETE FROM "estudiantes" WHERE "correo" = $1`, query)
	assert.Equal(t, []interface{}{"ana@uni.edu"}, args)
}

func TestNormalize(t *testing.T) {
	tbl := &table{name: remote.TableUsers}
	row, err := tbl.normalize(map[string]interface{}{
		"id": int64(1), "nombre": []byte("Ana"), "password": "$2a$hash", "activo": true,
	})
	assert.NoError(t, err)
	assert.Equal(t, remote.Row{"id": float64(1), "nombre": "Ana", "activo": true}, row)
}

func TestFrom_UnknownTable(t *testing.T) {
	db := &DB{}
	_, err := db.From("cuentas").Select(context.Background(), remote.Query{})
	assert.True(t, core.IsRemote(err))
}
