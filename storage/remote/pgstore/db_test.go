package pgstore_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/remote"
	"github.com/trezcool/academia/storage/remote/pgstore"
)

// open connects to TEST_DATABASE_URL, migrated from scratch; the test is skipped when it is not set.
func open(t *testing.T, opts pgstore.Options) *pgstore.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}
	opts.AppName, opts.SecretKey, opts.TokenExpiration = "academia-test", "test-secret", time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := pgstore.Open(ctx, dsn, opts)
	require.NoError(t, err)
	db.SetHashCost(bcrypt.MinCost)
	require.NoError(t, db.Migrate("reset"))
	require.NoError(t, db.Migrate("up"))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestDB_RequiresSession(t *testing.T) {
	db := open(t, pgstore.Options{})
	ctx := context.Background()

	_, err := db.From(remote.TableRoles).Select(ctx, remote.Query{})
	var rErr *core.RemoteError
	require.True(t, errors.As(err, &rErr))
	assert.Equal(t, 401, rErr.Status)

	_, err = db.Auth().SignUp(ctx, "ana@uni.edu", "secreto", map[string]interface{}{"nombre": "Ana"})
	require.NoError(t, err)
	_, err = db.From(remote.TableRoles).Select(ctx, remote.Query{})
	require.NoError(t, err)

	require.NoError(t, db.Auth().SignOut(ctx))
	s, err := db.Auth().SignInWithPassword(ctx, "ana@uni.edu", "secreto")
	require.NoError(t, err)
	assert.Equal(t, "Ana", s.User.Metadata["nombre"])

	_, err = db.Auth().SignUp(ctx, "ana@uni.edu", "secreto", nil)
	require.True(t, errors.As(err, &rErr))
	assert.Equal(t, "user_already_exists", rErr.Code)
}

func TestDB_Tables(t *testing.T) {
	db := open(t, pgstore.Options{ServiceRole: true})
	ctx := context.Background()

	rol, err := db.From(remote.TableRoles).Insert(ctx, remote.Row{"nombre": "Profesor"})
	require.NoError(t, err)
	assert.Equal(t, float64(1), rol["id"])

	usr, err := db.From(remote.TableUsers).Insert(ctx, remote.Row{
		"nombre": "Marta", "apellido": "Lopez", "correo": "marta@uni.edu", "password": "$2a$hash", "rol_id": rol["id"],
	})
	require.NoError(t, err)
	assert.Equal(t, true, usr["activo"])
	assert.NotContains(t, usr, "password")

	_, err = db.From(remote.TableUsers).Insert(ctx, remote.Row{
		"nombre": "M", "apellido": "L", "correo": "marta@uni.edu", "rol_id": rol["id"],
	})
	var rErr *core.RemoteError
	require.True(t, errors.As(err, &rErr))
	assert.Equal(t, "23505", rErr.Code)
	assert.Equal(t, 409, rErr.Status)

	_, err = db.From(remote.TableUsers).Select(ctx, remote.Query{Columns: []string{"telefono"}})
	require.True(t, errors.As(err, &rErr))
	assert.Equal(t, "42703", rErr.Code)

	students := db.From(remote.TableStudents)
	for _, name := range []string{"Luis", "Ana", "Beatriz"} {
		_, err = students.Insert(ctx, remote.Row{"nombre": name, "correo": name + "@uni.edu", "carrera": "Sistemas", "semestre": 2})
		require.NoError(t, err)
	}
	rows, err := students.Select(ctx, remote.Query{
		Columns: []string{"nombre"},
		Eq:      map[string]interface{}{"estado": "activo"},
		Order:   &core.Ordering{Field: "nombre", Ascending: true},
		Limit:   2,
	})
	require.NoError(t, err)
	assert.Equal(t, []remote.Row{{"nombre": "Ana"}, {"nombre": "Beatriz"}}, rows)

	updated, err := students.Update(ctx, "correo", "Ana@uni.edu", remote.Row{"semestre": 3})
	require.NoError(t, err)
	assert.Equal(t, float64(3), updated["semestre"])

	_, err = students.Update(ctx, "carrera", "Sistemas", remote.Row{"semestre": 9})
	assert.Equal(t, core.ErrNotFound, err, "several rows match")

	require.NoError(t, students.Delete(ctx, "correo", "Luis@uni.edu"))
	_, err = students.SelectOne(ctx, "correo", "Luis@uni.edu")
	assert.Equal(t, core.ErrNotFound, err)

	msg, err := db.From(remote.TableMessages).Insert(ctx, remote.Row{"autor": "ana@uni.edu", "contenido": "hola"})
	require.NoError(t, err)
	_, err = time.Parse(time.RFC3339Nano, msg["creado_en"].(string))
	assert.NoError(t, err)
}
