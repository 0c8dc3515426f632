// Package testutil provides fixtures over the in-memory remote service.
package testutil

import (
	"context"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/academia/core/remote"
	"github.com/trezcool/academia/storage/remote/inmem"
)

const SecretKey = "test-secret"

func OpenDB(t *testing.T) *inmem.DB {
	t.Helper()
	db := inmem.Open(inmem.Options{
		AppName:         "academia-test",
		SecretKey:       SecretKey,
		TokenExpiration: time.Hour,
		HashCost:        bcrypt.MinCost,
	})
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func insert(t *testing.T, svc remote.Service, table string, row remote.Row) int64 {
	t.Helper()
	saved, err := svc.From(table).Insert(context.Background(), row)
	if err != nil {
		t.Fatalf("inserting into %s failed: %v", table, err)
	}
	id, ok := saved["id"].(float64)
	if !ok {
		t.Fatalf("inserting into %s returned id %v", table, saved["id"])
	}
	return int64(id)
}

func CreateRole(t *testing.T, svc remote.Service, nombre string) int64 {
	return insert(t, svc, remote.TableRoles, remote.Row{"nombre": nombre})
}

func CreateUser(t *testing.T, svc remote.Service, nombre, apellido, correo, pwd string, rolID int64, activo bool) int64 {
	t.Helper()
	row := remote.Row{"nombre": nombre, "apellido": apellido, "correo": correo, "rol_id": rolID, "activo": activo}
	if pwd != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.MinCost)
		if err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
		row["password"] = string(hash)
	}
	return insert(t, svc, remote.TableUsers, row)
}

func CreateStudent(t *testing.T, svc remote.Service, nombre, correo, carrera string, semestre int, estado string) int64 {
	return insert(t, svc, remote.TableStudents, remote.Row{
		"nombre": nombre, "correo": correo, "carrera": carrera, "semestre": semestre, "estado": estado,
	})
}

func CreateCourse(t *testing.T, svc remote.Service, codigo, nombre string) int64 {
	return insert(t, svc, remote.TableCourses, remote.Row{"codigo": codigo, "nombre": nombre})
}

// CreateGroup creates a group; profesorID 0 leaves it without professor.
func CreateGroup(t *testing.T, svc remote.Service, cursoID int64, semestre string, profesorID int64) int64 {
	row := remote.Row{"curso_id": cursoID, "semestre": semestre, "profesor_id": nil}
	if profesorID != 0 {
		row["profesor_id"] = profesorID
	}
	return insert(t, svc, remote.TableGroups, row)
}

func CreateActivity(t *testing.T, svc remote.Service, grupoID int64, titulo, tipo, estado string, due time.Time, porcentaje float64) int64 {
	return insert(t, svc, remote.TableActivities, remote.Row{
		"grupo_id":      grupoID,
		"titulo":        titulo,
		"descripcion":   nil,
		"fecha_entrega": due.UTC(),
		"tipo":          tipo,
		"prioridad":     "Media",
		"estado":        estado,
		"porcentaje":    porcentaje,
	})
}

// SignUp registers an account and leaves it signed out.
func SignUp(t *testing.T, svc remote.Service, email, pwd string) {
	t.Helper()
	ctx := context.Background()
	if _, err := svc.Auth().SignUp(ctx, email, pwd, nil); err != nil {
		t.Fatalf("SignUp() failed: %v", err)
	}
	if err := svc.Auth().SignOut(ctx); err != nil {
		t.Fatalf("SignUp() failed: %v", err)
	}
}
