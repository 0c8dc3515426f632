// Package inmem is an in-process remote data service, used in development and tests.
package inmem

import (
	"sync"
	"time"

	"github.com/trezcool/academia/core/remote"
	"github.com/trezcool/academia/storage/remote/jwtauth"
)

// Columns of the academia tables, "id" first.
var Tables = map[string][]string{
	remote.TableUsers:      {"id", "nombre", "apellido", "correo", "password", "rol_id", "activo"},
	remote.TableRoles:      {"id", "nombre"},
	remote.TableStudents:   {"id", "nombre", "correo", "carrera", "semestre", "estado", "avatar"},
	remote.TableActivities: {"id", "grupo_id", "titulo", "descripcion", "fecha_entrega", "tipo", "prioridad", "estado", "porcentaje"},
	remote.TableGroups:     {"id", "semestre", "curso_id", "profesor_id"},
	remote.TableCourses:    {"id", "codigo", "nombre"},
	remote.TableMessages:   {"id", "autor", "contenido", "creado_en"},
}

var (
	columnDefaults = map[string]map[string]func() interface{}{
		remote.TableUsers:      {"activo": func() interface{} { return true }},
		remote.TableStudents:   {"estado": func() interface{} { return "activo" }},
		remote.TableActivities: {"estado": func() interface{} { return "Programada" }},
		remote.TableMessages:   {"creado_en": func() interface{} { return time.Now().UTC().Format(time.RFC3339Nano) }},
	}

	uniqueColumns = map[string][]string{
		remote.TableUsers:    {"correo"},
		remote.TableStudents: {"correo"},
		remote.TableCourses:  {"codigo"},
	}
)

type Options struct {
	AppName         string
	SecretKey       string
	TokenExpiration time.Duration
	// Tables overrides the column lists of Tables; nil keeps them.
	Tables map[string][]string
	// HashCost is the bcrypt cost of account passwords; 0 keeps the default.
	HashCost int
}

type DB struct {
	mu     sync.Mutex
	tables map[string]*table
	auth   *jwtauth.Auth
}

var _ remote.Service = (*DB)(nil)

func Open(opts Options) *DB {
	schemas := Tables
	if opts.Tables != nil {
		schemas = opts.Tables
	}
	db := &DB{tables: make(map[string]*table, len(schemas))}
	for name, cols := range schemas {
		db.tables[name] = newTable(name, cols, columnDefaults[name], uniqueColumns[name])
	}
	db.auth = jwtauth.NewAuth(jwtauth.NewIssuer(opts.AppName, opts.SecretKey, opts.TokenExpiration), newAccounts())
	if opts.HashCost > 0 {
		db.auth.SetHashCost(opts.HashCost)
	}
	return db
}

// From returns the named table. Unknown tables fail every call the way a missing relation would.
func (db *DB) From(name string) remote.Table {
	db.mu.Lock()
	defer db.mu.Unlock()
	if t, ok := db.tables[name]; ok {
		return t
	}
	return missingTable(name)
}

func (db *DB) Auth() remote.Auth { return db.auth }

// Close keeps the current session; signing out is an explicit operator action.
func (db *DB) Close() error { return nil }
