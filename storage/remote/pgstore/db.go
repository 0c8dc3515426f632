// Package pgstore is a self-hosted remote data service over PostgreSQL.
package pgstore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/remote"
	"github.com/trezcool/academia/storage/remote/jwtauth"
)

const driverName = "postgres"

//go:embed migrations/*.sql
var migrations embed.FS

// tables reachable through From.
var tables = map[string]bool{
	remote.TableUsers:      true,
	remote.TableRoles:      true,
	remote.TableStudents:   true,
	remote.TableActivities: true,
	remote.TableGroups:     true,
	remote.TableCourses:    true,
	remote.TableMessages:   true,
}

// writeOnly columns are accepted on writes but never returned.
var writeOnly = map[string][]string{
	remote.TableUsers: {"password"},
}

type Options struct {
	AppName         string
	SecretKey       string
	TokenExpiration time.Duration
	// ServiceRole skips the signed-in check on table calls (admin tooling).
	ServiceRole bool
}

type DB struct {
	db   *sqlx.DB
	auth *jwtauth.Auth
	opts Options
}

var _ remote.Service = (*DB)(nil)

// URL builds the connection URL of dbName; admin connects with the admin credentials when set.
func URL(conf core.DatabaseConfig, dbName string, admin bool) string {
	user := url.UserPassword(conf.User, conf.Password)
	if admin && conf.AdminUser != "" {
		user = url.UserPassword(conf.AdminUser, conf.AdminPassword)
	}

	sslMode := "require"
	if conf.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   driverName,
		User:     user,
		Host:     conf.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// Open connects to dsn and waits for the database to answer.
func Open(ctx context.Context, dsn string, opts Options) (*DB, error) {
	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err = ping(ctx, db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	issuer := jwtauth.NewIssuer(opts.AppName, opts.SecretKey, opts.TokenExpiration)
	return &DB{db: db, auth: jwtauth.NewAuth(issuer, &accounts{db: db}), opts: opts}, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(ctx context.Context, db *sql.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "DB ping")
		case <-time.After(time.Duration(attempts) * 100 * time.Millisecond):
		}
	}
	return errors.Wrap(err, "DB ping timeout")
}

func (db *DB) From(name string) remote.Table {
	if !tables[name] {
		return missingTable(name)
	}
	return &table{db: db, name: name}
}

func (db *DB) Auth() remote.Auth { return db.auth }

// SetHashCost sets the bcrypt cost of new account passwords.
func (db *DB) SetHashCost(cost int) { db.auth.SetHashCost(cost) }

func (db *DB) Close() error {
	return db.db.Close()
}

// Migrate runs a goose command (up, down, status, redo, version...) with the embedded migrations.
func (db *DB) Migrate(command string, args ...string) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect(driverName); err != nil {
		return errors.Wrap(err, "setting dialect")
	}
	if err := goose.Run(command, db.db.DB, "migrations", args...); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}

func exists(ctx context.Context, db *sqlx.DB, query, name string) (bool, error) {
	var found bool
	err := db.GetContext(ctx, &found, query, name)
	switch {
	case errors.Cause(err) == sql.ErrNoRows:
		return false, nil
	case err != nil:
		return false, err
	}
	return found, nil
}

// CreateIfNotExist creates the application user and database, connecting as admin.
func CreateIfNotExist(ctx context.Context, conf core.DatabaseConfig) error {
	admin, err := sqlx.Open(driverName, URL(conf, "postgres", true))
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = admin.Close() }()
	if err = ping(ctx, admin.DB); err != nil {
		return errors.Wrap(err, "pinging database")
	}

	if conf.User != "" {
		found, err := exists(ctx, admin, "SELECT true FROM pg_roles WHERE rolname = $1", conf.User)
		if err != nil {
			return errors.Wrap(err, "checking app user")
		}
		if !found {
			q := fmt.Sprintf("CREATE USER %s CREATEDB ENCRYPTED PASSWORD %s", pq.QuoteIdentifier(conf.User), pq.QuoteLiteral(conf.Password))
			if _, err = admin.ExecContext(ctx, q); err != nil {
				return errors.Wrap(err, "creating app user")
			}
		}
	}

	// create DB as app user
	app, err := sqlx.Open(driverName, URL(conf, "postgres", false))
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = app.Close() }()

	found, err := exists(ctx, app, "SELECT true FROM pg_database WHERE datname = $1", conf.Name)
	if err != nil {
		return errors.Wrap(err, "checking DB")
	}
	if !found {
		if _, err = app.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(conf.Name)); err != nil {
			return errors.Wrap(err, "creating database")
		}
	}
	return nil
}
