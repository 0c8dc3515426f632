package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/remote"
	"github.com/trezcool/academia/storage/remote/jwtauth"
)

// accounts stores the password accounts in the cuentas table.
type accounts struct {
	db *sqlx.DB
}

var _ jwtauth.Accounts = (*accounts)(nil)

type accountRow struct {
	ID       string    `db:"id"`
	Correo   string    `db:"correo"`
	Hash     []byte    `db:"password_hash"`
	Metadata string    `db:"metadata"`
	CreadoEn time.Time `db:"creado_en"`
}

func (r accountRow) account() (jwtauth.Account, error) {
	usr := remote.User{ID: r.ID, Email: r.Correo, CreatedAt: r.CreadoEn.UTC()}
	if len(r.Metadata) > 0 {
		if err := json.Unmarshal([]byte(r.Metadata), &usr.Metadata); err != nil {
			return jwtauth.Account{}, errors.Wrap(err, "decoding metadata")
		}
		if len(usr.Metadata) == 0 {
			usr.Metadata = nil
		}
	}
	return jwtauth.Account{User: usr, Hash: r.Hash}, nil
}

func (m *accounts) find(ctx context.Context, column, value string) (jwtauth.Account, error) {
	var r accountRow
	q := "SELECT id, correo, password_hash, metadata, creado_en FROM cuentas WHERE " + pq.QuoteIdentifier(column) + " = $1"
	if err := m.db.GetContext(ctx, &r, q, value); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return jwtauth.Account{}, core.ErrNotFound
		}
		return jwtauth.Account{}, errors.Wrap(err, "selecting account")
	}
	return r.account()
}

func (m *accounts) FindByEmail(ctx context.Context, email string) (jwtauth.Account, error) {
	return m.find(ctx, "correo", email)
}

func (m *accounts) FindByID(ctx context.Context, id string) (jwtauth.Account, error) {
	return m.find(ctx, "id", id)
}

func (m *accounts) Create(ctx context.Context, acc jwtauth.Account) error {
	meta := "{}"
	if acc.User.Metadata != nil {
		data, err := json.Marshal(acc.User.Metadata)
		if err != nil {
			return errors.Wrap(err, "encoding metadata")
		}
		meta = string(data)
	}
	r := accountRow{ID: acc.User.ID, Correo: acc.User.Email, Hash: acc.Hash, Metadata: meta, CreadoEn: acc.User.CreatedAt}
	_, err := m.db.NamedExecContext(ctx, `
		INSERT INTO cuentas (id, correo, password_hash, metadata, creado_en)
		VALUES (:id, :correo, :password_hash, :metadata, :creado_en)`, r)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return jwtauth.ErrAccountExists
	}
	return errors.Wrap(err, "inserting account")
}
