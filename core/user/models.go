package user

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/remote"
)

// User is a row of usuarios. The password column is write-only and never selected.
type User struct {
	ID       int64  `json:"id"`
	Nombre   string `json:"nombre"`
	Apellido string `json:"apellido"`
	Correo   string `json:"correo"`
	RolID    int64  `json:"rol_id"`
	Activo   bool   `json:"activo"`
}

func (u User) RecordID() int64 { return u.ID }

func (u User) FullName() string {
	return core.CleanString(u.Nombre + " " + u.Apellido)
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Nombre   string `json:"nombre" validate:"notblank"`
	Apellido string `json:"apellido" validate:"notblank"`
	Correo   string `json:"correo" validate:"required,correo"`
	Password string `json:"password"`
	RolID    int64  `json:"rol_id" validate:"required"`
	Activo   *bool  `json:"activo"`
}

func (nu *NewUser) clean() {
	nu.Nombre = core.CleanString(nu.Nombre)
	nu.Apellido = core.CleanString(nu.Apellido)
	nu.Correo = core.CleanString(nu.Correo, true /* lower */)
}

func (nu *NewUser) Validate(ctx context.Context, svc *Service) error {
	nu.clean()
	if err := core.ValidateStruct(nu); err != nil {
		return err
	}
	return svc.checkReferences(ctx, nu.Correo, nu.RolID)
}

// payload serializes nu into the row shape of usuarios, hashing the password.
func (nu NewUser) payload() (remote.Row, error) {
	hash, err := hashPassword(nu.Password)
	if err != nil {
		return nil, err
	}
	activo := true
	if nu.Activo != nil {
		activo = *nu.Activo
	}
	return remote.Row{
		"nombre":   nu.Nombre,
		"apellido": nu.Apellido,
		"correo":   nu.Correo,
		"password": hash,
		"rol_id":   nu.RolID,
		"activo":   activo,
	}, nil
}

// UpdateUser defines what information may be provided to modify an existing User.
// Blank fields keep their current value; the password is only changed when supplied.
type UpdateUser struct {
	Nombre   string `json:"nombre"`
	Apellido string `json:"apellido"`
	Correo   string `json:"correo" validate:"omitempty,correo"`
	Password string `json:"password"`
	RolID    int64  `json:"rol_id"`
	Activo   *bool  `json:"activo"`
}

func (uu *UpdateUser) Validate(ctx context.Context, orig User, svc *Service) error {
	uu.Nombre = core.CleanString(uu.Nombre)
	uu.Apellido = core.CleanString(uu.Apellido)
	uu.Correo = core.CleanString(uu.Correo, true /* lower */)

	if err := core.ValidateStruct(uu); err != nil {
		return err
	}

	correo, rolID := "", int64(0)
	if uu.Correo != "" && uu.Correo != orig.Correo {
		correo = uu.Correo
	}
	if uu.RolID != 0 && uu.RolID != orig.RolID {
		rolID = uu.RolID
	}
	return svc.checkReferences(ctx, correo, rolID)
}

// payload returns only the columns uu changes.
func (uu UpdateUser) payload() (remote.Row, error) {
	row := make(remote.Row)
	if uu.Nombre != "" {
		row["nombre"] = uu.Nombre
	}
	if uu.Apellido != "" {
		row["apellido"] = uu.Apellido
	}
	if uu.Correo != "" {
		row["correo"] = uu.Correo
	}
	if uu.RolID != 0 {
		row["rol_id"] = uu.RolID
	}
	if uu.Activo != nil {
		row["activo"] = *uu.Activo
	}
	if uu.Password != "" {
		hash, err := hashPassword(uu.Password)
		if err != nil {
			return nil, err
		}
		row["password"] = hash
	}
	return row, nil
}

// UpdateProfile is what the signed-in operator may change on their own row.
type UpdateProfile struct {
	Nombre   string `json:"nombre" validate:"notblank"`
	Apellido string `json:"apellido" validate:"notblank"`
}

func (up *UpdateProfile) Validate() error {
	up.Nombre = core.CleanString(up.Nombre)
	up.Apellido = core.CleanString(up.Apellido)
	return core.ValidateStruct(up)
}

type QueryFilter struct {
	Search string `query:"search"`
	RolID  int64  `query:"rol_id"`
	Activo *bool  `query:"activo"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.RolID == 0 && qf.Activo == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// Filter does a case-insensitive match of qf.Search on nombre, apellido or correo,
// ANDed with the exact-match filters.
func Filter(users []User, qf QueryFilter) []User {
	qf.Clean()
	res := make([]User, 0, len(users))
	for _, u := range users {
		if qf.RolID != 0 && u.RolID != qf.RolID {
			continue
		}
		if qf.Activo != nil && u.Activo != *qf.Activo {
			continue
		}
		if !core.MatchesAny(qf.Search, u.Nombre, u.Apellido, u.Correo) {
			continue
		}
		res = append(res, u)
	}
	return res
}

func hashPassword(pwd string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
