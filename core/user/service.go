// Package user manages the usuarios table: the operators of the application.
package user

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/crud"
	"github.com/trezcool/academia/core/remote"
	"github.com/trezcool/academia/core/role"
)

type (
	Service struct {
		users *crud.Adapter[User]
		roles *role.Service
	}

	// Listing is the Usuarios page: the filtered users plus the roles to label and filter them with.
	Listing struct {
		Users  []User      `json:"users"`
		Roles  []role.Role `json:"roles"`
		Filter QueryFilter `json:"filter"`
		Total  int         `json:"total"`
	}
)

func NewService(svc remote.Service, roles *role.Service, opts ...crud.Option) *Service {
	return &Service{
		users: crud.New[User](svc, remote.TableUsers, opts...),
		roles: roles,
	}
}

// checkReferences reports a field error if correo is taken or rolID does not exist. Zero values are skipped.
func (svc *Service) checkReferences(ctx context.Context, correo string, rolID int64) error {
	var flds []core.FieldError
	if correo != "" {
		if _, err := svc.GetByEmail(ctx, correo); err == nil {
			flds = append(flds, core.FieldError{Field: "correo", Error: emailExistsText})
		} else if errors.Cause(err) != core.ErrNotFound {
			return err
		}
	}
	if rolID != 0 {
		ok, err := svc.roles.Exists(ctx, rolID)
		if err != nil {
			return err
		}
		if !ok {
			flds = append(flds, core.FieldError{Field: "rol_id", Error: roleNotFoundText})
		}
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

// List loads users and roles concurrently and applies qf to the users.
func (svc *Service) List(ctx context.Context, qf QueryFilter) (Listing, error) {
	users := crud.Go(func() ([]User, error) {
		return svc.users.FetchAll(ctx, crud.FetchOptions{OrderBy: "nombre", Ascending: true})
	})
	roles := crud.Go(func() ([]role.Role, error) { return svc.roles.List(ctx) })

	all, err := users.Wait()
	if err != nil {
		return Listing{}, err
	}
	rs, err := roles.Wait()
	if err != nil {
		return Listing{}, err
	}
	qf.Clean()
	return Listing{Users: Filter(all, qf), Roles: rs, Filter: qf, Total: len(all)}, nil
}

// Search filters the users of the last List without a remote call.
func (svc *Service) Search(qf QueryFilter) []User {
	return Filter(svc.users.Items(), qf)
}

func (svc *Service) GetByID(ctx context.Context, id int64) (User, error) {
	return svc.users.FetchByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.users.FetchOneBy(ctx, "correo", core.CleanString(email, true /* lower */))
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	if err := nu.Validate(ctx, svc); err != nil {
		return User{}, err
	}
	row, err := nu.payload()
	if err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.users.Create(ctx, row)
}

func (svc *Service) Update(ctx context.Context, id int64, uu UpdateUser) (User, error) {
	orig, err := svc.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if err = uu.Validate(ctx, orig, svc); err != nil {
		return User{}, err
	}
	row, err := uu.payload()
	if err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	if len(row) == 0 {
		return orig, nil
	}
	return svc.users.Update(ctx, id, row)
}

// UpdateProfile changes the names of the user whose correo is email.
func (svc *Service) UpdateProfile(ctx context.Context, email string, up UpdateProfile) (User, error) {
	if err := up.Validate(); err != nil {
		return User{}, err
	}
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}
	return svc.users.Update(ctx, usr.ID, remote.Row{"nombre": up.Nombre, "apellido": up.Apellido})
}

// Delete removes the user with id. Without confirmation nothing is sent to the remote service.
func (svc *Service) Delete(ctx context.Context, id int64, confirmed bool) error {
	if !confirmed {
		return core.ErrConfirmationRequired
	}
	_, err := svc.users.Remove(ctx, id)
	return err
}
