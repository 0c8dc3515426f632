package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

// addUser signs an account up and, when nombre is set, creates its usuarios row with the role named rol.
func (cli *commandLine) addUser(ctx context.Context, email, pwd, nombre, apellido, rol string) error {
	email = core.CleanString(email, true /* lower */)
	withRow := core.CleanString(nombre) != ""

	var rolID int64
	if withRow {
		var err error
		if rolID, err = cli.roleID(ctx, rol); err != nil {
			return err
		}
	}

	auth := cli.svc.Auth()

	s, err := auth.SignUp(ctx, email, pwd, map[string]interface{}{"nombre": nombre, "apellido": apellido})
	if err != nil {
		return errors.Wrap(err, "signing up")
	}
	if s == nil {
		_, _ = fmt.Fprintf(cli.out, "%s must confirm their email before signing in\n", email)
	} else {
		_, _ = fmt.Fprintf(cli.out, "account %s created\n", s.User.ID)
		defer func() { _ = auth.SignOut(ctx) }()
	}

	if !withRow {
		return nil
	}
	usr, err := cli.users.Create(ctx, user.NewUser{
		Nombre:   nombre,
		Apellido: apellido,
		Correo:   email,
		Password: pwd,
		RolID:    rolID,
	})
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	_, _ = fmt.Fprintf(cli.out, "user %d created\n", usr.ID)
	return nil
}

func (cli *commandLine) roleID(ctx context.Context, name string) (int64, error) {
	roles, err := cli.roles.List(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "listing roles")
	}
	name = core.CleanString(name, true /* lower */)
	for _, r := range roles {
		if core.CleanString(r.Nombre, true /* lower */) == name {
			return r.ID, nil
		}
	}
	return 0, errors.Errorf("role %q not found, run `seed` first", name)
}
