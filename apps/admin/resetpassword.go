package main

import (
	"context"

	"github.com/trezcool/academia/core/user"
)

func (cli *commandLine) resetPassword(ctx context.Context, email, pwd string) error {
	usr, err := cli.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	_, err = cli.users.Update(ctx, usr.ID, user.UpdateUser{Password: pwd})
	return err
}
