package main

import "github.com/pkg/errors"

var errNoMigrations = errors.New("migrate needs the postgres backend")

func (cli *commandLine) migrate(args []string) error {
	m, ok := cli.svc.(migrator)
	if !ok {
		return errNoMigrations
	}
	return m.Migrate(args[0], args[1:]...)
}
