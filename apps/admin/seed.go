package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) seed(ctx context.Context) error {
	n, err := cli.roles.Seed(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "%d roles inserted\n", n)
	return nil
}
