package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/academia/core/remote"
	"github.com/trezcool/academia/core/role"
	"github.com/trezcool/academia/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

// migrator is implemented by remote services whose schema the CLI manages.
type migrator interface {
	Migrate(command string, args ...string) error
}

type commandLine struct {
	svc   remote.Service
	users *user.Service
	roles *role.Service
	out   io.Writer
}

func newCommandLine(svc remote.Service, out io.Writer) *commandLine {
	roles := role.NewService(svc)
	return &commandLine{svc: svc, users: user.NewService(svc, roles), roles: roles, out: out}
}

func (cli *commandLine) printUsage() {
	_, _ = fmt.Fprintln(cli.out, "Usage:")
	_, _ = fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command against the postgres backend")
	_, _ = fmt.Fprintln(cli.out, "  adduser -email EMAIL [-nombre N -apellido A -rol ROL] - sign an account up (password prompted)")
	_, _ = fmt.Fprintln(cli.out, "  resetpassword -email EMAIL - reset the password of a usuarios row (password prompted)")
	_, _ = fmt.Fprintln(cli.out, "  seed - insert the default roles")
}

// promptPassword reads a password from the terminal without echoing it.
func (cli *commandLine) promptPassword() (string, error) {
	_, _ = fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	_, _ = fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserCmd.SetOutput(cli.out)
	addUserEmail := addUserCmd.String("email", "", "The account email. The password will be prompted next.")
	addUserNombre := addUserCmd.String("nombre", "", "Given name; also creates the usuarios row when set.")
	addUserApellido := addUserCmd.String("apellido", "", "Family name of the usuarios row.")
	addUserRol := addUserCmd.String("rol", role.DefaultRoles[0], "Role name of the usuarios row.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordCmd.SetOutput(cli.out)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The user's email. The password will be prompted next.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(ctx, *addUserEmail, pwd, *addUserNombre, *addUserApellido, *addUserRol)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(ctx, *resetPasswordEmail, pwd)

	case "seed":
		return cli.seed(ctx)

	default:
		cli.printUsage()
		return errHelp
	}
}
