package main

import (
	"context"
	"log"
	"os"

	"github.com/trezcool/academia/core"
	logsvc "github.com/trezcool/academia/services/logger"
	"github.com/trezcool/academia/storage/backend"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	ctx := context.Background()

	// the CLI manages the schema itself and runs without a signed-in operator
	svc, err := backend.OpenRemote(ctx, conf, logger, backend.Options{ServiceRole: true, SkipMigrations: true})
	if err != nil {
		logger.Fatal("opening remote service", err)
	}

	cli := newCommandLine(svc, os.Stdout)
	err = cli.run(ctx, os.Args)
	_ = svc.Close()
	_ = logger.Close()
	if err != nil {
		if err != errHelp {
			logger.Error("command failed", err)
		}
		os.Exit(1)
	}
}
