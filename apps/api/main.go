package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"

	echoapi "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/chat"
	"github.com/trezcool/academia/core/crud"
	"github.com/trezcool/academia/core/remote"
	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/core/student"
	emailsvc "github.com/trezcool/academia/services/email"
	logsvc "github.com/trezcool/academia/services/logger"
	metricsvc "github.com/trezcool/academia/services/metrics"
	"github.com/trezcool/academia/storage/avatar"
	"github.com/trezcool/academia/storage/backend"
)

// sessionStartTimeout bounds how long startup waits for the persisted session to be confirmed.
const sessionStartTimeout = 30 * time.Second

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	remoteLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "REMOTE : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	remoteLogger.Enable(!conf.Debug)
	defer func() {
		_ = remoteLogger.Close()
		_ = logger.Close()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// set up remote data service
	svc, err := backend.OpenRemote(ctx, conf, remoteLogger, backend.Options{})
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening remote service: %v", err), err)
	}
	defer func() {
		if err = svc.Close(); err != nil {
			remoteLogger.Error("Failed to close", err)
		}
	}()

	// set up session
	store, err := backend.OpenSessionStore(ctx, conf.Session)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening session store: %v", err), err)
	}
	defer func() { _ = store.Close() }()

	adapter := session.NewAdapter(svc.Auth(), store, logger)
	defer func() { _ = adapter.Close() }()
	adapter.OnChange(func(state session.State, _ *remote.Session) {
		logger.Info(fmt.Sprintf("session %s", state), adapter.Context().Operator())
	})

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, log.New(os.Stdout, "MAIL : ", log.LstdFlags))
	} else {
		sg := emailsvc.NewSendgridService(conf, logger)
		defer sg.Wait() // flush pending deliveries
		mailSvc = sg
	}

	var avatars student.AvatarStore
	if conf.Storage.B2Bucket != "" {
		b2, err := avatar.Open(ctx, conf.Storage)
		if err != nil {
			logger.Fatal(fmt.Sprintf("opening avatar storage: %v", err), err)
		}
		avatars = b2
	}

	hub := chat.NewHub(logger)
	go hub.Run(ctx)

	metrics := metricsvc.NewRemoteCalls("academia")

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q, backend %q", conf.Build, conf.Remote.Backend))
	defer logger.Info("Application stopped")

	select {
	case <-adapter.Start(ctx):
		logger.Info(fmt.Sprintf("session %s", adapter.Context().State()))
	case <-time.After(sessionStartTimeout):
		logger.Warn("session still unknown, starting anyway")
	}

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.NewServerDeps(conf, logger, echoapi.Backend{
		Remote:   svc,
		Session:  adapter,
		Mail:     mailSvc,
		Avatars:  avatars,
		Hub:      hub,
		Metrics:  metrics.Handler(),
		CrudOpts: []crud.Option{crud.WithObserver(metrics)},
	}))

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("API listening on %s", conf.Server.Address()))
		serverErrors <- server.Start()
	}()

	// =========================================================================
	// Shutdown

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err = <-serverErrors:
		logger.Fatal(fmt.Sprintf("server error: %v", err), errors.Wrap(err, "server error"))

	case sig := <-shutdown:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))
	case <-server.ShutdownSignal():
		logger.Info("integrity issue: Start shutdown...")
	}

	// give outstanding requests a deadline for completion
	sctx, scancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer scancel()

	// asking listener to shutdown and shed load
	if err = server.Shutdown(sctx); err != nil {
		logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

		if err = server.Close(); err != nil {
			logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
		}
	}
}
