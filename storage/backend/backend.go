// Package backend opens the remote data service and the session store selected by the configuration.
package backend

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/remote"
	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/storage/remote/inmem"
	"github.com/trezcool/academia/storage/remote/pgstore"
	"github.com/trezcool/academia/storage/remote/postgrest"
	"github.com/trezcool/academia/storage/session/boltstore"
	"github.com/trezcool/academia/storage/session/redisstore"
)

type Options struct {
	// ServiceRole lets pgstore table calls through without a signed-in operator.
	ServiceRole bool
	// SkipMigrations leaves the pgstore schema as is.
	SkipMigrations bool
}

// OpenRemote opens the remote data service of conf.Remote.Backend.
func OpenRemote(ctx context.Context, conf *core.Config, logger core.Logger, opts Options) (remote.Service, error) {
	switch conf.Remote.Backend {
	case core.BackendPostgREST:
		c, err := postgrest.Open(postgrest.Options{
			URL:           conf.Remote.URL,
			AnonKey:       conf.Remote.AnonKey,
			Timeout:       conf.Remote.Timeout,
			WatchSchedule: conf.Remote.WatchSchedule,
			RefreshLeeway: conf.Remote.RefreshLeeway,
			Logger:        logger,
		})
		if err != nil {
			return nil, errors.Wrap(err, "opening postgrest client")
		}
		return c, nil

	case core.BackendPostgres:
		return openPostgres(ctx, conf, opts)

	case core.BackendMemory, "":
		logger.Warn("using the in-memory remote service: data is lost on exit")
		return inmem.Open(inmem.Options{
			AppName:         conf.AppName,
			SecretKey:       conf.SecretKey,
			TokenExpiration: conf.Remote.TokenExpiration,
		}), nil
	}
	return nil, errors.Errorf("unknown remote backend %q", conf.Remote.Backend)
}

func openPostgres(ctx context.Context, conf *core.Config, opts Options) (*pgstore.DB, error) {
	if err := pgstore.CreateIfNotExist(ctx, conf.Database); err != nil {
		return nil, errors.Wrap(err, "creating database")
	}
	db, err := pgstore.Open(ctx, pgstore.URL(conf.Database, conf.Database.Name, false), pgstore.Options{
		AppName:         conf.AppName,
		SecretKey:       conf.SecretKey,
		TokenExpiration: conf.Remote.TokenExpiration,
		ServiceRole:     opts.ServiceRole,
	})
	if err != nil {
		return nil, err
	}
	if !opts.SkipMigrations {
		if err = db.Migrate("up"); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}

// OpenSessionStore opens the store the operator session is persisted in.
func OpenSessionStore(ctx context.Context, conf core.SessionConfig) (session.Store, error) {
	switch conf.Store {
	case core.SessionStoreRedis:
		st, err := redisstore.Open(ctx, conf.RedisAddr, conf.RedisDB)
		return st, errors.Wrap(err, "opening redis session store")
	case core.SessionStoreBolt, "":
		st, err := boltstore.Open(conf.Path)
		return st, errors.Wrap(err, "opening bolt session store")
	}
	return nil, errors.Errorf("unknown session store %q", conf.Store)
}
