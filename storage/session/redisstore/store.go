// Package redisstore persists the session blob in redis.
package redisstore

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/academia/core/session"
)

// KeyPrefix namespaces the keys of the store.
const KeyPrefix = "academia:"

type store struct {
	rdb *redis.Client
}

var _ session.Store = (*store)(nil)

// Open connects to the redis server at addr and checks it answers.
func Open(ctx context.Context, addr string, db int) (session.Store, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return &store{rdb: rdb}, nil
}

func (s *store) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.rdb.Get(ctx, KeyPrefix+key).Bytes()
	switch {
	case err == redis.Nil:
		return nil, nil
	case err != nil:
		return nil, errors.Wrap(err, "reading session")
	}
	return value, nil
}

func (s *store) Put(ctx context.Context, key string, value []byte) error {
	return errors.Wrap(s.rdb.Set(ctx, KeyPrefix+key, value, 0).Err(), "writing session")
}

func (s *store) Delete(ctx context.Context, key string) error {
	return errors.Wrap(s.rdb.Del(ctx, KeyPrefix+key).Err(), "deleting session")
}

func (s *store) Close() error {
	return s.rdb.Close()
}
