// Package boltstore persists the session blob in a local bbolt file.
package boltstore

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"

	"github.com/trezcool/academia/core/session"
)

var bucket = []byte("session")

type store struct {
	db *bbolt.DB
}

var _ session.Store = (*store)(nil)

// Open opens (or creates) the bbolt file at path.
func Open(path string) (session.Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "creating session dir")
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "opening session file")
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "creating session bucket")
	}
	return &store{db: db}, nil
}

func (s *store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var value []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucket).Get([]byte(key)); v != nil {
			// v is only valid during the transaction
			value = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "reading session")
	}
	return value, nil
}

func (s *store) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), value)
	})
	return errors.Wrap(err, "writing session")
}

func (s *store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucket).Delete([]byte(key))
	})
	return errors.Wrap(err, "deleting session")
}

func (s *store) Close() error {
	return s.db.Close()
}
