package session

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/remote"
)

// StoreKey is the key the serialized session is persisted under.
const StoreKey = "academia.session"

// Store is a small persistent key/value store for the serialized session.
type Store interface {
	// Get returns nil, nil when key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

func encode(s *remote.Session) ([]byte, error) {
	data, err := json.Marshal(s)
	return data, errors.Wrap(err, "encoding session")
}

func decode(data []byte) (*remote.Session, error) {
	s := new(remote.Session)
	if err := json.Unmarshal(data, s); err != nil {
		return nil, errors.Wrap(err, "decoding session")
	}
	if s.AccessToken == "" && s.RefreshToken == "" {
		return nil, errors.New("decoding session: no tokens")
	}
	return s, nil
}

type memoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

// MemoryStore returns a Store that persists nothing beyond the process.
func MemoryStore() Store {
	return &memoryStore{data: make(map[string][]byte)}
}

func (m *memoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *memoryStore) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memoryStore) Close() error { return nil }
