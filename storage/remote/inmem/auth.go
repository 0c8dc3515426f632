package inmem

import (
	"context"
	"sync"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/storage/remote/jwtauth"
)

// accounts keeps the password accounts in memory.
type accounts struct {
	mu      sync.RWMutex
	byEmail map[string]jwtauth.Account
	byID    map[string]string // id -> email
}

var _ jwtauth.Accounts = (*accounts)(nil)

func newAccounts() *accounts {
	return &accounts{byEmail: make(map[string]jwtauth.Account), byID: make(map[string]string)}
}

func (m *accounts) FindByEmail(ctx context.Context, email string) (jwtauth.Account, error) {
	if err := ctx.Err(); err != nil {
		return jwtauth.Account{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	acc, ok := m.byEmail[email]
	if !ok {
		return jwtauth.Account{}, core.ErrNotFound
	}
	return acc, nil
}

func (m *accounts) FindByID(ctx context.Context, id string) (jwtauth.Account, error) {
	if err := ctx.Err(); err != nil {
		return jwtauth.Account{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	email, ok := m.byID[id]
	if !ok {
		return jwtauth.Account{}, core.ErrNotFound
	}
	return m.byEmail[email], nil
}

func (m *accounts) Create(ctx context.Context, acc jwtauth.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[acc.User.Email]; ok {
		return jwtauth.ErrAccountExists
	}
	m.byEmail[acc.User.Email] = acc
	m.byID[acc.User.ID] = acc.User.Email
	return nil
}
