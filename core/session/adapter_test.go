package session_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/remote"
	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/storage/remote/inmem"
)

const (
	email    = "operador@academia.edu"
	password = "secreto1"
)

func newBackend(t *testing.T) *inmem.DB {
	t.Helper()
	db := inmem.Open(inmem.Options{AppName: "academia", SecretKey: "test-secret", TokenExpiration: time.Hour})
	ctx := context.Background()
	_, err := db.Auth().SignUp(ctx, email, password, nil)
	require.NoError(t, err)
	require.NoError(t, db.Auth().SignOut(ctx))
	return db
}

func start(t *testing.T, a *session.Adapter) {
	t.Helper()
	select {
	case <-a.Start(context.Background()):
	case <-time.After(5 * time.Second):
		t.Fatal("session did not resolve")
	}
}

func TestAdapter_Start(t *testing.T) {
	db := newBackend(t)
	a := session.NewAdapter(db.Auth(), session.MemoryStore(), nil)
	defer a.Close()

	assert.Equal(t, session.Unknown, a.Context().State())
	start(t, a)
	assert.Equal(t, session.Anonymous, a.Context().State())
	assert.Nil(t, a.Context().Current())
	assert.Empty(t, a.Context().Email())
}

func TestAdapter_SignIn(t *testing.T) {
	db := newBackend(t)
	store := session.MemoryStore()
	a := session.NewAdapter(db.Auth(), store, nil)
	defer a.Close()
	start(t, a)

	var fired atomic.Int32
	cancel := a.OnChange(func(state session.State, s *remote.Session) {
		if state == session.Authenticated {
			fired.Add(1)
		}
	})
	defer cancel()

	s, err := a.SignIn(context.Background(), "  Operador@Academia.edu ", password)
	require.NoError(t, err)
	require.NotNil(t, s)

	assert.Equal(t, session.Authenticated, a.Context().State())
	assert.Equal(t, email, a.Context().Email())
	assert.Equal(t, s.User.ID, a.Context().Operator().ID)

	// the provider's SIGNED_IN notification must not fire the transition a second time
	assert.Never(t, func() bool { return fired.Load() > 1 }, 200*time.Millisecond, 10*time.Millisecond)
	assert.EqualValues(t, 1, fired.Load())

	data, err := store.Get(context.Background(), session.StoreKey)
	require.NoError(t, err)
	assert.Contains(t, string(data), s.AccessToken)
}

func TestAdapter_SignInFailure(t *testing.T) {
	db := newBackend(t)
	a := session.NewAdapter(db.Auth(), session.MemoryStore(), nil)
	defer a.Close()
	start(t, a)

	_, err := a.SignIn(context.Background(), email, "incorrecta")
	require.Error(t, err)
	rErr, ok := err.(*core.RemoteError)
	require.True(t, ok, "remote error must be returned unchanged")
	assert.Equal(t, "Invalid login credentials", rErr.Message)
	assert.Equal(t, session.Anonymous, a.Context().State())
}

func TestAdapter_SignOut(t *testing.T) {
	db := newBackend(t)
	store := session.MemoryStore()
	a := session.NewAdapter(db.Auth(), store, nil)
	defer a.Close()
	start(t, a)

	_, err := a.SignIn(context.Background(), email, password)
	require.NoError(t, err)

	var states []session.State
	cancel := a.OnChange(func(state session.State, _ *remote.Session) { states = append(states, state) })
	defer cancel()

	require.NoError(t, a.SignOut(context.Background()))
	assert.Equal(t, session.Anonymous, a.Context().State())
	assert.Empty(t, a.Context().Email())
	assert.Equal(t, []session.State{session.Anonymous}, states)

	data, err := store.Get(context.Background(), session.StoreKey)
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestAdapter_RestoresPersistedSession(t *testing.T) {
	db := newBackend(t)
	store := session.MemoryStore()

	first := session.NewAdapter(db.Auth(), store, nil)
	start(t, first)
	_, err := first.SignIn(context.Background(), email, password)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second := session.NewAdapter(db.Auth(), store, nil)
	defer second.Close()
	start(t, second)
	assert.Equal(t, session.Authenticated, second.Context().State())
	assert.Equal(t, email, second.Context().Email())
}

func TestAdapter_CorruptPersistedSession(t *testing.T) {
	tests := []struct {
		name string
		blob string
	}{
		{"not json", "{not json"},
		{"no tokens", `{"user":{"email":"x@y.z"}}`},
		{"bad token", `{"access_token":"abc","refresh_token":"def"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			db := newBackend(t)
			store := session.MemoryStore()
			require.NoError(t, store.Put(context.Background(), session.StoreKey, []byte(tc.blob)))

			a := session.NewAdapter(db.Auth(), store, nil)
			defer a.Close()
			start(t, a)

			assert.Equal(t, session.Anonymous, a.Context().State())
			data, err := store.Get(context.Background(), session.StoreKey)
			require.NoError(t, err)
			assert.Nil(t, data)
		})
	}
}

func TestAdapter_Close(t *testing.T) {
	db := newBackend(t)
	a := session.NewAdapter(db.Auth(), session.MemoryStore(), nil)
	start(t, a)
	_, err := a.SignIn(context.Background(), email, password)
	require.NoError(t, err)

	require.NoError(t, a.Close())
	require.NoError(t, a.Close())

	// notifications no longer reach the adapter
	require.NoError(t, db.Auth().SignOut(context.Background()))
	assert.Never(t, func() bool { return a.Context().State() != session.Authenticated }, 100*time.Millisecond, 10*time.Millisecond)
}

// gatedAuth holds its first GetSession until release is closed.
type gatedAuth struct {
	remote.Auth
	first   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func (g *gatedAuth) GetSession(ctx context.Context) (*remote.Session, error) {
	if g.first.CompareAndSwap(false, true) {
		s, err := g.Auth.GetSession(ctx)
		close(g.entered)
		<-g.release
		return s, err
	}
	return g.Auth.GetSession(ctx)
}

func TestAdapter_SignInWhileStarting(t *testing.T) {
	db := newBackend(t)
	auth := &gatedAuth{Auth: db.Auth(), entered: make(chan struct{}), release: make(chan struct{})}
	store := session.MemoryStore()
	a := session.NewAdapter(auth, store, nil)
	defer a.Close()

	var (
		mu     sync.Mutex
		states []session.State
	)
	cancel := a.OnChange(func(state session.State, _ *remote.Session) {
		mu.Lock()
		states = append(states, state)
		mu.Unlock()
	})
	defer cancel()

	ready := a.Start(context.Background())
	<-auth.entered // the initial lookup saw no session

	_, err := a.SignIn(context.Background(), email, password)
	require.NoError(t, err)
	require.Equal(t, session.Authenticated, a.Context().State())

	close(auth.release)
	select {
	case <-ready:
	case <-time.After(5 * time.Second):
		t.Fatal("session did not resolve")
	}

	assert.Equal(t, session.Authenticated, a.Context().State())
	assert.Equal(t, email, a.Context().Email())
	data, err := store.Get(context.Background(), session.StoreKey)
	require.NoError(t, err)
	assert.NotEmpty(t, data, "the signed-in session stays persisted")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []session.State{session.Authenticated}, states)
}
