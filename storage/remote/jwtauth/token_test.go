package jwtauth_test

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/remote"
	"github.com/trezcool/academia/storage/remote/jwtauth"
)

var ana = remote.User{ID: "3f0c6f1e-0000-4000-8000-000000000001", Email: "ana@uni.edu", Metadata: map[string]interface{}{"nombre": "Ana"}}

func TestIssuer_Verify(t *testing.T) {
	iss := jwtauth.NewIssuer("academia", "secret", time.Hour)
	s, err := iss.Issue(ana)
	require.NoError(t, err)
	assert.Equal(t, "bearer", s.TokenType)
	assert.Equal(t, ana, s.User)

	other := jwtauth.NewIssuer("academia", "other-secret", time.Hour)

	tests := []struct {
		name    string
		verify  func(string) (*jwtauth.Claims, error)
		token   string
		wantErr error
	}{
		{"access", iss.VerifyAccess, s.AccessToken, nil},
		{"refresh", iss.VerifyRefresh, s.RefreshToken, nil},
		{"refresh as access", iss.VerifyAccess, s.RefreshToken, jwtauth.ErrInvalidToken},
		{"access as refresh", iss.VerifyRefresh, s.AccessToken, jwtauth.ErrInvalidToken},
		{"other secret", other.VerifyAccess, s.AccessToken, jwtauth.ErrInvalidToken},
		{"empty", iss.VerifyAccess, "", jwtauth.ErrInvalidToken},
		{"garbage", iss.VerifyAccess, "a.b.c", jwtauth.ErrInvalidToken},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			claims, err := tc.verify(tc.token)
			if tc.wantErr != nil {
				assert.Equal(t, tc.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, ana.ID, claims.Subject)
			assert.Equal(t, ana.Email, claims.User().Email)
			assert.Equal(t, "Ana", claims.User().Metadata["nombre"])
		})
	}
}

func TestIssuer_Expiry(t *testing.T) {
	defer func() { jwtauth.NowFunc = time.Now }()
	now := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
	jwtauth.NowFunc = func() time.Time { return now }

	iss := jwtauth.NewIssuer("academia", "secret", 0) // defaults to one hour
	s, err := iss.Issue(ana)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), s.ExpiresAt)

	exp, err := jwtauth.ExpiresAt(s.AccessToken)
	require.NoError(t, err)
	assert.True(t, exp.Equal(s.ExpiresAt))

	jwtauth.NowFunc = func() time.Time { return now.Add(time.Hour) }
	_, err = iss.VerifyAccess(s.AccessToken)
	assert.Equal(t, jwtauth.ErrTokenExpired, err)
	_, err = iss.VerifyRefresh(s.RefreshToken)
	assert.NoError(t, err)

	jwtauth.NowFunc = func() time.Time { return now.Add(8 * 24 * time.Hour) }
	_, err = iss.VerifyRefresh(s.RefreshToken)
	assert.Equal(t, jwtauth.ErrTokenExpired, err)

	_, err = jwtauth.ExpiresAt("not-a-token")
	assert.Error(t, err)
}

type mapAccounts struct {
	mu   sync.Mutex
	accs map[string]jwtauth.Account
}

func (m *mapAccounts) FindByEmail(_ context.Context, email string) (jwtauth.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if acc, ok := m.accs[email]; ok {
		return acc, nil
	}
	return jwtauth.Account{}, core.ErrNotFound
}

func (m *mapAccounts) FindByID(_ context.Context, id string) (jwtauth.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, acc := range m.accs {
		if acc.User.ID == id {
			return acc, nil
		}
	}
	return jwtauth.Account{}, core.ErrNotFound
}

func (m *mapAccounts) Create(_ context.Context, acc jwtauth.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accs[acc.User.Email]; ok {
		return jwtauth.ErrAccountExists
	}
	m.accs[acc.User.Email] = acc
	return nil
}

func TestAuth_Authorize(t *testing.T) {
	defer func() { jwtauth.NowFunc = time.Now }()
	ctx := context.Background()
	a := jwtauth.NewAuth(jwtauth.NewIssuer("academia", "secret", time.Hour), &mapAccounts{accs: map[string]jwtauth.Account{}})
	a.SetHashCost(bcrypt.MinCost)

	var (
		mu     sync.Mutex
		events []remote.AuthEvent
	)
	sub := a.OnAuthStateChange(func(e remote.AuthEvent, _ *remote.Session) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	})
	defer sub.Unsubscribe()

	_, err := a.Authorize(ctx)
	assert.Equal(t, http.StatusUnauthorized, remoteStatus(t, err))

	_, err = a.SignUp(ctx, "ana@uni.edu", "secreto", nil)
	require.NoError(t, err)
	s, err := a.Authorize(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ana@uni.edu", s.User.Email)

	// an expired access token is refreshed transparently
	jwtauth.NowFunc = func() time.Time { return time.Now().Add(2 * time.Hour) }
	refreshed, err := a.Authorize(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, s.AccessToken, refreshed.AccessToken)

	require.NoError(t, a.SignOut(ctx))
	_, err = a.Authorize(ctx)
	assert.Equal(t, http.StatusUnauthorized, remoteStatus(t, err))

	// listeners are notified in order, off the caller's goroutine
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 3
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []remote.AuthEvent{remote.EventSignedIn, remote.EventTokenRefreshed, remote.EventSignedOut}, events)
}

func TestAuth_RestoreSession(t *testing.T) {
	ctx := context.Background()
	iss := jwtauth.NewIssuer("academia", "secret", time.Hour)
	accounts := &mapAccounts{accs: map[string]jwtauth.Account{}}
	a := jwtauth.NewAuth(iss, accounts)
	a.SetHashCost(bcrypt.MinCost)

	s, err := a.SignUp(ctx, "Ana@Uni.edu ", "secreto", nil)
	require.NoError(t, err)
	require.NoError(t, a.SignOut(ctx))

	restored, err := a.RestoreSession(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, s.AccessToken, restored.AccessToken)
	assert.Equal(t, "ana@uni.edu", restored.User.Email)

	// a forged token falls back to the refresh token, which is forged too
	forged := s.Clone()
	forged.AccessToken = strings.Replace(s.AccessToken, ".", ".x", 1)
	forged.RefreshToken = "nope"
	_, err = a.RestoreSession(ctx, forged)
	assert.Equal(t, "session_not_found", remoteCode(t, err))

	_, err = a.RestoreSession(ctx, nil)
	assert.Equal(t, "session_not_found", remoteCode(t, err))
}

func remoteErr(t *testing.T, err error) *core.RemoteError {
	t.Helper()
	var rErr *core.RemoteError
	require.True(t, errors.As(err, &rErr), "want *core.RemoteError, got %v", err)
	return rErr
}

func remoteStatus(t *testing.T, err error) int {
	t.Helper()
	return remoteErr(t, err).Status
}

func remoteCode(t *testing.T, err error) string {
	t.Helper()
	return remoteErr(t, err).Code
}
