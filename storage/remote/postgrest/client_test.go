package postgrest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/remote"
)

const anonKey = "anon-key"

type call struct {
	method string
	path   string
	query  url.Values
	auth   string
	apikey string
	prefer string
	body   map[string]interface{}
}

// fakeBackend answers like PostgREST + GoTrue for a handful of canned paths.
type fakeBackend struct {
	mu          sync.Mutex
	calls       []call
	rows        []map[string]interface{}
	expiresIn   int64
	userStatus  int
	signUpToken bool
}

func (f *fakeBackend) last() call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c := call{
		method: r.Method,
		path:   r.URL.Path,
		query:  r.URL.Query(),
		auth:   r.Header.Get("Authorization"),
		apikey: r.Header.Get("apikey"),
		prefer: r.Header.Get("Prefer"),
	}
	_ = json.NewDecoder(r.Body).Decode(&c.body)
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()

	reply := func(status int, v interface{}) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
	user := map[string]interface{}{"id": "u-1", "email": "ana@uni.edu"}
	session := func(token string) map[string]interface{} {
		return map[string]interface{}{
			"access_token": token, "refresh_token": "refresh-" + token, "token_type": "bearer",
			"expires_in": f.expiresIn, "user": user,
		}
	}

	switch {
	case r.URL.Path == "/rest/v1/estudiantes" && r.Method == http.MethodGet:
		reply(http.StatusOK, f.rows)
	case r.URL.Path == "/rest/v1/estudiantes" && r.Method == http.MethodPost:
		if c.body["correo"] == "dup@uni.edu" {
			reply(http.StatusConflict, map[string]interface{}{
				"code": "23505", "message": `duplicate key value violates unique constraint "estudiantes_correo_key"`,
			})
			return
		}
		c.body["id"] = 7
		reply(http.StatusCreated, []map[string]interface{}{c.body})
	case r.URL.Path == "/rest/v1/estudiantes" && r.Method == http.MethodPatch:
		reply(http.StatusOK, []map[string]interface{}{})
	case r.URL.Path == "/rest/v1/estudiantes" && r.Method == http.MethodDelete:
		w.WriteHeader(http.StatusNoContent)
	case r.URL.Path == "/auth/v1/token" && r.URL.Query().Get("grant_type") == "password":
		if c.body["password"] != "secreto" {
			reply(http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": "Invalid login credentials"})
			return
		}
		reply(http.StatusOK, session("access-1"))
	case r.URL.Path == "/auth/v1/token" && r.URL.Query().Get("grant_type") == "refresh_token":
		if c.body["refresh_token"] != "refresh-access-1" {
			reply(http.StatusBadRequest, map[string]string{"error_code": "refresh_token_not_found", "msg": "Invalid Refresh Token"})
			return
		}
		reply(http.StatusOK, session("access-2"))
	case r.URL.Path == "/auth/v1/signup":
		if f.signUpToken {
			reply(http.StatusOK, session("access-1"))
			return
		}
		reply(http.StatusOK, user)
	case r.URL.Path == "/auth/v1/user":
		if f.userStatus != 0 {
			reply(f.userStatus, map[string]string{"msg": "invalid JWT"})
			return
		}
		reply(http.StatusOK, user)
	case r.URL.Path == "/auth/v1/logout":
		w.WriteHeader(http.StatusNoContent)
	default:
		reply(http.StatusNotFound, map[string]string{"message": "not found"})
	}
}

func open(t *testing.T, fake *fakeBackend) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	c, err := Open(Options{URL: srv.URL + "/", AnonKey: anonKey, Timeout: 5 * time.Second, RefreshLeeway: time.Minute})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestOpen(t *testing.T) {
	_, err := Open(Options{URL: "", AnonKey: anonKey})
	assert.Error(t, err)
	_, err = Open(Options{URL: "http://localhost", AnonKey: anonKey, WatchSchedule: "every minute"})
	assert.Error(t, err)
}

func TestTable_Select(t *testing.T) {
	fake := &fakeBackend{rows: []map[string]interface{}{{"id": 1, "nombre": "Ana"}}}
	tbl := open(t, fake).From(remote.TableStudents)

	rows, err := tbl.Select(context.Background(), remote.Query{
		Columns: []string{"id", "nombre"},
		Eq:      map[string]interface{}{"estado": "activo", "semestre": 3, "avatar": nil, "porcentaje": float64(1000000), "nota": 4.5},
		Order:   &core.Ordering{Field: "nombre", Ascending: true},
		Limit:   10,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Ana", rows[0]["nombre"])

	c := fake.last()
	assert.Equal(t, "id,nombre", c.query.Get("select"))
	assert.Equal(t, "eq.activo", c.query.Get("estado"))
	assert.Equal(t, "eq.3", c.query.Get("semestre"))
	assert.Equal(t, "is.null", c.query.Get("avatar"))
	assert.Equal(t, "eq.1000000", c.query.Get("porcentaje"))
	assert.Equal(t, "eq.4.5", c.query.Get("nota"))
	assert.Equal(t, "nombre.asc", c.query.Get("order"))
	assert.Equal(t, "10", c.query.Get("limit"))
	assert.Equal(t, anonKey, c.apikey)
	assert.Equal(t, "Bearer "+anonKey, c.auth)
}

func TestTable_SelectOne(t *testing.T) {
	fake := &fakeBackend{rows: []map[string]interface{}{}}
	tbl := open(t, fake).From(remote.TableStudents)

	_, err := tbl.SelectOne(context.Background(), "id", 1)
	assert.Equal(t, core.ErrNotFound, err)
	assert.Equal(t, "2", fake.last().query.Get("limit"))

	fake.rows = []map[string]interface{}{{"id": 1}, {"id": 2}}
	_, err = tbl.SelectOne(context.Background(), "correo", "x@uni.edu")
	assert.Equal(t, core.ErrNotFound, err)
}

func TestTable_Writes(t *testing.T) {
	fake := &fakeBackend{}
	tbl := open(t, fake).From(remote.TableStudents)
	ctx := context.Background()

	row, err := tbl.Insert(ctx, remote.Row{"nombre": "Ana", "correo": "ana@uni.edu"})
	require.NoError(t, err)
	assert.EqualValues(t, 7, row["id"])
	assert.Equal(t, returnRepresentation, fake.last().prefer)

	_, err = tbl.Insert(ctx, remote.Row{"nombre": "Ana", "correo": "dup@uni.edu"})
	var rErr *core.RemoteError
	require.True(t, errors.As(err, &rErr))
	assert.Equal(t, http.StatusConflict, rErr.Status)
	assert.Equal(t, "23505", rErr.Code)
	assert.Equal(t, `duplicate key value violates unique constraint "estudiantes_correo_key"`, rErr.Message)

	_, err = tbl.Update(ctx, "id", 99, remote.Row{"nombre": "Luis"})
	assert.Equal(t, core.ErrNotFound, err)
	c := fake.last()
	assert.Equal(t, http.MethodPatch, c.method)
	assert.Equal(t, "eq.99", c.query.Get("id"))
	assert.Equal(t, "Luis", c.body["nombre"])

	require.NoError(t, tbl.Delete(ctx, "id", 7))
	assert.Equal(t, http.MethodDelete, fake.last().method)
	assert.Equal(t, "eq.7", fake.last().query.Get("id"))
}

func collect(t *testing.T, a remote.Auth) func() []remote.AuthEvent {
	var (
		mu     sync.Mutex
		events []remote.AuthEvent
	)
	sub := a.OnAuthStateChange(func(ev remote.AuthEvent, _ *remote.Session) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})
	t.Cleanup(sub.Unsubscribe)
	return func() []remote.AuthEvent {
		mu.Lock()
		defer mu.Unlock()
		return append([]remote.AuthEvent(nil), events...)
	}
}

func TestAuth_SignIn(t *testing.T) {
	fake := &fakeBackend{expiresIn: 3600}
	c := open(t, fake)
	events := collect(t, c.Auth())
	ctx := context.Background()

	_, err := c.Auth().SignInWithPassword(ctx, "ana@uni.edu", "mala")
	var rErr *core.RemoteError
	require.True(t, errors.As(err, &rErr))
	assert.Equal(t, "invalid_grant", rErr.Code)
	assert.Equal(t, "Invalid login credentials", rErr.Message)

	s, err := c.Auth().SignInWithPassword(ctx, "ana@uni.edu", "secreto")
	require.NoError(t, err)
	assert.Equal(t, "ana@uni.edu", s.User.Email)
	assert.WithinDuration(t, time.Now().Add(time.Hour), s.ExpiresAt, time.Minute)

	// table calls carry the operator token
	_, err = c.From(remote.TableStudents).Select(ctx, remote.Query{})
	require.NoError(t, err)
	assert.Equal(t, "Bearer access-1", fake.last().auth)

	require.NoError(t, c.Auth().SignOut(ctx))
	assert.Equal(t, "Bearer access-1", fake.last().auth)
	cur, err := c.Auth().GetSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, cur)

	assert.Eventually(t, func() bool {
		ev := events()
		return len(ev) == 2 && ev[0] == remote.EventSignedIn && ev[1] == remote.EventSignedOut
	}, time.Second, 10*time.Millisecond)
}

func TestAuth_SignUp(t *testing.T) {
	fake := &fakeBackend{expiresIn: 3600}
	c := open(t, fake)

	s, err := c.Auth().SignUp(context.Background(), "ana@uni.edu", "secreto", map[string]interface{}{"nombre": "Ana"})
	require.NoError(t, err)
	assert.Nil(t, s, "confirmation pending")
	assert.Equal(t, map[string]interface{}{"nombre": "Ana"}, fake.last().body["data"])

	fake.signUpToken = true
	s, err = c.Auth().SignUp(context.Background(), "ana@uni.edu", "secreto", nil)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "access-1", s.AccessToken)
}

func TestAuth_GetSessionRefreshes(t *testing.T) {
	fake := &fakeBackend{expiresIn: 30} // within the leeway
	c := open(t, fake)
	events := collect(t, c.Auth())
	ctx := context.Background()

	_, err := c.Auth().SignInWithPassword(ctx, "ana@uni.edu", "secreto")
	require.NoError(t, err)

	fake.expiresIn = 3600
	s, err := c.Auth().GetSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-2", s.AccessToken)
	assert.Eventually(t, func() bool {
		ev := events()
		return len(ev) == 2 && ev[1] == remote.EventTokenRefreshed
	}, time.Second, 10*time.Millisecond)
}

func TestAuth_RestoreSession(t *testing.T) {
	ctx := context.Background()
	persisted := &remote.Session{
		AccessToken:  "access-1",
		RefreshToken: "refresh-access-1",
		ExpiresAt:    time.Now().Add(time.Hour),
		User:         remote.User{ID: "u-1", Email: "ana@uni.edu"},
	}

	t.Run("valid", func(t *testing.T) {
		c := open(t, &fakeBackend{})
		s, err := c.Auth().RestoreSession(ctx, persisted)
		require.NoError(t, err)
		assert.Equal(t, "access-1", s.AccessToken)
	})

	t.Run("revoked access token", func(t *testing.T) {
		c := open(t, &fakeBackend{userStatus: http.StatusUnauthorized, expiresIn: 3600})
		s, err := c.Auth().RestoreSession(ctx, persisted)
		require.NoError(t, err)
		assert.Equal(t, "access-2", s.AccessToken)
	})

	t.Run("revoked refresh token", func(t *testing.T) {
		c := open(t, &fakeBackend{userStatus: http.StatusUnauthorized})
		stale := persisted.Clone()
		stale.RefreshToken = "gone"
		_, err := c.Auth().RestoreSession(ctx, stale)
		assert.True(t, core.IsRemote(err))
		cur, _ := c.Auth().GetSession(ctx)
		assert.Nil(t, cur)
	})
}

func TestAuth_Watch(t *testing.T) {
	fake := &fakeBackend{expiresIn: 3600}
	c := open(t, fake)
	events := collect(t, c.Auth())

	_, err := c.Auth().SignInWithPassword(context.Background(), "ana@uni.edu", "secreto")
	require.NoError(t, err)

	c.auth.watch()
	s, _ := c.Auth().GetSession(context.Background())
	require.NotNil(t, s, "a valid session survives the watcher")

	fake.userStatus = http.StatusUnauthorized
	c.auth.watch()
	s, _ = c.Auth().GetSession(context.Background())
	assert.Nil(t, s)
	assert.Eventually(t, func() bool {
		ev := events()
		return len(ev) == 2 && ev[1] == remote.EventSignedOut
	}, time.Second, 10*time.Millisecond)
}
