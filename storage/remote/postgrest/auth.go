package postgrest

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/remote"
	"github.com/trezcool/academia/storage/remote/jwtauth"
)

const watchTimeout = 30 * time.Second

var nowFunc = time.Now // mockable

type auth struct {
	client *Client
	leeway time.Duration
	state  remote.SessionState
}

var _ remote.Auth = (*auth)(nil)

type tokenResponse struct {
	AccessToken  string      `json:"access_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int64       `json:"expires_in"`
	ExpiresAt    int64       `json:"expires_at"`
	RefreshToken string      `json:"refresh_token"`
	User         remote.User `json:"user"`
}

// session converts tr; it is nil when tr carries no access token (e.g. sign-up pending confirmation).
func (tr tokenResponse) session() *remote.Session {
	if tr.AccessToken == "" {
		return nil
	}
	s := &remote.Session{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		TokenType:    tr.TokenType,
		User:         tr.User,
	}
	switch {
	case tr.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(tr.ExpiresAt, 0).UTC()
	case tr.ExpiresIn > 0:
		s.ExpiresAt = nowFunc().Add(time.Duration(tr.ExpiresIn) * time.Second).UTC()
	default:
		if exp, err := jwtauth.ExpiresAt(tr.AccessToken); err == nil {
			s.ExpiresAt = exp
		}
	}
	return s
}

func (a *auth) token(ctx context.Context, grant string, body interface{}) (*remote.Session, error) {
	var tr tokenResponse
	err := a.client.do(ctx, request{
		method: http.MethodPost,
		path:   authPath + "token",
		query:  url.Values{"grant_type": {grant}},
		body:   body,
	}, &tr)
	if err != nil {
		return nil, err
	}
	s := tr.session()
	if s == nil {
		return nil, &core.RemoteError{Status: http.StatusBadGateway, Message: "token response without access token"}
	}
	return s, nil
}

func (a *auth) refresh(ctx context.Context, s *remote.Session) (*remote.Session, error) {
	if s.RefreshToken == "" {
		return nil, &core.RemoteError{Status: http.StatusUnauthorized, Code: "refresh_token_not_found", Message: "Refresh token is missing"}
	}
	return a.token(ctx, "refresh_token", map[string]string{"refresh_token": s.RefreshToken})
}

// user fetches the account owning token.
func (a *auth) user(ctx context.Context, token string) (remote.User, error) {
	var usr remote.User
	err := a.client.do(ctx, request{method: http.MethodGet, path: authPath + "user", token: token}, &usr)
	return usr, err
}

// rejected reports whether err means the provider refused the session.
func rejected(err error) bool {
	var rErr *core.RemoteError
	if !errors.As(err, &rErr) {
		return false
	}
	return rErr.Status >= http.StatusBadRequest && rErr.Status < http.StatusInternalServerError
}

// current returns the session table calls are authorized with, if any.
func (a *auth) current(ctx context.Context) *remote.Session {
	s, err := a.GetSession(ctx)
	if err != nil {
		a.client.logger.Warn("getting session", err)
		return nil
	}
	return s
}

// GetSession returns the current session, refreshed first when it is about to expire.
// A refresh token the provider refuses signs the operator out.
func (a *auth) GetSession(ctx context.Context) (*remote.Session, error) {
	s := a.state.Get()
	if s == nil || !s.Expired(nowFunc().Add(a.leeway)) {
		return s, nil
	}
	refreshed, err := a.refresh(ctx, s)
	if err != nil {
		if rejected(err) {
			a.state.Clear()
			return nil, nil
		}
		return nil, err
	}
	a.state.Set(remote.EventTokenRefreshed, refreshed)
	return refreshed, nil
}

func (a *auth) RestoreSession(ctx context.Context, s *remote.Session) (*remote.Session, error) {
	if s == nil {
		return nil, nil
	}
	if !s.Expired(nowFunc().Add(a.leeway)) {
		usr, err := a.user(ctx, s.AccessToken)
		if err == nil {
			restored := s.Clone()
			restored.User = usr
			a.state.Set(remote.EventInitialSession, restored)
			return restored, nil
		}
		if !rejected(err) {
			return nil, err
		}
	}
	refreshed, err := a.refresh(ctx, s)
	if err != nil {
		return nil, err
	}
	a.state.Set(remote.EventInitialSession, refreshed)
	return refreshed, nil
}

func (a *auth) SignInWithPassword(ctx context.Context, email, password string) (*remote.Session, error) {
	s, err := a.token(ctx, "password", map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}
	a.state.Set(remote.EventSignedIn, s)
	return s.Clone(), nil
}

func (a *auth) SignUp(ctx context.Context, email, password string, metadata map[string]interface{}) (*remote.Session, error) {
	body := map[string]interface{}{"email": email, "password": password}
	if len(metadata) > 0 {
		body["data"] = metadata
	}
	var tr tokenResponse
	if err := a.client.do(ctx, request{method: http.MethodPost, path: authPath + "signup", body: body}, &tr); err != nil {
		return nil, err
	}
	s := tr.session()
	if s == nil {
		// email confirmation pending
		return nil, nil
	}
	a.state.Set(remote.EventSignedIn, s)
	return s.Clone(), nil
}

// SignOut revokes the session remotely; it is dropped locally even when that fails.
func (a *auth) SignOut(ctx context.Context) error {
	s := a.state.Get()
	if s == nil {
		return nil
	}
	err := a.client.do(ctx, request{method: http.MethodPost, path: authPath + "logout", token: s.AccessToken}, nil)
	a.state.Clear()
	if rejected(err) {
		// already revoked
		return nil
	}
	return err
}

func (a *auth) OnAuthStateChange(listener remote.AuthListener) remote.Subscription {
	return a.state.Subscribe(listener)
}

// watch runs on the session watcher schedule: it refreshes a session about to expire,
// and otherwise confirms it is still accepted by the provider.
func (a *auth) watch() {
	ctx, cancel := context.WithTimeout(context.Background(), watchTimeout)
	defer cancel()

	s := a.state.Get()
	if s == nil {
		return
	}
	if s.Expired(nowFunc().Add(a.leeway)) {
		if _, err := a.GetSession(ctx); err != nil {
			a.client.logger.Warn("refreshing session", err)
		}
		return
	}

	usr, err := a.user(ctx, s.AccessToken)
	switch {
	case rejected(err):
		a.state.Clear()
	case err != nil:
		a.client.logger.Warn("checking session", err)
	case usr.Email != s.User.Email:
		updated := s.Clone()
		updated.User = usr
		a.state.Set(remote.EventUserUpdated, updated)
	}
}
