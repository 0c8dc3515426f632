package jwtauth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/remote"
)

const minPasswordLength = 6

var (
	// ErrAccountExists is returned by Accounts.Create for a taken email.
	ErrAccountExists = errors.New("account already exists")

	errInvalidCredentials = &core.RemoteError{Status: http.StatusBadRequest, Code: "invalid_credentials", Message: "Invalid login credentials"}
	errUserExists         = &core.RemoteError{Status: http.StatusUnprocessableEntity, Code: "user_already_exists", Message: "User already registered"}
	errWeakPassword       = &core.RemoteError{Status: http.StatusUnprocessableEntity, Code: "weak_password", Message: "Password should be at least 6 characters."}
	errInvalidEmail       = &core.RemoteError{Status: http.StatusBadRequest, Code: "validation_failed", Message: "Unable to validate email address: invalid format"}
	errSessionNotFound    = &core.RemoteError{Status: http.StatusUnauthorized, Code: "session_not_found", Message: "Session from session_id claim in JWT does not exist"}
	errNotAuthenticated   = &core.RemoteError{Status: http.StatusUnauthorized, Code: "not_authenticated", Message: "JWT is missing or expired"}
)

type (
	Account struct {
		User remote.User
		Hash []byte
	}

	// Accounts stores the password accounts; lookups of missing accounts fail with core.ErrNotFound.
	Accounts interface {
		FindByEmail(ctx context.Context, email string) (Account, error)
		FindByID(ctx context.Context, id string) (Account, error)
		Create(ctx context.Context, acc Account) error
	}

	// Auth is a password remote.Auth over Accounts with tokens signed by an Issuer.
	Auth struct {
		issuer   *Issuer
		accounts Accounts
		cost     int
		state    remote.SessionState
	}
)

var _ remote.Auth = (*Auth)(nil)

func NewAuth(issuer *Issuer, accounts Accounts) *Auth {
	return &Auth{issuer: issuer, accounts: accounts, cost: bcrypt.DefaultCost}
}

// SetHashCost sets the bcrypt cost of new passwords.
func (a *Auth) SetHashCost(cost int) {
	a.cost = cost
}

// Authorize returns the current session if its access token is valid.
func (a *Auth) Authorize(ctx context.Context) (*remote.Session, error) {
	s, err := a.GetSession(ctx)
	if err != nil || s == nil {
		return nil, errNotAuthenticated
	}
	if _, err = a.issuer.VerifyAccess(s.AccessToken); err != nil {
		return nil, errNotAuthenticated
	}
	return s, nil
}

// GetSession returns the current session, refreshing it first if its access token expired.
func (a *Auth) GetSession(ctx context.Context) (*remote.Session, error) {
	s := a.state.Get()
	if s == nil || !s.Expired(NowFunc()) {
		return s, nil
	}
	refreshed, err := a.refresh(ctx, s.RefreshToken)
	if err != nil {
		a.state.Clear()
		return nil, err
	}
	a.state.Set(remote.EventTokenRefreshed, refreshed)
	return refreshed, nil
}

func (a *Auth) RestoreSession(ctx context.Context, s *remote.Session) (*remote.Session, error) {
	if s == nil {
		return nil, errSessionNotFound
	}
	if claims, err := a.issuer.VerifyAccess(s.AccessToken); err == nil {
		if acc, err := a.accounts.FindByID(ctx, claims.Subject); err == nil {
			restored := s.Clone()
			restored.User = acc.User
			a.state.Set(remote.EventInitialSession, restored)
			return restored, nil
		} else if errors.Cause(err) != core.ErrNotFound {
			return nil, err
		}
	}
	refreshed, err := a.refresh(ctx, s.RefreshToken)
	if err != nil {
		return nil, err
	}
	a.state.Set(remote.EventTokenRefreshed, refreshed)
	return refreshed, nil
}

func (a *Auth) refresh(ctx context.Context, token string) (*remote.Session, error) {
	claims, err := a.issuer.VerifyRefresh(token)
	if err != nil {
		return nil, errSessionNotFound
	}
	acc, err := a.accounts.FindByID(ctx, claims.Subject)
	switch {
	case errors.Cause(err) == core.ErrNotFound:
		return nil, errSessionNotFound
	case err != nil:
		return nil, err
	}
	return a.issuer.Issue(acc.User)
}

func (a *Auth) SignInWithPassword(ctx context.Context, email, password string) (*remote.Session, error) {
	acc, err := a.accounts.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	switch {
	case errors.Cause(err) == core.ErrNotFound:
		return nil, errInvalidCredentials
	case err != nil:
		return nil, err
	}
	if bcrypt.CompareHashAndPassword(acc.Hash, []byte(password)) != nil {
		return nil, errInvalidCredentials
	}

	s, err := a.issuer.Issue(acc.User)
	if err != nil {
		return nil, err
	}
	a.state.Set(remote.EventSignedIn, s)
	return s, nil
}

func (a *Auth) SignUp(ctx context.Context, email, password string, metadata map[string]interface{}) (*remote.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !core.IsEmail(email) {
		return nil, errInvalidEmail
	}
	if len(password) < minPasswordLength {
		return nil, errWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return nil, errors.Wrap(err, "hashing password")
	}

	usr := remote.User{ID: uuid.NewString(), Email: email, Metadata: metadata, CreatedAt: time.Now().UTC().Truncate(time.Microsecond)}
	if err = a.accounts.Create(ctx, Account{User: usr, Hash: hash}); err != nil {
		if errors.Cause(err) == ErrAccountExists {
			return nil, errUserExists
		}
		return nil, err
	}

	s, err := a.issuer.Issue(usr)
	if err != nil {
		return nil, err
	}
	a.state.Set(remote.EventSignedIn, s)
	return s, nil
}

func (a *Auth) SignOut(ctx context.Context) error {
	a.state.Clear()
	return nil
}

func (a *Auth) OnAuthStateChange(listener remote.AuthListener) remote.Subscription {
	return a.state.Subscribe(listener)
}
