// Package remote defines the contract of the remote data service the application runs on:
// per-table CRUD plus password authentication with session-change notifications.
package remote

import (
	"context"
	"time"

	"github.com/trezcool/academia/core"
)

// Tables
const (
	TableUsers      = "usuarios"
	TableRoles      = "roles"
	TableStudents   = "estudiantes"
	TableActivities = "actividades"
	TableGroups     = "grupos"
	TableCourses    = "cursos"
	TableMessages   = "mensajes"
)

// Row is one table row as returned by the remote data service.
type Row map[string]interface{}

// Query describes a table select. All Eq filters are ANDed.
type Query struct {
	Columns []string // projection; empty selects every column
	Eq      map[string]interface{}
	Order   *core.Ordering
	Limit   int // 0 means no limit
}

type (
	Table interface {
		Select(ctx context.Context, q Query) ([]Row, error)
		// SelectOne returns the single row where column = value.
		// It fails with core.ErrNotFound when zero or several rows match.
		SelectOne(ctx context.Context, column string, value interface{}, columns ...string) (Row, error)
		// Insert returns the persisted row, server-assigned fields included.
		Insert(ctx context.Context, row Row) (Row, error)
		// Update patches the single row where column = value and returns it.
		Update(ctx context.Context, column string, value interface{}, patch Row) (Row, error)
		Delete(ctx context.Context, column string, value interface{}) error
	}

	Auth interface {
		// GetSession returns the current session, or nil when nobody is signed in.
		GetSession(ctx context.Context) (*Session, error)
		// RestoreSession validates a previously persisted session and makes it current.
		RestoreSession(ctx context.Context, s *Session) (*Session, error)
		SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
		SignUp(ctx context.Context, email, password string, metadata map[string]interface{}) (*Session, error)
		SignOut(ctx context.Context) error
		OnAuthStateChange(listener AuthListener) Subscription
	}

	Service interface {
		From(table string) Table
		Auth() Auth
		Close() error
	}
)

// AuthEvent is the kind of session-change notification.
type AuthEvent string

const (
	EventInitialSession AuthEvent = "INITIAL_SESSION"
	EventSignedIn       AuthEvent = "SIGNED_IN"
	EventSignedOut      AuthEvent = "SIGNED_OUT"
	EventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
	EventUserUpdated    AuthEvent = "USER_UPDATED"
)

type AuthListener func(event AuthEvent, session *Session)

type Subscription interface {
	Unsubscribe()
}

type User struct {
	ID        string                 `json:"id"`
	Email     string                 `json:"email"`
	Metadata  map[string]interface{} `json:"user_metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// Clone returns a deep enough copy of s for handing out to listeners.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.User.Metadata != nil {
		c.User.Metadata = make(map[string]interface{}, len(s.User.Metadata))
		for k, v := range s.User.Metadata {
			c.User.Metadata[k] = v
		}
	}
	return &c
}

func (s *Session) Expired(now time.Time) bool {
	return s == nil || (!s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt))
}
