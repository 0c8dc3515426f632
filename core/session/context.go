// Package session owns the operator session of the running process:
// it restores the persisted session at startup, follows the remote service's session-change notifications
// and exposes the result through a single Context.
package session

import (
	"sync"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/remote"
)

type State int

const (
	Unknown State = iota
	Authenticated
	Anonymous
)

func (s State) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case Anonymous:
		return "anonymous"
	}
	return "unknown"
}

// Context is the process-wide holder of the current session. Its zero value is Unknown.
type Context struct {
	mu      sync.RWMutex
	state   State
	session *remote.Session
}

func (c *Context) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Current returns a copy of the current session, or nil unless Authenticated.
func (c *Context) Current() *remote.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.Clone()
}

// Email returns the signed-in operator's email, or "".
func (c *Context) Email() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return ""
	}
	return c.session.User.Email
}

func (c *Context) Operator() core.Operator {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return core.Operator{}
	}
	return core.Operator{ID: c.session.User.ID, Email: c.session.User.Email}
}

// set stores state and session and reports whether this is a state transition:
// a change of State, or another user becoming Authenticated.
func (c *Context) set(state State, s *remote.Session) (changed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	changed = state != c.state
	if !changed && state == Authenticated && c.session != nil && s != nil {
		changed = c.session.User.ID != s.User.ID
	}
	c.state = state
	c.session = s.Clone()
	if state != Authenticated {
		c.session = nil
	}
	return changed
}

// setIfUnknown stores state and session only while the Context is still Unknown.
func (c *Context) setIfUnknown(state State, s *remote.Session) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Unknown {
		return false
	}
	c.state = state
	if state == Authenticated {
		c.session = s.Clone()
	}
	return true
}
