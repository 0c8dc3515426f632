package session

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/remote"
)

// Listener is notified of every state transition of the session Context.
type Listener func(state State, s *remote.Session)

// Adapter keeps a Context in sync with the remote service's authentication.
type Adapter struct {
	auth   remote.Auth
	store  Store
	logger core.Logger
	ctx    Context

	transMu sync.Mutex // serializes transitions and their persistence

	mu        sync.Mutex
	sub       remote.Subscription
	listeners map[int]Listener
	nextID    int
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func NewAdapter(auth remote.Auth, store Store, logger core.Logger) *Adapter {
	if store == nil {
		store = MemoryStore()
	}
	if logger == nil {
		logger = core.NopLogger()
	}
	return &Adapter{auth: auth, store: store, logger: logger, listeners: make(map[int]Listener)}
}

// Context returns the process-wide session context maintained by a.
func (a *Adapter) Context() *Context { return &a.ctx }

// Start subscribes to session-change notifications and resolves the initial state in the background:
// the persisted session is restored if the remote service still accepts it, otherwise the current
// remote session (if any) is used. The returned channel is closed once the state is no longer Unknown.
func (a *Adapter) Start(ctx context.Context) <-chan struct{} {
	ready := make(chan struct{})

	a.mu.Lock()
	if a.sub == nil {
		a.sub = a.auth.OnAuthStateChange(a.onNotice)
	}
	ctx, a.cancel = context.WithCancel(ctx)
	a.mu.Unlock()

	go func() {
		defer close(ready)
		s := a.initialSession(ctx)
		if ctx.Err() != nil {
			return
		}
		if s != nil {
			a.resolve(Authenticated, s)
		} else {
			a.resolve(Anonymous, nil)
		}
	}()
	return ready
}

func (a *Adapter) initialSession(ctx context.Context) *remote.Session {
	data, err := a.store.Get(ctx, StoreKey)
	if err != nil {
		a.logger.Error("reading persisted session", errors.Wrap(err, "reading persisted session"))
	}
	if len(data) > 0 {
		persisted, err := decode(data)
		if err != nil {
			a.logger.Warn("ignoring persisted session", err)
		} else if s, err := a.auth.RestoreSession(ctx, persisted); err == nil {
			return s
		} else {
			a.logger.Info("persisted session rejected", err)
		}
	}

	s, err := a.auth.GetSession(ctx)
	if err != nil {
		a.logger.Error("getting session", errors.Wrap(err, "getting session"))
		return nil
	}
	return s
}

// onNotice re-derives the state from the remote service on every session-change notification.
func (a *Adapter) onNotice(event remote.AuthEvent, _ *remote.Session) {
	if a.ctx.State() == Unknown {
		return // Start has not resolved yet; it reads the latest session itself
	}
	s, err := a.auth.GetSession(context.Background())
	if err != nil {
		a.logger.Error("getting session", errors.Wrapf(err, "getting session on %s", event))
		return
	}
	if s != nil {
		a.transition(Authenticated, s)
	} else {
		a.transition(Anonymous, nil)
	}
}

func (a *Adapter) transition(state State, s *remote.Session) {
	a.transMu.Lock()
	changed := a.ctx.set(state, s)
	a.persist(state, s)
	a.transMu.Unlock()

	if changed {
		a.notify(state, s)
	}
}

// resolve applies the initial state unless a sign-in, sign-up or sign-out got there first.
func (a *Adapter) resolve(state State, s *remote.Session) {
	a.transMu.Lock()
	applied := a.ctx.setIfUnknown(state, s)
	if applied {
		a.persist(state, s)
	}
	a.transMu.Unlock()

	if applied {
		a.notify(state, s)
	}
}

func (a *Adapter) notify(state State, s *remote.Session) {
	a.mu.Lock()
	listeners := make([]Listener, 0, len(a.listeners))
	for _, l := range a.listeners {
		listeners = append(listeners, l)
	}
	a.mu.Unlock()
	for _, l := range listeners {
		l(state, s.Clone())
	}
}

func (a *Adapter) persist(state State, s *remote.Session) {
	ctx := context.Background()
	var err error
	if state == Authenticated && s != nil {
		var data []byte
		if data, err = encode(s); err == nil {
			err = a.store.Put(ctx, StoreKey, data)
		}
	} else {
		err = a.store.Delete(ctx, StoreKey)
	}
	if err != nil {
		a.logger.Error("persisting session", errors.Wrap(err, "persisting session"))
	}
}

// SignIn signs the operator in. Remote errors are returned unchanged.
func (a *Adapter) SignIn(ctx context.Context, email, password string) (*remote.Session, error) {
	s, err := a.auth.SignInWithPassword(ctx, core.CleanString(email, true), password)
	if err != nil {
		return nil, err
	}
	a.transition(Authenticated, s)
	return s, nil
}

// SignUp registers a new account. The returned session is nil when the remote service
// requires the email to be confirmed first. Remote errors are returned unchanged.
func (a *Adapter) SignUp(ctx context.Context, email, password string, metadata map[string]interface{}) (*remote.Session, error) {
	s, err := a.auth.SignUp(ctx, core.CleanString(email, true), password, metadata)
	if err != nil {
		return nil, err
	}
	if s != nil {
		a.transition(Authenticated, s)
	}
	return s, nil
}

// SignOut signs the operator out. The local session is dropped even if the remote call fails.
func (a *Adapter) SignOut(ctx context.Context) error {
	err := a.auth.SignOut(ctx)
	a.transition(Anonymous, nil)
	return err
}

// OnChange registers l for state transitions; cancel unregisters it.
func (a *Adapter) OnChange(l Listener) (cancel func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextID++
	id := a.nextID
	a.listeners[id] = l
	return func() {
		a.mu.Lock()
		delete(a.listeners, id)
		a.mu.Unlock()
	}
}

// Close releases the session-change subscription. It is safe to call more than once.
func (a *Adapter) Close() error {
	a.closeOnce.Do(func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		if a.cancel != nil {
			a.cancel()
		}
		if a.sub != nil {
			a.sub.Unsubscribe()
			a.sub = nil
		}
	})
	return nil
}
