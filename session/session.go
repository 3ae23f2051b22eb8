// Package session owns the process-wide authentication state machine.
//
// A Context starts in the Booting state, resolves any stored credential
// exactly once via Bootstrap, and then stays Ready for the rest of the
// process lifetime. Identity and readiness change atomically together, and
// all mutation goes through the named transitions (Bootstrap, Login, Logout,
// Refresh) so every gated view reads the same source of truth.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	campus "github.com/campushq/campus-go"
	"github.com/campushq/campus-go/audit"
	"github.com/campushq/campus-go/metrics"
)

// Readiness tells whether the initial credential resolution has completed.
type Readiness int

const (
	// Booting means Bootstrap has not finished; guard decisions must
	// suspend rather than redirect.
	Booting Readiness = iota
	// Ready means the initial resolution attempt completed, successfully
	// or not.
	Ready
)

// String returns the readiness name for logs.
func (r Readiness) String() string {
	if r == Ready {
		return "ready"
	}
	return "booting"
}

// Snapshot is an immutable read of the session state. Identity is nil while
// unauthenticated.
type Snapshot struct {
	Identity  *campus.Identity
	Readiness Readiness
}

// Authenticated reports whether an identity has been resolved.
func (s Snapshot) Authenticated() bool { return s.Identity != nil }

// Context is the owning component of the session state machine. It is safe
// for concurrent use; reads go through Snapshot and never observe a
// half-applied transition.
type Context struct {
	tokens campus.TokenStore
	api    campus.IdentityAPI
	logger *slog.Logger
	meter  *metrics.Metrics
	trail  *audit.Logger

	mu        sync.Mutex
	identity  *campus.Identity
	readiness Readiness
	watch     chan struct{}

	bootOnce sync.Once
	ready    chan struct{}
}

// Option configures a Context.
type Option func(*Context)

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Context) { c.logger = l }
}

// WithMetrics records session transitions to Prometheus.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Context) { c.meter = m }
}

// WithAudit emits session transitions to the client-side audit logger.
func WithAudit(a *audit.Logger) Option {
	return func(c *Context) { c.trail = a }
}

// New creates a session Context in the Booting state.
func New(tokens campus.TokenStore, api campus.IdentityAPI, opts ...Option) *Context {
	c := &Context{
		tokens: tokens,
		api:    api,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		meter:  metrics.New(false),
		watch:  make(chan struct{}),
		ready:  make(chan struct{}),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Snapshot returns a copy of the current state.
func (c *Context) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{Readiness: c.readiness}
	if c.identity != nil {
		id := *c.identity
		snap.Identity = &id
	}
	return snap
}

// WaitReady blocks until Bootstrap has completed or ctx is done. Guarded
// views and workflow calls gate on it so no decision is made while booting.
func (c *Context) WaitReady(ctx context.Context) error {
	select {
	case <-c.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Watch returns a channel closed on the next state transition, letting
// guards re-evaluate their decision.
func (c *Context) Watch() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.watch
}

// Bootstrap resolves the stored credential into an identity, exactly once
// per process. With no credential it transitions straight to Ready
// unauthenticated. Failure of any kind, an unreadable store included,
// clears the token store and deterministically resolves to Ready
// unauthenticated: a bootstrap failure is recovered locally, never
// surfaced. Repeat calls are no-ops.
func (c *Context) Bootstrap(ctx context.Context) {
	c.bootOnce.Do(func() { c.bootstrap(ctx) })
}

func (c *Context) bootstrap(ctx context.Context) {
	start := time.Now()
	defer func() { c.meter.ObserveBootstrap(time.Since(start).Seconds()) }()

	pair, err := c.tokens.Load(ctx)
	if err != nil || pair.Empty() {
		if err != nil && !errors.Is(err, campus.ErrUnauthenticated) {
			c.logger.Error("session: failed to load stored credential", "error", err)
			c.clearTokens(ctx)
		}
		c.transition(nil)
		c.audit("bootstrap", "unauthenticated", nil)
		return
	}

	id, err := c.api.Profile(ctx)
	if err != nil {
		c.logger.Debug("session: bootstrap resolution failed", "error", err)
		c.clearTokens(ctx)
		c.transition(nil)
		c.audit("bootstrap", "failure", err)
		return
	}

	c.transition(&id)
	c.logger.Debug("session: bootstrap resolved identity",
		"email", id.Email,
		"role", id.Role)
	c.audit("bootstrap", "success", nil)
}

// Login exchanges credentials for a new pair, stores it and resolves the
// identity. On any failure the token store and the current identity are
// left untouched, except that a pair stored just before a failed resolve is
// rolled back: there is no partial login.
func (c *Context) Login(ctx context.Context, email, password string) error {
	pair, err := c.api.Login(ctx, email, password)
	if err != nil {
		c.meter.RecordLogin("failure")
		c.audit("login", "failure", err)
		return fmt.Errorf("campus/session: login: %w", err)
	}

	if err := c.tokens.Save(ctx, pair); err != nil {
		c.meter.RecordLogin("failure")
		return fmt.Errorf("campus/session: store credential: %w", err)
	}

	id, err := c.api.Profile(ctx)
	if err != nil {
		c.clearTokens(ctx)
		c.meter.RecordLogin("failure")
		c.audit("login", "failure", err)
		return fmt.Errorf("campus/session: resolve after login: %w", err)
	}

	c.transition(&id)
	c.meter.RecordLogin("success")
	c.audit("login", "success", nil)
	return nil
}

// Logout clears the token store and drops the identity. It always succeeds,
// even when already logged out; a failing store is logged and the identity
// is dropped regardless.
func (c *Context) Logout(ctx context.Context) {
	c.clearTokens(ctx)
	c.transition(nil)
	c.audit("logout", "success", nil)
}

// Refresh re-resolves the identity with the stored credential, picking up
// role or verification changes. A rejected or missing credential behaves
// like a failed bootstrap: store cleared, identity dropped, no error
// surfaced. Other failures are returned and leave the identity unchanged.
func (c *Context) Refresh(ctx context.Context) error {
	id, err := c.api.Profile(ctx)
	if err != nil {
		if errors.Is(err, campus.ErrSessionInvalid) || errors.Is(err, campus.ErrUnauthenticated) {
			c.logger.Debug("session: credential no longer valid, dropping session", "error", err)
			c.clearTokens(ctx)
			c.transition(nil)
			return nil
		}
		return fmt.Errorf("campus/session: refresh: %w", err)
	}

	c.transition(&id)
	return nil
}

// transition atomically replaces the identity and marks the machine Ready.
func (c *Context) transition(id *campus.Identity) {
	c.mu.Lock()
	c.identity = id
	wasBooting := c.readiness == Booting
	c.readiness = Ready
	close(c.watch)
	c.watch = make(chan struct{})
	c.mu.Unlock()

	if wasBooting {
		close(c.ready)
	}
}

func (c *Context) clearTokens(ctx context.Context) {
	if err := c.tokens.Clear(ctx); err != nil {
		c.logger.Error("session: failed to clear token store", "error", err)
	}
}

func (c *Context) audit(action, result string, err error) {
	if c.trail == nil {
		return
	}
	ev := audit.Event{Action: action, Result: result}
	if id := c.snapshotEmail(); id != "" {
		ev.Actor = id
	}
	if err != nil {
		ev.Error = err.Error()
	}
	c.trail.Log(ev)
}

func (c *Context) snapshotEmail() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.identity == nil {
		return ""
	}
	return c.identity.Email
}
