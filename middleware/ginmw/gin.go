// Package ginmw provides Gin HTTP middleware that applies access guard
// decisions to routes of a Go-rendered frontend.
//
// Handlers run only after the session machine has finished booting: the
// middleware holds the request on WaitReady instead of issuing a spurious
// redirect off a valid, not-yet-resolved session.
package ginmw

import (
	"net/http"

	"github.com/gin-gonic/gin"

	campus "github.com/campushq/campus-go"
	"github.com/campushq/campus-go/guard"
	"github.com/campushq/campus-go/metrics"
	"github.com/campushq/campus-go/session"
)

// Context keys for storing session data in gin.Context.
const (
	KeyIdentity = "campus_identity"
	KeyRole     = "campus_role"
)

// Option configures the middleware.
type Option func(*config)

type config struct {
	meter *metrics.Metrics
}

// WithMetrics records guard decisions to Prometheus.
func WithMetrics(m *metrics.Metrics) Option {
	return func(cfg *config) { cfg.meter = m }
}

// Protected returns Gin middleware gating the route on the session state.
// With no roles, any authenticated identity passes; otherwise the identity
// role must match one of them. Denied requests are redirected to the login
// route, identically for unauthenticated sessions and role mismatches.
func Protected(sess *session.Context, roles ...campus.Role) gin.HandlerFunc {
	return protected(sess, roles, nil)
}

// ProtectedWith is Protected with extra configuration.
func ProtectedWith(sess *session.Context, opts []Option, roles ...campus.Role) gin.HandlerFunc {
	cfg := &config{meter: metrics.New(false)}
	for _, o := range opts {
		o(cfg)
	}
	return protected(sess, roles, cfg.meter)
}

func protected(sess *session.Context, roles []campus.Role, meter *metrics.Metrics) gin.HandlerFunc {
	if meter == nil {
		meter = metrics.New(false)
	}

	return func(c *gin.Context) {
		if err := sess.WaitReady(c.Request.Context()); err != nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}

		snap := sess.Snapshot()
		decision := guard.Decide(snap, roles...)
		meter.RecordGuardDecision(decision.Action.String())

		switch decision.Action {
		case guard.Render:
			c.Set(KeyIdentity, *snap.Identity)
			c.Set(KeyRole, snap.Identity.Role)
			ctx := campus.WithIdentity(c.Request.Context(), *snap.Identity)
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		case guard.Redirect:
			c.Redirect(http.StatusFound, decision.Target)
			c.Abort()
		default:
			// unreachable after WaitReady; fail closed without leaking
			c.AbortWithStatus(http.StatusServiceUnavailable)
		}
	}
}

// GetIdentity extracts the resolved identity stored by Protected.
func GetIdentity(c *gin.Context) (campus.Identity, bool) {
	v, ok := c.Get(KeyIdentity)
	if !ok {
		return campus.Identity{}, false
	}
	id, ok := v.(campus.Identity)
	return id, ok
}

// GetRole extracts the resolved role stored by Protected.
func GetRole(c *gin.Context) (campus.Role, bool) {
	v, ok := c.Get(KeyRole)
	if !ok {
		return "", false
	}
	role, ok := v.(campus.Role)
	return role, ok
}
