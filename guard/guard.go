// Package guard centralizes the render-or-redirect decision for protected
// views.
//
// Decide is total and side-effect free so it can be tested without mounting
// any view; callers re-evaluate it whenever the session state changes.
package guard

import (
	campus "github.com/campushq/campus-go"
	"github.com/campushq/campus-go/session"
)

// Action is the outcome of a guard decision.
type Action int

const (
	// Suspend means the session is still booting: render nothing and
	// re-evaluate on the next state change. Never redirect off a valid,
	// not-yet-resolved session.
	Suspend Action = iota
	// Render allows the protected view.
	Render
	// Redirect denies the view and names the target route.
	Redirect
)

// String returns the action name for logs and metrics labels.
func (a Action) String() string {
	switch a {
	case Render:
		return "render"
	case Redirect:
		return "redirect"
	default:
		return "suspend"
	}
}

// Decision is the result of a guard evaluation.
type Decision struct {
	Action Action
	Target string
}

// LoginRoute is the uniform denial target. Role mismatches redirect here
// exactly like unauthenticated sessions, so the existence of a role-gated
// resource is not leaked.
const LoginRoute = "/login"

// Decide evaluates whether a protected view may render for the given
// session snapshot. With no roles given, any authenticated identity may
// render; otherwise the identity's role must match one of them.
func Decide(snap session.Snapshot, roles ...campus.Role) Decision {
	if snap.Readiness == session.Booting {
		return Decision{Action: Suspend}
	}
	if snap.Identity == nil {
		return Decision{Action: Redirect, Target: LoginRoute}
	}
	for _, r := range roles {
		if snap.Identity.Role == r {
			return Decision{Action: Render}
		}
	}
	if len(roles) > 0 {
		return Decision{Action: Redirect, Target: LoginRoute}
	}
	return Decision{Action: Render}
}
