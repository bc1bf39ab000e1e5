// Package guard decides whether the current session may reach a screen.
// The decision is a pure function over the session value so the same rules
// serve HTTP middleware and tests alike; it is re-evaluated on every
// navigation and never cached.
package guard

import "resumedesk.org/internal/session"

// Requirement is the capability a route demands.
type Requirement int

const (
	// Public routes admit everyone.
	Public Requirement = iota
	// AnySession requires a valid session of any role.
	AnySession
	// SuperAdmin requires the super_admin role.
	SuperAdmin
)

// State is the effective access state for one navigation.
type State int

const (
	Admitted State = iota
	Unauthenticated
	Insufficient
)

// Redirect targets. An insufficient role lands on the overview screen,
// never back on login: the session itself is still valid.
const (
	LoginPath   = "/login"
	LandingPath = "/overview"
)

// Decision is the outcome of evaluating a navigation.
type Decision struct {
	State      State
	RedirectTo string
}

// Evaluate applies the transition rules. ok=false covers both an absent
// session and one whose stored data failed to parse; any such ambiguity
// fails closed to Unauthenticated.
func Evaluate(sess session.Session, ok bool, req Requirement) Decision {
	if req == Public {
		return Decision{State: Admitted}
	}
	if !ok || !sess.Valid() {
		return Decision{State: Unauthenticated, RedirectTo: LoginPath}
	}
	if req == SuperAdmin && !sess.IsSuperAdmin() {
		return Decision{State: Insufficient, RedirectTo: LandingPath}
	}
	return Decision{State: Admitted}
}
