// Package guard decides, per navigation attempt, whether a view may be shown or the
// user must be sent to the login view first.
package guard

import (
	"errors"
	"fmt"
)

const (
	LoginPath     = "/login"
	RegisterPath  = "/register"
	DashboardPath = "/dashboard"
)

var (
	ErrDuplicateRoute = errors.New("duplicate route")
	ErrLoginNotPublic = errors.New("login path must be public")
)

// Policy is the access rule attached to a route.
type Policy int

const (
	// RequiresAuth is the zero value so a route nobody classified stays protected.
	RequiresAuth Policy = iota
	Public
)

func (p Policy) String() string {
	switch p {
	case Public:
		return "public"
	case RequiresAuth:
		return "requires_auth"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

type Route struct {
	Path   string
	Policy Policy
}

// DefaultRoutes is the application's route table.
func DefaultRoutes() []Route {
	return []Route{
		{Path: LoginPath, Policy: Public},
		{Path: RegisterPath, Policy: Public},
		{Path: DashboardPath, Policy: RequiresAuth},
	}
}

type Outcome int

const (
	Allowed Outcome = iota
	Redirected
)

func (o Outcome) String() string {
	if o == Redirected {
		return "redirected"
	}
	return "allowed"
}

type Decision struct {
	Outcome Outcome
	// Target is where navigation ends up: the requested path or the login path.
	Target string
}

// SessionReader is the slice of the session the guard depends on.
type SessionReader interface {
	IsAuthenticated() bool
}

type Guard struct {
	session   SessionReader
	loginPath string
	policies  map[string]Policy
}

func New(session SessionReader, loginPath string, routes ...Route) (*Guard, error) {
	policies := make(map[string]Policy, len(routes))
	for _, r := range routes {
		if _, ok := policies[r.Path]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRoute, r.Path)
		}
		policies[r.Path] = r.Policy
	}
	if policies[loginPath] != Public {
		return nil, fmt.Errorf("%w: %s", ErrLoginNotPublic, loginPath)
	}

	return &Guard{
		session:   session,
		loginPath: loginPath,
		policies:  policies,
	}, nil
}

func (g *Guard) LoginPath() string {
	return g.loginPath
}

// PolicyFor returns the policy of path; unknown paths require authentication.
func (g *Guard) PolicyFor(path string) Policy {
	if p, ok := g.policies[path]; ok {
		return p
	}
	return RequiresAuth
}

// Decide is the whole rule: public paths always proceed, anything else proceeds
// only for an authenticated session. Paths are matched exactly.
func (g *Guard) Decide(path string, authenticated bool) Decision {
	if g.PolicyFor(path) == Public || authenticated {
		return Decision{Outcome: Allowed, Target: path}
	}
	return Decision{Outcome: Redirected, Target: g.loginPath}
}

// Check evaluates path against the current session.
func (g *Guard) Check(path string) Decision {
	return g.Decide(path, g.session.IsAuthenticated())
}
