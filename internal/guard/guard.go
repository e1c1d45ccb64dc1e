// Package guard decides where a navigation lands given the session value.
// Every decision is a pure function of (authenticated, requested route).
package guard

import (
	"github.com/placar-dev/placar/internal/assert"
)

// Route identifies a page, e.g. "/dashboard"
type Route string

// Class is the guard applied to a route
type Class int

const (
	// Public routes render regardless of the session
	Public Class = iota
	// Protected routes require a session
	Protected
	// AuthOnly routes are for visitors without a session (login, register)
	AuthOnly
)

func (c Class) String() string {
	switch c {
	case Protected:
		return "protected"
	case AuthOnly:
		return "auth_only"
	default:
		return "public"
	}
}

// RequireSession is the protected-route guard
func RequireSession(authenticated bool, requested, login Route) Route {
	if !authenticated {
		return login
	}
	return requested
}

// RequireNoSession is the auth-route guard
func RequireNoSession(authenticated bool, requested, home Route) Route {
	if authenticated {
		return home
	}
	return requested
}

// Policy classifies routes and resolves navigations
type Policy struct {
	login   Route
	home    Route
	classes map[Route]Class
}

// NewPolicy builds a policy where login is auth-only and home is protected.
// Redirect targets must land on themselves, so they cannot be reclassified.
func NewPolicy(login, home Route) *Policy {
	assert.True(login != home, "login and home must differ, both are %s", login)
	return &Policy{
		login: login,
		home:  home,
		classes: map[Route]Class{
			login: AuthOnly,
			home:  Protected,
		},
	}
}

// Protect marks routes as requiring a session
func (p *Policy) Protect(routes ...Route) *Policy {
	return p.classify(Protected, routes)
}

// AuthOnly marks routes as visitor-only
func (p *Policy) AuthOnly(routes ...Route) *Policy {
	return p.classify(AuthOnly, routes)
}

// Public marks routes as unguarded
func (p *Policy) Public(routes ...Route) *Policy {
	return p.classify(Public, routes)
}

func (p *Policy) classify(class Class, routes []Route) *Policy {
	for _, r := range routes {
		assert.True(r != p.login && r != p.home, "cannot reclassify redirect target %s", r)
		p.classes[r] = class
	}
	return p
}

// Login returns the route unauthenticated visitors are sent to
func (p *Policy) Login() Route { return p.login }

// Home returns the route authenticated users are sent to
func (p *Policy) Home() Route { return p.home }

// ClassOf returns the class of r. Unknown routes are public.
func (p *Policy) ClassOf(r Route) Class {
	return p.classes[r]
}

// Resolve returns the route to render for a navigation to requested
func (p *Policy) Resolve(authenticated bool, requested Route) Route {
	switch p.ClassOf(requested) {
	case Protected:
		return RequireSession(authenticated, requested, p.login)
	case AuthOnly:
		return RequireNoSession(authenticated, requested, p.home)
	default:
		return requested
	}
}
