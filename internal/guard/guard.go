// Package guard gates access to protected views on the presence of a
// valid session. It never creates or destroys sessions itself; that is
// the auth gateway's job.
package guard

import (
	"context"
	"errors"
	"strings"
	"sync"

	"taskpad/internal/apperr"
	"taskpad/internal/remote"
)

// Gateway is the auth collaborator the guard observes.
type Gateway interface {
	CurrentSession(ctx context.Context) (*remote.Session, error)
	SignUp(ctx context.Context, email, password, username string) (remote.Identity, error)
	SignInWithPassword(ctx context.Context, email, password string) (remote.Session, error)
	SignOut(ctx context.Context) error
}

// Navigator is the navigation surface the guard redirects through.
type Navigator interface {
	GoToSignIn()
}

type State int

const (
	Absent State = iota
	Established
)

// SessionState is the guard's answer to "who is signed in, if anyone".
type SessionState struct {
	State    State
	Identity remote.Identity
}

// Guard is a process-wide read-through cache over the gateway's session
// state, invalidated on sign-out.
type Guard struct {
	gateway Gateway

	mu      sync.Mutex
	current SessionState
}

func New(gateway Gateway) *Guard {
	return &Guard{gateway: gateway}
}

// Check queries the gateway for a currently valid session. Fail closed:
// any gateway error reads as Absent, never as Established.
func (g *Guard) Check(ctx context.Context) SessionState {
	session, err := g.gateway.CurrentSession(ctx)
	state := SessionState{State: Absent}
	if err == nil && session != nil {
		state = SessionState{State: Established, Identity: session.Identity}
	}
	g.mu.Lock()
	g.current = state
	g.mu.Unlock()
	return state
}

// Require allows a protected view to render only with an established
// session; otherwise it redirects to sign-in and reports false.
func (g *Guard) Require(ctx context.Context, nav Navigator) (SessionState, bool) {
	state := g.Check(ctx)
	if state.State != Established {
		nav.GoToSignIn()
		return state, false
	}
	return state, true
}

// Current returns the last observed state without consulting the gateway.
func (g *Guard) Current() SessionState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

// SignUp validates registration input locally, in order, before any
// gateway call; the first violated field is reported. Success does not
// establish a session.
func (g *Guard) SignUp(ctx context.Context, email, password, username string) (remote.Identity, error) {
	trimmedUsername := strings.TrimSpace(username)
	if trimmedUsername == "" {
		return remote.Identity{}, apperr.Validation("username", "Username is required")
	}
	if len(trimmedUsername) < 3 {
		return remote.Identity{}, apperr.Validation("username", "Username must be at least 3 characters long")
	}
	if strings.TrimSpace(email) == "" {
		return remote.Identity{}, apperr.Validation("email", "Email is required")
	}
	if len(password) < 6 {
		return remote.Identity{}, apperr.Validation("password", "Password must be at least 6 characters long")
	}

	identity, err := g.gateway.SignUp(ctx, email, password, trimmedUsername)
	if err != nil {
		return remote.Identity{}, authError(err)
	}
	return identity, nil
}

// SignIn delegates to the gateway; its failure message is surfaced
// verbatim.
func (g *Guard) SignIn(ctx context.Context, email, password string) (remote.Session, error) {
	session, err := g.gateway.SignInWithPassword(ctx, email, password)
	if err != nil {
		return remote.Session{}, authError(err)
	}
	g.mu.Lock()
	g.current = SessionState{State: Established, Identity: session.Identity}
	g.mu.Unlock()
	return session, nil
}

// SignOut revokes the session via the gateway. The guard reads Absent
// afterwards regardless of the gateway outcome; a failed remote revoke
// is returned for reporting but never blocks navigation away.
func (g *Guard) SignOut(ctx context.Context) error {
	err := g.gateway.SignOut(ctx)
	g.mu.Lock()
	g.current = SessionState{State: Absent}
	g.mu.Unlock()
	if err != nil {
		return authError(err)
	}
	return nil
}

func authError(err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperr.Auth(err.Error(), err)
}
