// Package session decides which screen group the user may see based on the
// authentication state, and keeps navigation consistent with it.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"staybook/internal/auth"
	"staybook/internal/domain"
)

var (
	// ErrNotReady is returned by Navigate before the first session check completed.
	ErrNotReady = errors.New("session state not resolved yet")
)

// State is the gate's view of the authentication state.
type State int

const (
	StateUnknown State = iota
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Navigator is the screen layer seen from the gate.
type Navigator interface {
	// Current returns the route on screen. The zero Route means nothing is shown yet.
	Current() Route
	// Replace swaps the current route for r without keeping history.
	Replace(r Route)
}

// Gate tracks the session and redirects the navigator on every change.
type Gate struct {
	provider auth.Provider
	nav      Navigator
	log      logrus.FieldLogger

	// navMu serialises evaluations, including the navigator calls, so a
	// redirect is never interleaved with another one. mu only guards the
	// fields below and is never held across a navigator call.
	navMu sync.Mutex

	mu          sync.Mutex
	state       State
	session     *domain.Session
	ready       chan struct{}
	readyOnce   sync.Once
	unsubscribe func()
}

// NewGate creates a gate in the Unknown state. Nothing is evaluated until Start.
func NewGate(provider auth.Provider, nav Navigator, logger logrus.FieldLogger) *Gate {
	return &Gate{
		provider: provider,
		nav:      nav,
		log:      logger.WithField("component", "session_gate"),
		ready:    make(chan struct{}),
	}
}

// Start subscribes to auth events and then resolves the existing session.
// A failing session query counts as signed out.
func (g *Gate) Start(ctx context.Context) {
	g.log.Info("Attempting to resolve session")

	unsubscribe := g.provider.Subscribe(g.onAuthEvent)
	g.mu.Lock()
	g.unsubscribe = unsubscribe
	g.mu.Unlock()

	session, err := g.provider.Session(ctx)
	if err != nil {
		g.log.WithError(err).Warn("Session query failed, treating as signed out")
		session = nil
	}
	g.apply(auth.EventInitialSession, session)
}

// Stop detaches the gate from the provider.
func (g *Gate) Stop() {
	g.mu.Lock()
	unsubscribe := g.unsubscribe
	g.unsubscribe = nil
	g.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
		g.log.Info("Session gate stopped")
	}
}

// Wait blocks until the state left Unknown for the first time.
func (g *Gate) Wait(ctx context.Context) error {
	select {
	case <-g.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ready is closed once the state left Unknown.
func (g *Gate) Ready() <-chan struct{} {
	return g.ready
}

// State returns the current state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Session returns the session the gate last saw, or nil.
func (g *Gate) Session() *domain.Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.session
}

// Navigate asks for route r and lands on whatever the current state allows:
// an authenticated user asking for an auth screen gets home, and the other way round.
func (g *Gate) Navigate(r Route) (Route, error) {
	g.navMu.Lock()
	defer g.navMu.Unlock()

	state := g.State()
	if state == StateUnknown {
		return Route{}, ErrNotReady
	}
	target := resolve(state, r)
	if target != r {
		g.log.WithFields(logrus.Fields{
			"requested": r.String(),
			"target":    target.String(),
		}).Info("Redirecting navigation")
	}
	if target != g.nav.Current() {
		g.nav.Replace(target)
	}
	return target, nil
}

func (g *Gate) onAuthEvent(event auth.Event, session *domain.Session) {
	g.apply(event, session)
}

// apply records the new session and redirects in the same evaluation.
func (g *Gate) apply(event auth.Event, session *domain.Session) {
	state := StateUnauthenticated
	if session != nil {
		state = StateAuthenticated
	}

	g.navMu.Lock()
	defer g.navMu.Unlock()

	g.mu.Lock()
	prev := g.state
	g.state = state
	g.session = session
	g.mu.Unlock()

	current := g.nav.Current()
	target := resolve(state, current)
	if target != current {
		g.nav.Replace(target)
	}

	g.log.WithFields(logrus.Fields{
		"event": event,
		"from":  prev.String(),
		"to":    state.String(),
		"route": target.String(),
	}).Info("Session state evaluated")

	g.readyOnce.Do(func() { close(g.ready) })
}

// resolve returns the route allowed for r in state s.
func resolve(s State, r Route) Route {
	switch s {
	case StateAuthenticated:
		if r.Group != GroupMain {
			return HomeRoute
		}
	case StateUnauthenticated:
		if r.Group != GroupAuth {
			return LoginRoute
		}
	}
	return r
}
