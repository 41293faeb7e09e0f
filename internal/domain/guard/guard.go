// Package guard provides the declarative authorization gate consumed by UI
// bindings: a protected subtree renders only when the permission evaluator
// allows the configured (module, action) pair, otherwise a fallback (or
// nothing) renders. The guard never issues network calls; it is a thin
// adapter over the pure permission predicate.
package guard

import (
	"io"
	"sync"

	"github.com/stockroom-hq/stockroom-go/internal/domain/session"
)

// Checker answers (module, action) permission queries.
// permission.Evaluator satisfies this.
type Checker interface {
	Has(module, action string) bool
}

// Subscriber delivers session-change notifications.
// session.Store satisfies this.
type Subscriber interface {
	Subscribe(listener func(*session.Session)) (unsubscribe func())
}

// RenderFunc writes one subtree of output.
type RenderFunc func(w io.Writer) error

// Guard gates a protected subtree on a single (module, action) pair.
type Guard struct {
	check     Checker
	module    string
	action    string
	protected RenderFunc
	fallback  RenderFunc
}

// Option configures a Guard.
type Option func(*Guard)

// WithFallback sets the subtree rendered when the pair is not allowed.
// Without it, a denied guard renders nothing.
func WithFallback(f RenderFunc) Option {
	return func(g *Guard) {
		g.fallback = f
	}
}

// New creates a Guard for the given pair and protected subtree.
func New(check Checker, module, action string, protected RenderFunc, opts ...Option) *Guard {
	g := &Guard{
		check:     check,
		module:    module,
		action:    action,
		protected: protected,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Allowed reports the current verdict for the guarded pair.
func (g *Guard) Allowed() bool {
	return g.check != nil && g.check.Has(g.module, g.action)
}

// Render writes the protected subtree when allowed, the fallback when
// denied, and nothing when denied without a fallback.
func (g *Guard) Render(w io.Writer) error {
	if g.Allowed() {
		if g.protected == nil {
			return nil
		}
		return g.protected(w)
	}
	if g.fallback == nil {
		return nil
	}
	return g.fallback(w)
}

// Watch subscribes the guard to session changes and reports the verdict to
// onChange: once immediately, then again on every session change that flips
// it. A refresh returning a different role set is therefore reflected
// without a reload. The returned release function drops the subscription
// and is safe to call on every exit path, more than once included.
func (g *Guard) Watch(store Subscriber, onChange func(allowed bool)) (release func()) {
	if store == nil || onChange == nil {
		return func() {}
	}

	// The subscription must exist before the initial verdict is computed:
	// a session change landing between the two would otherwise go
	// undelivered until the next change.
	var mu sync.Mutex
	var last, primed bool

	report := func(now bool) {
		mu.Lock()
		fire := !primed || now != last
		primed = true
		last = now
		mu.Unlock()
		if fire {
			onChange(now)
		}
	}

	unsubscribe := store.Subscribe(func(*session.Session) {
		report(g.Allowed())
	})
	report(g.Allowed())

	var once sync.Once
	return func() {
		once.Do(unsubscribe)
	}
}
