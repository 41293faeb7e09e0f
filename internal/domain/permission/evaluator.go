// Package permission decides whether the current session may perform a
// (module, action) pair. It is a pure read over session state: no network,
// no on-demand fetching. Permissions are only as fresh as the last login or
// refresh.
package permission

import (
	"github.com/stockroom-hq/stockroom-go/internal/domain/session"
)

// Source yields the current session, or nil when unauthenticated.
// session.Store satisfies this.
type Source interface {
	Current() *session.Session
}

// Evaluator answers (module, action) permission queries against the
// current session.
type Evaluator struct {
	source Source
}

// NewEvaluator creates an Evaluator reading from the given source.
func NewEvaluator(source Source) *Evaluator {
	return &Evaluator{source: source}
}

// Has reports whether the current session exists and holds the exact
// (module, action) grant or the superuser wildcard. Unauthenticated means
// no permissions, not an error: Has never fails.
func (e *Evaluator) Has(module, action string) bool {
	if e == nil || e.source == nil {
		return false
	}
	sess := e.source.Current()
	if sess == nil {
		return false
	}
	return sess.HasGrant(module, action)
}
