// Package semesterctx carries per-request semester routing state.
//
// Middleware resolves the caller's view alias (from their session) and the
// current write alias once per request and stashes both here; handlers and
// services read them instead of re-resolving.
package semesterctx

import "context"

type ctxKey struct{}

// Aliases is the resolved routing state for one request.
type Aliases struct {
	// Read is the alias semester-scoped reads should use: the session's
	// view alias when set, otherwise the current semester.
	Read string
	// Write is the current semester's alias; "" when no semester is
	// current, in which case semester-scoped writes must fail.
	Write string
}

// With returns a child context carrying the resolved aliases.
func With(ctx context.Context, a Aliases) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

// From extracts the resolved aliases; ok is false when no middleware ran.
func From(ctx context.Context) (Aliases, bool) {
	a, ok := ctx.Value(ctxKey{}).(Aliases)
	return a, ok
}

// ViewAlias returns the read alias only when it differs from the write
// alias, i.e. when the caller is browsing a non-current semester.
func (a Aliases) ViewAlias() string {
	if a.Read != a.Write {
		return a.Read
	}
	return ""
}
