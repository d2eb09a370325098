package httpx

import (
	"context"

	"github.com/opentrusty/console/internal/session"
)

// handleKey is an unexported context key type to avoid collisions across
// packages. Centralized in this file so all handlers/middleware use the
// same key.
type handleKey struct{}

// setHandleInContext returns a child context carrying the console session
// handle. A nil handle returns the original ctx unchanged.
func setHandleInContext(ctx context.Context, h *session.Handle) context.Context {
	if h == nil {
		return ctx
	}
	return context.WithValue(ctx, handleKey{}, h)
}

// HandleFromContext returns the console session handle and whether one is
// present.
func HandleFromContext(ctx context.Context) (*session.Handle, bool) {
	if h, ok := ctx.Value(handleKey{}).(*session.Handle); ok && h != nil {
		return h, true
	}
	return nil, false
}

// snapshotFromContext returns the session snapshot for the current request.
// Requests with no console session get a zero snapshot, which guards read as
// unauthenticated.
func snapshotFromContext(ctx context.Context) session.Snapshot {
	if h, ok := HandleFromContext(ctx); ok {
		return h.Store.Snapshot()
	}
	return session.Snapshot{}
}
