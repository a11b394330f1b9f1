// Package request carries per-request values between middleware and handlers.
package request

import (
	"context"

	"github.com/google/uuid"
)

type contextKey int

const identityIDKey contextKey = iota

// WithIdentityID returns a context carrying the authenticated identity.
func WithIdentityID(ctx context.Context, identityID uuid.UUID) context.Context {
	return context.WithValue(ctx, identityIDKey, identityID)
}

// IdentityID retrieves the authenticated identity from the context.
func IdentityID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(identityIDKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
