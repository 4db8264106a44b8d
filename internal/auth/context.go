// Package auth carries the resolved session through request contexts.
package auth

import (
	"context"

	"github.com/dukerupert/benefitform/internal/session"
)

type contextKey struct{}

func WithSession(ctx context.Context, s *session.Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

func FromContext(ctx context.Context) (*session.Session, bool) {
	s, ok := ctx.Value(contextKey{}).(*session.Session)
	return s, ok && s != nil
}

// SessionID returns the public session ID, or "" when the request has none.
func SessionID(ctx context.Context) string {
	s, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return s.ID
}
