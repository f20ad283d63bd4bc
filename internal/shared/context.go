package shared

import "context"

type ctxKeySession struct{}

// ContextWithSession attaches the loaded session to the request context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, ctxKeySession{}, sess)
}

// SessionFromContext returns the attached session, or nil when the request
// bypassed the session middleware.
func SessionFromContext(ctx context.Context) *Session {
	if sess, ok := ctx.Value(ctxKeySession{}).(*Session); ok {
		return sess
	}
	return nil
}
