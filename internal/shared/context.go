package shared

import "context"

type sessionContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// CurrentUserID returns the signed-in user id, or "" for anonymous requests.
func CurrentUserID(ctx context.Context) string {
	if sess := SessionFromContext(ctx); sess != nil {
		return sess.User()
	}
	return ""
}

// CurrentRole returns the signed-in user's role, or "" for anonymous requests.
func CurrentRole(ctx context.Context) Role {
	if sess := SessionFromContext(ctx); sess != nil && sess.User() != "" {
		return sess.Role()
	}
	return ""
}

// ContextWithIdentity attaches a request-scoped session for userID that is
// never persisted. Tooling and background work use it to act as a user.
func ContextWithIdentity(ctx context.Context, userID string, role Role) context.Context {
	sess := &Session{ID: "local:" + userID, values: map[string]string{}, userID: userID, role: role}
	return ContextWithSession(ctx, sess)
}
