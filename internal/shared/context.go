package shared

import "context"

type sessionContextKey struct{}

type terminalContextKey struct{}

// DefaultTerminal names the register used when a request does not pick one.
const DefaultTerminal = "main"

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// ContextWithTerminal records which POS tab/terminal the request acts on.
func ContextWithTerminal(ctx context.Context, terminal string) context.Context {
	return context.WithValue(ctx, terminalContextKey{}, terminal)
}

// TerminalFromContext returns the terminal for the request, DefaultTerminal if unset.
func TerminalFromContext(ctx context.Context) string {
	if t, _ := ctx.Value(terminalContextKey{}).(string); t != "" {
		return t
	}
	return DefaultTerminal
}
