package http

import "context"

type contextKey string

const (
	requestIDContextKey contextKey = "quill/request-id"
	userIDContextKey    contextKey = "quill/user-id"
)

// RequestIDFromContext extracts the request identifier from the context when available.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if value, ok := ctx.Value(requestIDContextKey).(string); ok {
		return value
	}
	return ""
}

// UserIDFromContext extracts the authenticated user identifier, returning
// zero for anonymous requests.
func UserIDFromContext(ctx context.Context) uint {
	if ctx == nil {
		return 0
	}
	if value, ok := ctx.Value(userIDContextKey).(uint); ok {
		return value
	}
	return 0
}
