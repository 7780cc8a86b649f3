package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey ContextKey = "request_id"
	// OperatorKey holds the authenticated operator name
	OperatorKey ContextKey = "operator"
)

// maxRequestIDLen bounds client-supplied request ids echoed into logs.
const maxRequestIDLen = 64

// RequestID tags each request with an id, reusing a client X-Request-ID when
// it is short enough.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if requestID == "" || len(requestID) > maxRequestIDLen {
			requestID = uuid.NewString()
		}

		w.Header().Set("X-Request-ID", requestID)
		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID from the context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// WithOperator stores the authenticated operator in ctx
func WithOperator(ctx context.Context, operator string) context.Context {
	return context.WithValue(ctx, OperatorKey, operator)
}

// GetOperator returns the authenticated operator, or "" for anonymous requests
func GetOperator(ctx context.Context) string {
	if op, ok := ctx.Value(OperatorKey).(string); ok {
		return op
	}
	return ""
}
