package web

import (
	"context"

	"github.com/google/uuid"
)

type requestIDKey struct{}

type clientIDKey struct{}

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// GetRequestID retrieves the request ID from the context.
// Returns the request ID and a boolean indicating whether it was found.
func GetRequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok
}

// WithClientID adds the shopper id to the context.
func WithClientID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, clientIDKey{}, id)
}

// GetClientID retrieves the shopper id from the context.
func GetClientID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(clientIDKey{}).(uuid.UUID)
	return id, ok
}
