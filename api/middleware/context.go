package middleware

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	ctxUserID  contextKey = "user_id"
	ctxStoreID contextKey = "store_id"
	ctxAdmin   contextKey = "admin"
)

// WithUserID seeds the authenticated user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithStoreID scopes the context to one tenant.
func WithStoreID(ctx context.Context, storeID uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxStoreID, storeID)
}

// WithAdmin marks the context as an admin session.
func WithAdmin(ctx context.Context, admin bool) context.Context {
	return context.WithValue(ctx, ctxAdmin, admin)
}

// UserIDFromContext returns the authenticated user id, if any.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

// StoreIDFromContext returns the tenant the session is scoped to.
func StoreIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(ctxStoreID).(uuid.UUID)
	return v, ok
}

// IsAdminFromContext reports whether the session carries the admin flag.
func IsAdminFromContext(ctx context.Context) bool {
	v, ok := ctx.Value(ctxAdmin).(bool)
	return ok && v
}
