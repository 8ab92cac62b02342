package userctx

import (
	"context"
	"strings"
)

type contextKey string

const userIDContextKey contextKey = "user_id"

// DefaultUserID owns every record when authentication is disabled.
const DefaultUserID = "default"

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	return userID, ok
}

// OwnerID returns the normalized owner for storage keys, falling back to
// DefaultUserID for anonymous requests.
func OwnerID(ctx context.Context) string {
	userID, ok := GetUserID(ctx)
	if !ok {
		return DefaultUserID
	}
	owner := NormalizeOwner(userID)
	if owner == "" {
		return DefaultUserID
	}
	return owner
}

func NormalizeOwner(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}
