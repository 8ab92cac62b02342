package userctx

import (
	"context"
	"testing"
)

func TestOwnerID(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{"anonymous", context.Background(), DefaultUserID},
		{"blank", WithUserID(context.Background(), "   "), DefaultUserID},
		{"normalized", WithUserID(context.Background(), "  Alice@Example.COM "), "alice@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OwnerID(tt.ctx); got != tt.want {
				t.Errorf("OwnerID = %q, want %q", got, tt.want)
			}
		})
	}
}
