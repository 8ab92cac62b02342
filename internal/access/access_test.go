package access

import (
	"context"
	"errors"
	"testing"

	"github.com/fdg312/plateplan/internal/storage"
	"github.com/fdg312/plateplan/internal/storage/memory"
)

func TestCanUse(t *testing.T) {
	tests := []struct {
		status SubscriptionStatus
		tier   string
		want   bool
	}{
		{StatusNone, storage.TierFree, true},
		{StatusFree, storage.TierFree, true},
		{StatusCanceled, storage.TierFree, true},
		{StatusNone, storage.TierPremium, false},
		{StatusFree, storage.TierPremium, false},
		{StatusPastDue, storage.TierPremium, false},
		{StatusCanceled, storage.TierPremium, false},
		{StatusActive, storage.TierPremium, true},
		{StatusTrialing, storage.TierPremium, true},
		{StatusPremium, storage.TierPremium, true},
	}

	for _, tt := range tests {
		if got := CanUse(tt.status, tt.tier); got != tt.want {
			t.Errorf("CanUse(%q, %q) = %v, want %v", tt.status, tt.tier, got, tt.want)
		}
	}
}

func TestParseStatusNormalizes(t *testing.T) {
	if got := ParseStatus("  Active "); got != StatusActive {
		t.Errorf("ParseStatus = %q, want %q", got, StatusActive)
	}
}

func TestGateCheck(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	gate := NewGate(NewProfileSubscriptions(mem.GetProfilesStorage()))

	if err := gate.Check(ctx, "nobody", storage.TierFree); err != nil {
		t.Fatalf("free tier: %v", err)
	}
	if err := gate.Check(ctx, "nobody", storage.TierPremium); !errors.Is(err, ErrPlanLocked) {
		t.Fatalf("premium without profile: err = %v, want ErrPlanLocked", err)
	}

	if err := mem.GetProfilesStorage().SetSubscriptionStatus(ctx, "payer", "active"); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if err := gate.Check(ctx, "payer", storage.TierPremium); err != nil {
		t.Fatalf("premium with active subscription: %v", err)
	}
}

type failingSource struct{ err error }

func (f failingSource) SubscriptionStatus(ctx context.Context, userID string) (SubscriptionStatus, error) {
	return StatusNone, f.err
}

func TestGateCheckPropagatesSourceErrors(t *testing.T) {
	boom := errors.New("billing down")
	gate := NewGate(failingSource{err: boom})

	err := gate.Check(context.Background(), "u", storage.TierPremium)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if errors.Is(err, ErrPlanLocked) {
		t.Fatal("source failure must not be reported as plan locked")
	}
}
