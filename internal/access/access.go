// Package access decides whether a plan tier is usable under a subscription
// status. CanUse is the single predicate shared by the server check and the
// locked flag rendered for clients.
package access

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fdg312/plateplan/internal/storage"
)

var ErrPlanLocked = errors.New("plan locked")

type SubscriptionStatus string

const (
	StatusNone     SubscriptionStatus = ""
	StatusFree     SubscriptionStatus = "free"
	StatusTrialing SubscriptionStatus = "trialing"
	StatusActive   SubscriptionStatus = "active"
	StatusPremium  SubscriptionStatus = "premium"
	StatusPastDue  SubscriptionStatus = "past_due"
	StatusCanceled SubscriptionStatus = "canceled"
)

func ParseStatus(raw string) SubscriptionStatus {
	return SubscriptionStatus(strings.ToLower(strings.TrimSpace(raw)))
}

// IsPremium reports whether the status grants premium features.
func (s SubscriptionStatus) IsPremium() bool {
	switch s {
	case StatusActive, StatusTrialing, StatusPremium:
		return true
	default:
		return false
	}
}

// CanUse reports whether a template of the given tier is usable.
func CanUse(status SubscriptionStatus, tier string) bool {
	return tier == storage.TierFree || status.IsPremium()
}

// SubscriptionSource resolves a user's subscription status.
type SubscriptionSource interface {
	SubscriptionStatus(ctx context.Context, userID string) (SubscriptionStatus, error)
}

// ProfileSubscriptions reads the status billing writes onto the profile.
type ProfileSubscriptions struct {
	profiles storage.ProfilesStorage
}

func NewProfileSubscriptions(profiles storage.ProfilesStorage) *ProfileSubscriptions {
	return &ProfileSubscriptions{profiles: profiles}
}

func (p *ProfileSubscriptions) SubscriptionStatus(ctx context.Context, userID string) (SubscriptionStatus, error) {
	profile, found, err := p.profiles.GetProfile(ctx, userID)
	if err != nil {
		return StatusNone, fmt.Errorf("failed to load subscription status: %w", err)
	}
	if !found {
		return StatusNone, nil
	}
	return ParseStatus(profile.SubscriptionStatus), nil
}

type Gate struct {
	source SubscriptionSource
}

func NewGate(source SubscriptionSource) *Gate {
	return &Gate{source: source}
}

// Status returns the user's current subscription status.
func (g *Gate) Status(ctx context.Context, userID string) (SubscriptionStatus, error) {
	return g.source.SubscriptionStatus(ctx, userID)
}

// Check returns ErrPlanLocked when the user may not use tier.
func (g *Gate) Check(ctx context.Context, userID string, tier string) error {
	if tier == storage.TierFree {
		return nil
	}
	status, err := g.source.SubscriptionStatus(ctx, userID)
	if err != nil {
		return err
	}
	if !CanUse(status, tier) {
		return fmt.Errorf("%w: %s plan requires an active premium subscription", ErrPlanLocked, tier)
	}
	return nil
}
