package nutrition

import (
	"context"
	"fmt"
	"time"

	"github.com/fdg312/plateplan/internal/storage"
)

// Service resolves daily targets from stored profiles.
type Service struct {
	profiles storage.ProfilesStorage
	now      func() time.Time
}

func NewService(profiles storage.ProfilesStorage) *Service {
	return &Service{
		profiles: profiles,
		now:      time.Now,
	}
}

// Targets returns the owner's daily targets, or nil when unconstrained.
func (s *Service) Targets(ctx context.Context, ownerUserID string) (*storage.Macros, error) {
	targets, _, err := s.TargetsWithSource(ctx, ownerUserID)
	return targets, err
}

func (s *Service) TargetsWithSource(ctx context.Context, ownerUserID string) (*storage.Macros, string, error) {
	profile, found, err := s.profiles.GetProfile(ctx, ownerUserID)
	if err != nil {
		return nil, SourceNone, fmt.Errorf("failed to get profile: %w", err)
	}
	if !found {
		return nil, SourceNone, nil
	}

	targets, source := ResolveWithSource(&profile, s.now().UTC())
	return targets, source, nil
}
