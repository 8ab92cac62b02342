package memory

import (
	"context"
	"sync"
	"time"

	"github.com/fdg312/plateplan/internal/storage"
)

type profilesStorage struct {
	mu       sync.RWMutex
	profiles map[string]*storage.Profile // key: ownerUserID
}

func newProfilesStorage() *profilesStorage {
	return &profilesStorage{
		profiles: make(map[string]*storage.Profile),
	}
}

func (s *profilesStorage) GetProfile(ctx context.Context, ownerUserID string) (storage.Profile, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[ownerUserID]
	if !ok {
		return storage.Profile{}, false, nil
	}
	return *p, true, nil
}

func (s *profilesStorage) UpsertProfile(ctx context.Context, profile storage.Profile) (storage.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := ""
	if existing, ok := s.profiles[profile.OwnerUserID]; ok {
		status = existing.SubscriptionStatus
	}
	profile.SubscriptionStatus = status
	profile.UpdatedAt = time.Now().UTC()

	stored := profile
	s.profiles[profile.OwnerUserID] = &stored
	return profile, nil
}

func (s *profilesStorage) SetSubscriptionStatus(ctx context.Context, ownerUserID string, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[ownerUserID]
	if !ok {
		p = &storage.Profile{OwnerUserID: ownerUserID}
		s.profiles[ownerUserID] = p
	}
	p.SubscriptionStatus = status
	p.UpdatedAt = time.Now().UTC()
	return nil
}
