package profiles

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fdg312/plateplan/internal/access"
	"github.com/fdg312/plateplan/internal/storage"
	"github.com/fdg312/plateplan/internal/validation"
)

var ErrInvalidRequest = errors.New("invalid request")

// Service содержит бизнес-логику профилей
type Service struct {
	profiles storage.ProfilesStorage
	now      func() time.Time
}

// NewService создаёт новый сервис
func NewService(profiles storage.ProfilesStorage) *Service {
	return &Service{profiles: profiles, now: time.Now}
}

// GetProfile returns the owner's profile. A missing profile is returned empty.
func (s *Service) GetProfile(ctx context.Context, ownerUserID string) (*ProfileDTO, error) {
	profile, found, err := s.profiles.GetProfile(ctx, ownerUserID)
	if err != nil {
		return nil, err
	}
	if !found {
		profile = storage.Profile{OwnerUserID: ownerUserID}
	}

	dto := toDTO(profile)
	return &dto, nil
}

// UpdateProfile replaces the body data. The subscription status is kept.
func (s *Service) UpdateProfile(ctx context.Context, ownerUserID string, req UpdateProfileRequest) (*ProfileDTO, error) {
	if err := validation.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	profile := storage.Profile{
		OwnerUserID:    ownerUserID,
		Sex:            req.Sex,
		HeightCM:       req.HeightCM,
		WeightKG:       req.WeightKG,
		ActivityLevel:  req.ActivityLevel,
		Goal:           req.Goal,
		TargetCalories: req.TargetCalories,
		TargetProteinG: req.TargetProteinG,
		TargetCarbsG:   req.TargetCarbsG,
		TargetFatG:     req.TargetFatG,
	}
	if req.BirthDate != nil {
		birth, err := validation.ParseDate(*req.BirthDate)
		if err != nil {
			return nil, fmt.Errorf("%w: birth_date must be a date in YYYY-MM-DD format", ErrInvalidRequest)
		}
		if birth.After(s.now().UTC()) {
			return nil, fmt.Errorf("%w: birth_date is in the future", ErrInvalidRequest)
		}
		profile.BirthDate = &birth
	}

	saved, err := s.profiles.UpsertProfile(ctx, profile)
	if err != nil {
		return nil, err
	}

	dto := toDTO(saved)
	return &dto, nil
}

// toDTO конвертирует storage.Profile в ProfileDTO
func toDTO(p storage.Profile) ProfileDTO {
	dto := ProfileDTO{
		Sex:                p.Sex,
		HeightCM:           p.HeightCM,
		WeightKG:           p.WeightKG,
		ActivityLevel:      p.ActivityLevel,
		Goal:               p.Goal,
		TargetCalories:     p.TargetCalories,
		TargetProteinG:     p.TargetProteinG,
		TargetCarbsG:       p.TargetCarbsG,
		TargetFatG:         p.TargetFatG,
		SubscriptionStatus: p.SubscriptionStatus,
		Premium:            access.ParseStatus(p.SubscriptionStatus).IsPremium(),
		UpdatedAt:          p.UpdatedAt,
	}
	if p.BirthDate != nil {
		s := p.BirthDate.Format(storage.DateLayout)
		dto.BirthDate = &s
	}
	return dto
}
