package profiles

import (
	"time"
)

// ProfileDTO - DTO для API
type ProfileDTO struct {
	Sex                *string   `json:"sex"`
	BirthDate          *string   `json:"birth_date"`
	HeightCM           *float64  `json:"height_cm"`
	WeightKG           *float64  `json:"weight_kg"`
	ActivityLevel      *string   `json:"activity_level"`
	Goal               *string   `json:"goal"`
	TargetCalories     *float64  `json:"target_calories"`
	TargetProteinG     *float64  `json:"target_protein_g"`
	TargetCarbsG       *float64  `json:"target_carbs_g"`
	TargetFatG         *float64  `json:"target_fat_g"`
	SubscriptionStatus string    `json:"subscription_status"`
	Premium            bool      `json:"premium"`
	UpdatedAt          time.Time `json:"updated_at,omitempty"`
}

// UpdateProfileRequest - запрос для PUT /v1/profile. Omitted fields are cleared.
type UpdateProfileRequest struct {
	Sex            *string  `json:"sex" validate:"omitempty,oneof=male female"`
	BirthDate      *string  `json:"birth_date" validate:"omitempty,ymd"`
	HeightCM       *float64 `json:"height_cm" validate:"omitempty,gt=0,lte=300"`
	WeightKG       *float64 `json:"weight_kg" validate:"omitempty,gt=0,lte=500"`
	ActivityLevel  *string  `json:"activity_level" validate:"omitempty,oneof=sedentary light moderate active very_active"`
	Goal           *string  `json:"goal" validate:"omitempty,oneof=lose maintain gain"`
	TargetCalories *float64 `json:"target_calories" validate:"omitempty,gt=0"`
	TargetProteinG *float64 `json:"target_protein_g" validate:"omitempty,gte=0"`
	TargetCarbsG   *float64 `json:"target_carbs_g" validate:"omitempty,gte=0"`
	TargetFatG     *float64 `json:"target_fat_g" validate:"omitempty,gte=0"`
}

// ErrorResponse - формат ошибки
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
