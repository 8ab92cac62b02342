package nutrition

import (
	"math"
	"time"

	"github.com/fdg312/plateplan/internal/storage"
)

// activityMultipliers maps activity levels to their TDEE multiplier. It is
// also the list of accepted activity_level values.
var activityMultipliers = map[string]float64{
	"sedentary":   1.2,
	"light":       1.375,
	"moderate":    1.55,
	"active":      1.725,
	"very_active": 1.9,
}

// goalAdjustments shifts maintenance calories per goal.
var goalAdjustments = map[string]float64{
	"lose":     -500,
	"maintain": 0,
	"gain":     300,
}

const (
	minCalories        = 1200
	proteinPerKG       = 1.8
	fatCalorieShare    = 0.25
	kcalPerGramProtein = 4
	kcalPerGramCarbs   = 4
	kcalPerGramFat     = 9
)

const (
	SourceExplicit = "explicit"
	SourceComputed = "computed"
	SourceNone     = "none"
)

// Resolve returns daily targets for profile, or nil when the profile does not
// carry enough data. Nil means the day is unconstrained.
func Resolve(profile *storage.Profile, asOf time.Time) *storage.Macros {
	targets, _ := ResolveWithSource(profile, asOf)
	return targets
}

// ResolveWithSource is Resolve plus where the numbers came from.
func ResolveWithSource(profile *storage.Profile, asOf time.Time) (*storage.Macros, string) {
	if profile == nil {
		return nil, SourceNone
	}
	if t := explicitTargets(profile); t != nil {
		return t, SourceExplicit
	}
	if t := computedTargets(profile, asOf); t != nil {
		return t, SourceComputed
	}
	return nil, SourceNone
}

func explicitTargets(p *storage.Profile) *storage.Macros {
	if p.TargetCalories == nil || p.TargetProteinG == nil || p.TargetCarbsG == nil || p.TargetFatG == nil {
		return nil
	}
	return &storage.Macros{
		Calories: *p.TargetCalories,
		ProteinG: *p.TargetProteinG,
		CarbsG:   *p.TargetCarbsG,
		FatG:     *p.TargetFatG,
	}
}

// computedTargets uses Mifflin-St Jeor BMR times the activity multiplier,
// shifted by goal, then splits calories into macros.
func computedTargets(p *storage.Profile, asOf time.Time) *storage.Macros {
	if p.Sex == nil || p.BirthDate == nil || p.HeightCM == nil || p.WeightKG == nil || p.ActivityLevel == nil {
		return nil
	}
	if *p.HeightCM <= 0 || *p.WeightKG <= 0 {
		return nil
	}

	age := asOf.Year() - p.BirthDate.Year()
	if asOf.Before(p.BirthDate.AddDate(age, 0, 0)) {
		age--
	}
	if age < 0 || age > 130 {
		return nil
	}

	bmr := 10*(*p.WeightKG) + 6.25*(*p.HeightCM) - 5*float64(age)
	switch *p.Sex {
	case "male":
		bmr += 5
	case "female":
		bmr -= 161
	default:
		return nil
	}

	mult, ok := activityMultipliers[*p.ActivityLevel]
	if !ok {
		return nil
	}
	calories := bmr * mult
	if p.Goal != nil {
		calories += goalAdjustments[*p.Goal]
	}
	if calories < minCalories {
		calories = minCalories
	}
	calories = math.Round(calories)

	protein := math.Round(proteinPerKG * (*p.WeightKG))
	fat := math.Round(calories * fatCalorieShare / kcalPerGramFat)
	carbs := math.Round((calories - protein*kcalPerGramProtein - fat*kcalPerGramFat) / kcalPerGramCarbs)
	if carbs < 0 {
		carbs = 0
	}

	return &storage.Macros{
		Calories: calories,
		ProteinG: protein,
		CarbsG:   carbs,
		FatG:     fat,
	}
}

func IsValidActivityLevel(level string) bool {
	_, ok := activityMultipliers[level]
	return ok
}

func IsValidGoal(goal string) bool {
	_, ok := goalAdjustments[goal]
	return ok
}
