package nutrition

import (
	"testing"
	"time"

	"github.com/fdg312/plateplan/internal/storage"
)

func f64(v float64) *float64 { return &v }
func str(v string) *string   { return &v }

func completeProfile() *storage.Profile {
	birth := time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC)
	return &storage.Profile{
		OwnerUserID:   "u1",
		Sex:           str("male"),
		BirthDate:     &birth,
		HeightCM:      f64(180),
		WeightKG:      f64(80),
		ActivityLevel: str("moderate"),
		Goal:          str("maintain"),
	}
}

func TestResolveNilWhenIncomplete(t *testing.T) {
	asOf := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	if got := Resolve(nil, asOf); got != nil {
		t.Fatalf("nil profile: got %+v", got)
	}

	tests := []struct {
		name   string
		mutate func(p *storage.Profile)
	}{
		{"no sex", func(p *storage.Profile) { p.Sex = nil }},
		{"no birth date", func(p *storage.Profile) { p.BirthDate = nil }},
		{"no height", func(p *storage.Profile) { p.HeightCM = nil }},
		{"no weight", func(p *storage.Profile) { p.WeightKG = nil }},
		{"no activity", func(p *storage.Profile) { p.ActivityLevel = nil }},
		{"unknown activity", func(p *storage.Profile) { p.ActivityLevel = str("couch") }},
		{"unknown sex", func(p *storage.Profile) { p.Sex = str("x") }},
		{"born in future", func(p *storage.Profile) {
			b := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
			p.BirthDate = &b
		}},
		{"partial explicit targets", func(p *storage.Profile) {
			p.Sex = nil
			p.TargetCalories = f64(2000)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := completeProfile()
			tt.mutate(p)
			if got := Resolve(p, asOf); got != nil {
				t.Errorf("got %+v, want nil", got)
			}
		})
	}
}

func TestResolveComputed(t *testing.T) {
	asOf := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p := completeProfile()

	got, source := ResolveWithSource(p, asOf)
	if source != SourceComputed {
		t.Fatalf("source = %q, want %q", source, SourceComputed)
	}

	// age 33: BMR = 800 + 1125 - 165 + 5 = 1765; TDEE = 1765 * 1.55 = 2735.75
	if got.Calories != 2736 {
		t.Errorf("calories = %v, want 2736", got.Calories)
	}
	if got.ProteinG != 144 {
		t.Errorf("protein = %v, want 144", got.ProteinG)
	}
	if got.FatG != 76 {
		t.Errorf("fat = %v, want 76", got.FatG)
	}
	// (2736 - 576 - 684) / 4 = 369
	if got.CarbsG != 369 {
		t.Errorf("carbs = %v, want 369", got.CarbsG)
	}
}

func TestResolveGoalAndFloor(t *testing.T) {
	asOf := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	p := completeProfile()
	p.Goal = str("lose")
	if got := Resolve(p, asOf); got.Calories != 2236 {
		t.Errorf("lose calories = %v, want 2236", got.Calories)
	}

	small := completeProfile()
	small.Sex = str("female")
	small.WeightKG = f64(40)
	small.HeightCM = f64(140)
	small.ActivityLevel = str("sedentary")
	small.Goal = str("lose")
	if got := Resolve(small, asOf); got.Calories != minCalories {
		t.Errorf("floored calories = %v, want %v", got.Calories, minCalories)
	}
}

func TestResolveExplicitWins(t *testing.T) {
	p := completeProfile()
	p.TargetCalories = f64(1800)
	p.TargetProteinG = f64(140)
	p.TargetCarbsG = f64(150)
	p.TargetFatG = f64(60)

	got, source := ResolveWithSource(p, time.Now())
	if source != SourceExplicit {
		t.Fatalf("source = %q", source)
	}
	want := storage.Macros{Calories: 1800, ProteinG: 140, CarbsG: 150, FatG: 60}
	if *got != want {
		t.Errorf("got %+v, want %+v", *got, want)
	}
}
