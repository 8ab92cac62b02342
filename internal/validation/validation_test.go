package validation

import (
	"strings"
	"testing"
)

type sample struct {
	Date     string  `json:"date" validate:"required,ymd"`
	MealSlot string  `json:"meal_type" validate:"omitempty,meal_slot"`
	Weeks    int     `json:"weeks" validate:"gte=1,lte=12"`
	Mult     float64 `json:"multiplier" validate:"gt=0"`
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	tests := []struct {
		name    string
		in      sample
		wantErr string
	}{
		{"valid", sample{Date: "2024-01-01", MealSlot: "lunch", Weeks: 2, Mult: 1}, ""},
		{"missing date", sample{Weeks: 1, Mult: 1}, "date is required"},
		{"bad date", sample{Date: "2024-02-30", Weeks: 1, Mult: 1}, "date must be a date"},
		{"bad slot", sample{Date: "2024-01-01", MealSlot: "brunch", Weeks: 1, Mult: 1}, "meal_type must be one of"},
		{"weeks too high", sample{Date: "2024-01-01", Weeks: 13, Mult: 1}, "weeks must be at most 12"},
		{"zero multiplier", sample{Date: "2024-01-01", Weeks: 1}, "multiplier must be greater than 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.in)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2024-01-08 ")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if d.Weekday().String() != "Monday" {
		t.Errorf("weekday = %s, want Monday", d.Weekday())
	}
	if _, err := ParseDate("2024-13-01"); err == nil {
		t.Error("expected error for month 13")
	}
}
