package mealplans

import (
	"testing"

	"github.com/fdg312/plateplan/internal/storage"
)

func TestWeekday(t *testing.T) {
	tests := []struct {
		date string
		want int
	}{
		{"2024-01-01", 0}, // Monday
		{"2024-01-03", 2},
		{"2024-01-07", 6}, // Sunday
		{"2024-02-29", 3},
	}
	for _, tt := range tests {
		if got := Weekday(day(tt.date)); got != tt.want {
			t.Errorf("Weekday(%s) = %d, want %d", tt.date, got, tt.want)
		}
	}
}

func TestExpandOrdersByDateThenTemplate(t *testing.T) {
	items := []storage.PlanItem{
		{Position: 0, DayOfWeek: 2, MealSlot: "lunch", RecipeID: "a", DefaultMultiplier: 1},
		{Position: 1, DayOfWeek: 0, MealSlot: "dinner", RecipeID: "b", DefaultMultiplier: 1},
		{Position: 2, DayOfWeek: 0, MealSlot: "breakfast", RecipeID: "c", DefaultMultiplier: 0.5},
	}

	// Starting on a Wednesday puts the Wednesday item first.
	tuples := Expand(items, day("2024-01-03"), 2)

	want := []struct {
		date   string
		recipe string
	}{
		{"2024-01-03", "a"},
		{"2024-01-08", "b"},
		{"2024-01-08", "c"},
		{"2024-01-10", "a"},
		{"2024-01-15", "b"},
		{"2024-01-15", "c"},
	}
	if len(tuples) != len(want) {
		t.Fatalf("expected %d tuples, got %d", len(want), len(tuples))
	}
	for i, w := range want {
		got := tuples[i]
		if got.Date.Format(storage.DateLayout) != w.date || got.RecipeID != w.recipe {
			t.Errorf("tuple %d = %s/%s, want %s/%s", i, got.Date.Format(storage.DateLayout), got.RecipeID, w.date, w.recipe)
		}
	}
	if tuples[2].Multiplier != 0.5 {
		t.Errorf("expected default multiplier carried over, got %v", tuples[2].Multiplier)
	}
}

func TestExpandStaysInsideWindow(t *testing.T) {
	items := make([]storage.PlanItem, 7)
	for d := range items {
		items[d] = storage.PlanItem{Position: d, DayOfWeek: d, MealSlot: "snack", RecipeID: "r", DefaultMultiplier: 1}
	}

	for weeks := MinWeeks; weeks <= MaxWeeks; weeks++ {
		start := day("2024-03-28")
		end := EndDate(start, weeks)
		tuples := Expand(items, start, weeks)
		if len(tuples) != weeks*7 {
			t.Fatalf("weeks=%d: expected %d tuples, got %d", weeks, weeks*7, len(tuples))
		}
		for _, tp := range tuples {
			if tp.Date.Before(start) || !tp.Date.Before(end) {
				t.Fatalf("weeks=%d: %s outside [%s, %s)", weeks, tp.Date, start, end)
			}
		}
	}
}
