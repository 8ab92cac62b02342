package mealplans

import (
	"time"

	"github.com/fdg312/plateplan/internal/storage"
)

// Tuple is one template item landed on a concrete date.
type Tuple struct {
	Date       time.Time
	MealSlot   string
	RecipeID   string
	Multiplier float64
	Position   int
}

// Weekday maps a date to the template day index, 0=Monday .. 6=Sunday.
func Weekday(d time.Time) int {
	return (int(d.Weekday()) + 6) % 7
}

// Expand maps each template item onto every matching date in
// [start, start+weeks*7), ordered by date and then template order.
func Expand(items []storage.PlanItem, start time.Time, weeks int) []Tuple {
	byDay := make([][]storage.PlanItem, 7)
	for _, item := range items {
		if item.DayOfWeek < 0 || item.DayOfWeek > 6 {
			continue
		}
		byDay[item.DayOfWeek] = append(byDay[item.DayOfWeek], item)
	}

	days := weeks * 7
	tuples := make([]Tuple, 0, len(items)*weeks)
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i)
		for _, item := range byDay[Weekday(date)] {
			tuples = append(tuples, Tuple{
				Date:       date,
				MealSlot:   item.MealSlot,
				RecipeID:   item.RecipeID,
				Multiplier: item.DefaultMultiplier,
				Position:   item.Position,
			})
		}
	}
	return tuples
}

// EndDate is the exclusive end of an assignment window.
func EndDate(start time.Time, weeks int) time.Time {
	return start.AddDate(0, 0, weeks*7)
}
