package shopping

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
)

func unit(s string) *string { return &s }

func TestMergeGroupsByNormalizedNameAndUnit(t *testing.T) {
	lines := []Line{
		{Name: "Oats", Quantity: 50, Unit: unit("g")},
		{Name: "  oats ", Quantity: 25, Unit: unit("g")},
		{Name: "Oats", Quantity: 1, Unit: unit("cup")},
		{Name: "Egg", Quantity: 2},
		{Name: "egg", Quantity: 1, Unit: unit("  ")},
		{Name: "Egg", Quantity: 1, Unit: unit("pcs")},
	}

	got := mustMerge(t, lines)

	want := []struct {
		name string
		qty  float64
		unit string
	}{
		{"Oats", 75, "g"},
		{"Oats", 1, "cup"},
		{"Egg", 3, "<nil>"},
		{"Egg", 1, "pcs"},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d rows, got %d: %+v", len(want), len(got), got)
	}
	for i, w := range want {
		if got[i].Name != w.name || got[i].Quantity != w.qty || unitString(got[i].Unit) != w.unit {
			t.Errorf("row %d = %s %v %s, want %s %v %s", i, got[i].Name, got[i].Quantity, unitString(got[i].Unit), w.name, w.qty, w.unit)
		}
	}
}

func TestMergeKeepsDistinctSpellings(t *testing.T) {
	got := mustMerge(t, []Line{
		{Name: "Chickpeas", Quantity: 100, Unit: unit("g")},
		{Name: "Garbanzo beans", Quantity: 100, Unit: unit("g")},
	})
	if len(got) != 2 {
		t.Fatalf("expected no fuzzy matching, got %+v", got)
	}
}

func TestMergeRoundsToThreeDecimals(t *testing.T) {
	got := mustMerge(t, []Line{
		{Name: "Salt", Quantity: 0.1, Unit: unit("g")},
		{Name: "Salt", Quantity: 0.2, Unit: unit("g")},
		{Name: "Pepper", Quantity: 1.23456, Unit: unit("g")},
	})
	if got[0].Quantity != 0.3 {
		t.Errorf("expected 0.3, got %v", got[0].Quantity)
	}
	if got[1].Quantity != 1.235 {
		t.Errorf("expected 1.235, got %v", got[1].Quantity)
	}
}

func TestMergeEmpty(t *testing.T) {
	got := mustMerge(t, nil)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestMergeIsOrderIndependent(t *testing.T) {
	faker := gofakeit.New(42)
	names := []string{"Oats", "Milk", "Tomato", "Olive oil", "Rice", "Egg"}
	units := []*string{nil, unit("g"), unit("ml"), unit(""), unit("pcs")}

	for round := 0; round < 20; round++ {
		lines := make([]Line, faker.Number(1, 40))
		for i := range lines {
			name := faker.RandomString(names)
			if faker.Bool() {
				name = strings.ToUpper(name)
			}
			if faker.Bool() {
				name = "  " + name + " "
			}
			lines[i] = Line{
				Name:     name,
				Quantity: faker.Float64Range(0.01, 500),
				Unit:     units[faker.Number(0, len(units)-1)],
			}
		}

		base := multiset(mustMerge(t, lines))
		for shuffle := 0; shuffle < 5; shuffle++ {
			permuted := append([]Line(nil), lines...)
			faker.ShuffleAnySlice(permuted)
			if got := multiset(mustMerge(t, permuted)); strings.Join(got, "\n") != strings.Join(base, "\n") {
				t.Fatalf("round %d: merge depends on order\nbase:\n%s\npermuted:\n%s", round, strings.Join(base, "\n"), strings.Join(got, "\n"))
			}
		}
	}
}

func TestMergeRejectsOverflow(t *testing.T) {
	_, err := Merge([]Line{
		{Name: "Flour", Quantity: math.MaxFloat64, Unit: unit("g")},
		{Name: "flour", Quantity: math.MaxFloat64, Unit: unit("g")},
	})
	if !errors.Is(err, ErrQuantityOverflow) {
		t.Fatalf("expected ErrQuantityOverflow, got %v", err)
	}
}

func mustMerge(t *testing.T, lines []Line) []Line {
	t.Helper()
	got, err := Merge(lines)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	return got
}

func multiset(lines []Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = fmt.Sprintf("%s|%s|%v", l.Name, unitString(l.Unit), l.Quantity)
	}
	sort.Strings(out)
	return out
}

func unitString(u *string) string {
	if u == nil {
		return "<nil>"
	}
	return *u
}
