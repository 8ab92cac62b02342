// Package shopping turns recipe selections into merged ingredient rows and
// manages user shopping lists.
package shopping

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// ErrQuantityOverflow means a merged quantity does not fit in a float64.
var ErrQuantityOverflow = errors.New("merged quantity overflows")

// Line is one merged shopping row. A nil Unit means the ingredient has no
// unit and never merges with a unit-bearing row of the same name.
type Line struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"qty"`
	Unit     *string `json:"unit"`
}

type mergeKey struct {
	name    string
	unit    string
	hasUnit bool
}

type group struct {
	name string
	unit *string
	qtys []float64
}

// Merge sums lines sharing (lower(trim(name)), unit). Rows come out in the
// order their key first appears. The name shown for a group is its
// lexicographically smallest trimmed spelling and quantities are summed in
// sorted order, so permuting the input only permutes the output.
func Merge(lines []Line) ([]Line, error) {
	index := make(map[mergeKey]int)
	var groups []*group

	for _, l := range lines {
		name := strings.TrimSpace(l.Name)
		unit := normalizeUnit(l.Unit)

		key := mergeKey{name: strings.ToLower(name)}
		if unit != nil {
			key.unit, key.hasUnit = *unit, true
		}

		i, ok := index[key]
		if !ok {
			index[key] = len(groups)
			groups = append(groups, &group{name: name, unit: unit})
			i = len(groups) - 1
		}
		g := groups[i]
		if name < g.name {
			g.name = name
		}
		g.qtys = append(g.qtys, l.Quantity)
	}

	out := make([]Line, len(groups))
	for i, g := range groups {
		sort.Float64s(g.qtys)
		var sum float64
		for _, q := range g.qtys {
			sum += q
		}
		q := round3(sum)
		if math.IsInf(q, 0) || math.IsNaN(q) {
			return nil, fmt.Errorf("%w: %s", ErrQuantityOverflow, g.name)
		}
		out[i] = Line{Name: g.name, Quantity: q, Unit: g.unit}
	}
	return out, nil
}

func normalizeUnit(u *string) *string {
	if u == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*u)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
