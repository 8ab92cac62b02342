package scaling

import "github.com/fdg312/plateplan/internal/storage"

// Budget is the macro allowance left for a day. It is a value: Spend returns
// a new Budget and never mutates the receiver. A nil *Budget means the day is
// unconstrained.
type Budget struct {
	Remaining storage.Macros `json:"remaining"`
}

// NewBudget returns targets minus what is already planned, or nil when
// targets are unknown.
func NewBudget(targets *storage.Macros, planned storage.Macros) *Budget {
	if targets == nil {
		return nil
	}
	return &Budget{Remaining: targets.Sub(planned)}
}

// Spend returns the budget left after consuming m.
func (b *Budget) Spend(m storage.Macros) *Budget {
	if b == nil {
		return nil
	}
	return &Budget{Remaining: b.Remaining.Sub(m)}
}
