// Package negotiation holds the value objects exchanged between order and
// courier agents during price discovery and planning.
package negotiation

import (
	"github.com/andrescamacho/lastmile-go/internal/domain/courier"
	"github.com/andrescamacho/lastmile-go/internal/domain/order"
	"github.com/andrescamacho/lastmile-go/internal/domain/shared"
)

// VariantKind names the structural strategy behind an offer.
type VariantKind string

const (
	// VariantASAP serves the order at the earliest feasible time.
	VariantASAP VariantKind = "asap"
	// VariantJIT starts just in time to arrive at pickup at the order's window open.
	VariantJIT VariantKind = "jit"
	// VariantConflict evicts a cheaper assigned order from the JIT slot.
	VariantConflict VariantKind = "conflict"
	// VariantReschedule shifts downstream assignments forward to open the slot.
	VariantReschedule VariantKind = "reschedule"
)

// ShiftLink is one link of a reschedule chain: an assigned order moved to a
// new window that still meets its deadline.
type ShiftLink struct {
	Order    *order.Order
	NewStart float64
	NewEnd   float64
}

// Variant is a concrete offer from a courier to an order.
type Variant struct {
	Courier  *courier.Courier
	Order    *order.Order
	Kind     VariantKind
	TimeFrom float64
	TimeTo   float64
	Price    float64

	// OrderToDisplace is set for conflict variants.
	OrderToDisplace *order.Order
	// ShiftChain is set for reschedule variants.
	ShiftChain []ShiftLink

	// Normalized KPI scores filled in by Evaluate.
	StartEfficiency  float64
	FinishEfficiency float64
	PriceEfficiency  float64
	TotalEfficiency  float64
}

// ScoringWeights combines the per-criterion efficiencies into a total score.
type ScoringWeights struct {
	Finish float64 `mapstructure:"finish"`
	Start  float64 `mapstructure:"start"`
	Price  float64 `mapstructure:"price"`
}

// DefaultScoringWeights are the weights the reference scenarios were tuned
// with. The finish polarity (later completion scores higher) is deliberate:
// changing it changes assignment outcomes.
func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{Finish: 0.3, Start: 0.2, Price: 0.5}
}

// Evaluate fills the normalized KPI fields of every variant in place. Earlier
// starts and cheaper prices score higher; completion uses the increasing KPI.
func Evaluate(variants []*Variant, weights ScoringWeights) {
	if len(variants) == 0 {
		return
	}
	minStart, maxStart := variants[0].TimeFrom, variants[0].TimeFrom
	minFinish, maxFinish := variants[0].TimeTo, variants[0].TimeTo
	minPrice, maxPrice := variants[0].Price, variants[0].Price
	for _, v := range variants[1:] {
		minStart = min(minStart, v.TimeFrom)
		maxStart = max(maxStart, v.TimeFrom)
		minFinish = min(minFinish, v.TimeTo)
		maxFinish = max(maxFinish, v.TimeTo)
		minPrice = min(minPrice, v.Price)
		maxPrice = max(maxPrice, v.Price)
	}

	for _, v := range variants {
		v.StartEfficiency = shared.DecreasingKPI(v.TimeFrom, minStart, maxStart)
		v.FinishEfficiency = shared.IncreasingKPI(v.TimeTo, minFinish, maxFinish)
		v.PriceEfficiency = shared.DecreasingKPI(v.Price, minPrice, maxPrice)
		v.TotalEfficiency = weights.Finish*v.FinishEfficiency +
			weights.Start*v.StartEfficiency +
			weights.Price*v.PriceEfficiency
	}
}

// Best returns the variant with the maximum total efficiency. Ties are broken
// by insertion order: the earlier variant wins.
func Best(variants []*Variant) *Variant {
	if len(variants) == 0 {
		return nil
	}
	best := variants[0]
	for _, v := range variants[1:] {
		if v.TotalEfficiency > best.TotalEfficiency {
			best = v
		}
	}
	return best
}
