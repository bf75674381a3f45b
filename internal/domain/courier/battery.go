package courier

import (
	"math"

	"github.com/andrescamacho/lastmile-go/internal/domain/order"
)

// DischargeRate returns battery drain per unit time. Without payload it is
// the flight discharge; under load it grows quadratically with the weight.
func (c *Courier) DischargeRate(weight float64) float64 {
	if weight <= 0 {
		return c.FlightDischarge
	}
	loadDraw := math.Pow(weight*c.LoadDischargeA, 2) + weight*c.LoadDischargeB
	return loadDraw + c.FlightDischarge
}

// Consumption returns the battery drain of flying the given distance,
// optionally carrying the order's payload.
func (c *Courier) Consumption(distance float64, o *order.Order) float64 {
	duration := distance / c.Velocity
	if o == nil {
		return duration * c.FlightDischarge
	}
	return duration * c.DischargeRate(o.Weight)
}

// ChargeAtTime walks the schedule from a full battery at the init point and
// projects the remaining charge at time t. While logically at base the
// battery rises at ChargeVelocity during gaps, capped at Capacity; movement
// segments drain at the payload-dependent discharge rate. The result is
// floored at zero, which callers treat as an infeasibility signal.
func (s *Schedule) ChargeAtTime(t float64) float64 {
	c := s.courier
	charge := c.Capacity
	atBase := true
	cursor := 0.0

	for _, it := range s.items {
		if cursor >= t {
			break
		}

		// Gap before this item.
		gapEnd := math.Min(it.StartTime, t)
		if atBase && gapEnd > cursor {
			charge = math.Min(c.Capacity, charge+c.ChargeVelocity*(gapEnd-cursor))
		}
		if t <= it.StartTime {
			cursor = t
			break
		}

		segEnd := math.Min(it.EndTime, t)
		duration := segEnd - it.StartTime
		switch it.RecType {
		case RecMoveWithLoad:
			weight := 0.0
			if it.Order != nil {
				weight = it.Order.Weight
			}
			charge -= duration * c.DischargeRate(weight)
		case RecMoveToPickup, RecMoveToCharge:
			charge -= duration * c.FlightDischarge
		}
		if charge < 0 {
			charge = 0
		}

		if t < it.EndTime {
			return charge
		}
		atBase = it.RecType == RecMoveToCharge
		cursor = it.EndTime
	}

	if atBase && t > cursor {
		charge = math.Min(c.Capacity, charge+c.ChargeVelocity*(t-cursor))
	}
	if charge < 0 {
		charge = 0
	}
	return charge
}
