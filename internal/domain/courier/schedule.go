package courier

import (
	"math"
	"sort"

	"github.com/andrescamacho/lastmile-go/internal/domain/order"
	"github.com/andrescamacho/lastmile-go/internal/domain/shared"
)

// Epsilon bounds the tolerated drift between a requested delivery window and
// the window implied by geometry.
const Epsilon = 1e-7

// RecType classifies a schedule item.
type RecType string

const (
	RecMoveToPickup RecType = "MoveToPickup"
	RecMoveWithLoad RecType = "MoveWithLoad"
	RecMoveToCharge RecType = "MoveToCharge"
	RecIdleWithLoad RecType = "IdleWithLoad"
	RecIdle         RecType = "Idle"
)

// ScheduleItem is one contiguous motion or idle segment on the courier's
// timeline. Items of the same order share the Order reference; a charging
// move has a nil Order.
type ScheduleItem struct {
	Order     *order.Order
	RecType   RecType
	StartTime float64
	EndTime   float64
	PointFrom shared.Point
	PointTo   shared.Point
	Cost      float64
	Params    map[string]any
}

// IsProductive reports whether the item performs order work, as opposed to
// charging or idling.
func (it *ScheduleItem) IsProductive() bool {
	return it.RecType == RecMoveToPickup || it.RecType == RecMoveWithLoad
}

func (it *ScheduleItem) isIdle() bool {
	return it.RecType == RecIdle || it.RecType == RecIdleWithLoad
}

func (it *ScheduleItem) clone() *ScheduleItem {
	cp := *it
	if it.Params != nil {
		cp.Params = make(map[string]any, len(it.Params))
		for k, v := range it.Params {
			cp.Params[k] = v
		}
	}
	return &cp
}

// Schedule is the per-courier ordered list of timed records. It is not
// self-synchronizing: the owning courier agent is its concurrency boundary.
type Schedule struct {
	courier *Courier
	items   []*ScheduleItem
}

// NewSchedule creates an empty schedule bound to its courier.
func NewSchedule(c *Courier) *Schedule {
	return &Schedule{courier: c}
}

// Items returns the underlying item slice, sorted by start time.
func (s *Schedule) Items() []*ScheduleItem { return s.items }

// Len returns the number of schedule items.
func (s *Schedule) Len() int { return len(s.items) }

// Snapshot deep-copies the schedule state for atomic commit/rollback.
func (s *Schedule) Snapshot() []*ScheduleItem {
	snap := make([]*ScheduleItem, len(s.items))
	for i, it := range s.items {
		snap[i] = it.clone()
	}
	return snap
}

// Restore replaces the schedule state with a previously taken snapshot.
func (s *Schedule) Restore(snap []*ScheduleItem) {
	s.items = snap
}

// LastPoint returns the terminal delivery point, or the courier's init point
// for an empty schedule. A trailing charging move is skipped: the courier
// logically ends where the last productive work ended.
func (s *Schedule) LastPoint() shared.Point {
	for i := len(s.items) - 1; i >= 0; i-- {
		if s.items[i].RecType != RecMoveToCharge {
			return s.items[i].PointTo
		}
	}
	return s.courier.InitPoint
}

// LastTime returns the end time of the last item. With considerCharge false
// the trailing charging move is skipped.
func (s *Schedule) LastTime(considerCharge bool) float64 {
	for i := len(s.items) - 1; i >= 0; i-- {
		if !considerCharge && s.items[i].RecType == RecMoveToCharge {
			continue
		}
		return s.items[i].EndTime
	}
	return 0
}

// Conflicts returns all non-idle items whose [start, end) interval intersects
// the requested one. Zero-length items never conflict.
func (s *Schedule) Conflicts(startTime, endTime float64) []*ScheduleItem {
	var result []*ScheduleItem
	for _, it := range s.items {
		if it.isIdle() {
			continue
		}
		if it.StartTime == it.EndTime {
			continue
		}
		if (startTime <= it.StartTime && it.StartTime < endTime) ||
			(startTime < it.EndTime && it.EndTime <= endTime) ||
			(it.StartTime <= startTime && startTime < it.EndTime) ||
			(it.StartTime < endTime && endTime <= it.EndTime) {
			result = append(result, it)
		}
	}
	return result
}

// OrderRecords returns the items belonging to the given order.
func (s *Schedule) OrderRecords(o *order.Order) []*ScheduleItem {
	var result []*ScheduleItem
	for _, it := range s.items {
		if it.Order == o {
			result = append(result, it)
		}
	}
	return result
}

// IsOrderDisplaceable reports whether the order's earliest item has not yet
// started at the current simulation time.
func (s *Schedule) IsOrderDisplaceable(o *order.Order, now float64) bool {
	records := s.OrderRecords(o)
	if len(records) == 0 {
		return false
	}
	earliest := records[0].StartTime
	for _, rec := range records[1:] {
		if rec.StartTime < earliest {
			earliest = rec.StartTime
		}
	}
	return earliest > now
}

// AddOrder inserts the order into the schedule as up to three items:
// MoveToPickup, MoveWithLoad and a trailing IdleWithLoad when a gap remains
// to endTime. Preconditions are checked before any mutation, so a non-nil
// error implies an untouched schedule. A trailing charging move is treated as
// reversible and re-planned after the insertion.
func (s *Schedule) AddOrder(o *order.Order, startTime, endTime, cost float64, params map[string]any) error {
	tailCharge := s.popTailCharge()

	if s.LastTime(false)-startTime > Epsilon {
		s.restoreTailCharge(tailCharge)
		return shared.NewInfeasibleAssignmentError("courier is busy past the requested start time")
	}

	lastPoint := s.LastPoint()
	timeToOrder := lastPoint.DistanceTo(o.PointFrom) / s.courier.Velocity
	timeWithOrder := o.PointFrom.DistanceTo(o.PointTo) / s.courier.Velocity
	finishTime := startTime + timeToOrder + timeWithOrder
	if math.Abs(finishTime-endTime) > Epsilon {
		s.restoreTailCharge(tailCharge)
		return shared.NewInfeasibleAssignmentError("requested window is inconsistent with trip geometry")
	}

	if conflicts := s.Conflicts(startTime, endTime); len(conflicts) > 0 {
		s.restoreTailCharge(tailCharge)
		return shared.NewInfeasibleAssignmentError("requested window conflicts with existing records")
	}

	s.appendItem(&ScheduleItem{
		Order: o, RecType: RecMoveToPickup,
		StartTime: startTime, EndTime: startTime + timeToOrder,
		PointFrom: lastPoint, PointTo: o.PointFrom,
		Cost: 0, Params: params,
	})
	s.appendItem(&ScheduleItem{
		Order: o, RecType: RecMoveWithLoad,
		StartTime: startTime + timeToOrder, EndTime: finishTime,
		PointFrom: o.PointFrom, PointTo: o.PointTo,
		Cost: cost, Params: params,
	})
	s.appendItem(&ScheduleItem{
		Order: o, RecType: RecIdleWithLoad,
		StartTime: finishTime, EndTime: endTime,
		PointFrom: o.PointTo, PointTo: o.PointTo,
		Cost: 0, Params: params,
	})
	s.AutoAddCharge()
	s.sortItems()
	return nil
}

// popTailCharge removes a trailing charging move so it can be re-planned
// around the incoming insertion; AutoAddCharge recreates it afterwards.
func (s *Schedule) popTailCharge() *ScheduleItem {
	n := len(s.items)
	if n == 0 || s.items[n-1].RecType != RecMoveToCharge {
		return nil
	}
	tail := s.items[n-1]
	s.items = s.items[:n-1]
	return tail
}

func (s *Schedule) restoreTailCharge(tail *ScheduleItem) {
	if tail != nil {
		s.items = append(s.items, tail)
	}
}

// DeleteOrder removes all items of the order plus any charging move that
// immediately follows one of them, then re-plans charging. The returned value
// is the net schedule cost change.
func (s *Schedule) DeleteOrder(o *order.Order) float64 {
	var kept []*ScheduleItem
	delta := 0.0
	removedPrev := false
	for _, it := range s.items {
		if it.Order == o {
			delta -= it.Cost
			removedPrev = true
			continue
		}
		if removedPrev && it.RecType == RecMoveToCharge {
			delta -= it.Cost
			removedPrev = true
			continue
		}
		removedPrev = false
		kept = append(kept, it)
	}
	s.items = kept
	delta += s.AutoAddCharge()
	s.sortItems()
	return delta
}

// AutoAddCharge inserts return-to-base charging trips wherever the dwell
// between productive work affords a net energy gain, and appends the tail
// trip home after the final productive item. Returns the added cost. The scan
// is idempotent: gaps already holding a charging move are left alone.
func (s *Schedule) AutoAddCharge() float64 {
	c := s.courier
	delta := 0.0

	i := 0
	for i < len(s.items) {
		it := s.items[i]
		if !it.IsProductive() {
			i++
			continue
		}

		// Locate the next productive item; remember whether a charging move
		// already covers this gap.
		j := i + 1
		chargePlanned := false
		for j < len(s.items) && !s.items[j].IsProductive() {
			if s.items[j].RecType == RecMoveToCharge {
				chargePlanned = true
			}
			j++
		}

		if j == len(s.items) {
			if !chargePlanned {
				duration := it.PointTo.DistanceTo(c.InitPoint) / c.Velocity
				charge := &ScheduleItem{
					RecType:   RecMoveToCharge,
					StartTime: it.EndTime, EndTime: it.EndTime + duration,
					PointFrom: it.PointTo, PointTo: c.InitPoint,
					Cost: c.Rate * duration,
				}
				s.items = append(s.items, charge)
				delta += charge.Cost
			}
			break
		}
		if chargePlanned {
			i = j
			continue
		}

		next := s.items[j]
		pause := next.StartTime - it.EndTime
		durationToBase := it.PointTo.DistanceTo(c.InitPoint) / c.Velocity
		durationFromBase := c.InitPoint.DistanceTo(next.PointTo) / c.Velocity

		gain := c.ChargeVelocity * (pause - durationToBase - durationFromBase)
		loss := c.FlightDischarge * (durationToBase + durationFromBase)
		if gain > loss {
			rejoinEnd := next.EndTime
			rejoinOrder := next.Order
			rejoinTo := next.PointTo
			if next.RecType == RecMoveToPickup {
				// The existing approach hop is replaced by the round trip.
				s.items = append(s.items[:j], s.items[j+1:]...)
			} else {
				rejoinEnd = next.StartTime
				rejoinTo = next.PointFrom
			}
			charge := &ScheduleItem{
				RecType:   RecMoveToCharge,
				StartTime: it.EndTime, EndTime: it.EndTime + durationToBase,
				PointFrom: it.PointTo, PointTo: c.InitPoint,
				Cost: c.Rate * durationToBase,
			}
			rejoin := &ScheduleItem{
				Order:     rejoinOrder,
				RecType:   RecMoveToPickup,
				StartTime: rejoinEnd - c.InitPoint.DistanceTo(rejoinTo)/c.Velocity,
				EndTime:   rejoinEnd,
				PointFrom: c.InitPoint, PointTo: rejoinTo,
				Cost: 0,
			}
			s.items = append(s.items, charge, rejoin)
			delta += charge.Cost
			s.sortItems()
		}
		i = j
	}
	s.sortItems()
	return delta
}

// PointAtTime returns the courier position at the given time. A query inside
// an active movement segment has no schedule point to report and is answered
// with AmbiguousPointQueryError.
func (s *Schedule) PointAtTime(t float64) (shared.Point, error) {
	position := s.courier.InitPoint
	for _, it := range s.items {
		if it.StartTime < t && t < it.EndTime {
			if it.isIdle() {
				return it.PointTo, nil
			}
			return shared.Point{}, shared.NewAmbiguousPointQueryError(t)
		}
		if it.EndTime <= t {
			position = it.PointTo
		}
	}
	return position, nil
}

func (s *Schedule) appendItem(it *ScheduleItem) {
	if math.Abs(it.StartTime-it.EndTime) <= Epsilon {
		return
	}
	s.items = append(s.items, it)
}

func (s *Schedule) sortItems() {
	sort.SliceStable(s.items, func(i, j int) bool {
		if s.items[i].StartTime != s.items[j].StartTime {
			return s.items[i].StartTime < s.items[j].StartTime
		}
		return s.items[i].EndTime < s.items[j].EndTime
	})
}
