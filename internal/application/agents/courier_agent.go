package agents

import (
	"github.com/andrescamacho/lastmile-go/internal/application/common"
	"github.com/andrescamacho/lastmile-go/internal/application/messaging"
	"github.com/andrescamacho/lastmile-go/internal/domain/courier"
	"github.com/andrescamacho/lastmile-go/internal/domain/negotiation"
	"github.com/andrescamacho/lastmile-go/internal/domain/order"
	"github.com/andrescamacho/lastmile-go/internal/domain/shared"
)

// CourierAgent answers price requests with assignment variants and commits
// planning requests atomically against its courier's schedule.
type CourierAgent struct {
	*base
	courier *courier.Courier
}

// NewCourierAgent creates the agent for one courier entity.
func NewCourierAgent(c *courier.Courier, runtime *messaging.Runtime, logger common.RunLogger) *CourierAgent {
	a := &CourierAgent{
		base:    newBase("courier agent", runtime, logger),
		courier: c,
	}
	a.subscribe(messaging.MsgPriceRequest, a.handlePriceRequest)
	a.subscribe(messaging.MsgPlanningRequest, a.handlePlanningRequest)
	a.subscribe(messaging.MsgTick, a.handleTick)
	a.onInit = a.announceToOrders
	a.onExit = a.broadcastDeparture
	return a
}

// announceToOrders tells every matching order agent that a new courier is
// available for negotiation.
func (a *CourierAgent) announceToOrders(InitPayload) {
	for _, e := range a.scene.EntitiesByType(order.EntityType) {
		o, ok := e.(*order.Order)
		if !ok || !a.courier.Accepts(o.OrderType) {
			continue
		}
		if addr, found := a.dispatcher.Book().Address(o.URI()); found {
			a.send(addr, messaging.MsgNewCourier, a.courier)
		}
	}
}

// broadcastDeparture notifies all order agents that this courier is gone, so
// orders assigned here can re-plan.
func (a *CourierAgent) broadcastDeparture() {
	for _, e := range a.scene.EntitiesByType(order.EntityType) {
		if addr, found := a.dispatcher.Book().Address(e.URI()); found {
			a.send(addr, messaging.MsgDeletedCourier, a.courier)
		}
	}
}

func (a *CourierAgent) handleTick(messaging.Message) {
	// Reserved for proactive schedule improvement.
}

func (a *CourierAgent) handlePriceRequest(msg messaging.Message) {
	o, ok := msg.Body.(*order.Order)
	if !ok {
		err := shared.NewMalformedMessageError("price request body is not an order")
		a.logger.Log(common.LevelError, "malformed price request", map[string]any{
			"agent": a.name, "error": err.Error(),
		})
		return
	}
	variants := a.buildVariants(o)
	a.send(msg.Sender, messaging.MsgPriceResponse, variants)
}

// buildVariants generates up to three offers for the order: a clean JIT slot
// or its displacement/reschedule repairs, plus the battery-aware ASAP tail
// append.
func (a *CourierAgent) buildVariants(o *order.Order) []*negotiation.Variant {
	c := a.courier
	if o.Weight > c.MaxMass {
		return nil
	}

	lastPoint := c.Schedule.LastPoint()
	distanceToOrder := lastPoint.DistanceTo(o.PointFrom)
	distanceWithOrder := o.PointFrom.DistanceTo(o.PointTo)
	timeToOrder := distanceToOrder / c.Velocity
	timeWithOrder := distanceWithOrder / c.Velocity
	duration := timeToOrder + timeWithOrder
	price := duration * c.Rate

	now := a.now()
	var variants []*negotiation.Variant

	idealStart := o.TimeFrom - timeToOrder
	if idealStart >= now {
		idealEnd := idealStart + duration
		if conflicts := c.Schedule.Conflicts(idealStart, idealEnd); len(conflicts) == 0 {
			variants = append(variants, &negotiation.Variant{
				Courier: c, Order: o, Kind: negotiation.VariantJIT,
				TimeFrom: idealStart, TimeTo: idealEnd, Price: price,
			})
		} else {
			if v := a.displacementVariant(o, idealStart, idealEnd, price); v != nil {
				variants = append(variants, v)
			}
			if v := a.rescheduleVariant(o, idealStart, idealEnd, price); v != nil {
				variants = append(variants, v)
			}
		}
	} else {
		a.logger.Log(common.LevelDebug, "ideal JIT start already passed", map[string]any{
			"agent": a.name, "order": o.Name, "ideal_start": idealStart, "now": now,
		})
	}

	variants = append(variants, a.asapVariant(o, duration, distanceToOrder, distanceWithOrder))
	return variants
}

// asapVariant appends the order after the current tail. When the projected
// battery would dip below the safety charge for the trip plus the eventual
// return home, the start is inflated by a stop at base and the extra travel
// is added to the quoted price.
func (a *CourierAgent) asapVariant(o *order.Order, duration, distanceToOrder, distanceWithOrder float64) *negotiation.Variant {
	c := a.courier
	now := a.now()

	startTime := max(c.Schedule.LastTime(true), now)
	endTime := startTime + duration
	price := duration * c.Rate

	lastPoint := c.Schedule.LastPoint()
	distanceToBase := lastPoint.DistanceTo(c.InitPoint)
	consumption := c.Consumption(distanceToOrder, nil) +
		c.Consumption(distanceWithOrder, o) +
		c.Consumption(distanceToBase, nil)

	startCharge := c.Schedule.ChargeAtTime(startTime)
	if startCharge-consumption-c.MinCharge < 0 {
		timeToCharge := (consumption + c.MinCharge) / c.ChargeVelocity
		durationToBase := distanceToBase / c.Velocity
		durationFromBase := c.InitPoint.DistanceTo(o.PointTo) / c.Velocity

		needWindow := timeToCharge + durationToBase + durationFromBase
		price += (durationToBase + durationFromBase) * c.Rate

		startTime = max(c.Schedule.LastTime(false), now) + needWindow
		endTime = startTime + duration
	}

	return &negotiation.Variant{
		Courier: c, Order: o, Kind: negotiation.VariantASAP,
		TimeFrom: startTime, TimeTo: endTime, Price: price,
	}
}

// displacementVariant proposes evicting the cheapest displaceable conflicting
// order whose price is strictly below the incoming order's.
func (a *CourierAgent) displacementVariant(o *order.Order, startTime, endTime, price float64) *negotiation.Variant {
	c := a.courier
	conflicts := c.Schedule.Conflicts(startTime, endTime)
	if len(conflicts) == 0 {
		return nil
	}

	now := a.now()
	seen := make(map[*order.Order]bool)
	var victim *order.Order
	for _, rec := range conflicts {
		cand := rec.Order
		if cand == nil || seen[cand] {
			continue
		}
		seen[cand] = true
		if !c.Schedule.IsOrderDisplaceable(cand, now) {
			continue
		}
		if cand.Price >= o.Price {
			continue
		}
		if victim == nil || cand.Price < victim.Price {
			victim = cand
		}
	}
	if victim == nil {
		return nil
	}

	a.logger.Log(common.LevelInfo, "displacement candidate found", map[string]any{
		"agent": a.name, "order": o.Name, "victim": victim.Name,
	})
	return &negotiation.Variant{
		Courier: c, Order: o, Kind: negotiation.VariantConflict,
		TimeFrom: startTime, TimeTo: endTime, Price: price,
		OrderToDisplace: victim,
	}
}

// rescheduleVariant walks the schedule forward from the JIT end time,
// building a chain of shifted assignments. Every link must be displaceable
// and still meet its deadline after the shift; otherwise no variant is made.
func (a *CourierAgent) rescheduleVariant(o *order.Order, startTime, endTime, price float64) *negotiation.Variant {
	c := a.courier
	now := a.now()

	var chain []negotiation.ShiftLink
	inChain := func(cand *order.Order) bool {
		for _, link := range chain {
			if link.Order == cand {
				return true
			}
		}
		return false
	}

	lastAvailable := endTime
	for {
		var conflicting *order.Order
		for _, rec := range c.Schedule.Items() {
			if rec.StartTime >= lastAvailable || rec.Order == nil || rec.Order == o {
				continue
			}
			if !inChain(rec.Order) {
				conflicting = rec.Order
				break
			}
		}
		if conflicting == nil {
			break
		}

		if !c.Schedule.IsOrderDisplaceable(conflicting, now) {
			a.logger.Log(common.LevelDebug, "shift chain broken: order already running", map[string]any{
				"agent": a.name, "order": conflicting.Name,
			})
			return nil
		}

		records := c.Schedule.OrderRecords(conflicting)
		minStart, maxEnd := records[0].StartTime, records[0].EndTime
		for _, rec := range records[1:] {
			minStart = min(minStart, rec.StartTime)
			maxEnd = max(maxEnd, rec.EndTime)
		}
		duration := maxEnd - minStart

		newStart := lastAvailable
		newEnd := newStart + duration
		if newEnd > conflicting.TimeTo {
			a.logger.Log(common.LevelDebug, "shift chain broken: deadline violated", map[string]any{
				"agent": a.name, "order": conflicting.Name,
			})
			return nil
		}

		chain = append(chain, negotiation.ShiftLink{Order: conflicting, NewStart: newStart, NewEnd: newEnd})
		lastAvailable = newEnd
	}

	if len(chain) == 0 {
		return nil
	}
	a.logger.Log(common.LevelInfo, "built shift chain", map[string]any{
		"agent": a.name, "order": o.Name, "links": len(chain),
	})
	return &negotiation.Variant{
		Courier: c, Order: o, Kind: negotiation.VariantReschedule,
		TimeFrom: startTime, TimeTo: endTime, Price: price,
		ShiftChain: chain,
	}
}

// handlePlanningRequest commits a variant atomically: the schedule either
// ends up with the variant fully applied or exactly as it was.
func (a *CourierAgent) handlePlanningRequest(msg messaging.Message) {
	v, ok := msg.Body.(*negotiation.Variant)
	if !ok {
		err := shared.NewMalformedMessageError("planning request body is not a variant")
		a.logger.Log(common.LevelError, "malformed planning request", map[string]any{
			"agent": a.name, "error": err.Error(),
		})
		return
	}
	success := a.commitVariant(v)
	a.logger.Log(common.LevelInfo, "planning request handled", map[string]any{
		"agent": a.name, "order": v.Order.Name, "variant": string(v.Kind), "success": success,
	})
	a.send(msg.Sender, messaging.MsgPlanningResponse, PlanningResult{Variant: v, Success: success})
}

func (a *CourierAgent) commitVariant(v *negotiation.Variant) bool {
	c := a.courier
	snapshot := c.Schedule.Snapshot()

	switch v.Kind {
	case negotiation.VariantConflict:
		victim, ok := a.singleConflictVictim(v)
		if !ok {
			return false
		}
		if victim != nil {
			c.Schedule.DeleteOrder(victim)
		}
		if err := c.Schedule.AddOrder(v.Order, v.TimeFrom, v.TimeTo, v.Price, nil); err != nil {
			c.Schedule.Restore(snapshot)
			a.logger.Log(common.LevelInfo, "displacement commit failed", map[string]any{
				"agent": a.name, "order": v.Order.Name, "reason": err.Error(),
			})
			return false
		}
		if victim != nil {
			if addr, found := a.dispatcher.Book().Address(victim.URI()); found {
				a.send(addr, messaging.MsgRemoveOrder, c)
			}
		}
		return true

	case negotiation.VariantReschedule:
		originalCosts := make(map[*order.Order]float64)
		for _, item := range snapshot {
			if item.Order != nil {
				originalCosts[item.Order] += item.Cost
			}
		}
		for _, link := range v.ShiftChain {
			c.Schedule.DeleteOrder(link.Order)
		}
		if err := c.Schedule.AddOrder(v.Order, v.TimeFrom, v.TimeTo, v.Price, nil); err != nil {
			c.Schedule.Restore(snapshot)
			return false
		}
		for _, link := range v.ShiftChain {
			if err := c.Schedule.AddOrder(link.Order, link.NewStart, link.NewEnd, originalCosts[link.Order], nil); err != nil {
				c.Schedule.Restore(snapshot)
				a.logger.Log(common.LevelInfo, "reschedule commit failed", map[string]any{
					"agent": a.name, "order": v.Order.Name, "shifted": link.Order.Name, "reason": err.Error(),
				})
				return false
			}
		}
		return true

	default:
		if err := c.Schedule.AddOrder(v.Order, v.TimeFrom, v.TimeTo, v.Price, nil); err != nil {
			c.Schedule.Restore(snapshot)
			return false
		}
		return true
	}
}

// singleConflictVictim re-derives the conflict set at commit time. A nil
// victim with ok means the slot freed up since the quote and the order can be
// inserted without evicting anyone. More than one conflicting order, or a
// victim other than the quoted one, means the schedule changed in a way the
// displacement contract does not cover, and the commit is aborted.
func (a *CourierAgent) singleConflictVictim(v *negotiation.Variant) (*order.Order, bool) {
	conflicts := a.courier.Schedule.Conflicts(v.TimeFrom, v.TimeTo)
	var victim *order.Order
	for _, rec := range conflicts {
		if rec.Order == nil || rec.Order == v.Order {
			continue
		}
		if victim != nil && rec.Order != victim {
			a.logger.Log(common.LevelInfo, "displacement aborted: multiple conflicting orders", map[string]any{
				"agent": a.name, "order": v.Order.Name,
			})
			return nil, false
		}
		victim = rec.Order
	}
	if victim == nil {
		return nil, true
	}
	if v.OrderToDisplace != nil && victim != v.OrderToDisplace {
		return nil, false
	}
	return victim, true
}
