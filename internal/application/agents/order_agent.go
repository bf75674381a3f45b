package agents

import (
	"github.com/andrescamacho/lastmile-go/internal/application/common"
	"github.com/andrescamacho/lastmile-go/internal/application/messaging"
	"github.com/andrescamacho/lastmile-go/internal/domain/courier"
	"github.com/andrescamacho/lastmile-go/internal/domain/negotiation"
	"github.com/andrescamacho/lastmile-go/internal/domain/order"
	"github.com/andrescamacho/lastmile-go/internal/domain/shared"
)

// OrderState is the negotiation phase of an order agent.
type OrderState int

const (
	StateUnassigned OrderState = iota
	StateAwaitingQuotes
	StateAwaitingCommit
	StateAssigned
)

func (s OrderState) String() string {
	switch s {
	case StateUnassigned:
		return "Unassigned"
	case StateAwaitingQuotes:
		return "AwaitingQuotes"
	case StateAwaitingCommit:
		return "AwaitingCommit"
	case StateAssigned:
		return "Assigned"
	}
	return "Unknown"
}

// OrderAgent drives the negotiation loop for one order: broadcast price
// requests, score the collected variants, commit to the best courier and
// re-plan after evictions or courier departures.
type OrderAgent struct {
	*base
	order   *order.Order
	weights negotiation.ScoringWeights

	state        OrderState
	variants     []*negotiation.Variant
	outstanding  map[messaging.Address]bool
	receiveStart float64
}

// NewOrderAgent creates the agent for one order entity.
func NewOrderAgent(o *order.Order, runtime *messaging.Runtime, weights negotiation.ScoringWeights, logger common.RunLogger) *OrderAgent {
	a := &OrderAgent{
		base:        newBase("order agent", runtime, logger),
		order:       o,
		weights:     weights,
		state:       StateUnassigned,
		outstanding: make(map[messaging.Address]bool),
	}
	a.subscribe(messaging.MsgPriceResponse, a.handlePriceResponse)
	a.subscribe(messaging.MsgPlanningResponse, a.handlePlanningResponse)
	a.subscribe(messaging.MsgRemoveOrder, a.handleRemoveOrder)
	a.subscribe(messaging.MsgNewCourier, a.handleNewCourier)
	a.subscribe(messaging.MsgDeletedCourier, a.handleDeletedCourier)
	a.subscribe(messaging.MsgTick, a.handleTick)
	a.onInit = func(InitPayload) { a.broadcastPriceRequests() }
	return a
}

// State exposes the current negotiation phase, mainly for tests.
func (a *OrderAgent) State() OrderState { return a.state }

// broadcastPriceRequests asks every courier accepting this order's type for
// variants and records the outstanding-response set.
func (a *OrderAgent) broadcastPriceRequests() {
	a.outstanding = make(map[messaging.Address]bool)
	a.receiveStart = a.now()

	for _, e := range a.scene.EntitiesByType(courier.EntityType) {
		c, ok := e.(*courier.Courier)
		if !ok || !c.Accepts(a.order.OrderType) {
			continue
		}
		addr, found := a.courierAddress(c)
		if !found {
			continue
		}
		a.send(addr, messaging.MsgPriceRequest, a.order)
		a.outstanding[addr] = true
	}

	if len(a.outstanding) == 0 {
		a.state = StateUnassigned
		a.logger.Log(common.LevelInfo, "no couriers available for order", map[string]any{"agent": a.name})
		return
	}
	a.state = StateAwaitingQuotes
}

func (a *OrderAgent) handlePriceResponse(msg messaging.Message) {
	if a.state != StateAwaitingQuotes {
		err := shared.NewStaleMessageError("price response in state " + a.state.String())
		a.logger.Log(common.LevelDebug, "stale price response dropped", map[string]any{
			"agent": a.name, "error": err.Error(),
		})
		return
	}
	variants, ok := msg.Body.([]*negotiation.Variant)
	if !ok {
		err := shared.NewMalformedMessageError("price response body is not a variant list")
		a.logger.Log(common.LevelError, "malformed price response", map[string]any{
			"agent": a.name, "error": err.Error(),
		})
		return
	}

	a.variants = append(a.variants, variants...)
	delete(a.outstanding, msg.Sender)
	if len(a.outstanding) == 0 {
		a.runPlanning()
	}
}

// runPlanning scores the collected variants and sends a planning request to
// the best one's courier.
func (a *OrderAgent) runPlanning() {
	if len(a.variants) == 0 {
		a.logger.Log(common.LevelInfo, "no variants to plan", map[string]any{"agent": a.name})
		a.state = StateUnassigned
		return
	}

	negotiation.Evaluate(a.variants, a.weights)
	best := negotiation.Best(a.variants)

	addr, found := a.courierAddress(best.Courier)
	if !found {
		// The winning courier disappeared between quote and commit.
		a.dropVariant(best)
		if len(a.variants) > 0 {
			a.runPlanning()
			return
		}
		a.broadcastPriceRequests()
		return
	}

	a.logger.Log(common.LevelInfo, "best variant selected", map[string]any{
		"agent": a.name, "courier": best.Courier.Name, "variant": string(best.Kind),
		"total_efficiency": best.TotalEfficiency,
	})
	a.send(addr, messaging.MsgPlanningRequest, best)
	a.state = StateAwaitingCommit
}

func (a *OrderAgent) handlePlanningResponse(msg messaging.Message) {
	if a.state != StateAwaitingCommit {
		err := shared.NewStaleMessageError("planning response in state " + a.state.String())
		a.logger.Log(common.LevelDebug, "stale planning response dropped", map[string]any{
			"agent": a.name, "error": err.Error(),
		})
		return
	}
	result, ok := msg.Body.(PlanningResult)
	if !ok {
		err := shared.NewMalformedMessageError("planning response body is not a planning result")
		a.logger.Log(common.LevelError, "malformed planning response", map[string]any{
			"agent": a.name, "error": err.Error(),
		})
		return
	}

	if result.Success {
		v := result.Variant
		a.order.DeliveryData = order.DeliveryData{
			CourierName: v.Courier.Name,
			Price:       v.Price,
			TimeFrom:    v.TimeFrom,
			TimeTo:      v.TimeTo,
			Assigned:    true,
		}
		a.state = StateAssigned
		a.logger.Log(common.LevelInfo, "order assigned", map[string]any{
			"agent": a.name, "courier": v.Courier.Name, "time_from": v.TimeFrom, "time_to": v.TimeTo,
		})
		return
	}

	a.dropVariant(result.Variant)
	if len(a.variants) > 0 {
		a.runPlanning()
		return
	}
	a.variants = nil
	a.broadcastPriceRequests()
}

// handleRemoveOrder reacts to being displaced from a courier's schedule: all
// cached quotes are stale, so the negotiation starts over.
func (a *OrderAgent) handleRemoveOrder(msg messaging.Message) {
	if c, ok := msg.Body.(*courier.Courier); ok {
		a.logger.Log(common.LevelInfo, "displaced from courier schedule", map[string]any{
			"agent": a.name, "courier": c.Name,
		})
	}
	a.order.ClearDelivery()
	a.variants = nil
	a.broadcastPriceRequests()
}

func (a *OrderAgent) handleDeletedCourier(msg messaging.Message) {
	c, ok := msg.Body.(*courier.Courier)
	if !ok {
		err := shared.NewMalformedMessageError("courier deletion notice body is not a courier")
		a.logger.Log(common.LevelError, "malformed courier deletion notice", map[string]any{
			"agent": a.name, "error": err.Error(),
		})
		return
	}
	if a.state != StateAssigned || a.order.DeliveryData.CourierName != c.Name {
		// Not planned on that courier; nothing to do.
		return
	}
	a.handleRemoveOrder(msg)
}

func (a *OrderAgent) handleNewCourier(msg messaging.Message) {
	c, ok := msg.Body.(*courier.Courier)
	if !ok {
		err := shared.NewMalformedMessageError("new courier notice body is not a courier")
		a.logger.Log(common.LevelError, "malformed new courier notice", map[string]any{
			"agent": a.name, "error": err.Error(),
		})
		return
	}
	if a.state == StateAssigned || a.state == StateAwaitingCommit {
		return
	}
	addr, found := a.courierAddress(c)
	if !found {
		return
	}
	a.send(addr, messaging.MsgPriceRequest, a.order)
	a.outstanding[addr] = true
	if a.receiveStart < a.now() && len(a.outstanding) == 1 {
		a.receiveStart = a.now()
	}
	a.state = StateAwaitingQuotes
}

// handleTick enforces the response-wait timeout: when quotes are overdue the
// order proceeds with whatever it has collected.
func (a *OrderAgent) handleTick(messaging.Message) {
	if a.state != StateAwaitingQuotes || len(a.outstanding) == 0 {
		return
	}
	if a.now() < a.receiveStart+a.order.ResponseTimeout {
		return
	}
	a.logger.Log(common.LevelDebug, "quote collection timed out", map[string]any{
		"agent": a.name, "missing": len(a.outstanding),
	})
	a.outstanding = make(map[messaging.Address]bool)
	a.runPlanning()
}

func (a *OrderAgent) dropVariant(v *negotiation.Variant) {
	for i, cand := range a.variants {
		if cand == v {
			a.variants = append(a.variants[:i], a.variants[i+1:]...)
			return
		}
	}
}
