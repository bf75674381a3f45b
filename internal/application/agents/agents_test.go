package agents

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/lastmile-go/internal/application/messaging"
	"github.com/andrescamacho/lastmile-go/internal/domain/courier"
	"github.com/andrescamacho/lastmile-go/internal/domain/negotiation"
	"github.com/andrescamacho/lastmile-go/internal/domain/order"
	"github.com/andrescamacho/lastmile-go/internal/domain/sim"
)

type world struct {
	scene      *sim.Scene
	runtime    *messaging.Runtime
	dispatcher *Dispatcher
}

func newWorld(t *testing.T, weights negotiation.ScoringWeights) *world {
	t.Helper()
	scene := sim.NewScene()
	runtime := messaging.NewRuntime(scene.Clock, nil)
	t.Cleanup(runtime.Shutdown)
	return &world{
		scene:      scene,
		runtime:    runtime,
		dispatcher: NewDispatcher(runtime, scene, weights, nil),
	}
}

func (w *world) settle(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, w.runtime.WaitQuiesce(ctx))
}

func makeCourier(t *testing.T, number int, initX float64, mutate func(*courier.Record)) *courier.Courier {
	t.Helper()
	rec := courier.Record{
		Number:          number,
		Name:            fmt.Sprintf("drone-%d", number),
		InitX:           initX,
		Rate:            1,
		ChargeVelocity:  100,
		FlightDischarge: 0.1,
		Capacity:        1000,
		MinCharge:       5,
		Speed:           1,
		MaxMass:         10,
	}
	if mutate != nil {
		mutate(&rec)
	}
	c, err := courier.NewCourier(rec)
	require.NoError(t, err)
	return c
}

func makeOrder(t *testing.T, number int, price float64, mutate func(*order.Record)) *order.Order {
	t.Helper()
	rec := order.Record{
		Number:    number,
		Name:      fmt.Sprintf("parcel-%d", number),
		Mass:      2,
		Price:     price,
		PickupX:   2,
		DeliveryX: 4,
		TimeFrom:  5,
		TimeTo:    100,
	}
	if mutate != nil {
		mutate(&rec)
	}
	o, err := order.NewOrder(rec)
	require.NoError(t, err)
	return o
}

func TestSingleOrderGetsJITSlot(t *testing.T) {
	w := newWorld(t, negotiation.DefaultScoringWeights())
	c := makeCourier(t, 1, 0, nil)
	o := makeOrder(t, 1, 10, nil)

	require.NoError(t, w.dispatcher.AddEntity(c))
	require.NoError(t, w.dispatcher.AddEntity(o))
	w.settle(t)

	require.True(t, o.DeliveryData.Assigned)
	assert.Equal(t, "drone-1", o.DeliveryData.CourierName)
	// Just-in-time: depart at t=3 to reach pickup exactly at the window open.
	assert.InDelta(t, 3.0, o.DeliveryData.TimeFrom, 1e-9)
	assert.InDelta(t, 7.0, o.DeliveryData.TimeTo, 1e-9)
	assert.InDelta(t, 4.0, o.DeliveryData.Price, 1e-9)

	items := c.Schedule.Items()
	require.Len(t, items, 3)
	assert.Equal(t, courier.RecMoveToPickup, items[0].RecType)
	assert.Equal(t, courier.RecMoveWithLoad, items[1].RecType)
	assert.Equal(t, courier.RecMoveToCharge, items[2].RecType)
}

func TestSecondOrderAppendsAfterFirst(t *testing.T) {
	w := newWorld(t, negotiation.DefaultScoringWeights())
	c := makeCourier(t, 1, 0, nil)
	first := makeOrder(t, 1, 10, nil)
	second := makeOrder(t, 2, 10, nil)

	require.NoError(t, w.dispatcher.AddEntity(c))
	require.NoError(t, w.dispatcher.AddEntity(first))
	w.settle(t)
	require.NoError(t, w.dispatcher.AddEntity(second))
	w.settle(t)

	require.True(t, first.DeliveryData.Assigned)
	require.True(t, second.DeliveryData.Assigned)
	assert.InDelta(t, 3.0, first.DeliveryData.TimeFrom, 1e-9)
	// Equal prices forbid displacement, so the second order is appended
	// behind the first instead of stealing its slot.
	assert.InDelta(t, 11.0, second.DeliveryData.TimeFrom, 1e-9)
	assert.InDelta(t, 15.0, second.DeliveryData.TimeTo, 1e-9)

	assert.Len(t, c.Schedule.OrderRecords(first), 2)
	assert.Len(t, c.Schedule.OrderRecords(second), 2)
}

func TestCourierRemovalTriggersReassignment(t *testing.T) {
	w := newWorld(t, negotiation.DefaultScoringWeights())
	near := makeCourier(t, 1, 0, nil)
	far := makeCourier(t, 2, 10, nil)
	o := makeOrder(t, 1, 10, nil)

	require.NoError(t, w.dispatcher.AddEntity(near))
	require.NoError(t, w.dispatcher.AddEntity(far))
	require.NoError(t, w.dispatcher.AddEntity(o))
	w.settle(t)

	require.True(t, o.DeliveryData.Assigned)
	require.Equal(t, "drone-1", o.DeliveryData.CourierName)

	require.True(t, w.dispatcher.RemoveEntity(courier.EntityType, "drone-1"))
	w.settle(t)

	require.True(t, o.DeliveryData.Assigned, "order re-plans onto the remaining courier")
	assert.Equal(t, "drone-2", o.DeliveryData.CourierName)
	assert.InDelta(t, 0.0, o.DeliveryData.TimeFrom, 1e-9)
	assert.InDelta(t, 10.0, o.DeliveryData.TimeTo, 1e-9)
	assert.Len(t, far.Schedule.OrderRecords(o), 2)
}

func TestCourierTypeFilteringLimitsBroadcast(t *testing.T) {
	w := newWorld(t, negotiation.DefaultScoringWeights())
	foodOnly := makeCourier(t, 1, 0, func(rec *courier.Record) { rec.Types = "food" })
	o := makeOrder(t, 1, 10, func(rec *order.Record) { rec.OrderType = "pharma" })

	require.NoError(t, w.dispatcher.AddEntity(foodOnly))
	require.NoError(t, w.dispatcher.AddEntity(o))
	w.settle(t)

	assert.False(t, o.DeliveryData.Assigned)
	assert.Equal(t, 0, foodOnly.Schedule.Len())
}

func TestDispatcherRejectsUnknownEntities(t *testing.T) {
	w := newWorld(t, negotiation.DefaultScoringWeights())

	err := w.dispatcher.AddEntity(&strangeEntity{})
	require.Error(t, err)
	assert.Empty(t, w.dispatcher.Book().Addresses())
}

type strangeEntity struct{}

func (*strangeEntity) Type() string       { return "WAREHOUSE" }
func (*strangeEntity) EntityName() string { return "hub-1" }
func (*strangeEntity) URI() string        { return "Warehouse1" }
func (*strangeEntity) IsDeleting() bool   { return false }
func (*strangeEntity) MarkDeleting()      {}

// silentCourier stands in for a courier agent that never answers quotes.
type silentCourier struct{}

func (silentCourier) HandleMessage(messaging.Message) {}

func TestOrderTimesOutOnMissingQuotes(t *testing.T) {
	w := newWorld(t, negotiation.DefaultScoringWeights())

	c := makeCourier(t, 1, 0, nil)
	w.scene.Add(c)
	w.dispatcher.Book().Add(c.URI(), w.runtime.Spawn(silentCourier{}))

	o := makeOrder(t, 1, 10, nil)
	agent := NewOrderAgent(o, w.runtime, negotiation.DefaultScoringWeights(), nil)
	addr := w.runtime.Spawn(agent)
	w.dispatcher.Book().Add(o.URI(), addr)
	w.scene.Add(o)
	w.runtime.Send(addr, messaging.Message{
		Type: messaging.MsgInit,
		Body: InitPayload{Scene: w.scene, Dispatcher: w.dispatcher, Entity: o},
	})
	w.settle(t)

	require.Equal(t, StateAwaitingQuotes, agent.State())

	// Past the response timeout the order gives up on missing quotes and
	// plans with what it has: nothing.
	require.NoError(t, w.scene.Clock.Set(5))
	w.dispatcher.TickAgents()
	w.settle(t)

	assert.Equal(t, StateUnassigned, agent.State())
	assert.False(t, o.DeliveryData.Assigned)
}
