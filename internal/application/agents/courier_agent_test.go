package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/lastmile-go/internal/domain/courier"
	"github.com/andrescamacho/lastmile-go/internal/domain/negotiation"
	"github.com/andrescamacho/lastmile-go/internal/domain/order"
)

// newCourierAgentUnderTest wires a courier agent to a live world without
// spawning it, so commit logic can be driven synchronously.
func newCourierAgentUnderTest(t *testing.T, c *courier.Courier) (*CourierAgent, *world) {
	t.Helper()
	w := newWorld(t, negotiation.DefaultScoringWeights())
	a := NewCourierAgent(c, w.runtime, nil)
	a.scene = w.scene
	a.dispatcher = w.dispatcher
	a.entity = c
	return a, w
}

func TestAsapVariantWithoutBatteryPressure(t *testing.T) {
	c := makeCourier(t, 1, 0, nil)
	a, _ := newCourierAgentUnderTest(t, c)
	o := makeOrder(t, 1, 10, nil)

	v := a.asapVariant(o, 4, 2, 2)

	assert.Equal(t, negotiation.VariantASAP, v.Kind)
	assert.InDelta(t, 0.0, v.TimeFrom, 1e-9)
	assert.InDelta(t, 4.0, v.TimeTo, 1e-9)
	assert.InDelta(t, 4.0, v.Price, 1e-9)
}

func TestAsapVariantInflatedByBattery(t *testing.T) {
	// Battery too small for the trip plus the safety margin: 4 units of
	// consumption against 5 of capacity with a floor of 2.
	c := makeCourier(t, 1, 0, func(rec *courier.Record) {
		rec.Capacity = 5
		rec.MinCharge = 2
		rec.ChargeVelocity = 1
		rec.FlightDischarge = 1
		rec.LoadDischargeA = 0
		rec.LoadDischargeB = 0
	})
	a, _ := newCourierAgentUnderTest(t, c)
	o := makeOrder(t, 1, 10, nil)

	v := a.asapVariant(o, 4, 2, 2)

	// Charging 6 units at velocity 1, then flying out via the delivery
	// endpoint: the start moves to t=10 and the detour is billed.
	assert.InDelta(t, 10.0, v.TimeFrom, 1e-9)
	assert.InDelta(t, 14.0, v.TimeTo, 1e-9)
	assert.InDelta(t, 8.0, v.Price, 1e-9)
}

func TestBuildVariantsRejectsOverweightOrders(t *testing.T) {
	c := makeCourier(t, 1, 0, func(rec *courier.Record) { rec.MaxMass = 1 })
	a, _ := newCourierAgentUnderTest(t, c)
	o := makeOrder(t, 1, 10, nil) // 2kg

	assert.Nil(t, a.buildVariants(o))
}

func TestBuildVariantsOffersJITAndASAP(t *testing.T) {
	c := makeCourier(t, 1, 0, nil)
	a, _ := newCourierAgentUnderTest(t, c)
	o := makeOrder(t, 1, 10, nil)

	variants := a.buildVariants(o)

	require.Len(t, variants, 2)
	assert.Equal(t, negotiation.VariantJIT, variants[0].Kind)
	assert.InDelta(t, 3.0, variants[0].TimeFrom, 1e-9)
	assert.InDelta(t, 7.0, variants[0].TimeTo, 1e-9)
	assert.Equal(t, negotiation.VariantASAP, variants[1].Kind)
}

func TestCommitConflictVariantEvictsVictim(t *testing.T) {
	c := makeCourier(t, 1, 0, nil)
	a, _ := newCourierAgentUnderTest(t, c)

	victim := makeOrder(t, 1, 10, nil)
	require.NoError(t, c.Schedule.AddOrder(victim, 3, 7, 4, nil))
	incoming := makeOrder(t, 2, 50, nil)

	ok := a.commitVariant(&negotiation.Variant{
		Courier: c, Order: incoming, Kind: negotiation.VariantConflict,
		TimeFrom: 3, TimeTo: 7, Price: 4,
		OrderToDisplace: victim,
	})

	require.True(t, ok)
	assert.Empty(t, c.Schedule.OrderRecords(victim))
	assert.Len(t, c.Schedule.OrderRecords(incoming), 2)
}

func TestCommitConflictAbortsOnMultipleVictims(t *testing.T) {
	c := makeCourier(t, 1, 0, nil)
	a, _ := newCourierAgentUnderTest(t, c)

	first := makeOrder(t, 1, 10, nil)
	second := makeOrder(t, 2, 10, nil)
	require.NoError(t, c.Schedule.AddOrder(first, 3, 7, 4, nil))
	require.NoError(t, c.Schedule.AddOrder(second, 7, 11, 4, nil))
	incoming := makeOrder(t, 3, 50, nil)

	ok := a.commitVariant(&negotiation.Variant{
		Courier: c, Order: incoming, Kind: negotiation.VariantConflict,
		TimeFrom: 3, TimeTo: 11, Price: 8,
		OrderToDisplace: first,
	})

	// The quote was made against a single conflicting order; the schedule
	// changed since, so nothing moves.
	require.False(t, ok)
	assert.Len(t, c.Schedule.OrderRecords(first), 2)
	assert.Len(t, c.Schedule.OrderRecords(second), 2)
	assert.Empty(t, c.Schedule.OrderRecords(incoming))
}

func TestCommitConflictInsertsWhenSlotFreedMeanwhile(t *testing.T) {
	c := makeCourier(t, 1, 0, nil)
	a, _ := newCourierAgentUnderTest(t, c)

	// The quoted victim was already removed from the schedule, so the slot
	// is free by commit time and the order goes in without an eviction.
	departed := makeOrder(t, 1, 10, nil)
	incoming := makeOrder(t, 2, 50, nil)

	ok := a.commitVariant(&negotiation.Variant{
		Courier: c, Order: incoming, Kind: negotiation.VariantConflict,
		TimeFrom: 3, TimeTo: 7, Price: 4,
		OrderToDisplace: departed,
	})

	require.True(t, ok)
	assert.Len(t, c.Schedule.OrderRecords(incoming), 2)
	assert.Empty(t, c.Schedule.OrderRecords(departed))
}

func TestCommitRescheduleShiftsChain(t *testing.T) {
	c := makeCourier(t, 1, 0, nil)
	a, _ := newCourierAgentUnderTest(t, c)

	shifted := makeOrder(t, 1, 10, nil)
	require.NoError(t, c.Schedule.AddOrder(shifted, 3, 7, 4, nil))
	incoming := makeOrder(t, 2, 50, nil)

	ok := a.commitVariant(&negotiation.Variant{
		Courier: c, Order: incoming, Kind: negotiation.VariantReschedule,
		TimeFrom: 3, TimeTo: 7, Price: 4,
		ShiftChain: []negotiation.ShiftLink{{Order: shifted, NewStart: 7, NewEnd: 11}},
	})

	require.True(t, ok)
	assert.Len(t, c.Schedule.OrderRecords(incoming), 2)

	records := c.Schedule.OrderRecords(shifted)
	require.Len(t, records, 2)
	assert.InDelta(t, 7.0, records[0].StartTime, 1e-9)
	assert.InDelta(t, 11.0, records[1].EndTime, 1e-9)
	// The shifted order keeps its originally agreed cost.
	assert.InDelta(t, 4.0, records[0].Cost+records[1].Cost, 1e-9)
}

func TestCommitRollsBackOnInfeasibleWindow(t *testing.T) {
	c := makeCourier(t, 1, 0, nil)
	a, _ := newCourierAgentUnderTest(t, c)

	existing := makeOrder(t, 1, 10, nil)
	require.NoError(t, c.Schedule.AddOrder(existing, 3, 7, 4, nil))
	before := c.Schedule.Snapshot()
	incoming := makeOrder(t, 2, 50, nil)

	// Window wider than the trip takes: the insert must fail cleanly.
	ok := a.commitVariant(&negotiation.Variant{
		Courier: c, Order: incoming, Kind: negotiation.VariantASAP,
		TimeFrom: 11, TimeTo: 30, Price: 4,
	})

	require.False(t, ok)
	require.Equal(t, len(before), c.Schedule.Len())
	assert.Empty(t, c.Schedule.OrderRecords(incoming))
	assert.Len(t, c.Schedule.OrderRecords(existing), 2)
}

func TestDisplacementVariantPicksCheapestVictim(t *testing.T) {
	c := makeCourier(t, 1, 0, nil)
	a, _ := newCourierAgentUnderTest(t, c)

	cheap := makeOrder(t, 1, 5, nil)
	pricier := makeOrder(t, 2, 20, nil)
	require.NoError(t, c.Schedule.AddOrder(cheap, 3, 7, 4, nil))
	require.NoError(t, c.Schedule.AddOrder(pricier, 7, 11, 4, nil))
	incoming := makeOrder(t, 3, 50, nil)

	v := a.displacementVariant(incoming, 3, 11, 8)

	require.NotNil(t, v)
	assert.Equal(t, negotiation.VariantConflict, v.Kind)
	assert.Same(t, cheap, v.OrderToDisplace)
}

func TestDisplacementVariantRequiresCheaperVictim(t *testing.T) {
	c := makeCourier(t, 1, 0, nil)
	a, _ := newCourierAgentUnderTest(t, c)

	expensive := makeOrder(t, 1, 80, nil)
	require.NoError(t, c.Schedule.AddOrder(expensive, 3, 7, 4, nil))
	incoming := makeOrder(t, 2, 50, nil)

	assert.Nil(t, a.displacementVariant(incoming, 3, 7, 4))
}

func TestRescheduleVariantCascadesThroughChain(t *testing.T) {
	c := makeCourier(t, 1, 0, nil)
	a, _ := newCourierAgentUnderTest(t, c)

	first := makeOrder(t, 1, 10, nil)
	second := makeOrder(t, 2, 10, nil)
	third := makeOrder(t, 3, 10, nil)
	require.NoError(t, c.Schedule.AddOrder(first, 3, 7, 4, nil))
	require.NoError(t, c.Schedule.AddOrder(second, 7, 11, 4, nil))
	require.NoError(t, c.Schedule.AddOrder(third, 11, 15, 4, nil))
	incoming := makeOrder(t, 4, 50, nil)

	v := a.rescheduleVariant(incoming, 3, 7, 4)

	// Every assigned order shifts one slot down the line.
	require.NotNil(t, v)
	require.Len(t, v.ShiftChain, 3)
	assert.Same(t, first, v.ShiftChain[0].Order)
	assert.InDelta(t, 7.0, v.ShiftChain[0].NewStart, 1e-9)
	assert.Same(t, second, v.ShiftChain[1].Order)
	assert.InDelta(t, 11.0, v.ShiftChain[1].NewStart, 1e-9)
	assert.Same(t, third, v.ShiftChain[2].Order)
	assert.InDelta(t, 15.0, v.ShiftChain[2].NewStart, 1e-9)
	assert.InDelta(t, 19.0, v.ShiftChain[2].NewEnd, 1e-9)

	ok := a.commitVariant(v)
	require.True(t, ok)
	assert.Len(t, c.Schedule.OrderRecords(incoming), 2)
	records := c.Schedule.OrderRecords(third)
	require.Len(t, records, 2)
	assert.InDelta(t, 15.0, records[0].StartTime, 1e-9)
}

func TestRescheduleVariantRejectsCascadePastDeadline(t *testing.T) {
	c := makeCourier(t, 1, 0, nil)
	a, _ := newCourierAgentUnderTest(t, c)

	first := makeOrder(t, 1, 10, nil)
	// The last order in line cannot absorb the shift to [11, 15].
	tight := makeOrder(t, 2, 10, func(rec *order.Record) { rec.TimeTo = 12 })
	require.NoError(t, c.Schedule.AddOrder(first, 3, 7, 4, nil))
	require.NoError(t, c.Schedule.AddOrder(tight, 7, 11, 4, nil))
	incoming := makeOrder(t, 3, 50, nil)

	assert.Nil(t, a.rescheduleVariant(incoming, 3, 7, 4))
}

func TestRescheduleVariantRespectsDeadlines(t *testing.T) {
	c := makeCourier(t, 1, 0, nil)
	a, _ := newCourierAgentUnderTest(t, c)

	// Shifting this order to [7, 11] would overrun its deadline at t=9.
	tight := makeOrder(t, 1, 10, func(rec *order.Record) { rec.TimeTo = 9 })
	require.NoError(t, c.Schedule.AddOrder(tight, 3, 7, 4, nil))
	incoming := makeOrder(t, 2, 50, nil)

	assert.Nil(t, a.rescheduleVariant(incoming, 3, 7, 4))

	relaxed := makeOrder(t, 3, 10, nil)
	c.Schedule.DeleteOrder(tight)
	require.NoError(t, c.Schedule.AddOrder(relaxed, 3, 7, 4, nil))

	v := a.rescheduleVariant(incoming, 3, 7, 4)
	require.NotNil(t, v)
	require.Len(t, v.ShiftChain, 1)
	assert.Same(t, relaxed, v.ShiftChain[0].Order)
	assert.InDelta(t, 7.0, v.ShiftChain[0].NewStart, 1e-9)
	assert.InDelta(t, 11.0, v.ShiftChain[0].NewEnd, 1e-9)
}
