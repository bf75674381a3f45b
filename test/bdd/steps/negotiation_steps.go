// Package steps holds the godog step definitions driving end-to-end
// negotiation scenarios against a live scene and agent substrate.
package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/cucumber/godog"

	"github.com/andrescamacho/lastmile-go/internal/application/agents"
	"github.com/andrescamacho/lastmile-go/internal/application/messaging"
	"github.com/andrescamacho/lastmile-go/internal/domain/courier"
	"github.com/andrescamacho/lastmile-go/internal/domain/negotiation"
	"github.com/andrescamacho/lastmile-go/internal/domain/order"
	"github.com/andrescamacho/lastmile-go/internal/domain/sim"
)

const timeEpsilon = 1e-6

type negotiationContext struct {
	scene      *sim.Scene
	runtime    *messaging.Runtime
	dispatcher *agents.Dispatcher
	couriers   map[string]*courier.Courier
	orders     map[string]*order.Order
}

// InitializeNegotiationScenario registers the negotiation step definitions.
func InitializeNegotiationScenario(sc *godog.ScenarioContext) {
	c := &negotiationContext{}

	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		c.scene = sim.NewScene()
		c.runtime = messaging.NewRuntime(c.scene.Clock, nil)
		c.dispatcher = agents.NewDispatcher(c.runtime, c.scene, negotiation.DefaultScoringWeights(), nil)
		c.couriers = make(map[string]*courier.Courier)
		c.orders = make(map[string]*order.Order)
		return ctx, nil
	})
	sc.After(func(ctx context.Context, _ *godog.Scenario, _ error) (context.Context, error) {
		if c.runtime != nil {
			c.runtime.Shutdown()
		}
		return ctx, nil
	})

	sc.Step(`^the following couriers appear:$`, c.couriersAppear)
	sc.Step(`^the following orders appear:$`, c.ordersAppear)
	sc.Step(`^the clock is set to (-?\d+(?:\.\d+)?)$`, c.clockSetTo)
	sc.Step(`^all agents receive a tick$`, c.tickAgents)
	sc.Step(`^courier "([^"]*)" leaves the fleet$`, c.courierLeaves)
	sc.Step(`^order "([^"]*)" should be assigned to "([^"]*)" for \[(-?\d+(?:\.\d+)?), (-?\d+(?:\.\d+)?)\] at price (-?\d+(?:\.\d+)?)$`, c.orderAssigned)
	sc.Step(`^order "([^"]*)" should be unassigned$`, c.orderUnassigned)
	sc.Step(`^the schedule of "([^"]*)" should be:$`, c.scheduleIs)
}

// settle waits for every in-flight negotiation message to be handled.
func (c *negotiationContext) settle() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.runtime.WaitQuiesce(ctx)
}

func (c *negotiationContext) couriersAppear(doc *godog.DocString) error {
	var records []courier.Record
	if err := json.Unmarshal([]byte(doc.Content), &records); err != nil {
		return fmt.Errorf("parsing courier records: %w", err)
	}
	for _, rec := range records {
		entity, err := courier.NewCourier(rec)
		if err != nil {
			return err
		}
		if err := c.dispatcher.AddEntity(entity); err != nil {
			return err
		}
		c.couriers[entity.Name] = entity
	}
	return c.settle()
}

func (c *negotiationContext) ordersAppear(doc *godog.DocString) error {
	var records []order.Record
	if err := json.Unmarshal([]byte(doc.Content), &records); err != nil {
		return fmt.Errorf("parsing order records: %w", err)
	}
	for _, rec := range records {
		entity, err := order.NewOrder(rec)
		if err != nil {
			return err
		}
		if err := c.dispatcher.AddEntity(entity); err != nil {
			return err
		}
		c.orders[entity.Name] = entity
	}
	return c.settle()
}

func (c *negotiationContext) clockSetTo(t float64) error {
	if err := c.scene.Clock.Set(t); err != nil {
		return err
	}
	return nil
}

func (c *negotiationContext) tickAgents() error {
	c.dispatcher.TickAgents()
	return c.settle()
}

func (c *negotiationContext) courierLeaves(name string) error {
	if !c.dispatcher.RemoveEntity(courier.EntityType, name) {
		return fmt.Errorf("courier %q not found in scene", name)
	}
	return c.settle()
}

func (c *negotiationContext) orderAssigned(orderName, courierName string, from, to, price float64) error {
	o, found := c.orders[orderName]
	if !found {
		return fmt.Errorf("unknown order %q", orderName)
	}
	dd := o.DeliveryData
	if !dd.Assigned {
		return fmt.Errorf("order %q is not assigned", orderName)
	}
	if dd.CourierName != courierName {
		return fmt.Errorf("order %q assigned to %q, expected %q", orderName, dd.CourierName, courierName)
	}
	if math.Abs(dd.TimeFrom-from) > timeEpsilon || math.Abs(dd.TimeTo-to) > timeEpsilon {
		return fmt.Errorf("order %q window is [%g, %g], expected [%g, %g]",
			orderName, dd.TimeFrom, dd.TimeTo, from, to)
	}
	if math.Abs(dd.Price-price) > timeEpsilon {
		return fmt.Errorf("order %q price is %g, expected %g", orderName, dd.Price, price)
	}
	return nil
}

func (c *negotiationContext) orderUnassigned(orderName string) error {
	o, found := c.orders[orderName]
	if !found {
		return fmt.Errorf("unknown order %q", orderName)
	}
	if o.DeliveryData.Assigned {
		return fmt.Errorf("order %q is assigned to %q", orderName, o.DeliveryData.CourierName)
	}
	return nil
}

func (c *negotiationContext) scheduleIs(courierName string, table *godog.Table) error {
	entity, found := c.couriers[courierName]
	if !found {
		return fmt.Errorf("unknown courier %q", courierName)
	}
	if len(table.Rows) < 2 {
		return fmt.Errorf("schedule table needs a header and at least one row")
	}

	items := entity.Schedule.Items()
	expected := table.Rows[1:]
	if len(items) != len(expected) {
		return fmt.Errorf("schedule of %q has %d items, expected %d", courierName, len(items), len(expected))
	}

	for i, row := range expected {
		if len(row.Cells) != 4 {
			return fmt.Errorf("row %d: expected columns type, start, end, task", i+1)
		}
		recType := row.Cells[0].Value
		start, err := strconv.ParseFloat(row.Cells[1].Value, 64)
		if err != nil {
			return fmt.Errorf("row %d: bad start time: %w", i+1, err)
		}
		end, err := strconv.ParseFloat(row.Cells[2].Value, 64)
		if err != nil {
			return fmt.Errorf("row %d: bad end time: %w", i+1, err)
		}
		task := row.Cells[3].Value

		item := items[i]
		if string(item.RecType) != recType {
			return fmt.Errorf("item %d is %s, expected %s", i+1, item.RecType, recType)
		}
		if math.Abs(item.StartTime-start) > timeEpsilon || math.Abs(item.EndTime-end) > timeEpsilon {
			return fmt.Errorf("item %d spans [%g, %g], expected [%g, %g]",
				i+1, item.StartTime, item.EndTime, start, end)
		}
		switch {
		case task == "-" && item.Order != nil:
			return fmt.Errorf("item %d belongs to order %q, expected none", i+1, item.Order.Name)
		case task != "-" && item.Order == nil:
			return fmt.Errorf("item %d belongs to no order, expected %q", i+1, task)
		case task != "-" && item.Order.Name != task:
			return fmt.Errorf("item %d belongs to order %q, expected %q", i+1, item.Order.Name, task)
		}
	}
	return nil
}
