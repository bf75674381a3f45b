// Package simulation exposes the tick-driven simulator loop as an
// application command.
package simulation

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/andrescamacho/lastmile-go/internal/application/agents"
	"github.com/andrescamacho/lastmile-go/internal/application/common"
	"github.com/andrescamacho/lastmile-go/internal/application/messaging"
	"github.com/andrescamacho/lastmile-go/internal/domain/courier"
	"github.com/andrescamacho/lastmile-go/internal/domain/negotiation"
	"github.com/andrescamacho/lastmile-go/internal/domain/order"
	"github.com/andrescamacho/lastmile-go/internal/domain/sim"
)

// TickStats is handed to the tick callback after every simulation step.
type TickStats struct {
	Time        float64
	TickCounter int
	TickSize    float64
}

// RunSimulationCommand runs a scripted scenario to completion.
type RunSimulationCommand struct {
	Script   *sim.Script
	TickSize float64
	TimeStop float64
	// Weights defaults to the reference scoring weights when zero.
	Weights negotiation.ScoringWeights
	// Callback, when set, is invoked after every tick.
	Callback func(TickStats)
	// Pace throttles the loop to real time (one tick per TickSize seconds).
	// Batch runs leave it off.
	Pace bool
	// QuiesceTimeout bounds the per-tick wait for the substrate to drain.
	QuiesceTimeout time.Duration
}

// RunSimulationResponse carries the final schedules and run statistics.
type RunSimulationResponse struct {
	Records  []courier.ScheduleRecord
	Time     float64
	Ticks    int
	Messages int64
}

// RunSimulationHandler owns one simulation run: scene, substrate, dispatcher
// and the tick loop.
type RunSimulationHandler struct{}

// NewRunSimulationHandler creates the handler.
func NewRunSimulationHandler() *RunSimulationHandler {
	return &RunSimulationHandler{}
}

// Handle executes the command. Control flow per tick: collect scripted
// events, advance the clock, apply entity lifecycle events through the
// dispatcher, broadcast the tick and wait for the substrate to quiesce.
func (h *RunSimulationHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	cmd, ok := request.(*RunSimulationCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type %T", request)
	}
	if cmd.Script == nil {
		return nil, fmt.Errorf("simulation requires a script")
	}
	tickSize := cmd.TickSize
	if tickSize <= 0 {
		tickSize = 0.5
	}
	quiesceTimeout := cmd.QuiesceTimeout
	if quiesceTimeout <= 0 {
		quiesceTimeout = 5 * time.Second
	}
	weights := cmd.Weights
	if weights == (negotiation.ScoringWeights{}) {
		weights = negotiation.DefaultScoringWeights()
	}

	logger := common.LoggerFromContext(ctx)
	scene := sim.NewScene()
	runtime := messaging.NewRuntime(scene.Clock, logger)
	dispatcher := agents.NewDispatcher(runtime, scene, weights, logger)
	defer runtime.Shutdown()

	var limiter *rate.Limiter
	if cmd.Pace {
		limiter = rate.NewLimiter(rate.Limit(1/tickSize), 1)
	}

	ticks := 0
	for scene.Clock.Now() <= cmd.TimeStop {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		now := scene.Clock.Now()
		events := cmd.Script.EventsIn(now, now+tickSize)
		if _, err := scene.Clock.Advance(tickSize); err != nil {
			return nil, err
		}

		for _, ev := range events {
			h.applyEvent(dispatcher, ev, logger)
		}
		dispatcher.TickAgents()

		waitCtx, cancel := context.WithTimeout(ctx, quiesceTimeout)
		err := runtime.WaitQuiesce(waitCtx)
		cancel()
		if err != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if cmd.Callback != nil {
			cmd.Callback(TickStats{Time: scene.Clock.Now(), TickCounter: ticks, TickSize: tickSize})
		}
		ticks++
	}

	records := CollectScheduleRecords(scene)
	return &RunSimulationResponse{
		Records:  records,
		Time:     scene.Clock.Now(),
		Ticks:    ticks,
		Messages: scene.Clock.Messages(),
	}, nil
}

func (h *RunSimulationHandler) applyEvent(dispatcher *agents.Dispatcher, ev sim.Event, logger common.RunLogger) {
	switch ev.Kind {
	case sim.EventNewCourier:
		c, err := courier.NewCourier(*ev.Courier)
		if err != nil {
			logger.Log(common.LevelError, "skipping invalid courier record", map[string]any{"error": err.Error()})
			return
		}
		_ = dispatcher.AddEntity(c)
	case sim.EventNewOrder:
		o, err := order.NewOrder(*ev.Order)
		if err != nil {
			logger.Log(common.LevelError, "skipping invalid order record", map[string]any{"error": err.Error()})
			return
		}
		_ = dispatcher.AddEntity(o)
	case sim.EventRemoveOrder:
		dispatcher.RemoveEntity(order.EntityType, ev.Order.Name)
	case sim.EventRemoveCourier:
		dispatcher.RemoveEntity(courier.EntityType, ev.Courier.Name)
	default:
		logger.Log(common.LevelError, "unknown script event", map[string]any{"kind": string(ev.Kind)})
	}
}

// CollectScheduleRecords exports the final schedule of every live courier.
func CollectScheduleRecords(scene *sim.Scene) []courier.ScheduleRecord {
	var records []courier.ScheduleRecord
	for _, e := range scene.EntitiesByType(courier.EntityType) {
		if c, ok := e.(*courier.Courier); ok {
			records = append(records, c.Schedule.ExportRecords()...)
		}
	}
	return records
}
