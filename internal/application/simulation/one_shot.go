package simulation

import (
	"context"
	"time"

	"github.com/andrescamacho/lastmile-go/internal/application/agents"
	"github.com/andrescamacho/lastmile-go/internal/application/common"
	"github.com/andrescamacho/lastmile-go/internal/application/messaging"
	"github.com/andrescamacho/lastmile-go/internal/domain/negotiation"
	"github.com/andrescamacho/lastmile-go/internal/domain/sim"
)

// RunOneShot skips the tick loop: every scripted appearance happens at t=0
// and the negotiation settles once. Useful for static scenarios where entity
// timing does not matter.
func RunOneShot(ctx context.Context, script *sim.Script, weights negotiation.ScoringWeights) (*RunSimulationResponse, error) {
	if weights == (negotiation.ScoringWeights{}) {
		weights = negotiation.DefaultScoringWeights()
	}
	logger := common.LoggerFromContext(ctx)
	scene := sim.NewScene()
	runtime := messaging.NewRuntime(scene.Clock, logger)
	dispatcher := agents.NewDispatcher(runtime, scene, weights, logger)
	defer runtime.Shutdown()

	handler := NewRunSimulationHandler()
	for _, ev := range script.EventsIn(0, script.LastEventTime()+1) {
		if ev.Kind == sim.EventNewCourier || ev.Kind == sim.EventNewOrder {
			handler.applyEvent(dispatcher, ev, logger)
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := runtime.WaitQuiesce(waitCtx); err != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}

	return &RunSimulationResponse{
		Records:  CollectScheduleRecords(scene),
		Time:     scene.Clock.Now(),
		Ticks:    1,
		Messages: scene.Clock.Messages(),
	}, nil
}
