package agents

import (
	"math/rand"

	"github.com/andrescamacho/lastmile-go/internal/application/common"
	"github.com/andrescamacho/lastmile-go/internal/application/messaging"
	"github.com/andrescamacho/lastmile-go/internal/domain/courier"
	"github.com/andrescamacho/lastmile-go/internal/domain/negotiation"
	"github.com/andrescamacho/lastmile-go/internal/domain/order"
	"github.com/andrescamacho/lastmile-go/internal/domain/shared"
	"github.com/andrescamacho/lastmile-go/internal/domain/sim"
)

// Dispatcher creates and destroys agents for scene entities and broadcasts
// the tick signal. It owns the reference book.
type Dispatcher struct {
	runtime *messaging.Runtime
	scene   *sim.Scene
	book    *ReferenceBook
	logger  common.RunLogger
	weights negotiation.ScoringWeights
}

// NewDispatcher wires a dispatcher to the scene and substrate.
func NewDispatcher(runtime *messaging.Runtime, scene *sim.Scene, weights negotiation.ScoringWeights, logger common.RunLogger) *Dispatcher {
	if logger == nil {
		logger = common.NoOpLogger()
	}
	return &Dispatcher{
		runtime: runtime,
		scene:   scene,
		book:    NewReferenceBook(),
		logger:  logger,
		weights: weights,
	}
}

// Book exposes the entity-to-address map.
func (d *Dispatcher) Book() *ReferenceBook { return d.book }

// AddEntity registers the entity on the scene, spawns the matching agent
// class and sends it the init message.
func (d *Dispatcher) AddEntity(entity sim.Entity) error {
	var handler messaging.Handler
	switch e := entity.(type) {
	case *courier.Courier:
		handler = NewCourierAgent(e, d.runtime, d.logger)
	case *order.Order:
		handler = NewOrderAgent(e, d.runtime, d.weights, d.logger)
	default:
		err := shared.NewUnknownEntityTypeError(entity.Type())
		d.logger.Log(common.LevelWarn, "skipping entity without agent class", map[string]any{
			"entity_type": entity.Type(), "entity": entity.EntityName(),
		})
		return err
	}

	d.scene.Add(entity)
	addr := d.runtime.Spawn(handler)
	d.book.Add(entity.URI(), addr)
	d.runtime.Send(addr, messaging.Message{
		Type: messaging.MsgInit,
		Body: InitPayload{Scene: d.scene, Dispatcher: d, Entity: entity},
	})
	return nil
}

// RemoveEntity locates a live entity by type and name, signals its agent to
// exit and unregisters the entity. The agent finishes teardown (deletion
// flag, farewell broadcasts) inside its own exit handler.
func (d *Dispatcher) RemoveEntity(entityType, name string) bool {
	entity := d.scene.FindByName(entityType, name)
	if entity == nil {
		return false
	}
	addr, ok := d.book.Address(entity.URI())
	if !ok {
		d.logger.Log(common.LevelError, "entity has no registered agent", map[string]any{
			"entity": entity.EntityName(),
		})
		return false
	}
	d.runtime.Send(addr, messaging.Message{Type: messaging.MsgExit})
	d.scene.Remove(entity)
	d.book.Remove(entity.URI())
	return true
}

// TickAgents broadcasts the tick signal to every agent. The order is
// shuffled each tick to avoid systematically favoring early registrants.
func (d *Dispatcher) TickAgents() {
	addrs := d.book.Addresses()
	rand.Shuffle(len(addrs), func(i, j int) {
		addrs[i], addrs[j] = addrs[j], addrs[i]
	})
	for _, addr := range addrs {
		d.runtime.Send(addr, messaging.Message{Type: messaging.MsgTick})
	}
}
