// Package agents implements the negotiating agent population: one agent per
// order and per courier, exchanging price and planning messages over the
// messaging substrate.
package agents

import (
	"fmt"

	"github.com/andrescamacho/lastmile-go/internal/application/common"
	"github.com/andrescamacho/lastmile-go/internal/application/messaging"
	"github.com/andrescamacho/lastmile-go/internal/domain/courier"
	"github.com/andrescamacho/lastmile-go/internal/domain/negotiation"
	"github.com/andrescamacho/lastmile-go/internal/domain/shared"
	"github.com/andrescamacho/lastmile-go/internal/domain/sim"
)

// InitPayload carries the wiring an agent needs before it can negotiate.
type InitPayload struct {
	Scene      *sim.Scene
	Dispatcher *Dispatcher
	Entity     sim.Entity
}

// PlanningResult is the body of a PLANNING_RESPONSE.
type PlanningResult struct {
	Variant *negotiation.Variant
	Success bool
}

// handlerFunc processes one typed message inside the agent goroutine.
type handlerFunc func(msg messaging.Message)

// base carries the plumbing shared by courier and order agents: subscription
// table, substrate access and init handling. All fields are confined to the
// agent's own goroutine after init.
type base struct {
	name    string
	addr    messaging.Address
	runtime *messaging.Runtime
	logger  common.RunLogger

	scene      *sim.Scene
	dispatcher *Dispatcher
	entity     sim.Entity

	handlers map[messaging.Type]handlerFunc
	onInit   func(payload InitPayload)
	onExit   func()
}

func newBase(name string, runtime *messaging.Runtime, logger common.RunLogger) *base {
	if logger == nil {
		logger = common.NoOpLogger()
	}
	return &base{
		name:     name,
		runtime:  runtime,
		logger:   logger,
		handlers: make(map[messaging.Type]handlerFunc),
	}
}

// SetAddress implements messaging.AddressAware.
func (b *base) SetAddress(addr messaging.Address) {
	b.addr = addr
}

func (b *base) subscribe(msgType messaging.Type, handler handlerFunc) {
	if _, exists := b.handlers[msgType]; exists {
		b.logger.Log(common.LevelWarn, "duplicate message subscription", map[string]any{
			"agent": b.name, "message_type": string(msgType),
		})
	}
	b.handlers[msgType] = handler
}

func (b *base) send(to messaging.Address, msgType messaging.Type, body any) {
	b.runtime.Send(to, messaging.Message{Type: msgType, Body: body, Sender: b.addr})
}

// HandleMessage dispatches to the subscribed handler. Unknown types are
// logged and dropped; the substrate already isolates panics.
func (b *base) HandleMessage(msg messaging.Message) {
	switch msg.Type {
	case messaging.MsgInit:
		payload, ok := msg.Body.(InitPayload)
		if !ok {
			err := shared.NewMalformedMessageError("init payload has unexpected body type")
			b.logger.Log(common.LevelError, "malformed init payload", map[string]any{
				"agent": b.name, "error": err.Error(),
			})
			return
		}
		b.handleInit(payload)
	case messaging.MsgExit:
		if b.entity != nil {
			b.entity.MarkDeleting()
		}
		if b.onExit != nil {
			b.onExit()
		}
	default:
		handler, ok := b.handlers[msg.Type]
		if !ok {
			b.logger.Log(common.LevelWarn, "no subscription for message", map[string]any{
				"agent": b.name, "message_type": string(msg.Type),
			})
			return
		}
		handler(msg)
	}
}

func (b *base) handleInit(payload InitPayload) {
	b.scene = payload.Scene
	b.dispatcher = payload.Dispatcher
	b.entity = payload.Entity
	b.name = fmt.Sprintf("%s %s", b.name, payload.Entity.EntityName())
	b.logger.Log(common.LevelInfo, "agent initialized", map[string]any{"agent": b.name})
	if b.onInit != nil {
		b.onInit(payload)
	}
}

// now returns the current simulation time snapshot.
func (b *base) now() float64 {
	return b.scene.Clock.Now()
}

// courierAddress resolves a courier entity to its agent address.
func (b *base) courierAddress(c *courier.Courier) (messaging.Address, bool) {
	return b.dispatcher.Book().Address(c.URI())
}
