// Package messaging is the local agent substrate: typed messages, uuid
// addresses and one serialized FIFO mailbox per agent.
package messaging

import "github.com/google/uuid"

// Address uniquely identifies an agent mailbox.
type Address string

// NewAddress generates a fresh mailbox address.
func NewAddress() Address {
	return Address(uuid.New().String())
}

// Type classifies a message.
type Type string

const (
	MsgInit             Type = "INIT"
	MsgPriceRequest     Type = "PRICE_REQUEST"
	MsgPriceResponse    Type = "PRICE_RESPONSE"
	MsgPlanningRequest  Type = "PLANNING_REQUEST"
	MsgPlanningResponse Type = "PLANNING_RESPONSE"
	MsgRemoveOrder      Type = "REMOVE_ORDER"
	MsgNewCourier       Type = "NEW_COURIER"
	MsgDeletedCourier   Type = "DELETED_COURIER"
	MsgTick             Type = "TICK"
	// MsgExit tears the receiving agent down after it finishes the handler.
	MsgExit Type = "EXIT"
)

// Message is one unit of agent communication.
type Message struct {
	Type   Type
	Body   any
	Sender Address
}
