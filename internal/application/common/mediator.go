package common

import (
	"context"
	"fmt"
	"reflect"
)

// Request is a simulation command or query routed through the mediator.
type Request interface{}

// Response is whatever a handler produces for its request.
type Response interface{}

// RequestHandler executes exactly one request type.
type RequestHandler interface {
	Handle(ctx context.Context, request Request) (Response, error)
}

// Mediator maps concrete request types to their handlers so the CLI and
// tests can drive simulation use cases without importing them directly.
type Mediator struct {
	handlers map[reflect.Type]RequestHandler
}

// NewMediator creates a mediator with no handlers bound.
func NewMediator() *Mediator {
	return &Mediator{handlers: make(map[reflect.Type]RequestHandler)}
}

// Register binds handler to requestType. Each type can be bound once.
func (m *Mediator) Register(requestType reflect.Type, handler RequestHandler) error {
	if requestType == nil {
		return fmt.Errorf("request type cannot be nil")
	}
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}
	if _, taken := m.handlers[requestType]; taken {
		return fmt.Errorf("request type %s already has a handler", requestType)
	}
	m.handlers[requestType] = handler
	return nil
}

// Send routes request to the handler bound to its concrete type.
func (m *Mediator) Send(ctx context.Context, request Request) (Response, error) {
	if request == nil {
		return nil, fmt.Errorf("request cannot be nil")
	}
	requestType := reflect.TypeOf(request)
	handler, ok := m.handlers[requestType]
	if !ok {
		return nil, fmt.Errorf("no handler bound for request type %s", requestType)
	}
	return handler.Handle(ctx, request)
}

// RegisterHandler binds handler to the request type T, sparing call sites the
// reflect plumbing.
func RegisterHandler[T Request](m *Mediator, handler RequestHandler) error {
	var zero T
	return m.Register(reflect.TypeOf(zero), handler)
}
