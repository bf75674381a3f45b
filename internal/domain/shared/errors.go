package shared

import "fmt"

// DomainError is the base error type for all domain errors
type DomainError struct {
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func NewDomainError(message string) *DomainError {
	return &DomainError{Message: message}
}

// Schedule-related errors

// InfeasibleAssignmentError reports a violated insertion precondition:
// temporal conflict, geometry mismatch, or battery exhaustion. Agents report
// it to the order side as a failed planning response, never as a crash.
type InfeasibleAssignmentError struct {
	*DomainError
	Reason string
}

func NewInfeasibleAssignmentError(reason string) *InfeasibleAssignmentError {
	return &InfeasibleAssignmentError{
		DomainError: &DomainError{Message: fmt.Sprintf("infeasible assignment: %s", reason)},
		Reason:      reason,
	}
}

// AmbiguousPointQueryError is returned when a position query falls inside an
// active movement segment, where the courier position is not a schedule point.
type AmbiguousPointQueryError struct {
	*DomainError
	Time float64
}

func NewAmbiguousPointQueryError(t float64) *AmbiguousPointQueryError {
	return &AmbiguousPointQueryError{
		DomainError: &DomainError{Message: fmt.Sprintf("position query at %g falls inside an active schedule item", t)},
		Time:        t,
	}
}

// Simulation lifecycle errors

// ClockMonotonicityError is fatal: simulation time moved backwards.
type ClockMonotonicityError struct {
	*DomainError
	Current   float64
	Requested float64
}

func NewClockMonotonicityError(current, requested float64) *ClockMonotonicityError {
	return &ClockMonotonicityError{
		DomainError: &DomainError{Message: fmt.Sprintf("clock moved backwards: %g -> %g", current, requested)},
		Current:     current,
		Requested:   requested,
	}
}

// UnknownEntityTypeError reports a script event naming an entity type with no
// registered agent class. The event is logged and skipped.
type UnknownEntityTypeError struct {
	*DomainError
	EntityType string
}

func NewUnknownEntityTypeError(entityType string) *UnknownEntityTypeError {
	return &UnknownEntityTypeError{
		DomainError: &DomainError{Message: fmt.Sprintf("no agent registered for entity type %q", entityType)},
		EntityType:  entityType,
	}
}

// Messaging errors

// StaleMessageError marks a message addressed to a deleted entity or arriving
// in an outdated negotiation phase. Logged at debug level and dropped.
type StaleMessageError struct {
	*DomainError
}

func NewStaleMessageError(message string) *StaleMessageError {
	return &StaleMessageError{DomainError: &DomainError{Message: "stale message: " + message}}
}

// MalformedMessageError marks a payload that does not conform to the message
// type. Logged at error level and dropped; the agent stays alive.
type MalformedMessageError struct {
	*DomainError
}

func NewMalformedMessageError(message string) *MalformedMessageError {
	return &MalformedMessageError{DomainError: &DomainError{Message: "malformed message: " + message}}
}

// Validation error

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
