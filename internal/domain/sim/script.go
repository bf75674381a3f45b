package sim

import (
	"sort"

	"github.com/andrescamacho/lastmile-go/internal/domain/courier"
	"github.com/andrescamacho/lastmile-go/internal/domain/order"
)

// EventKind classifies a scripted simulation event.
type EventKind string

const (
	EventNewOrder      EventKind = "NewOrder"
	EventNewCourier    EventKind = "NewCourier"
	EventRemoveOrder   EventKind = "RemoveOrder"
	EventRemoveCourier EventKind = "RemoveCourier"
)

// Event is one scripted entity appearance or disappearance.
type Event struct {
	Time    float64
	Kind    EventKind
	Order   *order.Record
	Courier *courier.Record
}

// Script is the time-sorted event timeline driving a simulation run.
type Script struct {
	events []Event
}

// NewScript creates an empty script.
func NewScript() *Script {
	return &Script{}
}

// Add appends an event, keeping the timeline sorted by time.
func (s *Script) Add(ev Event) {
	s.events = append(s.events, ev)
	sort.SliceStable(s.events, func(i, j int) bool {
		return s.events[i].Time < s.events[j].Time
	})
}

// LoadOrders schedules an appearance event per record, plus a removal event
// when a disappearance time is set.
func (s *Script) LoadOrders(records []order.Record) {
	for i := range records {
		rec := records[i]
		s.Add(Event{Time: rec.AppearanceTime, Kind: EventNewOrder, Order: &rec})
		if rec.DisappearanceTime != nil {
			s.Add(Event{Time: *rec.DisappearanceTime, Kind: EventRemoveOrder, Order: &rec})
		}
	}
}

// LoadCouriers schedules an appearance event per record, plus a removal event
// when a disappearance time is set.
func (s *Script) LoadCouriers(records []courier.Record) {
	for i := range records {
		rec := records[i]
		s.Add(Event{Time: rec.AppearanceTime, Kind: EventNewCourier, Courier: &rec})
		if rec.DisappearanceTime != nil {
			s.Add(Event{Time: *rec.DisappearanceTime, Kind: EventRemoveCourier, Courier: &rec})
		}
	}
}

// EventsIn returns events with time in [start, end).
func (s *Script) EventsIn(start, end float64) []Event {
	var result []Event
	for _, ev := range s.events {
		if start <= ev.Time && ev.Time < end {
			result = append(result, ev)
		}
	}
	return result
}

// Len returns the number of scripted events.
func (s *Script) Len() int { return len(s.events) }

// LastEventTime returns the time of the final scripted event, or 0 for an
// empty script.
func (s *Script) LastEventTime() float64 {
	if len(s.events) == 0 {
		return 0
	}
	return s.events[len(s.events)-1].Time
}
