// Package sim holds the simulation scene and the scripted event timeline.
package sim

import (
	"sync"

	"github.com/andrescamacho/lastmile-go/internal/domain/shared"
)

// Entity is anything the scene can register: orders and couriers.
type Entity interface {
	Type() string
	EntityName() string
	URI() string
	IsDeleting() bool
	MarkDeleting()
}

// Scene owns the entity registry and the simulation clock. Registry access is
// serialized: agents read it during price-request broadcasts while the
// dispatcher mutates it on lifecycle events.
type Scene struct {
	Clock *shared.SimClock

	mu       sync.RWMutex
	entities map[string][]Entity
}

// NewScene creates an empty scene with a fresh clock.
func NewScene() *Scene {
	return &Scene{
		Clock:    shared.NewSimClock(),
		entities: make(map[string][]Entity),
	}
}

// Add registers an entity under its type tag.
func (s *Scene) Add(e Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities[e.Type()] = append(s.entities[e.Type()], e)
}

// Remove unregisters the entity.
func (s *Scene) Remove(e Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.entities[e.Type()]
	for i, cand := range list {
		if cand == e {
			s.entities[e.Type()] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// EntitiesByType returns registered entities of the given type, skipping any
// that are mid-deletion.
func (s *Scene) EntitiesByType(entityType string) []Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []Entity
	for _, e := range s.entities[entityType] {
		if !e.IsDeleting() {
			result = append(result, e)
		}
	}
	return result
}

// FindByName locates a live entity by type and display name.
func (s *Scene) FindByName(entityType, name string) Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entities[entityType] {
		if !e.IsDeleting() && e.EntityName() == name {
			return e
		}
	}
	return nil
}
