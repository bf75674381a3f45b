package agents

import (
	"sync"

	"github.com/andrescamacho/lastmile-go/internal/application/messaging"
)

// ReferenceBook maps entity identities (URIs) to agent mailbox addresses. It
// is the only cross-agent lookup structure besides the scene registry, so
// reads and lifecycle writes are serialized here.
type ReferenceBook struct {
	mu        sync.RWMutex
	addresses map[string]messaging.Address
}

// NewReferenceBook creates an empty reference book.
func NewReferenceBook() *ReferenceBook {
	return &ReferenceBook{addresses: make(map[string]messaging.Address)}
}

// Add registers the agent address of an entity.
func (r *ReferenceBook) Add(entityURI string, addr messaging.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addresses[entityURI] = addr
}

// Address returns the agent address of an entity.
func (r *ReferenceBook) Address(entityURI string) (messaging.Address, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	addr, ok := r.addresses[entityURI]
	return addr, ok
}

// Remove drops the entity from the book.
func (r *ReferenceBook) Remove(entityURI string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.addresses, entityURI)
}

// Addresses returns a snapshot of all registered agent addresses.
func (r *ReferenceBook) Addresses() []messaging.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]messaging.Address, 0, len(r.addresses))
	for _, addr := range r.addresses {
		result = append(result, addr)
	}
	return result
}
