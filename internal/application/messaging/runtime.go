package messaging

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/andrescamacho/lastmile-go/internal/application/common"
	"github.com/andrescamacho/lastmile-go/internal/domain/shared"
)

// Handler processes the messages of one agent. The runtime guarantees the
// no-reentrancy invariant: HandleMessage is never called concurrently for the
// same handler, so agents may treat their state as single-threaded.
type Handler interface {
	HandleMessage(msg Message)
}

// AddressAware handlers are told their own mailbox address before their
// goroutine starts, so replies can carry a valid sender.
type AddressAware interface {
	SetAddress(addr Address)
}

// mailbox is an unbounded FIFO queue feeding one agent goroutine. Unbounded
// so that Send never blocks a handler: request/reply cycles between agents
// must not deadlock the substrate.
type mailbox struct {
	mu     sync.Mutex
	queue  []Message
	notify chan struct{}
	closed bool
}

func newMailbox() *mailbox {
	return &mailbox{notify: make(chan struct{}, 1)}
}

func (b *mailbox) push(msg Message) bool {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return false
	}
	b.queue = append(b.queue, msg)
	b.mu.Unlock()
	select {
	case b.notify <- struct{}{}:
	default:
	}
	return true
}

func (b *mailbox) pop() (Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.queue) == 0 {
		return Message{}, false
	}
	msg := b.queue[0]
	b.queue = b.queue[1:]
	return msg, true
}

func (b *mailbox) close() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	dropped := len(b.queue)
	b.queue = nil
	return dropped
}

// Runtime owns all mailboxes of a simulation run. Messages are FIFO per
// sender-receiver pair; cross-pair ordering is not guaranteed.
type Runtime struct {
	clock  *shared.SimClock
	logger common.RunLogger

	mu    sync.RWMutex
	boxes map[Address]*mailbox

	pending atomic.Int64
	group   errgroup.Group
}

// NewRuntime creates a runtime counting sends on the given clock.
func NewRuntime(clock *shared.SimClock, logger common.RunLogger) *Runtime {
	if logger == nil {
		logger = common.NoOpLogger()
	}
	return &Runtime{
		clock:  clock,
		logger: logger,
		boxes:  make(map[Address]*mailbox),
	}
}

// Spawn registers a handler under a fresh address and starts its goroutine.
// The goroutine exits after the handler processes a MsgExit.
func (r *Runtime) Spawn(handler Handler) Address {
	addr := NewAddress()
	box := newMailbox()
	if aware, ok := handler.(AddressAware); ok {
		aware.SetAddress(addr)
	}

	r.mu.Lock()
	r.boxes[addr] = box
	r.mu.Unlock()

	r.group.Go(func() error {
		r.serve(addr, box, handler)
		return nil
	})
	return addr
}

func (r *Runtime) serve(addr Address, box *mailbox, handler Handler) {
	for {
		msg, ok := box.pop()
		if !ok {
			<-box.notify
			continue
		}
		r.dispatch(handler, msg)
		r.pending.Add(-1)
		if msg.Type == MsgExit {
			r.mu.Lock()
			delete(r.boxes, addr)
			r.mu.Unlock()
			dropped := box.close()
			r.pending.Add(int64(-dropped))
			return
		}
	}
}

// dispatch isolates handler panics: a broken handler must not take the
// substrate down.
func (r *Runtime) dispatch(handler Handler, msg Message) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Log(common.LevelError, "agent handler panicked", map[string]any{
				"message_type": string(msg.Type),
				"panic":        fmt.Sprint(rec),
			})
		}
	}()
	handler.HandleMessage(msg)
}

// Send enqueues a message. Delivery to a torn-down address is reported as a
// dropped stale message, not an error.
func (r *Runtime) Send(to Address, msg Message) {
	if r.clock != nil {
		r.clock.CountMessage()
	}
	r.mu.RLock()
	box, ok := r.boxes[to]
	r.mu.RUnlock()
	if !ok {
		r.logger.Log(common.LevelDebug, "dropped message for unknown address", map[string]any{
			"to":           string(to),
			"message_type": string(msg.Type),
		})
		return
	}
	r.pending.Add(1)
	if !box.push(msg) {
		r.pending.Add(-1)
	}
}

// Pending returns the number of messages queued or being handled.
func (r *Runtime) Pending() int64 {
	return r.pending.Load()
}

// WaitQuiesce blocks until no message is queued or in flight, or the context
// expires. Because agents send follow-up messages before their own message is
// counted as done, a zero reading means the substrate is truly drained.
func (r *Runtime) WaitQuiesce(ctx context.Context) error {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		if r.pending.Load() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Shutdown sends every live agent an exit signal and waits for all agent
// goroutines to finish.
func (r *Runtime) Shutdown() {
	r.mu.RLock()
	addrs := make([]Address, 0, len(r.boxes))
	for addr := range r.boxes {
		addrs = append(addrs, addr)
	}
	r.mu.RUnlock()

	for _, addr := range addrs {
		r.Send(addr, Message{Type: MsgExit})
	}
	_ = r.group.Wait()
}
