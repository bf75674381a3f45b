package messaging

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/lastmile-go/internal/domain/shared"
)

// recorder collects every delivered message.
type recorder struct {
	mu   sync.Mutex
	addr Address
	msgs []Message
}

func (r *recorder) SetAddress(addr Address) { r.addr = addr }

func (r *recorder) HandleMessage(msg Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recorder) received() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.msgs...)
}

func quiesce(t *testing.T, r *Runtime) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, r.WaitQuiesce(ctx))
}

func TestSendDeliversInFIFOOrder(t *testing.T) {
	runtime := NewRuntime(shared.NewSimClock(), nil)
	defer runtime.Shutdown()

	rec := &recorder{}
	addr := runtime.Spawn(rec)
	assert.Equal(t, addr, rec.addr, "address is set before the goroutine starts")

	runtime.Send(addr, Message{Type: MsgTick, Body: 1})
	runtime.Send(addr, Message{Type: MsgTick, Body: 2})
	runtime.Send(addr, Message{Type: MsgTick, Body: 3})
	quiesce(t, runtime)

	msgs := rec.received()
	require.Len(t, msgs, 3)
	assert.Equal(t, 1, msgs[0].Body)
	assert.Equal(t, 2, msgs[1].Body)
	assert.Equal(t, 3, msgs[2].Body)
}

func TestSendToUnknownAddressIsDropped(t *testing.T) {
	runtime := NewRuntime(shared.NewSimClock(), nil)
	defer runtime.Shutdown()

	runtime.Send(NewAddress(), Message{Type: MsgTick})

	assert.Equal(t, int64(0), runtime.Pending())
}

func TestSendsAreCountedOnTheClock(t *testing.T) {
	clock := shared.NewSimClock()
	runtime := NewRuntime(clock, nil)
	defer runtime.Shutdown()

	addr := runtime.Spawn(&recorder{})
	runtime.Send(addr, Message{Type: MsgTick})
	runtime.Send(NewAddress(), Message{Type: MsgTick})
	quiesce(t, runtime)

	// Dropped messages still count as sent.
	assert.Equal(t, int64(2), clock.Messages())
}

func TestExitTearsDownMailbox(t *testing.T) {
	runtime := NewRuntime(shared.NewSimClock(), nil)

	rec := &recorder{}
	addr := runtime.Spawn(rec)
	runtime.Send(addr, Message{Type: MsgExit})
	runtime.Shutdown()

	// The address is gone: later sends are dropped without affecting the
	// pending count.
	runtime.Send(addr, Message{Type: MsgTick})
	assert.Equal(t, int64(0), runtime.Pending())

	msgs := rec.received()
	require.Len(t, msgs, 1)
	assert.Equal(t, MsgExit, msgs[0].Type)
}

type panicky struct {
	rec recorder
}

func (p *panicky) HandleMessage(msg Message) {
	if msg.Type == MsgPriceRequest {
		panic("boom")
	}
	p.rec.HandleMessage(msg)
}

func TestHandlerPanicDoesNotKillAgent(t *testing.T) {
	runtime := NewRuntime(shared.NewSimClock(), nil)
	defer runtime.Shutdown()

	h := &panicky{}
	addr := runtime.Spawn(h)

	runtime.Send(addr, Message{Type: MsgPriceRequest})
	runtime.Send(addr, Message{Type: MsgTick})
	quiesce(t, runtime)

	msgs := h.rec.received()
	require.Len(t, msgs, 1)
	assert.Equal(t, MsgTick, msgs[0].Type)
}

type sleeper struct{}

func (sleeper) HandleMessage(Message) { time.Sleep(200 * time.Millisecond) }

func TestWaitQuiesceHonorsContext(t *testing.T) {
	runtime := NewRuntime(shared.NewSimClock(), nil)
	defer runtime.Shutdown()

	addr := runtime.Spawn(sleeper{})
	runtime.Send(addr, Message{Type: MsgTick})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := runtime.WaitQuiesce(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	quiesce(t, runtime)
}
