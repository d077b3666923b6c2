package bridge

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gadenbuie/countdown/internal/clock"
	"github.com/gadenbuie/countdown/internal/countdown"
)

var epoch = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

type fakeHost struct {
	mu       sync.Mutex
	ready    bool
	fail     error
	attempts int
	got      []HostEvent
}

func (h *fakeHost) Send(ev HostEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.attempts++
	if !h.ready {
		return ErrNotReady
	}
	if h.fail != nil {
		return h.fail
	}
	h.got = append(h.got, ev)
	return nil
}

func (h *fakeHost) setReady(v bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ready = v
}

func (h *fakeHost) actions() []countdown.Action {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]countdown.Action, 0, len(h.got))
	for _, ev := range h.got {
		out = append(out, ev.Event.Action)
	}
	return out
}

func event(id string, a countdown.Action) countdown.Event {
	return countdown.Event{TimerID: id, Action: a, Time: epoch}
}

func TestOutboxDeliversWhenReady(t *testing.T) {
	host := &fakeHost{ready: true}
	fake := clock.NewFake(epoch)
	o := NewOutbox(host, WithOutboxClock(fake))
	defer o.Close()

	o.Deliver(event("a", countdown.ActionStart))
	o.Deliver(event("a", countdown.ActionStop))

	assert.Equal(t, []countdown.Action{countdown.ActionStart, countdown.ActionStop}, host.actions())
	assert.Equal(t, 0, o.Pending())
	assert.Equal(t, 0, fake.Pending())
	assert.Equal(t, "a", host.got[0].ID)
}

func TestOutboxRetriesEvery100ms(t *testing.T) {
	host := &fakeHost{}
	fake := clock.NewFake(epoch)
	o := NewOutbox(host, WithOutboxClock(fake))
	defer o.Close()

	o.Deliver(event("a", countdown.ActionStart))
	o.Deliver(event("a", countdown.ActionWarning))
	assert.Equal(t, 2, o.Pending())
	assert.Equal(t, 1, host.attempts)

	fake.Advance(99 * time.Millisecond)
	assert.Equal(t, 1, host.attempts)
	fake.Advance(time.Millisecond)
	assert.Equal(t, 2, host.attempts)

	fake.Advance(time.Second)
	assert.Equal(t, 12, host.attempts)
	assert.Empty(t, host.actions())

	host.setReady(true)
	fake.Advance(100 * time.Millisecond)
	assert.Equal(t, []countdown.Action{countdown.ActionStart, countdown.ActionWarning}, host.actions())
	assert.Equal(t, 0, o.Pending())
	assert.Equal(t, 0, fake.Pending())
}

func TestOutboxCloseCancelsRetry(t *testing.T) {
	host := &fakeHost{}
	fake := clock.NewFake(epoch)
	o := NewOutbox(host, WithOutboxClock(fake))

	o.Deliver(event("a", countdown.ActionStart))
	require.Equal(t, 1, fake.Pending())

	o.Close()
	assert.Equal(t, 0, fake.Pending())
	assert.Equal(t, 0, o.Pending())

	o.Deliver(event("a", countdown.ActionStop))
	assert.Equal(t, 0, o.Pending())
	assert.Equal(t, 1, host.attempts)
}

func TestOutboxDropsOldestWhenFull(t *testing.T) {
	host := &fakeHost{}
	fake := clock.NewFake(epoch)
	o := NewOutbox(host, WithOutboxClock(fake), WithMaxPending(2))
	defer o.Close()

	o.Deliver(event("a", countdown.ActionStart))
	o.Deliver(event("a", countdown.ActionBumpUp))
	o.Deliver(event("a", countdown.ActionFinished))
	assert.Equal(t, 2, o.Pending())
	assert.Equal(t, 1, o.Dropped())

	host.setReady(true)
	fake.Advance(100 * time.Millisecond)
	assert.Equal(t, []countdown.Action{countdown.ActionBumpUp, countdown.ActionFinished}, host.actions())
}

func TestOutboxDropsFailedEvent(t *testing.T) {
	host := &fakeHost{ready: true, fail: errors.New("broken pipe")}
	fake := clock.NewFake(epoch)
	o := NewOutbox(host, WithOutboxClock(fake))
	defer o.Close()

	o.Deliver(event("a", countdown.ActionStart))
	assert.Equal(t, 0, o.Pending())
	assert.Equal(t, 0, fake.Pending())
}

func TestOutboxAsEngineBridge(t *testing.T) {
	host := &fakeHost{}
	fake := clock.NewFake(epoch)
	o := NewOutbox(host, WithOutboxClock(fake))
	defer o.Close()

	e := countdown.New("slide_timer", countdown.NewConfig(0, 30),
		countdown.WithClock(fake), countdown.WithHostBridge(o))
	defer e.Close()

	e.Start()
	host.setReady(true)
	fake.Advance(100 * time.Millisecond)

	require.Equal(t, []countdown.Action{countdown.ActionStart}, host.actions())
	got := host.got[0]
	assert.Equal(t, "slide_timer", got.ID)
	assert.True(t, got.Timer.IsRunning)
	assert.Equal(t, 30, got.Timer.Remaining.Seconds)
}
