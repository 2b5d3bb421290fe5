package input

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grablock/internal/clock"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type passwordVerifier struct {
	password []byte
	calls    int
	last     []byte
}

func (v *passwordVerifier) Verify(candidate []byte) bool {
	v.calls++
	v.last = append([]byte(nil), candidate...)
	return bytes.Equal(candidate, v.password)
}

type recordingFeedback struct {
	states []State
	chars  int
}

func (f *recordingFeedback) OnStateChanged(s State) { f.states = append(f.states, s) }
func (f *recordingFeedback) OnCharEntered()         { f.chars++ }

type recordingExpose struct{ events []Expose }

func (e *recordingExpose) OnExpose(x Expose) { e.events = append(e.events, x) }

func newTestReducer(t *testing.T, capacity int) (*Reducer, *passwordVerifier, *recordingFeedback, *clock.FakeClock) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Capacity = capacity
	clk := clock.Fake(epoch)
	verifier := &passwordVerifier{password: []byte("hunter2")}
	r, err := NewReducer(cfg, verifier, clk)
	require.NoError(t, err)
	t.Cleanup(r.Close)

	fb := &recordingFeedback{}
	r.SetFeedback(fb)
	return r, verifier, fb, clk
}

func typeText(r *Reducer, text string) {
	for _, c := range []byte(text) {
		r.Handle(Press(Keysym(c)))
	}
}

func TestNewReducerValidation(t *testing.T) {
	v := &passwordVerifier{}
	_, err := NewReducer(Config{IdleTimeout: 0, PollInterval: time.Millisecond, Capacity: 1}, v, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = NewReducer(Config{IdleTimeout: time.Second, PollInterval: time.Millisecond, Capacity: 0}, v, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = NewReducer(DefaultConfig(), nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestAnyKeyArmsWithEmptyBuffer(t *testing.T) {
	keys := []Keysym{'a', XKReturn, XKBackSpace, XKEscape, 0xffe1 /* Shift_L */, 0x1000e9}
	for _, k := range keys {
		r, verifier, fb, _ := newTestReducer(t, 8)
		r.Handle(Press(k))

		assert.Equal(t, Armed, r.State(), "key %#x", k)
		assert.Equal(t, 0, r.Len(), "arming key %#x must be discarded", k)
		assert.Equal(t, 0, verifier.calls)
		assert.Equal(t, []State{Armed}, fb.states)
	}
}

func TestKeyReleaseIgnored(t *testing.T) {
	r, _, fb, _ := newTestReducer(t, 8)
	r.Handle(Event{Kind: KeyRelease, Keysym: 'a'})
	assert.Equal(t, Idle, r.State())
	assert.Empty(t, fb.states)
}

func TestExposeForwardedWithoutStateChange(t *testing.T) {
	r, _, fb, _ := newTestReducer(t, 8)
	handler := &recordingExpose{}
	r.SetExposeHandler(handler)

	area := Expose{Screen: 1, X: 10, Y: 20, Width: 30, Height: 40}
	r.Handle(Event{Kind: ExposeEvent, Expose: area})

	assert.Equal(t, Idle, r.State())
	assert.Equal(t, []Expose{area}, handler.events)
	assert.Empty(t, fb.states)
}

func TestCapacityBound(t *testing.T) {
	r, verifier, fb, _ := newTestReducer(t, 4)
	r.Handle(Press('x'))

	typeText(r, "abcd")
	assert.Equal(t, 4, r.Len())
	assert.Equal(t, 4, fb.chars)

	r.Handle(Press('e'))
	assert.Equal(t, 4, r.Len())
	assert.Equal(t, 4, fb.chars, "rejected character must not produce feedback")

	r.Handle(Press(XKReturn))
	assert.Equal(t, []byte("abcd"), verifier.last, "existing content must survive overflow")
}

func TestEraseOnEmptyIsNoop(t *testing.T) {
	r, _, _, _ := newTestReducer(t, 8)
	r.Handle(Press('x'))

	r.Handle(Press(XKBackSpace))
	r.Handle(Press(XKDelete))
	assert.Equal(t, Armed, r.State())
	assert.Equal(t, 0, r.Len())

	typeText(r, "ab")
	r.Handle(Press(XKBackSpace))
	assert.Equal(t, 1, r.Len())
}

func TestClearEmptiesBuffer(t *testing.T) {
	r, verifier, _, _ := newTestReducer(t, 8)
	r.Handle(Press('x'))
	typeText(r, "abc")
	r.Handle(Press(XKEscape))
	assert.Equal(t, 0, r.Len())

	typeText(r, "hunter2")
	r.Handle(Press(XKKPEnter))
	assert.Equal(t, Valid, r.State())
	assert.Equal(t, []byte("hunter2"), verifier.last)
}

func TestSubmitValid(t *testing.T) {
	r, _, fb, _ := newTestReducer(t, 127)
	r.Handle(Press(XKReturn))
	typeText(r, "hunter2")
	r.Handle(Press(XKReturn))

	assert.Equal(t, Valid, r.State())
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, []State{Armed, Checking, Valid}, fb.states)
	assert.Equal(t, 7, fb.chars)

	// Valid is terminal.
	r.Handle(Press('a'))
	r.Tick()
	assert.Equal(t, Valid, r.State())
}

func TestSubmitInvalidReturnsToArmed(t *testing.T) {
	r, verifier, fb, _ := newTestReducer(t, 127)
	r.Handle(Press('a'))
	typeText(r, "wrong")
	r.Handle(Press(XKLinefeed))

	assert.Equal(t, Armed, r.State())
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, []State{Armed, Checking, Invalid, Armed}, fb.states)

	typeText(r, "hunter2")
	r.Handle(Press(XKReturn))
	assert.Equal(t, Valid, r.State())
	assert.Equal(t, 2, verifier.calls)
}

func TestKeypadAndModifiers(t *testing.T) {
	r, verifier, _, _ := newTestReducer(t, 16)
	r.Handle(Press('a'))
	r.Handle(Press(XKKP0 + 4))
	r.Handle(Press(0xffe1)) // Shift_L
	r.Handle(Press(XKKPAdd))
	r.Handle(Press(0x1000e9)) // Unicode keysym, dropped
	r.Handle(Press(0xe9))     // eacute
	r.Handle(Press(XKReturn))

	assert.Equal(t, []byte{'4', '+', 0xe9}, verifier.last)
}

func TestIdleTimeoutBoundary(t *testing.T) {
	r, _, fb, clk := newTestReducer(t, 8)
	r.Handle(Press('a'))
	typeText(r, "abc")

	clk.Advance(DefaultIdleTimeout - time.Millisecond)
	r.Handle(Press('d'))
	r.Tick()
	assert.Equal(t, Armed, r.State(), "key one unit before the threshold keeps Armed")
	assert.Equal(t, 4, r.Len())

	clk.Advance(DefaultIdleTimeout)
	r.Tick()
	assert.Equal(t, Armed, r.State(), "exactly the timeout is not past it")

	clk.Advance(time.Millisecond)
	r.Tick()
	assert.Equal(t, Idle, r.State())
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, Idle, fb.states[len(fb.states)-1])

	// Idle never times out again.
	clk.Advance(time.Hour)
	r.Tick()
	assert.Equal(t, Idle, r.State())
}

func TestWaitBudget(t *testing.T) {
	r, _, _, clk := newTestReducer(t, 8)
	assert.Equal(t, NoTimeout, r.waitBudget(), "idle blocks without a timeout")

	r.Handle(Press('a'))
	assert.Equal(t, DefaultIdleTimeout, r.waitBudget())

	clk.Advance(2 * time.Second)
	assert.Equal(t, 3*time.Second, r.waitBudget())

	clk.Advance(3*time.Second - time.Millisecond)
	assert.Equal(t, DefaultPollInterval, r.waitBudget(), "budget never drops below the poll interval")
}

// scriptedSource replays events and then reports timeouts, advancing the
// fake clock by the requested wait to model a quiet keyboard.
type scriptedSource struct {
	clk      *clock.FakeClock
	events   []Event
	timeouts []time.Duration
	err      error
}

func (s *scriptedSource) NextEvent(_ context.Context, timeout time.Duration) (Event, bool, error) {
	s.timeouts = append(s.timeouts, timeout)
	if len(s.events) > 0 {
		ev := s.events[0]
		s.events = s.events[1:]
		return ev, true, nil
	}
	if s.err != nil {
		return Event{}, false, s.err
	}
	if timeout < 0 {
		return Event{}, false, errors.New("blocked forever")
	}
	s.clk.Advance(timeout)
	return Event{}, false, nil
}

func pressAll(text string) []Event {
	var evs []Event
	for _, c := range []byte(text) {
		evs = append(evs, Press(Keysym(c)), Event{Kind: KeyRelease, Keysym: Keysym(c)})
	}
	return evs
}

func TestRunUntilValid(t *testing.T) {
	r, _, _, clk := newTestReducer(t, 127)

	events := append([]Event{Press(XKReturn)}, pressAll("hunter2")...)
	events = append(events, Press(XKReturn))
	src := &scriptedSource{clk: clk, events: events}

	require.NoError(t, r.Run(context.Background(), src))
	assert.Equal(t, Valid, r.State())
	assert.Equal(t, NoTimeout, src.timeouts[0])
}

func TestRunTimesOutToIdle(t *testing.T) {
	r, _, fb, clk := newTestReducer(t, 127)
	src := &scriptedSource{clk: clk, events: pressAll("xab")}

	// After the script the source advances the clock; once Idle it would
	// block forever, which the script reports as an error.
	err := r.Run(context.Background(), src)
	require.Error(t, err)
	assert.Equal(t, Idle, r.State())
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, []State{Armed, Idle}, fb.states)
}

func TestRunPropagatesSourceError(t *testing.T) {
	r, _, _, clk := newTestReducer(t, 8)
	sentinel := errors.New("display closed")
	err := r.Run(context.Background(), &scriptedSource{clk: clk, err: sentinel})
	assert.ErrorIs(t, err, sentinel)
}

func TestRunHonoursContext(t *testing.T) {
	r, _, _, clk := newTestReducer(t, 8)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := r.Run(ctx, &scriptedSource{clk: clk})
	assert.ErrorIs(t, err, context.Canceled)
}
