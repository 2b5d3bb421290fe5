package locker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jezek/xgb/xproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grablock/internal/auth"
	"grablock/internal/clock"
	"grablock/internal/grab"
	"grablock/internal/input"
	"grablock/internal/instance"
)

const hunter2SHA256 = "f52fbd32b2b3b86ff88ef6c490628285f482af15ddcb29541f94bcf526a3f6c7"

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// journal records calls from every fake in one ordered list.
type journal struct{ calls []string }

func (j *journal) add(format string, args ...any) {
	j.calls = append(j.calls, fmt.Sprintf(format, args...))
}

type fakeDisplay struct {
	j *journal

	keyboard []bool
	pointer  []bool

	marker  int
	present bool

	events []input.Event
	closed bool
}

func (d *fakeDisplay) GrabKeyboard(xproto.Window) (bool, error) {
	d.j.add("grab-keyboard")
	ok := d.keyboard[0]
	d.keyboard = d.keyboard[1:]
	return ok, nil
}

func (d *fakeDisplay) GrabPointer(xproto.Window, xproto.Cursor) (bool, error) {
	d.j.add("grab-pointer")
	ok := d.pointer[0]
	d.pointer = d.pointer[1:]
	return ok, nil
}

func (d *fakeDisplay) UngrabKeyboard() error { d.j.add("ungrab-keyboard"); return nil }
func (d *fakeDisplay) UngrabPointer() error { d.j.add("ungrab-pointer"); return nil }

func (d *fakeDisplay) ReadMarker() (int, bool, error) { return d.marker, d.present, nil }

func (d *fakeDisplay) WriteMarker(pid int) error {
	d.j.add("register")
	d.marker, d.present = pid, true
	return nil
}

func (d *fakeDisplay) DeleteMarker() error {
	d.j.add("unregister")
	d.marker, d.present = 0, false
	return nil
}

func (d *fakeDisplay) NextEvent(_ context.Context, _ time.Duration) (input.Event, bool, error) {
	if len(d.events) == 0 {
		return input.Event{}, false, errors.New("fake display: out of events")
	}
	ev := d.events[0]
	d.events = d.events[1:]
	return ev, true, nil
}

func (d *fakeDisplay) ShowSurfaces() error { d.j.add("show"); return nil }

func (d *fakeDisplay) Anchor() (xproto.Window, xproto.Cursor, error) { return 0x200001, 0x200002, nil }

func (d *fakeDisplay) Close() error {
	d.j.add("close")
	d.closed = true
	return nil
}

type fakePresenter struct {
	j        *journal
	setupErr error
	states   []input.State
	chars    int
}

func (p *fakePresenter) Setup() error {
	p.j.add("present")
	return p.setupErr
}
func (p *fakePresenter) Teardown() { p.j.add("unpresent") }
func (p *fakePresenter) OnStateChanged(s input.State) { p.states = append(p.states, s) }
func (p *fakePresenter) OnCharEntered() { p.chars++ }
func (p *fakePresenter) OnExpose(input.Expose) {}

type fakeNotifier struct{ j *journal }

func (n fakeNotifier) SetLocked(locked bool) error {
	n.j.add("locked=%v", locked)
	return nil
}

func typed(text string) []input.Event {
	evs := []input.Event{input.Press(input.XKReturn)} // wakes the lock
	for _, c := range []byte(text) {
		evs = append(evs, input.Press(input.Keysym(c)), input.Event{Kind: input.KeyRelease, Keysym: input.Keysym(c)})
	}
	return append(evs, input.Press(input.XKReturn))
}

type harness struct {
	j         *journal
	display   *fakeDisplay
	presenter *fakePresenter
	clock     *clock.FakeClock
	session   *Session
}

func newHarness(authSpec string, events []input.Event) *harness {
	j := &journal{}
	h := &harness{
		j:         j,
		display:   &fakeDisplay{j: j, keyboard: []bool{true}, pointer: []bool{true}, events: events},
		presenter: &fakePresenter{j: j},
		clock:     clock.Fake(epoch),
	}
	opts := DefaultOptions()
	opts.Auth = authSpec
	opts.DisableCoreDumps = false
	h.session = NewSession(opts, Deps{
		Display:   h.display,
		Presenter: h.presenter,
		Notifier:  fakeNotifier{j: j},
		Clock:     h.clock,
	})
	return h
}

func TestScenarioCorrectPassword(t *testing.T) {
	h := newHarness("hash:type=sha256,hash="+hunter2SHA256, typed("hunter2"))

	require.NoError(t, h.session.Run(context.Background()))
	assert.Equal(t, []input.State{input.Armed, input.Checking, input.Valid}, h.presenter.states)
	assert.Equal(t, 7, h.presenter.chars)

	assert.Equal(t, []string{
		"present", "show",
		"grab-keyboard", "grab-pointer",
		"register", "locked=true",
		"ungrab-pointer", "ungrab-keyboard",
		"unregister", "locked=false",
		"unpresent", "close",
	}, h.j.calls)
	assert.False(t, h.display.present)
}

func TestScenarioWrongThenCorrect(t *testing.T) {
	events := typed("wrong")
	for _, c := range []byte("hunter2") {
		events = append(events, input.Press(input.Keysym(c)))
	}
	events = append(events, input.Press(input.XKReturn))

	h := newHarness("hash:type=sha256,hash="+hunter2SHA256, events)
	require.NoError(t, h.session.Run(context.Background()))

	assert.Equal(t, []input.State{
		input.Armed, input.Checking, input.Invalid, input.Armed,
		input.Checking, input.Valid,
	}, h.presenter.states)
}

func TestScenarioMalformedConfig(t *testing.T) {
	h := newHarness("hash:type=doesnotexist,hash=ab", typed("ab"))

	err := h.session.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrConfig)
	assert.Equal(t, ErrConfig, Classify(err))
	assert.Equal(t, 1, ExitCode(err))

	var modErr *ModuleError
	require.ErrorAs(t, err, &modErr)
	assert.Equal(t, "hash", modErr.Module)
	assert.Equal(t, "hash:type=doesnotexist,hash=[REDACTED]", modErr.Spec)
	assert.Contains(t, err.Error(), "failed init of [hash] with [hash:type=doesnotexist,hash=[REDACTED]]")

	assert.Equal(t, []string{"close"}, h.j.calls, "nothing may be grabbed or shown")
}

func TestUnknownAuthModule(t *testing.T) {
	h := newHarness("kerberos:realm=x,password=swordfish", nil)
	err := h.session.Run(context.Background())
	assert.Equal(t, ErrConfig, Classify(err))
	assert.NotContains(t, err.Error(), "swordfish")
}

func TestKeyboardBusyTwiceAborts(t *testing.T) {
	h := newHarness("none", nil)
	h.display.keyboard = []bool{false, false}

	done := make(chan error, 1)
	go func() { done <- h.session.Run(context.Background()) }()
	h.clock.WaitForTimers(1)
	h.clock.Advance(grab.DefaultRetryDelay)

	err := <-done
	assert.ErrorIs(t, err, grab.ErrKeyboardBusy)
	assert.Equal(t, ErrResourceBusy, Classify(err))
	assert.Equal(t, []string{
		"present", "show",
		"grab-keyboard", "grab-keyboard",
		"unpresent", "close",
	}, h.j.calls)
}

func TestPointerBusyReleasesKeyboardFirst(t *testing.T) {
	h := newHarness("none", nil)
	h.display.pointer = []bool{false}

	err := h.session.Run(context.Background())
	assert.ErrorIs(t, err, grab.ErrPointerBusy)
	assert.Equal(t, []string{
		"present", "show",
		"grab-keyboard", "grab-pointer", "ungrab-keyboard",
		"unpresent", "close",
	}, h.j.calls)
}

func TestLiveInstanceBlocksStartup(t *testing.T) {
	h := newHarness("none", nil)
	h.session.guard = instance.NewGuard(h.display, nil)
	h.display.marker, h.display.present = 1, true // init is always alive

	err := h.session.Run(context.Background())
	assert.ErrorIs(t, err, instance.ErrAlreadyRunning)
	assert.Equal(t, ErrResourceBusy, Classify(err))
	assert.Equal(t, []string{"close"}, h.j.calls)
	assert.Equal(t, 1, h.display.marker, "marker must not be touched")
}

func TestPresenterFailure(t *testing.T) {
	h := newHarness("none", nil)
	h.presenter.setupErr = newModuleError("bg", "blank", "blank:color=", errors.New("bad"))

	err := h.session.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"present", "close"}, h.j.calls)
}

func TestReducerFailureKeepsMarker(t *testing.T) {
	h := newHarness("none", []input.Event{input.Press('a')})

	err := h.session.Run(context.Background())
	require.Error(t, err)
	assert.True(t, h.display.present, "fatal exits leave the marker for the stale-pid rule")
	assert.Equal(t, []string{
		"present", "show",
		"grab-keyboard", "grab-pointer",
		"register", "locked=true",
		"ungrab-pointer", "ungrab-keyboard",
		"locked=false",
		"unpresent", "close",
	}, h.j.calls)
}

func TestAuthListing(t *testing.T) {
	h := newHarness("hash:list", nil)
	err := h.session.Run(context.Background())
	assert.ErrorIs(t, err, auth.ErrListed)
	assert.Equal(t, 0, ExitCode(err))
}
