// Package input implements the password-entry state machine that runs
// while the screen is locked.
//
// The Reducer consumes key events, keeps the typed password in a
// bounded, wiped buffer, and calls the verifier on submit. States:
//
//	Idle --any key--> Armed --submit--> Checking --ok--> Valid
//	                    ^                  |
//	                    +----- Invalid <---+ (mismatch)
//
// Armed falls back to Idle when no key is pressed for the idle timeout.
package input

import "fmt"

// State is the password-entry lifecycle state.
type State int

const (
	// Idle waits, without a timer, for the first key press.
	Idle State = iota
	// Armed accepts characters.
	Armed
	// Checking is the synchronous verification of a submitted password.
	Checking
	// Valid is terminal: the password matched.
	Valid
	// Invalid is entered after a mismatch, immediately followed by Armed.
	Invalid
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Checking:
		return "checking"
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Feedback observes the reducer. Both calls are made on the reducer's
// goroutine and must not block.
type Feedback interface {
	// OnStateChanged is called on every state entry.
	OnStateChanged(State)
	// OnCharEntered is called once per character accepted into the buffer.
	OnCharEntered()
}

// ExposeHandler redraws a region of a lock surface.
type ExposeHandler interface {
	OnExpose(Expose)
}

// NopFeedback ignores all notifications.
type NopFeedback struct{}

// OnStateChanged implements Feedback.
func (NopFeedback) OnStateChanged(State) {}

// OnCharEntered implements Feedback.
func (NopFeedback) OnCharEntered() {}
