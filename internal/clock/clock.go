// Package clock provides an injectable time source so the grab retry
// delay and the password-entry idle timeout can be driven
// deterministically in tests.
//
// Production code holds a Clock field set to Real(). Tests use Fake()
// and move time with Advance:
//
//	c := clock.Fake(time.Unix(0, 0))
//	go negotiator.AcquireKeyboard(ctx, anchor) // sleeps on c
//	c.WaitForTimers(1)
//	c.Advance(time.Second)
package clock

import "time"

// Clock abstracts the time operations used by grablock.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time once d
	// has elapsed. If d <= 0 the channel is ready immediately.
	After(d time.Duration) <-chan time.Time

	// Sleep pauses the calling goroutine for at least d.
	Sleep(d time.Duration)
}

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (realClock) Sleep(d time.Duration) { time.Sleep(d) }
