package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock is the time source for the default window end. Tests freeze it via SetClock.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source used when no window end is given. Pass nil to
// reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

func now() time.Time {
	return clock.Now().UTC()
}
