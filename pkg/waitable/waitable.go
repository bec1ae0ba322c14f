// Package waitable provides OS-event-style signal objects that can be waited on in groups,
// in the manner of a multi-handle OS wait call.
package waitable

import (
	"sync"
	"time"

	"github.com/ghjm/tunlink/pkg/x/dynselect"
	"github.com/ghjm/tunlink/pkg/x/syncro"
)

// Event is a waitable signal.  Sticky events stay signaled forever once set, and setting them
// again is a no-op.  Pulse events release a single waiter per set and then reset.  An event may
// also be failed, after which every wait including it completes immediately with the error.
type Event struct {
	pulse chan struct{}
	done  chan struct{}
	once  sync.Once
	err   syncro.Var[error]
}

// NewSticky returns a new manual-reset style event.
func NewSticky() *Event {
	return &Event{done: make(chan struct{})}
}

// NewPulse returns a new auto-reset style event.
func NewPulse() *Event {
	return &Event{pulse: make(chan struct{}, 1), done: make(chan struct{})}
}

// Set signals the event.  For sticky events this is idempotent.  For pulse events, multiple sets
// with no intervening wait coalesce into one.
func (e *Event) Set() {
	if e.pulse != nil {
		select {
		case e.pulse <- struct{}{}:
		default:
		}
		return
	}
	e.once.Do(func() {
		close(e.done)
	})
}

// Fail moves the event to a permanently failed state, waking all current and future waiters.
// For sticky events, whichever of Set or Fail happens first wins.
func (e *Event) Fail(err error) {
	e.once.Do(func() {
		e.err.Set(err)
		close(e.done)
	})
}

// Err returns the failure error, if the event has been failed.
func (e *Event) Err() error {
	return e.err.Get()
}

// Signaled reports whether a wait on this event would complete immediately.  For pulse events
// this only reflects terminal failure, since checking for a pending pulse would consume it.
func (e *Event) Signaled() bool {
	select {
	case <-e.done:
		return true
	default:
	}
	return false
}

// WaitAny blocks until one of the given events is signaled, and returns that event's index.
// If the event completed because it was failed, its error is returned along with the index.
func WaitAny(evs ...*Event) (int, error) {
	return waitAny(evs, nil)
}

// WaitAnyTimeout is like WaitAny, but gives up after a duration, returning an index of -1 and
// no error.  A timeout is not a failure; it just means nothing was signaled in time.
func WaitAnyTimeout(d time.Duration, evs ...*Event) (int, error) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	return waitAny(evs, timer.C)
}

func waitAny(evs []*Event, timeout <-chan time.Time) (int, error) {
	sel := &dynselect.Selector{}
	chosen := -1
	for i, ev := range evs {
		i := i
		if ev.pulse != nil {
			dynselect.AddRecvDiscard(sel, ev.pulse, func() {
				chosen = i
			})
		}
		dynselect.AddRecvDiscard(sel, ev.done, func() {
			chosen = i
		})
	}
	if timeout != nil {
		dynselect.AddRecvDiscard(sel, timeout, nil)
	}
	sel.Select()
	if chosen < 0 {
		return -1, nil
	}
	return chosen, evs[chosen].Err()
}
