//go:build windows

package waitable

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// FromHandle bridges a native Windows event handle into an Event.  A pump goroutine waits on
// the handle and pulses the returned Event each time it is signaled.  Calling the returned stop
// function terminates the pump; the native handle itself is not closed.  If the native wait
// fails, the Event is failed with the underlying error.
func FromHandle(h windows.Handle) (*Event, func(), error) {
	stop, err := windows.CreateEvent(nil, 1, 0, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating stop event: %w", err)
	}
	e := NewPulse()
	go func() {
		defer func() {
			_ = windows.CloseHandle(stop)
		}()
		for {
			s, err := windows.WaitForMultipleObjects([]windows.Handle{h, stop}, false, windows.INFINITE)
			if err != nil {
				e.Fail(fmt.Errorf("error waiting on native event: %w", err))
				return
			}
			switch s {
			case windows.WAIT_OBJECT_0:
				e.Set()
			case windows.WAIT_OBJECT_0 + 1:
				return
			default:
				e.Fail(fmt.Errorf("unexpected native wait result %d", s))
				return
			}
		}
	}()
	return e, func() {
		_ = windows.SetEvent(stop)
	}, nil
}
