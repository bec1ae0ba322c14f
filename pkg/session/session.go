// Package session provides a safe, concurrent interface to one active connection to a virtual
// network interface driver's packet datapath.  It layers blocking, cancellable packet reception
// and ownership-tracked send/receive buffers over the driver's non-blocking function table.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ghjm/tunlink/pkg/driver"
	"github.com/ghjm/tunlink/pkg/waitable"
	"github.com/ghjm/tunlink/pkg/x/syncro"
)

var ErrAllocationFailed = fmt.Errorf("driver send buffer full")
var ErrReceiveFailed = fmt.Errorf("error receiving packet")
var ErrCancelled = fmt.Errorf("receive cancelled by shutdown")
var ErrWaitFailed = fmt.Errorf("error waiting for packet readiness")
var ErrPacketTooBig = fmt.Errorf("requested packet size exceeds driver maximum")
var ErrSessionEnded = fmt.Errorf("session has ended")

// fastPollAttempts is the number of non-blocking receive attempts made before falling back to
// a wait.  With bursty traffic a packet has usually arrived again by the time a receiver comes
// back around, and polling is much cheaper than setting up a wait.
const fastPollAttempts = 5

// Session mediates packet traffic over one driver session handle.  All methods are safe to
// call concurrently from multiple goroutines.
type Session struct {
	bind     driver.Binding
	handle   driver.Handle
	readOnce sync.Once
	readEv   *waitable.Event
	cancel   *waitable.Event
	ended    syncro.Var[bool]
}

// New wraps an already-started driver session handle.  The Session takes exclusive ownership
// of the handle and will surrender it to the driver on Close.
func New(bind driver.Binding, handle driver.Handle) *Session {
	return &Session{
		bind:   bind,
		handle: handle,
		cancel: waitable.NewSticky(),
	}
}

// AllocateSendPacket requests a buffer for one outgoing packet of the given size.  On driver
// backpressure it returns ErrAllocationFailed; this is transient, and the caller should retry
// after some queued packets drain.
func (s *Session) AllocateSendPacket(size int) (*Packet, error) {
	if size < 0 || size > driver.MaxPacketSize {
		return nil, fmt.Errorf("%w: %d", ErrPacketTooBig, size)
	}
	// The ended check and the driver call share the lock so that a concurrent Close cannot
	// surrender the handle between them.
	var p *Packet
	var err error
	s.ended.WorkWithReadOnly(func(ended bool) {
		if ended {
			err = ErrSessionEnded
			return
		}
		var buf []byte
		buf, err = s.bind.AllocateSendBuffer(s.handle, size)
		if err != nil {
			err = fmt.Errorf("%w: %s", ErrAllocationFailed, err)
			return
		}
		p = &Packet{bytes: buf, sess: s, state: statePendingSend}
	})
	return p, err
}

// SendPacket hands a pending-send packet to the driver for transmission.  The packet and its
// buffer must not be used afterward.  Sending a packet in any other state is a contract
// violation and panics.  Sending on a closed session returns ErrSessionEnded; the packet
// still reaches its terminal state, since its buffer went down with the session.
func (s *Session) SendPacket(p *Packet) error {
	if p.state != statePendingSend {
		panic(fmt.Sprintf("packet sent in state %s", p.state))
	}
	var err error
	s.ended.WorkWithReadOnly(func(ended bool) {
		if ended {
			err = ErrSessionEnded
			return
		}
		s.bind.SubmitSendBuffer(s.handle, p.bytes)
	})
	p.state = stateSent
	p.bytes = nil
	return err
}

// TryReceive polls the driver once for a queued packet.  It returns (nil, nil) when no packets
// are queued, and never blocks.  A returned packet must be released when done with it.
func (s *Session) TryReceive() (*Packet, error) {
	var p *Packet
	var err error
	s.ended.WorkWithReadOnly(func(ended bool) {
		if ended {
			err = ErrSessionEnded
			return
		}
		var buf []byte
		buf, err = s.bind.ReceiveBuffer(s.handle)
		if err != nil {
			if errors.Is(err, driver.ErrNoData) {
				err = nil
			} else {
				err = fmt.Errorf("%w: %s", ErrReceiveFailed, err)
			}
			return
		}
		p = &Packet{bytes: buf, sess: s, state: stateReceived}
	})
	return p, err
}

// readWaitEvent returns the driver's readiness event, fetching it on first use.  Once fetched
// it stays valid for the rest of the session's lifetime.
func (s *Session) readWaitEvent() *waitable.Event {
	s.readOnce.Do(func() {
		s.readEv = s.bind.ReadWaitEvent(s.handle)
	})
	return s.readEv
}

// ReceiveBlocking returns the next received packet, blocking until one arrives.  It unblocks
// with ErrCancelled when Shutdown is called, from any goroutine, at any time.
func (s *Session) ReceiveBlocking() (*Packet, error) {
	return s.receive(nil, nil)
}

// ReceiveContext is like ReceiveBlocking, but additionally unblocks when ctx is cancelled or
// expires, returning ErrCancelled wrapping the context's error.
func (s *Session) ReceiveContext(ctx context.Context) (*Packet, error) {
	ctxEv := waitable.NewSticky()
	stop := context.AfterFunc(ctx, ctxEv.Set)
	defer stop()
	return s.receive(ctx, ctxEv)
}

func (s *Session) receive(ctx context.Context, ctxEv *waitable.Event) (*Packet, error) {
	for {
		// Checking cancellation first bounds shutdown latency to one poll/wait cycle, and
		// makes cancellation win when both events are signaled.
		if s.cancel.Signaled() {
			return nil, ErrCancelled
		}
		for i := 0; i < fastPollAttempts; i++ {
			p, err := s.TryReceive()
			if err != nil {
				return nil, err
			}
			if p != nil {
				return p, nil
			}
		}
		evs := []*waitable.Event{s.readWaitEvent(), s.cancel}
		if ctxEv != nil {
			evs = append(evs, ctxEv)
		}
		idx, err := waitable.WaitAny(evs...)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrWaitFailed, err)
		}
		switch idx {
		case 1:
			return nil, ErrCancelled
		case 2:
			return nil, fmt.Errorf("%w: %s", ErrCancelled, ctx.Err())
		}
		// A readiness wake does not guarantee data is still present, since another receiver
		// may have taken it; loop back to polling.
	}
}

// Shutdown unblocks all current and future blocking receives on this session, causing them to
// return ErrCancelled.  It may be called from any goroutine, any number of times.
func (s *Session) Shutdown() {
	s.cancel.Set()
}

// Close surrenders the session handle to the driver.  Operations attempted after Close fail
// with ErrSessionEnded rather than reaching the driver with a stale handle.  Close does not
// imply Shutdown; callers with outstanding blocking receives must call Shutdown first.
// Closing an already-closed session is a no-op.
func (s *Session) Close() error {
	// EndSession runs under the same lock the other operations take their ended check under,
	// so the handle cannot be surrendered while a driver call is in flight.
	s.ended.WorkWith(func(ended *bool) {
		if !*ended {
			*ended = true
			s.bind.EndSession(s.handle)
		}
	})
	return nil
}
