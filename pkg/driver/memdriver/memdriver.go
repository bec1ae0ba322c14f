// Package memdriver provides an in-memory loopback implementation of driver.Binding, for use
// in tests and development.  Packets submitted for send become receivable on the same session.
// It implements the driver contract only; it does not reproduce any real driver's ring buffer
// mechanics or kernel data transfer.
package memdriver

import (
	"fmt"
	"sync"

	"github.com/ghjm/tunlink/pkg/driver"
	"github.com/ghjm/tunlink/pkg/waitable"
	"github.com/ghjm/tunlink/pkg/x/syncro"
	"github.com/google/uuid"
)

// driverVersion is reported by RunningVersion, encoded as major<<16 | minor.
const driverVersion uint32 = 1 << 16

// DefaultCapacity is the per-session packet capacity used when Open is given a value <= 0.
const DefaultCapacity = 64

// Driver is an in-memory loopback packet driver.
type Driver struct {
	logger   syncro.Var[driver.Logger]
	sessions syncro.Map[uuid.UUID, *sess]
}

var _ driver.Binding = (*Driver)(nil)

// sess is the in-memory state behind one opened handle.  borrowed counts driver-owned buffers
// currently lent out to the caller: allocated-but-unsubmitted, plus received-but-unreleased.
type sess struct {
	id       uuid.UUID
	ready    *waitable.Event
	capacity int

	mtx      sync.Mutex
	queue    [][]byte
	borrowed int
	ended    bool
}

// New returns a new loopback driver.
func New() *Driver {
	return &Driver{}
}

// Open starts a new loopback session holding at most capacity in-flight packets, and returns
// its handle.  Handles from Open are what session.New expects.
func (d *Driver) Open(capacity int) driver.Handle {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	s := &sess{
		id:       uuid.New(),
		ready:    waitable.NewPulse(),
		capacity: capacity,
	}
	d.sessions.Set(s.id, s)
	d.logf(driver.LogInfo, "session %s started with capacity %d", s.id, capacity)
	return s
}

// Sessions returns the number of currently open sessions.
func (d *Driver) Sessions() int {
	return d.sessions.Len()
}

func (d *Driver) logf(level driver.LogLevel, format string, args ...any) {
	logger := d.logger.Get()
	if logger != nil {
		logger(level, fmt.Sprintf(format, args...))
	}
}

func (d *Driver) AllocateSendBuffer(h driver.Handle, size int) ([]byte, error) {
	s := h.(*sess)
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.ended {
		return nil, fmt.Errorf("session has ended")
	}
	if size > driver.MaxPacketSize {
		return nil, fmt.Errorf("invalid packet size %d", size)
	}
	if len(s.queue)+s.borrowed >= s.capacity {
		return nil, fmt.Errorf("send buffer full")
	}
	s.borrowed++
	return make([]byte, size), nil
}

func (d *Driver) SubmitSendBuffer(h driver.Handle, buf []byte) {
	s := h.(*sess)
	s.mtx.Lock()
	if s.ended {
		s.mtx.Unlock()
		return
	}
	s.borrowed--
	s.queue = append(s.queue, buf)
	s.mtx.Unlock()
	s.ready.Set()
}

func (d *Driver) ReceiveBuffer(h driver.Handle) ([]byte, error) {
	s := h.(*sess)
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.ended {
		return nil, fmt.Errorf("session has ended")
	}
	if len(s.queue) == 0 {
		return nil, driver.ErrNoData
	}
	buf := s.queue[0]
	s.queue = s.queue[1:]
	s.borrowed++
	if len(s.queue) > 0 {
		// Re-arm so other waiters still wake while packets remain queued.
		s.ready.Set()
	}
	return buf, nil
}

func (d *Driver) ReleaseReceiveBuffer(h driver.Handle, _ []byte) {
	s := h.(*sess)
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.borrowed > 0 {
		s.borrowed--
	}
}

func (d *Driver) ReadWaitEvent(h driver.Handle) *waitable.Event {
	return h.(*sess).ready
}

func (d *Driver) EndSession(h driver.Handle) {
	s := h.(*sess)
	s.mtx.Lock()
	s.ended = true
	s.queue = nil
	s.borrowed = 0
	s.mtx.Unlock()
	d.sessions.Delete(s.id)
	d.logf(driver.LogInfo, "session %s ended", s.id)
}

func (d *Driver) RunningVersion() uint32 {
	return driverVersion
}

func (d *Driver) SetLogger(logger driver.Logger) {
	d.logger.Set(logger)
}
