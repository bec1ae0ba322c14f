// Package driver defines the contract offered by an external virtual network interface
// driver's packet datapath: a small function table operating on opaque session handles.
// Binding implementations are expected to be internally thread-safe; this package and its
// consumers add no locking of their own around driver calls.
package driver

import (
	"fmt"

	"github.com/ghjm/tunlink/pkg/waitable"
)

// MaxPacketSize is the largest packet size, in bytes, a driver accepts for allocation.
const MaxPacketSize = 0xFFFF

// ErrNoData is returned by ReceiveBuffer when no packets are queued.  It is the driver's
// designated "nothing to do" signal, not a failure.
var ErrNoData = fmt.Errorf("no packets queued")

// Handle is an opaque reference to one driver session.  Handles are plain values which may be
// copied freely between goroutines; concurrent driver calls on the same handle are safe only
// because of the driver's own internal synchronization.
type Handle any

// Binding is the function table of a loaded packet driver.  Methods taking a Handle must only
// be called with handles issued by the same Binding, and never after EndSession.
type Binding interface {
	// AllocateSendBuffer requests a driver-owned region for one outgoing packet of the given
	// size.  An error means the driver's internal send buffer is full; this is transient
	// backpressure, not a fault.
	AllocateSendBuffer(h Handle, size int) ([]byte, error)

	// SubmitSendBuffer hands a buffer previously returned by AllocateSendBuffer to the driver
	// for transmission.  The caller must not touch the buffer afterward.
	SubmitSendBuffer(h Handle, buf []byte)

	// ReceiveBuffer polls for one queued packet without blocking.  It returns ErrNoData when
	// nothing is queued.  Returned buffers remain driver-owned and must be handed back via
	// ReleaseReceiveBuffer.
	ReceiveBuffer(h Handle) ([]byte, error)

	// ReleaseReceiveBuffer returns a received buffer to the driver's internal pool.
	ReleaseReceiveBuffer(h Handle, buf []byte)

	// ReadWaitEvent returns the event the driver signals when a packet may be available to
	// receive.  The event remains valid for the rest of the session's lifetime.
	ReadWaitEvent(h Handle) *waitable.Event

	// EndSession surrenders the session to the driver.  The handle must not be used again.
	EndSession(h Handle)

	// RunningVersion returns the version number of the running driver.
	RunningVersion() uint32

	// SetLogger registers a process-wide callback for the driver's own log messages.  The
	// driver may invoke the callback from any of its threads at any time.
	SetLogger(logger Logger)
}
