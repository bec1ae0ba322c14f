package session

import (
	"fmt"
)

// packetState tracks which phase of its lifecycle a Packet is in.
type packetState int

const (
	statePendingSend packetState = iota
	stateSent
	stateReceived
	stateReleased
)

func (s packetState) String() string {
	switch s {
	case statePendingSend:
		return "pending-send"
	case stateSent:
		return "sent"
	case stateReceived:
		return "received"
	case stateReleased:
		return "released"
	}
	return "unknown"
}

// Packet is a handle to one driver-owned packet buffer, valid for exactly one send or one
// receive operation.  A Packet must not be shared between goroutines, and must not outlive
// the Session that produced it.
type Packet struct {
	bytes []byte
	sess  *Session
	state packetState
}

// Bytes returns the packet's buffer.  The buffer belongs to the driver; it may be read and
// written freely until the packet reaches a terminal state (sent, or released), after which
// Bytes panics.
func (p *Packet) Bytes() []byte {
	if p.state == stateSent || p.state == stateReleased {
		panic(fmt.Sprintf("packet buffer accessed in state %s", p.state))
	}
	return p.bytes
}

// Release returns a received packet's buffer to the driver's internal pool.  It must be called
// exactly once for every packet produced by a receive, typically via defer so that early
// returns and error paths still release it.  Releasing a packet in any other state is a
// contract violation and panics.  Releasing after the session has been closed marks the packet
// released without calling the driver, since the buffer was surrendered along with the session.
func (p *Packet) Release() {
	if p.state != stateReceived {
		panic(fmt.Sprintf("packet released in state %s", p.state))
	}
	p.state = stateReleased
	p.sess.ended.WorkWithReadOnly(func(ended bool) {
		if !ended {
			p.sess.bind.ReleaseReceiveBuffer(p.sess.handle, p.bytes)
		}
	})
	p.bytes = nil
}
