// Package publisher fans packets received on a driver session out to channel subscribers.
package publisher

import (
	"context"
	"errors"

	"github.com/ghjm/tunlink/pkg/session"
	"github.com/ghjm/tunlink/pkg/x/broker"
	log "github.com/sirupsen/logrus"
)

// Publisher runs a receive loop on a session and distributes copies of received packets to
// subscribers.  Each driver buffer is released as soon as its copy is made, so subscribers may
// hold their packets as long as they like without tying up driver resources.
type Publisher struct {
	broker *broker.Broker[[]byte]
}

// New starts a Publisher reading from sess.  The receive loop runs until the session is shut
// down or ctx is cancelled; cancelling the context shuts the session down.  The session must
// not be closed while the Publisher is running.
func New(ctx context.Context, sess *session.Session) *Publisher {
	p := &Publisher{
		broker: broker.New[[]byte](ctx),
	}
	stop := context.AfterFunc(ctx, sess.Shutdown)
	go func() {
		defer stop()
		for {
			pkt, err := sess.ReceiveBlocking()
			if err != nil {
				if !errors.Is(err, session.ErrCancelled) {
					log.Errorf("error receiving from driver session: %s", err)
				}
				return
			}
			data := make([]byte, len(pkt.Bytes()))
			copy(data, pkt.Bytes())
			pkt.Release()
			p.broker.Publish(data)
		}
	}()
	return p
}

// SubscribePackets returns a channel which will receive published packets.
func (p *Publisher) SubscribePackets() <-chan []byte {
	return p.broker.Subscribe()
}

// UnsubscribePackets stops packet delivery to a channel.
func (p *Publisher) UnsubscribePackets(pktCh <-chan []byte) {
	p.broker.Unsubscribe(pktCh)
}
