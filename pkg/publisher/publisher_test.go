package publisher

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/ghjm/tunlink/pkg/driver/memdriver"
	"github.com/ghjm/tunlink/pkg/session"
	"go.uber.org/goleak"
)

func TestPublisher(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx, cancel := context.WithCancel(context.Background())
	d := memdriver.New()
	sess := session.New(d, d.Open(0))
	p := New(ctx, sess)
	ch1 := p.SubscribePackets()
	ch2 := p.SubscribePackets()

	sp, err := sess.AllocateSendPacket(3)
	if err != nil {
		t.Fatalf("allocation failed: %s", err)
	}
	copy(sp.Bytes(), []byte{7, 8, 9})
	err = sess.SendPacket(sp)
	if err != nil {
		t.Fatalf("send failed: %s", err)
	}

	for _, ch := range []<-chan []byte{ch1, ch2} {
		timer := time.NewTimer(time.Second)
		select {
		case pkt := <-ch:
			timer.Stop()
			if !bytes.Equal(pkt, []byte{7, 8, 9}) {
				t.Errorf("wrong packet data")
			}
		case <-timer.C:
			t.Errorf("timed out waiting for published packet")
		}
	}

	p.UnsubscribePackets(ch2)
	cancel()
	time.Sleep(50 * time.Millisecond)
	err = sess.Close()
	if err != nil {
		t.Errorf("close failed: %s", err)
	}
}

func TestPublisherShutdown(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d := memdriver.New()
	sess := session.New(d, d.Open(0))
	_ = New(ctx, sess)
	time.Sleep(10 * time.Millisecond)
	// Shutting down the session directly also stops the publisher
	sess.Shutdown()
	time.Sleep(50 * time.Millisecond)
	err := sess.Close()
	if err != nil {
		t.Errorf("close failed: %s", err)
	}
}
