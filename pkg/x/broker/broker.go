package broker

import (
	"context"
)

// broker code adapted from https://stackoverflow.com/questions/36417199/how-to-broadcast-message-using-channel
// which is licensed under Creative Commons CC BY-SA 4.0.

// Broker implements a fan-out system where multiple consumers can subscribe and receive
// published messages.  A Broker stops distributing messages when its context is cancelled.
type Broker[T any] struct {
	ctx       context.Context
	publishCh chan T
	subCh     chan chan T
	unSubCh   chan (<-chan T)
}

// New starts a new broker.
func New[T any](ctx context.Context) *Broker[T] {
	b := &Broker[T]{
		ctx:       ctx,
		publishCh: make(chan T),
		subCh:     make(chan chan T),
		unSubCh:   make(chan (<-chan T)),
	}
	go b.run()
	return b
}

func (b *Broker[T]) run() {
	subs := make(map[<-chan T]chan T)
	for {
		select {
		case <-b.ctx.Done():
			return
		case msgCh := <-b.subCh:
			subs[msgCh] = msgCh
		case msgCh := <-b.unSubCh:
			realCh := subs[msgCh]
			delete(subs, msgCh)
			if realCh != nil {
				close(realCh)
			}
		case msg := <-b.publishCh:
			for _, msgCh := range subs {
				select {
				case <-b.ctx.Done():
				case msgCh <- msg:
				}
			}
		}
	}
}

// Publish dispatches a message to all subscribed receivers.  The function call does not block
// past context cancellation, but does wait for each subscriber to accept the message.
func (b *Broker[T]) Publish(msg T) {
	select {
	case <-b.ctx.Done():
	case b.publishCh <- msg:
	}
}

// Subscribe returns a channel that will receive published messages.  After the broker's
// context is cancelled, Subscribe returns nil.
func (b *Broker[T]) Subscribe() <-chan T {
	msgCh := make(chan T)
	select {
	case <-b.ctx.Done():
		return nil
	case b.subCh <- msgCh:
		return msgCh
	}
}

// Unsubscribe stops sending messages and closes the channel.  The caller is responsible for
// draining any remaining messages pending for the channel.
func (b *Broker[T]) Unsubscribe(msgCh <-chan T) {
	go func() {
		for {
			select {
			case <-b.ctx.Done():
				return
			case _, ok := <-msgCh:
				if !ok {
					return
				}
			}
		}
	}()
	select {
	case <-b.ctx.Done():
	case b.unSubCh <- msgCh:
	}
}
