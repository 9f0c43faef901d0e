// Package bus decouples chat channels from the processing pipeline.
// Channels publish inbound messages; the dispatcher consumes them and
// publishes outbound replies that the owning channel delivers.
package bus

import (
	"context"
	"sync"
)

type MessageBus struct {
	inbound   chan InboundMessage
	outbound  chan OutboundMessage
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

func NewMessageBus() *MessageBus {
	return &MessageBus{
		inbound:  make(chan InboundMessage, 100),
		outbound: make(chan OutboundMessage, 100),
	}
}

func (mb *MessageBus) PublishInbound(msg InboundMessage) {
	mb.mu.RLock()
	if mb.closed {
		mb.mu.RUnlock()
		return
	}
	mb.mu.RUnlock()

	select {
	case mb.inbound <- msg:
	default:
		// Channel full — drop oldest and retry
		select {
		case <-mb.inbound:
		default:
		}
		select {
		case mb.inbound <- msg:
		default:
		}
	}
}

func (mb *MessageBus) ConsumeInbound(ctx context.Context) (InboundMessage, bool) {
	select {
	case msg := <-mb.inbound:
		return msg, true
	case <-ctx.Done():
		return InboundMessage{}, false
	}
}

func (mb *MessageBus) PublishOutbound(msg OutboundMessage) {
	mb.mu.RLock()
	if mb.closed {
		mb.mu.RUnlock()
		return
	}
	mb.mu.RUnlock()

	select {
	case mb.outbound <- msg:
	default:
		select {
		case <-mb.outbound:
		default:
		}
		select {
		case mb.outbound <- msg:
		default:
		}
	}
}

func (mb *MessageBus) SubscribeOutbound(ctx context.Context) (OutboundMessage, bool) {
	select {
	case msg := <-mb.outbound:
		return msg, true
	case <-ctx.Done():
		return OutboundMessage{}, false
	}
}

func (mb *MessageBus) Close() {
	mb.closeOnce.Do(func() {
		mb.mu.Lock()
		mb.closed = true
		mb.mu.Unlock()
		close(mb.inbound)
		close(mb.outbound)
	})
}
