// Package channels hosts the chat transports. Each channel feeds inbound
// messages into the bus and delivers the outbound replies addressed to it.
package channels

import (
	"context"
	"sync"

	"github.com/skylarkbot/skylark/pkg/bus"
	"github.com/skylarkbot/skylark/pkg/logger"
)

// Channel is one chat transport.
type Channel interface {
	Name() string
	// Start runs the transport until ctx is cancelled.
	Start(ctx context.Context) error
	// Send delivers one outbound message on this transport.
	Send(ctx context.Context, msg bus.OutboundMessage) error
	Stop()
}

// Manager starts the registered channels and routes outbound messages to
// the channel named in each message.
type Manager struct {
	bus      *bus.MessageBus
	mu       sync.RWMutex
	channels map[string]Channel
}

func NewManager(b *bus.MessageBus) *Manager {
	return &Manager{
		bus:      b,
		channels: make(map[string]Channel),
	}
}

// Register adds a channel. Call before StartAll.
func (m *Manager) Register(ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[ch.Name()] = ch
}

// StartAll starts every registered channel plus the outbound router. It
// returns once ctx is cancelled and all channels have stopped.
func (m *Manager) StartAll(ctx context.Context) {
	var wg sync.WaitGroup

	m.mu.RLock()
	for _, ch := range m.channels {
		wg.Add(1)
		go func(ch Channel) {
			defer wg.Done()
			logger.InfoCF("channels", "Channel starting", map[string]interface{}{"name": ch.Name()})
			if err := ch.Start(ctx); err != nil && ctx.Err() == nil {
				logger.ErrorCF("channels", "Channel exited", map[string]interface{}{
					"name":  ch.Name(),
					"error": err.Error(),
				})
			}
		}(ch)
	}
	m.mu.RUnlock()

	wg.Add(1)
	go func() {
		defer wg.Done()
		m.routeOutbound(ctx)
	}()

	wg.Wait()
}

func (m *Manager) routeOutbound(ctx context.Context) {
	for {
		msg, ok := m.bus.SubscribeOutbound(ctx)
		if !ok {
			return
		}
		m.mu.RLock()
		ch, found := m.channels[msg.Channel]
		m.mu.RUnlock()
		if !found {
			logger.WarnCF("channels", "Outbound for unknown channel dropped", map[string]interface{}{
				"channel": msg.Channel,
			})
			continue
		}
		if err := ch.Send(ctx, msg); err != nil {
			logger.ErrorCF("channels", "Outbound send failed", map[string]interface{}{
				"channel": msg.Channel,
				"chat_id": msg.ChatID,
				"error":   err.Error(),
			})
		}
	}
}

// StopAll stops every registered channel.
func (m *Manager) StopAll() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ch := range m.channels {
		ch.Stop()
	}
}
