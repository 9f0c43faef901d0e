// Package console is a local REPL transport for exercising the pipeline
// without Feishu credentials: typed lines become text messages, replies
// print to the terminal.
package console

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/chzyer/readline"
	"github.com/google/uuid"

	"github.com/skylarkbot/skylark/pkg/bus"
)

// ChannelName identifies this transport on bus messages.
const ChannelName = "console"

type Channel struct {
	bus *bus.MessageBus
	rl  *readline.Instance
}

func New(b *bus.MessageBus) *Channel {
	return &Channel{bus: b}
}

func (c *Channel) Name() string { return ChannelName }

// Start reads lines until EOF, interrupt, or ctx cancellation.
func (c *Channel) Start(ctx context.Context) error {
	rl, err := readline.New("you> ")
	if err != nil {
		return fmt.Errorf("init readline: %w", err)
	}
	c.rl = rl
	defer rl.Close()

	go func() {
		<-ctx.Done()
		rl.Close()
	}()

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if line == "" {
			continue
		}
		content, _ := json.Marshal(map[string]string{"text": line})
		c.bus.PublishInbound(bus.InboundMessage{
			Channel:     ChannelName,
			MessageID:   uuid.NewString(),
			ChatID:      ChannelName,
			ContentType: bus.ContentText,
			Content:     string(content),
		})
	}
}

// Send prints the reply. Cards print as their raw JSON; the console is a
// debugging surface, not a renderer.
func (c *Channel) Send(_ context.Context, msg bus.OutboundMessage) error {
	if msg.MsgType == "interactive" {
		fmt.Printf("bot> [card] %s\n", msg.Content)
		return nil
	}
	fmt.Printf("bot> %s\n", msg.Content)
	return nil
}

func (c *Channel) Stop() {
	if c.rl != nil {
		c.rl.Close()
	}
}
