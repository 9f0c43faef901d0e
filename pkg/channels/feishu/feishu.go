// Package feishu is the Feishu transport: a long-connection event stream
// delivering im.message.receive_v1 into the bus, and REST replies out.
package feishu

import (
	"context"
	"fmt"
	"time"

	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"github.com/larksuite/oapi-sdk-go/v3/event/dispatcher"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	larkws "github.com/larksuite/oapi-sdk-go/v3/ws"

	"github.com/skylarkbot/skylark/pkg/bus"
	feishuapi "github.com/skylarkbot/skylark/pkg/feishu"
	"github.com/skylarkbot/skylark/pkg/logger"
)

// ChannelName identifies this transport on bus messages.
const ChannelName = "feishu"

// Channel bridges the Feishu long connection and the message bus.
type Channel struct {
	appID     string
	appSecret string
	bus       *bus.MessageBus
	rest      *feishuapi.Client
	timeout   time.Duration
	cancel    context.CancelFunc
}

// New creates the channel. rest is the typed API client used for replies.
func New(appID, appSecret string, b *bus.MessageBus, rest *feishuapi.Client, timeout time.Duration) *Channel {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Channel{
		appID:     appID,
		appSecret: appSecret,
		bus:       b,
		rest:      rest,
		timeout:   timeout,
	}
}

func (c *Channel) Name() string { return ChannelName }

// Start opens the long connection and blocks until ctx is cancelled.
// Long-connection mode needs no verification token or encrypt key.
func (c *Channel) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	handler := dispatcher.NewEventDispatcher("", "").
		OnP2MessageReceiveV1(func(ctx context.Context, event *larkim.P2MessageReceiveV1) error {
			c.publishInbound(event)
			return nil
		})

	cli := larkws.NewClient(c.appID, c.appSecret,
		larkws.WithEventHandler(handler),
		larkws.WithLogLevel(larkcore.LogLevelInfo),
	)
	return cli.Start(runCtx)
}

// publishInbound maps the platform event onto the bus's inbound shape.
func (c *Channel) publishInbound(event *larkim.P2MessageReceiveV1) {
	if event == nil || event.Event == nil || event.Event.Message == nil {
		return
	}
	msg := event.Event.Message

	senderID := ""
	if event.Event.Sender != nil && event.Event.Sender.SenderId != nil {
		senderID = strVal(event.Event.Sender.SenderId.OpenId)
	}

	inbound := bus.InboundMessage{
		Channel:     ChannelName,
		MessageID:   strVal(msg.MessageId),
		ChatID:      strVal(msg.ChatId),
		SenderID:    senderID,
		ContentType: bus.ContentType(strVal(msg.MessageType)),
		Content:     strVal(msg.Content),
	}
	if inbound.MessageID == "" {
		return
	}

	logger.InfoCF("feishu-channel", "Message received", map[string]interface{}{
		"message_id": inbound.MessageID,
		"type":       string(inbound.ContentType),
	})
	c.bus.PublishInbound(inbound)
}

// Send delivers an outbound reply through the REST client.
func (c *Channel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	sendCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	switch msg.MsgType {
	case "interactive":
		if msg.ReplyTo == "" {
			return fmt.Errorf("interactive message without reply target")
		}
		return c.rest.ReplyCard(sendCtx, msg.ReplyTo, msg.Content)
	default:
		if msg.ReplyTo != "" {
			return c.rest.ReplyText(sendCtx, msg.ReplyTo, msg.Content)
		}
		return c.rest.SendText(sendCtx, msg.ChatID, msg.Content)
	}
}

func (c *Channel) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
}

func strVal(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
