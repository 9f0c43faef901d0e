package pipeline

import (
	"fmt"

	"github.com/skylarkbot/skylark/pkg/bus"
	"github.com/skylarkbot/skylark/pkg/feishu"
	"github.com/skylarkbot/skylark/pkg/logger"
	"github.com/skylarkbot/skylark/pkg/schedule"
)

// Reporter maps pipeline results onto user-visible replies published to the
// bus. The owning channel delivers them.
type Reporter struct {
	bus *bus.MessageBus
}

func NewReporter(b *bus.MessageBus) *Reporter {
	return &Reporter{bus: b}
}

// Text sends a plain-text reply to the message.
func (r *Reporter) Text(msg bus.InboundMessage, text string) {
	r.bus.PublishOutbound(bus.OutboundMessage{
		Channel: msg.Channel,
		ChatID:  msg.ChatID,
		ReplyTo: msg.MessageID,
		MsgType: "text",
		Content: text,
	})
}

// NoSchedule reports the extractor's reason verbatim, with a usage hint.
func (r *Reporter) NoSchedule(msg bus.InboundMessage, reason string) {
	if reason == "" {
		reason = "无法识别日程信息"
	}
	r.Text(msg, fmt.Sprintf(
		"❌ %s\n\n请尝试发送类似：\n「明天下午3点开会」\n「1月31号上午10点和张三吃饭」", reason))
}

// Outcome reports a creation outcome: success card, duplicate notice, or the
// manual fallback card. source names the channel the schedule came from
// ("文字", "图片", "语音").
func (r *Reporter) Outcome(msg bus.InboundMessage, ev *schedule.Resolved, outcome CreationOutcome, source string) {
	switch outcome.Kind {
	case OutcomeCreated:
		detailURL := ""
		if outcome.CalendarID != "" && outcome.EventID != "" {
			detailURL = feishu.EventDetailLink(outcome.CalendarID, outcome.EventID)
		}
		r.card(msg, feishu.CreatedCard(ev.Title, ev.Start, ev.End, ev.Location, source, detailURL))

	case OutcomeDuplicate:
		r.Text(msg, fmt.Sprintf(
			"✅ 该日程已存在\n\n📅 %s\n🕐 %s\n\n无需重复创建",
			ev.Title, ev.Start.Format("2006-01-02 15:04")))

	case OutcomeFailed:
		logger.WarnCF("reporter", "Creation failed, sending fallback card", map[string]interface{}{
			"message_id": msg.MessageID,
			"reason":     outcome.Reason,
		})
		r.card(msg, feishu.FallbackCard(ev.Title, ev.Start, ev.End, ev.Location, source))
	}
}

func (r *Reporter) card(msg bus.InboundMessage, cardJSON string) {
	r.bus.PublishOutbound(bus.OutboundMessage{
		Channel: msg.Channel,
		ChatID:  msg.ChatID,
		ReplyTo: msg.MessageID,
		MsgType: "interactive",
		Content: cardJSON,
	})
}
