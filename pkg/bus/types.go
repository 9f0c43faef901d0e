package bus

// ContentType is the chat-platform message type of an inbound event.
type ContentType string

const (
	ContentText  ContentType = "text"
	ContentImage ContentType = "image"
	ContentAudio ContentType = "audio"
)

// InboundMessage is one chat message delivered by a channel. Immutable once
// published; the platform may redeliver the same MessageID.
type InboundMessage struct {
	Channel       string            `json:"channel"`
	MessageID     string            `json:"message_id"`
	ChatID        string            `json:"chat_id"`
	SenderID      string            `json:"sender_id"`
	ContentType   ContentType       `json:"content_type"`
	Content       string            `json:"content"`            // raw platform content body (JSON for Feishu)
	FileKey       string            `json:"file_key,omitempty"` // image/audio resource key
	CorrelationID string            `json:"correlation_id,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// OutboundMessage is a reply produced by the pipeline for a channel to send.
type OutboundMessage struct {
	Channel string `json:"channel"`
	ChatID  string `json:"chat_id"`
	ReplyTo string `json:"reply_to,omitempty"` // message id to reply to
	MsgType string `json:"msg_type"`           // "text" or "interactive"
	Content string `json:"content"`            // platform-encoded body
}
