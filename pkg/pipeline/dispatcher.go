package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/skylarkbot/skylark/pkg/bus"
	"github.com/skylarkbot/skylark/pkg/extract"
	"github.com/skylarkbot/skylark/pkg/logger"
	"github.com/skylarkbot/skylark/pkg/schedule"
)

// User-visible notices. The texts mirror what senders of each failed content
// type can act on.
const (
	noticeUnsupportedType = "暂不支持该消息类型 (%s)\n\n请发送：\n📝 文字消息\n🖼️ 图片（微信截图等）\n🎤 语音消息"
	noticeImageDownload   = "❌ 无法下载图片，请重新发送"
	noticeAudioDownload   = "❌ 无法下载语音，请重新发送"
	noticeOCREmpty        = "❌ 无法识别图片中的文字，请发送更清晰的截图"
	noticeSpeechDisabled  = "❌ 语音识别功能暂不可用\n\n请直接发送文字消息，例如：\n「明天下午3点开会」"
	noticeGenericError    = "❌ 处理消息时出错，请稍后重试"
)

// Dispatcher routes each inbound message through admission, content-type
// specific extraction, and the creation pipeline. All collaborator failures
// are converted to user-visible replies here; nothing propagates out of
// Handle.
type Dispatcher struct {
	bus      *bus.MessageBus
	store    Admitter
	fetcher  ResourceFetcher
	text     extract.Extractor
	vision   extract.VisionExtractor  // nil disables the image path
	speech   extract.SpeechRecognizer // nil makes audio report "unavailable"
	creator  *Creator
	reporter *Reporter

	loc             *time.Location
	defaultDuration time.Duration
	requestTimeout  time.Duration
	downloadTimeout time.Duration
}

// DispatcherOptions collects the dispatcher's collaborators and tuning.
type DispatcherOptions struct {
	Bus             *bus.MessageBus
	Store           Admitter
	Fetcher         ResourceFetcher
	Text            extract.Extractor
	Vision          extract.VisionExtractor
	Speech          extract.SpeechRecognizer
	Creator         *Creator
	Reporter        *Reporter
	Location        *time.Location
	DefaultDuration time.Duration
	RequestTimeout  time.Duration
	DownloadTimeout time.Duration
}

func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.DefaultDuration <= 0 {
		opts.DefaultDuration = time.Hour
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	if opts.DownloadTimeout <= 0 {
		opts.DownloadTimeout = 30 * time.Second
	}
	return &Dispatcher{
		bus:             opts.Bus,
		store:           opts.Store,
		fetcher:         opts.Fetcher,
		text:            opts.Text,
		vision:          opts.Vision,
		speech:          opts.Speech,
		creator:         opts.Creator,
		reporter:        opts.Reporter,
		loc:             opts.Location,
		defaultDuration: opts.DefaultDuration,
		requestTimeout:  opts.RequestTimeout,
		downloadTimeout: opts.DownloadTimeout,
	}
}

// Run consumes inbound messages until ctx is cancelled. Each message is
// handled on its own goroutine; the idempotency store serializes a message
// id racing itself.
func (d *Dispatcher) Run(ctx context.Context) {
	logger.InfoC("dispatcher", "Dispatcher started")
	for {
		msg, ok := d.bus.ConsumeInbound(ctx)
		if !ok {
			logger.InfoC("dispatcher", "Dispatcher stopped")
			return
		}
		go d.Handle(ctx, msg)
	}
}

// Handle processes one inbound message end to end.
func (d *Dispatcher) Handle(ctx context.Context, msg bus.InboundMessage) {
	if msg.CorrelationID == "" {
		msg.CorrelationID = uuid.NewString()
	}
	defer func() {
		if rec := recover(); rec != nil {
			logger.ErrorCF("dispatcher", "Panic while handling message", map[string]interface{}{
				"message_id":     msg.MessageID,
				"correlation_id": msg.CorrelationID,
				"panic":          rec,
			})
			d.reporter.Text(msg, noticeGenericError)
		}
	}()

	// Admission: redelivered messages exit silently, they were already
	// answered (or are being answered) by the first delivery.
	if !d.store.Admit(msg.MessageID) {
		logger.WarnCF("dispatcher", "Duplicate message ignored", map[string]interface{}{
			"message_id":     msg.MessageID,
			"correlation_id": msg.CorrelationID,
		})
		return
	}

	logger.InfoCF("dispatcher", "Message admitted", map[string]interface{}{
		"message_id":     msg.MessageID,
		"content_type":   string(msg.ContentType),
		"correlation_id": msg.CorrelationID,
	})

	var (
		draft  *extract.ScheduleDraft
		source string
		done   bool
	)
	switch msg.ContentType {
	case bus.ContentText:
		draft, done = d.handleText(ctx, msg)
		source = "文字"
	case bus.ContentImage:
		draft, done = d.handleImage(ctx, msg)
		source = "图片"
	case bus.ContentAudio:
		draft, done = d.handleAudio(ctx, msg)
		source = "语音"
	default:
		d.reporter.Text(msg, unsupportedNotice(string(msg.ContentType)))
		return
	}
	if done {
		return
	}

	if !draft.HasSchedule {
		d.reporter.NoSchedule(msg, draft.Reason)
		return
	}

	resolved, err := schedule.Resolve(draft, d.loc, d.defaultDuration)
	if err != nil {
		logger.ErrorCF("dispatcher", "Draft resolution failed", map[string]interface{}{
			"message_id":     msg.MessageID,
			"correlation_id": msg.CorrelationID,
			"error":          err.Error(),
		})
		d.reporter.Text(msg, noticeGenericError)
		return
	}

	createCtx, cancel := context.WithTimeout(ctx, d.requestTimeout)
	defer cancel()
	outcome := d.creator.Create(createCtx, msg.SenderID, resolved)

	logger.InfoCF("dispatcher", "Pipeline finished", map[string]interface{}{
		"message_id":     msg.MessageID,
		"correlation_id": msg.CorrelationID,
		"outcome":        outcome.Kind.String(),
	})
	d.reporter.Outcome(msg, resolved, outcome, source)
}

// handleText extracts a draft from the message body. done=true means the
// flow already replied (or decided to stay silent).
func (d *Dispatcher) handleText(ctx context.Context, msg bus.InboundMessage) (*extract.ScheduleDraft, bool) {
	text := textFromContent(msg.Content)
	if strings.TrimSpace(text) == "" {
		logger.WarnCF("dispatcher", "Empty text message", map[string]interface{}{
			"message_id": msg.MessageID,
		})
		return nil, true
	}
	return d.extractFromText(ctx, msg, text)
}

// handleImage downloads the image and extracts a draft, preferring the
// merged vision extraction and falling back to OCR plus text extraction
// when the direct draft is unusable.
func (d *Dispatcher) handleImage(ctx context.Context, msg bus.InboundMessage) (*extract.ScheduleDraft, bool) {
	if d.vision == nil {
		d.reporter.Text(msg, unsupportedNotice("image"))
		return nil, true
	}
	fileKey := msg.FileKey
	if fileKey == "" {
		fileKey = fileKeyFromContent(msg.Content)
	}
	if fileKey == "" {
		logger.WarnCF("dispatcher", "Image message without file key", map[string]interface{}{
			"message_id": msg.MessageID,
		})
		return nil, true
	}

	dlCtx, cancel := context.WithTimeout(ctx, d.downloadTimeout)
	defer cancel()
	image, err := d.fetcher.DownloadResource(dlCtx, msg.MessageID, fileKey, "image")
	if err != nil {
		logger.ErrorCF("dispatcher", "Image download failed", map[string]interface{}{
			"message_id": msg.MessageID,
			"error":      err.Error(),
		})
		d.reporter.Text(msg, noticeImageDownload)
		return nil, true
	}

	exCtx, cancel := context.WithTimeout(ctx, d.requestTimeout)
	defer cancel()
	draft, err := d.vision.ExtractScheduleFromImage(exCtx, image)
	if err == nil {
		return draft, false
	}
	logger.WarnCF("dispatcher", "Vision extraction failed, trying OCR path", map[string]interface{}{
		"message_id": msg.MessageID,
		"error":      err.Error(),
	})

	ocrCtx, cancel := context.WithTimeout(ctx, d.requestTimeout)
	defer cancel()
	text, err := d.vision.OCRImage(ocrCtx, image)
	if err != nil || strings.TrimSpace(text) == "" {
		d.reporter.Text(msg, noticeOCREmpty)
		return nil, true
	}
	return d.extractFromText(ctx, msg, text)
}

// handleAudio downloads the voice file and runs it through the speech
// recognizer; an unconfigured recognizer reports the feature as unavailable.
func (d *Dispatcher) handleAudio(ctx context.Context, msg bus.InboundMessage) (*extract.ScheduleDraft, bool) {
	if d.speech == nil {
		d.reporter.Text(msg, noticeSpeechDisabled)
		return nil, true
	}
	fileKey := msg.FileKey
	if fileKey == "" {
		fileKey = fileKeyFromContent(msg.Content)
	}
	if fileKey == "" {
		logger.WarnCF("dispatcher", "Audio message without file key", map[string]interface{}{
			"message_id": msg.MessageID,
		})
		return nil, true
	}

	dlCtx, cancel := context.WithTimeout(ctx, d.downloadTimeout)
	defer cancel()
	audio, err := d.fetcher.DownloadResource(dlCtx, msg.MessageID, fileKey, "file")
	if err != nil {
		logger.ErrorCF("dispatcher", "Audio download failed", map[string]interface{}{
			"message_id": msg.MessageID,
			"error":      err.Error(),
		})
		d.reporter.Text(msg, noticeAudioDownload)
		return nil, true
	}

	trCtx, cancel := context.WithTimeout(ctx, d.requestTimeout)
	defer cancel()
	text, err := d.speech.Transcribe(trCtx, audio)
	if err != nil || strings.TrimSpace(text) == "" {
		logger.WarnCF("dispatcher", "Transcription unavailable", map[string]interface{}{
			"message_id": msg.MessageID,
		})
		d.reporter.Text(msg, noticeSpeechDisabled)
		return nil, true
	}
	return d.extractFromText(ctx, msg, text)
}

func (d *Dispatcher) extractFromText(ctx context.Context, msg bus.InboundMessage, text string) (*extract.ScheduleDraft, bool) {
	exCtx, cancel := context.WithTimeout(ctx, d.requestTimeout)
	defer cancel()
	draft, err := d.text.ExtractSchedule(exCtx, text)
	if err != nil {
		logger.ErrorCF("dispatcher", "Extraction failed", map[string]interface{}{
			"message_id": msg.MessageID,
			"error":      err.Error(),
		})
		if errors.Is(err, extract.ErrMalformedDraft) {
			d.reporter.NoSchedule(msg, "无法识别日程信息")
		} else {
			d.reporter.Text(msg, noticeGenericError)
		}
		return nil, true
	}
	return draft, false
}

func unsupportedNotice(contentType string) string {
	return fmt.Sprintf(noticeUnsupportedType, contentType)
}

// textFromContent pulls the text body out of a Feishu message content blob.
// Non-JSON content is taken as the text itself (console channel).
func textFromContent(raw string) string {
	var v struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v.Text
}

// fileKeyFromContent pulls the resource key out of image/audio content.
func fileKeyFromContent(raw string) string {
	var v struct {
		ImageKey string `json:"image_key"`
		FileKey  string `json:"file_key"`
	}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return ""
	}
	if v.ImageKey != "" {
		return v.ImageKey
	}
	return v.FileKey
}
