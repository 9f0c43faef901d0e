package extract

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// ClaudeProvider is the alternative extractor backed by the Anthropic API.
// Selected with EXTRACTOR_PROVIDER=claude.
type ClaudeProvider struct {
	client anthropic.Client
	model  string
	now    func() time.Time
}

// NewClaudeProvider creates a provider. An empty model falls back to a
// current Sonnet release.
func NewClaudeProvider(apiKey, model string) *ClaudeProvider {
	if model == "" {
		model = "claude-sonnet-4-5"
	}
	return &ClaudeProvider{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		now:    time.Now,
	}
}

// ExtractSchedule asks the model for a schedule draft.
func (p *ClaudeProvider) ExtractSchedule(ctx context.Context, text string) (*ScheduleDraft, error) {
	msg, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: 1024,
		System:    []anthropic.TextBlockParam{{Text: SystemPrompt(p.now())}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("请从以下文本中提取日程信息：\n\n" + text)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("claude extract: %w", err)
	}
	return decodeDraft(textContent(msg))
}

// ExtractScheduleFromImage extracts a draft directly from image bytes.
func (p *ClaudeProvider) ExtractScheduleFromImage(ctx context.Context, image []byte) (*ScheduleDraft, error) {
	msg, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: 1024,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(VisionPrompt(p.now())),
				anthropic.NewImageBlockBase64("image/png", base64.StdEncoding.EncodeToString(image)),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("claude vision extract: %w", err)
	}
	return decodeDraft(textContent(msg))
}

// OCRImage returns the plain text visible in the image.
func (p *ClaudeProvider) OCRImage(ctx context.Context, image []byte) (string, error) {
	msg, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: 2048,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(ocrPrompt),
				anthropic.NewImageBlockBase64("image/png", base64.StdEncoding.EncodeToString(image)),
			),
		},
	})
	if err != nil {
		return "", fmt.Errorf("claude ocr: %w", err)
	}
	return textContent(msg), nil
}

func textContent(msg *anthropic.Message) string {
	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String()
}

var (
	_ Extractor       = (*ClaudeProvider)(nil)
	_ VisionExtractor = (*ClaudeProvider)(nil)
)
