package extract

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/skylarkbot/skylark/pkg/logger"
)

// DoubaoProvider extracts schedules through the Ark (Doubao) OpenAI-compatible
// API. The same account serves both the text model and the vision model.
type DoubaoProvider struct {
	client      openai.Client
	model       string
	visionModel string
	now         func() time.Time
}

// NewDoubaoProvider creates a provider against the given Ark endpoint.
func NewDoubaoProvider(apiKey, baseURL, model, visionModel string) *DoubaoProvider {
	return &DoubaoProvider{
		client:      openai.NewClient(option.WithAPIKey(apiKey), option.WithBaseURL(baseURL)),
		model:       model,
		visionModel: visionModel,
		now:         time.Now,
	}
}

// ExtractSchedule asks the text model for a schedule draft.
func (p *DoubaoProvider) ExtractSchedule(ctx context.Context, text string) (*ScheduleDraft, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(SystemPrompt(p.now())),
			openai.UserMessage("请从以下文本中提取日程信息：\n\n" + text),
		},
		Temperature: openai.Float(0.1),
		MaxTokens:   openai.Int(1000),
	})
	if err != nil {
		return nil, fmt.Errorf("doubao extract: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", ErrMalformedDraft)
	}
	return decodeDraft(resp.Choices[0].Message.Content)
}

// ExtractScheduleFromImage sends the image straight to the vision model and
// decodes a draft from the response (merged OCR + extraction).
func (p *DoubaoProvider) ExtractScheduleFromImage(ctx context.Context, image []byte) (*ScheduleDraft, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.visionModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(VisionPrompt(p.now())),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: dataURL(image),
				}),
			}),
		},
		MaxTokens: openai.Int(1000),
	})
	if err != nil {
		return nil, fmt.Errorf("doubao vision extract: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", ErrMalformedDraft)
	}
	raw := resp.Choices[0].Message.Content
	logger.DebugCF("extract", "Vision model response", map[string]interface{}{
		"length": len(raw),
	})
	return decodeDraft(raw)
}

// OCRImage asks the vision model for the plain text visible in the image.
func (p *DoubaoProvider) OCRImage(ctx context.Context, image []byte) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.visionModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(ocrPrompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: dataURL(image),
				}),
			}),
		},
		MaxTokens: openai.Int(2000),
	})
	if err != nil {
		return "", fmt.Errorf("doubao ocr: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("doubao ocr: no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

func dataURL(image []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(image)
}

var (
	_ Extractor       = (*DoubaoProvider)(nil)
	_ VisionExtractor = (*DoubaoProvider)(nil)
)
