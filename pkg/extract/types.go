// Package extract turns raw user content (text, screenshots, transcripts)
// into structured schedule drafts using an LLM provider. The providers are
// interchangeable; the pipeline only sees the interfaces below.
package extract

import (
	"context"
	"errors"
	"fmt"
)

// ScheduleDraft is the extractor's verdict on a piece of content. When
// HasSchedule is false only Reason is meaningful. Never mutated after decode.
type ScheduleDraft struct {
	HasSchedule  bool     `json:"has_schedule"`
	Title        string   `json:"title,omitempty"`
	Date         string   `json:"date,omitempty"`       // YYYY-MM-DD
	StartTime    string   `json:"start_time,omitempty"` // HH:MM
	EndTime      string   `json:"end_time,omitempty"`   // HH:MM, optional
	Location     string   `json:"location,omitempty"`
	Participants []string `json:"participants,omitempty"`
	Confidence   float64  `json:"confidence,omitempty"`
	Reason       string   `json:"reason,omitempty"` // why no schedule was found
}

// ErrMalformedDraft signals a draft that claims has_schedule but is missing
// required fields, or provider output that is not decodable JSON at all.
var ErrMalformedDraft = errors.New("malformed schedule draft")

// Validate enforces the fields a positive draft must carry.
func (d *ScheduleDraft) Validate() error {
	if !d.HasSchedule {
		return nil
	}
	if d.Date == "" {
		return fmt.Errorf("%w: missing date", ErrMalformedDraft)
	}
	if d.StartTime == "" {
		return fmt.Errorf("%w: missing start_time", ErrMalformedDraft)
	}
	if d.Title == "" {
		d.Title = "日程"
	}
	return nil
}

// Extractor derives a schedule draft from plain text.
type Extractor interface {
	ExtractSchedule(ctx context.Context, text string) (*ScheduleDraft, error)
}

// VisionExtractor derives a schedule draft (or plain text) from image bytes.
type VisionExtractor interface {
	// ExtractScheduleFromImage reads the image and extracts a draft in one
	// call (merged OCR + extraction).
	ExtractScheduleFromImage(ctx context.Context, image []byte) (*ScheduleDraft, error)
	// OCRImage returns the raw text visible in the image.
	OCRImage(ctx context.Context, image []byte) (string, error)
}

// SpeechRecognizer turns audio bytes into text. It is optional; a nil
// recognizer means the audio channel reports "feature unavailable".
type SpeechRecognizer interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}
