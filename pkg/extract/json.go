package extract

import (
	"encoding/json"
	"fmt"
	"strings"
)

// cleanJSON strips markdown code fences and surrounding prose from a model
// response, keeping only the outermost JSON object. Models occasionally wrap
// their output despite being told not to.
func cleanJSON(s string) string {
	if i := strings.Index(s, "```json"); i != -1 {
		s = s[i+len("```json"):]
		if j := strings.Index(s, "```"); j != -1 {
			s = s[:j]
		}
	} else if i := strings.Index(s, "```"); i != -1 {
		s = s[i+3:]
		if j := strings.Index(s, "```"); j != -1 {
			s = s[:j]
		}
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start != -1 && end > start {
		s = s[start : end+1]
	}
	return strings.TrimSpace(s)
}

// decodeDraft parses a model response into a validated ScheduleDraft.
func decodeDraft(raw string) (*ScheduleDraft, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: empty model response", ErrMalformedDraft)
	}

	var draft ScheduleDraft
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &draft); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDraft, err)
	}
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	return &draft, nil
}
