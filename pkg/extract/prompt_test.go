package extract

import (
	"strings"
	"testing"
	"time"
)

// TestTodayContext verifies the date line models use to resolve relative
// dates.
func TestTodayContext(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want string
	}{
		{
			name: "sunday",
			now:  time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
			want: "2026年08月30日 星期日",
		},
		{
			name: "single digit month and day",
			now:  time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
			want: "2026年01月05日 星期一",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := todayContext(tt.now); got != tt.want {
				t.Errorf("todayContext = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestPromptsCarryDate verifies both prompts embed the rendered date.
func TestPromptsCarryDate(t *testing.T) {
	now := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	date := todayContext(now)

	if p := SystemPrompt(now); !strings.Contains(p, date) {
		t.Errorf("system prompt missing date %q", date)
	}
	if p := VisionPrompt(now); !strings.Contains(p, date) {
		t.Errorf("vision prompt missing date %q", date)
	}
}
