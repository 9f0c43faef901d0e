package feishu

import (
	"encoding/json"
	"fmt"
	"time"
)

// Interactive card builders. The JSON shapes follow the open-platform card
// schema; both cards share the time/location body and differ in header and
// button.

type cardText struct {
	Tag     string `json:"tag"`
	Content string `json:"content"`
}

func mdBlock(content string) map[string]interface{} {
	return map[string]interface{}{
		"tag":  "div",
		"text": cardText{Tag: "lark_md", Content: content},
	}
}

func buttonAction(label, buttonType, url string) map[string]interface{} {
	return map[string]interface{}{
		"tag": "action",
		"actions": []map[string]interface{}{
			{
				"tag":  "button",
				"text": cardText{Tag: "plain_text", Content: label},
				"type": buttonType,
				"url":  url,
			},
		},
	}
}

func noteBlock(content string) map[string]interface{} {
	return map[string]interface{}{
		"tag":      "note",
		"elements": []cardText{{Tag: "plain_text", Content: content}},
	}
}

func scheduleBody(title string, start, end time.Time, location string) []map[string]interface{} {
	elements := []map[string]interface{}{
		mdBlock(fmt.Sprintf("**📅 %s**", title)),
		mdBlock(fmt.Sprintf("🕐 **时间**: %s - %s",
			start.Format("2006-01-02 15:04"), end.Format("15:04"))),
	}
	if location != "" {
		elements = append(elements, mdBlock(fmt.Sprintf("📍 **地点**: %s", location)))
	}
	return elements
}

func renderCard(headerTemplate, headerTitle string, elements []map[string]interface{}) string {
	card := map[string]interface{}{
		"config": map[string]bool{"wide_screen_mode": true},
		"header": map[string]interface{}{
			"template": headerTemplate,
			"title":    cardText{Tag: "plain_text", Content: headerTitle},
		},
		"elements": elements,
	}
	data, _ := json.Marshal(card)
	return string(data)
}

// CreatedCard is the success card: event details plus a view-details button.
// source describes where the schedule was recognized from ("文字", "图片", "语音").
func CreatedCard(title string, start, end time.Time, location, source, detailURL string) string {
	elements := scheduleBody(title, start, end, location)
	elements = append(elements, map[string]interface{}{"tag": "hr"})
	if detailURL != "" {
		elements = append(elements, buttonAction("📅 查看日程详情", "primary", detailURL))
	}
	elements = append(elements, noteBlock(fmt.Sprintf("从%s中识别并自动创建", source)))
	return renderCard("green", "✅ 日程创建成功", elements)
}

// FallbackCard is the degraded-mode card: automated creation failed, the
// button opens a pre-filled manual create form.
func FallbackCard(title string, start, end time.Time, location, source string) string {
	elements := scheduleBody(title, start, end, location)
	elements = append(elements, map[string]interface{}{"tag": "hr"})
	elements = append(elements, buttonAction("📅 添加到日历", "primary",
		CreateEventLink(title, start, end, location)))
	elements = append(elements, noteBlock(fmt.Sprintf("从%s中识别 · 点击按钮即可添加到您的日历", source)))
	return renderCard("blue", "📋 识别到日程信息", elements)
}
