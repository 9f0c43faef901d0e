// Package feishu is a typed client for the Feishu open-platform REST API:
// tenant token issuing with a process-wide cache, messaging, message resource
// download, and the calendar v4 operations the bot needs.
package feishu

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/skylarkbot/skylark/pkg/logger"
)

// Named error kinds. Callers branch with errors.Is instead of probing
// upstream payloads.
var (
	ErrAuth           = errors.New("feishu auth failed")
	ErrDownload       = errors.New("feishu resource download failed")
	ErrCalendarQuery  = errors.New("feishu calendar query failed")
	ErrCalendarCreate = errors.New("feishu calendar create failed")
	ErrAttendeeEnroll = errors.New("feishu attendee enroll failed")
	ErrAPI            = errors.New("feishu api error")
)

// envelope is the common response wrapper: code 0 means success.
type envelope struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (e *envelope) ok() bool { return e.Code == 0 }

// Client is the Feishu REST client. One instance per process; safe for
// concurrent use.
type Client struct {
	http      *resty.Client
	appID     string
	appSecret string
	tokens    *tokenCache
}

// NewClient builds a client for the given app identity. timeout bounds every
// HTTP call; tighter per-call deadlines come in through contexts.
func NewClient(apiBase, appID, appSecret string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		http:      resty.New().SetBaseURL(apiBase).SetTimeout(timeout),
		appID:     appID,
		appSecret: appSecret,
	}
	c.tokens = newTokenCache(c.issueTenantToken)
	return c
}

// TenantToken returns a cached tenant access token, refreshing when expired.
func (c *Client) TenantToken(ctx context.Context) (string, error) {
	return c.tokens.get(ctx)
}

// issueTenantToken performs the blocking credential call.
func (c *Client) issueTenantToken(ctx context.Context) (string, time.Duration, error) {
	var out struct {
		envelope
		TenantAccessToken string `json:"tenant_access_token"`
		Expire            int    `json:"expire"` // seconds
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"app_id": c.appID, "app_secret": c.appSecret}).
		SetResult(&out).
		Post("/open-apis/auth/v3/tenant_access_token/internal")
	if err != nil {
		return "", 0, err
	}
	if resp.IsError() || !out.ok() {
		return "", 0, fmt.Errorf("token endpoint code=%d msg=%q status=%d", out.Code, out.Msg, resp.StatusCode())
	}
	if out.TenantAccessToken == "" {
		return "", 0, errors.New("token endpoint returned empty token")
	}
	return out.TenantAccessToken, time.Duration(out.Expire) * time.Second, nil
}

// ReplyText replies to a message with plain text.
func (c *Client) ReplyText(ctx context.Context, messageID, text string) error {
	content, _ := json.Marshal(map[string]string{"text": text})
	return c.reply(ctx, messageID, "text", string(content))
}

// ReplyCard replies to a message with an interactive card.
func (c *Client) ReplyCard(ctx context.Context, messageID, cardJSON string) error {
	return c.reply(ctx, messageID, "interactive", cardJSON)
}

func (c *Client) reply(ctx context.Context, messageID, msgType, content string) error {
	token, err := c.TenantToken(ctx)
	if err != nil {
		return err
	}
	var out envelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(map[string]string{"msg_type": msgType, "content": content}).
		SetResult(&out).
		Post("/open-apis/im/v1/messages/" + messageID + "/reply")
	if err != nil {
		return fmt.Errorf("%w: reply: %v", ErrAPI, err)
	}
	if resp.IsError() || !out.ok() {
		return fmt.Errorf("%w: reply code=%d msg=%q", ErrAPI, out.Code, out.Msg)
	}
	return nil
}

// SendText sends a standalone text message to a chat.
func (c *Client) SendText(ctx context.Context, chatID, text string) error {
	token, err := c.TenantToken(ctx)
	if err != nil {
		return err
	}
	content, _ := json.Marshal(map[string]string{"text": text})
	var out envelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParam("receive_id_type", "chat_id").
		SetBody(map[string]string{
			"receive_id": chatID,
			"msg_type":   "text",
			"content":    string(content),
		}).
		SetResult(&out).
		Post("/open-apis/im/v1/messages")
	if err != nil {
		return fmt.Errorf("%w: send: %v", ErrAPI, err)
	}
	if resp.IsError() || !out.ok() {
		return fmt.Errorf("%w: send code=%d msg=%q", ErrAPI, out.Code, out.Msg)
	}
	return nil
}

// DownloadResource fetches a file (image or audio) attached to a message.
// fileType is the platform's resource type: "image" or "file".
func (c *Client) DownloadResource(ctx context.Context, messageID, fileKey, fileType string) ([]byte, error) {
	token, err := c.TenantToken(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParam("type", fileType).
		Get("/open-apis/im/v1/messages/" + messageID + "/resources/" + fileKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownload, err)
	}
	if resp.IsError() {
		var out envelope
		_ = json.Unmarshal(resp.Body(), &out)
		return nil, fmt.Errorf("%w: code=%d msg=%q status=%d", ErrDownload, out.Code, out.Msg, resp.StatusCode())
	}
	body := resp.Body()
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrDownload)
	}
	logger.DebugCF("feishu", "Resource downloaded", map[string]interface{}{
		"message_id": messageID,
		"bytes":      len(body),
	})
	return body, nil
}
