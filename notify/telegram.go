// Package notify delivers bot events to a Telegram chat through a
// prioritized, rate-limited queue.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultBaseURL is the Telegram Bot API endpoint.
const DefaultBaseURL = "https://api.telegram.org"

var ErrNoCredentials = errors.New("telegram token or chat id missing")

// Telegram is a minimal Bot API client.
type Telegram struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type TelegramOption func(*Telegram)

func WithBaseURL(u string) TelegramOption {
	return func(t *Telegram) { t.baseURL = u }
}

func WithHTTPClient(c *http.Client) TelegramOption {
	return func(t *Telegram) { t.httpClient = c }
}

func NewTelegram(token string, opts ...TelegramOption) *Telegram {
	t := &Telegram{
		baseURL: DefaultBaseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// apiResponse is the envelope every Bot API method returns.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

func (t *Telegram) call(ctx context.Context, method string, payload any) (json.RawMessage, error) {
	if t.token == "" {
		return nil, ErrNoCredentials
	}

	var body io.Reader
	httpMethod := http.MethodGet
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", method, err)
		}
		body = bytes.NewReader(data)
		httpMethod = http.MethodPost
	}

	apiURL := fmt.Sprintf("%s/bot%s/%s", t.baseURL, t.token, method)
	req, err := http.NewRequestWithContext(ctx, httpMethod, apiURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("telegram %s: HTTP %d: %s", method, resp.StatusCode, bytes.TrimSpace(raw))
	}

	var env apiResponse
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", method, err)
	}
	if !env.OK {
		return nil, fmt.Errorf("telegram %s: %s", method, env.Description)
	}
	return env.Result, nil
}

// GetMe verifies the token and returns the bot's username.
func (t *Telegram) GetMe(ctx context.Context) (string, error) {
	res, err := t.call(ctx, "getMe", nil)
	if err != nil {
		return "", err
	}
	var me struct {
		Username string `json:"username"`
	}
	if err := json.Unmarshal(res, &me); err != nil {
		return "", fmt.Errorf("decode getMe result: %w", err)
	}
	return me.Username, nil
}

// SendMessage posts text as Markdown with link previews off.
func (t *Telegram) SendMessage(ctx context.Context, chatID, text string) error {
	if chatID == "" {
		return ErrNoCredentials
	}
	_, err := t.call(ctx, "sendMessage", sendMessageRequest{
		ChatID:                chatID,
		Text:                  text,
		ParseMode:             "Markdown",
		DisableWebPagePreview: true,
	})
	return err
}
