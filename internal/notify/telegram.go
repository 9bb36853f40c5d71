package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

const sendTimeout = 10 * time.Second

// Telegram posts notifications to the Telegram Bot API. Each account can
// route to its own chat; accounts without one fall back to the default chat.
type Telegram struct {
	baseURL     string
	defaultChat string
	chats       map[string]string
	client      *retryablehttp.Client
	log         *zap.SugaredLogger
}

// NewTelegram builds a sink for the given bot token. chats maps account ids
// to chat ids.
func NewTelegram(token, defaultChat string, chats map[string]string, log *zap.SugaredLogger) *Telegram {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMin = time.Second
	client.RetryWaitMax = 3 * time.Second
	client.HTTPClient.Timeout = sendTimeout
	client.Logger = nil
	return &Telegram{
		baseURL:     "https://api.telegram.org/bot" + token,
		defaultChat: defaultChat,
		chats:       chats,
		client:      client,
		log:         log,
	}
}

// WithBaseURL points the sink at a different API endpoint. Used in tests.
func (t *Telegram) WithBaseURL(u string) *Telegram {
	t.baseURL = strings.TrimRight(u, "/")
	return t
}

// Notify sends asynchronously and never blocks the caller. The send uses its
// own deadline so a cancelled booking context cannot abort an already
// emitted notification.
func (t *Telegram) Notify(_ context.Context, accountID, message string) {
	chat := t.chats[accountID]
	if chat == "" {
		chat = t.defaultChat
	}
	if chat == "" {
		t.log.Debugw("telegram notification dropped, no chat configured", "account", accountID)
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := t.send(ctx, chat, message); err != nil {
			t.log.Warnw("telegram send failed", "account", accountID, "error", err)
		}
	}()
}

func (t *Telegram) send(ctx context.Context, chatID, text string) error {
	body, err := json.Marshal(map[string]string{
		"chat_id": chatID,
		"text":    text,
	})
	if err != nil {
		return err
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, "POST", t.baseURL+"/sendMessage", body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return fmt.Errorf("telegram: unexpected status %d", resp.StatusCode)
	}
	return nil
}
