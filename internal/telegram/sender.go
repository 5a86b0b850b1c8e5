// Package telegram is a thin Bot API client used by the in-process
// dispatcher to deliver outbox events to registered chats.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultBaseURL     = "https://api.telegram.org"
	defaultSendTimeout = 10 * time.Second
)

// Sender delivers one text message to one chat.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// BotSender calls the Telegram Bot API sendMessage method.
type BotSender struct {
	client  *resty.Client
	baseURL string
	token   string
}

func NewBotSender(token string) (*BotSender, error) {
	return NewBotSenderWithBaseURL(token, defaultBaseURL)
}

func NewBotSenderWithBaseURL(token, baseURL string) (*BotSender, error) {
	trimmedToken := strings.TrimSpace(token)
	if trimmedToken == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}

	client := resty.New()
	client.SetTimeout(defaultSendTimeout)
	client.SetRetryCount(0)

	return &BotSender{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   trimmedToken,
	}, nil
}

type sendMessageRequest struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

func (s *BotSender) SendMessage(ctx context.Context, chatID int64, text string) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("sender is not initialized")
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.token)
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(sendMessageRequest{ChatID: chatID, Text: text}).
		Post(url)
	if err != nil {
		return fmt.Errorf("telegram send failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("telegram send returned status %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}

	return nil
}
