package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ErrChatNotLinked is returned when a participant never started a chat with
// the bot, so there is nowhere to deliver a message.
var ErrChatNotLinked = errors.New("telegram chat is not linked")

type Config struct {
	Token string
	// Endpoint overrides the Bot API URL template, "%s" placeholders for the
	// token and the method.
	Endpoint string
}

type Bot struct {
	api *tgbotapi.BotAPI
}

func NewBot(cfg Config, httpClient *http.Client) (*Bot, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, fmt.Errorf("telegram bot token is empty")
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot api: %w", err)
	}

	return &Bot{api: api}, nil
}

func (b *Bot) Username() string {
	if b == nil || b.api == nil {
		return ""
	}
	return b.api.Self.UserName
}

// SendText delivers a plain message. The Bot API client has no context
// support, so ctx is only checked before the call.
func (b *Bot) SendText(ctx context.Context, chatID int64, text string) error {
	if b == nil || b.api == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}
	if chatID == 0 {
		return ErrChatNotLinked
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("message text is empty")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}
