package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"humpday-trader/internal/interfaces"
	"humpday-trader/internal/types"
)

// Telegram sends markdown messages and photos to mapped chat ids.
type Telegram struct {
	bot   *tgbot.BotAPI
	chats map[string]int64
}

var _ interfaces.Notifier = (*Telegram)(nil)

// NewTelegram authenticates the bot. endpoint is a Bot API format string
// such as tgbot.APIEndpoint; empty uses the default.
func NewTelegram(token, endpoint string, chats map[string]int64) (*Telegram, error) {
	if token == "" {
		return nil, errors.New("telegram: bot token is required")
	}
	if endpoint == "" {
		endpoint = tgbot.APIEndpoint
	}
	b, err := tgbot.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return &Telegram{bot: b, chats: chats}, nil
}

func (t *Telegram) chatID(channel string) (int64, error) {
	id, ok := t.chats[channel]
	if !ok || id == 0 {
		return 0, fmt.Errorf("telegram: no chat configured for channel %q", channel)
	}
	return id, nil
}

func messageText(msg types.Message) string {
	var parts []string
	if msg.Intro != "" {
		parts = append(parts, msg.Intro)
	}
	if msg.Header != "" {
		parts = append(parts, "*"+msg.Header+"*")
	}
	if msg.Body != "" {
		parts = append(parts, msg.Body)
	}
	return strings.Join(parts, "\n\n")
}

func (t *Telegram) PostMessage(ctx context.Context, channel string, msg types.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id, err := t.chatID(channel)
	if err != nil {
		return err
	}
	m := tgbot.NewMessage(id, messageText(msg))
	m.ParseMode = tgbot.ModeMarkdown
	m.DisableWebPagePreview = true
	if _, err := t.bot.Send(m); err != nil {
		return fmt.Errorf("telegram send to %s: %w", channel, err)
	}
	return nil
}

func (t *Telegram) PostImage(ctx context.Context, channel string, img types.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id, err := t.chatID(channel)
	if err != nil {
		return err
	}
	photo := tgbot.NewPhoto(id, tgbot.FileBytes{Name: img.Filename, Bytes: img.Data})
	photo.Caption = img.Title
	if _, err := t.bot.Send(photo); err != nil {
		return fmt.Errorf("telegram photo to %s: %w", channel, err)
	}
	return nil
}
