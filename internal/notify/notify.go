// Package notify posts flow reports to chat.
package notify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"humpday-trader/internal/interfaces"
	"humpday-trader/internal/logger"
	"humpday-trader/internal/types"
)

type Params struct {
	// Sink is slack, telegram, both or log.
	Sink          string
	SlackToken    string
	SlackAPIURL   string
	SlackChannels map[string]string
	TelegramToken string
	// TelegramEndpoint overrides the Bot API endpoint format.
	TelegramEndpoint string
	TelegramChats    map[string]int64
	// ImageDir, when set, receives charts posted to the log sink.
	ImageDir string
}

// New builds the notifier selected by p.Sink.
func New(p Params) (interfaces.Notifier, error) {
	switch p.Sink {
	case "log", "":
		return NewLog(p.ImageDir), nil
	case "slack":
		return NewSlack(p.SlackToken, p.SlackAPIURL, p.SlackChannels)
	case "telegram":
		return NewTelegram(p.TelegramToken, p.TelegramEndpoint, p.TelegramChats)
	case "both":
		s, err := NewSlack(p.SlackToken, p.SlackAPIURL, p.SlackChannels)
		if err != nil {
			return nil, err
		}
		t, err := NewTelegram(p.TelegramToken, p.TelegramEndpoint, p.TelegramChats)
		if err != nil {
			return nil, err
		}
		return Multi{s, t}, nil
	}
	return nil, fmt.Errorf("unknown chat sink %q", p.Sink)
}

// Multi posts to every sink and joins their failures.
type Multi []interfaces.Notifier

var _ interfaces.Notifier = Multi(nil)

func (m Multi) PostMessage(ctx context.Context, channel string, msg types.Message) error {
	var errs []error
	for _, n := range m {
		if err := n.PostMessage(ctx, channel, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) PostImage(ctx context.Context, channel string, img types.Image) error {
	var errs []error
	for _, n := range m {
		if err := n.PostImage(ctx, channel, img); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Log writes reports to the structured log instead of chat.
type Log struct {
	imageDir string
}

var _ interfaces.Notifier = (*Log)(nil)

func NewLog(imageDir string) *Log {
	return &Log{imageDir: imageDir}
}

func (l *Log) PostMessage(ctx context.Context, channel string, msg types.Message) error {
	logger.Info(ctx, "Chat message",
		"channel", channel,
		"header", msg.Header,
		"intro", msg.Intro,
		"body", msg.Body)
	return nil
}

func (l *Log) PostImage(ctx context.Context, channel string, img types.Image) error {
	if l.imageDir == "" {
		logger.Info(ctx, "Chat image", "channel", channel, "title", img.Title, "bytes", len(img.Data))
		return nil
	}
	if err := os.MkdirAll(l.imageDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(l.imageDir, img.Filename)
	if err := os.WriteFile(path, img.Data, 0o644); err != nil {
		return err
	}
	logger.Info(ctx, "Chat image saved", "channel", channel, "title", img.Title, "path", path)
	return nil
}
