package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/slack-go/slack"

	"humpday-trader/internal/interfaces"
	"humpday-trader/internal/logger"
	"humpday-trader/internal/types"
)

// Slack posts block messages and uploads charts. Channel names are mapped
// to ids, which file uploads require.
type Slack struct {
	client   *slack.Client
	channels map[string]string
}

var _ interfaces.Notifier = (*Slack)(nil)

// NewSlack creates a sink. apiURL is only set by tests.
func NewSlack(token, apiURL string, channels map[string]string) (*Slack, error) {
	if token == "" {
		return nil, errors.New("slack: bot token is required")
	}
	var opts []slack.Option
	if apiURL != "" {
		opts = append(opts, slack.OptionAPIURL(apiURL))
	}
	return &Slack{client: slack.New(token, opts...), channels: channels}, nil
}

func (s *Slack) channelID(name string) string {
	if id, ok := s.channels[name]; ok {
		return id
	}
	return name
}

func messageBlocks(msg types.Message) []slack.Block {
	var blocks []slack.Block
	if msg.Intro != "" {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.PlainTextType, msg.Intro, true, false), nil, nil))
	}
	if msg.Header != "" {
		blocks = append(blocks, slack.NewHeaderBlock(
			slack.NewTextBlockObject(slack.PlainTextType, msg.Header, true, false)))
	}
	blocks = append(blocks, slack.NewDividerBlock())
	if msg.Body != "" {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, msg.Body, false, false), nil, nil))
	}
	return blocks
}

func (s *Slack) PostMessage(ctx context.Context, channel string, msg types.Message) error {
	id := s.channelID(channel)
	_, ts, err := s.client.PostMessageContext(ctx, id,
		slack.MsgOptionBlocks(messageBlocks(msg)...),
		slack.MsgOptionText(msg.Fallback, false),
	)
	if err != nil {
		return fmt.Errorf("slack post to %s: %w", channel, err)
	}
	logger.Debug(ctx, "Slack message posted", "channel", channel, "ts", ts)
	return nil
}

func (s *Slack) PostImage(ctx context.Context, channel string, img types.Image) error {
	_, err := s.client.UploadFileV2Context(ctx, slack.UploadFileV2Parameters{
		Reader:   bytes.NewReader(img.Data),
		FileSize: len(img.Data),
		Filename: img.Filename,
		Title:    img.Title,
		Channel:  s.channelID(channel),
	})
	if err != nil {
		return fmt.Errorf("slack upload %s to %s: %w", img.Filename, channel, err)
	}
	return nil
}
