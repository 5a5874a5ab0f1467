package slackbot

import (
	"context"
	"fmt"
	"log"

	"github.com/slack-go/slack"

	"feedbackapi/internal/config"
)

// Poster delivers a text message to the team channel.
type Poster interface {
	Post(ctx context.Context, text string) error
}

type Notifier struct {
	api       *slack.Client
	channelID string
}

func NewNotifier(api *slack.Client, channelID string) *Notifier {
	return &Notifier{api: api, channelID: channelID}
}

func (n *Notifier) Post(ctx context.Context, text string) error {
	_, ts, err := n.api.PostMessageContext(ctx, n.channelID, slack.MsgOptionText(text, false))
	if err != nil {
		log.Printf("slack post error channel=%s: %v", n.channelID, err)
		return fmt.Errorf("posting to slack: %w", err)
	}
	log.Printf("slack post channel=%s ts=%s size=%d", n.channelID, ts, len(text))
	return nil
}

// LogPoster stands in when Slack is not configured.
type LogPoster struct{}

func (LogPoster) Post(_ context.Context, text string) error {
	log.Printf("slack not configured, skipping post size=%d", len(text))
	return nil
}

// NewPoster returns a Slack-backed poster when a bot token and channel are
// configured, and a LogPoster otherwise.
func NewPoster(cfg config.Config) Poster {
	if !cfg.SlackConfigured() {
		return LogPoster{}
	}
	return NewNotifier(slack.New(cfg.SlackBotToken), cfg.SlackChannelID)
}
