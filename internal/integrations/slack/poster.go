package slackbot

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/slack-go/slack"

	"geniereport/internal/config"
)

// maxMessageChars keeps each post comfortably under Slack's block limit once
// wrapped in a code fence.
const maxMessageChars = 3500

// Poster sends rendered reports to one Slack channel.
type Poster struct {
	api       *slack.Client
	channelID string
	mentions  *mentionCache
}

func NewPoster(token, channelID string, opts ...slack.Option) *Poster {
	return &Poster{
		api:       slack.New(token, opts...),
		channelID: channelID,
		mentions:  newMentionCache(),
	}
}

func NewPosterFromConfig(cfg config.Config) (*Poster, error) {
	if err := cfg.RequireSlack(); err != nil {
		return nil, err
	}
	var opts []slack.Option
	if cfg.SlackAPIURL != "" {
		opts = append(opts, slack.OptionAPIURL(cfg.SlackAPIURL))
	}
	return NewPoster(cfg.SlackBotToken, cfg.SlackChannelID, opts...), nil
}

// Post sends text as one or more monospace messages, split on line
// boundaries.
func (p *Poster) Post(ctx context.Context, text string) error {
	chunks := splitMessage(strings.TrimRight(text, "\n"), maxMessageChars)
	for i, chunk := range chunks {
		_, ts, err := p.api.PostMessageContext(ctx, p.channelID, slack.MsgOptionText("```\n"+chunk+"\n```", false))
		if err != nil {
			return fmt.Errorf("posting to slack channel %s (part %d/%d): %w", p.channelID, i+1, len(chunks), err)
		}
		log.Printf("slack post done channel=%s part=%d/%d ts=%s", p.channelID, i+1, len(chunks), ts)
	}
	return nil
}

func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}
	var chunks []string
	var current strings.Builder
	for _, line := range strings.Split(text, "\n") {
		for len(line) > limit {
			if current.Len() > 0 {
				chunks = append(chunks, current.String())
				current.Reset()
			}
			chunks = append(chunks, line[:limit])
			line = line[limit:]
		}
		if current.Len() > 0 && current.Len()+1+len(line) > limit {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}
