package slackbot

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"
)

const userCacheTTL = 30 * time.Minute

type cachedMention struct {
	mention   string
	fetchedAt time.Time
}

type mentionCache struct {
	sync.Mutex
	byEmail map[string]cachedMention
}

func newMentionCache() *mentionCache {
	return &mentionCache{byEmail: make(map[string]cachedMention)}
}

// Mentions maps Opsgenie usernames (email addresses) to Slack mentions.
// Usernames that are not emails, or that Slack does not know, map to
// themselves.
func (p *Poster) Mentions(ctx context.Context, usernames []string) map[string]string {
	out := make(map[string]string, len(usernames))
	for _, username := range usernames {
		if _, done := out[username]; done {
			continue
		}
		out[username] = p.mention(ctx, username)
	}
	return out
}

func (p *Poster) mention(ctx context.Context, username string) string {
	email := strings.ToLower(strings.TrimSpace(username))
	if !strings.Contains(email, "@") {
		return username
	}

	p.mentions.Lock()
	defer p.mentions.Unlock()
	if c, ok := p.mentions.byEmail[email]; ok && time.Since(c.fetchedAt) < userCacheTTL {
		return c.mention
	}

	mention := username
	user, err := p.api.GetUserByEmailContext(ctx, email)
	if err != nil {
		log.Printf("slack user lookup failed email=%s err=%v", email, err)
	} else if user != nil && user.ID != "" {
		mention = "<@" + user.ID + ">"
	}
	p.mentions.byEmail[email] = cachedMention{mention: mention, fetchedAt: time.Now()}
	return mention
}
