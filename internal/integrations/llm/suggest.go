package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"slices"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"geniereport/internal/config"
	"geniereport/internal/domain"
	"geniereport/internal/httpx"
	"geniereport/internal/tagging"
)

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"
const maxMessageChars = 2000

type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

var callAnthropicFn = callAnthropic

// Suggester proposes a business unit tag for an alert. Suggestions below the
// confidence threshold, or naming a tag outside the offered choices, become
// skips so nothing is tagged on a guess.
type Suggester struct {
	apiKey    string
	model     string
	threshold float64
	usage     Usage
}

func NewSuggester(cfg config.Config) *Suggester {
	model := cfg.LLMModel
	if model == "" {
		model = defaultAnthropicModel
	}
	return &Suggester{apiKey: cfg.AnthropicAPIKey, model: model, threshold: cfg.LLMConfidence}
}

func (s *Suggester) Usage() Usage {
	return s.usage
}

type suggestion struct {
	Tag        string  `json:"tag"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// Decide is a tagging.DecideFunc. API failures are logged and turned into a
// skip for that alert.
func (s *Suggester) Decide(ctx context.Context, alert domain.Alert, choices []string) (tagging.Decision, error) {
	candidates := slices.DeleteFunc(slices.Clone(choices), func(c string) bool { return c == tagging.SkipChoice })
	systemPrompt, userPrompt := buildSuggestPrompts(alert, candidates)

	log.Printf("llm tag-suggest provider=anthropic model=%s alert=%s", s.model, alert.ID)
	text, usage, err := callAnthropicFn(ctx, s.apiKey, s.model, systemPrompt, userPrompt)
	s.usage.Add(usage)
	if err != nil {
		log.Printf("llm tag-suggest failed alert=%s err=%v", alert.ID, err)
		return tagging.Decision{Skip: true, Reason: "suggestion failed"}, nil
	}

	sug, err := parseSuggestion(text)
	if err != nil {
		log.Printf("llm tag-suggest unparseable alert=%s err=%v", alert.ID, err)
		return tagging.Decision{Skip: true, Reason: "unparseable suggestion"}, nil
	}
	if !slices.Contains(candidates, sug.Tag) {
		return tagging.Decision{Skip: true, Reason: fmt.Sprintf("suggested unknown tag '%s'", sug.Tag)}, nil
	}
	if sug.Confidence < s.threshold {
		return tagging.Decision{Skip: true, Reason: fmt.Sprintf("low confidence %.2f for %s", sug.Confidence, sug.Tag)}, nil
	}
	reason := fmt.Sprintf("confidence %.2f", sug.Confidence)
	if sug.Reason != "" {
		reason += ": " + sug.Reason
	}
	return tagging.Decision{Tag: sug.Tag, Reason: reason}, nil
}

func buildSuggestPrompts(alert domain.Alert, candidates []string) (string, string) {
	var sys strings.Builder
	sys.WriteString("You assign Opsgenie alerts to the business unit that owns the affected service.\n")
	sys.WriteString("Pick exactly one tag from this list:\n")
	for _, c := range candidates {
		sys.WriteString("- " + c + "\n")
	}
	sys.WriteString("\nRespond with JSON only: {\"tag\": \"<one of the tags>\", \"confidence\": <0..1>, \"reason\": \"<short reason>\"}.\n")
	sys.WriteString("Use a low confidence when the alert gives no clear hint.")

	message := httpx.Truncate(alert.Message, maxMessageChars)
	var user strings.Builder
	fmt.Fprintf(&user, "Message: %s\n", message)
	if alert.Owner != "" {
		fmt.Fprintf(&user, "Owner: %s\n", alert.Owner)
	}
	if len(alert.Tags) > 0 {
		fmt.Fprintf(&user, "Existing tags: %s\n", strings.Join(alert.Tags, ", "))
	}
	return sys.String(), user.String()
}

func parseSuggestion(responseText string) (suggestion, error) {
	responseText = strings.TrimSpace(responseText)
	responseText = strings.TrimPrefix(responseText, "```json")
	responseText = strings.TrimPrefix(responseText, "```")
	responseText = strings.TrimSuffix(responseText, "```")
	responseText = strings.TrimSpace(responseText)

	var s suggestion
	if err := json.Unmarshal([]byte(responseText), &s); err != nil {
		return suggestion{}, fmt.Errorf("parsing LLM suggestion: %w (response: %s)", err, responseText)
	}
	s.Tag = strings.TrimSpace(s.Tag)
	return s, nil
}

func callAnthropic(ctx context.Context, apiKey, model, systemPrompt, userPrompt string) (string, Usage, error) {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpx.ExternalHTTPClient()),
	)

	message, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: 512,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return "", Usage{}, fmt.Errorf("Anthropic API error: %w", err)
	}
	usage := Usage{InputTokens: message.Usage.InputTokens, OutputTokens: message.Usage.OutputTokens}
	for _, block := range message.Content {
		if block.Type == "text" {
			log.Printf("llm anthropic response size=%d tokens_in=%d tokens_out=%d", len(block.Text), usage.InputTokens, usage.OutputTokens)
			return block.Text, usage, nil
		}
	}
	return "", usage, fmt.Errorf("no text content in Anthropic response")
}
