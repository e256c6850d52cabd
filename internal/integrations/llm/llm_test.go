package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"geniereport/internal/domain"
	"geniereport/internal/tagging"
)

func stubAnthropic(t *testing.T, response string, err error) *string {
	t.Helper()
	var gotUser string
	orig := callAnthropicFn
	callAnthropicFn = func(_ context.Context, _, _, system, user string) (string, Usage, error) {
		if !strings.Contains(system, "- govpress") || strings.Contains(system, "- skip") {
			t.Errorf("unexpected system prompt:\n%s", system)
		}
		gotUser = user
		return response, Usage{InputTokens: 100, OutputTokens: 20}, err
	}
	t.Cleanup(func() { callAnthropicFn = orig })
	return &gotUser
}

func newTestSuggester() *Suggester {
	return &Suggester{apiKey: "k", model: defaultAnthropicModel, threshold: 0.7}
}

var choices = []string{"deliveryplus", "govpress", tagging.SkipChoice}

func TestDecideAcceptsConfidentSuggestion(t *testing.T) {
	user := stubAnthropic(t, "```json\n{\"tag\":\"govpress\",\"confidence\":0.92,\"reason\":\"gov site\"}\n```", nil)
	s := newTestSuggester()

	d, err := s.Decide(context.Background(), domain.Alert{ID: "a1", Message: "gov.example down", Tags: []string{"prod"}}, choices)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.Skip || d.Tag != "govpress" || !strings.Contains(d.Reason, "0.92") {
		t.Fatalf("unexpected decision: %+v", d)
	}
	if !strings.Contains(*user, "gov.example down") || !strings.Contains(*user, "Existing tags: prod") {
		t.Fatalf("alert details missing from prompt:\n%s", *user)
	}
	if s.Usage().InputTokens != 100 {
		t.Fatalf("usage not tracked: %+v", s.Usage())
	}
}

func TestDecideSkips(t *testing.T) {
	tests := []struct {
		name     string
		response string
		err      error
		reason   string
	}{
		{name: "low confidence", response: `{"tag":"govpress","confidence":0.4}`, reason: "low confidence 0.40"},
		{name: "unknown tag", response: `{"tag":"marketing","confidence":0.99}`, reason: "unknown tag 'marketing'"},
		{name: "skip is not a tag", response: `{"tag":"skip","confidence":0.99}`, reason: "unknown tag 'skip'"},
		{name: "garbage", response: "not json", reason: "unparseable"},
		{name: "api failure", err: errors.New("overloaded"), reason: "suggestion failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stubAnthropic(t, tt.response, tt.err)
			d, err := newTestSuggester().Decide(context.Background(), domain.Alert{ID: "a1"}, choices)
			if err != nil {
				t.Fatalf("Decide must not fail the run: %v", err)
			}
			if !d.Skip || !strings.Contains(d.Reason, tt.reason) {
				t.Fatalf("decision = %+v, want skip with reason containing %q", d, tt.reason)
			}
		})
	}
}
