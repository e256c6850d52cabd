package classify

import (
	"slices"
	"strings"

	"geniereport/internal/config"
)

// Vocabulary is the static tag configuration alerts are classified against.
type Vocabulary struct {
	BusinessUnits []string // ordered; the first one present wins
	TimeTags      []string
	ClientPrefix  string
}

func VocabularyFromConfig(cfg config.Config) Vocabulary {
	return Vocabulary{
		BusinessUnits: cfg.BusinessUnitTags,
		TimeTags:      cfg.TimeTags,
		ClientPrefix:  cfg.ClientTagPrefix,
	}
}

type Result struct {
	BusinessUnit string // empty when no business unit tag is present
	TimeTags     []string
	Clients      []string
}

func (r Result) HasBusinessUnit() bool {
	return r.BusinessUnit != ""
}

// First returns the earliest entry of ordered that tags contains.
func First(tags, ordered []string) (string, bool) {
	for _, want := range ordered {
		if slices.Contains(tags, want) {
			return want, true
		}
	}
	return "", false
}

// Classify maps an alert's tags onto the vocabulary. Business unit matching
// follows vocabulary order, not tag order. Every matching time tag is kept, in
// vocabulary order. Client labels keep tag order with duplicates removed.
func Classify(tags []string, v Vocabulary) Result {
	var res Result
	res.BusinessUnit, _ = First(tags, v.BusinessUnits)
	for _, tt := range v.TimeTags {
		if slices.Contains(tags, tt) && !slices.Contains(res.TimeTags, tt) {
			res.TimeTags = append(res.TimeTags, tt)
		}
	}
	if v.ClientPrefix == "" {
		return res
	}
	for _, tag := range tags {
		client, ok := strings.CutPrefix(tag, v.ClientPrefix)
		if !ok || client == "" || slices.Contains(res.Clients, client) {
			continue
		}
		res.Clients = append(res.Clients, client)
	}
	return res
}
