// Package grouping clusters offers from different stores into product groups
// and maintains each group's best price. No shared product ID exists across
// stores, so grouping is a token-overlap heuristic over normalized titles.
package grouping

import (
	"regexp"
	"strings"
)

var nonAlnumRegexp = regexp.MustCompile(`[^a-z0-9]+`)

// defaultStopwords are region and marketing words that add no identity to a
// product title and only inflate token overlap between unrelated products.
var defaultStopwords = map[string]struct{}{
	"uae":      {},
	"dubai":    {},
	"official": {},
	"original": {},
	"genuine":  {},
	"new":      {},
	"offer":    {},
	"deal":     {},
	"sale":     {},
	"with":     {},
	"for":      {},
	"and":      {},
	"the":      {},
}

// Normalizer canonicalizes product titles into token sequences. MaxTokens
// truncates trailing variant text ("- 2023 Edition") that destabilizes
// grouping.
type Normalizer struct {
	MaxTokens int
	stopwords map[string]struct{}
}

// NewNormalizer creates a Normalizer truncating to maxTokens tokens.
func NewNormalizer(maxTokens int) *Normalizer {
	return &Normalizer{
		MaxTokens: maxTokens,
		stopwords: defaultStopwords,
	}
}

// Tokens returns the canonical token sequence for a title: lowercased,
// punctuation stripped to word boundaries, stopwords dropped, truncated.
func (n *Normalizer) Tokens(title string) []string {
	lowered := strings.ToLower(title)
	cleaned := nonAlnumRegexp.ReplaceAllString(lowered, " ")

	fields := strings.Fields(cleaned)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, stop := n.stopwords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
		if n.MaxTokens > 0 && len(tokens) >= n.MaxTokens {
			break
		}
	}
	return tokens
}

// Key returns the canonical string key for a title.
func (n *Normalizer) Key(title string) string {
	return strings.Join(n.Tokens(title), " ")
}
