// Package lookup answers free-text queries against a small fixed catalog
// with a deterministic, explainable ranking. It is deliberately simple: no
// stemming, no document-frequency weighting, no fuzzy matching.
package lookup

import (
	"errors"
	"sort"
	"strings"

	"github.com/voxdesk/voxdesk/internal/catalog"
)

// ErrNoMatch signals that a query matched nothing. It is distinct from an
// empty successful result so the conversation layer can pick a fallback
// response.
var ErrNoMatch = errors.New("no matching catalog entries")

// Match is one scored hit.
type Match struct {
	Item  catalog.Item
	Score int
}

// indexed caches the normalized searchable text per item.
type indexed struct {
	item           catalog.Item
	primary        string
	secondary      string
	primaryTokens  map[string]bool
	secondaryTokens map[string]bool
}

// Index is read-only after construction and safe for unlimited concurrent
// readers.
type Index struct {
	items []indexed
}

// New builds an Index over the catalog. Item order is retained: ties in
// score keep catalog order.
func New(items []catalog.Item) *Index {
	idx := &Index{items: make([]indexed, len(items))}
	for i, item := range items {
		primary := strings.ToLower(item.Name)
		secondary := strings.ToLower(item.Body)
		if len(item.Tags) > 0 {
			secondary += " " + strings.ToLower(strings.Join(item.Tags, " "))
		}
		idx.items[i] = indexed{
			item:            item,
			primary:         primary,
			secondary:       secondary,
			primaryTokens:   tokenSet(primary),
			secondaryTokens: tokenSet(secondary),
		}
	}
	return idx
}

// Len reports the number of indexed items.
func (x *Index) Len() int { return len(x.items) }

// Items returns the indexed catalog items in source order.
func (x *Index) Items() []catalog.Item {
	out := make([]catalog.Item, len(x.items))
	for i, it := range x.items {
		out[i] = it.item
	}
	return out
}

// Search scores every item against the query and returns matches sorted by
// score descending, catalog order on ties. topK <= 0 returns the full match
// list. An empty result returns ErrNoMatch.
func (x *Index) Search(query string, topK int) ([]Match, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, ErrNoMatch
	}
	tokens := queryTokens(q)

	var matches []Match
	for _, it := range x.items {
		score := scoreItem(q, tokens, it)
		if score == 0 {
			continue
		}
		matches = append(matches, Match{Item: it.item, Score: score})
	}

	if len(matches) == 0 {
		return nil, ErrNoMatch
	}

	// Stable sort keeps catalog order on equal scores.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// scoreItem applies the fixed scoring shape: 10 for a query substring hit in
// the primary text, 5 in the secondary, then 3 per query token found among
// the primary tokens and 1 per token in the secondary.
func scoreItem(q string, tokens []string, it indexed) int {
	score := 0
	if strings.Contains(it.primary, q) {
		score += 10
	}
	if it.secondary != "" && strings.Contains(it.secondary, q) {
		score += 5
	}
	for _, tok := range tokens {
		if it.primaryTokens[tok] {
			score += 3
		}
		if it.secondaryTokens[tok] {
			score += 1
		}
	}
	return score
}

// queryTokens splits the normalized query into tokens longer than three
// characters, punctuation stripped.
func queryTokens(q string) []string {
	var tokens []string
	for _, raw := range strings.Fields(q) {
		tok := stripPunct(raw)
		if len(tok) > 3 {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

func tokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, raw := range strings.Fields(text) {
		if tok := stripPunct(raw); tok != "" {
			set[tok] = true
		}
	}
	return set
}

func stripPunct(s string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r > 127 {
			return r
		}
		return -1
	}, s)
}
