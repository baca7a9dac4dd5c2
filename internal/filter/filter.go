// Package filter narrows a snippet collection by tag selection and a fuzzy
// text query.
package filter

import (
	"fmt"
	"strings"

	"github.com/starford/petpad/internal/apperr"
	"github.com/starford/petpad/internal/models"
)

// MatchMode combines a multi-tag selection.
type MatchMode string

const (
	// MatchAny keeps snippets carrying at least one selected tag.
	MatchAny MatchMode = "any"
	// MatchAll keeps snippets carrying every selected tag.
	MatchAll MatchMode = "all"
)

// ParseMatchMode accepts "any", "all" or "" (any).
func ParseMatchMode(s string) (MatchMode, error) {
	switch MatchMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", MatchAny:
		return MatchAny, nil
	case MatchAll:
		return MatchAll, nil
	}
	return "", fmt.Errorf("filter: unknown match mode %q", s)
}

// Query is the filter state of one document view.
type Query struct {
	Tags []string  `json:"tags"`
	Mode MatchMode `json:"mode"`
	Text string    `json:"q"`
}

// Matcher ranks a fixed collection against a text query. It returns the
// indexes of matching items, best match first.
type Matcher interface {
	Search(query string) []int
}

// MatcherFactory builds a Matcher over items.
type MatcherFactory func(items []models.Snippet) Matcher

// Engine applies tag and text filtering.
type Engine struct {
	newMatcher MatcherFactory
}

// NewEngine returns an Engine using f for text search. With a nil factory
// text queries fail with apperr.ErrSearchUnavailable while tag filtering
// keeps working.
func NewEngine(f MatcherFactory) *Engine {
	return &Engine{newMatcher: f}
}

// Apply filters snippets by q. See ApplyIndexed.
func (e *Engine) Apply(snippets []models.Snippet, q Query) ([]models.Snippet, error) {
	idx, err := e.ApplyIndexed(snippets, q)
	out := make([]models.Snippet, len(idx))
	for i, j := range idx {
		out[i] = snippets[j]
	}
	return out, err
}

// ApplyIndexed returns the positions in snippets that pass q.
//
// The tag filter runs first and keeps collection order. A non-blank text
// query then runs over the tag-filtered subset only and orders the result by
// relevance. When search is unavailable the tag-filtered positions are
// returned together with apperr.ErrSearchUnavailable.
func (e *Engine) ApplyIndexed(snippets []models.Snippet, q Query) ([]int, error) {
	kept := ByTags(snippets, q.Tags, q.Mode)

	text := strings.TrimSpace(q.Text)
	if text == "" {
		return kept, nil
	}
	if e == nil || e.newMatcher == nil {
		return kept, apperr.ErrSearchUnavailable
	}

	subset := make([]models.Snippet, len(kept))
	for i, j := range kept {
		subset[i] = snippets[j]
	}
	// A fresh matcher per subset; never reuse one built for other items.
	m := e.newMatcher(subset)
	hits := m.Search(text)
	out := make([]int, len(hits))
	for i, h := range hits {
		out[i] = kept[h]
	}
	return out, nil
}

// ByTags returns the positions of snippets passing the tag selection. An
// empty selection keeps everything regardless of mode.
func ByTags(snippets []models.Snippet, tags []string, mode MatchMode) []int {
	out := make([]int, 0, len(snippets))
	for i, s := range snippets {
		if matchTags(s, tags, mode) {
			out = append(out, i)
		}
	}
	return out
}

func matchTags(s models.Snippet, tags []string, mode MatchMode) bool {
	if len(tags) == 0 {
		return true
	}
	if mode == MatchAll {
		for _, t := range tags {
			if !s.HasTag(t) {
				return false
			}
		}
		return true
	}
	for _, t := range tags {
		if s.HasTag(t) {
			return true
		}
	}
	return false
}
