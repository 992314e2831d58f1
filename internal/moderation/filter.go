// Package moderation decides whether user supplied text may be published.
//
// A Filter rejects text that carries a link (scheme-qualified, www-prefixed
// or a bare domain ending in a known TLD) or that contains a banned term.
// Banned terms are matched as case-insensitive substrings, so "dick" also
// rejects "Dickens".
package moderation

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

type Reason string

const (
	ReasonNone   Reason = ""
	ReasonLink   Reason = "link"
	ReasonBanned Reason = "banned_term"
)

type Decision struct {
	Admit  bool
	Reason Reason
	// Match is the offending fragment, for logs only.
	Match string
}

type Filter struct {
	terms *matcher
	links *regexp.Regexp
}

func New(lists Lists) *Filter {
	return &Filter{
		terms: newMatcher(lists.BannedTerms),
		links: linkPattern(lists.TLDs),
	}
}

// NewDefault builds a Filter from the built-in lists.
func NewDefault() *Filter {
	return New(DefaultLists())
}

func linkPattern(tlds []string) *regexp.Regexp {
	set := make(map[string]bool, len(tlds))
	clean := make([]string, 0, len(tlds))
	for _, t := range tlds {
		t = strings.ToLower(strings.Trim(strings.TrimSpace(t), "."))
		if t == "" || set[t] {
			continue
		}
		set[t] = true
		clean = append(clean, regexp.QuoteMeta(t))
	}
	// Longest first so "co" does not shadow "com".
	sort.Slice(clean, func(i, j int) bool { return len(clean[i]) > len(clean[j]) })

	expr := `(?i)(https?://\S+|\bwww\.\S+`
	if len(clean) > 0 {
		// \b is ASCII-only, so the left edge of a label is spelled out to
		// catch domains that start with a non-ASCII letter.
		expr += `|(?:^|[^\p{L}\p{N}_-])[\p{L}\p{N}](?:[\p{L}\p{N}-]*[\p{L}\p{N}])?\.(?:` + strings.Join(clean, "|") + `)\b`
	}
	expr += `)`
	return regexp.MustCompile(expr)
}

// Evaluate checks text. Empty text is always admitted.
func (f *Filter) Evaluate(text string) Decision {
	if strings.TrimSpace(text) == "" {
		return Decision{Admit: true}
	}
	if m := f.links.FindString(text); m != "" {
		return Decision{Reason: ReasonLink, Match: strings.TrimLeftFunc(m, notLabelRune)}
	}
	if term, ok := f.terms.first(text); ok {
		return Decision{Reason: ReasonBanned, Match: term}
	}
	return Decision{Admit: true}
}

func notLabelRune(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsNumber(r)
}

func (f *Filter) Admit(text string) bool {
	return f.Evaluate(text).Admit
}

// TermCount reports how many distinct banned terms are loaded.
func (f *Filter) TermCount() int {
	return f.terms.len()
}
