// Package text provides the string normalization shared by the catalog and
// the session: both sides of a comparison go through the same pipeline.
package text

import (
	"regexp"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MinSignalLen is the shortest normalized query worth matching.
// Anything shorter ("up", "ok") hits too many substrings to be useful.
const MinSignalLen = 3

// htmlTagRe matches inline markup like <u>, </b>, <span class="x">
var htmlTagRe = regexp.MustCompile(`<[^>]*>`)

// placeholderRe matches double-brace template variables like {{daysProgress}}
var placeholderRe = regexp.MustCompile(`\{\{[^}]*\}\}`)

// markChains holds accent-stripping chains. A chain carries buffer state
// between calls, so each goroutine borrows its own.
var markChains = sync.Pool{
	New: func() any {
		return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	},
}

// Normalizer configures the pipeline. The zero value is the default:
// no accent folding and a signal threshold of MinSignalLen.
type Normalizer struct {
	// FoldAccents strips combining marks before the a-z filter, so
	// "Café" becomes "cafe" instead of "caf".
	FoldAccents bool

	// MinSignalLen overrides the signal threshold when positive.
	MinSignalLen int
}

// Resource reduces a catalog string to its comparable form.
// Markup and placeholders are removed before the shared pipeline runs.
//
// Example: "Completed <u>{{daysProgress}}</u> days" → "completed days"
func (n Normalizer) Resource(s string) string {
	s = htmlTagRe.ReplaceAllString(s, "")
	s = placeholderRe.ReplaceAllString(s, "")
	return n.fold(s)
}

// Query reduces extracted document text to its comparable form.
// Queries are plain text, so only the shared pipeline applies.
//
// Example: "Completed 3/7 days" → "completed days"
func (n Normalizer) Query(s string) string {
	return n.fold(s)
}

// HasSignal reports whether a normalized string is long enough to match on.
func (n Normalizer) HasSignal(normalized string) bool {
	minLen := n.MinSignalLen
	if minLen <= 0 {
		minLen = MinSignalLen
	}
	return len(normalized) >= minLen
}

// NormalizeResource is Normalizer{}.Resource.
func NormalizeResource(s string) string {
	return Normalizer{}.Resource(s)
}

// NormalizeQuery is Normalizer{}.Query.
func NormalizeQuery(s string) string {
	return Normalizer{}.Query(s)
}

// HasSignal is Normalizer{}.HasSignal.
func HasSignal(normalized string) bool {
	return Normalizer{}.HasSignal(normalized)
}

// fold lowercases, keeps only a-z, and drops single-letter tokens.
func (n Normalizer) fold(s string) string {
	if n.FoldAccents {
		s = stripMarks(s)
	}
	s = strings.ToLower(s)

	letters := strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' {
			return r
		}
		return ' '
	}, s)

	raw := strings.Fields(letters)
	out := raw[:0]
	for _, t := range raw {
		if len(t) <= 1 {
			continue
		}
		out = append(out, t)
	}
	return strings.Join(out, " ")
}

func stripMarks(s string) string {
	t := markChains.Get().(transform.Transformer)
	defer markChains.Put(t)

	t.Reset()
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}
