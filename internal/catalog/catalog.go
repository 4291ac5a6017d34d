// Package catalog implements the read-only resource catalog and the tiered
// matcher that maps extracted text to localization keys.
//
// The matcher is a full linear scan. Catalogs hold tens to low hundreds of
// entries and queries arrive at interactive cadence, so no index is kept.
package catalog

import (
	"errors"
	"slices"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/bad33ndj3/mcp-l10n-index/internal/domain"
	"github.com/bad33ndj3/mcp-l10n-index/internal/text"
)

// ErrNoPivot is reported by Validate when the pivot locale is missing.
var ErrNoPivot = errors.New("catalog has no entries for the pivot locale")

// Scores for each match tier. Higher is better.
const (
	ScoreExact          = 100
	ScorePattern        = 90
	ScorePartialQuery   = 60 // query contains the resource value
	ScorePartialInValue = 50 // resource value contains the query
)

// MatchConfig holds the tunable thresholds of the matcher.
// The values are heuristics; adjust them per catalog.
type MatchConfig struct {
	MinSignalLen  int // Normalized query must be at least this long (default: 3)
	PatternMinLen int // Normalized query must be longer than this for PATTERN_MATCH (default: 3)
	PartialMinLen int // Contained side must be longer than this for PARTIAL (default: 4)
	TopN          int // Maximum results per query (default: 5)

	// FoldAccents strips diacritics before normalizing, so "Café" and
	// "Cafe" compare equal. Off by default: "Café" normalizes to "caf".
	FoldAccents bool
}

// DefaultMatchConfig returns the thresholds used in production.
func DefaultMatchConfig() MatchConfig {
	return MatchConfig{
		MinSignalLen:  text.MinSignalLen,
		PatternMinLen: 3,
		PartialMinLen: 4,
		TopN:          5,
	}
}

// Pair is one key/value entry of a group.
type Pair struct {
	Key   string
	Value string
}

// Group is a named, ordered list of entries.
type Group struct {
	Name  string
	Pairs []Pair
}

// Table holds every group of one locale, in source order.
type Table struct {
	Groups []Group
}

// lookup returns the value stored under (group, key).
func (t Table) lookup(group, key string) (string, bool) {
	for _, g := range t.Groups {
		if g.Name != group {
			continue
		}
		for _, p := range g.Pairs {
			if p.Key == key {
				return p.Value, true
			}
		}
	}
	return "", false
}

// entry is a pivot entry with its precomputed comparison forms.
type entry struct {
	domain.ResourceEntry
	value      string // pivot value
	lower      string
	normalized string
}

// Catalog is an immutable, in-memory index over a multilingual resource
// table. A Catalog is safe for concurrent use.
type Catalog struct {
	entries  []entry
	locales  []string // passenger locales, sorted
	hasPivot bool
	config   MatchConfig
	norm     text.Normalizer
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithMatchConfig overrides the default matcher thresholds.
func WithMatchConfig(cfg MatchConfig) Option {
	return func(c *Catalog) {
		c.config = cfg
	}
}

// New builds a catalog from per-locale tables.
// Entries follow the pivot table's order; that order breaks score ties.
func New(tables map[string]Table, opts ...Option) *Catalog {
	c := &Catalog{config: DefaultMatchConfig()}
	for _, opt := range opts {
		opt(c)
	}
	c.norm = text.Normalizer{FoldAccents: c.config.FoldAccents, MinSignalLen: c.config.MinSignalLen}

	for locale := range tables {
		if locale != domain.PivotLocale {
			c.locales = append(c.locales, locale)
		}
	}
	sort.Strings(c.locales)

	pivot, ok := tables[domain.PivotLocale]
	if !ok {
		return c
	}
	c.hasPivot = true

	for _, g := range pivot.Groups {
		for _, p := range g.Pairs {
			values := map[string]string{domain.PivotLocale: p.Value}
			for _, locale := range c.locales {
				if v, ok := tables[locale].lookup(g.Name, p.Key); ok {
					values[locale] = v
				}
			}
			c.entries = append(c.entries, entry{
				ResourceEntry: domain.ResourceEntry{Group: g.Name, Key: p.Key, Values: values},
				value:         p.Value,
				lower:         strings.ToLower(p.Value),
				normalized:    c.norm.Resource(p.Value),
			})
		}
	}
	return c
}

// Validate reports structural problems that make matching useless.
func (c *Catalog) Validate() error {
	if c == nil || !c.hasPivot {
		return ErrNoPivot
	}
	return nil
}

// Len returns the number of pivot entries.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// Locales returns the passenger locales attached to every result.
func (c *Catalog) Locales() []string {
	if c == nil {
		return nil
	}
	return slices.Clone(c.locales)
}

// Entries returns a copy of the catalog entries in catalog order.
func (c *Catalog) Entries() []domain.ResourceEntry {
	if c == nil {
		return nil
	}
	out := make([]domain.ResourceEntry, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.ResourceEntry
	}
	return out
}

// Match returns the ranked catalog entries matching queryText.
// It never fails: a nil or empty catalog and a signal-less query both
// yield an empty result.
func (c *Catalog) Match(queryText string) []domain.MatchResult {
	if c == nil || len(c.entries) == 0 {
		return nil
	}

	cfg := c.config
	queryNormalized := c.norm.Query(queryText)
	if !c.norm.HasSignal(queryNormalized) {
		return nil
	}
	queryRaw := strings.ToLower(strings.TrimSpace(queryText))
	queryLen := utf8.RuneCountInString(queryRaw)

	var results []domain.MatchResult
	for _, e := range c.entries {
		matchType, score := classify(e, queryRaw, queryNormalized, queryLen, cfg)
		if matchType == "" {
			continue
		}
		results = append(results, c.result(e, matchType, score))
	}

	// Stable sort keeps catalog order among equal scores.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if cfg.TopN > 0 && len(results) > cfg.TopN {
		results = results[:cfg.TopN]
	}
	return results
}

// classify applies the tiers in order; the first one that fits wins.
func classify(e entry, queryRaw, queryNormalized string, queryLen int, cfg MatchConfig) (domain.MatchType, int) {
	switch {
	case e.lower == queryRaw:
		return domain.MatchExact, ScoreExact

	case len(queryNormalized) > cfg.PatternMinLen && e.normalized != "" && e.normalized == queryNormalized:
		return domain.MatchPattern, ScorePattern

	case utf8.RuneCountInString(e.lower) > cfg.PartialMinLen && strings.Contains(queryRaw, e.lower):
		return domain.MatchPartial, ScorePartialQuery

	case queryLen > cfg.PartialMinLen && strings.Contains(e.lower, queryRaw):
		return domain.MatchPartial, ScorePartialInValue
	}
	return "", 0
}

// result attaches passenger translations to a matched entry.
func (c *Catalog) result(e entry, matchType domain.MatchType, score int) domain.MatchResult {
	translations := make(map[string]*string, len(c.locales))
	for _, locale := range c.locales {
		if v, ok := e.Values[locale]; ok {
			translations[locale] = &v
		} else {
			translations[locale] = nil
		}
	}
	return domain.MatchResult{
		Key:          e.Path(),
		Value:        e.value,
		Translations: translations,
		Type:         matchType,
		Score:        score,
	}
}
