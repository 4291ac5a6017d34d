package session

import (
	"sync"

	"github.com/bad33ndj3/mcp-l10n-index/internal/command"
	"github.com/bad33ndj3/mcp-l10n-index/internal/domain"
)

// match runs one query against the current catalog. The result is never
// nil so it encodes as an empty list.
func (s *Session) match(text string) []domain.MatchResult {
	results := s.catalogs.Current().Match(text)
	if results == nil {
		return []domain.MatchResult{}
	}
	return results
}

// matchBatch matches every item, fanning out over the pool when one is
// configured. Results keep input order. The catalog is fetched once so a
// reload mid-batch cannot mix two catalogs.
func (s *Session) matchBatch(items []command.BatchItem) []command.BatchResult {
	cat := s.catalogs.Current()
	results := make([]command.BatchResult, len(items))

	var wg sync.WaitGroup
	for i, item := range items {
		results[i].Item = item
		task := func() {
			defer wg.Done()
			matches := cat.Match(item.Text)
			if matches == nil {
				matches = []domain.MatchResult{}
			}
			results[i].Matches = matches
		}

		wg.Add(1)
		if s.pool == nil {
			task()
			continue
		}
		if err := s.pool.Submit(task); err != nil {
			s.logger.Debug("pool rejected batch task, matching inline", "error", err)
			task()
		}
	}
	wg.Wait()
	return results
}
