package inventory

import (
	"github.com/bad33ndj3/mcp-l10n-index/internal/domain"
	"github.com/bad33ndj3/mcp-l10n-index/internal/host"
)

// Expand turns a selection into candidate text items. Text objects are
// taken as-is; containers expand recursively into every text object they
// hold. Anything else (shapes, unreadable objects) is skipped, so one
// container can yield zero, one or many candidates.
func Expand(sel host.Selection, refs []domain.SourceRef) []domain.TextItem {
	var out []domain.TextItem
	for _, ref := range refs {
		switch {
		case ref.IsText():
			out = appendText(out, sel, ref)
		case ref.Kind.IsContainer():
			for _, leaf := range sel.DescendantsOfType(ref, domain.SourceRef.IsText) {
				out = appendText(out, sel, leaf)
			}
		}
	}
	return out
}

func appendText(out []domain.TextItem, sel host.Selection, ref domain.SourceRef) []domain.TextItem {
	chars, ok := sel.Characters(ref)
	if !ok {
		return out
	}
	return append(out, domain.TextItem{SourceID: ref.ID, Text: chars})
}

// AddRefs expands refs and adds the resulting candidates.
func (inv *Inventory) AddRefs(sel host.Selection, refs []domain.SourceRef) []domain.TextItem {
	return inv.Add(Expand(sel, refs))
}
