package inventory

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/bad33ndj3/mcp-l10n-index/internal/domain"
)

// ErrMalformedSnapshot is returned when persisted state cannot be parsed.
var ErrMalformedSnapshot = errors.New("malformed inventory snapshot")

// DecodeSnapshot parses the persisted JSON form:
//
//	[{"ids": ["node-1"], "text": "Save changes"}, ...]
//
// An empty string decodes to an empty snapshot.
func DecodeSnapshot(data string) (domain.Snapshot, error) {
	if strings.TrimSpace(data) == "" {
		return domain.Snapshot{}, nil
	}

	var snap domain.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if snap == nil {
		return nil, fmt.Errorf("%w: not an array", ErrMalformedSnapshot)
	}
	for i, rec := range snap {
		if rec.IDs == nil {
			return nil, fmt.Errorf("%w: record %d has no ids", ErrMalformedSnapshot, i)
		}
	}
	return snap, nil
}

// EncodeSnapshot serializes a snapshot to its persisted JSON form.
func EncodeSnapshot(snap domain.Snapshot) (string, error) {
	if snap == nil {
		snap = domain.Snapshot{}
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	return string(data), nil
}

// SnapshotFromItems builds one single-id record per item.
func SnapshotFromItems(items []domain.TextItem) domain.Snapshot {
	return lo.Map(items, func(item domain.TextItem, _ int) domain.SnapshotRecord {
		return domain.SnapshotRecord{IDs: []string{item.SourceID}, Text: item.Text}
	})
}

// Snapshot returns the current inventory in persisted form.
func (inv *Inventory) Snapshot() domain.Snapshot {
	return SnapshotFromItems(inv.Items())
}
