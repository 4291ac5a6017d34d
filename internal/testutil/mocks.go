// Package testutil provides shared test helpers and mock implementations.
// This avoids duplicating mock code across test files.
package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/bad33ndj3/mcp-l10n-index/internal/catalog"
	"github.com/bad33ndj3/mcp-l10n-index/internal/command"
	"github.com/bad33ndj3/mcp-l10n-index/internal/domain"
	"github.com/bad33ndj3/mcp-l10n-index/internal/host/memdoc"
)

// ErrUnavailable is returned by mocks that simulate a broken backend.
var ErrUnavailable = errors.New("store unavailable")

// MockStore is an in-memory store.Store whose failures can be scripted.
type MockStore struct {
	mu     sync.Mutex
	Values map[string]string

	// FailWrites makes every Set return ErrUnavailable.
	FailWrites bool

	// DropWrites makes Set succeed without storing anything, so a
	// verified write reads back a different value.
	DropWrites bool
}

// NewMockStore creates a MockStore with an initialized map.
func NewMockStore() *MockStore {
	return &MockStore{Values: make(map[string]string)}
}

func (m *MockStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.Values[key]
	return v, ok, nil
}

func (m *MockStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return ErrUnavailable
	}
	if !m.DropWrites {
		m.Values[key] = value
	}
	return nil
}

func (m *MockStore) Close() error { return nil }

// Box returns a bounding box pointer for memdoc fixtures.
func Box(x, y, w, h float64) *domain.BoundingBox {
	return &domain.BoundingBox{X: x, Y: y, Width: w, Height: h}
}

// SampleDocument returns a small document: a settings frame with three
// measurable text objects, a nested group and a locked instance child.
func SampleDocument(opts ...memdoc.Option) *memdoc.Document {
	return memdoc.New([]*memdoc.Node{
		{ID: "frame-1", Type: domain.KindFrame, Name: "Settings", Box: Box(0, 0, 400, 300), Children: []*memdoc.Node{
			{ID: "text-save", Type: domain.KindText, Characters: "Save changes", Box: Box(10, 10, 120, 20)},
			{ID: "text-progress", Type: domain.KindText, Characters: "Completed 3/7 days", Box: Box(10, 40, 160, 20)},
			{ID: "group-1", Type: domain.KindGroup, Children: []*memdoc.Node{
				{ID: "text-upload", Type: domain.KindText, Characters: "Uploading file", Box: Box(10, 70, 140, 20)},
			}},
		}},
		{ID: "inst-1", Type: domain.KindInstance, Box: Box(500, 0, 100, 40), Children: []*memdoc.Node{
			{ID: "text-locked", Type: domain.KindText, Characters: "Settings", Font: "Brand Sans",
				LockedData: true, Box: Box(510, 10, 80, 20)},
		}},
	}, opts...)
}

// SampleCatalog returns a catalog with English, German and French entries.
func SampleCatalog() *catalog.Catalog {
	return catalog.New(map[string]catalog.Table{
		"en": {Groups: []catalog.Group{
			{Name: "common", Pairs: []catalog.Pair{
				{Key: "save", Value: "Save changes"},
				{Key: "settings", Value: "Settings"},
				{Key: "up", Value: "up"},
				{Key: "uploading", Value: "Uploading"},
			}},
			{Name: "progress", Pairs: []catalog.Pair{
				{Key: "completed", Value: "Completed <u>{{daysProgress}}</u> days"},
			}},
		}},
		"de": {Groups: []catalog.Group{
			{Name: "common", Pairs: []catalog.Pair{
				{Key: "save", Value: "Änderungen speichern"},
				{Key: "settings", Value: "Einstellungen"},
			}},
		}},
		"fr": {Groups: []catalog.Group{
			{Name: "common", Pairs: []catalog.Pair{
				{Key: "save", Value: "Enregistrer"},
			}},
		}},
	})
}

// OfType returns the messages with the given wire type, in order.
func OfType(msgs []command.Message, typ string) []command.Message {
	var out []command.Message
	for _, m := range msgs {
		if m.Type() == typ {
			out = append(out, m)
		}
	}
	return out
}

// Notifications returns the notify messages, in order.
func Notifications(msgs []command.Message) []command.Notify {
	var out []command.Notify
	for _, m := range msgs {
		if n, ok := m.(command.Notify); ok {
			out = append(out, n)
		}
	}
	return out
}
