// Package session is the single actor behind the command protocol.
// It restores state at startup and then handles one command at a time,
// coordinating the inventory, the markers, the catalog and persistence.
//
// Dependencies are injected through New so tests can run the whole flow
// against an in-memory document and in-memory stores.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/bad33ndj3/mcp-l10n-index/internal/catalog"
	"github.com/bad33ndj3/mcp-l10n-index/internal/command"
	"github.com/bad33ndj3/mcp-l10n-index/internal/host"
	"github.com/bad33ndj3/mcp-l10n-index/internal/inventory"
	"github.com/bad33ndj3/mcp-l10n-index/internal/marker"
	"github.com/bad33ndj3/mcp-l10n-index/internal/notify"
	"github.com/bad33ndj3/mcp-l10n-index/internal/store"
)

// Session owns the process-local state: the inventory membership and the
// marker cache. Both are rebuilt by Restore.
type Session struct {
	mu sync.Mutex

	bridge   *store.Bridge
	doc      host.Document
	catalogs *catalog.Holder
	inv      *inventory.Inventory
	markers  *marker.Sync

	text   *notify.Localizer
	pool   *ants.Pool
	logger *slog.Logger

	outbox []command.Message // messages of the call in progress
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger. It is shared with the marker sync.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// WithLocalizer sets the language of notifications.
func WithLocalizer(l *notify.Localizer) Option {
	return func(s *Session) {
		s.text = l
	}
}

// WithPool runs batch matching on p. Without a pool batches are matched
// sequentially.
func WithPool(p *ants.Pool) Option {
	return func(s *Session) {
		s.pool = p
	}
}

// New creates a Session. The marker cache starts cold; call Restore.
func New(bridge *store.Bridge, doc host.Document, catalogs *catalog.Holder, opts ...Option) (*Session, error) {
	s := &Session{
		bridge:   bridge,
		doc:      doc,
		catalogs: catalogs,
		inv:      inventory.New(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.catalogs == nil {
		s.catalogs = catalog.NewHolder(nil)
	}
	if s.text == nil {
		l, err := notify.New("en")
		if err != nil {
			return nil, err
		}
		s.text = l
	}
	s.markers = marker.New(doc, marker.WithLogger(s.logger))
	return s, nil
}

// Restore loads persisted state and warms the marker cache. It returns the
// messages the presentation layer needs to rebuild its view. Problems
// with individual keys are reported as notifications; the returned error
// joins store failures for the caller to log.
func (s *Session) Restore(ctx context.Context) ([]command.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outbox = nil

	var errs []error

	settings := make(map[string]string)
	for _, key := range store.SettingsKeys() {
		v, ok, err := s.bridge.Get(ctx, store.Private, key)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			settings[key] = v
		}
	}
	if len(settings) > 0 {
		s.post(command.LoadSettings{Values: settings, APIKey: settings[store.KeyAPIKey]})
	}

	if raw, ok, err := s.bridge.Get(ctx, store.Shared, store.KeyState); err != nil {
		errs = append(errs, err)
	} else if ok && raw != "" {
		s.restoreState(raw)
	}

	if raw, ok, err := s.bridge.Get(ctx, store.Shared, store.KeyBatchResults); err != nil {
		errs = append(errs, err)
	} else if ok && raw != "" {
		if json.Valid([]byte(raw)) {
			s.post(command.RestoreBatchResults{Data: json.RawMessage(raw)})
		} else {
			s.logger.Warn("stored batch results are not valid JSON", "bytes", len(raw))
			s.postError(s.text.Text(notify.BatchRestoreFailed, nil))
		}
	}

	if raw, ok, err := s.bridge.Get(ctx, store.Shared, store.KeyBatchContext); err != nil {
		errs = append(errs, err)
	} else if ok && raw != "" {
		s.post(command.RestoreBatchContext{Data: raw})
	}

	mapped := s.markers.Rebuild()

	if err := s.catalogs.Current().Validate(); err != nil {
		s.logger.Warn("catalog unusable, matches will be empty", "error", err)
	}

	s.logger.Info("session restored",
		"tracked", s.inv.Len(),
		"markers", mapped,
		"catalog_entries", s.catalogs.Current().Len())

	return s.flush(), errors.Join(errs...)
}

// restoreState rebuilds membership from the persisted item list. A list
// that cannot be parsed resets the inventory.
func (s *Session) restoreState(raw string) {
	snap, err := inventory.DecodeSnapshot(raw)
	if err != nil {
		s.logger.Warn("stored state is malformed, resetting inventory", "error", err)
		s.inv.Clear()
		s.postError(s.text.Text(notify.StateRestoreFailed, nil))
		return
	}
	s.inv.ReplaceAll(snap)
	s.post(command.RestoreState{Data: json.RawMessage(raw)})
}

// Status is a read-only view of the session state.
type Status struct {
	Tracked        int      `json:"tracked"`
	IDs            []string `json:"ids"`
	Markers        int      `json:"markers"`
	CatalogEntries int      `json:"catalog_entries"`
	Locales        []string `json:"locales"`
}

// Status reports the current session state. Marker entries whose overlay
// was deleted from the document are dropped first.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pruned := s.markers.Prune(); pruned > 0 {
		s.logger.Debug("dropped stale marker entries", "count", pruned)
	}

	cat := s.catalogs.Current()
	return Status{
		Tracked:        s.inv.Len(),
		IDs:            s.inv.IDs(),
		Markers:        s.markers.Len(),
		CatalogEntries: cat.Len(),
		Locales:        cat.Locales(),
	}
}

func (s *Session) post(m command.Message) {
	s.outbox = append(s.outbox, m)
}

func (s *Session) postInfo(msg string) {
	s.post(command.Notify{Message: msg})
}

func (s *Session) postError(msg string) {
	s.post(command.Notify{Message: msg, Error: true})
}

// flush returns and clears the outbox.
func (s *Session) flush() []command.Message {
	out := s.outbox
	s.outbox = nil
	return out
}
