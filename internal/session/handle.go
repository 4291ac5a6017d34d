package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/samber/lo"

	"github.com/bad33ndj3/mcp-l10n-index/internal/command"
	"github.com/bad33ndj3/mcp-l10n-index/internal/domain"
	"github.com/bad33ndj3/mcp-l10n-index/internal/inventory"
	"github.com/bad33ndj3/mcp-l10n-index/internal/notify"
	"github.com/bad33ndj3/mcp-l10n-index/internal/store"
)

// Handle processes one command to completion and returns the messages it
// produced. Failures of single items or writes surface as notifications;
// the only error is a command variant Handle does not know.
func (s *Session) Handle(ctx context.Context, cmd command.Command) ([]command.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outbox = nil

	s.logger.Debug("handling command", "type", cmd.Type())

	switch c := cmd.(type) {
	case command.SaveSettings:
		s.saveSettings(ctx, c)
	case command.SaveState:
		s.saveState(ctx, c)
	case command.FocusNodes:
		refs := s.resolve(c.IDs)
		if len(refs) > 0 {
			s.doc.Select(refs)
			s.doc.ScrollAndZoom(refs)
		}
	case command.UpdateSelection:
		s.doc.Select(s.resolve(c.IDs))
	case command.AddSelection:
		s.addSelection()
	case command.CheckTranslation:
		s.post(command.TranslationCheckResult{Data: s.match(c.Text), OriginalText: c.Text})
	case command.CheckBatchTranslation:
		s.post(command.BatchTranslationCheckResult{Data: s.matchBatch(c.Items)})
	case command.SaveBatchResults:
		s.persist(ctx, store.Shared, store.KeyBatchResults, compactOrEmpty(c.Data))
	case command.SaveBatchContext:
		s.persist(ctx, store.Shared, store.KeyBatchContext, c.Data)
	case command.ClearHighlights:
		s.clearHighlights(c)
	case command.ApplyTranslation:
		s.applyTranslation(c)
	default:
		return nil, fmt.Errorf("%w: %T", command.ErrUnknownCommand, cmd)
	}

	return s.flush(), nil
}

// HandleRaw decodes and handles a wire command. Undecodable input is
// answered with an error notification instead of failing.
func (s *Session) HandleRaw(ctx context.Context, data []byte) ([]command.Message, error) {
	cmd, err := command.Decode(data)
	if err != nil {
		s.logger.Warn("rejected command", "error", err)
		return []command.Message{command.Notify{
			Message: s.text.Text(notify.InvalidCommand, map[string]any{"Reason": err.Error()}),
			Error:   true,
		}}, nil
	}
	return s.Handle(ctx, cmd)
}

func (s *Session) saveSettings(ctx context.Context, c command.SaveSettings) {
	known := store.SettingsKeys()
	keys := lo.Keys(c.Values)
	slices.Sort(keys)

	saved, failed := 0, 0
	for _, key := range keys {
		if !slices.Contains(known, key) {
			s.logger.Warn("ignoring unknown setting", "key", key)
			s.postInfo(s.text.Text(notify.UnknownSetting, map[string]any{"Key": key}))
			continue
		}
		if s.persist(ctx, store.Private, key, c.Values[key]) {
			saved++
		} else {
			failed++
		}
	}
	if saved > 0 && failed == 0 {
		s.postInfo(s.text.Text(notify.SettingsSaved, nil))
	}
}

// saveState persists the item list verbatim and replaces membership with
// the ids it contains. Membership follows the list even when the write
// fails: the list held by the presentation layer is authoritative.
func (s *Session) saveState(ctx context.Context, c command.SaveState) {
	raw := compactOrEmpty(c.Data)
	if raw == "" {
		raw = "[]"
	}

	snap, err := inventory.DecodeSnapshot(raw)
	if err != nil {
		s.logger.Warn("save-state with malformed data", "error", err)
		s.postError(s.text.Text(notify.InvalidCommand, map[string]any{"Reason": err.Error()}))
		return
	}

	s.persist(ctx, store.Shared, store.KeyState, raw)

	before := s.inv.Len()
	s.inv.ReplaceAll(snap)
	s.logger.Debug("membership replaced", "before", before, "after", s.inv.Len())
}

func (s *Session) addSelection() {
	selection := s.doc.Current()
	added := s.inv.AddRefs(s.doc, selection)

	if len(added) == 0 {
		s.postInfo(s.text.Text(notify.NothingNew, map[string]any{
			"Selected": len(selection),
			"Tracked":  s.inv.Len(),
		}))
		return
	}

	s.post(command.AddItems{Data: inventory.SnapshotFromItems(added)})

	entries := s.markers.CreateAll(added)
	missing := lo.CountBy(entries, func(e domain.MarkerEntry) bool { return !e.HasMarker() })
	s.logger.Info("texts added", "count", len(added), "without_marker", missing)

	s.postInfo(s.text.Count(notify.ItemsAdded, len(added), nil))
}

func (s *Session) clearHighlights(c command.ClearHighlights) {
	if c.All() {
		removed := s.markers.RemoveAll()
		s.logger.Info("all markers cleared", "removed", removed)
		return
	}
	removed := s.markers.Remove(c.IDs)
	s.inv.Remove(c.IDs)
	s.logger.Debug("markers cleared", "requested", len(c.IDs), "removed", removed)
}

func (s *Session) applyTranslation(c command.ApplyTranslation) {
	fail := func(reason string) {
		s.postError(s.text.Text(notify.ApplyFailed, map[string]any{"Reason": reason}))
	}

	ref, ok := s.doc.Resolve(c.ID)
	if !ok || !ref.IsText() {
		s.logger.Debug("apply-translation target unavailable", "id", c.ID)
		fail(fmt.Sprintf("%s is not a text object", c.ID))
		return
	}
	if err := s.doc.LoadFont(c.ID); err != nil {
		s.logger.Warn("font load failed", "id", c.ID, "error", err)
		fail(err.Error())
		return
	}
	if err := s.doc.SetCharacters(c.ID, c.Text); err != nil {
		s.logger.Warn("text replacement failed", "id", c.ID, "error", err)
		fail(err.Error())
		return
	}
	s.postInfo(s.text.Text(notify.TextApplied, nil))
}

// persist writes a value and verifies it, notifying on failure.
// It reports whether the value is safely stored.
func (s *Session) persist(ctx context.Context, scope store.Scope, key, value string) bool {
	err := s.bridge.SetVerified(ctx, scope, key, value)
	switch {
	case err == nil:
		return true
	case errors.Is(err, store.ErrVerifyMismatch):
		s.logger.Warn("write verification failed", "scope", scope, "key", key)
		s.postError(s.text.Text(notify.SaveVerifyFailed, map[string]any{"Key": key}))
	default:
		s.logger.Error("write failed", "scope", scope, "key", key, "error", err)
		s.postError(s.text.Text(notify.SaveFailed, map[string]any{"Key": key}))
	}
	return false
}

// resolve keeps the ids that still exist in the document.
func (s *Session) resolve(ids []string) []domain.SourceRef {
	return lo.FilterMap(ids, func(id string, _ int) (domain.SourceRef, bool) {
		return s.doc.Resolve(id)
	})
}

// compactOrEmpty returns raw JSON without insignificant whitespace, or ""
// when raw is missing or null.
func compactOrEmpty(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return string(trimmed)
	}
	return buf.String()
}
