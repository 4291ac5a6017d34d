// Package marker keeps visual overlays in sync with tracked text sources.
//
// Every tracked source gets at most one overlay drawn over its bounding
// box. The overlays belong to the host document and outlive a session,
// so the sourceID -> markerID map kept here is only a cache: when it is
// cold, overlays are found again by name and by their targetId attribute.
package marker

import (
	"io"
	"log/slog"
	"sync"

	"github.com/bad33ndj3/mcp-l10n-index/internal/domain"
	"github.com/bad33ndj3/mcp-l10n-index/internal/host"
)

// Overlay identity. Changing these orphans overlays created by older
// versions, since the scan path looks them up by name and attribute.
const (
	MarkerName   = "🔴 Extracted Highlight"
	AttrIsMarker = "isHighlight"
	AttrTarget   = "targetId"
)

// Overlay geometry and style.
const (
	Margin       = 4
	StrokeWeight = 4
	CornerRadius = 4
)

var (
	StrokeColor = domain.Color{R: 1, G: 0.2, B: 0.2}
	DashPattern = []float64{4, 4}
)

// Document is the part of the host a Sync needs.
type Document interface {
	host.Selection
	host.Annotator
}

// Sync maintains the one-to-one mapping between tracked sources and
// their overlays. It is safe for concurrent use.
type Sync struct {
	mu      sync.Mutex
	doc     Document
	markers map[string]string // sourceID -> markerID
	logger  *slog.Logger
}

// Option configures a Sync.
type Option func(*Sync)

// WithLogger sets the logger for per-marker failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sync) {
		s.logger = l
	}
}

// New creates a Sync with a cold cache.
func New(doc Document, opts ...Option) *Sync {
	s := &Sync{
		doc:     doc,
		markers: make(map[string]string),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Overlay returns the annotation drawn around a source with the given box.
func Overlay(box domain.BoundingBox) domain.AnnotationSpec {
	return domain.AnnotationSpec{
		Name:         MarkerName,
		Box:          box.Expand(Margin),
		Stroke:       StrokeColor,
		StrokeWeight: StrokeWeight,
		DashPattern:  DashPattern,
		CornerRadius: CornerRadius,
		Locked:       true,
	}
}

// Create draws the overlay for item unless one is already mapped.
// When the source cannot be resolved or measured the entry comes back
// without a marker and the document is left untouched.
func (s *Sync) Create(item domain.TextItem) domain.MarkerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.create(item)
}

// CreateAll creates overlays for every item. A failure on one item never
// stops the others.
func (s *Sync) CreateAll(items []domain.TextItem) []domain.MarkerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]domain.MarkerEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, s.create(item))
	}
	return entries
}

func (s *Sync) create(item domain.TextItem) domain.MarkerEntry {
	entry := domain.MarkerEntry{SourceID: item.SourceID}

	if markerID, ok := s.markers[item.SourceID]; ok {
		if _, alive := s.doc.Resolve(markerID); alive {
			entry.MarkerID = markerID
			return entry
		}
		delete(s.markers, item.SourceID)
	}

	ref, ok := s.doc.Resolve(item.SourceID)
	if !ok {
		s.logger.Debug("marker skipped, source not found", "source_id", item.SourceID)
		return entry
	}
	box, ok := s.doc.Geometry(ref)
	if !ok {
		s.logger.Debug("marker skipped, no geometry", "source_id", item.SourceID)
		return entry
	}

	markerID, err := s.doc.CreateAnnotation(Overlay(box))
	if err != nil {
		s.logger.Warn("marker creation failed", "source_id", item.SourceID, "error", err)
		return entry
	}

	// Attributes are best effort. Without targetId the overlay still
	// shows, it just cannot be found again by a cold scan.
	if err := s.doc.SetAttribute(markerID, AttrIsMarker, "true"); err != nil {
		s.logger.Debug("marker attribute failed", "marker_id", markerID, "key", AttrIsMarker, "error", err)
	}
	if err := s.doc.SetAttribute(markerID, AttrTarget, item.SourceID); err != nil {
		s.logger.Debug("marker attribute failed", "marker_id", markerID, "key", AttrTarget, "error", err)
	}

	s.markers[item.SourceID] = markerID
	entry.MarkerID = markerID
	return entry
}

// Remove deletes the overlays of the given sources. Mapped sources take
// the fast path; the rest, and mapped overlays that could not be
// removed, are looked up by scanning the document for overlays whose
// targetId matches. Unknown ids are ignored.
// It returns the number of overlays deleted.
func (s *Sync) Remove(sourceIDs []string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	var byTarget map[string][]string // built on first miss
	for _, id := range sourceIDs {
		if markerID, ok := s.markers[id]; ok {
			delete(s.markers, id)
			if s.remove(markerID) {
				removed++
				continue
			}
		}

		if byTarget == nil {
			byTarget = s.scan()
		}
		for _, markerID := range byTarget[id] {
			if s.remove(markerID) {
				removed++
			}
		}
		delete(byTarget, id)
	}
	return removed
}

// RemoveAll deletes every overlay in the document, mapped or not, and
// clears the cache. It returns the number of overlays deleted.
func (s *Sync) RemoveAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, markerID := range s.doc.FindByName(MarkerName) {
		if s.remove(markerID) {
			removed++
		}
	}
	clear(s.markers)
	return removed
}

// Rebuild replaces the cache with what a document scan finds.
// It returns the number of mapped sources.
func (s *Sync) Rebuild() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.markers)
	for target, markerIDs := range s.scan() {
		s.markers[target] = markerIDs[0]
	}
	return len(s.markers)
}

// Prune drops cache entries whose overlay no longer exists.
// It returns the number of entries dropped.
func (s *Sync) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	pruned := 0
	for sourceID, markerID := range s.markers {
		if _, ok := s.doc.Resolve(markerID); !ok {
			delete(s.markers, sourceID)
			pruned++
		}
	}
	return pruned
}

// Lookup returns the cached entry for a source.
func (s *Sync) Lookup(sourceID string) (domain.MarkerEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	markerID, ok := s.markers[sourceID]
	if !ok {
		return domain.MarkerEntry{}, false
	}
	return domain.MarkerEntry{SourceID: sourceID, MarkerID: markerID}, true
}

// Len returns the number of cached entries.
func (s *Sync) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.markers)
}

// scan groups the document's overlays by their targetId attribute.
func (s *Sync) scan() map[string][]string {
	byTarget := make(map[string][]string)
	for _, markerID := range s.doc.FindByName(MarkerName) {
		target, err := s.doc.Attribute(markerID, AttrTarget)
		if err != nil {
			s.logger.Debug("marker attribute unreadable", "marker_id", markerID, "error", err)
			continue
		}
		if target == "" {
			continue
		}
		byTarget[target] = append(byTarget[target], markerID)
	}
	return byTarget
}

// remove deletes one overlay, logging instead of failing.
func (s *Sync) remove(markerID string) bool {
	if err := s.doc.Remove(markerID); err != nil {
		s.logger.Debug("marker removal failed", "marker_id", markerID, "error", err)
		return false
	}
	return true
}
