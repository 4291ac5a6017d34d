// Package host defines the contract with the document that owns the text
// sources and the marker overlays. The document lives outside this process
// in production; everything is addressed through opaque string ids and
// resolved on every access, never cached across calls.
package host

import (
	"errors"

	"github.com/bad33ndj3/mcp-l10n-index/internal/domain"
)

// ErrNotFound is returned when an id no longer resolves to an object.
var ErrNotFound = errors.New("object not found")

// ErrNotAnnotatable is returned when an object cannot carry attributes.
var ErrNotAnnotatable = errors.New("object does not accept attributes")

// Selection exposes what the user picked and how to navigate to it.
type Selection interface {
	// Current returns the selected objects at call time.
	Current() []domain.SourceRef

	// DescendantsOfType returns every descendant of container (recursively)
	// for which match returns true.
	DescendantsOfType(container domain.SourceRef, match func(domain.SourceRef) bool) []domain.SourceRef

	// Resolve looks an object up by its stable id.
	Resolve(id string) (domain.SourceRef, bool)

	// Geometry returns the absolute bounding box, if measurable.
	Geometry(ref domain.SourceRef) (domain.BoundingBox, bool)

	// Characters returns the text content of a text object.
	Characters(ref domain.SourceRef) (string, bool)

	// Select replaces the current selection.
	Select(refs []domain.SourceRef)

	// ScrollAndZoom brings refs into view.
	ScrollAndZoom(refs []domain.SourceRef)
}

// Annotator creates and removes overlay objects.
type Annotator interface {
	// CreateAnnotation materializes an overlay and returns its id.
	CreateAnnotation(spec domain.AnnotationSpec) (string, error)

	// SetAttribute stores a side-channel attribute on an object.
	SetAttribute(id, key, value string) error

	// Attribute reads a side-channel attribute ("" when unset).
	Attribute(id, key string) (string, error)

	// FindByName returns the ids of every object with the given name.
	FindByName(name string) []string

	// Remove deletes an object.
	Remove(id string) error
}

// TextEditor rewrites text objects. Fonts must be loaded before the
// characters of a text object can change.
type TextEditor interface {
	LoadFont(id string) error
	SetCharacters(id, characters string) error
}

// Document is the full collaborator surface used by a session.
type Document interface {
	Selection
	Annotator
	TextEditor
}
