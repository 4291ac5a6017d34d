// Package domain contains core data types shared across the l10n index.
// These are plain data structures with no behavior beyond small helpers,
// the "nouns" of the application: text items, markers, resources and matches.
package domain

// PivotLocale is the only locale queries are matched against.
// Every other locale in the catalog rides along as passenger data.
const PivotLocale = "en"

// MatchType describes which tier of the matcher produced a result.
type MatchType string

const (
	MatchExact   MatchType = "EXACT"
	MatchPattern MatchType = "PATTERN_MATCH"
	MatchPartial MatchType = "PARTIAL"
)

// TextItem is a single text fragment extracted from the host document.
//
// Example: a text node "node-12" showing "Save changes" becomes
// TextItem{SourceID: "node-12", Text: "Save changes"}.
type TextItem struct {
	// SourceID is the stable identifier of the originating text object
	SourceID string `json:"id"`

	// Text is the characters captured at extraction time (may go stale)
	Text string `json:"text"`
}

// SnapshotRecord is one persisted inventory entry.
// IDs is plural so several sources can be grouped under one logical item;
// current producers always write a single id.
type SnapshotRecord struct {
	IDs  []string `json:"ids"`
	Text string   `json:"text"`
}

// Snapshot is the ordered inventory as persisted in the shared scope.
type Snapshot []SnapshotRecord

// MarkerEntry links a tracked source to the annotation drawn over it.
type MarkerEntry struct {
	SourceID string `json:"source_id"`

	// MarkerID is empty when no annotation could be created
	MarkerID string `json:"marker_id,omitempty"`
}

// HasMarker reports whether an annotation object exists for the entry.
func (m MarkerEntry) HasMarker() bool {
	return m.MarkerID != ""
}

// ResourceEntry is one (group, key) pair of the resource catalog with its
// value in every locale that defines it.
type ResourceEntry struct {
	Group  string
	Key    string
	Values map[string]string // locale -> string
}

// Path returns the dotted catalog key, e.g. "common.save".
func (r ResourceEntry) Path() string {
	return r.Group + "." + r.Key
}

// MatchResult is a catalog entry that matched a query.
type MatchResult struct {
	// Key is "{group}.{key}"
	Key string

	// Value is the pivot locale string
	Value string

	// Translations maps every passenger locale to its value, nil when the
	// locale has no entry for this key
	Translations map[string]*string

	Type  MatchType
	Score int
}

// Translation returns the passenger value for a locale, if present.
func (m MatchResult) Translation(locale string) (string, bool) {
	v, ok := m.Translations[locale]
	if !ok || v == nil {
		return "", false
	}
	return *v, true
}

// NodeKind classifies objects in the host document.
type NodeKind string

const (
	KindText      NodeKind = "TEXT"
	KindFrame     NodeKind = "FRAME"
	KindGroup     NodeKind = "GROUP"
	KindComponent NodeKind = "COMPONENT"
	KindInstance  NodeKind = "INSTANCE"
	KindRectangle NodeKind = "RECTANGLE"
)

// IsContainer reports whether objects of this kind can hold children.
func (k NodeKind) IsContainer() bool {
	switch k {
	case KindFrame, KindGroup, KindComponent, KindInstance:
		return true
	default:
		return false
	}
}

// SourceRef is an opaque handle to an object in the host document.
// It carries identity only; everything else is resolved through the host.
type SourceRef struct {
	ID   string
	Kind NodeKind
	Name string
}

// IsText reports whether the referenced object is a leaf text object.
func (r SourceRef) IsText() bool {
	return r.Kind == KindText
}

// BoundingBox is an absolute, axis-aligned rectangle in document space.
type BoundingBox struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Expand grows the box by margin on every side.
func (b BoundingBox) Expand(margin float64) BoundingBox {
	return BoundingBox{
		X:      b.X - margin,
		Y:      b.Y - margin,
		Width:  b.Width + 2*margin,
		Height: b.Height + 2*margin,
	}
}

// Color is an RGB color with channels in [0, 1].
type Color struct {
	R, G, B float64
}

// AnnotationSpec describes an overlay object the host should materialize.
type AnnotationSpec struct {
	Name         string
	Box          BoundingBox
	Stroke       Color
	StrokeWeight float64
	DashPattern  []float64
	CornerRadius float64
	Locked       bool
}
