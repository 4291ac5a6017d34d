// Package memdoc is an in-memory document that implements host.Document.
// It backs the CLI and the tests: a tree of nodes loaded from a YAML or
// JSON file, with enough behavior (attributes, fonts, overlays) to stand
// in for a real design document.
package memdoc

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/bad33ndj3/mcp-l10n-index/internal/domain"
	"github.com/bad33ndj3/mcp-l10n-index/internal/host"
)

// ErrFontNotLoaded is returned when text changes before its font loads.
var ErrFontNotLoaded = errors.New("font not loaded")

// Style is the visual style of an overlay node.
type Style struct {
	Stroke       domain.Color `yaml:"stroke"`
	StrokeWeight float64      `yaml:"stroke_weight"`
	DashPattern  []float64    `yaml:"dash_pattern,omitempty"`
	CornerRadius float64      `yaml:"corner_radius"`
}

// Node is one object of the document tree.
type Node struct {
	ID         string              `yaml:"id"`
	Type       domain.NodeKind     `yaml:"type"`
	Name       string              `yaml:"name,omitempty"`
	Characters string              `yaml:"characters,omitempty"`
	Font       string              `yaml:"font,omitempty"`
	Box        *domain.BoundingBox `yaml:"box,omitempty"`
	Locked     bool                `yaml:"locked,omitempty"`
	Style      *Style              `yaml:"style,omitempty"`
	Attributes map[string]string   `yaml:"attributes,omitempty"`
	Children   []*Node             `yaml:"children,omitempty"`

	// LockedData marks objects that refuse attributes, like nodes nested
	// inside component instances.
	LockedData bool `yaml:"locked_data,omitempty"`

	parent *Node
}

func (n *Node) ref() domain.SourceRef {
	return domain.SourceRef{ID: n.ID, Kind: n.Type, Name: n.Name}
}

// file is the on-disk shape of a document.
type file struct {
	Selection    []string `yaml:"selection,omitempty"`
	MissingFonts []string `yaml:"missing_fonts,omitempty"`
	Nodes        []*Node  `yaml:"nodes"`
}

// Document is a thread-safe in-memory document.
type Document struct {
	mu           sync.Mutex
	nodes        []*Node
	byID         map[string]*Node
	selection    []string
	viewport     []string
	missingFonts map[string]bool
	loadedFonts  map[string]bool
	reject       func(domain.AnnotationSpec) error
}

// Option configures a Document.
type Option func(*Document)

// WithAnnotationFilter lets callers veto overlay creation, e.g. to
// simulate a host that cannot draw over certain objects.
func WithAnnotationFilter(fn func(domain.AnnotationSpec) error) Option {
	return func(d *Document) {
		d.reject = fn
	}
}

// WithMissingFonts marks fonts that fail to load.
func WithMissingFonts(fonts ...string) Option {
	return func(d *Document) {
		for _, f := range fonts {
			d.missingFonts[f] = true
		}
	}
}

// New creates a document holding the given top-level nodes.
func New(nodes []*Node, opts ...Option) *Document {
	d := &Document{
		byID:         make(map[string]*Node),
		missingFonts: make(map[string]bool),
		loadedFonts:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(d)
	}
	for _, n := range nodes {
		d.attach(nil, n)
	}
	return d
}

// Load reads a document file.
func Load(path string, opts ...Option) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	opts = append(opts, WithMissingFonts(f.MissingFonts...))
	d := New(f.Nodes, opts...)
	d.selection = slices.Clone(f.Selection)
	return d, nil
}

// Save writes the document, overlays and selection included.
func (d *Document) Save(path string) error {
	d.mu.Lock()
	f := file{Selection: slices.Clone(d.selection), Nodes: d.nodes}
	for font := range d.missingFonts {
		f.MissingFonts = append(f.MissingFonts, font)
	}
	slices.Sort(f.MissingFonts)
	data, err := yaml.Marshal(&f)
	d.mu.Unlock()
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return os.Rename(tmp, path)
}

// attach indexes n and its subtree under parent (nil = page).
func (d *Document) attach(parent, n *Node) {
	n.parent = parent
	if parent == nil && !slices.Contains(d.nodes, n) {
		d.nodes = append(d.nodes, n)
	}
	d.byID[n.ID] = n
	for _, c := range n.Children {
		d.attach(n, c)
	}
}

// Node returns a node by id, for inspection in tests and tooling.
func (d *Document) Node(id string) (*Node, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, ok := d.byID[id]
	return n, ok
}

// Len returns the number of objects in the document.
func (d *Document) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.byID)
}

// SelectIDs replaces the selection by id.
func (d *Document) SelectIDs(ids ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.selection = slices.Clone(ids)
}

// Viewport returns the ids last scrolled into view.
func (d *Document) Viewport() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.viewport)
}

// SelectedIDs returns the ids of the current selection.
func (d *Document) SelectedIDs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.selection)
}

// --- host.Selection ---

func (d *Document) Current() []domain.SourceRef {
	d.mu.Lock()
	defer d.mu.Unlock()

	refs := make([]domain.SourceRef, 0, len(d.selection))
	for _, id := range d.selection {
		if n, ok := d.byID[id]; ok {
			refs = append(refs, n.ref())
		}
	}
	return refs
}

func (d *Document) DescendantsOfType(container domain.SourceRef, match func(domain.SourceRef) bool) []domain.SourceRef {
	d.mu.Lock()
	defer d.mu.Unlock()

	root, ok := d.byID[container.ID]
	if !ok {
		return nil
	}

	var out []domain.SourceRef
	var walk func(n *Node)
	walk = func(n *Node) {
		for _, c := range n.Children {
			if match(c.ref()) {
				out = append(out, c.ref())
			}
			walk(c)
		}
	}
	walk(root)
	return out
}

func (d *Document) Resolve(id string) (domain.SourceRef, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, ok := d.byID[id]
	if !ok {
		return domain.SourceRef{}, false
	}
	return n.ref(), true
}

func (d *Document) Geometry(ref domain.SourceRef) (domain.BoundingBox, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, ok := d.byID[ref.ID]
	if !ok || n.Box == nil {
		return domain.BoundingBox{}, false
	}
	return *n.Box, true
}

func (d *Document) Characters(ref domain.SourceRef) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, ok := d.byID[ref.ID]
	if !ok || n.Type != domain.KindText {
		return "", false
	}
	return n.Characters, true
}

func (d *Document) Select(refs []domain.SourceRef) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.selection = d.selection[:0]
	for _, r := range refs {
		d.selection = append(d.selection, r.ID)
	}
}

func (d *Document) ScrollAndZoom(refs []domain.SourceRef) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.viewport = d.viewport[:0]
	for _, r := range refs {
		d.viewport = append(d.viewport, r.ID)
	}
}

// --- host.Annotator ---

func (d *Document) CreateAnnotation(spec domain.AnnotationSpec) (string, error) {
	if d.reject != nil {
		if err := d.reject(spec); err != nil {
			return "", err
		}
	}

	box := spec.Box
	n := &Node{
		ID:     "ann-" + uuid.NewString(),
		Type:   domain.KindRectangle,
		Name:   spec.Name,
		Box:    &box,
		Locked: spec.Locked,
		Style: &Style{
			Stroke:       spec.Stroke,
			StrokeWeight: spec.StrokeWeight,
			DashPattern:  slices.Clone(spec.DashPattern),
			CornerRadius: spec.CornerRadius,
		},
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.attach(nil, n)
	return n.ID, nil
}

func (d *Document) SetAttribute(id, key, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, ok := d.byID[id]
	if !ok {
		return fmt.Errorf("set attribute on %s: %w", id, host.ErrNotFound)
	}
	if n.LockedData {
		return fmt.Errorf("set attribute on %s: %w", id, host.ErrNotAnnotatable)
	}
	if n.Attributes == nil {
		n.Attributes = make(map[string]string)
	}
	n.Attributes[key] = value
	return nil
}

func (d *Document) Attribute(id, key string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, ok := d.byID[id]
	if !ok {
		return "", fmt.Errorf("read attribute on %s: %w", id, host.ErrNotFound)
	}
	return n.Attributes[key], nil
}

func (d *Document) FindByName(name string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []string
	var walk func(nodes []*Node)
	walk = func(nodes []*Node) {
		for _, n := range nodes {
			if n.Name == name {
				out = append(out, n.ID)
			}
			walk(n.Children)
		}
	}
	walk(d.nodes)
	return out
}

func (d *Document) Remove(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, ok := d.byID[id]
	if !ok {
		return fmt.Errorf("remove %s: %w", id, host.ErrNotFound)
	}

	if n.parent == nil {
		d.nodes = slices.DeleteFunc(d.nodes, func(c *Node) bool { return c == n })
	} else {
		n.parent.Children = slices.DeleteFunc(n.parent.Children, func(c *Node) bool { return c == n })
	}

	var forget func(n *Node)
	forget = func(n *Node) {
		delete(d.byID, n.ID)
		for _, c := range n.Children {
			forget(c)
		}
	}
	forget(n)
	return nil
}

// --- host.TextEditor ---

func (d *Document) LoadFont(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, ok := d.byID[id]
	if !ok {
		return fmt.Errorf("load font for %s: %w", id, host.ErrNotFound)
	}
	font := fontName(n)
	if d.missingFonts[font] {
		return fmt.Errorf("load font %q: unavailable", font)
	}
	d.loadedFonts[font] = true
	return nil
}

func (d *Document) SetCharacters(id, characters string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, ok := d.byID[id]
	if !ok {
		return fmt.Errorf("set characters on %s: %w", id, host.ErrNotFound)
	}
	if n.Type != domain.KindText {
		return fmt.Errorf("set characters on %s: not a text object", id)
	}
	if !d.loadedFonts[fontName(n)] {
		return fmt.Errorf("set characters on %s: %w", id, ErrFontNotLoaded)
	}
	n.Characters = characters
	return nil
}

func fontName(n *Node) string {
	if n.Font == "" {
		return "default"
	}
	return n.Font
}

var _ host.Document = (*Document)(nil)
