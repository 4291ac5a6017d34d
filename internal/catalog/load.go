package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// filePattern selects resource files inside a catalog directory.
const filePattern = "**/*.{json,yaml,yml,toml}"

// Load reads a catalog from a file or a directory.
//
// A file holds every locale: {"en": {"common": {"save": "Save"}}, "de": {...}}.
// A directory holds one file per locale named after it (en.json, de.yaml,
// locales/fr.toml), each shaped {"common": {"save": "..."}}.
func Load(p string, opts ...Option) (*Catalog, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("stat catalog: %w", err)
	}

	var tables map[string]Table
	if info.IsDir() {
		tables, err = LoadDir(os.DirFS(p))
	} else {
		tables, err = LoadFile(p)
	}
	if err != nil {
		return nil, err
	}
	return New(tables, opts...), nil
}

// LoadFile parses a single multi-locale resource file.
func LoadFile(p string) (map[string]Table, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return Parse(data, filepath.Ext(p))
}

// Parse decodes multi-locale resource data. ext selects the format
// (".toml", otherwise JSON/YAML).
func Parse(data []byte, ext string) (map[string]Table, error) {
	if strings.EqualFold(ext, ".toml") {
		return parseTOML(data)
	}

	root, err := parseRoot(data, ext)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return map[string]Table{}, nil
	}

	tables := make(map[string]Table)
	for i := 0; i+1 < len(root.Content); i += 2 {
		locale, err := canonicalLocale(root.Content[i].Value)
		if err != nil {
			return nil, err
		}
		tables[locale] = mergeTables(tables[locale], tableFromNode(root.Content[i+1]))
	}
	return tables, nil
}

// LoadDir reads one resource file per locale from fsys.
func LoadDir(fsys fs.FS) (map[string]Table, error) {
	matches, err := doublestar.Glob(fsys, filePattern)
	if err != nil {
		return nil, fmt.Errorf("glob catalog dir: %w", err)
	}

	tables := make(map[string]Table)
	for _, name := range matches {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}

		ext := path.Ext(name)
		locale, err := canonicalLocale(strings.TrimSuffix(path.Base(name), ext))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}

		table, err := parseLocaleFile(data, ext)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		tables[locale] = mergeTables(tables[locale], table)
	}
	return tables, nil
}

// parseLocaleFile decodes a single-locale file: group -> key -> value.
func parseLocaleFile(data []byte, ext string) (Table, error) {
	if strings.EqualFold(ext, ".toml") {
		raw := map[string]any{}
		md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&raw)
		if err != nil {
			return Table{}, fmt.Errorf("parse toml: %w", err)
		}
		return tableFromTOML(raw, md.Keys(), nil), nil
	}

	root, err := parseRoot(data, ext)
	if err != nil {
		return Table{}, err
	}
	if root == nil {
		return Table{}, nil
	}
	return tableFromNode(root), nil
}

// parseRoot picks the decoder for ext.
func parseRoot(data []byte, ext string) (*yaml.Node, error) {
	if strings.EqualFold(ext, ".json") {
		return parseJSONRoot(data)
	}
	return parseYAMLRoot(data)
}

// parseYAMLRoot returns the top-level mapping node, or nil for an empty
// document.
func parseYAMLRoot(data []byte) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	return mappingRoot(doc.Content[0])
}

// parseJSONRoot decodes JSON into the same node tree the YAML path
// produces. JSON files are commonly tab-indented, which YAML rejects.
func parseJSONRoot(data []byte) (*yaml.Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	root, err := jsonNode(dec)
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return mappingRoot(root)
}

func mappingRoot(root *yaml.Node) (*yaml.Node, error) {
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parse catalog: top level must be a mapping, got %s", kindName(root.Kind))
	}
	return root, nil
}

// jsonNode reads one JSON value from dec, keeping object key order.
func jsonNode(dec *json.Decoder) (*yaml.Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch v := tok.(type) {
	case json.Delim:
		kind, end := yaml.MappingNode, json.Delim('}')
		if v == '[' {
			kind, end = yaml.SequenceNode, json.Delim(']')
		}
		n := &yaml.Node{Kind: kind}
		for dec.More() {
			if kind == yaml.MappingNode {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, _ := keyTok.(string)
				n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key})
			}
			child, err := jsonNode(dec)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, child)
		}
		if tok, err := dec.Token(); err != nil || tok != end {
			return nil, fmt.Errorf("unterminated %s", v.String())
		}
		return n, nil
	case string:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}, nil
	case json.Number:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: v.String()}, nil
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: fmt.Sprint(v)}, nil
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null"}, nil
	}
}

// tableFromNode walks group -> key -> value mappings in document order.
// Non-string values are skipped.
func tableFromNode(n *yaml.Node) Table {
	var t Table
	if n.Kind != yaml.MappingNode {
		return t
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		groupNode := n.Content[i+1]
		if groupNode.Kind != yaml.MappingNode {
			continue
		}
		g := Group{Name: n.Content[i].Value}
		for j := 0; j+1 < len(groupNode.Content); j += 2 {
			v := groupNode.Content[j+1]
			if v.Kind != yaml.ScalarNode || v.Tag != "!!str" {
				continue
			}
			g.Pairs = append(g.Pairs, Pair{Key: groupNode.Content[j].Value, Value: v.Value})
		}
		t.Groups = append(t.Groups, g)
	}
	return t
}

// parseTOML decodes a multi-locale TOML file, keeping key order.
func parseTOML(data []byte) (map[string]Table, error) {
	raw := map[string]any{}
	md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&raw)
	if err != nil {
		return nil, fmt.Errorf("parse toml: %w", err)
	}

	// Parent tables like [en] are often implicit, so locales are taken
	// from the first segment of any key.
	tables := make(map[string]Table)
	seen := make(map[string]bool)
	for _, key := range md.Keys() {
		if len(key) == 0 || seen[key[0]] {
			continue
		}
		seen[key[0]] = true

		locale, err := canonicalLocale(key[0])
		if err != nil {
			return nil, err
		}
		sub, ok := raw[key[0]].(map[string]any)
		if !ok {
			continue
		}
		tables[locale] = mergeTables(tables[locale], tableFromTOML(sub, md.Keys(), toml.Key{key[0]}))
	}
	return tables, nil
}

// tableFromTOML collects group/key pairs below prefix in declaration order.
func tableFromTOML(raw map[string]any, keys []toml.Key, prefix toml.Key) Table {
	var t Table
	index := make(map[string]int)

	for _, key := range keys {
		if len(key) != len(prefix)+2 || !hasPrefix(key, prefix) {
			continue
		}
		groupName, name := key[len(prefix)], key[len(prefix)+1]

		group, ok := raw[groupName].(map[string]any)
		if !ok {
			continue
		}
		value, ok := group[name].(string)
		if !ok {
			continue
		}

		pos, seen := index[groupName]
		if !seen {
			pos = len(t.Groups)
			index[groupName] = pos
			t.Groups = append(t.Groups, Group{Name: groupName})
		}
		t.Groups[pos].Pairs = append(t.Groups[pos].Pairs, Pair{Key: name, Value: value})
	}
	return t
}

func hasPrefix(key, prefix toml.Key) bool {
	for i := range prefix {
		if key[i] != prefix[i] {
			return false
		}
	}
	return true
}

// mergeTables appends b's groups to a, merging groups with the same name.
func mergeTables(a, b Table) Table {
	for _, g := range b.Groups {
		merged := false
		for i := range a.Groups {
			if a.Groups[i].Name == g.Name {
				a.Groups[i].Pairs = append(a.Groups[i].Pairs, g.Pairs...)
				merged = true
				break
			}
		}
		if !merged {
			a.Groups = append(a.Groups, g)
		}
	}
	return a
}

// canonicalLocale validates a locale key and returns its BCP 47 form.
func canonicalLocale(s string) (string, error) {
	tag, err := language.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid locale %q: %w", s, err)
	}
	return tag.String(), nil
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "document"
	}
}
