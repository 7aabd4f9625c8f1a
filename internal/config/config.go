// Package config loads record set definitions from TOML or YAML files.
//
// A file either describes one record set at the top level:
//
//	name = "telemetry"
//	num = 3
//	dtype = "float64"
//	varnames = ["alt", "speed", "heading"]
//
// or groups several of them in [section.subsection] tables, where the
// subsection is the label the tools use to refer to the set.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	toml "github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"

	"github.com/srediag/shmrecord/pkg/shm"
)

// SetConfig is one record set definition as written in a file.
type SetConfig struct {
	Name          string   `toml:"name" yaml:"name"`
	Num           int      `toml:"num" yaml:"num"`
	Dtype         string   `toml:"dtype" yaml:"dtype"`
	VarNames      []string `toml:"varnames" yaml:"varnames"`
	ResetShm      bool     `toml:"reset_shm" yaml:"reset_shm"`
	VerifySchema  *bool    `toml:"verify_schema" yaml:"verify_schema"`
	FormatVersion string   `toml:"format_version" yaml:"format_version"`
}

// Config converts the file form to the options Open takes.
func (c SetConfig) Config() shm.Config {
	cfg := shm.DefaultConfig()
	cfg.Name = c.Name
	cfg.Count = c.Num
	if c.Dtype != "" {
		cfg.Type = c.Dtype
	}
	cfg.VarNames = slices.Clone(c.VarNames)
	cfg.Reset = c.ResetShm
	cfg.DisableSchemaCheck = c.VerifySchema != nil && !*c.VerifySchema
	if c.FormatVersion != "" {
		cfg.FormatVersion = c.FormatVersion
	}
	return cfg
}

// Entry is one record set found in a file.
type Entry struct {
	Section string
	Label   string
	Set     SetConfig
}

// Config returns the Open options of the entry.
func (e Entry) Config() shm.Config { return e.Set.Config() }

// Validate reports what Open would reject about this entry.
func (e Entry) Validate() error {
	if err := shm.VerifyConfig(e.Config()); err != nil {
		return fmt.Errorf("%s: %w", e.Label, err)
	}
	return nil
}

// File is a parsed configuration file.
type File struct {
	Path    string
	Entries []Entry
}

// Lookup finds an entry by label, or by segment name when no label matches.
func (f *File) Lookup(name string) (Entry, bool) {
	for _, e := range f.Entries {
		if e.Label == name {
			return e, true
		}
	}
	for _, e := range f.Entries {
		if e.Set.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Labels lists the entry labels in file order.
func (f *File) Labels() []string {
	out := make([]string, len(f.Entries))
	for i, e := range f.Entries {
		out[i] = e.Label
	}
	return out
}

// Load reads path, picking the format from its extension. Anything other
// than .yaml or .yml is parsed as TOML.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f *File
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		f, err = ParseYAML(data)
	default:
		f, err = ParseTOML(data)
	}
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	f.Path = path
	return f, nil
}

// ParseTOML parses a TOML document. Entries keep their document order.
func ParseTOML(data []byte) (*File, error) {
	tree, err := toml.LoadBytes(data)
	if err != nil {
		return nil, err
	}
	f := &File{}
	if tree.Has("name") {
		var set SetConfig
		if err := tree.Unmarshal(&set); err != nil {
			return nil, err
		}
		f.Entries = append(f.Entries, Entry{Label: set.Name, Set: set})
		return f, nil
	}
	type located struct {
		entry Entry
		pos   toml.Position
	}
	var found []located
	for _, section := range tree.Keys() {
		sub, ok := tree.GetPath([]string{section}).(*toml.Tree)
		if !ok {
			continue
		}
		for _, label := range sub.Keys() {
			node, ok := sub.GetPath([]string{label}).(*toml.Tree)
			if !ok {
				continue
			}
			var set SetConfig
			if err := node.Unmarshal(&set); err != nil {
				return nil, fmt.Errorf("[%s.%s]: %w", section, label, err)
			}
			found = append(found, located{
				entry: Entry{Section: section, Label: label, Set: set},
				pos:   sub.GetPosition(label),
			})
		}
	}
	// the tree is a map; put the tables back in the order they were written
	slices.SortFunc(found, func(a, b located) int {
		if a.pos.Line != b.pos.Line {
			return a.pos.Line - b.pos.Line
		}
		return a.pos.Col - b.pos.Col
	})
	for _, l := range found {
		f.Entries = append(f.Entries, l.entry)
	}
	if len(f.Entries) == 0 {
		return nil, fmt.Errorf("no record sets defined")
	}
	return f, nil
}

// ParseYAML parses a YAML document with the same shape as the TOML one.
// Entries keep their document order.
func ParseYAML(data []byte) (*File, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("top level is not a mapping")
	}
	root := doc.Content[0]
	f := &File{}
	if mappingHas(root, "name") {
		var set SetConfig
		if err := root.Decode(&set); err != nil {
			return nil, err
		}
		f.Entries = append(f.Entries, Entry{Label: set.Name, Set: set})
		return f, nil
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		section, sub := root.Content[i].Value, root.Content[i+1]
		if sub.Kind != yaml.MappingNode {
			continue
		}
		for j := 0; j+1 < len(sub.Content); j += 2 {
			label, node := sub.Content[j].Value, sub.Content[j+1]
			if node.Kind != yaml.MappingNode {
				continue
			}
			var set SetConfig
			if err := node.Decode(&set); err != nil {
				return nil, fmt.Errorf("%s.%s: %w", section, label, err)
			}
			f.Entries = append(f.Entries, Entry{Section: section, Label: label, Set: set})
		}
	}
	if len(f.Entries) == 0 {
		return nil, fmt.Errorf("no record sets defined")
	}
	return f, nil
}

func mappingHas(n *yaml.Node, key string) bool {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return true
		}
	}
	return false
}
