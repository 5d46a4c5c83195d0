package profiles

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is one device profile: the driver constructor arguments, either
// positional or named. The resolver does not interpret them.
type Config struct {
	Key    string
	Source string

	Positional []any
	Named      map[string]any
}

// IsPositional reports whether the profile was written as a YAML sequence.
func (c Config) IsPositional() bool {
	return c.Named == nil
}

// Value returns the arguments as a generic []any or map[string]any.
func (c Config) Value() any {
	if c.IsPositional() {
		return c.Positional
	}
	return c.Named
}

// MarshalJSON encodes a positional profile as an array and a named profile as an object.
func (c Config) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Value())
}

// UnmarshalJSON accepts the encoding produced by MarshalJSON.
func (c *Config) UnmarshalJSON(data []byte) error {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	switch v := value.(type) {
	case []any:
		if len(v) == 0 {
			return errors.New("empty driver argument list")
		}
		c.Positional, c.Named = v, nil
	case map[string]any:
		if len(v) == 0 {
			return errors.New("empty driver argument mapping")
		}
		c.Positional, c.Named = nil, v
	default:
		return fmt.Errorf("driver arguments must be an array or an object, got %T", value)
	}
	return nil
}

// Document is a parsed device profiles file. Profiles are decoded on lookup.
type Document struct {
	Path  string
	keys  []string
	nodes map[string]*yaml.Node
}

// ReadDocument reads and parses the profiles file at path.
func ReadDocument(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading device profiles: %w", err)
	}
	return ParseDocument(path, raw)
}

// ParseDocument parses raw as a top-level mapping from profile key to profile.
// path is only used in messages.
func ParseDocument(path string, raw []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	doc := &Document{Path: path, nodes: map[string]*yaml.Node{}}
	mapping := &root
	if mapping.Kind == yaml.DocumentNode && len(mapping.Content) > 0 {
		mapping = mapping.Content[0]
	}
	if mapping.Kind == 0 || mapping.Kind == yaml.DocumentNode {
		return nil, &ParseError{Path: path, Err: errors.New("file is empty")}
	}
	if mapping.Kind != yaml.MappingNode {
		return nil, &ParseError{Path: path, Err: fmt.Errorf("line %d: top-level value must be a mapping of profile keys", mapping.Line)}
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		keyNode, valueNode := mapping.Content[i], mapping.Content[i+1]
		if keyNode.Kind != yaml.ScalarNode || keyNode.Value == "" {
			return nil, &ParseError{Path: path, Err: fmt.Errorf("line %d: profile keys must be non-empty strings", keyNode.Line)}
		}
		if _, ok := doc.nodes[keyNode.Value]; ok {
			return nil, &ParseError{Path: path, Err: fmt.Errorf("line %d: profile %q already defined", keyNode.Line, keyNode.Value)}
		}
		doc.keys = append(doc.keys, keyNode.Value)
		doc.nodes[keyNode.Value] = valueNode
	}
	return doc, nil
}

// Keys returns the profile keys in file order.
func (d *Document) Keys() []string {
	return append([]string(nil), d.keys...)
}

// Shape describes how a profile is written: "sequence", "mapping" or "invalid".
func (d *Document) Shape(key string) string {
	node, ok := d.nodes[key]
	if !ok {
		return ""
	}
	if _, err := d.decode(key, node); err != nil {
		return "invalid"
	}
	if node.Kind == yaml.SequenceNode {
		return "sequence"
	}
	return "mapping"
}

// Profile returns the profile for key. A missing key, or a value that is not
// a non-empty sequence or mapping, is a *ProfileNotFoundError.
func (d *Document) Profile(key string) (Config, error) {
	if key == "" {
		return Config{}, &ProfileNotFoundError{Key: key, Path: d.Path, Reason: "empty profile key"}
	}
	node, ok := d.nodes[key]
	if !ok {
		return Config{}, &ProfileNotFoundError{Key: key, Path: d.Path}
	}
	return d.decode(key, node)
}

func (d *Document) decode(key string, node *yaml.Node) (Config, error) {
	cfg := Config{Key: key, Source: d.Path}
	for node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	switch node.Kind {
	case yaml.SequenceNode:
		if err := node.Decode(&cfg.Positional); err != nil {
			return Config{}, &ParseError{Path: d.Path, Err: err}
		}
		if len(cfg.Positional) == 0 {
			return Config{}, &ProfileNotFoundError{Key: key, Path: d.Path, Reason: "profile is an empty list"}
		}
	case yaml.MappingNode:
		if err := node.Decode(&cfg.Named); err != nil {
			return Config{}, &ParseError{Path: d.Path, Err: err}
		}
		if len(cfg.Named) == 0 {
			return Config{}, &ProfileNotFoundError{Key: key, Path: d.Path, Reason: "profile is an empty mapping"}
		}
	default:
		return Config{}, &ProfileNotFoundError{
			Key:    key,
			Path:   d.Path,
			Reason: fmt.Sprintf("line %d: profile must be a list or a mapping, not a scalar", node.Line),
		}
	}
	return cfg, nil
}
