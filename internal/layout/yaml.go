package layout

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// MaxYAMLValues caps the number of values a YAML document may expand to once
// aliases are resolved.
const MaxYAMLValues = 100000

// ParseYAML decodes a YAML document into a Value. Mapping keys keep document
// order, so a YAML layout generates the same code as its JSON equivalent.
// Aliases are expanded in place; a document that expands beyond
// MaxYAMLValues values is rejected.
func ParseYAML(data []byte) (Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Value{}, fmt.Errorf("parsing layout YAML: %w", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return Null(), nil
	}
	d := &yamlDecoder{remaining: MaxYAMLValues}
	v, err := d.decode(doc.Content[0])
	if err != nil {
		return Value{}, fmt.Errorf("parsing layout YAML: %w", err)
	}
	return v, nil
}

type yamlDecoder struct {
	remaining int
}

func (d *yamlDecoder) decode(n *yaml.Node) (Value, error) {
	if d.remaining <= 0 {
		return Value{}, fmt.Errorf("line %d: document expands beyond %d values", n.Line, MaxYAMLValues)
	}
	d.remaining--

	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return Null(), nil
		}
		return d.decode(n.Content[0])
	case yaml.AliasNode:
		return d.decode(n.Alias)
	case yaml.MappingNode:
		props := NewProps()
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i]
			if key.Kind != yaml.ScalarNode {
				return Value{}, fmt.Errorf("line %d: mapping keys must be scalars", key.Line)
			}
			item, err := d.decode(n.Content[i+1])
			if err != nil {
				return Value{}, err
			}
			props.Set(key.Value, item)
		}
		return Object(props), nil
	case yaml.SequenceNode:
		items := make([]Value, 0, len(n.Content))
		for _, c := range n.Content {
			item, err := d.decode(c)
			if err != nil {
				return Value{}, err
			}
			items = append(items, item)
		}
		return Array(items...), nil
	case yaml.ScalarNode:
		return scalarFromYAML(n)
	}
	return Value{}, fmt.Errorf("line %d: unsupported YAML node kind %d", n.Line, n.Kind)
}

func scalarFromYAML(n *yaml.Node) (Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return Null(), nil
	case "!!bool":
		b, err := strconv.ParseBool(n.Value)
		if err != nil {
			var out bool
			if err := n.Decode(&out); err != nil {
				return Value{}, fmt.Errorf("line %d: %w", n.Line, err)
			}
			return Bool(out), nil
		}
		return Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return Value{}, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return Int(i), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return Value{}, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return Float(f), nil
	default:
		return String(n.Value), nil
	}
}
