package layout

import (
	"fmt"
	"strconv"
)

// SchemaViolation reports the first structural defect found in a tree.
type SchemaViolation struct {
	Path    string // location such as "[0].children[2].id"; empty for the root
	Message string
}

func (e *SchemaViolation) Error() string {
	if e.Path == "" {
		return "layout: " + e.Message
	}
	return fmt.Sprintf("layout: %s: %s", e.Path, e.Message)
}

func violation(path, format string, args ...any) *SchemaViolation {
	return &SchemaViolation{Path: path, Message: fmt.Sprintf(format, args...)}
}

// Validate checks that v is a well-formed tree and returns a normalized copy.
//
// The tree is an array of nodes; a single node object is accepted as a
// one-element tree. Every node at every depth must have a string id, a string
// type, props that is an object (an absent props becomes {}), and, if present,
// children that is an array of valid nodes. Any defect rejects the whole tree.
// Props contents are not inspected.
func Validate(v Value) ([]Node, error) {
	switch v.Kind() {
	case KindArray:
		items, _ := v.Arr()
		return validateList(items, "")
	case KindObject:
		n, err := validateNode(v, "[0]")
		if err != nil {
			return nil, err
		}
		return []Node{n}, nil
	default:
		return nil, violation("", "tree must be an array of nodes, got %s", v.Kind())
	}
}

// ValidateJSON parses data and validates it.
func ValidateJSON(data []byte) ([]Node, error) {
	v, err := Parse(data)
	if err != nil {
		return nil, &SchemaViolation{Message: err.Error()}
	}
	return Validate(v)
}

func validateList(items []Value, prefix string) ([]Node, error) {
	nodes := make([]Node, 0, len(items))
	for i, item := range items {
		n, err := validateNode(item, prefix+"["+strconv.Itoa(i)+"]")
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func validateNode(v Value, path string) (Node, error) {
	obj, ok := v.Obj()
	if !ok {
		return Node{}, violation(path, "node must be an object, got %s", v.Kind())
	}

	id, err := requireString(obj, "id", path)
	if err != nil {
		return Node{}, err
	}
	typ, err := requireString(obj, "type", path)
	if err != nil {
		return Node{}, err
	}

	node := Node{ID: id, Type: typ, Props: NewProps()}

	if raw, ok := obj.Get("props"); ok {
		props, ok := raw.Obj()
		if !ok {
			return Node{}, violation(join(path, "props"), "must be an object, got %s", raw.Kind())
		}
		node.Props = props.Clone()
	}

	if raw, ok := obj.Get("children"); ok {
		items, ok := raw.Arr()
		if !ok {
			return Node{}, violation(join(path, "children"), "must be an array, got %s", raw.Kind())
		}
		children, err := validateList(items, join(path, "children"))
		if err != nil {
			return Node{}, err
		}
		node.Children = children
	}

	return node, nil
}

func requireString(obj *Props, key, path string) (string, error) {
	raw, ok := obj.Get(key)
	if !ok {
		return "", violation(join(path, key), "is required")
	}
	s, ok := raw.Str()
	if !ok {
		return "", violation(join(path, key), "must be a string, got %s", raw.Kind())
	}
	return s, nil
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// Normalize drops nodes without a type at any depth, gives every node a props
// bag, and deep-copies the result. It never fails. Ids are opaque and may be
// empty, matching Validate.
func Normalize(nodes []Node) []Node {
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if n.Type == "" {
			continue
		}
		norm := Node{ID: n.ID, Type: n.Type, Props: n.Props.Clone()}
		if n.Children != nil {
			norm.Children = Normalize(n.Children)
		}
		out = append(out, norm)
	}
	return out
}
