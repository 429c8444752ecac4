// Package layout defines the recursive component tree edited on the canvas and
// the structural validator that gates it before code generation.
package layout

import (
	"bytes"
)

// Node is one entry in the component tree.
//
// Children distinguishes "absent" (nil) from "present but empty" (non-nil,
// zero length). When Children is non-nil it is the structural child list and
// Props["children"] is ignored for rendering; otherwise Props["children"] is
// literal content.
type Node struct {
	ID       string
	Type     string
	Props    *Props
	Children []Node
}

// HasChildren reports whether the node carries a structural child list,
// possibly empty.
func (n Node) HasChildren() bool { return n.Children != nil }

// Content returns props.children when the node has no structural children.
func (n Node) Content() (Value, bool) {
	if n.HasChildren() {
		return Value{}, false
	}
	return n.Props.Get("children")
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	out := Node{ID: n.ID, Type: n.Type, Props: n.Props.Clone()}
	if n.Children != nil {
		out.Children = make([]Node, len(n.Children))
		for i, c := range n.Children {
			out.Children[i] = c.Clone()
		}
	}
	return out
}

// Value converts the node back into its JSON shape.
func (n Node) Value() Value {
	obj := NewProps()
	obj.Set("id", String(n.ID))
	obj.Set("type", String(n.Type))
	obj.Set("props", Object(n.Props.Clone()))
	if n.Children != nil {
		items := make([]Value, len(n.Children))
		for i, c := range n.Children {
			items[i] = c.Value()
		}
		obj.Set("children", Array(items...))
	}
	return Object(obj)
}

func (n Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	n.Value().encode(&buf)
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a single node, applying the same structural rules as
// Validate.
func (n *Node) UnmarshalJSON(data []byte) error {
	v, err := Parse(data)
	if err != nil {
		return err
	}
	node, err := validateNode(v, "")
	if err != nil {
		return err
	}
	*n = node
	return nil
}

// TreeValue converts a node sequence into a JSON array value.
func TreeValue(nodes []Node) Value {
	items := make([]Value, len(nodes))
	for i, n := range nodes {
		items[i] = n.Value()
	}
	return Array(items...)
}

// Walk visits nodes depth-first, pre-order. Returning false from fn skips the
// node's children.
func Walk(nodes []Node, fn func(n Node, depth int) bool) {
	walk(nodes, 0, fn)
}

func walk(nodes []Node, depth int, fn func(n Node, depth int) bool) {
	for _, n := range nodes {
		if fn(n, depth) {
			walk(n.Children, depth+1, fn)
		}
	}
}

// DuplicateIDs returns ids that occur more than once in the tree, in order of
// their second occurrence. Uniqueness is not part of validation; callers use
// this to surface a warning.
func DuplicateIDs(nodes []Node) []string {
	seen := map[string]int{}
	var dups []string
	Walk(nodes, func(n Node, _ int) bool {
		seen[n.ID]++
		if seen[n.ID] == 2 {
			dups = append(dups, n.ID)
		}
		return true
	})
	return dups
}

// Page is one routed screen of a multi-page application. Layout is kept as
// decoded; a malformed layout does not fail decoding of the page list, it is
// reported by Nodes.
type Page struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Path   string `json:"path"`
	Layout Value  `json:"layout"`
	IsHome bool   `json:"isHome"`
}

// Nodes validates the page layout. An absent or null layout is an empty page.
func (p Page) Nodes() ([]Node, error) {
	if p.Layout.IsNull() {
		return nil, nil
	}
	return Validate(p.Layout)
}
