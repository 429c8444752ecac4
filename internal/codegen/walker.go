package codegen

import (
	"log"
	"regexp"
	"strconv"
	"strings"

	"github.com/matthewbaird/uibuilder/internal/layout"
)

const (
	indentUnit = "  "

	// placeholderComment marks an empty container in the interactive builder.
	placeholderComment = "{/* Drop components here */}"
)

// attrName matches attribute names JSX accepts, including data-* and aria-*.
var attrName = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$-]*(:[A-Za-z_$][A-Za-z0-9_$-]*)?$`)

// walker emits JSX for a node tree, depth-first and pre-order, recording the
// first resolution of every type key it meets. Each distinct source module is
// bound once; a display name already bound in the module scope gets a
// numbered local alias.
type walker struct {
	resolver     Resolver
	placeholders bool

	imports  []Import
	bindings []Import
	byKey    map[string]Import
	bySource map[string]string
	bound    map[string]bool
	hasForm  bool
	b        strings.Builder
}

func newWalker(resolver Resolver, placeholders bool, reserved ...string) *walker {
	w := &walker{
		resolver:     resolver,
		placeholders: placeholders,
		byKey:        make(map[string]Import),
		bySource:     make(map[string]string),
		bound:        map[string]bool{"React": true, "handleSubmit": true},
	}
	for _, name := range reserved {
		w.bound[name] = true
	}
	return w
}

func (w *walker) resolve(typeKey string) Import {
	if imp, ok := w.byKey[typeKey]; ok {
		return imp
	}
	imp := w.resolver.Resolve(typeKey)
	if local, ok := w.bySource[imp.SourcePath]; ok {
		imp.Local = local
	} else {
		imp.Local = UniqueIdentifier(imp.DisplayName, w.bound)
		w.bound[imp.Local] = true
		w.bySource[imp.SourcePath] = imp.Local
		w.bindings = append(w.bindings, imp)
	}
	w.byKey[typeKey] = imp
	w.imports = append(w.imports, imp)
	return imp
}

// UniqueIdentifier returns name, or name followed by the smallest number
// from 2 up, whichever is not in taken.
func UniqueIdentifier(name string, taken map[string]bool) string {
	if !taken[name] {
		return name
	}
	for i := 2; ; i++ {
		candidate := name + strconv.Itoa(i)
		if !taken[candidate] {
			return candidate
		}
	}
}

func (w *walker) nodes(nodes []layout.Node, depth int) {
	for _, n := range nodes {
		w.node(n, depth)
	}
}

func (w *walker) node(n layout.Node, depth int) {
	imp := w.resolve(n.Type)
	if n.Type == "form" {
		w.hasForm = true
	}

	tag := imp.Local
	indent := strings.Repeat(indentUnit, depth)
	open := "<" + tag
	if attrs := w.attributes(n); attrs != "" {
		open += " " + attrs
	}

	switch {
	case n.HasChildren() && len(n.Children) > 0:
		w.line(indent, open+">")
		w.nodes(n.Children, depth+1)
		w.line(indent, "</"+tag+">")

	case n.HasChildren():
		if w.placeholders {
			w.line(indent, open+">")
			w.line(indent+indentUnit, placeholderComment)
			w.line(indent, "</"+tag+">")
		} else {
			w.line(indent, open+"></"+tag+">")
		}

	default:
		content, ok := n.Content()
		if !ok || content.IsNull() || isEmptyString(content) {
			w.line(indent, open+" />")
			return
		}
		w.line(indent, open+">")
		w.line(indent+indentUnit, contentLine(content))
		w.line(indent, "</"+tag+">")
	}
}

func (w *walker) line(indent, text string) {
	w.b.WriteString(indent)
	w.b.WriteString(text)
	w.b.WriteByte('\n')
}

// attributes renders props in insertion order. children is content, not an
// attribute; empty strings are omitted.
func (w *walker) attributes(n layout.Node) string {
	var parts []string
	hasSubmit := false
	for _, key := range n.Props.Keys() {
		if key == "children" {
			continue
		}
		if !attrName.MatchString(key) {
			log.Printf("codegen: node %q: skipping prop %q, not a valid attribute name", n.ID, key)
			continue
		}
		if key == "onSubmit" {
			hasSubmit = true
		}
		v, _ := n.Props.Get(key)
		if attr, ok := attribute(key, v); ok {
			parts = append(parts, attr)
		}
	}
	if n.Type == "form" && !hasSubmit {
		parts = append(parts, "onSubmit={handleSubmit}")
	}
	return strings.Join(parts, " ")
}

func attribute(key string, v layout.Value) (string, bool) {
	if s, ok := v.Str(); ok {
		if s == "" {
			return "", false
		}
		if strings.ContainsRune(s, '"') {
			return key + "={" + v.JSON() + "}", true
		}
		return key + `="` + s + `"`, true
	}
	// style objects and every other non-string value embed as a JSON
	// expression; an object literal renders as style={{...}}.
	return key + "={" + v.JSON() + "}", true
}

// contentLine renders literal props.children. Text that JSX would parse as
// markup or an expression is emitted as a string expression instead.
func contentLine(v layout.Value) string {
	if s, ok := v.Str(); ok {
		if strings.ContainsAny(s, "{}<>") {
			return "{" + v.JSON() + "}"
		}
		return s
	}
	return "{" + v.JSON() + "}"
}

func isEmptyString(v layout.Value) bool {
	s, ok := v.Str()
	return ok && s == ""
}
