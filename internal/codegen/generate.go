// Package codegen turns a layout tree into a standalone React module.
//
// One tree-walk core serves both the single-page export and the per-page
// modules of the full application; callers choose how type keys become
// import bindings by passing a Resolver.
package codegen

import (
	"fmt"
	"log"
	"strings"
	"unicode"

	"github.com/matthewbaird/uibuilder/internal/layout"
	"github.com/matthewbaird/uibuilder/internal/registry"
)

// DefaultComponentName names the single-page export module.
const DefaultComponentName = "GeneratedComponent"

// Options controls module assembly. The zero value generates the single-page
// export with editor placeholders off.
type Options struct {
	// ComponentName is the exported component identifier.
	ComponentName string
	// ImportBase prefixes every resolved source path, e.g. "./components/".
	ImportBase string
	// StylesheetPath is the module's stylesheet import; defaults to
	// "./<ComponentName>.css".
	StylesheetPath string
	// Placeholders emits the builder's empty-container comment.
	Placeholders bool
}

func (o Options) withDefaults() Options {
	if strings.TrimSpace(o.ComponentName) == "" {
		o.ComponentName = DefaultComponentName
	} else {
		o.ComponentName = registry.DisplayName(o.ComponentName)
	}
	if o.ImportBase == "" {
		o.ImportBase = "./components/"
	}
	if o.StylesheetPath == "" {
		o.StylesheetPath = "./" + o.ComponentName + ".css"
	}
	return o
}

// Result is the output of a single-page generation.
type Result struct {
	Code    string   `json:"code"`
	Imports []Import `json:"imports"`
	HasForm bool     `json:"hasForm"`
	// Warnings lists non-fatal findings: a rejected tree, unknown types,
	// duplicate ids.
	Warnings []string `json:"warnings,omitempty"`
}

// Generate emits a module for an already validated tree. Nodes without a
// type are dropped first. The output depends only on the input: identical
// trees give byte-identical code.
func Generate(nodes []layout.Node, resolver Resolver, opts Options) Result {
	opts = opts.withDefaults()
	nodes = layout.Normalize(nodes)

	w := newWalker(resolver, opts.Placeholders, opts.ComponentName)
	w.nodes(nodes, 3)

	res := Result{
		Code:    assemble(w, opts),
		Imports: w.imports,
		HasForm: w.hasForm,
	}
	if res.Imports == nil {
		res.Imports = []Import{}
	}
	for _, imp := range w.imports {
		if imp.Fallback {
			res.Warnings = append(res.Warnings, fmt.Sprintf("unknown component type %q rendered as %s", imp.TypeKey, imp.DisplayName))
		}
	}
	for _, id := range layout.DuplicateIDs(nodes) {
		res.Warnings = append(res.Warnings, fmt.Sprintf("duplicate node id %q", id))
	}
	return res
}

// GenerateValue validates an arbitrary JSON value and generates from it. A
// tree that fails validation is logged and generates an empty module; this
// function never fails.
func GenerateValue(v layout.Value, resolver Resolver, opts Options) Result {
	nodes, err := layout.Validate(v)
	if err != nil {
		log.Printf("codegen: layout rejected, generating empty module: %v", err)
		res := Generate(nil, resolver, opts)
		res.Warnings = append([]string{err.Error()}, res.Warnings...)
		return res
	}
	return Generate(nodes, resolver, opts)
}

// GenerateJSON parses and generates from raw JSON with the same degradation
// as GenerateValue.
func GenerateJSON(data []byte, resolver Resolver, opts Options) Result {
	v, err := layout.Parse(data)
	if err != nil {
		log.Printf("codegen: layout unreadable, generating empty module: %v", err)
		res := Generate(nil, resolver, opts)
		res.Warnings = append([]string{err.Error()}, res.Warnings...)
		return res
	}
	return GenerateValue(v, resolver, opts)
}

func assemble(w *walker, opts Options) string {
	var b strings.Builder
	b.WriteString("import React from 'react';\n")
	for _, imp := range w.bindings {
		fmt.Fprintf(&b, "import %s from '%s%s';\n", imp.Local, opts.ImportBase, imp.SourcePath)
	}
	fmt.Fprintf(&b, "import '%s';\n\n", opts.StylesheetPath)

	fmt.Fprintf(&b, "const %s = () => {\n", opts.ComponentName)
	if w.hasForm {
		b.WriteString("  const handleSubmit = (event) => {\n")
		b.WriteString("    event.preventDefault();\n")
		b.WriteString("    const data = Object.fromEntries(new FormData(event.currentTarget).entries());\n")
		b.WriteString("    console.log('Form submitted:', data);\n")
		b.WriteString("  };\n\n")
	}
	b.WriteString("  return (\n")
	fmt.Fprintf(&b, "    <div className=\"%s\">\n", WrapperClass(opts.ComponentName))
	b.WriteString(w.b.String())
	b.WriteString("    </div>\n")
	b.WriteString("  );\n")
	b.WriteString("};\n\n")
	fmt.Fprintf(&b, "export default %s;\n", opts.ComponentName)
	return b.String()
}

// WrapperClass kebab-cases a component name for the top-level wrapper:
// "GeneratedComponent" -> "generated-component".
func WrapperClass(componentName string) string {
	var b strings.Builder
	runes := []rune(componentName)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])) {
				b.WriteByte('-')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// PageFiles bundles a single-page result into a file map: the module, its
// stylesheet and a manifest.
func PageFiles(res Result, opts Options) FileMap {
	opts = opts.withDefaults()
	return FileMap{
		opts.ComponentName + ".jsx": res.Code,
		opts.ComponentName + ".css": Stylesheet(opts.ComponentName),
		"package.json":              Manifest(ManifestOptions{Name: WrapperClass(opts.ComponentName)}),
	}
}
