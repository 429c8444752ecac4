package codegen

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Dependency is one npm package in a generated manifest.
type Dependency struct {
	Name    string
	Version string
}

// RuntimeDependencies are the only libraries a generated app needs at
// runtime: UI framework, router, icon set.
var RuntimeDependencies = []Dependency{
	{Name: "lucide-react", Version: "^0.363.0"},
	{Name: "react", Version: "^18.2.0"},
	{Name: "react-dom", Version: "^18.2.0"},
	{Name: "react-router-dom", Version: "^6.22.3"},
}

// BuildDependencies are the build tool packages of a generated app.
var BuildDependencies = []Dependency{
	{Name: "@vitejs/plugin-react", Version: "^4.2.1"},
	{Name: "vite", Version: "^5.2.0"},
}

// EditorOnlyDependencies belong to the builder's own editing environment
// (state store, form-schema validation, theming, drag and drop). None of them
// may appear in an exported manifest.
var EditorOnlyDependencies = []string{
	"zustand",
	"zod",
	"@mui/material",
	"@mui/icons-material",
	"@emotion/react",
	"@emotion/styled",
	"styled-components",
	"react-dnd",
	"react-dnd-html5-backend",
	"@dnd-kit/core",
	"immer",
}

// ManifestOptions controls Manifest.
type ManifestOptions struct {
	Name string
	// Pinned drops range operators so installs reproduce known-good versions.
	Pinned bool
}

type packageJSON struct {
	Name            string            `json:"name"`
	Private         bool              `json:"private"`
	Version         string            `json:"version"`
	Type            string            `json:"type"`
	Scripts         map[string]string `json:"scripts"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// Manifest returns a package.json for a generated app. Keys of every object
// are emitted in sorted order.
func Manifest(opts ManifestOptions) string {
	name := opts.Name
	if name == "" {
		name = "generated-app"
	}
	pkg := packageJSON{
		Name:    name,
		Private: true,
		Version: "0.1.0",
		Type:    "module",
		Scripts: map[string]string{
			"dev":     "vite",
			"build":   "vite build",
			"preview": "vite preview",
		},
		Dependencies:    depMap(RuntimeDependencies, opts.Pinned),
		DevDependencies: depMap(BuildDependencies, opts.Pinned),
	}
	out, _ := json.MarshalIndent(pkg, "", "  ")
	return string(out) + "\n"
}

func depMap(deps []Dependency, pinned bool) map[string]string {
	m := make(map[string]string, len(deps))
	for _, d := range deps {
		v := d.Version
		if pinned {
			v = strings.TrimLeft(v, "^~")
		}
		m[d.Name] = v
	}
	return m
}

// CheckManifest fails if a package.json lists any editor-only dependency in
// its dependencies, devDependencies or peerDependencies.
func CheckManifest(manifest string) error {
	var pkg struct {
		Dependencies     map[string]string `json:"dependencies"`
		DevDependencies  map[string]string `json:"devDependencies"`
		PeerDependencies map[string]string `json:"peerDependencies"`
	}
	if err := json.Unmarshal([]byte(manifest), &pkg); err != nil {
		return fmt.Errorf("parsing manifest: %w", err)
	}

	var leaked []string
	for _, name := range EditorOnlyDependencies {
		_, a := pkg.Dependencies[name]
		_, b := pkg.DevDependencies[name]
		_, c := pkg.PeerDependencies[name]
		if a || b || c {
			leaked = append(leaked, name)
		}
	}
	if len(leaked) > 0 {
		sort.Strings(leaked)
		return fmt.Errorf("manifest lists editor-only dependencies: %s", strings.Join(leaked, ", "))
	}
	return nil
}
