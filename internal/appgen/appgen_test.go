package appgen

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/uibuilder/internal/codegen"
	"github.com/matthewbaird/uibuilder/internal/layout"
	"github.com/matthewbaird/uibuilder/internal/registry"
)

func mustPages(t *testing.T, src string) []layout.Page {
	t.Helper()
	var pages []layout.Page
	require.NoError(t, json.Unmarshal([]byte(src), &pages))
	return pages
}

const twoPages = `[
	{"id":"p1","name":"Home","path":"/","isHome":true,"layout":[
		{"id":"h","type":"heading","props":{"children":"Welcome"}},
		{"id":"b","type":"button","props":{"children":"Start"}}
	]},
	{"id":"p2","name":"About Us","path":"/about","layout":[
		{"id":"c","type":"card","children":[{"id":"t","type":"text","props":{"children":"We build things."}}]}
	]}
]`

func TestGenerate_FileLayout(t *testing.T) {
	files, err := Generate(mustPages(t, twoPages), Options{Name: "My Shop"})
	require.NoError(t, err)

	for _, p := range []string{
		"package.json", "vite.config.js", "index.html", "README.md",
		"src/main.jsx", "src/App.jsx", "src/index.css",
		"src/pages/HomePage.jsx", "src/styles/HomePage.css",
		"src/pages/AboutUsPage.jsx", "src/styles/AboutUsPage.css",
		"src/components/Button/Button.jsx", "src/components/Button/Button.css",
		"src/components/Modal/Modal.jsx",
	} {
		assert.Contains(t, files, p)
	}
	assert.Contains(t, files["package.json"], `"name": "my-shop"`)
	assert.Contains(t, files["index.html"], "<title>My Shop</title>")
}

func TestGenerate_Router(t *testing.T) {
	files, err := Generate(mustPages(t, twoPages), Options{})
	require.NoError(t, err)

	app := files["src/App.jsx"]
	assert.Contains(t, app, "import HomePage from './pages/HomePage';")
	assert.Contains(t, app, "import AboutUsPage from './pages/AboutUsPage';")
	assert.Contains(t, app, `<Route path="/" element={<HomePage />} />`)
	assert.Contains(t, app, `<Route path="/about" element={<AboutUsPage />} />`)
	assert.Contains(t, app, `<Route path="*" element={<Navigate to="/" replace />} />`)
	assert.Less(t, strings.Index(app, "HomePage />"), strings.Index(app, "AboutUsPage />"))
}

func TestGenerate_PageModules(t *testing.T) {
	files, err := Generate(mustPages(t, twoPages), Options{})
	require.NoError(t, err)

	home := files["src/pages/HomePage.jsx"]
	assert.Contains(t, home, "import Heading from '../components/Heading/Heading';")
	assert.Contains(t, home, "import '../styles/HomePage.css';")
	assert.Contains(t, home, "const HomePage = () => {")
	assert.NotContains(t, home, "Drop components here")

	assert.Contains(t, files["src/styles/AboutUsPage.css"], ".about-us-page {")
	assert.Contains(t, files["README.md"], "| About Us | `/about` | `src/pages/AboutUsPage.jsx` |")
	assert.Contains(t, files["README.md"], "| Home (home) | `/` |")
}

func TestGenerate_HomeFallsBackToFirstPage(t *testing.T) {
	pages := mustPages(t, `[
		{"id":"1","name":"Landing","path":"/landing","layout":[]},
		{"id":"2","name":"Docs","path":"/docs","layout":[]}
	]`)
	files, err := Generate(pages, Options{})
	require.NoError(t, err)
	assert.Contains(t, files["src/App.jsx"], `<Navigate to="/landing" replace />`)

	i, ok := HomePage(pages)
	assert.True(t, ok)
	assert.Equal(t, 0, i)
}

func TestGenerate_NoPages(t *testing.T) {
	files, err := Generate(nil, Options{})
	require.NoError(t, err)
	assert.Contains(t, files["src/App.jsx"], `<Navigate to="/" replace />`)
	assert.Contains(t, files, "src/components/Card/Card.jsx")
}

func TestGenerate_DerivesMissingPaths(t *testing.T) {
	files, err := Generate(mustPages(t, `[
		{"id":"1","name":"Start","isHome":true,"layout":[]},
		{"id":"2","name":"Price List","path":"pricing","layout":[]},
		{"id":"3","name":"Contact Form","layout":[]}
	]`), Options{})
	require.NoError(t, err)

	app := files["src/App.jsx"]
	assert.Contains(t, app, `<Route path="/" element={<StartPage />} />`)
	assert.Contains(t, app, `<Route path="/pricing" element={<PriceListPage />} />`)
	assert.Contains(t, app, `<Route path="/contact-form" element={<ContactFormPage />} />`)
}

func TestGenerate_Collisions(t *testing.T) {
	tests := map[string]struct {
		pages string
		path  string
	}{
		"same module": {
			`[{"id":"1","name":"About Us","path":"/a","layout":[]},{"id":"2","name":"AboutUs","path":"/b","layout":[]}]`,
			"src/pages/AboutUsPage.jsx",
		},
		"same route": {
			`[{"id":"1","name":"One","path":"/x","layout":[]},{"id":"2","name":"Two","path":"/x","layout":[]}]`,
			"route /x",
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Generate(mustPages(t, tt.pages), Options{})
			var collision *CollisionError
			require.True(t, errors.As(err, &collision), "got %v", err)
			assert.Equal(t, tt.path, collision.Path)
		})
	}
}

func TestGenerate_RejectsUnsafeRoute(t *testing.T) {
	_, err := Generate(mustPages(t, `[{"id":"1","name":"X","path":"/\" onClick","layout":[]}]`), Options{})
	assert.ErrorContains(t, err, "invalid route path")
}

func TestGenerate_StubsUnknownComponents(t *testing.T) {
	files, err := Generate(mustPages(t, `[{"id":"1","name":"Home","isHome":true,"layout":[
		{"id":"d","type":"date-picker"}
	]}]`), Options{})
	require.NoError(t, err)

	assert.Contains(t, files["src/pages/HomePage.jsx"], "import DatePicker from '../components/DatePicker/DatePicker';")
	stub := files["src/components/DatePicker/DatePicker.jsx"]
	assert.Contains(t, stub, "const DatePicker = (")
	assert.Contains(t, stub, `data-component="date-picker"`)
	assert.Contains(t, files["src/components/DatePicker/DatePicker.css"], ".ui-date-picker {")
}

func TestGenerate_StubNamesAvoidModuleBindings(t *testing.T) {
	files, err := Generate(mustPages(t, `[{"id":"1","name":"Home","isHome":true,"layout":[
		{"id":"r","type":"react"}
	]}]`), Options{})
	require.NoError(t, err)

	page := files["src/pages/HomePage.jsx"]
	assert.Contains(t, page, "import React from 'react';")
	assert.Contains(t, page, "import React2 from '../components/React/React';")
	assert.Contains(t, page, "<React2 />")

	stub := files["src/components/React/React.jsx"]
	assert.Contains(t, stub, "import React from 'react';")
	assert.Contains(t, stub, "import './React.css';")
	assert.Contains(t, stub, "const React2 = (")
	assert.Contains(t, stub, "export default React2;")
}

func TestGenerate_MalformedPageLayoutDegrades(t *testing.T) {
	files, err := Generate(mustPages(t, `[
		{"id":"1","name":"Home","isHome":true,"layout":[{"id":"b","type":"button","props":{"children":"Go"}}]},
		{"id":"2","name":"Broken","path":"/broken","layout":[{"type":"text"}]}
	]`), Options{})
	require.NoError(t, err)

	assert.Contains(t, files["src/pages/HomePage.jsx"], "<Button>")
	broken := files["src/pages/BrokenPage.jsx"]
	require.NotEmpty(t, broken)
	assert.Contains(t, broken, "const BrokenPage = () => {")
	assert.NotContains(t, broken, "<Text")
	assert.Contains(t, files["src/App.jsx"], `path="/broken"`)
}

func TestGenerate_ManifestIsPure(t *testing.T) {
	files, err := Generate(mustPages(t, twoPages), Options{})
	require.NoError(t, err)

	require.NoError(t, codegen.CheckManifest(files["package.json"]))
	for _, dep := range codegen.EditorOnlyDependencies {
		assert.NotContains(t, files["package.json"], `"`+dep+`"`)
	}
	assert.NotContains(t, files["package.json"], "^")
}

func TestGenerate_IsDeterministic(t *testing.T) {
	pages := mustPages(t, twoPages)
	a, err := Generate(pages, Options{})
	require.NoError(t, err)
	b, err := Generate(pages, Options{})
	require.NoError(t, err)

	da, err := a.Digest()
	require.NoError(t, err)
	db, err := b.Digest()
	require.NoError(t, err)
	assert.Equal(t, da, db)
}

func TestLibrary_CoversBuiltinCatalog(t *testing.T) {
	descs, err := registry.BuiltinCatalog()
	require.NoError(t, err)
	lib, err := Library()
	require.NoError(t, err)

	for _, d := range descs {
		assert.True(t, HasComponent(d.DisplayName), d.Key)
		assert.Contains(t, lib, "src/components/"+d.SourcePath+".jsx")
		assert.Contains(t, lib, "src/components/"+d.SourcePath+".css")
	}
	assert.Len(t, lib, 2*len(descs))
}

func TestModuleName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Home", "Home"},
		{"about us", "AboutUs"},
		{"  Contact\tForm ", "ContactForm"},
		{"FAQ & Help!", "FAQHelp"},
		{"2024 Report", "Page2024Report"},
		{"   ", "Page6"},
	}
	for i, tt := range tests {
		assert.Equal(t, tt.want, ModuleName(tt.in, i), tt.in)
	}
}
