// Package appgen generates a complete, standalone React application from a
// set of pages: router entry, one module and stylesheet per page, root
// project files, and a bundled library of shared components.
package appgen

import (
	"embed"
	"fmt"
	"io/fs"
	"log"
	"path"
	"regexp"
	"strings"
	"text/template"
	"unicode"

	"github.com/matthewbaird/uibuilder/internal/codegen"
	"github.com/matthewbaird/uibuilder/internal/layout"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

//go:embed library
var libraryFS embed.FS

var templates = template.Must(template.New("").ParseFS(templateFS, "templates/*.tmpl"))

// DefaultName is the package name of a generated app when none is given.
const DefaultName = "generated-app"

// Options controls app generation.
type Options struct {
	// Name is the npm package name; defaults to DefaultName.
	Name string
	// Title is the document title and README heading; defaults to Name.
	Title string
}

// CollisionError reports two generator inputs that map to one output path or
// route.
type CollisionError struct {
	Path   string
	First  string
	Second string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("appgen: %s and %s both produce %s", e.First, e.Second, e.Path)
}

type pageData struct {
	Title  string
	Module string
	Path   string
	Home   bool
	nodes  []layout.Node
}

type appData struct {
	Name     string
	Title    string
	Pages    []pageData
	HomePath string
}

// routePath accepts route patterns react-router understands and nothing that
// could break out of a JSX attribute.
var routePath = regexp.MustCompile(`^/[A-Za-z0-9/_:.*~-]*$`)

// Generate builds the file map for pages. Pages keep their input order in the
// router. Two pages whose names normalize to the same module, or that claim
// the same route, fail with *CollisionError.
func Generate(pages []layout.Page, opts Options) (codegen.FileMap, error) {
	if opts.Name == "" {
		opts.Name = DefaultName
	}
	if opts.Title == "" {
		opts.Title = opts.Name
	}

	data, err := prepare(pages, opts)
	if err != nil {
		return nil, err
	}

	b := newBuilder()
	for _, name := range []string{"package.json", "vite.config.js", "index.html", "README.md", "src/main.jsx", "src/App.jsx", "src/index.css"} {
		content, err := rootFile(name, data)
		if err != nil {
			return nil, err
		}
		if err := b.add(name, content, "project file "+name); err != nil {
			return nil, err
		}
	}

	used := make(map[string]string)
	for _, p := range data.Pages {
		res := codegen.Generate(p.nodes, codegen.TitleCaseResolver(), codegen.Options{
			ComponentName:  p.Module,
			ImportBase:     "../components/",
			StylesheetPath: "../styles/" + p.Module + ".css",
		})
		for _, w := range res.Warnings {
			log.Printf("appgen: page %q: %s", p.Title, w)
		}
		for _, imp := range res.Imports {
			if _, ok := used[imp.DisplayName]; !ok {
				used[imp.DisplayName] = imp.TypeKey
			}
		}

		origin := fmt.Sprintf("page %q", p.Title)
		if err := b.add("src/pages/"+p.Module+".jsx", res.Code, origin); err != nil {
			return nil, err
		}
		if err := b.add("src/styles/"+p.Module+".css", codegen.Stylesheet(p.Module), origin); err != nil {
			return nil, err
		}
	}

	library, err := Library()
	if err != nil {
		return nil, err
	}
	for _, p := range library.Paths() {
		if err := b.add(p, library[p], "component library"); err != nil {
			return nil, err
		}
	}
	for name, typeKey := range used {
		if HasComponent(name) {
			continue
		}
		stub, err := stubFiles(name, typeKey)
		if err != nil {
			return nil, err
		}
		for _, p := range stub.Paths() {
			if err := b.add(p, stub[p], fmt.Sprintf("stub for %q", typeKey)); err != nil {
				return nil, err
			}
		}
	}

	return b.files, nil
}

func prepare(pages []layout.Page, opts Options) (appData, error) {
	data := appData{Name: opts.Name, Title: opts.Title, HomePath: "/"}
	modules := make(map[string]string)
	routes := make(map[string]string)

	for i, p := range pages {
		title := strings.TrimSpace(p.Name)
		if title == "" {
			title = fmt.Sprintf("Page %d", i+1)
		}
		nodes, err := p.Nodes()
		if err != nil {
			log.Printf("appgen: page %q: layout rejected, generating an empty page: %v", title, err)
			nodes = nil
		}
		pd := pageData{
			Title:  title,
			Module: ModuleName(p.Name, i) + "Page",
			Home:   p.IsHome,
			nodes:  nodes,
		}
		pd.Path = strings.TrimSpace(p.Path)
		if pd.Path == "" {
			pd.Path = "/" + codegen.WrapperClass(strings.TrimSuffix(pd.Module, "Page"))
			if p.IsHome {
				pd.Path = "/"
			}
		}
		if !strings.HasPrefix(pd.Path, "/") {
			pd.Path = "/" + pd.Path
		}
		if !routePath.MatchString(pd.Path) {
			return appData{}, fmt.Errorf("appgen: page %q: invalid route path %q", title, p.Path)
		}

		origin := fmt.Sprintf("page %q", title)
		if first, ok := modules[pd.Module]; ok {
			return appData{}, &CollisionError{Path: "src/pages/" + pd.Module + ".jsx", First: first, Second: origin}
		}
		modules[pd.Module] = origin
		if first, ok := routes[pd.Path]; ok {
			return appData{}, &CollisionError{Path: "route " + pd.Path, First: first, Second: origin}
		}
		routes[pd.Path] = origin

		data.Pages = append(data.Pages, pd)
	}

	if home, ok := HomePage(pages); ok {
		data.HomePath = data.Pages[home].Path
	}
	return data, nil
}

// HomePage returns the index of the page flagged as home, falling back to the
// first page. It reports false for an empty page list.
func HomePage(pages []layout.Page) (int, bool) {
	if len(pages) == 0 {
		return 0, false
	}
	for i, p := range pages {
		if p.IsHome {
			return i, true
		}
	}
	return 0, true
}

// ModuleName derives a module-safe identifier from a page display name:
// whitespace is stripped, other non-identifier characters dropped, the first
// letter upper-cased. index names pages whose name leaves nothing usable.
func ModuleName(name string, index int) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if s == "" {
		return fmt.Sprintf("Page%d", index+1)
	}
	runes := []rune(s)
	if !unicode.IsLetter(runes[0]) {
		return "Page" + s
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func rootFile(name string, data appData) (string, error) {
	if name == "package.json" {
		return codegen.Manifest(codegen.ManifestOptions{Name: packageName(data.Name), Pinned: true}), nil
	}
	var buf strings.Builder
	if err := templates.ExecuteTemplate(&buf, path.Base(name)+".tmpl", data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", name, err)
	}
	return buf.String(), nil
}

// packageName lower-cases and hyphenates a name into a valid npm package name.
func packageName(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	s := strings.TrimSuffix(b.String(), "-")
	if s == "" {
		return DefaultName
	}
	return s
}

// Library returns the bundled shared component sources keyed by their path
// in the generated app, src/components/<Name>/<Name>.{jsx,css}.
func Library() (codegen.FileMap, error) {
	files := codegen.FileMap{}
	err := fs.WalkDir(libraryFS, "library", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		content, err := libraryFS.ReadFile(p)
		if err != nil {
			return err
		}
		files["src/components/"+strings.TrimPrefix(p, "library/")] = string(content)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading component library: %w", err)
	}
	return files, nil
}

// HasComponent reports whether the bundled library implements name.
func HasComponent(name string) bool {
	_, err := fs.Stat(libraryFS, "library/"+name+"/"+name+".jsx")
	return err == nil
}

// stubIdentifiers are bound by the stub module itself.
var stubIdentifiers = map[string]bool{"React": true}

func stubFiles(name, typeKey string) (codegen.FileMap, error) {
	data := struct{ Name, Ident, TypeKey, Class string }{
		Name:    name,
		Ident:   codegen.UniqueIdentifier(name, stubIdentifiers),
		TypeKey: safeKey(typeKey),
		Class:   "ui-" + codegen.WrapperClass(name),
	}
	files := codegen.FileMap{}
	for _, ext := range []string{"jsx", "css"} {
		var buf strings.Builder
		if err := templates.ExecuteTemplate(&buf, "stub."+ext+".tmpl", data); err != nil {
			return nil, fmt.Errorf("rendering stub for %s: %w", name, err)
		}
		files["src/components/"+name+"/"+name+"."+ext] = buf.String()
	}
	return files, nil
}

func safeKey(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			return r
		}
		return -1
	}, s)
}

// builder accumulates a file map and refuses to overwrite an existing path.
type builder struct {
	files  codegen.FileMap
	origin map[string]string
}

func newBuilder() *builder {
	return &builder{files: codegen.FileMap{}, origin: make(map[string]string)}
}

func (b *builder) add(p, content, origin string) error {
	if first, ok := b.origin[p]; ok {
		return &CollisionError{Path: p, First: first, Second: origin}
	}
	b.files[p] = content
	b.origin[p] = origin
	return nil
}
