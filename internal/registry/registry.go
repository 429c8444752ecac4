// Package registry maps stable component type keys (e.g. "button") to the
// identity generated code imports them under.
//
// The registry only grows: built-ins are registered once at startup, and
// custom or AI-generated types are added on demand for the life of the
// process. Reads go against an immutable snapshot and never block; writers
// copy the snapshot, apply their change and publish the new map.
package registry

import (
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"
)

// Handle identifies how the editor renders a type, e.g. "builtin:button".
// Generated code never uses it.
type Handle string

// Entry is the stored identity of a component type.
type Entry struct {
	DisplayName string `json:"displayName"`
	SourcePath  string `json:"sourcePath"`
	IsCustom    bool   `json:"isCustom"`
	Category    string `json:"category,omitempty"`
	Container   bool   `json:"container,omitempty"`
	Handle      Handle `json:"handle,omitempty"`
}

// Resolution is the result of resolving a type key.
type Resolution struct {
	TypeKey     string
	DisplayName string
	SourcePath  string
	// Fallback is true when the key had no entry and the identity was
	// synthesized from the key itself.
	Fallback bool
	// Suggestion names the closest registered key for a fallback, if any.
	Suggestion string
}

// Registry is safe for concurrent use.
type Registry struct {
	mu      sync.Mutex // serializes writers
	entries atomic.Pointer[map[string]Entry]
	warnf   func(format string, args ...any)
}

// Option configures a Registry.
type Option func(*Registry)

// WithWarnFunc replaces the logger used for unresolved-type warnings.
func WithWarnFunc(fn func(format string, args ...any)) Option {
	return func(r *Registry) { r.warnf = fn }
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{warnf: log.Printf}
	for _, opt := range opts {
		opt(r)
	}
	empty := map[string]Entry{}
	r.entries.Store(&empty)
	return r
}

// NewDefault creates a registry preloaded with the built-in catalog.
func NewDefault(opts ...Option) (*Registry, error) {
	descs, err := BuiltinCatalog()
	if err != nil {
		return nil, err
	}
	r := New(opts...)
	for _, d := range descs {
		if err := r.Register(d.Key, Handle("builtin:"+d.Key), Entry{
			DisplayName: d.DisplayName,
			SourcePath:  d.SourcePath,
			Category:    d.Category,
			Container:   d.Container,
		}); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// MustDefault is NewDefault that panics on a broken built-in catalog.
func MustDefault(opts ...Option) *Registry {
	r, err := NewDefault(opts...)
	if err != nil {
		panic(err)
	}
	return r
}

// Register upserts typeKey. Fields left empty in e, and an empty handle, keep
// the values of any existing entry; IsCustom and Container are sticky once
// set. A new entry with no display name or source path gets the fallback
// identity for its key. The merged display name must be an upper-case ASCII
// identifier and the source path a relative module path ending in
// Name/Name; otherwise nothing is stored.
func (r *Registry) Register(typeKey string, handle Handle, e Entry) error {
	key := strings.TrimSpace(typeKey)
	if key == "" {
		return fmt.Errorf("registry: type key is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current := *r.entries.Load()
	next := make(map[string]Entry, len(current)+1)
	for k, v := range current {
		next[k] = v
	}

	merged, ok := current[key]
	if !ok {
		merged = Fallback(key)
	}
	if e.DisplayName != "" {
		merged.DisplayName = e.DisplayName
	}
	if e.SourcePath != "" {
		merged.SourcePath = e.SourcePath
	}
	if e.Category != "" {
		merged.Category = e.Category
	}
	if handle != "" {
		merged.Handle = handle
	}
	merged.IsCustom = merged.IsCustom || e.IsCustom
	merged.Container = merged.Container || e.Container
	if !identifier.MatchString(merged.DisplayName) {
		return fmt.Errorf("registry: %q: display name %q is not a component identifier", key, merged.DisplayName)
	}
	if !sourcePath.MatchString(merged.SourcePath) {
		return fmt.Errorf("registry: %q: invalid source path %q", key, merged.SourcePath)
	}

	next[key] = merged
	r.entries.Store(&next)
	return nil
}

// Lookup returns the entry for typeKey without synthesizing a fallback.
func (r *Registry) Lookup(typeKey string) (Entry, bool) {
	e, ok := (*r.entries.Load())[typeKey]
	return e, ok
}

// Resolve returns the identity for typeKey. Unknown keys get a deterministic
// fallback identity and a logged warning; resolution never fails.
func (r *Registry) Resolve(typeKey string) Resolution {
	snapshot := *r.entries.Load()
	if e, ok := snapshot[typeKey]; ok {
		return Resolution{TypeKey: typeKey, DisplayName: e.DisplayName, SourcePath: e.SourcePath}
	}

	fb := Fallback(typeKey)
	res := Resolution{
		TypeKey:     typeKey,
		DisplayName: fb.DisplayName,
		SourcePath:  fb.SourcePath,
		Fallback:    true,
		Suggestion:  suggest(typeKey, keysOf(snapshot), 2),
	}
	if res.Suggestion != "" {
		r.warnf("registry: unknown component type %q, using %s (did you mean %q?)", typeKey, res.DisplayName, res.Suggestion)
	} else {
		r.warnf("registry: unknown component type %q, using %s", typeKey, res.DisplayName)
	}
	return res
}

// Keys returns all registered type keys in sorted order.
func (r *Registry) Keys() []string {
	return keysOf(*r.entries.Load())
}

// Snapshot returns a copy of all entries.
func (r *Registry) Snapshot() map[string]Entry {
	current := *r.entries.Load()
	out := make(map[string]Entry, len(current))
	for k, v := range current {
		out[k] = v
	}
	return out
}

func keysOf(m map[string]Entry) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Fallback synthesizes the identity for an unregistered key: the key
// title-cased into a component name, mirrored into a "<Name>/<Name>" path.
func Fallback(typeKey string) Entry {
	name := DisplayName(typeKey)
	return Entry{DisplayName: name, SourcePath: name + "/" + name}
}

// DisplayName title-cases a type key into a component identifier:
// "date-picker" -> "DatePicker", "nav_bar" -> "NavBar". Characters that are not
// letters or digits split words. A result that would not start with a letter
// is prefixed with "Component".
func DisplayName(typeKey string) string {
	words := strings.FieldsFunc(typeKey, func(r rune) bool {
		return !isASCIIAlnum(r)
	})
	var b strings.Builder
	for _, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		b.WriteString(string(runes))
	}
	name := b.String()
	if name == "" {
		return "Component"
	}
	if first := name[0]; first >= '0' && first <= '9' {
		return "Component" + name
	}
	return name
}

func isASCIIAlnum(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9'
}

// Registered names end up as JavaScript identifiers and import specifiers.
var (
	identifier = regexp.MustCompile(`^[A-Z][A-Za-z0-9]*$`)
	sourcePath = regexp.MustCompile(`^([a-z][a-z0-9-]*/)*[A-Z][A-Za-z0-9]*/[A-Z][A-Za-z0-9]*$`)
)
