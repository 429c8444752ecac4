// Package store persists projects, components and variants as schemaless
// JSON documents, keyed by collection and id. Every backend backs up the
// previous version of a document before overwriting or deleting it.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

var (
	ErrNotFound          = errors.New("store: document not found")
	ErrInvalidCollection = errors.New("store: invalid collection")
	ErrInvalidID         = errors.New("store: invalid document id")
)

// Collections are the only collection names a Store accepts.
var Collections = []string{"projects", "components", "variants"}

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// Document is one stored record. Data is opaque JSON; the store never
// interprets it beyond filtering and search.
type Document struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Sort fields accepted by ListOptions.SortBy.
const (
	SortByCreated = "createdAt"
	SortByUpdated = "updatedAt"
	SortByName    = "name"
)

// ListOptions narrows and orders List results.
type ListOptions struct {
	// Filter keeps documents whose field equals the given value. "name"
	// matches the document name; any other key matches a top-level field of
	// Data, compared as a string for JSON strings and as JSON text otherwise.
	Filter map[string]string
	// SortBy is one of the SortBy constants; defaults to SortByCreated.
	SortBy string
	Desc   bool
	// Limit caps the result count when positive.
	Limit int
}

// Store is the document store used by the HTTP API and the CLI.
type Store interface {
	// Save creates doc, assigning an id when empty, or replaces the stored
	// document with the same id after backing it up.
	Save(ctx context.Context, collection string, doc Document) (Document, error)
	Load(ctx context.Context, collection, id string) (Document, error)
	List(ctx context.Context, collection string, opts ListOptions) ([]Document, error)
	// Delete backs up and removes a document.
	Delete(ctx context.Context, collection, id string) error
	Exists(ctx context.Context, collection, id string) (bool, error)
	// Backup snapshots the current version and returns the backup id.
	Backup(ctx context.Context, collection, id string) (string, error)
	// Search matches query case-insensitively against name and data.
	Search(ctx context.Context, collection, query string) ([]Document, error)
}

func checkCollection(collection string) error {
	for _, c := range Collections {
		if c == collection {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrInvalidCollection, collection)
}

func checkID(id string) error {
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

func checkKey(collection, id string) error {
	if err := checkCollection(collection); err != nil {
		return err
	}
	return checkID(id)
}

// prepare validates doc and fills in defaults for a save at now. prev is the
// stored version, if any.
func prepare(doc Document, prev *Document, now time.Time) (Document, error) {
	if len(bytes.TrimSpace(doc.Data)) == 0 {
		doc.Data = json.RawMessage("{}")
	}
	if !json.Valid(doc.Data) {
		return Document{}, fmt.Errorf("store: document %q: data is not valid JSON", doc.ID)
	}
	doc.CreatedAt = now
	if prev != nil {
		doc.CreatedAt = prev.CreatedAt
	}
	doc.UpdatedAt = now
	return doc, nil
}

func backupID(id string, at time.Time) string {
	return fmt.Sprintf("%s-%d", id, at.UnixNano())
}

// applyList filters, sorts and limits docs in place.
func applyList(docs []Document, opts ListOptions) []Document {
	out := docs[:0]
	for _, d := range docs {
		if matchesFilter(d, opts.Filter) {
			out = append(out, d)
		}
	}
	sortDocs(out, opts.SortBy, opts.Desc)
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out
}

func matchesFilter(d Document, filter map[string]string) bool {
	if len(filter) == 0 {
		return true
	}
	var fields map[string]json.RawMessage
	for key, want := range filter {
		if key == "name" {
			if d.Name != want {
				return false
			}
			continue
		}
		if fields == nil {
			if err := json.Unmarshal(d.Data, &fields); err != nil {
				return false
			}
		}
		raw, ok := fields[key]
		if !ok || fieldString(raw) != want {
			return false
		}
	}
	return true
}

func fieldString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}

func sortDocs(docs []Document, by string, desc bool) {
	less := func(a, b Document) int {
		switch by {
		case SortByName:
			return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		case SortByUpdated:
			return a.UpdatedAt.Compare(b.UpdatedAt)
		default:
			return a.CreatedAt.Compare(b.CreatedAt)
		}
	}
	sort.SliceStable(docs, func(i, j int) bool {
		c := less(docs[i], docs[j])
		if c == 0 {
			c = strings.Compare(docs[i].ID, docs[j].ID)
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func matchesQuery(d Document, query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(d.Name), q) || strings.Contains(strings.ToLower(string(d.Data)), q)
}

// ValidSortField reports whether by is accepted by ListOptions.SortBy.
func ValidSortField(by string) bool {
	switch by {
	case "", SortByCreated, SortByUpdated, SortByName:
		return true
	}
	return false
}
