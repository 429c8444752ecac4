package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/viant/afs"
	"github.com/viant/afs/url"
)

// FileStore keeps each document as a JSON file at
// <base>/<collection>/<id>.json on any afs storage, and backups at
// <base>/backups/<collection>/<id>-<unixnano>.json.
type FileStore struct {
	fs      afs.Service
	baseURL string
	now     func() time.Time

	// mu serializes writers; afs offers no cross-file transactions.
	mu sync.Mutex
}

// NewFileStore creates a FileStore rooted at baseURL.
func NewFileStore(fs afs.Service, baseURL string) *FileStore {
	return &FileStore{fs: fs, baseURL: strings.TrimSuffix(baseURL, "/"), now: time.Now}
}

func (s *FileStore) docURL(collection, id string) string {
	return url.Join(s.baseURL, collection, id+".json")
}

func (s *FileStore) Save(ctx context.Context, collection string, doc Document) (Document, error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if err := checkKey(collection, doc.ID); err != nil {
		return Document{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	var prev *Document
	existing, err := s.read(ctx, collection, doc.ID)
	switch {
	case err == nil:
		prev = &existing
	case !errors.Is(err, ErrNotFound):
		return Document{}, err
	}

	doc, err = prepare(doc, prev, now)
	if err != nil {
		return Document{}, err
	}
	if prev != nil {
		if _, err := s.writeBackup(ctx, collection, existing, now); err != nil {
			return Document{}, err
		}
	}
	if err := s.write(ctx, s.docURL(collection, doc.ID), doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

func (s *FileStore) Load(ctx context.Context, collection, id string) (Document, error) {
	if err := checkKey(collection, id); err != nil {
		return Document{}, err
	}
	return s.read(ctx, collection, id)
}

func (s *FileStore) read(ctx context.Context, collection, id string) (Document, error) {
	URL := s.docURL(collection, id)
	ok, err := s.fs.Exists(ctx, URL)
	if err != nil {
		return Document{}, fmt.Errorf("checking %s: %w", URL, err)
	}
	if !ok {
		return Document{}, ErrNotFound
	}
	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return Document{}, fmt.Errorf("reading %s: %w", URL, err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("decoding %s: %w", URL, err)
	}
	return doc, nil
}

func (s *FileStore) write(ctx context.Context, URL string, doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", URL, err)
	}
	if err := s.fs.Upload(ctx, URL, 0644, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing %s: %w", URL, err)
	}
	return nil
}

func (s *FileStore) writeBackup(ctx context.Context, collection string, doc Document, at time.Time) (string, error) {
	id := backupID(doc.ID, at)
	if err := s.write(ctx, url.Join(s.baseURL, "backups", collection, id+".json"), doc); err != nil {
		return "", fmt.Errorf("backing up %s/%s: %w", collection, doc.ID, err)
	}
	return id, nil
}

func (s *FileStore) List(ctx context.Context, collection string, opts ListOptions) ([]Document, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	docs, err := s.all(ctx, collection)
	if err != nil {
		return nil, err
	}
	return applyList(docs, opts), nil
}

func (s *FileStore) all(ctx context.Context, collection string) ([]Document, error) {
	dir := url.Join(s.baseURL, collection)
	ok, err := s.fs.Exists(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("checking %s: %w", dir, err)
	}
	if !ok {
		return []Document{}, nil
	}
	objects, err := s.fs.List(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	docs := make([]Document, 0, len(objects))
	for _, obj := range objects {
		if obj.IsDir() || !strings.HasSuffix(obj.Name(), ".json") {
			continue
		}
		data, err := s.fs.DownloadWithURL(ctx, obj.URL())
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", obj.URL(), err)
		}
		var doc Document
		if err := json.Unmarshal(data, &doc); err != nil {
			log.Printf("store: skipping unreadable document %s: %v", obj.URL(), err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *FileStore) Delete(ctx context.Context, collection, id string) error {
	if err := checkKey(collection, id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read(ctx, collection, id)
	if err != nil {
		return err
	}
	if _, err := s.writeBackup(ctx, collection, doc, s.now().UTC()); err != nil {
		return err
	}
	URL := s.docURL(collection, id)
	if err := s.fs.Delete(ctx, URL); err != nil {
		return fmt.Errorf("deleting %s: %w", URL, err)
	}
	return nil
}

func (s *FileStore) Exists(ctx context.Context, collection, id string) (bool, error) {
	if err := checkKey(collection, id); err != nil {
		return false, err
	}
	return s.fs.Exists(ctx, s.docURL(collection, id))
}

func (s *FileStore) Backup(ctx context.Context, collection, id string) (string, error) {
	if err := checkKey(collection, id); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read(ctx, collection, id)
	if err != nil {
		return "", err
	}
	return s.writeBackup(ctx, collection, doc, s.now().UTC())
}

// Backups returns the backed up versions of id, oldest first.
func (s *FileStore) Backups(ctx context.Context, collection, id string) ([]Document, error) {
	if err := checkKey(collection, id); err != nil {
		return nil, err
	}
	dir := url.Join(s.baseURL, "backups", collection)
	ok, err := s.fs.Exists(ctx, dir)
	if err != nil || !ok {
		return []Document{}, err
	}
	objects, err := s.fs.List(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	type stamped struct {
		at  int64
		doc Document
	}
	var found []stamped
	for _, obj := range objects {
		name := strings.TrimSuffix(obj.Name(), ".json")
		if obj.IsDir() || !strings.HasPrefix(name, id+"-") {
			continue
		}
		at, err := strconv.ParseInt(strings.TrimPrefix(name, id+"-"), 10, 64)
		if err != nil {
			continue
		}
		data, err := s.fs.DownloadWithURL(ctx, obj.URL())
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", obj.URL(), err)
		}
		var doc Document
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", obj.URL(), err)
		}
		found = append(found, stamped{at: at, doc: doc})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].at < found[j].at })

	out := make([]Document, 0, len(found))
	for _, f := range found {
		out = append(out, f.doc)
	}
	return out, nil
}

func (s *FileStore) Search(ctx context.Context, collection, query string) ([]Document, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	docs, err := s.all(ctx, collection)
	if err != nil {
		return nil, err
	}
	matched := docs[:0]
	for _, d := range docs {
		if matchesQuery(d, query) {
			matched = append(matched, d)
		}
	}
	sortDocs(matched, SortByUpdated, true)
	return matched, nil
}
