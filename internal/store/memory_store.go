package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore implements Store in process memory. Intended for demos and
// testing; nothing survives a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	docs    map[string]map[string]Document
	backups map[string][]Document
	now     func() time.Time
}

// NewMemoryStore creates a new empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:    make(map[string]map[string]Document),
		backups: make(map[string][]Document),
		now:     time.Now,
	}
}

func (s *MemoryStore) Save(_ context.Context, collection string, doc Document) (Document, error) {
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
	if existing, ok := s.docs[collection][doc.ID]; ok {
		prev = &existing
	}
	doc, err := prepare(doc, prev, now)
	if err != nil {
		return Document{}, err
	}
	if prev != nil {
		s.backupLocked(collection, *prev, now)
	}
	if s.docs[collection] == nil {
		s.docs[collection] = make(map[string]Document)
	}
	s.docs[collection][doc.ID] = doc
	return doc, nil
}

func (s *MemoryStore) Load(_ context.Context, collection, id string) (Document, error) {
	if err := checkKey(collection, id); err != nil {
		return Document{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[collection][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

func (s *MemoryStore) List(_ context.Context, collection string, opts ListOptions) ([]Document, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	s.mu.RLock()
	docs := make([]Document, 0, len(s.docs[collection]))
	for _, d := range s.docs[collection] {
		docs = append(docs, d)
	}
	s.mu.RUnlock()
	return applyList(docs, opts), nil
}

func (s *MemoryStore) Delete(_ context.Context, collection, id string) error {
	if err := checkKey(collection, id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[collection][id]
	if !ok {
		return ErrNotFound
	}
	s.backupLocked(collection, doc, s.now().UTC())
	delete(s.docs[collection], id)
	return nil
}

func (s *MemoryStore) Exists(_ context.Context, collection, id string) (bool, error) {
	if err := checkKey(collection, id); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.docs[collection][id]
	return ok, nil
}

func (s *MemoryStore) Backup(_ context.Context, collection, id string) (string, error) {
	if err := checkKey(collection, id); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[collection][id]
	if !ok {
		return "", ErrNotFound
	}
	return s.backupLocked(collection, doc, s.now().UTC()), nil
}

func (s *MemoryStore) backupLocked(collection string, doc Document, at time.Time) string {
	s.backups[collection] = append(s.backups[collection], doc)
	return backupID(doc.ID, at)
}

// Backups returns the backed up versions of id, oldest first.
func (s *MemoryStore) Backups(_ context.Context, collection, id string) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []Document{}
	for _, d := range s.backups[collection] {
		if d.ID == id {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *MemoryStore) Search(_ context.Context, collection, query string) ([]Document, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	s.mu.RLock()
	var matched []Document
	for _, d := range s.docs[collection] {
		if matchesQuery(d, query) {
			matched = append(matched, d)
		}
	}
	s.mu.RUnlock()
	sortDocs(matched, SortByUpdated, true)
	return matched, nil
}
