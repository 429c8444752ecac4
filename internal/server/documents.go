package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/matthewbaird/uibuilder/internal/eventbus"
	"github.com/matthewbaird/uibuilder/internal/store"
)

type documentHandler struct {
	store store.Store
	bus   *eventbus.Bus
}

func (h *documentHandler) publish(eventType, collection, id string, data any) {
	h.bus.Publish(eventbus.NewEvent(eventType, collection+"/"+id, data))
}

// List returns the documents of a collection. q searches name and data;
// sort, order and limit shape the result; filter.<field>=value narrows it.
// GET /api/{collection}
func (h *documentHandler) List(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	q := r.URL.Query()

	var (
		docs []store.Document
		err  error
	)
	if query := q.Get("q"); query != "" {
		docs, err = h.store.Search(r.Context(), collection, query)
	} else {
		opts := store.ListOptions{
			SortBy: q.Get("sort"),
			Desc:   strings.EqualFold(q.Get("order"), "desc"),
			Limit:  parseLimit(r, 500),
		}
		if opts.SortBy != "" && !store.ValidSortField(opts.SortBy) {
			writeError(w, http.StatusBadRequest, "INVALID_SORT", "unknown sort field: "+opts.SortBy)
			return
		}
		for key, vals := range q {
			if field, ok := strings.CutPrefix(key, "filter."); ok && field != "" && len(vals) > 0 {
				if opts.Filter == nil {
					opts.Filter = make(map[string]string)
				}
				opts.Filter[field] = vals[0]
			}
		}
		docs, err = h.store.List(r.Context(), collection, opts)
	}
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	if docs == nil {
		docs = []store.Document{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs, "count": len(docs)})
}

// Create stores a new document. An empty id is assigned by the store.
// POST /api/{collection}
func (h *documentHandler) Create(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	var doc store.Document
	if err := decodeJSON(r, &doc); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	if doc.ID != "" {
		exists, err := h.store.Exists(r.Context(), collection, doc.ID)
		if err != nil {
			storeErrorToHTTP(w, err)
			return
		}
		if exists {
			writeError(w, http.StatusConflict, "ALREADY_EXISTS", "document already exists: "+doc.ID)
			return
		}
	}
	saved, err := h.store.Save(r.Context(), collection, doc)
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	h.publish(eventbus.DocumentSaved, collection, saved.ID, nil)
	writeJSON(w, http.StatusCreated, saved)
}

// Get returns one document.
// GET /api/{collection}/{id}
func (h *documentHandler) Get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.store.Load(r.Context(), chi.URLParam(r, "collection"), chi.URLParam(r, "id"))
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// Update replaces an existing document; the previous version is backed up.
// PUT /api/{collection}/{id}
func (h *documentHandler) Update(w http.ResponseWriter, r *http.Request) {
	collection, id := chi.URLParam(r, "collection"), chi.URLParam(r, "id")
	var doc store.Document
	if err := decodeJSON(r, &doc); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	exists, err := h.store.Exists(r.Context(), collection, id)
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	if !exists {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "document not found: "+id)
		return
	}
	doc.ID = id
	saved, err := h.store.Save(r.Context(), collection, doc)
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	h.publish(eventbus.DocumentSaved, collection, id, nil)
	writeJSON(w, http.StatusOK, saved)
}

// Delete backs up and removes a document.
// DELETE /api/{collection}/{id}
func (h *documentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	collection, id := chi.URLParam(r, "collection"), chi.URLParam(r, "id")
	if err := h.store.Delete(r.Context(), collection, id); err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	h.publish(eventbus.DocumentDeleted, collection, id, nil)
	w.WriteHeader(http.StatusNoContent)
}

// Backup snapshots the current version of a document.
// POST /api/{collection}/{id}/backup
func (h *documentHandler) Backup(w http.ResponseWriter, r *http.Request) {
	collection, id := chi.URLParam(r, "collection"), chi.URLParam(r, "id")
	backupID, err := h.store.Backup(r.Context(), collection, id)
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	h.publish(eventbus.DocumentBackedUp, collection, id, map[string]string{"backupId": backupID})
	writeJSON(w, http.StatusCreated, map[string]string{"backupId": backupID})
}
