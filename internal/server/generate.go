package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/matthewbaird/uibuilder/internal/appgen"
	"github.com/matthewbaird/uibuilder/internal/codegen"
	"github.com/matthewbaird/uibuilder/internal/eventbus"
	"github.com/matthewbaird/uibuilder/internal/layout"
	"github.com/matthewbaird/uibuilder/internal/packaging"
	"github.com/matthewbaird/uibuilder/internal/registry"
	"github.com/matthewbaird/uibuilder/internal/syntax"
)

const maxBody = 8 << 20

type generateHandler struct {
	registry     *registry.Registry
	archiver     packaging.Archiver
	verifySyntax bool
	bus          *eventbus.Bus
}

// ListRegistry returns every registered component type.
// GET /api/components/registry
func (h *generateHandler) ListRegistry(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"components": h.registry.Snapshot(),
		"keys":       h.registry.Keys(),
	})
}

// RegisterComponent upserts a component type.
// POST /api/components/registry
func (h *generateHandler) RegisterComponent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TypeKey string `json:"typeKey"`
		registry.Entry
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	if err := h.registry.Register(req.TypeKey, req.Handle, req.Entry); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_COMPONENT", err.Error())
		return
	}
	key := strings.TrimSpace(req.TypeKey)
	entry, _ := h.registry.Lookup(key)
	h.bus.Publish(eventbus.NewEvent(eventbus.ComponentRegistered, key, entry))
	writeJSON(w, http.StatusOK, entry)
}

type pageResponse struct {
	codegen.Result
	CSS         string `json:"css"`
	PackageJSON string `json:"packageJson"`
	Valid       *bool  `json:"valid,omitempty"`
	SyntaxError string `json:"syntaxError,omitempty"`
}

// GeneratePage generates a single component module. The body is either
// {"layout": [...], "componentName": "..."} or, with a YAML content type,
// the bare layout tree.
// POST /api/generate/page
func (h *generateHandler) GeneratePage(w http.ResponseWriter, r *http.Request) {
	var (
		tree []byte
		opts codegen.Options
		yaml bool
	)
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "READ_FAILED", err.Error())
		return
	}

	if strings.Contains(r.Header.Get("Content-Type"), "yaml") {
		tree, yaml = body, true
		opts.ComponentName = r.URL.Query().Get("name")
	} else {
		var req struct {
			Layout        json.RawMessage `json:"layout"`
			ComponentName string          `json:"componentName"`
			Placeholders  bool            `json:"placeholders"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
			return
		}
		tree = req.Layout
		opts.ComponentName = req.ComponentName
		opts.Placeholders = req.Placeholders
	}

	resolver := codegen.RegistryResolver(h.registry)
	var res codegen.Result
	if yaml {
		v, err := layout.ParseYAML(tree)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_YAML", err.Error())
			return
		}
		res = codegen.GenerateValue(v, resolver, opts)
	} else {
		res = codegen.GenerateJSON(tree, resolver, opts)
	}

	files := codegen.PageFiles(res, opts)
	resp := pageResponse{Result: res}
	for _, p := range files.Paths() {
		switch {
		case p == "package.json":
			resp.PackageJSON = files[p]
		case strings.HasSuffix(p, ".css"):
			resp.CSS = files[p]
		}
	}
	if h.verifySyntax {
		valid := true
		if err := syntax.Check(r.Context(), []byte(res.Code)); err != nil {
			valid = false
			resp.SyntaxError = err.Error()
		}
		resp.Valid = &valid
	}
	writeJSON(w, http.StatusOK, resp)
}

type appRequest struct {
	Name  string        `json:"name"`
	Title string        `json:"title"`
	Pages []layout.Page `json:"pages"`
}

func (h *generateHandler) buildApp(w http.ResponseWriter, r *http.Request) (appRequest, codegen.FileMap, bool) {
	var req appRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return req, nil, false
	}
	files, err := appgen.Generate(req.Pages, appgen.Options{Name: req.Name, Title: req.Title})
	if err != nil {
		var collision *appgen.CollisionError
		if errors.As(err, &collision) {
			writeError(w, http.StatusConflict, "COLLISION", err.Error())
		} else {
			writeError(w, http.StatusBadRequest, "INVALID_PAGES", err.Error())
		}
		return req, nil, false
	}
	return req, files, true
}

// GenerateApp generates a multi-page application and returns its file map.
// POST /api/generate/app
func (h *generateHandler) GenerateApp(w http.ResponseWriter, r *http.Request) {
	_, files, ok := h.buildApp(w, r)
	if !ok {
		return
	}
	digest, err := files.Digest()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "DIGEST_FAILED", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"files":  files,
		"paths":  files.Paths(),
		"digest": digest,
	})
}

// Export generates a multi-page application and downloads it as a zip, or
// as a plain-text transcript when archiving is unavailable or fallback=1.
// POST /api/export
func (h *generateHandler) Export(w http.ResponseWriter, r *http.Request) {
	req, files, ok := h.buildApp(w, r)
	if !ok {
		return
	}
	archiver := h.archiver
	if r.URL.Query().Get("fallback") == "1" {
		archiver = nil
	}

	name := req.Name
	if name == "" {
		name = appgen.DefaultName
	}
	name = codegen.WrapperClass(strings.ReplaceAll(name, " ", ""))
	if z, ok := archiver.(packaging.ZipArchiver); ok && z.Root == "" {
		z.Root = name
		archiver = z
	}
	res, err := packaging.Package(r.Context(), name, files, archiver)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "PACKAGING_FAILED", err.Error())
		return
	}

	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
	w.Header().Set("X-Export-Kind", string(res.Kind))
	w.WriteHeader(http.StatusOK)
	w.Write(res.Data)
}
