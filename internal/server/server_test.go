package server

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/uibuilder/internal/aigen"
	"github.com/matthewbaird/uibuilder/internal/eventbus"
	"github.com/matthewbaird/uibuilder/internal/preview"
	"github.com/matthewbaird/uibuilder/internal/registry"
	"github.com/matthewbaird/uibuilder/internal/store"
)

type fakeAI struct {
	spec aigen.ComponentSpec
	err  error
	got  aigen.Request
}

func (f *fakeAI) Generate(_ context.Context, req aigen.Request) (aigen.ComponentSpec, error) {
	f.got = req
	return f.spec, f.err
}

func newTestServer(t *testing.T, ai ComponentGenerator) *httptest.Server {
	t.Helper()
	return newTestServerWithBus(t, ai, nil)
}

func newTestServerWithBus(t *testing.T, ai ComponentGenerator, bus *eventbus.Bus) *httptest.Server {
	t.Helper()
	reg, err := registry.NewDefault(registry.WithWarnFunc(func(string, ...any) {}))
	require.NoError(t, err)
	cfg := Config{
		Registry:     reg,
		Store:        store.NewMemoryStore(),
		AI:           ai,
		Sessions:     preview.NewManager(time.Hour, time.Hour),
		VerifySyntax: true,
		Bus:          bus,
	}
	srv := httptest.NewServer(NewRouter(cfg))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, contentType, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func decode(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m), string(data))
	return m
}

const appBody = `{"name":"My Shop","pages":[
	{"id":"p1","name":"Home","path":"/","isHome":true,"layout":[{"id":"b","type":"button","props":{"children":"Buy"}}]},
	{"id":"p2","name":"About","path":"/about","layout":[]}
]}`

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, body := do(t, http.MethodGet, srv.URL+"/healthz", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode(t, body)["status"])
}

func TestRegistryEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, body := do(t, http.MethodPost, srv.URL+"/api/components/registry", "application/json",
		`{"typeKey":"pricing-table","displayName":"PricingTable","sourcePath":"custom/PricingTable/PricingTable","isCustom":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "PricingTable", decode(t, body)["displayName"])

	resp, body = do(t, http.MethodGet, srv.URL+"/api/components/registry", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	components := decode(t, body)["components"].(map[string]any)
	assert.Contains(t, components, "button")
	assert.Contains(t, components, "pricing-table")

	resp, _ = do(t, http.MethodPost, srv.URL+"/api/components/registry", "application/json", `{"typeKey":"  "}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	for _, bad := range []string{
		`{"typeKey":"widget","displayName":"fancy widget"}`,
		`{"typeKey":"widget","sourcePath":"Widget';alert(1);'"}`,
	} {
		resp, body = do(t, http.MethodPost, srv.URL+"/api/components/registry", "application/json", bad)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, bad)
		assert.Equal(t, "INVALID_COMPONENT", decode(t, body)["code"])
	}
}

func TestGeneratePage(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, body := do(t, http.MethodPost, srv.URL+"/api/generate/page", "application/json",
		`{"layout":[{"id":"b1","type":"button","props":{"children":"Click me"}}],"componentName":"Hero"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	out := decode(t, body)
	assert.Contains(t, out["code"], "export default Hero;")
	assert.Contains(t, out["css"], ".hero {")
	assert.Contains(t, out["packageJson"], `"react"`)
	assert.Equal(t, false, out["hasForm"])
	assert.Equal(t, true, out["valid"])
	require.Len(t, out["imports"], 1)
}

func TestGeneratePage_YAML(t *testing.T) {
	srv := newTestServer(t, nil)

	tree := "- id: f\n  type: form\n  children:\n    - id: i\n      type: input\n"
	resp, body := do(t, http.MethodPost, srv.URL+"/api/generate/page?name=Signup", "application/yaml", tree)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	out := decode(t, body)
	assert.Equal(t, true, out["hasForm"])
	assert.Contains(t, out["code"], "<Form onSubmit={handleSubmit}>")
	assert.Contains(t, out["code"], "export default Signup;")
}

func TestGeneratePage_RejectedTreeDegrades(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, body := do(t, http.MethodPost, srv.URL+"/api/generate/page", "application/json", `{"layout":[{"type":"button"}]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode(t, body)
	assert.Empty(t, out["imports"])
	assert.NotEmpty(t, out["warnings"])

	resp, _ = do(t, http.MethodPost, srv.URL+"/api/generate/page", "application/json", `{`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGenerateApp(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, body := do(t, http.MethodPost, srv.URL+"/api/generate/app", "application/json", appBody)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	out := decode(t, body)
	files := out["files"].(map[string]any)
	assert.Contains(t, files, "src/App.jsx")
	assert.Contains(t, files, "src/pages/AboutPage.jsx")
	assert.Len(t, out["digest"], 16)

	_, again := do(t, http.MethodPost, srv.URL+"/api/generate/app", "application/json", appBody)
	assert.Equal(t, out["digest"], decode(t, again)["digest"])
}

func TestGenerateApp_MalformedPageLayoutDegrades(t *testing.T) {
	srv := newTestServer(t, nil)
	pages := `{"name":"Shop","pages":[
		{"id":"1","name":"Home","isHome":true,"layout":[{"id":"b","type":"button"}]},
		{"id":"2","name":"Broken","path":"/broken","layout":[{"type":"text"}]}
	]}`

	resp, body := do(t, http.MethodPost, srv.URL+"/api/generate/app", "application/json", pages)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	files := decode(t, body)["files"].(map[string]any)
	assert.Contains(t, files, "src/pages/HomePage.jsx")
	assert.Contains(t, files, "src/pages/BrokenPage.jsx")

	resp, body = do(t, http.MethodPost, srv.URL+"/api/export", "application/json", pages)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "archive", resp.Header.Get("X-Export-Kind"))
}

func TestGenerateApp_Collision(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, body := do(t, http.MethodPost, srv.URL+"/api/generate/app", "application/json",
		`{"pages":[{"id":"1","name":"A","path":"/x","layout":[]},{"id":"2","name":"B","path":"/x","layout":[]}]}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "COLLISION", decode(t, body)["code"])
}

func TestExport(t *testing.T) {
	srv := newTestServer(t, nil)

	t.Run("zip", func(t *testing.T) {
		resp, body := do(t, http.MethodPost, srv.URL+"/api/export", "application/json", appBody)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "archive", resp.Header.Get("X-Export-Kind"))
		assert.Equal(t, "application/zip", resp.Header.Get("Content-Type"))
		assert.Contains(t, resp.Header.Get("Content-Disposition"), `filename="my-shop.zip"`)

		zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
		require.NoError(t, err)
		var names []string
		for _, f := range zr.File {
			names = append(names, f.Name)
		}
		assert.Contains(t, names, "my-shop/src/App.jsx")
	})

	t.Run("fallback", func(t *testing.T) {
		resp, body := do(t, http.MethodPost, srv.URL+"/api/export?fallback=1", "application/json", appBody)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "transcript", resp.Header.Get("X-Export-Kind"))
		assert.Contains(t, string(body), "## src/App.jsx")
	})
}

func TestDocumentLifecycle(t *testing.T) {
	srv := newTestServer(t, nil)
	base := srv.URL + "/api/projects"

	resp, body := do(t, http.MethodPost, base, "application/json", `{"id":"shop","name":"Shop","data":{"theme":"dark"}}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, _ = do(t, http.MethodPost, base, "application/json", `{"id":"shop","name":"Again"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = do(t, http.MethodPost, base, "application/json", `{"name":"Blog","data":{"theme":"light"}}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	blogID := decode(t, body)["id"].(string)
	assert.NotEmpty(t, blogID)

	resp, body = do(t, http.MethodPut, base+"/shop", "application/json", `{"name":"Shop v2","data":{"theme":"dark"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Shop v2", decode(t, body)["name"])

	resp, _ = do(t, http.MethodPut, base+"/missing", "application/json", `{"name":"x"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = do(t, http.MethodGet, base+"?sort=name", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, decode(t, body)["count"])

	resp, body = do(t, http.MethodGet, base+"?filter.theme=dark", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, decode(t, body)["count"])

	resp, body = do(t, http.MethodGet, base+"?q=BLOG", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, decode(t, body)["count"])

	resp, _ = do(t, http.MethodGet, base+"?sort=color", "", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = do(t, http.MethodPost, base+"/shop/backup", "", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.True(t, strings.HasPrefix(decode(t, body)["backupId"].(string), "shop-"))

	resp, _ = do(t, http.MethodDelete, base+"/shop", "", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = do(t, http.MethodGet, base+"/shop", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", decode(t, body)["code"])
}

func TestDocuments_BadKeys(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, body := do(t, http.MethodGet, srv.URL+"/api/widgets", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "UNKNOWN_COLLECTION", decode(t, body)["code"])

	resp, body = do(t, http.MethodGet, srv.URL+"/api/projects/bad.id", "", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_ID", decode(t, body)["code"])
}

func TestAIComponents(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		srv := newTestServer(t, nil)
		resp, _ := do(t, http.MethodPost, srv.URL+"/api/ai/components", "application/json", `{"prompt":"x"}`)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	tests := []struct {
		err    error
		status int
	}{
		{nil, http.StatusCreated},
		{aigen.ErrEmptyPrompt, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", aigen.ErrInvalidSpec), http.StatusBadGateway},
		{fmt.Errorf("network down"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		ai := &fakeAI{spec: aigen.ComponentSpec{TypeKey: "hero", DisplayName: "Hero"}, err: tt.err}
		srv := newTestServer(t, ai)
		resp, _ := do(t, http.MethodPost, srv.URL+"/api/ai/components", "application/json", `{"prompt":"a hero banner","imageUrl":"https://x/y.png"}`)
		assert.Equal(t, tt.status, resp.StatusCode, "%v", tt.err)
		assert.Equal(t, "https://x/y.png", ai.got.ImageURL)
	}
}

func TestChangesArePublished(t *testing.T) {
	bus := eventbus.New(16)
	var (
		mu       sync.Mutex
		subjects []string
	)
	bus.Subscribe("test", eventbus.HandlerFunc(func(_ context.Context, evt eventbus.Event) error {
		mu.Lock()
		defer mu.Unlock()
		subjects = append(subjects, evt.Type+" "+evt.Subject)
		return nil
	}))
	bus.Start(context.Background())

	srv := newTestServerWithBus(t, nil, bus)
	do(t, http.MethodPost, srv.URL+"/api/variants", "application/json", `{"id":"dark","name":"Dark"}`)
	do(t, http.MethodPost, srv.URL+"/api/components/registry", "application/json", `{"typeKey":"hero"}`)
	do(t, http.MethodDelete, srv.URL+"/api/variants/dark", "", "")
	bus.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"document.saved variants/dark",
		"component.registered hero",
		"document.deleted variants/dark",
	}, subjects)
}
