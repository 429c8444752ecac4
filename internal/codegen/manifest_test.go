package codegen

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifest_ListsOnlyRuntimeLibraries(t *testing.T) {
	var pkg struct {
		Name            string            `json:"name"`
		Scripts         map[string]string `json:"scripts"`
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	require.NoError(t, json.Unmarshal([]byte(Manifest(ManifestOptions{Name: "shop"})), &pkg))

	assert.Equal(t, "shop", pkg.Name)
	assert.Equal(t, map[string]string{
		"lucide-react":     "^0.363.0",
		"react":            "^18.2.0",
		"react-dom":        "^18.2.0",
		"react-router-dom": "^6.22.3",
	}, pkg.Dependencies)
	assert.Contains(t, pkg.DevDependencies, "vite")
	assert.Equal(t, "vite build", pkg.Scripts["build"])
}

func TestManifest_Pinned(t *testing.T) {
	m := Manifest(ManifestOptions{Name: "shop", Pinned: true})
	assert.Contains(t, m, `"react": "18.2.0"`)
	assert.NotContains(t, m, "^")
}

func TestManifest_IsStable(t *testing.T) {
	assert.Equal(t, Manifest(ManifestOptions{}), Manifest(ManifestOptions{}))
	assert.Contains(t, Manifest(ManifestOptions{}), `"name": "generated-app"`)
}

func TestCheckManifest(t *testing.T) {
	assert.NoError(t, CheckManifest(Manifest(ManifestOptions{Name: "ok", Pinned: true})))

	leaky := `{"dependencies":{"react":"18.2.0","zustand":"4.5.0"},"peerDependencies":{"@mui/material":"5"}}`
	err := CheckManifest(leaky)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "@mui/material, zustand")

	assert.Error(t, CheckManifest("not json"))
}

func TestStylesheet(t *testing.T) {
	css := Stylesheet("HomePage")
	assert.Contains(t, css, ".home-page {")
	assert.Contains(t, css, "@media (max-width: 768px)")
	assert.Contains(t, css, "@media print")
	assert.True(t, strings.HasPrefix(css, "/* Styles for HomePage */\n"))
	assert.NotContains(t, css, "{{")
	assert.Equal(t, Stylesheet(""), Stylesheet(DefaultComponentName))

	css = Stylesheet("my page */ body { display: none }")
	assert.True(t, strings.HasPrefix(css, "/* Styles for MyPageBodyDisplayNone */\n"))
	assert.Equal(t, 1, strings.Count(css, "*/"))
	assert.Contains(t, css, ".my-page-body-display-none {")
}

func TestFileMap_Digest(t *testing.T) {
	a := FileMap{"b.txt": "2", "a.txt": "1"}
	b := FileMap{"a.txt": "1", "b.txt": "2"}

	da, err := a.Digest()
	require.NoError(t, err)
	db, err := b.Digest()
	require.NoError(t, err)
	assert.Equal(t, da, db)
	assert.Len(t, da, 16)

	// moving bytes between path and content must change the digest
	c := FileMap{"a.tx": "t1", "b.txt": "2"}
	dc, err := c.Digest()
	require.NoError(t, err)
	assert.NotEqual(t, da, dc)

	assert.Equal(t, []string{"a.txt", "b.txt"}, a.Paths())
	assert.Equal(t, 2, a.Size())
}
