package setup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/interactivethings/catalog-cli/internal/model"
)

func testPaths(root string) *model.Paths {
	return &model.Paths{
		AppRoot:               root,
		AppSrc:                filepath.Join(root, "src"),
		AppPackageJSON:        filepath.Join(root, "package.json"),
		AppNodeModules:        filepath.Join(root, "node_modules"),
		Babelrc:               filepath.Join(root, ".babelrc"),
		CatalogSrcDir:         filepath.Join(root, "catalog"),
		CatalogIndexJS:        filepath.Join(root, "catalog", "index.js"),
		CatalogStaticSrcDir:   filepath.Join(root, "catalog", "static"),
		CatalogBuildDir:       filepath.Join(root, "catalog", "build"),
		CatalogStaticBuildDir: filepath.Join(root, "catalog", "build", "static"),
		SetupDir:              filepath.Join(root, "node_modules", ".cache", "catalog"),
		PublicURL:             "/",
		Framework:             model.FrameworkCreateReactApp,
	}
}

type fileState struct {
	content string
	modTime time.Time
}

func snapshot(t *testing.T, dir string) map[string]fileState {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	out := make(map[string]fileState, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		require.NoError(t, err)
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		require.NoError(t, err)
		out[e.Name()] = fileState{content: string(data), modTime: info.ModTime()}
	}
	return out
}

func TestRun_WritesScaffold(t *testing.T) {
	p := testPaths(t.TempDir())

	require.NoError(t, New().Run(context.Background(), p))

	files := snapshot(t, p.SetupDir)
	assert.Len(t, files, 4)
	assert.Contains(t, files["index.html"].content, `<script type="module" src="/catalog.js"></script>`)
	assert.Contains(t, files["index.html"].content, `<script src="/dev-client.js"></script>`)
	assert.Contains(t, files["catalog.js"].content, `import "/catalog/index.js";`)
	assert.Contains(t, files["dev-client.js"].content, LiveReloadPath)

	var manifest Manifest
	require.NoError(t, yaml.Unmarshal([]byte(files["catalog.yml"].content), &manifest))
	assert.Equal(t, model.FrameworkCreateReactApp, manifest.Framework)
	assert.Equal(t, "index.js", manifest.Entry)
	assert.Equal(t, p.SetupDir, manifest.Paths.SetupDir)
}

// TestRun_Idempotent verifies that a second run leaves the directory exactly
// as the first one did, without rewriting any file.
func TestRun_Idempotent(t *testing.T) {
	p := testPaths(t.TempDir())
	s := New()

	require.NoError(t, s.Run(context.Background(), p))
	first := snapshot(t, p.SetupDir)

	require.NoError(t, s.Run(context.Background(), p))
	second := snapshot(t, p.SetupDir)

	assert.Equal(t, first, second)
}

// TestRun_RepairsLeftovers verifies that modified files and stale temporary
// files from an earlier run are overwritten or removed.
func TestRun_RepairsLeftovers(t *testing.T) {
	p := testPaths(t.TempDir())
	s := New()
	require.NoError(t, s.Run(context.Background(), p))
	clean := snapshot(t, p.SetupDir)

	require.NoError(t, os.WriteFile(filepath.Join(p.SetupDir, "index.html"), []byte("edited"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(p.SetupDir, ".catalog-123.tmp"), []byte("partial"), 0o644))

	require.NoError(t, s.Run(context.Background(), p))
	repaired := snapshot(t, p.SetupDir)

	require.Len(t, repaired, len(clean))
	for name, state := range clean {
		assert.Equal(t, state.content, repaired[name].content, name)
	}
}

func TestRun_PublicURL(t *testing.T) {
	p := testPaths(t.TempDir())
	p.PublicURL = "/docs/"

	require.NoError(t, New().Run(context.Background(), p))

	files := snapshot(t, p.SetupDir)
	assert.Contains(t, files["index.html"].content, `<base href="/docs/">`)
	assert.Contains(t, files["catalog.js"].content, `import "/docs/catalog/index.js";`)
}

func TestRun_WriteFailure(t *testing.T) {
	root := t.TempDir()
	p := testPaths(root)
	// A regular file where the cache directory should be.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "node_modules", ".cache"), []byte(""), 0o644))

	err := New().Run(context.Background(), p)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrSetupFailed)
}

func TestRun_InvalidPaths(t *testing.T) {
	p := testPaths(t.TempDir())
	p.SetupDir = "relative"

	err := New().Run(context.Background(), p)
	assert.ErrorIs(t, err, model.ErrSetupFailed)
}

func TestRender_EntryOutsideSource(t *testing.T) {
	root := t.TempDir()
	p := testPaths(root)
	p.CatalogIndexJS = filepath.Join(root, "elsewhere", "index.js")

	_, err := Render(p)
	assert.ErrorContains(t, err, "outside")
}
