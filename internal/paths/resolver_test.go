package paths

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/interactivethings/catalog-cli/internal/model"
)

// newProject creates a project root with a catalog/index.js entry and
// returns its symlink-free absolute path.
func newProject(t *testing.T) string {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "catalog"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "catalog", "index.js"), []byte("// entry\n"), 0o644))
	return root
}

func TestResolve_Defaults(t *testing.T) {
	root := newProject(t)

	p, err := NewResolver(root).Resolve(context.Background(), "catalog", "", model.FrameworkUnknown, "/")
	require.NoError(t, err)

	assert.Equal(t, root, p.AppRoot)
	assert.Equal(t, filepath.Join(root, "src"), p.AppSrc)
	assert.Equal(t, filepath.Join(root, "package.json"), p.AppPackageJSON)
	assert.Equal(t, filepath.Join(root, ".babelrc"), p.Babelrc)
	assert.Equal(t, filepath.Join(root, "catalog"), p.CatalogSrcDir)
	assert.Equal(t, filepath.Join(root, "catalog", "index.js"), p.CatalogIndexJS)
	assert.Equal(t, filepath.Join(root, "catalog", "static"), p.CatalogStaticSrcDir)
	assert.Equal(t, filepath.Join(root, "catalog", "build"), p.CatalogBuildDir)
	assert.Equal(t, filepath.Join(root, "catalog", "build", "static"), p.CatalogStaticBuildDir)
	assert.Equal(t, filepath.Join(root, "node_modules", ".cache", "catalog"), p.SetupDir)
	assert.Equal(t, "/", p.PublicURL)
	assert.Equal(t, model.FrameworkUnknown, p.Framework)
	assert.Len(t, p.DotEnvFiles, 3)

	require.NoError(t, p.Validate())
}

// TestResolve_Next verifies that next.js projects use the project root as
// their source directory.
func TestResolve_Next(t *testing.T) {
	root := newProject(t)

	p, err := NewResolver(root).Resolve(context.Background(), "catalog", "", model.FrameworkNext, "/")
	require.NoError(t, err)

	assert.Equal(t, root, p.AppSrc)
	assert.Equal(t, model.FrameworkNext, p.Framework)
}

func TestResolve_BuildSegmentAndURLBase(t *testing.T) {
	root := newProject(t)

	p, err := NewResolver(root).Resolve(context.Background(), "catalog", "public/docs", model.FrameworkCreateReactApp, "docs")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "public", "docs"), p.CatalogBuildDir)
	assert.Equal(t, "/docs/", p.PublicURL)
}

func TestResolve_JSXEntry(t *testing.T) {
	root := newProject(t)
	require.NoError(t, os.Remove(filepath.Join(root, "catalog", "index.js")))
	require.NoError(t, os.WriteFile(filepath.Join(root, "catalog", "index.jsx"), []byte(""), 0o644))

	p, err := NewResolver(root).Resolve(context.Background(), "catalog", "", model.FrameworkUnknown, "/")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "catalog", "index.jsx"), p.CatalogIndexJS)
}

func TestResolve_SourceDirNotFound(t *testing.T) {
	root := newProject(t)

	_, err := NewResolver(root).Resolve(context.Background(), "docs", "", model.FrameworkUnknown, "/")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrSourceDirNotFound)
	assert.Contains(t, err.Error(), filepath.Join(root, "docs"))
}

func TestResolve_SourceIsFile(t *testing.T) {
	root := newProject(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes"), []byte(""), 0o644))

	_, err := NewResolver(root).Resolve(context.Background(), "notes", "", model.FrameworkUnknown, "/")
	assert.ErrorIs(t, err, model.ErrSourceDirNotFound)
}

func TestResolve_EntryNotFound(t *testing.T) {
	root := newProject(t)
	require.NoError(t, os.Remove(filepath.Join(root, "catalog", "index.js")))

	_, err := NewResolver(root).Resolve(context.Background(), "catalog", "", model.FrameworkUnknown, "/")
	assert.ErrorIs(t, err, model.ErrEntryNotFound)
}

func TestResolve_InvalidFramework(t *testing.T) {
	root := newProject(t)

	_, err := NewResolver(root).Resolve(context.Background(), "catalog", "", model.Framework("GATSBY"), "/")
	assert.ErrorContains(t, err, "GATSBY")
}

func TestNormalizeURLBase(t *testing.T) {
	tests := map[string]string{
		"":        "/",
		"/":       "/",
		"docs":    "/docs/",
		"/docs":   "/docs/",
		"/a/b/":   "/a/b/",
		" //x// ": "/x/",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeURLBase(in), "input %q", in)
	}
}
