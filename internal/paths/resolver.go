// Package paths resolves the filesystem layout used by the start pipeline.
//
// Every location is derived here, once, from the Catalog source directory,
// an optional build directory segment, the detected framework and the URL
// base. Downstream code reads fields of model.Paths by role instead of
// joining strings itself.
package paths

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/interactivethings/catalog-cli/internal/model"
)

const (
	// defaultBuildSegment is the build directory inside the Catalog
	// source directory when no segment is given.
	defaultBuildSegment = "build"

	// setupSegment is where generated files go, relative to node_modules.
	setupSegment = ".cache/catalog"
)

// entryCandidates are tried in order inside the Catalog source directory.
var entryCandidates = []string{"index.js", "index.jsx"}

// Resolver computes model.Paths relative to a project root.
type Resolver struct {
	// Root is the project root. Empty means the working directory.
	Root string
}

// NewResolver creates a Resolver for root. Pass "" for the working
// directory.
func NewResolver(root string) *Resolver {
	return &Resolver{Root: root}
}

// Resolve computes the path set.
//
// catalogSrcDir and buildSegment are relative to the project root (absolute
// values are accepted as-is). An empty buildSegment selects
// <catalogSrcDir>/build. urlBase is normalised to start and end with "/".
//
// Only read-only checks happen here. A missing source directory fails with
// model.ErrSourceDirNotFound and a missing entry module with
// model.ErrEntryNotFound.
func (r *Resolver) Resolve(ctx context.Context, catalogSrcDir, buildSegment string, framework model.Framework, urlBase string) (*model.Paths, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !framework.IsValid() {
		return nil, fmt.Errorf("cannot resolve paths for framework %q", framework)
	}

	appRoot, err := r.appRoot()
	if err != nil {
		return nil, err
	}
	resolveApp := func(rel string) string {
		if filepath.IsAbs(rel) {
			return filepath.Clean(rel)
		}
		return filepath.Join(appRoot, rel)
	}

	if catalogSrcDir == "" {
		catalogSrcDir = model.DefaultSourceDir
	}
	srcDir := resolveApp(catalogSrcDir)
	info, err := os.Stat(srcDir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", model.ErrSourceDirNotFound, srcDir)
	}

	indexJS, err := findEntry(srcDir)
	if err != nil {
		return nil, err
	}

	buildDir := filepath.Join(srcDir, defaultBuildSegment)
	if buildSegment != "" {
		buildDir = resolveApp(buildSegment)
	}

	nodeModules := resolveApp("node_modules")

	return &model.Paths{
		AppRoot:        appRoot,
		AppSrc:         appSrcFor(appRoot, framework),
		AppPackageJSON: resolveApp("package.json"),
		AppNodeModules: nodeModules,
		Babelrc:        resolveApp(".babelrc"),
		DotEnvFiles: []string{
			resolveApp(".env"),
			resolveApp(".env.development"),
			resolveApp(".env.local"),
		},
		CatalogSrcDir:         srcDir,
		CatalogIndexJS:        indexJS,
		CatalogStaticSrcDir:   filepath.Join(srcDir, "static"),
		CatalogBuildDir:       buildDir,
		CatalogStaticBuildDir: filepath.Join(buildDir, "static"),
		SetupDir:              filepath.Join(nodeModules, filepath.FromSlash(setupSegment)),
		PublicURL:             NormalizeURLBase(urlBase),
		Framework:             framework,
	}, nil
}

// appRoot returns the absolute project root with symlinks evaluated.
func (r *Resolver) appRoot() (string, error) {
	root := r.Root
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to determine working directory: %w", err)
		}
		root = wd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve project root %q: %w", root, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("failed to resolve project root %q: %w", root, err)
	}
	return resolved, nil
}

// appSrcFor returns the directory holding the host project's components.
// next.js keeps pages and components at the project root.
func appSrcFor(appRoot string, framework model.Framework) string {
	if framework == model.FrameworkNext {
		return appRoot
	}
	return filepath.Join(appRoot, "src")
}

func findEntry(srcDir string) (string, error) {
	for _, name := range entryCandidates {
		candidate := filepath.Join(srcDir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s (looked for %s)", model.ErrEntryNotFound,
		srcDir, strings.Join(entryCandidates, ", "))
}

// NormalizeURLBase makes sure base starts and ends with a single "/".
// An empty base becomes "/".
func NormalizeURLBase(base string) string {
	trimmed := strings.Trim(strings.TrimSpace(base), "/")
	if trimmed == "" {
		return "/"
	}
	return "/" + trimmed + "/"
}
