// Package setup prepares the files Catalog generates for the dev server.
//
// Everything is written below model.Paths.SetupDir. Setup is idempotent:
// each file is rendered in memory, compared with what is on disk and only
// replaced (atomically, via a temporary file and rename) when it differs.
// Leftover temporary files from an interrupted earlier run are removed
// first, so a second run always converges on the same directory contents.
package setup

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	texttemplate "text/template"

	"gopkg.in/yaml.v3"

	"github.com/interactivethings/catalog-cli/internal/model"
)

// LiveReloadPath is the websocket endpoint the dev client connects to.
const LiveReloadPath = "/__catalog/livereload"

// tempPattern names temporary files so stale ones can be found again.
const tempPattern = ".catalog-*.tmp"

//go:embed templates/*.tmpl
var templateFS embed.FS

// Manifest is written to catalog.yml and records what the generated files
// were derived from.
type Manifest struct {
	Framework model.Framework `yaml:"framework"`
	Entry     string          `yaml:"entry"`
	Paths     *model.Paths    `yaml:"paths"`
}

type templateData struct {
	Title          string
	PublicURL      string
	Entry          string
	LiveReloadPath string
}

// Setup writes the generated scaffold.
type Setup struct{}

// New creates a Setup.
func New() *Setup {
	return &Setup{}
}

// Run renders and writes all generated files for paths. Failures wrap
// model.ErrSetupFailed. Files written before a failure are left in place.
func (s *Setup) Run(ctx context.Context, paths *model.Paths) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := paths.Validate(); err != nil {
		return fmt.Errorf("%w: %v", model.ErrSetupFailed, err)
	}

	files, err := Render(paths)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrSetupFailed, err)
	}

	if err := os.MkdirAll(paths.SetupDir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", model.ErrSetupFailed, err)
	}
	if err := removeStaleTemps(paths.SetupDir); err != nil {
		return fmt.Errorf("%w: %v", model.ErrSetupFailed, err)
	}

	for _, name := range fileOrder {
		if _, err := writeIfChanged(filepath.Join(paths.SetupDir, name), files[name]); err != nil {
			return fmt.Errorf("%w: %v", model.ErrSetupFailed, err)
		}
	}
	return nil
}

// fileOrder fixes the write order; index.html goes last so a reader never
// sees it referencing scripts that are not there yet.
var fileOrder = []string{"catalog.yml", "dev-client.js", "catalog.js", "index.html"}

// Render produces the contents of every generated file, keyed by name.
func Render(paths *model.Paths) (map[string][]byte, error) {
	entry, err := filepath.Rel(paths.CatalogSrcDir, paths.CatalogIndexJS)
	if err != nil || strings.HasPrefix(entry, "..") {
		return nil, fmt.Errorf("entry %s is outside %s", paths.CatalogIndexJS, paths.CatalogSrcDir)
	}
	data := templateData{
		Title:          "Catalog",
		PublicURL:      paths.PublicURL,
		Entry:          filepath.ToSlash(entry),
		LiveReloadPath: LiveReloadPath,
	}

	files := make(map[string][]byte, len(fileOrder))

	html, err := template.ParseFS(templateFS, "templates/index.html.tmpl")
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := html.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render index.html: %w", err)
	}
	files["index.html"] = buf.Bytes()

	for _, name := range []string{"catalog.js", "dev-client.js"} {
		tmpl, err := texttemplate.ParseFS(templateFS, "templates/"+name+".tmpl")
		if err != nil {
			return nil, err
		}
		var out bytes.Buffer
		if err := tmpl.Execute(&out, data); err != nil {
			return nil, fmt.Errorf("failed to render %s: %w", name, err)
		}
		files[name] = out.Bytes()
	}

	manifest, err := yaml.Marshal(Manifest{
		Framework: paths.Framework,
		Entry:     data.Entry,
		Paths:     paths,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render catalog.yml: %w", err)
	}
	files["catalog.yml"] = manifest

	return files, nil
}

// writeIfChanged replaces path with content unless it already holds
// exactly that content. It reports whether a write happened.
func writeIfChanged(path string, content []byte) (bool, error) {
	existing, err := os.ReadFile(path)
	if err == nil && bytes.Equal(existing, content) {
		return false, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), tempPattern)
	if err != nil {
		return false, fmt.Errorf("failed to create temporary file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return false, fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return false, fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return true, nil
}

func removeStaleTemps(dir string) error {
	matches, err := filepath.Glob(filepath.Join(dir, tempPattern))
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove stale file %s: %w", m, err)
		}
	}
	return nil
}
