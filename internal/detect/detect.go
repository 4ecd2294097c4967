// Package detect classifies the host project's build framework.
//
// Detection only reads package.json from the project root. The manifest is
// run through github.com/tidwall/jsonc before decoding so that comments and
// trailing commas, which some tooling tolerates, do not turn a recognisable
// project into an unknown one.
//
// Detection never fails: a missing, unreadable or ambiguous manifest yields
// model.FrameworkUnknown.
package detect

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"

	"github.com/interactivethings/catalog-cli/internal/model"
)

// PackageJSON holds the package.json fields detection looks at. Other
// fields are ignored.
type PackageJSON struct {
	Dependencies    map[string]string `json:"dependencies,omitempty"`
	DevDependencies map[string]string `json:"devDependencies,omitempty"`
}

// HasDependency reports whether name is listed in dependencies or
// devDependencies.
func (p *PackageJSON) HasDependency(name string) bool {
	if _, ok := p.Dependencies[name]; ok {
		return true
	}
	_, ok := p.DevDependencies[name]
	return ok
}

// signatures maps the dependency that identifies a framework to the
// framework itself.
var signatures = []struct {
	dependency string
	framework  model.Framework
}{
	{"react-scripts", model.FrameworkCreateReactApp},
	{"next", model.FrameworkNext},
}

// LoadPackageJSON reads and decodes the package.json at path.
func LoadPackageJSON(path string) (*PackageJSON, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var pkg PackageJSON
	if err := json.Unmarshal(jsonc.ToJSON(data), &pkg); err != nil {
		return nil, err
	}
	return &pkg, nil
}

// Classify maps a decoded manifest to a framework. A manifest matching more
// than one signature is ambiguous and classified as unknown.
func Classify(pkg *PackageJSON) model.Framework {
	if pkg == nil {
		return model.FrameworkUnknown
	}
	found := model.FrameworkUnknown
	for _, sig := range signatures {
		if !pkg.HasDependency(sig.dependency) {
			continue
		}
		if found != model.FrameworkUnknown {
			return model.FrameworkUnknown
		}
		found = sig.framework
	}
	return found
}

// Detector inspects a project root.
type Detector struct {
	// Root is the project directory. Empty means the working directory.
	Root string
}

// NewDetector creates a Detector for root. Pass "" for the working
// directory.
func NewDetector(root string) *Detector {
	return &Detector{Root: root}
}

// Detect reads root/package.json and classifies it. It always returns a
// value from the closed enumeration.
func (d *Detector) Detect(ctx context.Context) model.Framework {
	if ctx.Err() != nil {
		return model.FrameworkUnknown
	}
	root := d.Root
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return model.FrameworkUnknown
		}
		root = wd
	}
	pkg, err := LoadPackageJSON(filepath.Join(root, "package.json"))
	if err != nil {
		return model.FrameworkUnknown
	}
	return Classify(pkg)
}
