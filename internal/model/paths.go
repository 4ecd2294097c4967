package model

import (
	"fmt"
	"path/filepath"
)

// Paths is the set of filesystem locations the pipeline works with, keyed
// by role. It is computed once by the path resolver and only read after.
//
// All directory and file fields hold absolute paths.
type Paths struct {
	// AppRoot is the host project root (the working directory).
	AppRoot string `yaml:"appRoot"`

	// AppSrc is the directory holding the host project's own sources.
	AppSrc string `yaml:"appSrc"`

	// AppPackageJSON is the host project's package.json.
	AppPackageJSON string `yaml:"appPackageJson"`

	// AppNodeModules is the host project's node_modules directory.
	AppNodeModules string `yaml:"appNodeModules"`

	// Babelrc is where a custom babel configuration would live. The file
	// does not have to exist.
	Babelrc string `yaml:"babelrc"`

	// DotEnvFiles lists candidate .env files in load order. They do not
	// have to exist.
	DotEnvFiles []string `yaml:"dotEnvFiles"`

	// CatalogSrcDir is the Catalog source directory.
	CatalogSrcDir string `yaml:"catalogSrcDir"`

	// CatalogIndexJS is the Catalog entry module.
	CatalogIndexJS string `yaml:"catalogIndexJs"`

	// CatalogStaticSrcDir holds static files copied or served verbatim.
	CatalogStaticSrcDir string `yaml:"catalogStaticSrcDir"`

	// CatalogBuildDir is the output directory for static builds.
	CatalogBuildDir string `yaml:"catalogBuildDir"`

	// CatalogStaticBuildDir is where static files end up in a build.
	CatalogStaticBuildDir string `yaml:"catalogStaticBuildDir"`

	// SetupDir receives the files generated by catalog setup.
	SetupDir string `yaml:"setupDir"`

	// PublicURL is the URL base path, always ending in "/".
	PublicURL string `yaml:"publicUrl"`

	// Framework is the framework the paths were resolved for.
	Framework Framework `yaml:"framework"`
}

// Validate checks that every location is set and absolute.
func (p *Paths) Validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"appRoot", p.AppRoot},
		{"appSrc", p.AppSrc},
		{"appPackageJson", p.AppPackageJSON},
		{"appNodeModules", p.AppNodeModules},
		{"babelrc", p.Babelrc},
		{"catalogSrcDir", p.CatalogSrcDir},
		{"catalogIndexJs", p.CatalogIndexJS},
		{"catalogStaticSrcDir", p.CatalogStaticSrcDir},
		{"catalogBuildDir", p.CatalogBuildDir},
		{"catalogStaticBuildDir", p.CatalogStaticBuildDir},
		{"setupDir", p.SetupDir},
	}
	for _, f := range fields {
		if f.value == "" {
			return fmt.Errorf("path %s is empty", f.name)
		}
		if !filepath.IsAbs(f.value) {
			return fmt.Errorf("path %s is not absolute: %q", f.name, f.value)
		}
	}
	if p.PublicURL == "" || p.PublicURL[len(p.PublicURL)-1] != '/' {
		return fmt.Errorf("public URL %q must end with '/'", p.PublicURL)
	}
	if !p.Framework.IsValid() {
		return fmt.Errorf("invalid framework %q", p.Framework)
	}
	return nil
}
