// Package bundler assembles the bundler configuration for a Catalog run.
//
// The Config produced here is opaque to the start pipeline: it is built once
// from the resolved paths, the mode, the detected framework and the serving
// URL, and then handed unchanged to the dev server.
package bundler

import (
	"github.com/interactivethings/catalog-cli/internal/model"
)

// DevClientModule is the pseudo module prepended to the entry in
// development mode. It connects the page to the live reload channel.
const DevClientModule = "@catalog/dev-client"

// Config is the complete bundler configuration.
type Config struct {
	// Mode is development or production.
	Mode model.Mode `yaml:"mode"`

	// Framework is the framework the configuration was built for.
	Framework model.Framework `yaml:"framework"`

	// URL is the serving URL, e.g. http://localhost:4000/.
	URL string `yaml:"url"`

	// Devtool selects the source map style.
	Devtool string `yaml:"devtool"`

	// Entry maps chunk names to the modules they start from.
	Entry map[string][]string `yaml:"entry"`

	Output  Output  `yaml:"output"`
	Resolve Resolve `yaml:"resolve"`
	Babel   Babel   `yaml:"babel"`

	// Include lists directories whose sources are transpiled.
	Include []string `yaml:"include"`

	// Define maps global identifiers to JSON-encoded replacement values.
	Define map[string]string `yaml:"define"`

	// Mounts tells the dev server which directory answers which URL
	// prefix, most specific first.
	Mounts []Mount `yaml:"mounts"`
}

// Output describes where bundles are written and how they are addressed.
type Output struct {
	Path          string `yaml:"path"`
	PublicPath    string `yaml:"publicPath"`
	Filename      string `yaml:"filename"`
	ChunkFilename string `yaml:"chunkFilename"`
}

// Resolve configures module lookup.
type Resolve struct {
	Modules    []string          `yaml:"modules"`
	Extensions []string          `yaml:"extensions"`
	Alias      map[string]string `yaml:"alias,omitempty"`
}

// Babel configures transpilation.
type Babel struct {
	Presets []string `yaml:"presets"`

	// UseBabelrc is set when the host project ships its own .babelrc,
	// which then takes precedence over Presets.
	UseBabelrc bool `yaml:"useBabelrc"`

	// CacheDirectory holds transpilation caches.
	CacheDirectory string `yaml:"cacheDirectory"`
}

// Mount binds a URL prefix to a directory.
type Mount struct {
	Prefix string `yaml:"prefix"`
	Dir    string `yaml:"dir"`
}
