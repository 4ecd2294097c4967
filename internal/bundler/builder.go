package bundler

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"github.com/interactivethings/catalog-cli/internal/model"
)

// DevOutputDir is the subdirectory of the setup directory that development
// bundles are written to. It keeps emitted bundles apart from the files
// Catalog setup generates next to them, such as catalog.js.
const DevOutputDir = "bundle"

// publicEnvPrefixes select the .env keys exposed to client code.
var publicEnvPrefixes = []string{"REACT_APP_", "NEXT_PUBLIC_", "CATALOG_"}

// presetsByFramework lists babel presets per framework.
var presetsByFramework = map[model.Framework][]string{
	model.FrameworkCreateReactApp: {"babel-preset-react-app"},
	model.FrameworkNext:           {"next/babel"},
	model.FrameworkUnknown:        {"babel-preset-catalog"},
}

// nextShims redirects next.js runtime modules to Catalog's stand-ins, which
// work outside a next server.
var nextShims = map[string]string{
	"next/link":   "catalog/lib/next/link",
	"next/head":   "catalog/lib/next/head",
	"next/router": "catalog/lib/next/router",
}

// Builder assembles Config values.
type Builder struct {
	// Stat is used for existence checks. Defaults to os.Stat.
	Stat func(name string) (os.FileInfo, error)
}

// NewBuilder creates a Builder backed by the real filesystem.
func NewBuilder() *Builder {
	return &Builder{Stat: os.Stat}
}

// Build produces the configuration for one run. Besides its arguments it
// only reads the host project's .env files and checks whether a .babelrc
// exists.
//
// Malformed inputs fail with model.ErrInvalidBundlerConfig.
func (b *Builder) Build(paths *model.Paths, mode model.Mode, framework model.Framework, servingURL string) (*Config, error) {
	if paths == nil {
		return nil, fmt.Errorf("%w: no paths", model.ErrInvalidBundlerConfig)
	}
	if err := paths.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidBundlerConfig, err)
	}
	if mode != model.ModeDevelopment && mode != model.ModeProduction {
		return nil, fmt.Errorf("%w: unknown mode %q", model.ErrInvalidBundlerConfig, mode)
	}
	presets, ok := presetsByFramework[framework]
	if !ok {
		return nil, fmt.Errorf("%w: unknown framework %q", model.ErrInvalidBundlerConfig, framework)
	}
	if err := checkServingURL(servingURL); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidBundlerConfig, err)
	}

	env, err := readDotEnv(paths.DotEnvFiles, b.exists)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidBundlerConfig, err)
	}

	cfg := &Config{
		Mode:      mode,
		Framework: framework,
		URL:       servingURL,
		Devtool:   "source-map",
		Entry: map[string][]string{
			"catalog": {paths.CatalogIndexJS},
		},
		Output: Output{
			Path:          paths.CatalogBuildDir,
			PublicPath:    paths.PublicURL,
			Filename:      "static/[name].[chunkhash:8].js",
			ChunkFilename: "static/[name].[chunkhash:8].chunk.js",
		},
		Resolve: Resolve{
			Modules:    []string{paths.AppNodeModules, "node_modules"},
			Extensions: []string{".js", ".jsx", ".json"},
		},
		Babel: Babel{
			Presets:        append([]string(nil), presets...),
			UseBabelrc:     b.exists(paths.Babelrc),
			CacheDirectory: filepath.Join(paths.SetupDir, "babel"),
		},
		Include: []string{paths.CatalogSrcDir, paths.AppSrc},
		Define:  defines(mode, paths.PublicURL, servingURL, env),
		Mounts:  mounts(paths),
	}

	if mode.IsDev() {
		cfg.Devtool = "cheap-module-source-map"
		cfg.Entry["catalog"] = []string{DevClientModule, paths.CatalogIndexJS}
		cfg.Output.Path = filepath.Join(paths.SetupDir, DevOutputDir)
		cfg.Output.PublicPath = paths.PublicURL + DevOutputDir + "/"
		cfg.Output.Filename = "[name].js"
		cfg.Output.ChunkFilename = "[name].chunk.js"
	}

	if framework == model.FrameworkNext {
		cfg.Resolve.Alias = make(map[string]string, len(nextShims))
		for k, v := range nextShims {
			cfg.Resolve.Alias[k] = v
		}
	}

	return cfg, nil
}

func (b *Builder) exists(name string) bool {
	stat := b.Stat
	if stat == nil {
		stat = os.Stat
	}
	_, err := stat(name)
	return err == nil
}

func checkServingURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("serving URL %q: %v", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("serving URL %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("serving URL %q has no host", raw)
	}
	return nil
}

// readDotEnv loads the existing files in order; later files override
// earlier ones. Only public keys are kept. The process environment is left
// untouched.
func readDotEnv(files []string, exists func(string) bool) (map[string]string, error) {
	merged := map[string]string{}
	for _, f := range files {
		if !exists(f) {
			continue
		}
		values, err := godotenv.Read(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f, err)
		}
		for k, v := range values {
			if isPublicEnvKey(k) {
				merged[k] = v
			}
		}
	}
	return merged, nil
}

func isPublicEnvKey(key string) bool {
	for _, prefix := range publicEnvPrefixes {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

func defines(mode model.Mode, publicURL, servingURL string, env map[string]string) map[string]string {
	out := map[string]string{
		"process.env.NODE_ENV":    jsonString(mode.String()),
		"process.env.PUBLIC_URL":  jsonString(strings.TrimSuffix(publicURL, "/")),
		"process.env.CATALOG_URL": jsonString(servingURL),
	}
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out["process.env."+k] = jsonString(env[k])
	}
	return out
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// mounts lists the directories the dev server exposes, most specific
// prefix first. The setup directory answers the URL base itself.
func mounts(paths *model.Paths) []Mount {
	base := paths.PublicURL
	return []Mount{
		{Prefix: base + "static/", Dir: paths.CatalogStaticSrcDir},
		{Prefix: base + "catalog/", Dir: paths.CatalogSrcDir},
		{Prefix: base + "app/", Dir: paths.AppSrc},
		{Prefix: base, Dir: paths.SetupDir},
	}
}
