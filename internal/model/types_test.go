package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFramework_DisplayName verifies the fixed display table. Unknown maps
// to an empty string, which suppresses the "Detected" line.
func TestFramework_DisplayName(t *testing.T) {
	tests := []struct {
		framework Framework
		want      string
	}{
		{FrameworkUnknown, ""},
		{FrameworkCreateReactApp, "Create React App"},
		{FrameworkNext, "next.js (support is experimental)"},
		{Framework("VITE"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.framework.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.framework.DisplayName())
			// Pure lookup: asking twice gives the same answer.
			assert.Equal(t, tt.framework.DisplayName(), tt.framework.DisplayName())
		})
	}
}

func TestFramework_IsValid(t *testing.T) {
	assert.True(t, FrameworkUnknown.IsValid())
	assert.True(t, FrameworkCreateReactApp.IsValid())
	assert.True(t, FrameworkNext.IsValid())
	assert.False(t, Framework("").IsValid())
	assert.False(t, Framework("next").IsValid())
}

func TestMode(t *testing.T) {
	assert.True(t, ModeDevelopment.IsDev())
	assert.False(t, ModeProduction.IsDev())
	assert.Equal(t, "development", ModeDevelopment.String())
}

// TestServingURL covers the deterministic URL construction, including the
// bracketed form for IPv6 literals.
func TestServingURL(t *testing.T) {
	tests := []struct {
		https bool
		host  string
		port  int
		want  string
	}{
		{true, "localhost", 5000, "https://localhost:5000/"},
		{false, "0.0.0.0", 4000, "http://0.0.0.0:4000/"},
		{false, "localhost", 4000, "http://localhost:4000/"},
		{false, "::1", 4001, "http://[::1]:4001/"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, ServingURL(tt.https, tt.host, tt.port))
		})
	}
}

func TestServerOptions_Defaults(t *testing.T) {
	opts := DefaultServerOptions()
	assert.Equal(t, 4000, opts.Port)
	assert.Equal(t, "localhost", opts.Host)
	assert.False(t, opts.HTTPS)
	assert.Empty(t, opts.Proxy)
}

func validPaths() *Paths {
	return &Paths{
		AppRoot:               "/app",
		AppSrc:                "/app/src",
		AppPackageJSON:        "/app/package.json",
		AppNodeModules:        "/app/node_modules",
		Babelrc:               "/app/.babelrc",
		CatalogSrcDir:         "/app/catalog",
		CatalogIndexJS:        "/app/catalog/index.js",
		CatalogStaticSrcDir:   "/app/catalog/static",
		CatalogBuildDir:       "/app/catalog/build",
		CatalogStaticBuildDir: "/app/catalog/build/static",
		SetupDir:              "/app/node_modules/.cache/catalog",
		PublicURL:             "/",
		Framework:             FrameworkUnknown,
	}
}

func TestPaths_Validate(t *testing.T) {
	require.NoError(t, validPaths().Validate())

	p := validPaths()
	p.CatalogIndexJS = ""
	assert.ErrorContains(t, p.Validate(), "catalogIndexJs is empty")

	p = validPaths()
	p.SetupDir = "relative/dir"
	assert.ErrorContains(t, p.Validate(), "not absolute")

	p = validPaths()
	p.PublicURL = "/docs"
	assert.ErrorContains(t, p.Validate(), "must end with '/'")

	p = validPaths()
	p.Framework = "GATSBY"
	assert.ErrorContains(t, p.Validate(), "invalid framework")
}

func TestCLIError(t *testing.T) {
	plain := NewCLIError(ExitGeneralError, "bad flag")
	assert.Equal(t, "bad flag", plain.Error())
	assert.Nil(t, plain.Unwrap())

	wrapped := WrapCLIError(ExitGeneralError, "startup failed", fmt.Errorf("resolve: %w", ErrSourceDirNotFound))
	assert.Equal(t, "startup failed: resolve: catalog source directory not found", wrapped.Error())
	assert.True(t, errors.Is(wrapped, ErrSourceDirNotFound))

	var target *CLIError
	require.True(t, errors.As(fmt.Errorf("outer: %w", wrapped), &target))
	assert.Equal(t, ExitGeneralError, target.Code)
}
