// Package startup sequences the catalog start pipeline.
//
// Each step consumes the typed record produced by the step before it and
// returns the record the next step needs:
//
//	detection → resolution → allocation → configuration → preparation → serving
//
// so the order framework → paths → port → URL → bundler config → setup →
// dev server → browser follows from the data rather than from statement
// order. Nothing is retried. Every failure except opening the browser
// aborts the run and is returned to the caller.
package startup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/interactivethings/catalog-cli/internal/browser"
	"github.com/interactivethings/catalog-cli/internal/bundler"
	"github.com/interactivethings/catalog-cli/internal/devserver"
	"github.com/interactivethings/catalog-cli/internal/model"
)

// FrameworkDetector classifies the host project. It never fails: an
// unreadable or ambiguous project is model.FrameworkUnknown.
type FrameworkDetector interface {
	Detect(ctx context.Context) model.Framework
}

// PathResolver computes the path set for a run. It only performs
// read-only checks; a missing source directory or entry module is an
// error.
type PathResolver interface {
	Resolve(ctx context.Context, catalogSrcDir, buildSegment string, framework model.Framework, urlBase string) (*model.Paths, error)
}

// PortAllocator returns a port that was free when probed. It may return a
// different port than preferred without reporting an error.
type PortAllocator interface {
	Allocate(ctx context.Context, host string, preferred int) (int, error)
}

// ConfigBuilder assembles the bundler configuration. The mode is passed
// explicitly instead of being read from the environment.
type ConfigBuilder interface {
	Build(paths *model.Paths, mode model.Mode, framework model.Framework, servingURL string) (*bundler.Config, error)
}

// CatalogSetup writes Catalog's generated files. Running it again must be
// safe.
type CatalogSetup interface {
	Run(ctx context.Context, paths *model.Paths) error
}

// Server is a running dev server. It keeps running after Run returns; the
// caller owns it and must call Shutdown.
type Server interface {
	Addr() string
	Done() <-chan error
	Shutdown(ctx context.Context) error
}

// DevServer starts a dev server and returns once it accepts connections.
// Returning means "ready", not "finished".
type DevServer interface {
	Start(ctx context.Context, opts devserver.Options) (Server, error)
}

// BrowserLauncher opens a URL in a browser.
type BrowserLauncher interface {
	Open(ctx context.Context, url string) error
}

// Console receives the human-facing output. Diagnostics go to the Logger
// instead.
type Console interface {
	Clear()
	Banner()
	InfoDimmed(msg string)
	Warn(msg string)
}

// Orchestrator runs the pipeline against its collaborators.
type Orchestrator struct {
	Detector  FrameworkDetector
	Resolver  PathResolver
	Allocator PortAllocator
	Builder   ConfigBuilder
	Setup     CatalogSetup
	Server    DevServer
	Browser   BrowserLauncher
	Console   Console
	Logger    *slog.Logger

	// Stat is used for the custom .babelrc notice. Defaults to os.Stat.
	Stat func(name string) (os.FileInfo, error)
}

// Result describes a successful start.
type Result struct {
	Framework model.Framework
	Paths     *model.Paths
	Port      int
	URL       string
	Server    Server
}

// The stage records below carry the pipeline's data. Each embeds its
// predecessor, so a later stage sees every earlier result, and each stage
// method takes the previous record as its only source of inputs. Calling a
// stage early is impossible: there is no value of the required type yet.

// detection is the result of framework detection.
type detection struct {
	framework model.Framework
}

// resolution adds the resolved path set.
type resolution struct {
	detection
	paths *model.Paths
}

// allocation adds the allocated port and the serving URL derived from it.
// The URL always uses the allocated port, never the requested one.
type allocation struct {
	resolution
	port int
	url  string
}

// configuration adds the bundler configuration.
type configuration struct {
	allocation
	bundle *bundler.Config
}

// preparation marks that the generated files exist on disk. It carries no
// new data; its type is the proof that setup ran.
type preparation struct {
	configuration
}

// serving adds the ready dev server.
type serving struct {
	preparation
	server Server
}

// Run starts Catalog for catalogSrcDir ("" means "catalog") with opts in
// the given mode. It returns once the dev server is ready and the browser
// has been asked to open; the server keeps running in the background.
func (o *Orchestrator) Run(ctx context.Context, catalogSrcDir string, opts model.ServerOptions, mode model.Mode) (*Result, error) {
	if catalogSrcDir == "" {
		catalogSrcDir = model.DefaultSourceDir
	}

	// Detection first: the framework changes where the app sources live,
	// so paths cannot be resolved without it.
	d := o.detect(ctx)

	r, err := o.resolve(ctx, d, catalogSrcDir)
	if err != nil {
		return nil, err
	}

	// The port is allocated only after paths resolved, so a missing source
	// directory fails before any socket is touched.
	a, err := o.allocate(ctx, r, opts)
	if err != nil {
		return nil, err
	}

	c, err := o.configure(a, mode)
	if err != nil {
		return nil, err
	}

	// Setup writes the files the server will serve, so it must finish
	// before the server starts.
	p, err := o.prepare(ctx, c)
	if err != nil {
		return nil, err
	}

	// Presentation happens between setup and serving: setup errors are
	// still on screen if setup fails, and the detected framework is shown
	// before the server starts logging.
	o.announce(p)

	s, err := o.serve(ctx, p, opts)
	if err != nil {
		return nil, err
	}

	// serve returned, so the listener accepts connections; only now is it
	// safe to point a browser at it.
	o.openBrowser(ctx, s)

	return &Result{
		Framework: s.framework,
		Paths:     s.paths,
		Port:      s.port,
		URL:       s.url,
		Server:    s.server,
	}, nil
}

func (o *Orchestrator) detect(ctx context.Context) detection {
	framework := o.Detector.Detect(ctx)
	// A detector outside this package could return a value that is not in
	// the enumeration; treat it like any other unrecognised project.
	if !framework.IsValid() {
		framework = model.FrameworkUnknown
	}
	o.logger().Debug("framework detected", "framework", framework.String())
	return detection{framework: framework}
}

func (o *Orchestrator) resolve(ctx context.Context, d detection, catalogSrcDir string) (resolution, error) {
	// No extra build segment and the root URL base: the dev server always
	// serves the Catalog at "/".
	paths, err := o.Resolver.Resolve(ctx, catalogSrcDir, "", d.framework, "/")
	if err != nil {
		return resolution{}, fmt.Errorf("resolve paths: %w", err)
	}
	return resolution{detection: d, paths: paths}, nil
}

func (o *Orchestrator) allocate(ctx context.Context, r resolution, opts model.ServerOptions) (allocation, error) {
	port, err := o.Allocator.Allocate(ctx, opts.Host, opts.Port)
	if err != nil {
		return allocation{}, fmt.Errorf("allocate port: %w", err)
	}
	// Substitution is not an error and is not announced separately; the
	// printed URL and the opened browser show the real port.
	if port != opts.Port {
		o.logger().Debug("preferred port busy", "preferred", opts.Port, "port", port)
	}
	return allocation{
		resolution: r,
		port:       port,
		url:        model.ServingURL(opts.HTTPS, opts.Host, port),
	}, nil
}

func (o *Orchestrator) configure(a allocation, mode model.Mode) (configuration, error) {
	bundle, err := o.Builder.Build(a.paths, mode, a.framework, a.url)
	if err != nil {
		return configuration{}, fmt.Errorf("build bundler config: %w", err)
	}
	return configuration{allocation: a, bundle: bundle}, nil
}

func (o *Orchestrator) prepare(ctx context.Context, c configuration) (preparation, error) {
	if err := o.Setup.Run(ctx, c.paths); err != nil {
		return preparation{}, fmt.Errorf("set up catalog: %w", err)
	}
	return preparation{configuration: c}, nil
}

// announce clears the screen and prints what was detected. It runs after
// setup, so setup errors stay visible, and before the server starts
// logging.
func (o *Orchestrator) announce(p preparation) {
	o.Console.Clear()
	o.Console.Banner()
	if name := p.framework.DisplayName(); name != "" {
		o.Console.InfoDimmed("  Detected " + name)
	}
	if o.exists(p.paths.Babelrc) {
		o.Console.InfoDimmed("  Using custom .babelrc")
	}
}

func (o *Orchestrator) serve(ctx context.Context, p preparation, opts model.ServerOptions) (serving, error) {
	server, err := o.Server.Start(ctx, devserver.Options{
		Config:    p.bundle,
		Host:      opts.Host,
		Port:      p.port,
		HTTPS:     opts.HTTPS,
		Paths:     p.paths,
		Framework: p.framework,
		Proxy:     opts.Proxy,
	})
	if err != nil {
		return serving{}, fmt.Errorf("start dev server: %w", err)
	}
	return serving{preparation: p, server: server}, nil
}

// openBrowser only warns on failure: the server is already up.
func (o *Orchestrator) openBrowser(ctx context.Context, s serving) {
	err := o.Browser.Open(ctx, s.url)
	switch {
	case err == nil:
	case errors.Is(err, browser.ErrDisabled):
		o.logger().Debug("browser disabled", "url", s.url)
	default:
		o.logger().Warn("could not open browser", "url", s.url, "error", err)
		o.Console.Warn(fmt.Sprintf("  Could not open a browser, visit %s manually (%v)", s.url, err))
	}
}

// exists is a plain existence check used only for messaging; any stat
// error counts as "absent".
func (o *Orchestrator) exists(name string) bool {
	stat := o.Stat
	if stat == nil {
		stat = os.Stat
	}
	_, err := stat(name)
	return err == nil
}

// logger returns the configured logger or slog.Default.
func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// FromRuntime adapts a devserver runtime to DevServer.
func FromRuntime(rt *devserver.Runtime) DevServer {
	return runtimeServer{rt: rt}
}

// runtimeServer wraps *devserver.Runtime so its concrete *Server result
// satisfies the Server interface.
type runtimeServer struct {
	rt *devserver.Runtime
}

func (r runtimeServer) Start(ctx context.Context, opts devserver.Options) (Server, error) {
	s, err := r.rt.Start(ctx, opts)
	if err != nil {
		// Return an untyped nil: a nil *devserver.Server stored in the
		// interface would compare non-nil.
		return nil, err
	}
	return s, nil
}
