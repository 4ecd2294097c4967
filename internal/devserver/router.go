package devserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/interactivethings/catalog-cli/internal/bundler"
	"github.com/interactivethings/catalog-cli/internal/model"
	"github.com/interactivethings/catalog-cli/internal/setup"
)

// Internal routes.
const (
	routeLive    = "/__catalog/live"
	routeHealth  = "/__catalog/health"
	routeMetrics = "/__catalog/metrics"
)

// routerOptions carries everything newRouter needs from Start.
type routerOptions struct {
	// config supplies the static mounts.
	config *bundler.Config

	// paths locates the generated index.html.
	paths *model.Paths

	// proxy is the optional upstream URL; empty disables proxying.
	proxy string

	// hub serves the live reload websocket.
	hub *Hub

	logger *slog.Logger
}

// newRouter builds the request handler: internal routes first, then static
// mounts, then the proxy or the index.html fallback.
func newRouter(opts routerOptions) (http.Handler, error) {
	var upstream *httputil.ReverseProxy
	if opts.proxy != "" {
		p, err := newProxy(opts.proxy, opts.logger)
		if err != nil {
			return nil, err
		}
		upstream = p
	}

	// A private registry per server; see requestMetrics.
	registry := prometheus.NewRegistry()
	metrics := newRequestMetrics(registry)
	registry.MustRegister(newLiveReloadGauge(opts.hub))

	// Liveness only says the process is healthy. Readiness additionally
	// requires the generated index.html, without which every page request
	// would fail.
	health := healthcheck.NewHandler()
	health.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(10000))
	indexHTML := filepath.Join(opts.paths.SetupDir, "index.html")
	health.AddReadinessCheck("catalog-setup", func() error {
		if _, err := os.Stat(indexHTML); err != nil {
			return fmt.Errorf("generated index.html missing: %w", err)
		}
		return nil
	})

	router := chi.NewRouter()

	// Request logs go to the injected slog logger at debug level, so they
	// only show up with --verbose and never mix with the console output.
	router.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(opts.logger.Handler(), slog.LevelDebug),
		NoColor: true,
	}))
	router.Use(middleware.Recoverer)
	router.Use(metrics.middleware)

	router.Get(routeLive, health.LiveEndpoint)
	router.Get(routeHealth, health.ReadyEndpoint)
	router.Handle(routeMetrics, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	router.Get(setup.LiveReloadPath, opts.hub.ServeHTTP)

	// Everything that is not an internal route falls through to the asset
	// handler. MethodNotAllowed is routed there too, so a POST to a page URL
	// can still reach the proxy.
	fallback := &assetHandler{
		mounts:    opts.config.Mounts,
		indexHTML: indexHTML,
		proxy:     upstream,
	}
	router.NotFound(fallback.ServeHTTP)
	router.MethodNotAllowed(fallback.ServeHTTP)

	return router, nil
}

// newProxy creates a reverse proxy to target that rewrites the Host header
// to the upstream's.
func newProxy(target string, logger *slog.Logger) (*httputil.ReverseProxy, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy URL %q: %w", target, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid proxy URL %q: must be an absolute http(s) URL", target)
	}

	proxy := httputil.NewSingleHostReverseProxy(u)

	// The default director keeps the incoming Host header. Backends with
	// virtual hosts expect their own name, so it is rewritten.
	director := proxy.Director
	proxy.Director = func(r *http.Request) {
		director(r)
		r.Host = u.Host
	}
	// An unreachable backend is common during development (it is simply
	// not started yet); answer 502 and log instead of the default
	// behaviour of logging through the standard logger.
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Warn("proxy request failed", "method", r.Method, "path", r.URL.Path, "upstream", u.Host, "error", err)
		http.Error(w, "Proxy error: could not reach "+u.Host, http.StatusBadGateway)
	}
	return proxy, nil
}

// assetHandler answers everything the explicit routes do not.
type assetHandler struct {
	// mounts are tried in order; the bundler lists the most specific
	// prefix first.
	mounts []bundler.Mount

	// indexHTML is the history fallback document.
	indexHTML string

	// proxy is nil when no upstream is configured.
	proxy *httputil.ReverseProxy
}

// ServeHTTP resolves a request in this order:
//  1. GET/HEAD for an existing file below a mount serves the file.
//  2. With a proxy, anything that is not a page request goes upstream
//     (API calls, assets of the host application).
//  3. GET/HEAD page requests get index.html, so client-side routes such as
//     /components/button survive a reload.
//  4. Everything else is 404.
func (h *assetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		if file, ok := h.lookup(r.URL.Path); ok {
			http.ServeFile(w, r, file)
			return
		}
	}

	if h.proxy != nil && !acceptsHTML(r) {
		h.proxy.ServeHTTP(w, r)
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && acceptsHTML(r) {
		// The document changes whenever setup re-runs; make browsers
		// revalidate instead of serving a stale copy.
		w.Header().Set("Cache-Control", "no-cache")
		serveIndex(w, r, h.indexHTML)
		return
	}

	http.NotFound(w, r)
}

// lookup maps a URL path to an existing regular file below one of the
// mounts. Directory requests resolve to their index.html.
//
// Paths that touch a dotfile or a node_modules directory are never served.
// For next.js the app mount is the project root, which also holds .env
// files with secrets, .git and installed packages; only the bundler may
// read those, never a browser.
func (h *assetHandler) lookup(urlPath string) (string, bool) {
	clean := path.Clean("/" + urlPath)
	if isPrivatePath(clean) {
		return "", false
	}
	if strings.HasSuffix(urlPath, "/") && clean != "/" {
		clean += "/"
	}
	for _, m := range h.mounts {
		// "/static" (no slash) also matches the "/static/" mount, so the
		// directory itself resolves to its index.html.
		if !strings.HasPrefix(clean, m.Prefix) && clean+"/" != m.Prefix {
			continue
		}
		// clean has no ".." left, so joining it below m.Dir cannot escape
		// the mounted directory.
		rel := strings.TrimPrefix(clean, strings.TrimSuffix(m.Prefix, "/"))
		file := filepath.Join(m.Dir, filepath.FromSlash(path.Clean("/"+rel)))
		// A miss in one mount falls through to the next; the setup
		// directory at the URL base is the last resort.
		info, err := os.Stat(file)
		if err != nil {
			continue
		}
		if info.IsDir() {
			file = filepath.Join(file, "index.html")
			if info, err = os.Stat(file); err != nil || info.IsDir() {
				continue
			}
		}
		return file, true
	}
	return "", false
}

// privateSegments are directory names that are never exposed, wherever
// they appear in a path.
var privateSegments = map[string]bool{
	"node_modules": true,
}

// isPrivatePath reports whether any segment of the cleaned URL path is a
// dotfile, a dot directory or one of privateSegments.
func isPrivatePath(clean string) bool {
	for _, seg := range strings.Split(clean, "/") {
		if seg == "" {
			continue
		}
		if strings.HasPrefix(seg, ".") || privateSegments[seg] {
			return true
		}
	}
	return false
}

// serveIndex writes index.html without http.ServeFile's redirect of
// ".../index.html" requests.
func serveIndex(w http.ResponseWriter, r *http.Request, file string) {
	f, err := os.Open(file)
	if err != nil {
		http.Error(w, "Catalog index.html is missing, re-run catalog start", http.StatusServiceUnavailable)
		return
	}
	defer func() { _ = f.Close() }()

	modTime := time.Time{}
	if info, err := f.Stat(); err == nil {
		modTime = info.ModTime()
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	http.ServeContent(w, r, "index.html", modTime, f)
}

// acceptsHTML reports whether the client asked for an HTML document.
// Browsers send text/html for navigations; fetch and script loads do not.
func acceptsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
