// Package devserver runs the Catalog development server.
//
// Start binds the listener synchronously, begins serving in the background
// and only returns once a connection to the bound address succeeds. The
// returned Server outlives the call: it keeps serving until Shutdown.
//
// Besides the static mounts from the bundler configuration the server
// exposes a few internal routes under /__catalog/: live and ready health
// checks, Prometheus metrics and the live reload websocket. A polling
// watcher broadcasts a reload message whenever a watched source changes.
package devserver

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/interactivethings/catalog-cli/internal/bundler"
	"github.com/interactivethings/catalog-cli/internal/model"
)

const (
	// readyProbeInterval is the pause between readiness dials.
	readyProbeInterval = 25 * time.Millisecond

	// readyProbeRetries bounds readiness dials before Start gives up.
	readyProbeRetries = 80

	// readyDialTimeout bounds a single readiness dial.
	readyDialTimeout = 250 * time.Millisecond

	// defaultWatchInterval is the polling period of the source watcher.
	defaultWatchInterval = 500 * time.Millisecond
)

// Options describes one dev server instance.
type Options struct {
	Config    *bundler.Config
	Host      string
	Port      int
	HTTPS     bool
	Paths     *model.Paths
	Framework model.Framework

	// Proxy is an optional upstream URL for non-HTML requests no mount
	// answers.
	Proxy string

	// WatchInterval overrides the polling period. Zero uses the default;
	// a negative value disables watching.
	WatchInterval time.Duration
}

// Runtime starts dev servers. It holds only the logger shared by every
// server it starts.
type Runtime struct {
	logger *slog.Logger
}

// NewRuntime creates a Runtime logging to logger (slog.Default if nil).
func NewRuntime(logger *slog.Logger) *Runtime {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runtime{logger: logger}
}

// Server is a running dev server.
type Server struct {
	// http serves the router on the listener bound by Start.
	http *http.Server

	// hub owns the live reload connections.
	hub *Hub

	// addr is the address actually bound, which differs from the
	// requested one when port 0 was asked for (tests do that).
	addr string

	// stopWatch cancels the source watcher.
	stopWatch context.CancelFunc

	// done receives the serve loop's result once, then is closed, so any
	// number of later receives return immediately.
	done chan error

	logger *slog.Logger
}

// Start binds host:port and serves opts until Shutdown. It returns once the
// listener accepts connections.
//
// A port that is already taken at bind time fails with
// model.ErrBindConflict; the port is not re-allocated.
func (rt *Runtime) Start(ctx context.Context, opts Options) (*Server, error) {
	// Validate before binding so a programming error does not leave a
	// listener behind.
	if opts.Config == nil {
		return nil, errors.New("dev server: no bundler configuration")
	}
	if opts.Paths == nil {
		return nil, errors.New("dev server: no resolved paths")
	}

	// Build the handler first: an invalid proxy URL should fail before the
	// port is taken.
	hub := NewHub(rt.logger)
	handler, err := newRouter(routerOptions{
		config: opts.Config,
		paths:  opts.Paths,
		proxy:  opts.Proxy,
		hub:    hub,
		logger: rt.logger,
	})
	if err != nil {
		return nil, err
	}

	// Bind synchronously. Once Listen succeeds the port is ours, and
	// connections that arrive before Serve starts wait in the accept
	// backlog instead of being refused.
	addr := net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		// The port was free when the allocator probed it; another process
		// took it in between. Report that separately from exhaustion.
		if isAddrInUse(err) {
			return nil, fmt.Errorf("%w: %s: %v", model.ErrBindConflict, addr, err)
		}
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	boundAddr := listener.Addr().String()

	// TLS is layered onto the bound listener, so the readiness dial below
	// still works on plain TCP: the handshake is not needed to know the
	// socket accepts connections.
	if opts.HTTPS {
		cert, err := selfSignedCertificate(opts.Host)
		if err != nil {
			_ = listener.Close()
			return nil, err
		}
		listener = tls.NewListener(listener, &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		})
	}

	srv := &Server{
		http: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ErrorLog:          slog.NewLogLogger(rt.logger.Handler(), slog.LevelDebug),
		},
		hub:    hub,
		addr:   boundAddr,
		done:   make(chan error, 1),
		logger: rt.logger,
	}

	// Serve runs for the server's whole lifetime, well past Start.
	go func() {
		err := srv.http.Serve(listener)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		srv.done <- err
		close(srv.done)
	}()

	// Readiness is what Start promises its caller; the browser is opened
	// right after it returns.
	if err := srv.waitReady(ctx); err != nil {
		_ = srv.http.Close()
		return nil, err
	}

	// The watcher belongs to the server, not to the startup ctx: it must
	// keep running after Start returns and stop only on Shutdown.
	watchCtx, stop := context.WithCancel(context.Background())
	srv.stopWatch = stop
	if opts.WatchInterval >= 0 {
		interval := opts.WatchInterval
		if interval == 0 {
			interval = defaultWatchInterval
		}
		w := NewWatcher([]string{opts.Paths.CatalogSrcDir, opts.Paths.AppSrc}, interval, rt.logger)
		go w.Run(watchCtx, func(changed string) {
			n := srv.Reload(changed)
			rt.logger.Debug("source changed", "path", changed, "clients", n)
		})
	}

	rt.logger.Debug("dev server ready", "addr", boundAddr, "https", opts.HTTPS, "framework", opts.Framework.String())
	return srv, nil
}

// waitReady dials the bound address until a connection succeeds, the serve
// loop exits, the probe budget runs out or ctx is cancelled.
func (s *Server) waitReady(ctx context.Context) error {
	target := dialTarget(s.addr)
	probe := func() error {
		// A serve loop that already exited (e.g. a TLS setup problem) can
		// never become ready; stop retrying at once.
		select {
		case err := <-s.done:
			if err == nil {
				err = errors.New("server closed")
			}
			return backoff.Permanent(fmt.Errorf("dev server stopped before becoming ready: %w", err))
		default:
		}
		conn, err := net.DialTimeout("tcp", target, readyDialTimeout)
		if err != nil {
			return err
		}
		return conn.Close()
	}

	// 80 probes 25ms apart give a server about two seconds to come up,
	// which is generous for a local listener that is already bound.
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(readyProbeInterval), readyProbeRetries),
		ctx,
	)
	if err := backoff.Retry(probe, policy); err != nil {
		return fmt.Errorf("dev server on %s did not become ready: %w", s.addr, err)
	}
	return nil
}

// dialTarget maps an unspecified bind address to loopback so it can be
// dialled.
func dialTarget(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	ip := net.ParseIP(host)
	if ip == nil || !ip.IsUnspecified() {
		return addr
	}
	if ip.To4() != nil {
		return net.JoinHostPort("127.0.0.1", port)
	}
	return net.JoinHostPort("::1", port)
}

// Addr returns the bound address, e.g. 127.0.0.1:4000.
func (s *Server) Addr() string {
	return s.addr
}

// Done receives the serve loop's result once it stops. A clean Shutdown
// yields nil.
func (s *Server) Done() <-chan error {
	return s.done
}

// Reload tells every connected page to reload because changed was
// modified, and returns how many pages were notified. The source watcher
// calls it for every detected change.
func (s *Server) Reload(changed string) int {
	return s.hub.Broadcast(Message{Type: MessageReload, Path: changed})
}

// Shutdown stops watching, closes live reload connections and gracefully
// shuts the HTTP server down.
//
// The order matters: the watcher is stopped first so no reload is
// broadcast to a closing hub, and the hub is closed before the HTTP server
// because http.Server.Shutdown does not wait for hijacked websocket
// connections.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.stopWatch != nil {
		s.stopWatch()
	}
	s.hub.Close()
	return s.http.Shutdown(ctx)
}
