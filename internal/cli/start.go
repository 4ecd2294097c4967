package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/interactivethings/catalog-cli/internal/browser"
	"github.com/interactivethings/catalog-cli/internal/bundler"
	"github.com/interactivethings/catalog-cli/internal/config"
	"github.com/interactivethings/catalog-cli/internal/console"
	"github.com/interactivethings/catalog-cli/internal/detect"
	"github.com/interactivethings/catalog-cli/internal/devserver"
	"github.com/interactivethings/catalog-cli/internal/model"
	"github.com/interactivethings/catalog-cli/internal/paths"
	"github.com/interactivethings/catalog-cli/internal/port"
	"github.com/interactivethings/catalog-cli/internal/setup"
	"github.com/interactivethings/catalog-cli/internal/startup"
)

// shutdownTimeout bounds the graceful stop after an interrupt.
const shutdownTimeout = 5 * time.Second

// NewStartCommand creates the "start" command.
func NewStartCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start [source directory]",
		Short: "Start the Catalog development server",
		Long: `Start a development server for the Catalog in the given source directory
(default "catalog"), pick a free port starting at the requested one and open
the result in a browser.

Defaults can be kept in .catalogrc.yml in the project root; flags given on
the command line take precedence.

Examples:
  catalog start
  catalog start docs --port 5000
  catalog start --https --proxy http://localhost:8080`,

		Args: cobra.MaximumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			overrides, err := collectOverrides(cmd, args)
			if err != nil {
				return err
			}

			configPath, _ := cmd.Flags().GetString("config")
			file, err := config.LoadFile(configPath, cmd.Flags().Changed("config"))
			if err != nil {
				return model.WrapCLIError(model.ExitGeneralError, "invalid configuration", err)
			}
			source, opts, err := config.Resolve(file, overrides)
			if err != nil {
				return model.WrapCLIError(model.ExitGeneralError, "invalid configuration", err)
			}

			return runStart(cmd.Context(), source, opts)
		},
	}

	cmd.Flags().IntP("port", "p", model.DefaultPort, "Preferred port; the next free one is used if taken")
	cmd.Flags().Bool("https", false, "Serve over HTTPS with a self-signed certificate")
	cmd.Flags().String("host", model.DefaultHost, "Host to bind")
	cmd.Flags().String("proxy", "", "Upstream URL for requests Catalog does not serve")
	cmd.Flags().String("config", config.DefaultFile, "Path to the defaults file")

	return cmd
}

// collectOverrides returns the values given explicitly on the command line.
func collectOverrides(cmd *cobra.Command, args []string) (config.Overrides, error) {
	var o config.Overrides
	if len(args) == 1 {
		if args[0] == "" {
			return o, model.NewCLIError(model.ExitGeneralError, "source directory must not be empty")
		}
		source := args[0]
		o.Source = &source
	}

	fs := cmd.Flags()
	if fs.Changed("port") {
		v, err := fs.GetInt("port")
		if err != nil {
			return o, model.WrapCLIError(model.ExitGeneralError, "invalid --port", err)
		}
		o.Port = &v
	}
	if fs.Changed("https") {
		v, _ := fs.GetBool("https")
		o.HTTPS = &v
	}
	if fs.Changed("host") {
		v, _ := fs.GetString("host")
		o.Host = &v
	}
	if fs.Changed("proxy") {
		v, _ := fs.GetString("proxy")
		o.Proxy = &v
	}
	return o, nil
}

// newOrchestrator wires the production collaborators.
func newOrchestrator(con *console.Console) *startup.Orchestrator {
	logger := newLogger(os.Stderr)
	return &startup.Orchestrator{
		Detector:  detect.NewDetector(""),
		Resolver:  paths.NewResolver(""),
		Allocator: port.NewAllocator(port.NewScanner()),
		Builder:   bundler.NewBuilder(),
		Setup:     setup.New(),
		Server:    startup.FromRuntime(devserver.NewRuntime(logger)),
		Browser:   browser.NewLauncher(),
		Console:   con,
		Logger:    logger,
		Stat:      os.Stat,
	}
}

// runStart starts Catalog and blocks until interrupted or the server
// stops on its own.
func runStart(parent context.Context, source string, opts model.ServerOptions) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	con := console.Std()
	res, err := newOrchestrator(con).Run(ctx, source, opts, model.ModeDevelopment)
	if err != nil {
		return err
	}

	rel, relErr := filepath.Rel(res.Paths.AppRoot, res.Paths.CatalogSrcDir)
	if relErr != nil {
		rel = res.Paths.CatalogSrcDir
	}
	con.Info("  Catalog is running at %s", res.URL)
	con.Info("  Serving %s, press Ctrl+C to stop", rel)

	select {
	case <-ctx.Done():
	case err := <-res.Server.Done():
		if err != nil {
			return err
		}
		return errors.New("dev server stopped unexpectedly")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return res.Server.Shutdown(shutdownCtx)
}
