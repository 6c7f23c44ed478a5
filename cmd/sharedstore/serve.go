package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/vango-dev/sharedstore/internal/config"
	"github.com/vango-dev/sharedstore/internal/errors"
	"github.com/vango-dev/sharedstore/internal/orderform"
	"github.com/vango-dev/sharedstore/pkg/inspect"
)

const shutdownTimeout = 5 * time.Second

func serveCmd(configPath *string) *cobra.Command {
	var (
		port     int
		host     string
		readOnly bool
		withForm bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP inspector for a live store",
		Long: `Start a store and serve it over HTTP.

Routes:
  GET  /state        current state as JSON
  POST /state        apply a JSON object to the store
  PUT  /state/{key}  set one key from a JSON value
  GET  /events       WebSocket stream of store events
  GET  /metrics      Prometheus metrics

Examples:
  sharedstore serve
  sharedstore serve --port=9090 --read-only
  sharedstore serve --with-form`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, serveOptions{
				configPath: *configPath,
				port:       port,
				host:       host,
				readOnly:   readOnly,
				withForm:   withForm,
			})
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from sharedstore.json)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from sharedstore.json)")
	cmd.Flags().BoolVar(&readOnly, "read-only", false, "Disable the write endpoints")
	cmd.Flags().BoolVar(&withForm, "with-form", false, "Mount the example order form as a consumer")

	return cmd
}

type serveOptions struct {
	configPath string
	port       int
	host       string
	readOnly   bool
	withForm   bool
}

func runServe(ctx context.Context, cmd *cobra.Command, opts serveOptions) error {
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

	cfg, found, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if !found {
		warn(errOut, "No sharedstore.json found, using defaults")
	}

	// Apply command-line overrides
	if opts.port > 0 {
		cfg.Inspector.Port = opts.port
	}
	if opts.host != "" {
		cfg.Inspector.Host = opts.host
	}
	if opts.readOnly {
		cfg.Inspector.ReadOnly = true
	}
	if !cfg.Inspector.Enabled {
		return errors.Newf(errors.CategoryInspect, "inspector is disabled").
			WithSuggestion("Set inspector.enabled to true in " + config.ConfigFileName)
	}

	logger, err := newLogger(cfg, errOut)
	if err != nil {
		return err
	}
	s, err := newStore(ctx, cfg, logger, errOut)
	if err != nil {
		return err
	}

	if opts.withForm {
		form := orderform.New(s, logger)
		form.Mount()
		defer form.Unmount()
	}

	insp := inspect.New(s,
		inspect.WithLogger(logger),
		inspect.WithReadOnly(cfg.Inspector.ReadOnly),
	)

	ln, err := net.Listen("tcp", cfg.InspectorAddress())
	if err != nil {
		insp.Close()
		return errors.New(errors.CodeInspectListen).
			WithDetail("Could not listen on " + cfg.InspectorAddress()).
			Wrap(err)
	}

	success(out, "Inspector listening on http://%s", ln.Addr())
	info(out, "State:   http://%s/state", ln.Addr())
	info(out, "Events:  ws://%s/events", ln.Addr())
	info(out, "Metrics: http://%s/metrics", ln.Addr())

	err = serve(ctx, ln, insp, logger)
	fmt.Fprintln(out, "\n  Shutting down...")
	return err
}

// serve runs insp on ln until ctx is done, then shuts down gracefully.
func serve(ctx context.Context, ln net.Listener, insp *inspect.Server, logger *slog.Logger) error {
	srv := &http.Server{
		Handler:           insp,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		insp.Close()
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.New(errors.CodeInspectListen).Wrap(err)
	case <-ctx.Done():
	}

	// WebSocket connections are hijacked, so Shutdown does not wait for them.
	insp.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.New(errors.CodeInspectShutdown).Wrap(err)
	}
	logger.Info("inspector stopped", "addr", ln.Addr().String())
	return nil
}
