package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vango-dev/sharedstore/internal/config"
	"github.com/vango-dev/sharedstore/internal/errors"
	"github.com/vango-dev/sharedstore/pkg/middleware"
	"github.com/vango-dev/sharedstore/pkg/store"
)

// loadConfig reads the config at path, or the nearest sharedstore.json when
// path is empty. Without an explicit path a missing file yields the
// defaults and found is false.
func loadConfig(path string) (cfg *config.Config, found bool, err error) {
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.LoadFromWorkingDir()
		if errors.HasCode(err, errors.CodeConfigNotFound) {
			cfg, err = config.New(), nil
		} else if err == nil {
			found = true
		}
	}
	if err != nil {
		return nil, false, err
	}
	if path != "" {
		found = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, false, err
	}
	return cfg, found, nil
}

// newLogger builds the slog logger described by cfg.Log.
func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, errors.New(errors.CodeConfigLogLevel).Wrap(err)
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(cfg.Log.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler).With("store", cfg.Name), nil
}

// newStore builds a store from cfg with the configured middleware.
// Listener panics are reported to errOut.
func newStore(ctx context.Context, cfg *config.Config, logger *slog.Logger, errOut io.Writer) (*store.Store, error) {
	policy, err := cfg.ChangePolicy()
	if err != nil {
		return nil, errors.New(errors.CodeConfigChangePolicy).Wrap(err)
	}

	var mw []store.Middleware
	if cfg.Tracing.Enabled {
		mw = append(mw, middleware.OpenTelemetry(middleware.WithTracerName(cfg.Tracing.TracerName)))
	}
	if cfg.Metrics.Enabled {
		mw = append(mw, middleware.Prometheus(middleware.WithNamespace(cfg.Metrics.Namespace)))
	}
	mw = append(mw, reportPanics(errOut))

	return store.New(
		store.WithContext(ctx),
		store.WithLogger(logger),
		store.WithChangePolicy(policy),
		store.WithInitial(cfg.Store.Initial),
		store.WithMiddleware(mw...),
	), nil
}

// reportPanics prints one line to w for every mutation whose fan-out
// reached a panicking listener.
func reportPanics(w io.Writer) store.Middleware {
	return store.MiddlewareFunc(func(m *store.Mutation, next func() error) error {
		err := next()
		if err != nil {
			fmt.Fprintf(w, "%s (%s of %s)\n",
				errors.FromError(err, errors.CodeListenerPanic).FormatCompact(),
				m.Op, strings.Join(m.Keys, ", "))
		}
		return err
	})
}
