// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/md-786910/heaven-assignment/lib/auditlog"
	"github.com/md-786910/heaven-assignment/lib/clock"
	"github.com/md-786910/heaven-assignment/lib/config"
	"github.com/md-786910/heaven-assignment/lib/httpapi"
	"github.com/md-786910/heaven-assignment/lib/mutation"
	"github.com/md-786910/heaven-assignment/lib/recordstore"
	"github.com/md-786910/heaven-assignment/lib/service"
	"github.com/md-786910/heaven-assignment/lib/sqlitepool"
	"github.com/md-786910/heaven-assignment/lib/version"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var (
		configPath  string
		showVersion bool
	)
	flags := pflag.NewFlagSet("tracker-service", pflag.ContinueOnError)
	flags.StringVar(&configPath, "config", "", "path to the YAML config file (default: $"+config.EnvVar+")")
	flags.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if showVersion {
		fmt.Printf("tracker-service %s\n", version.Info())
		return nil
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	logger.Info("starting tracker service",
		"version", version.Info(),
		"environment", cfg.Environment,
		"backend", cfg.Store.Backend,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storage, err := openBackend(cfg.Store, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := storage.Close(); err != nil {
			logger.Error("closing storage", "error", err)
		}
	}()

	clk := clock.Monotonic(clock.Real())
	coordinator, err := mutation.New(mutation.Config{
		Store:  storage.store,
		Log:    storage.log,
		Clock:  clk,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	trackerService := &TrackerService{
		coordinator: coordinator,
		clock:       clk,
		startedAt:   clk.Now(),
		logger:      logger,
	}

	serveErrors := make(chan error, 2)
	running := 0

	if cfg.Socket.Path != "" {
		socketServer := service.NewSocketServer(cfg.Socket.Path, classifyError, logger)
		trackerService.registerActions(socketServer)
		running++
		go func() {
			serveErrors <- socketServer.Serve(ctx)
		}()
	}

	if cfg.HTTP.Address != "" {
		shutdownTimeout, err := cfg.ShutdownTimeout()
		if err != nil {
			return err
		}
		httpServer := service.NewHTTPServer(service.HTTPServerConfig{
			Address:         cfg.HTTP.Address,
			Handler:         httpapi.NewServer(coordinator, logger).Handler(),
			ShutdownTimeout: shutdownTimeout,
			Logger:          logger,
		})
		running++
		go func() {
			serveErrors <- httpServer.Serve(ctx)
		}()
	}

	logger.Info("tracker service running",
		"socket", cfg.Socket.Path,
		"http", cfg.HTTP.Address,
	)

	// A listener that fails stops the others.
	var firstErr error
	for range running {
		if err := <-serveErrors; err != nil {
			logger.Error("listener failed", "error", err)
			if firstErr == nil {
				firstErr = err
				stop()
			}
		}
	}
	logger.Info("tracker service stopped")
	return firstErr
}

// loadConfig reads configPath, or TRACKER_CONFIG when it is empty,
// and prepares the directories the config names.
func loadConfig(configPath string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	if err := cfg.EnsurePaths(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the service logger on stderr and installs it as
// the slog default.
func newLogger(cfg *config.Config) *slog.Logger {
	options := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var handler slog.Handler
	if cfg.Log.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// backend holds the record store and audit log. For sqlite both share
// one pool and one database file.
type backend struct {
	store recordstore.Store
	log   auditlog.Log
	pool  *sqlitepool.Pool
}

func openBackend(cfg config.StoreConfig, logger *slog.Logger) (*backend, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		logger.Warn("memory backend selected; records are lost on exit")
		return &backend{
			store: recordstore.NewMemoryStore(),
			log:   auditlog.NewMemoryLog(),
		}, nil
	case config.BackendSQLite:
		pool, err := sqlitepool.Open(sqlitepool.Config{
			Path:     cfg.Path,
			PoolSize: cfg.PoolSize,
			Logger:   logger,
			Schema:   recordstore.Schema + auditlog.Schema,
		})
		if err != nil {
			return nil, err
		}
		return &backend{
			store: recordstore.NewSQLiteStore(pool),
			log:   auditlog.NewSQLiteLog(pool),
			pool:  pool,
		}, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}

// Close closes the store, the log, and then the pool they share.
func (b *backend) Close() error {
	errs := []error{b.store.Close(), b.log.Close()}
	if b.pool != nil {
		errs = append(errs, b.pool.Close())
	}
	return errors.Join(errs...)
}
