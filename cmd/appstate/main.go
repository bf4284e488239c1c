// Package main runs the application state container: it restores the
// persisted session, serves the inspector API and, in shell mode, reads
// commands from stdin.
package main

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/atinyakov/appstate/internal/app"
	"github.com/atinyakov/appstate/internal/config"
	"github.com/atinyakov/appstate/internal/logger"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line, config file and environment configuration.
	options, err := config.Parse()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(options, app.WithLogger(zapLogger))
	if err != nil {
		zapLogger.Fatal("failed to build application", zap.Error(err))
	}
	defer func() {
		if err := application.Close(); err != nil {
			zapLogger.Error("failed to close application", zap.Error(err))
		}
	}()

	switch options.Cmd {
	case "serve":
		if err := application.Mount(ctx); err != nil {
			zapLogger.Error("application stopped", zap.Error(err))
		}
	case "shell":
		if err := application.Restore(ctx); err != nil {
			zapLogger.Error("failed to restore state", zap.Error(err))
		}
		shell(ctx, os.Stdin, os.Stdout, application.Store())
	default:
		zapLogger.Error("unknown command", zap.String("cmd", options.Cmd))
	}
}
