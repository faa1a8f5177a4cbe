// Command appserver serves the housing intelligence REST API and runs the
// scheduled FRED syncs.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/alpex-ai/housing-intelligence/internal/app/runtime"
	"github.com/alpex-ai/housing-intelligence/internal/config"
	"github.com/alpex-ai/housing-intelligence/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config (defaults to CONFIG_FILE or config/config.yaml)")
	flag.Parse()

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFromPath(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logr := logger.New(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := runtime.NewApplication(ctx, cfg, logr)
	if err != nil {
		logr.WithError(err).Fatal("initialise application")
	}

	if err := application.Run(ctx); err != nil {
		logr.WithError(err).Error("server stopped")
		_ = application.Shutdown(context.Background())
		os.Exit(1)
	}

	logr.Info("shutting down")
	if err := application.Shutdown(context.Background()); err != nil {
		logr.WithError(err).Error("shutdown")
		os.Exit(1)
	}
}
