package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sirosfoundation/go-meanhost/internal/backend"
	"github.com/sirosfoundation/go-meanhost/internal/engine"
	"github.com/sirosfoundation/go-meanhost/internal/host"
	_ "github.com/sirosfoundation/go-meanhost/internal/modules/all"
	"github.com/sirosfoundation/go-meanhost/pkg/config"
	"github.com/sirosfoundation/go-meanhost/pkg/logging"
)

var (
	configFile  = flag.String("config", "config/config.yaml", "Path to configuration file")
	moduleNames = flag.String("modules", "", "Comma-separated modules to load (overrides config)")
	version     = "dev"
	buildTime   = "unknown"
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *moduleNames != "" {
		cfg.Modules = splitList(*moduleNames)
	}

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting meanhost",
		zap.String("version", version),
		zap.String("build_time", buildTime),
		zap.String("env", cfg.Env),
		zap.Strings("modules", cfg.Modules),
	)

	mods, err := host.NewModules(cfg.Modules)
	if err != nil {
		logger.Fatal("Failed to load modules", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := backend.New(ctx, cfg)
	cancel()
	if err != nil {
		logger.Fatal("Failed to initialize storage backend", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	logger.Info("Storage backend initialized", zap.String("type", cfg.Storage.Type))

	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	err = db.Ping(ctx)
	cancel()
	if err != nil {
		logger.Fatal("Failed to ping storage", zap.Error(err))
	}

	inst := host.New(cfg, logger)
	eng := engine.New()

	ready := func(e host.Engine) {
		logger.Info("Application ready",
			zap.String("app", inst.Name),
			zap.String("engine", e.Name()),
			zap.Strings("dependencies", inst.Names()))
	}

	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	err = host.Bootstrap(ctx, inst, eng, db, mods, ready)
	cancel()
	if err != nil {
		logger.Fatal("Failed to bootstrap", zap.Error(err))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := eng.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	eng.Destroy()
	inst.Destroy()

	logger.Info("Server exited")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
