package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/approvia/doa-engine/internal/config"
	"github.com/approvia/doa-engine/internal/container"
	"github.com/approvia/doa-engine/pkg/utils"
)

func main() {
	// Load .env if present; real environments set variables directly
	_ = gotenv.Load()

	configPath := os.Getenv("DOA_CONFIG")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting DOA approval engine",
		zap.Int("port", cfg.Server.Port),
		zap.String("database", cfg.Database.Path))

	app, err := container.Build(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to build application", zap.Error(err))
	}
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("Shutdown signal received", zap.String("signal", sig.String()))
		cancel()
	}()

	if err := app.Server.Start(ctx); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}

	logger.Info("DOA approval engine stopped")
}
