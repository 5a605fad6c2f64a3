package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"newscheck/config"
	"newscheck/detector"
	nhttp "newscheck/http"
	"newscheck/logging"
)

func main() {
	// Look for config in root even if run from cmd/
	configPath := "config.yaml"
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if _, err := os.Stat(filepath.Join("..", configPath)); err == nil {
			configPath = filepath.Join("..", configPath)
		}
	}

	// 1. Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Logger
	logger, err := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()
	nhttp.SetLogger(logger.Named("http"))

	// 3. Load model; the server still starts without one
	svc, err := detector.New(detector.Options{
		VectorizerPath: cfg.Model.VectorizerPath,
		ClassifierPath: cfg.Model.ClassifierPath,
		CacheSize:      cfg.Predict.CacheSize,
		MaxTextLength:  cfg.Predict.MaxTextLength,
	}, logger.Named("detector"))
	if err != nil {
		logger.Fatal("Failed to create detector", zap.Error(err))
	}
	if _, err := svc.Reload(); err != nil {
		logger.Error("Model not loaded, predictions will fail until it is", zap.Error(err))
	}
	nhttp.SetDetector(svc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Model.Watch {
		watcher, err := detector.NewWatcher(svc, 500*time.Millisecond)
		if err != nil {
			logger.Fatal("Failed to create model watcher", zap.Error(err))
		}
		if err := watcher.Start(ctx); err != nil {
			logger.Fatal("Failed to start model watcher", zap.Error(err))
		}
		defer watcher.Stop()
	}

	// 4. Start HTTP server
	server := nhttp.NewServer(nhttp.ServerConfig{
		Port:           cfg.Http.Port,
		Timeout:        cfg.Http.Timeout,
		MaxBodyBytes:   cfg.Http.MaxBodyBytes,
		AllowedOrigins: cfg.Http.AllowedOrigins,
	})
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// 5. Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("Shutting down...", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("HTTP server failed", zap.Error(err))
		}
	}

	if err := server.Stop(); err != nil {
		logger.Warn("Server forced to shutdown", zap.Error(err))
	}
	logger.Info("Exiting")
}
