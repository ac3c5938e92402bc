package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iwvelando/batch-cost/internal/config"
	"github.com/iwvelando/batch-cost/internal/server"
	"github.com/iwvelando/batch-cost/pkg/constants"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var version = "dev"

func main() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	configLocation := flag.String("config", envOr("BATCHCOST_SERVER_CONFIG", constants.DefaultServerConfigFile), "path to server configuration file")
	address := flag.String("address", os.Getenv("BATCHCOST_ADDRESS"), "listen address override")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	maxUpload := flag.String("max-upload-size", "", "upload size limit override, e.g. 512K or 2M")
	flag.Parse()

	cfg, err := server.LoadConfig(*configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load server configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		os.Exit(1)
	}
	if *address != "" {
		cfg.Address = *address
	}
	if *maxUpload != "" {
		size, err := server.ParseSize(*maxUpload)
		if err != nil {
			fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"invalid -max-upload-size\", \"error\": \"%v\"}\n", err)
			os.Exit(1)
		}
		cfg.SetUploadSizeBytes(size)
	}

	logger, err := config.NewLogger(cfg.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	srv := &http.Server{
		Addr:              cfg.Address,
		Handler:           server.NewHandler(logger, cfg, version),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server listening",
			zap.String("op", "main"),
			zap.String("address", cfg.Address),
			zap.String("version", version),
			zap.Int64("maxUploadSize", cfg.UploadSizeBytes()),
			zap.Duration("cacheTTL", cfg.CacheDuration()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
