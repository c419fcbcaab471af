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

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/evidencecheck/attest/internal/api"
	"github.com/evidencecheck/attest/internal/assess"
	"github.com/evidencecheck/attest/internal/config"
	"github.com/evidencecheck/attest/internal/database"
	"github.com/evidencecheck/attest/internal/storage"
	"github.com/evidencecheck/attest/internal/vision"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	generateConfig := flag.Bool("generate-config", false, "Generate a sample configuration file and exit")
	flag.Parse()

	// .env is optional; real deployments set variables directly.
	_ = godotenv.Load()

	if *generateConfig {
		if err := config.GenerateSample(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Sample configuration written to %s\n", *configPath)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	setupLogging(&cfg.Logging)

	store, err := database.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer store.Close()

	ctx := context.Background()
	objects, err := storage.NewS3Store(ctx, &cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize object storage")
	}

	provider, err := vision.NewProvider(&cfg.Vision)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize vision provider")
	}
	adapter := vision.NewAdapter(provider, cfg.Vision.Timeout.Std(), cfg.Vision.Retries)

	engine := assess.NewEngine(&cfg.Scoring, objects, adapter)
	router := api.NewRouter(cfg, engine, store)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting evidence trust-scoring service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}

func setupLogging(cfg *config.LoggingConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "text" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
