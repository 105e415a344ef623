// Command authd serves the behavioral typing-rhythm scoring API.
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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"behavioral-auth/internal/api"
	"behavioral-auth/internal/cfg"
	"behavioral-auth/internal/inference"
	"behavioral-auth/internal/metrics"
	"behavioral-auth/internal/model"
	"behavioral-auth/internal/storage"
)

func main() {
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Local development convenience; missing .env is not an error.
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("loaded .env file")
	}

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	// The model is the point of the service: refuse to start without it.
	scorer, anomaly, meta, err := model.Load(c.ModelPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", c.ModelPath).Msg("model load failed")
	}

	m := metrics.New()
	m.ModelAge.Set(meta.Age().Seconds())

	store := initializeStorage(c)
	if store != nil {
		defer store.Close()
	}

	engine := inference.New(scorer, anomaly, inference.Config{
		ModelWeight:   c.ModelWeight,
		HistoryWeight: c.HistoryWeight,
		MaxDistance:   c.MaxDistance,
		StatsWindow:   c.StatsWindow,
	}, m)

	server := api.NewServer(engine, meta, api.Options{
		ListenPort:         c.ListenPort,
		MaxBatchSize:       c.MaxBatchSize,
		MaxHistoryPatterns: c.MaxHistoryPatterns,
		CompareMaxDistance: c.CompareMaxDistance,
		ReadTimeout:        c.ReadTimeout,
		WriteTimeout:       c.WriteTimeout,
	}, m, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	startMetricsServer(ctx, c, m, meta)

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("api server failed")
			cancel()
		}
	}()

	log.Info().
		Int("port", c.ListenPort).
		Str("model_version", meta.Version).
		Str("model_sha256", meta.SHA256).
		Bool("anomaly_detection", anomaly.Available()).
		Bool("persistence", store != nil).
		Msg("authd started")

	waitForShutdown(ctx, cancel)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), c.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("api server shutdown failed")
	}
	log.Info().Msg("authd stopped")
}

// initializeStorage initializes storage if DATA_PATH is configured
func initializeStorage(c cfg.Settings) *storage.Store {
	if c.DataPath != "" {
		store, err := storage.New(c.DataPath)
		if err != nil {
			log.Warn().Err(err).Msg("storage initialization failed, continuing without persistence")
			return nil
		}
		return store
	}
	return nil
}

// startMetricsServer starts the Prometheus metrics HTTP server
func startMetricsServer(ctx context.Context, c cfg.Settings, m *metrics.Metrics, meta model.Metadata) {
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())

		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", c.MetricsPort),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		go func() {
			<-ctx.Done()
			if err := server.Shutdown(context.Background()); err != nil {
				log.Error().Err(err).Msg("failed to shutdown metrics server")
			}
		}()

		// Keep the model age gauge current while the process runs.
		go func() {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					m.ModelAge.Set(meta.Age().Seconds())
				}
			}
		}()

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

// waitForShutdown blocks until a shutdown signal arrives or the context ends
func waitForShutdown(ctx context.Context, cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
	case <-ctx.Done():
		log.Info().Msg("context canceled")
	}

	log.Info().Msg("shutting down gracefully...")
	cancel()
}
