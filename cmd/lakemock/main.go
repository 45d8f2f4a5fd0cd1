package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lakemock/internal/bus"
	"lakemock/internal/observability"
	"lakemock/internal/relay"
	"lakemock/internal/vault"
)

// Config is loaded from environment variables. When relaying over NATS the
// endpoint strings are subjects, not socket addresses.
type Config struct {
	NATSURL           string
	CollectorEndpoint string
	BroadcastEndpoint string
	HighWaterMark     int
	HTTPAddr          string
}

func DefaultConfig() Config {
	return Config{
		NATSURL:           envOrDefault("LAKE_NATS_URL", "nats://localhost:4222"),
		CollectorEndpoint: envOrDefault("LAKE_PULL_SUBJECT", "lake.pull"),
		BroadcastEndpoint: envOrDefault("LAKE_PUB_SUBJECT", "lake.pub"),
		HighWaterMark:     envIntOrDefault("LAKE_COLLECTOR_HWM", relay.DefaultHighWaterMark),
		HTTPAddr:          envOrDefault("LAKE_HTTP_ADDR", ":8080"),
	}
}

func main() {
	log := observability.NewLogger("lakemock")
	cfg := DefaultConfig()

	conn, err := bus.Connect(cfg.NATSURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("nats connect")
	}
	defer conn.Close()
	log.Info().Str("url", cfg.NATSURL).Msg("nats connected")

	metrics := observability.NewMetrics()
	health := observability.NewHealthChecker()

	r := relay.New(
		bus.NewNATSTransport(conn),
		vault.New(),
		relay.Config{
			CollectorEndpoint: cfg.CollectorEndpoint,
			BroadcastEndpoint: cfg.BroadcastEndpoint,
			HighWaterMark:     cfg.HighWaterMark,
		},
		observability.NewLogger("relay"),
		metrics,
	)
	if err := r.Start(); err != nil {
		log.Fatal().Err(err).Msg("relay start")
	}
	health.SetReady(true)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.LivenessHandler)
	mux.HandleFunc("/readyz", health.ReadinessHandler)

	httpServer := &http.Server{Addr: cfg.HTTPAddr, Handler: mux}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http server")
		}
	}()
	log.Info().Str("addr", cfg.HTTPAddr).Msg("http listening")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case <-r.Done():
		health.SetReady(false)
		log.Error().Err(r.Err()).Msg("relay worker died")
	}

	health.SetReady(false)
	r.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}

	if r.Err() != nil {
		os.Exit(1)
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOrDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
