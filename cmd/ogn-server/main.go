// OGN Scope server daemon. Maintains the APRS-IS feed connection,
// keeps the latest aircraft state in memory and serves it over the
// HTTP/WebSocket API.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/unklstewy/ogn-scope/internal/api"
	"github.com/unklstewy/ogn-scope/internal/ingest"
	"github.com/unklstewy/ogn-scope/internal/store"
	"github.com/unklstewy/ogn-scope/pkg/aprs"
	"github.com/unklstewy/ogn-scope/pkg/config"
	"github.com/unklstewy/ogn-scope/pkg/logging"
)

const version = "1.0.0"

var (
	configPath = flag.String("config", defaultConfigPath(), "Path to configuration file")
	portFlag   = flag.String("port", "", "HTTP server port (overrides config)")
)

func defaultConfigPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return "configs/config.json"
}

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *portFlag != "" {
		cfg.API.Port = *portFlag
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Dir)
	logger.Info("starting ogn-scope server",
		slog.String("version", version),
		slog.String("config", *configPath))

	st := store.New(store.Options{
		Shards:          cfg.Store.Shards,
		FreshnessWindow: time.Duration(cfg.Store.FreshnessSeconds) * time.Second,
		MaxRadiusKm:     cfg.API.MaxRadiusKm,
	})

	client := aprs.NewClient(aprs.ClientConfig{
		Server:            cfg.APRS.Server,
		Callsign:          cfg.APRS.Callsign,
		Passcode:          cfg.APRS.Passcode,
		Filter:            cfg.APRS.Filter,
		KeepAliveInterval: time.Duration(cfg.APRS.KeepAliveSeconds) * time.Second,
		ReadTimeout:       time.Duration(cfg.APRS.ReadTimeoutSeconds) * time.Second,
	})

	ingestor := ingest.New(client, st, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go ingestor.Run(ctx)

	apiServer := api.NewServer(st, ingestor, logger, api.Config{
		AllowedOrigins: cfg.API.AllowedOrigins,
		Version:        version,
	})

	httpServer := &http.Server{
		Addr:    cfg.API.Addr(),
		Handler: apiServer.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", slog.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("http server failed", slog.Any("error", err))
	}

	// Stop the feed first so no writes land during drain, then give
	// in-flight requests a bounded window to finish.
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", slog.Any("error", err))
	}

	counters := ingestor.Counters()
	logger.Info("stopped",
		slog.Uint64("lines", counters.Lines),
		slog.Uint64("stored", counters.Stored),
		slog.Int("tracked", st.Len()))
}
