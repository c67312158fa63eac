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

	"crossbook/internal/book"
	"crossbook/internal/server"
	"crossbook/internal/store"
	"crossbook/internal/venue"
	"crossbook/internal/venue/dflow"
	"crossbook/internal/venue/polymarket"
)

func main() {
	configPath := flag.String("config", "configs/aggregator/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := readConfig(configPath)
	if err != nil {
		log.Fatalf("Couldn't read config: %v", err)
	}

	logger := newLogger(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	bookStore := store.New(logger)
	hub := server.NewHub(logger)
	bookStore.OnAggregate(hub.PublishAggregate)

	callbacks := venue.Callbacks{
		OnBook: func(nb *book.NormalizedBook) {
			bookStore.UpdateBook(nb)
			hub.PublishBook(nb)
		},
		OnStatus: hub.PublishStatus,
	}

	connectors := []*venue.Connector{
		newPolymarketConnector(cfg, callbacks, logger),
		newDFlowConnector(cfg, callbacks, logger),
	}
	for _, c := range connectors {
		if err := c.Start(ctx); err != nil {
			log.Fatalf("Couldn't start connector: %v", err)
		}
	}

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: server.New(hub, bookStore, logger).Handler(),
	}
	go func() {
		logger.Info("listening", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	for _, c := range connectors {
		c.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
}

func newPolymarketConnector(cfg *config, cb venue.Callbacks, logger *slog.Logger) *venue.Connector {
	driver := polymarket.New(polymarket.Config{
		GammaURL:   cfg.Venues.Polymarket.GammaURL,
		WSURL:      cfg.Venues.Polymarket.WSURL,
		SlugPrefix: cfg.Venues.Polymarket.SlugPrefix,
	}, logger)

	vc := venue.DefaultConfig()
	if d := cfg.Venues.Polymarket.NoInstrumentRetry.Duration(); d > 0 {
		vc.NoInstrumentRetry = d
	}
	return venue.NewConnector(driver, vc, cb, logger)
}

func newDFlowConnector(cfg *config, cb venue.Callbacks, logger *slog.Logger) *venue.Connector {
	driver := dflow.New(dflow.Config{
		APIURL: cfg.Venues.DFlow.APIURL,
		WSURL:  cfg.Venues.DFlow.WSURL,
		APIKey: cfg.Venues.DFlow.APIKey,
		Series: cfg.Venues.DFlow.Series,
	}, logger)

	vc := venue.DefaultConfig()
	vc.NoInstrumentRetry = 30 * time.Second
	if d := cfg.Venues.DFlow.NoInstrumentRetry.Duration(); d > 0 {
		vc.NoInstrumentRetry = d
	}
	return venue.NewConnector(driver, vc, cb, logger)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
