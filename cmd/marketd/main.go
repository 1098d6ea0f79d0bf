// Package main runs the marketd server: the HTTP front end for the
// marketplace settlement engine.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/bazarion/market_engine/internal/app"
	"github.com/bazarion/market_engine/internal/app/httpapi"
	"github.com/bazarion/market_engine/internal/app/metrics"
	"github.com/bazarion/market_engine/internal/app/services/admin"
	"github.com/bazarion/market_engine/internal/app/services/rates"
	"github.com/bazarion/market_engine/internal/app/storage/postgres"
	"github.com/bazarion/market_engine/internal/config"
	"github.com/bazarion/market_engine/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	flag.Parse()

	if v := os.Getenv("MARKET_CONFIG"); v != "" && *configPath == "" {
		*configPath = v
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "marketd: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging).WithField("component", "marketd")

	stores, dbClose, err := buildStores(cfg.Database, log)
	if err != nil {
		log.WithError(err).Fatal("storage init failed")
	}
	if dbClose != nil {
		defer dbClose()
	}

	source, err := buildRateSource(cfg.Oracle, log)
	if err != nil {
		log.WithError(err).Fatal("oracle init failed")
	}

	fees, err := buildFees(cfg.Fees)
	if err != nil {
		log.WithError(err).Fatal("invalid fee schedule")
	}

	application, err := app.New(stores, app.Config{
		AdminAddress:    cfg.Admin,
		Treasury:        cfg.Treasury,
		Fees:            fees,
		RateSource:      source,
		RateFreshness:   cfg.Oracle.Freshness.Std(),
		RefreshInterval: cfg.Oracle.RefreshInterval.Std(),
	}, log)
	if err != nil {
		log.WithError(err).Fatal("application init failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Start(ctx); err != nil {
		log.WithError(err).Fatal("application start failed")
	}

	var handler http.Handler = httpapi.NewHandler(application)
	if cfg.RateLimit.RequestsPerSecond > 0 {
		limiter := httpapi.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, log)
		handler = limiter.Handler(handler)
	}
	handler = metrics.InstrumentHandler(handler)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("marketd listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		log.WithError(err).Error("server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("server shutdown error")
	}
	if err := application.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("application stop error")
	}

	log.Info("marketd stopped")
}

// buildStores opens the configured database and returns the storage wiring.
// An empty DSN leaves the zero value, which selects the shared in-memory
// store.
func buildStores(cfg config.DatabaseConfig, log *logger.Logger) (app.Stores, func(), error) {
	if cfg.DSN == "" {
		log.Info("no database configured, using in-memory storage")
		return app.Stores{}, nil, nil
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return app.Stores{}, nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return app.Stores{}, nil, fmt.Errorf("ping database: %w", err)
	}

	if cfg.Migrate {
		if err := postgres.Migrate(db); err != nil {
			db.Close()
			return app.Stores{}, nil, fmt.Errorf("migrate database: %w", err)
		}
		log.Info("database migrations applied")
	}

	store := postgres.New(db)
	return app.Stores{
		Wallets:  store,
		Escrow:   store,
		Products: store,
		Stores:   store,
		Auctions: store,
	}, func() { db.Close() }, nil
}

func buildRateSource(cfg config.OracleConfig, log *logger.Logger) (rates.Source, error) {
	switch cfg.Mode {
	case "http":
		client := &http.Client{Timeout: 10 * time.Second}
		return rates.NewHTTPSource(client, cfg.Endpoint, cfg.JSONPath, cfg.APIKey, log)
	default:
		rate, err := decimal.NewFromString(cfg.FixedRate)
		if err != nil {
			return nil, fmt.Errorf("parse fixed rate %q: %w", cfg.FixedRate, err)
		}
		return rates.NewFixedSource(rate), nil
	}
}

func buildFees(cfg *config.FeesConfig) (*admin.Fees, error) {
	if cfg == nil {
		return nil, nil
	}
	createFee, err := decimal.NewFromString(cfg.CreateStoreFeeUSD)
	if err != nil {
		return nil, fmt.Errorf("parse create store fee %q: %w", cfg.CreateStoreFeeUSD, err)
	}
	return &admin.Fees{
		MarketFeeBps:      cfg.MarketFeeBps,
		StoreFeeBps:       cfg.StoreFeeBps,
		AuctionFeeBps:     cfg.AuctionFeeBps,
		CreateStoreFeeUSD: createFee,
	}, nil
}
