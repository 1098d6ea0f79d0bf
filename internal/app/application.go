// Package app assembles the marketplace services over a shared storage
// backend and manages their lifecycle.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/bazarion/market_engine/internal/app/content"
	"github.com/bazarion/market_engine/internal/app/services/admin"
	"github.com/bazarion/market_engine/internal/app/services/auctions"
	"github.com/bazarion/market_engine/internal/app/services/discovery"
	"github.com/bazarion/market_engine/internal/app/services/escrow"
	"github.com/bazarion/market_engine/internal/app/services/market"
	"github.com/bazarion/market_engine/internal/app/services/rates"
	storessvc "github.com/bazarion/market_engine/internal/app/services/stores"
	"github.com/bazarion/market_engine/internal/app/storage"
	"github.com/bazarion/market_engine/internal/app/storage/memory"
	"github.com/bazarion/market_engine/internal/app/system"
	"github.com/bazarion/market_engine/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Wallets  storage.WalletStore
	Escrow   storage.EscrowStore
	Products storage.ProductStore
	Stores   storage.StoreStore
	Auctions storage.AuctionStore
}

// Config carries the application-level knobs that do not belong to any one
// service.
type Config struct {
	// AdminAddress may change the fee schedule at runtime. Empty locks it.
	AdminAddress string
	// Treasury accrues platform fees. Empty disables fee collection.
	Treasury string
	// Fees is the launch fee schedule; the zero value means defaults.
	Fees *admin.Fees
	// RateSource supplies the USD-per-native exchange rate. Nil is invalid.
	RateSource rates.Source
	// RateFreshness bounds how long a fetched rate may be reused.
	RateFreshness time.Duration
	// RefreshInterval enables the background rate refresher when positive.
	RefreshInterval time.Duration
	// Content stores listing metadata. Nil defaults to the memory store.
	Content content.Store
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Oracle    *rates.Oracle
	Escrow    *escrow.Service
	Admin     *admin.Service
	Market    *market.Service
	Stores    *storessvc.Service
	Auctions  *auctions.Service
	Discovery *discovery.Service
	Content   content.Store
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, cfg Config, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}
	if cfg.RateSource == nil {
		return nil, fmt.Errorf("rate source is required")
	}

	mem := memory.New()
	if stores.Wallets == nil {
		stores.Wallets = mem
	}
	if stores.Escrow == nil {
		stores.Escrow = mem
	}
	if stores.Products == nil {
		stores.Products = mem
	}
	if stores.Stores == nil {
		stores.Stores = mem
	}
	if stores.Auctions == nil {
		stores.Auctions = mem
	}

	fees := admin.DefaultFees()
	if cfg.Fees != nil {
		fees = *cfg.Fees
	}

	contentStore := cfg.Content
	if contentStore == nil {
		contentStore = content.NewMemoryStore()
	}

	var oracleOpts []rates.Option
	if cfg.RateFreshness > 0 {
		oracleOpts = append(oracleOpts, rates.WithFreshness(cfg.RateFreshness))
	}
	oracle := rates.New(cfg.RateSource, log, oracleOpts...)

	escrowService := escrow.New(stores.Wallets, stores.Escrow, log, escrow.WithTreasury(cfg.Treasury))
	adminService := admin.New(cfg.AdminAddress, fees, log)
	marketService := market.New(stores.Products, escrowService, oracle, adminService, log)
	storesService := storessvc.New(stores.Stores, escrowService, oracle, adminService, log)
	auctionService := auctions.New(stores.Auctions, escrowService, oracle, adminService, log)
	discoveryService := discovery.New(stores.Products, stores.Stores, stores.Auctions, log)

	manager := system.NewManager()
	if cfg.RefreshInterval > 0 {
		refresher := rates.NewRefresher(oracle, cfg.RefreshInterval, log)
		if err := manager.Register(refresher); err != nil {
			return nil, fmt.Errorf("register %s: %w", refresher.Name(), err)
		}
	}

	return &Application{
		manager:   manager,
		log:       log,
		Oracle:    oracle,
		Escrow:    escrowService,
		Admin:     adminService,
		Market:    marketService,
		Stores:    storesService,
		Auctions:  auctionService,
		Discovery: discoveryService,
		Content:   contentStore,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before
// Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered background services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.StartAll(ctx)
}

// Stop stops all background services in reverse registration order.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.StopAll(ctx)
}
