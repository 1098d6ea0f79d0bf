package storage

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/bazarion/market_engine/internal/app/domain/auction"
	"github.com/bazarion/market_engine/internal/app/domain/escrow"
	"github.com/bazarion/market_engine/internal/app/domain/product"
	"github.com/bazarion/market_engine/internal/app/domain/store"
	"github.com/bazarion/market_engine/internal/app/domain/wallet"
)

// ErrNotFound reports that the requested record does not exist. Both the
// memory and postgres implementations return it so services can translate
// lookups uniformly.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists reports a uniqueness violation (duplicate id, duplicate
// settlement, second store for an owner).
var ErrAlreadyExists = errors.New("record already exists")

// WalletStore persists native-currency account balances.
type WalletStore interface {
	EnsureWallet(ctx context.Context, address string) (wallet.Wallet, error)
	GetWallet(ctx context.Context, address string) (wallet.Wallet, error)
	SetWalletBalance(ctx context.Context, address string, available decimal.Decimal) (wallet.Wallet, error)
}

// EscrowStore persists custodial holds and per-transaction settlements.
type EscrowStore interface {
	PutHold(ctx context.Context, h escrow.Hold) (escrow.Hold, error)
	GetHold(ctx context.Context, txID, payer string) (escrow.Hold, error)
	ListHolds(ctx context.Context, txID string) ([]escrow.Hold, error)

	// CreateSettlement fails with ErrAlreadyExists when the transaction id
	// is already settled; this is the at-most-once guarantee.
	CreateSettlement(ctx context.Context, s escrow.Settlement) (escrow.Settlement, error)
	GetSettlement(ctx context.Context, txID string) (escrow.Settlement, error)
}

// ProductStore persists direct-sale products.
type ProductStore interface {
	CreateProduct(ctx context.Context, p product.Product) (product.Product, error)
	UpdateProduct(ctx context.Context, p product.Product) (product.Product, error)
	GetProduct(ctx context.Context, id string) (product.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	ListProducts(ctx context.Context) ([]product.Product, error)
}

// StoreStore persists seller stores, their products, orders and reviews.
type StoreStore interface {
	CreateStore(ctx context.Context, st store.Store) (store.Store, error)
	GetStore(ctx context.Context, id string) (store.Store, error)
	GetStoreByOwner(ctx context.Context, owner string) (store.Store, error)
	ListStores(ctx context.Context) ([]store.Store, error)

	CreateStoreProduct(ctx context.Context, p store.Product) (store.Product, error)
	UpdateStoreProduct(ctx context.Context, p store.Product) (store.Product, error)
	GetStoreProduct(ctx context.Context, id string) (store.Product, error)
	DeleteStoreProduct(ctx context.Context, id string) error
	ListStoreProducts(ctx context.Context, storeID string) ([]store.Product, error)

	CreateOrder(ctx context.Context, o store.Order) (store.Order, error)
	UpdateOrder(ctx context.Context, o store.Order) (store.Order, error)
	GetOrder(ctx context.Context, id string) (store.Order, error)
	ListOrders(ctx context.Context, storeID string) ([]store.Order, error)

	CreateReview(ctx context.Context, r store.Review) (store.Review, error)
	ListReviews(ctx context.Context, productID string) ([]store.Review, error)
}

// AuctionStore persists auctions. Bids live in escrow holds keyed by the
// auction's transaction id, so no separate bid table exists.
type AuctionStore interface {
	CreateAuction(ctx context.Context, a auction.Auction) (auction.Auction, error)
	UpdateAuction(ctx context.Context, a auction.Auction) (auction.Auction, error)
	GetAuction(ctx context.Context, id string) (auction.Auction, error)
	ListAuctions(ctx context.Context) ([]auction.Auction, error)
}
