// Package discovery assembles read-only browse views over the market, the
// stores and the auction house. Nothing here mutates state; every call is
// a fresh merge over the underlying records.
package discovery

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bazarion/market_engine/internal/app/domain/auction"
	"github.com/bazarion/market_engine/internal/app/domain/product"
	"github.com/bazarion/market_engine/internal/app/storage"
	"github.com/bazarion/market_engine/pkg/logger"
)

// ListingKind distinguishes where a merged listing came from.
type ListingKind string

const (
	KindMarket ListingKind = "MARKET"
	KindStore  ListingKind = "STORE"
)

// Listing is one row of the merged browse view.
type Listing struct {
	Kind      ListingKind     `json:"kind"`
	ID        string          `json:"id"`
	StoreID   string          `json:"storeId,omitempty"`
	Seller    string          `json:"seller"`
	Name      string          `json:"name"`
	PriceUSD  decimal.Decimal `json:"priceUsd"`
	ContentID string          `json:"contentId,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Service serves the merged views.
type Service struct {
	products storage.ProductStore
	stores   storage.StoreStore
	auctions storage.AuctionStore
	log      *logger.Logger
}

// New constructs the discovery service.
func New(products storage.ProductStore, stores storage.StoreStore, auctions storage.AuctionStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("discovery")
	}
	return &Service{products: products, stores: stores, auctions: auctions, log: log}
}

// Listings merges the market's for-sale products with every named store
// product, newest first. Store owners stand in as sellers for their
// products.
func (s *Service) Listings(ctx context.Context) ([]Listing, error) {
	var out []Listing

	marketProducts, err := s.products.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range marketProducts {
		if p.Status != product.StatusInSale {
			continue
		}
		out = append(out, Listing{
			Kind:      KindMarket,
			ID:        p.ID,
			Seller:    p.Seller,
			Name:      p.Name,
			PriceUSD:  p.PriceUSD,
			ContentID: p.ContentID,
			CreatedAt: p.CreatedAt,
		})
	}

	allStores, err := s.stores.ListStores(ctx)
	if err != nil {
		return nil, err
	}
	for _, st := range allStores {
		storeProducts, err := s.stores.ListStoreProducts(ctx, st.ID)
		if err != nil {
			return nil, err
		}
		for _, p := range storeProducts {
			if p.Name == "" {
				continue
			}
			out = append(out, Listing{
				Kind:      KindStore,
				ID:        p.ID,
				StoreID:   st.ID,
				Seller:    st.Owner,
				Name:      p.Name,
				PriceUSD:  p.PriceUSD,
				ContentID: p.ContentID,
				CreatedAt: p.CreatedAt,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// OpenAuctions returns the auctions still accepting bids, newest first.
func (s *Service) OpenAuctions(ctx context.Context) ([]auction.Auction, error) {
	all, err := s.auctions.ListAuctions(ctx)
	if err != nil {
		return nil, err
	}
	open := make([]auction.Auction, 0, len(all))
	for _, a := range all {
		if a.Status == auction.StatusOpen {
			open = append(open, a)
		}
	}
	sort.Slice(open, func(i, j int) bool { return open[i].CreatedAt.After(open[j].CreatedAt) })
	return open, nil
}
