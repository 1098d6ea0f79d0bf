package discovery

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bazarion/market_engine/internal/app/domain/auction"
	"github.com/bazarion/market_engine/internal/app/domain/product"
	"github.com/bazarion/market_engine/internal/app/domain/store"
	"github.com/bazarion/market_engine/internal/app/storage/memory"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestListingsMergeAndOrder(t *testing.T) {
	mem := memory.New()
	svc := New(mem, mem, mem, nil)
	ctx := context.Background()

	if _, err := mem.CreateProduct(ctx, product.Product{Seller: "alice", Name: "Lamp", PriceUSD: dec("100"), Status: product.StatusInSale}); err != nil {
		t.Fatalf("create product: %v", err)
	}
	sold, err := mem.CreateProduct(ctx, product.Product{Seller: "alice", Name: "Old Lamp", PriceUSD: dec("10"), Status: product.StatusSold})
	if err != nil {
		t.Fatalf("create sold product: %v", err)
	}

	st, err := mem.CreateStore(ctx, store.Store{Owner: "bob"})
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	if _, err := mem.CreateStoreProduct(ctx, store.Product{StoreID: st.ID, Name: "Mug", PriceUSD: dec("5"), QuantityMode: store.QuantityUnlimited}); err != nil {
		t.Fatalf("create store product: %v", err)
	}
	if _, err := mem.CreateStoreProduct(ctx, store.Product{StoreID: st.ID, Name: "", PriceUSD: dec("5"), QuantityMode: store.QuantityUnlimited}); err != nil {
		t.Fatalf("create unnamed store product: %v", err)
	}

	listings, err := svc.Listings(ctx)
	if err != nil {
		t.Fatalf("listings: %v", err)
	}
	if len(listings) != 2 {
		t.Fatalf("expected 2 listings, got %d", len(listings))
	}
	for _, l := range listings {
		if l.ID == sold.ID {
			t.Fatal("sold product must not appear in listings")
		}
		if l.Name == "" {
			t.Fatal("unnamed store product must not appear in listings")
		}
	}
	// Newest first.
	if listings[0].CreatedAt.Before(listings[1].CreatedAt) {
		t.Fatal("listings not sorted by creation time descending")
	}

	byKind := map[ListingKind]int{}
	for _, l := range listings {
		byKind[l.Kind]++
	}
	if byKind[KindMarket] != 1 || byKind[KindStore] != 1 {
		t.Fatalf("unexpected kind split: %v", byKind)
	}
}

func TestOpenAuctions(t *testing.T) {
	mem := memory.New()
	svc := New(mem, mem, mem, nil)
	ctx := context.Background()

	if _, err := mem.CreateAuction(ctx, auction.Auction{Seller: "alice", StartPriceUSD: dec("50"), Status: auction.StatusOpen, EndTime: time.Now().Add(time.Hour)}); err != nil {
		t.Fatalf("create auction: %v", err)
	}
	if _, err := mem.CreateAuction(ctx, auction.Auction{Seller: "bob", StartPriceUSD: dec("50"), Status: auction.StatusEnded}); err != nil {
		t.Fatalf("create ended auction: %v", err)
	}

	open, err := svc.OpenAuctions(ctx)
	if err != nil {
		t.Fatalf("open auctions: %v", err)
	}
	if len(open) != 1 {
		t.Fatalf("expected 1 open auction, got %d", len(open))
	}
	if open[0].Seller != "alice" {
		t.Fatalf("unexpected auction %+v", open[0])
	}
}
