// Package memory provides an in-memory implementation of the storage
// interfaces. It is safe for concurrent use and is primarily intended for
// tests and local development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bazarion/market_engine/internal/app/domain/auction"
	"github.com/bazarion/market_engine/internal/app/domain/escrow"
	"github.com/bazarion/market_engine/internal/app/domain/product"
	"github.com/bazarion/market_engine/internal/app/domain/store"
	"github.com/bazarion/market_engine/internal/app/domain/wallet"
	"github.com/bazarion/market_engine/internal/app/storage"
)

// Store keeps every aggregate in maps guarded by a single RWMutex.
type Store struct {
	mu            sync.RWMutex
	nextID        int64
	wallets       map[string]wallet.Wallet
	holds         map[string]map[string]escrow.Hold // txID -> payer -> hold
	settlements   map[string]escrow.Settlement
	products      map[string]product.Product
	stores        map[string]store.Store
	storesByOwner map[string]string
	storeProducts map[string]store.Product
	orders        map[string]store.Order
	reviews       map[string][]store.Review // productID -> reviews
	auctions      map[string]auction.Auction
}

var _ storage.WalletStore = (*Store)(nil)
var _ storage.EscrowStore = (*Store)(nil)
var _ storage.ProductStore = (*Store)(nil)
var _ storage.StoreStore = (*Store)(nil)
var _ storage.AuctionStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:        1,
		wallets:       make(map[string]wallet.Wallet),
		holds:         make(map[string]map[string]escrow.Hold),
		settlements:   make(map[string]escrow.Settlement),
		products:      make(map[string]product.Product),
		stores:        make(map[string]store.Store),
		storesByOwner: make(map[string]string),
		storeProducts: make(map[string]store.Product),
		orders:        make(map[string]store.Order),
		reviews:       make(map[string][]store.Review),
		auctions:      make(map[string]auction.Auction),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

// WalletStore implementation -------------------------------------------------

func (s *Store) EnsureWallet(_ context.Context, address string) (wallet.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w, ok := s.wallets[address]; ok {
		return w, nil
	}
	now := time.Now().UTC()
	w := wallet.Wallet{Address: address, Available: decimal.Zero, CreatedAt: now, UpdatedAt: now}
	s.wallets[address] = w
	return w, nil
}

func (s *Store) GetWallet(_ context.Context, address string) (wallet.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.wallets[address]
	if !ok {
		return wallet.Wallet{}, fmt.Errorf("wallet %s: %w", address, storage.ErrNotFound)
	}
	return w, nil
}

func (s *Store) SetWalletBalance(_ context.Context, address string, available decimal.Decimal) (wallet.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[address]
	if !ok {
		return wallet.Wallet{}, fmt.Errorf("wallet %s: %w", address, storage.ErrNotFound)
	}
	w.Available = available
	w.UpdatedAt = time.Now().UTC()
	s.wallets[address] = w
	return w, nil
}

// EscrowStore implementation -------------------------------------------------

func (s *Store) PutHold(_ context.Context, h escrow.Hold) (escrow.Hold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	byPayer, ok := s.holds[h.TxID]
	if !ok {
		byPayer = make(map[string]escrow.Hold)
		s.holds[h.TxID] = byPayer
	}
	if existing, ok := byPayer[h.Payer]; ok {
		h.CreatedAt = existing.CreatedAt
	} else {
		h.CreatedAt = now
	}
	h.UpdatedAt = now
	byPayer[h.Payer] = h
	return h, nil
}

func (s *Store) GetHold(_ context.Context, txID, payer string) (escrow.Hold, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if h, ok := s.holds[txID][payer]; ok {
		return h, nil
	}
	return escrow.Hold{}, fmt.Errorf("hold %s/%s: %w", txID, payer, storage.ErrNotFound)
}

func (s *Store) ListHolds(_ context.Context, txID string) ([]escrow.Hold, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]escrow.Hold, 0, len(s.holds[txID]))
	for _, h := range s.holds[txID] {
		result = append(result, h)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Payer < result[j].Payer })
	return result, nil
}

func (s *Store) CreateSettlement(_ context.Context, set escrow.Settlement) (escrow.Settlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.settlements[set.TxID]; ok {
		return escrow.Settlement{}, fmt.Errorf("settlement %s: %w", set.TxID, storage.ErrAlreadyExists)
	}
	set.SettledAt = time.Now().UTC()
	s.settlements[set.TxID] = set
	return set, nil
}

func (s *Store) GetSettlement(_ context.Context, txID string) (escrow.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.settlements[txID]
	if !ok {
		return escrow.Settlement{}, fmt.Errorf("settlement %s: %w", txID, storage.ErrNotFound)
	}
	return set, nil
}

// ProductStore implementation ------------------------------------------------

func (s *Store) CreateProduct(_ context.Context, p product.Product) (product.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = s.nextIDLocked()
	} else if _, exists := s.products[p.ID]; exists {
		return product.Product{}, fmt.Errorf("product %s: %w", p.ID, storage.ErrAlreadyExists)
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	s.products[p.ID] = p
	return p, nil
}

func (s *Store) UpdateProduct(_ context.Context, p product.Product) (product.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.products[p.ID]
	if !ok {
		return product.Product{}, fmt.Errorf("product %s: %w", p.ID, storage.ErrNotFound)
	}
	p.CreatedAt = original.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	s.products[p.ID] = p
	return p, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (product.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return product.Product{}, fmt.Errorf("product %s: %w", id, storage.ErrNotFound)
	}
	return p, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return fmt.Errorf("product %s: %w", id, storage.ErrNotFound)
	}
	delete(s.products, id)
	return nil
}

func (s *Store) ListProducts(_ context.Context) ([]product.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]product.Product, 0, len(s.products))
	for _, p := range s.products {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

// StoreStore implementation --------------------------------------------------

func (s *Store) CreateStore(_ context.Context, st store.Store) (store.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.storesByOwner[st.Owner]; exists {
		return store.Store{}, fmt.Errorf("store for owner %s: %w", st.Owner, storage.ErrAlreadyExists)
	}
	if st.ID == "" {
		st.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	st.CreatedAt = now
	st.UpdatedAt = now
	s.stores[st.ID] = st
	s.storesByOwner[st.Owner] = st.ID
	return st, nil
}

func (s *Store) GetStore(_ context.Context, id string) (store.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.stores[id]
	if !ok {
		return store.Store{}, fmt.Errorf("store %s: %w", id, storage.ErrNotFound)
	}
	return st, nil
}

func (s *Store) GetStoreByOwner(_ context.Context, owner string) (store.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.storesByOwner[owner]
	if !ok {
		return store.Store{}, fmt.Errorf("store for owner %s: %w", owner, storage.ErrNotFound)
	}
	return s.stores[id], nil
}

func (s *Store) ListStores(_ context.Context) ([]store.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]store.Store, 0, len(s.stores))
	for _, st := range s.stores {
		result = append(result, st)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) CreateStoreProduct(_ context.Context, p store.Product) (store.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.stores[p.StoreID]; !ok {
		return store.Product{}, fmt.Errorf("store %s: %w", p.StoreID, storage.ErrNotFound)
	}
	if p.ID == "" {
		p.ID = s.nextIDLocked()
	} else if _, exists := s.storeProducts[p.ID]; exists {
		return store.Product{}, fmt.Errorf("store product %s: %w", p.ID, storage.ErrAlreadyExists)
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	s.storeProducts[p.ID] = p
	return p, nil
}

func (s *Store) UpdateStoreProduct(_ context.Context, p store.Product) (store.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.storeProducts[p.ID]
	if !ok {
		return store.Product{}, fmt.Errorf("store product %s: %w", p.ID, storage.ErrNotFound)
	}
	p.CreatedAt = original.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	s.storeProducts[p.ID] = p
	return p, nil
}

func (s *Store) GetStoreProduct(_ context.Context, id string) (store.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.storeProducts[id]
	if !ok {
		return store.Product{}, fmt.Errorf("store product %s: %w", id, storage.ErrNotFound)
	}
	return p, nil
}

func (s *Store) DeleteStoreProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.storeProducts[id]; !ok {
		return fmt.Errorf("store product %s: %w", id, storage.ErrNotFound)
	}
	delete(s.storeProducts, id)
	return nil
}

func (s *Store) ListStoreProducts(_ context.Context, storeID string) ([]store.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]store.Product, 0)
	for _, p := range s.storeProducts {
		if storeID == "" || p.StoreID == storeID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) CreateOrder(_ context.Context, o store.Order) (store.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if o.ID == "" {
		o.ID = s.nextIDLocked()
	} else if _, exists := s.orders[o.ID]; exists {
		return store.Order{}, fmt.Errorf("order %s: %w", o.ID, storage.ErrAlreadyExists)
	}
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now
	s.orders[o.ID] = o
	return o, nil
}

func (s *Store) UpdateOrder(_ context.Context, o store.Order) (store.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.orders[o.ID]
	if !ok {
		return store.Order{}, fmt.Errorf("order %s: %w", o.ID, storage.ErrNotFound)
	}
	o.CreatedAt = original.CreatedAt
	o.UpdatedAt = time.Now().UTC()
	s.orders[o.ID] = o
	return o, nil
}

func (s *Store) GetOrder(_ context.Context, id string) (store.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return store.Order{}, fmt.Errorf("order %s: %w", id, storage.ErrNotFound)
	}
	return o, nil
}

func (s *Store) ListOrders(_ context.Context, storeID string) ([]store.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]store.Order, 0)
	for _, o := range s.orders {
		if storeID == "" || o.StoreID == storeID {
			result = append(result, o)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) CreateReview(_ context.Context, r store.Review) (store.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = s.nextIDLocked()
	}
	r.CreatedAt = time.Now().UTC()
	s.reviews[r.ProductID] = append(s.reviews[r.ProductID], r)
	return r, nil
}

func (s *Store) ListReviews(_ context.Context, productID string) ([]store.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]store.Review, len(s.reviews[productID]))
	copy(result, s.reviews[productID])
	return result, nil
}

// AuctionStore implementation ------------------------------------------------

func (s *Store) CreateAuction(_ context.Context, a auction.Auction) (auction.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = s.nextIDLocked()
	} else if _, exists := s.auctions[a.ID]; exists {
		return auction.Auction{}, fmt.Errorf("auction %s: %w", a.ID, storage.ErrAlreadyExists)
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	s.auctions[a.ID] = a
	return a, nil
}

func (s *Store) UpdateAuction(_ context.Context, a auction.Auction) (auction.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.auctions[a.ID]
	if !ok {
		return auction.Auction{}, fmt.Errorf("auction %s: %w", a.ID, storage.ErrNotFound)
	}
	a.CreatedAt = original.CreatedAt
	a.UpdatedAt = time.Now().UTC()
	s.auctions[a.ID] = a
	return a, nil
}

func (s *Store) GetAuction(_ context.Context, id string) (auction.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.auctions[id]
	if !ok {
		return auction.Auction{}, fmt.Errorf("auction %s: %w", id, storage.ErrNotFound)
	}
	return a, nil
}

func (s *Store) ListAuctions(_ context.Context) ([]auction.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]auction.Auction, 0, len(s.auctions))
	for _, a := range s.auctions {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}
