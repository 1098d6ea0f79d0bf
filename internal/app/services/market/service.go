// Package market implements the central direct-sale market: single-unit
// listings paid into escrow at purchase time and settled when the buyer
// confirms delivery.
package market

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bazarion/market_engine/internal/app/domain/product"
	"github.com/bazarion/market_engine/internal/app/keylock"
	"github.com/bazarion/market_engine/internal/app/services/admin"
	"github.com/bazarion/market_engine/internal/app/services/escrow"
	"github.com/bazarion/market_engine/internal/app/services/rates"
	"github.com/bazarion/market_engine/internal/app/storage"
	"github.com/bazarion/market_engine/pkg/logger"
)

var (
	// ErrInvalidListing reports a listing with a missing name or a
	// non-positive price.
	ErrInvalidListing = errors.New("invalid listing")
	// ErrNotForSale reports an action against a product that is not in the
	// IN_SALE state.
	ErrNotForSale = errors.New("product is not for sale")
	// ErrOwnListing reports a seller attempting to buy their own product.
	ErrOwnListing = errors.New("cannot purchase own listing")
	// ErrNotSeller reports a seller-only action by another account.
	ErrNotSeller = errors.New("caller is not the seller")
	// ErrNotBuyer reports a buyer-only action by another account.
	ErrNotBuyer = errors.New("caller is not the buyer")
	// ErrNotPending reports a send on a product without a pending purchase.
	ErrNotPending = errors.New("product has no pending purchase")
	// ErrNotSent reports a delivery confirmation before the seller marked
	// the product sent.
	ErrNotSent = errors.New("product has not been sent")
	// ErrNotCancellable reports a cancel after the seller has shipped, or
	// with no purchase in flight.
	ErrNotCancellable = errors.New("purchase cannot be cancelled")
)

// Service runs the direct-sale market on top of the escrow and the price
// oracle. Per-product locks serialize the purchase lifecycle.
type Service struct {
	products storage.ProductStore
	escrow   *escrow.Service
	oracle   *rates.Oracle
	fees     *admin.Service
	log      *logger.Logger
	locks    *keylock.Set
}

// New constructs the market service.
func New(products storage.ProductStore, esc *escrow.Service, oracle *rates.Oracle, fees *admin.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("market")
	}
	return &Service{
		products: products,
		escrow:   esc,
		oracle:   oracle,
		fees:     fees,
		log:      log,
		locks:    keylock.NewSet(),
	}
}

// List publishes a new product priced in USD.
func (s *Service) List(ctx context.Context, seller, name, description, contentID string, priceUSD decimal.Decimal) (product.Product, error) {
	name = strings.TrimSpace(name)
	if name == "" || priceUSD.Sign() <= 0 {
		return product.Product{}, ErrInvalidListing
	}

	p, err := s.products.CreateProduct(ctx, product.Product{
		Seller:      seller,
		Name:        name,
		Description: description,
		ContentID:   contentID,
		PriceUSD:    priceUSD,
		Status:      product.StatusInSale,
	})
	if err != nil {
		return product.Product{}, fmt.Errorf("create product: %w", err)
	}

	s.log.WithField("product_id", p.ID).WithField("seller", seller).Infof("product listed at %s USD", priceUSD)
	return p, nil
}

// Remove deletes an unsold listing. Only the seller may remove, and only
// while no purchase is in flight.
func (s *Service) Remove(ctx context.Context, id, caller string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	p, err := s.products.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if p.Seller != caller {
		return ErrNotSeller
	}
	if p.Status != product.StatusInSale {
		return ErrNotForSale
	}
	return s.products.DeleteProduct(ctx, id)
}

// Purchase converts the USD price at the current rate, escrows the native
// amount from the buyer, and moves the product to PENDING. Each purchase
// gets a fresh escrow transaction id so a product released back to sale by
// a cancel can be bought again.
func (s *Service) Purchase(ctx context.Context, id, buyer string) (product.Product, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	p, err := s.products.GetProduct(ctx, id)
	if err != nil {
		return product.Product{}, err
	}
	if p.Status != product.StatusInSale {
		return product.Product{}, ErrNotForSale
	}
	if p.Seller == buyer {
		return product.Product{}, ErrOwnListing
	}

	native, err := s.oracle.Convert(ctx, p.PriceUSD)
	if err != nil {
		return product.Product{}, err
	}

	txID := uuid.NewString()
	if _, err := s.escrow.Hold(ctx, txID, buyer, native); err != nil {
		return product.Product{}, err
	}

	p.Status = product.StatusPending
	p.Buyer = buyer
	p.BuyPriceNative = native
	p.EscrowTxID = txID
	p, err = s.products.UpdateProduct(ctx, p)
	if err != nil {
		// escrow must not keep funds for a purchase that never recorded
		_, _ = s.escrow.Refund(ctx, txID, buyer)
		return product.Product{}, err
	}

	s.log.WithFields(map[string]interface{}{
		"product_id": p.ID,
		"buyer":      buyer,
		"native":     native.String(),
	}).Infof("purchase escrowed")
	return p, nil
}

// Send marks a pending product as shipped by the seller.
func (s *Service) Send(ctx context.Context, id, caller string) (product.Product, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	p, err := s.products.GetProduct(ctx, id)
	if err != nil {
		return product.Product{}, err
	}
	if p.Seller != caller {
		return product.Product{}, ErrNotSeller
	}
	if p.Status != product.StatusPending {
		return product.Product{}, ErrNotPending
	}

	p.Status = product.StatusSent
	return s.products.UpdateProduct(ctx, p)
}

// ConfirmReceived settles the purchase: the escrowed funds are released to
// the seller, minus the market fee, and the product becomes SOLD. A second
// confirmation fails with the escrow's already-settled error.
func (s *Service) ConfirmReceived(ctx context.Context, id, caller string) (product.Product, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	p, err := s.products.GetProduct(ctx, id)
	if err != nil {
		return product.Product{}, err
	}
	if p.Buyer != caller {
		return product.Product{}, ErrNotBuyer
	}
	switch p.Status {
	case product.StatusSent:
	case product.StatusSold:
		return product.Product{}, escrow.ErrAlreadySettled
	default:
		return product.Product{}, ErrNotSent
	}

	feeBps := s.fees.Fees().MarketFeeBps
	if _, err := s.escrow.Release(ctx, p.EscrowTxID, p.Buyer, p.Seller, feeBps); err != nil {
		// A prior confirmation may have moved the funds and then failed to
		// record the sale; resume the transition instead of stranding the
		// product in SENT.
		if !errors.Is(err, escrow.ErrAlreadySettled) || !s.escrow.Released(ctx, p.EscrowTxID) {
			return product.Product{}, err
		}
	}

	p.Status = product.StatusSold
	p, err = s.products.UpdateProduct(ctx, p)
	if err != nil {
		return product.Product{}, err
	}

	s.log.WithField("product_id", p.ID).Infof("purchase settled to seller %s", p.Seller)
	return p, nil
}

// CancelPurchase refunds the escrowed funds to the buyer and returns the
// product to sale. Only the buyer may cancel, and only before the seller
// marks the product sent.
func (s *Service) CancelPurchase(ctx context.Context, id, caller string) (product.Product, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	p, err := s.products.GetProduct(ctx, id)
	if err != nil {
		return product.Product{}, err
	}
	if caller != p.Buyer {
		return product.Product{}, ErrNotBuyer
	}
	if p.Status != product.StatusPending {
		return product.Product{}, ErrNotCancellable
	}

	if _, err := s.escrow.Refund(ctx, p.EscrowTxID, p.Buyer); err != nil {
		// A prior cancellation may have refunded the buyer and then failed
		// to return the product to sale; resume the reset.
		if !errors.Is(err, escrow.ErrAlreadySettled) || !s.escrow.Refunded(ctx, p.EscrowTxID) {
			return product.Product{}, err
		}
	}

	s.log.WithField("product_id", p.ID).WithField("buyer", p.Buyer).Infof("purchase cancelled")

	p.Status = product.StatusInSale
	p.Buyer = ""
	p.BuyPriceNative = decimal.Zero
	p.EscrowTxID = ""
	return s.products.UpdateProduct(ctx, p)
}

// Get returns a single product.
func (s *Service) Get(ctx context.Context, id string) (product.Product, error) {
	return s.products.GetProduct(ctx, id)
}

// ListAll returns every product on the market, oldest first.
func (s *Service) ListAll(ctx context.Context) ([]product.Product, error) {
	return s.products.ListProducts(ctx)
}
