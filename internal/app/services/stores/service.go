// Package stores implements per-seller shops: multi-unit products with
// fixed or unlimited stock, escrowed buy orders, and post-completion
// reviews.
package stores

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domain "github.com/bazarion/market_engine/internal/app/domain/store"
	"github.com/bazarion/market_engine/internal/app/keylock"
	"github.com/bazarion/market_engine/internal/app/metrics"
	"github.com/bazarion/market_engine/internal/app/services/admin"
	"github.com/bazarion/market_engine/internal/app/services/escrow"
	"github.com/bazarion/market_engine/internal/app/services/rates"
	"github.com/bazarion/market_engine/internal/app/storage"
	"github.com/bazarion/market_engine/pkg/logger"
)

var (
	// ErrStoreExists reports a second store creation by the same owner.
	ErrStoreExists = errors.New("owner already has a store")
	// ErrNotOwner reports an owner-only action by another account.
	ErrNotOwner = errors.New("caller does not own the store")
	// ErrInvalidProduct reports a store product with a missing name, a
	// non-positive price, or a non-positive fixed quantity.
	ErrInvalidProduct = errors.New("invalid store product")
	// ErrProductHasOrders reports a removal of a product that has ever been
	// ordered.
	ErrProductHasOrders = errors.New("product has orders")
	// ErrInsufficientStock reports an order larger than the remaining
	// fixed-mode stock.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidQuantity reports a non-positive order quantity.
	ErrInvalidQuantity = errors.New("invalid order quantity")
	// ErrNotBuyer reports a buyer-only action by another account.
	ErrNotBuyer = errors.New("caller is not the order's buyer")
	// ErrOrderNotPending reports a fill on an order already past PENDING.
	ErrOrderNotPending = errors.New("order is not pending")
	// ErrOrderNotSent reports a confirmation before the order was filled.
	ErrOrderNotSent = errors.New("order has not been sent")
	// ErrOrderNotCancellable reports a cancel on an order already past
	// PENDING.
	ErrOrderNotCancellable = errors.New("order cannot be cancelled")
	// ErrOrderNotCompleted reports a review before the order completed.
	ErrOrderNotCompleted = errors.New("order is not completed")
	// ErrAlreadyReviewed reports a second review for the same order.
	ErrAlreadyReviewed = errors.New("order already reviewed")
	// ErrInvalidRating reports a rating outside 0..10.
	ErrInvalidRating = errors.New("rating must be between 0 and 10")
)

// Service runs the store engine. Product-level locks serialize stock
// movements; order-level locks serialize an order's lifecycle.
type Service struct {
	stores storage.StoreStore
	escrow *escrow.Service
	oracle *rates.Oracle
	fees   *admin.Service
	log    *logger.Logger
	locks  *keylock.Set
}

// New constructs the stores service.
func New(stores storage.StoreStore, esc *escrow.Service, oracle *rates.Oracle, fees *admin.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("stores")
	}
	return &Service{
		stores: stores,
		escrow: esc,
		oracle: oracle,
		fees:   fees,
		log:    log,
		locks:  keylock.NewSet(),
	}
}

// CreateStore opens the owner's store, charging the store-creation fee into
// the treasury at the current exchange rate. Each account may own at most
// one store.
func (s *Service) CreateStore(ctx context.Context, owner, metadataContentID string) (domain.Store, error) {
	unlock := s.locks.Lock("store-owner:" + owner)
	defer unlock()

	if _, err := s.stores.GetStoreByOwner(ctx, owner); err == nil {
		return domain.Store{}, ErrStoreExists
	} else if !errors.Is(err, storage.ErrNotFound) {
		return domain.Store{}, err
	}

	feeUSD := s.fees.Fees().CreateStoreFeeUSD
	if feeUSD.Sign() > 0 && s.escrow.Treasury() != "" {
		feeNative, err := s.oracle.Convert(ctx, feeUSD)
		if err != nil {
			return domain.Store{}, err
		}
		if err := s.escrow.Pay(ctx, owner, s.escrow.Treasury(), feeNative); err != nil {
			return domain.Store{}, fmt.Errorf("store creation fee: %w", err)
		}
	}

	st, err := s.stores.CreateStore(ctx, domain.Store{Owner: owner, MetadataContentID: metadataContentID})
	if err != nil {
		return domain.Store{}, err
	}

	s.log.WithField("store_id", st.ID).WithField("owner", owner).Infof("store created")
	return st, nil
}

// GetStore returns a store by id.
func (s *Service) GetStore(ctx context.Context, id string) (domain.Store, error) {
	return s.stores.GetStore(ctx, id)
}

// GetStoreByOwner returns the owner's store.
func (s *Service) GetStoreByOwner(ctx context.Context, owner string) (domain.Store, error) {
	return s.stores.GetStoreByOwner(ctx, owner)
}

// ListStores returns every store, oldest first.
func (s *Service) ListStores(ctx context.Context) ([]domain.Store, error) {
	return s.stores.ListStores(ctx)
}

// AddProduct lists a product in the owner's store. Fixed-mode products
// need a positive starting quantity; unlimited-mode products ignore it.
func (s *Service) AddProduct(ctx context.Context, storeID, caller, name, description, contentID string, priceUSD decimal.Decimal, mode domain.QuantityMode, quantity int64) (domain.Product, error) {
	st, err := s.stores.GetStore(ctx, storeID)
	if err != nil {
		return domain.Product{}, err
	}
	if st.Owner != caller {
		return domain.Product{}, ErrNotOwner
	}

	name = strings.TrimSpace(name)
	if name == "" || priceUSD.Sign() <= 0 {
		return domain.Product{}, ErrInvalidProduct
	}
	switch mode {
	case domain.QuantityFixed:
		if quantity <= 0 {
			return domain.Product{}, ErrInvalidProduct
		}
	case domain.QuantityUnlimited:
		quantity = 0
	default:
		return domain.Product{}, ErrInvalidProduct
	}

	return s.stores.CreateStoreProduct(ctx, domain.Product{
		StoreID:           storeID,
		Name:              name,
		Description:       description,
		ContentID:         contentID,
		PriceUSD:          priceUSD,
		QuantityMode:      mode,
		QuantityRemaining: quantity,
	})
}

// RemoveProduct deletes a store product that has never been ordered.
func (s *Service) RemoveProduct(ctx context.Context, productID, caller string) error {
	unlock := s.locks.Lock("product:" + productID)
	defer unlock()

	p, err := s.stores.GetStoreProduct(ctx, productID)
	if err != nil {
		return err
	}
	st, err := s.stores.GetStore(ctx, p.StoreID)
	if err != nil {
		return err
	}
	if st.Owner != caller {
		return ErrNotOwner
	}
	if p.OrderCount > 0 {
		return ErrProductHasOrders
	}
	return s.stores.DeleteStoreProduct(ctx, productID)
}

// GetProduct returns a store product by id.
func (s *Service) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	return s.stores.GetStoreProduct(ctx, productID)
}

// ListProducts returns a store's products, oldest first.
func (s *Service) ListProducts(ctx context.Context, storeID string) ([]domain.Product, error) {
	return s.stores.ListStoreProducts(ctx, storeID)
}

// CreateBuyOrder escrows quantity times the converted unit price and
// records a PENDING order. Fixed-mode stock is decremented here, when the
// order is placed, so concurrent buyers cannot oversell; a cancel restores
// it.
func (s *Service) CreateBuyOrder(ctx context.Context, productID, buyer string, quantity int64) (domain.Order, error) {
	if quantity <= 0 {
		return domain.Order{}, ErrInvalidQuantity
	}

	unlock := s.locks.Lock("product:" + productID)
	defer unlock()

	p, err := s.stores.GetStoreProduct(ctx, productID)
	if err != nil {
		return domain.Order{}, err
	}
	if p.QuantityMode == domain.QuantityFixed && p.QuantityRemaining < quantity {
		return domain.Order{}, ErrInsufficientStock
	}

	// Convert the USD total in one step so rounding happens once.
	total, err := s.oracle.Convert(ctx, p.PriceUSD.Mul(decimal.NewFromInt(quantity)))
	if err != nil {
		return domain.Order{}, err
	}

	// The order id doubles as the escrow transaction id. Funds are held
	// before the order is recorded so a failed hold leaves no order behind.
	orderID := uuid.NewString()
	if _, err := s.escrow.Hold(ctx, orderID, buyer, total); err != nil {
		return domain.Order{}, err
	}

	o, err := s.stores.CreateOrder(ctx, domain.Order{
		ID:               orderID,
		StoreID:          p.StoreID,
		ProductID:        productID,
		Buyer:            buyer,
		Quantity:         quantity,
		TotalPriceNative: total,
		Status:           domain.OrderPending,
	})
	if err != nil {
		// escrow must not keep funds for an order that never recorded
		_, _ = s.escrow.Refund(ctx, orderID, buyer)
		return domain.Order{}, err
	}

	if p.QuantityMode == domain.QuantityFixed {
		p.QuantityRemaining -= quantity
	}
	p.OrderCount++
	if _, err := s.stores.UpdateStoreProduct(ctx, p); err != nil {
		_, _ = s.escrow.Refund(ctx, orderID, buyer)
		o.Status = domain.OrderCancelled
		_, _ = s.stores.UpdateOrder(ctx, o)
		return domain.Order{}, err
	}

	metrics.ObserveOrder(p.StoreID)
	s.log.WithFields(map[string]interface{}{
		"order_id":   o.ID,
		"product_id": productID,
		"buyer":      buyer,
		"quantity":   quantity,
	}).Infof("buy order escrowed %s native", total)
	return o, nil
}

// FillOrder marks a pending order as sent. Only the store owner may fill.
func (s *Service) FillOrder(ctx context.Context, orderID, caller string) (domain.Order, error) {
	unlock := s.locks.Lock("order:" + orderID)
	defer unlock()

	o, err := s.stores.GetOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	st, err := s.stores.GetStore(ctx, o.StoreID)
	if err != nil {
		return domain.Order{}, err
	}
	if st.Owner != caller {
		return domain.Order{}, ErrNotOwner
	}
	if o.Status != domain.OrderPending {
		return domain.Order{}, ErrOrderNotPending
	}

	o.Status = domain.OrderSent
	return s.stores.UpdateOrder(ctx, o)
}

// ConfirmReceived settles a sent order: the escrowed total is released to
// the store owner minus the store fee, and the order completes.
func (s *Service) ConfirmReceived(ctx context.Context, orderID, caller string) (domain.Order, error) {
	unlock := s.locks.Lock("order:" + orderID)
	defer unlock()

	o, err := s.stores.GetOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if o.Buyer != caller {
		return domain.Order{}, ErrNotBuyer
	}
	switch o.Status {
	case domain.OrderSent:
	case domain.OrderCompleted:
		return domain.Order{}, escrow.ErrAlreadySettled
	default:
		return domain.Order{}, ErrOrderNotSent
	}

	st, err := s.stores.GetStore(ctx, o.StoreID)
	if err != nil {
		return domain.Order{}, err
	}
	feeBps := s.fees.Fees().StoreFeeBps
	if _, err := s.escrow.Release(ctx, o.ID, o.Buyer, st.Owner, feeBps); err != nil {
		// A prior confirmation may have moved the funds and then failed to
		// record the completion; resume the transition instead of stranding
		// the order in SENT.
		if !errors.Is(err, escrow.ErrAlreadySettled) || !s.escrow.Released(ctx, o.ID) {
			return domain.Order{}, err
		}
	}

	o.Status = domain.OrderCompleted
	o, err = s.stores.UpdateOrder(ctx, o)
	if err != nil {
		return domain.Order{}, err
	}

	s.log.WithField("order_id", o.ID).Infof("order settled to store owner %s", st.Owner)
	return o, nil
}

// CancelOrder refunds the escrowed total to the buyer and restores
// fixed-mode stock. Only the buyer may cancel, and only before the order
// is filled.
func (s *Service) CancelOrder(ctx context.Context, orderID, caller string) (domain.Order, error) {
	unlock := s.locks.Lock("order:" + orderID)
	defer unlock()

	o, err := s.stores.GetOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if caller != o.Buyer {
		return domain.Order{}, ErrNotBuyer
	}
	if o.Status != domain.OrderPending {
		return domain.Order{}, ErrOrderNotCancellable
	}

	if _, err := s.escrow.Refund(ctx, o.ID, o.Buyer); err != nil {
		return domain.Order{}, err
	}

	unlockProduct := s.locks.Lock("product:" + o.ProductID)
	p, perr := s.stores.GetStoreProduct(ctx, o.ProductID)
	if perr == nil {
		if p.QuantityMode == domain.QuantityFixed {
			p.QuantityRemaining += o.Quantity
		}
		p.OrderCount--
		_, perr = s.stores.UpdateStoreProduct(ctx, p)
	}
	unlockProduct()
	if perr != nil && !errors.Is(perr, storage.ErrNotFound) {
		return domain.Order{}, perr
	}

	o.Status = domain.OrderCancelled
	o, err = s.stores.UpdateOrder(ctx, o)
	if err != nil {
		return domain.Order{}, err
	}

	s.log.WithField("order_id", o.ID).WithField("buyer", o.Buyer).Infof("order cancelled")
	return o, nil
}

// GetOrder returns an order by id.
func (s *Service) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	return s.stores.GetOrder(ctx, orderID)
}

// ListOrders returns a store's orders, oldest first.
func (s *Service) ListOrders(ctx context.Context, storeID string) ([]domain.Order, error) {
	return s.stores.ListOrders(ctx, storeID)
}

// LeaveReview records the buyer's one review for a completed order.
// Ratings run from 0 to 10.
func (s *Service) LeaveReview(ctx context.Context, orderID, caller string, rating int, text string) (domain.Review, error) {
	if rating < 0 || rating > 10 {
		return domain.Review{}, ErrInvalidRating
	}

	unlock := s.locks.Lock("order:" + orderID)
	defer unlock()

	o, err := s.stores.GetOrder(ctx, orderID)
	if err != nil {
		return domain.Review{}, err
	}
	if o.Buyer != caller {
		return domain.Review{}, ErrNotBuyer
	}
	if o.Status != domain.OrderCompleted {
		return domain.Review{}, ErrOrderNotCompleted
	}
	if o.HasBeenReviewed {
		return domain.Review{}, ErrAlreadyReviewed
	}

	r, err := s.stores.CreateReview(ctx, domain.Review{
		OrderID:   orderID,
		ProductID: o.ProductID,
		Buyer:     caller,
		Rating:    rating,
		Text:      text,
	})
	if err != nil {
		return domain.Review{}, err
	}

	o.HasBeenReviewed = true
	if _, err := s.stores.UpdateOrder(ctx, o); err != nil {
		return domain.Review{}, err
	}
	return r, nil
}

// ListReviews returns a product's reviews, oldest first.
func (s *Service) ListReviews(ctx context.Context, productID string) ([]domain.Review, error) {
	return s.stores.ListReviews(ctx, productID)
}
