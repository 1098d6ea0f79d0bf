// Package postgres implements the storage interfaces backed by PostgreSQL.
// Monetary columns are NUMERIC(38,18) scanned through decimal.Decimal so no
// float ever touches a balance.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/bazarion/market_engine/internal/app/domain/auction"
	"github.com/bazarion/market_engine/internal/app/domain/escrow"
	"github.com/bazarion/market_engine/internal/app/domain/product"
	"github.com/bazarion/market_engine/internal/app/domain/store"
	"github.com/bazarion/market_engine/internal/app/domain/wallet"
	"github.com/bazarion/market_engine/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ storage.WalletStore = (*Store)(nil)
var _ storage.EscrowStore = (*Store)(nil)
var _ storage.ProductStore = (*Store)(nil)
var _ storage.StoreStore = (*Store)(nil)
var _ storage.AuctionStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// uniqueViolation is the postgres error code for duplicate keys.
const uniqueViolation = "23505"

func translateErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return storage.ErrAlreadyExists
	}
	return err
}

// --- WalletStore ------------------------------------------------------------

func (s *Store) EnsureWallet(ctx context.Context, address string) (wallet.Wallet, error) {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wallets (address, available, created_at, updated_at)
		VALUES ($1, 0, $2, $2)
		ON CONFLICT (address) DO NOTHING
	`, address, now)
	if err != nil {
		return wallet.Wallet{}, err
	}
	return s.GetWallet(ctx, address)
}

func (s *Store) GetWallet(ctx context.Context, address string) (wallet.Wallet, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT address, available, created_at, updated_at
		FROM wallets
		WHERE address = $1
	`, address)

	var w wallet.Wallet
	if err := row.Scan(&w.Address, &w.Available, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return wallet.Wallet{}, translateErr(err)
	}
	return w, nil
}

func (s *Store) SetWalletBalance(ctx context.Context, address string, available decimal.Decimal) (wallet.Wallet, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE wallets
		SET available = $2, updated_at = $3
		WHERE address = $1
	`, address, available, time.Now().UTC())
	if err != nil {
		return wallet.Wallet{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return wallet.Wallet{}, storage.ErrNotFound
	}
	return s.GetWallet(ctx, address)
}

// --- EscrowStore ------------------------------------------------------------

func (s *Store) PutHold(ctx context.Context, h escrow.Hold) (escrow.Hold, error) {
	now := time.Now().UTC()
	h.UpdatedAt = now
	if h.CreatedAt.IsZero() {
		h.CreatedAt = now
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO escrow_holds (tx_id, payer, amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tx_id, payer) DO UPDATE
		SET amount = EXCLUDED.amount, status = EXCLUDED.status, updated_at = EXCLUDED.updated_at
	`, h.TxID, h.Payer, h.Amount, h.Status, h.CreatedAt, h.UpdatedAt)
	if err != nil {
		return escrow.Hold{}, err
	}
	return h, nil
}

func (s *Store) GetHold(ctx context.Context, txID, payer string) (escrow.Hold, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT tx_id, payer, amount, status, created_at, updated_at
		FROM escrow_holds
		WHERE tx_id = $1 AND payer = $2
	`, txID, payer)

	var h escrow.Hold
	if err := row.Scan(&h.TxID, &h.Payer, &h.Amount, &h.Status, &h.CreatedAt, &h.UpdatedAt); err != nil {
		return escrow.Hold{}, translateErr(err)
	}
	return h, nil
}

func (s *Store) ListHolds(ctx context.Context, txID string) ([]escrow.Hold, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tx_id, payer, amount, status, created_at, updated_at
		FROM escrow_holds
		WHERE tx_id = $1
		ORDER BY payer
	`, txID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holds []escrow.Hold
	for rows.Next() {
		var h escrow.Hold
		if err := rows.Scan(&h.TxID, &h.Payer, &h.Amount, &h.Status, &h.CreatedAt, &h.UpdatedAt); err != nil {
			return nil, err
		}
		holds = append(holds, h)
	}
	return holds, rows.Err()
}

func (s *Store) CreateSettlement(ctx context.Context, set escrow.Settlement) (escrow.Settlement, error) {
	if set.SettledAt.IsZero() {
		set.SettledAt = time.Now().UTC()
	}
	// The primary key on tx_id is the at-most-once guarantee.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO escrow_settlements (tx_id, disposition, settled_at)
		VALUES ($1, $2, $3)
	`, set.TxID, set.Disposition, set.SettledAt)
	if err != nil {
		return escrow.Settlement{}, translateErr(err)
	}
	return set, nil
}

func (s *Store) GetSettlement(ctx context.Context, txID string) (escrow.Settlement, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT tx_id, disposition, settled_at
		FROM escrow_settlements
		WHERE tx_id = $1
	`, txID)

	var set escrow.Settlement
	if err := row.Scan(&set.TxID, &set.Disposition, &set.SettledAt); err != nil {
		return escrow.Settlement{}, translateErr(err)
	}
	return set, nil
}

// --- ProductStore -----------------------------------------------------------

func (s *Store) CreateProduct(ctx context.Context, p product.Product) (product.Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, seller, name, description, content_id, price_usd,
			buyer, buy_price_native, escrow_tx_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, p.ID, p.Seller, p.Name, p.Description, p.ContentID, p.PriceUSD,
		p.Buyer, p.BuyPriceNative, p.EscrowTxID, p.Status, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return product.Product{}, translateErr(err)
	}
	return p, nil
}

func (s *Store) UpdateProduct(ctx context.Context, p product.Product) (product.Product, error) {
	p.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET seller = $2, name = $3, description = $4, content_id = $5, price_usd = $6,
			buyer = $7, buy_price_native = $8, escrow_tx_id = $9, status = $10, updated_at = $11
		WHERE id = $1
	`, p.ID, p.Seller, p.Name, p.Description, p.ContentID, p.PriceUSD,
		p.Buyer, p.BuyPriceNative, p.EscrowTxID, p.Status, p.UpdatedAt)
	if err != nil {
		return product.Product{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return product.Product{}, storage.ErrNotFound
	}
	return p, nil
}

func scanProduct(row interface{ Scan(...interface{}) error }) (product.Product, error) {
	var p product.Product
	err := row.Scan(&p.ID, &p.Seller, &p.Name, &p.Description, &p.ContentID, &p.PriceUSD,
		&p.Buyer, &p.BuyPriceNative, &p.EscrowTxID, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (s *Store) GetProduct(ctx context.Context, id string) (product.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seller, name, description, content_id, price_usd,
			buyer, buy_price_native, escrow_tx_id, status, created_at, updated_at
		FROM products
		WHERE id = $1
	`, id)

	p, err := scanProduct(row)
	if err != nil {
		return product.Product{}, translateErr(err)
	}
	return p, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) ListProducts(ctx context.Context) ([]product.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seller, name, description, content_id, price_usd,
			buyer, buy_price_native, escrow_tx_id, status, created_at, updated_at
		FROM products
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []product.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// --- StoreStore -------------------------------------------------------------

func (s *Store) CreateStore(ctx context.Context, st store.Store) (store.Store, error) {
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	st.CreatedAt = now
	st.UpdatedAt = now

	// The unique index on owner enforces one store per account.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stores (id, owner, metadata_content_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, st.ID, st.Owner, st.MetadataContentID, st.CreatedAt, st.UpdatedAt)
	if err != nil {
		return store.Store{}, translateErr(err)
	}
	return st, nil
}

func (s *Store) GetStore(ctx context.Context, id string) (store.Store, error) {
	return s.getStoreBy(ctx, "id", id)
}

func (s *Store) GetStoreByOwner(ctx context.Context, owner string) (store.Store, error) {
	return s.getStoreBy(ctx, "owner", owner)
}

func (s *Store) getStoreBy(ctx context.Context, column, value string) (store.Store, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT id, owner, metadata_content_id, created_at, updated_at
		FROM stores
		WHERE %s = $1
	`, column), value)

	var st store.Store
	if err := row.Scan(&st.ID, &st.Owner, &st.MetadataContentID, &st.CreatedAt, &st.UpdatedAt); err != nil {
		return store.Store{}, translateErr(err)
	}
	return st, nil
}

func (s *Store) ListStores(ctx context.Context) ([]store.Store, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner, metadata_content_id, created_at, updated_at
		FROM stores
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []store.Store
	for rows.Next() {
		var st store.Store
		if err := rows.Scan(&st.ID, &st.Owner, &st.MetadataContentID, &st.CreatedAt, &st.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, st)
	}
	return result, rows.Err()
}

func (s *Store) CreateStoreProduct(ctx context.Context, p store.Product) (store.Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO store_products (id, store_id, name, description, content_id, price_usd,
			quantity_mode, quantity_remaining, order_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, p.ID, p.StoreID, p.Name, p.Description, p.ContentID, p.PriceUSD,
		p.QuantityMode, p.QuantityRemaining, p.OrderCount, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return store.Product{}, translateErr(err)
	}
	return p, nil
}

func (s *Store) UpdateStoreProduct(ctx context.Context, p store.Product) (store.Product, error) {
	p.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE store_products
		SET name = $2, description = $3, content_id = $4, price_usd = $5,
			quantity_mode = $6, quantity_remaining = $7, order_count = $8, updated_at = $9
		WHERE id = $1
	`, p.ID, p.Name, p.Description, p.ContentID, p.PriceUSD,
		p.QuantityMode, p.QuantityRemaining, p.OrderCount, p.UpdatedAt)
	if err != nil {
		return store.Product{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return store.Product{}, storage.ErrNotFound
	}
	return p, nil
}

func scanStoreProduct(row interface{ Scan(...interface{}) error }) (store.Product, error) {
	var p store.Product
	err := row.Scan(&p.ID, &p.StoreID, &p.Name, &p.Description, &p.ContentID, &p.PriceUSD,
		&p.QuantityMode, &p.QuantityRemaining, &p.OrderCount, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (s *Store) GetStoreProduct(ctx context.Context, id string) (store.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, store_id, name, description, content_id, price_usd,
			quantity_mode, quantity_remaining, order_count, created_at, updated_at
		FROM store_products
		WHERE id = $1
	`, id)

	p, err := scanStoreProduct(row)
	if err != nil {
		return store.Product{}, translateErr(err)
	}
	return p, nil
}

func (s *Store) DeleteStoreProduct(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM store_products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) ListStoreProducts(ctx context.Context, storeID string) ([]store.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, store_id, name, description, content_id, price_usd,
			quantity_mode, quantity_remaining, order_count, created_at, updated_at
		FROM store_products
		WHERE store_id = $1
		ORDER BY created_at
	`, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []store.Product
	for rows.Next() {
		p, err := scanStoreProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (s *Store) CreateOrder(ctx context.Context, o store.Order) (store.Order, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO store_orders (id, store_id, product_id, buyer, quantity,
			total_price_native, has_been_reviewed, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, o.ID, o.StoreID, o.ProductID, o.Buyer, o.Quantity,
		o.TotalPriceNative, o.HasBeenReviewed, o.Status, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return store.Order{}, translateErr(err)
	}
	return o, nil
}

func (s *Store) UpdateOrder(ctx context.Context, o store.Order) (store.Order, error) {
	o.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE store_orders
		SET has_been_reviewed = $2, status = $3, updated_at = $4
		WHERE id = $1
	`, o.ID, o.HasBeenReviewed, o.Status, o.UpdatedAt)
	if err != nil {
		return store.Order{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return store.Order{}, storage.ErrNotFound
	}
	return o, nil
}

func scanOrder(row interface{ Scan(...interface{}) error }) (store.Order, error) {
	var o store.Order
	err := row.Scan(&o.ID, &o.StoreID, &o.ProductID, &o.Buyer, &o.Quantity,
		&o.TotalPriceNative, &o.HasBeenReviewed, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func (s *Store) GetOrder(ctx context.Context, id string) (store.Order, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, store_id, product_id, buyer, quantity,
			total_price_native, has_been_reviewed, status, created_at, updated_at
		FROM store_orders
		WHERE id = $1
	`, id)

	o, err := scanOrder(row)
	if err != nil {
		return store.Order{}, translateErr(err)
	}
	return o, nil
}

func (s *Store) ListOrders(ctx context.Context, storeID string) ([]store.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, store_id, product_id, buyer, quantity,
			total_price_native, has_been_reviewed, status, created_at, updated_at
		FROM store_orders
		WHERE store_id = $1
		ORDER BY created_at
	`, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []store.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	return result, rows.Err()
}

func (s *Store) CreateReview(ctx context.Context, r store.Review) (store.Review, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO store_reviews (id, order_id, product_id, buyer, rating, review_text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, r.ID, r.OrderID, r.ProductID, r.Buyer, r.Rating, r.Text, r.CreatedAt)
	if err != nil {
		return store.Review{}, translateErr(err)
	}
	return r, nil
}

func (s *Store) ListReviews(ctx context.Context, productID string) ([]store.Review, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, buyer, rating, review_text, created_at
		FROM store_reviews
		WHERE product_id = $1
		ORDER BY created_at
	`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []store.Review
	for rows.Next() {
		var r store.Review
		if err := rows.Scan(&r.ID, &r.OrderID, &r.ProductID, &r.Buyer, &r.Rating, &r.Text, &r.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// --- AuctionStore -----------------------------------------------------------

func (s *Store) CreateAuction(ctx context.Context, a auction.Auction) (auction.Auction, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO auctions (id, seller, metadata_content_id, start_price_usd, start_price_native,
			highest_bid_native, highest_bidder, end_time, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, a.ID, a.Seller, a.MetadataContentID, a.StartPriceUSD, a.StartPriceNative,
		a.HighestBidNative, a.HighestBidder, a.EndTime, a.Status, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return auction.Auction{}, translateErr(err)
	}
	return a, nil
}

func (s *Store) UpdateAuction(ctx context.Context, a auction.Auction) (auction.Auction, error) {
	a.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE auctions
		SET highest_bid_native = $2, highest_bidder = $3, end_time = $4, status = $5, updated_at = $6
		WHERE id = $1
	`, a.ID, a.HighestBidNative, a.HighestBidder, a.EndTime, a.Status, a.UpdatedAt)
	if err != nil {
		return auction.Auction{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return auction.Auction{}, storage.ErrNotFound
	}
	return a, nil
}

func scanAuction(row interface{ Scan(...interface{}) error }) (auction.Auction, error) {
	var a auction.Auction
	err := row.Scan(&a.ID, &a.Seller, &a.MetadataContentID, &a.StartPriceUSD, &a.StartPriceNative,
		&a.HighestBidNative, &a.HighestBidder, &a.EndTime, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (s *Store) GetAuction(ctx context.Context, id string) (auction.Auction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seller, metadata_content_id, start_price_usd, start_price_native,
			highest_bid_native, highest_bidder, end_time, status, created_at, updated_at
		FROM auctions
		WHERE id = $1
	`, id)

	a, err := scanAuction(row)
	if err != nil {
		return auction.Auction{}, translateErr(err)
	}
	return a, nil
}

func (s *Store) ListAuctions(ctx context.Context) ([]auction.Auction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seller, metadata_content_id, start_price_usd, start_price_native,
			highest_bid_native, highest_bidder, end_time, status, created_at, updated_at
		FROM auctions
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []auction.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}
