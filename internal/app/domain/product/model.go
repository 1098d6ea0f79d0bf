package product

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status tracks a direct-sale product through its settlement lifecycle.
type Status string

const (
	StatusInSale  Status = "IN_SALE"
	StatusPending Status = "PENDING"
	StatusSent    Status = "SENT"
	StatusSold    Status = "SOLD"
)

// Product is a single-unit listing on the central market. While a purchase
// is in flight, EscrowTxID links the product to its custodial balance; the
// field is cleared again when a pending purchase is cancelled.
type Product struct {
	ID             string
	Seller         string
	Name           string
	Description    string
	ContentID      string
	PriceUSD       decimal.Decimal
	Buyer          string
	BuyPriceNative decimal.Decimal
	EscrowTxID     string
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
