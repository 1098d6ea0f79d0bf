package store

import (
	"time"

	"github.com/shopspring/decimal"
)

// QuantityMode selects whether product stock is decremented on purchase.
type QuantityMode string

const (
	QuantityFixed     QuantityMode = "FIXED"
	QuantityUnlimited QuantityMode = "UNLIMITED"
)

// OrderStatus tracks a store order through fulfilment.
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderSent      OrderStatus = "SENT"
	OrderCompleted OrderStatus = "COMPLETED"
	OrderCancelled OrderStatus = "CANCELLED"
)

// Store is a per-seller shop. One store per owner; creation charges a
// USD-denominated fee converted at call time.
type Store struct {
	ID                string
	Owner             string
	MetadataContentID string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Product is a multi-unit listing owned by a store. QuantityRemaining is
// meaningful only in FIXED mode. A product is removable only while
// OrderCount is zero.
type Product struct {
	ID                string
	StoreID           string
	Name              string
	Description       string
	ContentID         string
	PriceUSD          decimal.Decimal
	QuantityMode      QuantityMode
	QuantityRemaining int64
	OrderCount        int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Order is an escrowed multi-unit purchase against a store product. The
// order id doubles as the escrow transaction id.
type Order struct {
	ID               string
	StoreID          string
	ProductID        string
	Buyer            string
	Quantity         int64
	TotalPriceNative decimal.Decimal
	HasBeenReviewed  bool
	Status           OrderStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Review is the single buyer review permitted per completed order.
type Review struct {
	ID        string
	OrderID   string
	ProductID string
	Buyer     string
	Rating    int
	Text      string
	CreatedAt time.Time
}
