package wallet

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet is a native-currency balance for an account address. Available
// funds move into escrow holds on purchase and bid, and back out on
// release, refund and withdrawal.
type Wallet struct {
	Address   string
	Available decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}
