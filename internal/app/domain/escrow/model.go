package escrow

import (
	"time"

	"github.com/shopspring/decimal"
)

// HoldStatus is the disposition of a custodial balance.
type HoldStatus string

const (
	StatusHeld      HoldStatus = "HELD"
	StatusReleased  HoldStatus = "RELEASED"
	StatusRefunded  HoldStatus = "REFUNDED"
	StatusWithdrawn HoldStatus = "WITHDRAWN"
)

// Hold is a custodial balance keyed by transaction id and payer. Direct
// purchases and store orders have a single hold per transaction; auctions
// carry one hold per bidder under the auction's transaction id.
type Hold struct {
	TxID      string
	Payer     string
	Amount    decimal.Decimal
	Status    HoldStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Disposition records how a transaction was settled.
type Disposition string

const (
	DispositionReleased Disposition = "RELEASED"
	DispositionRefunded Disposition = "REFUNDED"
)

// Settlement marks a transaction id as terminally settled. At most one
// settlement exists per transaction id, which is what makes release and
// refund mutually exclusive and at-most-once.
type Settlement struct {
	TxID        string
	Disposition Disposition
	SettledAt   time.Time
}
