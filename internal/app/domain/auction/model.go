package auction

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the one-way auction lifecycle.
type Status string

const (
	StatusOpen  Status = "OPEN"
	StatusEnded Status = "ENDED"
)

// Auction is a time-bounded English auction. HighestBidder is empty while no
// bid has been accepted; once a bid exists, HighestBidNative never falls
// below StartPriceNative.
type Auction struct {
	ID                string
	Seller            string
	MetadataContentID string
	StartPriceUSD     decimal.Decimal
	StartPriceNative  decimal.Decimal
	HighestBidNative  decimal.Decimal
	HighestBidder     string
	EndTime           time.Time
	Status            Status
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Bid is a bidder's running commitment to an auction. The cumulative amount
// grows through outbid top-ups and is materialised from the escrow hold for
// the (auction, bidder) pair.
type Bid struct {
	AuctionID        string
	Bidder           string
	CumulativeNative decimal.Decimal
}
