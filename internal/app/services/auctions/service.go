// Package auctions implements time-bounded English auctions. Bids are
// cumulative escrow top-ups keyed by the auction id; outbid bidders keep
// their funds held but may withdraw them at any time.
package auctions

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/bazarion/market_engine/internal/app/domain/auction"
	escrowdomain "github.com/bazarion/market_engine/internal/app/domain/escrow"
	"github.com/bazarion/market_engine/internal/app/keylock"
	"github.com/bazarion/market_engine/internal/app/metrics"
	"github.com/bazarion/market_engine/internal/app/services/admin"
	"github.com/bazarion/market_engine/internal/app/services/escrow"
	"github.com/bazarion/market_engine/internal/app/services/rates"
	"github.com/bazarion/market_engine/internal/app/storage"
	"github.com/bazarion/market_engine/pkg/logger"
)

var (
	// ErrInvalidAuction reports a start with a non-positive price or
	// duration.
	ErrInvalidAuction = errors.New("invalid auction")
	// ErrAuctionClosed reports a bid on an ended or expired auction.
	ErrAuctionClosed = errors.New("auction is closed")
	// ErrBidTooLow reports a cumulative bid that does not beat the current
	// highest, or falls short of the start price.
	ErrBidTooLow = errors.New("bid too low")
	// ErrOwnAuction reports a seller bidding on their own auction.
	ErrOwnAuction = errors.New("cannot bid on own auction")
	// ErrCannotWithdrawLeadingBid reports a withdrawal by the current
	// highest bidder.
	ErrCannotWithdrawLeadingBid = errors.New("cannot withdraw the leading bid")
	// ErrTooEarly reports an end before the auction's end time.
	ErrTooEarly = errors.New("auction has not reached its end time")
	// ErrNotSeller reports an end by anyone other than the seller.
	ErrNotSeller = errors.New("caller is not the seller")
)

// Service runs the auction house. Per-auction locks serialize bids against
// each other and against the auction's end.
type Service struct {
	auctions storage.AuctionStore
	escrow   *escrow.Service
	oracle   *rates.Oracle
	fees     *admin.Service
	log      *logger.Logger
	locks    *keylock.Set
	now      func() time.Time
}

// Option configures the service.
type Option func(*Service)

// WithClock overrides the time source; used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New constructs the auction service.
func New(auctions storage.AuctionStore, esc *escrow.Service, oracle *rates.Oracle, fees *admin.Service, log *logger.Logger, opts ...Option) *Service {
	if log == nil {
		log = logger.NewDefault("auctions")
	}
	s := &Service{
		auctions: auctions,
		escrow:   esc,
		oracle:   oracle,
		fees:     fees,
		log:      log,
		locks:    keylock.NewSet(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartAuction opens an auction ending duration from now. The start price
// is converted to native once, at open time, so every bidder competes
// against the same floor.
func (s *Service) StartAuction(ctx context.Context, seller, metadataContentID string, startPriceUSD decimal.Decimal, duration time.Duration) (domain.Auction, error) {
	if startPriceUSD.Sign() <= 0 || duration <= 0 {
		return domain.Auction{}, ErrInvalidAuction
	}

	startNative, err := s.oracle.Convert(ctx, startPriceUSD)
	if err != nil {
		return domain.Auction{}, err
	}

	a, err := s.auctions.CreateAuction(ctx, domain.Auction{
		Seller:            seller,
		MetadataContentID: metadataContentID,
		StartPriceUSD:     startPriceUSD,
		StartPriceNative:  startNative,
		HighestBidNative:  decimal.Zero,
		EndTime:           s.now().Add(duration),
		Status:            domain.StatusOpen,
	})
	if err != nil {
		return domain.Auction{}, err
	}

	s.log.WithFields(map[string]interface{}{
		"auction_id": a.ID,
		"seller":     seller,
		"end_time":   a.EndTime,
	}).Infof("auction opened at %s native floor", startNative)
	return a, nil
}

// Bid adds amount to the bidder's cumulative commitment. The resulting
// cumulative amount must strictly exceed the current highest bid and reach
// at least the start price; ties lose. The displaced bidder's funds stay
// held and become withdrawable.
func (s *Service) Bid(ctx context.Context, auctionID, bidder string, amount decimal.Decimal) (domain.Auction, error) {
	unlock := s.locks.Lock(auctionID)
	defer unlock()

	a, err := s.auctions.GetAuction(ctx, auctionID)
	if err != nil {
		return domain.Auction{}, err
	}
	if a.Status != domain.StatusOpen || !s.now().Before(a.EndTime) {
		return domain.Auction{}, ErrAuctionClosed
	}
	if strings.EqualFold(bidder, a.Seller) {
		return domain.Auction{}, ErrOwnAuction
	}
	if amount.Sign() <= 0 {
		return domain.Auction{}, ErrBidTooLow
	}

	prior, err := s.escrow.HeldAmount(ctx, auctionID, bidder)
	if err != nil {
		return domain.Auction{}, err
	}
	cumulative := prior.Add(amount)
	if !cumulative.GreaterThan(a.HighestBidNative) || cumulative.LessThan(a.StartPriceNative) {
		return domain.Auction{}, ErrBidTooLow
	}

	if _, err := s.escrow.TopUp(ctx, auctionID, bidder, amount); err != nil {
		return domain.Auction{}, err
	}

	a.HighestBidNative = cumulative
	a.HighestBidder = bidder
	a, err = s.auctions.UpdateAuction(ctx, a)
	if err != nil {
		return domain.Auction{}, err
	}

	metrics.ObserveBid()
	s.log.WithFields(map[string]interface{}{
		"auction_id": auctionID,
		"bidder":     bidder,
	}).Infof("bid accepted, cumulative %s native", cumulative)
	return a, nil
}

// WithdrawBid returns the bidder's held funds. The current highest bidder
// cannot withdraw; everyone else can, at any time, even after the auction
// ends.
func (s *Service) WithdrawBid(ctx context.Context, auctionID, bidder string) (decimal.Decimal, error) {
	unlock := s.locks.Lock(auctionID)
	defer unlock()

	a, err := s.auctions.GetAuction(ctx, auctionID)
	if err != nil {
		return decimal.Zero, err
	}
	if a.Status == domain.StatusOpen && bidder == a.HighestBidder {
		return decimal.Zero, ErrCannotWithdrawLeadingBid
	}
	if a.Status == domain.StatusEnded && bidder == a.HighestBidder {
		// The winner's funds went to the seller at settlement.
		return decimal.Zero, escrow.ErrNotWithdrawable
	}
	return s.escrow.Withdraw(ctx, auctionID, bidder)
}

// EndAuction closes the auction once its end time has passed. Only the
// seller may end it; the winning bid, if any, is released to the seller
// minus the auction fee.
func (s *Service) EndAuction(ctx context.Context, auctionID, caller string) (domain.Auction, error) {
	unlock := s.locks.Lock(auctionID)
	defer unlock()

	a, err := s.auctions.GetAuction(ctx, auctionID)
	if err != nil {
		return domain.Auction{}, err
	}
	if a.Seller != caller {
		return domain.Auction{}, ErrNotSeller
	}
	if a.Status != domain.StatusOpen {
		return domain.Auction{}, ErrAuctionClosed
	}
	if s.now().Before(a.EndTime) {
		return domain.Auction{}, ErrTooEarly
	}

	if a.HighestBidder != "" {
		feeBps := s.fees.Fees().AuctionFeeBps
		if _, err := s.escrow.Release(ctx, auctionID, a.HighestBidder, a.Seller, feeBps); err != nil {
			// A prior end may have paid the seller and then failed to record
			// the ENDED status; resume the transition instead of stranding
			// the auction OPEN with its settlement slot consumed.
			if !errors.Is(err, escrow.ErrAlreadySettled) || !s.escrow.Released(ctx, auctionID) {
				return domain.Auction{}, err
			}
		}
	}

	a.Status = domain.StatusEnded
	a, err = s.auctions.UpdateAuction(ctx, a)
	if err != nil {
		return domain.Auction{}, err
	}

	s.log.WithFields(map[string]interface{}{
		"auction_id": auctionID,
		"winner":     a.HighestBidder,
	}).Infof("auction ended at %s native", a.HighestBidNative)
	return a, nil
}

// Get returns a single auction.
func (s *Service) Get(ctx context.Context, auctionID string) (domain.Auction, error) {
	return s.auctions.GetAuction(ctx, auctionID)
}

// ListAll returns every auction, oldest first.
func (s *Service) ListAll(ctx context.Context) ([]domain.Auction, error) {
	return s.auctions.ListAuctions(ctx)
}

// GetUserBidAmount returns the account's cumulative held amount for an
// auction, zero when the account has no live bid.
func (s *Service) GetUserBidAmount(ctx context.Context, auctionID, account string) (decimal.Decimal, error) {
	return s.escrow.HeldAmount(ctx, auctionID, account)
}

// ListBids materialises the auction's live bids from its escrow holds.
func (s *Service) ListBids(ctx context.Context, auctionID string) ([]domain.Bid, error) {
	holds, err := s.escrow.ListHolds(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	bids := make([]domain.Bid, 0, len(holds))
	for _, h := range holds {
		if h.Status != escrowdomain.StatusHeld || h.Amount.Sign() <= 0 {
			continue
		}
		bids = append(bids, domain.Bid{
			AuctionID:        auctionID,
			Bidder:           h.Payer,
			CumulativeNative: h.Amount,
		})
	}
	return bids, nil
}
