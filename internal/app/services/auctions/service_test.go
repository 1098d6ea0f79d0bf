package auctions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/bazarion/market_engine/internal/app/domain/auction"
	"github.com/bazarion/market_engine/internal/app/services/admin"
	"github.com/bazarion/market_engine/internal/app/services/escrow"
	"github.com/bazarion/market_engine/internal/app/services/rates"
	"github.com/bazarion/market_engine/internal/app/storage/memory"
)

type fixture struct {
	auctions *Service
	escrow   *escrow.Service
	now      time.Time
}

// newFixture wires the auction house over a memory store with a fixed rate
// of 50 USD per native unit, no fees, and a controllable clock.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	esc := escrow.New(store, store, nil, escrow.WithTreasury("treasury"))
	oracle := rates.New(rates.NewFixedSource(decimal.NewFromInt(50)), nil)
	fees := admin.DefaultFees()
	fees.AuctionFeeBps = 0
	adm := admin.New("admin", fees, nil)

	f := &fixture{escrow: esc, now: time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)}
	f.auctions = New(store, esc, oracle, adm, nil, WithClock(func() time.Time { return f.now }))
	return f
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (f *fixture) fund(t *testing.T, address, amount string) {
	t.Helper()
	if _, err := f.escrow.Deposit(context.Background(), address, dec(amount)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
}

func (f *fixture) balance(t *testing.T, address string) decimal.Decimal {
	t.Helper()
	b, err := f.escrow.Balance(context.Background(), address)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return b
}

// start opens an auction at 50 USD (1 native at rate 50) for one hour.
func (f *fixture) start(t *testing.T) domain.Auction {
	t.Helper()
	a, err := f.auctions.StartAuction(context.Background(), "seller", "", dec("50"), time.Hour)
	if err != nil {
		t.Fatalf("start auction: %v", err)
	}
	return a
}

func TestStartAuctionConvertsFloor(t *testing.T) {
	f := newFixture(t)
	a := f.start(t)

	if !a.StartPriceNative.Equal(dec("1")) {
		t.Fatalf("expected floor 1 native, got %s", a.StartPriceNative)
	}
	if !a.HighestBidNative.IsZero() || a.HighestBidder != "" {
		t.Fatalf("expected empty bid state, got %+v", a)
	}
	if got, want := a.EndTime, f.now.Add(time.Hour); !got.Equal(want) {
		t.Fatalf("expected end time %v, got %v", want, got)
	}

	if _, err := f.auctions.StartAuction(context.Background(), "seller", "", dec("0"), time.Hour); !errors.Is(err, ErrInvalidAuction) {
		t.Fatalf("expected ErrInvalidAuction for zero price, got %v", err)
	}
	if _, err := f.auctions.StartAuction(context.Background(), "seller", "", dec("50"), 0); !errors.Is(err, ErrInvalidAuction) {
		t.Fatalf("expected ErrInvalidAuction for zero duration, got %v", err)
	}
}

// TestOutbidWithdrawSettle walks the full two-bidder flow: A opens at the
// floor, B underbids and then overtakes, A withdraws, the seller settles.
func TestOutbidWithdrawSettle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.start(t)
	f.fund(t, "alice", "2")
	f.fund(t, "bob", "2")

	// A bid equal to the floor succeeds: it exceeds the zero highest bid.
	got, err := f.auctions.Bid(ctx, a.ID, "alice", dec("1"))
	if err != nil {
		t.Fatalf("alice bid: %v", err)
	}
	if got.HighestBidder != "alice" || !got.HighestBidNative.Equal(dec("1")) {
		t.Fatalf("expected alice leading at 1, got %+v", got)
	}

	// 0.9 does not beat 1.
	if _, err := f.auctions.Bid(ctx, a.ID, "bob", dec("0.9")); !errors.Is(err, ErrBidTooLow) {
		t.Fatalf("expected ErrBidTooLow, got %v", err)
	}
	if held, _ := f.auctions.GetUserBidAmount(ctx, a.ID, "bob"); !held.IsZero() {
		t.Fatalf("rejected bid must not hold funds, held %s", held)
	}

	got, err = f.auctions.Bid(ctx, a.ID, "bob", dec("1.5"))
	if err != nil {
		t.Fatalf("bob bid: %v", err)
	}
	if got.HighestBidder != "bob" || !got.HighestBidNative.Equal(dec("1.5")) {
		t.Fatalf("expected bob leading at 1.5, got %+v", got)
	}

	// Displaced bidder withdraws; the leader cannot.
	if _, err := f.auctions.WithdrawBid(ctx, a.ID, "bob"); !errors.Is(err, ErrCannotWithdrawLeadingBid) {
		t.Fatalf("expected ErrCannotWithdrawLeadingBid, got %v", err)
	}
	amount, err := f.auctions.WithdrawBid(ctx, a.ID, "alice")
	if err != nil {
		t.Fatalf("alice withdraw: %v", err)
	}
	if !amount.Equal(dec("1")) {
		t.Fatalf("expected withdrawal 1, got %s", amount)
	}
	if held, _ := f.auctions.GetUserBidAmount(ctx, a.ID, "alice"); !held.IsZero() {
		t.Fatalf("expected alice held amount reset, got %s", held)
	}

	// Settlement waits for the end time and the seller.
	if _, err := f.auctions.EndAuction(ctx, a.ID, "seller"); !errors.Is(err, ErrTooEarly) {
		t.Fatalf("expected ErrTooEarly, got %v", err)
	}
	f.now = f.now.Add(2 * time.Hour)
	if _, err := f.auctions.EndAuction(ctx, a.ID, "alice"); !errors.Is(err, ErrNotSeller) {
		t.Fatalf("expected ErrNotSeller, got %v", err)
	}

	ended, err := f.auctions.EndAuction(ctx, a.ID, "seller")
	if err != nil {
		t.Fatalf("end auction: %v", err)
	}
	if ended.Status != domain.StatusEnded {
		t.Fatalf("expected ENDED, got %s", ended.Status)
	}
	if b := f.balance(t, "seller"); !b.Equal(dec("1.5")) {
		t.Fatalf("expected seller paid 1.5, got %s", b)
	}

	// Nothing left for alice; the winner has nothing withdrawable either.
	if _, err := f.auctions.WithdrawBid(ctx, a.ID, "alice"); !errors.Is(err, escrow.ErrNotWithdrawable) {
		t.Fatalf("expected ErrNotWithdrawable for alice, got %v", err)
	}
	if _, err := f.auctions.WithdrawBid(ctx, a.ID, "bob"); !errors.Is(err, escrow.ErrNotWithdrawable) {
		t.Fatalf("expected ErrNotWithdrawable for winner, got %v", err)
	}
}

func TestBidGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.start(t)
	f.fund(t, "seller", "5")
	f.fund(t, "alice", "5")

	if _, err := f.auctions.Bid(ctx, a.ID, "seller", dec("2")); !errors.Is(err, ErrOwnAuction) {
		t.Fatalf("expected ErrOwnAuction, got %v", err)
	}
	// Below the floor even though it beats the zero highest bid.
	if _, err := f.auctions.Bid(ctx, a.ID, "alice", dec("0.5")); !errors.Is(err, ErrBidTooLow) {
		t.Fatalf("expected ErrBidTooLow below floor, got %v", err)
	}
	if _, err := f.auctions.Bid(ctx, a.ID, "alice", dec("1")); err != nil {
		t.Fatalf("bid: %v", err)
	}
	// A tie with the current highest loses.
	if _, err := f.auctions.Bid(ctx, a.ID, "bob", dec("1")); !errors.Is(err, ErrBidTooLow) {
		t.Fatalf("expected ErrBidTooLow on tie, got %v", err)
	}

	f.now = f.now.Add(2 * time.Hour)
	if _, err := f.auctions.Bid(ctx, a.ID, "alice", dec("1")); !errors.Is(err, ErrAuctionClosed) {
		t.Fatalf("expected ErrAuctionClosed past end time, got %v", err)
	}
}

func TestCumulativeTopUps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.start(t)
	f.fund(t, "alice", "5")
	f.fund(t, "bob", "5")

	if _, err := f.auctions.Bid(ctx, a.ID, "alice", dec("1")); err != nil {
		t.Fatalf("alice bid: %v", err)
	}
	if _, err := f.auctions.Bid(ctx, a.ID, "bob", dec("2")); err != nil {
		t.Fatalf("bob bid: %v", err)
	}

	// Alice only needs the increment over her prior hold to retake the lead.
	got, err := f.auctions.Bid(ctx, a.ID, "alice", dec("1.5"))
	if err != nil {
		t.Fatalf("alice top-up: %v", err)
	}
	if got.HighestBidder != "alice" || !got.HighestBidNative.Equal(dec("2.5")) {
		t.Fatalf("expected alice leading at 2.5, got %+v", got)
	}
	if held, _ := f.auctions.GetUserBidAmount(ctx, a.ID, "alice"); !held.Equal(dec("2.5")) {
		t.Fatalf("expected cumulative 2.5, got %s", held)
	}

	bids, err := f.auctions.ListBids(ctx, a.ID)
	if err != nil {
		t.Fatalf("list bids: %v", err)
	}
	if len(bids) != 2 {
		t.Fatalf("expected 2 live bids, got %d", len(bids))
	}
}

func TestEndResumesAfterPartialSettlement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.start(t)
	f.fund(t, "alice", "1.5")
	if _, err := f.auctions.Bid(ctx, a.ID, "alice", dec("1.5")); err != nil {
		t.Fatalf("bid: %v", err)
	}
	f.now = f.now.Add(2 * time.Hour)

	// Seller paid but the ENDED status never recorded, as after an end
	// that crashed between the settlement and the status write.
	if _, err := f.escrow.Release(ctx, a.ID, "alice", "seller", 0); err != nil {
		t.Fatalf("release: %v", err)
	}

	got, err := f.auctions.EndAuction(ctx, a.ID, "seller")
	if err != nil {
		t.Fatalf("end after partial settlement: %v", err)
	}
	if got.Status != domain.StatusEnded {
		t.Fatalf("expected ENDED, got %s", got.Status)
	}
	if b := f.balance(t, "seller"); !b.Equal(dec("1.5")) {
		t.Fatalf("expected seller paid exactly once, got %s", b)
	}
	if _, err := f.auctions.EndAuction(ctx, a.ID, "seller"); !errors.Is(err, ErrAuctionClosed) {
		t.Fatalf("expected ErrAuctionClosed after end, got %v", err)
	}
}

func TestEndWithoutBids(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.start(t)

	f.now = f.now.Add(2 * time.Hour)
	ended, err := f.auctions.EndAuction(ctx, a.ID, "seller")
	if err != nil {
		t.Fatalf("end auction: %v", err)
	}
	if ended.Status != domain.StatusEnded {
		t.Fatalf("expected ENDED, got %s", ended.Status)
	}
	if b := f.balance(t, "seller"); !b.IsZero() {
		t.Fatalf("expected no payout, got %s", b)
	}
	if _, err := f.auctions.EndAuction(ctx, a.ID, "seller"); !errors.Is(err, ErrAuctionClosed) {
		t.Fatalf("expected ErrAuctionClosed on second end, got %v", err)
	}
}

func TestAuctionFee(t *testing.T) {
	store := memory.New()
	esc := escrow.New(store, store, nil, escrow.WithTreasury("treasury"))
	oracle := rates.New(rates.NewFixedSource(decimal.NewFromInt(50)), nil)
	adm := admin.New("admin", admin.DefaultFees(), nil)
	now := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	svc := New(store, esc, oracle, adm, nil, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	a, err := svc.StartAuction(ctx, "seller", "", dec("50"), time.Hour)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := esc.Deposit(ctx, "alice", dec("2")); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := svc.Bid(ctx, a.ID, "alice", dec("2")); err != nil {
		t.Fatalf("bid: %v", err)
	}

	now = now.Add(2 * time.Hour)
	if _, err := svc.EndAuction(ctx, a.ID, "seller"); err != nil {
		t.Fatalf("end: %v", err)
	}

	// 50 bps of 2 native is 0.01 to the treasury.
	sellerBal, err := esc.Balance(ctx, "seller")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !sellerBal.Equal(dec("1.99")) {
		t.Fatalf("expected seller balance 1.99, got %s", sellerBal)
	}
}
