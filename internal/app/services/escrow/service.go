// Package escrow implements custodial fund holding. Funds debited from a
// payer's wallet are held against a transaction id until released to a
// beneficiary, refunded, or withdrawn; each transaction settles at most
// once.
package escrow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	domain "github.com/bazarion/market_engine/internal/app/domain/escrow"
	"github.com/bazarion/market_engine/internal/app/domain/money"
	"github.com/bazarion/market_engine/internal/app/domain/wallet"
	"github.com/bazarion/market_engine/internal/app/metrics"
	"github.com/bazarion/market_engine/internal/app/storage"
	"github.com/bazarion/market_engine/pkg/logger"
)

var (
	// ErrInsufficientFunds reports that the payer's wallet cannot cover the
	// requested amount.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrAlreadySettled reports a second release or refund for a
	// transaction id that has already reached a terminal disposition.
	ErrAlreadySettled = errors.New("transaction already settled")
	// ErrNotWithdrawable reports a withdrawal against a hold that is not in
	// custody anymore (or never was).
	ErrNotWithdrawable = errors.New("balance not withdrawable")
	// ErrBidTooLow reports a non-increasing top-up.
	ErrBidTooLow = errors.New("bid too low")
	// ErrNoHold reports a settlement attempt with nothing in custody.
	ErrNoHold = errors.New("no escrow hold for transaction")
)

// Service owns wallet balances and escrow holds. Every fund movement runs
// under a single mutex so a hold and its wallet debit commit together; the
// owning component's entity lock provides the per-entity ordering on top.
type Service struct {
	wallets  storage.WalletStore
	holds    storage.EscrowStore
	log      *logger.Logger
	treasury string

	mu sync.Mutex
}

// Option configures the service.
type Option func(*Service)

// WithTreasury sets the wallet address that accrues platform fees. Without
// it, release pays the full amount to the beneficiary.
func WithTreasury(address string) Option {
	return func(s *Service) { s.treasury = address }
}

// New constructs the escrow service.
func New(wallets storage.WalletStore, holds storage.EscrowStore, log *logger.Logger, opts ...Option) *Service {
	if log == nil {
		log = logger.NewDefault("escrow")
	}
	s := &Service{wallets: wallets, holds: holds, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Treasury returns the fee-accrual address, empty when fees are disabled.
func (s *Service) Treasury() string { return s.treasury }

// EnsureWallet creates the wallet for an address if it does not exist.
func (s *Service) EnsureWallet(ctx context.Context, address string) (wallet.Wallet, error) {
	return s.wallets.EnsureWallet(ctx, address)
}

// Deposit credits a wallet with native-currency funds.
func (s *Service) Deposit(ctx context.Context, address string, amount decimal.Decimal) (wallet.Wallet, error) {
	if amount.Sign() <= 0 {
		return wallet.Wallet{}, money.ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creditLocked(ctx, address, amount)
}

// Balance returns the available balance for an address, zero when the
// wallet does not exist yet.
func (s *Service) Balance(ctx context.Context, address string) (decimal.Decimal, error) {
	w, err := s.wallets.GetWallet(ctx, address)
	if errors.Is(err, storage.ErrNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return w.Available, nil
}

// Pay moves funds directly between wallets without custody; used for
// immediate charges such as the store-creation fee.
func (s *Service) Pay(ctx context.Context, from, to string, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return money.ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.debitLocked(ctx, from, amount); err != nil {
		return err
	}
	if _, err := s.creditLocked(ctx, to, amount); err != nil {
		return err
	}
	return nil
}

// Hold debits the payer and places the amount in custody for txID. A
// transaction that already settled, or that already holds funds from this
// payer, is rejected.
func (s *Service) Hold(ctx context.Context, txID, payer string, amount decimal.Decimal) (domain.Hold, error) {
	if amount.Sign() <= 0 {
		return domain.Hold{}, money.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guardUnsettledLocked(ctx, txID); err != nil {
		return domain.Hold{}, err
	}
	if existing, err := s.holds.GetHold(ctx, txID, payer); err == nil && existing.Status == domain.StatusHeld {
		return domain.Hold{}, fmt.Errorf("hold %s/%s: %w", txID, payer, storage.ErrAlreadyExists)
	}

	if err := s.debitLocked(ctx, payer, amount); err != nil {
		return domain.Hold{}, err
	}
	h, err := s.holds.PutHold(ctx, domain.Hold{TxID: txID, Payer: payer, Amount: amount, Status: domain.StatusHeld})
	if err != nil {
		// put the debited funds back; the hold never existed
		_, _ = s.creditLocked(ctx, payer, amount)
		return domain.Hold{}, err
	}
	metrics.ObserveHold()
	return h, nil
}

// TopUp increases the payer's custody for txID by amount, creating the hold
// on a first bid or after a withdrawal. The increment must be positive.
func (s *Service) TopUp(ctx context.Context, txID, payer string, amount decimal.Decimal) (domain.Hold, error) {
	if amount.Sign() <= 0 {
		return domain.Hold{}, ErrBidTooLow
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guardUnsettledLocked(ctx, txID); err != nil {
		return domain.Hold{}, err
	}

	cumulative := amount
	existing, err := s.holds.GetHold(ctx, txID, payer)
	switch {
	case err == nil && existing.Status == domain.StatusHeld:
		cumulative = existing.Amount.Add(amount)
	case err == nil && (existing.Status == domain.StatusReleased || existing.Status == domain.StatusRefunded):
		return domain.Hold{}, ErrAlreadySettled
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		return domain.Hold{}, err
	}

	if err := s.debitLocked(ctx, payer, amount); err != nil {
		return domain.Hold{}, err
	}
	h, err := s.holds.PutHold(ctx, domain.Hold{TxID: txID, Payer: payer, Amount: cumulative, Status: domain.StatusHeld})
	if err != nil {
		_, _ = s.creditLocked(ctx, payer, amount)
		return domain.Hold{}, err
	}
	metrics.ObserveHold()
	return h, nil
}

// Release pays the held balance to the beneficiary, skimming the platform
// fee into the treasury, and marks txID settled. At most one release or
// refund ever succeeds per transaction id.
func (s *Service) Release(ctx context.Context, txID, payer, to string, feeBps int64) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := s.settleHoldLocked(ctx, txID, payer, domain.DispositionReleased)
	if err != nil {
		return decimal.Zero, err
	}

	fee, net := money.FeeSplit(h.Amount, feeBps)
	if fee.Sign() > 0 && s.treasury != "" {
		if _, err := s.creditLocked(ctx, s.treasury, fee); err != nil {
			return decimal.Zero, err
		}
	} else {
		net = h.Amount
	}
	if _, err := s.creditLocked(ctx, to, net); err != nil {
		return decimal.Zero, err
	}

	metrics.ObserveSettlement("released")
	s.log.WithField("tx_id", txID).WithField("to", to).Infof("escrow released %s (fee %s)", net, fee)
	return net, nil
}

// Refund returns the full held balance to the payer and marks txID settled;
// mutually exclusive with Release.
func (s *Service) Refund(ctx context.Context, txID, payer string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := s.settleHoldLocked(ctx, txID, payer, domain.DispositionRefunded)
	if err != nil {
		return decimal.Zero, err
	}
	if _, err := s.creditLocked(ctx, payer, h.Amount); err != nil {
		return decimal.Zero, err
	}

	metrics.ObserveSettlement("refunded")
	s.log.WithField("tx_id", txID).WithField("payer", payer).Infof("escrow refunded %s", h.Amount)
	return h.Amount, nil
}

// Withdraw releases a hold back to its payer without settling the
// transaction; used by non-winning auction bidders. A hold that was already
// released, refunded or withdrawn is not withdrawable.
func (s *Service) Withdraw(ctx context.Context, txID, payer string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := s.holds.GetHold(ctx, txID, payer)
	if errors.Is(err, storage.ErrNotFound) {
		return decimal.Zero, ErrNotWithdrawable
	}
	if err != nil {
		return decimal.Zero, err
	}
	if h.Status != domain.StatusHeld {
		return decimal.Zero, ErrNotWithdrawable
	}

	h.Status = domain.StatusWithdrawn
	amount := h.Amount
	h.Amount = decimal.Zero
	if _, err := s.holds.PutHold(ctx, h); err != nil {
		return decimal.Zero, err
	}
	if _, err := s.creditLocked(ctx, payer, amount); err != nil {
		return decimal.Zero, err
	}

	s.log.WithField("tx_id", txID).WithField("payer", payer).Infof("escrow withdrawn %s", amount)
	return amount, nil
}

// HeldAmount returns the payer's current custody for txID, zero when no
// active hold exists.
func (s *Service) HeldAmount(ctx context.Context, txID, payer string) (decimal.Decimal, error) {
	h, err := s.holds.GetHold(ctx, txID, payer)
	if errors.Is(err, storage.ErrNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	if h.Status != domain.StatusHeld {
		return decimal.Zero, nil
	}
	return h.Amount, nil
}

// ListHolds returns every hold recorded under a transaction id.
func (s *Service) ListHolds(ctx context.Context, txID string) ([]domain.Hold, error) {
	return s.holds.ListHolds(ctx, txID)
}

// Settlement reports how a transaction id settled. storage.ErrNotFound is
// returned while the transaction is still open.
func (s *Service) Settlement(ctx context.Context, txID string) (domain.Settlement, error) {
	return s.holds.GetSettlement(ctx, txID)
}

// Released reports whether txID settled by release to the beneficiary.
// Services use it to resume a terminal status transition whose settlement
// committed on an earlier, partially failed attempt.
func (s *Service) Released(ctx context.Context, txID string) bool {
	settled, err := s.holds.GetSettlement(ctx, txID)
	return err == nil && settled.Disposition == domain.DispositionReleased
}

// Refunded is the refund-side counterpart of Released.
func (s *Service) Refunded(ctx context.Context, txID string) bool {
	settled, err := s.holds.GetSettlement(ctx, txID)
	return err == nil && settled.Disposition == domain.DispositionRefunded
}

// guardUnsettledLocked rejects new custody against a transaction id that
// already settled.
func (s *Service) guardUnsettledLocked(ctx context.Context, txID string) error {
	_, err := s.holds.GetSettlement(ctx, txID)
	if err == nil {
		return ErrAlreadySettled
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	return nil
}

// settleHoldLocked claims the at-most-once settlement slot for txID and
// moves the payer's hold to its terminal status.
func (s *Service) settleHoldLocked(ctx context.Context, txID, payer string, disp domain.Disposition) (domain.Hold, error) {
	h, err := s.holds.GetHold(ctx, txID, payer)
	if errors.Is(err, storage.ErrNotFound) {
		if _, serr := s.holds.GetSettlement(ctx, txID); serr == nil {
			return domain.Hold{}, ErrAlreadySettled
		}
		return domain.Hold{}, ErrNoHold
	}
	if err != nil {
		return domain.Hold{}, err
	}
	if h.Status != domain.StatusHeld {
		return domain.Hold{}, ErrAlreadySettled
	}

	if _, err := s.holds.CreateSettlement(ctx, domain.Settlement{TxID: txID, Disposition: disp}); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return domain.Hold{}, ErrAlreadySettled
		}
		return domain.Hold{}, err
	}

	switch disp {
	case domain.DispositionReleased:
		h.Status = domain.StatusReleased
	case domain.DispositionRefunded:
		h.Status = domain.StatusRefunded
	}
	if _, err := s.holds.PutHold(ctx, h); err != nil {
		return domain.Hold{}, err
	}
	return h, nil
}

func (s *Service) debitLocked(ctx context.Context, address string, amount decimal.Decimal) error {
	w, err := s.wallets.GetWallet(ctx, address)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrInsufficientFunds
	}
	if err != nil {
		return err
	}
	if w.Available.LessThan(amount) {
		return ErrInsufficientFunds
	}
	_, err = s.wallets.SetWalletBalance(ctx, address, w.Available.Sub(amount))
	return err
}

func (s *Service) creditLocked(ctx context.Context, address string, amount decimal.Decimal) (wallet.Wallet, error) {
	w, err := s.wallets.EnsureWallet(ctx, address)
	if err != nil {
		return wallet.Wallet{}, err
	}
	return s.wallets.SetWalletBalance(ctx, address, w.Available.Add(amount))
}
