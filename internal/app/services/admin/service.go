// Package admin holds platform-level configuration that only the platform
// administrator may change: settlement fee rates and the store-creation
// charge.
package admin

import (
	"errors"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/bazarion/market_engine/pkg/logger"
)

// ErrNotAdmin reports a fee change attempted by a non-admin account.
var ErrNotAdmin = errors.New("caller is not the platform administrator")

// ErrInvalidFee reports a fee outside the accepted range.
var ErrInvalidFee = errors.New("invalid fee")

// maxFeeBps caps settlement fees at 10%.
const maxFeeBps = 1000

// Fees carries the platform fee schedule. Basis-point fees apply to
// escrow releases; the store-creation fee is a flat USD charge.
type Fees struct {
	MarketFeeBps      int64           `json:"marketFeeBps" yaml:"market_fee_bps"`
	StoreFeeBps       int64           `json:"storeFeeBps" yaml:"store_fee_bps"`
	AuctionFeeBps     int64           `json:"auctionFeeBps" yaml:"auction_fee_bps"`
	CreateStoreFeeUSD decimal.Decimal `json:"createStoreFeeUsd" yaml:"create_store_fee_usd"`
}

// DefaultFees returns the fee schedule the platform launches with.
func DefaultFees() Fees {
	return Fees{
		MarketFeeBps:      50,
		StoreFeeBps:       30,
		AuctionFeeBps:     50,
		CreateStoreFeeUSD: decimal.NewFromInt(25),
	}
}

// Service answers fee lookups and gates fee changes behind the admin
// account.
type Service struct {
	log   *logger.Logger
	admin string

	mu   sync.RWMutex
	fees Fees
}

// New constructs the admin service. The admin address is compared
// case-insensitively; an empty address locks the fee schedule.
func New(adminAddress string, fees Fees, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("admin")
	}
	return &Service{
		log:   log,
		admin: strings.ToLower(strings.TrimSpace(adminAddress)),
		fees:  fees,
	}
}

// IsAdmin reports whether the given account is the platform administrator.
func (s *Service) IsAdmin(account string) bool {
	return s.admin != "" && strings.EqualFold(strings.TrimSpace(account), s.admin)
}

// Fees returns the current fee schedule.
func (s *Service) Fees() Fees {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fees
}

// SetFees replaces the fee schedule. Only the administrator may call it.
func (s *Service) SetFees(caller string, fees Fees) error {
	if !s.IsAdmin(caller) {
		return ErrNotAdmin
	}
	if err := validateFees(fees); err != nil {
		return err
	}

	s.mu.Lock()
	s.fees = fees
	s.mu.Unlock()

	s.log.WithFields(map[string]interface{}{
		"market_fee_bps":  fees.MarketFeeBps,
		"store_fee_bps":   fees.StoreFeeBps,
		"auction_fee_bps": fees.AuctionFeeBps,
	}).Infof("fee schedule updated")
	return nil
}

func validateFees(fees Fees) error {
	for _, bps := range []int64{fees.MarketFeeBps, fees.StoreFeeBps, fees.AuctionFeeBps} {
		if bps < 0 || bps > maxFeeBps {
			return ErrInvalidFee
		}
	}
	if fees.CreateStoreFeeUSD.Sign() < 0 {
		return ErrInvalidFee
	}
	return nil
}
