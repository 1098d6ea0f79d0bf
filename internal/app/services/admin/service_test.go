package admin

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestSetFeesRequiresAdmin(t *testing.T) {
	svc := New("admin-account", DefaultFees(), nil)

	next := DefaultFees()
	next.MarketFeeBps = 100
	if err := svc.SetFees("mallory", next); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("expected ErrNotAdmin, got %v", err)
	}
	if got := svc.Fees().MarketFeeBps; got != 50 {
		t.Fatalf("fee schedule changed by non-admin: %d", got)
	}

	if err := svc.SetFees("Admin-Account", next); err != nil {
		t.Fatalf("admin set fees: %v", err)
	}
	if got := svc.Fees().MarketFeeBps; got != 100 {
		t.Fatalf("expected updated market fee 100, got %d", got)
	}
}

func TestSetFeesValidatesRange(t *testing.T) {
	svc := New("admin", DefaultFees(), nil)

	bad := DefaultFees()
	bad.AuctionFeeBps = 5000
	if err := svc.SetFees("admin", bad); !errors.Is(err, ErrInvalidFee) {
		t.Fatalf("expected ErrInvalidFee for oversized bps, got %v", err)
	}

	bad = DefaultFees()
	bad.CreateStoreFeeUSD = decimal.NewFromInt(-1)
	if err := svc.SetFees("admin", bad); !errors.Is(err, ErrInvalidFee) {
		t.Fatalf("expected ErrInvalidFee for negative store fee, got %v", err)
	}
}

func TestNoAdminLocksFees(t *testing.T) {
	svc := New("", DefaultFees(), nil)
	if err := svc.SetFees("anyone", DefaultFees()); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("expected ErrNotAdmin with no admin configured, got %v", err)
	}
	if svc.IsAdmin("") {
		t.Fatal("empty account must never be admin")
	}
}

func TestDefaultFees(t *testing.T) {
	fees := DefaultFees()
	if fees.MarketFeeBps != 50 || fees.StoreFeeBps != 30 || fees.AuctionFeeBps != 50 {
		t.Fatalf("unexpected default bps: %+v", fees)
	}
	if !fees.CreateStoreFeeUSD.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("unexpected store creation fee: %s", fees.CreateStoreFeeUSD)
	}
}
