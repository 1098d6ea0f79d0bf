package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/bazarion/market_engine/internal/app/domain/escrow"
	"github.com/bazarion/market_engine/internal/app/domain/product"
	"github.com/bazarion/market_engine/internal/app/domain/store"
	"github.com/bazarion/market_engine/internal/app/storage"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("open sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func TestGetWallet(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT address, available, created_at, updated_at")).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"address", "available", "created_at", "updated_at"}).
			AddRow("alice", "12.5", now, now))

	w, err := s.GetWallet(context.Background(), "alice")
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if !w.Available.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("expected available 12.5, got %s", w.Available)
	}
}

func TestGetWalletNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT address, available, created_at, updated_at")).
		WithArgs("nobody").
		WillReturnRows(sqlmock.NewRows([]string{"address", "available", "created_at", "updated_at"}))

	if _, err := s.GetWallet(context.Background(), "nobody"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetWalletBalanceMissingWallet(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE wallets")).
		WithArgs("nobody", decimal.NewFromInt(1), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if _, err := s.SetWalletBalance(context.Background(), "nobody", decimal.NewFromInt(1)); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateSettlementDuplicate(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO escrow_settlements")).
		WithArgs("tx-1", escrow.DispositionReleased, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO escrow_settlements")).
		WithArgs("tx-1", escrow.DispositionRefunded, sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "23505"})

	ctx := context.Background()
	if _, err := s.CreateSettlement(ctx, escrow.Settlement{TxID: "tx-1", Disposition: escrow.DispositionReleased}); err != nil {
		t.Fatalf("first settlement: %v", err)
	}
	if _, err := s.CreateSettlement(ctx, escrow.Settlement{TxID: "tx-1", Disposition: escrow.DispositionRefunded}); !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists on duplicate settlement, got %v", err)
	}
}

func TestCreateProductAssignsID(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO products")).
		WithArgs(sqlmock.AnyArg(), "seller", "Lamp", "", "", decimal.RequireFromString("100"),
			"", decimal.Decimal{}, "", product.StatusInSale, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	p, err := s.CreateProduct(context.Background(), product.Product{
		Seller:   "seller",
		Name:     "Lamp",
		PriceUSD: decimal.RequireFromString("100"),
		Status:   product.StatusInSale,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if p.ID == "" {
		t.Fatal("expected generated id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateProductNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE products")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := s.UpdateProduct(context.Background(), product.Product{ID: "missing", PriceUSD: decimal.NewFromInt(1)})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateStoreDuplicateOwner(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO stores")).
		WillReturnError(&pq.Error{Code: "23505"})

	if _, err := s.CreateStore(context.Background(), store.Store{Owner: "owner"}); !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestListHolds(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT tx_id, payer, amount, status, created_at, updated_at")).
		WithArgs("auction-1").
		WillReturnRows(sqlmock.NewRows([]string{"tx_id", "payer", "amount", "status", "created_at", "updated_at"}).
			AddRow("auction-1", "alice", "1", escrow.StatusWithdrawn, now, now).
			AddRow("auction-1", "bob", "1.5", escrow.StatusHeld, now, now))

	holds, err := s.ListHolds(context.Background(), "auction-1")
	if err != nil {
		t.Fatalf("list holds: %v", err)
	}
	if len(holds) != 2 {
		t.Fatalf("expected 2 holds, got %d", len(holds))
	}
	if holds[1].Payer != "bob" || !holds[1].Amount.Equal(decimal.RequireFromString("1.5")) {
		t.Fatalf("unexpected hold %+v", holds[1])
	}
}
