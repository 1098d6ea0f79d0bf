package rates

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestConvertAtFixedRate(t *testing.T) {
	oracle := New(NewFixedSource(dec("50")), nil)

	got, err := oracle.Convert(context.Background(), dec("100"))
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if !got.Equal(dec("2")) {
		t.Fatalf("Convert(100) at rate 50 = %s, want 2", got)
	}

	got, err = oracle.Convert(context.Background(), dec("1.99"))
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if !got.Equal(dec("0.0398")) {
		t.Fatalf("Convert(1.99) at rate 50 = %s, want 0.0398", got)
	}
}

func TestRateUnavailable(t *testing.T) {
	oracle := New(SourceFunc(func(context.Context) (decimal.Decimal, error) {
		return decimal.Zero, errors.New("connection refused")
	}), nil)

	if _, err := oracle.Rate(context.Background()); !errors.Is(err, ErrRateUnavailable) {
		t.Fatalf("Rate: got %v, want ErrRateUnavailable", err)
	}
	if _, err := oracle.Convert(context.Background(), dec("1")); !errors.Is(err, ErrRateUnavailable) {
		t.Fatalf("Convert: got %v, want ErrRateUnavailable", err)
	}
}

func TestNonPositiveRateRejected(t *testing.T) {
	oracle := New(SourceFunc(func(context.Context) (decimal.Decimal, error) {
		return decimal.Zero, nil
	}), nil)

	if _, err := oracle.Rate(context.Background()); !errors.Is(err, ErrRateUnavailable) {
		t.Fatalf("Rate: got %v, want ErrRateUnavailable", err)
	}
}

func TestFreshnessWindow(t *testing.T) {
	now := time.Unix(1000, 0)
	calls := 0
	source := SourceFunc(func(context.Context) (decimal.Decimal, error) {
		calls++
		return dec("50"), nil
	})
	oracle := New(source, nil,
		WithFreshness(time.Minute),
		WithClock(func() time.Time { return now }))

	for i := 0; i < 3; i++ {
		if _, err := oracle.Rate(context.Background()); err != nil {
			t.Fatalf("Rate: %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("source queried %d times within freshness window, want 1", calls)
	}

	now = now.Add(2 * time.Minute)
	if _, err := oracle.Rate(context.Background()); err != nil {
		t.Fatalf("Rate: %v", err)
	}
	if calls != 2 {
		t.Fatalf("source queried %d times after window expiry, want 2", calls)
	}
}

func TestStaleRateNeverServed(t *testing.T) {
	now := time.Unix(1000, 0)
	calls := 0
	source := SourceFunc(func(context.Context) (decimal.Decimal, error) {
		calls++
		if calls > 1 {
			return decimal.Zero, errors.New("feed down")
		}
		return dec("50"), nil
	})
	oracle := New(source, nil,
		WithFreshness(time.Minute),
		WithClock(func() time.Time { return now }))

	if _, err := oracle.Rate(context.Background()); err != nil {
		t.Fatalf("Rate: %v", err)
	}

	// The cached rate is past its window and the source is failing; the
	// stale observation must not be reused.
	now = now.Add(2 * time.Minute)
	if _, err := oracle.Rate(context.Background()); !errors.Is(err, ErrRateUnavailable) {
		t.Fatalf("Rate: got %v, want ErrRateUnavailable", err)
	}
}

func TestRefreshReplacesCache(t *testing.T) {
	rate := dec("50")
	source := SourceFunc(func(context.Context) (decimal.Decimal, error) {
		return rate, nil
	})
	oracle := New(source, nil, WithFreshness(time.Hour))

	if _, err := oracle.Rate(context.Background()); err != nil {
		t.Fatalf("Rate: %v", err)
	}

	rate = dec("100")
	if err := oracle.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	got, err := oracle.Rate(context.Background())
	if err != nil {
		t.Fatalf("Rate: %v", err)
	}
	if !got.Equal(dec("100")) {
		t.Fatalf("Rate after refresh = %s, want 100", got)
	}
}

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sekrit" {
			t.Errorf("Authorization header = %q", got)
		}
		w.Write([]byte(`{"market_data":{"current_price":{"usd":"51.25"}}}`))
	}))
	defer srv.Close()

	source, err := NewHTTPSource(srv.Client(), srv.URL, "market_data.current_price.usd", "sekrit", nil)
	if err != nil {
		t.Fatalf("NewHTTPSource: %v", err)
	}

	got, err := source.Rate(context.Background())
	if err != nil {
		t.Fatalf("Rate: %v", err)
	}
	if !got.Equal(dec("51.25")) {
		t.Fatalf("Rate = %s, want 51.25", got)
	}
}

func TestHTTPSourceErrors(t *testing.T) {
	t.Run("bad status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		source, err := NewHTTPSource(srv.Client(), srv.URL, "rate", "", nil)
		if err != nil {
			t.Fatalf("NewHTTPSource: %v", err)
		}
		if _, err := source.Rate(context.Background()); err == nil {
			t.Fatal("expected error on non-200 response")
		}
	})

	t.Run("missing path", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"price":"50"}`))
		}))
		defer srv.Close()

		source, err := NewHTTPSource(srv.Client(), srv.URL, "rate", "", nil)
		if err != nil {
			t.Fatalf("NewHTTPSource: %v", err)
		}
		if _, err := source.Rate(context.Background()); err == nil {
			t.Fatal("expected error when json path is missing")
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		if _, err := NewHTTPSource(nil, "", "rate", "", nil); err == nil {
			t.Fatal("expected error for empty endpoint")
		}
		if _, err := NewHTTPSource(nil, "http://example.com", "", "", nil); err == nil {
			t.Fatal("expected error for empty json path")
		}
	})
}
