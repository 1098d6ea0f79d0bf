// Package rates implements the price oracle converting reference-currency
// (USD) amounts into the native settlement currency at the live market rate.
package rates

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bazarion/market_engine/internal/app/domain/money"
	"github.com/bazarion/market_engine/internal/app/metrics"
	"github.com/bazarion/market_engine/pkg/logger"
)

// ErrRateUnavailable reports that no rate source could be reached. Callers
// must treat it as retryable and never fall back to a stale rate.
var ErrRateUnavailable = errors.New("exchange rate unavailable")

// Source supplies the current rate as USD per one native unit.
type Source interface {
	Rate(ctx context.Context) (decimal.Decimal, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) (decimal.Decimal, error)

func (f SourceFunc) Rate(ctx context.Context) (decimal.Decimal, error) {
	if f == nil {
		return decimal.Zero, ErrRateUnavailable
	}
	return f(ctx)
}

// FixedSource returns a constant rate. Used for local development and tests.
type FixedSource struct {
	rate decimal.Decimal
}

// NewFixedSource creates a source pinned to the given USD-per-native rate.
func NewFixedSource(rate decimal.Decimal) *FixedSource {
	return &FixedSource{rate: rate}
}

func (f *FixedSource) Rate(context.Context) (decimal.Decimal, error) {
	if f.rate.Sign() <= 0 {
		return decimal.Zero, ErrRateUnavailable
	}
	return f.rate, nil
}

// Oracle converts USD amounts at the live rate, caching the last observation
// within a bounded freshness window. A cached rate past its window is never
// used; the source is queried again and failures surface as
// ErrRateUnavailable.
type Oracle struct {
	source Source
	maxAge time.Duration
	log    *logger.Logger
	now    func() time.Time

	mu        sync.Mutex
	cached    decimal.Decimal
	fetchedAt time.Time
}

// Option configures an Oracle.
type Option func(*Oracle)

// WithFreshness bounds how long a fetched rate may be reused. Zero disables
// caching entirely.
func WithFreshness(d time.Duration) Option {
	return func(o *Oracle) { o.maxAge = d }
}

// WithClock overrides the time source; used by tests.
func WithClock(now func() time.Time) Option {
	return func(o *Oracle) { o.now = now }
}

// New constructs an oracle over the given source.
func New(source Source, log *logger.Logger, opts ...Option) *Oracle {
	if log == nil {
		log = logger.NewDefault("rates")
	}
	o := &Oracle{
		source: source,
		log:    log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Rate returns the current USD-per-native rate.
func (o *Oracle) Rate(ctx context.Context) (decimal.Decimal, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.rateLocked(ctx)
}

func (o *Oracle) rateLocked(ctx context.Context) (decimal.Decimal, error) {
	if o.maxAge > 0 && !o.fetchedAt.IsZero() && o.now().Sub(o.fetchedAt) < o.maxAge {
		return o.cached, nil
	}

	rate, err := o.source.Rate(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrRateUnavailable, err)
	}
	if rate.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: non-positive rate %s", ErrRateUnavailable, rate)
	}

	o.cached = rate
	o.fetchedAt = o.now()
	return rate, nil
}

// Convert turns a USD amount into native units at the current rate. It is
// called fresh at every binding financial action; display prices are
// advisory only.
func (o *Oracle) Convert(ctx context.Context, usd decimal.Decimal) (decimal.Decimal, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	rate, err := o.rateLocked(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return money.ConvertUSD(usd, rate)
}

// Refresh forces a source query, replacing any cached observation.
func (o *Oracle) Refresh(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	rate, err := o.source.Rate(ctx)
	if err != nil {
		metrics.ObserveOracleRefresh(false)
		return fmt.Errorf("%w: %v", ErrRateUnavailable, err)
	}
	if rate.Sign() <= 0 {
		metrics.ObserveOracleRefresh(false)
		return fmt.Errorf("%w: non-positive rate %s", ErrRateUnavailable, rate)
	}
	metrics.ObserveOracleRefresh(true)
	o.cached = rate
	o.fetchedAt = o.now()
	return nil
}
