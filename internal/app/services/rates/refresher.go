package rates

import (
	"context"
	"sync"
	"time"

	"github.com/bazarion/market_engine/internal/app/system"
	"github.com/bazarion/market_engine/pkg/logger"
)

var _ system.Service = (*Refresher)(nil)

// Refresher keeps the oracle's cached rate warm so binding conversions
// rarely block on the source. Conversions still honour the freshness window
// regardless of the refresher's schedule.
type Refresher struct {
	oracle   *Oracle
	log      *logger.Logger
	interval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewRefresher creates a lifecycle-managed rate refresher.
func NewRefresher(oracle *Oracle, interval time.Duration, log *logger.Logger) *Refresher {
	if log == nil {
		log = logger.NewDefault("rates-refresher")
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Refresher{
		oracle:   oracle,
		log:      log,
		interval: interval,
	}
}

func (r *Refresher) Name() string { return "rates-refresher" }

func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				if err := r.oracle.Refresh(runCtx); err != nil {
					r.log.WithError(err).Warn("rate refresh failed")
				}
			}
		}
	}()

	r.log.Info("rate refresher started")
	return nil
}

func (r *Refresher) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	cancel := r.cancel
	r.running = false
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}
