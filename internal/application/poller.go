package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"moneyrates-service/internal/domain"

	"go.uber.org/zap"
)

// Poller owns the repeating fetch → merge → write → broadcast cycle.
// States: Stopped → Running → Stopping → Stopped. Only context cancellation
// terminates the loop; every other failure is logged and the loop sleeps
// until the next tick.
type Poller struct {
	fiat   FiatSource
	crypto CryptoSource
	writer *RateWriter
	fanout *Fanout

	interval time.Duration
	baseCode string
	baseRate float64
	clock    Clock
	log      *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type PollerConfig struct {
	Interval time.Duration
	// BaseCode is the instrument whose merged rate converts crypto quotes
	// into the base currency (the USD/RUB anchor).
	BaseCode string
	// FallbackBaseRate is used, with a warning, when BaseCode is absent
	// from the fiat map.
	FallbackBaseRate float64
}

func NewPoller(fiat FiatSource, crypto CryptoSource, writer *RateWriter, fanout *Fanout, cfg PollerConfig, log *zap.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BaseCode == "" {
		cfg.BaseCode = "USD"
	}
	if cfg.FallbackBaseRate <= 0 {
		cfg.FallbackBaseRate = 80.0
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Poller{
		fiat:     fiat,
		crypto:   crypto,
		writer:   writer,
		fanout:   fanout,
		interval: cfg.Interval,
		baseCode: cfg.BaseCode,
		baseRate: cfg.FallbackBaseRate,
		clock:    realClock{},
		log:      log,
	}
}

// Start launches the periodic loop. Calling Start on a running poller is a
// no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	// The done channel is handed to the goroutine; Stop nils the field, so
	// the loop must never read it back.
	go p.loop(loopCtx, p.done)
	p.log.Info("poller_started", zap.Duration("interval", p.interval))
}

// Stop signals cancellation and waits for the loop to drain.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	p.log.Info("poller_stopped")
}

// Running reports whether the loop is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if err := p.pass(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			p.log.Warn("poll_pass_failed", zap.Error(err))
		}
		timer.Reset(p.interval)
	}
}

// RunOnce executes a single pipeline pass synchronously. It is safe to call
// while the loop is running; concurrent passes are idempotent-safe because
// the writer only persists true deltas. The caller only learns coarse
// success or failure.
func (p *Poller) RunOnce(ctx context.Context) error {
	if err := p.pass(ctx); err != nil {
		p.log.Warn("run_once_failed", zap.Error(err))
		return ErrTaskFailed
	}
	return nil
}

func (p *Poller) pass(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pass panicked: %v", r)
		}
	}()

	fiat := p.fiat.Rates(ctx, p.clock.Now())
	crypto := p.crypto.Rates(ctx, p.conversionRate(fiat))
	merged := mergeQuotes(fiat, crypto)

	events := p.writer.Apply(ctx, merged)
	for _, ev := range events {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.fanout.Deliver(ctx, ev)
	}
	return ctx.Err()
}

func (p *Poller) conversionRate(fiat map[string]domain.RawQuote) float64 {
	if q, ok := fiat[p.baseCode]; ok {
		return q.Rate
	}
	p.log.Warn("base_rate_missing",
		zap.String("code", p.baseCode),
		zap.Float64("fallback", p.baseRate))
	return p.baseRate
}

// mergeQuotes combines the two source maps into the cycle's canonical set.
// Crypto entries win code collisions; crypto symbols are assumed disjoint
// from currency codes, which is not enforced here.
func mergeQuotes(fiat, crypto map[string]domain.RawQuote) map[string]domain.RawQuote {
	merged := make(map[string]domain.RawQuote, len(fiat)+len(crypto))
	for code, q := range fiat {
		merged[code] = q
	}
	for code, q := range crypto {
		merged[code] = q
	}
	return merged
}
