package application

import (
	"context"
	"errors"
	"math"
	"sort"

	"moneyrates-service/internal/domain"

	"go.uber.org/zap"
)

// RateEpsilon is the change-detection tolerance: a delta at or below it is
// treated as "unchanged" and produces no write and no event.
const RateEpsilon = 1e-9

// RateWriter applies one cycle's merged rate map to storage, persisting only
// true deltas and reporting them as change events.
type RateWriter struct {
	repo   ItemRepo
	uow    UnitOfWork
	crypto map[string]bool
	clock  Clock
	log    *zap.Logger
}

type WriterOption func(*RateWriter)

func WithWriterClock(c Clock) WriterOption { return func(w *RateWriter) { w.clock = c } }

func NewRateWriter(repo ItemRepo, uow UnitOfWork, cryptoCodes []string, log *zap.Logger, opts ...WriterOption) *RateWriter {
	w := &RateWriter{
		repo:   repo,
		uow:    uow,
		crypto: make(map[string]bool, len(cryptoCodes)),
		log:    log,
	}
	for _, c := range cryptoCodes {
		w.crypto[c] = true
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.uow == nil {
		w.uow = NoopUoW{}
	}
	if w.clock == nil {
		w.clock = realClock{}
	}
	if w.log == nil {
		w.log = zap.NewNop()
	}
	return w
}

// Apply processes codes sequentially in sorted order so the diff/notify
// sequence is deterministic. A failure on one code is logged and does not
// stop the remaining codes.
func (w *RateWriter) Apply(ctx context.Context, merged map[string]domain.RawQuote) []ChangeEvent {
	codes := make([]string, 0, len(merged))
	for code := range merged {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	var events []ChangeEvent
	for _, code := range codes {
		if ctx.Err() != nil {
			return events
		}
		ev, changed, err := w.applyOne(ctx, code, merged[code])
		if err != nil {
			w.log.Warn("rate_apply_failed", zap.String("code", code), zap.Error(err))
			continue
		}
		if changed {
			events = append(events, ev)
		}
	}
	return events
}

func (w *RateWriter) applyOne(ctx context.Context, code string, q domain.RawQuote) (ChangeEvent, bool, error) {
	var ev ChangeEvent
	var changed bool
	err := w.uow.Do(ctx, func(ctx context.Context) error {
		existing, err := w.repo.GetByCode(ctx, code)
		if errors.Is(err, ErrNotFound) || errors.Is(err, domain.ErrNotFound) {
			created, err := w.repo.Create(ctx, domain.Item{
				Code:      code,
				Title:     code,
				Rate:      q.Rate,
				Nominal:   nominalOrOne(q.Nominal),
				Source:    q.Source,
				IsCrypto:  w.crypto[code],
				UpdatedAt: w.clock.Now(),
			})
			if err != nil {
				return err
			}
			ev = NewChangeEvent(EventCreated, created)
			changed = true
			return nil
		}
		if err != nil {
			return err
		}

		if math.Abs(existing.Rate-q.Rate) <= RateEpsilon {
			return nil
		}
		existing.Rate = q.Rate
		if q.Nominal >= 1 {
			existing.Nominal = q.Nominal
		}
		if q.Source != "" {
			existing.Source = q.Source
		}
		existing.IsCrypto = w.crypto[code]
		existing.UpdatedAt = w.clock.Now()
		updated, err := w.repo.Update(ctx, existing)
		if err != nil {
			return err
		}
		ev = NewChangeEvent(EventUpdated, updated)
		changed = true
		return nil
	})
	return ev, changed, err
}

func nominalOrOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
