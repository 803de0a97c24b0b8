package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"moneyrates-service/internal/domain"
)

var ErrRepo = errors.New("repo error")

type fakeClock struct{ t time.Time }

func (f fakeClock) Now() time.Time { return f.t }

type fakeItemRepo struct {
	mu        sync.Mutex
	seq       int64
	byCode    map[string]domain.Item
	failCodes map[string]error

	creates int
	updates int
	upserts int
}

func newFakeItemRepo() *fakeItemRepo {
	return &fakeItemRepo{byCode: map[string]domain.Item{}}
}

func (f *fakeItemRepo) GetByCode(_ context.Context, code string) (domain.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failCodes[code]; err != nil {
		return domain.Item{}, err
	}
	it, ok := f.byCode[code]
	if !ok {
		return domain.Item{}, ErrNotFound
	}
	return it, nil
}

func (f *fakeItemRepo) GetByID(_ context.Context, id int64) (domain.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range f.byCode {
		if it.ID == id {
			return it, nil
		}
	}
	return domain.Item{}, ErrNotFound
}

func (f *fakeItemRepo) List(_ context.Context) ([]domain.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Item, 0, len(f.byCode))
	for _, it := range f.byCode {
		out = append(out, it)
	}
	return out, nil
}

func (f *fakeItemRepo) Create(_ context.Context, it domain.Item) (domain.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failCodes[it.Code]; err != nil {
		return domain.Item{}, err
	}
	if _, ok := f.byCode[it.Code]; ok {
		return domain.Item{}, ErrConflict
	}
	f.seq++
	it.ID = f.seq
	f.byCode[it.Code] = it
	f.creates++
	return it, nil
}

func (f *fakeItemRepo) Update(_ context.Context, it domain.Item) (domain.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failCodes[it.Code]; err != nil {
		return domain.Item{}, err
	}
	if _, ok := f.byCode[it.Code]; !ok {
		return domain.Item{}, ErrNotFound
	}
	f.byCode[it.Code] = it
	f.updates++
	return it, nil
}

func (f *fakeItemRepo) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for code, it := range f.byCode {
		if it.ID == id {
			delete(f.byCode, code)
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeItemRepo) UpsertByCode(_ context.Context, it domain.Item) (domain.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	if existing, ok := f.byCode[it.Code]; ok {
		existing.Rate = it.Rate
		existing.Nominal = it.Nominal
		existing.Source = it.Source
		existing.IsCrypto = it.IsCrypto
		existing.UpdatedAt = it.UpdatedAt
		f.byCode[it.Code] = existing
		return existing, nil
	}
	f.seq++
	it.ID = f.seq
	f.byCode[it.Code] = it
	return it, nil
}

type fakeSubs struct {
	mu       sync.Mutex
	payloads [][]byte
	present  bool
}

func (f *fakeSubs) WaitForAny(context.Context, time.Duration) bool { return f.present }

func (f *fakeSubs) Broadcast(payload []byte) {
	f.mu.Lock()
	f.payloads = append(f.payloads, payload)
	f.mu.Unlock()
}

func (f *fakeSubs) received() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.payloads...)
}

type fakeBus struct {
	mu       sync.Mutex
	topics   []string
	payloads [][]byte
	err      error
	notify   chan struct{}
}

func (f *fakeBus) Publish(_ context.Context, topic string, payload []byte) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	f.topics = append(f.topics, topic)
	f.payloads = append(f.payloads, payload)
	f.mu.Unlock()
	if f.notify != nil {
		select {
		case f.notify <- struct{}{}:
		default:
		}
	}
	return nil
}

func (f *fakeBus) received() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.payloads...)
}

type fakeFiatSource struct {
	mu    sync.Mutex
	rates map[string]domain.RawQuote
	calls int
	// panicOnCall makes the source panic on that 1-based call number.
	panicOnCall int
}

func (f *fakeFiatSource) Rates(context.Context, time.Time) map[string]domain.RawQuote {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()
	if n == f.panicOnCall {
		panic("upstream exploded")
	}
	return f.rates
}

type fakeCryptoSource struct {
	mu       sync.Mutex
	rates    map[string]domain.RawQuote
	baseRate float64
}

func (f *fakeCryptoSource) Rates(_ context.Context, baseRate float64) map[string]domain.RawQuote {
	f.mu.Lock()
	f.baseRate = baseRate
	f.mu.Unlock()
	return f.rates
}

func (f *fakeCryptoSource) lastBaseRate() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.baseRate
}
