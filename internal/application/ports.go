package application

import (
	"context"
	"time"

	"moneyrates-service/internal/domain"
)

type ItemRepo interface {
	GetByCode(ctx context.Context, code string) (domain.Item, error)
	GetByID(ctx context.Context, id int64) (domain.Item, error)
	List(ctx context.Context) ([]domain.Item, error)
	Create(ctx context.Context, it domain.Item) (domain.Item, error)
	Update(ctx context.Context, it domain.Item) (domain.Item, error)
	Delete(ctx context.Context, id int64) error
	// UpsertByCode creates the item (title defaults to code) or overwrites
	// rate, nominal, source and is_crypto of the existing row.
	UpsertByCode(ctx context.Context, it domain.Item) (domain.Item, error)
}

// FiatSource produces normalized central-bank rates for a calendar date.
// Implementations never fail: on upstream trouble they return at least the
// hard-coded base-currency entry.
type FiatSource interface {
	Rates(ctx context.Context, day time.Time) map[string]domain.RawQuote
}

// CryptoSource produces crypto rates converted via baseRate (price of one
// unit of the quote currency in the base currency). Symbols that cannot be
// fetched are simply absent from the result.
type CryptoSource interface {
	Rates(ctx context.Context, baseRate float64) map[string]domain.RawQuote
}

// Bus is the outbound side of the pub/sub fabric.
type Bus interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Subscribers is the live-update side of the fan-out: the set of currently
// connected peers.
type Subscribers interface {
	// WaitForAny blocks up to timeout for at least one peer to be present.
	WaitForAny(ctx context.Context, timeout time.Duration) bool
	Broadcast(payload []byte)
}
