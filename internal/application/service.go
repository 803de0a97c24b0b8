package application

import (
	"context"

	"moneyrates-service/internal/domain"
)

// ItemService backs the CRUD surface. Created records reach both the live
// subscribers and the bus; updates and deletes only reach live subscribers,
// matching the delivery rules of the change pipeline's collaborator.
type ItemService struct {
	repo   ItemRepo
	fanout *Fanout
	clock  Clock
}

type ServiceOption func(*ItemService)

func WithClock(c Clock) ServiceOption { return func(s *ItemService) { s.clock = c } }

func NewItemService(repo ItemRepo, fanout *Fanout, opts ...ServiceOption) *ItemService {
	s := &ItemService{repo: repo, fanout: fanout}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = realClock{}
	}
	return s
}

func (s *ItemService) List(ctx context.Context) ([]domain.Item, error) {
	return s.repo.List(ctx)
}

func (s *ItemService) Get(ctx context.Context, id int64) (domain.Item, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ItemService) Create(ctx context.Context, it domain.Item) (domain.Item, error) {
	it.UpdatedAt = s.clock.Now()
	created, err := s.repo.Create(ctx, it)
	if err != nil {
		return domain.Item{}, err
	}
	if s.fanout != nil {
		s.fanout.Deliver(ctx, NewItemEvent(EventCreated, created))
	}
	return created, nil
}

// ItemPatch carries the mutable fields of an item; nil means "leave as is".
type ItemPatch struct {
	Title    *string
	Rate     *float64
	Nominal  *int
	Source   *string
	IsCrypto *bool
}

func (p ItemPatch) empty() bool {
	return p.Title == nil && p.Rate == nil && p.Nominal == nil && p.Source == nil && p.IsCrypto == nil
}

func (s *ItemService) Update(ctx context.Context, id int64, patch ItemPatch) (domain.Item, error) {
	it, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Item{}, err
	}
	if patch.empty() {
		return it, nil
	}
	if patch.Title != nil {
		it.Title = *patch.Title
	}
	if patch.Rate != nil {
		it.Rate = *patch.Rate
	}
	if patch.Nominal != nil {
		it.Nominal = *patch.Nominal
	}
	if patch.Source != nil {
		it.Source = *patch.Source
	}
	if patch.IsCrypto != nil {
		it.IsCrypto = *patch.IsCrypto
	}
	it.UpdatedAt = s.clock.Now()
	updated, err := s.repo.Update(ctx, it)
	if err != nil {
		return domain.Item{}, err
	}
	if s.fanout != nil {
		s.fanout.DeliverLive(ctx, NewItemEvent(EventUpdated, updated))
	}
	return updated, nil
}

func (s *ItemService) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if s.fanout != nil {
		s.fanout.DeliverLive(ctx, NewDeleteEvent(id))
	}
	return nil
}
