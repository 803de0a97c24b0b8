package pg_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"moneyrates-service/internal/application"
	"moneyrates-service/internal/domain"
	"moneyrates-service/internal/infrastructure/pg"

	"github.com/stretchr/testify/require"
)

func seedItem(code string) domain.Item {
	return domain.Item{
		Code:      code,
		Title:     code + " title",
		Rate:      80.5,
		Nominal:   1,
		Source:    "test",
		UpdatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestItemRepo_CreateAndGet(t *testing.T) {
	db, teardown := withPostgres(t)
	defer teardown()
	ctx := context.Background()
	repo := pg.NewItemRepo(db)

	created, err := repo.Create(ctx, seedItem("USD"))
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.Equal(t, "USD", created.Code)
	require.InDelta(t, 80.5, created.Rate, 1e-9)

	byCode, err := repo.GetByCode(ctx, "USD")
	require.NoError(t, err)
	require.Equal(t, created.ID, byCode.ID)

	byID, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "USD", byID.Code)

	_, err = repo.GetByCode(ctx, "NOPE")
	require.ErrorIs(t, err, application.ErrNotFound)
}

func TestItemRepo_CreateDuplicateCode(t *testing.T) {
	db, teardown := withPostgres(t)
	defer teardown()
	ctx := context.Background()
	repo := pg.NewItemRepo(db)

	_, err := repo.Create(ctx, seedItem("USD"))
	require.NoError(t, err)

	_, err = repo.Create(ctx, seedItem("USD"))
	require.ErrorIs(t, err, application.ErrConflict)
}

func TestItemRepo_List(t *testing.T) {
	db, teardown := withPostgres(t)
	defer teardown()
	ctx := context.Background()
	repo := pg.NewItemRepo(db)

	for _, code := range []string{"USD", "EUR", "BTC"} {
		_, err := repo.Create(ctx, seedItem(code))
		require.NoError(t, err)
	}

	items, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	// Insertion order doubles as id order.
	require.Equal(t, "USD", items[0].Code)
	require.Equal(t, "BTC", items[2].Code)
}

func TestItemRepo_UpdateAndDelete(t *testing.T) {
	db, teardown := withPostgres(t)
	defer teardown()
	ctx := context.Background()
	repo := pg.NewItemRepo(db)

	created, err := repo.Create(ctx, seedItem("USD"))
	require.NoError(t, err)

	created.Rate = 99.25
	created.Source = "manual"
	updated, err := repo.Update(ctx, created)
	require.NoError(t, err)
	require.InDelta(t, 99.25, updated.Rate, 1e-9)
	require.Equal(t, "manual", updated.Source)

	require.NoError(t, repo.Delete(ctx, created.ID))
	require.ErrorIs(t, repo.Delete(ctx, created.ID), application.ErrNotFound)

	_, err = repo.Update(ctx, created)
	require.ErrorIs(t, err, application.ErrNotFound)
}

func TestItemRepo_UpsertByCode(t *testing.T) {
	db, teardown := withPostgres(t)
	defer teardown()
	ctx := context.Background()
	repo := pg.NewItemRepo(db)

	first, err := repo.UpsertByCode(ctx, seedItem("BTC"))
	require.NoError(t, err)
	require.NotZero(t, first.ID)
	require.Equal(t, "BTC title", first.Title)

	// Second upsert overwrites rate fields but keeps the original title.
	next := seedItem("BTC")
	next.Title = "should be ignored"
	next.Rate = 123.45
	next.Source = "binance"
	next.IsCrypto = true

	second, err := repo.UpsertByCode(ctx, next)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "BTC title", second.Title)
	require.InDelta(t, 123.45, second.Rate, 1e-9)
	require.Equal(t, "binance", second.Source)
	require.True(t, second.IsCrypto)

	items, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
}

func TestUnitOfWork_RollsBackOnError(t *testing.T) {
	db, teardown := withPostgres(t)
	defer teardown()
	ctx := context.Background()
	repo := pg.NewItemRepo(db)
	uow := &pg.UnitOfWork{Pool: db.Pool}

	boom := errors.New("boom")
	err := uow.Do(ctx, func(txCtx context.Context) error {
		if _, err := repo.Create(txCtx, seedItem("USD")); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = repo.GetByCode(ctx, "USD")
	require.ErrorIs(t, err, application.ErrNotFound)
}

func TestUnitOfWork_CommitsOnSuccess(t *testing.T) {
	db, teardown := withPostgres(t)
	defer teardown()
	ctx := context.Background()
	repo := pg.NewItemRepo(db)
	uow := &pg.UnitOfWork{Pool: db.Pool}

	err := uow.Do(ctx, func(txCtx context.Context) error {
		if _, err := repo.GetByCode(txCtx, "EUR"); !errors.Is(err, application.ErrNotFound) {
			return err
		}
		_, err := repo.Create(txCtx, seedItem("EUR"))
		return err
	})
	require.NoError(t, err)

	it, err := repo.GetByCode(ctx, "EUR")
	require.NoError(t, err)
	require.Equal(t, "EUR", it.Code)
}
