package pg

import (
	"context"
	"errors"

	"moneyrates-service/internal/application"
	"moneyrates-service/internal/domain"
	"moneyrates-service/internal/infrastructure/logx"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

const uniqueViolation = "23505"

type ItemRepo struct{ db *DB }

func NewItemRepo(db *DB) *ItemRepo { return &ItemRepo{db: db} }

var _ application.ItemRepo = (*ItemRepo)(nil)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// q returns the transaction from the context when a unit of work is active,
// the pool otherwise.
func (r *ItemRepo) q(ctx context.Context) querier {
	if tx := txFromCtx(ctx); tx != nil {
		return tx
	}
	return r.db.Pool
}

const itemColumns = `id, code, title, rate::float8, nominal, source, is_crypto, updated_at`

func scanItem(row pgx.Row) (domain.Item, error) {
	var it domain.Item
	err := row.Scan(&it.ID, &it.Code, &it.Title, &it.Rate, &it.Nominal, &it.Source, &it.IsCrypto, &it.UpdatedAt)
	return it, err
}

func (r *ItemRepo) GetByCode(ctx context.Context, code string) (domain.Item, error) {
	const q = `SELECT ` + itemColumns + ` FROM items WHERE code=$1`
	it, err := scanItem(r.q(ctx).QueryRow(ctx, q, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Item{}, application.ErrNotFound
	}
	if err != nil {
		return domain.Item{}, err
	}
	return it, nil
}

func (r *ItemRepo) GetByID(ctx context.Context, id int64) (domain.Item, error) {
	const q = `SELECT ` + itemColumns + ` FROM items WHERE id=$1`
	it, err := scanItem(r.q(ctx).QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Item{}, application.ErrNotFound
	}
	if err != nil {
		return domain.Item{}, err
	}
	return it, nil
}

func (r *ItemRepo) List(ctx context.Context) ([]domain.Item, error) {
	const q = `SELECT ` + itemColumns + ` FROM items ORDER BY id`
	rows, err := r.q(ctx).Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *ItemRepo) Create(ctx context.Context, it domain.Item) (domain.Item, error) {
	const ins = `
        INSERT INTO items(code, title, rate, nominal, source, is_crypto, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING ` + itemColumns
	log := logx.L().With(
		zap.String("repo", "items"),
		zap.String("operation", "Create"),
		zap.String("code", it.Code),
	)
	created, err := scanItem(r.q(ctx).QueryRow(ctx, ins,
		it.Code, it.Title, it.Rate, it.Nominal, it.Source, it.IsCrypto, it.UpdatedAt))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			log.Info("sql.insert_conflict")
			return domain.Item{}, application.ErrConflict
		}
		log.Error("sql.insert_failed", zap.Error(err))
		return domain.Item{}, err
	}
	log.Info("sql.insert_success", zap.Int64("id", created.ID))
	return created, nil
}

func (r *ItemRepo) Update(ctx context.Context, it domain.Item) (domain.Item, error) {
	const up = `
        UPDATE items
        SET title=$2, rate=$3, nominal=$4, source=$5, is_crypto=$6, updated_at=$7
        WHERE id=$1
        RETURNING ` + itemColumns
	updated, err := scanItem(r.q(ctx).QueryRow(ctx, up,
		it.ID, it.Title, it.Rate, it.Nominal, it.Source, it.IsCrypto, it.UpdatedAt))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Item{}, application.ErrNotFound
	}
	if err != nil {
		return domain.Item{}, err
	}
	return updated, nil
}

func (r *ItemRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.q(ctx).Exec(ctx, `DELETE FROM items WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return application.ErrNotFound
	}
	logx.L().Info("sql.delete_success", zap.String("repo", "items"), zap.Int64("id", id))
	return nil
}

func (r *ItemRepo) UpsertByCode(ctx context.Context, it domain.Item) (domain.Item, error) {
	const up = `
        INSERT INTO items(code, title, rate, nominal, source, is_crypto, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (code) DO UPDATE
          SET rate=EXCLUDED.rate,
              nominal=EXCLUDED.nominal,
              source=EXCLUDED.source,
              is_crypto=EXCLUDED.is_crypto,
              updated_at=EXCLUDED.updated_at
        RETURNING ` + itemColumns
	return scanItem(r.q(ctx).QueryRow(ctx, up,
		it.Code, it.Title, it.Rate, it.Nominal, it.Source, it.IsCrypto, it.UpdatedAt))
}
