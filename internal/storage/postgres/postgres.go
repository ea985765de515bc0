package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"unsubscribe_service/internal/config"
	"unsubscribe_service/internal/models"
	"unsubscribe_service/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxPool is the subset of pgxpool.Pool the repository needs; tests substitute
// a pgxmock pool.
type PgxPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
	Close()
}

type PostgresRepo struct {
	pool PgxPool
}

func New(ctx context.Context, cfg config.Postgres) (*PostgresRepo, error) {
	const op = "storage.postgres.New"

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse config: %w", op, err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create pool: %w", op, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	return &PostgresRepo{pool: pool}, nil
}

// NewWithPool wraps an existing pool. Used by tests.
func NewWithPool(pool PgxPool) *PostgresRepo {
	return &PostgresRepo{pool: pool}
}

func (r *PostgresRepo) SaveUnsubscribe(ctx context.Context, rec models.UnsubscribeRecord) error {
	const op = "storage.postgres.SaveUnsubscribe"

	query := `
		INSERT INTO unsubscribes (email, unsubscribed_at, source, user_agent)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE SET
			unsubscribed_at = EXCLUDED.unsubscribed_at,
			source = EXCLUDED.source,
			user_agent = EXCLUDED.user_agent;
	`

	_, err := r.pool.Exec(ctx, query, rec.Email, rec.UnsubscribedAt, string(rec.Source), rec.UserAgent)
	if err != nil {
		return fmt.Errorf("%s: failed to save record: %w", op, err)
	}

	return nil
}

func (r *PostgresRepo) GetUnsubscribe(ctx context.Context, email string) (models.UnsubscribeRecord, error) {
	const op = "storage.postgres.GetUnsubscribe"

	query := `
		SELECT email, unsubscribed_at, source, user_agent
		FROM unsubscribes
		WHERE email = $1;
	`

	row := r.pool.QueryRow(ctx, query, email)

	var (
		rec    models.UnsubscribeRecord
		source string
	)

	err := row.Scan(
		&rec.Email,
		&rec.UnsubscribedAt,
		&source,
		&rec.UserAgent,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.UnsubscribeRecord{}, storage.ErrRecordNotFound
		}

		return models.UnsubscribeRecord{}, fmt.Errorf("%s: %w", op, err)
	}

	rec.Source = models.UnsubscribeSource(source)

	return rec, nil
}

func (r *PostgresRepo) Close() {
	r.pool.Close()
}
