package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresKV stores each key as one row of kv_store. Update locks the row for
// the duration of the read-modify-write.
type PostgresKV struct {
	pool *pgxpool.Pool
}

func NewPostgresKV(pool *pgxpool.Pool) *PostgresKV {
	return &PostgresKV{pool: pool}
}

func (p *PostgresKV) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := p.pool.QueryRow(ctx, `SELECT value::text FROM kv_store WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("kv get %s: %w", key, err)
	}
	if string(value) == "null" {
		return nil, nil
	}
	return value, nil
}

func (p *PostgresKV) Update(ctx context.Context, key string, fn func([]byte) ([]byte, error)) error {
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		// Placeholder row so FOR UPDATE has something to lock on first write.
		if _, err := tx.Exec(ctx,
			`INSERT INTO kv_store (key, value) VALUES ($1, 'null'::jsonb) ON CONFLICT (key) DO NOTHING`, key); err != nil {
			return fmt.Errorf("kv ensure %s: %w", key, err)
		}

		var current []byte
		if err := tx.QueryRow(ctx, `SELECT value::text FROM kv_store WHERE key = $1 FOR UPDATE`, key).Scan(&current); err != nil {
			return fmt.Errorf("kv lock %s: %w", key, err)
		}
		if string(current) == "null" {
			current = nil
		}

		next, err := fn(current)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`UPDATE kv_store SET value = $2::jsonb, updated_at = NOW() WHERE key = $1`, key, string(next)); err != nil {
			return fmt.Errorf("kv write %s: %w", key, err)
		}
		return nil
	})
}

func (p *PostgresKV) Close() error {
	p.pool.Close()
	return nil
}
