package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Tier names used as the partition column of kv_entries.
const (
	TierSynced = "synced"
	TierLocal  = "local"
)

// KVStore implements kvstore.Store on the kv_entries table. Each tier is
// an independent namespace.
type KVStore struct {
	pool *pgxpool.Pool
	tier string
}

// NewKVStore creates a store for one tier.
func NewKVStore(pool *pgxpool.Pool, tier string) *KVStore {
	return &KVStore{pool: pool, tier: tier}
}

func (s *KVStore) Get(ctx context.Context, key string) (value []byte, ok bool, err error) {
	err = s.pool.QueryRow(ctx,
		`SELECT value FROM kv_entries WHERE tier = $1 AND key = $2`, s.tier, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get %s/%s: %w", s.tier, key, err)
	}
	return value, true, nil
}

func (s *KVStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO kv_entries (tier, key, value) VALUES ($1, $2, $3)
		 ON CONFLICT (tier, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		s.tier, key, value)
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", s.tier, key, err)
	}
	return nil
}

func (s *KVStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`DELETE FROM kv_entries WHERE tier = $1 AND key = ANY($2)`, s.tier, keys)
	if err != nil {
		return fmt.Errorf("delete %s (%d keys): %w", s.tier, len(keys), err)
	}
	return nil
}

// Scan reads every matching row in one query.
func (s *KVStore) Scan(ctx context.Context, prefix string) (map[string][]byte, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT key, value FROM kv_entries WHERE tier = $1 AND starts_with(key, $2)`, s.tier, prefix)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", s.tier, err)
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var (
			key   string
			value []byte
		)
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", s.tier, err)
		}
		out[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", s.tier, err)
	}
	return out, nil
}

func (s *KVStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT key FROM kv_entries WHERE tier = $1 AND starts_with(key, $2) ORDER BY key`, s.tier, prefix)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.tier, err)
	}
	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan %s keys: %w", s.tier, err)
	}
	return keys, nil
}
