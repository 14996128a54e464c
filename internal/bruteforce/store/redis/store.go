// Package redis is the production counter/block store. INCR is atomic on
// the server, so concurrent failed attempts from the same identifier never
// undercount; the window TTL is attached on first increment.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"taskboard/internal/bruteforce"
	platformredis "taskboard/internal/platform/redis"
)

const blockKeyPrefix = "bf:block:"

type Store struct {
	client *platformredis.Client
}

func New(client *platformredis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Increment(ctx context.Context, key string, window time.Duration) (int, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	// NX: the window starts at the first failure and is not extended by
	// later ones, keeping it a trailing window rather than a rolling one.
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("increment %s: %w", key, err)
	}
	return int(incr.Val()), nil
}

func (s *Store) Get(ctx context.Context, key string) (int, error) {
	count, err := s.client.Get(ctx, key).Int()
	if err == goredis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get %s: %w", key, err)
	}
	return count, nil
}

func (s *Store) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("reset %s: %w", key, err)
	}
	return nil
}

func (s *Store) GetBlock(ctx context.Context, identifier string) (*bruteforce.SecurityBlock, error) {
	raw, err := s.client.Get(ctx, blockKeyPrefix+identifier).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get block: %w", err)
	}
	var block bruteforce.SecurityBlock
	if err := json.Unmarshal(raw, &block); err != nil {
		return nil, fmt.Errorf("decode block: %w", err)
	}
	return &block, nil
}

func (s *Store) PutBlock(ctx context.Context, block *bruteforce.SecurityBlock) error {
	raw, err := json.Marshal(block)
	if err != nil {
		return fmt.Errorf("encode block: %w", err)
	}
	ttl := time.Until(block.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, blockKeyPrefix+block.Identifier, raw, ttl).Err(); err != nil {
		return fmt.Errorf("put block: %w", err)
	}
	return nil
}

func (s *Store) DeleteBlock(ctx context.Context, identifier string) error {
	if err := s.client.Del(ctx, blockKeyPrefix+identifier).Err(); err != nil {
		return fmt.Errorf("delete block: %w", err)
	}
	return nil
}
