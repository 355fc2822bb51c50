package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	yerrors "github.com/yiyinbot/yiyin/pkg/errors"
)

// maxTxRetries bounds optimistic transaction retries.
const maxTxRetries = 16

// RedisStore keeps each key as a JSON string in Redis.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewRedisStore wraps a client. prefix namespaces all keys (for example
// "yiyin:").
func NewRedisStore(rdb redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix}
}

// Get implements [Store].
func (s *RedisStore) Get(ctx context.Context, key string, v any) (bool, error) {
	if err := ValidateKey(key); err != nil {
		return false, err
	}
	data, err := s.rdb.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return true, nil
}

// Put implements [Store].
func (s *RedisStore) Put(ctx context.Context, key string, v any) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.prefix+key, data, 0).Err()
}

// Update implements [Store] with WATCH/MULTI, retrying when another client
// modified the key between the read and the write.
func (s *RedisStore) Update(ctx context.Context, key string, v any, fn func(bool) error) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	k := s.prefix + key

	txf := func(tx *redis.Tx) error {
		reset(v)
		exists := true
		data, err := tx.Get(ctx, k).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			exists = false
		case err != nil:
			return err
		default:
			if err := json.Unmarshal(data, v); err != nil {
				return fmt.Errorf("parse %s: %w", key, err)
			}
		}

		write, err := runUpdate(fn, exists)
		if err != nil || !write {
			return err
		}
		out, err := json.Marshal(v)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, k, out, 0)
			return nil
		})
		return err
	}

	for range maxTxRetries {
		err := s.rdb.Watch(ctx, txf, k)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return yerrors.New(yerrors.ErrCodeConflict, "too many concurrent updates to %s", key)
}

// Delete implements [Store].
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	return s.rdb.Del(ctx, s.prefix+key).Err()
}

// Keys implements [Store] with SCAN.
func (s *RedisStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.rdb.Scan(ctx, 0, escapeGlob(s.prefix+prefix)+"*", 256).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), s.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// Close implements [Store].
func (s *RedisStore) Close() error { return s.rdb.Close() }

func escapeGlob(s string) string {
	r := strings.NewReplacer(`*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)
	return r.Replace(s)
}

var _ Store = (*RedisStore)(nil)
