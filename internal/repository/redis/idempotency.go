package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idemLock   = "LOCK"
	idemPrefix = "RES:"
)

// IdemResult is a stored response replayed for a repeated Idempotency-Key.
// Fingerprint identifies the request body the response was produced for.
type IdemResult struct {
	Status      int
	Fingerprint string
	Body        string
}

// IdempotencyStore records the first response of a keyed write. A key is
// either locked by an in-flight request or holds the final result.
type IdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewIdempotencyStore(rdb *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

func (s *IdempotencyStore) AcquireLock(ctx context.Context, key string, lockTTL time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, key, idemLock, lockTTL).Result()
}

func (s *IdempotencyStore) SaveResult(ctx context.Context, key string, res IdemResult) error {
	const op = "repository.redis.IdempotencyStore.SaveResult"

	if strings.Contains(res.Fingerprint, ":") {
		return fmt.Errorf("%s: fingerprint must not contain ':'", op)
	}

	val := fmt.Sprintf("%s%d:%s:%s", idemPrefix, res.Status, res.Fingerprint, res.Body)
	if err := s.rdb.Set(ctx, key, val, s.ttl).Err(); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// GetResult returns the stored result of key. ok is false while the key is
// unknown or still locked.
func (s *IdempotencyStore) GetResult(ctx context.Context, key string) (IdemResult, bool, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return IdemResult{}, false, nil
	}
	if err != nil {
		return IdemResult{}, false, err
	}

	return parseIdemValue(v)
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

func parseIdemValue(v string) (IdemResult, bool, error) {
	rest, ok := strings.CutPrefix(v, idemPrefix)
	if !ok {
		return IdemResult{}, false, nil
	}

	code, rest, ok := strings.Cut(rest, ":")
	if !ok {
		return IdemResult{}, false, fmt.Errorf("malformed idempotency record")
	}

	fp, body, ok := strings.Cut(rest, ":")
	if !ok {
		return IdemResult{}, false, fmt.Errorf("malformed idempotency record")
	}

	var status int
	if _, err := fmt.Sscanf(code, "%d", &status); err != nil {
		return IdemResult{}, false, fmt.Errorf("malformed idempotency status: %w", err)
	}

	return IdemResult{Status: status, Fingerprint: fp, Body: body}, true, nil
}
