package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/redis/go-redis/v9"
)

// KV is a single-key byte store with an atomic read-modify-write.
type KV interface {
	// Get returns nil when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	// Update calls fn with the current value and stores its result. When fn fails nothing is
	// written and its error is returned.
	Update(ctx context.Context, key string, fn func(current []byte) ([]byte, error)) error
}

// MemoryKV serializes every update behind one mutex.
type MemoryKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

func (m *MemoryKV) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryKV) Update(ctx context.Context, key string, fn func([]byte) ([]byte, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var cur []byte
	if v, ok := m.data[key]; ok {
		cur = append([]byte(nil), v...)
	}
	next, err := fn(cur)
	if err != nil {
		return err
	}
	m.data[key] = next
	return nil
}

var ErrTooManyRetries = errors.New("optimistic transaction retries exhausted")

const defaultRedisRetries = 16

// RedisKV uses WATCH/MULTI so concurrent writers on other processes cannot interleave.
type RedisKV struct {
	rdb        redis.UniversalClient
	maxRetries int
}

func NewRedisKV(rdb redis.UniversalClient, maxRetries int) *RedisKV {
	if maxRetries <= 0 {
		maxRetries = defaultRedisRetries
	}
	return &RedisKV{rdb: rdb, maxRetries: maxRetries}
}

func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return v, err
}

func (r *RedisKV) Update(ctx context.Context, key string, fn func([]byte) ([]byte, error)) error {
	txf := func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		next, err := fn(cur)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, 0)
			return nil
		})
		return err
	}

	for i := 0; i < r.maxRetries; i++ {
		err := r.rdb.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrTooManyRetries
}

func (r *RedisKV) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}
