package otp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps records as JSON strings. Writes run inside WATCH/MULTI so
// a concurrent change to the key aborts the transaction. Keys expire at the
// record's PurgeAt.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisStore creates a store. prefix is prepended to every key.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix + "otp:", now: time.Now}
}

func (s *RedisStore) key(purpose Purpose, recipient string) string {
	return s.prefix + RecordKey(purpose, recipient)
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, purpose Purpose, recipient string) (*Record, error) {
	return s.read(ctx, s.client, s.key(purpose, recipient))
}

// Put implements Store.
func (s *RedisStore) Put(ctx context.Context, rec *Record, expectedVersion int64) error {
	key := s.key(rec.Purpose, rec.Recipient)

	next := *rec
	next.Version = expectedVersion + 1
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode otp record: %w", err)
	}

	ttl := next.PurgeAt.Sub(s.now())
	if ttl < time.Second {
		ttl = time.Second
	}

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		if err := s.checkVersion(ctx, tx, key, expectedVersion); err != nil {
			return err
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, ttl)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return mapTxError(err, "put")
	}

	rec.Version = next.Version
	return nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, purpose Purpose, recipient string, expectedVersion int64) error {
	key := s.key(purpose, recipient)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := s.read(ctx, tx, key)
		if err != nil {
			return err
		}
		if current.Version != expectedVersion {
			return ErrVersionConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		return err
	}, key)
	return mapTxError(err, "delete")
}

func (s *RedisStore) checkVersion(ctx context.Context, c redis.Cmdable, key string, expected int64) error {
	current, err := s.read(ctx, c, key)
	switch {
	case errors.Is(err, ErrRecordNotFound):
		if expected != 0 {
			return ErrVersionConflict
		}
		return nil
	case err != nil:
		return err
	case current.Version != expected:
		return ErrVersionConflict
	}
	return nil
}

func (s *RedisStore) read(ctx context.Context, c redis.Cmdable, key string) (*Record, error) {
	data, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get otp record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode otp record: %w", err)
	}
	return &rec, nil
}

func mapTxError(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.TxFailedErr), errors.Is(err, ErrVersionConflict):
		return ErrVersionConflict
	case errors.Is(err, ErrRecordNotFound):
		return ErrRecordNotFound
	default:
		return fmt.Errorf("%s otp record: %w", op, err)
	}
}
