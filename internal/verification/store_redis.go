package verification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps sessions as JSON in Redis so they survive restarts and
// are shared between API instances.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore constructs a RedisStore.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "onboarding:"}
}

func (r *RedisStore) key(id string) string {
	return r.prefix + id
}

func (r *RedisStore) Get(ctx context.Context, id string) (Session, error) {
	raw, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("redis get session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	return s, nil
}

// Put compares versions and writes inside WATCH/MULTI so two instances
// cannot both advance the same session.
func (r *RedisStore) Put(ctx context.Context, s *Session) error {
	key := r.key(s.ID)
	expect := s.Version
	next := *s
	next.Version = expect + 1
	raw, err := json.Marshal(next)
	if err != nil {
		return err
	}

	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			if expect != 0 {
				return ErrSessionNotFound
			}
		case err != nil:
			return err
		default:
			var stored struct {
				Version int `json:"version"`
			}
			if err := json.Unmarshal(cur, &stored); err != nil {
				return fmt.Errorf("decode session: %w", err)
			}
			if stored.Version != expect {
				return ErrStale
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, SessionTTL)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrStale
	}
	if err != nil {
		if errors.Is(err, ErrStale) || errors.Is(err, ErrSessionNotFound) {
			return err
		}
		return fmt.Errorf("redis put session: %w", err)
	}
	s.Version = next.Version
	return nil
}

var _ SessionStore = (*RedisStore)(nil)
