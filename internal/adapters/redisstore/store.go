// Package redisstore persists console session records in Redis so sessions
// survive process restarts and are visible to every console instance.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/opentrusty/console/internal/domain/auth"
	"github.com/opentrusty/console/internal/session"
)

const defaultPrefix = "console:session:"

// RecordStore stores console session records keyed by session id. TTL tracks
// the record's ExpiresAt so Redis evicts expired sessions on its own.
type RecordStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRecordStore creates a record store with the default key prefix.
func NewRecordStore(client redis.UniversalClient) *RecordStore {
	return &RecordStore{client: client, prefix: defaultPrefix}
}

// NewRecordStoreWithPrefix creates a record store with a custom key prefix.
func NewRecordStoreWithPrefix(client redis.UniversalClient, prefix string) *RecordStore {
	return &RecordStore{client: client, prefix: prefix}
}

func (s *RecordStore) Save(ctx context.Context, rec auth.ConsoleSession) error {
	if rec.ID == "" {
		return errors.New("console session id cannot be empty")
	}

	ttl := time.Until(rec.ExpiresAt)
	if ttl <= 0 {
		return errors.New("console session is already expired")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal console session: %w", err)
	}

	return s.client.Set(ctx, s.prefix+rec.ID, data, ttl).Err()
}

func (s *RecordStore) Get(ctx context.Context, id string) (auth.ConsoleSession, error) {
	if id == "" {
		return auth.ConsoleSession{}, session.ErrNotFound
	}

	data, err := s.client.Get(ctx, s.prefix+id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return auth.ConsoleSession{}, session.ErrNotFound
		}
		return auth.ConsoleSession{}, fmt.Errorf("redis get: %w", err)
	}

	var rec auth.ConsoleSession
	if unmarshalErr := json.Unmarshal([]byte(data), &rec); unmarshalErr != nil {
		return auth.ConsoleSession{}, fmt.Errorf("unmarshal console session: %w", unmarshalErr)
	}

	// Redis TTL should have evicted this already, but clock skew between
	// writer and reader can leave a window.
	if rec.Expired(time.Now()) {
		if deleteErr := s.Delete(ctx, id); deleteErr != nil {
			return auth.ConsoleSession{}, fmt.Errorf("cleanup expired console session: %w", deleteErr)
		}
		return auth.ConsoleSession{}, session.ErrNotFound
	}

	return rec, nil
}

func (s *RecordStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return s.client.Del(ctx, s.prefix+id).Err()
}
