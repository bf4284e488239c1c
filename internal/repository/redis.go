package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/atinyakov/appstate/internal/models"
)

const redisKeyPrefix = "appstate:snapshot:"

// RedisSnapshotRepository stores snapshots as JSON strings. A snapshot whose
// token has an expiry is stored with a matching TTL.
type RedisSnapshotRepository struct {
	client redis.UniversalClient
	now    func() time.Time
}

// NewRedisSnapshotRepository creates a repository over client.
func NewRedisSnapshotRepository(client redis.UniversalClient) *RedisSnapshotRepository {
	return &RedisSnapshotRepository{client: client, now: time.Now}
}

func redisKey(sessionID string) string {
	return redisKeyPrefix + sessionID
}

// Save writes snap. A snapshot whose token already expired is deleted instead.
func (r *RedisSnapshotRepository) Save(ctx context.Context, snap models.Snapshot) error {
	var ttl time.Duration
	if snap.Auth.TokenExpire > 0 {
		ttl = time.Unix(snap.Auth.TokenExpire, 0).Sub(r.now())
		if ttl <= 0 {
			return r.Delete(ctx, snap.SessionID)
		}
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := r.client.Set(ctx, redisKey(snap.SessionID), data, ttl).Err(); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Load returns the snapshot for sessionID or ErrSnapshotNotFound.
func (r *RedisSnapshotRepository) Load(ctx context.Context, sessionID string) (*models.Snapshot, error) {
	data, err := r.client.Get(ctx, redisKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snap.User.Info == nil {
		snap.User.Info = map[string]any{}
	}
	return &snap, nil
}

// Delete removes the snapshot for sessionID.
func (r *RedisSnapshotRepository) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, redisKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}
