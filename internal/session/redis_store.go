// Package session keeps short-lived per-user state in Redis: member presence
// and revoked access tokens.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// PresenceData is what we remember about a member's last heartbeat.
type PresenceData struct {
	MemberID    string
	WorkspaceID string
	SeenAt      time.Time
}

// RedisStore implements presence and token revocation using Redis.
type RedisStore struct {
	client      *redis.Client
	prefix      string
	presenceTTL time.Duration
}

// NewRedisStore connects to redisURL and verifies the connection.
func NewRedisStore(redisURL string, presenceTTL time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client, presenceTTL), nil
}

// NewRedisStoreWithClient creates a store from an existing Redis client.
func NewRedisStoreWithClient(client *redis.Client, presenceTTL time.Duration) *RedisStore {
	if presenceTTL <= 0 {
		presenceTTL = 5 * time.Minute
	}
	return &RedisStore{
		client:      client,
		prefix:      "slack:",
		presenceTTL: presenceTTL,
	}
}

func (s *RedisStore) presenceKey(workspaceID, memberID string) string {
	return s.prefix + "presence:" + workspaceID + ":" + memberID
}

func (s *RedisStore) revokedKey(tokenID string) string {
	return s.prefix + "revoked:" + tokenID
}

// TouchPresence records that the member was online at seenAt. The entry
// expires after the presence TTL.
func (s *RedisStore) TouchPresence(ctx context.Context, workspaceID, memberID string, seenAt time.Time) error {
	value := strconv.FormatInt(seenAt.UnixMilli(), 10)
	if err := s.client.Set(ctx, s.presenceKey(workspaceID, memberID), value, s.presenceTTL).Err(); err != nil {
		return fmt.Errorf("touch presence: %w", err)
	}
	return nil
}

// LastSeen returns the member's last heartbeat. ok is false once the entry expired.
func (s *RedisStore) LastSeen(ctx context.Context, workspaceID, memberID string) (PresenceData, bool, error) {
	raw, err := s.client.Get(ctx, s.presenceKey(workspaceID, memberID)).Result()
	if errors.Is(err, redis.Nil) {
		return PresenceData{}, false, nil
	}
	if err != nil {
		return PresenceData{}, false, fmt.Errorf("lookup presence: %w", err)
	}
	millis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return PresenceData{}, false, fmt.Errorf("decode presence: %w", err)
	}
	return PresenceData{
		MemberID:    memberID,
		WorkspaceID: workspaceID,
		SeenAt:      time.UnixMilli(millis).UTC(),
	}, true, nil
}

// RevokeToken blocks tokenID until the token would have expired anyway.
func (s *RedisStore) RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, s.revokedKey(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (s *RedisStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.revokedKey(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return n > 0, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
