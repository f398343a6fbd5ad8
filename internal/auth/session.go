package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/duthaho/trello-clone-sub000/internal/domain"
)

const (
	refreshKeyPrefix     = "refresh:"
	userRefreshKeyPrefix = "refresh:user:"
	defaultRefreshTTL    = 7 * 24 * time.Hour
)

// RefreshStore tracks live refresh tokens in Redis so they can be used once
// and revoked on logout or password change.
type RefreshStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRefreshStore returns a new refresh token store.
func NewRefreshStore(rdb *redis.Client, ttl time.Duration) *RefreshStore {
	if ttl <= 0 {
		ttl = defaultRefreshTTL
	}
	return &RefreshStore{rdb: rdb, ttl: ttl}
}

// Save remembers jti as a live refresh token of userID.
func (s *RefreshStore) Save(ctx context.Context, userID int64, jti string) error {
	userKey := userRefreshKey(userID)
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, refreshKeyPrefix+jti, strconv.FormatInt(userID, 10), s.ttl)
	pipe.SAdd(ctx, userKey, jti)
	pipe.Expire(ctx, userKey, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	return nil
}

// Consume atomically removes jti and returns its owner. A token that was
// already consumed or revoked yields domain.ErrUnauthorized.
func (s *RefreshStore) Consume(ctx context.Context, jti string) (int64, error) {
	v, err := s.rdb.GetDel(ctx, refreshKeyPrefix+jti).Result()
	if errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("%w: refresh token revoked", domain.ErrUnauthorized)
	}
	if err != nil {
		return 0, fmt.Errorf("consume refresh token: %w", err)
	}
	userID, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("consume refresh token: bad owner %q", v)
	}
	_ = s.rdb.SRem(ctx, userRefreshKey(userID), jti).Err()
	return userID, nil
}

// Revoke removes a single refresh token. Unknown IDs are not an error.
func (s *RefreshStore) Revoke(ctx context.Context, jti string) error {
	_, err := s.Consume(ctx, jti)
	if err != nil && !errors.Is(err, domain.ErrUnauthorized) {
		return err
	}
	return nil
}

// RevokeAll drops every refresh token of the user.
func (s *RefreshStore) RevokeAll(ctx context.Context, userID int64) error {
	userKey := userRefreshKey(userID)
	ids, err := s.rdb.SMembers(ctx, userKey).Result()
	if err != nil {
		return fmt.Errorf("list refresh tokens: %w", err)
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, refreshKeyPrefix+id)
	}
	keys = append(keys, userKey)
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return nil
}

func userRefreshKey(userID int64) string {
	return userRefreshKeyPrefix + strconv.FormatInt(userID, 10)
}
