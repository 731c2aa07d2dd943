package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/fluxia-erp/fluxia/internal/shared"
)

const tokenKeyPrefix = "fluxia:token:"

// TokenStore keeps opaque bearer tokens in Redis with a TTL.
type TokenStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTokenStore constructs a TokenStore.
func NewTokenStore(client *redis.Client, ttl time.Duration) *TokenStore {
	return &TokenStore{client: client, ttl: ttl}
}

// Issue creates a token bound to the actor.
func (s *TokenStore) Issue(ctx context.Context, actor shared.Actor) (string, error) {
	if s == nil || s.client == nil {
		return "", errors.New("auth: token store not initialised")
	}
	token := uuid.NewString()
	payload, err := json.Marshal(actor)
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, tokenKeyPrefix+token, payload, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("auth: store token: %w", err)
	}
	return token, nil
}

// Resolve maps a token back to its actor, refreshing the TTL.
func (s *TokenStore) Resolve(ctx context.Context, token string) (shared.Actor, error) {
	if s == nil || s.client == nil {
		return shared.Actor{}, errors.New("auth: token store not initialised")
	}
	payload, err := s.client.Get(ctx, tokenKeyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return shared.Actor{}, shared.ErrUnauthorized
		}
		return shared.Actor{}, fmt.Errorf("auth: resolve token: %w", err)
	}
	var actor shared.Actor
	if err := json.Unmarshal(payload, &actor); err != nil {
		return shared.Actor{}, err
	}
	_ = s.client.Expire(ctx, tokenKeyPrefix+token, s.ttl).Err()
	return actor, nil
}

// Revoke removes a token.
func (s *TokenStore) Revoke(ctx context.Context, token string) error {
	if s == nil || s.client == nil {
		return errors.New("auth: token store not initialised")
	}
	return s.client.Del(ctx, tokenKeyPrefix+token).Err()
}
