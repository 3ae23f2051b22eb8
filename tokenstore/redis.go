package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	campus "github.com/campushq/campus-go"
)

// Redis persists the credential pair under a single key, sharing it across
// processes pointing at the same Redis.
type Redis struct {
	client redis.UniversalClient
	key    string
}

// NewRedis creates a Redis-backed store writing under the given key.
func NewRedis(client redis.UniversalClient, key string) *Redis {
	return &Redis{client: client, key: key}
}

type redisPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Save persists the pair, replacing any previous one.
func (r *Redis) Save(ctx context.Context, pair campus.CredentialPair) error {
	data, err := json.Marshal(redisPair{Access: pair.Access, Refresh: pair.Refresh})
	if err != nil {
		return fmt.Errorf("campus/tokenstore: marshal credential: %w", err)
	}

	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("campus/tokenstore: redis set: %w", err)
	}
	return nil
}

// Load returns the stored pair, or ErrUnauthenticated when the key is
// absent.
func (r *Redis) Load(ctx context.Context) (campus.CredentialPair, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return campus.CredentialPair{}, campus.ErrUnauthenticated
		}
		return campus.CredentialPair{}, fmt.Errorf("campus/tokenstore: redis get: %w", err)
	}

	var p redisPair
	if err := json.Unmarshal(data, &p); err != nil {
		return campus.CredentialPair{}, fmt.Errorf("campus/tokenstore: decode credential: %w", err)
	}

	pair := campus.CredentialPair{Access: p.Access, Refresh: p.Refresh}
	if pair.Empty() {
		return campus.CredentialPair{}, campus.ErrUnauthenticated
	}
	return pair, nil
}

// Clear deletes the key. A missing key is not an error.
func (r *Redis) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("campus/tokenstore: redis del: %w", err)
	}
	return nil
}
