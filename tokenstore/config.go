package tokenstore

import (
	"github.com/redis/go-redis/v9"

	campus "github.com/campushq/campus-go"
)

// DefaultRedisKey is the key the Redis store writes under when the
// configuration leaves it unset.
const DefaultRedisKey = "campus:credentials"

// FromConfig builds the token store named by the configuration: the Redis
// store when RedisAddr is set, the file store when TokenFile is set, and
// the in-memory store otherwise. It lives here rather than on NewClient
// because the root package cannot depend on its own store implementations.
func FromConfig(cfg campus.Config) campus.TokenStore {
	switch {
	case cfg.RedisAddr != "":
		key := cfg.RedisKey
		if key == "" {
			key = DefaultRedisKey
		}
		return NewRedis(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}), key)
	case cfg.TokenFile != "":
		return NewFile(cfg.TokenFile)
	default:
		return NewMemory()
	}
}
