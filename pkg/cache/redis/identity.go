// Package redis shares resolved identities between replicas through Redis.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/artem13815/accounts/pkg/auth"
)

const (
	keyPrefix = "identity:"
	genPrefix = "identity:gen:"

	// DefaultTTL applies when the caller passes a non-positive ttl; SET with a
	// zero expiration would keep entries forever.
	DefaultTTL = 30 * time.Second

	// Generation keys outlive any entry written against them.
	genTTLFactor = 10
)

type cachedIdentity struct {
	UserID  uuid.UUID `json:"userId"`
	IsAdmin bool      `json:"isAdmin"`
	Gen     int64     `json:"gen"`
}

// IdentityCache wraps an auth.IdentityResolver. Redis failures degrade to the
// wrapped resolver instead of failing the request.
type IdentityCache struct {
	client *redis.Client
	next   auth.IdentityResolver
	ttl    time.Duration
	log    logrus.FieldLogger
}

// NewClient parses a redis:// URL and pings the server.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func NewIdentityCache(client *redis.Client, next auth.IdentityResolver, ttl time.Duration, log logrus.FieldLogger) *IdentityCache {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &IdentityCache{client: client, next: next, ttl: ttl, log: log.WithField("component", "identity-cache")}
}

func key(id uuid.UUID) string    { return keyPrefix + id.String() }
func genKey(id uuid.UUID) string { return genPrefix + id.String() }

// ResolveIdentity serves an entry only when it was written at the user's
// current invalidation generation. A lookup that raced an Invalidate writes
// its result under the old generation, so the entry is never served.
func (c *IdentityCache) ResolveIdentity(ctx context.Context, subject string) (auth.Identity, error) {
	id, err := uuid.Parse(subject)
	if err != nil {
		return c.next.ResolveIdentity(ctx, subject)
	}

	gen, cached, err := c.lookup(ctx, id)
	if err != nil {
		c.log.WithError(err).Warn("identity cache read failed")
		return c.next.ResolveIdentity(ctx, subject)
	}
	if cached != nil && cached.Gen == gen {
		return auth.Identity{UserID: cached.UserID, IsAdmin: cached.IsAdmin}, nil
	}

	identity, err := c.next.ResolveIdentity(ctx, subject)
	if err != nil {
		return auth.Identity{}, err
	}
	payload, err := json.Marshal(cachedIdentity{UserID: identity.UserID, IsAdmin: identity.IsAdmin, Gen: gen})
	if err != nil {
		return identity, nil
	}
	if err := c.client.Set(ctx, key(id), payload, c.ttl).Err(); err != nil {
		c.log.WithError(err).Warn("identity cache write failed")
	}
	return identity, nil
}

// lookup reads the current generation and the cached entry in one round trip.
func (c *IdentityCache) lookup(ctx context.Context, id uuid.UUID) (int64, *cachedIdentity, error) {
	vals, err := c.client.MGet(ctx, genKey(id), key(id)).Result()
	if err != nil {
		return 0, nil, err
	}
	var gen int64
	if s, ok := vals[0].(string); ok {
		if gen, err = strconv.ParseInt(s, 10, 64); err != nil {
			return 0, nil, fmt.Errorf("parse generation: %w", err)
		}
	}
	raw, ok := vals[1].(string)
	if !ok {
		return gen, nil, nil
	}
	var cached cachedIdentity
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		c.log.WithField("user_id", id).Warn("discarding malformed cached identity")
		return gen, nil, nil
	}
	return gen, &cached, nil
}

func (c *IdentityCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey(userID))
		pipe.Expire(ctx, genKey(userID), c.ttl*genTTLFactor)
		pipe.Del(ctx, key(userID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate identity %s: %w", userID, err)
	}
	return nil
}
