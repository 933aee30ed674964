// Package memory caches resolved identities in a process-local expirable LRU.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/artem13815/accounts/pkg/auth"
)

// DefaultTTL bounds entry lifetime when the caller passes a non-positive ttl;
// the LRU would otherwise keep entries forever.
const DefaultTTL = 30 * time.Second

// IdentityCache wraps an auth.IdentityResolver. Entries live at most ttl, so
// a change made by another replica is visible after ttl at the latest.
type IdentityCache struct {
	next  auth.IdentityResolver
	cache *lru.LRU[uuid.UUID, auth.Identity]
	ttl   time.Duration

	// gen counts invalidations. A lookup that overlapped one does not write
	// its result back, since it may have read the record before the change.
	mu  sync.Mutex
	gen uint64
}

func NewIdentityCache(next auth.IdentityResolver, size int, ttl time.Duration) *IdentityCache {
	if size <= 0 {
		size = 1024
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &IdentityCache{
		next:  next,
		cache: lru.NewLRU[uuid.UUID, auth.Identity](size, nil, ttl),
		ttl:   ttl,
	}
}

func (c *IdentityCache) ResolveIdentity(ctx context.Context, subject string) (auth.Identity, error) {
	id, err := uuid.Parse(subject)
	if err != nil {
		return c.next.ResolveIdentity(ctx, subject)
	}
	if identity, ok := c.cache.Get(id); ok {
		return identity, nil
	}

	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	identity, err := c.next.ResolveIdentity(ctx, subject)
	if err != nil {
		return auth.Identity{}, err
	}

	c.mu.Lock()
	if c.gen == gen {
		c.cache.Add(id, identity)
	}
	c.mu.Unlock()
	return identity, nil
}

func (c *IdentityCache) Invalidate(_ context.Context, userID uuid.UUID) error {
	c.mu.Lock()
	c.gen++
	c.cache.Remove(userID)
	c.mu.Unlock()
	return nil
}

func (c *IdentityCache) Len() int { return c.cache.Len() }
