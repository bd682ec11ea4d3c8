package rbac

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/platinummonkey/bastion/pkg/hierarchy"
	"github.com/platinummonkey/bastion/pkg/resource"
)

// CachedResolver serves snapshots from a bounded, TTL-expiring LRU.
// Menu trees are always resolved fresh.
type CachedResolver struct {
	next      PermissionResolver
	snapshots *expirable.LRU[int64, *Snapshot]
}

// NewCachedResolver wraps next with a snapshot cache of the given size and TTL.
func NewCachedResolver(next PermissionResolver, size int, ttl time.Duration) *CachedResolver {
	if size <= 0 {
		size = 1024
	}
	return &CachedResolver{
		next:      next,
		snapshots: expirable.NewLRU[int64, *Snapshot](size, nil, ttl),
	}
}

// Resolve implements PermissionResolver.
func (c *CachedResolver) Resolve(ctx context.Context, userID int64) (*Snapshot, error) {
	if snap, ok := c.snapshots.Get(userID); ok {
		return snap, nil
	}

	snap, err := c.next.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	c.snapshots.Add(userID, snap)
	return snap, nil
}

// MenuTree implements PermissionResolver.
func (c *CachedResolver) MenuTree(ctx context.Context, userID int64) ([]*hierarchy.Tree[resource.Menu], error) {
	return c.next.MenuTree(ctx, userID)
}

// Invalidate drops the cached snapshot of the given users.
func (c *CachedResolver) Invalidate(userIDs ...int64) {
	for _, id := range userIDs {
		c.snapshots.Remove(id)
	}
}

// Purge drops every cached snapshot.
func (c *CachedResolver) Purge() {
	c.snapshots.Purge()
}

// Len returns the number of cached snapshots.
func (c *CachedResolver) Len() int {
	return c.snapshots.Len()
}
