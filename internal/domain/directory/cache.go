package directory

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type ApproverSource interface {
	ApproverIDs(ctx context.Context) ([]string, error)
}

// CachedApprovers keeps the approver list for TTL and collapses concurrent refreshes into one query.
type CachedApprovers struct {
	Source ApproverSource
	TTL    time.Duration
	Now    func() time.Time

	group     singleflight.Group
	mu        sync.Mutex
	ids       []string
	fetchedAt time.Time
}

func NewCachedApprovers(source ApproverSource, ttl time.Duration) *CachedApprovers {
	return &CachedApprovers{Source: source, TTL: ttl, Now: time.Now}
}

func (c *CachedApprovers) ApproverIDs(ctx context.Context) ([]string, error) {
	now := c.Now()
	c.mu.Lock()
	if !c.fetchedAt.IsZero() && now.Sub(c.fetchedAt) < c.TTL {
		ids := append([]string(nil), c.ids...)
		c.mu.Unlock()
		return ids, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do("approvers", func() (any, error) {
		ids, err := c.Source.ApproverIDs(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.ids = ids
		c.fetchedAt = now
		c.mu.Unlock()
		return ids, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]string(nil), v.([]string)...), nil
}

// Invalidate forces the next call to reload.
func (c *CachedApprovers) Invalidate() {
	c.mu.Lock()
	c.fetchedAt = time.Time{}
	c.mu.Unlock()
}
