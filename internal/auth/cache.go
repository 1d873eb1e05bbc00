package auth

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Clark-Hu/media-catalog/internal/domain"
)

type cachedRole struct {
	role      domain.Role
	expiresAt time.Time
}

// roleCache is a size-bounded LRU whose entries also expire after ttl.
type roleCache struct {
	storage *lru.Cache[int64, cachedRole]
	ttl     time.Duration
	now     func() time.Time
}

func newRoleCache(size int, ttl time.Duration) (*roleCache, error) {
	c, err := lru.New[int64, cachedRole](size)
	if err != nil {
		return nil, err
	}
	return &roleCache{storage: c, ttl: ttl, now: time.Now}, nil
}

func (c *roleCache) Set(userID int64, role domain.Role) {
	c.storage.Add(userID, cachedRole{role: role, expiresAt: c.now().Add(c.ttl)})
}

func (c *roleCache) Get(userID int64) (domain.Role, bool) {
	item, ok := c.storage.Get(userID)
	if !ok {
		return "", false
	}
	if c.now().After(item.expiresAt) {
		c.storage.Remove(userID)
		return "", false
	}
	return item.role, true
}
