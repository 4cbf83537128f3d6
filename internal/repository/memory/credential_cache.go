package memory

import (
	"time"

	"ai-dispatch-be/internal/entity"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// CredentialCache keeps recently resolved user API keys in process memory.
// The TTL bounds how long a revoked key can still be considered self-funding.
type CredentialCache struct {
	cache *cache.Cache
}

func NewCredentialCache(ttl time.Duration) *CredentialCache {
	return &CredentialCache{
		cache: cache.New(ttl, 10*time.Minute),
	}
}

func key(userId uuid.UUID, vendorFamily string) string {
	return userId.String() + "|" + vendorFamily
}

// Get returns (credential, true) on a hit. A cached nil means the user is
// known to have no key for that vendor, which is also a hit.
func (c *CredentialCache) Get(userId uuid.UUID, vendorFamily string) (*entity.ApiCredential, bool) {
	if x, found := c.cache.Get(key(userId, vendorFamily)); found {
		if x == nil {
			return nil, true
		}
		return x.(*entity.ApiCredential), true
	}
	return nil, false
}

func (c *CredentialCache) Set(userId uuid.UUID, vendorFamily string, cred *entity.ApiCredential) {
	if cred == nil {
		c.cache.Set(key(userId, vendorFamily), nil, cache.DefaultExpiration)
		return
	}
	c.cache.Set(key(userId, vendorFamily), cred, cache.DefaultExpiration)
}

func (c *CredentialCache) Invalidate(userId uuid.UUID, vendorFamily string) {
	c.cache.Delete(key(userId, vendorFamily))
}
