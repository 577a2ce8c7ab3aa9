package service

import (
	"crypto/sha256"
	"sync"
	"time"
)

// KeyCache remembers recently verified API keys so repeat requests skip the
// bcrypt comparison. Entries are keyed by a SHA-256 digest of the raw key and
// expire after the TTL, which bounds how long a key revoked by another
// process keeps authenticating. A nil *KeyCache caches nothing.
type KeyCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	max     int
	now     func() time.Time
	entries map[[sha256.Size]byte]cachedKey
}

type cachedKey struct {
	identity Identity
	expires  time.Time
}

// NewKeyCache returns a cache holding at most max keys for ttl each. A
// non-positive ttl disables caching.
func NewKeyCache(ttl time.Duration, max int) *KeyCache {
	if ttl <= 0 {
		return nil
	}
	if max <= 0 {
		max = 10000
	}
	return &KeyCache{
		ttl:     ttl,
		max:     max,
		now:     time.Now,
		entries: make(map[[sha256.Size]byte]cachedKey),
	}
}

// Get returns the identity cached for raw if it has not expired.
func (c *KeyCache) Get(raw string) (*Identity, bool) {
	if c == nil {
		return nil, false
	}
	digest := sha256.Sum256([]byte(raw))

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[digest]
	if !ok {
		return nil, false
	}
	if !c.now().Before(entry.expires) {
		delete(c.entries, digest)
		return nil, false
	}
	id := entry.identity
	return &id, true
}

// Put records that raw verified as id.
func (c *KeyCache) Put(raw string, id Identity) {
	if c == nil {
		return
	}
	digest := sha256.Sum256([]byte(raw))

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if len(c.entries) >= c.max {
		for k, e := range c.entries {
			if !now.Before(e.expires) {
				delete(c.entries, k)
			}
		}
	}
	if len(c.entries) >= c.max {
		for k := range c.entries {
			delete(c.entries, k)
			break
		}
	}
	c.entries[digest] = cachedKey{identity: id, expires: now.Add(c.ttl)}
}

// Invalidate drops every cached entry for the key id.
func (c *KeyCache) Invalidate(keyID string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, e := range c.entries {
		if e.identity.KeyID == keyID {
			delete(c.entries, k)
		}
	}
}

// Len reports the number of cached keys, expired ones included.
func (c *KeyCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
