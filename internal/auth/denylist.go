package auth

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// defaultDenylistSize bounds how many revoked refresh tokens are remembered.
const defaultDenylistSize = 4096

// Denylist remembers revoked token ids until they would have expired anyway.
type Denylist struct {
	mu    sync.Mutex
	cache *lru.Cache[string, time.Time]
	now   func() time.Time
}

// NewDenylist returns a denylist holding up to size ids.
func NewDenylist(size int) *Denylist {
	if size <= 0 {
		size = defaultDenylistSize
	}
	cache, _ := lru.New[string, time.Time](size)
	return &Denylist{cache: cache, now: time.Now}
}

// Revoke records jti as revoked until expiresAt.
func (d *Denylist) Revoke(jti string, expiresAt time.Time) {
	if jti == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cache.Add(jti, expiresAt)
}

// Revoked reports whether jti has been revoked.
func (d *Denylist) Revoked(jti string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	expiresAt, ok := d.cache.Get(jti)
	if !ok {
		return false
	}
	if d.now().After(expiresAt) {
		d.cache.Remove(jti)
		return false
	}
	return true
}

// Len returns the number of remembered ids.
func (d *Denylist) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cache.Len()
}
