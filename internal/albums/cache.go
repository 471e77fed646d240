package albums

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/coocood/freecache"
	"github.com/goccy/go-json"
)

// Cache memoizes aggregation results per user and access token, so one
// browsing session doesn't re-run the full pagination on every page view.
// Keys embed a fingerprint of the access token: issuing a new token changes
// the key, which invalidates the old entry without an explicit delete.
type Cache struct {
	store *freecache.Cache
	ttl   int // seconds
}

// NewCache creates a cache of the given size in megabytes.
func NewCache(sizeMB int, ttl time.Duration) *Cache {
	seconds := int(ttl.Seconds())
	if seconds < 1 {
		seconds = 1
	}
	return &Cache{
		store: freecache.NewCache(sizeMB * 1024 * 1024),
		ttl:   seconds,
	}
}

// Get returns the memoized result for the user/token pair, if present.
func (c *Cache) Get(userID, accessToken string) (Result, bool) {
	data, err := c.store.Get(cacheKey(userID, accessToken))
	if err != nil {
		return nil, false
	}

	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, false
	}
	return res, true
}

// Set memoizes a result for the user/token pair.
func (c *Cache) Set(userID, accessToken string, res Result) {
	data, err := json.Marshal(res)
	if err != nil {
		return
	}
	_ = c.store.Set(cacheKey(userID, accessToken), data, c.ttl)
}

// cacheKey builds the lookup key. The access token is fingerprinted rather
// than stored verbatim.
func cacheKey(userID, accessToken string) []byte {
	sum := sha256.Sum256([]byte(accessToken))
	return []byte(userID + ":" + hex.EncodeToString(sum[:16]))
}
