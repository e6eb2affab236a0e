package fundamentals

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Cache keeps raw provider responses on disk for ttl. A zero ttl or empty
// directory disables it.
type Cache struct {
	dir string
	ttl time.Duration
	mu  sync.RWMutex
	now func() time.Time
}

type cacheEntry struct {
	Key      string          `json:"key"`
	StoredAt time.Time       `json:"stored_at"`
	Body     json.RawMessage `json:"body"`
}

func NewCache(dir string, ttl time.Duration) *Cache {
	return &Cache{dir: dir, ttl: ttl, now: time.Now}
}

func (c *Cache) enabled() bool {
	return c != nil && c.dir != "" && c.ttl > 0
}

func (c *Cache) path(key string) string {
	sum := sha1.Sum([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+".json")
}

// Get returns the body stored under key if it has not expired.
func (c *Cache) Get(key string) ([]byte, bool) {
	if !c.enabled() {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, false
	}
	var e cacheEntry
	if err := json.Unmarshal(data, &e); err != nil || e.Key != key {
		return nil, false
	}
	if c.now().Sub(e.StoredAt) > c.ttl {
		return nil, false
	}
	return e.Body, true
}

// Set stores body, which must be valid JSON.
func (c *Cache) Set(key string, body []byte) error {
	if !c.enabled() {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(cacheEntry{Key: key, StoredAt: c.now(), Body: body})
	if err != nil {
		return err
	}
	return os.WriteFile(c.path(key), data, 0o644)
}

// Prune removes expired entries.
func (c *Cache) Prune() error {
	if !c.enabled() {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, de := range entries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".json") {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		if c.now().Sub(info.ModTime()) > c.ttl {
			_ = os.Remove(filepath.Join(c.dir, de.Name()))
		}
	}
	return nil
}

// GetOrFetch serves key from the cache or calls fetch and stores its result.
// A failed store is not an error.
func (c *Cache) GetOrFetch(key string, fetch func() ([]byte, error)) ([]byte, error) {
	if body, ok := c.Get(key); ok {
		return body, nil
	}
	body, err := fetch()
	if err != nil {
		return nil, err
	}
	_ = c.Set(key, body)
	return body, nil
}

// cacheKey joins parts into a stable key.
func cacheKey(parts ...string) string {
	return strings.Join(parts, "|")
}
