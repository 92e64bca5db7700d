package refresh

import (
	"sync"
	"time"

	"github.com/rmacdonaldsmith/traefik-tailscale-go/pkg/traefik"
)

// Cache is the single slot holding the last generated configuration.
// Stored configurations are shared with readers and must not be modified
// after Store.
type Cache struct {
	mu          sync.RWMutex
	config      *traefik.DynamicConfig
	generatedAt time.Time
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{}
}

// Load returns the cached configuration and when it was generated. The
// configuration is nil while the cache is empty.
func (c *Cache) Load() (*traefik.DynamicConfig, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config, c.generatedAt
}

// Store replaces the cached configuration.
func (c *Cache) Store(cfg *traefik.DynamicConfig, generatedAt time.Time) {
	c.mu.Lock()
	c.config = cfg
	c.generatedAt = generatedAt
	c.mu.Unlock()
}
