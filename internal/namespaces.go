package internal

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultNamespaceTTL is how long a fetched namespace list stays fresh
const DefaultNamespaceTTL = 10 * time.Minute

// NamespaceLister fetches namespaces from the search index
type NamespaceLister interface {
	ListNamespaces(ctx context.Context, creds Credentials) ([]string, error)
}

// Directory enumerates namespaces from the backend, keeping a YAML cache
type Directory struct {
	lister  NamespaceLister
	gate    *CredentialGate
	cache   *CacheManager
	key     CacheKey
	ttl     time.Duration
	loading atomic.Bool

	mu      sync.Mutex
	refresh bool
}

// NewDirectory creates a Directory. cache may be nil.
func NewDirectory(lister NamespaceLister, gate *CredentialGate, cache *CacheManager, endpoint string, ttl time.Duration) *Directory {
	creds := gate.Get()
	return &Directory{
		lister: lister,
		gate:   gate,
		cache:  cache,
		key: CacheKey{
			Endpoint:    endpoint,
			IndexName:   creds.PineconeIndexName,
			Environment: creds.PineconeEnvironment,
		},
		ttl: ttl,
	}
}

// ForceRefresh makes the next Namespaces call skip the cache
func (d *Directory) ForceRefresh() {
	d.mu.Lock()
	d.refresh = true
	d.mu.Unlock()
}

// Loading reports whether a fetch is in progress
func (d *Directory) Loading() bool {
	return d.loading.Load()
}

// Namespaces returns the sorted namespace list
func (d *Directory) Namespaces(ctx context.Context) ([]string, error) {
	d.mu.Lock()
	refresh := d.refresh
	d.refresh = false
	d.mu.Unlock()

	if d.cache != nil && !refresh {
		if valid, _ := d.cache.IsCacheValid(d.key, d.ttl); valid {
			if index, err := d.cache.LoadIndex(); err == nil {
				LogDebug("Loaded %d namespace(s) from cache", len(index.Namespaces))
				return index.Namespaces, nil
			}
		}
	}

	creds, err := d.gate.Check()
	if err != nil {
		return nil, err
	}

	d.loading.Store(true)
	defer d.loading.Store(false)

	namespaces, err := d.lister.ListNamespaces(ctx, creds)
	if err != nil {
		return nil, err
	}
	sort.Strings(namespaces)

	if d.cache != nil {
		if err := d.cache.SaveNamespaces(d.key, namespaces); err != nil {
			LogWarn("Failed to cache namespaces: %v", err)
		}
	}
	return namespaces, nil
}

// StaticDirectory is a fixed namespace list from configuration
type StaticDirectory []string

// Namespaces returns a sorted copy of the configured list
func (s StaticDirectory) Namespaces(context.Context) ([]string, error) {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out, nil
}

// Loading reports false; nothing is fetched
func (s StaticDirectory) Loading() bool {
	return false
}
