package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// CacheManager keeps the namespace list between runs
type CacheManager struct {
	cacheDir string
	now      func() time.Time
}

// CacheMetadata stores metadata about the cache
type CacheMetadata struct {
	Endpoint     string    `yaml:"endpoint"`
	IndexName    string    `yaml:"index_name"`
	Environment  string    `yaml:"environment"`
	CacheVersion string    `yaml:"cache_version"`
	FetchedAt    time.Time `yaml:"fetched_at"`
}

// NamespaceIndex is the YAML document written to the cache directory
type NamespaceIndex struct {
	Namespaces []string      `yaml:"namespaces"`
	Metadata   CacheMetadata `yaml:"metadata"`
}

// CacheKey identifies the search index a cached list belongs to
type CacheKey struct {
	Endpoint    string
	IndexName   string
	Environment string
}

const cacheVersion = "1.0"

// NewCacheManager creates a new cache manager
func NewCacheManager(cacheDir string) *CacheManager {
	return &CacheManager{
		cacheDir: cacheDir,
		now:      time.Now,
	}
}

// EnsureCacheDir ensures the cache directory exists
func (cm *CacheManager) EnsureCacheDir() error {
	return os.MkdirAll(cm.cacheDir, 0755)
}

// GetIndexPath returns the path to the namespace index YAML file
func (cm *CacheManager) GetIndexPath() string {
	return filepath.Join(cm.cacheDir, "namespaces.yaml")
}

// GetCacheDir returns the cache directory path
func (cm *CacheManager) GetCacheDir() string {
	return cm.cacheDir
}

// IsCacheValid checks whether the cached list belongs to key and is younger than ttl
func (cm *CacheManager) IsCacheValid(key CacheKey, ttl time.Duration) (bool, error) {
	if _, err := os.Stat(cm.GetIndexPath()); os.IsNotExist(err) {
		return false, nil
	}

	index, err := cm.LoadIndex()
	if err != nil {
		return false, nil
	}

	meta := index.Metadata
	if meta.CacheVersion != cacheVersion {
		return false, nil
	}
	if meta.Endpoint != key.Endpoint || meta.IndexName != key.IndexName || meta.Environment != key.Environment {
		return false, nil
	}
	if ttl > 0 && cm.now().Sub(meta.FetchedAt) > ttl {
		return false, nil
	}

	return true, nil
}

// LoadIndex loads the namespace index
func (cm *CacheManager) LoadIndex() (*NamespaceIndex, error) {
	data, err := os.ReadFile(cm.GetIndexPath())
	if err != nil {
		return nil, err
	}

	var index NamespaceIndex
	if err := yaml.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("failed to unmarshal index: %w", err)
	}

	return &index, nil
}

// SaveNamespaces writes a freshly fetched namespace list for key
func (cm *CacheManager) SaveNamespaces(key CacheKey, namespaces []string) error {
	return cm.SaveIndex(&NamespaceIndex{
		Namespaces: namespaces,
		Metadata: CacheMetadata{
			Endpoint:     key.Endpoint,
			IndexName:    key.IndexName,
			Environment:  key.Environment,
			CacheVersion: cacheVersion,
			FetchedAt:    cm.now().UTC(),
		},
	})
}

// SaveIndex saves the namespace index
func (cm *CacheManager) SaveIndex(index *NamespaceIndex) error {
	if err := cm.EnsureCacheDir(); err != nil {
		return err
	}

	data, err := yaml.Marshal(index)
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}

	return os.WriteFile(cm.GetIndexPath(), data, 0644)
}

// ClearCache clears the cache
func (cm *CacheManager) ClearCache() error {
	if err := os.Remove(cm.GetIndexPath()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
