package excerpt

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of archived bundles kept in memory.
const DefaultCacheSize = 1024

// CachedArchive is a read-through cache of archived bundles by identifier.
// Archived bundles never change, so entries are not invalidated.
type CachedArchive struct {
	ArchiveRepository
	cache *lru.Cache[string, *ArchivedBundle]
}

func NewCachedArchive(repo ArchiveRepository, size int) (*CachedArchive, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, *ArchivedBundle](size)
	if err != nil {
		return nil, fmt.Errorf("create archive cache: %w", err)
	}
	return &CachedArchive{ArchiveRepository: repo, cache: cache}, nil
}

func (c *CachedArchive) Create(ctx context.Context, a *ArchivedBundle) error {
	if err := c.ArchiveRepository.Create(ctx, a); err != nil {
		return err
	}
	c.cache.Add(a.Identifier, a)
	return nil
}

func (c *CachedArchive) GetByIdentifier(ctx context.Context, identifier string) (*ArchivedBundle, error) {
	if a, ok := c.cache.Get(identifier); ok {
		return a, nil
	}
	a, err := c.ArchiveRepository.GetByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}
	c.cache.Add(identifier, a)
	return a, nil
}

// Len returns the number of cached bundles.
func (c *CachedArchive) Len() int {
	return c.cache.Len()
}
