package repoapi

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Compile-time interface check.
var _ Client = (*CachingClient)(nil)

// DefaultCacheEntries bounds each cache when the caller passes no size.
const DefaultCacheEntries = 1024

// CachingClient is a read-through decorator holding bounded LRU caches for
// listings and file contents, so re-analyzing a directory does not re-fetch
// it. Errors are never cached. Cached values are copied on both sides of
// the cache; callers can mutate what they get back.
type CachingClient struct {
	inner    Client
	listings *lru.Cache[string, []Entry]
	contents *lru.Cache[string, []byte]
}

// NewCachingClient wraps inner with caches holding up to entries items each.
func NewCachingClient(inner Client, entries int) (*CachingClient, error) {
	if entries <= 0 {
		entries = DefaultCacheEntries
	}
	listings, err := lru.New[string, []Entry](entries)
	if err != nil {
		return nil, fmt.Errorf("repoapi: listing cache: %w", err)
	}
	contents, err := lru.New[string, []byte](entries)
	if err != nil {
		return nil, fmt.Errorf("repoapi: content cache: %w", err)
	}
	return &CachingClient{inner: inner, listings: listings, contents: contents}, nil
}

// List returns the cached listing for dir or fetches and caches it.
func (c *CachingClient) List(ctx context.Context, dir string) ([]Entry, error) {
	if cached, ok := c.listings.Get(dir); ok {
		return copyEntries(cached), nil
	}
	entries, err := c.inner.List(ctx, dir)
	if err != nil {
		return nil, err
	}
	c.listings.Add(dir, copyEntries(entries))
	return entries, nil
}

// GetContent returns the cached bytes for path or fetches and caches them.
func (c *CachingClient) GetContent(ctx context.Context, path string) ([]byte, error) {
	if cached, ok := c.contents.Get(path); ok {
		return append([]byte(nil), cached...), nil
	}
	body, err := c.inner.GetContent(ctx, path)
	if err != nil {
		return nil, err
	}
	c.contents.Add(path, append([]byte(nil), body...))
	return body, nil
}

// Purge empties both caches.
func (c *CachingClient) Purge() {
	c.listings.Purge()
	c.contents.Purge()
}

func copyEntries(in []Entry) []Entry {
	out := make([]Entry, len(in))
	copy(out, in)
	return out
}
