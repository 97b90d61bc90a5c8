package validation

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/mzemr/record-api/internal/repository"
)

// CachedLookup answers dictionary queries from an in-process cache in
// front of the dict repository. Code sets change rarely, so a short TTL
// keeps submit-time validation off the database for the common case.
type CachedLookup struct {
	repo  repository.DictRepository
	cache *cache.Cache
}

func NewCachedLookup(repo repository.DictRepository, ttl time.Duration) *CachedLookup {
	return &CachedLookup{
		repo:  repo,
		cache: cache.New(ttl, 2*ttl),
	}
}

type nameEntry struct {
	name  string
	found bool
}

func (l *CachedLookup) CodeExists(ctx context.Context, setCode, code string) (bool, error) {
	key := "exists:" + setCode + ":" + code
	if cached, ok := l.cache.Get(key); ok {
		return cached.(bool), nil
	}

	exists, err := l.repo.CodeExists(ctx, setCode, code)
	if err != nil {
		return false, fmt.Errorf("failed to look up dict code: %w", err)
	}
	l.cache.SetDefault(key, exists)
	return exists, nil
}

func (l *CachedLookup) CanonicalName(ctx context.Context, setCode, code string) (string, bool, error) {
	key := "name:" + setCode + ":" + code
	if cached, ok := l.cache.Get(key); ok {
		entry := cached.(nameEntry)
		return entry.name, entry.found, nil
	}

	name, found, err := l.repo.CanonicalName(ctx, setCode, code)
	if err != nil {
		return "", false, fmt.Errorf("failed to look up dict name: %w", err)
	}
	l.cache.SetDefault(key, nameEntry{name: name, found: found})
	return name, found, nil
}
