// Package cached wraps a title.Repository with a read-through cache.
package cached

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"imdb-titles/internal/platform/rediscache"
	"imdb-titles/internal/title"
)

// KeyPrefix namespaces title entries in the cache.
const KeyPrefix = "title:"

// DefaultTTL is used when New is given a non-positive ttl.
const DefaultTTL = 10 * time.Minute

// Cache is the subset of rediscache.Cache the decorator needs.
type Cache interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

var _ Cache = (*rediscache.Cache)(nil)

// Store serves Get from the cache when possible and fills it on a miss. Put
// writes through to the underlying repository and then evicts the keys.
//
// Cache failures never fail a call; they are logged and the repository is
// used instead.
type Store struct {
	next  title.Repository
	cache Cache
	ttl   time.Duration
	log   *slog.Logger
}

// New wraps next with cache.
func New(next title.Repository, cache Cache, ttl time.Duration, log *slog.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		next:  next,
		cache: cache,
		ttl:   ttl,
		log:   log.With(slog.String("component", "title_cache")),
	}
}

// Key returns the cache key of a title.
func Key(id string) string {
	return KeyPrefix + id
}

func (s *Store) Get(ctx context.Context, id string) (title.Record, error) {
	var rec title.Record
	err := s.cache.Get(ctx, Key(id), &rec)
	switch {
	case err == nil:
		return rec, nil
	case errors.Is(err, rediscache.ErrCacheMiss):
	default:
		s.log.WarnContext(ctx, "cache read failed", slog.String("id", id), slog.Any("error", err))
	}

	rec, err = s.next.Get(ctx, id)
	if err != nil {
		return title.Record{}, err
	}

	if err := s.cache.Set(ctx, Key(id), rec, s.ttl); err != nil {
		s.log.WarnContext(ctx, "cache write failed", slog.String("id", id), slog.Any("error", err))
	}
	return rec, nil
}

func (s *Store) Put(ctx context.Context, records ...title.Record) error {
	if err := s.next.Put(ctx, records...); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	keys := make([]string, len(records))
	for i, r := range records {
		keys[i] = Key(r.ID())
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.log.WarnContext(ctx, "cache eviction failed", slog.Int("count", len(keys)), slog.Any("error", err))
	}
	return nil
}

// Ping forwards to the wrapped repository when it supports it.
func (s *Store) Ping(ctx context.Context) error {
	if p, ok := s.next.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

var _ title.Repository = (*Store)(nil)
