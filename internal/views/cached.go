package views

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/logishift/viewrank/internal/cache"
	"github.com/logishift/viewrank/pkg/logging"
	"github.com/logishift/viewrank/pkg/telemetry"
)

const loadTimeout = 30 * time.Second

// JSONCache is the subset of *cache.Cache the ranking cache needs
type JSONCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// EntrySource produces aggregated ranking entries
type EntrySource interface {
	Normalize(q Query) Query
	TopEntries(ctx context.Context, q Query) ([]Entry, error)
}

// CachedRanker caches aggregated entries, not posts: hydration runs on every
// call so deleted posts drop out before the entry expires.
type CachedRanker struct {
	source EntrySource
	posts  PostLoader
	cache  JSONCache
	ttl    time.Duration
	clock  clockwork.Clock
	loc    *time.Location
	group  singleflight.Group
	logger *zap.Logger
	lookup metric.Int64Counter
}

// NewCachedRanker wraps source with a read-through cache
func NewCachedRanker(source EntrySource, posts PostLoader, c JSONCache, ttl time.Duration, clock clockwork.Clock, loc *time.Location) *CachedRanker {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedRanker{
		source: source,
		posts:  posts,
		cache:  c,
		ttl:    ttl,
		clock:  clock,
		loc:    loc,
		logger: logging.WithComponent("views-cache"),
		lookup: telemetry.Int64Counter("views.rank.cache", "Ranking cache lookups by result"),
	}
}

// Rank implements Ranking
func (c *CachedRanker) Rank(ctx context.Context, q Query) ([]RankedPost, error) {
	entries, err := c.entries(ctx, c.source.Normalize(q))
	if err != nil {
		return nil, err
	}
	return Hydrate(ctx, c.posts, entries)
}

func (c *CachedRanker) entries(ctx context.Context, q Query) ([]Entry, error) {
	key := c.key(q)

	var cached []Entry
	err := c.cache.GetJSON(ctx, key, &cached)
	switch {
	case err == nil:
		c.count(ctx, "hit")
		return cached, nil
	case errors.Is(err, cache.ErrCacheDisabled):
		return c.source.TopEntries(ctx, q)
	case errors.Is(err, cache.ErrUnavailable):
		c.count(ctx, "bypass")
		return c.source.TopEntries(ctx, q)
	case errors.Is(err, cache.ErrMiss):
		c.count(ctx, "miss")
	default:
		c.count(ctx, "error")
		c.logger.Warn("Ranking cache read failed", zap.String("key", key), zap.Error(err))
	}

	// The load is shared by every caller waiting on key, so it must not
	// inherit the first caller's cancellation.
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		entries, err := c.source.TopEntries(loadCtx, q)
		if err != nil {
			return nil, err
		}
		if err := c.cache.SetJSON(loadCtx, key, entries, c.ttl); err != nil {
			c.logger.Warn("Ranking cache write failed", zap.String("key", key), zap.Error(err))
		}
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Entry), nil
}

// key includes today's date so a cached window never outlives its day.
func (c *CachedRanker) key(q Query) string {
	parts := []string{
		"popular_posts",
		today(c.clock, c.loc),
		strconv.Itoa(q.Days),
		strconv.Itoa(q.Limit),
	}
	if q.Filter != nil {
		parts = append(parts, q.Filter.taxonomy(), strconv.FormatInt(q.Filter.TermID, 10))
	}
	return cache.HashKey(parts...)
}

func (c *CachedRanker) count(ctx context.Context, result string) {
	c.lookup.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
