package views

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"gorm.io/gorm"

	"github.com/logishift/viewrank/internal/models"
	"github.com/logishift/viewrank/pkg/telemetry"
)

// Ranker aggregates daily_views over a trailing window
type Ranker struct {
	db           *gorm.DB
	posts        PostLoader
	clock        clockwork.Clock
	loc          *time.Location
	defaultDays  int
	defaultLimit int
	tableReady   atomic.Bool
	duration     metric.Float64Histogram
}

// RankerOption configures a Ranker
type RankerOption func(*Ranker)

// WithDefaults overrides the values substituted for non-positive days and limit
func WithDefaults(days, limit int) RankerOption {
	return func(r *Ranker) {
		if days > 0 {
			r.defaultDays = days
		}
		if limit > 0 {
			r.defaultLimit = limit
		}
	}
}

// NewRanker creates a new popularity ranker
func NewRanker(database *gorm.DB, posts PostLoader, clock clockwork.Clock, loc *time.Location, opts ...RankerOption) *Ranker {
	r := &Ranker{
		db:           database,
		posts:        posts,
		clock:        clock,
		loc:          loc,
		defaultDays:  DefaultDays,
		defaultLimit: DefaultLimit,
		duration:     telemetry.Float64Histogram("views.rank.duration", "Time spent aggregating view counters", "ms"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Normalize applies this ranker's defaults to q
func (r *Ranker) Normalize(q Query) Query {
	return q.withDefaults(r.defaultDays, r.defaultLimit)
}

// Rank returns up to q.Limit posts ordered by views in the window, most viewed
// first. Posts that no longer exist are dropped.
func (r *Ranker) Rank(ctx context.Context, q Query) ([]RankedPost, error) {
	entries, err := r.TopEntries(ctx, q)
	if err != nil {
		return nil, err
	}
	return Hydrate(ctx, r.posts, entries)
}

// TopEntries runs the windowed aggregation. Equal totals are ordered by
// ascending content id. A missing counter table yields no entries.
func (r *Ranker) TopEntries(ctx context.Context, q Query) ([]Entry, error) {
	q = r.Normalize(q)

	ctx, span := telemetry.StartSpan(ctx, "views.rank")
	defer span.End()
	span.SetAttributes(attribute.Int("days", q.Days), attribute.Int("limit", q.Limit))

	start := r.clock.Now()
	defer func() {
		r.duration.Record(ctx, float64(r.clock.Since(start).Microseconds())/1000)
	}()

	if !r.hasTable(ctx) {
		return []Entry{}, nil
	}

	tx := r.db.WithContext(ctx).
		Table(models.DailyView{}.TableName()).
		Select("daily_views.content_id AS content_id, CAST(SUM(daily_views.count) AS BIGINT) AS total_views").
		Where("daily_views.view_date >= ?", WindowStart(r.clock.Now(), r.loc, q.Days))

	if f := q.Filter; f != nil {
		span.SetAttributes(attribute.Int64("term_id", f.TermID), attribute.String("taxonomy", f.taxonomy()))
		tx = tx.
			Joins("JOIN post_terms ON post_terms.post_id = daily_views.content_id").
			Joins("JOIN terms ON terms.id = post_terms.term_id").
			Where("terms.id = ? AND terms.taxonomy = ?", f.TermID, f.taxonomy())
	}

	var entries []Entry
	if err := tx.
		Group("daily_views.content_id").
		Order("total_views DESC").
		Order("daily_views.content_id ASC").
		Limit(q.Limit).
		Scan(&entries).Error; err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rank query failed")
		return nil, fmt.Errorf("failed to aggregate views: %w", err)
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

// hasTable checks for the counter table until it has been seen once.
func (r *Ranker) hasTable(ctx context.Context) bool {
	if r.tableReady.Load() {
		return true
	}
	if !r.db.WithContext(ctx).Migrator().HasTable(&models.DailyView{}) {
		return false
	}
	r.tableReady.Store(true)
	return true
}
