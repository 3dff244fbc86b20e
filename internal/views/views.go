// Package views records daily per-post view counts and ranks posts by
// recent popularity.
package views

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/logishift/viewrank/internal/models"
)

// Ranking defaults applied to non-positive query values
const (
	DefaultDays     = 7
	DefaultLimit    = 5
	DefaultTaxonomy = "category"

	// MaxDays caps the lookback; larger windows overflow date arithmetic.
	MaxDays = 36500
)

// ErrInvalidContentID is returned when recording a view for a non-positive id
var ErrInvalidContentID = errors.New("content id must be positive")

// TaxonomyFilter restricts ranking to posts associated with one term
type TaxonomyFilter struct {
	TermID   int64
	Taxonomy string
}

func (f *TaxonomyFilter) active() bool {
	return f != nil && f.TermID > 0
}

func (f *TaxonomyFilter) taxonomy() string {
	if f.Taxonomy == "" {
		return DefaultTaxonomy
	}
	return f.Taxonomy
}

// Query selects the lookback window, result size and optional term filter
type Query struct {
	Days   int
	Limit  int
	Filter *TaxonomyFilter
}

// withDefaults substitutes defaults for non-positive values, caps the window
// at MaxDays and drops an inactive filter.
func (q Query) withDefaults(days, limit int) Query {
	if q.Days <= 0 {
		q.Days = days
	}
	if q.Days > MaxDays {
		q.Days = MaxDays
	}
	if q.Limit <= 0 {
		q.Limit = limit
	}
	if !q.Filter.active() {
		q.Filter = nil
	}
	return q
}

// Entry is one aggregated row before hydration
type Entry struct {
	ContentID  int64 `gorm:"column:content_id" json:"id"`
	TotalViews int64 `gorm:"column:total_views" json:"views"`
}

// RankedPost is a hydrated ranking result
type RankedPost struct {
	Post  *models.Post
	Views int64
}

// PostLoader resolves post ids to posts. Missing ids are simply absent from the result.
type PostLoader interface {
	GetByIDs(ctx context.Context, ids []int64) ([]*models.Post, error)
}

// Ranking answers popularity queries
type Ranking interface {
	Rank(ctx context.Context, q Query) ([]RankedPost, error)
}

// Service is the single dependency handed to renderers and the API:
// it records views and answers popularity queries.
type Service struct {
	recorder *Recorder
	ranking  Ranking
}

// NewService creates a new views service
func NewService(recorder *Recorder, ranking Ranking) *Service {
	return &Service{recorder: recorder, ranking: ranking}
}

// RecordView increments today's counter for contentID
func (s *Service) RecordView(ctx context.Context, contentID int64) error {
	return s.recorder.RecordView(ctx, contentID)
}

// Track records a view and swallows any failure
func (s *Service) Track(ctx context.Context, contentID int64) {
	s.recorder.Track(ctx, contentID)
}

// Rank returns the most viewed posts for q
func (s *Service) Rank(ctx context.Context, q Query) ([]RankedPost, error) {
	return s.ranking.Rank(ctx, q)
}

// Day formats the calendar day of t in loc
func Day(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(models.DateLayout)
}

// WindowStart returns the first day included in a days-long lookback ending today
func WindowStart(now time.Time, loc *time.Location, days int) string {
	if days > MaxDays {
		days = MaxDays
	}
	return now.In(loc).AddDate(0, 0, -days).Format(models.DateLayout)
}

func today(clock clockwork.Clock, loc *time.Location) string {
	return Day(clock.Now(), loc)
}

// Hydrate resolves entries to posts, keeping entry order and dropping ids
// the loader cannot resolve.
func Hydrate(ctx context.Context, posts PostLoader, entries []Entry) ([]RankedPost, error) {
	if len(entries) == 0 {
		return []RankedPost{}, nil
	}

	ids := make([]int64, len(entries))
	for i, e := range entries {
		ids[i] = e.ContentID
	}

	loaded, err := posts.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*models.Post, len(loaded))
	for _, p := range loaded {
		byID[p.ID] = p
	}

	result := make([]RankedPost, 0, len(entries))
	for _, e := range entries {
		post, ok := byID[e.ContentID]
		if !ok {
			continue
		}
		result = append(result, RankedPost{Post: post, Views: e.TotalViews})
	}
	return result, nil
}
