package views

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/logishift/viewrank/internal/db"
	"github.com/logishift/viewrank/internal/models"
)

// now is the fixed "current time" for every fake clock in this package
var now = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

// openTestDB returns a single-connection in-memory SQLite database so that
// concurrent callers share one store.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return gdb
}

// setupStore opens a database with content tables and the counter table.
func setupStore(t *testing.T) *gorm.DB {
	t.Helper()
	gdb := openTestDB(t)
	require.NoError(t, gdb.AutoMigrate(&models.Post{}, &models.Term{}, &models.PostTerm{}, &models.DailyView{}))
	return gdb
}

func postLoader(gdb *gorm.DB) PostLoader {
	return db.NewPostRepository(db.NewRepository(gdb))
}

func seedPosts(t *testing.T, gdb *gorm.DB, ids ...int64) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, gdb.Create(&models.Post{
			ID:          id,
			Title:       "post",
			Slug:        "post",
			Status:      models.PostStatusPublish,
			PublishedAt: now.Add(-48 * time.Hour),
		}).Error)
	}
}

// seedViews writes a counter row daysAgo days before now.
func seedViews(t *testing.T, gdb *gorm.DB, contentID int64, daysAgo int, count int64) {
	t.Helper()
	require.NoError(t, gdb.Create(&models.DailyView{
		ContentID: contentID,
		ViewDate:  now.AddDate(0, 0, -daysAgo).Format(models.DateLayout),
		Count:     count,
	}).Error)
}

func tagPost(t *testing.T, gdb *gorm.DB, postID int64, term models.Term) {
	t.Helper()
	require.NoError(t, gdb.Where(models.Term{ID: term.ID}).FirstOrCreate(&term).Error)
	require.NoError(t, gdb.Create(&models.PostTerm{PostID: postID, TermID: term.ID}).Error)
}

func newTestRanker(gdb *gorm.DB, opts ...RankerOption) *Ranker {
	return NewRanker(gdb, postLoader(gdb), clockwork.NewFakeClockAt(now), time.UTC, opts...)
}

func summarize(ranked []RankedPost) [][2]int64 {
	out := make([][2]int64, len(ranked))
	for i, r := range ranked {
		out[i] = [2]int64{r.Post.ID, r.Views}
	}
	return out
}

func TestWindowStart(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	tests := []struct {
		name string
		now  time.Time
		loc  *time.Location
		days int
		want string
	}{
		{"one week", now, time.UTC, 7, "2026-10-12"},
		{"zero days is today", now, time.UTC, 0, "2026-10-19"},
		{"month boundary", time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC), time.UTC, 3, "2026-02-27"},
		{"site zone ahead of UTC", time.Date(2026, 10, 19, 20, 0, 0, 0, time.UTC), tokyo, 1, "2026-10-19"},
		{"capped at max days", now, time.UTC, MaxDays, "1926-11-13"},
		{"overflowing window is capped", now, time.UTC, math.MaxInt, "1926-11-13"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WindowStart(tt.now, tt.loc, tt.days)
			if got != tt.want {
				t.Errorf("WindowStart() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestQuery_WithDefaults(t *testing.T) {
	tests := []struct {
		name       string
		in         Query
		wantDays   int
		wantLimit  int
		wantFilter bool
	}{
		{"zero values", Query{}, 7, 5, false},
		{"negative values", Query{Days: -3, Limit: -1}, 7, 5, false},
		{"explicit values", Query{Days: 30, Limit: 20}, 30, 20, false},
		{"huge window capped", Query{Days: math.MaxInt, Limit: 20}, MaxDays, 20, false},
		{"inactive filter dropped", Query{Filter: &TaxonomyFilter{Taxonomy: "category"}}, 7, 5, false},
		{"active filter kept", Query{Filter: &TaxonomyFilter{TermID: 4}}, 7, 5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.withDefaults(DefaultDays, DefaultLimit)
			if got.Days != tt.wantDays || got.Limit != tt.wantLimit {
				t.Errorf("withDefaults() = %d/%d, want %d/%d", got.Days, got.Limit, tt.wantDays, tt.wantLimit)
			}
			if (got.Filter != nil) != tt.wantFilter {
				t.Errorf("withDefaults() filter = %v, want present=%v", got.Filter, tt.wantFilter)
			}
		})
	}
}

type stubLoader struct {
	posts map[int64]*models.Post
}

func (s stubLoader) GetByIDs(_ context.Context, ids []int64) ([]*models.Post, error) {
	var out []*models.Post
	for _, id := range ids {
		if p, ok := s.posts[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func TestHydrate_DropsDanglingKeepsOrder(t *testing.T) {
	loader := stubLoader{posts: map[int64]*models.Post{
		1: {ID: 1}, 3: {ID: 3}, 4: {ID: 4},
	}}
	entries := []Entry{{4, 40}, {2, 30}, {1, 20}, {3, 10}}

	got, err := Hydrate(context.Background(), loader, entries)
	require.NoError(t, err)
	require.Equal(t, [][2]int64{{4, 40}, {1, 20}, {3, 10}}, summarize(got))

	empty, err := Hydrate(context.Background(), loader, nil)
	require.NoError(t, err)
	require.NotNil(t, empty)
	require.Empty(t, empty)
}
