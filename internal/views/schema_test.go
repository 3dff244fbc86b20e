package views

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/logishift/viewrank/internal/db"
	"github.com/logishift/viewrank/internal/models"
)

func newTestInitializer(gdb *gorm.DB) (*Initializer, *db.OptionRepository) {
	options := db.NewOptionRepository(db.NewRepository(gdb))
	return NewInitializer(gdb, options), options
}

func marker(t *testing.T, options OptionStore) string {
	t.Helper()
	v, ok, err := options.Get(context.Background(), SchemaVersionOption)
	require.NoError(t, err)
	require.True(t, ok, "schema marker should be set")
	return v
}

func TestInitializer_EnsureSchema_Fresh(t *testing.T) {
	gdb := openTestDB(t)
	initializer, options := newTestInitializer(gdb)
	ctx := context.Background()

	applied, err := initializer.EnsureSchema(ctx)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.True(t, gdb.Migrator().HasTable(&models.DailyView{}))
	assert.True(t, gdb.Migrator().HasIndex(&models.DailyView{}, "idx_daily_views_content_date"))
	assert.Equal(t, SchemaVersion, marker(t, options))

	applied, err = initializer.EnsureSchema(ctx)
	require.NoError(t, err)
	assert.False(t, applied, "second run must be a no-op")
}

func TestInitializer_EnsureSchema_KeepsCounters(t *testing.T) {
	gdb := openTestDB(t)
	initializer, options := newTestInitializer(gdb)
	ctx := context.Background()

	_, err := initializer.EnsureSchema(ctx)
	require.NoError(t, err)
	seedViews(t, gdb, 3, 0, 12)

	require.NoError(t, options.Set(ctx, SchemaVersionOption, "0.9.0"))
	applied, err := initializer.EnsureSchema(ctx)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, SchemaVersion, marker(t, options))

	var total int64
	require.NoError(t, gdb.Model(&models.DailyView{}).Select("SUM(count)").Scan(&total).Error)
	assert.Equal(t, int64(12), total)
}

func TestInitializer_EnsureSchema_Markers(t *testing.T) {
	tests := []struct {
		name        string
		stored      string
		wantApplied bool
	}{
		{"older", "0.9.0", true},
		{"same", "1.0.0", false},
		{"same with prefix", "v1.0.0", false},
		{"newer", "1.2.0", false},
		{"unparsable", "latest", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gdb := openTestDB(t)
			initializer, options := newTestInitializer(gdb)
			ctx := context.Background()
			require.NoError(t, options.EnsureTable(ctx))
			require.NoError(t, options.Set(ctx, SchemaVersionOption, tt.stored))

			applied, err := initializer.EnsureSchema(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.wantApplied, applied)
			assert.Equal(t, tt.wantApplied, gdb.Migrator().HasTable(&models.DailyView{}))
		})
	}
}

type failingOptions struct {
	getErr error
	setErr error
	sets   int
}

func (f *failingOptions) EnsureTable(context.Context) error { return nil }

func (f *failingOptions) Get(context.Context, string) (string, bool, error) {
	return "", false, f.getErr
}

func (f *failingOptions) Set(context.Context, string, string) error {
	f.sets++
	return f.setErr
}

func TestInitializer_EnsureSchema_Errors(t *testing.T) {
	boom := errors.New("boom")

	t.Run("marker read fails", func(t *testing.T) {
		gdb := openTestDB(t)
		opts := &failingOptions{getErr: boom}

		_, err := NewInitializer(gdb, opts).EnsureSchema(context.Background())
		assert.ErrorIs(t, err, boom)
		assert.False(t, gdb.Migrator().HasTable(&models.DailyView{}))
		assert.Zero(t, opts.sets)
	})

	t.Run("marker write fails", func(t *testing.T) {
		gdb := openTestDB(t)
		opts := &failingOptions{setErr: boom}

		applied, err := NewInitializer(gdb, opts).EnsureSchema(context.Background())
		assert.ErrorIs(t, err, boom)
		assert.False(t, applied)
		assert.True(t, gdb.Migrator().HasTable(&models.DailyView{}))
	})
}

func TestVersionOlder(t *testing.T) {
	tests := []struct {
		current, target string
		want            bool
	}{
		{"1.0.0", "1.0.0", false},
		{"0.9.9", "1.0.0", true},
		{"1.0", "1.0.0", false},
		{"1.10.0", "1.9.0", false},
		{"1.9.0", "1.10.0", true},
		{" 1.0.0 ", "1.0.0", false},
		{"garbage", "1.0.0", true},
	}

	for _, tt := range tests {
		if got := versionOlder(tt.current, tt.target); got != tt.want {
			t.Errorf("versionOlder(%q, %q) = %v, want %v", tt.current, tt.target, got, tt.want)
		}
	}
}
