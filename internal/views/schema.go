package views

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/mod/semver"
	"gorm.io/gorm"

	"github.com/logishift/viewrank/internal/models"
	"github.com/logishift/viewrank/pkg/logging"
)

// Counter store schema marker
const (
	SchemaVersion       = "1.0.0"
	SchemaVersionOption = "view_table_version"
)

// OptionStore persists process-wide settings
type OptionStore interface {
	EnsureTable(ctx context.Context) error
	Get(ctx context.Context, name string) (string, bool, error)
	Set(ctx context.Context, name, value string) error
}

// Initializer creates or reconciles the daily_views table when the stored
// schema version is missing or older than SchemaVersion.
type Initializer struct {
	db      *gorm.DB
	options OptionStore
	logger  *zap.Logger
}

// NewInitializer creates a new schema initializer
func NewInitializer(database *gorm.DB, options OptionStore) *Initializer {
	return &Initializer{
		db:      database,
		options: options,
		logger:  logging.WithComponent("views-schema"),
	}
}

// EnsureSchema applies the counter schema if needed and reports whether it did.
// The version marker is only advanced after the schema was applied.
func (i *Initializer) EnsureSchema(ctx context.Context) (bool, error) {
	if err := i.options.EnsureTable(ctx); err != nil {
		return false, fmt.Errorf("failed to ensure options table: %w", err)
	}

	current, ok, err := i.options.Get(ctx, SchemaVersionOption)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", SchemaVersionOption, err)
	}
	if ok && !versionOlder(current, SchemaVersion) {
		return false, nil
	}

	i.logger.Info("Applying view counter schema",
		zap.String("from", current),
		zap.String("to", SchemaVersion),
	)

	if err := i.db.WithContext(ctx).AutoMigrate(&models.DailyView{}); err != nil {
		return false, fmt.Errorf("failed to apply daily_views schema: %w", err)
	}
	if err := i.options.Set(ctx, SchemaVersionOption, SchemaVersion); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", SchemaVersionOption, err)
	}
	return true, nil
}

// versionOlder reports whether current sorts before target. Unparsable
// versions count as older.
func versionOlder(current, target string) bool {
	cur, tgt := canonical(current), canonical(target)
	if !semver.IsValid(cur) {
		return true
	}
	return semver.Compare(cur, tgt) < 0
}

func canonical(v string) string {
	v = strings.TrimSpace(v)
	if v != "" && !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}
