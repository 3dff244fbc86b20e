package views

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/logishift/viewrank/internal/models"
	"github.com/logishift/viewrank/pkg/logging"
	"github.com/logishift/viewrank/pkg/telemetry"
)

// Recorder increments the per-post, per-day view counter
type Recorder struct {
	db       *gorm.DB
	clock    clockwork.Clock
	loc      *time.Location
	logger   *zap.Logger
	recorded metric.Int64Counter
	failures metric.Int64Counter
}

// NewRecorder creates a new view recorder. Days are cut in loc.
func NewRecorder(database *gorm.DB, clock clockwork.Clock, loc *time.Location) *Recorder {
	return &Recorder{
		db:       database,
		clock:    clock,
		loc:      loc,
		logger:   logging.WithComponent("views-recorder"),
		recorded: telemetry.Int64Counter("views.recorded", "Post views recorded"),
		failures: telemetry.Int64Counter("views.record_failures", "Post views that could not be recorded"),
	}
}

// RecordView adds one view for contentID on the current day. The increment is a
// single INSERT .. ON CONFLICT DO UPDATE statement, so concurrent callers never
// lose updates or create duplicate rows.
func (r *Recorder) RecordView(ctx context.Context, contentID int64) error {
	if contentID <= 0 {
		return ErrInvalidContentID
	}

	ctx, span := telemetry.StartSpan(ctx, "views.record")
	defer span.End()
	span.SetAttributes(attribute.Int64("content_id", contentID))

	row := models.DailyView{
		ContentID: contentID,
		ViewDate:  today(r.clock, r.loc),
		Count:     1,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "content_id"}, {Name: "view_date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"count": gorm.Expr("daily_views.count + 1")}),
	}).Create(&row).Error
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "record view failed")
		r.failures.Add(ctx, 1)
		return err
	}

	r.recorded.Add(ctx, 1)
	return nil
}

// Track records a view for renderers. Failures are logged and dropped so that
// a lost increment never breaks the page being rendered.
func (r *Recorder) Track(ctx context.Context, contentID int64) {
	if err := r.RecordView(ctx, contentID); err != nil {
		r.logger.Warn("Failed to record view",
			zap.Int64("content_id", contentID),
			zap.Error(err),
		)
	}
}
