package models

// DailyView counts views of one post on one calendar day.
// (ContentID, ViewDate) is unique; rows are only ever inserted or incremented.
type DailyView struct {
	ID        int64  `gorm:"primaryKey;autoIncrement;column:id"`
	ContentID int64  `gorm:"not null;index:idx_daily_views_content_date,unique,priority:1;index:idx_daily_views_date_content,priority:2;column:content_id"`
	ViewDate  string `gorm:"type:date;not null;index:idx_daily_views_content_date,unique,priority:2;index:idx_daily_views_date_content,priority:1;column:view_date"`
	Count     int64  `gorm:"not null;default:1;column:count"`
}

// TableName specifies the table name for DailyView
func (DailyView) TableName() string {
	return "daily_views"
}

// DateLayout is the day-granularity format stored in view_date
const DateLayout = "2006-01-02"
