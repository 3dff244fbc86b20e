package models

import (
	"database/sql"
	"time"
)

// Post status values used by the content repository
const (
	PostStatusPublish = "publish"
	PostStatusDraft   = "draft"
)

// Post represents a published article. Owned by the content repository;
// this service only reads it.
type Post struct {
	ID                int64          `gorm:"primaryKey;autoIncrement;column:id"`
	Title             string         `gorm:"type:varchar(255);not null;column:title"`
	Excerpt           string         `gorm:"type:text;column:excerpt"`
	Slug              string         `gorm:"type:varchar(200);index;column:slug"`
	Status            string         `gorm:"type:varchar(20);not null;default:'publish';column:status"`
	PublishedAt       time.Time      `gorm:"not null;column:published_at"`
	StructuredSummary sql.NullString `gorm:"type:text;column:ai_structured_summary"`
}

// TableName specifies the table name for Post
func (Post) TableName() string {
	return "posts"
}

// Term is a category, tag or other taxonomy term
type Term struct {
	ID       int64  `gorm:"primaryKey;autoIncrement;column:id"`
	Taxonomy string `gorm:"type:varchar(32);not null;index:idx_terms_taxonomy_slug,unique;column:taxonomy"`
	Slug     string `gorm:"type:varchar(200);not null;index:idx_terms_taxonomy_slug,unique;column:slug"`
	Name     string `gorm:"type:varchar(200);not null;column:name"`
}

// TableName specifies the table name for Term
func (Term) TableName() string {
	return "terms"
}

// PostTerm represents a post-to-term association
type PostTerm struct {
	PostID int64 `gorm:"primaryKey;column:post_id"`
	TermID int64 `gorm:"primaryKey;index;column:term_id"`
}

// TableName specifies the table name for PostTerm
func (PostTerm) TableName() string {
	return "post_terms"
}
