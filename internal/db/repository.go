package db

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/logishift/viewrank/internal/models"
)

// Repository provides database access methods
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// PostRepository reads posts from the content repository
type PostRepository struct {
	*Repository
}

// NewPostRepository creates a new post repository
func NewPostRepository(repo *Repository) *PostRepository {
	return &PostRepository{Repository: repo}
}

// GetByID retrieves a post by ID
func (r *PostRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

// GetByIDs retrieves the posts that exist among ids, in no particular order.
func (r *PostRepository) GetByIDs(ctx context.Context, ids []int64) ([]*models.Post, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var posts []*models.Post
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// OptionRepository reads and writes process-wide settings
type OptionRepository struct {
	*Repository
}

// NewOptionRepository creates a new option repository
func NewOptionRepository(repo *Repository) *OptionRepository {
	return &OptionRepository{Repository: repo}
}

// Get returns the option value and whether it was set.
func (r *OptionRepository) Get(ctx context.Context, name string) (string, bool, error) {
	var opt models.Option
	if err := r.db.WithContext(ctx).Where("option_name = ?", name).First(&opt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return opt.Value, true, nil
}

// Set inserts or replaces an option value
func (r *OptionRepository) Set(ctx context.Context, name, value string) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "option_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"option_value"}),
	}).Create(&models.Option{Name: name, Value: value}).Error
}

// EnsureTable creates the options table when missing
func (r *OptionRepository) EnsureTable(ctx context.Context) error {
	m := r.db.WithContext(ctx).Migrator()
	if m.HasTable(&models.Option{}) {
		return nil
	}
	return m.CreateTable(&models.Option{})
}
