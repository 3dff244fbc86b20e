package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/logishift/viewrank/internal/api/objects"
	"github.com/logishift/viewrank/internal/models"
	"github.com/logishift/viewrank/internal/views"
	"github.com/logishift/viewrank/pkg/logging"
)

// PopularService ranks posts and records detail views
type PopularService interface {
	Rank(ctx context.Context, q views.Query) ([]views.RankedPost, error)
	Track(ctx context.Context, contentID int64)
}

// PostReader resolves a single post. A missing post is (nil, nil).
type PostReader interface {
	GetByID(ctx context.Context, id int64) (*models.Post, error)
}

// PostsAPI serves the popular-posts listing and post detail views
type PostsAPI struct {
	popular PopularService
	posts   PostReader
	objects *objects.Builder
	logger  *zap.Logger
}

// NewPostsAPI creates a new posts API
func NewPostsAPI(popular PopularService, posts PostReader, builder *objects.Builder) *PostsAPI {
	return &PostsAPI{
		popular: popular,
		posts:   posts,
		objects: builder,
		logger:  logging.WithComponent("api-posts"),
	}
}

// GetPopularPosts handles GET <prefix>/popular-posts
func (a *PostsAPI) GetPopularPosts(c *gin.Context) {
	q := views.Query{
		Days:  queryInt(c.Query("days")),
		Limit: queryInt(c.Query("limit")),
	}
	if termID := queryInt64(c.Query("term_id")); termID > 0 {
		q.Filter = &views.TaxonomyFilter{TermID: termID, Taxonomy: strings.TrimSpace(c.Query("taxonomy"))}
	}

	result, err := a.rank(c.Request.Context(), q)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetPost handles GET <prefix>/posts/:id. The view is recorded only after the
// post resolved.
func (a *PostsAPI) GetPost(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		abortWithError(c, NewError(http.StatusBadRequest, CodeInvalidID, "Invalid post ID"))
		return
	}

	ctx := c.Request.Context()
	post, err := a.posts.GetByID(ctx, id)
	if err != nil {
		a.logger.Error("Failed to load post", zap.Int64("id", id), zap.Error(err))
		abortWithError(c, err)
		return
	}
	if post == nil || post.Status != models.PostStatusPublish {
		abortWithError(c, NewError(http.StatusNotFound, CodeNotFound, "Post not found"))
		return
	}

	if a.popular != nil {
		a.popular.Track(ctx, post.ID)
	}

	c.JSON(http.StatusOK, a.objects.Post(post))
}

// GetPopularPostsRPC handles popular.get_popular_posts
func (a *PostsAPI) GetPopularPostsRPC(c *gin.Context, params json.RawMessage) (interface{}, error) {
	pMap := map[string]interface{}{}
	if len(params) > 0 && string(params) != "null" {
		if err := json.Unmarshal(params, &pMap); err != nil {
			return nil, &ParamsError{Err: err}
		}
	}

	q := views.Query{
		Days:  int(paramInt64(pMap["days"])),
		Limit: int(paramInt64(pMap["limit"])),
	}
	if termID := paramInt64(pMap["term_id"]); termID > 0 {
		taxonomy, _ := pMap["taxonomy"].(string)
		q.Filter = &views.TaxonomyFilter{TermID: termID, Taxonomy: taxonomy}
	}

	return a.rank(c.Request.Context(), q)
}

func (a *PostsAPI) rank(ctx context.Context, q views.Query) ([]objects.PopularPost, error) {
	if a.popular == nil {
		return nil, NewError(http.StatusInternalServerError, CodeInternal, "Popular posts are unavailable")
	}

	ranked, err := a.popular.Rank(ctx, q)
	if err != nil {
		a.logger.Error("Failed to rank popular posts",
			zap.Int("days", q.Days),
			zap.Int("limit", q.Limit),
			zap.Error(err),
		)
		return nil, err
	}
	return a.objects.Popular(ranked), nil
}

// queryInt parses a query value, treating anything non-numeric as unset.
func queryInt(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return n
}

func queryInt64(raw string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// paramInt64 accepts JSON numbers and numeric strings.
func paramInt64(v interface{}) int64 {
	switch t := v.(type) {
	case float64:
		return int64(t)
	case string:
		return queryInt64(t)
	default:
		return 0
	}
}
