package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/logishift/viewrank/internal/api/objects"
	"github.com/logishift/viewrank/internal/cache"
	"github.com/logishift/viewrank/pkg/logging"
)

// HealthChecker is implemented by *db.DB and *cache.Cache
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps are the collaborators the router serves
type Deps struct {
	Popular  PopularService
	Posts    PostReader
	Objects  *objects.Builder
	Database HealthChecker
	Cache    HealthChecker
}

// Router sets up API routes
type Router struct {
	handler *JSONRPCHandler
	posts   *PostsAPI
	deps    Deps
	prefix  string
	logger  *zap.Logger
}

// NewRouter creates a new API router. REST routes are mounted under prefix.
func NewRouter(deps Deps, prefix string) *Router {
	router := &Router{
		handler: NewJSONRPCHandler(),
		posts:   NewPostsAPI(deps.Popular, deps.Posts, deps.Objects),
		deps:    deps,
		prefix:  "/" + strings.Trim(prefix, "/"),
		logger:  logging.WithComponent("api-router"),
	}

	router.registerMethods()

	return router
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	engine.GET("/health", r.healthHandler)
	engine.GET("/.well-known/healthcheck.json", r.healthHandler)

	v1 := engine.Group(r.prefix)
	v1.GET("/popular-posts", r.posts.GetPopularPosts)
	v1.GET("/posts/:id", r.posts.GetPost)

	engine.POST("/", r.handler.Handle)
}

func (r *Router) registerMethods() {
	r.handler.RegisterMethod("popular.get_popular_posts", r.posts.GetPopularPostsRPC)
}

// healthHandler reports database and cache reachability. A disabled cache is
// not a failure.
func (r *Router) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := gin.H{}

	if r.deps.Database != nil {
		if err := r.deps.Database.Health(ctx); err != nil {
			r.logger.Warn("Database health check failed", zap.Error(err))
			checks["database"] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			checks["database"] = "ok"
		}
	}

	if r.deps.Cache != nil {
		switch err := r.deps.Cache.Health(ctx); {
		case err == nil:
			checks["cache"] = "ok"
		case errors.Is(err, cache.ErrCacheDisabled):
			checks["cache"] = "disabled"
		default:
			r.logger.Warn("Cache health check failed", zap.Error(err))
			checks["cache"] = err.Error()
		}
	}

	overall := "OK"
	if status != http.StatusOK {
		overall = "DEGRADED"
	}
	c.JSON(status, gin.H{
		"status":  overall,
		"service": "logishift-viewrank",
		"checks":  checks,
	})
}
