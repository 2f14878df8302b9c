package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	"recipe-resolver/internal/api/handlers/health"
	"recipe-resolver/internal/api/handlers/recipe"
	"recipe-resolver/internal/api/middleware"
	"recipe-resolver/internal/infrastructure/config"
)

const maxBodyBytes = 1 << 20 // 1 MiB

// Deps bundles the handlers and shared middleware for the router.
type Deps struct {
	Recipe  *recipe.Handler
	Health  *health.Handler
	Limiter *middleware.RateLimiter
}

// NewRouter builds the gin engine with the full middleware chain and
// route table.
func NewRouter(cfg *config.Config, deps Deps) *gin.Engine {
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(requestid.New())
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.BodySizeLimit(maxBodyBytes))
	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
	}))

	r.GET("/health", deps.Health.Health)
	r.GET("/live", deps.Health.Live)
	r.GET("/ready", deps.Health.Ready)

	v1 := r.Group("/api/v1")
	if cfg.RateLimit.Enabled && deps.Limiter != nil {
		v1.Use(deps.Limiter.Middleware())
	}
	{
		v1.POST("/generate", deps.Recipe.Generate)
		v1.POST("/modify", deps.Recipe.Modify)
		v1.POST("/approval", deps.Recipe.Approval)
		v1.POST("/feedback", deps.Recipe.Feedback)
	}

	return r
}
