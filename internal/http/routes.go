package http

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/tazhibayda/expense-service/internal/repo"
)

// RouterConfig carries the pieces of service config the router cares about.
type RouterConfig struct {
	FrontendOrigin  string
	RateLimitPerMin int
	Redis           *repo.Redis // nil when REDIS_ADDR is unset
}

func NewRouter(h *Handler, rc RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(Metrics())

	// dev-time policy for the browser front-end, not a security boundary
	if rc.FrontendOrigin != "" {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{rc.FrontendOrigin},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", RequestIDKey},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/", h.Root)
	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.POST("/auth/google", h.GoogleAuth)

	rl := NewRateLimiter(rc.RateLimitPerMin, time.Minute)
	r.POST("/parse-expense", RateLimitParse(rl, rc.Redis, rc.RateLimitPerMin), h.ParseExpense)

	u := r.Group("/user-data")
	{
		u.GET("/:user_id", h.ListUserData)
		u.PUT("/:user_id/:record_id", h.UpdateUserData)
		u.DELETE("/:user_id/:record_id", h.DeleteUserData)
	}
	return r
}
