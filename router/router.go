// router/router.go

package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sentinelworks/verdict/controller"
	"github.com/sentinelworks/verdict/middleware"
)

func SetupRouter(
	controllers *controller.Controllers,
	rateLimitRequests int,
	rateLimitDuration time.Duration,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.RateLimiter(rateLimitRequests, rateLimitDuration))

	api := router.Group("/api/v1")

	controllers.PolicySet.RegisterRoutes(api)
	controllers.Decision.RegisterRoutes(api)

	return router
}
