package webserver

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stake-plus/cat-agency/src/agency/config"
	"github.com/stake-plus/cat-agency/src/agency/metrics"
	"github.com/stake-plus/cat-agency/src/agency/missions"
	"github.com/stake-plus/cat-agency/src/agency/registry"
)

func attachRoutes(r *gin.Engine, cfg config.Config, reg *registry.Registry, coord *missions.Coordinator) {
	corsCfg := cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "If-None-Match", RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "ETag", RequestIDHeader},
		AllowCredentials: true,
	}
	if len(cfg.AllowOrigins) == 0 {
		corsCfg.AllowOrigins = nil
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	}
	r.Use(cors.New(corsCfg))

	started := time.Now()
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "uptime": time.Since(started).String()})
	})
	metrics.RegisterMetrics()
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	catH := NewCats(reg)
	missionH := NewMissions(coord)
	targetH := NewTargets(coord)

	v1 := r.Group("/v1")
	if cfg.RateLimit > 0 {
		v1.Use(RateLimitMiddleware(NewRateLimiter(cfg.RateLimit, cfg.RateWindowDuration())))
	}
	{
		v1.POST("/cats", catH.Create)
		v1.GET("/cats", catH.List)
		v1.GET("/cats/:id", catH.Get)
		v1.PATCH("/cats/:id", catH.Update)
		v1.DELETE("/cats/:id", catH.Delete)

		v1.POST("/missions", missionH.Create)
		v1.GET("/missions", missionH.List)
		v1.GET("/missions/:id", missionH.Get)
		v1.PATCH("/missions/:id", missionH.Update)
		v1.DELETE("/missions/:id", missionH.Delete)
		v1.PUT("/missions/:id/agent", missionH.Assign)
		v1.POST("/missions/:id/recompute", missionH.Recompute)

		v1.POST("/missions/:id/targets", targetH.Create)
		v1.GET("/missions/:id/targets/:tid", targetH.Get)
		v1.PATCH("/missions/:id/targets/:tid", targetH.Update)
		v1.DELETE("/missions/:id/targets/:tid", targetH.Delete)
	}
}
