package webserver

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stake-plus/cat-agency/src/agency/config"
	"github.com/stake-plus/cat-agency/src/agency/missions"
	"github.com/stake-plus/cat-agency/src/agency/registry"
)

func New(cfg config.Config, reg *registry.Registry, coord *missions.Coordinator, l zerolog.Logger) *gin.Engine {
	g := gin.New()
	g.Use(gin.Recovery(), RequestID(), RequestLogger(l), RequestMetrics())
	attachRoutes(g, cfg, reg, coord)
	return g
}
