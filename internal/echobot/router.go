package echobot

import (
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"

	"github.com/kiosk404/echobot/internal/echobot/handler/middleware"
	v1 "github.com/kiosk404/echobot/internal/echobot/handler/v1"
	"github.com/kiosk404/echobot/internal/echobot/service/plugin"
)

// routerDeps holds the dependencies needed for route registration.
type routerDeps struct {
	app       *plugin.App
	token     string
	profiling bool
}

func initRouter(g *gin.Engine, deps *routerDeps) {
	installMiddleware(g, deps)
	installController(g, deps)
}

func installMiddleware(g *gin.Engine, deps *routerDeps) {
	g.Use(gin.Recovery())
	g.Use(middleware.AccessLog())
	g.Use(middleware.BearerAuth(deps.token))
}

func installController(g *gin.Engine, deps *routerDeps) {
	status := v1.NewStatusHandler(deps.app)

	g.GET("/healthz", status.Healthz)
	g.GET("/plugins", status.Plugins)
	g.GET("/processes", status.Processes)
	g.GET("/metrics", status.Metrics)
	g.GET("/metrics/prometheus", status.Prometheus)
	g.GET("/jobs", status.Jobs)

	if deps.profiling {
		pprof.Register(g)
	}
}
