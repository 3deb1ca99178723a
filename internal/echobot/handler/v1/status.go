package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kiosk404/echobot/internal/echobot/service/bridge"
	"github.com/kiosk404/echobot/internal/echobot/service/metrics"
	"github.com/kiosk404/echobot/internal/echobot/service/plugin"
	"github.com/kiosk404/echobot/internal/echobot/service/scheduler"
)

// StatusHandler serves read-only views of a running application.
type StatusHandler struct {
	app *plugin.App
}

func NewStatusHandler(app *plugin.App) *StatusHandler {
	return &StatusHandler{app: app}
}

// Healthz handles GET /healthz. It answers 503 unless the app is running.
func (h *StatusHandler) Healthz(c *gin.Context) {
	state := h.app.State()
	code := http.StatusOK
	if state != plugin.StateRunning {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, HealthResponse{State: state.String(), Plugins: len(h.app.Plugins())})
}

// Plugins handles GET /plugins, listing plugins in dispatch order.
func (h *StatusHandler) Plugins(c *gin.Context) {
	plugins := h.app.Plugins()
	out := make([]PluginObject, 0, len(plugins))
	for i, p := range plugins {
		out = append(out, PluginObject{Order: i, Metadata: p.Meta()})
	}
	c.JSON(http.StatusOK, ListResponse[PluginObject]{Items: out, Total: len(out)})
}

// Processes handles GET /processes.
func (h *StatusHandler) Processes(c *gin.Context) {
	infos := []bridge.ProcessInfo{}
	if tbl, ok := plugin.Get[*bridge.Table](h.app.Resources()); ok {
		infos = tbl.Infos()
	}
	c.JSON(http.StatusOK, ListResponse[bridge.ProcessInfo]{Items: infos, Total: len(infos)})
}

// Metrics handles GET /metrics.
func (h *StatusHandler) Metrics(c *gin.Context) {
	sink, ok := plugin.Get[*metrics.Sink](h.app.Resources())
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "metrics plugin is not loaded"})
		return
	}
	c.JSON(http.StatusOK, sink.Snapshot())
}

// Prometheus handles GET /metrics/prometheus in the exposition format.
func (h *StatusHandler) Prometheus(c *gin.Context) {
	sink, ok := plugin.Get[*metrics.Sink](h.app.Resources())
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "metrics plugin is not loaded"})
		return
	}
	sink.Handler().ServeHTTP(c.Writer, c.Request)
}

// Jobs handles GET /jobs.
func (h *StatusHandler) Jobs(c *gin.Context) {
	sched, ok := plugin.Get[*scheduler.Scheduler](h.app.Resources())
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "scheduler plugin is not loaded"})
		return
	}
	jobs := sched.Jobs()
	c.JSON(http.StatusOK, ListResponse[scheduler.Job]{Items: jobs, Total: len(jobs)})
}
