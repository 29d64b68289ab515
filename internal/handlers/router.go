package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Sync   *SyncHandler
	NEO    *NEOHandler
	System *SystemHandler
}

// RegisterRoutes вешает API под /api/v1 и те же обработчики на корневые пути
func RegisterRoutes(r *gin.Engine, h Handlers) {
	for _, group := range []*gin.RouterGroup{r.Group("/api/v1"), r.Group("")} {
		group.POST("/sync", h.Sync.TriggerSync)
		group.GET("/sync", h.Sync.Describe)

		group.GET("/objects", h.NEO.ListObjects)
		group.GET("/objects/:id", h.NEO.GetObject)
		group.GET("/comets", h.NEO.ListComets)
		group.GET("/summary", h.NEO.GetSummary)
		group.GET("/export", h.NEO.ExportAssessments)

		group.GET("/health", h.System.Health)
		group.GET("/system/stats", h.System.Stats)
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
