package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"neowatch/internal/service"
	redisstats "neowatch/pkg/redis"
)

type WorkerInfo struct {
	SyncEnabled  bool   `json:"sync_enabled"`
	SyncSchedule string `json:"sync_schedule"`
}

type SystemHandler struct {
	db      *gorm.DB
	redis   *redis.Client // nil, если Redis выключен
	query   service.QueryService
	workers WorkerInfo
	clock   clockwork.Clock
	log     *zap.Logger
}

func NewSystemHandler(
	db *gorm.DB,
	redisClient *redis.Client,
	query service.QueryService,
	workers WorkerInfo,
	clock clockwork.Clock,
	log *zap.Logger,
) *SystemHandler {
	return &SystemHandler{
		db:      db,
		redis:   redisClient,
		query:   query,
		workers: workers,
		clock:   clock,
		log:     log.Named("system_handler"),
	}
}

func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	services := gin.H{"database": "connected", "redis": "disabled"}

	if err := h.pingDB(ctx); err != nil {
		h.log.Warn("Database health check failed", zap.Error(err))
		services["database"] = "unreachable"
		status = http.StatusServiceUnavailable
	}

	// Redis необязателен: его недоступность не делает сервис нездоровым
	if h.redis != nil {
		services["redis"] = "connected"
		if err := h.redis.Ping(ctx).Err(); err != nil {
			h.log.Warn("Redis health check failed", zap.Error(err))
			services["redis"] = "unreachable"
		}
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{
		"status":    state,
		"timestamp": h.clock.Now().UTC().Format(time.RFC3339),
		"services":  services,
	})
}

func (h *SystemHandler) pingDB(ctx context.Context) error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (h *SystemHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	summary, err := h.query.Summary(ctx)
	if err != nil {
		respondInternal(c, h.log, "failed to collect stats", err)
		return
	}

	var redisInfo interface{} = "disabled"
	if h.redis != nil {
		if stats, err := redisstats.GetStats(ctx, h.redis); err == nil {
			redisInfo = stats
		} else {
			h.log.Warn("Failed to read Redis stats", zap.Error(err))
			redisInfo = "unavailable"
		}
	}

	respondOK(c, gin.H{
		"database": gin.H{
			"objects":           summary.Objects,
			"hazardous_objects": summary.HazardousObjects,
			"comets":            summary.Comets,
			"last_synced_at":    summary.LastSyncedAt,
		},
		"redis":   redisInfo,
		"workers": h.workers,
	})
}
