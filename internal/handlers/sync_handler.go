package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"neowatch/internal/service"
)

const dateLayout = "2006-01-02"

type SyncHandler struct {
	service service.IngestService
	log     *zap.Logger
}

func NewSyncHandler(service service.IngestService, log *zap.Logger) *SyncHandler {
	return &SyncHandler{service: service, log: log.Named("sync_handler")}
}

// TriggerSync запускает проход синхронизации в контексте запроса.
// Необязательные start_date и end_date задают окно (YYYY-MM-DD).
func (h *SyncHandler) TriggerSync(c *gin.Context) {
	var opts service.SyncOptions
	var err error

	if opts.StartDate, err = parseOptionalDate(c.Query("start_date")); err != nil {
		respondError(c, http.StatusBadRequest, "invalid start_date format, use YYYY-MM-DD")
		return
	}
	if opts.EndDate, err = parseOptionalDate(c.Query("end_date")); err != nil {
		respondError(c, http.StatusBadRequest, "invalid end_date format, use YYYY-MM-DD")
		return
	}

	result := h.service.Sync(c.Request.Context(), opts)

	switch {
	case result.Success:
		c.JSON(http.StatusOK, result)
	case errors.Is(result.Err, service.ErrInvalidWindow):
		c.JSON(http.StatusBadRequest, result)
	case errors.Is(result.Err, service.ErrSyncInProgress):
		c.JSON(http.StatusConflict, result)
	default:
		c.JSON(http.StatusInternalServerError, result)
	}
}

func (h *SyncHandler) Describe(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "NEO sync endpoint. Use POST to trigger sync.",
	})
}

func parseOptionalDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, s)
}
