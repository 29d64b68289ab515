package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error":   message,
	})
}

// respondInternal логирует причину, клиенту отдаем общее сообщение
func respondInternal(c *gin.Context, log *zap.Logger, message string, err error) {
	_ = c.Error(err)
	log.Error(message, zap.String("path", c.Request.URL.Path), zap.Error(err))
	respondError(c, http.StatusInternalServerError, message)
}
