package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"neowatch/internal/impact"
	"neowatch/internal/repository"
	"neowatch/internal/service"
)

type NEOHandler struct {
	query  service.QueryService
	report service.ReportService
	log    *zap.Logger
}

func NewNEOHandler(query service.QueryService, report service.ReportService, log *zap.Logger) *NEOHandler {
	return &NEOHandler{query: query, report: report, log: log.Named("neo_handler")}
}

func (h *NEOHandler) ListObjects(c *gin.Context) {
	filter, msg := parseObjectFilter(c)
	if msg != "" {
		respondError(c, http.StatusBadRequest, msg)
		return
	}

	objects, err := h.query.ListObjects(c.Request.Context(), filter)
	if err != nil {
		respondInternal(c, h.log, "failed to list objects", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    objects,
		"count":   len(objects),
	})
}

func (h *NEOHandler) GetObject(c *gin.Context) {
	obj, err := h.query.GetObject(c.Request.Context(), c.Param("id"))
	if errors.Is(err, repository.ErrNotFound) {
		respondError(c, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		respondInternal(c, h.log, "failed to get object", err)
		return
	}
	respondOK(c, obj)
}

func (h *NEOHandler) ListComets(c *gin.Context) {
	limit, ok := parseLimit(c.Query("limit"))
	if !ok {
		respondError(c, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	comets, err := h.query.ListComets(c.Request.Context(), service.CometFilter{
		Search: c.Query("search"),
		Limit:  limit,
	})
	if err != nil {
		respondInternal(c, h.log, "failed to list comets", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    comets,
		"count":   len(comets),
	})
}

func (h *NEOHandler) GetSummary(c *gin.Context) {
	summary, err := h.query.Summary(c.Request.Context())
	if err != nil {
		respondInternal(c, h.log, "failed to build summary", err)
		return
	}
	respondOK(c, summary)
}

// ExportAssessments отдает файл с оценками начиная с date
func (h *NEOHandler) ExportAssessments(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	date := c.Query("date")
	if date != "" && !service.ValidDate(date) {
		respondError(c, http.StatusBadRequest, "invalid date format, use YYYY-MM-DD")
		return
	}

	file, err := h.report.ExportAssessments(c.Request.Context(), format, date)
	switch {
	case errors.Is(err, service.ErrUnsupportedFormat):
		respondError(c, http.StatusBadRequest, "unsupported format, use 'csv', 'xlsx' or 'json'")
		return
	case errors.Is(err, service.ErrNoData):
		respondError(c, http.StatusNotFound, err.Error())
		return
	case err != nil:
		respondInternal(c, h.log, "failed to export assessments", err)
		return
	}

	c.Header("Content-Type", file.ContentType)
	c.FileAttachment(file.Path, file.Filename)
}

// parseObjectFilter возвращает текст ошибки для 400, если параметр некорректен
func parseObjectFilter(c *gin.Context) (repository.ObjectFilter, string) {
	var filter repository.ObjectFilter

	limit, ok := parseLimit(c.Query("limit"))
	if !ok {
		return filter, "limit must be a positive integer"
	}
	filter.Limit = limit

	if s := c.Query("hazardous"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return filter, "hazardous must be true or false"
		}
		filter.HazardousOnly = v
	}

	if s := c.Query("threat_level"); s != "" {
		level, err := impact.ParseThreatLevel(s)
		if err != nil {
			return filter, "threat_level must be one of low, medium, high"
		}
		filter.MinThreatLevel = level
	}

	if s := c.Query("date"); s != "" {
		if !service.ValidDate(s) {
			return filter, "invalid date format, use YYYY-MM-DD"
		}
		filter.FromDate = s
	}

	var err error
	if filter.MinDiameterKm, err = parseOptionalFloat(c.Query("min_diameter")); err != nil {
		return filter, "min_diameter must be a number"
	}
	if filter.MaxDiameterKm, err = parseOptionalFloat(c.Query("max_diameter")); err != nil {
		return filter, "max_diameter must be a number"
	}

	switch order := c.Query("order"); order {
	case "", repository.OrderByMagnitude, repository.OrderByReference:
		filter.OrderBy = order
	default:
		return filter, "order must be magnitude or reference"
	}

	return filter, ""
}

// parseLimit: пустое значение означает лимит по умолчанию
func parseLimit(s string) (int, bool) {
	if s == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(s)
	if err != nil || limit < 1 {
		return 0, false
	}
	return limit, true
}

func parseOptionalFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
