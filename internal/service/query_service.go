package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"neowatch/internal/models"
	"neowatch/internal/observability"
	"neowatch/internal/repository"
)

const (
	// QueryCachePrefix namespaces every cached read; a sync pass drops them all.
	QueryCachePrefix = "neo:query:"

	DefaultObjectLimit = 50
	DefaultCometLimit  = 100
	MaxLimit           = 500
)

type CometFilter struct {
	Search string
	Limit  int
}

type Summary struct {
	Objects                  int64            `json:"objects"`
	HazardousObjects         int64            `json:"hazardous_objects"`
	Comets                   int64            `json:"comets"`
	AssessmentsByThreatLevel map[string]int64 `json:"assessments_by_threat_level"`
	AssessmentsByCategory    map[string]int64 `json:"assessments_by_category"`
	LastSyncedAt             *time.Time       `json:"last_synced_at"`
}

type QueryService interface {
	ListObjects(ctx context.Context, filter repository.ObjectFilter) ([]models.TrackedObject, error)
	GetObject(ctx context.Context, referenceID string) (*models.TrackedObject, error)
	ListComets(ctx context.Context, filter CometFilter) ([]models.CometRecord, error)
	Summary(ctx context.Context) (*Summary, error)
}

type queryService struct {
	neoRepo   repository.NEORepository
	cometRepo repository.CometRepository
	cacheRepo repository.CacheRepository
	cacheTTL  time.Duration
	metrics   *observability.Metrics
	log       *zap.Logger
}

func NewQueryService(
	neoRepo repository.NEORepository,
	cometRepo repository.CometRepository,
	cacheRepo repository.CacheRepository,
	cacheTTL time.Duration,
	metrics *observability.Metrics,
	log *zap.Logger,
) QueryService {
	return &queryService{
		neoRepo:   neoRepo,
		cometRepo: cometRepo,
		cacheRepo: cacheRepo,
		cacheTTL:  cacheTTL,
		metrics:   metrics,
		log:       log.Named("query"),
	}
}

func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

func (s *queryService) ListObjects(ctx context.Context, filter repository.ObjectFilter) ([]models.TrackedObject, error) {
	filter.Limit = clampLimit(filter.Limit, DefaultObjectLimit)
	if filter.OrderBy != repository.OrderByReference {
		filter.OrderBy = repository.OrderByMagnitude
	}

	cacheKey := QueryCachePrefix + "objects:" + objectFilterKey(filter)

	var objects []models.TrackedObject
	if s.fromCache(ctx, cacheKey, &objects) {
		return objects, nil
	}

	objects, err := s.neoRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}

	s.toCache(ctx, cacheKey, objects)
	return objects, nil
}

func (s *queryService) GetObject(ctx context.Context, referenceID string) (*models.TrackedObject, error) {
	cacheKey := QueryCachePrefix + "object:" + referenceID

	var obj models.TrackedObject
	if s.fromCache(ctx, cacheKey, &obj) {
		return &obj, nil
	}

	found, err := s.neoRepo.GetByReferenceID(ctx, referenceID)
	if err != nil {
		// ErrNotFound отдаем как есть
		return nil, err
	}

	s.toCache(ctx, cacheKey, found)
	return found, nil
}

func (s *queryService) ListComets(ctx context.Context, filter CometFilter) ([]models.CometRecord, error) {
	filter.Limit = clampLimit(filter.Limit, DefaultCometLimit)
	filter.Search = strings.TrimSpace(filter.Search)

	cacheKey := fmt.Sprintf("%scomets:%d:%s", QueryCachePrefix, filter.Limit, strings.ToLower(filter.Search))

	var comets []models.CometRecord
	if s.fromCache(ctx, cacheKey, &comets) {
		return comets, nil
	}

	comets, err := s.cometRepo.Search(ctx, filter.Search, filter.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list comets: %w", err)
	}

	s.toCache(ctx, cacheKey, comets)
	return comets, nil
}

func (s *queryService) Summary(ctx context.Context) (*Summary, error) {
	cacheKey := QueryCachePrefix + "summary"

	var summary Summary
	if s.fromCache(ctx, cacheKey, &summary) {
		return &summary, nil
	}

	var err error
	if summary.Objects, err = s.neoRepo.Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count objects: %w", err)
	}
	if summary.HazardousObjects, err = s.neoRepo.CountHazardous(ctx); err != nil {
		return nil, fmt.Errorf("failed to count hazardous objects: %w", err)
	}
	if summary.Comets, err = s.cometRepo.Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count comets: %w", err)
	}
	if summary.AssessmentsByThreatLevel, err = s.neoRepo.CountAssessmentsByThreatLevel(ctx); err != nil {
		return nil, fmt.Errorf("failed to count assessments by threat level: %w", err)
	}
	if summary.AssessmentsByCategory, err = s.neoRepo.CountAssessmentsByCategory(ctx); err != nil {
		return nil, fmt.Errorf("failed to count assessments by category: %w", err)
	}
	if summary.LastSyncedAt, err = s.neoRepo.LastSyncedAt(ctx); err != nil {
		return nil, fmt.Errorf("failed to read last sync time: %w", err)
	}

	s.toCache(ctx, cacheKey, summary)
	return &summary, nil
}

// Ошибки кэша не должны ломать запрос
func (s *queryService) fromCache(ctx context.Context, key string, dest interface{}) bool {
	found, err := s.cacheRepo.GetJSON(ctx, key, dest)
	switch {
	case err != nil:
		s.metrics.QueryCache.WithLabelValues("error").Inc()
		s.log.Warn("Query cache read failed", zap.String("key", key), zap.Error(err))
		return false
	case found:
		s.metrics.QueryCache.WithLabelValues("hit").Inc()
		return true
	default:
		s.metrics.QueryCache.WithLabelValues("miss").Inc()
		return false
	}
}

func (s *queryService) toCache(ctx context.Context, key string, value interface{}) {
	if s.cacheTTL <= 0 {
		return
	}
	if err := s.cacheRepo.SetJSON(ctx, key, value, s.cacheTTL); err != nil {
		s.log.Warn("Query cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func objectFilterKey(f repository.ObjectFilter) string {
	diameter := func(v *float64) string {
		if v == nil {
			return "-"
		}
		return fmt.Sprintf("%g", *v)
	}
	return fmt.Sprintf("%d:%t:%s:%s:%s:%s:%s",
		f.Limit, f.HazardousOnly, f.MinThreatLevel, f.FromDate,
		diameter(f.MinDiameterKm), diameter(f.MaxDiameterKm), f.OrderBy)
}
