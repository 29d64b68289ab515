package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"neowatch/internal/clients"
	"neowatch/internal/impact"
	"neowatch/internal/models"
	"neowatch/internal/observability"
	"neowatch/internal/repository"
)

const (
	KindObject     = "object"
	KindAssessment = "assessment"
	KindComet      = "comet"

	// MaxWindowDays is the longest range the NeoWs feed accepts.
	MaxWindowDays = 7
)

var (
	ErrSyncInProgress = errors.New("sync already in progress")
	ErrInvalidWindow  = errors.New("invalid sync window")
)

// SyncOptions overrides the default window. Zero dates mean "use default".
type SyncOptions struct {
	StartDate time.Time
	EndDate   time.Time
}

// Validate checks an explicit window without needing a clock.
func (o SyncOptions) Validate() error {
	if o.StartDate.IsZero() || o.EndDate.IsZero() {
		return nil
	}
	if o.EndDate.Before(o.StartDate) {
		return fmt.Errorf("%w: end_date is before start_date", ErrInvalidWindow)
	}
	if o.EndDate.Sub(o.StartDate) > MaxWindowDays*24*time.Hour {
		return fmt.Errorf("%w: range is longer than %d days", ErrInvalidWindow, MaxWindowDays)
	}
	return nil
}

// ItemFailure is one object, assessment or comet that could not be stored.
type ItemFailure struct {
	Kind  string `json:"kind"`
	ID    string `json:"id"`
	Date  string `json:"date,omitempty"`
	Error string `json:"error"`
}

type SyncResult struct {
	Success              bool          `json:"success"`
	Message              string        `json:"message,omitempty"`
	Error                string        `json:"error,omitempty"`
	StartDate            string        `json:"startDate,omitempty"`
	EndDate              string        `json:"endDate,omitempty"`
	NEOsProcessed        int           `json:"neosProcessed"`
	CometsProcessed      int           `json:"cometsProcessed"`
	NEOsFailed           int           `json:"neosFailed"`
	CometsFailed         int           `json:"cometsFailed"`
	AssessmentsProcessed int           `json:"assessmentsProcessed"`
	AssessmentsFailed    int           `json:"assessmentsFailed"`
	Failures             []ItemFailure `json:"failures"`
	Duration             time.Duration `json:"-"`

	// Err is the fatal error behind Success=false.
	Err error `json:"-"`
}

type IngestService interface {
	Sync(ctx context.Context, opts SyncOptions) SyncResult
}

type IngestConfig struct {
	WindowDays        int
	Workers           int
	SnapshotRetention time.Duration
}

type ingestService struct {
	client       clients.NASAClient
	neoRepo      repository.NEORepository
	cometRepo    repository.CometRepository
	snapshotRepo repository.SnapshotRepository
	cacheRepo    repository.CacheRepository
	clock        clockwork.Clock
	metrics      *observability.Metrics
	log          *zap.Logger
	config       IngestConfig

	running sync.Mutex
}

func NewIngestService(
	client clients.NASAClient,
	neoRepo repository.NEORepository,
	cometRepo repository.CometRepository,
	snapshotRepo repository.SnapshotRepository,
	cacheRepo repository.CacheRepository,
	clock clockwork.Clock,
	metrics *observability.Metrics,
	log *zap.Logger,
	config IngestConfig,
) IngestService {
	if config.WindowDays < 1 || config.WindowDays > MaxWindowDays {
		config.WindowDays = MaxWindowDays
	}
	if config.Workers < 1 {
		config.Workers = 1
	}
	return &ingestService{
		client:       client,
		neoRepo:      neoRepo,
		cometRepo:    cometRepo,
		snapshotRepo: snapshotRepo,
		cacheRepo:    cacheRepo,
		clock:        clock,
		metrics:      metrics,
		log:          log.Named("ingest"),
		config:       config,
	}
}

// objectGroup holds every feed entry for one reference ID, in flatten order.
type objectGroup struct {
	referenceID string
	entries     []clients.NEOObject
}

type itemOutcome struct {
	failed      bool
	assessments int
	failures    []ItemFailure
}

func (s *ingestService) Sync(ctx context.Context, opts SyncOptions) SyncResult {
	if !s.running.TryLock() {
		return SyncResult{Success: false, Error: ErrSyncInProgress.Error(), Err: ErrSyncInProgress, Failures: []ItemFailure{}}
	}
	defer s.running.Unlock()

	started := s.clock.Now()
	s.metrics.SyncRunning.Inc()
	defer s.metrics.SyncRunning.Dec()

	result := s.sync(ctx, opts)
	result.Duration = s.clock.Since(started)

	outcome := "success"
	if !result.Success {
		outcome = "failure"
	}
	s.metrics.SyncPasses.WithLabelValues(outcome).Inc()
	s.metrics.SyncDuration.Observe(result.Duration.Seconds())

	if result.Success {
		s.metrics.LastSyncTimestamp.Set(float64(s.clock.Now().Unix()))
		s.log.Info(result.Message,
			zap.Int("neos_failed", result.NEOsFailed),
			zap.Int("comets_failed", result.CometsFailed),
			zap.Int("assessments", result.AssessmentsProcessed),
			zap.Duration("duration", result.Duration),
		)
	} else {
		s.log.Error("Sync failed", zap.String("error", result.Error))
	}
	return result
}

func (s *ingestService) sync(ctx context.Context, opts SyncOptions) SyncResult {
	start, end, err := s.window(opts)
	if err != nil {
		return failedResult(err)
	}

	s.log.Info("Starting NEO data sync",
		zap.String("start_date", start.Format(dateLayout)),
		zap.String("end_date", end.Format(dateLayout)),
	)

	// Без ленты объектов синхронизация невозможна
	feed, feedBody, err := s.client.FetchNEOFeed(ctx, start, end)
	if err != nil {
		return failedResult(fmt.Errorf("failed to fetch NEO feed: %w", err))
	}
	s.saveSnapshot(ctx, clients.SourceNEOFeed, feedBody)

	neoCount, groups := flattenFeed(feed)

	// Кометы необязательны
	comets, cometBody, err := s.client.FetchComets(ctx)
	switch {
	case errors.Is(err, clients.ErrFeedNotConfigured):
		s.log.Debug("Comet feed not configured, skipping")
		comets = nil
	case err != nil:
		s.log.Warn("Failed to fetch comets, continuing without them", zap.Error(err))
		comets = nil
	default:
		s.saveSnapshot(ctx, clients.SourceCometFeed, cometBody)
	}

	syncedAt := s.clock.Now().UTC()
	objectOutcomes := make([]itemOutcome, len(groups))
	cometOutcomes := make([]itemOutcome, len(comets))

	g := new(errgroup.Group)
	g.SetLimit(s.config.Workers)

	for i := range groups {
		g.Go(func() error {
			objectOutcomes[i] = s.ingestObject(ctx, groups[i], syncedAt)
			return nil
		})
	}
	for i := range comets {
		g.Go(func() error {
			cometOutcomes[i] = s.ingestComet(ctx, comets[i], syncedAt)
			return nil
		})
	}
	_ = g.Wait()

	result := SyncResult{
		Success:         true,
		StartDate:       start.Format(dateLayout),
		EndDate:         end.Format(dateLayout),
		NEOsProcessed:   neoCount,
		CometsProcessed: len(comets),
		Failures:        []ItemFailure{},
	}
	for i, outcome := range objectOutcomes {
		if outcome.failed {
			result.NEOsFailed += len(groups[i].entries)
		}
		result.AssessmentsProcessed += outcome.assessments
		result.Failures = append(result.Failures, outcome.failures...)
	}
	for _, outcome := range cometOutcomes {
		if outcome.failed {
			result.CometsFailed++
		}
		result.Failures = append(result.Failures, outcome.failures...)
	}
	for _, f := range result.Failures {
		if f.Kind == KindAssessment {
			result.AssessmentsFailed++
		}
	}

	s.metrics.ItemsProcessed.WithLabelValues(KindObject).Add(float64(result.NEOsProcessed - result.NEOsFailed))
	s.metrics.ItemsProcessed.WithLabelValues(KindComet).Add(float64(result.CometsProcessed - result.CometsFailed))
	s.metrics.ItemsProcessed.WithLabelValues(KindAssessment).Add(float64(result.AssessmentsProcessed))
	s.metrics.ItemsFailed.WithLabelValues(KindObject).Add(float64(result.NEOsFailed))
	s.metrics.ItemsFailed.WithLabelValues(KindComet).Add(float64(result.CometsFailed))
	s.metrics.ItemsFailed.WithLabelValues(KindAssessment).Add(float64(result.AssessmentsFailed))

	result.Message = fmt.Sprintf("Successfully synced %d NEOs and %d comets", result.NEOsProcessed, result.CometsProcessed)

	s.pruneSnapshots(ctx)
	s.invalidateQueryCache(ctx)

	return result
}

func failedResult(err error) SyncResult {
	return SyncResult{
		Success:  false,
		Error:    err.Error(),
		Err:      err,
		Failures: []ItemFailure{},
	}
}

// window returns [start, end] as UTC calendar dates.
func (s *ingestService) window(opts SyncOptions) (time.Time, time.Time, error) {
	if err := opts.Validate(); err != nil {
		return time.Time{}, time.Time{}, err
	}

	start := opts.StartDate
	if start.IsZero() {
		start = s.clock.Now()
	}
	start = truncateToDate(start)

	end := opts.EndDate
	if end.IsZero() {
		end = start.AddDate(0, 0, s.config.WindowDays)
	}
	end = truncateToDate(end)

	return start, end, SyncOptions{StartDate: start, EndDate: end}.Validate()
}

func truncateToDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// flattenFeed walks the date groups in ascending date order and keeps feed
// order inside each date. Entries sharing a reference ID are grouped so they
// are written by one task, in order.
func flattenFeed(feed *clients.NEOFeedResponse) (int, []objectGroup) {
	if feed == nil {
		return 0, nil
	}
	dates := make([]string, 0, len(feed.NearEarthObjects))
	for date := range feed.NearEarthObjects {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	var (
		count  int
		groups []objectGroup
		index  = make(map[string]int)
	)
	for _, date := range dates {
		for _, obj := range feed.NearEarthObjects[date] {
			count++
			key := strings.TrimSpace(obj.ID)
			if key == "" {
				key = strings.TrimSpace(obj.NEOReferenceID)
			}
			if i, ok := index[key]; ok && key != "" {
				groups[i].entries = append(groups[i].entries, obj)
				continue
			}
			index[key] = len(groups)
			groups = append(groups, objectGroup{referenceID: key, entries: []clients.NEOObject{obj}})
		}
	}
	return count, groups
}

// mergeEntries keeps the last entry's fields and every entry's approaches.
func mergeEntries(entries []clients.NEOObject) clients.NEOObject {
	merged := entries[len(entries)-1]
	if len(entries) == 1 {
		return merged
	}
	var approaches []clients.CloseApproach
	for _, e := range entries {
		approaches = append(approaches, e.CloseApproachData...)
	}
	merged.CloseApproachData = approaches
	return merged
}

func (s *ingestService) ingestObject(ctx context.Context, group objectGroup, syncedAt time.Time) itemOutcome {
	var outcome itemOutcome
	fail := func(kind, date string, err error) {
		outcome.failures = append(outcome.failures, ItemFailure{
			Kind:  kind,
			ID:    group.referenceID,
			Date:  date,
			Error: err.Error(),
		})
	}

	if group.referenceID == "" {
		outcome.failed = true
		fail(KindObject, "", errors.New("object has no reference id"))
		s.log.Warn("Skipping object without reference id", zap.String("name", group.entries[0].Name))
		return outcome
	}
	if err := ctx.Err(); err != nil {
		outcome.failed = true
		fail(KindObject, "", err)
		return outcome
	}

	obj, issues := NormalizeObject(mergeEntries(group.entries), syncedAt)
	for _, issue := range issues {
		s.log.Debug("Unusable feed field, defaulting to zero",
			zap.String("reference_id", obj.ReferenceID),
			zap.String("field", issue.Field),
			zap.String("value", issue.Value),
		)
	}

	if err := s.neoRepo.UpsertObject(ctx, &obj); err != nil {
		outcome.failed = true
		fail(KindObject, "", err)
		s.log.Warn("Failed to store NEO", zap.String("reference_id", obj.ReferenceID), zap.Error(err))
		return outcome
	}

	// Оценки пишем последовательно: при совпадении дат выигрывает последняя
	for _, approach := range obj.Approaches {
		if !ValidDate(approach.ApproachDate) {
			fail(KindAssessment, approach.ApproachDate, errors.New("approach has no valid date"))
			continue
		}

		assessment := buildAssessment(obj, approach)
		if err := s.neoRepo.UpsertAssessment(ctx, &assessment); err != nil {
			fail(KindAssessment, approach.ApproachDate, err)
			s.log.Warn("Failed to store impact assessment",
				zap.String("reference_id", obj.ReferenceID),
				zap.String("date", approach.ApproachDate),
				zap.Error(err),
			)
			continue
		}
		outcome.assessments++
	}

	return outcome
}

func buildAssessment(obj models.TrackedObject, approach models.ApproachRecord) models.ImpactAssessment {
	metrics := impact.Assess(impact.Input{
		IsHazardous:    obj.IsHazardous,
		DiameterKm:     obj.DiameterAvgKm,
		VelocityKmS:    approach.RelativeVelocityKmS,
		MissDistanceKm: approach.MissDistanceKm,
	})

	return models.ImpactAssessment{
		ReferenceID:           obj.ReferenceID,
		ClosestApproachDate:   approach.ApproachDate,
		ImpactProbability:     metrics.ImpactProbability,
		KineticEnergyMegatons: metrics.KineticEnergyMegatons,
		ImpactCategory:        metrics.Category,
		ThreatLevel:           metrics.ThreatLevel,
		MissDistanceKm:        approach.MissDistanceKm,
		RelativeVelocityKmS:   approach.RelativeVelocityKmS,
	}
}

func (s *ingestService) ingestComet(ctx context.Context, raw clients.CometEntry, syncedAt time.Time) itemOutcome {
	comet, err := NormalizeComet(raw, syncedAt)
	if err == nil {
		err = ctx.Err()
	}
	if err == nil {
		err = s.cometRepo.Upsert(ctx, &comet)
	}
	if err != nil {
		s.log.Warn("Failed to store comet", zap.String("designation", raw.Designation), zap.Error(err))
		return itemOutcome{
			failed:   true,
			failures: []ItemFailure{{Kind: KindComet, ID: raw.Designation, Error: err.Error()}},
		}
	}
	return itemOutcome{}
}

func (s *ingestService) saveSnapshot(ctx context.Context, source string, body []byte) {
	if len(body) == 0 {
		return
	}
	snapshot := &models.FeedSnapshot{
		Source:    source,
		FetchedAt: s.clock.Now().UTC(),
		Payload:   datatypes.JSON(body),
	}
	if err := s.snapshotRepo.Create(ctx, snapshot); err != nil {
		s.log.Warn("Failed to save feed snapshot", zap.String("source", source), zap.Error(err))
	}
}

func (s *ingestService) pruneSnapshots(ctx context.Context) {
	if s.config.SnapshotRetention <= 0 {
		return
	}
	cutoff := s.clock.Now().UTC().Add(-s.config.SnapshotRetention)
	deleted, err := s.snapshotRepo.DeleteOld(ctx, cutoff)
	if err != nil {
		s.log.Warn("Failed to prune feed snapshots", zap.Error(err))
		return
	}
	if deleted > 0 {
		s.log.Debug("Pruned feed snapshots", zap.Int64("deleted", deleted))
	}
}

func (s *ingestService) invalidateQueryCache(ctx context.Context) {
	if _, err := s.cacheRepo.DeleteByPrefix(ctx, QueryCachePrefix); err != nil {
		s.log.Warn("Failed to invalidate query cache", zap.Error(err))
	}
}
