package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"neowatch/internal/impact"
	"neowatch/internal/models"
)

const (
	OrderByMagnitude = "magnitude"
	OrderByReference = "reference"
)

// ObjectFilter combines with AND. Zero values disable a filter.
type ObjectFilter struct {
	Limit          int
	HazardousOnly  bool
	MinThreatLevel impact.ThreatLevel
	FromDate       string
	MinDiameterKm  *float64
	MaxDiameterKm  *float64
	OrderBy        string
}

// AssessmentExportRow is an assessment joined with its object.
type AssessmentExportRow struct {
	ReferenceID           string  `json:"reference_id"`
	DisplayName           string  `json:"display_name"`
	IsHazardous           bool    `json:"is_hazardous"`
	ClosestApproachDate   string  `json:"closest_approach_date"`
	ImpactProbability     float64 `json:"impact_probability"`
	KineticEnergyMegatons float64 `json:"kinetic_energy_megatons"`
	ImpactCategory        string  `json:"impact_category"`
	ThreatLevel           string  `json:"threat_level"`
	MissDistanceKm        float64 `json:"miss_distance_km"`
	RelativeVelocityKmS   float64 `gorm:"column:relative_velocity_km_s" json:"relative_velocity_km_s"`
}

type NEORepository interface {
	UpsertObject(ctx context.Context, obj *models.TrackedObject) error
	UpsertAssessment(ctx context.Context, assessment *models.ImpactAssessment) error
	List(ctx context.Context, filter ObjectFilter) ([]models.TrackedObject, error)
	GetByReferenceID(ctx context.Context, referenceID string) (*models.TrackedObject, error)
	Count(ctx context.Context) (int64, error)
	CountHazardous(ctx context.Context) (int64, error)
	CountAssessmentsByThreatLevel(ctx context.Context) (map[string]int64, error)
	CountAssessmentsByCategory(ctx context.Context) (map[string]int64, error)
	LastSyncedAt(ctx context.Context) (*time.Time, error)
	ListAssessmentsFrom(ctx context.Context, fromDate string, limit int) ([]AssessmentExportRow, error)
}

type neoRepository struct {
	db *gorm.DB
}

func NewNEORepository(db *gorm.DB) NEORepository {
	return &neoRepository{db: db}
}

// UpsertObject inserts the object or, when reference_id exists, overwrites
// its mutable fields. Nested assessments are not written.
func (r *neoRepository) UpsertObject(ctx context.Context, obj *models.TrackedObject) error {
	return r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "reference_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"display_name",
				"jpl_url",
				"absolute_magnitude",
				"diameter_min_km",
				"diameter_max_km",
				"diameter_avg_km",
				"is_hazardous",
				"is_monitored",
				"approaches",
				"orbital_metadata",
				"last_synced_at",
				"updated_at",
			}),
		}).
		Create(obj).
		Error
}

// UpsertAssessment keys on (reference_id, closest_approach_date).
func (r *neoRepository) UpsertAssessment(ctx context.Context, assessment *models.ImpactAssessment) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "reference_id"}, {Name: "closest_approach_date"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"impact_probability",
				"kinetic_energy_megatons",
				"impact_category",
				"threat_level",
				"miss_distance_km",
				"relative_velocity_km_s",
				"updated_at",
			}),
		}).
		Create(assessment).
		Error
}

func (r *neoRepository) List(ctx context.Context, filter ObjectFilter) ([]models.TrackedObject, error) {
	query := r.db.WithContext(ctx).Model(&models.TrackedObject{})

	if filter.HazardousOnly {
		query = query.Where("tracked_objects.is_hazardous = ?", true)
	}

	if filter.MinThreatLevel != "" {
		// Уровень угрозы берем из последней по дате оценки объекта
		latest := r.db.
			Table("impact_assessments AS a").
			Select("a.reference_id").
			Where("a.threat_level IN ?", filter.MinThreatLevel.AtLeast()).
			Where("a.closest_approach_date = (SELECT MAX(b.closest_approach_date) FROM impact_assessments b WHERE b.reference_id = a.reference_id)")
		query = query.Where("tracked_objects.reference_id IN (?)", latest)
	}

	if filter.FromDate != "" {
		query = query.Where(
			"EXISTS (SELECT 1 FROM impact_assessments d WHERE d.reference_id = tracked_objects.reference_id AND d.closest_approach_date >= ?)",
			filter.FromDate,
		)
	}

	if filter.MinDiameterKm != nil {
		query = query.Where("tracked_objects.diameter_avg_km >= ?", *filter.MinDiameterKm)
	}
	if filter.MaxDiameterKm != nil {
		query = query.Where("tracked_objects.diameter_avg_km <= ?", *filter.MaxDiameterKm)
	}

	switch filter.OrderBy {
	case OrderByReference:
		query = query.Order("tracked_objects.reference_id ASC")
	default:
		// NULLS LAST без диалектных расширений
		query = query.
			Order("CASE WHEN tracked_objects.absolute_magnitude IS NULL THEN 1 ELSE 0 END").
			Order("tracked_objects.absolute_magnitude ASC").
			Order("tracked_objects.reference_id ASC")
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var objects []models.TrackedObject
	err := query.
		Preload("Assessments", func(db *gorm.DB) *gorm.DB {
			return db.Order("closest_approach_date ASC")
		}).
		Find(&objects).
		Error
	return objects, err
}

func (r *neoRepository) GetByReferenceID(ctx context.Context, referenceID string) (*models.TrackedObject, error) {
	var obj models.TrackedObject
	err := r.db.WithContext(ctx).
		Preload("Assessments", func(db *gorm.DB) *gorm.DB {
			return db.Order("closest_approach_date ASC")
		}).
		Where("reference_id = ?", referenceID).
		First(&obj).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &obj, nil
}

func (r *neoRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.TrackedObject{}).
		Count(&count).
		Error
	return count, err
}

func (r *neoRepository) CountHazardous(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.TrackedObject{}).
		Where("is_hazardous = ?", true).
		Count(&count).
		Error
	return count, err
}

func (r *neoRepository) CountAssessmentsByThreatLevel(ctx context.Context) (map[string]int64, error) {
	return r.countAssessmentsBy(ctx, "threat_level")
}

func (r *neoRepository) CountAssessmentsByCategory(ctx context.Context) (map[string]int64, error) {
	return r.countAssessmentsBy(ctx, "impact_category")
}

func (r *neoRepository) countAssessmentsBy(ctx context.Context, column string) (map[string]int64, error) {
	var rows []struct {
		Bucket string
		Total  int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.ImpactAssessment{}).
		Select(column + " AS bucket, COUNT(*) AS total").
		Group(column).
		Scan(&rows).
		Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Bucket] = row.Total
	}
	return counts, nil
}

// LastSyncedAt returns nil when nothing has been ingested yet.
func (r *neoRepository) LastSyncedAt(ctx context.Context) (*time.Time, error) {
	var obj models.TrackedObject
	err := r.db.WithContext(ctx).
		Select("last_synced_at").
		Order("last_synced_at DESC").
		Take(&obj).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &obj.LastSyncedAt, nil
}

func (r *neoRepository) ListAssessmentsFrom(ctx context.Context, fromDate string, limit int) ([]AssessmentExportRow, error) {
	query := r.db.WithContext(ctx).
		Table("impact_assessments").
		Select(`impact_assessments.reference_id,
			tracked_objects.display_name,
			tracked_objects.is_hazardous,
			impact_assessments.closest_approach_date,
			impact_assessments.impact_probability,
			impact_assessments.kinetic_energy_megatons,
			impact_assessments.impact_category,
			impact_assessments.threat_level,
			impact_assessments.miss_distance_km,
			impact_assessments.relative_velocity_km_s`).
		Joins("JOIN tracked_objects ON tracked_objects.reference_id = impact_assessments.reference_id").
		Order("impact_assessments.closest_approach_date ASC").
		Order("impact_assessments.reference_id ASC")

	if fromDate != "" {
		query = query.Where("impact_assessments.closest_approach_date >= ?", fromDate)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []AssessmentExportRow
	err := query.Scan(&rows).Error
	return rows, err
}
