package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"neowatch/internal/models"
)

type CometRepository interface {
	Upsert(ctx context.Context, comet *models.CometRecord) error
	Search(ctx context.Context, query string, limit int) ([]models.CometRecord, error)
	GetByDesignation(ctx context.Context, designation string) (*models.CometRecord, error)
	Count(ctx context.Context) (int64, error)
}

type cometRepository struct {
	db *gorm.DB
}

func NewCometRepository(db *gorm.DB) CometRepository {
	return &cometRepository{db: db}
}

func (r *cometRepository) Upsert(ctx context.Context, comet *models.CometRecord) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "designation"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"display_name",
				"orbital_elements",
				"discovery_date",
				"last_synced_at",
				"updated_at",
			}),
		}).
		Create(comet).
		Error
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// Search matches query case-insensitively against designation and display
// name. An empty query returns everything up to limit.
func (r *cometRepository) Search(ctx context.Context, query string, limit int) ([]models.CometRecord, error) {
	db := r.db.WithContext(ctx)

	if query = strings.TrimSpace(query); query != "" {
		// ILIKE есть только в Postgres; '!' как escape одинаково работает в Postgres, MySQL и SQLite
		pattern := "%" + likeEscaper.Replace(strings.ToLower(query)) + "%"
		db = db.Where("LOWER(designation) LIKE ? ESCAPE '!' OR LOWER(display_name) LIKE ? ESCAPE '!'", pattern, pattern)
	}
	if limit > 0 {
		db = db.Limit(limit)
	}

	var comets []models.CometRecord
	err := db.
		Order("designation ASC").
		Find(&comets).
		Error
	return comets, err
}

func (r *cometRepository) GetByDesignation(ctx context.Context, designation string) (*models.CometRecord, error) {
	var comet models.CometRecord
	err := r.db.WithContext(ctx).First(&comet, "designation = ?", designation).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &comet, nil
}

func (r *cometRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CometRecord{}).
		Count(&count).
		Error
	return count, err
}
