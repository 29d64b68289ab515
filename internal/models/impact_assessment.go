package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"neowatch/internal/impact"
)

// ImpactAssessment holds the derived risk metrics for one object on one
// approach date. (ReferenceID, ClosestApproachDate) is unique.
type ImpactAssessment struct {
	ID                    uuid.UUID          `gorm:"type:varchar(36);primaryKey" json:"id"`
	ReferenceID           string             `gorm:"type:varchar(64);not null;uniqueIndex:idx_assessment_natural_key,priority:1" json:"reference_id"`
	ClosestApproachDate   string             `gorm:"type:varchar(10);not null;uniqueIndex:idx_assessment_natural_key,priority:2;index" json:"closest_approach_date"`
	ImpactProbability     float64            `json:"impact_probability"`
	KineticEnergyMegatons float64            `json:"kinetic_energy_megatons"`
	ImpactCategory        impact.Category    `gorm:"type:varchar(20)" json:"impact_category"`
	ThreatLevel           impact.ThreatLevel `gorm:"type:varchar(10);index" json:"threat_level"`
	MissDistanceKm        float64            `json:"miss_distance_km"`
	RelativeVelocityKmS   float64            `gorm:"column:relative_velocity_km_s" json:"relative_velocity_km_s"`
	CreatedAt             time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

func (a *ImpactAssessment) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
