package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ApproachRecord is one close approach as reported by the feed. It is stored
// inside TrackedObject.Approaches in feed order.
type ApproachRecord struct {
	ApproachDate        string     `json:"approach_date"`
	ApproachDateTime    *time.Time `json:"approach_datetime,omitempty"`
	RelativeVelocityKmS float64    `json:"relative_velocity_km_s"`
	MissDistanceKm      float64    `json:"miss_distance_km"`
	MissDistanceAU      float64    `json:"miss_distance_au"`
	OrbitingBody        string     `json:"orbiting_body"`
}

type TrackedObject struct {
	ID                uuid.UUID                           `gorm:"type:varchar(36);primaryKey" json:"id"`
	ReferenceID       string                              `gorm:"type:varchar(64);uniqueIndex;not null" json:"reference_id"`
	DisplayName       string                              `gorm:"type:varchar(255)" json:"display_name"`
	JPLURL            string                              `gorm:"column:jpl_url;type:text" json:"jpl_url,omitempty"`
	AbsoluteMagnitude *float64                            `json:"absolute_magnitude,omitempty"`
	DiameterMinKm     float64                             `json:"diameter_min_km"`
	DiameterMaxKm     float64                             `json:"diameter_max_km"`
	DiameterAvgKm     float64                             `gorm:"index" json:"diameter_avg_km"`
	IsHazardous       bool                                `gorm:"index" json:"is_hazardous"`
	IsMonitored       bool                                `json:"is_monitored"`
	Approaches        datatypes.JSONSlice[ApproachRecord] `json:"approaches"`
	OrbitalMetadata   datatypes.JSON                      `json:"orbital_metadata,omitempty"`
	LastSyncedAt      time.Time                           `gorm:"not null" json:"last_synced_at"`
	CreatedAt         time.Time                           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time                           `gorm:"autoUpdateTime" json:"updated_at"`

	Assessments []ImpactAssessment `gorm:"foreignKey:ReferenceID;references:ReferenceID;constraint:OnDelete:CASCADE" json:"assessments"`
}

func (o *TrackedObject) BeforeCreate(_ *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
