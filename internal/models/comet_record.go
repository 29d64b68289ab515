package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CometRecord struct {
	ID              uuid.UUID      `gorm:"type:varchar(36);primaryKey" json:"id"`
	Designation     string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"designation"`
	DisplayName     *string        `gorm:"type:varchar(255)" json:"display_name,omitempty"`
	OrbitalElements datatypes.JSON `json:"orbital_elements,omitempty"`
	DiscoveryDate   *string        `gorm:"type:varchar(10)" json:"discovery_date,omitempty"`
	LastSyncedAt    time.Time      `gorm:"not null" json:"last_synced_at"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *CometRecord) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
