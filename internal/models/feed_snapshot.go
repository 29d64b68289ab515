package models

import (
	"time"

	"gorm.io/datatypes"
)

// FeedSnapshot keeps the raw body of one feed response. Source is one of
// clients.SourceNEOFeed or clients.SourceCometFeed.
type FeedSnapshot struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Source    string         `gorm:"type:varchar(32);not null;index" json:"source"`
	FetchedAt time.Time      `gorm:"not null;index" json:"fetched_at"`
	Payload   datatypes.JSON `gorm:"not null" json:"payload"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
}
