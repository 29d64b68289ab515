package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"neowatch/internal/impact"
	"neowatch/internal/models"
	"neowatch/pkg/database"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Connect(database.Config{
		Driver:   "sqlite",
		Path:     filepath.Join(t.TempDir(), "test.db"),
		LogLevel: "silent",
	}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, zap.NewNop()))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func float(v float64) *float64 { return &v }

func testObject(referenceID string, magnitude *float64, diameterKm float64, hazardous bool) *models.TrackedObject {
	return &models.TrackedObject{
		ReferenceID:       referenceID,
		DisplayName:       "(" + referenceID + ")",
		AbsoluteMagnitude: magnitude,
		DiameterMinKm:     diameterKm,
		DiameterMaxKm:     diameterKm,
		DiameterAvgKm:     diameterKm,
		IsHazardous:       hazardous,
		Approaches: datatypes.JSONSlice[models.ApproachRecord]{
			{ApproachDate: "2024-01-02", RelativeVelocityKmS: 10, MissDistanceKm: 1e6, OrbitingBody: "Earth"},
		},
		LastSyncedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func testAssessment(referenceID, date string, level impact.ThreatLevel) *models.ImpactAssessment {
	return &models.ImpactAssessment{
		ReferenceID:           referenceID,
		ClosestApproachDate:   date,
		ImpactProbability:     0.001,
		KineticEnergyMegatons: 5,
		ImpactCategory:        impact.CategoryMajor,
		ThreatLevel:           level,
		MissDistanceKm:        1e6,
		RelativeVelocityKmS:   10,
	}
}

func seed(t *testing.T, repo NEORepository, obj *models.TrackedObject, assessments ...*models.ImpactAssessment) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, repo.UpsertObject(ctx, obj))
	for _, a := range assessments {
		require.NoError(t, repo.UpsertAssessment(ctx, a))
	}
}
