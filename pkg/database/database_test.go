package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"

	"neowatch/internal/models"
)

func TestConnectAndMigrate_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "neo.db")

	db, err := Connect(Config{Driver: "sqlite", Path: path, LogLevel: "silent"}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, Migrate(db, zap.NewNop()))

	for _, model := range []any{
		&models.TrackedObject{},
		&models.ImpactAssessment{},
		&models.CometRecord{},
		&models.FeedSnapshot{},
	} {
		assert.True(t, db.Migrator().HasTable(model))
	}
	assert.True(t, db.Migrator().HasIndex(&models.ImpactAssessment{}, "idx_assessment_natural_key"))

	// Повторная миграция не должна падать
	require.NoError(t, Migrate(db, zap.NewNop()))
}

func TestConnect_UnsupportedDriver(t *testing.T) {
	_, err := Connect(Config{Driver: "oracle"}, zap.NewNop())
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestGormLogLevel(t *testing.T) {
	assert.Equal(t, logger.Silent, gormLogLevel("silent"))
	assert.Equal(t, logger.Error, gormLogLevel("ERROR"))
	assert.Equal(t, logger.Info, gormLogLevel("info"))
	assert.Equal(t, logger.Warn, gormLogLevel(""))
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "file::memory:?_foreign_keys=ON", sqliteDSN(""))
	assert.Equal(t, "neo.db?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON", sqliteDSN("neo.db"))
}
