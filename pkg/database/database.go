package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"neowatch/internal/models"
)

type Config struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	Path     string
	LogLevel string
}

func Connect(config Config, log *zap.Logger) (*gorm.DB, error) {
	dialector, err := dialectorFor(config)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel(config.LogLevel)),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	// Настройка пула соединений
	if config.Driver == "sqlite" {
		// SQLite допускает одного писателя
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	log.Info("Database connected", zap.String("driver", config.Driver))
	return db, nil
}

func dialectorFor(config Config) (gorm.Dialector, error) {
	switch config.Driver {
	case "postgres", "":
		dsn := fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode,
		)
		return postgres.Open(dsn), nil
	case "mysql":
		dsn := fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			config.User, config.Password, config.Host, config.Port, config.DBName,
		)
		return mysql.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(sqliteDSN(config.Path)), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", config.Driver)
	}
}

func sqliteDSN(path string) string {
	if path == "" || path == ":memory:" {
		return "file::memory:?_foreign_keys=ON"
	}
	if dir := filepath.Dir(path); dir != "." {
		// Ошибку вернет сам драйвер при открытии
		_ = os.MkdirAll(dir, 0o755)
	}
	return path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON"
}

func gormLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

func Migrate(db *gorm.DB, log *zap.Logger) error {
	postgresDB := db.Dialector.Name() == "postgres"

	// Включаем расширения
	if postgresDB {
		if err := db.Exec("CREATE EXTENSION IF NOT EXISTS pg_trgm").Error; err != nil {
			return fmt.Errorf("failed to create pg_trgm extension: %w", err)
		}
	}

	// Автомиграция моделей
	err := db.AutoMigrate(
		&models.TrackedObject{},
		&models.ImpactAssessment{},
		&models.CometRecord{},
		&models.FeedSnapshot{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate models: %w", err)
	}

	// Создаем индексы
	if postgresDB {
		if err := createPostgresIndexes(db); err != nil {
			return fmt.Errorf("failed to create indexes: %w", err)
		}
	}

	log.Info("Database migration completed")
	return nil
}

func createPostgresIndexes(db *gorm.DB) error {
	statements := []string{
		"CREATE INDEX IF NOT EXISTS idx_tracked_objects_magnitude ON tracked_objects(absolute_magnitude ASC NULLS LAST)",
		"CREATE INDEX IF NOT EXISTS idx_feed_snapshots_source_fetched ON feed_snapshots(source, fetched_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_comet_records_designation_trgm ON comet_records USING gin(lower(designation) gin_trgm_ops)",
		"CREATE INDEX IF NOT EXISTS idx_comet_records_name_trgm ON comet_records USING gin(lower(display_name) gin_trgm_ops)",
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
