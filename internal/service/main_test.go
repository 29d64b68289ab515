package service

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"neowatch/internal/clients"
	"neowatch/internal/observability"
	"neowatch/internal/repository"
	"neowatch/pkg/database"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
	)
}

var testNow = time.Date(2024, 1, 1, 15, 30, 0, 0, time.UTC)

type testEnv struct {
	db        *gorm.DB
	neoRepo   repository.NEORepository
	cometRepo repository.CometRepository
	snapshots repository.SnapshotRepository
	cache     repository.CacheRepository
	clock     *clockwork.FakeClock
	metrics   *observability.Metrics
}

func newTestEnv(t *testing.T) *testEnv {
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

	return &testEnv{
		db:        db,
		neoRepo:   repository.NewNEORepository(db),
		cometRepo: repository.NewCometRepository(db),
		snapshots: repository.NewSnapshotRepository(db),
		cache:     repository.NewNoopCacheRepository(),
		clock:     clockwork.NewFakeClockAt(testNow),
		metrics:   observability.NewMetricsForTesting(),
	}
}

func (e *testEnv) ingest(client clients.NASAClient, workers int) IngestService {
	return NewIngestService(
		client, e.neoRepo, e.cometRepo, e.snapshots, e.cache,
		e.clock, e.metrics, zap.NewNop(),
		IngestConfig{WindowDays: 7, Workers: workers, SnapshotRetention: 168 * time.Hour},
	)
}

func (e *testEnv) query(ttl time.Duration) QueryService {
	return NewQueryService(e.neoRepo, e.cometRepo, e.cache, ttl, e.metrics, zap.NewNop())
}
