package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neowatch/internal/impact"
	"neowatch/internal/models"
	"neowatch/internal/repository"
)

func storeObject(t *testing.T, env *testEnv, id string, magnitude *float64, hazardous bool, diameterKm float64) {
	t.Helper()
	require.NoError(t, env.neoRepo.UpsertObject(context.Background(), &models.TrackedObject{
		ReferenceID:       id,
		DisplayName:       "(" + id + ")",
		AbsoluteMagnitude: magnitude,
		DiameterAvgKm:     diameterKm,
		IsHazardous:       hazardous,
		LastSyncedAt:      testNow,
	}))
}

func storeAssessment(t *testing.T, env *testEnv, id, date string, level impact.ThreatLevel) {
	t.Helper()
	require.NoError(t, env.neoRepo.UpsertAssessment(context.Background(), &models.ImpactAssessment{
		ReferenceID:         id,
		ClosestApproachDate: date,
		ThreatLevel:         level,
		ImpactCategory:      impact.CategoryMinimal,
	}))
}

func referenceIDs(objects []models.TrackedObject) []string {
	ids := make([]string, 0, len(objects))
	for _, o := range objects {
		ids = append(ids, o.ReferenceID)
	}
	return ids
}

func TestQueryService_ListObjects(t *testing.T) {
	env := newTestEnv(t)

	storeObject(t, env, "a", ptr(22.0), true, 0.3)
	storeObject(t, env, "b", ptr(18.5), true, 0.9)
	storeObject(t, env, "c", nil, false, 0.05)
	storeAssessment(t, env, "a", "2024-01-02", impact.ThreatHigh)
	storeAssessment(t, env, "b", "2024-01-03", impact.ThreatLow)
	storeAssessment(t, env, "c", "2024-01-04", impact.ThreatLow)

	svc := env.query(0)
	ctx := context.Background()

	t.Run("default order puts missing magnitude last", func(t *testing.T) {
		objects, err := svc.ListObjects(ctx, repository.ObjectFilter{})
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "a", "c"}, referenceIDs(objects))
	})

	t.Run("threat level high", func(t *testing.T) {
		objects, err := svc.ListObjects(ctx, repository.ObjectFilter{MinThreatLevel: impact.ThreatHigh})
		require.NoError(t, err)
		require.Len(t, objects, 1)
		assert.Equal(t, "a", objects[0].ReferenceID)
		require.Len(t, objects[0].Assessments, 1)
		assert.Equal(t, impact.ThreatHigh, objects[0].Assessments[0].ThreatLevel)
	})

	t.Run("hazardous and limit", func(t *testing.T) {
		objects, err := svc.ListObjects(ctx, repository.ObjectFilter{HazardousOnly: true, Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, referenceIDs(objects))
	})

	t.Run("order by reference", func(t *testing.T) {
		objects, err := svc.ListObjects(ctx, repository.ObjectFilter{OrderBy: repository.OrderByReference})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, referenceIDs(objects))
	})

	t.Run("unknown order falls back to magnitude", func(t *testing.T) {
		objects, err := svc.ListObjects(ctx, repository.ObjectFilter{OrderBy: "size"})
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "a", "c"}, referenceIDs(objects))
	})
}

func TestQueryService_ListObjectsClampsLimit(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < DefaultObjectLimit+5; i++ {
		storeObject(t, env, fmt.Sprintf("obj-%03d", i), nil, false, 0.1)
	}
	svc := env.query(0)

	objects, err := svc.ListObjects(context.Background(), repository.ObjectFilter{})
	require.NoError(t, err)
	assert.Len(t, objects, DefaultObjectLimit)

	objects, err = svc.ListObjects(context.Background(), repository.ObjectFilter{Limit: 100000})
	require.NoError(t, err)
	assert.Len(t, objects, DefaultObjectLimit+5)

	assert.Equal(t, 10, clampLimit(10, DefaultObjectLimit))
	assert.Equal(t, MaxLimit, clampLimit(MaxLimit+1, DefaultObjectLimit))
	assert.Equal(t, DefaultCometLimit, clampLimit(-3, DefaultCometLimit))
}

func TestQueryService_GetObject(t *testing.T) {
	env := newTestEnv(t)
	storeObject(t, env, "3542519", ptr(21.9), true, 0.2)
	storeAssessment(t, env, "3542519", "2024-01-02", impact.ThreatLow)

	svc := env.query(0)

	obj, err := svc.GetObject(context.Background(), "3542519")
	require.NoError(t, err)
	assert.Equal(t, "(3542519)", obj.DisplayName)
	assert.Len(t, obj.Assessments, 1)

	_, err = svc.GetObject(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestQueryService_ListComets(t *testing.T) {
	env := newTestEnv(t)
	for _, d := range []string{"1P/Halley", "2P/Encke", "C/2020 F3"} {
		require.NoError(t, env.cometRepo.Upsert(context.Background(), &models.CometRecord{
			Designation:  d,
			LastSyncedAt: testNow,
		}))
	}
	svc := env.query(0)

	comets, err := svc.ListComets(context.Background(), CometFilter{})
	require.NoError(t, err)
	assert.Len(t, comets, 3)

	comets, err = svc.ListComets(context.Background(), CometFilter{Search: "  halley "})
	require.NoError(t, err)
	require.Len(t, comets, 1)
	assert.Equal(t, "1P/Halley", comets[0].Designation)
}

func TestQueryService_Summary(t *testing.T) {
	env := newTestEnv(t)
	svc := env.query(0)

	empty, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Zero(t, empty.Objects)
	assert.Nil(t, empty.LastSyncedAt)

	storeObject(t, env, "a", nil, true, 0.3)
	storeObject(t, env, "b", nil, false, 0.3)
	storeAssessment(t, env, "a", "2024-01-02", impact.ThreatHigh)
	storeAssessment(t, env, "a", "2024-01-05", impact.ThreatLow)

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.Objects)
	assert.Equal(t, int64(1), summary.HazardousObjects)
	assert.Equal(t, int64(1), summary.AssessmentsByThreatLevel[string(impact.ThreatHigh)])
	assert.Equal(t, int64(1), summary.AssessmentsByThreatLevel[string(impact.ThreatLow)])
	assert.Equal(t, int64(2), summary.AssessmentsByCategory[string(impact.CategoryMinimal)])
	require.NotNil(t, summary.LastSyncedAt)
	assert.True(t, summary.LastSyncedAt.Equal(testNow))
}

func TestQueryService_ServesFromCache(t *testing.T) {
	env := newTestEnv(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	env.cache = repository.NewCacheRepository(client)

	storeObject(t, env, "a", ptr(20.0), false, 0.1)
	svc := env.query(time.Minute)

	first, err := svc.ListObjects(context.Background(), repository.ObjectFilter{})
	require.NoError(t, err)
	require.Len(t, first, 1)

	require.NoError(t, env.db.Where("reference_id = ?", "a").Delete(&models.TrackedObject{}).Error)

	second, err := svc.ListObjects(context.Background(), repository.ObjectFilter{})
	require.NoError(t, err)
	assert.Equal(t, referenceIDs(first), referenceIDs(second))

	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.QueryCache.WithLabelValues("miss")))
	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.QueryCache.WithLabelValues("hit")))

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Contains(t, keys[0], QueryCachePrefix+"objects:")
	assert.Greater(t, mr.TTL(keys[0]), time.Duration(0))
}

func TestQueryService_CacheFailureFallsThrough(t *testing.T) {
	env := newTestEnv(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	env.cache = repository.NewCacheRepository(client)

	storeObject(t, env, "a", nil, false, 0.1)
	mr.SetError("LOADING")

	objects, err := env.query(time.Minute).ListObjects(context.Background(), repository.ObjectFilter{})
	require.NoError(t, err)
	assert.Len(t, objects, 1)
	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.QueryCache.WithLabelValues("error")))
}
