package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"neowatch/internal/models"
)

func TestSnapshotRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewSnapshotRepository(setupTestDB(t))

	base := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	for i, fetchedAt := range []time.Time{base.AddDate(0, 0, -10), base.AddDate(0, 0, -1), base} {
		require.NoError(t, repo.Create(ctx, &models.FeedSnapshot{
			Source:    "neo_feed",
			FetchedAt: fetchedAt,
			Payload:   datatypes.JSON(fmt.Sprintf(`{"n": %d}`, i)),
		}))
	}
	require.NoError(t, repo.Create(ctx, &models.FeedSnapshot{
		Source:    "comet_feed",
		FetchedAt: base.AddDate(0, 0, -2),
		Payload:   datatypes.JSON(`{"data": []}`),
	}))

	latest, err := repo.GetLatest(ctx, "neo_feed")
	require.NoError(t, err)
	assert.True(t, latest.FetchedAt.Equal(base))
	assert.JSONEq(t, `{"n": 2}`, string(latest.Payload))

	_, err = repo.GetLatest(ctx, "unknown")
	assert.ErrorIs(t, err, ErrNotFound)

	deleted, err := repo.DeleteOld(ctx, base.AddDate(0, 0, -7))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	deleted, err = repo.DeleteOld(ctx, base.AddDate(0, 0, -7))
	require.NoError(t, err)
	assert.Zero(t, deleted)

	_, err = repo.GetLatest(ctx, "comet_feed")
	assert.NoError(t, err)
}
