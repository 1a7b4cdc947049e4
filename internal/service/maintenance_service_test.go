package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/marks-ledger-api/internal/models"
	"github.com/noah-isme/marks-ledger-api/pkg/storage"
)

func TestMaintenanceServiceReconcileCounts(t *testing.T) {
	uploads := newMockUploadRepo()
	uploads.drift = []models.UploadCountDrift{
		{UploadID: "a", CachedCount: 3, ActualCount: 2},
		{UploadID: "b", CachedCount: 0, ActualCount: 5},
	}
	cacheRepo := newMockCacheRepo()
	cache := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	metrics := NewMetricsService()
	svc := NewMaintenanceService(uploads, nil, cache, metrics, zap.NewNop(), MaintenanceConfig{})

	fixed, err := svc.ReconcileCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, fixed)
	assert.Equal(t, map[string]int{"a": 2, "b": 5}, uploads.setCounts)
	assert.Equal(t, []string{cachePatternUploads}, cacheRepo.invalidations())
	assert.Equal(t, 2.0, counterSum(t, metrics, "upload_counts_repaired_total"))
}

func TestMaintenanceServiceReconcileStopsOnWriteFailure(t *testing.T) {
	uploads := newMockUploadRepo()
	uploads.drift = []models.UploadCountDrift{{UploadID: "a", ActualCount: 1}, {UploadID: "b", ActualCount: 2}}
	uploads.setCountErrAt = "b"
	svc := NewMaintenanceService(uploads, nil, nil, nil, zap.NewNop(), MaintenanceConfig{})

	fixed, err := svc.ReconcileCounts(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, fixed)
}

func TestMaintenanceServiceCleanupStaging(t *testing.T) {
	dir := t.TempDir()
	staging, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	old := filepath.Join(dir, "1-old.csv")
	require.NoError(t, os.WriteFile(old, []byte("x"), 0o600))
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2-new.csv"), []byte("y"), 0o600))

	svc := NewMaintenanceService(newMockUploadRepo(), staging, nil, nil, zap.NewNop(), MaintenanceConfig{StagingTTL: time.Hour})
	removed, err := svc.CleanupStaging()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "2-new.csv", entries[0].Name())
}

func TestMaintenanceServiceTriggerRunsQueuedTask(t *testing.T) {
	uploads := newMockUploadRepo()
	uploads.drift = []models.UploadCountDrift{{UploadID: "a", CachedCount: 4, ActualCount: 3}}
	svc := NewMaintenanceService(uploads, nil, nil, nil, zap.NewNop(), MaintenanceConfig{Workers: 1, ReconcileInterval: time.Hour})

	assert.False(t, svc.Trigger(TaskReconcileCounts, "early"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	require.True(t, svc.Trigger(TaskReconcileCounts, testUploadID))
	require.Eventually(t, func() bool {
		uploads.mu.Lock()
		defer uploads.mu.Unlock()
		return uploads.setCounts["a"] == 3
	}, time.Second, 10*time.Millisecond)
}
