package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/marks-ledger-api/internal/models"
	"github.com/noah-isme/marks-ledger-api/pkg/jobs"
)

// Maintenance task names.
const (
	TaskReconcileCounts = "reconcile_counts"
	TaskCleanupStaging  = "cleanup_staging"
)

type driftStore interface {
	ListCountDrift(ctx context.Context) ([]models.UploadCountDrift, error)
	SetCount(ctx context.Context, id string, count int) error
}

type stagingSweeper interface {
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// MaintenanceConfig schedules the background tasks.
type MaintenanceConfig struct {
	Workers           int
	ReconcileInterval time.Duration
	StagingTTL        time.Duration
	RetryDelay        time.Duration
}

// MaintenanceService runs count reconciliation and staging cleanup on a worker queue,
// both periodically and on demand.
type MaintenanceService struct {
	uploads driftStore
	staging stagingSweeper
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	cfg     MaintenanceConfig
	queue   *jobs.Queue

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewMaintenanceService constructs the service. staging, cache and metrics may be nil.
func NewMaintenanceService(uploads driftStore, staging stagingSweeper, cache *CacheService, metrics *MetricsService, logger *zap.Logger, cfg MaintenanceConfig) *MaintenanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = 15 * time.Minute
	}
	if cfg.StagingTTL <= 0 {
		cfg.StagingTTL = time.Hour
	}
	s := &MaintenanceService{
		uploads: uploads,
		staging: staging,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
	}
	s.queue = jobs.NewQueue("maintenance", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: 16,
		MaxRetries: 2,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return s
}

// Start launches the workers and the periodic scheduler.
func (s *MaintenanceService) Start(ctx context.Context) {
	s.queue.Start(ctx)
	s.stop = make(chan struct{})
	s.wg.Add(1)
	go s.schedule(ctx)
}

// Stop halts the scheduler and waits for the workers to exit.
func (s *MaintenanceService) Stop() {
	if s.stop != nil {
		close(s.stop)
		s.wg.Wait()
		s.stop = nil
	}
	s.queue.Stop()
}

// Trigger enqueues task without blocking and reports whether it was accepted.
func (s *MaintenanceService) Trigger(task string, payload interface{}) bool {
	if err := s.queue.TryEnqueue(jobs.Job{Type: task, Payload: payload}); err != nil {
		s.logger.Warn("maintenance task not queued", zap.String("task", task), zap.Any("payload", payload), zap.Error(err))
		return false
	}
	return true
}

func (s *MaintenanceService) schedule(ctx context.Context) {
	defer s.wg.Done()
	reconcile := time.NewTicker(s.cfg.ReconcileInterval)
	defer reconcile.Stop()
	cleanup := time.NewTicker(s.cfg.StagingTTL)
	defer cleanup.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-reconcile.C:
			s.Trigger(TaskReconcileCounts, "scheduled")
		case <-cleanup.C:
			s.Trigger(TaskCleanupStaging, "scheduled")
		}
	}
}

func (s *MaintenanceService) handle(ctx context.Context, job jobs.Job) error {
	switch job.Type {
	case TaskReconcileCounts:
		_, err := s.ReconcileCounts(ctx)
		return err
	case TaskCleanupStaging:
		_, err := s.CleanupStaging()
		return err
	}
	return fmt.Errorf("unknown maintenance task %q", job.Type)
}

// ReconcileCounts rewrites every drifted upload count to the number of records
// referencing it and returns how many uploads were corrected.
func (s *MaintenanceService) ReconcileCounts(ctx context.Context) (int, error) {
	drift, err := s.uploads.ListCountDrift(ctx)
	if err != nil {
		return 0, fmt.Errorf("load count drift: %w", err)
	}
	fixed := 0
	for _, d := range drift {
		if err := s.uploads.SetCount(ctx, d.UploadID, d.ActualCount); err != nil {
			s.metrics.RecordCountsRepaired(fixed)
			return fixed, fmt.Errorf("repair upload %s: %w", d.UploadID, err)
		}
		s.logger.Info("upload count repaired",
			zap.String("upload_id", d.UploadID),
			zap.Int("cached", d.CachedCount),
			zap.Int("actual", d.ActualCount))
		fixed++
	}
	if fixed > 0 {
		s.cache.Invalidate(ctx, cachePatternUploads)
	}
	s.metrics.RecordCountsRepaired(fixed)
	return fixed, nil
}

// CleanupStaging removes staged files older than the configured TTL.
func (s *MaintenanceService) CleanupStaging() (int, error) {
	if s.staging == nil {
		return 0, nil
	}
	removed, err := s.staging.CleanupOlderThan(s.cfg.StagingTTL)
	s.metrics.RecordStagedFilesRemoved(len(removed))
	if len(removed) > 0 {
		s.logger.Info("stale staged uploads removed", zap.Strings("files", removed))
	}
	if err != nil {
		return len(removed), fmt.Errorf("cleanup staging: %w", err)
	}
	return len(removed), nil
}
