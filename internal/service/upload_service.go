package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/marks-ledger-api/internal/dto"
	"github.com/noah-isme/marks-ledger-api/internal/models"
	appErrors "github.com/noah-isme/marks-ledger-api/pkg/errors"
)

type uploadStore interface {
	FindByID(ctx context.Context, id string) (*models.Upload, error)
	List(ctx context.Context) ([]models.Upload, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type uploadRecordStore interface {
	List(ctx context.Context, filter models.StudentRecordFilter) ([]models.StudentRecord, error)
	DeleteByUpload(ctx context.Context, uploadID string) (int, error)
}

// UploadService lists upload batches and performs cascade deletes.
type UploadService struct {
	uploads  uploadStore
	records  uploadRecordStore
	cache    *CacheService
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewUploadService constructs the upload service. cache may be nil.
func NewUploadService(uploads uploadStore, records uploadRecordStore, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *UploadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UploadService{uploads: uploads, records: records, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// List returns every upload newest first and whether the result came from the cache.
func (s *UploadService) List(ctx context.Context) ([]models.Upload, bool, error) {
	var cached []models.Upload
	if s.cache.Get(ctx, cacheKeyUploadList, &cached) {
		return cached, true, nil
	}
	uploads, err := s.uploads.List(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to list uploads")
	}
	s.cache.Set(ctx, cacheKeyUploadList, uploads, s.cacheTTL)
	return uploads, false, nil
}

// ListStudents returns the records of one upload newest first.
func (s *UploadService) ListStudents(ctx context.Context, uploadID string) ([]models.StudentRecord, error) {
	if !validID(uploadID) {
		return nil, appErrors.Clone(appErrors.ErrInvalidIdentifier, "Invalid upload ID")
	}
	records, err := s.records.List(ctx, models.StudentRecordFilter{UploadID: uploadID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to list upload students")
	}
	return records, nil
}

// Delete removes every record of the upload and then the upload itself. The two steps
// are independent writes; if the second fails the upload survives with no records.
func (s *UploadService) Delete(ctx context.Context, uploadID string) (*dto.DeleteUploadResponse, error) {
	if !validID(uploadID) {
		return nil, uploadNotFound()
	}
	if _, err := s.uploads.FindByID(ctx, uploadID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, uploadNotFound()
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load upload")
	}

	defer s.cache.Invalidate(ctx, cachePatternUploads)

	deleted, err := s.records.DeleteByUpload(ctx, uploadID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete upload students")
	}
	existed, err := s.uploads.Delete(ctx, uploadID)
	if err != nil {
		s.logger.Error("upload row left after its students were deleted",
			zap.String("upload_id", uploadID),
			zap.Int("deleted_students", deleted),
			zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete upload")
	}
	if !existed {
		return nil, uploadNotFound()
	}
	return &dto.DeleteUploadResponse{
		Message:         "Upload and associated students deleted successfully",
		DeletedStudents: deleted,
		UploadID:        uploadID,
	}, nil
}

func uploadNotFound() *appErrors.Error {
	return appErrors.Clone(appErrors.ErrNotFound, "Upload not found")
}
