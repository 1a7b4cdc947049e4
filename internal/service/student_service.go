package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/marks-ledger-api/internal/dto"
	"github.com/noah-isme/marks-ledger-api/internal/models"
	appErrors "github.com/noah-isme/marks-ledger-api/pkg/errors"
	"github.com/noah-isme/marks-ledger-api/pkg/tabular"
)

type studentRecordStore interface {
	List(ctx context.Context, filter models.StudentRecordFilter) ([]models.StudentRecord, error)
	FindByID(ctx context.Context, id string) (*models.StudentRecord, error)
	Update(ctx context.Context, record *models.StudentRecord) (*models.StudentRecord, error)
	Delete(ctx context.Context, id string) (*models.StudentRecord, error)
}

type uploadCounter interface {
	DecrementCount(ctx context.Context, id string) error
}

// countRepairer schedules a reconciliation of cached upload counts.
type countRepairer interface {
	Trigger(task string, payload interface{}) bool
}

// StudentService handles queries and edits of individual student records.
type StudentService struct {
	records   studentRecordStore
	uploads   uploadCounter
	repairs   countRepairer
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service. repairs and cache may be nil.
func NewStudentService(records studentRecordStore, uploads uploadCounter, repairs countRepairer, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{records: records, uploads: uploads, repairs: repairs, cache: cache, validator: validate, logger: logger}
}

// List returns records newest first, optionally restricted to one upload.
func (s *StudentService) List(ctx context.Context, uploadID string) ([]models.StudentRecord, error) {
	if uploadID != "" && !validID(uploadID) {
		return nil, appErrors.Clone(appErrors.ErrInvalidIdentifier, "Invalid upload ID")
	}
	records, err := s.records.List(ctx, models.StudentRecordFilter{UploadID: uploadID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to list students")
	}
	return records, nil
}

// Get returns one record.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentRecord, error) {
	if !validID(id) {
		return nil, studentNotFound()
	}
	record, err := s.records.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, studentNotFound()
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return record, nil
}

// Update changes name and marks and recomputes the percentage.
func (s *StudentService) Update(ctx context.Context, id string, req dto.UpdateStudentRequest) (*models.StudentRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if !validID(id) {
		return nil, studentNotFound()
	}
	record := &models.StudentRecord{
		ID:            id,
		StudentName:   req.StudentName,
		TotalMarks:    *req.TotalMarks,
		MarksObtained: *req.MarksObtained,
		Percentage:    tabular.Percentage(*req.MarksObtained, *req.TotalMarks),
	}
	updated, err := s.records.Update(ctx, record)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, studentNotFound()
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return updated, nil
}

// Delete removes one record and decrements its upload's count. A failed decrement is
// logged and handed to reconciliation; the record stays deleted.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return studentNotFound()
	}
	deleted, err := s.records.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return studentNotFound()
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	if deleted.UploadID == nil {
		return nil
	}
	uploadID := *deleted.UploadID
	if err := s.uploads.DecrementCount(ctx, uploadID); err != nil {
		s.logger.Warn("upload count decrement failed",
			zap.String("upload_id", uploadID),
			zap.String("student_record_id", id),
			zap.Error(err))
		if s.repairs != nil {
			s.repairs.Trigger(TaskReconcileCounts, uploadID)
		}
	}
	s.cache.Invalidate(ctx, cachePatternUploads)
	return nil
}

func studentNotFound() *appErrors.Error {
	return appErrors.Clone(appErrors.ErrNotFound, "Student not found")
}
