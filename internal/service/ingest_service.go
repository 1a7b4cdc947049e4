package service

import (
	"context"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/marks-ledger-api/internal/dto"
	"github.com/noah-isme/marks-ledger-api/internal/models"
	appErrors "github.com/noah-isme/marks-ledger-api/pkg/errors"
	"github.com/noah-isme/marks-ledger-api/pkg/storage"
	"github.com/noah-isme/marks-ledger-api/pkg/tabular"
)

const uploadProcessedMessage = "File uploaded and processed successfully"

type ingestUploadStore interface {
	Create(ctx context.Context, upload *models.Upload) error
}

type ingestRecordStore interface {
	InsertBatch(ctx context.Context, records []models.StudentRecord) error
}

type stagingStorage interface {
	SaveStream(name string, r io.Reader) (int64, error)
	Open(name string) (*os.File, error)
	Delete(name string) error
}

// UploadFile is an uploaded spreadsheet as received by the transport.
type UploadFile struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// IngestService turns uploaded spreadsheets into an upload batch and its student records.
type IngestService struct {
	uploads ingestUploadStore
	records ingestRecordStore
	staging stagingStorage
	repairs countRepairer
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewIngestService constructs the ingestion service. repairs, cache and metrics may be nil.
func NewIngestService(uploads ingestUploadStore, records ingestRecordStore, staging stagingStorage, repairs countRepairer, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *IngestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestService{
		uploads: uploads,
		records: records,
		staging: staging,
		repairs: repairs,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Ingest stages the file, parses every row, creates the upload with its student count,
// tags each record with the upload id and stores them with one bulk insert. The staged
// file is removed on every path once it was written.
func (s *IngestService) Ingest(ctx context.Context, file *UploadFile) (*dto.UploadResponse, error) {
	if file == nil || file.Content == nil {
		return nil, appErrors.ErrNoFileProvided
	}
	if !tabular.Supported(file.Filename) {
		s.metrics.RecordIngestionFailure("validate")
		return nil, appErrors.ErrUnsupportedFileType
	}

	name := storage.StagedName(file.Filename, s.now())
	if _, err := s.staging.SaveStream(name, file.Content); err != nil {
		s.metrics.RecordIngestionFailure("stage")
		return nil, ingestionFailed(err)
	}
	defer s.release(name)

	parsed, err := s.parseStaged(ctx, name, file.Filename)
	if err != nil {
		s.metrics.RecordIngestionFailure("parse")
		return nil, ingestionFailed(err)
	}

	upload := &models.Upload{Filename: file.Filename, StudentCount: len(parsed)}
	if err := s.uploads.Create(ctx, upload); err != nil {
		s.metrics.RecordIngestionFailure("create_upload")
		return nil, ingestionFailed(err)
	}
	defer s.cache.Invalidate(ctx, cachePatternUploads)

	records := make([]models.StudentRecord, len(parsed))
	for i, rec := range parsed {
		uploadID := upload.ID
		records[i] = models.StudentRecord{
			StudentID:     rec.StudentID,
			StudentName:   rec.StudentName,
			TotalMarks:    rec.TotalMarks,
			MarksObtained: rec.MarksObtained,
			Percentage:    rec.Percentage,
			UploadID:      &uploadID,
		}
	}
	if err := s.records.InsertBatch(ctx, records); err != nil {
		s.metrics.RecordIngestionFailure("insert_records")
		s.logger.Error("upload created without its students",
			zap.String("upload_id", upload.ID),
			zap.Int("student_count", upload.StudentCount),
			zap.Error(err))
		if s.repairs != nil {
			s.repairs.Trigger(TaskReconcileCounts, upload.ID)
		}
		return nil, ingestionFailed(err)
	}

	s.metrics.RecordIngestion(len(records))
	s.logger.Info("upload ingested",
		zap.String("upload_id", upload.ID),
		zap.String("filename", upload.Filename),
		zap.Int("students", len(records)))

	return &dto.UploadResponse{
		Message:  uploadProcessedMessage,
		Upload:   *upload,
		Students: records,
		Count:    len(records),
	}, nil
}

func (s *IngestService) parseStaged(ctx context.Context, name, original string) ([]tabular.Record, error) {
	f, err := s.staging.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck
	return tabular.Parse(ctx, original, f)
}

func (s *IngestService) release(name string) {
	if err := s.staging.Delete(name); err != nil {
		s.logger.Warn("staged upload not removed", zap.String("file", name), zap.Error(err))
	}
}

func ingestionFailed(err error) *appErrors.Error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to process uploaded file")
}
