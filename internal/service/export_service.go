package service

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/marks-ledger-api/internal/dto"
	"github.com/noah-isme/marks-ledger-api/internal/models"
	appErrors "github.com/noah-isme/marks-ledger-api/pkg/errors"
	"github.com/noah-isme/marks-ledger-api/pkg/export"
	"github.com/noah-isme/marks-ledger-api/pkg/tabular"
)

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

const percentageHeader = "Percentage"

type exportUploadStore interface {
	FindByID(ctx context.Context, id string) (*models.Upload, error)
}

type exportRecordStore interface {
	List(ctx context.Context, filter models.StudentRecordFilter) ([]models.StudentRecord, error)
}

// ExportService renders the records of one upload as a downloadable document.
type ExportService struct {
	uploads   exportUploadStore
	records   exportRecordStore
	renderers map[string]export.Renderer
	logger    *zap.Logger
}

// NewExportService constructs an ExportService with the CSV and PDF renderers.
func NewExportService(uploads exportUploadStore, records exportRecordStore, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		uploads: uploads,
		records: records,
		renderers: map[string]export.Renderer{
			ExportFormatCSV: export.NewCSVExporter(),
			ExportFormatPDF: export.NewPDFExporter(),
		},
		logger: logger,
	}
}

// Export renders an upload's records. An empty format selects CSV. The CSV columns
// match the ingestion headers so an export can be uploaded again.
func (s *ExportService) Export(ctx context.Context, uploadID, format string) (*dto.ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	if !validID(uploadID) {
		return nil, uploadNotFound()
	}
	upload, err := s.uploads.FindByID(ctx, uploadID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, uploadNotFound()
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load upload")
	}
	records, err := s.records.List(ctx, models.StudentRecordFilter{UploadID: uploadID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to list upload students")
	}

	data, err := renderer.Render(buildDataset(upload, records))
	if err != nil {
		s.logger.Error("render export", zap.String("upload_id", uploadID), zap.String("format", format), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &dto.ExportFile{
		Filename:    exportFilename(upload.Filename, renderer.Extension()),
		ContentType: renderer.ContentType(),
		Data:        data,
	}, nil
}

func buildDataset(upload *models.Upload, records []models.StudentRecord) export.Dataset {
	headers := append(append([]string{}, tabular.Headers...), percentageHeader)
	rows := make([]map[string]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, map[string]string{
			tabular.HeaderStudentID:     r.StudentID,
			tabular.HeaderStudentName:   r.StudentName,
			tabular.HeaderTotalMarks:    strconv.Itoa(r.TotalMarks),
			tabular.HeaderMarksObtained: strconv.Itoa(r.MarksObtained),
			percentageHeader:            strconv.FormatFloat(r.Percentage, 'f', 2, 64),
		})
	}
	return export.Dataset{Title: upload.Filename, Headers: headers, Rows: rows}
}

func exportFilename(original, ext string) string {
	base := strings.TrimSuffix(filepath.Base(original), filepath.Ext(original))
	if base == "" || base == "." {
		base = "students"
	}
	return base + ext
}
