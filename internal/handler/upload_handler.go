package handler

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/marks-ledger-api/internal/dto"
	"github.com/noah-isme/marks-ledger-api/internal/middleware"
	"github.com/noah-isme/marks-ledger-api/internal/models"
	"github.com/noah-isme/marks-ledger-api/internal/service"
	appErrors "github.com/noah-isme/marks-ledger-api/pkg/errors"
	"github.com/noah-isme/marks-ledger-api/pkg/response"
)

const (
	uploadFormField = "file"
	// multipartOverhead leaves room for boundaries and part headers around the file.
	multipartOverhead = 1 << 20
)

type uploadService interface {
	List(ctx context.Context) ([]models.Upload, bool, error)
	ListStudents(ctx context.Context, uploadID string) ([]models.StudentRecord, error)
	Delete(ctx context.Context, uploadID string) (*dto.DeleteUploadResponse, error)
}

type ingestService interface {
	Ingest(ctx context.Context, file *service.UploadFile) (*dto.UploadResponse, error)
}

type exportService interface {
	Export(ctx context.Context, uploadID, format string) (*dto.ExportFile, error)
}

type maintenanceTrigger interface {
	Trigger(task string, payload interface{}) bool
}

// UploadHandler exposes spreadsheet ingestion and upload batch endpoints.
type UploadHandler struct {
	uploads     uploadService
	ingest      ingestService
	exports     exportService
	maintenance maintenanceTrigger
	maxFileSize int64
}

// NewUploadHandler constructs UploadHandler. maintenance may be nil, which disables on-demand reconciliation.
func NewUploadHandler(uploads uploadService, ingest ingestService, exports exportService, maintenance maintenanceTrigger, maxFileSize int64) *UploadHandler {
	if maxFileSize <= 0 {
		maxFileSize = 10 << 20
	}
	return &UploadHandler{uploads: uploads, ingest: ingest, exports: exports, maintenance: maintenance, maxFileSize: maxFileSize}
}

// Upload godoc
// @Summary Upload a marks spreadsheet
// @Description Accepts .xlsx (first sheet) or .csv with headers Student_ID, Student_Name, Total_Marks, Marks_Obtained.
// @Tags Uploads
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Spreadsheet"
// @Success 200 {object} dto.UploadResponse
// @Failure 400 {object} response.ErrorBody
// @Failure 500 {object} response.ErrorBody
// @Router /upload [post]
func (h *UploadHandler) Upload(c *gin.Context) {
	if c.Request.ContentLength > h.maxFileSize+multipartOverhead {
		response.Error(c, appErrors.ErrOversizeUpload)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxFileSize+multipartOverhead)

	header, err := c.FormFile(uploadFormField)
	if err != nil {
		response.Error(c, formFileError(err))
		return
	}
	if header.Size > h.maxFileSize {
		response.Error(c, appErrors.ErrOversizeUpload)
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read uploaded file"))
		return
	}
	defer file.Close() //nolint:errcheck

	result, err := h.ingest.Ingest(c.Request.Context(), &service.UploadFile{
		Filename: header.Filename,
		Size:     header.Size,
		Content:  file,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

func formFileError(err error) error {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge), errors.Is(err, multipart.ErrMessageTooLarge):
		return appErrors.ErrOversizeUpload
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return appErrors.ErrNoFileProvided
	}
	return appErrors.Wrap(err, appErrors.ErrNoFileProvided.Code, appErrors.ErrNoFileProvided.Status, appErrors.ErrNoFileProvided.Message)
}

// List godoc
// @Summary List upload batches
// @Tags Uploads
// @Produce json
// @Success 200 {array} models.Upload
// @Failure 503 {object} response.ErrorBody
// @Router /uploads [get]
func (h *UploadHandler) List(c *gin.Context) {
	uploads, hit, err := h.uploads.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.OK(c, uploads)
}

// ListStudents godoc
// @Summary List the student records of one upload
// @Tags Uploads
// @Produce json
// @Param id path string true "Upload ID"
// @Success 200 {array} models.StudentRecord
// @Failure 400 {object} response.ErrorBody
// @Router /uploads/{id}/students [get]
func (h *UploadHandler) ListStudents(c *gin.Context) {
	records, err := h.uploads.ListStudents(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, records)
}

// Delete godoc
// @Summary Delete an upload and its student records
// @Tags Uploads
// @Produce json
// @Param id path string true "Upload ID"
// @Success 200 {object} dto.DeleteUploadResponse
// @Failure 404 {object} response.ErrorBody
// @Router /uploads/{id} [delete]
func (h *UploadHandler) Delete(c *gin.Context) {
	result, err := h.uploads.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Export godoc
// @Summary Download the records of one upload
// @Tags Uploads
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Upload ID"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Router /uploads/{id}/export [get]
func (h *UploadHandler) Export(c *gin.Context) {
	file, err := h.exports.Export(c.Request.Context(), c.Param("id"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+strconv.Quote(file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// Reconcile godoc
// @Summary Queue a student count reconciliation
// @Tags Uploads
// @Produce json
// @Success 202 {object} dto.MessageResponse
// @Failure 503 {object} response.ErrorBody
// @Router /uploads/reconcile [post]
func (h *UploadHandler) Reconcile(c *gin.Context) {
	if h.maintenance == nil || !h.maintenance.Trigger(service.TaskReconcileCounts, "manual") {
		response.Error(c, appErrors.Clone(appErrors.ErrStoreUnavailable, "reconciliation unavailable"))
		return
	}
	response.Accepted(c, dto.MessageResponse{Message: "Reconciliation queued"})
}
