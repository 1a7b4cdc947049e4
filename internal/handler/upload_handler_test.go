package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/marks-ledger-api/internal/dto"
	"github.com/noah-isme/marks-ledger-api/internal/middleware"
	"github.com/noah-isme/marks-ledger-api/internal/models"
	"github.com/noah-isme/marks-ledger-api/internal/service"
	appErrors "github.com/noah-isme/marks-ledger-api/pkg/errors"
)

type uploadServiceMock struct {
	uploads   []models.Upload
	cacheHit  bool
	deleteErr error
}

func (m *uploadServiceMock) List(ctx context.Context) ([]models.Upload, bool, error) {
	return m.uploads, m.cacheHit, nil
}

func (m *uploadServiceMock) ListStudents(ctx context.Context, uploadID string) ([]models.StudentRecord, error) {
	return nil, appErrors.Clone(appErrors.ErrInvalidIdentifier, "Invalid upload ID")
}

func (m *uploadServiceMock) Delete(ctx context.Context, uploadID string) (*dto.DeleteUploadResponse, error) {
	if m.deleteErr != nil {
		return nil, m.deleteErr
	}
	return &dto.DeleteUploadResponse{Message: "Upload and associated students deleted successfully", DeletedStudents: 2, UploadID: uploadID}, nil
}

type ingestServiceMock struct {
	filename string
	content  string
	err      error
}

func (m *ingestServiceMock) Ingest(ctx context.Context, file *service.UploadFile) (*dto.UploadResponse, error) {
	m.filename = file.Filename
	data, _ := io.ReadAll(file.Content)
	m.content = string(data)
	if m.err != nil {
		return nil, m.err
	}
	return &dto.UploadResponse{Message: "File uploaded and processed successfully", Upload: models.Upload{ID: "u1", Filename: file.Filename, StudentCount: 1}, Count: 1}, nil
}

type exportServiceMock struct{}

func (exportServiceMock) Export(ctx context.Context, uploadID, format string) (*dto.ExportFile, error) {
	return &dto.ExportFile{Filename: "marks.csv", ContentType: "text/csv; charset=utf-8", Data: []byte("Student_ID\nS1\n")}, nil
}

type triggerMock struct {
	accept bool
	tasks  []string
}

func (m *triggerMock) Trigger(task string, payload interface{}) bool {
	m.tasks = append(m.tasks, task)
	return m.accept
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func newUploadRequest(t *testing.T, body *bytes.Buffer, contentType string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	c.Request = req
	return c, w
}

func TestUploadHandlerUpload(t *testing.T) {
	ingest := &ingestServiceMock{}
	h := NewUploadHandler(&uploadServiceMock{}, ingest, exportServiceMock{}, nil, 1024)
	body, ct := multipartBody(t, "file", "marks.csv", "Student_ID\nS1\n")
	c, w := newUploadRequest(t, body, ct)

	h.Upload(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "marks.csv", ingest.filename)
	assert.Equal(t, "Student_ID\nS1\n", ingest.content)

	var out dto.UploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, 1, out.Count)
	assert.Equal(t, "u1", out.Upload.ID)
}

func TestUploadHandlerMissingFile(t *testing.T) {
	h := NewUploadHandler(&uploadServiceMock{}, &ingestServiceMock{}, exportServiceMock{}, nil, 1024)
	body, ct := multipartBody(t, "other", "marks.csv", "x")
	c, w := newUploadRequest(t, body, ct)

	h.Upload(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No file uploaded", decodeError(t, w).Error)
}

func TestUploadHandlerNotMultipart(t *testing.T) {
	h := NewUploadHandler(&uploadServiceMock{}, &ingestServiceMock{}, exportServiceMock{}, nil, 1024)
	c, w := newUploadRequest(t, bytes.NewBufferString(`{}`), "application/json")

	h.Upload(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, appErrors.ErrNoFileProvided.Code, decodeError(t, w).Code)
}

func TestUploadHandlerOversize(t *testing.T) {
	ingest := &ingestServiceMock{}
	h := NewUploadHandler(&uploadServiceMock{}, ingest, exportServiceMock{}, nil, 16)
	body, ct := multipartBody(t, "file", "marks.csv", string(bytes.Repeat([]byte("a"), 64)))
	c, w := newUploadRequest(t, body, ct)

	h.Upload(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "File too large", decodeError(t, w).Error)
	assert.Empty(t, ingest.filename)
}

func TestUploadHandlerUnsupportedType(t *testing.T) {
	ingest := &ingestServiceMock{err: appErrors.ErrUnsupportedFileType}
	h := NewUploadHandler(&uploadServiceMock{}, ingest, exportServiceMock{}, nil, 1024)
	body, ct := multipartBody(t, "file", "marks.pdf", "x")
	c, w := newUploadRequest(t, body, ct)

	h.Upload(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Only Excel (.xlsx) and CSV files are allowed", decodeError(t, w).Error)
}

func TestUploadHandlerListMarksCacheHit(t *testing.T) {
	h := NewUploadHandler(&uploadServiceMock{uploads: []models.Upload{{ID: "u1"}}, cacheHit: true}, &ingestServiceMock{}, exportServiceMock{}, nil, 0)
	c, w := newTestContext(http.MethodGet, "/api/uploads", nil)

	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "HIT", w.Header().Get(middleware.HeaderCache))
	assert.Contains(t, w.Body.String(), `"id":"u1"`)
}

func TestUploadHandlerListStudentsInvalidID(t *testing.T) {
	h := NewUploadHandler(&uploadServiceMock{}, &ingestServiceMock{}, exportServiceMock{}, nil, 0)
	c, w := newTestContext(http.MethodGet, "/api/uploads/x/students", nil)
	c.Params = gin.Params{{Key: "id", Value: "x"}}

	h.ListStudents(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadHandlerDelete(t *testing.T) {
	h := NewUploadHandler(&uploadServiceMock{}, &ingestServiceMock{}, exportServiceMock{}, nil, 0)
	c, w := newTestContext(http.MethodDelete, "/api/uploads/u1", nil)
	c.Params = gin.Params{{Key: "id", Value: "u1"}}

	h.Delete(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Upload and associated students deleted successfully","deleted_students":2,"upload_id":"u1"}`, w.Body.String())
}

func TestUploadHandlerExport(t *testing.T) {
	h := NewUploadHandler(&uploadServiceMock{}, &ingestServiceMock{}, exportServiceMock{}, nil, 0)
	c, w := newTestContext(http.MethodGet, "/api/uploads/u1/export", nil)
	c.Params = gin.Params{{Key: "id", Value: "u1"}}

	h.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="marks.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "Student_ID\nS1\n", w.Body.String())
}

func TestUploadHandlerReconcile(t *testing.T) {
	trigger := &triggerMock{accept: true}
	h := NewUploadHandler(&uploadServiceMock{}, &ingestServiceMock{}, exportServiceMock{}, trigger, 0)
	c, w := newTestContext(http.MethodPost, "/api/uploads/reconcile", nil)

	h.Reconcile(c)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, []string{service.TaskReconcileCounts}, trigger.tasks)

	trigger.accept = false
	c, w = newTestContext(http.MethodPost, "/api/uploads/reconcile", nil)
	h.Reconcile(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
