package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/noah-isme/marks-ledger-api/internal/dto"
	"github.com/noah-isme/marks-ledger-api/internal/models"
)

const defaultTimeout = 30 * time.Second

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return e.Message
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// Client talks to the marks API. baseURL includes the API prefix, e.g. http://localhost:5000/api.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a Client.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Students lists records newest first, optionally restricted to one upload.
func (c *Client) Students(ctx context.Context, uploadID string) ([]models.StudentRecord, error) {
	path := "/students"
	if uploadID != "" {
		path += "?" + url.Values{"upload_id": {uploadID}}.Encode()
	}
	var out []models.StudentRecord
	if err := c.do(ctx, http.MethodGet, path, nil, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Student fetches one record.
func (c *Client) Student(ctx context.Context, id string) (*models.StudentRecord, error) {
	var out models.StudentRecord
	if err := c.do(ctx, http.MethodGet, "/students/"+url.PathEscape(id), nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateStudent replaces the editable fields of a record.
func (c *Client) UpdateStudent(ctx context.Context, id string, req dto.UpdateStudentRequest) (*models.StudentRecord, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode update: %w", err)
	}
	var out models.StudentRecord
	if err := c.do(ctx, http.MethodPut, "/students/"+url.PathEscape(id), bytes.NewReader(body), "application/json", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteStudent removes a record and returns the server's confirmation.
func (c *Client) DeleteStudent(ctx context.Context, id string) (string, error) {
	var out dto.MessageResponse
	if err := c.do(ctx, http.MethodDelete, "/students/"+url.PathEscape(id), nil, "", &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// Upload sends a spreadsheet as the multipart field "file".
func (c *Client) Upload(ctx context.Context, filename string, content io.Reader) (*dto.UploadResponse, error) {
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("copy upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}
	var out dto.UploadResponse
	if err := c.do(ctx, http.MethodPost, "/upload", buf, mw.FormDataContentType(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Uploads lists batches newest first.
func (c *Client) Uploads(ctx context.Context) ([]models.Upload, error) {
	var out []models.Upload
	if err := c.do(ctx, http.MethodGet, "/uploads", nil, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UploadStudents lists the records of one batch.
func (c *Client) UploadStudents(ctx context.Context, uploadID string) ([]models.StudentRecord, error) {
	var out []models.StudentRecord
	if err := c.do(ctx, http.MethodGet, "/uploads/"+url.PathEscape(uploadID)+"/students", nil, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteUpload removes a batch with all of its records.
func (c *Client) DeleteUpload(ctx context.Context, uploadID string) (*dto.DeleteUploadResponse, error) {
	var out dto.DeleteUploadResponse
	if err := c.do(ctx, http.MethodDelete, "/uploads/"+url.PathEscape(uploadID), nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Export downloads a batch rendered as csv or pdf.
func (c *Client) Export(ctx context.Context, uploadID, format string, w io.Writer) error {
	path := "/uploads/" + url.PathEscape(uploadID) + "/export"
	if format != "" {
		path += "?" + url.Values{"format": {format}}.Encode()
	}
	resp, err := c.send(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("read export: %w", err)
	}
	return nil
}

// Health reports server status.
func (c *Client) Health(ctx context.Context) (*models.Health, error) {
	var out models.Health
	if err := c.do(ctx, http.MethodGet, "/health", nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out interface{}) error {
	resp, err := c.send(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// send performs the request and converts non-2xx answers into *APIError.
func (c *Client) send(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close() //nolint:errcheck
	apiErr := &APIError{Status: resp.StatusCode}
	var payload struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if data, readErr := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); readErr == nil && json.Unmarshal(data, &payload) == nil {
		apiErr.Message = payload.Error
		apiErr.Code = payload.Code
	}
	return nil, apiErr
}
