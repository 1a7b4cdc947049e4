package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/marks-ledger-api/internal/dto"
	"github.com/noah-isme/marks-ledger-api/internal/models"
	appErrors "github.com/noah-isme/marks-ledger-api/pkg/errors"
	"github.com/noah-isme/marks-ledger-api/pkg/response"
)

type studentService interface {
	List(ctx context.Context, uploadID string) ([]models.StudentRecord, error)
	Get(ctx context.Context, id string) (*models.StudentRecord, error)
	Update(ctx context.Context, id string, req dto.UpdateStudentRequest) (*models.StudentRecord, error)
	Delete(ctx context.Context, id string) error
}

// StudentHandler exposes student record endpoints.
type StudentHandler struct {
	students studentService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students studentService) *StudentHandler {
	return &StudentHandler{students: students}
}

// List godoc
// @Summary List student records
// @Description Newest first. Records sharing a timestamp keep their upload order.
// @Tags Students
// @Produce json
// @Param upload_id query string false "Restrict to one upload"
// @Success 200 {array} models.StudentRecord
// @Failure 400 {object} response.ErrorBody
// @Failure 503 {object} response.ErrorBody
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	records, err := h.students.List(c.Request.Context(), c.Query("upload_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, records)
}

// Get godoc
// @Summary Get a student record
// @Tags Students
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} models.StudentRecord
// @Failure 404 {object} response.ErrorBody
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	record, err := h.students.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, record)
}

// Update godoc
// @Summary Update a student record
// @Description The percentage is recomputed from the submitted marks.
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Record ID"
// @Param payload body dto.UpdateStudentRequest true "Editable fields"
// @Success 200 {object} models.StudentRecord
// @Failure 400 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Router /students/{id} [put]
func (h *StudentHandler) Update(c *gin.Context) {
	var req dto.UpdateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload"))
		return
	}
	record, err := h.students.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, record)
}

// Delete godoc
// @Summary Delete a student record
// @Tags Students
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} dto.MessageResponse
// @Failure 404 {object} response.ErrorBody
// @Router /students/{id} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	if err := h.students.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.MessageResponse{Message: "Student deleted successfully"})
}
