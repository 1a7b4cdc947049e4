package dto

import "github.com/noah-isme/marks-ledger-api/internal/models"

// UpdateStudentRequest is the body of PUT /students/:id. Percentage is always derived.
type UpdateStudentRequest struct {
	StudentName   string `json:"student_name" validate:"required"`
	TotalMarks    *int   `json:"total_marks" validate:"required,gt=0"`
	MarksObtained *int   `json:"marks_obtained" validate:"required,gte=0"`
}

// UploadResponse is returned after a spreadsheet was ingested.
type UploadResponse struct {
	Message  string                 `json:"message"`
	Upload   models.Upload          `json:"upload"`
	Students []models.StudentRecord `json:"students"`
	Count    int                    `json:"count"`
}

// DeleteUploadResponse reports a cascade delete.
type DeleteUploadResponse struct {
	Message         string `json:"message"`
	DeletedStudents int    `json:"deleted_students"`
	UploadID        string `json:"upload_id"`
}

// MessageResponse carries a confirmation message.
type MessageResponse struct {
	Message string `json:"message"`
}

// ExportFile is a rendered batch export.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}
