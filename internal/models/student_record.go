package models

import "time"

// StudentRecord is one normalized grade row belonging to an upload.
type StudentRecord struct {
	ID            string    `db:"id" json:"id"`
	StudentID     string    `db:"student_id" json:"student_id"`
	StudentName   string    `db:"student_name" json:"student_name"`
	TotalMarks    int       `db:"total_marks" json:"total_marks"`
	MarksObtained int       `db:"marks_obtained" json:"marks_obtained"`
	Percentage    float64   `db:"percentage" json:"percentage"`
	UploadID      *string   `db:"upload_id" json:"upload_id,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// StudentRecordFilter narrows record listings.
type StudentRecordFilter struct {
	UploadID string
}
