package models

import "time"

// Upload is one ingested spreadsheet. StudentCount is a cached counter maintained on
// insert and delete and repaired by the reconciliation sweep.
type Upload struct {
	ID           string    `db:"id" json:"id"`
	Filename     string    `db:"filename" json:"filename"`
	StudentCount int       `db:"student_count" json:"student_count"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// UploadCountDrift reports an upload whose cached counter disagrees with its rows.
type UploadCountDrift struct {
	UploadID    string `db:"upload_id" json:"upload_id"`
	CachedCount int    `db:"cached_count" json:"cached_count"`
	ActualCount int    `db:"actual_count" json:"actual_count"`
}
