package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/marks-ledger-api/internal/models"
)

const studentRecordColumns = `id, student_id, student_name, total_marks, marks_obtained, percentage, upload_id, created_at`

// StudentRecordRepository manages persistence for normalized grade rows.
type StudentRecordRepository struct {
	db       *sqlx.DB
	observer QueryObserver
}

// NewStudentRecordRepository constructs a StudentRecordRepository. observer may be nil.
func NewStudentRecordRepository(db *sqlx.DB, observer QueryObserver) *StudentRecordRepository {
	return &StudentRecordRepository{db: db, observer: observer}
}

// maxInsertParams is the PostgreSQL limit on bind parameters per statement.
const maxInsertParams = 65535

// insertRecordParams is the number of bind parameters each inserted row uses.
const insertRecordParams = 8

// insertChunkSize is the largest number of rows one INSERT statement may carry.
const insertChunkSize = maxInsertParams / insertRecordParams

// InsertBatch stores all records in one transaction, split into multi-row INSERT
// statements that stay under the bind parameter limit. Ids and creation times are
// assigned in place.
func (r *StudentRecordRepository) InsertBatch(ctx context.Context, records []models.StudentRecord) (err error) {
	if len(records) == 0 {
		return nil
	}
	defer observe(r.observer, "student_records.insert_batch", time.Now())
	now := time.Now().UTC()
	for i := range records {
		if records[i].ID == "" {
			records[i].ID = uuid.NewString()
		}
		if records[i].CreatedAt.IsZero() {
			records[i].CreatedAt = now
		}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert student records: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO student_records (` + studentRecordColumns + `)
        VALUES (:id, :student_id, :student_name, :total_marks, :marks_obtained, :percentage, :upload_id, :created_at)`
	for start := 0; start < len(records); start += insertChunkSize {
		end := start + insertChunkSize
		if end > len(records) {
			end = len(records)
		}
		if _, err = tx.NamedExecContext(ctx, query, records[start:end]); err != nil {
			return fmt.Errorf("insert student records: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit student records: %w", err)
	}
	return nil
}

// List returns records newest first. Rows sharing a timestamp keep insertion order.
func (r *StudentRecordRepository) List(ctx context.Context, filter models.StudentRecordFilter) ([]models.StudentRecord, error) {
	defer observe(r.observer, "student_records.list", time.Now())
	query := `SELECT ` + studentRecordColumns + ` FROM student_records`
	args := []interface{}{}
	if filter.UploadID != "" {
		query += ` WHERE upload_id = $1`
		args = append(args, filter.UploadID)
	}
	query += ` ORDER BY created_at DESC, seq ASC`

	records := make([]models.StudentRecord, 0)
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list student records: %w", err)
	}
	return records, nil
}

// FindByID fetches one record. sql.ErrNoRows is returned untouched when absent.
func (r *StudentRecordRepository) FindByID(ctx context.Context, id string) (*models.StudentRecord, error) {
	defer observe(r.observer, "student_records.find", time.Now())
	query := `SELECT ` + studentRecordColumns + ` FROM student_records WHERE id = $1`
	var record models.StudentRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// Update writes the editable columns and returns the stored row, or sql.ErrNoRows.
func (r *StudentRecordRepository) Update(ctx context.Context, record *models.StudentRecord) (*models.StudentRecord, error) {
	defer observe(r.observer, "student_records.update", time.Now())
	query := `UPDATE student_records SET student_name = $2, total_marks = $3, marks_obtained = $4, percentage = $5
        WHERE id = $1 RETURNING ` + studentRecordColumns
	var updated models.StudentRecord
	if err := r.db.GetContext(ctx, &updated, query, record.ID, record.StudentName, record.TotalMarks, record.MarksObtained, record.Percentage); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes one record and returns it, or sql.ErrNoRows when absent.
func (r *StudentRecordRepository) Delete(ctx context.Context, id string) (*models.StudentRecord, error) {
	defer observe(r.observer, "student_records.delete", time.Now())
	query := `DELETE FROM student_records WHERE id = $1 RETURNING ` + studentRecordColumns
	var deleted models.StudentRecord
	if err := r.db.GetContext(ctx, &deleted, query, id); err != nil {
		return nil, err
	}
	return &deleted, nil
}

// DeleteByUpload removes every record referencing the upload and returns how many went.
func (r *StudentRecordRepository) DeleteByUpload(ctx context.Context, uploadID string) (int, error) {
	defer observe(r.observer, "student_records.delete_by_upload", time.Now())
	res, err := r.db.ExecContext(ctx, `DELETE FROM student_records WHERE upload_id = $1`, uploadID)
	if err != nil {
		return 0, fmt.Errorf("delete upload student records: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete upload student records rows affected: %w", err)
	}
	return int(affected), nil
}

// Count returns the number of records.
func (r *StudentRecordRepository) Count(ctx context.Context) (int, error) {
	defer observe(r.observer, "student_records.count", time.Now())
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM student_records`); err != nil {
		return 0, fmt.Errorf("count student records: %w", err)
	}
	return total, nil
}
