package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/marks-ledger-api/internal/models"
)

// UploadRepository manages persistence for upload batches.
type UploadRepository struct {
	db       *sqlx.DB
	observer QueryObserver
}

// NewUploadRepository constructs an UploadRepository. observer may be nil.
func NewUploadRepository(db *sqlx.DB, observer QueryObserver) *UploadRepository {
	return &UploadRepository{db: db, observer: observer}
}

// Create inserts a new upload, assigning its id and creation time.
func (r *UploadRepository) Create(ctx context.Context, upload *models.Upload) error {
	defer observe(r.observer, "uploads.create", time.Now())
	if upload.ID == "" {
		upload.ID = uuid.NewString()
	}
	if upload.CreatedAt.IsZero() {
		upload.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO uploads (id, filename, student_count, created_at)
        VALUES (:id, :filename, :student_count, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, upload); err != nil {
		return fmt.Errorf("create upload: %w", err)
	}
	return nil
}

// FindByID fetches an upload by id. sql.ErrNoRows is returned untouched when absent.
func (r *UploadRepository) FindByID(ctx context.Context, id string) (*models.Upload, error) {
	defer observe(r.observer, "uploads.find", time.Now())
	const query = `SELECT id, filename, student_count, created_at FROM uploads WHERE id = $1`
	var upload models.Upload
	if err := r.db.GetContext(ctx, &upload, query, id); err != nil {
		return nil, err
	}
	return &upload, nil
}

// List returns every upload, newest first.
func (r *UploadRepository) List(ctx context.Context) ([]models.Upload, error) {
	defer observe(r.observer, "uploads.list", time.Now())
	const query = `SELECT id, filename, student_count, created_at FROM uploads ORDER BY created_at DESC`
	uploads := make([]models.Upload, 0)
	if err := r.db.SelectContext(ctx, &uploads, query); err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	return uploads, nil
}

// Delete removes the upload row and reports whether it existed.
func (r *UploadRepository) Delete(ctx context.Context, id string) (bool, error) {
	defer observe(r.observer, "uploads.delete", time.Now())
	res, err := r.db.ExecContext(ctx, `DELETE FROM uploads WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete upload: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete upload rows affected: %w", err)
	}
	return affected > 0, nil
}

// DecrementCount lowers the cached student count by one without going below zero.
func (r *UploadRepository) DecrementCount(ctx context.Context, id string) error {
	defer observe(r.observer, "uploads.decrement", time.Now())
	const query = `UPDATE uploads SET student_count = GREATEST(student_count - 1, 0) WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("decrement upload count: %w", err)
	}
	return nil
}

// SetCount overwrites the cached student count.
func (r *UploadRepository) SetCount(ctx context.Context, id string, count int) error {
	defer observe(r.observer, "uploads.set_count", time.Now())
	if _, err := r.db.ExecContext(ctx, `UPDATE uploads SET student_count = $2 WHERE id = $1`, id, count); err != nil {
		return fmt.Errorf("set upload count: %w", err)
	}
	return nil
}

// Count returns the number of uploads.
func (r *UploadRepository) Count(ctx context.Context) (int, error) {
	defer observe(r.observer, "uploads.count", time.Now())
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM uploads`); err != nil {
		return 0, fmt.Errorf("count uploads: %w", err)
	}
	return total, nil
}

// ListCountDrift returns uploads whose cached count differs from the rows referencing them.
func (r *UploadRepository) ListCountDrift(ctx context.Context) ([]models.UploadCountDrift, error) {
	defer observe(r.observer, "uploads.drift", time.Now())
	const query = `SELECT u.id AS upload_id, u.student_count AS cached_count, COUNT(s.id) AS actual_count
        FROM uploads u LEFT JOIN student_records s ON s.upload_id = u.id
        GROUP BY u.id, u.student_count
        HAVING u.student_count <> COUNT(s.id)`
	drift := make([]models.UploadCountDrift, 0)
	if err := r.db.SelectContext(ctx, &drift, query); err != nil {
		return nil, fmt.Errorf("list upload count drift: %w", err)
	}
	return drift, nil
}
