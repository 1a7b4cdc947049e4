// Package viewmodel holds the client-side state of the student marks table: the
// fetched records, the active sort, a single edit slot and a delete confirmation step.
package viewmodel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/noah-isme/marks-ledger-api/internal/dto"
	"github.com/noah-isme/marks-ledger-api/internal/models"
)

// SortKey names a sortable column.
type SortKey string

// Sortable columns.
const (
	SortNone          SortKey = ""
	SortStudentID     SortKey = "student_id"
	SortStudentName   SortKey = "student_name"
	SortTotalMarks    SortKey = "total_marks"
	SortMarksObtained SortKey = "marks_obtained"
	SortPercentage    SortKey = "percentage"
)

// Direction is the sort order.
type Direction string

// Sort directions.
const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// Mode is the state of the edit slot.
type Mode int

// Edit slot states.
const (
	Viewing Mode = iota
	Editing
)

var (
	// ErrNotEditing is returned by edit operations outside the Editing state.
	ErrNotEditing = errors.New("no record is being edited")
	// ErrNoPendingDelete is returned by Confirm without a preceding RequestDelete.
	ErrNoPendingDelete = errors.New("no delete awaiting confirmation")
	// ErrUnknownRecord is returned when an id is not among the loaded records.
	ErrUnknownRecord = errors.New("record not loaded")
	// ErrUnknownSortKey is returned by SortBy for columns that cannot be sorted.
	ErrUnknownSortKey = errors.New("unknown sort key")
)

// API is the subset of the HTTP client the view model drives.
type API interface {
	Students(ctx context.Context, uploadID string) ([]models.StudentRecord, error)
	UpdateStudent(ctx context.Context, id string, req dto.UpdateStudentRequest) (*models.StudentRecord, error)
	DeleteStudent(ctx context.Context, id string) (string, error)
	Upload(ctx context.Context, filename string, content io.Reader) (*dto.UploadResponse, error)
}

// EditForm holds the values typed into the edit slot.
type EditForm struct {
	StudentName   string
	TotalMarks    int
	MarksObtained int
}

// Model is the table state. It is not safe for concurrent use.
type Model struct {
	api      API
	uploadID string
	records  []models.StudentRecord

	sortKey   SortKey
	direction Direction

	mode     Mode
	snapshot models.StudentRecord
	form     EditForm

	pendingDelete string

	message string
	failed  bool
}

// New builds a model in the Viewing state with no sort applied.
func New(api API) *Model {
	return &Model{api: api, direction: Ascending}
}

// SetUploadFilter restricts subsequent refreshes to one upload. Empty clears it.
func (m *Model) SetUploadFilter(uploadID string) {
	m.uploadID = uploadID
}

// Refresh refetches the records from the server.
func (m *Model) Refresh(ctx context.Context) error {
	records, err := m.api.Students(ctx, m.uploadID)
	if err != nil {
		m.fail("Error fetching students", err)
		return err
	}
	m.records = records
	return nil
}

// Upload sends a spreadsheet and refetches on success.
func (m *Model) Upload(ctx context.Context, filename string, content io.Reader) error {
	m.message, m.failed = "", false
	resp, err := m.api.Upload(ctx, filename, content)
	if err != nil {
		m.fail("Error uploading file", err)
		return err
	}
	m.succeed(fmt.Sprintf("Successfully uploaded %d students!", resp.Count))
	return m.Refresh(ctx)
}

// SortBy applies key. Selecting the active key flips the direction, a new key sorts ascending.
func (m *Model) SortBy(key SortKey) error {
	switch key {
	case SortStudentID, SortStudentName, SortTotalMarks, SortMarksObtained, SortPercentage:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSortKey, key)
	}
	if m.sortKey == key {
		if m.direction == Ascending {
			m.direction = Descending
		} else {
			m.direction = Ascending
		}
		return nil
	}
	m.sortKey = key
	m.direction = Ascending
	return nil
}

// Sort returns the active key and direction.
func (m *Model) Sort() (SortKey, Direction) {
	return m.sortKey, m.direction
}

// Records returns the rows as displayed: the record in the edit slot carries the
// form values, and rows are ordered by the active sort. Equal rows keep fetch order.
func (m *Model) Records() []models.StudentRecord {
	rows := make([]models.StudentRecord, len(m.records))
	copy(rows, m.records)
	if m.mode == Editing {
		for i := range rows {
			if rows[i].ID == m.snapshot.ID {
				rows[i].StudentName = m.form.StudentName
				rows[i].TotalMarks = m.form.TotalMarks
				rows[i].MarksObtained = m.form.MarksObtained
			}
		}
	}
	if m.sortKey == SortNone {
		return rows
	}
	sort.SliceStable(rows, func(i, j int) bool {
		c := compare(rows[i], rows[j], m.sortKey)
		if m.direction == Descending {
			return c > 0
		}
		return c < 0
	})
	return rows
}

func compare(a, b models.StudentRecord, key SortKey) int {
	switch key {
	case SortStudentID:
		return strings.Compare(strings.ToLower(a.StudentID), strings.ToLower(b.StudentID))
	case SortStudentName:
		return strings.Compare(strings.ToLower(a.StudentName), strings.ToLower(b.StudentName))
	case SortTotalMarks:
		return compareFloat(float64(a.TotalMarks), float64(b.TotalMarks))
	case SortMarksObtained:
		return compareFloat(float64(a.MarksObtained), float64(b.MarksObtained))
	case SortPercentage:
		return compareFloat(liveRatio(a), liveRatio(b))
	}
	return 0
}

// liveRatio derives the score from the marks instead of the stored percentage,
// which may be stale for a row edited locally.
func liveRatio(r models.StudentRecord) float64 {
	if r.TotalMarks == 0 {
		return 0
	}
	return float64(r.MarksObtained) / float64(r.TotalMarks)
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Mode returns the edit slot state.
func (m *Model) Mode() Mode {
	return m.mode
}

// Edit moves the slot to Editing with a snapshot of the record and a form prefilled
// from it. Editing another record replaces the previous edit.
func (m *Model) Edit(id string) error {
	for _, r := range m.records {
		if r.ID == id {
			m.mode = Editing
			m.snapshot = r
			m.form = EditForm{StudentName: r.StudentName, TotalMarks: r.TotalMarks, MarksObtained: r.MarksObtained}
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownRecord, id)
}

// Editing returns the snapshot taken when editing started.
func (m *Model) Editing() (models.StudentRecord, bool) {
	return m.snapshot, m.mode == Editing
}

// Form returns the current form values.
func (m *Model) Form() EditForm {
	return m.form
}

// SetForm replaces the form values of the record being edited.
func (m *Model) SetForm(form EditForm) error {
	if m.mode != Editing {
		return ErrNotEditing
	}
	m.form = form
	return nil
}

// Save sends the form, returns to Viewing and refetches. On failure the slot stays in Editing.
func (m *Model) Save(ctx context.Context) error {
	if m.mode != Editing {
		return ErrNotEditing
	}
	total, obtained := m.form.TotalMarks, m.form.MarksObtained
	_, err := m.api.UpdateStudent(ctx, m.snapshot.ID, dto.UpdateStudentRequest{
		StudentName:   m.form.StudentName,
		TotalMarks:    &total,
		MarksObtained: &obtained,
	})
	if err != nil {
		m.fail("Error updating student", err)
		return err
	}
	m.succeed("Student updated successfully!")
	m.reset()
	return m.Refresh(ctx)
}

// Cancel discards the edit without contacting the server.
func (m *Model) Cancel() {
	m.reset()
}

func (m *Model) reset() {
	m.mode = Viewing
	m.snapshot = models.StudentRecord{}
	m.form = EditForm{}
}

// RequestDelete marks a record for deletion. Nothing is sent until Confirm.
func (m *Model) RequestDelete(id string) {
	m.pendingDelete = id
}

// PendingDelete returns the id awaiting confirmation.
func (m *Model) PendingDelete() (string, bool) {
	return m.pendingDelete, m.pendingDelete != ""
}

// CancelDelete drops the pending deletion.
func (m *Model) CancelDelete() {
	m.pendingDelete = ""
}

// Confirm deletes the pending record and refetches.
func (m *Model) Confirm(ctx context.Context) error {
	id := m.pendingDelete
	if id == "" {
		return ErrNoPendingDelete
	}
	m.pendingDelete = ""
	if _, err := m.api.DeleteStudent(ctx, id); err != nil {
		m.fail("Error deleting student", err)
		return err
	}
	if m.mode == Editing && m.snapshot.ID == id {
		m.reset()
	}
	m.succeed("Student deleted successfully!")
	return m.Refresh(ctx)
}

// Status returns the last status message and whether it reports a failure.
func (m *Model) Status() (string, bool) {
	return m.message, m.failed
}

func (m *Model) succeed(msg string) {
	m.message, m.failed = msg, false
}

func (m *Model) fail(prefix string, err error) {
	m.message, m.failed = prefix+": "+err.Error(), true
}
