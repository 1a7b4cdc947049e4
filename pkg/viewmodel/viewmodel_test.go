package viewmodel

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/marks-ledger-api/internal/dto"
	"github.com/noah-isme/marks-ledger-api/internal/models"
)

type fakeAPI struct {
	records    []models.StudentRecord
	fetches    int
	updates    []dto.UpdateStudentRequest
	deletes    []string
	updateErr  error
	lastFilter string
}

func (f *fakeAPI) Students(ctx context.Context, uploadID string) ([]models.StudentRecord, error) {
	f.fetches++
	f.lastFilter = uploadID
	out := make([]models.StudentRecord, len(f.records))
	copy(out, f.records)
	return out, nil
}

func (f *fakeAPI) UpdateStudent(ctx context.Context, id string, req dto.UpdateStudentRequest) (*models.StudentRecord, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.updates = append(f.updates, req)
	for i := range f.records {
		if f.records[i].ID == id {
			f.records[i].StudentName = req.StudentName
			f.records[i].TotalMarks = *req.TotalMarks
			f.records[i].MarksObtained = *req.MarksObtained
			f.records[i].Percentage = float64(*req.MarksObtained) / float64(*req.TotalMarks) * 100
			return &f.records[i], nil
		}
	}
	return nil, errors.New("Student not found")
}

func (f *fakeAPI) DeleteStudent(ctx context.Context, id string) (string, error) {
	f.deletes = append(f.deletes, id)
	kept := f.records[:0]
	for _, r := range f.records {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	f.records = kept
	return "Student deleted successfully", nil
}

func (f *fakeAPI) Upload(ctx context.Context, filename string, content io.Reader) (*dto.UploadResponse, error) {
	return &dto.UploadResponse{Count: 3}, nil
}

func fixture() []models.StudentRecord {
	return []models.StudentRecord{
		{ID: "1", StudentID: "s2", StudentName: "bob", TotalMarks: 50, MarksObtained: 40, Percentage: 80},
		{ID: "2", StudentID: "S1", StudentName: "Alice", TotalMarks: 100, MarksObtained: 90, Percentage: 90},
		{ID: "3", StudentID: "s3", StudentName: "carol", TotalMarks: 200, MarksObtained: 100, Percentage: 50},
	}
}

func ids(records []models.StudentRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func loaded(t *testing.T) (*Model, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{records: fixture()}
	m := New(api)
	require.NoError(t, m.Refresh(context.Background()))
	return m, api
}

func TestSortToggleSemantics(t *testing.T) {
	m, _ := loaded(t)
	assert.Equal(t, []string{"1", "2", "3"}, ids(m.Records()))

	require.NoError(t, m.SortBy(SortStudentName))
	assert.Equal(t, []string{"2", "1", "3"}, ids(m.Records()))

	require.NoError(t, m.SortBy(SortStudentName))
	key, dir := m.Sort()
	assert.Equal(t, SortStudentName, key)
	assert.Equal(t, Descending, dir)
	assert.Equal(t, []string{"3", "1", "2"}, ids(m.Records()))

	require.NoError(t, m.SortBy(SortTotalMarks))
	_, dir = m.Sort()
	assert.Equal(t, Ascending, dir)
	assert.Equal(t, []string{"1", "2", "3"}, ids(m.Records()))

	assert.ErrorIs(t, m.SortBy("created_at"), ErrUnknownSortKey)
}

func TestSortStudentIDCaseInsensitive(t *testing.T) {
	m, _ := loaded(t)
	require.NoError(t, m.SortBy(SortStudentID))
	assert.Equal(t, []string{"2", "1", "3"}, ids(m.Records()))
}

func TestPercentageSortUsesLiveRatio(t *testing.T) {
	m, _ := loaded(t)
	require.NoError(t, m.SortBy(SortPercentage))
	assert.Equal(t, []string{"3", "1", "2"}, ids(m.Records()))

	require.NoError(t, m.Edit("3"))
	require.NoError(t, m.SetForm(EditForm{StudentName: "carol", TotalMarks: 200, MarksObtained: 199}))

	rows := m.Records()
	assert.Equal(t, []string{"1", "2", "3"}, ids(rows))
	assert.Equal(t, 50.0, rows[2].Percentage)
}

func TestEditSaveRefetches(t *testing.T) {
	m, api := loaded(t)
	require.NoError(t, m.Edit("2"))
	snap, editing := m.Editing()
	require.True(t, editing)
	assert.Equal(t, "Alice", snap.StudentName)
	assert.Equal(t, EditForm{StudentName: "Alice", TotalMarks: 100, MarksObtained: 90}, m.Form())

	require.NoError(t, m.SetForm(EditForm{StudentName: "Alice", TotalMarks: 100, MarksObtained: 95}))
	require.NoError(t, m.Save(context.Background()))

	assert.Equal(t, Viewing, m.Mode())
	assert.Equal(t, 2, api.fetches)
	require.Len(t, api.updates, 1)
	assert.Equal(t, 95, *api.updates[0].MarksObtained)
	for _, r := range m.Records() {
		if r.ID == "2" {
			assert.Equal(t, 95.0, r.Percentage)
		}
	}
	msg, failed := m.Status()
	assert.Equal(t, "Student updated successfully!", msg)
	assert.False(t, failed)
}

func TestSaveFailureKeepsEditing(t *testing.T) {
	m, api := loaded(t)
	api.updateErr = errors.New("boom")
	require.NoError(t, m.Edit("1"))

	require.Error(t, m.Save(context.Background()))
	assert.Equal(t, Editing, m.Mode())
	msg, failed := m.Status()
	assert.True(t, failed)
	assert.Equal(t, "Error updating student: boom", msg)
}

func TestCancelMakesNoNetworkCall(t *testing.T) {
	m, api := loaded(t)
	require.NoError(t, m.Edit("1"))
	require.NoError(t, m.SetForm(EditForm{StudentName: "x", TotalMarks: 1, MarksObtained: 1}))

	m.Cancel()
	assert.Equal(t, Viewing, m.Mode())
	assert.Empty(t, api.updates)
	assert.Equal(t, 1, api.fetches)
	assert.Equal(t, "bob", m.Records()[0].StudentName)
	assert.ErrorIs(t, m.SetForm(EditForm{}), ErrNotEditing)
	assert.ErrorIs(t, m.Save(context.Background()), ErrNotEditing)
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	m, api := loaded(t)
	assert.ErrorIs(t, m.Confirm(context.Background()), ErrNoPendingDelete)

	m.RequestDelete("1")
	id, pending := m.PendingDelete()
	assert.True(t, pending)
	assert.Equal(t, "1", id)
	assert.Empty(t, api.deletes)

	m.CancelDelete()
	_, pending = m.PendingDelete()
	assert.False(t, pending)

	m.RequestDelete("1")
	require.NoError(t, m.Confirm(context.Background()))
	assert.Equal(t, []string{"1"}, api.deletes)
	assert.Equal(t, []string{"2", "3"}, ids(m.Records()))
	msg, _ := m.Status()
	assert.Equal(t, "Student deleted successfully!", msg)
}

func TestUploadRefetchesWithFilter(t *testing.T) {
	api := &fakeAPI{records: fixture()}
	m := New(api)
	m.SetUploadFilter("u1")

	require.NoError(t, m.Upload(context.Background(), "marks.csv", strings.NewReader("x")))
	assert.Equal(t, "u1", api.lastFilter)
	assert.Len(t, m.Records(), 3)
	msg, _ := m.Status()
	assert.Equal(t, "Successfully uploaded 3 students!", msg)
}
