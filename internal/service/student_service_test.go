package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/marks-ledger-api/internal/dto"
	"github.com/noah-isme/marks-ledger-api/internal/models"
	appErrors "github.com/noah-isme/marks-ledger-api/pkg/errors"
)

const (
	testUploadID = "3f2b8c1e-6d4a-4f7e-9b1a-2c3d4e5f6a7b"
	testRecordID = "9a8b7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d"
)

func newStudentServiceForTest(records *mockRecordRepo, uploads *mockUploadRepo, repairs *mockRepairer) *StudentService {
	return NewStudentService(records, uploads, repairs, nil, nil, zap.NewNop())
}

func sampleRecord() models.StudentRecord {
	return models.StudentRecord{
		ID:            testRecordID,
		StudentID:     "S1",
		StudentName:   "Ann",
		TotalMarks:    100,
		MarksObtained: 90,
		Percentage:    90,
		UploadID:      strPtr(testUploadID),
	}
}

func TestStudentServiceListFiltersByUpload(t *testing.T) {
	records := newMockRecordRepo(sampleRecord())
	svc := newStudentServiceForTest(records, newMockUploadRepo(), nil)

	list, err := svc.List(context.Background(), testUploadID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, testUploadID, records.lastFilter.UploadID)
}

func TestStudentServiceListRejectsMalformedUploadID(t *testing.T) {
	svc := newStudentServiceForTest(newMockRecordRepo(), newMockUploadRepo(), nil)

	_, err := svc.List(context.Background(), "not-an-id")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, 400, appErr.Status)
	assert.Equal(t, appErrors.ErrInvalidIdentifier.Code, appErr.Code)
}

func TestStudentServiceListStoreFailure(t *testing.T) {
	records := newMockRecordRepo()
	records.listErr = errStoreDown
	svc := newStudentServiceForTest(records, newMockUploadRepo(), nil)

	_, err := svc.List(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, 503, appErrors.FromError(err).Status)
}

func TestStudentServiceGetMissing(t *testing.T) {
	svc := newStudentServiceForTest(newMockRecordRepo(), newMockUploadRepo(), nil)

	_, err := svc.Get(context.Background(), testRecordID)
	require.Error(t, err)
	assert.Equal(t, 404, appErrors.FromError(err).Status)

	_, err = svc.Get(context.Background(), "abc")
	assert.Equal(t, 404, appErrors.FromError(err).Status)
}

func TestStudentServiceUpdateRecomputesPercentage(t *testing.T) {
	records := newMockRecordRepo(sampleRecord())
	svc := newStudentServiceForTest(records, newMockUploadRepo(), nil)

	updated, err := svc.Update(context.Background(), testRecordID, dto.UpdateStudentRequest{
		StudentName:   "Ann B",
		TotalMarks:    intPtr(200),
		MarksObtained: intPtr(190),
	})
	require.NoError(t, err)
	assert.Equal(t, "Ann B", updated.StudentName)
	assert.InDelta(t, 95.0, updated.Percentage, 1e-9)
	assert.Equal(t, "S1", updated.StudentID)
}

func TestStudentServiceUpdateValidation(t *testing.T) {
	svc := newStudentServiceForTest(newMockRecordRepo(sampleRecord()), newMockUploadRepo(), nil)

	cases := []dto.UpdateStudentRequest{
		{StudentName: "", TotalMarks: intPtr(100), MarksObtained: intPtr(1)},
		{StudentName: "A", TotalMarks: intPtr(0), MarksObtained: intPtr(1)},
		{StudentName: "A", TotalMarks: intPtr(100), MarksObtained: intPtr(-1)},
		{StudentName: "A", MarksObtained: intPtr(1)},
	}
	for _, req := range cases {
		_, err := svc.Update(context.Background(), testRecordID, req)
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	}
}

func TestStudentServiceUpdateMissing(t *testing.T) {
	svc := newStudentServiceForTest(newMockRecordRepo(), newMockUploadRepo(), nil)

	_, err := svc.Update(context.Background(), testRecordID, dto.UpdateStudentRequest{
		StudentName: "A", TotalMarks: intPtr(10), MarksObtained: intPtr(5),
	})
	require.Error(t, err)
	assert.Equal(t, 404, appErrors.FromError(err).Status)
}

func TestStudentServiceDeleteDecrementsUpload(t *testing.T) {
	uploads := newMockUploadRepo(models.Upload{ID: testUploadID, Filename: "a.csv", StudentCount: 3})
	records := newMockRecordRepo(sampleRecord())
	repairs := &mockRepairer{}
	svc := newStudentServiceForTest(records, uploads, repairs)

	require.NoError(t, svc.Delete(context.Background(), testRecordID))
	assert.Equal(t, 2, uploads.uploads[testUploadID].StudentCount)
	assert.Empty(t, records.records)
	assert.Empty(t, repairs.triggers)
}

func TestStudentServiceDeleteKeepsDeletionWhenDecrementFails(t *testing.T) {
	uploads := newMockUploadRepo(models.Upload{ID: testUploadID, StudentCount: 3})
	uploads.decrementErr = errStoreDown
	records := newMockRecordRepo(sampleRecord())
	repairs := &mockRepairer{}
	svc := newStudentServiceForTest(records, uploads, repairs)

	require.NoError(t, svc.Delete(context.Background(), testRecordID))
	_, stillThere := records.records[testRecordID]
	assert.False(t, stillThere)
	assert.Equal(t, 3, uploads.uploads[testUploadID].StudentCount)
	assert.Equal(t, []string{TaskReconcileCounts}, repairs.triggers)
	assert.Equal(t, []interface{}{testUploadID}, repairs.payloads)
}

func TestStudentServiceDeleteWithoutUpload(t *testing.T) {
	rec := sampleRecord()
	rec.UploadID = nil
	uploads := newMockUploadRepo()
	svc := newStudentServiceForTest(newMockRecordRepo(rec), uploads, nil)

	require.NoError(t, svc.Delete(context.Background(), testRecordID))
	assert.Empty(t, uploads.decremented)
}

func TestStudentServiceDeleteMissing(t *testing.T) {
	svc := newStudentServiceForTest(newMockRecordRepo(), newMockUploadRepo(), nil)

	err := svc.Delete(context.Background(), testRecordID)
	require.Error(t, err)
	assert.Equal(t, 404, appErrors.FromError(err).Status)
}
