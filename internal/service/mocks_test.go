package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/marks-ledger-api/internal/models"
	appErrors "github.com/noah-isme/marks-ledger-api/pkg/errors"
)

var errStoreDown = errors.New("connection refused")

type mockUploadRepo struct {
	mu            sync.Mutex
	uploads       map[string]models.Upload
	createErr     error
	listErr       error
	deleteErr     error
	decrementErr  error
	countErr      error
	drift         []models.UploadCountDrift
	setCounts     map[string]int
	listCalls     int
	decremented   []string
	nextID        int
	setCountErrAt string
}

func newMockUploadRepo(uploads ...models.Upload) *mockUploadRepo {
	m := &mockUploadRepo{uploads: make(map[string]models.Upload), setCounts: make(map[string]int)}
	for _, u := range uploads {
		m.uploads[u.ID] = u
	}
	return m
}

func (m *mockUploadRepo) Create(ctx context.Context, upload *models.Upload) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	upload.ID = fmt.Sprintf("00000000-0000-0000-0000-%012d", m.nextID)
	m.uploads[upload.ID] = *upload
	return nil
}

func (m *mockUploadRepo) FindByID(ctx context.Context, id string) (*models.Upload, error) {
	u, ok := m.uploads[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &u, nil
}

func (m *mockUploadRepo) List(ctx context.Context) ([]models.Upload, error) {
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]models.Upload, 0, len(m.uploads))
	for _, u := range m.uploads {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockUploadRepo) Delete(ctx context.Context, id string) (bool, error) {
	if m.deleteErr != nil {
		return false, m.deleteErr
	}
	_, ok := m.uploads[id]
	delete(m.uploads, id)
	return ok, nil
}

func (m *mockUploadRepo) DecrementCount(ctx context.Context, id string) error {
	m.decremented = append(m.decremented, id)
	if m.decrementErr != nil {
		return m.decrementErr
	}
	if u, ok := m.uploads[id]; ok && u.StudentCount > 0 {
		u.StudentCount--
		m.uploads[id] = u
	}
	return nil
}

func (m *mockUploadRepo) Count(ctx context.Context) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	return len(m.uploads), nil
}

func (m *mockUploadRepo) ListCountDrift(ctx context.Context) ([]models.UploadCountDrift, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.drift, nil
}

func (m *mockUploadRepo) SetCount(ctx context.Context, id string, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id == m.setCountErrAt {
		return errStoreDown
	}
	m.setCounts[id] = count
	return nil
}

type mockRecordRepo struct {
	records    map[string]models.StudentRecord
	order      []string
	lastFilter models.StudentRecordFilter
	listErr    error
	insertErr  error
	deleteErr  error
	countErr   error
	inserted   []models.StudentRecord
	nextID     int
}

func newMockRecordRepo(records ...models.StudentRecord) *mockRecordRepo {
	m := &mockRecordRepo{records: make(map[string]models.StudentRecord)}
	for _, r := range records {
		m.records[r.ID] = r
		m.order = append(m.order, r.ID)
	}
	return m
}

func (m *mockRecordRepo) InsertBatch(ctx context.Context, records []models.StudentRecord) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	for i := range records {
		m.nextID++
		records[i].ID = fmt.Sprintf("10000000-0000-0000-0000-%012d", m.nextID)
		m.records[records[i].ID] = records[i]
		m.order = append(m.order, records[i].ID)
	}
	m.inserted = append(m.inserted, records...)
	return nil
}

func (m *mockRecordRepo) List(ctx context.Context, filter models.StudentRecordFilter) ([]models.StudentRecord, error) {
	m.lastFilter = filter
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]models.StudentRecord, 0)
	for _, id := range m.order {
		r, ok := m.records[id]
		if !ok {
			continue
		}
		if filter.UploadID != "" && (r.UploadID == nil || *r.UploadID != filter.UploadID) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *mockRecordRepo) FindByID(ctx context.Context, id string) (*models.StudentRecord, error) {
	r, ok := m.records[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &r, nil
}

func (m *mockRecordRepo) Update(ctx context.Context, record *models.StudentRecord) (*models.StudentRecord, error) {
	existing, ok := m.records[record.ID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	existing.StudentName = record.StudentName
	existing.TotalMarks = record.TotalMarks
	existing.MarksObtained = record.MarksObtained
	existing.Percentage = record.Percentage
	m.records[record.ID] = existing
	return &existing, nil
}

func (m *mockRecordRepo) Delete(ctx context.Context, id string) (*models.StudentRecord, error) {
	if m.deleteErr != nil {
		return nil, m.deleteErr
	}
	r, ok := m.records[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	delete(m.records, id)
	return &r, nil
}

func (m *mockRecordRepo) DeleteByUpload(ctx context.Context, uploadID string) (int, error) {
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	n := 0
	for id, r := range m.records {
		if r.UploadID != nil && *r.UploadID == uploadID {
			delete(m.records, id)
			n++
		}
	}
	return n, nil
}

func (m *mockRecordRepo) Count(ctx context.Context) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	return len(m.records), nil
}

type mockRepairer struct {
	mu       sync.Mutex
	triggers []string
	payloads []interface{}
}

func (m *mockRepairer) Trigger(task string, payload interface{}) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.triggers = append(m.triggers, task)
	m.payloads = append(m.payloads, payload)
	return true
}

type mockCacheRepo struct {
	mu          sync.Mutex
	store       map[string]interface{}
	invalidated []string
	getErr      error
	setErr      error
}

func newMockCacheRepo() *mockCacheRepo {
	return &mockCacheRepo{store: make(map[string]interface{})}
}

func (m *mockCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return m.getErr
	}
	v, ok := m.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	switch d := dest.(type) {
	case *[]models.Upload:
		*d = v.([]models.Upload)
	default:
		return fmt.Errorf("unsupported cache destination %T", dest)
	}
	return nil
}

func (m *mockCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.store[key] = value
	return nil
}

func (m *mockCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidated = append(m.invalidated, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range m.store {
		if strings.HasPrefix(k, prefix) {
			delete(m.store, k)
		}
	}
	return nil
}

func (m *mockCacheRepo) invalidations() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.invalidated...)
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }
