package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/marks-ledger-api/internal/models"
)

type healthServiceMock struct{}

func (healthServiceMock) Check(ctx context.Context) models.Health {
	return models.Health{
		Status:   "ok",
		Uploads:  models.KnownCount(2),
		Students: models.Count{},
		Time:     time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestHealthHandler(t *testing.T) {
	h := NewHealthHandler(healthServiceMock{})
	c, w := newTestContext(http.MethodGet, "/api/health", nil)

	h.Health(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","uploads":2,"students":"unknown","time":"2024-05-01T10:00:00Z"}`, w.Body.String())
}
