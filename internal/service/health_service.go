package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/marks-ledger-api/internal/models"
)

type counter interface {
	Count(ctx context.Context) (int, error)
}

// HealthService reports store reachability through independent collection counts.
type HealthService struct {
	uploads counter
	records counter
	logger  *zap.Logger
	now     func() time.Time
}

// NewHealthService constructs the health service.
func NewHealthService(uploads, records counter, logger *zap.Logger) *HealthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthService{uploads: uploads, records: records, logger: logger, now: time.Now}
}

// Check counts uploads and records. A failing count is reported as unknown.
func (s *HealthService) Check(ctx context.Context) models.Health {
	return models.Health{
		Status:   "ok",
		Uploads:  s.count(ctx, "uploads", s.uploads),
		Students: s.count(ctx, "students", s.records),
		Time:     s.now().UTC(),
	}
}

func (s *HealthService) count(ctx context.Context, name string, c counter) models.Count {
	n, err := c.Count(ctx)
	if err != nil {
		s.logger.Warn("health count failed", zap.String("collection", name), zap.Error(err))
		return models.Count{}
	}
	return models.KnownCount(n)
}
