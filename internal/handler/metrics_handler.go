package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/marks-ledger-api/pkg/errors"
	"github.com/noah-isme/marks-ledger-api/pkg/response"
)

type metricsExporter interface {
	Handler() http.Handler
}

// MetricsHandler serves ingestion, cache and request metrics in the Prometheus text format.
type MetricsHandler struct {
	metrics metricsExporter
}

// NewMetricsHandler constructs a metrics handler. A nil exporter answers 503.
func NewMetricsHandler(metrics metricsExporter) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

// Prometheus serves the scrape endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrStoreUnavailable, "metrics disabled"))
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}
