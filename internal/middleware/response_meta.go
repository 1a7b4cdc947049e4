package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Response metadata headers.
const (
	HeaderCache        = "X-Cache"
	HeaderResponseTime = "X-Response-Time"
)

type timedWriter struct {
	gin.ResponseWriter
	start time.Time
}

func (w *timedWriter) WriteHeader(code int) {
	elapsed := time.Since(w.start)
	w.Header().Set(HeaderResponseTime, strconv.FormatInt(elapsed.Milliseconds(), 10)+"ms")
	w.ResponseWriter.WriteHeader(code)
}

// WithResponseMeta stamps every response that sets a status with its processing time.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer = &timedWriter{ResponseWriter: c.Writer, start: time.Now()}
		c.Next()
	}
}

// SetCacheHit reports whether the response body was served from the cache.
func SetCacheHit(c *gin.Context, hit bool) {
	if c == nil {
		return
	}
	if hit {
		c.Header(HeaderCache, "HIT")
		return
	}
	c.Header(HeaderCache, "MISS")
}
