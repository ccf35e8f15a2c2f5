package middleware

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/turtacn/oidc-core/pkg/logger"
)

type countingLimiter struct {
	budget int64
	keys   []string
	err    error
}

func (l *countingLimiter) Allow(_ context.Context, key string) (bool, int64, time.Duration, error) {
	l.keys = append(l.keys, key)
	if l.err != nil {
		return false, 0, 0, l.err
	}
	if l.budget == 0 {
		return false, 0, 1500 * time.Millisecond, nil
	}
	l.budget--
	return true, l.budget, 0, nil
}

func rateLimitedEngine(limiter RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/:tenant/v1/authorizations", RateLimit(limiter, logger.NewNoopLogger()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestRateLimit(t *testing.T) {
	limiter := &countingLimiter{budget: 1}
	r := rateLimitedEngine(limiter)

	req := httptest.NewRequest(http.MethodGet, "/acme/v1/authorizations", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "temporarily_unavailable")

	assert.Equal(t, []string{"acme:10.0.0.1", "acme:10.0.0.1"}, limiter.keys)
}

func TestRateLimit_FailsOpen(t *testing.T) {
	r := rateLimitedEngine(&countingLimiter{err: stderrors.New("redis down")})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/acme/v1/authorizations", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
