package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/oidc-core/internal/application/dto"
	"github.com/turtacn/oidc-core/pkg/constants"
	"github.com/turtacn/oidc-core/pkg/logger"
)

// RateLimiter is implemented by ratelimit.RedisRateLimiter.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (allowed bool, remaining int64, retryAfter time.Duration, err error)
}

// RateLimit refuses requests beyond the budget of the tenant and client IP with 429.
// A limiter failure lets the request through.
func RateLimit(limiter RateLimiter, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Param("tenant") + ":" + c.ClientIP()
		allowed, remaining, retryAfter, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			log.Warn(c.Request.Context(), "rate limit check failed, allowing request", logger.Err(err))
			c.Next()
			return
		}
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				dto.NewErrorDTO(constants.ErrCodeTemporarilyUnavailable, "too many requests"))
			return
		}
		c.Next()
	}
}
