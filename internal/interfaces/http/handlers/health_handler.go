package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/oidc-core/internal/application/dto"
	"github.com/turtacn/oidc-core/pkg/logger"
)

// Checker reports whether a dependency is reachable.
type Checker func(ctx context.Context) error

// HealthHandler provides the health endpoints.
type HealthHandler struct {
	checks  map[string]Checker
	timeout time.Duration
	log     logger.Logger
}

// NewHealthHandler creates a new HealthHandler over the named dependency checks.
func NewHealthHandler(checks map[string]Checker, log logger.Logger) *HealthHandler {
	return &HealthHandler{checks: checks, timeout: 2 * time.Second, log: log.WithComponent("HealthHandler")}
}

// HealthCheck answers 200 when every dependency is reachable and 503 otherwise.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	resp := dto.NewHealthResponse(h.performChecks(c.Request.Context()))
	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
		h.log.Warn(c.Request.Context(), "health check degraded", logger.Any("components", resp.Components))
	}
	c.JSON(status, resp)
}

// LivenessCheck only reports that the process serves requests.
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewHealthResponse(nil))
}

func (h *HealthHandler) performChecks(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		checks = make(map[string]string, len(h.checks))
	)
	for name, check := range h.checks {
		wg.Add(1)
		go func(name string, check Checker) {
			defer wg.Done()
			status := "ok"
			if err := check(ctx); err != nil {
				status = "error: " + err.Error()
			}
			mu.Lock()
			checks[name] = status
			mu.Unlock()
		}(name, check)
	}
	wg.Wait()
	return checks
}
