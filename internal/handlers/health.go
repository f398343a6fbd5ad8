package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

// Check pings one dependency.
type Check func(ctx context.Context) error

// ServiceInfo identifies the running service in health payloads.
type ServiceInfo struct {
	Name    string
	Version string
	Env     string
}

// HealthHandler serves liveness and readiness.
type HealthHandler struct {
	info    ServiceInfo
	checks  map[string]Check
	timeout time.Duration
}

func NewHealthHandler(info ServiceInfo, checks map[string]Check) *HealthHandler {
	return &HealthHandler{info: info, checks: checks, timeout: 2 * time.Second}
}

// Health reports liveness only.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"service":     h.info.Name,
		"version":     h.info.Version,
		"environment": h.info.Env,
	})
}

// Ready runs every check and answers 503 if any fails.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	code, status := http.StatusOK, "ready"
	results := gin.H{}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			code, status = http.StatusServiceUnavailable, "not_ready"
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}
	c.JSON(code, gin.H{"status": status, "service": h.info.Name, "checks": results})
}
