package health

import (
	"context"
	"time"

	"clinic-backend/internal/cache"

	"github.com/jackc/pgx/v5/pgxpool"
)

type HealthChecker struct {
	db *pgxpool.Pool
}

type HealthStatus struct {
	Status   string          `json:"status"`
	Database DependencyState `json:"database"`
	Cache    DependencyState `json:"cache"`
}

type DependencyState struct {
	Status       string `json:"status"`
	ResponseTime int64  `json:"response_time_ms"`
}

func NewHealthChecker(db *pgxpool.Pool) *HealthChecker {
	return &HealthChecker{db: db}
}

// CheckBasic pings the database and the cache. The cache is optional; a
// missing client reports degraded, not unhealthy.
func (h *HealthChecker) CheckBasic() HealthStatus {
	dbState := h.checkDatabase()
	cacheState := h.checkCache()

	status := "healthy"
	if dbState.Status != "healthy" {
		status = "unhealthy"
	}

	return HealthStatus{
		Status:   status,
		Database: dbState,
		Cache:    cacheState,
	}
}

func (h *HealthChecker) checkDatabase() DependencyState {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	err := h.db.Ping(ctx)
	responseTime := time.Since(start).Milliseconds()

	if err != nil {
		return DependencyState{Status: "unhealthy", ResponseTime: responseTime}
	}
	return DependencyState{Status: "healthy", ResponseTime: responseTime}
}

func (h *HealthChecker) checkCache() DependencyState {
	client := cache.GetClient()
	if client == nil {
		return DependencyState{Status: "disabled"}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	err := client.Ping(ctx).Err()
	responseTime := time.Since(start).Milliseconds()

	if err != nil {
		return DependencyState{Status: "unhealthy", ResponseTime: responseTime}
	}
	return DependencyState{Status: "healthy", ResponseTime: responseTime}
}
