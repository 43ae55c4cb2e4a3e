package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// PoolStats represents database connection pool statistics.
type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	AcquireDuration string `json:"acquire_duration"`
	Healthy         bool   `json:"healthy"`
}

// GetPoolStats returns connection pool statistics.
func GetPoolStats(pool *pgxpool.Pool) *PoolStats {
	stat := pool.Stat()
	return &PoolStats{
		TotalConns:      stat.TotalConns(),
		IdleConns:       stat.IdleConns(),
		AcquiredConns:   stat.AcquiredConns(),
		MaxConns:        stat.MaxConns(),
		AcquireCount:    stat.AcquireCount(),
		AcquireDuration: stat.AcquireDuration().String(),
		Healthy:         stat.TotalConns() > 0,
	}
}

// Pinger is anything that can report reachability, e.g. the identity
// directory client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StoresHealthHandler reports the health of every backing store: each named
// pool is pinged, and the directory (when non-nil) is probed as well.
// Returns 503 if any store is unreachable.
func StoresHealthHandler(pools map[string]*pgxpool.Pool, dir Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		healthy := true
		stores := make(map[string]any, len(pools)+1)

		for name, pool := range pools {
			stats := GetPoolStats(pool)
			if err := pool.Ping(ctx); err != nil {
				stats.Healthy = false
				healthy = false
				stores[name] = map[string]any{"error": err.Error(), "pool": stats}
				continue
			}
			stores[name] = map[string]any{"pool": stats}
		}

		if dir != nil {
			if err := dir.Ping(ctx); err != nil {
				healthy = false
				stores["directory"] = map[string]any{"error": err.Error()}
			} else {
				stores["directory"] = map[string]any{"status": "reachable"}
			}
		}

		status := http.StatusOK
		overall := "healthy"
		if !healthy {
			status = http.StatusServiceUnavailable
			overall = "unhealthy"
		}
		return c.JSON(status, map[string]any{
			"status": overall,
			"stores": stores,
		})
	}
}
