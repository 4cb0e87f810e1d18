package checks

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/socialink/internal/monitoring"
)

const defaultDatabaseTimeout = 2 * time.Second

// Database returns a readiness probe that pings the gorm connection pool.
func Database(db *gorm.DB, timeout time.Duration) monitoring.Check {
	if timeout <= 0 {
		timeout = defaultDatabaseTimeout
	}
	return monitoring.Check{
		Name: "database",
		Run: func(ctx context.Context) monitoring.ProbeResult {
			start := time.Now()
			if db == nil {
				return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "database not configured"}
			}

			sqlDB, err := db.DB()
			if err != nil {
				return monitoring.ResultFromError("database", err, time.Since(start))
			}

			probeCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return monitoring.ResultFromError("database", sqlDB.PingContext(probeCtx), time.Since(start))
		},
	}
}
