package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "emberlog_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// SweepRuns counts sweeper executions by outcome (completed, skipped, failed).
	SweepRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "emberlog_sweep_runs_total",
		Help: "Total number of expiration sweep runs by outcome",
	}, []string{"outcome"})

	// SweepPostsPurged counts posts purged by the expiration sweeper.
	SweepPostsPurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "emberlog_sweep_posts_purged_total",
		Help: "Total number of expired posts purged by the sweeper",
	})

	// SweepAssetDeleteFailures counts cover-asset deletions that failed during sweeps.
	SweepAssetDeleteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "emberlog_sweep_asset_delete_failures_total",
		Help: "Total number of cover-asset deletions that failed during sweeps",
	})
)

// InitMetrics creates the Prometheus middleware for the given service name.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	return fiberprometheus.New(serviceName)
}

// MetricsMiddleware returns the Fiber handler recording per-request metrics.
func MetricsMiddleware(prom *fiberprometheus.FiberPrometheus) fiber.Handler {
	return prom.Middleware
}
