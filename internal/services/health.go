package services

import (
	"context"
	"runtime"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"

	healthCheckTimeout = 5 * time.Second
)

// Pinger is satisfied by *pgxpool.Pool and cache.Cache.
type Pinger interface {
	Ping(ctx context.Context) error
}

type dependency struct {
	name     string
	pinger   Pinger
	critical bool
}

type HealthService struct {
	deps   []dependency
	pool   *pgxpool.Pool
	logger *logrus.Logger

	// Prometheus metrics
	healthCheckStatus   *prometheus.GaugeVec
	lastHealthCheck     *prometheus.GaugeVec
	systemMetrics       *prometheus.GaugeVec
	dbConnectionMetrics *prometheus.GaugeVec
}

type HealthStatus struct {
	Status      string            `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	Services    map[string]string `json:"services"`
	Critical    []string          `json:"critical_failures,omitempty"`
	NonCritical []string          `json:"non_critical_failures,omitempty"`
	Latency     time.Duration     `json:"latency,omitempty"`
}

// NewHealthService checks postgres as a critical dependency. redis may be
// nil when no Redis server is configured; it is never critical. pool feeds
// the connection pool gauges and may also be nil.
func NewHealthService(postgres, redis Pinger, pool *pgxpool.Pool, reg prometheus.Registerer, logger *logrus.Logger) *HealthService {
	hs := &HealthService{
		deps:   []dependency{{name: "postgresql", pinger: postgres, critical: true}},
		pool:   pool,
		logger: logger,
	}
	if redis != nil {
		hs.deps = append(hs.deps, dependency{name: "redis", pinger: redis})
	}

	hs.healthCheckStatus = register(reg, logger, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "health_check_status",
		Help: "Health check status (1 = healthy, 0 = unhealthy)",
	}, []string{"service"}))

	hs.lastHealthCheck = register(reg, logger, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "health_check_timestamp",
		Help: "Timestamp of last health check",
	}, []string{"service"}))

	hs.systemMetrics = register(reg, logger, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "system_info",
		Help: "System information metrics",
	}, []string{"metric_type"}))

	hs.dbConnectionMetrics = register(reg, logger, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "database_connection_pool_usage",
		Help: "Database connection pool usage",
	}, []string{"database", "state"}))

	return hs
}

func (s *HealthService) CheckHealth(ctx context.Context) *HealthStatus {
	start := time.Now()
	status := &HealthStatus{
		Timestamp: start.UTC(),
		Services:  make(map[string]string, len(s.deps)),
	}

	allCriticalHealthy := true
	for _, dep := range s.deps {
		if err := s.ping(ctx, dep.pinger); err != nil {
			status.Services[dep.name] = StatusUnhealthy
			s.UpdateHealthMetrics(dep.name, false)
			if dep.critical {
				allCriticalHealthy = false
				status.Critical = append(status.Critical, dep.name)
				s.logger.WithError(err).Errorf("Critical service %s is unhealthy", dep.name)
			} else {
				status.NonCritical = append(status.NonCritical, dep.name)
				s.logger.WithError(err).Warnf("Non-critical service %s is unhealthy", dep.name)
			}
			continue
		}
		status.Services[dep.name] = StatusHealthy
		s.UpdateHealthMetrics(dep.name, true)
	}

	switch {
	case !allCriticalHealthy:
		status.Status = StatusUnhealthy
	case len(status.NonCritical) > 0:
		status.Status = StatusDegraded
	default:
		status.Status = StatusHealthy
	}
	status.Latency = time.Since(start)

	return status
}

func (s *HealthService) ping(ctx context.Context, p Pinger) error {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	return p.Ping(ctx)
}

// Run collects system and connection pool gauges until ctx is cancelled.
func (s *HealthService) Run(ctx context.Context) {
	systemTicker := time.NewTicker(15 * time.Second)
	defer systemTicker.Stop()
	dbTicker := time.NewTicker(30 * time.Second)
	defer dbTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-systemTicker.C:
			s.collectSystemMetrics()
		case <-dbTicker.C:
			s.collectDatabaseMetrics()
		}
	}
}

func (s *HealthService) collectSystemMetrics() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	s.systemMetrics.WithLabelValues("memory_alloc_bytes").Set(float64(memStats.Alloc))
	s.systemMetrics.WithLabelValues("memory_sys_bytes").Set(float64(memStats.Sys))
	s.systemMetrics.WithLabelValues("goroutines_count").Set(float64(runtime.NumGoroutine()))
	s.systemMetrics.WithLabelValues("gc_runs_total").Set(float64(memStats.NumGC))

	// Record GC pause time
	lastPause := memStats.PauseNs[(memStats.NumGC+255)%256]
	s.systemMetrics.WithLabelValues("gc_pause_ns").Set(float64(lastPause))
}

func (s *HealthService) collectDatabaseMetrics() {
	if s.pool == nil {
		return
	}

	stats := s.pool.Stat()
	s.dbConnectionMetrics.WithLabelValues("postgresql", "acquired_conns").Set(float64(stats.AcquiredConns()))
	s.dbConnectionMetrics.WithLabelValues("postgresql", "constructing_conns").Set(float64(stats.ConstructingConns()))
	s.dbConnectionMetrics.WithLabelValues("postgresql", "idle_conns").Set(float64(stats.IdleConns()))
	s.dbConnectionMetrics.WithLabelValues("postgresql", "max_conns").Set(float64(stats.MaxConns()))
	s.dbConnectionMetrics.WithLabelValues("postgresql", "total_conns").Set(float64(stats.TotalConns()))

	if stats.MaxConns() > 0 {
		usage := float64(stats.AcquiredConns()) / float64(stats.MaxConns()) * 100
		s.dbConnectionMetrics.WithLabelValues("postgresql", "usage_percent").Set(usage)
	}
}

// UpdateHealthMetrics updates health check metrics
func (s *HealthService) UpdateHealthMetrics(serviceName string, healthy bool) {
	if healthy {
		s.healthCheckStatus.WithLabelValues(serviceName).Set(1)
	} else {
		s.healthCheckStatus.WithLabelValues(serviceName).Set(0)
	}
	s.lastHealthCheck.WithLabelValues(serviceName).Set(float64(time.Now().Unix()))
}
