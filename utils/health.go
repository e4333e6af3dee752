package utils

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Pinger is a dependency that can report its own reachability.
type Pinger func(ctx context.Context) error

// HealthStatus represents current status of external services.
type HealthStatus struct {
	Services  map[string]bool `json:"services"`
	Healthy   bool            `json:"healthy"`
	CheckedAt time.Time       `json:"checkedAt"`
}

// HealthMonitor periodically pings dependencies and keeps the latest snapshot.
type HealthMonitor struct {
	mu      sync.RWMutex
	current HealthStatus
	pingers map[string]Pinger
	logger  *zap.Logger
}

func NewHealthMonitor(pingers map[string]Pinger, logger *zap.Logger) *HealthMonitor {
	return &HealthMonitor{pingers: pingers, logger: logger}
}

// Status returns latest stored health snapshot.
func (m *HealthMonitor) Status() HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Check pings every dependency once and stores the result.
func (m *HealthMonitor) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{Services: make(map[string]bool, len(m.pingers)), Healthy: true}
	for name, ping := range m.pingers {
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := ping(pctx)
		cancel()

		status.Services[name] = err == nil
		if err != nil {
			status.Healthy = false
			m.logger.Warn("dependency unhealthy", zap.String("service", name), zap.Error(err))
		}
	}
	status.CheckedAt = time.Now()

	m.mu.Lock()
	m.current = status
	m.mu.Unlock()
	return status
}

// Start performs periodic health checks until ctx is done.
func (m *HealthMonitor) Start(ctx context.Context, interval time.Duration) {
	m.Check(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}
