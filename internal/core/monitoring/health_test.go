package monitoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// =============================================================================
// AggregateHealth Tests
// =============================================================================

func TestAggregateHealth(t *testing.T) {
	tests := []struct {
		name       string
		containers []HealthStatus
		want       HealthStatus
	}{
		{"empty", nil, HealthStatusUnknown},
		{"single healthy", []HealthStatus{HealthStatusHealthy}, HealthStatusHealthy},
		{"single unhealthy", []HealthStatus{HealthStatusUnhealthy}, HealthStatusUnhealthy},
		{"all healthy", []HealthStatus{HealthStatusHealthy, HealthStatusHealthy}, HealthStatusHealthy},
		{"one unhealthy", []HealthStatus{HealthStatusHealthy, HealthStatusUnhealthy}, HealthStatusDegraded},
		{"all unhealthy", []HealthStatus{HealthStatusUnhealthy, HealthStatusUnhealthy}, HealthStatusUnhealthy},
		{"unknown counts as degraded", []HealthStatus{HealthStatusHealthy, HealthStatusUnknown}, HealthStatusDegraded},
		{"degraded", []HealthStatus{HealthStatusDegraded}, HealthStatusDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AggregateHealth(tt.containers))
		})
	}
}

// =============================================================================
// ContainerHealth Tests
// =============================================================================

func TestContainerHealth(t *testing.T) {
	tests := []struct {
		name        string
		status      string
		healthCheck string
		restarts    int
		want        HealthStatus
	}{
		{"running", "running", "", 0, HealthStatusHealthy},
		{"running with passing check", "running", "healthy", 0, HealthStatusHealthy},
		{"exited", "exited", "", 0, HealthStatusUnhealthy},
		{"created", "created", "", 0, HealthStatusUnhealthy},
		{"failing check", "running", "unhealthy", 0, HealthStatusUnhealthy},
		{"check starting", "running", "starting", 0, HealthStatusDegraded},
		{"restarts at limit", "running", "", MaxStableRestarts, HealthStatusHealthy},
		{"restarts over limit", "running", "", MaxStableRestarts + 1, HealthStatusDegraded},
		{"exited wins over check", "exited", "healthy", 10, HealthStatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ContainerHealth(tt.status, tt.healthCheck, tt.restarts))
		})
	}
}
