// Package monitoring derives application health from container state.
// It contains no I/O.
package monitoring

// HealthStatus is the health of one container or of a whole application.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusUnknown   HealthStatus = "unknown"
)

// MaxStableRestarts is the restart count above which a running container
// counts as degraded.
const MaxStableRestarts = 3

// =============================================================================
// Health Aggregation (Pure Functions)
// =============================================================================

// AggregateHealth determines overall application health from container states.
func AggregateHealth(containers []HealthStatus) HealthStatus {
	if len(containers) == 0 {
		return HealthStatusUnknown
	}

	unhealthy := 0
	degraded := 0

	for _, h := range containers {
		switch h {
		case HealthStatusUnhealthy:
			unhealthy++
		case HealthStatusDegraded, HealthStatusUnknown:
			degraded++
		}
	}

	switch {
	case unhealthy == len(containers):
		return HealthStatusUnhealthy
	case unhealthy > 0 || degraded > 0:
		return HealthStatusDegraded
	default:
		return HealthStatusHealthy
	}
}

// ContainerHealth maps container state to a health status.
//
// Parameters:
// - status: container status (created, running, exited, ...)
// - healthCheck: Docker health check result, empty without a check
// - restarts: number of restarts since the container was created
func ContainerHealth(status, healthCheck string, restarts int) HealthStatus {
	if status != "running" {
		return HealthStatusUnhealthy
	}

	switch healthCheck {
	case "unhealthy":
		return HealthStatusUnhealthy
	case "starting":
		return HealthStatusDegraded
	}

	if restarts > MaxStableRestarts {
		return HealthStatusDegraded
	}
	return HealthStatusHealthy
}
