// Package docker applies Docker resource groups against a Docker daemon.
// This is part of the Imperative Shell - handles I/O with the Docker API.
package docker

import (
	"context"
	"time"
)

// =============================================================================
// Container Types
// =============================================================================

// ContainerSpec defines the specification for creating a container.
type ContainerSpec struct {
	Name          string
	Image         string
	Command       []string
	Entrypoint    []string
	Env           map[string]string
	Labels        map[string]string
	Ports         []PortBinding
	Volumes       []VolumeMount
	Network       string
	Hostname      string
	WorkingDir    string
	User          string
	Platform      string // os[/arch[/variant]]
	AutoRemove    bool
	OpenStdin     bool
	TTY           bool
	AttachStdout  bool
	AttachStderr  bool
	RestartPolicy RestartPolicy
	HealthCheck   *HealthCheck
}

// PortBinding defines a port mapping.
type PortBinding struct {
	ContainerPort int
	HostPort      int    // 0 for auto-assign
	Protocol      string // "tcp", "udp" or "sctp"
	HostIP        string // "" for 0.0.0.0
}

// VolumeMount defines a volume mount.
type VolumeMount struct {
	Source   string // Volume name or host path
	Target   string // Container path
	ReadOnly bool
}

// RestartPolicy defines the container restart policy.
type RestartPolicy struct {
	Name              string // "no", "always", "on-failure", "unless-stopped"
	MaximumRetryCount int
}

// HealthCheck defines container health check configuration.
type HealthCheck struct {
	Test        []string
	Interval    time.Duration
	Timeout     time.Duration
	Retries     int
	StartPeriod time.Duration
}

// =============================================================================
// Container Info
// =============================================================================

// ContainerStatus represents the container status.
type ContainerStatus string

const (
	ContainerStatusCreated    ContainerStatus = "created"
	ContainerStatusRunning    ContainerStatus = "running"
	ContainerStatusPaused     ContainerStatus = "paused"
	ContainerStatusRestarting ContainerStatus = "restarting"
	ContainerStatusRemoving   ContainerStatus = "removing"
	ContainerStatusExited     ContainerStatus = "exited"
	ContainerStatusDead       ContainerStatus = "dead"
)

// ContainerInfo contains information about a container.
type ContainerInfo struct {
	ID        string
	Name      string
	Image     string
	Status    ContainerStatus
	Health    string // "healthy", "unhealthy", "starting", ""
	CreatedAt time.Time
	Labels    map[string]string
	ExitCode  int

	// RestartCount is only filled by InspectContainer.
	RestartCount int
}

// =============================================================================
// Network Types
// =============================================================================

// NetworkSpec defines the specification for creating a network.
type NetworkSpec struct {
	Name   string
	Driver string // "bridge", "overlay", etc.
	Labels map[string]string
}

// =============================================================================
// Options
// =============================================================================

// RemoveOptions defines options for removing containers.
type RemoveOptions struct {
	Force         bool
	RemoveVolumes bool
}

// ListOptions defines options for listing containers.
type ListOptions struct {
	All     bool              // Include stopped containers
	Filters map[string]string // e.g., {"label": "com.appdesc.app=api"}
}

// PullOptions defines options for pulling images.
type PullOptions struct {
	Platform string // e.g., "linux/amd64"
}

// =============================================================================
// Client Interface
// =============================================================================

// Client defines the Docker client interface.
type Client interface {
	// Container operations
	CreateContainer(ctx context.Context, spec ContainerSpec) (containerID string, err error)
	StartContainer(ctx context.Context, containerID string) error
	StopContainer(ctx context.Context, containerID string, timeout *time.Duration) error
	RemoveContainer(ctx context.Context, containerID string, opts RemoveOptions) error
	InspectContainer(ctx context.Context, containerID string) (*ContainerInfo, error)
	ListContainers(ctx context.Context, opts ListOptions) ([]ContainerInfo, error)
	WaitContainer(ctx context.Context, containerID string) (exitCode int64, err error)

	// Network operations
	CreateNetwork(ctx context.Context, spec NetworkSpec) (networkID string, err error)
	NetworkExists(ctx context.Context, name string) (bool, error)
	RemoveNetwork(ctx context.Context, networkID string) error

	// Image operations
	PullImage(ctx context.Context, image string, opts PullOptions) error
	ImageExists(ctx context.Context, image string) (bool, error)

	// Health operations
	Ping(ctx context.Context) error
	Close() error
}
