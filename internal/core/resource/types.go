// Package resource defines the resource-group descriptors produced by the
// builders and consumed by an executor. Descriptors are plain values: they
// carry what a backend needs to create a resource, nothing more.
package resource

import (
	"fmt"
	"time"
)

// Backend identifies the deployment backend a group targets.
type Backend string

const (
	BackendDocker Backend = "docker"
	BackendECS    Backend = "ecs"
)

// =============================================================================
// Group
// =============================================================================

// Group is the resource group of one application on one backend.
// It is created fresh by each build and never mutated afterwards.
type Group struct {
	Name       string      `json:"name"`
	Enabled    bool        `json:"enabled"`
	Backend    Backend     `json:"backend"`
	Network    *Network    `json:"network,omitempty"`
	Containers []Container `json:"containers,omitempty"`
	Images     []Image     `json:"images,omitempty"`
	ECS        *ECSService `json:"ecs,omitempty"`
	Lifecycle  Lifecycle   `json:"lifecycle"`
}

// Lifecycle tells the executor how to treat the group's resources.
type Lifecycle struct {
	SkipCreate       bool          `json:"skip_create,omitempty"`
	SkipRead         bool          `json:"skip_read,omitempty"`
	SkipUpdate       bool          `json:"skip_update,omitempty"`
	SkipDelete       bool          `json:"skip_delete,omitempty"`
	RecreateOnUpdate bool          `json:"recreate_on_update,omitempty"`
	WaitForCreation  bool          `json:"wait_for_creation"`
	WaitForUpdate    bool          `json:"wait_for_update"`
	WaitForDeletion  bool          `json:"wait_for_deletion"`
	WaiterDelay      time.Duration `json:"waiter_delay"`
	WaiterAttempts   int           `json:"waiter_attempts"`
}

// =============================================================================
// Docker Descriptors
// =============================================================================

// Network is a named network. Groups reference it by name only.
type Network struct {
	Name   string            `json:"name"`
	Driver string            `json:"driver,omitempty"`
	Labels map[string]string `json:"labels,omitempty"`
}

// Container describes one container of a Docker group.
type Container struct {
	Name          string                   `json:"name"`
	Image         string                   `json:"image"`
	Entrypoint    []string                 `json:"entrypoint,omitempty"`
	Command       []string                 `json:"command,omitempty"`
	Detach        bool                     `json:"detach"`
	AutoRemove    bool                     `json:"auto_remove"`
	Remove        bool                     `json:"remove"`
	HealthCheck   *HealthCheck             `json:"healthcheck,omitempty"`
	Hostname      string                   `json:"hostname,omitempty"`
	Labels        map[string]string        `json:"labels,omitempty"`
	Environment   map[string]string        `json:"environment,omitempty"`
	Network       string                   `json:"network,omitempty"`
	Platform      string                   `json:"platform,omitempty"`
	Ports         map[string][]PortBinding `json:"ports,omitempty"`
	RestartPolicy *RestartPolicy           `json:"restart_policy,omitempty"`
	StdinOpen     bool                     `json:"stdin_open"`
	Stdout        bool                     `json:"stdout"`
	Stderr        bool                     `json:"stderr"`
	TTY           bool                     `json:"tty"`
	User          string                   `json:"user,omitempty"`
	Volumes       map[string]VolumeBind    `json:"volumes,omitempty"`
	WorkingDir    string                   `json:"working_dir,omitempty"`
	UseCache      bool                     `json:"use_cache"`
}

// PortBinding is the host side of a published container port.
// HostPort 0 lets the runtime pick a port.
type PortBinding struct {
	HostIP   string `json:"host_ip,omitempty"`
	HostPort int    `json:"host_port"`
}

// VolumeBind mounts a host path or named volume (the map key) at Bind.
type VolumeBind struct {
	Bind string `json:"bind"`
	Mode string `json:"mode"`
}

// ReadOnly reports whether the mount is read-only.
func (v VolumeBind) ReadOnly() bool {
	return v.Mode == "ro"
}

// RestartPolicy is the container restart policy.
type RestartPolicy struct {
	Name              string `json:"name"`
	MaximumRetryCount int    `json:"maximum_retry_count,omitempty"`
}

// HealthCheck is the container health check.
type HealthCheck struct {
	Test        []string      `json:"test"`
	Interval    time.Duration `json:"interval,omitempty"`
	Timeout     time.Duration `json:"timeout,omitempty"`
	Retries     int           `json:"retries,omitempty"`
	StartPeriod time.Duration `json:"start_period,omitempty"`
}

// Image is an image the executor builds or pulls before creating containers.
type Image struct {
	Name            string            `json:"name"`
	Tag             string            `json:"tag"`
	Path            string            `json:"path,omitempty"`
	Dockerfile      string            `json:"dockerfile,omitempty"`
	BuildArgs       map[string]string `json:"build_args,omitempty"`
	Platform        string            `json:"platform,omitempty"`
	Pull            bool              `json:"pull"`
	SkipDockerCache bool              `json:"skip_docker_cache"`
	UseCache        bool              `json:"use_cache"`
}

// Ref returns name:tag.
func (i Image) Ref() string {
	return fmt.Sprintf("%s:%s", i.Name, i.Tag)
}

// =============================================================================
// ECS Descriptors
// =============================================================================

// ECSService is a managed container service running one task definition.
type ECSService struct {
	Cluster          string   `json:"cluster"`
	Name             string   `json:"name"`
	DesiredCount     int      `json:"desired_count"`
	LaunchType       string   `json:"launch_type"`
	AssignPublicIP   bool     `json:"assign_public_ip"`
	Subnets          []string `json:"subnets,omitempty"`
	SecurityGroupIDs []string `json:"security_group_ids,omitempty"`
	Task             ECSTask  `json:"task"`
}

// ECSTask is a task definition with a single container.
type ECSTask struct {
	Family    string       `json:"family"`
	CPU       string       `json:"cpu"`
	Memory    string       `json:"memory"`
	Container ECSContainer `json:"container"`
}

// ECSContainer is the container definition of an ECSTask.
type ECSContainer struct {
	Name         string            `json:"name"`
	Image        string            `json:"image"`
	Entrypoint   []string          `json:"entrypoint,omitempty"`
	Command      []string          `json:"command,omitempty"`
	Environment  map[string]string `json:"environment,omitempty"`
	PortMappings []ECSPortMapping  `json:"port_mappings,omitempty"`
	HealthCheck  *HealthCheck      `json:"healthcheck,omitempty"`
	User         string            `json:"user,omitempty"`
	WorkingDir   string            `json:"working_dir,omitempty"`
	Essential    bool              `json:"essential"`
}

// ECSPortMapping is a port opened by an ECS container.
type ECSPortMapping struct {
	Name          string `json:"name,omitempty"`
	ContainerPort int    `json:"container_port"`
	Protocol      string `json:"protocol"`
}

// =============================================================================
// Labels
// =============================================================================

// Label keys set on every container built by this module.
const (
	LabelManaged   = "com.appdesc.managed"
	LabelApp       = "com.appdesc.app"
	LabelWorkspace = "com.appdesc.workspace"
	LabelVersion   = "com.appdesc.version"
)
