package app

import (
	"fmt"
	"time"
)

// =============================================================================
// Defaults
// =============================================================================

const (
	DefaultName             = "fastapi-server"
	DefaultVersion          = "1"
	DefaultImageName        = "phidata/fastapi"
	DefaultImageTag         = "latest"
	DefaultRequirementsFile = "requirements.txt"
	DefaultContainerPort    = 9090
	DefaultHostPort         = 9090
	DefaultPortName         = "http"
	DefaultContainerPath    = "/usr/local/app"

	DefaultECSLaunchType  = "FARGATE"
	DefaultECSTaskCPU     = "256"
	DefaultECSTaskMemory  = "512"
	DefaultWaiterDelay    = 30 * time.Second
	DefaultWaiterAttempts = 50
)

// DefaultCommand is the command run when none is configured.
var DefaultCommand = []string{"api", "start"}

// =============================================================================
// Config - The Configuration Record
// =============================================================================

// Config is the configuration record of one application.
// It is built once, validated, and treated as read-only afterwards.
type Config struct {
	Name      string `mapstructure:"name"`
	Version   string `mapstructure:"version"`
	Enabled   bool   `mapstructure:"enabled"`
	DebugMode bool   `mapstructure:"debug_mode"`

	Image     ImageConfig     `mapstructure:"image"`
	Container ContainerConfig `mapstructure:"container"`
	Env       EnvConfig       `mapstructure:"env"`
	Ports     PortConfig      `mapstructure:"ports"`
	Volumes   VolumeConfig    `mapstructure:"volumes"`
	ECS       ECSConfig       `mapstructure:"ecs"`
	Lifecycle LifecycleConfig `mapstructure:"lifecycle"`
}

// ImageConfig describes which image the container runs.
type ImageConfig struct {
	// Image is an explicit image object. When set it wins over Name/Tag
	// and is carried into the resource group's image list.
	Image *ImageSpec `mapstructure:"image"`

	Name       string   `mapstructure:"name"`
	Tag        string   `mapstructure:"tag"`
	Entrypoint []string `mapstructure:"entrypoint"`
	Command    []string `mapstructure:"command"`

	InstallRequirements bool   `mapstructure:"install_requirements"`
	RequirementsFile    string `mapstructure:"requirements_file"` // relative to the workspace root
}

// ImageSpec is an image the executor may build or pull.
type ImageSpec struct {
	Name            string            `mapstructure:"name"`
	Tag             string            `mapstructure:"tag"`
	Path            string            `mapstructure:"path"`
	Dockerfile      string            `mapstructure:"dockerfile"`
	BuildArgs       map[string]string `mapstructure:"build_args"`
	Platform        string            `mapstructure:"platform"`
	Pull            bool              `mapstructure:"pull"`
	SkipDockerCache bool              `mapstructure:"skip_docker_cache"`
}

// Ref returns name:tag, defaulting the tag to "latest".
func (s ImageSpec) Ref() string {
	tag := s.Tag
	if tag == "" {
		tag = DefaultImageTag
	}
	return fmt.Sprintf("%s:%s", s.Name, tag)
}

// ContainerConfig holds container runtime knobs.
type ContainerConfig struct {
	Name       string            `mapstructure:"name"`
	Labels     map[string]string `mapstructure:"labels"`
	Detach     bool              `mapstructure:"detach"`
	AutoRemove bool              `mapstructure:"auto_remove"`
	Remove     bool              `mapstructure:"remove"`
	User       string            `mapstructure:"user"`
	StdinOpen  bool              `mapstructure:"stdin_open"`
	TTY        bool              `mapstructure:"tty"`
	Stdout     bool              `mapstructure:"stdout"`
	Stderr     bool              `mapstructure:"stderr"`
	Hostname   string            `mapstructure:"hostname"`
	Platform   string            `mapstructure:"platform"` // os[/arch[/variant]]
	WorkingDir string            `mapstructure:"working_dir"`

	HealthCheck   *HealthCheck   `mapstructure:"healthcheck"`
	RestartPolicy *RestartPolicy `mapstructure:"restart_policy"`
}

// HealthCheck is the container health check.
type HealthCheck struct {
	Test        []string      `mapstructure:"test"`
	Interval    time.Duration `mapstructure:"interval"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Retries     int           `mapstructure:"retries"`
	StartPeriod time.Duration `mapstructure:"start_period"`
}

// RestartPolicy is the container restart policy.
type RestartPolicy struct {
	Name              string `mapstructure:"name"` // no, always, on-failure, unless-stopped
	MaximumRetryCount int    `mapstructure:"maximum_retry_count"`
}

// Restart policy names.
const (
	RestartNo            = "no"
	RestartAlways        = "always"
	RestartOnFailure     = "on-failure"
	RestartUnlessStopped = "unless-stopped"
)

// EnvConfig lists the sources of the container environment.
type EnvConfig struct {
	// PythonPath overwrites PYTHONPATH, which otherwise points at the
	// in-container workspace root.
	PythonPath string `mapstructure:"python_path"`
	// AddPythonPath is appended to PYTHONPATH. Ignored when PythonPath is set.
	AddPythonPath string `mapstructure:"add_python_path"`

	Env         map[string]string `mapstructure:"env"`
	EnvFile     string            `mapstructure:"env_file"`
	Secrets     map[string]string `mapstructure:"secrets"`
	SecretsFile string            `mapstructure:"secrets_file"`
	// CloudSecrets names a cloud secret store entry holding a JSON object.
	CloudSecrets string `mapstructure:"cloud_secrets"`

	PrintEnvOnLoad bool `mapstructure:"print_env_on_load"`
}

// PortConfig describes the ports published by the container.
type PortConfig struct {
	Open          bool   `mapstructure:"open"`
	ContainerPort int    `mapstructure:"container_port"`
	Name          string `mapstructure:"name"`
	HostPort      int    `mapstructure:"host_port"`

	// Explicit maps "port[/proto]" inside the container to host bindings.
	// Entries win over the computed container port on key collision.
	Explicit map[string][]HostPort `mapstructure:"explicit"`
}

// HostPort is one host side of a port binding. Port 0 picks a random port.
type HostPort struct {
	IP   string `mapstructure:"ip"`
	Port int    `mapstructure:"port"`
}

// VolumeConfig describes the container mounts.
type VolumeConfig struct {
	MountWorkspace bool `mapstructure:"mount_workspace"`
	// WorkspaceVolumeName names the EmptyDir volume. Empty means <name>-ws.
	WorkspaceVolumeName string `mapstructure:"workspace_volume_name"`
	// WorkspaceVolumeType is HostPath (default) or EmptyDir.
	WorkspaceVolumeType string `mapstructure:"workspace_volume_type"`
	ContainerPath       string `mapstructure:"container_path"`
	// HostPath is mounted at ContainerPath. Empty means the workspace root.
	HostPath string `mapstructure:"host_path"`

	// Explicit maps a host path or volume name to its mount.
	// Entries win over the workspace mount on key collision.
	Explicit map[string]VolumeBind `mapstructure:"explicit"`
}

// VolumeBind is the container side of a mount.
type VolumeBind struct {
	Bind string `mapstructure:"bind"`
	Mode string `mapstructure:"mode"` // rw or ro
}

// Volume modes.
const (
	ModeReadWrite = "rw"
	ModeReadOnly  = "ro"
)

// Workspace volume types. HostPath binds a host directory; EmptyDir mounts
// a named volume the runtime creates on first use.
const (
	WorkspaceHostPath = "HostPath"
	WorkspaceEmptyDir = "EmptyDir"
)

// ECSConfig holds managed container service task parameters.
type ECSConfig struct {
	Cluster        string   `mapstructure:"cluster"`
	LaunchType     string   `mapstructure:"launch_type"`
	TaskCPU        string   `mapstructure:"task_cpu"`
	TaskMemory     string   `mapstructure:"task_memory"`
	ServiceCount   int      `mapstructure:"service_count"`
	AssignPublicIP bool     `mapstructure:"assign_public_ip"`
	Subnets        []string `mapstructure:"subnets"`
	SecurityGroups []string `mapstructure:"security_groups"` // names or IDs
}

// LifecycleConfig holds knobs read by the executor, not the builder.
type LifecycleConfig struct {
	SkipCreate       bool          `mapstructure:"skip_create"`
	SkipRead         bool          `mapstructure:"skip_read"`
	SkipUpdate       bool          `mapstructure:"skip_update"`
	SkipDelete       bool          `mapstructure:"skip_delete"`
	RecreateOnUpdate bool          `mapstructure:"recreate_on_update"`
	WaitForCreation  bool          `mapstructure:"wait_for_creation"`
	WaitForUpdate    bool          `mapstructure:"wait_for_update"`
	WaitForDeletion  bool          `mapstructure:"wait_for_deletion"`
	WaiterDelay      time.Duration `mapstructure:"waiter_delay"`
	WaiterAttempts   int           `mapstructure:"waiter_attempts"`
	// UseCache skips creation when a resource with the same name is active.
	UseCache bool `mapstructure:"use_cache"`
}

// Defaults returns a Config with every default applied.
func Defaults() Config {
	return Config{
		Name:    DefaultName,
		Version: DefaultVersion,
		Enabled: true,
		Image: ImageConfig{
			Name:             DefaultImageName,
			Tag:              DefaultImageTag,
			Command:          append([]string(nil), DefaultCommand...),
			RequirementsFile: DefaultRequirementsFile,
		},
		Container: ContainerConfig{
			Detach:     true,
			AutoRemove: true,
			Remove:     true,
			StdinOpen:  true,
			TTY:        true,
			Stdout:     true,
			Stderr:     true,
		},
		Ports: PortConfig{
			Open:          true,
			ContainerPort: DefaultContainerPort,
			Name:          DefaultPortName,
			HostPort:      DefaultHostPort,
		},
		Volumes: VolumeConfig{
			ContainerPath: DefaultContainerPath,
		},
		ECS: ECSConfig{
			LaunchType:     DefaultECSLaunchType,
			TaskCPU:        DefaultECSTaskCPU,
			TaskMemory:     DefaultECSTaskMemory,
			ServiceCount:   1,
			AssignPublicIP: true,
		},
		Lifecycle: LifecycleConfig{
			WaitForCreation: true,
			WaitForUpdate:   true,
			WaitForDeletion: true,
			WaiterDelay:     DefaultWaiterDelay,
			WaiterAttempts:  DefaultWaiterAttempts,
			UseCache:        true,
		},
	}
}

// ImageRef returns the image reference the container runs, without any
// registry qualification.
func (c Config) ImageRef() string {
	if c.Image.Image != nil {
		return c.Image.Image.Ref()
	}
	tag := c.Image.Tag
	if tag == "" {
		tag = DefaultImageTag
	}
	return fmt.Sprintf("%s:%s", c.Image.Name, tag)
}

// WorkspaceVolumeName returns the configured workspace volume name or
// <name>-ws.
func (c Config) WorkspaceVolumeName() string {
	if c.Volumes.WorkspaceVolumeName != "" {
		return c.Volumes.WorkspaceVolumeName
	}
	return fmt.Sprintf("%s-ws", c.Name)
}

// ContainerName returns the configured container name or <name>-container.
func (c Config) ContainerName() string {
	if c.Container.Name != "" {
		return c.Container.Name
	}
	return fmt.Sprintf("%s-container", c.Name)
}
