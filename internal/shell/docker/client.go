package docker

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// =============================================================================
// Docker Client Implementation
// =============================================================================

// DockerClient implements the Client interface using the Docker SDK.
type DockerClient struct {
	cli *client.Client
}

// NewDockerClient creates a new Docker client.
// If host is empty, it uses the default Docker host from environment.
// On macOS with Docker Desktop, it automatically detects the correct socket.
func NewDockerClient(ctx context.Context, host string) (*DockerClient, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, NewDockerError("NewDockerClient", "", "", "failed to create client", ErrConnectionFailed)
	}

	if _, pingErr := cli.Ping(ctx); pingErr != nil && host == "" {
		// If default socket fails, try Docker Desktop socket on macOS
		homeDir, _ := os.UserHomeDir()
		dockerDesktopSocket := "unix://" + homeDir + "/.docker/run/docker.sock"

		cli2, err2 := client.NewClientWithOpts(
			client.WithHost(dockerDesktopSocket),
			client.WithAPIVersionNegotiation(),
		)
		if err2 == nil {
			if _, pingErr2 := cli2.Ping(ctx); pingErr2 == nil {
				cli.Close()
				return &DockerClient{cli: cli2}, nil
			}
			cli2.Close()
		}
	}

	return &DockerClient{cli: cli}, nil
}

// Ping checks if Docker daemon is reachable.
func (d *DockerClient) Ping(ctx context.Context) error {
	if _, err := d.cli.Ping(ctx); err != nil {
		return NewDockerError("Ping", "", "", fmt.Sprintf("failed to ping docker: %v", err), ErrConnectionFailed)
	}
	return nil
}

// Close closes the Docker client connection.
func (d *DockerClient) Close() error {
	return d.cli.Close()
}

// =============================================================================
// Container Operations
// =============================================================================

// CreateContainer creates a new container from the given spec.
func (d *DockerClient) CreateContainer(ctx context.Context, spec ContainerSpec) (string, error) {
	config, hostConfig, networkConfig, platform, err := createConfigs(spec)
	if err != nil {
		return "", NewDockerError("CreateContainer", "container", spec.Name, err.Error(), err)
	}

	resp, err := d.cli.ContainerCreate(ctx, config, hostConfig, networkConfig, platform, spec.Name)
	if err != nil {
		if strings.Contains(err.Error(), "Conflict") {
			return "", NewDockerError("CreateContainer", "container", spec.Name, "container already exists", ErrContainerAlreadyExists)
		}
		if strings.Contains(err.Error(), "port is already allocated") {
			return "", NewDockerError("CreateContainer", "container", spec.Name, err.Error(), ErrPortAlreadyAllocated)
		}
		return "", NewDockerError("CreateContainer", "container", spec.Name, err.Error(), err)
	}

	return resp.ID, nil
}

// createConfigs translates a ContainerSpec into Docker API structures.
func createConfigs(spec ContainerSpec) (*container.Config, *container.HostConfig, *network.NetworkingConfig, *ocispec.Platform, error) {
	config := &container.Config{
		Image:        spec.Image,
		Cmd:          spec.Command,
		Entrypoint:   spec.Entrypoint,
		Hostname:     spec.Hostname,
		WorkingDir:   spec.WorkingDir,
		User:         spec.User,
		Labels:       spec.Labels,
		OpenStdin:    spec.OpenStdin,
		Tty:          spec.TTY,
		AttachStdout: spec.AttachStdout,
		AttachStderr: spec.AttachStderr,
	}

	// Environment, sorted for stable container configs
	keys := make([]string, 0, len(spec.Env))
	for k := range spec.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		config.Env = append(config.Env, fmt.Sprintf("%s=%s", k, spec.Env[k]))
	}

	hostConfig := &container.HostConfig{AutoRemove: spec.AutoRemove}

	// Port bindings
	if len(spec.Ports) > 0 {
		portBindings := nat.PortMap{}
		exposedPorts := nat.PortSet{}

		for _, p := range spec.Ports {
			proto := p.Protocol
			if proto == "" {
				proto = "tcp"
			}
			containerPort, err := nat.NewPort(proto, strconv.Itoa(p.ContainerPort))
			if err != nil {
				return nil, nil, nil, nil, fmt.Errorf("invalid port %d/%s: %w", p.ContainerPort, proto, err)
			}
			exposedPorts[containerPort] = struct{}{}

			hostPort := ""
			if p.HostPort != 0 {
				hostPort = strconv.Itoa(p.HostPort)
			}
			portBindings[containerPort] = append(portBindings[containerPort], nat.PortBinding{
				HostIP:   p.HostIP,
				HostPort: hostPort,
			})
		}

		config.ExposedPorts = exposedPorts
		hostConfig.PortBindings = portBindings
	}

	// Volume mounts
	for _, v := range spec.Volumes {
		mountType := mount.TypeVolume
		if strings.HasPrefix(v.Source, "/") {
			mountType = mount.TypeBind
		}
		hostConfig.Mounts = append(hostConfig.Mounts, mount.Mount{
			Type:     mountType,
			Source:   v.Source,
			Target:   v.Target,
			ReadOnly: v.ReadOnly,
		})
	}

	// Restart policy
	if spec.RestartPolicy.Name != "" {
		hostConfig.RestartPolicy = container.RestartPolicy{
			Name:              container.RestartPolicyMode(spec.RestartPolicy.Name),
			MaximumRetryCount: spec.RestartPolicy.MaximumRetryCount,
		}
	}

	// Health check
	if spec.HealthCheck != nil {
		config.Healthcheck = &container.HealthConfig{
			Test:        spec.HealthCheck.Test,
			Interval:    spec.HealthCheck.Interval,
			Timeout:     spec.HealthCheck.Timeout,
			Retries:     spec.HealthCheck.Retries,
			StartPeriod: spec.HealthCheck.StartPeriod,
		}
	}

	// Network config
	var networkConfig *network.NetworkingConfig
	if spec.Network != "" {
		hostConfig.NetworkMode = container.NetworkMode(spec.Network)
		networkConfig = &network.NetworkingConfig{
			EndpointsConfig: map[string]*network.EndpointSettings{
				spec.Network: {},
			},
		}
	}

	platform, err := parsePlatform(spec.Platform)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	return config, hostConfig, networkConfig, platform, nil
}

// parsePlatform parses os[/arch[/variant]].
func parsePlatform(s string) (*ocispec.Platform, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, "/")
	if len(parts) > 3 || parts[0] == "" {
		return nil, fmt.Errorf("invalid platform %q", s)
	}
	p := &ocispec.Platform{OS: parts[0]}
	if len(parts) > 1 {
		p.Architecture = parts[1]
	}
	if len(parts) > 2 {
		p.Variant = parts[2]
	}
	return p, nil
}

// StartContainer starts a stopped container.
func (d *DockerClient) StartContainer(ctx context.Context, containerID string) error {
	err := d.cli.ContainerStart(ctx, containerID, container.StartOptions{})
	if err != nil {
		if client.IsErrNotFound(err) {
			return NewDockerError("StartContainer", "container", containerID, "container not found", ErrContainerNotFound)
		}
		if strings.Contains(err.Error(), "is already running") {
			return NewDockerError("StartContainer", "container", containerID, "container is already running", ErrContainerAlreadyRunning)
		}
		return NewDockerError("StartContainer", "container", containerID, err.Error(), err)
	}
	return nil
}

// StopContainer stops a running container.
func (d *DockerClient) StopContainer(ctx context.Context, containerID string, timeout *time.Duration) error {
	stopOptions := container.StopOptions{}
	if timeout != nil {
		seconds := int(timeout.Seconds())
		stopOptions.Timeout = &seconds
	}

	err := d.cli.ContainerStop(ctx, containerID, stopOptions)
	if err != nil {
		if client.IsErrNotFound(err) {
			return NewDockerError("StopContainer", "container", containerID, "container not found", ErrContainerNotFound)
		}
		if strings.Contains(err.Error(), "is not running") {
			return NewDockerError("StopContainer", "container", containerID, "container is not running", ErrContainerNotRunning)
		}
		return NewDockerError("StopContainer", "container", containerID, err.Error(), err)
	}
	return nil
}

// RemoveContainer removes a container.
func (d *DockerClient) RemoveContainer(ctx context.Context, containerID string, opts RemoveOptions) error {
	err := d.cli.ContainerRemove(ctx, containerID, container.RemoveOptions{
		Force:         opts.Force,
		RemoveVolumes: opts.RemoveVolumes,
	})
	if err != nil {
		if client.IsErrNotFound(err) {
			return NewDockerError("RemoveContainer", "container", containerID, "container not found", ErrContainerNotFound)
		}
		return NewDockerError("RemoveContainer", "container", containerID, err.Error(), err)
	}
	return nil
}

// InspectContainer returns information about a container by ID or name.
func (d *DockerClient) InspectContainer(ctx context.Context, containerID string) (*ContainerInfo, error) {
	resp, err := d.cli.ContainerInspect(ctx, containerID)
	if err != nil {
		if client.IsErrNotFound(err) {
			return nil, NewDockerError("InspectContainer", "container", containerID, "container not found", ErrContainerNotFound)
		}
		return nil, NewDockerError("InspectContainer", "container", containerID, err.Error(), err)
	}

	createdAt, _ := time.Parse(time.RFC3339Nano, resp.Created)
	info := &ContainerInfo{
		ID:           resp.ID,
		Name:         strings.TrimPrefix(resp.Name, "/"),
		CreatedAt:    createdAt,
		RestartCount: resp.RestartCount,
	}
	if resp.Config != nil {
		info.Image = resp.Config.Image
		info.Labels = resp.Config.Labels
	}
	if resp.State != nil {
		info.Status = ContainerStatus(resp.State.Status)
		info.ExitCode = resp.State.ExitCode
		if resp.State.Health != nil {
			info.Health = resp.State.Health.Status
		}
	}
	return info, nil
}

// ListContainers returns a list of containers matching the given options.
func (d *DockerClient) ListContainers(ctx context.Context, opts ListOptions) ([]ContainerInfo, error) {
	listOpts := container.ListOptions{All: opts.All}
	if len(opts.Filters) > 0 {
		f := filters.NewArgs()
		for k, v := range opts.Filters {
			f.Add(k, v)
		}
		listOpts.Filters = f
	}

	containers, err := d.cli.ContainerList(ctx, listOpts)
	if err != nil {
		return nil, NewDockerError("ListContainers", "container", "", err.Error(), err)
	}

	var result []ContainerInfo
	for _, c := range containers {
		name := ""
		if len(c.Names) > 0 {
			name = strings.TrimPrefix(c.Names[0], "/")
		}
		result = append(result, ContainerInfo{
			ID:        c.ID,
			Name:      name,
			Image:     c.Image,
			Status:    ContainerStatus(c.State),
			CreatedAt: time.Unix(c.Created, 0),
			Labels:    c.Labels,
		})
	}

	return result, nil
}

// WaitContainer blocks until the container stops and returns its exit code.
func (d *DockerClient) WaitContainer(ctx context.Context, containerID string) (int64, error) {
	statusCh, errCh := d.cli.ContainerWait(ctx, containerID, container.WaitConditionNotRunning)
	select {
	case status := <-statusCh:
		if status.Error != nil {
			return status.StatusCode, NewDockerError("WaitContainer", "container", containerID, status.Error.Message, ErrContainerExited)
		}
		return status.StatusCode, nil
	case err := <-errCh:
		if client.IsErrNotFound(err) {
			return 0, NewDockerError("WaitContainer", "container", containerID, "container not found", ErrContainerNotFound)
		}
		return 0, NewDockerError("WaitContainer", "container", containerID, err.Error(), err)
	case <-ctx.Done():
		return 0, NewDockerError("WaitContainer", "container", containerID, ctx.Err().Error(), ErrTimeout)
	}
}

// =============================================================================
// Network Operations
// =============================================================================

// CreateNetwork creates a new Docker network.
func (d *DockerClient) CreateNetwork(ctx context.Context, spec NetworkSpec) (string, error) {
	driver := spec.Driver
	if driver == "" {
		driver = "bridge"
	}

	resp, err := d.cli.NetworkCreate(ctx, spec.Name, network.CreateOptions{
		Driver: driver,
		Labels: spec.Labels,
	})
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return "", NewDockerError("CreateNetwork", "network", spec.Name, "network already exists", ErrNetworkAlreadyExists)
		}
		return "", NewDockerError("CreateNetwork", "network", spec.Name, err.Error(), err)
	}

	return resp.ID, nil
}

// NetworkExists reports whether a network with the given name or ID exists.
func (d *DockerClient) NetworkExists(ctx context.Context, name string) (bool, error) {
	_, err := d.cli.NetworkInspect(ctx, name, network.InspectOptions{})
	if err != nil {
		if client.IsErrNotFound(err) {
			return false, nil
		}
		return false, NewDockerError("NetworkExists", "network", name, err.Error(), err)
	}
	return true, nil
}

// RemoveNetwork removes a Docker network.
func (d *DockerClient) RemoveNetwork(ctx context.Context, networkID string) error {
	err := d.cli.NetworkRemove(ctx, networkID)
	if err != nil {
		if client.IsErrNotFound(err) {
			return NewDockerError("RemoveNetwork", "network", networkID, "network not found", ErrNetworkNotFound)
		}
		if strings.Contains(err.Error(), "has active endpoints") {
			return NewDockerError("RemoveNetwork", "network", networkID, "network has active endpoints", ErrNetworkInUse)
		}
		return NewDockerError("RemoveNetwork", "network", networkID, err.Error(), err)
	}
	return nil
}

// =============================================================================
// Image Operations
// =============================================================================

// PullImage pulls an image from the registry.
func (d *DockerClient) PullImage(ctx context.Context, imageName string, opts PullOptions) error {
	reader, err := d.cli.ImagePull(ctx, imageName, image.PullOptions{Platform: opts.Platform})
	if err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "not found") ||
			strings.Contains(errStr, "manifest unknown") ||
			strings.Contains(errStr, "repository does not exist") ||
			strings.Contains(errStr, "pull access denied") {
			return NewDockerError("PullImage", "image", imageName, "image not found", ErrImageNotFound)
		}
		return NewDockerError("PullImage", "image", imageName, err.Error(), ErrImagePullFailed)
	}
	defer reader.Close()

	// Drain the reader to complete the pull
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return NewDockerError("PullImage", "image", imageName, err.Error(), ErrImagePullFailed)
	}

	return nil
}

// ImageExists checks if an image exists locally.
func (d *DockerClient) ImageExists(ctx context.Context, imageName string) (bool, error) {
	_, _, err := d.cli.ImageInspectWithRaw(ctx, imageName)
	if err != nil {
		if client.IsErrNotFound(err) {
			return false, nil
		}
		return false, NewDockerError("ImageExists", "image", imageName, err.Error(), err)
	}
	return true, nil
}
