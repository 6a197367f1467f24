package compose

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/compose-spec/compose-go/v2/loader"
	"github.com/compose-spec/compose-go/v2/types"

	"github.com/artpar/appdesc/internal/core/resource"
)

// =============================================================================
// Export Functions
// =============================================================================

// FromGroup converts a Docker resource group into a compose project. Every
// container becomes a service attached to the group network, which is
// declared external since the executor owns it.
func FromGroup(group *resource.Group) (*types.Project, error) {
	if group == nil {
		return nil, ErrNilGroup
	}
	if group.Backend != resource.BackendDocker {
		return nil, NewExportError("backend", "cannot export backend "+string(group.Backend), ErrNotDockerGroup)
	}
	if len(group.Containers) == 0 {
		return nil, NewExportError("containers", "nothing to export", ErrNoContainers)
	}

	project := &types.Project{
		Name:     loader.NormalizeProjectName(group.Name),
		Services: make(types.Services, len(group.Containers)),
	}
	if group.Network != nil && group.Network.Name != "" {
		project.Networks = types.Networks{
			group.Network.Name: types.NetworkConfig{
				Name:     group.Network.Name,
				External: true,
			},
		}
	}

	for _, c := range group.Containers {
		svc, err := convertContainer(c, group.Images)
		if err != nil {
			return nil, err
		}
		project.Services[svc.Name] = svc
		for _, v := range svc.Volumes {
			if v.Type != types.VolumeTypeVolume {
				continue
			}
			if project.Volumes == nil {
				project.Volumes = types.Volumes{}
			}
			// named volumes are created by the runtime under their own name
			project.Volumes[v.Source] = types.VolumeConfig{Name: v.Source, External: true}
		}
	}

	return project, nil
}

// Marshal renders the compose YAML of a Docker resource group.
func Marshal(group *resource.Group) ([]byte, error) {
	project, err := FromGroup(group)
	if err != nil {
		return nil, err
	}
	out, err := project.MarshalYAML()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal compose project: %w", err)
	}
	return out, nil
}

// serviceName turns a container name into a compose service key.
func serviceName(containerName string) string {
	return strings.TrimSuffix(loader.NormalizeProjectName(containerName), "-container")
}

func convertContainer(c resource.Container, images []resource.Image) (types.ServiceConfig, error) {
	name := serviceName(c.Name)
	svc := types.ServiceConfig{
		Name:          name,
		ContainerName: c.Name,
		Image:         c.Image,
		Entrypoint:    types.ShellCommand(c.Entrypoint),
		Command:       types.ShellCommand(c.Command),
		Hostname:      c.Hostname,
		Platform:      c.Platform,
		StdinOpen:     c.StdinOpen,
		Tty:           c.TTY,
		User:          c.User,
		WorkingDir:    c.WorkingDir,
		Labels:        types.Labels(c.Labels),
		Environment:   mappingWithEquals(c.Environment),
		Restart:       restartPolicy(c.RestartPolicy),
		HealthCheck:   healthCheck(c.HealthCheck),
	}

	if c.Network != "" {
		svc.Networks = map[string]*types.ServiceNetworkConfig{c.Network: nil}
	}

	for _, img := range images {
		if img.Path != "" && img.Ref() == c.Image {
			svc.Build = buildConfig(img)
			break
		}
	}

	ports, err := servicePorts(name, c.Ports)
	if err != nil {
		return types.ServiceConfig{}, err
	}
	svc.Ports = ports
	svc.Volumes = serviceVolumes(c.Volumes)

	return svc, nil
}

func mappingWithEquals(env map[string]string) types.MappingWithEquals {
	if len(env) == 0 {
		return nil
	}
	m := make(types.MappingWithEquals, len(env))
	for k, v := range env {
		m[k] = &v
	}
	return m
}

func restartPolicy(rp *resource.RestartPolicy) string {
	if rp == nil {
		return ""
	}
	if rp.Name == types.RestartPolicyOnFailure && rp.MaximumRetryCount > 0 {
		return fmt.Sprintf("%s:%d", rp.Name, rp.MaximumRetryCount)
	}
	return rp.Name
}

func healthCheck(hc *resource.HealthCheck) *types.HealthCheckConfig {
	if hc == nil {
		return nil
	}
	cfg := &types.HealthCheckConfig{
		Test:        types.HealthCheckTest(hc.Test),
		Interval:    duration(hc.Interval),
		Timeout:     duration(hc.Timeout),
		StartPeriod: duration(hc.StartPeriod),
	}
	if hc.Retries > 0 {
		retries := uint64(hc.Retries)
		cfg.Retries = &retries
	}
	return cfg
}

func duration(d time.Duration) *types.Duration {
	if d <= 0 {
		return nil
	}
	cd := types.Duration(d)
	return &cd
}

func buildConfig(img resource.Image) *types.BuildConfig {
	build := &types.BuildConfig{
		Context:    img.Path,
		Dockerfile: img.Dockerfile,
		Args:       mappingWithEquals(img.BuildArgs),
		NoCache:    img.SkipDockerCache,
		Pull:       img.Pull,
	}
	if img.Platform != "" {
		build.Platforms = []string{img.Platform}
	}
	return build
}

func servicePorts(service string, ports map[string][]resource.PortBinding) ([]types.ServicePortConfig, error) {
	keys := make([]string, 0, len(ports))
	for k := range ports {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []types.ServicePortConfig
	for _, key := range keys {
		port, proto, ok := strings.Cut(key, "/")
		if !ok {
			proto = "tcp"
		}
		target, err := strconv.ParseUint(port, 10, 32)
		if err != nil || target == 0 {
			return nil, NewExportError(fmt.Sprintf("services.%s.ports.%s", service, key), "invalid container port", ErrInvalidPort)
		}
		for _, b := range ports[key] {
			pc := types.ServicePortConfig{
				Target:   uint32(target),
				Protocol: proto,
				HostIP:   b.HostIP,
				Mode:     "ingress",
			}
			if b.HostPort > 0 {
				pc.Published = strconv.Itoa(b.HostPort)
			}
			out = append(out, pc)
		}
	}
	return out, nil
}

func serviceVolumes(volumes map[string]resource.VolumeBind) []types.ServiceVolumeConfig {
	sources := make([]string, 0, len(volumes))
	for src := range volumes {
		sources = append(sources, src)
	}
	sort.Strings(sources)

	var out []types.ServiceVolumeConfig
	for _, src := range sources {
		bind := volumes[src]
		vc := types.ServiceVolumeConfig{
			Source:   src,
			Target:   bind.Bind,
			ReadOnly: bind.ReadOnly(),
		}
		if strings.HasPrefix(src, "/") || strings.HasPrefix(src, ".") || strings.HasPrefix(src, "~") {
			vc.Type = types.VolumeTypeBind
		} else {
			vc.Type = types.VolumeTypeVolume
		}
		out = append(out, vc)
	}
	return out
}
