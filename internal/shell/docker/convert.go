package docker

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/docker/go-connections/nat"

	"github.com/artpar/appdesc/internal/core/resource"
)

// =============================================================================
// Descriptor Conversion
// =============================================================================

// SpecFromContainer converts a container descriptor into a ContainerSpec.
// Ports and volumes come out sorted so equal descriptors give equal specs.
func SpecFromContainer(c resource.Container) (ContainerSpec, error) {
	spec := ContainerSpec{
		Name:         c.Name,
		Image:        c.Image,
		Command:      c.Command,
		Entrypoint:   c.Entrypoint,
		Env:          c.Environment,
		Labels:       c.Labels,
		Network:      c.Network,
		Hostname:     c.Hostname,
		WorkingDir:   c.WorkingDir,
		User:         c.User,
		Platform:     c.Platform,
		AutoRemove:   c.AutoRemove,
		OpenStdin:    c.StdinOpen,
		TTY:          c.TTY,
		AttachStdout: c.Stdout,
		AttachStderr: c.Stderr,
	}

	ports, err := portBindings(c.Ports)
	if err != nil {
		return ContainerSpec{}, NewDockerError("SpecFromContainer", "container", c.Name, err.Error(), err)
	}
	spec.Ports = ports
	spec.Volumes = volumeMounts(c.Volumes)

	if c.RestartPolicy != nil {
		spec.RestartPolicy = RestartPolicy{
			Name:              c.RestartPolicy.Name,
			MaximumRetryCount: c.RestartPolicy.MaximumRetryCount,
		}
	}
	if hc := c.HealthCheck; hc != nil {
		spec.HealthCheck = &HealthCheck{
			Test:        hc.Test,
			Interval:    hc.Interval,
			Timeout:     hc.Timeout,
			Retries:     hc.Retries,
			StartPeriod: hc.StartPeriod,
		}
	}
	return spec, nil
}

func portBindings(ports map[string][]resource.PortBinding) ([]PortBinding, error) {
	keys := make([]string, 0, len(ports))
	for k := range ports {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []PortBinding
	for _, key := range keys {
		proto, port := nat.SplitProtoPort(key)
		n, err := strconv.Atoi(port)
		if err != nil || n <= 0 || n > 65535 {
			return nil, fmt.Errorf("invalid container port %q", key)
		}
		bindings := ports[key]
		if len(bindings) == 0 {
			// expose only, random host port
			bindings = []resource.PortBinding{{}}
		}
		for _, b := range bindings {
			out = append(out, PortBinding{
				ContainerPort: n,
				HostPort:      b.HostPort,
				Protocol:      proto,
				HostIP:        b.HostIP,
			})
		}
	}
	return out, nil
}

func volumeMounts(volumes map[string]resource.VolumeBind) []VolumeMount {
	sources := make([]string, 0, len(volumes))
	for s := range volumes {
		sources = append(sources, s)
	}
	sort.Strings(sources)

	var out []VolumeMount
	for _, s := range sources {
		v := volumes[s]
		out = append(out, VolumeMount{Source: s, Target: v.Bind, ReadOnly: v.ReadOnly()})
	}
	return out
}
