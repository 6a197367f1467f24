package docker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/appdesc/internal/core/resource"
)

func TestSpecFromContainer(t *testing.T) {
	c := resource.Container{
		Name:       "api-container",
		Image:      "phidata/fastapi:latest",
		Command:    []string{"api", "start"},
		AutoRemove: true,
		StdinOpen:  true,
		TTY:        true,
		Stdout:     true,
		Network:    "api-ws",
		Platform:   "linux/amd64",
		Ports: map[string][]resource.PortBinding{
			"9090/tcp": {{HostPort: 9090}},
			"5000/tcp": nil,
			"53/udp":   {{HostIP: "127.0.0.1", HostPort: 5353}},
		},
		Volumes: map[string]resource.VolumeBind{
			"/home/me/api-ws": {Bind: "/usr/local/app", Mode: "rw"},
			"cache":           {Bind: "/root/.cache", Mode: "ro"},
		},
		RestartPolicy: &resource.RestartPolicy{Name: "on-failure", MaximumRetryCount: 2},
		HealthCheck:   &resource.HealthCheck{Test: []string{"CMD", "true"}, Interval: time.Second},
	}

	spec, err := SpecFromContainer(c)
	require.NoError(t, err)

	assert.Equal(t, "api-container", spec.Name)
	assert.Equal(t, "api-ws", spec.Network)
	assert.True(t, spec.AutoRemove)
	assert.True(t, spec.OpenStdin)
	assert.True(t, spec.AttachStdout)
	assert.False(t, spec.AttachStderr)

	// Sorted by key; a key without bindings gets a random host port
	assert.Equal(t, []PortBinding{
		{ContainerPort: 5000, Protocol: "tcp"},
		{ContainerPort: 53, HostPort: 5353, Protocol: "udp", HostIP: "127.0.0.1"},
		{ContainerPort: 9090, HostPort: 9090, Protocol: "tcp"},
	}, spec.Ports)

	assert.Equal(t, []VolumeMount{
		{Source: "/home/me/api-ws", Target: "/usr/local/app"},
		{Source: "cache", Target: "/root/.cache", ReadOnly: true},
	}, spec.Volumes)

	assert.Equal(t, RestartPolicy{Name: "on-failure", MaximumRetryCount: 2}, spec.RestartPolicy)
	require.NotNil(t, spec.HealthCheck)
	assert.Equal(t, time.Second, spec.HealthCheck.Interval)
}

func TestSpecFromContainer_NoPortsOrVolumes(t *testing.T) {
	spec, err := SpecFromContainer(resource.Container{Name: "api", Image: "alpine:latest"})
	require.NoError(t, err)
	assert.Nil(t, spec.Ports)
	assert.Nil(t, spec.Volumes)
	assert.Nil(t, spec.HealthCheck)
	assert.Equal(t, RestartPolicy{}, spec.RestartPolicy)
}

func TestSpecFromContainer_InvalidPort(t *testing.T) {
	tests := []string{"http/tcp", "0/tcp", "70000/tcp"}

	for _, key := range tests {
		t.Run(key, func(t *testing.T) {
			_, err := SpecFromContainer(resource.Container{
				Name:  "api",
				Ports: map[string][]resource.PortBinding{key: nil},
			})
			var dockerErr *DockerError
			assert.ErrorAs(t, err, &dockerErr)
		})
	}
}
