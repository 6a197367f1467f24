package compose

import (
	"context"
	"testing"
	"time"

	"github.com/compose-spec/compose-go/v2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/artpar/appdesc/internal/core/resource"
)

// =============================================================================
// Test Fixtures
// =============================================================================

func testGroup() *resource.Group {
	return &resource.Group{
		Name:    "api",
		Enabled: true,
		Backend: resource.BackendDocker,
		Network: &resource.Network{Name: "api-ws"},
		Containers: []resource.Container{
			{
				Name:        "api-container",
				Image:       "phidata/fastapi:latest",
				Command:     []string{"api", "start"},
				Environment: map[string]string{"PYTHONPATH": "/usr/local/app"},
				Labels:      map[string]string{resource.LabelManaged: "true"},
				Network:     "api-ws",
				Ports: map[string][]resource.PortBinding{
					"9090/tcp": {{HostPort: 9090}},
				},
				Volumes: map[string]resource.VolumeBind{
					"/home/dev/api-ws": {Bind: "/usr/local/app", Mode: "rw"},
					"pgdata":           {Bind: "/var/lib/data", Mode: "ro"},
				},
				StdinOpen: true,
				TTY:       true,
			},
		},
	}
}

// =============================================================================
// FromGroup Tests
// =============================================================================

func TestFromGroup_Basic(t *testing.T) {
	project, err := FromGroup(testGroup())
	require.NoError(t, err)

	assert.Equal(t, "api", project.Name)
	require.Contains(t, project.Networks, "api-ws")
	assert.True(t, bool(project.Networks["api-ws"].External))

	require.Len(t, project.Services, 1)
	svc, ok := project.Services["api"]
	require.True(t, ok)
	assert.Equal(t, "api-container", svc.ContainerName)
	assert.Equal(t, "phidata/fastapi:latest", svc.Image)
	assert.Equal(t, types.ShellCommand{"api", "start"}, svc.Command)
	assert.True(t, svc.StdinOpen)
	assert.True(t, svc.Tty)
	assert.Contains(t, svc.Networks, "api-ws")
	require.NotNil(t, svc.Environment["PYTHONPATH"])
	assert.Equal(t, "/usr/local/app", *svc.Environment["PYTHONPATH"])
	assert.Nil(t, svc.Build)
}

func TestFromGroup_Ports(t *testing.T) {
	group := testGroup()
	group.Containers[0].Ports = map[string][]resource.PortBinding{
		"9090/tcp": {{HostPort: 9090}},
		"53/udp":   {{HostIP: "127.0.0.1", HostPort: 5353}},
		"8000/tcp": {{}},
	}

	project, err := FromGroup(group)
	require.NoError(t, err)

	assert.Equal(t, []types.ServicePortConfig{
		{Target: 53, Published: "5353", Protocol: "udp", HostIP: "127.0.0.1", Mode: "ingress"},
		{Target: 8000, Protocol: "tcp", Mode: "ingress"},
		{Target: 9090, Published: "9090", Protocol: "tcp", Mode: "ingress"},
	}, project.Services["api"].Ports)
}

func TestFromGroup_Volumes(t *testing.T) {
	project, err := FromGroup(testGroup())
	require.NoError(t, err)

	assert.Equal(t, []types.ServiceVolumeConfig{
		{Type: types.VolumeTypeBind, Source: "/home/dev/api-ws", Target: "/usr/local/app"},
		{Type: types.VolumeTypeVolume, Source: "pgdata", Target: "/var/lib/data", ReadOnly: true},
	}, project.Services["api"].Volumes)
}

func TestFromGroup_RestartPolicy(t *testing.T) {
	tests := []struct {
		name     string
		policy   *resource.RestartPolicy
		expected string
	}{
		{"none", nil, ""},
		{"always", &resource.RestartPolicy{Name: "always"}, "always"},
		{"on-failure", &resource.RestartPolicy{Name: "on-failure"}, "on-failure"},
		{"on-failure with retries", &resource.RestartPolicy{Name: "on-failure", MaximumRetryCount: 3}, "on-failure:3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			group := testGroup()
			group.Containers[0].RestartPolicy = tt.policy

			project, err := FromGroup(group)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, project.Services["api"].Restart)
		})
	}
}

func TestFromGroup_HealthCheck(t *testing.T) {
	group := testGroup()
	group.Containers[0].HealthCheck = &resource.HealthCheck{
		Test:     []string{"CMD", "curl", "-f", "http://localhost:9090/"},
		Interval: 10 * time.Second,
		Retries:  3,
	}

	project, err := FromGroup(group)
	require.NoError(t, err)

	hc := project.Services["api"].HealthCheck
	require.NotNil(t, hc)
	assert.Equal(t, types.HealthCheckTest{"CMD", "curl", "-f", "http://localhost:9090/"}, hc.Test)
	require.NotNil(t, hc.Interval)
	assert.Equal(t, types.Duration(10*time.Second), *hc.Interval)
	assert.Nil(t, hc.Timeout)
	require.NotNil(t, hc.Retries)
	assert.Equal(t, uint64(3), *hc.Retries)
}

func TestFromGroup_BuildFromImage(t *testing.T) {
	group := testGroup()
	group.Containers[0].Image = "team/api:dev"
	group.Images = []resource.Image{
		{Name: "team/api", Tag: "dev", Path: "/home/dev/api-ws", Dockerfile: "Dockerfile", SkipDockerCache: true},
	}

	project, err := FromGroup(group)
	require.NoError(t, err)

	build := project.Services["api"].Build
	require.NotNil(t, build)
	assert.Equal(t, "/home/dev/api-ws", build.Context)
	assert.Equal(t, "Dockerfile", build.Dockerfile)
	assert.True(t, build.NoCache)
}

func TestFromGroup_Errors(t *testing.T) {
	ecs := &resource.Group{Name: "api", Backend: resource.BackendECS}
	empty := &resource.Group{Name: "api", Backend: resource.BackendDocker}
	badPort := testGroup()
	badPort.Containers[0].Ports = map[string][]resource.PortBinding{"http/tcp": {{}}}

	tests := []struct {
		name  string
		group *resource.Group
		want  error
	}{
		{"nil group", nil, ErrNilGroup},
		{"ecs group", ecs, ErrNotDockerGroup},
		{"no containers", empty, ErrNoContainers},
		{"bad port", badPort, ErrInvalidPort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromGroup(tt.group)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

// =============================================================================
// Marshal Tests
// =============================================================================

func TestMarshal_YAMLShape(t *testing.T) {
	out, err := Marshal(testGroup())
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(out, &doc))

	services, ok := doc["services"].(map[string]any)
	require.True(t, ok)
	api, ok := services["api"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "phidata/fastapi:latest", api["image"])
	assert.Equal(t, "api-container", api["container_name"])

	networks, ok := doc["networks"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, networks, "api-ws")
}

func TestFromGroup_NamedVolumesDeclared(t *testing.T) {
	project, err := FromGroup(testGroup())
	require.NoError(t, err)

	require.Contains(t, project.Volumes, "pgdata")
	assert.True(t, bool(project.Volumes["pgdata"].External))
	assert.NotContains(t, project.Volumes, "/home/dev/api-ws")
}

func TestMarshal_LoadsBack(t *testing.T) {
	out, err := Marshal(testGroup())
	require.NoError(t, err)

	project, err := Load(context.Background(), "api", out)
	require.NoError(t, err)

	svc, err := project.GetService("api")
	require.NoError(t, err)
	assert.Equal(t, "phidata/fastapi:latest", svc.Image)
	require.Len(t, svc.Ports, 1)
	assert.Equal(t, uint32(9090), svc.Ports[0].Target)
}

func TestMarshal_Error(t *testing.T) {
	_, err := Marshal(nil)
	assert.ErrorIs(t, err, ErrNilGroup)
}

// =============================================================================
// Load Tests
// =============================================================================

func TestLoad_EmptyInput(t *testing.T) {
	_, err := Load(context.Background(), "api", []byte("  \n"))
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(context.Background(), "api", []byte("services: [unclosed"))
	assert.ErrorIs(t, err, ErrInvalidYAML)
}

func TestServiceName(t *testing.T) {
	assert.Equal(t, "api", serviceName("api-container"))
	assert.Equal(t, "worker", serviceName("worker"))
	assert.Equal(t, "my_app", serviceName("My_App-container"))
}
