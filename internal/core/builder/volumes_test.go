package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/artpar/appdesc/internal/core/app"
	"github.com/artpar/appdesc/internal/core/resource"
)

// =============================================================================
// ContainerVolumes Tests
// =============================================================================

func TestContainerVolumes_NoMount(t *testing.T) {
	volumes := ContainerVolumes(app.VolumeConfig{ContainerPath: "/usr/local/app"}, "/home/dev/ws", testPaths)

	assert.Empty(t, volumes)
}

func TestContainerVolumes_WorkspaceMount(t *testing.T) {
	volumes := ContainerVolumes(app.VolumeConfig{MountWorkspace: true}, "/home/dev/ws", testPaths)

	assert.Equal(t, map[string]resource.VolumeBind{
		"/home/dev/ws": {Bind: "/usr/local/app", Mode: "rw"},
	}, volumes)
}

func TestContainerVolumes_WorkspaceVolumeType(t *testing.T) {
	tests := []struct {
		name     string
		cfg      app.VolumeConfig
		expected string
	}{
		{"host path default", app.VolumeConfig{MountWorkspace: true, WorkspaceVolumeName: "ignored"}, "/home/dev/ws"},
		{"explicit host path type", app.VolumeConfig{MountWorkspace: true, WorkspaceVolumeType: app.WorkspaceHostPath, HostPath: "/srv/code"}, "/srv/code"},
		{"empty dir named", app.VolumeConfig{MountWorkspace: true, WorkspaceVolumeType: app.WorkspaceEmptyDir, WorkspaceVolumeName: "api-ws-volume"}, "api-ws-volume"},
		{"empty dir unnamed", app.VolumeConfig{MountWorkspace: true, WorkspaceVolumeType: app.WorkspaceEmptyDir, HostPath: "/srv/code"}, "api-ws-ws"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			volumes := ContainerVolumes(tt.cfg, "/home/dev/ws", testPaths)

			assert.Equal(t, map[string]resource.VolumeBind{
				tt.expected: {Bind: "/usr/local/app", Mode: "rw"},
			}, volumes)
		})
	}
}

func TestContainerVolumes_ExplicitOnly(t *testing.T) {
	volumes := ContainerVolumes(app.VolumeConfig{
		Explicit: map[string]app.VolumeBind{
			"/var/www": {Bind: "/mnt/vol1", Mode: "ro"},
			"pgdata":   {Bind: "/var/lib/postgresql/data"},
		},
	}, "/home/dev/ws", testPaths)

	assert.Equal(t, map[string]resource.VolumeBind{
		"/var/www": {Bind: "/mnt/vol1", Mode: "ro"},
		"pgdata":   {Bind: "/var/lib/postgresql/data", Mode: "rw"},
	}, volumes)
}
