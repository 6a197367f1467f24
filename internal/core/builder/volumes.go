package builder

import (
	"github.com/artpar/appdesc/internal/core/app"
	"github.com/artpar/appdesc/internal/core/merge"
	"github.com/artpar/appdesc/internal/core/paths"
	"github.com/artpar/appdesc/internal/core/resource"
)

// ContainerVolumes assembles the container mounts keyed by host path or
// volume name. With MountWorkspace the workspace is mounted read-write at the
// container path: a host bind for HostPath, or the named volume
// cfg.WorkspaceVolumeName (default <workspace>-ws) for EmptyDir. Explicit
// volumes win on key collision.
func ContainerVolumes(cfg app.VolumeConfig, workspaceRoot string, cp paths.ContainerPaths) map[string]resource.VolumeBind {
	computed := make(map[string]resource.VolumeBind)
	if cfg.MountWorkspace {
		source := cfg.HostPath
		if source == "" {
			source = workspaceRoot
		}
		if cfg.WorkspaceVolumeType == app.WorkspaceEmptyDir {
			source = cfg.WorkspaceVolumeName
			if source == "" {
				source = cp.WorkspaceName + "-ws"
			}
		}
		computed[source] = resource.VolumeBind{
			Bind: cp.WorkspaceParent,
			Mode: app.ModeReadWrite,
		}
	}

	explicit := make(map[string]resource.VolumeBind, len(cfg.Explicit))
	for source, v := range cfg.Explicit {
		mode := v.Mode
		if mode == "" {
			mode = app.ModeReadWrite
		}
		explicit[source] = resource.VolumeBind{Bind: v.Bind, Mode: mode}
	}

	return merge.Layered(computed, explicit)
}
