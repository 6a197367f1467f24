package builder

import (
	"log/slog"

	"github.com/artpar/appdesc/internal/core/app"
	"github.com/artpar/appdesc/internal/core/merge"
	"github.com/artpar/appdesc/internal/core/paths"
	"github.com/artpar/appdesc/internal/core/resource"
)

// =============================================================================
// Docker Resource Group
// =============================================================================

// BuildDocker builds the Docker resource group of an application: the
// network named by the build context, one container, and the explicit
// image object if one was configured.
//
// It fails with an *app.ConfigurationError when bctx is nil or not a
// *resource.DockerBuildContext, when in.WorkspaceRoot is empty, or when the
// container paths cannot be derived. No partial group is returned.
//
// Example:
//
//	group, err := BuildDocker(
//	    &resource.DockerBuildContext{Network: "api-ws"},
//	    cfg,
//	    Inputs{WorkspaceRoot: "/home/me/api-ws"},
//	)
func BuildDocker(bctx resource.BuildContext, cfg app.Config, in Inputs) (*resource.Group, error) {
	return buildDocker(slog.New(slog.DiscardHandler), bctx, cfg, in)
}

func buildDocker(logger *slog.Logger, bctx resource.BuildContext, cfg app.Config, in Inputs) (*resource.Group, error) {
	dctx, err := dockerContext(bctx)
	if err != nil {
		return nil, err
	}

	cp, err := resolvePaths(cfg, in)
	if err != nil {
		return nil, err
	}
	logger.Debug("building docker resource group",
		"app", cfg.Name,
		"workspace", cp.WorkspaceName,
		"network", dctx.Network,
	)
	logger.Debug("container paths",
		"workspace_parent", cp.WorkspaceParent,
		"workspace_root", cp.WorkspaceRoot,
		"requirements_file", cp.RequirementsFile,
	)

	env := ContainerEnv(cfg, cp, in)
	vc := cfg.Volumes
	vc.WorkspaceVolumeName = cfg.WorkspaceVolumeName()
	volumes := ContainerVolumes(vc, in.WorkspaceRoot, cp)
	ports, err := ContainerPorts(cfg.Ports)
	if err != nil {
		return nil, err
	}
	logger.Debug("container fields",
		"env_keys", len(env),
		"volumes", len(volumes),
		"ports", len(ports),
	)

	imageRef, err := QualifyImageRef(cfg.ImageRef(), dctx.Registry)
	if err != nil {
		return nil, app.NewConfigurationError("image", err.Error(), app.ErrInvalidConfig)
	}

	// Debug mode keeps the container around for inspection.
	autoRemove, remove := cfg.Container.AutoRemove, cfg.Container.Remove
	if cfg.DebugMode {
		autoRemove, remove = false, false
	}

	container := resource.Container{
		Name:          cfg.ContainerName(),
		Image:         imageRef,
		Entrypoint:    cloneStrings(cfg.Image.Entrypoint),
		Command:       cloneStrings(cfg.Image.Command),
		Detach:        cfg.Container.Detach,
		AutoRemove:    autoRemove,
		Remove:        remove,
		HealthCheck:   healthCheck(cfg.Container.HealthCheck),
		Hostname:      cfg.Container.Hostname,
		Labels:        containerLabels(cfg, cp.WorkspaceName),
		Environment:   env,
		Network:       dctx.Network,
		Platform:      cfg.Container.Platform,
		Ports:         merge.OrNil(ports),
		RestartPolicy: restartPolicy(cfg.Container.RestartPolicy),
		StdinOpen:     cfg.Container.StdinOpen,
		Stdout:        cfg.Container.Stdout,
		Stderr:        cfg.Container.Stderr,
		TTY:           cfg.Container.TTY,
		User:          cfg.Container.User,
		Volumes:       merge.OrNil(volumes),
		WorkingDir:    cfg.Container.WorkingDir,
		UseCache:      cfg.Lifecycle.UseCache,
	}

	group := &resource.Group{
		Name:       cfg.Name,
		Enabled:    cfg.Enabled,
		Backend:    resource.BackendDocker,
		Network:    &resource.Network{Name: dctx.Network},
		Containers: []resource.Container{container},
		Lifecycle:  lifecycle(cfg.Lifecycle),
	}

	if spec := cfg.Image.Image; spec != nil {
		img, err := imageDescriptor(*spec, dctx.Registry, cfg.Lifecycle.UseCache)
		if err != nil {
			return nil, err
		}
		group.Images = []resource.Image{img}
	}

	return group, nil
}

func dockerContext(bctx resource.BuildContext) (*resource.DockerBuildContext, error) {
	if bctx == nil {
		return nil, app.NewConfigurationError("build_context", "build context is missing", app.ErrMissingBuildContext)
	}
	dctx, ok := bctx.(*resource.DockerBuildContext)
	if !ok {
		return nil, app.NewConfigurationError("build_context",
			"expected a docker build context, got "+string(bctx.Backend()), app.ErrWrongBuildContext)
	}
	if dctx == nil {
		return nil, app.NewConfigurationError("build_context", "build context is missing", app.ErrMissingBuildContext)
	}
	return dctx, nil
}

// resolvePaths derives the container paths. The configured container path
// only has to be valid when the workspace is mounted; otherwise the default
// mount point stands in.
func resolvePaths(cfg app.Config, in Inputs) (paths.ContainerPaths, error) {
	if in.WorkspaceRoot == "" {
		return paths.ContainerPaths{}, app.NewConfigurationError("workspace_root", "workspace root is not set", app.ErrMissingWorkspaceRoot)
	}

	containerPath := cfg.Volumes.ContainerPath
	if !cfg.Volumes.MountWorkspace && containerPath == "" {
		containerPath = app.DefaultContainerPath
	}

	cp, err := paths.Derive(in.WorkspaceRoot, containerPath, cfg.Image.RequirementsFile, false)
	if err != nil {
		if !cfg.Volumes.MountWorkspace {
			cp, err = paths.Derive(in.WorkspaceRoot, app.DefaultContainerPath, cfg.Image.RequirementsFile, false)
		}
		if err != nil {
			return paths.ContainerPaths{}, app.NewConfigurationError("container_paths", err.Error(), app.ErrContainerPaths)
		}
	}
	return cp, nil
}
