package builder

import (
	"log/slog"
	"strconv"

	"github.com/artpar/appdesc/internal/core/app"
	"github.com/artpar/appdesc/internal/core/provider"
	"github.com/artpar/appdesc/internal/core/resource"
)

// =============================================================================
// ECS Resource Group
// =============================================================================

// BuildECS builds the managed container service group of an application.
// Env and ports are derived exactly as for Docker; host bindings and
// volumes have no meaning on ECS and are dropped.
//
// It fails with an *app.ConfigurationError when bctx is nil or not a
// *resource.ECSBuildContext, when in.WorkspaceRoot is empty, when no cluster
// is known, when a Fargate task has an unsupported CPU and memory pair, or
// when the container paths cannot be derived.
func BuildECS(bctx resource.BuildContext, cfg app.Config, in Inputs) (*resource.Group, error) {
	return buildECS(slog.New(slog.DiscardHandler), bctx, cfg, in)
}

func buildECS(logger *slog.Logger, bctx resource.BuildContext, cfg app.Config, in Inputs) (*resource.Group, error) {
	ectx, err := ecsContext(bctx)
	if err != nil {
		return nil, err
	}

	cluster := cfg.ECS.Cluster
	if cluster == "" {
		cluster = ectx.Cluster
	}
	if cluster == "" {
		return nil, app.NewConfigurationError("ecs.cluster", "no cluster configured", app.ErrInvalidConfig)
	}

	cp, err := resolvePaths(cfg, in)
	if err != nil {
		return nil, err
	}
	logger.Debug("building ecs resource group",
		"app", cfg.Name,
		"workspace", cp.WorkspaceName,
		"cluster", cluster,
		"region", ectx.Region,
	)

	ports, err := ContainerPorts(cfg.Ports)
	if err != nil {
		return nil, err
	}
	if _, err := QualifyImageRef(cfg.ImageRef(), ""); err != nil {
		return nil, app.NewConfigurationError("image", err.Error(), app.ErrInvalidConfig)
	}
	if cfg.ECS.LaunchType == app.DefaultECSLaunchType {
		if err := provider.ValidateFargateSize(cfg.ECS.TaskCPU, cfg.ECS.TaskMemory); err != nil {
			return nil, app.NewConfigurationError("ecs.task_memory", err.Error(), app.ErrInvalidConfig)
		}
	}

	computedKey := ""
	if cfg.Ports.Open {
		computedKey, _ = app.NormalizePortKey(strconv.Itoa(cfg.Ports.ContainerPort))
	}

	var mappings []resource.ECSPortMapping
	for _, key := range sortedPortKeys(ports) {
		port, proto, err := splitPortKey(key)
		if err != nil {
			return nil, app.NewConfigurationError("ports", err.Error(), app.ErrInvalidConfig)
		}
		mapping := resource.ECSPortMapping{ContainerPort: port, Protocol: proto}
		if key == computedKey {
			mapping.Name = cfg.Ports.Name
		}
		mappings = append(mappings, mapping)
	}

	service := &resource.ECSService{
		Cluster:          cluster,
		Name:             cfg.Name,
		DesiredCount:     cfg.ECS.ServiceCount,
		LaunchType:       cfg.ECS.LaunchType,
		AssignPublicIP:   cfg.ECS.AssignPublicIP,
		Subnets:          cloneStrings(ectx.Subnets),
		SecurityGroupIDs: cloneStrings(ectx.SecurityGroupIDs),
		Task: resource.ECSTask{
			Family: cfg.Name,
			CPU:    cfg.ECS.TaskCPU,
			Memory: cfg.ECS.TaskMemory,
			Container: resource.ECSContainer{
				Name:         cfg.ContainerName(),
				Image:        cfg.ImageRef(),
				Entrypoint:   cloneStrings(cfg.Image.Entrypoint),
				Command:      cloneStrings(cfg.Image.Command),
				Environment:  ContainerEnv(cfg, cp, in),
				PortMappings: mappings,
				HealthCheck:  healthCheck(cfg.Container.HealthCheck),
				User:         cfg.Container.User,
				WorkingDir:   cfg.Container.WorkingDir,
				Essential:    true,
			},
		},
	}

	return &resource.Group{
		Name:      cfg.Name,
		Enabled:   cfg.Enabled,
		Backend:   resource.BackendECS,
		ECS:       service,
		Lifecycle: lifecycle(cfg.Lifecycle),
	}, nil
}

func ecsContext(bctx resource.BuildContext) (*resource.ECSBuildContext, error) {
	if bctx == nil {
		return nil, app.NewConfigurationError("build_context", "build context is missing", app.ErrMissingBuildContext)
	}
	ectx, ok := bctx.(*resource.ECSBuildContext)
	if !ok {
		return nil, app.NewConfigurationError("build_context",
			"expected an ecs build context, got "+string(bctx.Backend()), app.ErrWrongBuildContext)
	}
	if ectx == nil {
		return nil, app.NewConfigurationError("build_context", "build context is missing", app.ErrMissingBuildContext)
	}
	return ectx, nil
}
