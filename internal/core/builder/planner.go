package builder

import (
	"log/slog"

	"github.com/artpar/appdesc/internal/core/app"
	"github.com/artpar/appdesc/internal/core/resource"
)

// =============================================================================
// Planner
// =============================================================================

// Planner builds resource groups and records them in a registry.
type Planner struct {
	registry *resource.Registry
	logger   *slog.Logger
}

// NewPlanner creates a planner. A nil registry skips registration.
func NewPlanner(registry *resource.Registry, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{
		registry: registry,
		logger:   logger,
	}
}

// Plan builds the group for the backend of bctx and registers it.
// A build error is returned as-is and nothing is registered.
func (p *Planner) Plan(bctx resource.BuildContext, cfg app.Config, in Inputs) (*resource.Group, error) {
	var (
		group *resource.Group
		err   error
	)

	switch bctx.(type) {
	case *resource.DockerBuildContext:
		group, err = buildDocker(p.logger, bctx, cfg, in)
	case *resource.ECSBuildContext:
		group, err = buildECS(p.logger, bctx, cfg, in)
	case nil:
		err = app.NewConfigurationError("build_context", "build context is missing", app.ErrMissingBuildContext)
	default:
		err = app.NewConfigurationError("build_context",
			"unsupported backend "+string(bctx.Backend()), app.ErrWrongBuildContext)
	}
	if err != nil {
		p.logger.Error("failed to build resource group", "app", cfg.Name, "error", err)
		return nil, err
	}

	if p.registry != nil {
		if isNew := p.registry.Register(group); !isNew {
			p.logger.Debug("replaced registered resource group", "app", group.Name)
		}
	}
	p.logger.Debug("built resource group",
		"app", group.Name,
		"backend", group.Backend,
		"containers", len(group.Containers),
		"images", len(group.Images),
	)
	return group, nil
}
