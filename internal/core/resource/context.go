package resource

// BuildContext carries backend-specific parameters a builder needs.
// Each builder accepts exactly one concrete kind.
type BuildContext interface {
	Backend() Backend
}

// DockerBuildContext is the build context of the Docker backend.
type DockerBuildContext struct {
	// Network is the name of the network every container attaches to.
	Network string
	// Registry, when set, qualifies image references that name no registry.
	Registry string
}

// Backend implements BuildContext.
func (*DockerBuildContext) Backend() Backend { return BackendDocker }

// ECSBuildContext is the build context of the ECS backend. Subnets and
// security groups are resolved IDs.
type ECSBuildContext struct {
	Cluster          string
	Region           string
	Subnets          []string
	SecurityGroupIDs []string
}

// Backend implements BuildContext.
func (*ECSBuildContext) Backend() Backend { return BackendECS }
