// Package builder turns a validated application config into resource groups.
//
// The functions here are pure: they read a config, a build context and the
// already-loaded env/secret inputs, and return descriptors. Nothing is
// created, pulled or started. Executors in internal/shell apply the result.
//
// # Functions
//
//   - BuildDocker: network + single container (+ optional image) group
//   - BuildECS: managed container service group
//   - ContainerEnv, ContainerVolumes, ContainerPorts: the layered field derivations
//   - Planner: builds a group and registers it in a caller-owned resource.Registry
//
// # Usage
//
//	bctx := &resource.DockerBuildContext{Network: "api-ws"}
//	group, err := builder.BuildDocker(bctx, cfg, builder.Inputs{WorkspaceRoot: "/home/me/api-ws"})
package builder
