package builder

// Inputs are the values the configuration-intake side resolved for a build.
// File and cloud maps are already loaded; the builder never reads them.
type Inputs struct {
	// WorkspaceRoot is the host path of the workspace.
	WorkspaceRoot string

	EnvFile      map[string]string
	SecretsFile  map[string]string
	CloudSecrets map[string]string
}
