package builder

import (
	"strconv"

	"github.com/artpar/appdesc/internal/core/app"
	"github.com/artpar/appdesc/internal/core/merge"
	"github.com/artpar/appdesc/internal/core/paths"
)

// Environment keys computed for every container.
const (
	EnvPythonPath          = "PYTHONPATH"
	EnvWorkspaceRoot       = "APP_WORKSPACE_ROOT"
	EnvWorkspaceParent     = "APP_WORKSPACE_PARENT"
	EnvInstallRequirements = "INSTALL_REQUIREMENTS"
	EnvRequirementsFile    = "REQUIREMENTS_FILE_PATH"
	EnvMountWorkspace      = "MOUNT_WORKSPACE"
	EnvPrintEnvOnLoad      = "PRINT_ENV_ON_LOAD"
)

// ContainerEnv assembles the container environment. Layers, lowest
// precedence first:
//
//  1. computed defaults (workspace paths, PYTHONPATH, flags)
//  2. env file
//  3. explicit env
//  4. secrets file
//  5. explicit secrets
//  6. cloud secrets
func ContainerEnv(cfg app.Config, cp paths.ContainerPaths, in Inputs) map[string]string {
	return merge.Layered(
		defaultEnv(cfg, cp),
		in.EnvFile,
		cfg.Env.Env,
		in.SecretsFile,
		cfg.Env.Secrets,
		in.CloudSecrets,
	)
}

func defaultEnv(cfg app.Config, cp paths.ContainerPaths) map[string]string {
	env := map[string]string{
		EnvWorkspaceRoot:       cp.WorkspaceRoot,
		EnvWorkspaceParent:     cp.WorkspaceParent,
		EnvInstallRequirements: strconv.FormatBool(cfg.Image.InstallRequirements),
		EnvMountWorkspace:      strconv.FormatBool(cfg.Volumes.MountWorkspace),
		EnvPrintEnvOnLoad:      strconv.FormatBool(cfg.Env.PrintEnvOnLoad),
		EnvPythonPath:          pythonPath(cfg.Env, cp.WorkspaceRoot),
	}
	if cp.RequirementsFile != "" {
		env[EnvRequirementsFile] = cp.RequirementsFile
	}
	return env
}

// pythonPath resolves PYTHONPATH: an explicit value wins outright,
// otherwise the workspace root with AddPythonPath appended.
func pythonPath(env app.EnvConfig, workspaceRoot string) string {
	if env.PythonPath != "" {
		return env.PythonPath
	}
	if env.AddPythonPath != "" {
		return workspaceRoot + ":" + env.AddPythonPath
	}
	return workspaceRoot
}
