package intake

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/artpar/appdesc/internal/core/app"
	"github.com/artpar/appdesc/internal/core/builder"
)

// Resolve reads the env file, secrets file and cloud secrets named by cfg.
// Relative file paths are taken from workspaceRoot. A missing env or
// secrets file is skipped with a warning.
func (i *Intake) Resolve(ctx context.Context, cfg app.Config, workspaceRoot string) (builder.Inputs, error) {
	in := builder.Inputs{WorkspaceRoot: workspaceRoot}
	if workspaceRoot != "" {
		abs, err := filepath.Abs(workspaceRoot)
		if err != nil {
			return builder.Inputs{}, NewIntakeError("Resolve", "workspace_root", workspaceRoot, err.Error(), err)
		}
		in.WorkspaceRoot = abs
	}

	var err error
	if in.EnvFile, err = i.readOptional(cfg, "env_file", cfg.Env.EnvFile, in.WorkspaceRoot); err != nil {
		return builder.Inputs{}, err
	}
	if in.SecretsFile, err = i.readOptional(cfg, "secrets_file", cfg.Env.SecretsFile, in.WorkspaceRoot); err != nil {
		return builder.Inputs{}, err
	}

	if id := cfg.Env.CloudSecrets; id != "" {
		if i.secrets == nil {
			return builder.Inputs{}, NewIntakeError("Resolve", "cloud_secrets", id, "no secret source configured", ErrNoSecretSource)
		}
		values, err := i.secrets.SecretValues(ctx, id)
		if err != nil {
			i.logger.Error("failed to read cloud secrets", "app", cfg.Name, "secret", id, "error", err)
			return builder.Inputs{}, NewIntakeError("Resolve", "cloud_secrets", id, err.Error(), errors.Join(ErrSecretLookup, err))
		}
		in.CloudSecrets = values
		i.logger.Debug("read cloud secrets", "app", cfg.Name, "secret", id, "keys", len(values))
	}

	return in, nil
}

func (i *Intake) readOptional(cfg app.Config, entity, path, root string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	if !filepath.IsAbs(path) && root != "" {
		path = filepath.Join(root, path)
	}

	vars, err := ReadVarsFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			i.logger.Warn("vars file not found, skipping", "app", cfg.Name, "kind", entity, "path", path)
			return nil, nil
		}
		return nil, err
	}
	i.logger.Debug("read vars file", "app", cfg.Name, "kind", entity, "path", path, "keys", len(vars))
	return vars, nil
}
