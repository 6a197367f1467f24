package intake

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/appdesc/internal/core/app"
)

// =============================================================================
// Test Fakes
// =============================================================================

type fakeSecretSource struct {
	values map[string]map[string]string
	err    error
	calls  []string
}

func (f *fakeSecretSource) SecretValues(_ context.Context, id string) (map[string]string, error) {
	f.calls = append(f.calls, id)
	if f.err != nil {
		return nil, f.err
	}
	return f.values[id], nil
}

// =============================================================================
// Resolve Tests
// =============================================================================

func TestResolve_NothingConfigured(t *testing.T) {
	root := t.TempDir()

	in, err := New(nil, nil).Resolve(context.Background(), app.Defaults(), root)
	require.NoError(t, err)

	assert.Equal(t, root, in.WorkspaceRoot)
	assert.Nil(t, in.EnvFile)
	assert.Nil(t, in.SecretsFile)
	assert.Nil(t, in.CloudSecrets)
}

func TestResolve_RelativeFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "workspace", "env"), 0o755))
	writeFile(t, filepath.Join(root, "workspace", "env"), "dev.yml", "LOG_LEVEL: debug\n")
	secretsPath := writeFile(t, t.TempDir(), "secrets.yml", "API_KEY: abc\n")

	cfg := app.Defaults()
	cfg.Env.EnvFile = "workspace/env/dev.yml"
	cfg.Env.SecretsFile = secretsPath

	in, err := New(nil, nil).Resolve(context.Background(), cfg, root)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"LOG_LEVEL": "debug"}, in.EnvFile)
	assert.Equal(t, map[string]string{"API_KEY": "abc"}, in.SecretsFile)
}

func TestResolve_MissingFileSkipped(t *testing.T) {
	cfg := app.Defaults()
	cfg.Env.EnvFile = "missing.yml"

	in, err := New(nil, nil).Resolve(context.Background(), cfg, t.TempDir())
	require.NoError(t, err)

	assert.Nil(t, in.EnvFile)
}

func TestResolve_InvalidFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "bad.yml", "- a\n- b\n")
	cfg := app.Defaults()
	cfg.Env.SecretsFile = "bad.yml"

	_, err := New(nil, nil).Resolve(context.Background(), cfg, root)

	assert.ErrorIs(t, err, ErrVarsFile)
}

func TestResolve_CloudSecrets(t *testing.T) {
	source := &fakeSecretSource{values: map[string]map[string]string{
		"prod/api": {"DB_PASSWORD": "hunter2"},
	}}
	cfg := app.Defaults()
	cfg.Env.CloudSecrets = "prod/api"

	in, err := New(source, nil).Resolve(context.Background(), cfg, t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, []string{"prod/api"}, source.calls)
	assert.Equal(t, map[string]string{"DB_PASSWORD": "hunter2"}, in.CloudSecrets)
}

func TestResolve_CloudSecretsWithoutSource(t *testing.T) {
	cfg := app.Defaults()
	cfg.Env.CloudSecrets = "prod/api"

	_, err := New(nil, nil).Resolve(context.Background(), cfg, t.TempDir())

	assert.ErrorIs(t, err, ErrNoSecretSource)
}

func TestResolve_CloudSecretsLookupFails(t *testing.T) {
	lookupErr := errors.New("access denied")
	cfg := app.Defaults()
	cfg.Env.CloudSecrets = "prod/api"

	_, err := New(&fakeSecretSource{err: lookupErr}, nil).Resolve(context.Background(), cfg, t.TempDir())

	assert.ErrorIs(t, err, ErrSecretLookup)
	assert.ErrorIs(t, err, lookupErr)
}
