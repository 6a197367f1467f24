package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/artpar/appdesc/internal/core/resource"
	"github.com/artpar/appdesc/internal/shell/docker"
	"github.com/artpar/appdesc/internal/shell/store"
)

// =============================================================================
// Test Helpers
// =============================================================================

func writeDescriptor(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs the root command and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// =============================================================================
// Plan Tests
// =============================================================================

func TestPlan_DockerGroup(t *testing.T) {
	clearEnv(t)
	ws := t.TempDir()
	desc := writeDescriptor(t, ws, "api.yaml", `
name: api
env:
  env:
    LOG_LEVEL: debug
`)

	out, err := execute(t, "plan", "-w", ws, desc)
	require.NoError(t, err)

	var groups []resource.Group
	require.NoError(t, json.Unmarshal([]byte(out), &groups))
	require.Len(t, groups, 1)

	g := groups[0]
	assert.Equal(t, "api", g.Name)
	assert.Equal(t, resource.BackendDocker, g.Backend)
	require.NotNil(t, g.Network)
	assert.Equal(t, "appdesc", g.Network.Name)
	require.Len(t, g.Containers, 1)
	assert.Equal(t, "api-container", g.Containers[0].Name)
	assert.Equal(t, "debug", g.Containers[0].Environment["LOG_LEVEL"])
}

func TestPlan_SameNameReplacesGroup(t *testing.T) {
	clearEnv(t)
	ws := t.TempDir()
	first := writeDescriptor(t, ws, "a.yaml", "name: api\nversion: \"1\"\n")
	other := writeDescriptor(t, ws, "b.yaml", "name: worker\n")
	second := writeDescriptor(t, ws, "c.yaml", "name: api\nversion: \"2\"\n")

	out, err := execute(t, "plan", "-w", ws, first, other, second)
	require.NoError(t, err)

	var groups []resource.Group
	require.NoError(t, json.Unmarshal([]byte(out), &groups))
	require.Len(t, groups, 2)
	assert.Equal(t, "api", groups[0].Name)
	assert.Equal(t, "2", groups[0].Containers[0].Labels[resource.LabelVersion])
	assert.Equal(t, "worker", groups[1].Name)
}

func TestPlan_RegistryFromConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv("APPDESC_DOCKER_REGISTRY", "registry.example.com")
	ws := t.TempDir()
	desc := writeDescriptor(t, ws, "api.yaml", "name: api\n")

	out, err := execute(t, "plan", "-w", ws, desc)
	require.NoError(t, err)

	var groups []resource.Group
	require.NoError(t, json.Unmarshal([]byte(out), &groups))
	assert.Equal(t, "registry.example.com/phidata/fastapi:latest", groups[0].Containers[0].Image)
}

func TestPlan_Errors(t *testing.T) {
	clearEnv(t)
	ws := t.TempDir()
	valid := writeDescriptor(t, ws, "api.yaml", "name: api\n")
	keyless := writeDescriptor(t, ws, "appdesc.yaml", "aws:\n  region: us-east-1\n")
	invalid := writeDescriptor(t, ws, "bad.yaml", `
name: api
container:
  restart_policy:
    name: sometimes
`)

	tests := []struct {
		name     string
		args     []string
		wantCode int
	}{
		{"invalid descriptor", []string{"plan", "-w", ws, invalid}, ExitConfigError},
		{"ecs without region", []string{"plan", "--backend", "ecs", "-w", ws, valid}, ExitConfigError},
		{"region without keys", []string{"plan", "--config", keyless, "-w", ws, valid}, ExitConfigError},
		{"unknown backend", []string{"plan", "--backend", "k8s", "-w", ws, valid}, ExitError},
		{"missing descriptor", []string{"plan", "-w", ws, filepath.Join(ws, "nope.yaml")}, ExitError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, exitCode(err))
		})
	}
}

func TestPlan_RequiresDescriptor(t *testing.T) {
	clearEnv(t)
	_, err := execute(t, "plan")
	assert.Error(t, err)
}

// =============================================================================
// Compose Tests
// =============================================================================

func TestCompose_PrintsProject(t *testing.T) {
	clearEnv(t)
	ws := t.TempDir()
	desc := writeDescriptor(t, ws, "api.yaml", "name: api\n")

	out, err := execute(t, "compose", "-w", ws, desc)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	services, ok := doc["services"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, services, "api")
}

// =============================================================================
// History Tests
// =============================================================================

func TestHistory_EmptyDatabase(t *testing.T) {
	clearEnv(t)
	t.Setenv("APPDESC_HISTORY_DSN", filepath.Join(t.TempDir(), "nested", "history.db"))

	out, err := execute(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "RUN ID")
	assert.Contains(t, out, "STATUS")
}

// =============================================================================
// Version Tests
// =============================================================================

func TestVersion(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "appdesc dev")
}

// =============================================================================
// Output Tests
// =============================================================================

func TestPrintStatus(t *testing.T) {
	var buf bytes.Buffer
	err := printStatus(&buf, "api", []docker.ContainerInfo{
		{ID: "0123456789abcdef", Name: "api-container", Image: "phidata/fastapi:latest", Status: docker.ContainerStatusRunning},
		{ID: "fedcba9876543210", Name: "api-worker", Image: "phidata/fastapi:latest", Status: docker.ContainerStatusExited},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "0123456789ab")
	assert.NotContains(t, out, "0123456789abcdef")
	assert.Contains(t, out, "api: degraded")
}

func TestPrintStatus_NoContainers(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printStatus(&buf, "api", nil))
	assert.Contains(t, buf.String(), "api: unknown")
}

func TestPrintRuns(t *testing.T) {
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	finished := started.Add(time.Minute)

	var buf bytes.Buffer
	err := printRuns(&buf, []store.Run{
		{ID: "run-2", Group: "api", Action: store.ActionApply, Status: store.RunStatusRunning, StartedAt: started},
		{ID: "run-1", Group: "api", Action: store.ActionDestroy, Status: store.RunStatusFailed, Message: "boom", StartedAt: started, FinishedAt: &finished},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "2026-01-02T03:05:05Z")
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "-")
}
