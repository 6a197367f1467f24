package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/appdesc/internal/core/app"
	"github.com/artpar/appdesc/internal/core/resource"
)

// =============================================================================
// QualifyImageRef Tests
// =============================================================================

func TestQualifyImageRef(t *testing.T) {
	tests := []struct {
		name     string
		ref      string
		registry string
		expected string
	}{
		{"no registry", "phidata/fastapi:latest", "", "phidata/fastapi:latest"},
		{"prefixed", "team/api:1.0", "registry.example.com", "registry.example.com/team/api:1.0"},
		{"trailing slash", "team/api:1.0", "registry.example.com/", "registry.example.com/team/api:1.0"},
		{"single component", "api:1.0", "registry.example.com", "registry.example.com/api:1.0"},
		{"already qualified", "ghcr.io/team/api:1.0", "registry.example.com", "ghcr.io/team/api:1.0"},
		{"registry with port", "localhost:5000/api:1.0", "registry.example.com", "localhost:5000/api:1.0"},
		{"localhost", "localhost/api:1.0", "registry.example.com", "localhost/api:1.0"},
		{"uppercase host", "Registry/api:1.0", "registry.example.com", "Registry/api:1.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := QualifyImageRef(tt.ref, tt.registry)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ref)
		})
	}
}

func TestQualifyImageRef_Invalid(t *testing.T) {
	_, err := QualifyImageRef("Not Valid", "")
	assert.Error(t, err)

	_, err = QualifyImageRef("api:1.0", "bad registry")
	assert.Error(t, err)
}

// =============================================================================
// Field Helper Tests
// =============================================================================

func TestRestartPolicy(t *testing.T) {
	assert.Nil(t, restartPolicy(nil))

	assert.Equal(t, &resource.RestartPolicy{Name: app.RestartOnFailure, MaximumRetryCount: 3},
		restartPolicy(&app.RestartPolicy{Name: app.RestartOnFailure, MaximumRetryCount: 3}))

	assert.Equal(t, &resource.RestartPolicy{Name: app.RestartAlways},
		restartPolicy(&app.RestartPolicy{Name: app.RestartAlways, MaximumRetryCount: 3}))
}

func TestContainerLabels_ConfiguredWin(t *testing.T) {
	cfg := app.Defaults()
	cfg.Name = "api"
	cfg.Container.Labels = map[string]string{
		resource.LabelVersion: "custom",
		"team":                "platform",
	}

	labels := containerLabels(cfg, "api-ws")

	assert.Equal(t, "true", labels[resource.LabelManaged])
	assert.Equal(t, "api", labels[resource.LabelApp])
	assert.Equal(t, "api-ws", labels[resource.LabelWorkspace])
	assert.Equal(t, "custom", labels[resource.LabelVersion])
	assert.Equal(t, "platform", labels["team"])
}

func TestImageDescriptor_DefaultTag(t *testing.T) {
	img, err := imageDescriptor(app.ImageSpec{Name: "team/api"}, "", true)
	require.NoError(t, err)

	assert.Equal(t, "team/api", img.Name)
	assert.Equal(t, app.DefaultImageTag, img.Tag)
	assert.Nil(t, img.BuildArgs)
	assert.True(t, img.UseCache)
}

func TestCloneStrings(t *testing.T) {
	assert.Nil(t, cloneStrings(nil))
	assert.Nil(t, cloneStrings([]string{}))

	src := []string{"a", "b"}
	out := cloneStrings(src)
	out[0] = "z"
	assert.Equal(t, "a", src[0])
}
