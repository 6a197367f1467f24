package builder

import (
	"fmt"
	"strings"

	"github.com/distribution/reference"

	"github.com/artpar/appdesc/internal/core/app"
	"github.com/artpar/appdesc/internal/core/merge"
	"github.com/artpar/appdesc/internal/core/resource"
)

// =============================================================================
// Container Field Helpers
// =============================================================================

// QualifyImageRef prefixes ref with registry when ref names no registry of
// its own. An empty registry returns ref unchanged.
//
// Example:
//
//	QualifyImageRef("team/api:1.0", "registry.example.com")
//	// Returns: "registry.example.com/team/api:1.0"
//
//	QualifyImageRef("ghcr.io/team/api:1.0", "registry.example.com")
//	// Returns: "ghcr.io/team/api:1.0"
func QualifyImageRef(ref, registry string) (string, error) {
	if _, err := reference.ParseNormalizedNamed(ref); err != nil {
		return "", fmt.Errorf("invalid image reference %q: %w", ref, err)
	}
	registry = strings.TrimSuffix(registry, "/")
	if registry == "" || hasRegistry(ref) {
		return ref, nil
	}

	qualified := registry + "/" + ref
	if _, err := reference.ParseNormalizedNamed(qualified); err != nil {
		return "", fmt.Errorf("invalid registry %q for image %q: %w", registry, ref, err)
	}
	return qualified, nil
}

// hasRegistry reports whether the first path component of ref is a
// registry host, using the same rule as distribution/reference: it holds a
// dot, a colon or an uppercase letter, or is localhost.
func hasRegistry(ref string) bool {
	i := strings.IndexRune(ref, '/')
	if i == -1 {
		return false
	}
	first := ref[:i]
	return strings.ContainsAny(first, ".:") || first == "localhost" || strings.ToLower(first) != first
}

func imageDescriptor(spec app.ImageSpec, registry string, useCache bool) (resource.Image, error) {
	name, err := QualifyImageRef(spec.Name, registry)
	if err != nil {
		return resource.Image{}, app.NewConfigurationError("image.image", err.Error(), app.ErrInvalidConfig)
	}
	tag := spec.Tag
	if tag == "" {
		tag = app.DefaultImageTag
	}
	return resource.Image{
		Name:            name,
		Tag:             tag,
		Path:            spec.Path,
		Dockerfile:      spec.Dockerfile,
		BuildArgs:       merge.OrNil(merge.Layered(spec.BuildArgs)),
		Platform:        spec.Platform,
		Pull:            spec.Pull,
		SkipDockerCache: spec.SkipDockerCache,
		UseCache:        useCache,
	}, nil
}

// containerLabels puts the managed labels under the configured ones.
func containerLabels(cfg app.Config, workspaceName string) map[string]string {
	managed := map[string]string{
		resource.LabelManaged:   "true",
		resource.LabelApp:       cfg.Name,
		resource.LabelWorkspace: workspaceName,
		resource.LabelVersion:   cfg.Version,
	}
	return merge.Layered(managed, cfg.Container.Labels)
}

func restartPolicy(rp *app.RestartPolicy) *resource.RestartPolicy {
	if rp == nil {
		return nil
	}
	policy := &resource.RestartPolicy{Name: rp.Name}
	if rp.Name == app.RestartOnFailure {
		policy.MaximumRetryCount = rp.MaximumRetryCount
	}
	return policy
}

func healthCheck(hc *app.HealthCheck) *resource.HealthCheck {
	if hc == nil {
		return nil
	}
	return &resource.HealthCheck{
		Test:        cloneStrings(hc.Test),
		Interval:    hc.Interval,
		Timeout:     hc.Timeout,
		Retries:     hc.Retries,
		StartPeriod: hc.StartPeriod,
	}
}

func lifecycle(lc app.LifecycleConfig) resource.Lifecycle {
	return resource.Lifecycle{
		SkipCreate:       lc.SkipCreate,
		SkipRead:         lc.SkipRead,
		SkipUpdate:       lc.SkipUpdate,
		SkipDelete:       lc.SkipDelete,
		RecreateOnUpdate: lc.RecreateOnUpdate,
		WaitForCreation:  lc.WaitForCreation,
		WaitForUpdate:    lc.WaitForUpdate,
		WaitForDeletion:  lc.WaitForDeletion,
		WaiterDelay:      lc.WaiterDelay,
		WaiterAttempts:   lc.WaiterAttempts,
	}
}

func cloneStrings(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return append([]string(nil), s...)
}
