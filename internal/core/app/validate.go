package app

import (
	"fmt"
	"maps"
	"path"
	"slices"
	"strings"

	"github.com/distribution/reference"
	"github.com/docker/go-connections/nat"
)

// =============================================================================
// Validation
// =============================================================================

// Validate checks the record and returns a *ValidationError listing every
// problem, or nil.
func (c Config) Validate() error {
	var problems []FieldError
	add := func(field, format string, args ...any) {
		problems = append(problems, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(c.Name) == "" {
		add("name", "is required")
	}

	// Image
	if c.Image.Image != nil {
		if c.Image.Image.Name == "" {
			add("image.image.name", "is required")
		} else if err := ValidateImageRef(c.Image.Image.Ref()); err != nil {
			add("image.image", "%v", err)
		}
	} else if c.Image.Name == "" {
		add("image.name", "is required when no image object is given")
	} else if err := ValidateImageRef(c.ImageRef()); err != nil {
		add("image.name", "%v", err)
	}

	// Ports
	if c.Ports.Open {
		if !validPort(c.Ports.ContainerPort) {
			add("ports.container_port", "must be between 1 and 65535, got %d", c.Ports.ContainerPort)
		}
		if !validPort(c.Ports.HostPort) {
			add("ports.host_port", "must be between 1 and 65535, got %d", c.Ports.HostPort)
		}
	}
	for _, key := range slices.Sorted(maps.Keys(c.Ports.Explicit)) {
		bindings := c.Ports.Explicit[key]
		if _, err := NormalizePortKey(key); err != nil {
			add("ports.explicit."+key, "%v", err)
		}
		for i, b := range bindings {
			// 0 asks the runtime for a random host port
			if b.Port < 0 || b.Port > 65535 {
				add(fmt.Sprintf("ports.explicit.%s[%d]", key, i), "host port out of range: %d", b.Port)
			}
		}
	}

	// Volumes
	if c.Volumes.MountWorkspace && !path.IsAbs(c.Volumes.ContainerPath) {
		add("volumes.container_path", "must be an absolute path when mounting the workspace, got %q", c.Volumes.ContainerPath)
	}
	switch c.Volumes.WorkspaceVolumeType {
	case "", WorkspaceHostPath:
		if c.Volumes.MountWorkspace && c.Volumes.HostPath != "" && !path.IsAbs(c.Volumes.HostPath) {
			add("volumes.host_path", "must be an absolute path, got %q", c.Volumes.HostPath)
		}
	case WorkspaceEmptyDir:
		if strings.ContainsAny(c.Volumes.WorkspaceVolumeName, "/:") {
			add("volumes.workspace_volume_name", "must be a volume name, got %q", c.Volumes.WorkspaceVolumeName)
		}
	default:
		add("volumes.workspace_volume_type", "must be %s or %s, got %q",
			WorkspaceHostPath, WorkspaceEmptyDir, c.Volumes.WorkspaceVolumeType)
	}
	for _, source := range slices.Sorted(maps.Keys(c.Volumes.Explicit)) {
		bind := c.Volumes.Explicit[source]
		if source == "" {
			add("volumes.explicit", "source must not be empty")
		}
		if !path.IsAbs(bind.Bind) {
			add("volumes.explicit."+source+".bind", "must be an absolute path, got %q", bind.Bind)
		}
		if bind.Mode != "" && bind.Mode != ModeReadWrite && bind.Mode != ModeReadOnly {
			add("volumes.explicit."+source+".mode", "must be rw or ro, got %q", bind.Mode)
		}
	}

	// Restart policy
	if rp := c.Container.RestartPolicy; rp != nil {
		switch rp.Name {
		case RestartNo, RestartAlways, RestartUnlessStopped:
			if rp.MaximumRetryCount != 0 {
				add("container.restart_policy.maximum_retry_count", "only allowed with %s", RestartOnFailure)
			}
		case RestartOnFailure:
			if rp.MaximumRetryCount < 0 {
				add("container.restart_policy.maximum_retry_count", "must not be negative")
			}
		default:
			add("container.restart_policy.name", "unknown policy %q", rp.Name)
		}
	}

	// Health check
	if hc := c.Container.HealthCheck; hc != nil {
		if len(hc.Test) == 0 {
			add("container.healthcheck.test", "is required")
		}
		if hc.Retries < 0 {
			add("container.healthcheck.retries", "must not be negative")
		}
	}

	// ECS
	switch c.ECS.LaunchType {
	case "", "FARGATE", "EC2":
	default:
		add("ecs.launch_type", "must be FARGATE or EC2, got %q", c.ECS.LaunchType)
	}
	if c.ECS.ServiceCount < 0 {
		add("ecs.service_count", "must not be negative")
	}

	if c.Lifecycle.WaiterAttempts < 0 {
		add("lifecycle.waiter_attempts", "must not be negative")
	}

	if len(problems) > 0 {
		return &ValidationError{App: c.Name, Problems: problems}
	}
	return nil
}

// ValidateImageRef checks that ref is a well-formed image reference.
func ValidateImageRef(ref string) error {
	if _, err := reference.ParseNormalizedNamed(ref); err != nil {
		return fmt.Errorf("invalid image reference %q: %w", ref, err)
	}
	return nil
}

// NormalizePortKey turns "9090" or "9090/udp" into "port/proto".
// The protocol defaults to tcp.
func NormalizePortKey(key string) (string, error) {
	proto, port := nat.SplitProtoPort(key)
	switch proto {
	case "tcp", "udp", "sctp":
	default:
		return "", fmt.Errorf("unsupported protocol %q", proto)
	}
	n, err := nat.ParsePort(port)
	if err != nil {
		return "", fmt.Errorf("invalid port %q: %w", port, err)
	}
	if !validPort(n) {
		return "", fmt.Errorf("port out of range: %d", n)
	}
	return fmt.Sprintf("%d/%s", n, proto), nil
}

func validPort(p int) bool {
	return p > 0 && p <= 65535
}
