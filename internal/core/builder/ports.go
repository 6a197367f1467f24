package builder

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/artpar/appdesc/internal/core/app"
	"github.com/artpar/appdesc/internal/core/merge"
	"github.com/artpar/appdesc/internal/core/resource"
)

// ContainerPorts assembles the published ports keyed by "port/proto".
// With Open the container port is published on the host port; explicit
// ports win on key collision.
func ContainerPorts(cfg app.PortConfig) (map[string][]resource.PortBinding, error) {
	computed := make(map[string][]resource.PortBinding)
	if cfg.Open {
		key, err := app.NormalizePortKey(strconv.Itoa(cfg.ContainerPort))
		if err != nil {
			return nil, app.NewConfigurationError("ports.container_port", err.Error(), app.ErrInvalidConfig)
		}
		computed[key] = []resource.PortBinding{{HostPort: cfg.HostPort}}
	}

	// sorted so that "9090" and "9090/tcp" collide deterministically
	rawKeys := make([]string, 0, len(cfg.Explicit))
	for k := range cfg.Explicit {
		rawKeys = append(rawKeys, k)
	}
	sort.Strings(rawKeys)

	explicit := make(map[string][]resource.PortBinding, len(cfg.Explicit))
	for _, rawKey := range rawKeys {
		hostPorts := cfg.Explicit[rawKey]
		key, err := app.NormalizePortKey(rawKey)
		if err != nil {
			return nil, app.NewConfigurationError("ports.explicit."+rawKey, err.Error(), app.ErrInvalidConfig)
		}
		bindings := make([]resource.PortBinding, 0, len(hostPorts))
		for _, hp := range hostPorts {
			bindings = append(bindings, resource.PortBinding{HostIP: hp.IP, HostPort: hp.Port})
		}
		if len(bindings) == 0 {
			// expose without a fixed host port
			bindings = append(bindings, resource.PortBinding{})
		}
		explicit[key] = bindings
	}

	return merge.Layered(computed, explicit), nil
}

// sortedPortKeys returns the keys of ports in ascending order.
func sortedPortKeys(ports map[string][]resource.PortBinding) []string {
	keys := make([]string, 0, len(ports))
	for k := range ports {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// splitPortKey splits a normalized "port/proto" key.
func splitPortKey(key string) (int, string, error) {
	port, proto, ok := strings.Cut(key, "/")
	if !ok {
		return 0, "", fmt.Errorf("port key %q has no protocol", key)
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return 0, "", fmt.Errorf("port key %q: %w", key, err)
	}
	return n, proto, nil
}
