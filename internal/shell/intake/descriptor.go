package intake

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/artpar/appdesc/internal/core/app"
)

// EnvPrefix prefixes environment overrides of descriptor keys, e.g.
// APPDESC_APP_PORTS_HOST_PORT=8080.
const EnvPrefix = "APPDESC_APP"

// =============================================================================
// Descriptor Loading
// =============================================================================

// LoadDescriptor reads a YAML or JSON descriptor, applies defaults and
// environment overrides, and validates the result. A *app.ValidationError
// is logged and returned unchanged.
func (i *Intake) LoadDescriptor(path string) (app.Config, error) {
	v := viper.New()
	setDescriptorDefaults(v)

	v.SetConfigFile(path)
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".json" {
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return app.Config{}, NewIntakeError("LoadDescriptor", "descriptor", path, "file does not exist", ErrDescriptorNotFound)
		}
		return app.Config{}, NewIntakeError("LoadDescriptor", "descriptor", path, err.Error(), ErrDescriptorParse)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg app.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return app.Config{}, NewIntakeError("LoadDescriptor", "descriptor", path, err.Error(), ErrDescriptorParse)
	}
	if err := restoreKeyCase(path, &cfg); err != nil {
		return app.Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		i.logger.Error("invalid application descriptor", "app", cfg.Name, "path", path, "error", err)
		return app.Config{}, err
	}

	i.logger.Debug("loaded application descriptor", "app", cfg.Name, "path", path)
	return cfg, nil
}

func setDescriptorDefaults(v *viper.Viper) {
	d := app.Defaults()

	v.SetDefault("name", d.Name)
	v.SetDefault("version", d.Version)
	v.SetDefault("enabled", d.Enabled)
	v.SetDefault("debug_mode", d.DebugMode)

	v.SetDefault("image.name", d.Image.Name)
	v.SetDefault("image.tag", d.Image.Tag)
	v.SetDefault("image.command", d.Image.Command)
	v.SetDefault("image.install_requirements", d.Image.InstallRequirements)
	v.SetDefault("image.requirements_file", d.Image.RequirementsFile)

	v.SetDefault("container.name", "")
	v.SetDefault("container.detach", d.Container.Detach)
	v.SetDefault("container.auto_remove", d.Container.AutoRemove)
	v.SetDefault("container.remove", d.Container.Remove)
	v.SetDefault("container.stdin_open", d.Container.StdinOpen)
	v.SetDefault("container.tty", d.Container.TTY)
	v.SetDefault("container.stdout", d.Container.Stdout)
	v.SetDefault("container.stderr", d.Container.Stderr)
	v.SetDefault("container.user", "")
	v.SetDefault("container.platform", "")

	v.SetDefault("env.python_path", "")
	v.SetDefault("env.add_python_path", "")
	v.SetDefault("env.env_file", "")
	v.SetDefault("env.secrets_file", "")
	v.SetDefault("env.cloud_secrets", "")
	v.SetDefault("env.print_env_on_load", d.Env.PrintEnvOnLoad)

	v.SetDefault("ports.open", d.Ports.Open)
	v.SetDefault("ports.container_port", d.Ports.ContainerPort)
	v.SetDefault("ports.name", d.Ports.Name)
	v.SetDefault("ports.host_port", d.Ports.HostPort)

	v.SetDefault("volumes.mount_workspace", d.Volumes.MountWorkspace)
	v.SetDefault("volumes.container_path", d.Volumes.ContainerPath)
	v.SetDefault("volumes.host_path", "")

	v.SetDefault("ecs.cluster", "")
	v.SetDefault("ecs.launch_type", d.ECS.LaunchType)
	v.SetDefault("ecs.task_cpu", d.ECS.TaskCPU)
	v.SetDefault("ecs.task_memory", d.ECS.TaskMemory)
	v.SetDefault("ecs.service_count", d.ECS.ServiceCount)
	v.SetDefault("ecs.assign_public_ip", d.ECS.AssignPublicIP)

	v.SetDefault("lifecycle.skip_create", d.Lifecycle.SkipCreate)
	v.SetDefault("lifecycle.skip_delete", d.Lifecycle.SkipDelete)
	v.SetDefault("lifecycle.wait_for_creation", d.Lifecycle.WaitForCreation)
	v.SetDefault("lifecycle.wait_for_update", d.Lifecycle.WaitForUpdate)
	v.SetDefault("lifecycle.wait_for_deletion", d.Lifecycle.WaitForDeletion)
	v.SetDefault("lifecycle.waiter_delay", d.Lifecycle.WaiterDelay.String())
	v.SetDefault("lifecycle.waiter_attempts", d.Lifecycle.WaiterAttempts)
	v.SetDefault("lifecycle.use_cache", d.Lifecycle.UseCache)
}

// caseSensitiveMaps holds the descriptor maps whose keys must keep their
// case. viper lowercases every key it reads.
type caseSensitiveMaps struct {
	Image struct {
		Image *struct {
			BuildArgs map[string]string `yaml:"build_args"`
		} `yaml:"image"`
	} `yaml:"image"`
	Container struct {
		Labels map[string]string `yaml:"labels"`
	} `yaml:"container"`
	Env struct {
		Env     map[string]string `yaml:"env"`
		Secrets map[string]string `yaml:"secrets"`
	} `yaml:"env"`
	Volumes struct {
		Explicit map[string]app.VolumeBind `yaml:"explicit"`
	} `yaml:"volumes"`
}

// restoreKeyCase re-reads the descriptor maps with their original keys.
// JSON descriptors are valid YAML.
func restoreKeyCase(path string, cfg *app.Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return NewIntakeError("LoadDescriptor", "descriptor", path, err.Error(), ErrDescriptorParse)
	}
	var raw caseSensitiveMaps
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return NewIntakeError("LoadDescriptor", "descriptor", path, err.Error(), ErrDescriptorParse)
	}

	if raw.Env.Env != nil {
		cfg.Env.Env = raw.Env.Env
	}
	if raw.Env.Secrets != nil {
		cfg.Env.Secrets = raw.Env.Secrets
	}
	if raw.Volumes.Explicit != nil {
		cfg.Volumes.Explicit = raw.Volumes.Explicit
	}
	if raw.Container.Labels != nil {
		cfg.Container.Labels = raw.Container.Labels
	}
	if raw.Image.Image != nil && raw.Image.Image.BuildArgs != nil && cfg.Image.Image != nil {
		cfg.Image.Image.BuildArgs = raw.Image.Image.BuildArgs
	}
	return nil
}
