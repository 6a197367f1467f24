package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/artpar/appdesc/internal/core/app"
	"github.com/artpar/appdesc/internal/core/builder"
	"github.com/artpar/appdesc/internal/core/compose"
	"github.com/artpar/appdesc/internal/core/monitoring"
	coreprovider "github.com/artpar/appdesc/internal/core/provider"
	"github.com/artpar/appdesc/internal/core/resource"
	"github.com/artpar/appdesc/internal/shell/docker"
	"github.com/artpar/appdesc/internal/shell/intake"
	"github.com/artpar/appdesc/internal/shell/provider"
	"github.com/artpar/appdesc/internal/shell/store"
)

// cli holds state shared by the subcommands.
type cli struct {
	configPath string
	workspace  string

	cfg    *Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "appdesc",
		Short: "Turn application descriptors into container resource groups",
		Long: `appdesc reads application descriptors (YAML or JSON), builds the
Docker or ECS resource group each one describes, and applies Docker groups
against a local or remote daemon.`,
		Version:           Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}
	root.SetVersionTemplate(fmt.Sprintf("appdesc %s (built %s)\n", Version, BuildTime))

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "Path to config file")
	root.PersistentFlags().StringVarP(&c.workspace, "workspace", "w", "", "Workspace root (overrides workspace.root)")

	root.AddCommand(
		c.planCmd(),
		c.composeCmd(),
		c.applyCmd(),
		c.destroyCmd(),
		c.statusCmd(),
		c.historyCmd(),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := LoadConfig(c.configPath)
	if err != nil {
		return &configError{err: err}
	}
	if c.workspace != "" {
		cfg.Workspace.Root = c.workspace
	}
	c.cfg = cfg
	c.logger = SetupLogger(cfg, cmd.ErrOrStderr())
	return nil
}

// =============================================================================
// Commands
// =============================================================================

func (c *cli) planCmd() *cobra.Command {
	var backend string
	cmd := &cobra.Command{
		Use:   "plan <descriptor>...",
		Short: "Print the resource groups of one or more descriptors as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			groups, err := c.plan(cmd.Context(), resource.Backend(backend), args)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(groups)
		},
	}
	cmd.Flags().StringVar(&backend, "backend", string(resource.BackendDocker), "Backend to plan for (docker or ecs)")
	return cmd
}

func (c *cli) composeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compose <descriptor>",
		Short: "Print the Docker resource group of a descriptor as a Compose file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			groups, err := c.plan(cmd.Context(), resource.BackendDocker, args)
			if err != nil {
				return err
			}
			out, err := compose.Marshal(groups[0])
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func (c *cli) applyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply <descriptor>...",
		Short: "Create the Docker resources of one or more descriptors",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.execute(cmd, args, store.ActionApply)
		},
	}
}

func (c *cli) destroyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "destroy <descriptor>...",
		Short: "Remove the Docker resources of one or more descriptors",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.execute(cmd, args, store.ActionDestroy)
		},
	}
}

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <app-name>",
		Short: "List the containers created for an application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			exec, closeFn, err := c.openExecutor(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			containers, err := exec.Status(ctx, args[0])
			if err != nil {
				return err
			}
			return printStatus(cmd.OutOrStdout(), args[0], containers)
		},
	}
}

func (c *cli) historyCmd() *cobra.Command {
	opts := store.DefaultListOptions()
	cmd := &cobra.Command{
		Use:   "history [app-name]",
		Short: "List past apply and destroy runs, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			group := ""
			if len(args) == 1 {
				group = args[0]
			}

			history, err := c.openHistory()
			if err != nil {
				return err
			}
			defer history.Close()

			runs, err := history.ListRuns(cmd.Context(), group, opts)
			if err != nil {
				return err
			}
			return printRuns(cmd.OutOrStdout(), runs)
		},
	}
	cmd.Flags().IntVar(&opts.Limit, "limit", opts.Limit, "Maximum number of runs")
	cmd.Flags().IntVar(&opts.Offset, "offset", opts.Offset, "Number of runs to skip")
	return cmd
}

// =============================================================================
// Planning
// =============================================================================

// plan builds one group per descriptor. A descriptor naming an application
// seen earlier replaces that group in place.
func (c *cli) plan(ctx context.Context, backend resource.Backend, paths []string) ([]*resource.Group, error) {
	secrets, err := c.secretSource()
	if err != nil {
		return nil, err
	}
	in := intake.New(secrets, c.logger)
	registry := resource.NewRegistry()
	planner := builder.NewPlanner(registry, c.logger)

	for _, path := range paths {
		cfg, err := in.LoadDescriptor(path)
		if err != nil {
			return nil, err
		}
		inputs, err := in.Resolve(ctx, cfg, c.cfg.Workspace.Root)
		if err != nil {
			return nil, err
		}
		bctx, err := c.buildContext(ctx, backend, cfg)
		if err != nil {
			return nil, err
		}
		if _, err := planner.Plan(bctx, cfg, inputs); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return registry.Groups(), nil
}

func (c *cli) buildContext(ctx context.Context, backend resource.Backend, cfg app.Config) (resource.BuildContext, error) {
	switch backend {
	case resource.BackendDocker:
		return &resource.DockerBuildContext{
			Network:  c.cfg.Docker.Network,
			Registry: c.cfg.Docker.Registry,
		}, nil
	case resource.BackendECS:
		p, err := c.awsProvider()
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, &configError{err: coreprovider.ErrAWSRegionRequired}
		}
		return p.ECSBuildContext(ctx, cfg.ECS, c.cfg.ECS.Cluster)
	default:
		return nil, fmt.Errorf("unknown backend %q", backend)
	}
}

// awsProvider returns nil when no region is configured.
func (c *cli) awsProvider() (*provider.AWSProvider, error) {
	if c.cfg.AWS.Region == "" {
		return nil, nil
	}
	creds := coreprovider.AWSCredentials{
		Region:          c.cfg.AWS.Region,
		AccessKeyID:     c.cfg.AWS.AccessKeyID,
		SecretAccessKey: c.cfg.AWS.SecretAccessKey,
	}
	if err := coreprovider.ValidateAWSCredentials(creds); err != nil {
		return nil, &configError{err: err}
	}
	return provider.NewAWSProvider(provider.Credentials{
		Region:          creds.Region,
		AccessKeyID:     creds.AccessKeyID,
		SecretAccessKey: creds.SecretAccessKey,
	}, c.logger), nil
}

// secretSource returns an untyped nil without a provider so intake can
// report the missing source.
func (c *cli) secretSource() (intake.SecretSource, error) {
	p, err := c.awsProvider()
	if err != nil || p == nil {
		return nil, err
	}
	return p, nil
}

// =============================================================================
// Execution
// =============================================================================

func (c *cli) execute(cmd *cobra.Command, args []string, action store.Action) error {
	ctx := cmd.Context()
	groups, err := c.plan(ctx, resource.BackendDocker, args)
	if err != nil {
		return err
	}

	exec, closeFn, err := c.openExecutor(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	out := cmd.OutOrStdout()
	for _, group := range groups {
		var res *docker.Result
		if action == store.ActionApply {
			res, err = exec.Apply(ctx, group)
		} else {
			res, err = exec.Destroy(ctx, group)
		}
		if res != nil {
			fmt.Fprintf(out, "%s %s: %s (run %s)\n", action, group.Name, res.Status, res.RunID)
			for _, rc := range res.Containers {
				fmt.Fprintf(out, "  %s %s %s\n", rc.Name, rc.Outcome, shortID(rc.ContainerID))
			}
		}
		if err != nil {
			return fmt.Errorf("%s %s: %w", action, group.Name, err)
		}
	}
	return nil
}

func (c *cli) openExecutor(ctx context.Context) (*docker.Executor, func(), error) {
	client, err := docker.NewDockerClient(ctx, c.cfg.Docker.Host)
	if err != nil {
		return nil, nil, err
	}
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, nil, err
	}

	history, err := c.openHistory()
	if err != nil {
		client.Close()
		return nil, nil, err
	}

	closeFn := func() {
		history.Close()
		client.Close()
	}
	return docker.NewExecutor(client, history, c.logger), closeFn, nil
}

func (c *cli) openHistory() (*store.SQLiteStore, error) {
	dsn := c.cfg.History.DSN
	if dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}
	return store.NewSQLiteStore(dsn)
}

// =============================================================================
// Output
// =============================================================================

func printStatus(w io.Writer, name string, containers []docker.ContainerInfo) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tID\tIMAGE\tSTATUS\tHEALTH\tRESTARTS\tCREATED")

	health := make([]monitoring.HealthStatus, 0, len(containers))
	for _, ci := range containers {
		h := monitoring.ContainerHealth(string(ci.Status), ci.Health, ci.RestartCount)
		health = append(health, h)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			ci.Name, shortID(ci.ID), ci.Image, ci.Status, h, ci.RestartCount, ci.CreatedAt.Format(time.RFC3339))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%s: %s\n", name, monitoring.AggregateHealth(health))
	return err
}

func printRuns(w io.Writer, runs []store.Run) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tAPP\tACTION\tSTATUS\tSTARTED\tFINISHED\tMESSAGE")
	for _, r := range runs {
		finished := "-"
		if r.FinishedAt != nil {
			finished = r.FinishedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Group, r.Action, r.Status, r.StartedAt.Format(time.RFC3339), finished, r.Message)
	}
	return tw.Flush()
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
