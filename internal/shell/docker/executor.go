package docker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/artpar/appdesc/internal/core/resource"
	"github.com/artpar/appdesc/internal/shell/store"
)

// Container outcomes recorded in the run history.
const (
	OutcomeCreated = "created"
	OutcomeCached  = "cached"
	OutcomeSkipped = "skipped"
	OutcomeRemoved = "removed"
	OutcomeAbsent  = "absent"
)

// DefaultStopTimeout is how long Destroy waits for a container to stop.
const DefaultStopTimeout = 10 * time.Second

// cleanupTimeout bounds the removal of containers after a failed apply.
const cleanupTimeout = 30 * time.Second

// =============================================================================
// Executor - Applies Docker Resource Groups
// =============================================================================

// Executor creates and removes the resources of Docker groups.
type Executor struct {
	docker      Client
	history     store.Store // nil disables run recording
	logger      *slog.Logger
	stopTimeout time.Duration

	now   func() time.Time
	newID func() string
}

// Result is the outcome of one Apply or Destroy.
type Result struct {
	RunID      string
	Status     store.RunStatus
	Containers []store.RunContainer
}

// NewExecutor creates a new executor. history may be nil.
func NewExecutor(docker Client, history store.Store, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		docker:      docker,
		history:     history,
		logger:      logger.With("component", "executor"),
		stopTimeout: DefaultStopTimeout,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       func() string { return uuid.New().String() },
	}
}

func checkGroup(op string, group *resource.Group) error {
	if group == nil {
		return NewDockerError(op, "group", "", "resource group is nil", ErrNilGroup)
	}
	if group.Backend != resource.BackendDocker {
		return NewDockerError(op, "group", group.Name,
			fmt.Sprintf("backend %q is not supported", group.Backend), ErrUnsupportedBackend)
	}
	return nil
}

// =============================================================================
// Apply
// =============================================================================

// Apply brings the group's network, images and containers into existence.
// Containers created by a failed apply are removed again.
func (e *Executor) Apply(ctx context.Context, group *resource.Group) (*Result, error) {
	if err := checkGroup("Apply", group); err != nil {
		return nil, err
	}
	logger := e.logger.With("group", group.Name)

	res, err := e.startRun(ctx, group, store.ActionApply)
	if err != nil {
		return nil, err
	}

	if !group.Enabled {
		logger.Info("group disabled, skipping apply")
		return e.finishRun(ctx, res, store.RunStatusSkipped, "group disabled", nil)
	}

	if err := e.apply(ctx, logger, group, res); err != nil {
		logger.Error("apply failed", "error", err)
		return e.finishRun(ctx, res, store.RunStatusFailed, err.Error(), err)
	}

	logger.Info("apply finished", "run_id", res.RunID, "containers", len(res.Containers))
	return e.finishRun(ctx, res, store.RunStatusSucceeded, "", nil)
}

func (e *Executor) apply(ctx context.Context, logger *slog.Logger, group *resource.Group, res *Result) error {
	if group.Network != nil && group.Network.Name != "" {
		if err := e.ensureNetwork(ctx, group.Name, *group.Network); err != nil {
			return err
		}
	}

	pulled := make(map[string]bool)
	for _, img := range group.Images {
		if err := e.ensureImage(ctx, logger, img.Ref(), img.Platform, img.Pull, pulled); err != nil {
			return err
		}
	}

	var created []string
	for _, c := range group.Containers {
		rc, isNew, err := e.applyContainer(ctx, logger, group.Lifecycle, c, pulled)
		if isNew {
			created = append(created, rc.ContainerID)
		}
		if err != nil {
			e.cleanupCreatedContainers(ctx, logger, created)
			return err
		}
		res.Containers = append(res.Containers, rc)
	}
	return nil
}

// applyContainer reports whether it created a container so the caller can
// clean it up on a later failure.
func (e *Executor) applyContainer(ctx context.Context, logger *slog.Logger, lc resource.Lifecycle, c resource.Container, pulled map[string]bool) (store.RunContainer, bool, error) {
	rc := store.RunContainer{Name: c.Name}
	logger = logger.With("container", c.Name)

	if lc.SkipCreate {
		logger.Debug("skip_create set, leaving container alone")
		rc.Outcome = OutcomeSkipped
		return rc, false, nil
	}

	waitForStart := lc.WaitForCreation
	existing, err := e.docker.InspectContainer(ctx, c.Name)
	switch {
	case err == nil:
		if c.UseCache && existing.Status == ContainerStatusRunning {
			logger.Info("container already running, reusing it", "container_id", shortID(existing.ID))
			rc.ContainerID = existing.ID
			rc.Outcome = OutcomeCached
			return rc, false, nil
		}
		if lc.SkipUpdate {
			logger.Info("skip_update set, leaving existing container alone", "container_id", shortID(existing.ID), "status", existing.Status)
			rc.ContainerID = existing.ID
			rc.Outcome = OutcomeSkipped
			return rc, false, nil
		}
		// Docker cannot change a container's config in place, so every
		// update recreates it.
		waitForStart = lc.WaitForUpdate
		logger.Info("replacing existing container", "container_id", shortID(existing.ID), "status", existing.Status)
		if err := e.docker.RemoveContainer(ctx, existing.ID, RemoveOptions{Force: true}); err != nil && !errors.Is(err, ErrContainerNotFound) {
			return rc, false, fmt.Errorf("failed to remove existing container %s: %w", c.Name, err)
		}
	case errors.Is(err, ErrContainerNotFound):
	default:
		return rc, false, fmt.Errorf("failed to inspect container %s: %w", c.Name, err)
	}

	if err := e.ensureImage(ctx, logger, c.Image, c.Platform, false, pulled); err != nil {
		return rc, false, err
	}

	spec, err := SpecFromContainer(c)
	if err != nil {
		return rc, false, err
	}
	id, err := e.docker.CreateContainer(ctx, spec)
	if err != nil {
		return rc, false, fmt.Errorf("failed to create container %s: %w", c.Name, err)
	}
	rc.ContainerID = id
	rc.Outcome = OutcomeCreated
	logger.Debug("created container", "container_id", shortID(id))

	if err := e.docker.StartContainer(ctx, id); err != nil && !errors.Is(err, ErrContainerAlreadyRunning) {
		return rc, true, fmt.Errorf("failed to start container %s: %w", c.Name, err)
	}
	logger.Info("started container", "container_id", shortID(id))

	if !c.Detach {
		return rc, true, e.runForeground(ctx, logger, c, id)
	}
	if waitForStart {
		err := e.waitFor(ctx, lc, id, func(info *ContainerInfo, err error) (bool, error) {
			if err != nil {
				return false, err
			}
			switch info.Status {
			case ContainerStatusRunning:
				return true, nil
			case ContainerStatusExited, ContainerStatusDead:
				return false, NewDockerError("Apply", "container", c.Name,
					fmt.Sprintf("exited with code %d", info.ExitCode), ErrContainerExited)
			}
			return false, nil
		})
		if err != nil {
			return rc, true, err
		}
	}
	return rc, true, nil
}

// runForeground waits for an attached container to exit.
func (e *Executor) runForeground(ctx context.Context, logger *slog.Logger, c resource.Container, id string) error {
	code, err := e.docker.WaitContainer(ctx, id)
	if err != nil {
		return err
	}
	logger.Info("container exited", "container_id", shortID(id), "exit_code", code)

	if c.Remove && !c.AutoRemove {
		if err := e.docker.RemoveContainer(ctx, id, RemoveOptions{}); err != nil && !errors.Is(err, ErrContainerNotFound) {
			logger.Warn("failed to remove exited container", "container_id", shortID(id), "error", err)
		}
	}
	if code != 0 {
		return NewDockerError("Apply", "container", c.Name, fmt.Sprintf("exited with code %d", code), ErrContainerExited)
	}
	return nil
}

func (e *Executor) ensureNetwork(ctx context.Context, groupName string, n resource.Network) error {
	exists, err := e.docker.NetworkExists(ctx, n.Name)
	if err != nil {
		return fmt.Errorf("failed to inspect network %s: %w", n.Name, err)
	}
	if exists {
		return nil
	}

	labels := map[string]string{
		resource.LabelManaged: "true",
		resource.LabelApp:     groupName,
	}
	for k, v := range n.Labels {
		labels[k] = v
	}
	id, err := e.docker.CreateNetwork(ctx, NetworkSpec{Name: n.Name, Driver: n.Driver, Labels: labels})
	if err != nil {
		if errors.Is(err, ErrNetworkAlreadyExists) {
			return nil
		}
		return fmt.Errorf("failed to create network %s: %w", n.Name, err)
	}
	e.logger.Debug("created network", "network", n.Name, "network_id", shortID(id))
	return nil
}

// ensureImage pulls ref when it is missing locally or force is set.
// Each ref is handled once per apply.
func (e *Executor) ensureImage(ctx context.Context, logger *slog.Logger, ref, platform string, force bool, seen map[string]bool) error {
	if seen[ref] {
		return nil
	}
	seen[ref] = true

	if !force {
		exists, err := e.docker.ImageExists(ctx, ref)
		if err != nil {
			return fmt.Errorf("failed to inspect image %s: %w", ref, err)
		}
		if exists {
			return nil
		}
	}

	logger.Info("pulling image", "image", ref)
	if err := e.docker.PullImage(ctx, ref, PullOptions{Platform: platform}); err != nil {
		return fmt.Errorf("failed to pull image %s: %w", ref, err)
	}
	return nil
}

// cleanupCreatedContainers removes containers created by a failed apply.
// It runs detached from ctx so a cancelled apply still cleans up.
func (e *Executor) cleanupCreatedContainers(ctx context.Context, logger *slog.Logger, ids []string) {
	if len(ids) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	timeout := 5 * time.Second
	for _, id := range ids {
		_ = e.docker.StopContainer(ctx, id, &timeout)
		if err := e.docker.RemoveContainer(ctx, id, RemoveOptions{Force: true}); err != nil && !errors.Is(err, ErrContainerNotFound) {
			logger.Warn("failed to remove container after failed apply", "container_id", shortID(id), "error", err)
			continue
		}
		logger.Debug("removed container after failed apply", "container_id", shortID(id))
	}
}

// =============================================================================
// Destroy
// =============================================================================

// Destroy stops and removes the group's containers, then its network.
// A network still used by other containers is left in place.
func (e *Executor) Destroy(ctx context.Context, group *resource.Group) (*Result, error) {
	if err := checkGroup("Destroy", group); err != nil {
		return nil, err
	}
	logger := e.logger.With("group", group.Name)

	res, err := e.startRun(ctx, group, store.ActionDestroy)
	if err != nil {
		return nil, err
	}

	switch {
	case !group.Enabled:
		logger.Info("group disabled, skipping destroy")
		return e.finishRun(ctx, res, store.RunStatusSkipped, "group disabled", nil)
	case group.Lifecycle.SkipDelete:
		logger.Info("skip_delete set, skipping destroy")
		return e.finishRun(ctx, res, store.RunStatusSkipped, "skip_delete set", nil)
	}

	for _, c := range group.Containers {
		rc, err := e.destroyContainer(ctx, logger, group.Lifecycle, c)
		if err != nil {
			logger.Error("destroy failed", "container", c.Name, "error", err)
			return e.finishRun(ctx, res, store.RunStatusFailed, err.Error(), err)
		}
		res.Containers = append(res.Containers, rc)
	}

	if group.Network != nil && group.Network.Name != "" {
		if err := e.docker.RemoveNetwork(ctx, group.Network.Name); err != nil {
			switch {
			case errors.Is(err, ErrNetworkNotFound):
			case errors.Is(err, ErrNetworkInUse):
				logger.Warn("network still in use, keeping it", "network", group.Network.Name)
			default:
				return e.finishRun(ctx, res, store.RunStatusFailed, err.Error(), err)
			}
		}
	}

	logger.Info("destroy finished", "run_id", res.RunID)
	return e.finishRun(ctx, res, store.RunStatusSucceeded, "", nil)
}

func (e *Executor) destroyContainer(ctx context.Context, logger *slog.Logger, lc resource.Lifecycle, c resource.Container) (store.RunContainer, error) {
	rc := store.RunContainer{Name: c.Name}

	info, err := e.docker.InspectContainer(ctx, c.Name)
	if err != nil {
		if errors.Is(err, ErrContainerNotFound) {
			rc.Outcome = OutcomeAbsent
			return rc, nil
		}
		return rc, fmt.Errorf("failed to inspect container %s: %w", c.Name, err)
	}
	rc.ContainerID = info.ID

	timeout := e.stopTimeout
	if err := e.docker.StopContainer(ctx, info.ID, &timeout); err != nil &&
		!errors.Is(err, ErrContainerNotRunning) && !errors.Is(err, ErrContainerNotFound) {
		return rc, fmt.Errorf("failed to stop container %s: %w", c.Name, err)
	}
	if err := e.docker.RemoveContainer(ctx, info.ID, RemoveOptions{Force: true}); err != nil && !errors.Is(err, ErrContainerNotFound) {
		return rc, fmt.Errorf("failed to remove container %s: %w", c.Name, err)
	}

	if lc.WaitForDeletion {
		err := e.waitFor(ctx, lc, info.ID, func(_ *ContainerInfo, err error) (bool, error) {
			if errors.Is(err, ErrContainerNotFound) {
				return true, nil
			}
			return false, err
		})
		if err != nil {
			return rc, err
		}
	}

	logger.Info("removed container", "container", c.Name, "container_id", shortID(info.ID))
	rc.Outcome = OutcomeRemoved
	return rc, nil
}

// =============================================================================
// Status
// =============================================================================

// Status lists the containers labelled with the group's name, stopped ones
// included. Each container is inspected for its health and restart count.
func (e *Executor) Status(ctx context.Context, groupName string) ([]ContainerInfo, error) {
	list, err := e.docker.ListContainers(ctx, ListOptions{
		All: true,
		Filters: map[string]string{
			"label": fmt.Sprintf("%s=%s", resource.LabelApp, groupName),
		},
	})
	if err != nil {
		return nil, err
	}

	out := make([]ContainerInfo, 0, len(list))
	for _, c := range list {
		info, err := e.docker.InspectContainer(ctx, c.ID)
		if err != nil {
			// removed between list and inspect
			if errors.Is(err, ErrContainerNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, *info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// =============================================================================
// Helper Functions
// =============================================================================

// waitFor polls the container until done reports true, up to
// lc.WaiterAttempts times with lc.WaiterDelay between polls.
func (e *Executor) waitFor(ctx context.Context, lc resource.Lifecycle, id string, done func(*ContainerInfo, error) (bool, error)) error {
	attempts := lc.WaiterAttempts
	if attempts <= 0 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		ok, err := done(e.docker.InspectContainer(ctx, id))
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if i == attempts-1 {
			break
		}

		timer := time.NewTimer(lc.WaiterDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return NewDockerError("wait", "container", id,
		fmt.Sprintf("gave up after %d attempts", attempts), ErrTimeout)
}

func (e *Executor) startRun(ctx context.Context, group *resource.Group, action store.Action) (*Result, error) {
	res := &Result{RunID: e.newID(), Status: store.RunStatusRunning}
	if e.history == nil {
		return res, nil
	}
	err := e.history.RecordRun(ctx, &store.Run{
		ID:        res.RunID,
		Group:     group.Name,
		Backend:   string(group.Backend),
		Action:    action,
		Status:    store.RunStatusRunning,
		StartedAt: e.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}
	return res, nil
}

// finishRun stores the final status and returns res with runErr. A history
// failure is joined to runErr.
func (e *Executor) finishRun(ctx context.Context, res *Result, status store.RunStatus, message string, runErr error) (*Result, error) {
	res.Status = status
	if e.history == nil {
		return res, runErr
	}
	// Record even when the apply itself was cancelled.
	err := e.history.FinishRun(context.WithoutCancel(ctx), res.RunID, status, message, res.Containers, e.now())
	if err != nil {
		e.logger.Error("failed to finish run", "run_id", res.RunID, "error", err)
		return res, errors.Join(runErr, fmt.Errorf("failed to finish run: %w", err))
	}
	return res, runErr
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
