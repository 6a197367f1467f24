package docker

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// fakeClient is an in-memory Client. Containers are looked up by ID or name.
type fakeClient struct {
	mu sync.Mutex

	containers map[string]*ContainerInfo // by ID
	specs      map[string]ContainerSpec  // by ID
	networks   map[string]NetworkSpec
	images     map[string]bool
	pulled     []string
	calls      []string
	nextID     int

	// Injected behaviour
	createErr     error
	startErr      error
	exitCode      int64
	exitOnStart   bool // started containers report exited
	networkInUse  bool
	removeIgnored bool // RemoveContainer succeeds but leaves the container
	holdCreated   bool // started containers never reach running
	honorCancel   bool // stop and remove fail on a done context
	startHook     func()
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		containers: make(map[string]*ContainerInfo),
		specs:      make(map[string]ContainerSpec),
		networks:   make(map[string]NetworkSpec),
		images:     make(map[string]bool),
	}
}

func (f *fakeClient) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeClient) find(idOrName string) *ContainerInfo {
	if c, ok := f.containers[idOrName]; ok {
		return c
	}
	for _, c := range f.containers {
		if c.Name == idOrName {
			return c
		}
	}
	return nil
}

// addContainer seeds a container as if a previous apply had created it.
func (f *fakeClient) addContainer(name string, status ContainerStatus) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("existing%010d", f.nextID)
	f.containers[id] = &ContainerInfo{ID: id, Name: name, Status: status}
	return id
}

func (f *fakeClient) CreateContainer(_ context.Context, spec ContainerSpec) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("create %s", spec.Name)
	if f.createErr != nil {
		return "", f.createErr
	}
	if f.find(spec.Name) != nil {
		return "", NewDockerError("CreateContainer", "container", spec.Name, "container already exists", ErrContainerAlreadyExists)
	}
	f.nextID++
	id := fmt.Sprintf("container%010d", f.nextID)
	f.containers[id] = &ContainerInfo{
		ID:        id,
		Name:      spec.Name,
		Image:     spec.Image,
		Status:    ContainerStatusCreated,
		Labels:    spec.Labels,
		CreatedAt: time.Now(),
	}
	f.specs[id] = spec
	return id, nil
}

func (f *fakeClient) StartContainer(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("start %s", id)
	if f.startErr != nil {
		return f.startErr
	}
	c := f.find(id)
	if c == nil {
		return NewDockerError("StartContainer", "container", id, "container not found", ErrContainerNotFound)
	}
	if f.startHook != nil {
		f.startHook()
	}
	if f.holdCreated {
		return nil
	}
	c.Status = ContainerStatusRunning
	if f.exitOnStart {
		c.Status = ContainerStatusExited
		c.ExitCode = int(f.exitCode)
	}
	return nil
}

func (f *fakeClient) StopContainer(ctx context.Context, id string, _ *time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("stop %s", id)
	if f.honorCancel && ctx.Err() != nil {
		return ctx.Err()
	}
	c := f.find(id)
	if c == nil {
		return NewDockerError("StopContainer", "container", id, "container not found", ErrContainerNotFound)
	}
	if c.Status != ContainerStatusRunning {
		return NewDockerError("StopContainer", "container", id, "container is not running", ErrContainerNotRunning)
	}
	c.Status = ContainerStatusExited
	return nil
}

func (f *fakeClient) RemoveContainer(ctx context.Context, id string, _ RemoveOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("remove %s", id)
	if f.honorCancel && ctx.Err() != nil {
		return ctx.Err()
	}
	c := f.find(id)
	if c == nil {
		return NewDockerError("RemoveContainer", "container", id, "container not found", ErrContainerNotFound)
	}
	if !f.removeIgnored {
		delete(f.containers, c.ID)
	}
	return nil
}

func (f *fakeClient) InspectContainer(_ context.Context, id string) (*ContainerInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.find(id)
	if c == nil {
		return nil, NewDockerError("InspectContainer", "container", id, "container not found", ErrContainerNotFound)
	}
	info := *c
	return &info, nil
}

func (f *fakeClient) ListContainers(_ context.Context, opts ListOptions) ([]ContainerInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ContainerInfo
	for _, c := range f.containers {
		if label, ok := opts.Filters["label"]; ok {
			matched := false
			for k, v := range c.Labels {
				if k+"="+v == label {
					matched = true
				}
			}
			if !matched {
				continue
			}
		}
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeClient) WaitContainer(_ context.Context, id string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("wait %s", id)
	c := f.find(id)
	if c == nil {
		return 0, NewDockerError("WaitContainer", "container", id, "container not found", ErrContainerNotFound)
	}
	c.Status = ContainerStatusExited
	c.ExitCode = int(f.exitCode)
	return f.exitCode, nil
}

func (f *fakeClient) CreateNetwork(_ context.Context, spec NetworkSpec) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("create-network %s", spec.Name)
	if _, ok := f.networks[spec.Name]; ok {
		return "", NewDockerError("CreateNetwork", "network", spec.Name, "network already exists", ErrNetworkAlreadyExists)
	}
	f.networks[spec.Name] = spec
	return "net-" + spec.Name, nil
}

func (f *fakeClient) NetworkExists(_ context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.networks[name]
	return ok, nil
}

func (f *fakeClient) RemoveNetwork(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("remove-network %s", name)
	if _, ok := f.networks[name]; !ok {
		return NewDockerError("RemoveNetwork", "network", name, "network not found", ErrNetworkNotFound)
	}
	if f.networkInUse {
		return NewDockerError("RemoveNetwork", "network", name, "network has active endpoints", ErrNetworkInUse)
	}
	delete(f.networks, name)
	return nil
}

func (f *fakeClient) PullImage(_ context.Context, image string, _ PullOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pulled = append(f.pulled, image)
	f.images[image] = true
	return nil
}

func (f *fakeClient) ImageExists(_ context.Context, image string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.images[image], nil
}

func (f *fakeClient) Ping(context.Context) error { return nil }
func (f *fakeClient) Close() error               { return nil }

var _ Client = (*fakeClient)(nil)
var _ Client = (*DockerClient)(nil)
