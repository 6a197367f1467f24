package store

import (
	"context"
	"time"
)

// =============================================================================
// Run Types
// =============================================================================

// Action is what a run did to a resource group.
type Action string

const (
	ActionApply   Action = "apply"
	ActionDestroy Action = "destroy"
)

// RunStatus is the state of a run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
	RunStatusSkipped   RunStatus = "skipped"
)

// Run is one apply or destroy of a resource group.
type Run struct {
	ID         string
	Group      string
	Backend    string
	Action     Action
	Status     RunStatus
	Message    string
	StartedAt  time.Time
	FinishedAt *time.Time
	Containers []RunContainer
}

// RunContainer records what a run did to one container.
type RunContainer struct {
	Name        string
	ContainerID string
	Outcome     string // created, cached, removed, absent, skipped
}

// =============================================================================
// Store Interface
// =============================================================================

// Store defines the persistence interface for run history.
type Store interface {
	// RecordRun inserts a run in the running state.
	RecordRun(ctx context.Context, run *Run) error
	// FinishRun sets the final status of a running run with its containers.
	FinishRun(ctx context.Context, id string, status RunStatus, message string, containers []RunContainer, finishedAt time.Time) error
	GetRun(ctx context.Context, id string) (*Run, error)
	// ListRuns returns runs newest first. An empty group lists every group.
	ListRuns(ctx context.Context, group string, opts ListOptions) ([]Run, error)

	// Transaction support
	WithTx(ctx context.Context, fn func(Store) error) error

	// Lifecycle
	Close() error
}

// =============================================================================
// Options
// =============================================================================

// ListOptions defines pagination options.
type ListOptions struct {
	Limit  int
	Offset int
}

// DefaultListOptions returns default list options.
func DefaultListOptions() ListOptions {
	return ListOptions{
		Limit:  100,
		Offset: 0,
	}
}

// Normalize ensures list options have valid values.
func (o ListOptions) Normalize() ListOptions {
	if o.Limit <= 0 {
		o.Limit = 100
	}
	if o.Limit > 1000 {
		o.Limit = 1000
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}
