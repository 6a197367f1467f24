// Package provider contains pure functions for cloud provider logic.
// This is part of the Functional Core - all functions are pure with no I/O.
package provider

import (
	"fmt"
	"slices"
	"strconv"
)

// TaskSize is one Fargate CPU setting with the memory sizes it accepts.
type TaskSize struct {
	CPU        int `json:"cpu"`         // CPU units, 1024 per vCPU
	MinMemory  int `json:"min_memory"`  // MiB
	MaxMemory  int `json:"max_memory"`  // MiB
	MemoryStep int `json:"memory_step"` // MiB
	// Options, when set, lists the only accepted sizes.
	Options []int `json:"options,omitempty"`
}

// Accepts reports whether memory (MiB) is a valid size for this CPU setting.
func (s TaskSize) Accepts(memory int) bool {
	if memory < s.MinMemory || memory > s.MaxMemory {
		return false
	}
	if len(s.Options) > 0 {
		return slices.Contains(s.Options, memory)
	}
	return (memory-s.MinMemory)%s.MemoryStep == 0
}

// =============================================================================
// AWS Fargate Catalog
// =============================================================================

// FargateSizes returns the CPU and memory combinations Fargate accepts.
func FargateSizes() []TaskSize {
	return []TaskSize{
		{CPU: 256, MinMemory: 512, MaxMemory: 2048, MemoryStep: 512, Options: []int{512, 1024, 2048}},
		{CPU: 512, MinMemory: 1024, MaxMemory: 4096, MemoryStep: 1024},
		{CPU: 1024, MinMemory: 2048, MaxMemory: 8192, MemoryStep: 1024},
		{CPU: 2048, MinMemory: 4096, MaxMemory: 16384, MemoryStep: 1024},
		{CPU: 4096, MinMemory: 8192, MaxMemory: 30720, MemoryStep: 1024},
		{CPU: 8192, MinMemory: 16384, MaxMemory: 61440, MemoryStep: 4096},
		{CPU: 16384, MinMemory: 32768, MaxMemory: 122880, MemoryStep: 8192},
	}
}

// ValidateFargateSize checks a task's CPU units and memory (MiB), both given
// as the decimal strings a task definition carries.
func ValidateFargateSize(cpu, memory string) error {
	c, err := strconv.Atoi(cpu)
	if err != nil {
		return fmt.Errorf("%w: cpu %q is not a number", ErrInvalidTaskSize, cpu)
	}
	m, err := strconv.Atoi(memory)
	if err != nil {
		return fmt.Errorf("%w: memory %q is not a number", ErrInvalidTaskSize, memory)
	}

	for _, size := range FargateSizes() {
		if size.CPU != c {
			continue
		}
		if !size.Accepts(m) {
			return fmt.Errorf("%w: cpu %d takes %d-%d MiB in steps of %d, got %d",
				ErrInvalidTaskSize, c, size.MinMemory, size.MaxMemory, size.MemoryStep, m)
		}
		return nil
	}
	return fmt.Errorf("%w: unsupported cpu %d", ErrInvalidTaskSize, c)
}
