// Copyright 2026 Meshlayer

package gpualloc

import "fmt"

// Strategy selects which device an allocation request is routed to,
// following the teacher's string-enum-plus-dispatch idiom
// (pkg/chain/strategy/interface.go's ChainPlatform).
type Strategy string

const (
	FirstFit      Strategy = "first_fit"
	BestFit       Strategy = "best_fit"
	RoundRobin    Strategy = "round_robin"
	LeastUtilized Strategy = "least_utilized"
)

func (s Strategy) String() string { return string(s) }

// IsValid reports whether s is a known strategy.
func (s Strategy) IsValid() bool {
	switch s {
	case FirstFit, BestFit, RoundRobin, LeastUtilized:
		return true
	default:
		return false
	}
}

// Device is one GPU's memory accounting.
type Device struct {
	ID            string
	TotalMemoryMB int64
	UsedMemoryMB  int64
}

// AvailableMB returns the device's free memory.
func (d Device) AvailableMB() int64 {
	return d.TotalMemoryMB - d.UsedMemoryMB
}

// Allocation is the result of a successful AllocateGPU call.
type Allocation struct {
	DeviceID      string
	MemoryMB      int64
	IsCPUFallback bool
}

// InsufficientMemory is returned when no device can satisfy a
// request and CPU fallback is unavailable or disallowed.
type InsufficientMemory struct {
	Requested int64
	Available int64
}

func (e *InsufficientMemory) Error() string {
	return fmt.Sprintf("gpualloc: insufficient memory: requested %dMB, available %dMB", e.Requested, e.Available)
}
