// Copyright 2026 Meshlayer

package gpualloc

import "testing"

func devices() []Device {
	return []Device{
		{ID: "gpu-0", TotalMemoryMB: 8000, UsedMemoryMB: 0},
		{ID: "gpu-1", TotalMemoryMB: 16000, UsedMemoryMB: 4000},
		{ID: "gpu-2", TotalMemoryMB: 8000, UsedMemoryMB: 6000},
	}
}

func TestNewRejectsUnknownStrategy(t *testing.T) {
	if _, err := New(Config{Strategy: "bogus"}, devices()); err != ErrUnknownStrategy {
		t.Fatalf("expected ErrUnknownStrategy, got %v", err)
	}
}

func TestFirstFitPicksFirstDeviceWithRoom(t *testing.T) {
	m, err := New(Config{Strategy: FirstFit}, devices())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a, err := m.AllocateGPU(5000)
	if err != nil {
		t.Fatalf("AllocateGPU: %v", err)
	}
	if a.DeviceID != "gpu-0" {
		t.Fatalf("expected gpu-0, got %s", a.DeviceID)
	}
}

func TestBestFitPicksTightestFit(t *testing.T) {
	m, err := New(Config{Strategy: BestFit}, devices())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// gpu-0 has 8000 free, gpu-1 has 12000 free, gpu-2 has 2000 free.
	a, err := m.AllocateGPU(1500)
	if err != nil {
		t.Fatalf("AllocateGPU: %v", err)
	}
	if a.DeviceID != "gpu-2" {
		t.Fatalf("expected tightest-fit gpu-2, got %s", a.DeviceID)
	}
}

func TestLeastUtilizedPicksMostFreeSpace(t *testing.T) {
	m, err := New(Config{Strategy: LeastUtilized}, devices())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a, err := m.AllocateGPU(1000)
	if err != nil {
		t.Fatalf("AllocateGPU: %v", err)
	}
	if a.DeviceID != "gpu-1" {
		t.Fatalf("expected gpu-1 (most free space), got %s", a.DeviceID)
	}
}

func TestRoundRobinCyclesAcrossCalls(t *testing.T) {
	m, err := New(Config{Strategy: RoundRobin}, []Device{
		{ID: "gpu-0", TotalMemoryMB: 8000},
		{ID: "gpu-1", TotalMemoryMB: 8000},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	first, _ := m.AllocateGPU(100)
	second, _ := m.AllocateGPU(100)
	if first.DeviceID == second.DeviceID {
		t.Fatalf("expected round robin to alternate devices, got %s twice", first.DeviceID)
	}
}

func TestAllocateGPUFailsWithInsufficientMemory(t *testing.T) {
	m, err := New(Config{Strategy: FirstFit}, devices())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = m.AllocateGPU(1_000_000)
	var insufficient *InsufficientMemory
	if !errorsAs(err, &insufficient) {
		t.Fatalf("expected *InsufficientMemory, got %v", err)
	}
	if insufficient.Requested != 1_000_000 {
		t.Fatalf("expected requested 1000000, got %d", insufficient.Requested)
	}
}

func TestAllocateGPUFallsBackToCPUWhenNoDevices(t *testing.T) {
	m, err := New(Config{Strategy: FirstFit, AllowCPUFallback: true}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a, err := m.AllocateGPU(2000)
	if err != nil {
		t.Fatalf("AllocateGPU: %v", err)
	}
	if !a.IsCPUFallback {
		t.Fatal("expected CPU fallback allocation")
	}
}

func TestAllocateGPUNoDevicesNoFallbackErrors(t *testing.T) {
	m, err := New(Config{Strategy: FirstFit, AllowCPUFallback: false}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := m.AllocateGPU(2000); err == nil {
		t.Fatal("expected error when no devices exist and fallback disallowed")
	}
}

func TestReleaseGPUReturnsMemory(t *testing.T) {
	m, err := New(Config{Strategy: FirstFit}, devices())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a, err := m.AllocateGPU(5000)
	if err != nil {
		t.Fatalf("AllocateGPU: %v", err)
	}
	if err := m.ReleaseGPU(a.DeviceID, a.MemoryMB); err != nil {
		t.Fatalf("ReleaseGPU: %v", err)
	}
	for _, d := range m.Devices() {
		if d.ID == a.DeviceID && d.UsedMemoryMB != 0 {
			t.Fatalf("expected used memory to return to 0, got %d", d.UsedMemoryMB)
		}
	}
}

func TestReleaseGPUUnknownDeviceErrors(t *testing.T) {
	m, err := New(Config{Strategy: FirstFit}, devices())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := m.ReleaseGPU("missing", 100); err != ErrDeviceNotFound {
		t.Fatalf("expected ErrDeviceNotFound, got %v", err)
	}
}

func errorsAs(err error, target **InsufficientMemory) bool {
	im, ok := err.(*InsufficientMemory)
	if !ok {
		return false
	}
	*target = im
	return true
}
