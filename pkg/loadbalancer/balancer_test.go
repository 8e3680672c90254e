// Copyright 2026 Meshlayer

package loadbalancer

import (
	"context"
	"testing"
	"time"
)

func node(id string, models ...string) Node {
	return Node{ID: id, Endpoint: "http://" + id, Capabilities: Capabilities{Models: models}, Weight: 1}
}

func TestSelectReturnsErrNoHealthyNodesWhenNoneMatch(t *testing.T) {
	b := New(Config{}, nil, nil)
	b.AddNode(node("n1", "m2"))

	if _, err := b.Select("m1", ""); err != ErrNoHealthyNodes {
		t.Fatalf("expected ErrNoHealthyNodes, got %v", err)
	}
}

func TestSelectReturnsErrAllNodesOverloaded(t *testing.T) {
	b := New(Config{OverloadThreshold: 0.5}, nil, nil)
	n := node("n1", "m1")
	n.CPUPercent, n.MemPercent = 60, 60
	b.AddNode(n)

	if _, err := b.Select("m1", ""); err != ErrAllNodesOverloaded {
		t.Fatalf("expected ErrAllNodesOverloaded, got %v", err)
	}
}

func TestRoundRobinCyclesCandidates(t *testing.T) {
	b := New(Config{Strategy: StrategyRoundRobin}, nil, nil)
	b.AddNode(node("n1", "m1"))
	b.AddNode(node("n2", "m1"))

	first, _ := b.Select("m1", "")
	second, _ := b.Select("m1", "")
	if first.ID == second.ID {
		t.Fatal("round robin should alternate across two candidates")
	}
	third, _ := b.Select("m1", "")
	if third.ID != first.ID {
		t.Fatal("round robin should cycle back after two candidates")
	}
}

func TestLeastConnectionsPicksFewestConnections(t *testing.T) {
	b := New(Config{Strategy: StrategyLeastConnections}, nil, nil)
	b.AddNode(node("busy", "m1"))
	b.AddNode(node("idle", "m1"))
	b.AcquireConnection("busy")
	b.AcquireConnection("busy")

	chosen, err := b.Select("m1", "")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if chosen.ID != "idle" {
		t.Fatalf("expected idle node, got %s", chosen.ID)
	}
}

func TestLeastResponseTimePicksLowestLatency(t *testing.T) {
	b := New(Config{Strategy: StrategyLeastResponseTime}, nil, nil)
	slow := node("slow", "m1")
	slow.AvgLatencyMS = 500
	fast := node("fast", "m1")
	fast.AvgLatencyMS = 10
	b.AddNode(slow)
	b.AddNode(fast)

	chosen, err := b.Select("m1", "")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if chosen.ID != "fast" {
		t.Fatalf("expected fast node, got %s", chosen.ID)
	}
}

func TestResourceBasedPicksLowestWeightedLoad(t *testing.T) {
	b := New(Config{Strategy: StrategyResourceBased}, nil, nil)
	loaded := node("loaded", "m1")
	loaded.CPUPercent, loaded.MemPercent, loaded.GPUPercent = 80, 80, 80
	light := node("light", "m1")
	light.CPUPercent, light.MemPercent, light.GPUPercent = 5, 5, 5
	b.AddNode(loaded)
	b.AddNode(light)

	chosen, err := b.Select("m1", "")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if chosen.ID != "light" {
		t.Fatalf("expected light node, got %s", chosen.ID)
	}
}

func TestSessionAffinityStickyAcrossSelections(t *testing.T) {
	b := New(Config{Strategy: StrategyRoundRobin, AffinityEnabled: true}, nil, nil)
	b.AddNode(node("n1", "m1"))
	b.AddNode(node("n2", "m1"))

	first, _ := b.Select("m1", "session-a")
	for i := 0; i < 5; i++ {
		next, err := b.Select("m1", "session-a")
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		if next.ID != first.ID {
			t.Fatalf("expected sticky affinity to %s, got %s", first.ID, next.ID)
		}
	}
}

func TestAffinityFallsBackWhenNodeUnhealthy(t *testing.T) {
	b := New(Config{Strategy: StrategyRoundRobin, AffinityEnabled: true}, nil, nil)
	b.AddNode(node("n1", "m1"))
	b.AddNode(node("n2", "m1"))

	first, _ := b.Select("m1", "session-a")
	b.MockHealthCheckResult(first.ID, false)
	b.MockHealthCheckResult(first.ID, false)
	b.MockHealthCheckResult(first.ID, false)

	next, err := b.Select("m1", "session-a")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if next.ID == first.ID {
		t.Fatal("expected fallback away from unhealthy affinity node")
	}
}

func TestDrainLifecycle(t *testing.T) {
	b := New(Config{}, nil, nil)
	b.AddNode(node("n1", "m1"))
	b.AcquireConnection("n1")

	if err := b.StartNodeDrain("n1"); err != nil {
		t.Fatalf("StartNodeDrain: %v", err)
	}
	n, _ := b.GetNode("n1")
	if n.Status != StatusDraining {
		t.Fatalf("expected Draining with an active connection, got %v", n.Status)
	}

	b.ReleaseConnection("n1")
	n, _ = b.GetNode("n1")
	if n.Status != StatusDrained {
		t.Fatalf("expected Drained after last release, got %v", n.Status)
	}

	if _, err := b.Select("m1", ""); err != ErrNoHealthyNodes {
		t.Fatal("drained node must not be selectable")
	}
}

func TestRemoveNodePurgesAffinity(t *testing.T) {
	b := New(Config{AffinityEnabled: true}, nil, nil)
	b.AddNode(node("n1", "m1"))
	b.Select("m1", "session-a")

	if err := b.RemoveNode("n1"); err != nil {
		t.Fatalf("RemoveNode: %v", err)
	}
	if _, ok := b.GetNode("n1"); ok {
		t.Fatal("expected node removed")
	}
	if _, err := b.Select("m1", "session-a"); err != ErrNoHealthyNodes {
		t.Fatal("expected affinity entry purged along with node")
	}
}

func TestRecordRequestFailureOpensCircuit(t *testing.T) {
	b := New(Config{}, nil, nil)
	b.AddNode(node("n1", "m1"))

	for i := 0; i < 10; i++ {
		b.RecordRequestFailure("n1")
	}
	n, _ := b.GetNode("n1")
	if n.Status != StatusCircuitOpen {
		t.Fatalf("expected CircuitOpen after repeated failures, got %v", n.Status)
	}
}

func TestMockHealthCheckThreeFailuresMarksUnhealthy(t *testing.T) {
	b := New(Config{}, nil, nil)
	b.AddNode(node("n1", "m1"))

	b.MockHealthCheckResult("n1", false)
	b.MockHealthCheckResult("n1", false)
	n, _ := b.GetNode("n1")
	if n.Status == StatusUnhealthy {
		t.Fatal("two failures must not yet mark unhealthy")
	}
	b.MockHealthCheckResult("n1", false)
	n, _ = b.GetNode("n1")
	if n.Status != StatusUnhealthy {
		t.Fatal("three consecutive failures must mark unhealthy")
	}

	b.MockHealthCheckResult("n1", true)
	n, _ = b.GetNode("n1")
	if n.Status != StatusHealthy {
		t.Fatal("a success must restore healthy status")
	}
}

func TestHealthLoopProbesAndStopsPromptly(t *testing.T) {
	b := New(Config{HealthCheckInterval: 5 * time.Millisecond}, nil, nil)
	b.AddNode(node("n1", "m1"))

	calls := make(chan struct{}, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.Start(ctx, func(ctx context.Context, n Node) bool {
		calls <- struct{}{}
		return true
	})

	select {
	case <-calls:
	case <-time.After(time.Second):
		t.Fatal("expected at least one health probe")
	}

	done := make(chan struct{})
	go func() {
		b.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop should return promptly")
	}
}
