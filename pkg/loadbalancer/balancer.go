// Copyright 2026 Meshlayer
//
// Balancer tracks a pool of worker nodes and selects one per request.
// Connection bookkeeping and health-driven status transitions follow
// the teacher's peer_manager.go peer-registry idiom (mutex-protected
// map keyed by identity, LastSeen bookkeeping), generalized from BLS
// validator peers to inference worker nodes (spec section 4.5).

package loadbalancer

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meshlayer/infernode/pkg/metrics"
)

// ErrNoHealthyNodes is returned when no candidate node is healthy and
// supports the requested model.
var ErrNoHealthyNodes = errors.New("loadbalancer: no healthy nodes")

// ErrAllNodesOverloaded is returned when every candidate node exceeds
// the overload threshold.
var ErrAllNodesOverloaded = errors.New("loadbalancer: all nodes overloaded")

// ErrNodeNotFound is returned by node-targeted operations.
var ErrNodeNotFound = errors.New("loadbalancer: node not found")

// Config tunes a Balancer's selection behavior.
type Config struct {
	Strategy            Strategy
	AffinityEnabled      bool
	OverloadThreshold    float64 // fraction, e.g. 0.8
	HealthCheckInterval  time.Duration
	RandSeed             int64
}

// Prober is consulted by the background health loop for each node.
type Prober func(ctx context.Context, node Node) (healthy bool)

// Balancer selects healthy worker nodes and tracks their connections.
type Balancer struct {
	mu sync.Mutex

	cfg Config

	nodes map[string]*Node
	order []string // insertion order, for RoundRobin determinism

	rrIndex int
	rng     *rand.Rand

	affinity map[string]string // session -> node id

	stopCh chan struct{}
	wg     sync.WaitGroup

	log *log.Logger
	m   *metrics.Registry
}

// New builds an empty Balancer.
func New(cfg Config, logger *log.Logger, m *metrics.Registry) *Balancer {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.OverloadThreshold == 0 {
		cfg.OverloadThreshold = 0.8
	}
	seed := cfg.RandSeed
	if seed == 0 {
		seed = 1
	}
	return &Balancer{
		cfg:      cfg,
		nodes:    make(map[string]*Node),
		rng:      rand.New(rand.NewSource(seed)),
		affinity: make(map[string]string),
		log:      logger,
		m:        m,
	}
}

// AddNode registers a new node as Healthy.
func (b *Balancer) AddNode(n Node) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n.Status = StatusHealthy
	n.LastSeen = time.Now()
	if _, exists := b.nodes[n.ID]; !exists {
		b.order = append(b.order, n.ID)
	}
	node := n
	b.nodes[n.ID] = &node
}

// GetNode returns a snapshot of a node's current state.
func (b *Balancer) GetNode(id string) (Node, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, ok := b.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Nodes returns a snapshot of every registered node, in insertion order.
func (b *Balancer) Nodes() []Node {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Node, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, *b.nodes[id])
	}
	return out
}

// Select picks a node for model, honoring session affinity when
// cfg.AffinityEnabled and session is non-empty.
func (b *Balancer) Select(model, session string) (Node, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cfg.AffinityEnabled && session != "" {
		if nodeID, ok := b.affinity[session]; ok {
			if n, ok := b.nodes[nodeID]; ok && n.Status == StatusHealthy && n.Capabilities.supports(model) {
				return *n, nil
			}
		}
	}

	var candidates []*Node
	for _, id := range b.order {
		n := b.nodes[id]
		if n.Status == StatusHealthy && n.Capabilities.supports(model) {
			candidates = append(candidates, n)
		}
	}
	if len(candidates) == 0 {
		return Node{}, ErrNoHealthyNodes
	}

	allOverloaded := true
	for _, n := range candidates {
		if !n.overloaded(b.cfg.OverloadThreshold) {
			allOverloaded = false
			break
		}
	}
	if allOverloaded {
		return Node{}, ErrAllNodesOverloaded
	}

	chosen := b.pick(candidates)
	if b.m != nil {
		b.m.NodeSelections.WithLabelValues(strategyName(b.cfg.Strategy)).Inc()
	}

	if b.cfg.AffinityEnabled && session != "" {
		b.affinity[session] = chosen.ID
	}
	return *chosen, nil
}

func strategyName(s Strategy) string {
	switch s {
	case StrategyRoundRobin:
		return "round_robin"
	case StrategyLeastConnections:
		return "least_connections"
	case StrategyWeightedRoundRobin:
		return "weighted_round_robin"
	case StrategyRandom:
		return "random"
	case StrategyLeastResponseTime:
		return "least_response_time"
	case StrategyResourceBased:
		return "resource_based"
	default:
		return "unknown"
	}
}

func (b *Balancer) pick(candidates []*Node) *Node {
	switch b.cfg.Strategy {
	case StrategyLeastConnections:
		best := candidates[0]
		for _, n := range candidates[1:] {
			if n.ActiveConnections < best.ActiveConnections {
				best = n
			}
		}
		return best
	case StrategyWeightedRoundRobin:
		total := 0.0
		weights := make([]float64, len(candidates))
		for i, n := range candidates {
			w := n.Weight * (1 - n.CPUPercent/100)
			if w < 0 {
				w = 0
			}
			weights[i] = w
			total += w
		}
		if total <= 0 {
			return candidates[b.rng.Intn(len(candidates))]
		}
		r := b.rng.Float64() * total
		for i, w := range weights {
			r -= w
			if r <= 0 {
				return candidates[i]
			}
		}
		return candidates[len(candidates)-1]
	case StrategyRandom:
		return candidates[b.rng.Intn(len(candidates))]
	case StrategyLeastResponseTime:
		best := candidates[0]
		for _, n := range candidates[1:] {
			if n.AvgLatencyMS < best.AvgLatencyMS {
				best = n
			}
		}
		return best
	case StrategyResourceBased:
		best := candidates[0]
		bestScore := resourceScore(best)
		for _, n := range candidates[1:] {
			if s := resourceScore(n); s < bestScore {
				best, bestScore = n, s
			}
		}
		return best
	default: // RoundRobin
		n := candidates[b.rrIndex%len(candidates)]
		b.rrIndex++
		return n
	}
}

func resourceScore(n *Node) float64 {
	return 0.3*n.CPUPercent + 0.3*n.MemPercent + 0.4*n.GPUPercent
}

// AcquireConnection bumps a node's connection count and returns a
// fresh connection id.
func (b *Balancer) AcquireConnection(nodeID string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, ok := b.nodes[nodeID]
	if !ok {
		return "", ErrNodeNotFound
	}
	n.ActiveConnections++
	return uuid.New().String(), nil
}

// ReleaseConnection decrements a node's connection count, completing a
// drain (Draining -> Drained) if it reaches zero.
func (b *Balancer) ReleaseConnection(nodeID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, ok := b.nodes[nodeID]
	if !ok {
		return ErrNodeNotFound
	}
	if n.ActiveConnections > 0 {
		n.ActiveConnections--
	}
	if n.Status == StatusDraining && n.ActiveConnections == 0 {
		n.Status = StatusDrained
	}
	return nil
}

// ReleaseAllConnections zeroes a node's connection count, completing a
// drain if one is in progress.
func (b *Balancer) ReleaseAllConnections(nodeID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, ok := b.nodes[nodeID]
	if !ok {
		return ErrNodeNotFound
	}
	n.ActiveConnections = 0
	if n.Status == StatusDraining {
		n.Status = StatusDrained
	}
	return nil
}

// StartNodeDrain marks a node Draining; it becomes Drained once its
// connections reach zero.
func (b *Balancer) StartNodeDrain(nodeID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, ok := b.nodes[nodeID]
	if !ok {
		return ErrNodeNotFound
	}
	n.Status = StatusDraining
	if n.ActiveConnections == 0 {
		n.Status = StatusDrained
	}
	return nil
}

// RemoveNode evicts a node immediately, whatever its status or active
// connection count, purging any session-affinity entries pointing at it.
func (b *Balancer) RemoveNode(nodeID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.nodes[nodeID]; !ok {
		return ErrNodeNotFound
	}
	delete(b.nodes, nodeID)
	for i, id := range b.order {
		if id == nodeID {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	for session, id := range b.affinity {
		if id == nodeID {
			delete(b.affinity, session)
		}
	}
	return nil
}

// RecordRequestFailure applies an EMA update to a node's error rate,
// opening its circuit if the rate crosses 0.5.
func (b *Balancer) RecordRequestFailure(nodeID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, ok := b.nodes[nodeID]
	if !ok {
		return ErrNodeNotFound
	}
	n.ErrorRate = 0.9*n.ErrorRate + 0.1
	if n.ErrorRate > 0.5 && n.Status != StatusCircuitOpen {
		n.Status = StatusCircuitOpen
		if b.m != nil {
			b.m.CircuitOpens.Inc()
		}
	}
	return nil
}

// RecordRequestSuccess applies an EMA decay to a node's error rate.
func (b *Balancer) RecordRequestSuccess(nodeID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, ok := b.nodes[nodeID]
	if !ok {
		return ErrNodeNotFound
	}
	n.ErrorRate = 0.9 * n.ErrorRate
	return nil
}

// MockHealthCheckResult feeds one health-probe outcome into a node's
// consecutive-failure counter: three consecutive failures mark it
// Unhealthy; any success resets the counter and restores Healthy if
// it was previously Unhealthy.
func (b *Balancer) MockHealthCheckResult(nodeID string, healthy bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, ok := b.nodes[nodeID]
	if !ok {
		return ErrNodeNotFound
	}
	n.LastSeen = time.Now()
	if healthy {
		n.ConsecutiveFailures = 0
		if n.Status == StatusUnhealthy {
			n.Status = StatusHealthy
		}
		return nil
	}
	n.ConsecutiveFailures++
	if n.ConsecutiveFailures >= 3 {
		n.Status = StatusUnhealthy
	}
	return nil
}

// Start launches the background health-probe loop, waking every
// cfg.HealthCheckInterval to probe each node with fn.
func (b *Balancer) Start(ctx context.Context, fn Prober) {
	b.mu.Lock()
	if b.stopCh != nil {
		b.mu.Unlock()
		return
	}
	interval := b.cfg.HealthCheckInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	b.stopCh = make(chan struct{})
	stop := b.stopCh
	b.mu.Unlock()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C:
				b.probeAll(ctx, fn)
			}
		}
	}()
}

func (b *Balancer) probeAll(ctx context.Context, fn Prober) {
	b.mu.Lock()
	ids := make([]string, len(b.order))
	copy(ids, b.order)
	b.mu.Unlock()

	for _, id := range ids {
		n, ok := b.GetNode(id)
		if !ok {
			continue
		}
		healthy := fn(ctx, n)
		b.MockHealthCheckResult(id, healthy)
	}
}

// Stop halts the health-probe loop without waiting for an in-flight
// probe round to finish.
func (b *Balancer) Stop() {
	b.mu.Lock()
	stop := b.stopCh
	b.stopCh = nil
	b.mu.Unlock()
	if stop != nil {
		close(stop)
	}
}
