// Copyright 2026 Meshlayer

package loadbalancer

import "time"

// NodeStatus is a worker node's health/lifecycle state.
type NodeStatus int

const (
	StatusHealthy NodeStatus = iota
	StatusUnhealthy
	StatusCircuitOpen
	StatusDraining
	StatusDrained
	StatusMaintenance
	StatusCircuitHalfOpen
)

func (s NodeStatus) String() string {
	switch s {
	case StatusHealthy:
		return "Healthy"
	case StatusUnhealthy:
		return "Unhealthy"
	case StatusCircuitOpen:
		return "CircuitOpen"
	case StatusDraining:
		return "Draining"
	case StatusDrained:
		return "Drained"
	case StatusMaintenance:
		return "Maintenance"
	case StatusCircuitHalfOpen:
		return "CircuitHalfOpen"
	default:
		return "Unknown"
	}
}

// Strategy selects which node-selection algorithm to use.
type Strategy int

const (
	StrategyRoundRobin Strategy = iota
	StrategyLeastConnections
	StrategyWeightedRoundRobin
	StrategyRandom
	StrategyLeastResponseTime
	StrategyResourceBased
)

// ParseStrategy maps a config-file spelling to a Strategy, defaulting
// to StrategyRoundRobin for an unrecognized value.
func ParseStrategy(s string) Strategy {
	switch s {
	case "least_connections":
		return StrategyLeastConnections
	case "weighted_round_robin":
		return StrategyWeightedRoundRobin
	case "random":
		return StrategyRandom
	case "least_response_time":
		return StrategyLeastResponseTime
	case "resource_based":
		return StrategyResourceBased
	default:
		return StrategyRoundRobin
	}
}

// Capabilities describes what a worker node can serve.
type Capabilities struct {
	Models            []string
	MaxBatchSize      int
	GPUMemoryMB       int64
	SupportsStreaming bool
}

func (c Capabilities) supports(model string) bool {
	for _, m := range c.Models {
		if m == model {
			return true
		}
	}
	return false
}

// Node is a registered worker node and its live selection state.
type Node struct {
	ID           string
	Endpoint     string
	Capabilities Capabilities
	Weight       float64

	Status NodeStatus

	ActiveConnections int
	AvgLatencyMS       float64
	CPUPercent         float64
	MemPercent         float64
	GPUPercent         float64

	ErrorRate            float64
	ConsecutiveFailures  int

	LastSeen time.Time
}

func (n *Node) overloaded(threshold float64) bool {
	return n.CPUPercent+n.MemPercent > 2*threshold*100
}
