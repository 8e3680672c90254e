// Copyright 2026 Meshlayer

package monitor

import (
	"math/big"
	"time"

	"github.com/meshlayer/infernode/pkg/registrar"
)

// Severity is the severity of a health Issue.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "Warning"
	case SeverityCritical:
		return "Critical"
	default:
		return "Info"
	}
}

// IssueKind enumerates the health issue variants the monitor emits.
type IssueKind int

const (
	IssueRpcFailure IssueKind = iota
	IssueNotRegistered
	IssueExpiringSoon
)

// Issue is a single health finding for a chain.
type Issue struct {
	Kind     IssueKind
	Severity Severity
	Message  string
}

// Health is the per-chain derived RegistrationHealth (spec section 3).
type Health struct {
	ChainID         int64
	Status          registrar.Status
	IsHealthy       bool
	Issues          []Issue
	StakeBalance    *big.Int
	FabBalance      *big.Int
	TimeUntilExpiry *time.Duration

	hadRpcFailure bool
}

func (h Health) wasUnhealthy() bool { return !h.IsHealthy }
