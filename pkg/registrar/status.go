// Copyright 2026 Meshlayer
//
// Registration status tagged union and node metadata wire types.

package registrar

import "fmt"

// StatusKind enumerates the RegistrationStatus variants.
type StatusKind int

const (
	NotRegistered StatusKind = iota
	Pending
	Confirmed
	Failed
)

func (k StatusKind) String() string {
	switch k {
	case NotRegistered:
		return "NotRegistered"
	case Pending:
		return "Pending"
	case Confirmed:
		return "Confirmed"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Status is the tagged-union RegistrationStatus per (node_address, chain_id).
// Only the field matching Kind is meaningful; the others are zero values.
type Status struct {
	Kind        StatusKind
	TxHash      string // Pending
	BlockNumber uint64 // Confirmed
	ErrorText   string // Failed
}

// NotRegisteredStatus is the genesis state for a newly attached chain.
func NotRegisteredStatus() Status { return Status{Kind: NotRegistered} }

// PendingStatus reports a submitted, unconfirmed registration transaction.
func PendingStatus(txHash string) Status { return Status{Kind: Pending, TxHash: txHash} }

// ConfirmedStatus reports a finalized registration at blockNumber.
func ConfirmedStatus(blockNumber uint64) Status {
	return Status{Kind: Confirmed, BlockNumber: blockNumber}
}

// FailedStatus reports a terminal registration failure.
func FailedStatus(errorText string) Status { return Status{Kind: Failed, ErrorText: errorText} }

func (s Status) String() string {
	switch s.Kind {
	case Pending:
		return fmt.Sprintf("Pending{tx_hash=%s}", s.TxHash)
	case Confirmed:
		return fmt.Sprintf("Confirmed{block_number=%d}", s.BlockNumber)
	case Failed:
		return fmt.Sprintf("Failed{error=%s}", s.ErrorText)
	default:
		return "NotRegistered"
	}
}

// Hardware describes the node's advertised hardware profile.
type Hardware struct {
	GPU string `json:"gpu"`
	VRAM int   `json:"vram"`
	CPU  string `json:"cpu"`
	RAM  int    `json:"ram"`
}

// NodeMetadata is the exact wire shape submitted as the metadata_json
// argument to registerNode, per the external-interfaces contract.
type NodeMetadata struct {
	Name             string   `json:"name"`
	Version          string   `json:"version"`
	Hardware         Hardware `json:"hardware"`
	Capabilities     []string `json:"capabilities"`
	Location         string   `json:"location"`
	PerformanceTier  string   `json:"performance_tier"` // "standard" | "premium"
	MaxConcurrentJobs int     `json:"maxConcurrentJobs"`
}
