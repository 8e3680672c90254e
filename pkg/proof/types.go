// Copyright 2026 Meshlayer

package proof

import "time"

// Type selects which proof backend produced (or should produce) a
// proof.
type Type int

const (
	TypeSimple Type = iota
	TypeEZKL
	TypeRisc0
)

func (t Type) String() string {
	switch t {
	case TypeSimple:
		return "Simple"
	case TypeEZKL:
		return "EZKL"
	case TypeRisc0:
		return "Risc0"
	default:
		return "Unknown"
	}
}

// headerByte is the backend-identifying first byte of an opaque
// EZKL/Risc0 proof blob. Simple proofs are not header-tagged (the
// Simple blob is the hex text of a SHA-256 commitment digest).
func (t Type) headerByte() byte {
	switch t {
	case TypeEZKL:
		return 0xE2
	case TypeRisc0:
		return 0x72
	default:
		return 0x00
	}
}

// Result is the inference output a proof attests to.
type Result struct {
	JobID     string
	ModelPath string
	Prompt    string
	Response  string
}

// Proof is a generated proof plus the metadata needed to verify it.
type Proof struct {
	JobID           string
	Type            Type
	ProofBytes      []byte
	ModelHash       string
	InputHash       string
	OutputHash      string
	GeneratedAt     time.Time
	GeneratorVersion string
}
