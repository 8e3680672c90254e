// Copyright 2026 Meshlayer

package delivery

import "time"

// Result is the payload a ResultPackager serializes and signs.
type Result struct {
	JobID     string    `cbor:"job_id" json:"job_id"`
	ModelID   string    `cbor:"model_id" json:"model_id"`
	Prompt    string    `cbor:"prompt" json:"prompt"`
	Response  string    `cbor:"response" json:"response"`
	CreatedAt time.Time `cbor:"created_at" json:"created_at"`
}

// Package is a signed, canonically-serialized Result ready for delivery.
// CommitmentHash is the canonical-JSON commitment hash of the same
// Result, carried alongside the CBOR signature; Unpack recomputes it
// from the decoded Result and rejects the package on a mismatch.
type Package struct {
	JobID          string
	Bytes          []byte
	Signature      []byte
	PublicKey      []byte
	CommitmentHash string
}

// EventKind distinguishes the phases of a P2PDelivery progress stream.
type EventKind int

const (
	EventPending EventKind = iota
	EventInProgress
	EventCompleted
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventPending:
		return "pending"
	case EventInProgress:
		return "in_progress"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ProgressEvent reports chunk delivery progress for one job. Sequence
// is a per-job monotonic counter so a receiver can detect gaps or
// reordering even though the stream itself guarantees in-order
// emission.
type ProgressEvent struct {
	JobID    string
	Kind     EventKind
	Sequence int
	Sent     int
	Total    int
	Err      error
}
