// Copyright 2026 Meshlayer
//
// P2PDelivery chunks a packaged result and emits progress events in
// order per job id, grounded on the teacher's attestation_broadcaster.go
// goroutine-plus-channel progress pattern (collect-with-timeout loop),
// simplified to a single-consumer fan-out per job instead of a quorum
// collection across peers.

package delivery

import (
	"context"
	"errors"
)

// ErrChunkSizeNotPositive is returned by NewP2PDelivery for a
// non-positive chunk size.
var ErrChunkSizeNotPositive = errors.New("delivery: chunk size must be positive")

// Sender delivers one chunk of a job's packaged bytes to a peer.
// Implementations perform the actual network I/O.
type Sender func(ctx context.Context, jobID string, sequence int, chunk []byte) error

// P2PDelivery chunks packages and reports progress per job id.
type P2PDelivery struct {
	chunkSize int
	send      Sender
}

// NewP2PDelivery builds a P2PDelivery that splits payloads into
// pieces of at most chunkSize bytes.
func NewP2PDelivery(chunkSize int, send Sender) (*P2PDelivery, error) {
	if chunkSize <= 0 {
		return nil, ErrChunkSizeNotPositive
	}
	return &P2PDelivery{chunkSize: chunkSize, send: send}, nil
}

// Deliver chunks pkg.Bytes and sends each chunk via Sender, emitting a
// ProgressEvent on events for every phase transition. events is closed
// when Deliver returns. Emission is strictly in order: Pending, then
// one InProgress per chunk sent, then a single terminal Completed or
// Failed.
func (d *P2PDelivery) Deliver(ctx context.Context, pkg *Package) <-chan ProgressEvent {
	events := make(chan ProgressEvent, 1)

	go func() {
		defer close(events)

		chunks := splitChunks(pkg.Bytes, d.chunkSize)
		total := len(chunks)
		seq := 0

		events <- ProgressEvent{JobID: pkg.JobID, Kind: EventPending, Sequence: seq, Total: total}

		for i, chunk := range chunks {
			seq++
			if err := d.send(ctx, pkg.JobID, i, chunk); err != nil {
				events <- ProgressEvent{JobID: pkg.JobID, Kind: EventFailed, Sequence: seq, Sent: i, Total: total, Err: err}
				return
			}
			events <- ProgressEvent{JobID: pkg.JobID, Kind: EventInProgress, Sequence: seq, Sent: i + 1, Total: total}
		}

		seq++
		events <- ProgressEvent{JobID: pkg.JobID, Kind: EventCompleted, Sequence: seq, Sent: total, Total: total}
	}()

	return events
}

func splitChunks(data []byte, chunkSize int) [][]byte {
	if len(data) == 0 {
		return [][]byte{{}}
	}
	var chunks [][]byte
	for start := 0; start < len(data); start += chunkSize {
		end := start + chunkSize
		if end > len(data) {
			end = len(data)
		}
		chunks = append(chunks, data[start:end])
	}
	return chunks
}
