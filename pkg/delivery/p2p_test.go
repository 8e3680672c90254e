// Copyright 2026 Meshlayer

package delivery

import (
	"context"
	"errors"
	"testing"
)

func collectEvents(ch <-chan ProgressEvent) []ProgressEvent {
	var out []ProgressEvent
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

func TestDeliverEmitsPendingThenInProgressThenCompleted(t *testing.T) {
	sent := 0
	d, err := NewP2PDelivery(4, func(ctx context.Context, jobID string, seq int, chunk []byte) error {
		sent++
		return nil
	})
	if err != nil {
		t.Fatalf("NewP2PDelivery: %v", err)
	}

	pkg := &Package{JobID: "job-1", Bytes: []byte("0123456789")}
	events := collectEvents(d.Deliver(context.Background(), pkg))

	if events[0].Kind != EventPending {
		t.Fatalf("expected first event Pending, got %v", events[0].Kind)
	}
	last := events[len(events)-1]
	if last.Kind != EventCompleted {
		t.Fatalf("expected last event Completed, got %v", last.Kind)
	}
	for i := 1; i < len(events)-1; i++ {
		if events[i].Kind != EventInProgress {
			t.Fatalf("expected InProgress at index %d, got %v", i, events[i].Kind)
		}
	}
	if sent != 3 {
		t.Fatalf("expected 3 chunks of size 4 for 10 bytes, got %d sends", sent)
	}
}

func TestDeliverSequenceIsMonotonicPerJob(t *testing.T) {
	d, _ := NewP2PDelivery(4, func(ctx context.Context, jobID string, seq int, chunk []byte) error {
		return nil
	})
	pkg := &Package{JobID: "job-1", Bytes: []byte("0123456789")}
	events := collectEvents(d.Deliver(context.Background(), pkg))

	for i := 1; i < len(events); i++ {
		if events[i].Sequence <= events[i-1].Sequence {
			t.Fatalf("expected strictly increasing sequence, got %d then %d", events[i-1].Sequence, events[i].Sequence)
		}
	}
}

func TestDeliverFailsMidStreamOnSendError(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	d, _ := NewP2PDelivery(4, func(ctx context.Context, jobID string, seq int, chunk []byte) error {
		calls++
		if calls == 2 {
			return boom
		}
		return nil
	})
	pkg := &Package{JobID: "job-1", Bytes: []byte("0123456789")}
	events := collectEvents(d.Deliver(context.Background(), pkg))

	last := events[len(events)-1]
	if last.Kind != EventFailed {
		t.Fatalf("expected Failed as terminal event, got %v", last.Kind)
	}
	if !errors.Is(last.Err, boom) {
		t.Fatalf("expected wrapped boom error, got %v", last.Err)
	}
}

func TestNewP2PDeliveryRejectsNonPositiveChunkSize(t *testing.T) {
	if _, err := NewP2PDelivery(0, nil); err != ErrChunkSizeNotPositive {
		t.Fatalf("expected ErrChunkSizeNotPositive, got %v", err)
	}
}

func TestDeliverEmptyPayloadStillCompletes(t *testing.T) {
	d, _ := NewP2PDelivery(4, func(ctx context.Context, jobID string, seq int, chunk []byte) error {
		return nil
	})
	pkg := &Package{JobID: "job-1", Bytes: nil}
	events := collectEvents(d.Deliver(context.Background(), pkg))

	last := events[len(events)-1]
	if last.Kind != EventCompleted {
		t.Fatalf("expected Completed for empty payload, got %v", last.Kind)
	}
}
