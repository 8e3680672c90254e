// Copyright 2026 Meshlayer

package store

import (
	"testing"

	"github.com/meshlayer/infernode/pkg/proof"
)

func sampleProof(jobID string) *proof.Proof {
	return &proof.Proof{
		JobID:      jobID,
		Type:       proof.TypeSimple,
		ProofBytes: []byte("proof-bytes"),
		ModelHash:  "model",
		InputHash:  "input",
		OutputHash: "output",
	}
}

func sampleResultRow(jobID string) *proof.Result {
	return &proof.Result{JobID: jobID, ModelPath: "/models/m.gguf", Prompt: "hi", Response: "hello"}
}

func TestProofStoreStoreAndRetrieve(t *testing.T) {
	s := NewProofStore()
	s.Store(sampleProof("job-1"))

	got, err := s.Retrieve("job-1")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if got.JobID != "job-1" {
		t.Fatalf("expected job-1, got %s", got.JobID)
	}
}

func TestProofStoreRetrieveMissingReturnsErrNotFound(t *testing.T) {
	s := NewProofStore()
	if _, err := s.Retrieve("missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestProofStoreHitMissCounters(t *testing.T) {
	s := NewProofStore()
	s.Store(sampleProof("job-1"))

	s.Retrieve("job-1")
	s.Retrieve("job-1")
	s.Retrieve("missing")

	stats := s.Stats()
	if stats.Hits != 2 {
		t.Fatalf("expected 2 hits, got %d", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Fatalf("expected 1 miss, got %d", stats.Misses)
	}
	if stats.Count != 1 {
		t.Fatalf("expected count 1, got %d", stats.Count)
	}
	if stats.SizeBytes != int64(len("proof-bytes")) {
		t.Fatalf("expected size %d, got %d", len("proof-bytes"), stats.SizeBytes)
	}
}

func TestProofStoreHasDoesNotAffectCounters(t *testing.T) {
	s := NewProofStore()
	s.Store(sampleProof("job-1"))

	if !s.Has("job-1") {
		t.Fatal("expected Has to report true")
	}
	if s.Has("missing") {
		t.Fatal("expected Has to report false for missing job")
	}
	if stats := s.Stats(); stats.Hits != 0 || stats.Misses != 0 {
		t.Fatal("expected Has to leave hit/miss counters untouched")
	}
}

func TestProofStoreRemove(t *testing.T) {
	s := NewProofStore()
	s.Store(sampleProof("job-1"))

	if err := s.Remove("job-1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if s.Has("job-1") {
		t.Fatal("expected job-1 to be gone after Remove")
	}
	if err := s.Remove("job-1"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound on second Remove, got %v", err)
	}
}

func TestProofStoreClearResetsEverything(t *testing.T) {
	s := NewProofStore()
	s.Store(sampleProof("job-1"))
	s.Retrieve("missing")

	s.Clear()

	if len(s.ListJobs()) != 0 {
		t.Fatal("expected no jobs after Clear")
	}
	stats := s.Stats()
	if stats.Hits != 0 || stats.Misses != 0 || stats.Count != 0 {
		t.Fatal("expected Clear to reset counters")
	}
}

func TestProofStoreListJobs(t *testing.T) {
	s := NewProofStore()
	s.Store(sampleProof("job-1"))
	s.Store(sampleProof("job-2"))

	jobs := s.ListJobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
}

func TestResultStoreStoreAndRetrieve(t *testing.T) {
	s := NewResultStore()
	s.Store("job-1", sampleResultRow("job-1"))

	got, err := s.Retrieve("job-1")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if got.Response != "hello" {
		t.Fatalf("expected hello, got %s", got.Response)
	}
}

func TestResultStoreRetrieveMissingReturnsErrNotFound(t *testing.T) {
	s := NewResultStore()
	if _, err := s.Retrieve("missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResultStoreStatsSizeIsPromptPlusResponse(t *testing.T) {
	s := NewResultStore()
	r := sampleResultRow("job-1")
	s.Store("job-1", r)

	stats := s.Stats()
	want := int64(len(r.Prompt) + len(r.Response))
	if stats.SizeBytes != want {
		t.Fatalf("expected size %d, got %d", want, stats.SizeBytes)
	}
}

func TestResultStoreRemoveAndClear(t *testing.T) {
	s := NewResultStore()
	s.Store("job-1", sampleResultRow("job-1"))

	if err := s.Remove("job-1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := s.Remove("job-1"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	s.Store("job-2", sampleResultRow("job-2"))
	s.Clear()
	if len(s.ListJobs()) != 0 {
		t.Fatal("expected no jobs after Clear")
	}
}
