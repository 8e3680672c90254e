// Copyright 2026 Meshlayer
//
// SettlementValidator is the pre-payment gate: only a successfully
// verified proof may trigger fund release. Grounded on the teacher's
// pkg/verification/unified_verifier.go validate-then-record-metrics
// shape (timer start, per-step error recording, a terminal bool
// result), narrowed to the single proof/result/verify/cleanup
// sequence this worker needs instead of the teacher's four-level
// bundle.

package settlement

import (
	"fmt"
	"log"
	"time"

	"github.com/meshlayer/infernode/pkg/metrics"
	"github.com/meshlayer/infernode/pkg/proof"
	"github.com/meshlayer/infernode/pkg/store"
)

// Verifier is the subset of proof.Generator's surface a Validator needs.
type Verifier interface {
	VerifyProof(p *proof.Proof, result proof.Result) (bool, error)
}

// Validator runs validate_before_settlement/cleanup_job for a job.
type Validator struct {
	proofs   *store.ProofStore
	results  *store.ResultStore
	verifier Verifier
	log      *log.Logger
	m        *metrics.Registry
}

// New builds a Validator over the given stores and verifier.
func New(proofs *store.ProofStore, results *store.ResultStore, verifier Verifier, logger *log.Logger, m *metrics.Registry) *Validator {
	if logger == nil {
		logger = log.New(log.Writer(), "[settlement] ", log.LstdFlags)
	}
	return &Validator{proofs: proofs, results: results, verifier: verifier, log: logger, m: m}
}

// ValidateBeforeSettlement runs the six-step pre-payment check for
// jobID. A returned (false, nil) is a definitive, honest answer: the
// proof failed to verify. A non-nil error means the check could not
// be completed at all (missing proof/result, verifier failure).
func (v *Validator) ValidateBeforeSettlement(jobID string) (bool, error) {
	start := time.Now()
	if v.m != nil {
		v.m.ValidationsTotal.Inc()
	}

	p, err := v.proofs.Retrieve(jobID)
	if err != nil {
		v.recordFailure()
		return false, fmt.Errorf("settlement: retrieve proof for %s: %w", jobID, err)
	}

	result, err := v.results.Retrieve(jobID)
	if err != nil {
		v.recordFailure()
		return false, fmt.Errorf("settlement: retrieve result for %s: %w", jobID, err)
	}

	ok, err := v.verifier.VerifyProof(p, *result)
	if err != nil {
		v.recordFailure()
		return false, fmt.Errorf("settlement: verify proof for %s: %w", jobID, err)
	}

	duration := time.Since(start)
	if v.m != nil {
		v.m.ValidationLatency.Observe(duration.Seconds())
	}
	if ok {
		if v.m != nil {
			v.m.ValidationsPassed.Inc()
		}
		return true, nil
	}

	if v.m != nil {
		v.m.ValidationsFailed.Inc()
	}
	return false, nil
}

func (v *Validator) recordFailure() {
	if v.m != nil {
		v.m.ValidationsFailed.Inc()
	}
}

// CleanupJob removes jobID's proof and result. Settlement has already
// decided by the time this runs, so removal errors are logged, not
// returned.
func (v *Validator) CleanupJob(jobID string) {
	if err := v.proofs.Remove(jobID); err != nil {
		v.log.Printf("cleanup job %s: remove proof: %v", jobID, err)
	}
	if err := v.results.Remove(jobID); err != nil {
		v.log.Printf("cleanup job %s: remove result: %v", jobID, err)
	}
}

// HasRequiredData reports whether both a proof and a result are still
// present for jobID.
func (v *Validator) HasRequiredData(jobID string) bool {
	return v.proofs.Has(jobID) && v.results.Has(jobID)
}
