// Copyright 2026 Meshlayer
//
// ProofRepository and ResultRepository are thin CRUD wrappers over the
// proofs/results tables, grounded on the teacher's
// pkg/database/repository_proof.go (CreateProof/GetProof shape), with
// the attestation/anchor-specific columns dropped.

package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/meshlayer/infernode/pkg/proof"
)

// ProofRepository persists proof.Proof rows.
type ProofRepository struct {
	client *Client
}

// NewProofRepository builds a ProofRepository over client.
func NewProofRepository(client *Client) *ProofRepository {
	return &ProofRepository{client: client}
}

// Upsert inserts or replaces the row for p.JobID.
func (r *ProofRepository) Upsert(ctx context.Context, p *proof.Proof) error {
	_, err := r.client.DB().ExecContext(ctx, `
		INSERT INTO proofs (job_id, proof_type, proof_bytes, model_hash, input_hash, output_hash, generated_at, generator_version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (job_id) DO UPDATE SET
			proof_type = EXCLUDED.proof_type,
			proof_bytes = EXCLUDED.proof_bytes,
			model_hash = EXCLUDED.model_hash,
			input_hash = EXCLUDED.input_hash,
			output_hash = EXCLUDED.output_hash,
			generated_at = EXCLUDED.generated_at,
			generator_version = EXCLUDED.generator_version
	`, p.JobID, int(p.Type), p.ProofBytes, p.ModelHash, p.InputHash, p.OutputHash, p.GeneratedAt, p.GeneratorVersion)
	return err
}

// Get returns the proof row for jobID.
func (r *ProofRepository) Get(ctx context.Context, jobID string) (*proof.Proof, error) {
	row := r.client.DB().QueryRowContext(ctx, `
		SELECT job_id, proof_type, proof_bytes, model_hash, input_hash, output_hash, generated_at, generator_version
		FROM proofs WHERE job_id = $1
	`, jobID)

	var p proof.Proof
	var proofType int
	var generatedAt time.Time
	if err := row.Scan(&p.JobID, &proofType, &p.ProofBytes, &p.ModelHash, &p.InputHash, &p.OutputHash, &generatedAt, &p.GeneratorVersion); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProofNotFound
		}
		return nil, err
	}
	p.Type = proof.Type(proofType)
	p.GeneratedAt = generatedAt
	return &p, nil
}

// Delete removes the proof row for jobID, if present.
func (r *ProofRepository) Delete(ctx context.Context, jobID string) error {
	res, err := r.client.DB().ExecContext(ctx, `DELETE FROM proofs WHERE job_id = $1`, jobID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrProofNotFound
	}
	return nil
}

// ListJobIDs returns every job id with a persisted proof.
func (r *ProofRepository) ListJobIDs(ctx context.Context) ([]string, error) {
	rows, err := r.client.DB().QueryContext(ctx, `SELECT job_id FROM proofs`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ResultRepository persists proof.Result rows.
type ResultRepository struct {
	client *Client
}

// NewResultRepository builds a ResultRepository over client.
func NewResultRepository(client *Client) *ResultRepository {
	return &ResultRepository{client: client}
}

// Upsert inserts or replaces the row for jobID.
func (r *ResultRepository) Upsert(ctx context.Context, jobID string, result *proof.Result) error {
	_, err := r.client.DB().ExecContext(ctx, `
		INSERT INTO results (job_id, model_path, prompt, response)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (job_id) DO UPDATE SET
			model_path = EXCLUDED.model_path,
			prompt = EXCLUDED.prompt,
			response = EXCLUDED.response
	`, jobID, result.ModelPath, result.Prompt, result.Response)
	return err
}

// Get returns the result row for jobID.
func (r *ResultRepository) Get(ctx context.Context, jobID string) (*proof.Result, error) {
	row := r.client.DB().QueryRowContext(ctx, `
		SELECT job_id, model_path, prompt, response FROM results WHERE job_id = $1
	`, jobID)

	var result proof.Result
	if err := row.Scan(&result.JobID, &result.ModelPath, &result.Prompt, &result.Response); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrResultNotFound
		}
		return nil, err
	}
	return &result, nil
}

// Delete removes the result row for jobID, if present.
func (r *ResultRepository) Delete(ctx context.Context, jobID string) error {
	res, err := r.client.DB().ExecContext(ctx, `DELETE FROM results WHERE job_id = $1`, jobID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrResultNotFound
	}
	return nil
}

// ListJobIDs returns every job id with a persisted result.
func (r *ResultRepository) ListJobIDs(ctx context.Context) ([]string, error) {
	rows, err := r.client.DB().QueryContext(ctx, `SELECT job_id FROM results`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
