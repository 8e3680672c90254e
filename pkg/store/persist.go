// Copyright 2026 Meshlayer
//
// Optional Postgres-backed persistence for ProofStore/ResultStore,
// layered on top of the in-memory maps rather than replacing them:
// writes go to both, reads are served from memory, and Restore loads
// the database's contents into memory once at startup. Grounded on
// the teacher's repository pattern (pkg/database/repository_proof.go)
// via the adapted pkg/database.

package store

import (
	"context"
	"log"

	"github.com/meshlayer/infernode/pkg/database"
)

// ProofPersistence backs a ProofStore with a ProofRepository.
type ProofPersistence struct {
	repo *database.ProofRepository
	log  *log.Logger
}

// NewProofPersistence wraps repo for use with Attach.
func NewProofPersistence(repo *database.ProofRepository, logger *log.Logger) *ProofPersistence {
	if logger == nil {
		logger = log.New(log.Writer(), "[store] ", log.LstdFlags)
	}
	return &ProofPersistence{repo: repo, log: logger}
}

// Attach makes s durable: every Store/Remove call is mirrored to the
// database, in addition to the in-memory map. Clear affects only the
// in-memory map.
func (p *ProofPersistence) Attach(s *ProofStore) {
	s.persist = p
}

// Restore loads every persisted proof into s's in-memory map.
func (p *ProofPersistence) Restore(ctx context.Context, s *ProofStore) error {
	ids, err := p.repo.ListJobIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		row, err := p.repo.Get(ctx, id)
		if err != nil {
			p.log.Printf("restore proof %s: %v", id, err)
			continue
		}
		s.storeMemoryOnly(row)
	}
	return nil
}

// ResultPersistence backs a ResultStore with a ResultRepository.
type ResultPersistence struct {
	repo *database.ResultRepository
	log  *log.Logger
}

// NewResultPersistence wraps repo for use with Attach.
func NewResultPersistence(repo *database.ResultRepository, logger *log.Logger) *ResultPersistence {
	if logger == nil {
		logger = log.New(log.Writer(), "[store] ", log.LstdFlags)
	}
	return &ResultPersistence{repo: repo, log: logger}
}

// Attach makes s durable: every Store/Remove call is mirrored to the
// database, in addition to the in-memory map. Clear affects only the
// in-memory map.
func (p *ResultPersistence) Attach(s *ResultStore) {
	s.persist = p
}

// Restore loads every persisted result into s's in-memory map.
func (p *ResultPersistence) Restore(ctx context.Context, s *ResultStore) error {
	ids, err := p.repo.ListJobIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		row, err := p.repo.Get(ctx, id)
		if err != nil {
			p.log.Printf("restore result %s: %v", id, err)
			continue
		}
		s.storeMemoryOnly(id, row)
	}
	return nil
}
