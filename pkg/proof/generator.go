// Copyright 2026 Meshlayer

package proof

import (
	"bytes"
	"encoding/hex"
	"errors"
	"time"

	"github.com/meshlayer/infernode/pkg/commitment"
)

// ErrProofTooLarge is returned when a generated proof would exceed
// MaxProofSize.
var ErrProofTooLarge = errors.New("proof: exceeds max proof size")

// Config tunes a Generator's backend selection and limits.
type Config struct {
	MaxProofSize int
	EZKLEnabled  bool
	Risc0Enabled bool
	Version      string
}

// Generator produces and verifies InferenceProofs across the Simple,
// EZKL and Risc0 backends.
type Generator struct {
	cfg  Config
	ezkl *ezklBackend
}

// New builds a Generator. maxProofSize defaults to 64KiB if unset.
func New(cfg Config) *Generator {
	if cfg.MaxProofSize <= 0 {
		cfg.MaxProofSize = 64 * 1024
	}
	if cfg.Version == "" {
		cfg.Version = "v1"
	}
	g := &Generator{cfg: cfg}
	if cfg.EZKLEnabled {
		g.ezkl = newEZKLBackend()
	}
	return g
}

// GenerateProof produces a Proof for result using the given backend.
func (g *Generator) GenerateProof(result Result, proofType Type) (*Proof, error) {
	modelHash, inputHash, outputHash := resultHashes(result)

	var blob []byte
	var err error
	switch proofType {
	case TypeSimple:
		blob = simpleProofBytes(modelHash, inputHash, outputHash)
	case TypeEZKL:
		blob, err = g.generateEZKL(modelHash, inputHash, outputHash)
	case TypeRisc0:
		blob, err = g.generateRisc0(modelHash, inputHash, outputHash)
	default:
		return nil, errors.New("proof: unknown proof type")
	}
	if err != nil {
		return nil, err
	}
	if len(blob) > g.cfg.MaxProofSize {
		return nil, ErrProofTooLarge
	}

	return &Proof{
		JobID:            result.JobID,
		Type:             proofType,
		ProofBytes:       blob,
		ModelHash:        modelHash,
		InputHash:        inputHash,
		OutputHash:       outputHash,
		GeneratedAt:      time.Now(),
		GeneratorVersion: g.cfg.Version,
	}, nil
}

// simpleProofBytes is the commitment hash of the concatenated hex hashes.
func simpleProofBytes(modelHash, inputHash, outputHash string) []byte {
	sum := commitment.HashConcat([]byte(modelHash), []byte(inputHash), []byte(outputHash))
	return []byte(hex.EncodeToString(sum[:]))
}

func (g *Generator) generateEZKL(modelHash, inputHash, outputHash string) ([]byte, error) {
	if g.ezkl == nil {
		return nil, errors.New("proof: EZKL backend not enabled")
	}
	body, err := g.ezkl.prove(modelHash, inputHash, outputHash)
	if err != nil {
		return nil, err
	}
	return append([]byte{TypeEZKL.headerByte()}, body...), nil
}

// generateRisc0 produces a structural stand-in blob: a header byte
// followed by the three hashes, since no risc0/zkVM library appears
// anywhere in the corpus to ground a real proving pipeline against.
func (g *Generator) generateRisc0(modelHash, inputHash, outputHash string) ([]byte, error) {
	body := []byte(modelHash + inputHash + outputHash)
	return append([]byte{TypeRisc0.headerByte()}, body...), nil
}

// VerifyProof recomputes the three hashes from result and, on a match,
// dispatches to the backend named by proof.Type.
func (g *Generator) VerifyProof(p *Proof, result Result) (bool, error) {
	modelHash, inputHash, outputHash := resultHashes(result)
	if modelHash != p.ModelHash || inputHash != p.InputHash || outputHash != p.OutputHash {
		return false, nil
	}

	switch p.Type {
	case TypeSimple:
		return len(p.ProofBytes) > 0, nil
	case TypeEZKL:
		return g.verifyEZKL(p, modelHash, inputHash, outputHash)
	case TypeRisc0:
		return verifyRisc0(p, modelHash, inputHash, outputHash)
	default:
		return false, errors.New("proof: unknown proof type")
	}
}

func (g *Generator) verifyEZKL(p *Proof, modelHash, inputHash, outputHash string) (bool, error) {
	if len(p.ProofBytes) < 1 || p.ProofBytes[0] != TypeEZKL.headerByte() {
		return false, nil
	}
	if g.ezkl == nil {
		return false, errors.New("proof: EZKL backend not enabled")
	}
	return g.ezkl.verify(p.ProofBytes[1:], modelHash, inputHash, outputHash)
}

func verifyRisc0(p *Proof, modelHash, inputHash, outputHash string) (bool, error) {
	if len(p.ProofBytes) < 1 || p.ProofBytes[0] != TypeRisc0.headerByte() {
		return false, nil
	}
	expected := append([]byte{TypeRisc0.headerByte()}, []byte(modelHash+inputHash+outputHash)...)
	return bytes.Equal(p.ProofBytes, expected), nil
}
