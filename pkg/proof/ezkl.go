// Copyright 2026 Meshlayer
//
// EZKL backend: one-time Groth16 setup over InferenceWitnessCircuit,
// then per-result prove/verify. Adapted from
// pkg/crypto/bls_zkp/prover.go's BLSZKProver (compile once under a
// lock, reuse proving/verification keys across calls).

package proof

import (
	"bytes"
	"errors"
	"math/big"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
)

// ezklBackend holds the compiled circuit and Groth16 keys, generated
// once and reused across every EZKL proof request.
type ezklBackend struct {
	mu sync.RWMutex

	cs constraint.ConstraintSystem
	pk groth16.ProvingKey
	vk groth16.VerifyingKey

	initialized bool
}

func newEZKLBackend() *ezklBackend {
	return &ezklBackend{}
}

func (b *ezklBackend) initialize() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.initialized {
		return nil
	}

	var circuit InferenceWitnessCircuit
	cs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &circuit)
	if err != nil {
		return err
	}
	pk, vk, err := groth16.Setup(cs)
	if err != nil {
		return err
	}
	b.cs, b.pk, b.vk = cs, pk, vk
	b.initialized = true
	return nil
}

// splitHash splits a hex-encoded SHA-256 digest into two 128-bit
// halves, each small enough to fit a BN254 scalar field element.
func splitHash(hexHash string) (low, high *big.Int, err error) {
	raw, decErr := decodeHex(hexHash)
	if decErr != nil {
		return nil, nil, decErr
	}
	if len(raw) != 32 {
		return nil, nil, errors.New("proof: expected a 32-byte hash")
	}
	return new(big.Int).SetBytes(raw[16:]), new(big.Int).SetBytes(raw[:16]), nil
}

func assignment(modelHash, inputHash, outputHash string) (*InferenceWitnessCircuit, error) {
	mLow, mHigh, err := splitHash(modelHash)
	if err != nil {
		return nil, err
	}
	iLow, iHigh, err := splitHash(inputHash)
	if err != nil {
		return nil, err
	}
	oLow, oHigh, err := splitHash(outputHash)
	if err != nil {
		return nil, err
	}
	return &InferenceWitnessCircuit{
		ModelCommitment:  commitInts(mLow, mHigh),
		InputCommitment:  commitInts(iLow, iHigh),
		OutputCommitment: commitInts(oLow, oHigh),
		ModelHashLow:     mLow,
		ModelHashHigh:    mHigh,
		InputHashLow:     iLow,
		InputHashHigh:    iHigh,
		OutputHashLow:    oLow,
		OutputHashHigh:   oHigh,
	}, nil
}

func commitInts(low, high *big.Int) *big.Int {
	mixed := new(big.Int).Mul(high, big.NewInt(mixCoefficient))
	return mixed.Add(mixed, low)
}

func (b *ezklBackend) prove(modelHash, inputHash, outputHash string) ([]byte, error) {
	if err := b.initialize(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	assign, err := assignment(modelHash, inputHash, outputHash)
	if err != nil {
		return nil, err
	}
	witness, err := frontend.NewWitness(assign, ecc.BN254.ScalarField())
	if err != nil {
		return nil, err
	}
	gproof, err := groth16.Prove(b.cs, b.pk, witness)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := gproof.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (b *ezklBackend) verify(proofBytes []byte, modelHash, inputHash, outputHash string) (bool, error) {
	if err := b.initialize(); err != nil {
		return false, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	mLow, mHigh, err := splitHash(modelHash)
	if err != nil {
		return false, err
	}
	iLow, iHigh, err := splitHash(inputHash)
	if err != nil {
		return false, err
	}
	oLow, oHigh, err := splitHash(outputHash)
	if err != nil {
		return false, err
	}
	public := &InferenceWitnessCircuit{
		ModelCommitment:  commitInts(mLow, mHigh),
		InputCommitment:  commitInts(iLow, iHigh),
		OutputCommitment: commitInts(oLow, oHigh),
	}
	publicWitness, err := frontend.NewWitness(public, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return false, err
	}

	gproof := groth16.NewProof(ecc.BN254)
	if _, err := gproof.ReadFrom(bytes.NewReader(proofBytes)); err != nil {
		return false, err
	}
	if err := groth16.Verify(gproof, b.vk, publicWitness); err != nil {
		return false, nil
	}
	return true, nil
}
