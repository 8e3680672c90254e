// Copyright 2026 Meshlayer
//
// InferenceWitnessCircuit proves knowledge of the three result hashes
// without revealing the underlying prompt/response. Adapted from
// pkg/crypto/bls_zkp/circuit.go's SimpleBLSCircuit: a field-element
// commitment (linear combination with a fixed mixing coefficient)
// stands in for a full in-circuit SHA-256 gadget, the same
// simplification that circuit documents for its own BLS pairing check.

package proof

import "github.com/consensys/gnark/frontend"

// InferenceWitnessCircuit proves a prover knows the model/input/output
// byte strings hashing (commitment-wise) to the three public values.
type InferenceWitnessCircuit struct {
	ModelCommitment  frontend.Variable `gnark:",public"`
	InputCommitment  frontend.Variable `gnark:",public"`
	OutputCommitment frontend.Variable `gnark:",public"`

	ModelHashLow  frontend.Variable
	ModelHashHigh frontend.Variable
	InputHashLow  frontend.Variable
	InputHashHigh frontend.Variable
	OutputHashLow frontend.Variable
	OutputHashHigh frontend.Variable
}

// mixCoefficient is the fixed linear-combination coefficient used for
// every commitment in this circuit, matching the teacher's
// computePubkeyCommitment convention.
const mixCoefficient = 7

func commit(api frontend.API, low, high frontend.Variable) frontend.Variable {
	return api.Add(low, api.Mul(high, mixCoefficient))
}

// Define implements the circuit constraints.
func (c *InferenceWitnessCircuit) Define(api frontend.API) error {
	api.AssertIsEqual(c.ModelCommitment, commit(api, c.ModelHashLow, c.ModelHashHigh))
	api.AssertIsEqual(c.InputCommitment, commit(api, c.InputHashLow, c.InputHashHigh))
	api.AssertIsEqual(c.OutputCommitment, commit(api, c.OutputHashLow, c.OutputHashHigh))
	return nil
}
