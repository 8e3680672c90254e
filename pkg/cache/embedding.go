// Copyright 2026 Meshlayer
//
// Deterministic prompt embedding. The spec (section 4.3, section 9)
// explicitly allows a hash-derived pseudo-embedding in place of a real
// model; this is a stand-in for the out-of-scope LLM execution engine
// (section 1) and is documented as a replaceable component.

package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
)

// EmbeddingDimensions is the fixed vector width produced by Embed.
const EmbeddingDimensions = 64

// Embed deterministically maps a prompt to a unit-normalized vector.
// Equal prompts always produce bit-identical vectors; the mapping has
// no semantic properties beyond being stable, which is all §4.3
// requires of a replaceable embedding function.
func Embed(prompt string) []float64 {
	out := make([]float64, EmbeddingDimensions)
	block := sha256.Sum256([]byte(prompt))
	seed := block[:]

	for i := range out {
		// Re-hash with a counter to stretch 32 bytes of seed material
		// into EmbeddingDimensions independent-looking values.
		var counter [4]byte
		binary.BigEndian.PutUint32(counter[:], uint32(i))
		h := sha256.New()
		h.Write(seed)
		h.Write(counter[:])
		digest := h.Sum(nil)
		v := binary.BigEndian.Uint64(digest[:8])
		// Map to a signed value in roughly [-1, 1).
		out[i] = (float64(v)/float64(math.MaxUint64))*2 - 1
	}

	return normalize(out)
}

func normalize(v []float64) []float64 {
	var sumSquares float64
	for _, x := range v {
		sumSquares += x * x
	}
	norm := math.Sqrt(sumSquares)
	if norm == 0 {
		return v
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

// CosineSimilarity returns the dot product of a and b, which for
// unit-normalized vectors equals cosine similarity. Mismatched lengths
// return 0.0 rather than panicking (spec section 4.3).
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0.0
	}
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot
}
