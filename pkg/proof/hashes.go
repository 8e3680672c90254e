// Copyright 2026 Meshlayer

package proof

import (
	"encoding/hex"

	"github.com/meshlayer/infernode/pkg/commitment"
)

func hashHex(b []byte) string {
	return commitment.HashHex(b)
}

func decodeHex(s string) ([]byte, error) {
	return hex.DecodeString(s)
}

// resultHashes computes the three commitment hashes a proof attests to:
// the model path, the prompt, and the response.
func resultHashes(r Result) (modelHash, inputHash, outputHash string) {
	return hashHex([]byte(r.ModelPath)), hashHex([]byte(r.Prompt)), hashHex([]byte(r.Response))
}
