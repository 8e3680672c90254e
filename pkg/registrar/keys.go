// Copyright 2026 Meshlayer
//
// Per-chain key derivation. The spec requires a single operator secret
// to be usable on every supported chain (section 4.1); we derive a
// chain-scoped signing key by HMAC-SHA256 domain separation rather than
// reusing the raw secret directly on each chain. No library in the
// corpus offers an HKDF-style per-chain derivation primitive, so this
// is built directly on stdlib crypto/hmac and crypto/sha256.

package registrar

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// DeriveChainKey derives a 32-byte signing key for chainID from the
// operator's master secret. The derivation is deterministic: the same
// (secret, chainID) pair always yields the same key.
func DeriveChainKey(secretHex string, chainID int64) ([]byte, error) {
	secret, err := decodeSecret(secretHex)
	if err != nil {
		return nil, err
	}
	var chainIDBytes [8]byte
	binary.BigEndian.PutUint64(chainIDBytes[:], uint64(chainID))

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte("infernode-chain-key"))
	mac.Write(chainIDBytes[:])
	return mac.Sum(nil), nil
}

func decodeSecret(secretHex string) ([]byte, error) {
	s := secretHex
	if len(s) >= 2 && s[0:2] == "0x" {
		s = s[2:]
	}
	return hex.DecodeString(s)
}
