// Copyright 2026 Meshlayer
//
// ResultPackager serializes a Result to canonical CBOR and signs it
// with Ed25519, grounded on the teacher's ed25519_strategy.go
// (domain-separated hash then ed25519.Sign/Verify), simplified since
// this worker signs single results rather than aggregating validator
// attestations.

package delivery

import (
	"crypto/ed25519"
	"errors"

	"github.com/fxamacker/cbor/v2"

	"github.com/meshlayer/infernode/pkg/commitment"
)

// ErrVerificationFailed is returned by VerifyPackage when the
// signature does not match the package's canonical bytes.
var ErrVerificationFailed = errors.New("delivery: signature verification failed")

// ResultPackager serializes and signs Result values.
type ResultPackager struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	enc        cbor.EncMode
}

// NewResultPackager builds a ResultPackager from an Ed25519 private key.
func NewResultPackager(privateKey ed25519.PrivateKey) (*ResultPackager, error) {
	if len(privateKey) != ed25519.PrivateKeySize {
		return nil, errors.New("delivery: invalid private key size")
	}
	opts := cbor.CanonicalEncOptions()
	enc, err := opts.EncMode()
	if err != nil {
		return nil, err
	}
	return &ResultPackager{
		privateKey: privateKey,
		publicKey:  privateKey.Public().(ed25519.PublicKey),
		enc:        enc,
	}, nil
}

// Package deterministically serializes result to canonical CBOR and
// signs the resulting bytes.
func (p *ResultPackager) Package(result Result) (*Package, error) {
	canonical, err := p.enc.Marshal(result)
	if err != nil {
		return nil, err
	}
	hash, err := commitment.HashCanonical(result)
	if err != nil {
		return nil, err
	}
	signature := ed25519.Sign(p.privateKey, canonical)
	return &Package{
		JobID:          result.JobID,
		Bytes:          canonical,
		Signature:      signature,
		PublicKey:      append([]byte(nil), p.publicKey...),
		CommitmentHash: hash,
	}, nil
}

// VerifyPackage verifies pkg's signature over its own canonical bytes
// using the public key carried in the package.
func VerifyPackage(pkg *Package) error {
	if len(pkg.PublicKey) != ed25519.PublicKeySize {
		return errors.New("delivery: invalid public key size")
	}
	if len(pkg.Signature) != ed25519.SignatureSize {
		return errors.New("delivery: invalid signature size")
	}
	if !ed25519.Verify(ed25519.PublicKey(pkg.PublicKey), pkg.Bytes, pkg.Signature) {
		return ErrVerificationFailed
	}
	return nil
}

// Unpack decodes pkg's canonical bytes back into a Result, after
// verifying the signature and cross-checking the decoded Result against
// pkg's commitment hash.
func Unpack(pkg *Package) (Result, error) {
	if err := VerifyPackage(pkg); err != nil {
		return Result{}, err
	}
	var result Result
	if err := cbor.Unmarshal(pkg.Bytes, &result); err != nil {
		return Result{}, err
	}
	hash, err := commitment.HashCanonical(result)
	if err != nil {
		return Result{}, err
	}
	if hash != pkg.CommitmentHash {
		return Result{}, ErrVerificationFailed
	}
	return result, nil
}
