// Copyright 2026 Meshlayer

package delivery

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"
)

func newTestPackager(t *testing.T) *ResultPackager {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	p, err := NewResultPackager(priv)
	if err != nil {
		t.Fatalf("NewResultPackager: %v", err)
	}
	return p
}

func sampleResult() Result {
	return Result{JobID: "job-1", ModelID: "llama", Prompt: "hi", Response: "hello", CreatedAt: time.Unix(0, 0).UTC()}
}

func TestPackageRoundTrip(t *testing.T) {
	p := newTestPackager(t)
	pkg, err := p.Package(sampleResult())
	if err != nil {
		t.Fatalf("Package: %v", err)
	}

	got, err := Unpack(pkg)
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if got.JobID != "job-1" || got.Response != "hello" {
		t.Fatalf("unexpected round-tripped result: %+v", got)
	}
}

func TestPackageIsDeterministic(t *testing.T) {
	p := newTestPackager(t)
	a, err := p.Package(sampleResult())
	if err != nil {
		t.Fatalf("Package: %v", err)
	}
	b, err := p.Package(sampleResult())
	if err != nil {
		t.Fatalf("Package: %v", err)
	}
	if string(a.Bytes) != string(b.Bytes) {
		t.Fatal("expected canonical CBOR serialization to be deterministic")
	}
}

func TestVerifyPackageFailsOnTamperedBytes(t *testing.T) {
	p := newTestPackager(t)
	pkg, err := p.Package(sampleResult())
	if err != nil {
		t.Fatalf("Package: %v", err)
	}
	pkg.Bytes = append([]byte(nil), pkg.Bytes...)
	pkg.Bytes[0] ^= 0xFF

	if err := VerifyPackage(pkg); err != ErrVerificationFailed {
		t.Fatalf("expected ErrVerificationFailed, got %v", err)
	}
}

func TestVerifyPackageFailsOnWrongKey(t *testing.T) {
	p := newTestPackager(t)
	pkg, err := p.Package(sampleResult())
	if err != nil {
		t.Fatalf("Package: %v", err)
	}

	_, otherPriv, _ := ed25519.GenerateKey(rand.Reader)
	otherPub := otherPriv.Public().(ed25519.PublicKey)
	pkg.PublicKey = otherPub

	if err := VerifyPackage(pkg); err != ErrVerificationFailed {
		t.Fatalf("expected ErrVerificationFailed, got %v", err)
	}
}
