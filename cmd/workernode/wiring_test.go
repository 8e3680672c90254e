// Copyright 2026 Meshlayer

package main

import (
	"encoding/hex"
	"testing"

	"github.com/meshlayer/infernode/pkg/config"
)

func TestModelIDsFromStringsPadsShortHex(t *testing.T) {
	ids, err := modelIDsFromStrings([]string{"0xabcd", "ef"})
	if err != nil {
		t.Fatalf("modelIDsFromStrings: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 ids, got %d", len(ids))
	}
	if hex.EncodeToString(ids[0][30:]) != "abcd" {
		t.Fatalf("expected right-aligned abcd, got %x", ids[0])
	}
	for _, b := range ids[0][:30] {
		if b != 0 {
			t.Fatalf("expected zero padding, got %x", ids[0])
		}
	}
}

func TestModelIDsFromStringsRejectsOversized(t *testing.T) {
	long := make([]byte, 66)
	for i := range long {
		long[i] = 'a'
	}
	if _, err := modelIDsFromStrings([]string{string(long)}); err == nil {
		t.Fatal("expected error for oversized model id")
	}
}

func TestResolveRPCPrefersOverride(t *testing.T) {
	entry := config.ChainEntry{Name: "base", RPC: "https://default.example"}
	env := &config.Env{ChainRPCOverrides: map[string]string{"BASE": "https://override.example"}}
	if got := resolveRPC(entry, env); got != "https://override.example" {
		t.Fatalf("expected override RPC, got %s", got)
	}

	env2 := &config.Env{ChainRPCOverrides: map[string]string{}}
	if got := resolveRPC(entry, env2); got != "https://default.example" {
		t.Fatalf("expected default RPC, got %s", got)
	}
}

func TestResolveContractPrefersOverride(t *testing.T) {
	entry := config.ChainEntry{
		Name:      "base",
		Contracts: map[string]string{"node_registry": "0xdefault"},
	}
	env := &config.Env{ChainContractOverrides: map[string]string{"BASE_NODE_REGISTRY": "0xoverride"}}
	if got := resolveContract(entry, env, "node_registry"); got != "0xoverride" {
		t.Fatalf("expected override contract, got %s", got)
	}

	env2 := &config.Env{ChainContractOverrides: map[string]string{}}
	if got := resolveContract(entry, env2, "node_registry"); got != "0xdefault" {
		t.Fatalf("expected default contract, got %s", got)
	}
}

func TestResolvePrivateKeyPrefersFlag(t *testing.T) {
	env := &config.Env{NodePrivateKey: "fromenv"}
	if got, err := resolvePrivateKey("fromflag", env); err != nil || got != "fromflag" {
		t.Fatalf("expected fromflag, got %q err %v", got, err)
	}
	if got, err := resolvePrivateKey("", env); err != nil || got != "fromenv" {
		t.Fatalf("expected fromenv, got %q err %v", got, err)
	}
	if _, err := resolvePrivateKey("", &config.Env{}); err == nil {
		t.Fatal("expected error when neither flag nor env is set")
	}
}
