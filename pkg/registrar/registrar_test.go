// Copyright 2026 Meshlayer

package registrar

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/meshlayer/infernode/pkg/chain"
	"github.com/meshlayer/infernode/pkg/metrics"
	"github.com/meshlayer/infernode/pkg/registrar/mockclient"
)

func testRegistry() *chain.Registry {
	reg := chain.NewRegistry()
	reg.Add(chain.Config{
		ChainID:    8453,
		Name:       "base",
		RPC:        "https://base.example",
		StakeToken: chain.TokenConfig{Symbol: "FAB", Decimals: 18},
		Contracts: chain.Contracts{
			Marketplace:  "0x1",
			NodeRegistry: "0x2",
			ProofSystem:  "0x3",
		},
		RequiredConfirmations: 2,
	}, true)
	return reg
}

func newTestRegistrar(t *testing.T) (*Registrar, *mockclient.Client) {
	t.Helper()
	reg := testRegistry()
	mc := mockclient.New("0xnode", big.NewInt(0).Mul(big.NewInt(2000), pow10(18)))
	r := New(reg, NodeMetadata{Name: "n1", Version: "1.0", PerformanceTier: "standard", MaxConcurrentJobs: 4}, "https://node.example", nil, 1000, 5*time.Millisecond, nil, metrics.New())
	r.Attach(8453, mc)
	return r, mc
}

func pow10(n int64) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(n), nil)
}

func TestRegisterOnChainHappyPath(t *testing.T) {
	r, _ := newTestRegistrar(t)

	tx, err := r.RegisterOnChain(context.Background(), 8453)
	if err != nil {
		t.Fatalf("RegisterOnChain: %v", err)
	}
	if tx == "" {
		t.Fatal("expected non-empty tx hash")
	}

	status, err := r.GetRegistrationStatus(8453)
	if err != nil {
		t.Fatalf("GetRegistrationStatus: %v", err)
	}
	if status.Kind != Pending {
		t.Fatalf("expected Pending immediately after submission, got %s", status.Kind)
	}

	// Let the detached observer run.
	time.Sleep(50 * time.Millisecond)

	status, err = r.GetRegistrationStatus(8453)
	if err != nil {
		t.Fatalf("GetRegistrationStatus: %v", err)
	}
	if status.Kind != Confirmed {
		t.Fatalf("expected Confirmed after observer runs, got %s", status.Kind)
	}
}

func TestRegisterOnChainInsufficientStake(t *testing.T) {
	reg := testRegistry()
	mc := mockclient.New("0xnode", big.NewInt(1))
	r := New(reg, NodeMetadata{Name: "n1"}, "https://node.example", nil, 1000, 5*time.Millisecond, nil, nil)
	r.Attach(8453, mc)

	_, err := r.RegisterOnChain(context.Background(), 8453)
	if err == nil {
		t.Fatal("expected insufficient stake error")
	}
}

func TestRegisterOnChainUnsupportedChain(t *testing.T) {
	r, _ := newTestRegistrar(t)
	if _, err := r.RegisterOnChain(context.Background(), 999); err == nil {
		t.Fatal("expected unsupported chain error")
	}
}

func TestRegisterOnChainRevertedTransaction(t *testing.T) {
	r, mc := newTestRegistrar(t)
	mc.RevertReceipt = true

	if _, err := r.RegisterOnChain(context.Background(), 8453); err != nil {
		t.Fatalf("RegisterOnChain: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	status, _ := r.GetRegistrationStatus(8453)
	if status.Kind != Failed {
		t.Fatalf("expected Failed after reverted receipt, got %s", status.Kind)
	}
}

func TestRegisterOnChainNotYetMinedReceiptKeepsPending(t *testing.T) {
	r, mc := newTestRegistrar(t)
	mc.FailReceiptOnce = true

	if _, err := r.RegisterOnChain(context.Background(), 8453); err != nil {
		t.Fatalf("RegisterOnChain: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	status, _ := r.GetRegistrationStatus(8453)
	if status.Kind != Pending {
		t.Fatalf("expected Pending to survive a not-yet-mined receipt, got %s", status.Kind)
	}
}

func TestRegisterOnAllChainsIsolatesFailures(t *testing.T) {
	reg := testRegistry()
	reg.Add(chain.Config{
		ChainID: 1,
		Name:    "ethereum",
		RPC:     "https://eth.example",
		Contracts: chain.Contracts{
			Marketplace:  "0x1",
			NodeRegistry: "0x2",
			ProofSystem:  "0x3",
		},
	}, false)

	r := New(reg, NodeMetadata{Name: "n1"}, "https://node.example", nil, 1000, time.Millisecond, nil, nil)
	goodClient := mockclient.New("0xnode", pow10(30))
	badClient := mockclient.New("0xnode", pow10(30))
	badClient.FailApprove = true
	r.Attach(8453, goodClient)
	r.Attach(1, badClient)

	results := r.RegisterOnAllChains(context.Background())
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	var sawSuccess, sawFailure bool
	for _, res := range results {
		if res.Err == nil {
			sawSuccess = true
		} else {
			sawFailure = true
		}
	}
	if !sawSuccess || !sawFailure {
		t.Fatalf("expected one success and one failure, got %+v", results)
	}
}

func TestVerifyRegistrationOnChainDoesNotMutateStatus(t *testing.T) {
	r, _ := newTestRegistrar(t)

	before, _ := r.GetRegistrationStatus(8453)
	active, err := r.VerifyRegistrationOnChain(context.Background(), 8453)
	if err != nil {
		t.Fatalf("VerifyRegistrationOnChain: %v", err)
	}
	if active {
		t.Fatal("node should not be active before registration")
	}

	after, _ := r.GetRegistrationStatus(8453)
	if before.Kind != after.Kind {
		t.Fatalf("VerifyRegistrationOnChain must not mutate status: before=%s after=%s", before.Kind, after.Kind)
	}
}

func TestDeriveChainKeyDeterministicAndChainScoped(t *testing.T) {
	secret := "aabbccddeeff00112233445566778899aabbccddeeff00112233445566778899"

	k1, err := DeriveChainKey(secret, 1)
	if err != nil {
		t.Fatalf("DeriveChainKey: %v", err)
	}
	k1Again, err := DeriveChainKey(secret, 1)
	if err != nil {
		t.Fatalf("DeriveChainKey: %v", err)
	}
	if string(k1) != string(k1Again) {
		t.Fatal("DeriveChainKey must be deterministic for the same (secret, chainID)")
	}

	k2, err := DeriveChainKey(secret, 8453)
	if err != nil {
		t.Fatalf("DeriveChainKey: %v", err)
	}
	if string(k1) == string(k2) {
		t.Fatal("DeriveChainKey must differ across chain ids")
	}
}
