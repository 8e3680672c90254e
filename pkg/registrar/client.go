// Copyright 2026 Meshlayer
//
// ChainClient is the external-collaborator seam for blockchain RPC
// transport, wallet signing and contract ABI encoding (spec section 1
// lists these as out of scope for the hard core). Two implementations
// ship: evmclient.Client (real go-ethereum) and mockclient.Client (for
// tests and simulated-failure injection).

package registrar

import (
	"context"
	"math/big"
)

// Receipt is the observer's view of a submitted transaction.
type Receipt struct {
	// Mined is false while the transaction has not yet been included in
	// a block; callers must keep the status Pending in that case.
	Mined       bool
	BlockNumber uint64
	Success     bool
}

// ChainClient is the per-chain RPC/signer pair the registrar drives.
// Implementations must not promote transient RPC errors to a terminal
// failure; callers are responsible for that distinction (spec section 7).
type ChainClient interface {
	// Address returns the signer's address on this chain.
	Address() string

	// StakeBalance returns the caller's stake-token balance in the
	// token's base units (not descaled by its decimals).
	StakeBalance(ctx context.Context) (*big.Int, error)

	// NativeBalance returns the caller's balance of the chain's native
	// gas token, consulted by the monitor for health reporting (spec
	// section 3's fab_balance field).
	NativeBalance(ctx context.Context) (*big.Int, error)

	// ApproveStake submits an approval of amount to the node-registry
	// contract and returns the submitted transaction hash.
	ApproveStake(ctx context.Context, amount *big.Int) (txHash string, err error)

	// WaitConfirmation blocks until the given transaction has at least
	// one confirmation, or ctx is done.
	WaitConfirmation(ctx context.Context, txHash string) error

	// RegisterNode submits registerNode(metadataJSON, apiURL, modelIDs)
	// and returns the submitted transaction hash.
	RegisterNode(ctx context.Context, metadataJSON, apiURL string, modelIDs [][32]byte) (txHash string, err error)

	// TransactionReceipt polls for a receipt. A not-yet-mined
	// transaction returns Receipt{Mined: false} with a nil error.
	TransactionReceipt(ctx context.Context, txHash string) (Receipt, error)

	// IsActiveNode reads the on-chain active-node predicate without
	// mutating any local state.
	IsActiveNode(ctx context.Context, nodeAddress string) (bool, error)
}
