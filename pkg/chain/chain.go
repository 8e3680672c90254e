// Copyright 2026 Meshlayer
//
// Chain registry: per spec section 3, the immutable identity of a chain
// a worker node may register on. Adapted from the chain-strategy config
// shape (platform/chain-id/rpc/contracts), narrowed to the spec's
// single-platform (EVM-style) model.

package chain

import (
	"fmt"
	"sync"
)

// TokenConfig describes the chain's native or stake token.
type TokenConfig struct {
	Symbol   string
	Decimals int
}

// Contracts holds the marketplace contract addresses for a chain. A
// zero-value (empty string) address means the contract is not deployed
// on this chain.
type Contracts struct {
	Marketplace   string
	NodeRegistry  string
	ProofSystem   string
	Earnings      string
	ModelRegistry string
	Stablecoin    string
}

// Config is the immutable identity of a blockchain a node may register
// on (spec section 3's ChainConfig).
type Config struct {
	ChainID               int64
	Name                  string
	RPC                   string
	StakeToken            TokenConfig
	Contracts             Contracts
	RequiredConfirmations int
}

// Deployed reports whether the critical marketplace/registry/proof
// contracts are all present, per spec section 3: "A config is deployed
// iff critical contract addresses are non-zero."
func (c Config) Deployed() bool {
	return c.Contracts.Marketplace != "" &&
		c.Contracts.NodeRegistry != "" &&
		c.Contracts.ProofSystem != ""
}

// MinStake returns the minimum stake required to register, scaled by the
// stake token's decimals, per spec section 6 ("1000 units ... scaled by
// decimals").
func (c Config) MinStake(minStakeUnits int64) *ScaledAmount {
	return &ScaledAmount{Units: minStakeUnits, Decimals: c.StakeToken.Decimals}
}

// ScaledAmount is a token amount expressed in whole units, to be scaled
// by Decimals before submission on-chain. Kept as a plain struct rather
// than a big.Int product so callers choose their own arithmetic backend
// (e.g. math/big for EVM, a different scale for other platforms).
type ScaledAmount struct {
	Units    int64
	Decimals int
}

// Registry maps chain_id to Config, with one chain marked as the default.
type Registry struct {
	mu             sync.RWMutex
	chains         map[int64]Config
	defaultChainID int64
	hasDefault     bool
}

// NewRegistry builds an empty Registry. Chains are added with Add; the
// most recent Add call with isDefault set decides the default.
func NewRegistry() *Registry {
	return &Registry{chains: make(map[int64]Config)}
}

// ErrUnsupportedChain is returned when a chain_id has no registered
// Config.
var ErrUnsupportedChain = fmt.Errorf("unsupported chain")

// Add registers a chain config. If isDefault is true it becomes (or
// replaces) the distinguished default chain.
func (r *Registry) Add(cfg Config, isDefault bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chains[cfg.ChainID] = cfg
	if isDefault {
		r.defaultChainID = cfg.ChainID
		r.hasDefault = true
	}
}

// Get returns the Config for chainID.
func (r *Registry) Get(chainID int64) (Config, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.chains[chainID]
	if !ok {
		return Config{}, fmt.Errorf("%w: chain %d", ErrUnsupportedChain, chainID)
	}
	return cfg, nil
}

// Default returns the distinguished default chain config.
func (r *Registry) Default() (Config, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.hasDefault {
		return Config{}, fmt.Errorf("%w: no default chain configured", ErrUnsupportedChain)
	}
	return r.chains[r.defaultChainID], nil
}

// All returns every registered chain ID, unordered.
func (r *Registry) All() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]int64, 0, len(r.chains))
	for id := range r.chains {
		ids = append(ids, id)
	}
	return ids
}
