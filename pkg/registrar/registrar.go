// Copyright 2026 Meshlayer
//
// MultiChainRegistrar: owns per-chain RPC/signer pairs, drives
// registration transactions, exposes current status. Grounded on
// EVMStrategy's dial/auth/observe shape, generalized from a single EVM
// chain to the registry of chains in pkg/chain and from a 3-step
// anchor workflow to the spec's single register_on_chain call.

package registrar

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/big"
	"sync"
	"time"

	"github.com/meshlayer/infernode/pkg/chain"
	"github.com/meshlayer/infernode/pkg/metrics"
)

// ErrInsufficientStake is returned when the stake-token balance is
// below the chain's configured minimum.
var ErrInsufficientStake = fmt.Errorf("insufficient stake")

// ChainResult is one element of register_on_all_chains' fan-out result.
type ChainResult struct {
	ChainID int64
	TxHash  string
	Err     error
}

// Registrar owns registration state for a single node address across
// every chain it has been attached to.
type Registrar struct {
	mu       sync.RWMutex
	registry *chain.Registry
	clients  map[int64]ChainClient
	status   map[int64]Status

	metadata NodeMetadata
	apiURL   string
	modelIDs [][32]byte

	minStakeUnits int64
	observerDelay time.Duration

	log *log.Logger
	m   *metrics.Registry
}

// New builds a Registrar. metadata/apiURL/modelIDs are the fixed
// registration payload submitted on every chain.
func New(reg *chain.Registry, metadata NodeMetadata, apiURL string, modelIDs [][32]byte, minStakeUnits int64, observerDelay time.Duration, logger *log.Logger, m *metrics.Registry) *Registrar {
	if logger == nil {
		logger = log.Default()
	}
	return &Registrar{
		registry:      reg,
		clients:       make(map[int64]ChainClient),
		status:        make(map[int64]Status),
		metadata:      metadata,
		apiURL:        apiURL,
		modelIDs:      modelIDs,
		minStakeUnits: minStakeUnits,
		observerDelay: observerDelay,
		log:           logger,
		m:             m,
	}
}

// Attach registers a ChainClient for chainID and seeds its status as
// NotRegistered, per spec section 3's lifecycle ("created NotRegistered
// on chain attach").
func (r *Registrar) Attach(chainID int64, client ChainClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[chainID] = client
	if _, ok := r.status[chainID]; !ok {
		r.status[chainID] = NotRegisteredStatus()
	}
}

// Reset clears a chain's status back to NotRegistered. The only
// non-monotone transition the spec allows, driven explicitly by an
// operator.
func (r *Registrar) Reset(chainID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status[chainID] = NotRegisteredStatus()
}

func (r *Registrar) setStatus(chainID int64, s Status) {
	r.mu.Lock()
	r.status[chainID] = s
	r.mu.Unlock()
}

// GetRegistrationStatus returns a clone of the current status for
// chainID.
func (r *Registrar) GetRegistrationStatus(chainID int64) (Status, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.status[chainID]
	if !ok {
		return Status{}, fmt.Errorf("%w: chain %d", chain.ErrUnsupportedChain, chainID)
	}
	return s, nil
}

// ChainIDs returns every chain with an attached client, unordered. Used
// by the monitor to discover which chains to supervise.
func (r *Registrar) ChainIDs() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]int64, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	return ids
}

// Balances returns the stake-token and native-token balances for
// chainID, for the monitor's health reporting (spec section 3's
// stake_balance/fab_balance fields).
func (r *Registrar) Balances(ctx context.Context, chainID int64) (stake, native *big.Int, err error) {
	r.mu.RLock()
	client, ok := r.clients[chainID]
	r.mu.RUnlock()
	if !ok {
		return nil, nil, fmt.Errorf("%w: chain %d has no attached client", chain.ErrUnsupportedChain, chainID)
	}
	stake, err = client.StakeBalance(ctx)
	if err != nil {
		return nil, nil, err
	}
	native, err = client.NativeBalance(ctx)
	if err != nil {
		return nil, nil, err
	}
	return stake, native, nil
}

// RegisterOnChain drives the full registration flow for a single
// chain, per spec section 4.1.
func (r *Registrar) RegisterOnChain(ctx context.Context, chainID int64) (txHash string, err error) {
	cfg, err := r.registry.Get(chainID)
	if err != nil {
		return "", err
	}

	r.mu.RLock()
	client, ok := r.clients[chainID]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: chain %d has no attached client", chain.ErrUnsupportedChain, chainID)
	}

	balance, err := client.StakeBalance(ctx)
	if err != nil {
		return "", fmt.Errorf("registrar: query stake balance: %w", err)
	}
	minStake := cfg.MinStake(r.minStakeUnits)
	minStakeScaled := scaleUnits(minStake.Units, minStake.Decimals)
	if balance.Cmp(minStakeScaled) < 0 {
		return "", fmt.Errorf("%w: have %s, need %s", ErrInsufficientStake, balance, minStakeScaled)
	}

	start := time.Now()

	approveTx, err := client.ApproveStake(ctx, minStakeScaled)
	if err != nil {
		r.recordAttempt(cfg.Name, "approve_failed")
		return "", fmt.Errorf("registrar: approve stake: %w", err)
	}
	if err := client.WaitConfirmation(ctx, approveTx); err != nil {
		r.recordAttempt(cfg.Name, "approve_unconfirmed")
		return "", fmt.Errorf("registrar: wait approve confirmation: %w", err)
	}

	metadataJSON, err := json.Marshal(r.metadata)
	if err != nil {
		return "", fmt.Errorf("registrar: marshal metadata: %w", err)
	}

	tx, err := client.RegisterNode(ctx, string(metadataJSON), r.apiURL, r.modelIDs)
	if err != nil {
		r.recordAttempt(cfg.Name, "register_failed")
		// Approval already succeeded and is left in place; the next
		// attempt reuses it (spec section 4.1 edge case).
		return "", fmt.Errorf("registrar: submit registerNode: %w", err)
	}

	r.setStatus(chainID, PendingStatus(tx))
	r.recordAttempt(cfg.Name, "pending")
	if r.m != nil {
		r.m.RegistrationTxLatency.WithLabelValues(cfg.Name).Observe(time.Since(start).Seconds())
	}

	r.spawnObserver(chainID, cfg.Name, client, tx)

	return tx, nil
}

// spawnObserver launches the detached goroutine that waits a short
// delay then fetches the receipt once. It never retries indefinitely;
// persistent non-confirmation is the monitor's problem to surface.
func (r *Registrar) spawnObserver(chainID int64, chainName string, client ChainClient, txHash string) {
	go func() {
		timer := time.NewTimer(r.observerDelay)
		defer timer.Stop()
		<-timer.C

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		receipt, err := client.TransactionReceipt(ctx, txHash)
		if err != nil {
			// Transient RPC error: keep Pending, do not corrupt state.
			r.log.Printf("registrar: chain %d observe error (keeping Pending): %v", chainID, err)
			return
		}
		if !receipt.Mined {
			// Not yet mined: keep Pending.
			return
		}
		if !receipt.Success {
			r.setStatus(chainID, FailedStatus("transaction reverted"))
			r.recordAttempt(chainName, "reverted")
			return
		}
		r.setStatus(chainID, ConfirmedStatus(receipt.BlockNumber))
		r.recordAttempt(chainName, "confirmed")
	}()
}

// VerifyRegistrationOnChain reads the on-chain active-node predicate.
// It never mutates status.
func (r *Registrar) VerifyRegistrationOnChain(ctx context.Context, chainID int64) (bool, error) {
	r.mu.RLock()
	client, ok := r.clients[chainID]
	r.mu.RUnlock()
	if !ok {
		return false, fmt.Errorf("%w: chain %d has no attached client", chain.ErrUnsupportedChain, chainID)
	}
	return client.IsActiveNode(ctx, client.Address())
}

// RegisterOnAllChains fans out RegisterOnChain across every attached
// chain. One chain's failure never aborts the others.
func (r *Registrar) RegisterOnAllChains(ctx context.Context) []ChainResult {
	r.mu.RLock()
	chainIDs := make([]int64, 0, len(r.clients))
	for id := range r.clients {
		chainIDs = append(chainIDs, id)
	}
	r.mu.RUnlock()

	results := make([]ChainResult, 0, len(chainIDs))
	for _, id := range chainIDs {
		tx, err := r.RegisterOnChain(ctx, id)
		results = append(results, ChainResult{ChainID: id, TxHash: tx, Err: err})
	}
	return results
}

func (r *Registrar) recordAttempt(chainName, outcome string) {
	if r.m == nil {
		return
	}
	r.m.RegistrationAttempts.WithLabelValues(chainName, outcome).Inc()
}

func scaleUnits(units int64, decimals int) *big.Int {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return new(big.Int).Mul(big.NewInt(units), scale)
}
