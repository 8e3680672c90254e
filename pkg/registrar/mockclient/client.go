// Copyright 2026 Meshlayer
//
// In-memory ChainClient for tests and simulated-failure injection
// (spec section 2 calls out simulated-failure injection as a first
// class monitor scenario).

package mockclient

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/meshlayer/infernode/pkg/registrar"
)

// Client is a registrar.ChainClient double with deterministic,
// inspectable behavior.
type Client struct {
	mu sync.Mutex

	address       string
	balance       *big.Int
	nativeBalance *big.Int

	// Failure injection knobs.
	FailApprove     bool
	FailRegister    bool
	FailReceiptOnce bool // first TransactionReceipt call returns not-mined
	RevertReceipt   bool // mined but Success=false

	nextTxSeq  int64
	blockBase  uint64
	receipts   map[string]registrar.Receipt
	seenOnce   map[string]bool
	activeNode map[string]bool
}

// New returns a mock client holding the given stake balance, a native
// balance of 1e18 and a seeded starting block number.
func New(address string, balance *big.Int) *Client {
	return &Client{
		address:       address,
		balance:       balance,
		nativeBalance: big.NewInt(1_000_000_000_000_000_000),
		blockBase:     1_000_000,
		receipts:      make(map[string]registrar.Receipt),
		seenOnce:      make(map[string]bool),
		activeNode:    make(map[string]bool),
	}
}

// SetNativeBalance overrides the gas-token balance reported by NativeBalance.
func (c *Client) SetNativeBalance(balance *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nativeBalance = balance
}

func (c *Client) NativeBalance(ctx context.Context) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(big.Int).Set(c.nativeBalance), nil
}

func (c *Client) Address() string { return c.address }

func (c *Client) StakeBalance(ctx context.Context) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(big.Int).Set(c.balance), nil
}

func (c *Client) ApproveStake(ctx context.Context, amount *big.Int) (string, error) {
	if c.FailApprove {
		return "", fmt.Errorf("mockclient: approve reverted")
	}
	return c.nextTxHash(), nil
}

func (c *Client) WaitConfirmation(ctx context.Context, txHash string) error {
	return nil
}

func (c *Client) RegisterNode(ctx context.Context, metadataJSON, apiURL string, modelIDs [][32]byte) (string, error) {
	if c.FailRegister {
		return "", fmt.Errorf("mockclient: registerNode reverted")
	}
	txHash := c.nextTxHash()
	c.mu.Lock()
	c.receipts[txHash] = registrar.Receipt{
		Mined:       true,
		BlockNumber: atomic.AddUint64(&c.blockBase, 1),
		Success:     !c.RevertReceipt,
	}
	if !c.RevertReceipt {
		c.activeNode[c.address] = true
	}
	c.mu.Unlock()
	return txHash, nil
}

func (c *Client) TransactionReceipt(ctx context.Context, txHash string) (registrar.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.FailReceiptOnce && !c.seenOnce[txHash] {
		c.seenOnce[txHash] = true
		return registrar.Receipt{Mined: false}, nil
	}
	r, ok := c.receipts[txHash]
	if !ok {
		return registrar.Receipt{Mined: false}, nil
	}
	return r, nil
}

func (c *Client) IsActiveNode(ctx context.Context, nodeAddress string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeNode[nodeAddress], nil
}

func (c *Client) nextTxHash() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextTxSeq++
	return fmt.Sprintf("0xmock%016d", c.nextTxSeq)
}
