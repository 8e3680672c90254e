// Copyright 2026 Meshlayer
//
// EVM implementation of registrar.ChainClient, grounded on the
// go-ethereum ethclient/bind wiring used for EVM chains: dial, fetch
// chain id, build a keyed transactor, submit calls, poll receipts.

package evmclient

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/meshlayer/infernode/pkg/registrar"
)

// Config configures a Client.
type Config struct {
	RPC                   string
	PrivateKeyHex         string
	NodeRegistryAddress   string
	StakeTokenAddress     string
	GasLimit              uint64
	MaxGasPriceGwei       int64
}

// Client is a registrar.ChainClient backed by a live EVM RPC endpoint.
type Client struct {
	client  *ethclient.Client
	auth    *bind.TransactOpts
	chainID *big.Int

	nodeRegistry common.Address
	stakeToken   common.Address
}

// Dial connects to cfg.RPC and derives a transactor from cfg.PrivateKeyHex.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.RPC == "" {
		return nil, fmt.Errorf("evmclient: RPC endpoint is required")
	}

	c, err := ethclient.DialContext(ctx, cfg.RPC)
	if err != nil {
		return nil, fmt.Errorf("evmclient: dial: %w", err)
	}

	chainID, err := c.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("evmclient: chain id: %w", err)
	}

	privateKey, err := crypto.HexToECDSA(cfg.PrivateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("evmclient: invalid private key: %w", err)
	}

	auth, err := bind.NewKeyedTransactorWithChainID(privateKey, chainID)
	if err != nil {
		return nil, fmt.Errorf("evmclient: transactor: %w", err)
	}
	if cfg.GasLimit > 0 {
		auth.GasLimit = cfg.GasLimit
	}
	if cfg.MaxGasPriceGwei > 0 {
		auth.GasPrice = big.NewInt(cfg.MaxGasPriceGwei * 1e9)
	}

	return &Client{
		client:       c,
		auth:         auth,
		chainID:      chainID,
		nodeRegistry: common.HexToAddress(cfg.NodeRegistryAddress),
		stakeToken:   common.HexToAddress(cfg.StakeTokenAddress),
	}, nil
}

// Address returns the signer's address.
func (c *Client) Address() string {
	return c.auth.From.Hex()
}

// StakeBalance returns the caller's balance of the stake token.
func (c *Client) StakeBalance(ctx context.Context) (*big.Int, error) {
	msg := ethereum.CallMsg{
		From: c.auth.From,
		To:   &c.stakeToken,
		Data: balanceOfCalldata(c.auth.From),
	}
	out, err := c.client.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("evmclient: balanceOf call: %w", err)
	}
	return new(big.Int).SetBytes(out), nil
}

// NativeBalance returns the signer's native gas-token balance.
func (c *Client) NativeBalance(ctx context.Context) (*big.Int, error) {
	return c.client.BalanceAt(ctx, c.auth.From, nil)
}

// ApproveStake submits an ERC-20 approve(nodeRegistry, amount) call.
func (c *Client) ApproveStake(ctx context.Context, amount *big.Int) (string, error) {
	nonce, err := c.client.PendingNonceAt(ctx, c.auth.From)
	if err != nil {
		return "", fmt.Errorf("evmclient: nonce: %w", err)
	}
	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("evmclient: gas price: %w", err)
	}

	tx := newLegacyTx(nonce, c.stakeToken, gasPrice, c.auth.GasLimit, approveCalldata(c.nodeRegistry, amount))
	signed, err := c.auth.Signer(c.auth.From, tx)
	if err != nil {
		return "", fmt.Errorf("evmclient: sign approve: %w", err)
	}
	if err := c.client.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("evmclient: send approve: %w", err)
	}
	return signed.Hash().Hex(), nil
}

// WaitConfirmation blocks (with an upper bound derived from ctx) until
// the transaction is mined.
func (c *Client) WaitConfirmation(ctx context.Context, txHash string) error {
	hash := common.HexToHash(txHash)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			_, isPending, err := c.client.TransactionByHash(ctx, hash)
			if err != nil {
				continue
			}
			if !isPending {
				return nil
			}
		}
	}
}

// RegisterNode submits registerNode(metadataJSON, apiURL, modelIDs).
func (c *Client) RegisterNode(ctx context.Context, metadataJSON, apiURL string, modelIDs [][32]byte) (string, error) {
	nonce, err := c.client.PendingNonceAt(ctx, c.auth.From)
	if err != nil {
		return "", fmt.Errorf("evmclient: nonce: %w", err)
	}
	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("evmclient: gas price: %w", err)
	}

	data := registerNodeCalldata(metadataJSON, apiURL, modelIDs)
	tx := newLegacyTx(nonce, c.nodeRegistry, gasPrice, c.auth.GasLimit, data)
	signed, err := c.auth.Signer(c.auth.From, tx)
	if err != nil {
		return "", fmt.Errorf("evmclient: sign registerNode: %w", err)
	}
	if err := c.client.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("evmclient: send registerNode: %w", err)
	}
	return signed.Hash().Hex(), nil
}

// TransactionReceipt polls for a receipt; a not-yet-mined transaction
// returns a zero-value Receipt with a nil error, matching the spec's
// "transient errors keep Pending" rule.
func (c *Client) TransactionReceipt(ctx context.Context, txHash string) (registrar.Receipt, error) {
	hash := common.HexToHash(txHash)
	receipt, err := c.client.TransactionReceipt(ctx, hash)
	if err != nil {
		if err == ethereum.NotFound {
			return registrar.Receipt{Mined: false}, nil
		}
		return registrar.Receipt{}, fmt.Errorf("evmclient: receipt: %w", err)
	}
	return registrar.Receipt{
		Mined:       true,
		BlockNumber: receipt.BlockNumber.Uint64(),
		Success:     receipt.Status == 1,
	}, nil
}

// IsActiveNode reads the node-registry's isActiveNode(address) view.
func (c *Client) IsActiveNode(ctx context.Context, nodeAddress string) (bool, error) {
	addr := common.HexToAddress(nodeAddress)
	msg := ethereum.CallMsg{
		To:   &c.nodeRegistry,
		Data: isActiveNodeCalldata(addr),
	}
	out, err := c.client.CallContract(ctx, msg, nil)
	if err != nil {
		return false, fmt.Errorf("evmclient: isActiveNode call: %w", err)
	}
	if len(out) == 0 {
		return false, nil
	}
	return out[len(out)-1] != 0, nil
}
