// Copyright 2026 Meshlayer
//
// Shared construction of a chain.Registry/registrar.Registrar pair from
// WorkerConfig + the environment, reused by every subcommand. Grounded
// on main.go's top-level chain/registrar setup, narrowed from one
// hard-coded validator chain list to the config-driven multi-chain list
// spec section 3 describes.

package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/meshlayer/infernode/pkg/chain"
	"github.com/meshlayer/infernode/pkg/config"
	"github.com/meshlayer/infernode/pkg/registrar"
	"github.com/meshlayer/infernode/pkg/registrar/evmclient"
)

// buildRegistrar loads cfg's chain list into a chain.Registry, dials an
// EVM client for every chain (skipped entirely in dry-run mode, since
// no transaction will ever be submitted) and returns a wired Registrar.
func buildRegistrar(ctx context.Context, cfg *config.WorkerConfig, env *config.Env, privateKeyHex string, modelIDs [][32]byte, dryRun bool, logger *log.Logger) (*registrar.Registrar, *chain.Registry, error) {
	reg := chain.NewRegistry()
	for _, entry := range cfg.Chains.Entries {
		reg.Add(chain.Config{
			ChainID: entry.ChainID,
			Name:    entry.Name,
			RPC:     resolveRPC(entry, env),
			StakeToken: chain.TokenConfig{
				Symbol:   entry.StakeTokenSymbol,
				Decimals: entry.StakeTokenDecimals,
			},
			Contracts: chain.Contracts{
				Marketplace:   resolveContract(entry, env, "marketplace"),
				NodeRegistry:  resolveContract(entry, env, "node_registry"),
				ProofSystem:   resolveContract(entry, env, "proof_system"),
				Earnings:      resolveContract(entry, env, "earnings"),
				ModelRegistry: resolveContract(entry, env, "model_registry"),
				Stablecoin:    resolveContract(entry, env, "stablecoin"),
			},
			RequiredConfirmations: entry.RequiredConfirmations,
		}, entry.IsDefault)
	}

	metadata := registrar.NodeMetadata{
		Name:            cfg.Registrar.NodeName,
		Version:         cfg.Registrar.NodeVersion,
		PerformanceTier: cfg.Registrar.PerformanceTier,
		MaxConcurrentJobs: cfg.Registrar.MaxConcurrentJobs,
	}

	r := registrar.New(reg, metadata, cfg.Registrar.NodeAPIURL, modelIDs, cfg.Registrar.MinStakeUnits, cfg.Registrar.ObserverDelay.AsDuration(), logger, nil)

	if dryRun {
		return r, reg, nil
	}

	for _, entry := range cfg.Chains.Entries {
		chainKey, err := registrar.DeriveChainKey(privateKeyHex, entry.ChainID)
		if err != nil {
			return nil, nil, fmt.Errorf("derive chain key for %s: %w", entry.Name, err)
		}

		client, err := evmclient.Dial(ctx, evmclient.Config{
			RPC:                 resolveRPC(entry, env),
			PrivateKeyHex:       fmt.Sprintf("%x", chainKey),
			NodeRegistryAddress: resolveContract(entry, env, "node_registry"),
			StakeTokenAddress:   resolveContract(entry, env, "stablecoin"),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("dial chain %s: %w", entry.Name, err)
		}
		r.Attach(entry.ChainID, client)
	}

	return r, reg, nil
}

func resolveRPC(entry config.ChainEntry, env *config.Env) string {
	if override, ok := env.ChainRPCOverrides[strings.ToUpper(entry.Name)]; ok {
		return override
	}
	return entry.RPC
}

func resolveContract(entry config.ChainEntry, env *config.Env, name string) string {
	envKey := strings.ToUpper(entry.Name) + "_" + strings.ToUpper(name)
	if override, ok := env.ChainContractOverrides[envKey]; ok {
		return override
	}
	return entry.Contracts[name]
}

// resolvePrivateKey honors --private-key, falling back to
// $NODE_PRIVATE_KEY per spec section 6.
func resolvePrivateKey(flagValue string, env *config.Env) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if env.NodePrivateKey != "" {
		return env.NodePrivateKey, nil
	}
	return "", fmt.Errorf("private key required: pass --private-key or set NODE_PRIVATE_KEY")
}

func withTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, 30*time.Second)
}

// contractNames enumerates the keys resolveContract looks for, matching
// the chain.Contracts field set.
var contractNames = []string{"marketplace", "node_registry", "proof_system", "earnings", "model_registry", "stablecoin"}

func loadEnvForConfig(cfg *config.WorkerConfig) *config.Env {
	names := make([]string, 0, len(cfg.Chains.Entries))
	for _, entry := range cfg.Chains.Entries {
		names = append(names, entry.Name)
	}
	return config.LoadEnv(names, contractNames)
}

// modelIDsFromStrings converts the CLI's comma-separated model id list
// (hex, little-endian per spec section 6) into the bytes32[] wire shape.
func modelIDsFromStrings(models []string) ([][32]byte, error) {
	out := make([][32]byte, 0, len(models))
	for _, m := range models {
		m = strings.TrimPrefix(m, "0x")
		if len(m) > 64 {
			return nil, fmt.Errorf("model id %q exceeds 32 bytes", m)
		}
		var id [32]byte
		decoded, err := hexDecode(m)
		if err != nil {
			return nil, fmt.Errorf("model id %q: %w", m, err)
		}
		copy(id[32-len(decoded):], decoded)
		out = append(out, id)
	}
	return out, nil
}

func hexDecode(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		s = "0" + s
	}
	return hex.DecodeString(s)
}
