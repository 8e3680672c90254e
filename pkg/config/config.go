// Copyright 2026 Meshlayer
//
// Environment-variable configuration for the infernode worker process.
// Secrets and per-chain RPC endpoints come from the environment per the
// wire contract in spec section 6; structural tuning lives in the YAML
// file loaded by LoadWorkerConfig (worker_config.go).

package config

import (
	"os"
	"strconv"
	"strings"
)

// Env holds the environment-sourced configuration: secrets and per-chain
// RPC/contract overrides that must never live in a checked-in YAML file.
type Env struct {
	// NodePrivateKey signs registration transactions on every chain the
	// node registers on; per chain, a derived key is used (see
	// registrar.DeriveChainKey) so a single secret works everywhere.
	NodePrivateKey string

	// DataDir is the base directory for cache persistence snapshots.
	DataDir string

	// LogLevel is informational only; logging setup itself is outside
	// the hard core.
	LogLevel string

	// ListenAddr is the dispatch-plane HTTP listen address.
	ListenAddr string

	// ChainRPCOverrides maps chain name (upper-cased, e.g. "BASE") to an
	// RPC URL override read from <CHAIN>_RPC_URL.
	ChainRPCOverrides map[string]string

	// ChainContractOverrides maps "<CHAIN>_<CONTRACT>" to an address
	// override, e.g. BASE_MARKETPLACE.
	ChainContractOverrides map[string]string
}

// LoadEnv reads the process environment per spec section 6. chainNames
// and contractNames enumerate the keys LoadEnv should look for; unknown
// env vars are ignored.
func LoadEnv(chainNames, contractNames []string) *Env {
	e := &Env{
		NodePrivateKey:         os.Getenv("NODE_PRIVATE_KEY"),
		DataDir:                getEnv("DATA_DIR", "./data"),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		ListenAddr:             getEnv("LISTEN_ADDR", "0.0.0.0:8080"),
		ChainRPCOverrides:      map[string]string{},
		ChainContractOverrides: map[string]string{},
	}

	for _, chain := range chainNames {
		key := strings.ToUpper(chain)
		if v := os.Getenv(key + "_RPC_URL"); v != "" {
			e.ChainRPCOverrides[key] = v
		}
		for _, contract := range contractNames {
			envKey := key + "_" + strings.ToUpper(contract)
			if v := os.Getenv(envKey); v != "" {
				e.ChainContractOverrides[envKey] = v
			}
		}
	}

	return e
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
