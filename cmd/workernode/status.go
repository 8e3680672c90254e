// Copyright 2026 Meshlayer

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meshlayer/infernode/pkg/config"
)

func newRegistrationStatusCmd() *cobra.Command {
	var chainID int64
	var allChains bool

	cmd := &cobra.Command{
		Use:   "registration-status",
		Short: "query each chain's registry contract for this node's current status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadWorkerConfig(configPath)
			if err != nil {
				return err
			}

			env := loadEnvForConfig(cfg)
			key, err := resolvePrivateKey(privateKeyHex, env)
			if err != nil {
				return err
			}

			ctx, cancel := withTimeout(cmd.Context())
			defer cancel()

			// A process restart carries no memory of any registration
			// it previously submitted, so the in-memory Status the
			// registrar tracks during a register-node run is useless
			// here; this command dials every chain for real and asks
			// the registry contract directly whether the node is
			// active, independent of whatever tx state a prior run
			// may have left pending.
			r, _, err := buildRegistrar(ctx, cfg, env, key, nil, false, nil)
			if err != nil {
				return err
			}
			for _, entry := range cfg.Chains.Entries {
				if !allChains && entry.ChainID != chainID {
					continue
				}
				active, err := r.VerifyRegistrationOnChain(ctx, entry.ChainID)
				if err != nil {
					fmt.Printf("chain %d (%s): %v\n", entry.ChainID, entry.Name, err)
					continue
				}
				if active {
					fmt.Printf("chain %d (%s): Confirmed\n", entry.ChainID, entry.Name)
				} else {
					fmt.Printf("chain %d (%s): NotRegistered\n", entry.ChainID, entry.Name)
				}
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&chainID, "chain", 0, "chain id to report status for")
	cmd.Flags().BoolVar(&allChains, "all-chains", false, "report status for every configured chain")
	return cmd
}
