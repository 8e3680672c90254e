// Copyright 2026 Meshlayer

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meshlayer/infernode/pkg/config"
)

// newUpdateRegistrationCmd re-submits registerNode on an already
// registered chain. The node registry contract's registerNode is the
// only write path the registrar exposes (there is no separate
// updateMetadata call), so "update" means resubmitting the current
// metadata/api-url/model list: the contract overwrites its stored
// record on every call, which is exactly what a metadata change needs.
func newUpdateRegistrationCmd() *cobra.Command {
	var chainID int64
	var nodeName, apiURL string
	var models []string

	cmd := &cobra.Command{
		Use:   "update-registration",
		Short: "resubmit this node's registration on a chain with refreshed metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			if chainID == 0 {
				return fmt.Errorf("--chain is required")
			}

			cfg, err := config.LoadWorkerConfig(configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if nodeName != "" {
				cfg.Registrar.NodeName = nodeName
			}
			if apiURL != "" {
				cfg.Registrar.NodeAPIURL = apiURL
			}

			env := loadEnvForConfig(cfg)
			key, err := resolvePrivateKey(privateKeyHex, env)
			if err != nil {
				return err
			}

			modelIDs, err := modelIDsFromStrings(models)
			if err != nil {
				return err
			}

			ctx, cancel := withTimeout(cmd.Context())
			defer cancel()

			r, _, err := buildRegistrar(ctx, cfg, env, key, modelIDs, dryRun, nil)
			if err != nil {
				return err
			}

			if dryRun {
				fmt.Printf("dry run: would resubmit registration on chain %d\n", chainID)
				return nil
			}

			tx, err := r.RegisterOnChain(ctx, chainID)
			if err != nil {
				return fmt.Errorf("chain %d: %w", chainID, err)
			}
			fmt.Printf("chain %d: submitted tx %s\n", chainID, tx)
			return nil
		},
	}

	cmd.Flags().Int64Var(&chainID, "chain", 0, "chain id to update registration on")
	cmd.Flags().StringVar(&nodeName, "name", "", "node name override")
	cmd.Flags().StringVar(&apiURL, "api-url", "", "node API URL override")
	cmd.Flags().StringSliceVar(&models, "models", nil, "model ids this node serves")
	return cmd
}
