// Copyright 2026 Meshlayer

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meshlayer/infernode/pkg/config"
)

func newRegisterNodeCmd() *cobra.Command {
	var chainID int64
	var allChains bool
	var nodeName, apiURL string
	var models []string

	cmd := &cobra.Command{
		Use:   "register-node",
		Short: "register this node on one chain or every configured chain",
		RunE: func(cmd *cobra.Command, args []string) error {
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
				fmt.Println("dry run: no transactions submitted")
				if allChains {
					for _, entry := range cfg.Chains.Entries {
						fmt.Printf("would register on chain %d (%s)\n", entry.ChainID, entry.Name)
					}
				} else {
					fmt.Printf("would register on chain %d\n", chainID)
				}
				return nil
			}

			if allChains {
				results := r.RegisterOnAllChains(ctx)
				failed := 0
				for _, res := range results {
					if res.Err != nil {
						failed++
						fmt.Printf("chain %d: FAILED: %v\n", res.ChainID, res.Err)
						continue
					}
					fmt.Printf("chain %d: submitted tx %s\n", res.ChainID, res.TxHash)
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d chains failed to register", failed, len(results))
				}
				return nil
			}

			if chainID == 0 {
				return fmt.Errorf("--chain is required unless --all-chains is set")
			}
			tx, err := r.RegisterOnChain(ctx, chainID)
			if err != nil {
				return fmt.Errorf("chain %d: %w", chainID, err)
			}
			fmt.Printf("chain %d: submitted tx %s\n", chainID, tx)
			return nil
		},
	}

	cmd.Flags().Int64Var(&chainID, "chain", 0, "chain id to register on")
	cmd.Flags().BoolVar(&allChains, "all-chains", false, "register on every configured chain")
	cmd.Flags().StringVar(&nodeName, "name", "", "node name override")
	cmd.Flags().StringVar(&apiURL, "api-url", "", "node API URL override")
	cmd.Flags().StringSliceVar(&models, "models", nil, "model ids this node serves")
	return cmd
}
