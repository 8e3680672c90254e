// Copyright 2026 Meshlayer
//
// workernode is the thin CLI surface spec section 6 calls for: chain
// registration, status reporting and renewal, plus a `serve` command
// that runs the long-running worker daemon. Cobra wiring style follows
// the teacher's cmd/bls-zk-setup/main.go shape (parse, run, print error
// to stderr, exit non-zero), generalized from a single command to a
// subcommand tree.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath    string
	privateKeyHex string
	dryRun        bool
)

func main() {
	root := &cobra.Command{
		Use:   "workernode",
		Short: "infernode worker-node runtime",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the worker configuration file")
	root.PersistentFlags().StringVar(&privateKeyHex, "private-key", "", "operator private key (hex); falls back to $NODE_PRIVATE_KEY")
	root.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "validate and print actions without submitting transactions")

	root.AddCommand(newServeCmd())
	root.AddCommand(newRegisterNodeCmd())
	root.AddCommand(newRegistrationStatusCmd())
	root.AddCommand(newUpdateRegistrationCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
