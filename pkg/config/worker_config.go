// Copyright 2026 Meshlayer
//
// Worker configuration loader: YAML file with ${VAR_NAME} environment
// substitution, mirroring the wire contract in spec section 6 (chain RPC
// and contract address overrides are layered on top by config.Env, never
// committed to the YAML tree).

package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// WorkerConfig is the root configuration tree for a worker node process.
type WorkerConfig struct {
	Environment string `yaml:"environment"`
	NodeAddress string `yaml:"node_address"`

	Chains       ChainsSettings       `yaml:"chains"`
	Registrar    RegistrarSettings    `yaml:"registrar"`
	Monitor      MonitorSettings      `yaml:"monitor"`
	Cache        CacheSettings        `yaml:"cache"`
	Batch        BatchSettings        `yaml:"batch"`
	LoadBalancer LoadBalancerSettings `yaml:"load_balancer"`
	Proof        ProofSettings        `yaml:"proof"`
	GPU          GPUSettings          `yaml:"gpu"`
	Server       ServerSettings       `yaml:"server"`
	Store        StoreSettings        `yaml:"store"`
}

// StoreSettings tunes ProofStore/ResultStore's optional persistence.
type StoreSettings struct {
	PersistenceEnabled bool     `yaml:"persistence_enabled"`
	DatabaseURL        string   `yaml:"database_url"`
	MaxOpenConns       int      `yaml:"max_open_conns"`
	MaxIdleConns       int      `yaml:"max_idle_conns"`
	ConnMaxLifetime    Duration `yaml:"conn_max_lifetime"`
}

// ChainEntry describes one chain this node may register on.
type ChainEntry struct {
	ChainID               int64             `yaml:"chain_id"`
	Name                  string            `yaml:"name"`
	RPC                   string            `yaml:"rpc"`
	StakeTokenSymbol      string            `yaml:"stake_token_symbol"`
	StakeTokenDecimals    int               `yaml:"stake_token_decimals"`
	Contracts             map[string]string `yaml:"contracts"`
	RequiredConfirmations int               `yaml:"required_confirmations"`
	IsDefault             bool              `yaml:"is_default"`
}

// ChainsSettings lists all chains the node knows about.
type ChainsSettings struct {
	Entries []ChainEntry `yaml:"entries"`
}

// RegistrarSettings tunes MultiChainRegistrar.
type RegistrarSettings struct {
	MinStakeUnits           int64    `yaml:"min_stake_units"`
	ApprovalConfirmations   int      `yaml:"approval_confirmations"`
	ObserverDelay           Duration `yaml:"observer_delay"`
	TxSubmitTimeout         Duration `yaml:"tx_submit_timeout"`
	RetryInitialBackoff     Duration `yaml:"retry_initial_backoff"`
	RetryMaxBackoff         Duration `yaml:"retry_max_backoff"`
	RetryMaxAttempts        int      `yaml:"retry_max_attempts"`
	NodeAPIURL              string   `yaml:"node_api_url"`
	NodeName                string   `yaml:"node_name"`
	NodeVersion             string   `yaml:"node_version"`
	PerformanceTier         string   `yaml:"performance_tier"`
	MaxConcurrentJobs       int      `yaml:"max_concurrent_jobs"`
}

// MonitorSettings tunes RegistrationMonitor.
type MonitorSettings struct {
	CheckInterval      Duration `yaml:"check_interval"`
	CriticalThreshold  Duration `yaml:"critical_threshold"`
	WarningThreshold   Duration `yaml:"warning_threshold"`
	RenewalBuffer      Duration `yaml:"renewal_buffer"`
	AutoRenewEnabled   bool     `yaml:"auto_renew_enabled"`
	MockMode           bool     `yaml:"mock_mode"`
}

// CacheSettings tunes InferenceCache.
type CacheSettings struct {
	MaxMemoryMB           int      `yaml:"max_memory_mb"`
	DefaultTTL            Duration `yaml:"default_ttl"`
	SemanticEnabled       bool     `yaml:"semantic_enabled"`
	SemanticThreshold     float64  `yaml:"semantic_threshold"`
	SemanticDimensions    int      `yaml:"semantic_dimensions"`
	EventBufferSize       int      `yaml:"event_buffer_size"`
	PersistPath           string   `yaml:"persist_path"`
	MemoryWarningFraction float64  `yaml:"memory_warning_fraction"`
}

// BatchSettings tunes BatchProcessor.
type BatchSettings struct {
	MaxBatchSize    int      `yaml:"max_batch_size"`
	MaxWaitTime     Duration `yaml:"max_wait_time"`
	QueueCapacity   int      `yaml:"queue_capacity"`
	Strategy        string   `yaml:"strategy"`         // static|dynamic|adaptive|continuous
	PaddingStrategy string   `yaml:"padding_strategy"` // none|left|right|bucket
}

// LoadBalancerSettings tunes LoadBalancer.
type LoadBalancerSettings struct {
	Strategy                string   `yaml:"strategy"`
	SessionAffinityEnabled  bool     `yaml:"session_affinity_enabled"`
	HealthCheckInterval     Duration `yaml:"health_check_interval"`
	OverloadCPUThreshold    float64  `yaml:"overload_cpu_threshold"`
	OverloadMemThreshold    float64  `yaml:"overload_mem_threshold"`
	ErrorRateOpenThreshold  float64  `yaml:"error_rate_open_threshold"`
	ConsecutiveFailureLimit int      `yaml:"consecutive_failure_limit"`
}

// ProofSettings tunes ProofGenerator / SettlementValidator.
type ProofSettings struct {
	DefaultBackend string `yaml:"default_backend"` // simple|ezkl|risc0
	MaxProofSize   int    `yaml:"max_proof_size"`
	EZKLEnabled    bool   `yaml:"ezkl_enabled"`
	Risc0Enabled   bool   `yaml:"risc0_enabled"`
}

// GPUSettings tunes the GPU allocator.
type GPUSettings struct {
	Strategy           string `yaml:"strategy"` // first_fit|best_fit|round_robin|least_utilized
	AllowCPUFallback   bool   `yaml:"allow_cpu_fallback"`
}

// ServerSettings tunes the HTTP dispatch-plane server.
type ServerSettings struct {
	ListenAddr      string   `yaml:"listen_addr"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// Duration wraps time.Duration for YAML unmarshaling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// AsDuration returns the time.Duration value.
func (d Duration) AsDuration() time.Duration {
	return time.Duration(d)
}

// LoadWorkerConfig loads the worker configuration from a YAML file,
// substituting ${VAR_NAME} / ${VAR_NAME:-default} against the process
// environment before parsing.
func LoadWorkerConfig(path string) (*WorkerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	expanded := substituteEnvVars(string(data))

	var cfg WorkerConfig
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *WorkerConfig) applyDefaults() {
	if c.Registrar.MinStakeUnits == 0 {
		c.Registrar.MinStakeUnits = 1000
	}
	if c.Registrar.ApprovalConfirmations == 0 {
		c.Registrar.ApprovalConfirmations = 1
	}
	if c.Registrar.ObserverDelay == 0 {
		c.Registrar.ObserverDelay = Duration(3 * time.Second)
	}
	if c.Registrar.RetryMaxAttempts == 0 {
		c.Registrar.RetryMaxAttempts = 3
	}
	if c.Registrar.RetryInitialBackoff == 0 {
		c.Registrar.RetryInitialBackoff = Duration(500 * time.Millisecond)
	}
	if c.Registrar.RetryMaxBackoff == 0 {
		c.Registrar.RetryMaxBackoff = Duration(10 * time.Second)
	}
	if c.Registrar.PerformanceTier == "" {
		c.Registrar.PerformanceTier = "standard"
	}

	if c.Monitor.CheckInterval == 0 {
		c.Monitor.CheckInterval = Duration(30 * time.Second)
	}
	if c.Monitor.CriticalThreshold == 0 {
		c.Monitor.CriticalThreshold = Duration(24 * time.Hour)
	}
	if c.Monitor.WarningThreshold == 0 {
		c.Monitor.WarningThreshold = Duration(72 * time.Hour)
	}
	if c.Monitor.RenewalBuffer == 0 {
		c.Monitor.RenewalBuffer = Duration(48 * time.Hour)
	}

	if c.Cache.MaxMemoryMB == 0 {
		c.Cache.MaxMemoryMB = 512
	}
	if c.Cache.DefaultTTL == 0 {
		c.Cache.DefaultTTL = Duration(1 * time.Hour)
	}
	if c.Cache.SemanticThreshold == 0 {
		c.Cache.SemanticThreshold = 0.95
	}
	if c.Cache.SemanticDimensions == 0 {
		c.Cache.SemanticDimensions = 64
	}
	if c.Cache.EventBufferSize == 0 {
		c.Cache.EventBufferSize = 256
	}
	if c.Cache.MemoryWarningFraction == 0 {
		c.Cache.MemoryWarningFraction = 0.9
	}

	if c.Batch.MaxBatchSize == 0 {
		c.Batch.MaxBatchSize = 16
	}
	if c.Batch.MaxWaitTime == 0 {
		c.Batch.MaxWaitTime = Duration(200 * time.Millisecond)
	}
	if c.Batch.QueueCapacity == 0 {
		c.Batch.QueueCapacity = 1000
	}
	if c.Batch.Strategy == "" {
		c.Batch.Strategy = "dynamic"
	}
	if c.Batch.PaddingStrategy == "" {
		c.Batch.PaddingStrategy = "right"
	}

	if c.LoadBalancer.Strategy == "" {
		c.LoadBalancer.Strategy = "round_robin"
	}
	if c.LoadBalancer.HealthCheckInterval == 0 {
		c.LoadBalancer.HealthCheckInterval = Duration(10 * time.Second)
	}
	if c.LoadBalancer.OverloadCPUThreshold == 0 {
		c.LoadBalancer.OverloadCPUThreshold = 0.85
	}
	if c.LoadBalancer.OverloadMemThreshold == 0 {
		c.LoadBalancer.OverloadMemThreshold = 0.85
	}
	if c.LoadBalancer.ErrorRateOpenThreshold == 0 {
		c.LoadBalancer.ErrorRateOpenThreshold = 0.5
	}
	if c.LoadBalancer.ConsecutiveFailureLimit == 0 {
		c.LoadBalancer.ConsecutiveFailureLimit = 3
	}

	if c.Proof.DefaultBackend == "" {
		c.Proof.DefaultBackend = "simple"
	}
	if c.Proof.MaxProofSize == 0 {
		c.Proof.MaxProofSize = 65536
	}

	if c.GPU.Strategy == "" {
		c.GPU.Strategy = "best_fit"
	}

	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = "0.0.0.0:8080"
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = Duration(10 * time.Second)
	}

	if c.Store.MaxOpenConns == 0 {
		c.Store.MaxOpenConns = 10
	}
	if c.Store.MaxIdleConns == 0 {
		c.Store.MaxIdleConns = 2
	}
	if c.Store.ConnMaxLifetime == 0 {
		c.Store.ConnMaxLifetime = Duration(30 * time.Minute)
	}
}

// envVarPattern matches ${VAR_NAME} or ${VAR_NAME:-default}.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

func substituteEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultValue := ""
		if len(groups) >= 4 {
			defaultValue = groups[3]
		}
		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks structural preconditions the worker needs before it can
// serve traffic.
func (c *WorkerConfig) Validate() error {
	var problems []string

	if len(c.Chains.Entries) == 0 {
		problems = append(problems, "chains.entries must list at least one chain")
	}
	defaults := 0
	for i, ch := range c.Chains.Entries {
		if ch.ChainID == 0 {
			problems = append(problems, fmt.Sprintf("chains.entries[%d].chain_id is required", i))
		}
		if ch.RPC == "" {
			problems = append(problems, fmt.Sprintf("chains.entries[%d].rpc is required", i))
		}
		if ch.IsDefault {
			defaults++
		}
	}
	if len(c.Chains.Entries) > 0 && defaults != 1 {
		problems = append(problems, "chains.entries must mark exactly one entry as is_default")
	}

	if c.Registrar.MinStakeUnits <= 0 {
		problems = append(problems, "registrar.min_stake_units must be positive")
	}

	switch strings.ToLower(c.Batch.Strategy) {
	case "static", "dynamic", "adaptive", "continuous":
	default:
		problems = append(problems, "batch.strategy must be one of static|dynamic|adaptive|continuous")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}
