// Copyright 2026 Meshlayer
//
// RegistrationMonitor: one cooperative tick loop per chain, evaluating
// registration health, detecting recovery transitions, and triggering
// auto-renewal under expiry pressure. Grounded on
// pkg/consensus/health_monitor.go's ticker-loop/callback/recovery-event
// shape, generalized from a single CometBFT stall detector to per-chain
// registration health (spec section 4.2).

package monitor

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"sync"
	"time"

	"github.com/meshlayer/infernode/pkg/metrics"
	"github.com/meshlayer/infernode/pkg/registrar"
)

// Source is the read-only view of registration state the monitor
// observes. *registrar.Registrar satisfies it.
type Source interface {
	ChainIDs() []int64
	GetRegistrationStatus(chainID int64) (registrar.Status, error)
	Balances(ctx context.Context, chainID int64) (stake, native *big.Int, err error)
}

// Renewer drives an actual on-chain renewal. *registrar.Registrar
// satisfies it.
type Renewer interface {
	RegisterOnChain(ctx context.Context, chainID int64) (string, error)
}

// Config tunes a Monitor's scheduling and thresholds.
type Config struct {
	CheckInterval        time.Duration
	CriticalThreshold    time.Duration
	WarningThreshold     time.Duration
	RenewalBuffer        time.Duration
	AutoRenewEnabled     bool
	MockMode             bool
	RegistrationLifetime time.Duration // confirmation time + this = expiry
}

// RenewalRecord is one entry in the renewal history.
type RenewalRecord struct {
	ChainID int64
	At      time.Time
	Mocked  bool
	Err     error
}

// WarningCallback receives the Health a tick has just computed for a
// chain, on every tick, before that Health is committed. Callbacks are
// awaited sequentially and must not be assumed
// reentrant-safe (spec section 4.2).
type WarningCallback func(chainID int64, h Health)

// Monitor implements RegistrationMonitor.
type Monitor struct {
	mu sync.RWMutex

	source  Source
	renewer Renewer
	clock   Clock
	cfg     Config
	log     *log.Logger
	m       *metrics.Registry

	health            map[int64]Health
	confirmedAt       map[int64]time.Time
	simulatedFailure  map[int64]bool
	recoveryAttempts  map[int64]int
	renewalHistory    []RenewalRecord
	renewalAttempts   int
	warningCallbacks  []WarningCallback

	stopChans map[int64]chan struct{}
	wg        sync.WaitGroup
	running   bool
}

// New builds a Monitor. If clock is nil, RealClock is used.
func New(source Source, renewer Renewer, clock Clock, cfg Config, logger *log.Logger, m *metrics.Registry) *Monitor {
	if clock == nil {
		clock = RealClock{}
	}
	if logger == nil {
		logger = log.Default()
	}
	if cfg.RegistrationLifetime == 0 {
		cfg.RegistrationLifetime = 30 * 24 * time.Hour
	}
	return &Monitor{
		source:           source,
		renewer:          renewer,
		clock:            clock,
		cfg:              cfg,
		log:              logger,
		m:                m,
		health:           make(map[int64]Health),
		confirmedAt:      make(map[int64]time.Time),
		simulatedFailure: make(map[int64]bool),
		recoveryAttempts: make(map[int64]int),
		stopChans:        make(map[int64]chan struct{}),
	}
}

// RegisterWarningCallback adds a callback invoked on every tick, just
// before the tick's Health is committed.
func (mon *Monitor) RegisterWarningCallback(cb WarningCallback) {
	mon.mu.Lock()
	defer mon.mu.Unlock()
	mon.warningCallbacks = append(mon.warningCallbacks, cb)
}

// SetSimulatedFailure toggles simulated-failure injection for a chain.
func (mon *Monitor) SetSimulatedFailure(chainID int64, failing bool) {
	mon.mu.Lock()
	defer mon.mu.Unlock()
	mon.simulatedFailure[chainID] = failing
}

// GetHealth returns the last committed Health for chainID.
func (mon *Monitor) GetHealth(chainID int64) (Health, bool) {
	mon.mu.RLock()
	defer mon.mu.RUnlock()
	h, ok := mon.health[chainID]
	return h, ok
}

// RenewalHistory returns a copy of every renewal attempt recorded.
func (mon *Monitor) RenewalHistory() []RenewalRecord {
	mon.mu.RLock()
	defer mon.mu.RUnlock()
	out := make([]RenewalRecord, len(mon.renewalHistory))
	copy(out, mon.renewalHistory)
	return out
}

// Start spawns one cooperative tick loop per chain known to the
// source. Ticks for a given chain never overlap.
func (mon *Monitor) Start(ctx context.Context) {
	mon.mu.Lock()
	if mon.running {
		mon.mu.Unlock()
		return
	}
	mon.running = true
	chainIDs := mon.source.ChainIDs()
	for _, id := range chainIDs {
		mon.stopChans[id] = make(chan struct{})
	}
	mon.mu.Unlock()

	for _, id := range chainIDs {
		mon.wg.Add(1)
		go mon.runChainLoop(ctx, id)
	}
}

func (mon *Monitor) runChainLoop(ctx context.Context, chainID int64) {
	defer mon.wg.Done()

	mon.mu.RLock()
	stop := mon.stopChans[chainID]
	mon.mu.RUnlock()

	ticker := time.NewTicker(mon.cfg.CheckInterval)
	defer ticker.Stop()

	mon.Tick(ctx, chainID)

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			mon.Tick(ctx, chainID)
		}
	}
}

// StopMonitoring aborts every per-chain loop. In-flight ticks are not
// awaited to completion; partial state is acceptable (spec section 4.2).
func (mon *Monitor) StopMonitoring() {
	mon.mu.Lock()
	if !mon.running {
		mon.mu.Unlock()
		return
	}
	mon.running = false
	chans := mon.stopChans
	mon.stopChans = make(map[int64]chan struct{})
	mon.mu.Unlock()

	for _, ch := range chans {
		close(ch)
	}
}

// Tick runs a single per-chain health evaluation and commits the
// result. Exposed directly so tests can drive ticks deterministically
// without waiting on the scheduler.
func (mon *Monitor) Tick(ctx context.Context, chainID int64) Health {
	start := mon.clock.Now()

	status, err := mon.source.GetRegistrationStatus(chainID)
	if err != nil {
		mon.log.Printf("monitor: chain %d: %v", chainID, err)
		return Health{ChainID: chainID}
	}

	mon.mu.RLock()
	simFailure := mon.simulatedFailure[chainID]
	confirmedAt, hasConfirmedAt := mon.confirmedAt[chainID]
	prev, hasPrev := mon.health[chainID]
	mon.mu.RUnlock()

	if status.Kind == registrar.Confirmed && !hasConfirmedAt {
		confirmedAt = mon.clock.Now()
		mon.mu.Lock()
		mon.confirmedAt[chainID] = confirmedAt
		mon.mu.Unlock()
		hasConfirmedAt = true
	}

	h := Health{ChainID: chainID, Status: status, IsHealthy: true}

	switch {
	case simFailure:
		h.Issues = append(h.Issues, Issue{Kind: IssueRpcFailure, Severity: SeverityCritical, Message: "simulated RPC failure"})
		h.IsHealthy = false
		h.hadRpcFailure = true
	case status.Kind == registrar.NotRegistered || status.Kind == registrar.Failed:
		h.Issues = append(h.Issues, Issue{Kind: IssueNotRegistered, Severity: SeverityCritical, Message: "chain is not registered"})
		h.IsHealthy = false
	case status.Kind == registrar.Pending:
		// Pending is not a failure.
	case status.Kind == registrar.Confirmed:
		// Healthy unless simulated-failure, already handled above.
	}

	if stake, native, err := mon.source.Balances(ctx, chainID); err == nil {
		h.StakeBalance = stake
		h.FabBalance = native
	}

	if hasConfirmedAt {
		remaining := confirmedAt.Add(mon.cfg.RegistrationLifetime).Sub(mon.clock.Now())
		h.TimeUntilExpiry = &remaining

		switch {
		case remaining < mon.cfg.CriticalThreshold:
			h.Issues = append(h.Issues, Issue{Kind: IssueExpiringSoon, Severity: SeverityCritical, Message: "registration expires imminently"})
		case remaining < mon.cfg.WarningThreshold:
			h.Issues = append(h.Issues, Issue{Kind: IssueExpiringSoon, Severity: SeverityWarning, Message: "registration expiring soon"})
		}
	}

	// Recovery detection: (a) had RPC failure, now doesn't; (b) was
	// unhealthy, now healthy.
	if hasPrev {
		recoveredFromRPC := prev.hadRpcFailure && !h.hadRpcFailure
		recoveredFromUnhealthy := prev.wasUnhealthy() && h.IsHealthy
		if recoveredFromRPC || recoveredFromUnhealthy {
			mon.mu.Lock()
			mon.recoveryAttempts[chainID]++
			mon.mu.Unlock()
			if mon.m != nil {
				mon.m.RecoveryEvents.WithLabelValues(fmt.Sprintf("%d", chainID)).Inc()
			}
		}
	}

	if mon.cfg.AutoRenewEnabled && h.TimeUntilExpiry != nil && *h.TimeUntilExpiry < mon.cfg.RenewalBuffer {
		mon.renew(ctx, chainID)
	}

	mon.mu.RLock()
	callbacks := append([]WarningCallback(nil), mon.warningCallbacks...)
	mon.mu.RUnlock()
	for _, cb := range callbacks {
		cb(chainID, h)
	}

	mon.mu.Lock()
	mon.health[chainID] = h
	mon.mu.Unlock()

	if mon.m != nil {
		mon.m.TickDuration.WithLabelValues(fmt.Sprintf("%d", chainID)).Observe(mon.clock.Now().Sub(start).Seconds())
		mon.m.ChainStatus.WithLabelValues(fmt.Sprintf("%d", chainID)).Set(statusGaugeValue(status.Kind))
	}

	return h
}

func (mon *Monitor) renew(ctx context.Context, chainID int64) {
	mon.mu.Lock()
	mon.renewalAttempts++
	mon.mu.Unlock()

	if mon.cfg.MockMode {
		mon.mu.Lock()
		mon.renewalHistory = append(mon.renewalHistory, RenewalRecord{ChainID: chainID, At: mon.clock.Now(), Mocked: true})
		mon.mu.Unlock()
		return
	}

	if mon.renewer == nil {
		return
	}
	_, err := mon.renewer.RegisterOnChain(ctx, chainID)
	mon.mu.Lock()
	mon.renewalHistory = append(mon.renewalHistory, RenewalRecord{ChainID: chainID, At: mon.clock.Now(), Err: err})
	mon.mu.Unlock()
	if err != nil {
		mon.log.Printf("monitor: auto-renew chain %d failed: %v", chainID, err)
	} else {
		mon.log.Printf("monitor: auto-renew chain %d submitted", chainID)
	}
}

func statusGaugeValue(kind registrar.StatusKind) float64 {
	switch kind {
	case registrar.NotRegistered:
		return 0
	case registrar.Pending:
		return 1
	case registrar.Confirmed:
		return 2
	case registrar.Failed:
		return -1
	default:
		return 0
	}
}
