// Copyright 2026 Meshlayer
//
// BatchProcessor groups queued inference requests into batches for
// joint execution. No teacher file has a direct analogue (the
// teacher's pkg/batch implements Accumulate batch-anchoring, a
// different domain); the mutex-protected struct, uuid identifiers and
// injected *log.Logger follow the teacher's general component idiom
// (spec section 4.4).

package batch

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meshlayer/infernode/pkg/metrics"
)

// ErrQueueFull is returned by Enqueue when a priority queue is at
// capacity and the request is dropped.
var ErrQueueFull = errors.New("batch: queue full")

// ErrRequestNotFound is returned by CancelRequest when the request is
// no longer queued (already collected or already cancelled).
var ErrRequestNotFound = errors.New("batch: request not found")

// ErrBatchNotFound is returned by the batch state-transition methods.
var ErrBatchNotFound = errors.New("batch: not found")

// Config tunes a BatchProcessor's collection policy.
type Config struct {
	Strategy        Strategy
	Padding         PaddingStrategy
	MaxBatchSize    int
	MaxWaitTime     time.Duration
	MaxQueueDepth   int // per priority queue; 0 means unbounded
}

// Processor collects queued requests into batches according to its
// configured Strategy, and tracks each emitted batch through its
// lifecycle.
type Processor struct {
	mu sync.Mutex

	cfg Config

	queues map[queueLevel][]Request

	batches map[uuid.UUID]*Batch

	totalBatches    int64
	totalRequests   int64
	totalWaitMS     int64
	droppedByPrio   map[Priority]int64

	log *log.Logger
	m   *metrics.Registry
}

// New builds an empty Processor.
func New(cfg Config, logger *log.Logger, m *metrics.Registry) *Processor {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 8
	}
	if cfg.MaxWaitTime <= 0 {
		cfg.MaxWaitTime = 50 * time.Millisecond
	}
	return &Processor{
		cfg:           cfg,
		queues:        make(map[queueLevel][]Request),
		batches:       make(map[uuid.UUID]*Batch),
		droppedByPrio: make(map[Priority]int64),
		log:           logger,
		m:             m,
	}
}

// OptimizeForLatency swaps to a profile favoring small, fast batches.
func (p *Processor) OptimizeForLatency() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg.Strategy = StrategyDynamic
	p.cfg.MaxWaitTime = 10 * time.Millisecond
	if p.cfg.MaxBatchSize > 4 {
		p.cfg.MaxBatchSize = 4
	}
}

// OptimizeForThroughput swaps to a profile favoring large, full
// batches over latency.
func (p *Processor) OptimizeForThroughput() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg.Strategy = StrategyAdaptive
	p.cfg.MaxWaitTime = 200 * time.Millisecond
	if p.cfg.MaxBatchSize < 32 {
		p.cfg.MaxBatchSize = 32
	}
}

// Enqueue adds a request to its priority queue, returning
// ErrQueueFull (and recording a drop) if the queue is at capacity.
func (p *Processor) Enqueue(r Request) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	level := levelFor(r.Priority)
	if p.cfg.MaxQueueDepth > 0 && len(p.queues[level]) >= p.cfg.MaxQueueDepth {
		p.droppedByPrio[r.Priority]++
		if p.m != nil {
			p.m.RequestsDropped.WithLabelValues(r.Priority.String()).Inc()
		}
		return ErrQueueFull
	}
	if r.EnqueuedAt.IsZero() {
		r.EnqueuedAt = time.Now()
	}
	p.queues[level] = append(p.queues[level], r)
	p.updateQueueDepthMetric()
	return nil
}

// CancelRequest removes a still-queued request by id.
func (p *Processor) CancelRequest(id uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for level, q := range p.queues {
		for i, r := range q {
			if r.ID == id {
				p.queues[level] = append(q[:i], q[i+1:]...)
				p.updateQueueDepthMetric()
				return nil
			}
		}
	}
	return ErrRequestNotFound
}

// QueueDepth returns the number of requests currently queued across
// all priorities.
func (p *Processor) QueueDepth() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalQueueDepthLocked()
}

func (p *Processor) totalQueueDepthLocked() int {
	n := 0
	for _, q := range p.queues {
		n += len(q)
	}
	return n
}

func (p *Processor) updateQueueDepthMetric() {
	if p.m != nil {
		p.m.QueueDepth.Set(float64(p.totalQueueDepthLocked()))
	}
}

// CollectBatch attempts to pull one batch of requests, trying queues
// highest priority first and taking the first one whose requests are
// ready under the configured Strategy. It returns nil, false if no
// batch is ready yet.
func (p *Processor) CollectBatch() (*Batch, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, level := range drainOrder {
		q := p.queues[level]
		if len(q) == 0 {
			continue
		}
		var collected []Request
		switch p.cfg.Strategy {
		case StrategyStatic:
			collected, q = collectStatic(q, p.cfg.MaxBatchSize)
		case StrategyAdaptive:
			collected, q = collectDynamic(q, p.effectiveBatchSizeLocked(len(q)), p.cfg.MaxWaitTime)
		default: // Dynamic, Continuous
			collected, q = collectDynamic(q, p.cfg.MaxBatchSize, p.cfg.MaxWaitTime)
		}
		p.queues[level] = q
		if len(collected) == 0 {
			continue
		}
		p.updateQueueDepthMetric()
		return p.emitBatchLocked(collected), true
	}
	return nil, false
}

// effectiveBatchSizeLocked implements the Adaptive strategy's
// depth-based sizing: depth > 100 uses the full max, > 50 uses half,
// otherwise min(8, max).
func (p *Processor) effectiveBatchSizeLocked(depth int) int {
	max := p.cfg.MaxBatchSize
	switch {
	case depth > 100:
		return max
	case depth > 50:
		half := max / 2
		if half < 1 {
			half = 1
		}
		return half
	default:
		if max < 8 {
			return max
		}
		return 8
	}
}

// collectStatic pulls up to maxSize requests sharing the first
// request's model id, skipping (not removing) non-matching requests
// so they remain in place for a later batch.
func collectStatic(q []Request, maxSize int) (collected, remaining []Request) {
	if len(q) == 0 {
		return nil, q
	}
	modelID := q[0].ModelID
	remaining = make([]Request, 0, len(q))
	for _, r := range q {
		if len(collected) < maxSize && r.ModelID == modelID {
			collected = append(collected, r)
		} else {
			remaining = append(remaining, r)
		}
	}
	return collected, remaining
}

// collectDynamic batches while waiting for up to maxSize same-model
// requests, but forces out whatever it has as soon as the oldest
// queued request has waited at least maxWait. With nothing aged and
// the queue short of maxSize, it returns no batch and leaves the queue
// untouched.
func collectDynamic(q []Request, maxSize int, maxWait time.Duration) (collected, remaining []Request) {
	if len(q) == 0 {
		return nil, q
	}
	modelID := q[0].ModelID
	now := time.Now()

	matching := make([]Request, 0, len(q))
	other := make([]Request, 0, len(q))
	for _, r := range q {
		if r.ModelID == modelID && len(matching) < maxSize {
			matching = append(matching, r)
		} else {
			other = append(other, r)
		}
	}

	full := len(matching) >= maxSize
	aged := now.Sub(q[0].EnqueuedAt) >= maxWait
	if !full && !aged {
		return nil, q
	}
	return matching, other
}

func (p *Processor) emitBatchLocked(requests []Request) *Batch {
	b := &Batch{
		ID:        uuid.New(),
		ModelID:   requests[0].ModelID,
		Requests:  requests,
		CreatedAt: time.Now(),
		Status:    StatusPending,
		Padding:   computePadding(requests, p.cfg.Padding),
	}
	for _, r := range requests {
		b.TotalTokens += r.MaxTokens
	}
	p.batches[b.ID] = b

	p.totalBatches++
	p.totalRequests += int64(len(requests))
	var waitSum int64
	for _, r := range requests {
		waitSum += time.Since(r.EnqueuedAt).Milliseconds()
	}
	p.totalWaitMS += waitSum

	if p.m != nil {
		p.m.BatchesEmitted.Inc()
		p.m.BatchAvgSize.Set(float64(p.totalRequests) / float64(p.totalBatches))
	}
	return b
}

func computePadding(requests []Request, strategy PaddingStrategy) PaddingInfo {
	info := PaddingInfo{Strategy: strategy}
	if strategy == PaddingLeft || strategy == PaddingRight {
		max := 0
		for _, r := range requests {
			if len(r.Prompt) > max {
				max = len(r.Prompt)
			}
		}
		info.TargetLength = max
	}
	return info
}

// MarkProcessing transitions a batch from Pending to Processing.
func (p *Processor) MarkProcessing(id uuid.UUID) error {
	return p.transition(id, StatusPending, StatusProcessing)
}

// CompleteBatch transitions a batch from Processing to Completed.
func (p *Processor) CompleteBatch(id uuid.UUID) error {
	return p.transition(id, StatusProcessing, StatusCompleted)
}

// FailBatch transitions a batch from Processing to Failed.
func (p *Processor) FailBatch(id uuid.UUID) error {
	return p.transition(id, StatusProcessing, StatusFailed)
}

// TimeoutBatch transitions a batch from Pending or Processing to
// Timeout.
func (p *Processor) TimeoutBatch(id uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, ok := p.batches[id]
	if !ok {
		return ErrBatchNotFound
	}
	if b.Status != StatusPending && b.Status != StatusProcessing {
		return errors.New("batch: invalid transition to Timeout from " + b.Status.String())
	}
	b.Status = StatusTimeout
	return nil
}

// CancelBatch removes a batch that has not yet completed.
func (p *Processor) CancelBatch(id uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, ok := p.batches[id]
	if !ok {
		return ErrBatchNotFound
	}
	if b.Status == StatusCompleted {
		return errors.New("batch: cannot cancel a completed batch")
	}
	delete(p.batches, id)
	return nil
}

func (p *Processor) transition(id uuid.UUID, from, to Status) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, ok := p.batches[id]
	if !ok {
		return ErrBatchNotFound
	}
	if b.Status != from {
		return errors.New("batch: invalid transition to " + to.String() + " from " + b.Status.String())
	}
	b.Status = to
	return nil
}

// GetBatch returns a batch by id.
func (p *Processor) GetBatch(id uuid.UUID) (*Batch, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, ok := p.batches[id]
	return b, ok
}

// Stats summarizes the processor's running counters.
type Stats struct {
	TotalBatches      int64
	TotalRequests      int64
	AvgBatchSize       float64
	AvgWaitMS          float64
	QueueDepth         int
	BatchEfficiency    float64 // avg batch size / max batch size
	DroppedByPriority  map[Priority]int64
}

// Stats returns a snapshot of the processor's running counters.
func (p *Processor) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Stats{
		TotalBatches:      p.totalBatches,
		TotalRequests:     p.totalRequests,
		QueueDepth:        p.totalQueueDepthLocked(),
		DroppedByPriority: make(map[Priority]int64, len(p.droppedByPrio)),
	}
	for k, v := range p.droppedByPrio {
		s.DroppedByPriority[k] = v
	}
	if p.totalBatches > 0 {
		s.AvgBatchSize = float64(p.totalRequests) / float64(p.totalBatches)
		s.AvgWaitMS = float64(p.totalWaitMS) / float64(p.totalRequests)
	}
	if p.cfg.MaxBatchSize > 0 {
		s.BatchEfficiency = s.AvgBatchSize / float64(p.cfg.MaxBatchSize)
	}
	return s
}
