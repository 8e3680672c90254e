// Copyright 2026 Meshlayer

package batch

import (
	"time"

	"github.com/google/uuid"
)

// Priority is a request's scheduling priority.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "Low"
	case PriorityNormal:
		return "Normal"
	case PriorityHigh:
		return "High"
	case PriorityCritical:
		return "Critical"
	default:
		return "Unknown"
	}
}

// queueLevel is the physical FIFO a request lives in. Low and Normal
// share one queue (spec section 4.4).
type queueLevel int

const (
	queueNormal queueLevel = iota
	queueHigh
	queueCritical
)

func levelFor(p Priority) queueLevel {
	switch p {
	case PriorityCritical:
		return queueCritical
	case PriorityHigh:
		return queueHigh
	default:
		return queueNormal
	}
}

// drainOrder lists queue levels highest priority first.
var drainOrder = []queueLevel{queueCritical, queueHigh, queueNormal}

// Request is a single in-flight inference request awaiting batching.
type Request struct {
	ID         uuid.UUID
	ModelID    string
	Prompt     string
	MaxTokens  int
	Priority   Priority
	EnqueuedAt time.Time
}

// Strategy selects the batch-collection policy.
type Strategy int

const (
	StrategyStatic Strategy = iota
	StrategyDynamic
	StrategyAdaptive
	StrategyContinuous
)

// ParseStrategy maps the config-file spelling ("static", "dynamic",
// "adaptive", "continuous") to a Strategy, defaulting to
// StrategyDynamic for an unrecognized value.
func ParseStrategy(s string) Strategy {
	switch s {
	case "static":
		return StrategyStatic
	case "adaptive":
		return StrategyAdaptive
	case "continuous":
		return StrategyContinuous
	default:
		return StrategyDynamic
	}
}

// PaddingStrategy selects how a batch's prompts are padded to a
// common shape.
type PaddingStrategy int

const (
	PaddingNone PaddingStrategy = iota
	PaddingLeft
	PaddingRight
	PaddingBucket
)

// ParsePaddingStrategy maps the config-file spelling ("none", "left",
// "right", "bucket") to a PaddingStrategy, defaulting to PaddingRight
// for an unrecognized value.
func ParsePaddingStrategy(s string) PaddingStrategy {
	switch s {
	case "none":
		return PaddingNone
	case "left":
		return PaddingLeft
	case "bucket":
		return PaddingBucket
	default:
		return PaddingRight
	}
}

// paddingFiller is the single-character filler used for Left/Right/
// Bucket padding.
const paddingFiller = ' '

// PaddingInfo records how a batch's prompts were padded.
type PaddingInfo struct {
	Strategy     PaddingStrategy
	TargetLength int // meaningful for Left/Right; 0 for None/Bucket
}

// Status is a batch's lifecycle state: Pending -> Processing ->
// Completed | Failed | Timeout.
type Status int

const (
	StatusPending Status = iota
	StatusProcessing
	StatusCompleted
	StatusFailed
	StatusTimeout
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusProcessing:
		return "Processing"
	case StatusCompleted:
		return "Completed"
	case StatusFailed:
		return "Failed"
	case StatusTimeout:
		return "Timeout"
	default:
		return "Unknown"
	}
}

// Batch is a group of requests emitted for joint inference. All
// requests in a batch share ModelID (spec section 3 invariant).
type Batch struct {
	ID          uuid.UUID
	ModelID     string
	Requests    []Request
	TotalTokens int
	CreatedAt   time.Time
	Status      Status
	Padding     PaddingInfo
}

// PaddedPrompts computes each request's padded prompt according to
// b.Padding, without mutating the original request prompts.
func (b *Batch) PaddedPrompts() []string {
	prompts := make([]string, len(b.Requests))
	for i, r := range b.Requests {
		prompts[i] = r.Prompt
	}

	switch b.Padding.Strategy {
	case PaddingNone:
		return prompts
	case PaddingLeft:
		return padToTarget(prompts, b.Padding.TargetLength, true)
	case PaddingRight:
		return padToTarget(prompts, b.Padding.TargetLength, false)
	case PaddingBucket:
		return padToBuckets(prompts)
	default:
		return prompts
	}
}

func padToTarget(prompts []string, target int, left bool) []string {
	out := make([]string, len(prompts))
	for i, p := range prompts {
		if len(p) >= target {
			out[i] = p
			continue
		}
		fill := make([]byte, target-len(p))
		for j := range fill {
			fill[j] = paddingFiller
		}
		if left {
			out[i] = string(fill) + p
		} else {
			out[i] = p + string(fill)
		}
	}
	return out
}

// bucketBoundaries are the fixed, deterministic length buckets used by
// Bucket padding: each prompt pads up to the smallest boundary that
// fits it.
var bucketBoundaries = []int{32, 64, 128, 256, 512, 1024, 2048, 4096}

func bucketFor(length int) int {
	for _, b := range bucketBoundaries {
		if length <= b {
			return b
		}
	}
	return length
}

func padToBuckets(prompts []string) []string {
	out := make([]string, len(prompts))
	for i, p := range prompts {
		target := bucketFor(len(p))
		fill := make([]byte, target-len(p))
		for j := range fill {
			fill[j] = paddingFiller
		}
		out[i] = p + string(fill)
	}
	return out
}
