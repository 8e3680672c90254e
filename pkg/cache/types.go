// Copyright 2026 Meshlayer

package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"
)

// Priority pins an entry's eviction weight.
type Priority int

const (
	PriorityNormal Priority = iota
	PriorityCritical
)

// Key is the (model_id, prompt, params_hash) fingerprint. ParamsHash is
// deterministic regardless of the iteration order of the original
// parameter set.
type Key struct {
	ModelID    string
	Prompt     string
	ParamsHash string
}

// HashParams computes a deterministic hash over a set of generation
// parameters, independent of map iteration order.
func HashParams(params map[string]any) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ordered := make(map[string]any, len(params))
	for _, k := range keys {
		ordered[k] = params[k]
	}
	raw, _ := json.Marshal(ordered)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Entry is a cached inference response plus its bookkeeping fields.
type Entry struct {
	Key             Key
	Response        string
	TokensSaved      int
	LatencySavedMS   int64
	CreatedAt        time.Time
	LastAccessed     time.Time
	AccessCount      int
	Embedding        []float64
	SimilarityScore  float64
	IsSemanticMatch  bool
	Priority         Priority
	IsPersistent     bool
}

// sizeEstimate returns the byte-size estimate used for memory-pressure
// accounting: response length plus a fixed per-entry overhead.
func (e *Entry) sizeEstimate() int64 {
	const entryOverhead = 256
	return int64(len(e.Response)) + entryOverhead
}

// Event is a cache lifecycle notification delivered to subscribers.
type EventKind int

const (
	EventModelLoaded EventKind = iota
	EventModelEvicted
	EventModelAccessed
	EventCacheFull
	EventMemoryWarning
)

func (k EventKind) String() string {
	switch k {
	case EventModelLoaded:
		return "ModelLoaded"
	case EventModelEvicted:
		return "ModelEvicted"
	case EventModelAccessed:
		return "ModelAccessed"
	case EventCacheFull:
		return "CacheFull"
	case EventMemoryWarning:
		return "MemoryWarning"
	default:
		return "Unknown"
	}
}

// Event is delivered to subscribers without blocking the triggering
// caller.
type Event struct {
	Kind EventKind
	Key  Key
}

// Stats is the cache's running counters.
type Stats struct {
	MemoryBytes int64
	Hits        int64
	Misses      int64
	Evictions   int64
	TokensSaved int64
	LatencySavedMS int64
	EntryCount  int
}
