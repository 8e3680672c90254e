// Copyright 2026 Meshlayer
//
// InferenceCache: a bounded LRU over CacheKey, augmented with a
// secondary embedding-similarity index consulted only on exact miss.
// No teacher package has a direct analogue; the locking discipline
// (single writer lock, shared lock for pure observers) follows the
// teacher's general data-ownership convention (spec section 5).
//
// github.com/hashicorp/golang-lru (seen elsewhere in the retrieval
// pack) was evaluated and rejected as the backing store: its Cache
// type has no way to skip Critical-pinned entries during eviction or
// to evict by cumulative byte size rather than entry count, both of
// which section 4.3's pinning and memory-pressure rules require. The
// intrusive list below is the stdlib exception documented in the
// grounding ledger.

package cache

import (
	"container/list"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/meshlayer/infernode/pkg/metrics"
)

// ErrCacheMiss is returned by Get when neither an exact nor a
// qualifying semantic match is found.
var ErrCacheMiss = errors.New("cache miss")

// ErrCacheFull is returned by Put when the new entry would exceed the
// memory budget and every entry currently held is Critical-pinned, so
// no eviction can make room (spec section 9: a pin is never sacrificed
// to admit a new entry).
var ErrCacheFull = errors.New("cache full: only pinned entries remain")

// Config tunes a Cache's capacity and semantic-match behavior.
type Config struct {
	MaxMemoryBytes         int64
	TTL                    time.Duration
	SemanticEnabled        bool
	SemanticThreshold      float64
	MemoryWarningFraction  float64 // fraction of MaxMemoryBytes that triggers MemoryWarning
}

type semanticEntry struct {
	Key       Key
	Embedding []float64
}

// Cache implements InferenceCache.
type Cache struct {
	mu sync.RWMutex

	cfg Config

	ll    *list.List // front = most recently used
	items map[Key]*list.Element

	semanticIndex []semanticEntry

	stats Stats

	subsMu      sync.Mutex
	subscribers []chan Event

	log *log.Logger
	m   *metrics.Registry
}

// New builds an empty Cache.
func New(cfg Config, logger *log.Logger, m *metrics.Registry) *Cache {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.MemoryWarningFraction == 0 {
		cfg.MemoryWarningFraction = 0.9
	}
	return &Cache{
		cfg:   cfg,
		ll:    list.New(),
		items: make(map[Key]*list.Element),
		log:   logger,
		m:     m,
	}
}

// Subscribe registers a new event subscriber. The returned channel is
// buffered; a slow subscriber drops events rather than blocking the
// cache (spec section 4.3: "without blocking the caller").
func (c *Cache) Subscribe() <-chan Event {
	ch := make(chan Event, 64)
	c.subsMu.Lock()
	c.subscribers = append(c.subscribers, ch)
	c.subsMu.Unlock()
	return ch
}

func (c *Cache) publish(ev Event) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	for _, ch := range c.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Get performs an exact-key lookup, falling back to semantic
// similarity search when enabled and the exact key misses.
func (c *Cache) Get(key Key) (Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		entry := el.Value.(*Entry)
		c.ll.MoveToFront(el)
		entry.AccessCount++
		entry.LastAccessed = time.Now()
		c.stats.Hits++
		c.stats.TokensSaved += int64(entry.TokensSaved)
		c.stats.LatencySavedMS += entry.LatencySavedMS
		if c.m != nil {
			c.m.CacheHits.WithLabelValues("exact").Inc()
			c.m.TokensSaved.Add(float64(entry.TokensSaved))
			c.m.LatencySavedMS.Add(float64(entry.LatencySavedMS))
		}
		clone := *entry
		clone.IsSemanticMatch = false
		clone.SimilarityScore = 1.0
		c.publish(Event{Kind: EventModelAccessed, Key: key})
		return clone, nil
	}

	if c.cfg.SemanticEnabled {
		if entry, score, ok := c.semanticLookupLocked(key); ok {
			c.stats.Hits++
			c.stats.TokensSaved += int64(entry.TokensSaved)
			c.stats.LatencySavedMS += entry.LatencySavedMS
			if c.m != nil {
				c.m.CacheHits.WithLabelValues("semantic").Inc()
				c.m.TokensSaved.Add(float64(entry.TokensSaved))
				c.m.LatencySavedMS.Add(float64(entry.LatencySavedMS))
			}
			clone := *entry
			clone.IsSemanticMatch = true
			clone.SimilarityScore = score
			c.publish(Event{Kind: EventModelAccessed, Key: key})
			return clone, nil
		}
	}

	c.stats.Misses++
	if c.m != nil {
		c.m.CacheMisses.Inc()
	}
	return Entry{}, ErrCacheMiss
}

func (c *Cache) semanticLookupLocked(key Key) (*Entry, float64, bool) {
	query := Embed(key.Prompt)

	var best *Entry
	bestScore := c.cfg.SemanticThreshold

	for _, se := range c.semanticIndex {
		if se.Key.ModelID != key.ModelID {
			continue
		}
		score := CosineSimilarity(query, se.Embedding)
		if score >= bestScore {
			if el, ok := c.items[se.Key]; ok {
				best = el.Value.(*Entry)
				bestScore = score
			}
		}
	}
	if best == nil {
		return nil, 0, false
	}
	return best, bestScore, true
}

// Put inserts or overwrites an entry, evicting as needed to stay under
// the configured memory budget. It returns ErrCacheFull without
// inserting anything if admitting the entry would exceed the budget
// and every entry currently held is Critical-pinned, since pins are
// never sacrificed to make room.
func (c *Cache) Put(key Key, response string, tokensSaved int, latencySavedMS int64, priority Priority) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.removeElementLocked(el, false)
	}

	entry := &Entry{
		Key:            key,
		Response:       response,
		TokensSaved:    tokensSaved,
		LatencySavedMS: latencySavedMS,
		CreatedAt:      time.Now(),
		LastAccessed:   time.Now(),
		Priority:       priority,
	}
	size := entry.sizeEstimate()

	for c.stats.MemoryBytes+size > c.cfg.MaxMemoryBytes && c.ll.Len() > 0 {
		if !c.evictOneLocked() {
			break
		}
	}

	if c.cfg.MaxMemoryBytes > 0 && c.stats.MemoryBytes+size > c.cfg.MaxMemoryBytes {
		c.publish(Event{Kind: EventCacheFull, Key: key})
		return ErrCacheFull
	}

	if c.cfg.SemanticEnabled {
		entry.Embedding = Embed(key.Prompt)
		c.semanticIndex = append(c.semanticIndex, semanticEntry{Key: key, Embedding: entry.Embedding})
	}

	el := c.ll.PushFront(entry)
	c.items[key] = el
	c.stats.MemoryBytes += size
	c.stats.EntryCount = c.ll.Len()

	c.publish(Event{Kind: EventModelLoaded, Key: key})
	if c.m != nil {
		c.m.CacheMemoryUsed.Set(float64(c.stats.MemoryBytes))
	}

	if c.cfg.MaxMemoryBytes > 0 && float64(c.stats.MemoryBytes) >= float64(c.cfg.MaxMemoryBytes)*c.cfg.MemoryWarningFraction {
		c.publish(Event{Kind: EventMemoryWarning, Key: key})
	}
	if c.stats.MemoryBytes >= c.cfg.MaxMemoryBytes && c.ll.Len() > 0 {
		c.publish(Event{Kind: EventCacheFull, Key: key})
	}
	return nil
}

// evictOneLocked evicts the least-recently-used non-Critical entry,
// reporting whether anything was evicted. If every remaining entry is
// Critical-pinned, it evicts nothing and returns false rather than
// sacrificing a pin.
func (c *Cache) evictOneLocked() bool {
	for e := c.ll.Back(); e != nil; e = e.Prev() {
		entry := e.Value.(*Entry)
		if entry.Priority != PriorityCritical {
			c.removeElementLocked(e, true)
			return true
		}
	}
	return false
}

// removeElementLocked removes el from the list, the index map, and
// the semantic index, adjusting stats. countEviction distinguishes a
// true eviction from an overwrite-driven removal.
func (c *Cache) removeElementLocked(el *list.Element, countEviction bool) {
	entry := el.Value.(*Entry)
	c.ll.Remove(el)
	delete(c.items, entry.Key)
	c.stats.MemoryBytes -= entry.sizeEstimate()
	c.stats.EntryCount = c.ll.Len()
	c.removeFromSemanticIndexLocked(entry.Key)

	if countEviction {
		c.stats.Evictions++
		if c.m != nil {
			c.m.CacheEvictions.Inc()
		}
		c.publish(Event{Kind: EventModelEvicted, Key: entry.Key})
	}
}

func (c *Cache) removeFromSemanticIndexLocked(key Key) {
	if len(c.semanticIndex) == 0 {
		return
	}
	out := c.semanticIndex[:0]
	for _, se := range c.semanticIndex {
		if se.Key != key {
			out = append(out, se)
		}
	}
	c.semanticIndex = out
}

// EvictUnderMemoryPressure evicts LRU entries until memory usage is at
// or below targetBytes, returning the number evicted.
func (c *Cache) EvictUnderMemoryPressure(targetBytes int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for c.stats.MemoryBytes > targetBytes && c.ll.Len() > 0 {
		if !c.evictOneLocked() {
			break
		}
		count++
	}
	return count
}

// CheckTTL removes every entry older than the configured TTL,
// returning the number removed.
func (c *Cache) CheckTTL() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfg.TTL <= 0 {
		return 0
	}

	now := time.Now()
	var expired []*list.Element
	for e := c.ll.Front(); e != nil; e = e.Next() {
		entry := e.Value.(*Entry)
		if now.Sub(entry.CreatedAt) > c.cfg.TTL {
			expired = append(expired, e)
		}
	}
	for _, e := range expired {
		c.removeElementLocked(e, true)
	}
	return len(expired)
}

// Invalidate removes key if present, reporting whether it existed.
func (c *Cache) Invalidate(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return false
	}
	c.removeElementLocked(el, false)
	return true
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[Key]*list.Element)
	c.semanticIndex = nil
	c.stats = Stats{}
}

// Contains reports whether key is present, without affecting recency.
func (c *Cache) Contains(key Key) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.items[key]
	return ok
}

// ListModels returns the distinct model ids currently cached.
func (c *Cache) ListModels() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seen := make(map[string]bool)
	var out []string
	for e := c.ll.Front(); e != nil; e = e.Next() {
		entry := e.Value.(*Entry)
		if !seen[entry.Key.ModelID] {
			seen[entry.Key.ModelID] = true
			out = append(out, entry.Key.ModelID)
		}
	}
	return out
}

// GetStats returns a copy of the running counters.
func (c *Cache) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}
