// Copyright 2026 Meshlayer

package cache

import (
	"path/filepath"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{MaxMemoryBytes: 1 << 20, SemanticEnabled: true, SemanticThreshold: 0.95}
}

func TestGetExactHit(t *testing.T) {
	c := New(testConfig(), nil, nil)
	key := Key{ModelID: "m1", Prompt: "hello", ParamsHash: HashParams(map[string]any{"temp": 0.7})}
	c.Put(key, "world", 10, 50, PriorityNormal)

	entry, err := c.Get(key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if entry.IsSemanticMatch {
		t.Fatal("exact hit must not be flagged semantic")
	}
	if entry.SimilarityScore != 1.0 {
		t.Fatalf("expected similarity 1.0, got %f", entry.SimilarityScore)
	}
	if entry.AccessCount != 1 {
		t.Fatalf("expected access_count 1, got %d", entry.AccessCount)
	}

	stats := c.GetStats()
	if stats.Hits != 1 || stats.TokensSaved != 10 || stats.LatencySavedMS != 50 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestGetSemanticFallback(t *testing.T) {
	c := New(testConfig(), nil, nil)
	key := Key{ModelID: "m1", Prompt: "hello there", ParamsHash: "p1"}
	c.Put(key, "world", 10, 50, PriorityNormal)

	lookup := Key{ModelID: "m1", Prompt: "hello there", ParamsHash: "different-params-hash"}
	entry, err := c.Get(lookup)
	if err != nil {
		t.Fatalf("expected semantic hit, got error: %v", err)
	}
	if !entry.IsSemanticMatch {
		t.Fatal("expected semantic match flag")
	}
	if entry.SimilarityScore < 0.95 {
		t.Fatalf("expected similarity >= threshold, got %f", entry.SimilarityScore)
	}
}

func TestGetMiss(t *testing.T) {
	c := New(testConfig(), nil, nil)
	_, err := c.Get(Key{ModelID: "m1", Prompt: "nope", ParamsHash: "x"})
	if err != ErrCacheMiss {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}
	if c.GetStats().Misses != 1 {
		t.Fatal("expected miss counter incremented")
	}
}

func TestSemanticMismatchedModelIDNotMatched(t *testing.T) {
	c := New(testConfig(), nil, nil)
	key := Key{ModelID: "m1", Prompt: "hello there", ParamsHash: "p1"}
	c.Put(key, "world", 10, 50, PriorityNormal)

	lookup := Key{ModelID: "m2", Prompt: "hello there", ParamsHash: "p1"}
	if _, err := c.Get(lookup); err != ErrCacheMiss {
		t.Fatalf("expected miss across model ids, got %v", err)
	}
}

func TestEvictionRespectsMemoryBudget(t *testing.T) {
	cfg := Config{MaxMemoryBytes: 600}
	c := New(cfg, nil, nil)

	for i := 0; i < 10; i++ {
		key := Key{ModelID: "m1", Prompt: string(rune('a' + i)), ParamsHash: "p"}
		c.Put(key, "response-data", 1, 1, PriorityNormal)
	}

	stats := c.GetStats()
	if stats.MemoryBytes > 600 {
		t.Fatalf("memory budget exceeded: %d", stats.MemoryBytes)
	}
	if stats.Evictions == 0 {
		t.Fatal("expected at least one eviction")
	}
}

func TestEvictionSkipsCriticalEntries(t *testing.T) {
	cfg := Config{MaxMemoryBytes: 600}
	c := New(cfg, nil, nil)

	criticalKey := Key{ModelID: "m1", Prompt: "critical", ParamsHash: "p"}
	c.Put(criticalKey, "response-data", 1, 1, PriorityCritical)

	for i := 0; i < 10; i++ {
		key := Key{ModelID: "m1", Prompt: string(rune('a' + i)), ParamsHash: "p"}
		c.Put(key, "response-data", 1, 1, PriorityNormal)
	}

	if !c.Contains(criticalKey) {
		t.Fatal("critical-pinned entry should survive eviction while non-critical entries remain")
	}
}

func TestPutRejectsWhenOnlyPinnedEntriesRemain(t *testing.T) {
	// Budget comfortably fits one small entry but not two, so the
	// second Put must try to evict the first and find it pinned.
	cfg := Config{MaxMemoryBytes: 300}
	c := New(cfg, nil, nil)

	pinned := Key{ModelID: "m1", Prompt: "pinned", ParamsHash: "p"}
	if err := c.Put(pinned, "x", 1, 1, PriorityCritical); err != nil {
		t.Fatalf("Put pinned entry: %v", err)
	}

	overflow := Key{ModelID: "m1", Prompt: "overflow", ParamsHash: "p"}
	if err := c.Put(overflow, "x", 1, 1, PriorityNormal); err != ErrCacheFull {
		t.Fatalf("expected ErrCacheFull, got %v", err)
	}
	if c.Contains(overflow) {
		t.Fatal("rejected entry must not be admitted")
	}
	if !c.Contains(pinned) {
		t.Fatal("pinned entry must survive a rejected put")
	}
}

func TestCheckTTLRemovesExpiredEntries(t *testing.T) {
	c := New(Config{MaxMemoryBytes: 1 << 20, TTL: time.Millisecond}, nil, nil)
	key := Key{ModelID: "m1", Prompt: "hi", ParamsHash: "p"}
	c.Put(key, "world", 1, 1, PriorityNormal)

	time.Sleep(5 * time.Millisecond)
	removed := c.CheckTTL()
	if removed != 1 {
		t.Fatalf("expected 1 expired entry removed, got %d", removed)
	}
	if c.Contains(key) {
		t.Fatal("expired entry should be gone")
	}
}

func TestInvalidateAndClear(t *testing.T) {
	c := New(testConfig(), nil, nil)
	key := Key{ModelID: "m1", Prompt: "hi", ParamsHash: "p"}
	c.Put(key, "world", 1, 1, PriorityNormal)

	if !c.Invalidate(key) {
		t.Fatal("expected invalidate to report found")
	}
	if c.Invalidate(key) {
		t.Fatal("second invalidate should report not found")
	}

	c.Put(key, "world", 1, 1, PriorityNormal)
	c.Clear()
	if c.Contains(key) {
		t.Fatal("clear should remove everything")
	}
	if c.GetStats().EntryCount != 0 {
		t.Fatal("clear should reset entry count")
	}
}

func TestPersistRestoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.gob")

	c := New(testConfig(), nil, nil)
	key := Key{ModelID: "m1", Prompt: "hi", ParamsHash: "p"}
	c.Put(key, "world", 7, 42, PriorityNormal)

	if err := c.Persist(path); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	restored := New(testConfig(), nil, nil)
	if err := restored.Restore(path); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	entry, err := restored.Get(key)
	if err != nil {
		t.Fatalf("expected restored entry, got error: %v", err)
	}
	if entry.TokensSaved != 7 {
		t.Fatalf("expected tokens_saved preserved across restart, got %d", entry.TokensSaved)
	}
}

func TestRestoreMissingFileIsNotAnError(t *testing.T) {
	c := New(testConfig(), nil, nil)
	if err := c.Restore(filepath.Join(t.TempDir(), "missing.gob")); err != nil {
		t.Fatalf("missing snapshot should not error: %v", err)
	}
}

func TestCosineSimilarityMismatchedLengthsReturnsZero(t *testing.T) {
	if got := CosineSimilarity([]float64{1, 2}, []float64{1, 2, 3}); got != 0.0 {
		t.Fatalf("expected 0.0 for mismatched lengths, got %f", got)
	}
}

func TestEmbedIsDeterministicAndNormalized(t *testing.T) {
	v1 := Embed("the quick brown fox")
	v2 := Embed("the quick brown fox")
	if len(v1) != EmbeddingDimensions {
		t.Fatalf("expected %d dimensions, got %d", EmbeddingDimensions, len(v1))
	}
	for i := range v1 {
		if v1[i] != v2[i] {
			t.Fatal("Embed must be deterministic for identical prompts")
		}
	}

	var sumSquares float64
	for _, x := range v1 {
		sumSquares += x * x
	}
	if diffFromOne := sumSquares - 1.0; diffFromOne > 1e-6 || diffFromOne < -1e-6 {
		t.Fatalf("expected unit norm, got sum of squares %f", sumSquares)
	}
}

func TestHashParamsOrderIndependent(t *testing.T) {
	a := HashParams(map[string]any{"temperature": 0.7, "top_p": 0.9})
	b := HashParams(map[string]any{"top_p": 0.9, "temperature": 0.7})
	if a != b {
		t.Fatal("HashParams must be independent of map iteration order")
	}
}

func TestSubscribeReceivesEventsWithoutBlocking(t *testing.T) {
	c := New(testConfig(), nil, nil)
	events := c.Subscribe()

	key := Key{ModelID: "m1", Prompt: "hi", ParamsHash: "p"}
	c.Put(key, "world", 1, 1, PriorityNormal)

	select {
	case ev := <-events:
		if ev.Kind != EventModelLoaded {
			t.Fatalf("expected ModelLoaded, got %v", ev.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("expected an event after Put")
	}
}
