// Copyright 2026 Meshlayer
//
// Cache persistence: a gob-encoded snapshot written atomically via a
// temp file + rename, mirroring the teacher's embed.FS/migration idiom
// of never leaving a half-written artifact on disk. The semantic index
// is rebuilt lazily (spec section 4.3) rather than persisted, since it
// is fully derivable from the restored entries.

package cache

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// snapshotEntry is the persisted shape of an Entry. Embedding is
// intentionally omitted; RebuildSemanticIndex regenerates it.
type snapshotEntry struct {
	ModelID        string
	Prompt         string
	ParamsHash     string
	Response       string
	TokensSaved    int
	LatencySavedMS int64
	CreatedAt      time.Time
	LastAccessed   time.Time
	AccessCount    int
	Priority       Priority
	IsPersistent   bool
}

type snapshot struct {
	Entries []snapshotEntry
}

// Persist writes a best-effort snapshot of every entry to path. It is
// idempotent: restoring the same snapshot twice yields the same state.
func (c *Cache) Persist(path string) error {
	c.mu.RLock()
	snap := snapshot{Entries: make([]snapshotEntry, 0, c.ll.Len())}
	for e := c.ll.Back(); e != nil; e = e.Prev() {
		entry := e.Value.(*Entry)
		snap.Entries = append(snap.Entries, snapshotEntry{
			ModelID:        entry.Key.ModelID,
			Prompt:         entry.Key.Prompt,
			ParamsHash:     entry.Key.ParamsHash,
			Response:       entry.Response,
			TokensSaved:    entry.TokensSaved,
			LatencySavedMS: entry.LatencySavedMS,
			CreatedAt:      entry.CreatedAt,
			LastAccessed:   entry.LastAccessed,
			AccessCount:    entry.AccessCount,
			Priority:       entry.Priority,
			IsPersistent:   entry.IsPersistent,
		})
	}
	c.mu.RUnlock()

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".cache-snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("cache: create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(snap); err != nil {
		tmp.Close()
		return fmt.Errorf("cache: encode snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cache: close temp snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("cache: rename snapshot: %w", err)
	}
	return nil
}

// Restore loads a snapshot written by Persist, re-inserting each entry
// via the normal LRU path (oldest first, so recency is preserved). A
// missing file is not an error: restart on a fresh data dir is normal.
func (c *Cache) Restore(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("cache: open snapshot: %w", err)
	}
	defer f.Close()

	var snap snapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return fmt.Errorf("cache: decode snapshot: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, se := range snap.Entries {
		key := Key{ModelID: se.ModelID, Prompt: se.Prompt, ParamsHash: se.ParamsHash}
		if el, ok := c.items[key]; ok {
			c.removeElementLocked(el, false)
		}
		entry := &Entry{
			Key:            key,
			Response:       se.Response,
			TokensSaved:    se.TokensSaved,
			LatencySavedMS: se.LatencySavedMS,
			CreatedAt:      se.CreatedAt,
			LastAccessed:   se.LastAccessed,
			AccessCount:    se.AccessCount,
			Priority:       se.Priority,
			IsPersistent:   se.IsPersistent,
		}
		el := c.ll.PushFront(entry)
		c.items[key] = el
		c.stats.MemoryBytes += entry.sizeEstimate()
	}
	c.stats.EntryCount = c.ll.Len()
	return nil
}

// RebuildSemanticIndex recomputes the semantic index from every
// currently-held entry. Restore does not call it, so restored entries
// take part in semantic lookup only once it has run.
func (c *Cache) RebuildSemanticIndex() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.cfg.SemanticEnabled {
		return
	}
	c.semanticIndex = c.semanticIndex[:0]
	for e := c.ll.Front(); e != nil; e = e.Next() {
		entry := e.Value.(*Entry)
		entry.Embedding = Embed(entry.Key.Prompt)
		c.semanticIndex = append(c.semanticIndex, semanticEntry{Key: entry.Key, Embedding: entry.Embedding})
	}
}
