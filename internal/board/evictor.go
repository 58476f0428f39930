// evictor.go houses the eviction loop for Hub.  Every EvictInterval it
// scans the map and removes:
//
//   - boards idle longer than IdleTTL
//   - least-recently-used boards when the map exceeds MaxBoards
//
// Each eviction stops the board's controllers and updates Prometheus.
package board

import (
	"context"
	"sort"
	"time"
)

// Run drives eviction until ctx is done, then closes every board.
func (h *Hub) Run(ctx context.Context) error {
	t := time.NewTicker(h.opts.EvictInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			h.Close()
			return nil
		case now := <-t.C:
			h.evict(now)
		}
	}
}

func (h *Hub) evict(now time.Time) {
	type kv struct {
		key string
		b   *Board
		at  time.Time
	}
	var live []kv

	// ----------------------------------------------------------------
	// Idle eviction pass
	// ----------------------------------------------------------------
	h.m.Range(func(key, value any) bool {
		b := value.(*Board)
		seen := b.LastSeen()
		if now.Sub(seen) > h.opts.IdleTTL {
			h.remove(key.(string), b, "idle")
			return true
		}
		live = append(live, kv{key: key.(string), b: b, at: seen})
		return true
	})

	// ----------------------------------------------------------------
	// LRU eviction pass
	// ----------------------------------------------------------------
	if over := len(live) - h.opts.MaxBoards; over > 0 {
		sort.Slice(live, func(i, j int) bool { return live[i].at.Before(live[j].at) })
		for _, e := range live[:over] {
			h.remove(e.key, e.b, "lru")
		}
	}
}
