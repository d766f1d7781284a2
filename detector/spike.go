package detector

import (
	"context"
	"sync"
	"time"
)

// Window tracks recent events per source identifier and reports whether the
// current event pushes that source over the spike threshold. Recording the
// event is a side effect of the check.
//
// Implementations must be safe for concurrent use; the traffic recorder calls
// IsSpike from one goroutine per completed request.
type Window interface {
	IsSpike(ctx context.Context, sourceID string, now time.Time) (bool, error)
}

// MemoryWindow is a process-local sliding-log spike detector. History is lost
// on restart and is not shared across instances, which is acceptable for a
// best-effort signal.
type MemoryWindow struct {
	mu        sync.Mutex
	events    map[string][]time.Time
	window    time.Duration
	threshold int

	// keyCeiling bounds total tracked sources. When exceeded the whole store
	// is cleared, trading a short false-negative burst for bounded memory.
	keyCeiling int
}

func NewMemoryWindow(window time.Duration, threshold int, keyCeiling int) *MemoryWindow {
	if keyCeiling <= 0 {
		keyCeiling = 10000
	}
	return &MemoryWindow{
		events:     make(map[string][]time.Time),
		window:     window,
		threshold:  threshold,
		keyCeiling: keyCeiling,
	}
}

func (w *MemoryWindow) IsSpike(_ context.Context, sourceID string, now time.Time) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.events) > w.keyCeiling {
		w.events = make(map[string][]time.Time)
	}

	cutoff := now.Add(-w.window)
	recent := w.events[sourceID][:0]
	for _, t := range w.events[sourceID] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	recent = append(recent, now)
	w.events[sourceID] = recent

	return len(recent) >= w.threshold, nil
}

// TrackedKeys reports the number of sources currently held in the store.
func (w *MemoryWindow) TrackedKeys() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.events)
}
