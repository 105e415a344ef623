package inference

import (
	"container/ring"
	"sync"
	"time"
)

// Stats accumulates process-lifetime prediction statistics: a total counter,
// cumulative inference time, and a bounded ring of recent confidence scores.
// The ring keeps the average confidence responsive to the current traffic mix
// instead of the whole process history.
type Stats struct {
	mu      sync.Mutex
	total   int64
	cumTime time.Duration
	ring    *ring.Ring
	filled  int
	window  int
}

// Snapshot is the externally visible statistics view. Reading one never
// blocks active predictions beyond the brief stats lock.
type Snapshot struct {
	TotalPredictions int64   `json:"total_predictions"`
	AvgInferenceMs   float64 `json:"avg_inference_time_ms"`
	AvgConfidence    float64 `json:"avg_confidence"`
}

func newStats(window int) *Stats {
	if window <= 0 {
		window = 1
	}
	return &Stats{ring: ring.New(window), window: window}
}

// record stores one completed prediction. Only successful predictions reach
// here; failures never touch the statistics.
func (s *Stats) record(confidence int, elapsed time.Duration) {
	s.mu.Lock()
	s.total++
	s.cumTime += elapsed
	s.ring.Value = confidence
	s.ring = s.ring.Next()
	if s.filled < s.window {
		s.filled++
	}
	s.mu.Unlock()
}

// Snapshot returns the current statistics. A fresh engine reports zeros.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.total == 0 {
		return Snapshot{}
	}

	var sum, count float64
	s.ring.Do(func(v any) {
		if c, ok := v.(int); ok {
			sum += float64(c)
			count++
		}
	})

	snap := Snapshot{
		TotalPredictions: s.total,
		AvgInferenceMs:   float64(s.cumTime.Microseconds()) / 1000.0 / float64(s.total),
	}
	if count > 0 {
		snap.AvgConfidence = sum / count
	}
	return snap
}
