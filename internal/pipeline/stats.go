package pipeline

import (
	"sort"
	"sync"
	"time"
)

// sample is one timed stage run. units is what the stage processed (pages
// read, employee rows produced) and method how it did it, when relevant.
type sample struct {
	at     time.Time
	ms     int64
	units  int
	method string
}

// StatsSnapshot aggregates the samples of one stage.
type StatsSnapshot struct {
	Count     int     `json:"count"`
	Unit      string  `json:"unit"`
	Units     int     `json:"units"`
	MaxMs     int64   `json:"max_ms"`
	AvgMs     float64 `json:"avg_ms"`
	P50Ms     float64 `json:"p50_ms"`
	P95Ms     float64 `json:"p95_ms"`
	MsPerUnit float64 `json:"ms_per_unit"`

	ByMethod map[string]MethodSnapshot `json:"by_method,omitempty"`
}

// MethodSnapshot is the share of a stage done with one extraction method.
// OCR runs are typically orders of magnitude slower per page than a text layer.
type MethodSnapshot struct {
	Count     int     `json:"count"`
	Units     int     `json:"units"`
	AvgMs     float64 `json:"avg_ms"`
	MsPerUnit float64 `json:"ms_per_unit"`
}

// LatencyStats keeps the samples of one stage within a rolling window.
type LatencyStats struct {
	mu      sync.Mutex
	unit    string
	samples []sample
	maxAge  time.Duration
}

func NewLatencyStats(unit string, maxAge time.Duration) *LatencyStats {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &LatencyStats{
		unit:    unit,
		samples: make([]sample, 0, 256),
		maxAge:  maxAge,
	}
}

// Record adds a run that took d and processed units items with method
// (empty when the stage has a single way of working).
func (s *LatencyStats) Record(d time.Duration, units int, method string) {
	ms := max(d.Milliseconds(), 0)
	units = max(units, 0)
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	s.samples = append(s.samples, sample{at: now, ms: ms, units: units, method: method})
}

func (s *LatencyStats) Snapshot() StatsSnapshot {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	snap := StatsSnapshot{Unit: s.unit}
	if len(s.samples) == 0 {
		return snap
	}

	values := make([]int64, 0, len(s.samples))
	var sum int64
	byMethod := map[string]*MethodSnapshot{}
	methodMs := map[string]int64{}
	for _, sm := range s.samples {
		values = append(values, sm.ms)
		sum += sm.ms
		snap.Units += sm.units
		if sm.method == "" {
			continue
		}
		m := byMethod[sm.method]
		if m == nil {
			m = &MethodSnapshot{}
			byMethod[sm.method] = m
		}
		m.Count++
		m.Units += sm.units
		methodMs[sm.method] += sm.ms
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	snap.Count = len(values)
	snap.MaxMs = values[len(values)-1]
	snap.AvgMs = float64(sum) / float64(len(values))
	snap.P50Ms = percentile(values, 50)
	snap.P95Ms = percentile(values, 95)
	snap.MsPerUnit = perUnit(sum, snap.Units)

	if len(byMethod) > 0 {
		snap.ByMethod = make(map[string]MethodSnapshot, len(byMethod))
		for name, m := range byMethod {
			m.AvgMs = float64(methodMs[name]) / float64(m.Count)
			m.MsPerUnit = perUnit(methodMs[name], m.Units)
			snap.ByMethod[name] = *m
		}
	}
	return snap
}

func (s *LatencyStats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.maxAge)
	writeIdx := 0
	for _, sm := range s.samples {
		if !sm.at.Before(cutoff) {
			s.samples[writeIdx] = sm
			writeIdx++
		}
	}
	s.samples = s.samples[:writeIdx]
}

func perUnit(ms int64, units int) float64 {
	if units == 0 {
		return 0
	}
	return float64(ms) / float64(units)
}

func percentile(sortedValues []int64, pct float64) float64 {
	if len(sortedValues) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sortedValues[0])
	}
	if pct >= 100 {
		return float64(sortedValues[len(sortedValues)-1])
	}

	index := (float64(len(sortedValues)-1) * pct) / 100.0
	lower := int(index)
	upper := lower + 1
	if upper >= len(sortedValues) {
		return float64(sortedValues[lower])
	}
	weight := index - float64(lower)
	lo := float64(sortedValues[lower])
	hi := float64(sortedValues[upper])
	return lo + ((hi - lo) * weight)
}

// Stats groups the windows of each comparison stage.
type Stats struct {
	Extract   *LatencyStats // one file, per page, by extraction method
	Reconcile *LatencyStats // per employee row
	Total     *LatencyStats // a whole comparison, per page of both files
}

func NewStats(window time.Duration) *Stats {
	return &Stats{
		Extract:   NewLatencyStats("page", window),
		Reconcile: NewLatencyStats("employee", window),
		Total:     NewLatencyStats("page", window),
	}
}

// StageSnapshot is the JSON shape served on the stats endpoint.
type StageSnapshot struct {
	Extract   StatsSnapshot `json:"extract"`
	Reconcile StatsSnapshot `json:"reconcile"`
	Total     StatsSnapshot `json:"total"`
}

func (s *Stats) Snapshot() StageSnapshot {
	return StageSnapshot{
		Extract:   s.Extract.Snapshot(),
		Reconcile: s.Reconcile.Snapshot(),
		Total:     s.Total.Snapshot(),
	}
}
