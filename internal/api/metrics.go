package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/VictoriaMetrics/metrics"

	"github.com/nerrad567/gray-logic-db/internal/parity"
	"github.com/nerrad567/gray-logic-db/internal/pool"
)

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string            `json:"timestamp"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Runtime       RuntimeMetrics    `json:"runtime"`
	Pool          pool.Stats        `json:"pool"`
	Deviations    DeviationMetrics  `json:"deviations"`
	Parity        *ParityRunMetrics `json:"parity,omitempty"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// DeviationMetrics counts registry records by status.
type DeviationMetrics struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
}

// ParityRunMetrics summarises the last harness run.
type ParityRunMetrics struct {
	RunID     string `json:"run_id"`
	Match     int    `json:"match"`
	Covered   int    `json:"covered"`
	Uncovered int    `json:"uncovered"`
}

// handleMetrics returns runtime, pool and governance statistics as JSON.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	m := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		Pool: s.pool.Stats(),
		Deviations: DeviationMetrics{
			Total:    s.registry.Len(),
			ByStatus: make(map[string]int),
		},
	}
	for _, rec := range s.registry.Records() {
		m.Deviations.ByStatus[string(rec.Status)]++
	}

	if rep := s.parityReport(); rep != nil {
		m.Parity = &ParityRunMetrics{
			RunID:     rep.RunID,
			Match:     rep.Count(parity.Match),
			Covered:   rep.Count(parity.Covered),
			Uncovered: rep.Count(parity.Uncovered),
		}
	}

	writeJSON(w, http.StatusOK, m)
}

// handlePrometheus writes pool, HTTP and process metrics in Prometheus
// text format.
func (s *Server) handlePrometheus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	s.pool.WritePrometheus(w)
	s.httpMetrics.WritePrometheus(w)
	metrics.WriteProcessMetrics(w)
}
