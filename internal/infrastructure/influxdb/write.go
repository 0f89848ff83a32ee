package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-db/internal/governance"
	"github.com/nerrad567/gray-logic-db/internal/parity"
	"github.com/nerrad567/gray-logic-db/internal/pool"
)

// Measurement names.
const (
	MeasurementPool   = "graydb_pool"
	MeasurementParity = "graydb_parity"
	MeasurementGate   = "graydb_gate"
)

// PoolPoint builds the point for one pool snapshot.
func PoolPoint(s pool.Stats, at time.Time) *write.Point {
	return write.NewPoint(
		MeasurementPool,
		map[string]string{"driver": s.Driver},
		map[string]any{
			"max_open":    s.MaxOpen,
			"open":        s.Open,
			"idle":        s.Idle,
			"in_use":      s.InUse,
			"dialing":     s.Dialing,
			"waiting":     s.Waiting,
			"checkouts":   s.Checkouts,
			"timeouts":    s.Timeouts,
			"discards":    s.Discards,
			"dial_errors": s.DialErrors,
		},
		at,
	)
}

// ParityPoint builds the point summarising one harness run.
func ParityPoint(r *parity.Report) *write.Point {
	return write.NewPoint(
		MeasurementParity,
		map[string]string{
			"reference": r.Reference,
			"candidate": r.Candidate,
			"battery":   r.BatteryVersion,
		},
		map[string]any{
			"run_id":      r.RunID,
			"scenarios":   len(r.Outcomes),
			"match":       r.Count(parity.Match),
			"covered":     r.Count(parity.Covered),
			"uncovered":   r.Count(parity.Uncovered),
			"new_records": len(r.ProposedRecords()),
			"duration_ms": r.Duration.Milliseconds(),
		},
		r.StartedAt,
	)
}

// GatePoint builds the point for one gate evaluation.
func GatePoint(g governance.GateResult, at time.Time) *write.Point {
	return write.NewPoint(
		MeasurementGate,
		map[string]string{"kind": g.Kind.String()},
		map[string]any{
			"releasable":      g.Releasable,
			"approved":        g.Approved,
			"proposed":        g.Proposed,
			"not_a_deviation": g.NotADeviation,
			"rejected":        g.Rejected,
		},
		at,
	)
}

// WritePoolStats records a pool snapshot. Non-blocking.
func (c *Client) WritePoolStats(s pool.Stats) {
	if c.IsConnected() {
		c.write(PoolPoint(s, time.Now()))
	}
}

// WriteParityReport records a harness run. Non-blocking.
func (c *Client) WriteParityReport(r *parity.Report) {
	if c.IsConnected() {
		c.write(ParityPoint(r))
	}
}

// WriteGateResult records a gate evaluation. Non-blocking.
func (c *Client) WriteGateResult(g governance.GateResult) {
	if c.IsConnected() {
		c.write(GatePoint(g, time.Now()))
	}
}
