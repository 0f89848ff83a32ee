package influxdb

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-db/internal/pool"
)

// StatsSource is anything that can snapshot pool statistics.
type StatsSource interface {
	Stats() pool.Stats
}

// StatsWriter receives snapshots; *Client implements it.
type StatsWriter interface {
	WritePoolStats(s pool.Stats)
}

// ReportPoolStats writes a snapshot of src every interval until ctx is
// done, then writes a final one.
func ReportPoolStats(ctx context.Context, src StatsSource, w StatsWriter, interval time.Duration) {
	if interval <= 0 {
		interval = defaultFlushInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.WritePoolStats(src.Stats())
			return
		case <-ticker.C:
			w.WritePoolStats(src.Stats())
		}
	}
}
