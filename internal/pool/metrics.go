package pool

import (
	"fmt"
	"io"

	"github.com/VictoriaMetrics/metrics"
)

type poolMetrics struct {
	set        *metrics.Set
	checkouts  *metrics.Counter
	timeouts   *metrics.Counter
	discards   *metrics.Counter
	dialErrors *metrics.Counter
	handoffs   *metrics.Counter
	wait       *metrics.Histogram
}

func newPoolMetrics(p *Pool) *poolMetrics {
	set := metrics.NewSet()
	name := func(metric string) string {
		return fmt.Sprintf(`graydb_pool_%s{driver=%q}`, metric, p.mgr.DriverName())
	}
	m := &poolMetrics{
		set:        set,
		checkouts:  set.NewCounter(name("checkouts_total")),
		timeouts:   set.NewCounter(name("checkout_timeouts_total")),
		discards:   set.NewCounter(name("discards_total")),
		dialErrors: set.NewCounter(name("dial_errors_total")),
		handoffs:   set.NewCounter(name("handoffs_total")),
		wait:       set.NewHistogram(name("checkout_wait_seconds")),
	}
	set.NewGauge(name("open"), func() float64 { return float64(p.Stats().Open) })
	set.NewGauge(name("idle"), func() float64 { return float64(p.Stats().Idle) })
	set.NewGauge(name("in_use"), func() float64 { return float64(p.Stats().InUse) })
	set.NewGauge(name("waiting"), func() float64 { return float64(p.Stats().Waiting) })
	set.NewGauge(name("max_open"), func() float64 { return float64(p.cfg.MaxOpen) })
	return m
}

// WritePrometheus writes the pool's metrics in Prometheus text format.
func (p *Pool) WritePrometheus(w io.Writer) {
	p.metrics.set.WritePrometheus(w)
}
