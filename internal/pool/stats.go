package pool

import (
	"sort"
	"time"
)

// Stats is a point-in-time view of the pool.
type Stats struct {
	Driver     string `json:"driver"`
	MaxOpen    int    `json:"max_open"`
	Open       int    `json:"open"`
	Idle       int    `json:"idle"`
	InUse      int    `json:"in_use"`
	Dialing    int    `json:"dialing"`
	Waiting    int    `json:"waiting"`
	Checkouts  uint64 `json:"checkouts"`
	Timeouts   uint64 `json:"timeouts"`
	Discards   uint64 `json:"discards"`
	DialErrors uint64 `json:"dial_errors"`
	Closed     bool   `json:"closed"`
}

// Stats returns current counts.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	s := Stats{
		Driver:  p.mgr.DriverName(),
		MaxOpen: p.cfg.MaxOpen,
		Open:    p.open,
		Idle:    len(p.idle),
		Dialing: p.dialing,
		Waiting: p.waiters.Len(),
		Closed:  p.closed,
	}
	p.mu.Unlock()

	s.InUse = max(s.Open-s.Idle-s.Dialing, 0)
	s.Checkouts = p.metrics.checkouts.Get()
	s.Timeouts = p.metrics.timeouts.Get()
	s.Discards = p.metrics.discards.Get()
	s.DialErrors = p.metrics.dialErrors.Get()
	return s
}

// ConnInfo describes one live connection.
type ConnInfo struct {
	ID      uint64        `json:"id"`
	State   string        `json:"state"`
	Age     time.Duration `json:"age"`
	IdleFor time.Duration `json:"idle_for,omitempty"`
}

// Connections lists live connections ordered by id.
func (p *Pool) Connections() []ConnInfo {
	now := time.Now()
	var out []ConnInfo
	p.conns.Range(func(id uint64, e *entry) bool {
		info := ConnInfo{ID: id, State: e.getState().String(), Age: now.Sub(e.createdAt)}
		if e.getState() == StateIdle {
			info.IdleFor = now.Sub(time.Unix(0, e.idleSince.Load()))
		}
		out = append(out, info)
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
