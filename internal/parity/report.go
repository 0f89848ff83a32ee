package parity

import (
	"fmt"
	"strings"
	"time"
)

// Verdict is the result of one scenario.
type Verdict int

// Scenario verdicts.
const (
	// Match means both adapters observed the same thing.
	Match Verdict = iota
	// Covered means the difference is accepted by a linked record.
	Covered
	// Uncovered means the difference has no accepting record.
	Uncovered
)

func (v Verdict) String() string {
	switch v {
	case Match:
		return "match"
	case Covered:
		return "covered"
	case Uncovered:
		return "uncovered"
	}
	return fmt.Sprintf("verdict(%d)", int(v))
}

// MarshalText encodes the verdict by name.
func (v Verdict) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

// UnmarshalText decodes a verdict name.
func (v *Verdict) UnmarshalText(b []byte) error {
	for _, c := range []Verdict{Match, Covered, Uncovered} {
		if c.String() == string(b) {
			*v = c
			return nil
		}
	}
	return fmt.Errorf("parity: unknown verdict %q", b)
}

// Outcome is the verdict for one scenario.
type Outcome struct {
	Scenario    string       `json:"scenario"`
	Title       string       `json:"title"`
	Verdict     Verdict      `json:"verdict"`
	Differences []Difference `json:"differences,omitempty"`
	// Failures lists adapters whose observation broke the scenario's
	// expectation, as "adapter: reason".
	Failures []string `json:"failures,omitempty"`
	// Record is the linked deviation id for Covered and Uncovered outcomes.
	Record string `json:"record,omitempty"`
	// Proposed is set when this run created Record.
	Proposed bool `json:"proposed,omitempty"`
}

// Report collects the outcomes of one run.
type Report struct {
	RunID          string        `json:"run_id"`
	BatteryVersion string        `json:"battery_version"`
	Reference      string        `json:"reference"`
	Candidate      string        `json:"candidate"`
	StartedAt      time.Time     `json:"started_at"`
	Duration       time.Duration `json:"duration"`
	Outcomes       []Outcome     `json:"outcomes"`
}

// Count returns how many outcomes have verdict v.
func (r *Report) Count(v Verdict) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Verdict == v {
			n++
		}
	}
	return n
}

// ProposedRecords lists the ids of records this run created.
func (r *Report) ProposedRecords() []string {
	var ids []string
	for _, o := range r.Outcomes {
		if o.Proposed {
			ids = append(ids, o.Record)
		}
	}
	return ids
}

// Clean reports whether every scenario matched or was covered.
func (r *Report) Clean() bool { return r.Count(Uncovered) == 0 }

// Summary is a one-line description of the run.
func (r *Report) Summary() string {
	return fmt.Sprintf("parity %s vs %s (battery %s): %d scenarios, %d match, %d covered, %d uncovered, %d new record(s)",
		r.Reference, r.Candidate, r.BatteryVersion, len(r.Outcomes),
		r.Count(Match), r.Count(Covered), r.Count(Uncovered), len(r.ProposedRecords()))
}

// Text renders the full report for a terminal.
func (r *Report) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\nrun %s\n\n", r.Summary(), r.RunID)
	for _, o := range r.Outcomes {
		fmt.Fprintf(&b, "%-8s %-10s %s", o.Scenario, o.Verdict, o.Title)
		switch {
		case o.Proposed:
			fmt.Fprintf(&b, " [new %s]", o.Record)
		case o.Record != "":
			fmt.Fprintf(&b, " [%s]", o.Record)
		}
		b.WriteByte('\n')
		for _, d := range o.Differences {
			fmt.Fprintf(&b, "    %s\n", d)
		}
		for _, f := range o.Failures {
			fmt.Fprintf(&b, "    expectation failed: %s\n", f)
		}
	}
	return b.String()
}
