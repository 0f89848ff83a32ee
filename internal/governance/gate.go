package governance

import (
	"fmt"
	"strings"
)

// Kind classifies a gate verdict.
type Kind int

// Gate verdict kinds, in increasing severity.
const (
	// Pass means every record is Approved or NotADeviation.
	Pass Kind = iota
	// Warning means at least one record is Proposed. Development and
	// testing may continue; promotion is blocked.
	Warning
	// HardFailure means at least one record is Rejected.
	HardFailure
)

func (k Kind) String() string {
	switch k {
	case Pass:
		return "pass"
	case Warning:
		return "warning"
	case HardFailure:
		return "hard_failure"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(b []byte) error {
	for _, c := range []Kind{Pass, Warning, HardFailure} {
		if c.String() == string(b) {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("%w: unknown gate kind %q", ErrGovernance, b)
}

// GateResult is the release verdict for one registry snapshot.
type GateResult struct {
	Releasable    bool     `json:"releasable"`
	Kind          Kind     `json:"kind"`
	Approved      int      `json:"approved"`
	Proposed      int      `json:"proposed"`
	NotADeviation int      `json:"not_a_deviation"`
	Rejected      int      `json:"rejected"`
	Failures      []string `json:"failures,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
}

// Evaluate computes the release verdict. It reads nothing but records and
// returns the same result for the same input.
//
// Parameters:
//   - records: a registry snapshot, typically Registry.Records()
//
// Returns:
//   - GateResult: Pass, Warning (any Proposed) or HardFailure (any Rejected)
//   - error: ErrGovernance when the records are structurally invalid or a
//     status is undefined; the gate fails closed
func Evaluate(records []Record) (GateResult, error) {
	v := Validate(records)
	if !v.Valid() {
		return GateResult{}, fmt.Errorf("%w: %s", ErrGovernance, strings.Join(v.Errors, "; "))
	}

	res := GateResult{
		Approved:      v.Approved,
		Proposed:      v.Proposed,
		NotADeviation: v.NotADeviation,
		Rejected:      v.Rejected,
		Warnings:      v.Warnings,
	}
	for _, rec := range records {
		switch rec.Status {
		case StatusRejected:
			res.Failures = append(res.Failures,
				fmt.Sprintf("%s: REJECTED, adapter must be fixed to match the reference (%s)", rec.ID, rec.Title))
		case StatusProposed:
			res.Failures = append(res.Failures,
				fmt.Sprintf("%s: PROPOSED, requires a governance decision before promotion (%s)", rec.ID, rec.Title))
		}
	}

	switch {
	case res.Rejected > 0:
		res.Kind = HardFailure
	case res.Proposed > 0:
		res.Kind = Warning
	default:
		res.Kind = Pass
	}
	res.Releasable = res.Kind == Pass
	return res, nil
}

// Summary is the one-line verdict with counts by status.
func (g GateResult) Summary() string {
	verdict := "PASSED"
	if !g.Releasable {
		verdict = "FAILED"
	}
	return fmt.Sprintf("Release gate %s: %d approved, %d proposed, %d not-deviation, %d rejected, %d error(s)",
		verdict, g.Approved, g.Proposed, g.NotADeviation, g.Rejected, len(g.Failures))
}

// Report is the reviewer-facing text: summary, numbered blocking issues,
// then warnings.
func (g GateResult) Report() string {
	var b strings.Builder
	b.WriteString(g.Summary())
	if g.Releasable {
		b.WriteString("\nNo blocking issues.\n")
	} else {
		b.WriteString("\n\nBlocking issues:\n")
		for i, f := range g.Failures {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, f)
		}
	}
	if len(g.Warnings) > 0 {
		b.WriteString("\nWarnings:\n")
		for _, w := range g.Warnings {
			fmt.Fprintf(&b, "  - %s\n", w)
		}
	}
	return b.String()
}

// ExitCode maps the verdict to a process exit status. Warnings only fail
// when the run is deciding a promotion.
func (g GateResult) ExitCode(promotion bool) int {
	switch g.Kind {
	case HardFailure:
		return 1
	case Warning:
		if promotion {
			return 1
		}
	}
	return 0
}
