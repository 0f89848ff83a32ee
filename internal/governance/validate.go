package governance

import (
	"fmt"
	"strings"
)

// Validation is the outcome of checking a record set.
type Validation struct {
	// Errors are structural problems. Any error makes the set unusable
	// for a release decision.
	Errors []string

	// Warnings are review reminders that do not invalidate the set.
	Warnings []string

	Approved      int
	Proposed      int
	NotADeviation int
	Rejected      int
}

// Valid reports whether no structural errors were found.
func (v Validation) Valid() bool { return len(v.Errors) == 0 }

// Validate checks records for structural integrity.
//
// Rules:
//   - ids are unique and start with DEV-
//   - every record links at least one scenario
//   - no scenario is linked by two records
//   - title, summary, user_impact and rationale are non-empty
//   - status is one of the four defined states
//
// Proposed records and Approved records without a regression test are
// reported as warnings.
func Validate(records []Record) Validation {
	var v Validation
	seen := make(map[string]bool, len(records))
	owners := make(map[string]string)

	for i, rec := range records {
		id := rec.ID
		if id == "" {
			id = fmt.Sprintf("record #%d", i+1)
			v.Errors = append(v.Errors, fmt.Sprintf("%s: id must not be empty", id))
		} else {
			if seen[rec.ID] {
				v.Errors = append(v.Errors, fmt.Sprintf("duplicate deviation id: %s", rec.ID))
			}
			seen[rec.ID] = true
			if !strings.HasPrefix(rec.ID, IDPrefix) {
				v.Errors = append(v.Errors, fmt.Sprintf("%s: id must start with %q", id, IDPrefix))
			}
		}

		if len(rec.LinkedScenarios) == 0 {
			v.Errors = append(v.Errors, fmt.Sprintf("%s: must have at least one linked scenario", id))
		}
		for _, s := range rec.LinkedScenarios {
			if owner, ok := owners[s]; ok && owner != id {
				v.Errors = append(v.Errors, fmt.Sprintf("scenario %s is claimed by both %s and %s", s, owner, id))
				continue
			}
			owners[s] = id
		}

		for _, f := range []struct{ name, val string }{
			{"title", rec.Title},
			{"summary", rec.Summary},
			{"user_impact", rec.UserImpact},
			{"rationale", rec.Rationale},
		} {
			if strings.TrimSpace(f.val) == "" {
				v.Errors = append(v.Errors, fmt.Sprintf("%s: %s must not be empty", id, f.name))
			}
		}

		switch rec.Status {
		case StatusApproved:
			v.Approved++
			if rec.RegressionTest == "" {
				v.Warnings = append(v.Warnings, fmt.Sprintf("%s: APPROVED without a regression test (%s)", id, rec.Title))
			}
		case StatusProposed:
			v.Proposed++
			v.Warnings = append(v.Warnings, fmt.Sprintf("%s: PROPOSED, blocks promotion until reviewed (%s)", id, rec.Title))
		case StatusNotADeviation:
			v.NotADeviation++
		case StatusRejected:
			v.Rejected++
		default:
			v.Errors = append(v.Errors, fmt.Sprintf("%s: undefined status %q", id, rec.Status))
		}
	}
	return v
}
