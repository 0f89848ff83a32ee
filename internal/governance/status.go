package governance

import "fmt"

// Status is the review state of a deviation record.
type Status string

// Review states. Proposed is the only non-terminal state.
const (
	StatusProposed      Status = "proposed"
	StatusApproved      Status = "approved"
	StatusRejected      Status = "rejected"
	StatusNotADeviation Status = "not_a_deviation"
)

// Statuses lists every defined status in display order.
var Statuses = []Status{StatusApproved, StatusProposed, StatusNotADeviation, StatusRejected}

// Defined reports whether s is one of the four known states.
func (s Status) Defined() bool {
	switch s {
	case StatusProposed, StatusApproved, StatusRejected, StatusNotADeviation:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s != StatusProposed
}

// Releasable reports whether a record in state s permits promotion.
func (s Status) Releasable() bool {
	return s == StatusApproved || s == StatusNotADeviation
}

// CanTransition reports whether a record may move from s to next.
func (s Status) CanTransition(next Status) bool {
	return s == StatusProposed && next.Defined() && next != StatusProposed
}

// Label is the upper-case form used in gate reports.
func (s Status) Label() string {
	switch s {
	case StatusProposed:
		return "PROPOSED"
	case StatusApproved:
		return "APPROVED"
	case StatusRejected:
		return "REJECTED"
	case StatusNotADeviation:
		return "NOT_A_DEVIATION"
	}
	return fmt.Sprintf("UNDEFINED(%s)", string(s))
}

// ParseStatus accepts the YAML spelling or the report label.
func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if s == string(st) || s == st.Label() {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: undefined status %q", ErrGovernance, s)
}
