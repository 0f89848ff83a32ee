package governance

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// IDPrefix starts every deviation id.
const IDPrefix = "DEV-"

// Record is one reviewed behavioural difference between a candidate
// adapter and the reference adapter. Records are never deleted; a record
// that reached a terminal state stays as history.
type Record struct {
	ID              string   `yaml:"id" json:"id"`
	Title           string   `yaml:"title" json:"title"`
	LinkedScenarios []string `yaml:"linked_scenarios" json:"linked_scenarios"`
	Status          Status   `yaml:"status" json:"status"`
	Summary         string   `yaml:"summary" json:"summary"`
	UserImpact      string   `yaml:"user_impact" json:"user_impact"`
	Rationale       string   `yaml:"rationale" json:"rationale"`
	RegressionTest  string   `yaml:"regression_test,omitempty" json:"regression_test,omitempty"`
}

// Links reports whether the record references scenario.
func (r Record) Links(scenario string) bool {
	return slices.Contains(r.LinkedScenarios, scenario)
}

func (r Record) clone() Record {
	r.LinkedScenarios = slices.Clone(r.LinkedScenarios)
	return r
}

// FormatID renders the n-th deviation id.
func FormatID(n int) string {
	return fmt.Sprintf("%s%03d", IDPrefix, n)
}

// idNumber extracts n from DEV-n; ok is false for other shapes.
func idNumber(id string) (int, bool) {
	rest, found := strings.CutPrefix(id, IDPrefix)
	if !found {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
