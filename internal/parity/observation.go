package parity

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerrad567/gray-logic-db/internal/driver"
	"github.com/nerrad567/gray-logic-db/internal/value"
)

// Entry is one labelled value a scenario observed.
type Entry struct {
	Label string
	Value value.Value
}

// Observation is everything a scenario saw on one adapter, in order.
// When the scenario failed, Error holds the error kind and Detail the
// message; only the kind takes part in comparison.
type Observation struct {
	Entries []Entry
	Error   string
	Detail  string
}

// Add appends a labelled value.
func (o *Observation) Add(label string, v value.Value) {
	o.Entries = append(o.Entries, Entry{Label: label, Value: v})
}

// AddRows appends every cell of rows as prefix[i].column.
func (o *Observation) AddRows(prefix string, rows []value.Row) {
	for i, r := range rows {
		cols := r.Columns()
		for j, v := range r.Values() {
			o.Add(fmt.Sprintf("%s[%d].%s", prefix, i, cols[j]), v)
		}
	}
}

// AddMeta appends column count, names and types of res.
func (o *Observation) AddMeta(prefix string, res *Result) {
	o.Add(prefix+".columns", value.Int(int64(len(res.Columns))))
	for i := range res.Columns {
		o.Add(fmt.Sprintf("%s.name[%d]", prefix, i), value.String(res.Columns[i]))
		o.Add(fmt.Sprintf("%s.type[%d]", prefix, i), value.String(res.Types[i]))
	}
}

func failed(err error) Observation {
	return Observation{Error: ErrorKind(err), Detail: err.Error()}
}

// ErrorKind names the kind of err for comparison across adapters.
func ErrorKind(err error) string {
	switch k := driver.Kind(err); {
	case err == nil:
		return ""
	case errors.Is(k, driver.ErrBusy):
		return "busy"
	case errors.Is(k, driver.ErrQuery):
		return "query"
	case errors.Is(k, driver.ErrAuth):
		return "auth"
	case errors.Is(k, driver.ErrConnection):
		return "connection"
	case errors.Is(k, driver.ErrConfig):
		return "config"
	case errors.Is(k, driver.ErrPoolTimeout):
		return "pool_timeout"
	case errors.Is(k, driver.ErrPoolClosed), errors.Is(k, driver.ErrReleased):
		return "pool"
	case errors.Is(k, context.DeadlineExceeded), errors.Is(k, context.Canceled):
		return "cancelled"
	}
	return "other"
}

// Difference is one point where the candidate disagreed with the reference.
type Difference struct {
	Label     string `json:"label"`
	Reference string `json:"reference"`
	Candidate string `json:"candidate"`
}

func (d Difference) String() string {
	return fmt.Sprintf("%s: reference %s, candidate %s", d.Label, d.Reference, d.Candidate)
}

const missing = "<missing>"

// Compare lists the differences between two observations. Values must
// agree in kind and payload; failures agree when their kinds match.
func Compare(ref, cand Observation) []Difference {
	if ref.Error != "" || cand.Error != "" {
		if ref.Error == cand.Error {
			return nil
		}
		return []Difference{{Label: "error", Reference: errLabel(ref.Error), Candidate: errLabel(cand.Error)}}
	}

	var diffs []Difference
	n := max(len(ref.Entries), len(cand.Entries))
	for i := range n {
		switch {
		case i >= len(cand.Entries):
			diffs = append(diffs, Difference{Label: ref.Entries[i].Label, Reference: ref.Entries[i].Value.Describe(), Candidate: missing})
		case i >= len(ref.Entries):
			diffs = append(diffs, Difference{Label: cand.Entries[i].Label, Reference: missing, Candidate: cand.Entries[i].Value.Describe()})
		default:
			r, c := ref.Entries[i], cand.Entries[i]
			if r.Label != c.Label {
				diffs = append(diffs, Difference{Label: fmt.Sprintf("entry[%d]", i), Reference: r.Label, Candidate: c.Label})
				continue
			}
			if r.Value.Kind() != c.Value.Kind() || !r.Value.Equal(c.Value) {
				diffs = append(diffs, Difference{Label: r.Label, Reference: r.Value.Describe(), Candidate: c.Value.Describe()})
			}
		}
	}
	return diffs
}

func errLabel(kind string) string {
	if kind == "" {
		return "success"
	}
	return "error(" + kind + ")"
}
