package parity

import (
	"errors"
	"fmt"

	"github.com/nerrad567/gray-logic-db/internal/value"
)

// Expectation checks one adapter's observation against values known to
// be correct. It catches adapters that agree with each other but are both
// wrong, which Compare alone cannot see.
type Expectation func(Observation) error

// allOf runs every expectation and joins their failures.
func allOf(es ...Expectation) Expectation {
	return func(o Observation) error {
		var errs []error
		for _, e := range es {
			if err := e(o); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}

func succeeded(o Observation) error {
	if o.Error != "" {
		return fmt.Errorf("scenario failed with %s: %s", errLabel(o.Error), o.Detail)
	}
	return nil
}

// expectValues requires exactly want, in order, ignoring labels.
func expectValues(want ...value.Value) Expectation {
	return func(o Observation) error {
		if err := succeeded(o); err != nil {
			return err
		}
		if len(o.Entries) != len(want) {
			return fmt.Errorf("observed %d values, want %d", len(o.Entries), len(want))
		}
		for i, e := range o.Entries {
			if !e.Value.Equal(want[i]) {
				return fmt.Errorf("%s = %s, want %s", e.Label, e.Value.Describe(), want[i].Describe())
			}
		}
		return nil
	}
}

// expectEntry requires the first entry labelled label to equal want.
func expectEntry(label string, want value.Value) Expectation {
	return func(o Observation) error {
		if err := succeeded(o); err != nil {
			return err
		}
		for _, e := range o.Entries {
			if e.Label != label {
				continue
			}
			if !e.Value.Equal(want) {
				return fmt.Errorf("%s = %s, want %s", label, e.Value.Describe(), want.Describe())
			}
			return nil
		}
		return fmt.Errorf("%s not observed", label)
	}
}

// expectError requires the scenario to fail with the given error kind.
func expectError(kind string) Expectation {
	return func(o Observation) error {
		if o.Error != kind {
			return fmt.Errorf("outcome %s, want %s", errLabel(o.Error), errLabel(kind))
		}
		return nil
	}
}
