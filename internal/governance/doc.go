// Package governance keeps the deviation registry and evaluates the
// release gate for a candidate adapter.
//
// This package manages:
//   - Record: one reviewed difference, linked to parity scenarios
//   - Status: proposed -> approved | rejected | not_a_deviation
//   - Registry: the YAML-backed, append-only record set
//   - Validate and Evaluate: structural checks and the release verdict
//
// Gate Semantics:
//
// A candidate is releasable only when every record is approved or
// not_a_deviation. Any proposed record yields a Warning: work may go on
// but promotion is blocked. Any rejected record is a HardFailure. A
// malformed registry or an undefined status is ErrGovernance; the gate
// fails closed.
//
// Evaluate is a pure function of the records passed in.
//
// File Format:
//
//	deviations:
//	  - id: DEV-001
//	    title: column type reports runtime storage class
//	    linked_scenarios: [PAR-008, PAR-014]
//	    status: approved
//	    summary: ...
//	    user_impact: ...
//	    rationale: ...
//	    regression_test: internal/adapters/turso TestColumnTypeIsRuntimeClass
//
// Usage:
//
//	reg, err := governance.Load("configs/deviations.yaml")
//	if err != nil {
//	    return err
//	}
//	res, err := governance.Evaluate(reg.Records())
//	if err != nil {
//	    return err
//	}
//	fmt.Print(res.Report())
//	os.Exit(res.ExitCode(promote))
package governance
