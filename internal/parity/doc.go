// Package parity checks that a candidate adapter behaves like a reference
// adapter, and turns every unexplained difference into a proposed
// deviation record.
//
// This package manages:
//   - Scenario and Battery: deterministic operation sequences, versioned
//   - Session: a scenario's connection with ? markers rewritten per adapter
//   - Observation and Compare: labelled values compared by kind and payload
//   - Harness and Report: verdicts reconciled with the deviation registry
//
// Comparison Rules:
//   - Values must agree in kind and payload (int(1) differs from bool(true))
//   - Failed scenarios agree when their error kinds agree; messages are
//     informational only
//   - Observations must have the same labels in the same order
//   - A scenario's Expect is checked on each adapter; a failure on the
//     reference, or a wrong result both adapters share, is Uncovered and
//     no registry record can cover it
//
// Usage:
//
//	ref, _ := parity.TargetFromURI(catalog, "sqlite://:memory:")
//	cand, _ := parity.TargetFromURI(catalog, "turso://:memory:")
//	reg, _ := governance.Load("configs/deviations.yaml")
//
//	h := parity.New(ref, cand, reg, parity.WithLogger(log))
//	rep, err := h.Run(ctx, parity.DefaultBattery())
//	if err != nil {
//	    return err
//	}
//	if len(rep.ProposedRecords()) > 0 {
//	    return reg.Save()
//	}
package parity
