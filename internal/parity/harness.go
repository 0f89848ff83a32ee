package parity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-db/internal/driver"
	"github.com/nerrad567/gray-logic-db/internal/governance"
)

// DefaultScenarioTimeout bounds one scenario on one adapter.
const DefaultScenarioTimeout = 30 * time.Second

// Logger is the logging surface the harness needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}

// Notifier is told about records the harness creates.
type Notifier interface {
	DeviationProposed(ctx context.Context, rec governance.Record) error
}

// Target is one adapter bound to one set of options.
type Target struct {
	Driver  driver.Driver
	Options driver.ConnectOptions
}

// TargetFromURI resolves uri against the catalog.
func TargetFromURI(catalog *driver.Catalog, uri string) (Target, error) {
	d, opts, err := catalog.Resolve(uri)
	if err != nil {
		return Target{}, err
	}
	return Target{Driver: d, Options: opts}, nil
}

// Name labels the target in reports.
func (t Target) Name() string { return t.Driver.Name() }

// Harness runs scenarios against a reference and a candidate adapter and
// reconciles differences with the deviation registry.
//
// A difference covered by an approved or not_a_deviation record linked to
// the scenario passes with an annotation. An uncovered difference creates
// a proposed record, unless a proposed or rejected record already links
// the scenario. Rerunning against the same adapters and registry yields
// the same verdicts and no new records.
type Harness struct {
	reference Target
	candidate Target
	registry  *governance.Registry
	log       Logger
	notify    Notifier
	timeout   time.Duration
}

// Option customizes a Harness.
type Option func(*Harness)

// WithLogger sets the harness logger.
func WithLogger(l Logger) Option {
	return func(h *Harness) {
		if l != nil {
			h.log = l
		}
	}
}

// WithNotifier reports new proposed records to n.
func WithNotifier(n Notifier) Option {
	return func(h *Harness) { h.notify = n }
}

// WithScenarioTimeout overrides DefaultScenarioTimeout.
func WithScenarioTimeout(d time.Duration) Option {
	return func(h *Harness) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// New creates a harness. registry receives proposed records; the caller
// decides whether to Save it.
func New(reference, candidate Target, registry *governance.Registry, opts ...Option) *Harness {
	h := &Harness{
		reference: reference,
		candidate: candidate,
		registry:  registry,
		log:       nopLogger{},
		timeout:   DefaultScenarioTimeout,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Run executes every scenario in battery order. Each scenario gets a fresh
// connection per adapter.
//
// Returns:
//   - *Report: one outcome per scenario
//   - error: connection failures or ctx cancellation; scenario failures
//     are observations, not errors
func (h *Harness) Run(ctx context.Context, battery Battery) (*Report, error) {
	rep := &Report{
		RunID:          uuid.NewString(),
		BatteryVersion: battery.Version,
		Reference:      h.reference.Name(),
		Candidate:      h.candidate.Name(),
		StartedAt:      time.Now().UTC(),
	}
	h.log.Info("parity run starting",
		"run_id", rep.RunID,
		"battery", battery.Version,
		"reference", h.reference.Options.Redacted(),
		"candidate", h.candidate.Options.Redacted(),
	)

	for _, sc := range battery.Scenarios {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		out, err := h.runScenario(ctx, sc)
		if err != nil {
			return rep, fmt.Errorf("scenario %s: %w", sc.ID, err)
		}
		rep.Outcomes = append(rep.Outcomes, out)
	}

	rep.Duration = time.Since(rep.StartedAt)
	h.log.Info("parity run finished", "run_id", rep.RunID, "summary", rep.Summary())
	return rep, nil
}

func (h *Harness) runScenario(ctx context.Context, sc Scenario) (Outcome, error) {
	ref, err := h.observe(ctx, h.reference, sc)
	if err != nil {
		return Outcome{}, fmt.Errorf("reference %s: %w", h.reference.Name(), err)
	}
	cand, err := h.observe(ctx, h.candidate, sc)
	if err != nil {
		return Outcome{}, fmt.Errorf("candidate %s: %w", h.candidate.Name(), err)
	}

	out := Outcome{Scenario: sc.ID, Title: sc.Title, Differences: Compare(ref, cand)}
	refFailed := h.expect(&out, sc, h.reference, ref)
	h.expect(&out, sc, h.candidate, cand)

	if len(out.Differences) == 0 {
		if len(out.Failures) == 0 {
			out.Verdict = Match
			h.log.Debug("scenario matched", "scenario", sc.ID)
			return out, nil
		}
		// Both adapters agree on a wrong result; no record can accept that.
		out.Verdict = Uncovered
		h.log.Warn("scenario failed its expectation on both adapters", "scenario", sc.ID, "failures", out.Failures)
		return out, nil
	}

	out, err = h.reconcile(ctx, sc, out)
	if err != nil {
		return Outcome{}, err
	}
	if refFailed {
		out.Verdict = Uncovered
	}
	return out, nil
}

// expect evaluates sc.Expect against obs and records a failure on out.
// It reports whether the expectation failed.
func (h *Harness) expect(out *Outcome, sc Scenario, t Target, obs Observation) bool {
	if sc.Expect == nil {
		return false
	}
	err := sc.Expect(obs)
	if err == nil {
		return false
	}
	out.Failures = append(out.Failures, fmt.Sprintf("%s: %v", t.Name(), err))
	h.log.Warn("scenario expectation failed", "scenario", sc.ID, "adapter", t.Name(), "error", err)
	return true
}

// reconcile settles a difference against the registry: covered by an
// accepting record, awaiting review on an open one, or proposed as new.
func (h *Harness) reconcile(ctx context.Context, sc Scenario, out Outcome) (Outcome, error) {
	if rec, ok := h.registry.FindByScenario(sc.ID); ok {
		out.Record = rec.ID
		if rec.Status.Releasable() {
			out.Verdict = Covered
			h.log.Debug("scenario difference covered", "scenario", sc.ID, "record", rec.ID, "status", rec.Status)
		} else {
			out.Verdict = Uncovered
			h.log.Warn("scenario difference awaiting review", "scenario", sc.ID, "record", rec.ID, "status", rec.Status)
		}
		return out, nil
	}

	rec, err := h.registry.Propose(h.proposal(sc, out.Differences))
	if err != nil {
		return Outcome{}, err
	}
	out.Verdict = Uncovered
	out.Record = rec.ID
	out.Proposed = true
	h.log.Warn("new deviation proposed", "scenario", sc.ID, "record", rec.ID, "differences", len(out.Differences))

	if h.notify != nil {
		if err := h.notify.DeviationProposed(ctx, rec); err != nil {
			h.log.Warn("deviation notification failed", "record", rec.ID, "error", err)
		}
	}
	return out, nil
}

// observe runs sc on a fresh connection to t. Only a failure to connect
// is returned as an error.
func (h *Harness) observe(ctx context.Context, t Target, sc Scenario) (Observation, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	conn, err := t.Driver.Connect(ctx, t.Options)
	if err != nil {
		return Observation{}, err
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			h.log.Debug("closing scenario connection", "adapter", t.Name(), "error", cerr)
		}
	}()

	obs, err := sc.Run(ctx, NewSession(t.Name(), conn, t.Driver.Placeholder()))
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return Observation{}, err
		}
		return failed(err), nil
	}
	return obs, nil
}

func (h *Harness) proposal(sc Scenario, diffs []Difference) governance.Proposal {
	lines := make([]string, len(diffs))
	for i, d := range diffs {
		lines[i] = d.String()
	}
	return governance.Proposal{
		Title:     fmt.Sprintf("%s: %s differs between %s and %s", sc.ID, sc.Title, h.reference.Name(), h.candidate.Name()),
		Scenarios: []string{sc.ID},
		Summary:   strings.Join(lines, "; "),
	}
}
