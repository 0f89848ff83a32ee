package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-db/internal/driver"
	"github.com/nerrad567/gray-logic-db/internal/driver/drivertest"
	"github.com/nerrad567/gray-logic-db/internal/governance"
	"github.com/nerrad567/gray-logic-db/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-db/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-db/internal/parity"
	"github.com/nerrad567/gray-logic-db/internal/value"
)

const shippedRegistry = "../../configs/deviations.yaml"

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("GRAYDB_CONFIG", "")
	t.Setenv("GRAYDB_LOG_LEVEL", "error")

	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.HasPrefix(out, "graydb dev (commit unknown") {
		t.Errorf("output = %q", out)
	}
}

func TestInvalidConfig(t *testing.T) {
	_, err := execute(t, "--config", "/nonexistent/path/graydb.yaml", "gate")
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("GRAYDB_CONFIG", "/etc/graydb/env.yaml")
	if got := getConfigPath("/flag.yaml"); got != "/flag.yaml" {
		t.Errorf("flag path = %q", got)
	}
	if got := getConfigPath(""); got != "/etc/graydb/env.yaml" {
		t.Errorf("env path = %q", got)
	}
	t.Setenv("GRAYDB_CONFIG", "")
	// The default path is relative to the repository root, not this package.
	if got := getConfigPath(""); got != "" {
		t.Errorf("fallback path = %q, want empty", got)
	}
}

func TestGate_ShippedRegistry(t *testing.T) {
	out, err := execute(t, "gate", "--registry", shippedRegistry)
	if err != nil {
		t.Fatalf("gate error = %v", err)
	}
	if !strings.HasPrefix(out, "Release gate FAILED: 1 approved, 1 proposed, 2 not-deviation, 0 rejected") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(out, "DEV-004: PROPOSED") {
		t.Errorf("output missing proposed record:\n%s", out)
	}

	_, err = execute(t, "gate", "--registry", shippedRegistry, "--promote")
	if exitCode(err) != 1 {
		t.Errorf("promote exit code = %d, want 1", exitCode(err))
	}
}

func TestGate_Rejected(t *testing.T) {
	path := writeFile(t, "deviations.yaml", `deviations:
  - id: DEV-001
    title: wrong integer width
    linked_scenarios: [PAR-002]
    status: rejected
    summary: integers truncated
    user_impact: data loss
    rationale: must be fixed
`)
	out, err := execute(t, "gate", "--registry", path)
	if exitCode(err) != 1 {
		t.Fatalf("exit code = %d, want 1 (err %v)", exitCode(err), err)
	}
	if !strings.Contains(out, "DEV-001: REJECTED") {
		t.Errorf("output = %q", out)
	}
}

func TestGate_InvalidRegistryFailsClosed(t *testing.T) {
	path := writeFile(t, "deviations.yaml", `deviations:
  - id: DEV-001
    title: t
    linked_scenarios: [PAR-002]
    status: maybe
    summary: s
    user_impact: u
    rationale: r
`)
	_, err := execute(t, "gate", "--registry", path)
	if exitCode(err) != 1 {
		t.Errorf("exit code = %d, want 1", exitCode(err))
	}
}

func TestPing(t *testing.T) {
	out, err := execute(t, "ping", "--url", "sqlite://:memory:")
	if err != nil {
		t.Fatalf("ping error = %v", err)
	}
	if !strings.HasPrefix(out, "ok driver=sqlite") {
		t.Errorf("output = %q", out)
	}
}

func TestPing_UnknownScheme(t *testing.T) {
	if _, err := execute(t, "ping", "--url", "oracle://db"); err == nil {
		t.Error("expected error for unsupported scheme")
	}
}

func TestParity_SameAdapter(t *testing.T) {
	registry := filepath.Join(t.TempDir(), "deviations.yaml")
	t.Setenv("GRAYDB_REGISTRY_PATH", registry)

	out, err := execute(t, "parity",
		"--reference", "sqlite://:memory:",
		"--candidate", "sqlite://:memory:",
		"--strict")
	if err != nil {
		t.Fatalf("parity error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "18 scenarios, 18 match, 0 covered, 0 uncovered, 0 new record(s)") {
		t.Errorf("output = %q", out)
	}
	if _, err := os.Stat(registry); !os.IsNotExist(err) {
		t.Error("registry written although nothing was proposed")
	}
}

func TestParity_ScenarioFilter(t *testing.T) {
	t.Setenv("GRAYDB_REGISTRY_PATH", shippedRegistry)

	out, err := execute(t, "parity",
		"--candidate", "turso://:memory:",
		"--scenario", "PAR-008", "--scenario", "PAR-001",
		"--save=false")
	if err != nil {
		t.Fatalf("parity error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "2 scenarios, 1 match, 1 covered") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(out, "[DEV-001]") {
		t.Errorf("covered scenario should name its record:\n%s", out)
	}
}

func selectV(ctx context.Context, s *parity.Session) (parity.Observation, error) {
	res, err := s.Query(ctx, "SELECT v")
	if err != nil {
		return parity.Observation{}, err
	}
	var o parity.Observation
	o.AddRows("row", res.Rows)
	return o, nil
}

func fakeParityTarget(t *testing.T, d *drivertest.Driver) parity.Target {
	t.Helper()
	opts, err := d.ParseOptions(d.Name() + "://db")
	if err != nil {
		t.Fatalf("ParseOptions() error = %v", err)
	}
	return parity.Target{Driver: d, Options: opts}
}

func TestParityFunc_SavesProposalsWhenRunStops(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deviations.yaml")
	reg, err := governance.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	refDrv := drivertest.New("ref").WithResponder(func(string, []value.Value) (*drivertest.Result, error) {
		return &drivertest.Result{Columns: []string{"v"}, Rows: [][]value.Value{{value.Int(1)}}}, nil
	})
	var candDrv *drivertest.Driver
	candDrv = drivertest.New("cand").WithResponder(func(string, []value.Value) (*drivertest.Result, error) {
		// The candidate goes away after answering the first scenario.
		candDrv.FailDial(fmt.Errorf("%w: refused", driver.ErrConnection))
		return &drivertest.Result{Columns: []string{"v"}, Rows: [][]value.Value{{value.Int(2)}}}, nil
	})

	battery := parity.Battery{Version: "test", Scenarios: []parity.Scenario{
		{ID: "PAR-201", Title: "first", Run: selectV},
		{ID: "PAR-202", Title: "second", Run: selectV},
	}}
	h := parity.New(fakeParityTarget(t, refDrv), fakeParityTarget(t, candDrv), reg)
	run := newParityFunc(h, battery, reg, logging.Discard(), nil, nil)

	rep, err := run(context.Background())
	if !errors.Is(err, driver.ErrConnection) {
		t.Fatalf("run() error = %v, want ErrConnection", err)
	}
	if rep == nil || len(rep.Outcomes) != 1 {
		t.Fatalf("partial report = %+v, want one outcome", rep)
	}

	saved, err := governance.Load(path)
	if err != nil {
		t.Fatalf("Load() saved registry error = %v", err)
	}
	rec, ok := saved.FindByScenario("PAR-201")
	if !ok {
		t.Fatal("proposal for PAR-201 was not saved")
	}
	if rec.Status != governance.StatusProposed {
		t.Errorf("saved status = %s, want %s", rec.Status, governance.StatusProposed)
	}
}

func TestParityFunc_NoSaveWithoutProposals(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deviations.yaml")
	reg, err := governance.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	same := func(string, []value.Value) (*drivertest.Result, error) {
		return &drivertest.Result{Columns: []string{"v"}, Rows: [][]value.Value{{value.Int(1)}}}, nil
	}
	battery := parity.Battery{Version: "test", Scenarios: []parity.Scenario{{ID: "PAR-201", Title: "first", Run: selectV}}}
	h := parity.New(
		fakeParityTarget(t, drivertest.New("ref").WithResponder(same)),
		fakeParityTarget(t, drivertest.New("cand").WithResponder(same)),
		reg,
	)

	rep, err := newParityFunc(h, battery, reg, logging.Discard(), nil, nil)(context.Background())
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !rep.Clean() {
		t.Errorf("report not clean: %s", rep.Summary())
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("registry written although nothing was proposed")
	}
}

func TestRun_ServesUntilCancelled(t *testing.T) {
	t.Setenv("GRAYDB_CONFIG", "")
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	cfg.Database.URL = "sqlite://:memory:"
	cfg.Governance.RegistryPath = filepath.Join(t.TempDir(), "deviations.yaml")
	cfg.API.Host = "127.0.0.1"
	cfg.API.Port = 0

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg, logging.Discard(), true) }()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run() error = %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("run() did not return after cancel")
	}
}

func TestRun_BadDatabaseURL(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	cfg.Database.URL = "nosuch://x"

	if err := run(context.Background(), cfg, logging.Discard(), false); err == nil {
		t.Error("run() should fail for an unsupported scheme")
	}
}
