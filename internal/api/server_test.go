package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-db/internal/driver/drivertest"
	"github.com/nerrad567/gray-logic-db/internal/governance"
	"github.com/nerrad567/gray-logic-db/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-db/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-db/internal/parity"
	"github.com/nerrad567/gray-logic-db/internal/pool"
)

func testRecords() []governance.Record {
	return []governance.Record{
		{
			ID: "DEV-001", Title: "column types", LinkedScenarios: []string{"PAR-008"},
			Status: governance.StatusApproved, Summary: "s", UserImpact: "u", Rationale: "r",
			RegressionTest: "TestColumnTypes",
		},
		{
			ID: "DEV-002", Title: "last insert id", LinkedScenarios: []string{"PAR-010"},
			Status: governance.StatusProposed, Summary: "s", UserImpact: "u", Rationale: "r",
		},
	}
}

type fixture struct {
	srv    *Server
	driver *drivertest.Driver
	reg    *governance.Registry
}

// testServer creates a Server over a fake driver pool and an in-memory registry.
func testServer(t *testing.T, deps Deps) *fixture {
	t.Helper()

	d := drivertest.New("fake")
	opts, err := d.ParseOptions("fake://db")
	if err != nil {
		t.Fatalf("ParseOptions() error = %v", err)
	}
	p, err := pool.New(pool.NewManagerFor(d, opts), pool.DefaultConfig())
	if err != nil {
		t.Fatalf("pool.New() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		p.Close(ctx) //nolint:errcheck // Test cleanup
	})

	reg := deps.Registry
	if reg == nil {
		reg = governance.NewRegistry(testRecords()...)
	}

	deps.Config = config.APIConfig{Host: "127.0.0.1", Port: 0, Timeouts: config.APITimeoutConfig{Read: 5, Write: 5, Idle: 5}}
	deps.Logger = logging.Discard()
	deps.Pool = p
	deps.Registry = reg
	deps.Version = "test"

	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &fixture{srv: srv, driver: d, reg: reg}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("invalid JSON response %q: %v", rec.Body.String(), err)
	}
}

func TestNew_RequiresDeps(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Error("New() with no logger should fail")
	}
	if _, err := New(Deps{Logger: logging.Discard()}); err == nil {
		t.Error("New() with no pool should fail")
	}
}

func TestHealth(t *testing.T) {
	f := testServer(t, Deps{})

	rec := f.do(t, http.MethodGet, "/api/v1/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var body map[string]any
	decode(t, rec, &body)
	if body["status"] != "ok" || body["driver"] != "fake" || body["version"] != "test" {
		t.Errorf("body = %v", body)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header not set")
	}
}

func TestHealth_DatabaseDown(t *testing.T) {
	f := testServer(t, Deps{})
	f.driver.FailDial(errors.New("connection refused"))

	rec := f.do(t, http.MethodGet, "/api/v1/health", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"degraded"`) {
		t.Errorf("body = %s", rec.Body)
	}
}

func TestRequestIDPropagated(t *testing.T) {
	f := testServer(t, Deps{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/pool", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("X-Request-ID = %q, want abc-123", got)
	}
}

func TestPoolEndpoints(t *testing.T) {
	f := testServer(t, Deps{})
	f.do(t, http.MethodGet, "/api/v1/health", "") // dials one connection

	var stats pool.Stats
	decode(t, f.do(t, http.MethodGet, "/api/v1/pool", ""), &stats)
	if stats.Driver != "fake" || stats.Open != 1 || stats.Idle != 1 {
		t.Errorf("stats = %+v", stats)
	}

	var conns struct {
		Connections []pool.ConnInfo `json:"connections"`
		Count       int             `json:"count"`
	}
	decode(t, f.do(t, http.MethodGet, "/api/v1/pool/connections", ""), &conns)
	if conns.Count != 1 || conns.Connections[0].State != "idle" {
		t.Errorf("connections = %+v", conns)
	}
}

func TestPrometheus(t *testing.T) {
	f := testServer(t, Deps{})
	f.do(t, http.MethodGet, "/api/v1/health", "")

	rec := f.do(t, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `graydb_pool_checkouts_total{driver="fake"} 1`) {
		t.Errorf("metrics missing checkout counter:\n%s", rec.Body)
	}
	if !strings.Contains(rec.Body.String(), `graydb_http_requests_total{method="GET",route="/api/v1/health",code="200"} 1`) {
		t.Errorf("metrics missing request counter:\n%s", rec.Body)
	}
}

func TestSystemMetrics(t *testing.T) {
	f := testServer(t, Deps{})

	var m SystemMetrics
	decode(t, f.do(t, http.MethodGet, "/api/v1/metrics", ""), &m)
	if m.Version != "test" || m.Deviations.Total != 2 || m.Deviations.ByStatus["proposed"] != 1 {
		t.Errorf("metrics = %+v", m)
	}
	if m.Parity != nil {
		t.Error("parity metrics present before any run")
	}
}

func TestDeviations_List(t *testing.T) {
	f := testServer(t, Deps{})

	tests := []struct {
		query     string
		wantCode  int
		wantCount int
	}{
		{"", http.StatusOK, 2},
		{"?status=proposed", http.StatusOK, 1},
		{"?status=APPROVED", http.StatusOK, 1},
		{"?status=rejected", http.StatusOK, 0},
		{"?status=maybe", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, "/api/v1/deviations"+tt.query, "")
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			var body struct {
				Count int `json:"count"`
			}
			decode(t, rec, &body)
			if body.Count != tt.wantCount {
				t.Errorf("count = %d, want %d", body.Count, tt.wantCount)
			}
		})
	}
}

func TestDeviations_Get(t *testing.T) {
	f := testServer(t, Deps{})

	var rec governance.Record
	decode(t, f.do(t, http.MethodGet, "/api/v1/deviations/DEV-002", ""), &rec)
	if rec.ID != "DEV-002" || rec.Status != governance.StatusProposed {
		t.Errorf("record = %+v", rec)
	}

	if code := f.do(t, http.MethodGet, "/api/v1/deviations/DEV-999", "").Code; code != http.StatusNotFound {
		t.Errorf("missing record status = %d, want 404", code)
	}
}

func TestDeviations_Transition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deviations.yaml")
	reg, err := governance.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	for _, r := range testRecords() {
		if err := reg.Add(r); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}
	f := testServer(t, Deps{Registry: reg})

	tests := []struct {
		name     string
		id       string
		body     string
		wantCode int
	}{
		{"bad json", "DEV-002", "{", http.StatusBadRequest},
		{"undefined status", "DEV-002", `{"status":"maybe","rationale":"x"}`, http.StatusBadRequest},
		{"unknown id", "DEV-999", `{"status":"approved","rationale":"x"}`, http.StatusNotFound},
		{"missing rationale", "DEV-002", `{"status":"approved"}`, http.StatusConflict},
		{"terminal record", "DEV-001", `{"status":"rejected","rationale":"x"}`, http.StatusConflict},
		{"approve", "DEV-002", `{"status":"approved","rationale":"Integer ids are acceptable."}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/v1/deviations/"+tt.id+"/transition", tt.body)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantCode, rec.Body)
			}
		})
	}

	saved, err := governance.Load(path)
	if err != nil {
		t.Fatalf("reload error = %v", err)
	}
	got, ok := saved.Find("DEV-002")
	if !ok || got.Status != governance.StatusApproved || got.Rationale != "Integer ids are acceptable." {
		t.Errorf("persisted record = %+v", got)
	}
}

func TestDeviations_TransitionRolledBackWhenSaveFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "deviations.yaml")
	reg, err := governance.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	for _, r := range testRecords() {
		if err := reg.Add(r); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}
	f := testServer(t, Deps{Registry: reg})

	rec := f.do(t, http.MethodPost, "/api/v1/deviations/DEV-002/transition", `{"status":"rejected","rationale":"Wrong row count."}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500 (body %s)", rec.Code, rec.Body)
	}

	got, _ := reg.Find("DEV-002")
	if got.Status != governance.StatusProposed || got.Rationale != "r" {
		t.Errorf("record after failed save = %+v, want unchanged", got)
	}
	var gate struct {
		Summary string `json:"summary"`
	}
	decode(t, f.do(t, http.MethodGet, "/api/v1/gate", ""), &gate)
	if !strings.HasPrefix(gate.Summary, "Release gate FAILED: 1 approved, 1 proposed") {
		t.Errorf("gate summary = %q, want the pre-decision state", gate.Summary)
	}
}

func TestGate(t *testing.T) {
	var seen []governance.GateResult
	f := testServer(t, Deps{OnGate: func(_ context.Context, res governance.GateResult) {
		seen = append(seen, res)
	}})

	rec := f.do(t, http.MethodGet, "/api/v1/gate", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Result  governance.GateResult `json:"result"`
		Summary string                `json:"summary"`
	}
	decode(t, rec, &body)
	if body.Result.Kind != governance.Warning || body.Result.Releasable {
		t.Errorf("result = %+v", body.Result)
	}
	if !strings.HasPrefix(body.Summary, "Release gate FAILED: 1 approved, 1 proposed") {
		t.Errorf("summary = %q", body.Summary)
	}
	if len(seen) != 1 || seen[0].Kind != governance.Warning {
		t.Errorf("OnGate saw %+v", seen)
	}
}

func TestGate_InvalidRegistryFailsClosed(t *testing.T) {
	bad := testRecords()
	bad[1].LinkedScenarios = []string{"PAR-008"} // claimed twice
	path := filepath.Join(t.TempDir(), "bad.yaml")
	writeRegistry(t, path, bad)
	reg, err := governance.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	f := testServer(t, Deps{Registry: reg})

	rec := f.do(t, http.MethodGet, "/api/v1/gate", "")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func writeRegistry(t *testing.T, path string, records []governance.Record) {
	t.Helper()
	var b strings.Builder
	b.WriteString("deviations:\n")
	for _, r := range records {
		b.WriteString("  - id: " + r.ID + "\n")
		b.WriteString("    title: " + r.Title + "\n")
		b.WriteString("    linked_scenarios: [" + strings.Join(r.LinkedScenarios, ", ") + "]\n")
		b.WriteString("    status: " + string(r.Status) + "\n")
		b.WriteString("    summary: " + r.Summary + "\n")
		b.WriteString("    user_impact: " + r.UserImpact + "\n")
		b.WriteString("    rationale: " + r.Rationale + "\n")
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		t.Fatalf("write registry: %v", err)
	}
}

func TestParity(t *testing.T) {
	calls := 0
	run := func(context.Context) (*parity.Report, error) {
		calls++
		return &parity.Report{
			RunID: "run-1", Reference: "sqlite", Candidate: "turso",
			Outcomes: []parity.Outcome{{Scenario: "PAR-001", Verdict: parity.Match}},
		}, nil
	}
	f := testServer(t, Deps{Parity: run})

	if code := f.do(t, http.MethodGet, "/api/v1/parity", "").Code; code != http.StatusNotFound {
		t.Errorf("before run status = %d, want 404", code)
	}

	rec := f.do(t, http.MethodPost, "/api/v1/parity/run", "")
	if rec.Code != http.StatusOK || calls != 1 {
		t.Fatalf("run status = %d, calls = %d", rec.Code, calls)
	}

	var rep parity.Report
	decode(t, f.do(t, http.MethodGet, "/api/v1/parity", ""), &rep)
	if rep.RunID != "run-1" || len(rep.Outcomes) != 1 {
		t.Errorf("report = %+v", rep)
	}

	var m SystemMetrics
	decode(t, f.do(t, http.MethodGet, "/api/v1/metrics", ""), &m)
	if m.Parity == nil || m.Parity.Match != 1 {
		t.Errorf("parity metrics = %+v", m.Parity)
	}
}

func TestParity_NotConfigured(t *testing.T) {
	f := testServer(t, Deps{})
	if code := f.do(t, http.MethodPost, "/api/v1/parity/run", "").Code; code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", code)
	}
}

func TestParity_RunError(t *testing.T) {
	f := testServer(t, Deps{Parity: func(context.Context) (*parity.Report, error) {
		return nil, errors.New("scenario PAR-001: connection refused")
	}})
	if code := f.do(t, http.MethodPost, "/api/v1/parity/run", "").Code; code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", code)
	}
}

func TestStartAndClose(t *testing.T) {
	f := testServer(t, Deps{})
	if err := f.srv.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() before Start should fail")
	}
	if err := f.srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	resp, err := http.Get("http://" + f.srv.Addr() + "/api/v1/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	if err := f.srv.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
