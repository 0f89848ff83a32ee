package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-db/internal/governance"
	"github.com/nerrad567/gray-logic-db/internal/parity"
)

// healthPingTimeout bounds the database ping behind /health.
const healthPingTimeout = 2 * time.Second

// handleHealth pings the pool; 503 when the database is unreachable.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
	defer cancel()

	body := map[string]any{
		"status":  "ok",
		"version": s.version,
		"driver":  s.pool.Manager().DriverName(),
	}
	if err := s.pool.Ping(ctx); err != nil {
		body["status"] = "degraded"
		body["database"] = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, body)
		return
	}
	body["database"] = "ok"
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handlePoolStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.pool.Stats())
}

func (s *Server) handlePoolConnections(w http.ResponseWriter, _ *http.Request) {
	conns := s.pool.Connections()
	writeJSON(w, http.StatusOK, map[string]any{
		"connections": conns,
		"count":       len(conns),
	})
}

// handleListDeviations lists registry records, optionally filtered by
// ?status=.
func (s *Server) handleListDeviations(w http.ResponseWriter, r *http.Request) {
	records := s.registry.Records()
	if q := r.URL.Query().Get("status"); q != "" {
		st, err := governance.ParseStatus(q)
		if err != nil {
			writeBadRequest(w, err.Error())
			return
		}
		records = s.registry.FilterByStatus(st)
	}
	if records == nil {
		records = []governance.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"deviations": records,
		"count":      len(records),
	})
}

func (s *Server) handleGetDeviation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, ok := s.registry.Find(id)
	if !ok {
		writeNotFound(w, "deviation "+id+" not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// transitionRequest is the body of POST /deviations/{id}/transition.
type transitionRequest struct {
	Status    string `json:"status"`
	Rationale string `json:"rationale"`
}

// handleTransitionDeviation records a governance decision and persists the
// registry when it is file-backed.
func (s *Server) handleTransitionDeviation(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	to, err := governance.ParseStatus(req.Status)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	id := chi.URLParam(r, "id")
	s.decideMu.Lock()
	defer s.decideMu.Unlock()

	prev, _ := s.registry.Find(id)
	rec, err := s.registry.Transition(id, to, req.Rationale)
	if err != nil {
		writeFailure(w, err)
		return
	}

	if s.registry.Path() != "" {
		if err := s.registry.Save(); err != nil {
			s.logger.Error("saving deviation registry", "error", err, "id", id)
			if rerr := s.registry.Restore(prev); rerr != nil {
				s.logger.Error("restoring deviation record", "error", rerr, "id", id)
			}
			writeInternalError(w, "registry could not be saved; decision not recorded")
			return
		}
	}
	s.logger.Info("deviation status changed", "id", rec.ID, "status", string(rec.Status))
	writeJSON(w, http.StatusOK, rec)
}

// handleGate evaluates the release gate. An invalid registry is a hard
// 500; the gate never reports releasable for it.
func (s *Server) handleGate(w http.ResponseWriter, r *http.Request) {
	res, err := governance.Evaluate(s.registry.Records())
	if err != nil {
		writeInternalError(w, err.Error())
		return
	}
	if s.onGate != nil {
		s.onGate(r.Context(), res)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"result":  res,
		"summary": res.Summary(),
	})
}

func (s *Server) parityReport() *parity.Report {
	s.parityMu.Lock()
	defer s.parityMu.Unlock()
	return s.lastReport
}

func (s *Server) handleLastParity(w http.ResponseWriter, _ *http.Request) {
	rep := s.parityReport()
	if rep == nil {
		writeNotFound(w, "no parity run recorded")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// handleRunParity runs the battery synchronously. Concurrent requests
// queue behind the running one.
func (s *Server) handleRunParity(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "parity harness not configured")
		return
	}

	s.runMu.Lock()
	defer s.runMu.Unlock()

	rep, err := s.runner(r.Context())
	if err != nil {
		s.logger.Error("parity run failed", "error", err)
		writeFailure(w, err)
		return
	}
	s.SetParityReport(rep)
	writeJSON(w, http.StatusOK, rep)
}
