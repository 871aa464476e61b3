package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"routedash/internal/diagnostics"
	"routedash/internal/stats"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, diagnostics.ErrInvalidDate) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	log.Error().Err(err).Str("requestId", requestID(r.Context())).Msg("Request failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}

const indexPage = `<!doctype html>
<html><head><title>routedash</title></head>
<body>
<h1>routedash diagnostics</h1>
<ul>
<li><a href="/api/model">Model</a></li>
<li><a href="/api/residuals">Residuals</a></li>
<li><a href="/api/baselines">Weekday baselines</a></li>
<li><a href="/api/context">Diagnostics context</a></li>
<li><a href="/metrics">Metrics</a></li>
</ul>
</body></html>
`

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexPage)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type modelBody struct {
	Model          *diagnostics.ModelSummary `json:"model"`
	Scope          stats.ModelScope          `json:"scope"`
	FitRows        int                       `json:"fitRows"`
	CatchupFlagged int                       `json:"catchupFlagged"`
	ModelKey       string                    `json:"modelKey"`
}

func newModelBody(p *diagnostics.Pipeline) modelBody {
	return modelBody{
		Model:          diagnostics.Snapshot(p, p.Today).Model,
		Scope:          p.Scope,
		FitRows:        len(p.FitDays),
		CatchupFlagged: p.CatchupFlagged,
		ModelKey:       p.ModelKey,
	}
}

func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	p, err := s.engine.Current(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newModelBody(p))
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	p, err := s.engine.Rebuild(r.Context(), diagnostics.TriggerReload)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newModelBody(p))
}

func (s *Server) handleResiduals(w http.ResponseWriter, r *http.Request) {
	p, err := s.engine.Current(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	report := p.Residuals
	if r.URL.Query().Get("all") != "true" {
		report.All = nil
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	iso := mux.Vars(r)["date"]
	q := r.URL.Query()
	mode := stats.ParseCompareMode(q.Get("mode"))
	ref := q.Get("ref")
	if mode == stats.CompareManual && ref == "" {
		writeError(w, http.StatusBadRequest, "mode manual requires a ref date")
		return
	}

	result, ok, err := s.engine.Compare(r.Context(), iso, mode, ref)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no %s reference available for %s", mode, iso))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleBaselines(w http.ResponseWriter, r *http.Request) {
	p, err := s.engine.Current(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p.Baselines)
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	c, err := s.engine.Context(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type dismissRequest struct {
	Reasons string `json:"reasons"`
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	var req dismissRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	res, err := s.engine.Dismiss(r.Context(), mux.Vars(r)["date"], req.Reasons)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !res.Applied {
		writeJSON(w, http.StatusUnprocessableEntity, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleReinstate(w http.ResponseWriter, r *http.Request) {
	iso := mux.Vars(r)["date"]
	removed, err := s.engine.Reinstate(r.Context(), iso)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, fmt.Sprintf("%s is not dismissed", iso))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type holidayDownweightRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleHolidayDownweight(w http.ResponseWriter, r *http.Request) {
	var req holidayDownweightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	p, err := s.engine.SetHolidayDownweight(r.Context(), req.Enabled)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newModelBody(p))
}

type modelScopeRequest struct {
	Scope string `json:"scope"`
}

func (s *Server) handleModelScope(w http.ResponseWriter, r *http.Request) {
	var req modelScopeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	raw := strings.ToLower(strings.TrimSpace(req.Scope))
	if raw != string(stats.ScopeRolling) && raw != string(stats.ScopeAll) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown scope %q", req.Scope))
		return
	}
	p, err := s.engine.SetModelScope(r.Context(), stats.ModelScope(raw))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newModelBody(p))
}
