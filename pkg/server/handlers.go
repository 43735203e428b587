package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"sentinel-hq/warden/pkg/detection"
	"sentinel-hq/warden/pkg/gate"
)

// evaluateRequest is the body of POST /v1/detectors/{name}/evaluate.
type evaluateRequest struct {
	// Input is the opaque detector input.
	Input any `json:"input"`
}

// evaluateResponse wraps the evaluation result. Detected is false when the
// detector found nothing; Record is then absent.
type evaluateResponse struct {
	Detected bool              `json:"detected"`
	Record   *detection.Record `json:"record,omitempty"`
}

// shadowRequest is the body of POST /v1/detectors/{name}/shadow.
type shadowRequest struct {
	Duration string `json:"duration"`
}

// modeRequest is the body of PUT /v1/detectors/{name}/mode.
type modeRequest struct {
	Mode string `json:"mode"`
}

// resolveRequest is the body of POST /v1/detectors/{name}/approvals/{id}/resolve.
type resolveRequest struct {
	Approved bool   `json:"approved"`
	Reviewer string `json:"reviewer"`
	Notes    string `json:"notes"`
}

// errorResponse is the structured error body for all failures.
type errorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (s *Server) handleListDetectors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"detectors": s.registry.Names()})
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid", "request body must be JSON with an \"input\" field")
		return
	}

	record, err := s.registry.Evaluate(r.Context(), name, req.Input)
	if err != nil {
		s.writeGateError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, evaluateResponse{
		Detected: record != nil,
		Record:   record,
	})
}

func (s *Server) handleEnableShadow(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req shadowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid", "request body must be JSON with a \"duration\" field")
		return
	}

	duration, err := time.ParseDuration(req.Duration)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid", "duration must be a Go duration string, e.g. \"1h\"")
		return
	}

	if err := s.registry.EnableShadow(name, duration); err != nil {
		s.writeGateError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "shadow enabled"})
}

func (s *Server) handleDisableShadow(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if err := s.registry.DisableShadow(name); err != nil {
		s.writeGateError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "shadow disabled"})
}

func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req modeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid", "request body must be JSON with a \"mode\" field")
		return
	}

	mode, err := detection.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid", err.Error())
		return
	}

	if err := s.registry.SetMode(name, mode); err != nil {
		s.writeGateError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "mode set", "mode": req.Mode})
}

func (s *Server) handleListPending(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	pending, err := s.registry.ListPending(name)
	if err != nil {
		s.writeGateError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"pending": pending})
}

func (s *Server) handleResolveApproval(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	id := chi.URLParam(r, "id")

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid", "request body must be JSON")
		return
	}

	record, err := s.registry.ResolveApproval(r.Context(), name, id, req.Approved, req.Reviewer, req.Notes)
	if err != nil {
		s.writeGateError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"record": record})
}

func (s *Server) handleShadowAll(w http.ResponseWriter, r *http.Request) {
	var req shadowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid", "request body must be JSON with a \"duration\" field")
		return
	}

	duration, err := time.ParseDuration(req.Duration)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid", "duration must be a Go duration string, e.g. \"1h\"")
		return
	}

	// Best-effort across gates: a partial failure reports the joined errors
	// but the remaining gates are already shadowed.
	if err := s.registry.EnableShadowAll(duration); err != nil {
		writeError(w, http.StatusMultiStatus, "partial", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "shadow enabled for all detectors"})
}

func (s *Server) handleDetectorMetrics(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	summary, err := s.registry.Metrics(r.Context(), name)
	if err != nil {
		s.writeGateError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleAggregateMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.AggregateMetrics(r.Context()))
}

// writeGateError maps structured gate errors to HTTP status codes.
func (s *Server) writeGateError(w http.ResponseWriter, err error) {
	var gerr *gate.Error
	if !errors.As(err, &gerr) {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	status := http.StatusInternalServerError
	switch gerr.Kind {
	case gate.KindUnknownDetector, gate.KindNotFound:
		status = http.StatusNotFound
	case gate.KindDuplicateName:
		status = http.StatusConflict
	case gate.KindInvalid:
		status = http.StatusBadRequest
	case gate.KindDurability:
		status = http.StatusServiceUnavailable
	case gate.KindCompute, gate.KindExecution:
		status = http.StatusInternalServerError
	}

	writeError(w, status, string(gerr.Kind), gerr.Error())
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorResponse{Kind: kind, Message: message})
}
