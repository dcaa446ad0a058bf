package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/cadre-oss/reqcheck/internal/app"
	rcErrors "github.com/cadre-oss/reqcheck/internal/errors"
	"github.com/cadre-oss/reqcheck/internal/event"
	"github.com/cadre-oss/reqcheck/internal/pipeline"
	"github.com/cadre-oss/reqcheck/internal/roles"
	"github.com/cadre-oss/reqcheck/internal/state"
)

// --- Helpers ---

func jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, status int, msg string) {
	jsonResponse(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// statusFor maps a pipeline error to an HTTP status.
func statusFor(err error) int {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	switch rcErrors.AsCode(err) {
	case rcErrors.CodeInputMissing, rcErrors.CodeConfigInvalid, rcErrors.CodeRoleNotFound:
		return http.StatusBadRequest
	case rcErrors.CodeAPIKeyMissing:
		return http.StatusServiceUnavailable
	}
	return http.StatusUnprocessableEntity
}

// --- Health ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": s.opts.Version,
		"name":    s.cfg.Name,
	})
}

// --- Roles ---

func (s *Server) handleListRoles(w http.ResponseWriter, _ *http.Request) {
	type roleView struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Disabled bool   `json:"disabled,omitempty"`
	}
	ids := roles.IDs()
	out := make([]roleView, 0, len(ids))
	for _, id := range ids {
		rc := s.cfg.Role(id)
		r := roles.MustGet(id).Override(rc.Name, "")
		out = append(out, roleView{ID: id, Name: r.Name, Disabled: rc.Disabled})
	}
	jsonResponse(w, http.StatusOK, out)
}

// --- Reviews ---

type reviewRequest struct {
	Requirements  string `json:"requirements"`
	Code          string `json:"code"`
	ErrorStrategy string `json:"error_strategy,omitempty"`
	CodeAnalysis  bool   `json:"code_analysis,omitempty"`
}

// handleReview runs one review to completion and returns its report.
// A failed run still returns the partial report next to the error.
func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	var body reviewRequest
	if err := decodeJSON(r, &body); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if body.Requirements == "" || body.Code == "" {
		jsonError(w, http.StatusBadRequest, "requirements and code are required")
		return
	}

	select {
	case s.slot <- struct{}{}:
		defer func() { <-s.slot }()
	case <-r.Context().Done():
		jsonError(w, http.StatusServiceUnavailable, "request cancelled while waiting for a running review")
		return
	}

	cfg := *s.cfg
	if body.ErrorStrategy != "" {
		cfg.Pipeline.ErrorStrategy = body.ErrorStrategy
	}
	if body.CodeAnalysis {
		cfg.Pipeline.CodeAnalysis = true
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	reqID := uuid.New().String()
	s.track(reqID, cancel)
	defer s.untrack(reqID)

	a, err := app.New(ctx, app.Options{
		Config:    &cfg,
		Model:     s.opts.Model,
		LogOutput: s.opts.LogOutput,
		State:     s.stateMgr,
		Hooks:     []event.Hook{s.broker},
	})
	if err != nil {
		jsonError(w, statusFor(err), err.Error())
		return
	}
	defer a.Close()

	report, runErr := a.Review(ctx, pipeline.Inputs{Requirements: body.Requirements, Code: body.Code})
	if runErr != nil {
		if report == nil {
			jsonError(w, statusFor(runErr), runErr.Error())
			return
		}
		jsonResponse(w, statusFor(runErr), map[string]interface{}{
			"error":  runErr.Error(),
			"report": report,
		})
		return
	}
	jsonResponse(w, http.StatusOK, report)
}

// --- Runs ---

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			jsonError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", v))
			return
		}
		limit = n
	}
	runs, err := s.stateMgr.ListRuns(r.Context(), limit)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []*state.RunState{}
	}
	jsonResponse(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.stateMgr.GetRun(r.Context(), r.PathValue("id"))
	if errors.Is(err, state.ErrRunNotFound) {
		jsonError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, run)
}

// --- SSE ---

// sseHeartbeat keeps idle streams open through proxies.
const sseHeartbeat = 15 * time.Second

func (s *Server) handleSSEEvents(w http.ResponseWriter, r *http.Request) {
	s.serveSSE(w, r, "")
}

func (s *Server) handleSSEEventsFiltered(w http.ResponseWriter, r *http.Request) {
	s.serveSSE(w, r, r.PathValue("runID"))
}

func (s *Server) serveSSE(w http.ResponseWriter, r *http.Request, runID string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		jsonError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	clientID := uuid.New().String()
	client := s.broker.Subscribe(r.Context(), clientID, runID)

	data, _ := json.Marshal(map[string]string{"type": "connected", "client_id": clientID})
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case ev, ok := <-client.Events:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", ev.Seq, ev.Type, data)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		}
	}
}
