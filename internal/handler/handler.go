package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/judgecore/engine/internal/language"
	"github.com/judgecore/engine/internal/problem"
	"github.com/judgecore/engine/internal/streamrun"
	"github.com/judgecore/engine/internal/types"
	"github.com/judgecore/engine/internal/wrapper"
	"github.com/sirupsen/logrus"
)

// Handler contains the dependencies for HTTP handlers.
type Handler struct {
	registry    *language.Registry
	runner      *streamrun.Runner
	problems    problem.Client
	maxParallel int
	logger      *logrus.Logger
}

// NewHandler creates a new handler instance.
func NewHandler(registry *language.Registry, runner *streamrun.Runner, problems problem.Client, logger *logrus.Logger) *Handler {
	return &Handler{
		registry: registry,
		runner:   runner,
		problems: problems,
		logger:   logger,
	}
}

// GetVersion returns the API version.
func (h *Handler) GetVersion(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, map[string]string{"message": "judgecore v1.0.0"}, http.StatusOK)
}

// GetRuntimes returns the installed language/variant table.
func (h *Handler) GetRuntimes(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, h.registry.List(), http.StatusOK)
}

// ExecuteCode streams a single custom run (no expected output) as
// server-sent events.
func (h *Handler) ExecuteCode(w http.ResponseWriter, r *http.Request) {
	var req types.ExecuteRequest
	if err := decodeJSON(r, &req); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Language == "" || req.Code == "" {
		h.sendError(w, "language and code are required", http.StatusBadRequest)
		return
	}

	job := types.SubmissionJob{
		ID:       uuid.New().String(),
		Language: req.Language,
		Variant:  req.Variant,
		Code:     req.Code,
		Tests:    []types.TestCase{{Input: req.Stdin}},
		Mode:     types.ModeCustomRun,
	}

	h.stream(w, r, job)
}

// SubmitCode streams a full test-suite run. Tests are taken inline if
// present, otherwise resolved via the Problem Metadata Client (C8).
func (h *Handler) SubmitCode(w http.ResponseWriter, r *http.Request) {
	var req types.SubmitRequest
	if err := decodeJSON(r, &req); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Language == "" || req.Code == "" {
		h.sendError(w, "language and code are required", http.StatusBadRequest)
		return
	}

	tests := req.Tests
	top, bottom := "", ""

	if len(tests) == 0 {
		if req.ProblemSlug == "" {
			h.sendError(w, "tests or problem_slug is required", http.StatusBadRequest)
			return
		}
		if h.problems == nil {
			h.sendError(w, "problem metadata service is not configured", http.StatusServiceUnavailable)
			return
		}
		payload, found, err := h.problems.GetTestsAndExecution(req.ProblemSlug, req.Language)
		if err != nil {
			h.logger.WithError(err).Error("problem metadata lookup failed")
			h.sendError(w, "failed to fetch problem metadata", http.StatusBadGateway)
			return
		}
		if !found {
			h.sendError(w, fmt.Sprintf("unknown problem/language pair: %s/%s", req.ProblemSlug, req.Language), http.StatusNotFound)
			return
		}
		tests = payload.Tests
		top, bottom = payload.ExecutionTop, payload.ExecutionBottom
	}

	job := types.SubmissionJob{
		ID:       uuid.New().String(),
		Language: req.Language,
		Variant:  req.Variant,
		Code:     wrapper.Wrap(req.Code, top, bottom),
		Tests:    tests,
		Mode:     types.ModeSubmit,
	}

	h.stream(w, r, job)
}

func (h *Handler) stream(w http.ResponseWriter, r *http.Request, job types.SubmissionJob) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.sendError(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	log := h.logger.WithFields(logrus.Fields{"job_id": job.ID, "language": job.Language})
	log.WithField("total_tests", len(job.Tests)).Debug("stream started")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events := h.runner.Run(r.Context(), job)
	for ev := range events {
		logEvent(log, ev)

		payload, err := json.Marshal(ev)
		if err != nil {
			log.WithError(err).Error("failed to marshal stream event")
			continue
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			// client disconnected; context cancellation unwinds the runner
			return
		}
		flusher.Flush()
	}
}

// logEvent records one streamed event at a level matching its operational
// significance: IE is an infrastructure fault (Warn), an ordinary verdict
// (AC/WA/TLE/...) is just a Debug breadcrumb, and the final summary is an
// Info line closing out the job_id started above.
func logEvent(log *logrus.Entry, ev types.StreamEvent) {
	switch ev.Type {
	case "test", "custom":
		entry := log.WithFields(logrus.Fields{"test_index": ev.Index, "status": ev.Status})
		if ev.Status == string(types.VerdictIE) {
			entry.Warn("test execution reported an internal error")
		} else {
			entry.Debug("test execution classified")
		}
	case "error":
		log.WithField("message", ev.Message).Warn("stream aborted")
	case "complete":
		entry := log
		if ev.Summary != nil {
			entry = entry.WithFields(logrus.Fields{"passed": ev.Summary.Passed, "failed": ev.Summary.Failed})
		}
		entry.Info("stream completed")
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return fmt.Errorf("request body too large")
		}
		return fmt.Errorf("invalid JSON request: %w", err)
	}
	return nil
}

func (h *Handler) sendError(w http.ResponseWriter, message string, statusCode int) {
	h.sendJSON(w, types.ErrorResponse{Message: message, Code: statusCode}, statusCode)
}

func (h *Handler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.WithError(err).Error("failed to encode JSON response")
	}
}

// Health reports liveness for readiness probes.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
