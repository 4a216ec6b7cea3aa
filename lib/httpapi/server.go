// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package httpapi serves the issue tracker over JSON HTTP.
//
// Routes:
//
//	POST  /issues                 create an issue
//	GET   /issues                 list (status, assignee, created_by, skip, limit)
//	GET   /issues/{id}            current record
//	PATCH /issues/{id}            submit a mutation
//	GET   /issues/{id}/timeline   change history, oldest first
//	GET   /issues/{id}/verify     hash chain and version coverage check
//	POST  /issues/bulk-status     one status for many issues, per-item results
//	GET   /reports/latency        average resolution time
//	GET   /reports/top-assignees  assignees by issue count (limit)
//	GET   /health
//
// Failures carry the mutation.Category in the body. A conflict
// answers 409 with the current record in "data" so the client can
// re-base its edit; an audit failure answers 500 with the committed
// record, and the client must not resubmit.
package httpapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/md-786910/heaven-assignment/lib/issue"
	"github.com/md-786910/heaven-assignment/lib/mutation"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// UpdateRequest is the PATCH /issues/{id} body. Changes maps field
// names to new values; null clears a nullable field.
type UpdateRequest struct {
	ExpectedVersion uint64         `json:"expected_version"`
	Actor           issue.UserID   `json:"actor"`
	Changes         map[string]any `json:"changes"`
}

// BulkStatusRequest is the POST /issues/bulk-status body. Each item
// names an issue and the version the caller last saw.
type BulkStatusRequest struct {
	Items  []mutation.BulkItem `json:"items"`
	Status string              `json:"status"`
	Actor  issue.UserID        `json:"actor"`
}

// ErrorResponse is the body of every failure.
type ErrorResponse struct {
	Error    string            `json:"error"`
	Category mutation.Category `json:"category"`
	Data     any               `json:"data,omitempty"`
}

// Server implements ServerInterface on a mutation.Coordinator.
type Server struct {
	coordinator *mutation.Coordinator
	logger      *slog.Logger
}

// NewServer returns a Server. A nil logger discards.
func NewServer(coordinator *mutation.Coordinator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{coordinator: coordinator, logger: logger}
}

// Handler returns the complete router: issue routes, /health, panic
// recovery, and request logging.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return HandlerWithOptions(s, ChiServerOptions{
		BaseRouter:       r,
		ErrorHandlerFunc: s.paramError,
	})
}

func (s *Server) CreateIssue(w http.ResponseWriter, r *http.Request) {
	var draft issue.Draft
	if !s.decode(w, r, &draft) {
		return
	}
	record, err := s.coordinator.Create(r.Context(), draft)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/issues/%d", record.ID))
	writeJSON(w, http.StatusCreated, record)
}

func (s *Server) ListIssues(w http.ResponseWriter, r *http.Request, params ListIssuesParams) {
	var filter issue.Filter
	if params.Status != nil {
		status := issue.Status(*params.Status)
		filter.Status = &status
	}
	if params.Assignee != nil {
		assignee := issue.UserID(*params.Assignee)
		filter.Assignee = &assignee
	}
	if params.CreatedBy != nil {
		createdBy := issue.UserID(*params.CreatedBy)
		filter.CreatedBy = &createdBy
	}
	if params.Skip != nil {
		filter.Skip = *params.Skip
	}
	if params.Limit != nil {
		filter.Limit = *params.Limit
	}

	records, err := s.coordinator.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if records == nil {
		records = []issue.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) GetIssue(w http.ResponseWriter, r *http.Request, id int64) {
	record, err := s.coordinator.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) UpdateIssue(w http.ResponseWriter, r *http.Request, id int64) {
	var body UpdateRequest
	if !s.decode(w, r, &body) {
		return
	}
	changes, err := issue.ParseChanges(body.Changes)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	record, err := s.coordinator.Submit(r.Context(), mutation.Request{
		RecordID:        id,
		ExpectedVersion: body.ExpectedVersion,
		Changes:         changes,
		Actor:           body.Actor,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) GetTimeline(w http.ResponseWriter, r *http.Request, id int64) {
	events, err := s.coordinator.History(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if events == nil {
		events = []issue.ChangeEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) VerifyTimeline(w http.ResponseWriter, r *http.Request, id int64) {
	verification, err := s.coordinator.VerifyHistory(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, verification)
}

// BulkUpdateStatus answers 200 whenever the request itself is well
// formed; per-issue conflicts and missing ids are in the results.
func (s *Server) BulkUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var body BulkStatusRequest
	if !s.decode(w, r, &body) {
		return
	}
	status, err := issue.ParseStatus(body.Status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	results, err := s.coordinator.BulkStatusUpdate(r.Context(), mutation.BulkStatusRequest{
		Items:  body.Items,
		Status: status,
		Actor:  body.Actor,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) GetLatencyReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.coordinator.Resolution(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) GetTopAssignees(w http.ResponseWriter, r *http.Request, params GetTopAssigneesParams) {
	limit := 0
	if params.Limit != nil {
		limit = *params.Limit
	}
	loads, err := s.coordinator.TopAssignees(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loads)
}

// decode reads a JSON body into target. Unknown fields are rejected.
// On failure it has already written a 400.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:    "malformed request body: " + err.Error(),
			Category: mutation.CategoryValidation,
		})
		return false
	}
	return true
}

func (s *Server) paramError(w http.ResponseWriter, r *http.Request, err error) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:    err.Error(),
		Category: mutation.CategoryValidation,
	})
}

// writeError maps err to a status code and an ErrorResponse.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	category := mutation.Classify(err)
	response := ErrorResponse{
		Error:    err.Error(),
		Category: category,
		Data:     mutation.Detail(err),
	}

	var status int
	switch category {
	case mutation.CategoryNotFound:
		status = http.StatusNotFound
	case mutation.CategoryConflict:
		status = http.StatusConflict
	case mutation.CategoryValidation:
		status = http.StatusUnprocessableEntity
	case mutation.CategoryAuditWriteFailed:
		status = http.StatusInternalServerError
		s.logger.Error("mutation committed without history",
			"path", r.URL.Path, "error", err)
	default:
		status = http.StatusInternalServerError
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		response.Error = "internal error"
	}
	writeJSON(w, status, response)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(wrapped, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.Status(),
			"duration", time.Since(start),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; an encode failure has no recipient.
	_ = json.NewEncoder(w).Encode(value)
}
