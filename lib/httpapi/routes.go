// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package httpapi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ServerInterface is the set of operations behind the issue routes.
// Path and query parameters arrive already bound and typed.
type ServerInterface interface {
	// (POST /issues)
	CreateIssue(w http.ResponseWriter, r *http.Request)
	// (GET /issues)
	ListIssues(w http.ResponseWriter, r *http.Request, params ListIssuesParams)
	// (GET /issues/{id})
	GetIssue(w http.ResponseWriter, r *http.Request, id int64)
	// (PATCH /issues/{id})
	UpdateIssue(w http.ResponseWriter, r *http.Request, id int64)
	// (GET /issues/{id}/timeline)
	GetTimeline(w http.ResponseWriter, r *http.Request, id int64)
	// (GET /issues/{id}/verify)
	VerifyTimeline(w http.ResponseWriter, r *http.Request, id int64)
	// (POST /issues/bulk-status)
	BulkUpdateStatus(w http.ResponseWriter, r *http.Request)
	// (GET /reports/latency)
	GetLatencyReport(w http.ResponseWriter, r *http.Request)
	// (GET /reports/top-assignees)
	GetTopAssignees(w http.ResponseWriter, r *http.Request, params GetTopAssigneesParams)
}

// ListIssuesParams are the query parameters of GET /issues.
type ListIssuesParams struct {
	Status    *string `form:"status,omitempty" json:"status,omitempty"`
	Assignee  *string `form:"assignee,omitempty" json:"assignee,omitempty"`
	CreatedBy *string `form:"created_by,omitempty" json:"created_by,omitempty"`
	Skip      *int    `form:"skip,omitempty" json:"skip,omitempty"`
	Limit     *int    `form:"limit,omitempty" json:"limit,omitempty"`
}

// GetTopAssigneesParams are the query parameters of
// GET /reports/top-assignees.
type GetTopAssigneesParams struct {
	Limit *int `form:"limit,omitempty" json:"limit,omitempty"`
}

// ParamError reports a path or query parameter that failed to bind.
type ParamError struct {
	Param string
	Err   error
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid format for parameter %s: %v", e.Param, e.Err)
}

func (e *ParamError) Unwrap() error { return e.Err }

// ServerInterfaceWrapper binds parameters and dispatches to Handler.
type ServerInterfaceWrapper struct {
	Handler          ServerInterface
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

func (siw *ServerInterfaceWrapper) CreateIssue(w http.ResponseWriter, r *http.Request) {
	siw.Handler.CreateIssue(w, r)
}

func (siw *ServerInterfaceWrapper) ListIssues(w http.ResponseWriter, r *http.Request) {
	var params ListIssuesParams
	query := r.URL.Query()

	bindings := []struct {
		name string
		dest any
	}{
		{"status", &params.Status},
		{"assignee", &params.Assignee},
		{"created_by", &params.CreatedBy},
		{"skip", &params.Skip},
		{"limit", &params.Limit},
	}
	for _, binding := range bindings {
		if err := runtime.BindQueryParameter("form", true, false, binding.name, query, binding.dest); err != nil {
			siw.ErrorHandlerFunc(w, r, &ParamError{Param: binding.name, Err: err})
			return
		}
	}

	siw.Handler.ListIssues(w, r, params)
}

func (siw *ServerInterfaceWrapper) GetIssue(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.bindID(w, r)
	if !ok {
		return
	}
	siw.Handler.GetIssue(w, r, id)
}

func (siw *ServerInterfaceWrapper) UpdateIssue(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.bindID(w, r)
	if !ok {
		return
	}
	siw.Handler.UpdateIssue(w, r, id)
}

func (siw *ServerInterfaceWrapper) GetTimeline(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.bindID(w, r)
	if !ok {
		return
	}
	siw.Handler.GetTimeline(w, r, id)
}

func (siw *ServerInterfaceWrapper) VerifyTimeline(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.bindID(w, r)
	if !ok {
		return
	}
	siw.Handler.VerifyTimeline(w, r, id)
}

func (siw *ServerInterfaceWrapper) BulkUpdateStatus(w http.ResponseWriter, r *http.Request) {
	siw.Handler.BulkUpdateStatus(w, r)
}

func (siw *ServerInterfaceWrapper) GetLatencyReport(w http.ResponseWriter, r *http.Request) {
	siw.Handler.GetLatencyReport(w, r)
}

func (siw *ServerInterfaceWrapper) GetTopAssignees(w http.ResponseWriter, r *http.Request) {
	var params GetTopAssigneesParams
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &params.Limit); err != nil {
		siw.ErrorHandlerFunc(w, r, &ParamError{Param: "limit", Err: err})
		return
	}
	siw.Handler.GetTopAssignees(w, r, params)
}

func (siw *ServerInterfaceWrapper) bindID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	var id int64
	err := runtime.BindStyledParameterWithLocation("simple", false, "id", runtime.ParamLocationPath, chi.URLParam(r, "id"), &id)
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &ParamError{Param: "id", Err: err})
		return 0, false
	}
	return id, true
}

// ChiServerOptions configures HandlerWithOptions.
type ChiServerOptions struct {
	BaseURL          string
	BaseRouter       chi.Router
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// HandlerWithOptions mounts the issue routes for si on
// options.BaseRouter, or on a fresh router when it is nil.
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, r *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	wrapper := ServerInterfaceWrapper{
		Handler:          si,
		ErrorHandlerFunc: options.ErrorHandlerFunc,
	}

	r.Group(func(r chi.Router) {
		r.Post(options.BaseURL+"/issues", wrapper.CreateIssue)
		r.Post(options.BaseURL+"/issues/bulk-status", wrapper.BulkUpdateStatus)
		r.Get(options.BaseURL+"/issues", wrapper.ListIssues)
		r.Get(options.BaseURL+"/issues/{id}", wrapper.GetIssue)
		r.Patch(options.BaseURL+"/issues/{id}", wrapper.UpdateIssue)
		r.Get(options.BaseURL+"/issues/{id}/timeline", wrapper.GetTimeline)
		r.Get(options.BaseURL+"/issues/{id}/verify", wrapper.VerifyTimeline)
		r.Get(options.BaseURL+"/reports/latency", wrapper.GetLatencyReport)
		r.Get(options.BaseURL+"/reports/top-assignees", wrapper.GetTopAssignees)
	})

	return r
}
