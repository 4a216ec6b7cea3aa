// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/md-786910/heaven-assignment/lib/clock"
	"github.com/md-786910/heaven-assignment/lib/codec"
	"github.com/md-786910/heaven-assignment/lib/issue"
	"github.com/md-786910/heaven-assignment/lib/mutation"
	"github.com/md-786910/heaven-assignment/lib/service"
	"github.com/md-786910/heaven-assignment/lib/version"
)

// TrackerService adapts the coordinator to socket actions.
type TrackerService struct {
	coordinator *mutation.Coordinator
	clock       clock.Clock
	startedAt   time.Time
	logger      *slog.Logger
}

// registerActions registers every socket action on server.
func (ts *TrackerService) registerActions(server *service.SocketServer) {
	server.Handle("status", ts.handleStatus)

	// Queries.
	server.Handle("show", ts.handleShow)
	server.Handle("list", ts.handleList)
	server.Handle("history", ts.handleHistory)
	server.Handle("verify", ts.handleVerify)
	server.Handle("report-latency", ts.handleReportLatency)
	server.Handle("report-top-assignees", ts.handleReportTopAssignees)

	// Mutations.
	server.Handle("create", ts.handleCreate)
	server.Handle("update", ts.handleUpdate)
	server.Handle("bulk-status", ts.handleBulkStatus)
}

// classifyError is the socket server's ErrorClassifier.
func classifyError(err error) (string, any) {
	return string(mutation.Classify(err)), mutation.Detail(err)
}

// statusResponse is the response to the "status" action.
type statusResponse struct {
	UptimeSeconds float64 `cbor:"uptime_seconds"`
	Version       string  `cbor:"version"`
}

func (ts *TrackerService) handleStatus(ctx context.Context, raw []byte) (any, error) {
	return statusResponse{
		UptimeSeconds: ts.clock.Now().Sub(ts.startedAt).Seconds(),
		Version:       version.Info(),
	}, nil
}

// idRequest is the body of show, history, and verify.
type idRequest struct {
	ID int64 `cbor:"id"`
}

func decodeIDRequest(raw []byte) (int64, error) {
	var request idRequest
	if err := decodeRequest(raw, &request); err != nil {
		return 0, err
	}
	if request.ID <= 0 {
		return 0, &issue.ValidationError{Field: "id", Reason: "must be a positive issue id"}
	}
	return request.ID, nil
}

// decodeRequest decodes raw into target. Malformed CBOR is a
// validation failure, not an internal one.
func decodeRequest(raw []byte, target any) error {
	if err := codec.Unmarshal(raw, target); err != nil {
		return &issue.ValidationError{Field: "request", Reason: fmt.Sprintf("malformed: %v", err)}
	}
	return nil
}

func (ts *TrackerService) handleShow(ctx context.Context, raw []byte) (any, error) {
	id, err := decodeIDRequest(raw)
	if err != nil {
		return nil, err
	}
	return ts.coordinator.Get(ctx, id)
}

// listRequest is the body of "list". Absent criteria match everything.
type listRequest struct {
	Status    *string `cbor:"status,omitempty"`
	Assignee  *string `cbor:"assignee,omitempty"`
	CreatedBy *string `cbor:"created_by,omitempty"`
	Skip      int     `cbor:"skip,omitempty"`
	Limit     int     `cbor:"limit,omitempty"`
}

func (request listRequest) filter() issue.Filter {
	filter := issue.Filter{Skip: request.Skip, Limit: request.Limit}
	if request.Status != nil {
		status := issue.Status(*request.Status)
		filter.Status = &status
	}
	if request.Assignee != nil {
		assignee := issue.UserID(*request.Assignee)
		filter.Assignee = &assignee
	}
	if request.CreatedBy != nil {
		createdBy := issue.UserID(*request.CreatedBy)
		filter.CreatedBy = &createdBy
	}
	return filter
}

func (ts *TrackerService) handleList(ctx context.Context, raw []byte) (any, error) {
	var request listRequest
	if err := decodeRequest(raw, &request); err != nil {
		return nil, err
	}
	records, err := ts.coordinator.List(ctx, request.filter())
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []issue.Record{}
	}
	return records, nil
}

func (ts *TrackerService) handleHistory(ctx context.Context, raw []byte) (any, error) {
	id, err := decodeIDRequest(raw)
	if err != nil {
		return nil, err
	}
	events, err := ts.coordinator.History(ctx, id)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []issue.ChangeEvent{}
	}
	return events, nil
}

func (ts *TrackerService) handleVerify(ctx context.Context, raw []byte) (any, error) {
	id, err := decodeIDRequest(raw)
	if err != nil {
		return nil, err
	}
	return ts.coordinator.VerifyHistory(ctx, id)
}

func (ts *TrackerService) handleCreate(ctx context.Context, raw []byte) (any, error) {
	var draft issue.Draft
	if err := decodeRequest(raw, &draft); err != nil {
		return nil, err
	}
	return ts.coordinator.Create(ctx, draft)
}

// updateRequest is the body of "update". Changes maps field names to
// new values; a nil value clears a nullable field.
type updateRequest struct {
	ID              int64          `cbor:"id"`
	ExpectedVersion uint64         `cbor:"expected_version"`
	Actor           string         `cbor:"actor"`
	Changes         map[string]any `cbor:"changes"`
}

func (ts *TrackerService) handleUpdate(ctx context.Context, raw []byte) (any, error) {
	var request updateRequest
	if err := decodeRequest(raw, &request); err != nil {
		return nil, err
	}
	if request.ID <= 0 {
		return nil, &issue.ValidationError{Field: "id", Reason: "must be a positive issue id"}
	}
	changes, err := issue.ParseChanges(request.Changes)
	if err != nil {
		return nil, err
	}
	return ts.coordinator.Submit(ctx, mutation.Request{
		RecordID:        request.ID,
		ExpectedVersion: request.ExpectedVersion,
		Changes:         changes,
		Actor:           issue.UserID(request.Actor),
	})
}

// bulkStatusRequest is the body of "bulk-status". Each item carries
// the version its caller last saw.
type bulkStatusRequest struct {
	Items  []bulkItem `cbor:"items"`
	Status string     `cbor:"status"`
	Actor  string     `cbor:"actor"`
}

type bulkItem struct {
	ID              int64  `cbor:"id"`
	ExpectedVersion uint64 `cbor:"expected_version"`
}

func (ts *TrackerService) handleBulkStatus(ctx context.Context, raw []byte) (any, error) {
	var request bulkStatusRequest
	if err := decodeRequest(raw, &request); err != nil {
		return nil, err
	}
	status, err := issue.ParseStatus(request.Status)
	if err != nil {
		return nil, err
	}
	items := make([]mutation.BulkItem, len(request.Items))
	for i, item := range request.Items {
		items[i] = mutation.BulkItem{RecordID: item.ID, ExpectedVersion: item.ExpectedVersion}
	}
	return ts.coordinator.BulkStatusUpdate(ctx, mutation.BulkStatusRequest{
		Items:  items,
		Status: status,
		Actor:  issue.UserID(request.Actor),
	})
}

func (ts *TrackerService) handleReportLatency(ctx context.Context, raw []byte) (any, error) {
	return ts.coordinator.Resolution(ctx)
}

// topAssigneesRequest is the body of "report-top-assignees". A zero
// limit means the default.
type topAssigneesRequest struct {
	Limit int `cbor:"limit,omitempty"`
}

func (ts *TrackerService) handleReportTopAssignees(ctx context.Context, raw []byte) (any, error) {
	var request topAssigneesRequest
	if err := decodeRequest(raw, &request); err != nil {
		return nil, err
	}
	return ts.coordinator.TopAssignees(ctx, request.Limit)
}
