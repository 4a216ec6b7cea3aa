// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/md-786910/heaven-assignment/lib/auditlog"
	"github.com/md-786910/heaven-assignment/lib/clock"
	"github.com/md-786910/heaven-assignment/lib/httpapi"
	"github.com/md-786910/heaven-assignment/lib/issue"
	"github.com/md-786910/heaven-assignment/lib/mutation"
	"github.com/md-786910/heaven-assignment/lib/recordstore"
)

// brokenLog refuses every append once broken is set.
type brokenLog struct {
	auditlog.Log
	broken bool
}

func (l *brokenLog) Append(ctx context.Context, events []issue.ChangeEvent) ([]issue.ChangeEvent, error) {
	if l.broken {
		return nil, errors.New("disk full")
	}
	return l.Log.Append(ctx, events)
}

type errorBody struct {
	Error    string          `json:"error"`
	Category string          `json:"category"`
	Data     json.RawMessage `json:"data"`
}

func newTestHandler(t *testing.T) (http.Handler, *brokenLog) {
	t.Helper()
	log := &brokenLog{Log: auditlog.NewMemoryLog()}
	coordinator, err := mutation.New(mutation.Config{
		Store: recordstore.NewMemoryStore(),
		Log:   log,
		Clock: clock.Fake(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)),
	})
	if err != nil {
		t.Fatalf("mutation.New: %v", err)
	}
	return httpapi.NewServer(coordinator, nil).Handler(), log
}

func do(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch body := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(body))
	default:
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encoding request: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	request := httptest.NewRequest(method, path, reader)
	request.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func decode[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var value T
	if err := json.Unmarshal(recorder.Body.Bytes(), &value); err != nil {
		t.Fatalf("decoding %q: %v", recorder.Body.String(), err)
	}
	return value
}

func expectStatus(t *testing.T, recorder *httptest.ResponseRecorder, want int) {
	t.Helper()
	if recorder.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", recorder.Code, want, recorder.Body.String())
	}
}

func createIssue(t *testing.T, handler http.Handler, title string) issue.Record {
	t.Helper()
	recorder := do(t, handler, http.MethodPost, "/issues", map[string]any{
		"title":      title,
		"created_by": "alice",
	})
	expectStatus(t, recorder, http.StatusCreated)
	return decode[issue.Record](t, recorder)
}

func TestHealth(t *testing.T) {
	handler, _ := newTestHandler(t)
	recorder := do(t, handler, http.MethodGet, "/health", nil)
	expectStatus(t, recorder, http.StatusOK)
	if body := decode[map[string]string](t, recorder); body["status"] != "ok" {
		t.Errorf("health body = %v", body)
	}
}

func TestCreateAndGet(t *testing.T) {
	handler, _ := newTestHandler(t)

	created := createIssue(t, handler, "Login broken")
	if created.ID == 0 || created.Version != issue.InitialVersion {
		t.Fatalf("created = %+v", created)
	}
	if created.Status != issue.StatusOpen || created.Priority != issue.PriorityMedium {
		t.Errorf("defaults not applied: status %s, priority %s", created.Status, created.Priority)
	}

	recorder := do(t, handler, http.MethodGet, "/issues/1", nil)
	expectStatus(t, recorder, http.StatusOK)
	if got := decode[issue.Record](t, recorder); got.Title != "Login broken" {
		t.Errorf("title = %q", got.Title)
	}
}

func TestCreateRejectsInvalidDraft(t *testing.T) {
	handler, _ := newTestHandler(t)

	recorder := do(t, handler, http.MethodPost, "/issues", map[string]any{"title": "", "created_by": "alice"})
	expectStatus(t, recorder, http.StatusUnprocessableEntity)
	if body := decode[errorBody](t, recorder); body.Category != string(mutation.CategoryValidation) {
		t.Errorf("category = %s", body.Category)
	}

	recorder = do(t, handler, http.MethodPost, "/issues", `{"title": "x", "created_by": "alice", "severity": 3}`)
	expectStatus(t, recorder, http.StatusBadRequest)
}

func TestUpdateAndTimeline(t *testing.T) {
	handler, _ := newTestHandler(t)
	createIssue(t, handler, "Login broken")

	recorder := do(t, handler, http.MethodPatch, "/issues/1", map[string]any{
		"expected_version": 1,
		"actor":            "bob",
		"changes":          map[string]any{"status": "in_progress", "assignee": "bob"},
	})
	expectStatus(t, recorder, http.StatusOK)
	updated := decode[issue.Record](t, recorder)
	if updated.Version != 2 || updated.Status != issue.StatusInProgress {
		t.Fatalf("updated = %+v", updated)
	}

	recorder = do(t, handler, http.MethodGet, "/issues/1/timeline", nil)
	expectStatus(t, recorder, http.StatusOK)
	events := decode[[]issue.ChangeEvent](t, recorder)
	if len(events) != 2 {
		t.Fatalf("timeline has %d events, want 2", len(events))
	}
	if events[0].Field != issue.FieldStatus || events[1].Field != issue.FieldAssignee {
		t.Errorf("fields = %s, %s", events[0].Field, events[1].Field)
	}
	if events[1].Old != nil || events[1].New == nil || *events[1].New != "bob" {
		t.Errorf("assignee event = %+v", events[1])
	}
	if events[0].Sequence != 1 || events[1].Sequence != 2 {
		t.Errorf("sequences = %d, %d", events[0].Sequence, events[1].Sequence)
	}

	recorder = do(t, handler, http.MethodGet, "/issues/1/verify", nil)
	expectStatus(t, recorder, http.StatusOK)
	if verification := decode[mutation.Verification](t, recorder); !verification.Intact || verification.Events != 2 {
		t.Errorf("verification = %+v", verification)
	}
}

func TestUpdateConflictReturnsCurrentRecord(t *testing.T) {
	handler, _ := newTestHandler(t)
	createIssue(t, handler, "Login broken")

	first := do(t, handler, http.MethodPatch, "/issues/1", map[string]any{
		"expected_version": 1, "actor": "alice", "changes": map[string]any{"priority": "high"},
	})
	expectStatus(t, first, http.StatusOK)

	stale := do(t, handler, http.MethodPatch, "/issues/1", map[string]any{
		"expected_version": 1, "actor": "bob", "changes": map[string]any{"title": "Login fails"},
	})
	expectStatus(t, stale, http.StatusConflict)
	body := decode[errorBody](t, stale)
	if body.Category != string(mutation.CategoryConflict) {
		t.Errorf("category = %s", body.Category)
	}
	var current issue.Record
	if err := json.Unmarshal(body.Data, &current); err != nil {
		t.Fatalf("decoding current record: %v", err)
	}
	if current.Version != 2 || current.Priority != issue.PriorityHigh || current.Title != "Login broken" {
		t.Errorf("current = %+v", current)
	}
}

func TestUpdateErrors(t *testing.T) {
	handler, _ := newTestHandler(t)
	createIssue(t, handler, "Login broken")

	tests := []struct {
		name     string
		path     string
		body     any
		status   int
		category mutation.Category
	}{
		{
			name:     "unknown record",
			path:     "/issues/99",
			body:     map[string]any{"expected_version": 1, "actor": "bob", "changes": map[string]any{"title": "x"}},
			status:   http.StatusNotFound,
			category: mutation.CategoryNotFound,
		},
		{
			name:     "unknown field",
			path:     "/issues/1",
			body:     map[string]any{"expected_version": 1, "actor": "bob", "changes": map[string]any{"severity": "x"}},
			status:   http.StatusUnprocessableEntity,
			category: mutation.CategoryValidation,
		},
		{
			name:     "immutable field",
			path:     "/issues/1",
			body:     map[string]any{"expected_version": 1, "actor": "bob", "changes": map[string]any{"created_by": "mallory"}},
			status:   http.StatusUnprocessableEntity,
			category: mutation.CategoryValidation,
		},
		{
			name:     "missing actor",
			path:     "/issues/1",
			body:     map[string]any{"expected_version": 1, "changes": map[string]any{"title": "x"}},
			status:   http.StatusUnprocessableEntity,
			category: mutation.CategoryValidation,
		},
		{
			name:     "malformed body",
			path:     "/issues/1",
			body:     `{"expected_version": `,
			status:   http.StatusBadRequest,
			category: mutation.CategoryValidation,
		},
		{
			name:     "non-numeric id",
			path:     "/issues/abc",
			body:     map[string]any{"expected_version": 1, "actor": "bob", "changes": map[string]any{"title": "x"}},
			status:   http.StatusBadRequest,
			category: mutation.CategoryValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := do(t, handler, http.MethodPatch, tt.path, tt.body)
			expectStatus(t, recorder, tt.status)
			if body := decode[errorBody](t, recorder); body.Category != string(tt.category) {
				t.Errorf("category = %s, want %s", body.Category, tt.category)
			}
		})
	}

	// None of the failures touched the record.
	recorder := do(t, handler, http.MethodGet, "/issues/1", nil)
	if record := decode[issue.Record](t, recorder); record.Version != issue.InitialVersion {
		t.Errorf("version = %d after failed updates", record.Version)
	}
}

func TestUpdateAuditFailureKeepsCommit(t *testing.T) {
	handler, log := newTestHandler(t)
	createIssue(t, handler, "Login broken")
	log.broken = true

	recorder := do(t, handler, http.MethodPatch, "/issues/1", map[string]any{
		"expected_version": 1, "actor": "bob", "changes": map[string]any{"status": "closed"},
	})
	expectStatus(t, recorder, http.StatusInternalServerError)
	body := decode[errorBody](t, recorder)
	if body.Category != string(mutation.CategoryAuditWriteFailed) {
		t.Fatalf("category = %s", body.Category)
	}
	var committed issue.Record
	if err := json.Unmarshal(body.Data, &committed); err != nil {
		t.Fatalf("decoding committed record: %v", err)
	}
	if committed.Version != 2 || committed.Status != issue.StatusClosed {
		t.Errorf("committed = %+v", committed)
	}

	recorder = do(t, handler, http.MethodGet, "/issues/1", nil)
	if record := decode[issue.Record](t, recorder); record.Version != 2 {
		t.Errorf("stored version = %d, want 2", record.Version)
	}
}

func TestTimelineUnknownIssue(t *testing.T) {
	handler, _ := newTestHandler(t)
	expectStatus(t, do(t, handler, http.MethodGet, "/issues/7/timeline", nil), http.StatusNotFound)

	createIssue(t, handler, "Fresh")
	recorder := do(t, handler, http.MethodGet, "/issues/1/timeline", nil)
	expectStatus(t, recorder, http.StatusOK)
	if strings.TrimSpace(recorder.Body.String()) != "[]" {
		t.Errorf("empty timeline body = %s", recorder.Body.String())
	}
}

func TestListFilters(t *testing.T) {
	handler, _ := newTestHandler(t)
	for _, title := range []string{"one", "two", "three"} {
		createIssue(t, handler, title)
	}
	expectStatus(t, do(t, handler, http.MethodPatch, "/issues/2", map[string]any{
		"expected_version": 1, "actor": "bob", "changes": map[string]any{"status": "resolved"},
	}), http.StatusOK)

	tests := []struct {
		query string
		want  []int64
	}{
		{"", []int64{1, 2, 3}},
		{"?status=resolved", []int64{2}},
		{"?status=open", []int64{1, 3}},
		{"?created_by=alice&skip=1&limit=1", []int64{2}},
		{"?assignee=nobody", []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			recorder := do(t, handler, http.MethodGet, "/issues"+tt.query, nil)
			expectStatus(t, recorder, http.StatusOK)
			records := decode[[]issue.Record](t, recorder)
			if len(records) != len(tt.want) {
				t.Fatalf("got %d records, want %d", len(records), len(tt.want))
			}
			for i, record := range records {
				if record.ID != tt.want[i] {
					t.Errorf("records[%d].ID = %d, want %d", i, record.ID, tt.want[i])
				}
			}
		})
	}

	expectStatus(t, do(t, handler, http.MethodGet, "/issues?status=archived", nil), http.StatusUnprocessableEntity)
	expectStatus(t, do(t, handler, http.MethodGet, "/issues?limit=many", nil), http.StatusBadRequest)
}

func TestBulkStatusUpdate(t *testing.T) {
	handler, _ := newTestHandler(t)
	first := createIssue(t, handler, "Login broken")
	second := createIssue(t, handler, "Logout broken")

	recorder := do(t, handler, http.MethodPatch, "/issues/2", map[string]any{
		"expected_version": 1, "actor": "bob",
		"changes": map[string]any{"assignee": "bob"},
	})
	expectStatus(t, recorder, http.StatusOK)

	recorder = do(t, handler, http.MethodPost, "/issues/bulk-status", map[string]any{
		"status": "resolved",
		"actor":  "carol",
		"items": []map[string]any{
			{"id": first.ID, "expected_version": 1},
			{"id": second.ID, "expected_version": 1},
			{"id": 99, "expected_version": 1},
		},
	})
	expectStatus(t, recorder, http.StatusOK)
	results := decode[[]mutation.BulkResult](t, recorder)
	want := []mutation.Outcome{mutation.OutcomeCommitted, mutation.OutcomeConflict, mutation.OutcomeNotFound}
	if len(results) != len(want) {
		t.Fatalf("results = %+v", results)
	}
	for i := range want {
		if results[i].Outcome != want[i] {
			t.Errorf("results[%d].Outcome = %s, want %s", i, results[i].Outcome, want[i])
		}
	}
	if results[0].Record == nil || results[0].Record.Status != issue.StatusResolved || results[0].Record.ResolvedAt == nil {
		t.Errorf("committed result = %+v", results[0])
	}

	timeline := decode[[]issue.ChangeEvent](t, do(t, handler, http.MethodGet, "/issues/1/timeline", nil))
	if len(timeline) != 1 || timeline[0].Field != issue.FieldStatus || timeline[0].Actor != "carol" {
		t.Errorf("timeline after bulk update = %+v", timeline)
	}
}

func TestBulkStatusUpdateErrors(t *testing.T) {
	handler, _ := newTestHandler(t)
	createIssue(t, handler, "Login broken")
	item := map[string]any{"id": 1, "expected_version": 1}

	tests := []struct {
		name     string
		body     any
		status   int
		category mutation.Category
	}{
		{"unknown status", map[string]any{"status": "done", "actor": "carol", "items": []any{item}}, http.StatusUnprocessableEntity, mutation.CategoryValidation},
		{"no items", map[string]any{"status": "closed", "actor": "carol", "items": []any{}}, http.StatusUnprocessableEntity, mutation.CategoryValidation},
		{"duplicate items", map[string]any{"status": "closed", "actor": "carol", "items": []any{item, item}}, http.StatusUnprocessableEntity, mutation.CategoryValidation},
		{"issue_ids instead of items", map[string]any{"status": "closed", "actor": "carol", "issue_ids": []int{1}}, http.StatusBadRequest, mutation.CategoryValidation},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			recorder := do(t, handler, http.MethodPost, "/issues/bulk-status", test.body)
			expectStatus(t, recorder, test.status)
			if body := decode[errorBody](t, recorder); body.Category != string(test.category) {
				t.Errorf("category = %q, want %q", body.Category, test.category)
			}
		})
	}
}

func TestReports(t *testing.T) {
	handler, _ := newTestHandler(t)

	empty := decode[mutation.ResolutionReport](t, do(t, handler, http.MethodGet, "/reports/latency", nil))
	if empty.ResolvedIssues != 0 || empty.AverageResolutionHours != 0 {
		t.Errorf("empty latency = %+v", empty)
	}

	for i, assignee := range []string{"bob", "dana", "bob"} {
		record := createIssue(t, handler, "Issue")
		recorder := do(t, handler, http.MethodPatch, "/issues/"+strconv.FormatInt(record.ID, 10), map[string]any{
			"expected_version": 1, "actor": "alice",
			"changes": map[string]any{"assignee": assignee, "status": []string{"resolved", "open", "open"}[i]},
		})
		expectStatus(t, recorder, http.StatusOK)
	}

	recorder := do(t, handler, http.MethodGet, "/reports/latency", nil)
	expectStatus(t, recorder, http.StatusOK)
	if latency := decode[mutation.ResolutionReport](t, recorder); latency.ResolvedIssues != 1 {
		t.Errorf("latency = %+v, want one resolved issue", latency)
	}

	recorder = do(t, handler, http.MethodGet, "/reports/top-assignees?limit=1", nil)
	expectStatus(t, recorder, http.StatusOK)
	top := decode[[]mutation.AssigneeLoad](t, recorder)
	if len(top) != 1 || top[0].Assignee != "bob" || top[0].Issues != 2 {
		t.Errorf("top assignees = %+v", top)
	}

	if all := decode[[]mutation.AssigneeLoad](t, do(t, handler, http.MethodGet, "/reports/top-assignees", nil)); len(all) != 2 {
		t.Errorf("default limit returned %+v", all)
	}
	expectStatus(t, do(t, handler, http.MethodGet, "/reports/top-assignees?limit=-1", nil), http.StatusUnprocessableEntity)
	expectStatus(t, do(t, handler, http.MethodGet, "/reports/top-assignees?limit=many", nil), http.StatusBadRequest)
}
