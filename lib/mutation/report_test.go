// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mutation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/md-786910/heaven-assignment/lib/issue"
	"github.com/md-786910/heaven-assignment/lib/mutation"
)

func (h *harness) setStatus(t *testing.T, record issue.Record, status issue.Status) issue.Record {
	t.Helper()
	next, err := h.coordinator.Submit(context.Background(), mutation.Request{
		RecordID: record.ID, ExpectedVersion: record.Version, Actor: "alice",
		Changes: issue.Changes{Status: issue.To(status)},
	})
	if err != nil {
		t.Fatalf("Submit %s: %v", status, err)
	}
	return next
}

func (h *harness) assign(t *testing.T, record issue.Record, assignee issue.UserID) issue.Record {
	t.Helper()
	next, err := h.coordinator.Submit(context.Background(), mutation.Request{
		RecordID: record.ID, ExpectedVersion: record.Version, Actor: "alice",
		Changes: issue.Changes{Assignee: issue.To(&assignee)},
	})
	if err != nil {
		t.Fatalf("assign %s: %v", assignee, err)
	}
	return next
}

func TestResolutionReport(t *testing.T) {
	harnesses(t, func(t *testing.T, h *harness) {
		ctx := context.Background()

		empty, err := h.coordinator.Resolution(ctx)
		if err != nil {
			t.Fatalf("Resolution: %v", err)
		}
		if empty != (mutation.ResolutionReport{}) {
			t.Errorf("empty report = %+v", empty)
		}

		// Created at epoch; resolved after 2h and 5h. A third issue is
		// resolved then reopened and must not count. A fourth stays open.
		quick := h.create(t)
		slow := h.create(t)
		reopened := h.create(t)
		h.create(t)

		h.clock.Advance(2 * time.Hour)
		h.setStatus(t, quick, issue.StatusResolved)
		h.setStatus(t, h.setStatus(t, reopened, issue.StatusResolved), issue.StatusOpen)
		h.clock.Advance(3 * time.Hour)
		h.setStatus(t, slow, issue.StatusResolved)

		report, err := h.coordinator.Resolution(ctx)
		if err != nil {
			t.Fatalf("Resolution: %v", err)
		}
		if report.ResolvedIssues != 2 || report.AverageResolutionHours != 3.5 {
			t.Errorf("report = %+v, want 2 resolved averaging 3.5h", report)
		}
	})
}

func TestResolutionReportRounds(t *testing.T) {
	h := newMemoryHarness(t)
	record := h.create(t)
	h.clock.Advance(20 * time.Minute)
	h.setStatus(t, record, issue.StatusResolved)

	report, err := h.coordinator.Resolution(context.Background())
	if err != nil {
		t.Fatalf("Resolution: %v", err)
	}
	if report.AverageResolutionHours != 0.33 {
		t.Errorf("average = %v, want 0.33", report.AverageResolutionHours)
	}
}

func TestTopAssignees(t *testing.T) {
	harnesses(t, func(t *testing.T, h *harness) {
		ctx := context.Background()
		for _, assignee := range []issue.UserID{"carol", "bob", "carol", "alice", "bob", "carol"} {
			h.assign(t, h.create(t), assignee)
		}
		h.create(t)

		top, err := h.coordinator.TopAssignees(ctx, 0)
		if err != nil {
			t.Fatalf("TopAssignees: %v", err)
		}
		want := []mutation.AssigneeLoad{
			{Assignee: "carol", Issues: 3},
			{Assignee: "bob", Issues: 2},
			{Assignee: "alice", Issues: 1},
		}
		if len(top) != len(want) {
			t.Fatalf("TopAssignees = %+v, want %+v", top, want)
		}
		for i := range want {
			if top[i] != want[i] {
				t.Errorf("top[%d] = %+v, want %+v", i, top[i], want[i])
			}
		}

		limited, err := h.coordinator.TopAssignees(ctx, 2)
		if err != nil || len(limited) != 2 || limited[1].Assignee != "bob" {
			t.Errorf("TopAssignees(2) = %+v, %v", limited, err)
		}
	})
}

func TestTopAssigneesTiesAndLimits(t *testing.T) {
	h := newMemoryHarness(t)
	ctx := context.Background()
	for _, assignee := range []issue.UserID{"zed", "amy"} {
		h.assign(t, h.create(t), assignee)
	}
	top, err := h.coordinator.TopAssignees(ctx, 5)
	if err != nil {
		t.Fatalf("TopAssignees: %v", err)
	}
	if len(top) != 2 || top[0].Assignee != "amy" || top[1].Assignee != "zed" {
		t.Errorf("ties not broken by assignee: %+v", top)
	}

	for _, limit := range []int{-1, issue.MaxListLimit + 1} {
		if _, err := h.coordinator.TopAssignees(ctx, limit); !errors.Is(err, issue.ErrValidation) {
			t.Errorf("TopAssignees(%d) = %v, want ErrValidation", limit, err)
		}
	}
}

func TestReportsScanPastOnePage(t *testing.T) {
	h := newMemoryHarness(t)
	ctx := context.Background()
	total := issue.MaxListLimit + 5
	for range total {
		_, err := h.coordinator.Create(ctx, issue.Draft{
			Title: "Bulk", CreatedBy: "alice", Assignee: ptr(issue.UserID("dana")),
		})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	top, err := h.coordinator.TopAssignees(ctx, 1)
	if err != nil {
		t.Fatalf("TopAssignees: %v", err)
	}
	if len(top) != 1 || top[0].Issues != total {
		t.Errorf("TopAssignees = %+v, want dana with %d", top, total)
	}
}

func ptr[T any](value T) *T { return &value }
