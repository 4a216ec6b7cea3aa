// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mutation

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/md-786910/heaven-assignment/lib/issue"
)

// DefaultTopAssignees is the TopAssignees limit when none is given.
const DefaultTopAssignees = 10

// ResolutionReport summarizes how long resolved issues took.
type ResolutionReport struct {
	// ResolvedIssues counts records whose current status is resolved.
	ResolvedIssues int `json:"resolved_issues"`

	// AverageResolutionHours is the mean of resolved_at - created_at
	// over those records, rounded to two decimals. Zero when there
	// are none.
	AverageResolutionHours float64 `json:"average_resolution_hours"`
}

// AssigneeLoad is one row of the TopAssignees report.
type AssigneeLoad struct {
	Assignee issue.UserID `json:"assignee"`
	Issues   int          `json:"issues"`
}

// Resolution computes the ResolutionReport over the current records.
// A record that was resolved and later reopened is not counted.
func (c *Coordinator) Resolution(ctx context.Context) (ResolutionReport, error) {
	resolved := issue.StatusResolved
	var report ResolutionReport
	var total float64
	err := c.scan(ctx, issue.Filter{Status: &resolved}, func(record issue.Record) {
		if record.ResolvedAt == nil {
			return
		}
		report.ResolvedIssues++
		total += record.ResolvedAt.Sub(record.CreatedAt).Hours()
	})
	if err != nil {
		return ResolutionReport{}, err
	}
	if report.ResolvedIssues > 0 {
		report.AverageResolutionHours = math.Round(total/float64(report.ResolvedIssues)*100) / 100
	}
	return report, nil
}

// TopAssignees ranks assignees by the number of records currently
// assigned to them, most first, ties broken by assignee. Limit zero
// means DefaultTopAssignees.
func (c *Coordinator) TopAssignees(ctx context.Context, limit int) ([]AssigneeLoad, error) {
	switch {
	case limit < 0:
		return nil, &issue.ValidationError{Field: "limit", Reason: "must not be negative"}
	case limit == 0:
		limit = DefaultTopAssignees
	case limit > issue.MaxListLimit:
		return nil, &issue.ValidationError{Field: "limit", Reason: fmt.Sprintf("must be at most %d", issue.MaxListLimit)}
	}

	counts := make(map[issue.UserID]int)
	err := c.scan(ctx, issue.Filter{}, func(record issue.Record) {
		if record.Assignee != nil {
			counts[*record.Assignee]++
		}
	})
	if err != nil {
		return nil, err
	}

	loads := make([]AssigneeLoad, 0, len(counts))
	for assignee, issues := range counts {
		loads = append(loads, AssigneeLoad{Assignee: assignee, Issues: issues})
	}
	slices.SortFunc(loads, func(a, b AssigneeLoad) int {
		if byIssues := cmp.Compare(b.Issues, a.Issues); byIssues != 0 {
			return byIssues
		}
		return cmp.Compare(a.Assignee, b.Assignee)
	})
	if len(loads) > limit {
		loads = loads[:limit]
	}
	return loads, nil
}

// scan visits every record matching filter, one page at a time.
func (c *Coordinator) scan(ctx context.Context, filter issue.Filter, visit func(issue.Record)) error {
	filter.Limit = issue.MaxListLimit
	for {
		page, err := c.store.List(ctx, filter)
		if err != nil {
			return err
		}
		for _, record := range page {
			visit(record)
		}
		if len(page) < filter.Limit {
			return nil
		}
		filter.Skip += len(page)
	}
}
