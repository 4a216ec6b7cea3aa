// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mutation

import (
	"context"
	"fmt"

	"github.com/md-786910/heaven-assignment/lib/issue"
)

// MaxBulkItems caps the number of records in one BulkStatusRequest.
const MaxBulkItems = issue.MaxListLimit

// BulkItem names one record and the version the caller last saw.
type BulkItem struct {
	RecordID        int64  `json:"id"`
	ExpectedVersion uint64 `json:"expected_version"`
}

// BulkStatusRequest moves several records to one status.
type BulkStatusRequest struct {
	Items  []BulkItem
	Status issue.Status
	Actor  issue.UserID
}

// Outcome is the result of one item of a bulk request. Failures use
// the same names as Category.
type Outcome string

const (
	OutcomeCommitted Outcome = "committed"

	// OutcomeUnchanged: the record already had the requested status.
	OutcomeUnchanged Outcome = "unchanged"

	OutcomeConflict         = Outcome(CategoryConflict)
	OutcomeNotFound         = Outcome(CategoryNotFound)
	OutcomeValidation       = Outcome(CategoryValidation)
	OutcomeAuditWriteFailed = Outcome(CategoryAuditWriteFailed)
	OutcomeInternal         = Outcome(CategoryInternal)
)

// BulkResult reports what happened to one item.
type BulkResult struct {
	RecordID int64   `json:"id"`
	Outcome  Outcome `json:"outcome"`

	// Record is the committed record, or the current one on conflict.
	// Nil for not_found and internal failures.
	Record *issue.Record `json:"record,omitempty"`

	Error string `json:"error,omitempty"`
}

// BulkStatusUpdate submits one status change per item, each checked
// against that item's expected version. Items succeed or fail on
// their own: a conflict on one record does not hold back the others,
// and nothing committed is undone. Results are in request order.
//
// The returned error covers only a malformed request (no items, too
// many, duplicate IDs, bad status, missing actor); per-item failures
// are reported in the results.
func (c *Coordinator) BulkStatusUpdate(ctx context.Context, request BulkStatusRequest) ([]BulkResult, error) {
	if err := validateBulk(request); err != nil {
		c.logger.Info("bulk status update rejected", "actor", request.Actor, "error", err)
		return nil, err
	}

	results := make([]BulkResult, len(request.Items))
	counts := make(map[Outcome]int)
	for i, item := range request.Items {
		record, err := c.Submit(ctx, Request{
			RecordID:        item.RecordID,
			ExpectedVersion: item.ExpectedVersion,
			Changes:         issue.Changes{Status: issue.To(request.Status)},
			Actor:           request.Actor,
		})
		results[i] = bulkResult(item, record, err)
		counts[results[i].Outcome]++
	}

	c.logger.Info("bulk status update finished",
		"actor", request.Actor,
		"status", request.Status,
		"items", len(request.Items),
		"committed", counts[OutcomeCommitted],
		"unchanged", counts[OutcomeUnchanged],
		"conflicts", counts[OutcomeConflict],
		"not_found", counts[OutcomeNotFound],
	)
	return results, nil
}

func bulkResult(item BulkItem, record issue.Record, err error) BulkResult {
	result := BulkResult{RecordID: item.RecordID}
	if err == nil {
		result.Outcome = OutcomeCommitted
		if record.Version == item.ExpectedVersion {
			result.Outcome = OutcomeUnchanged
		}
		result.Record = &record
		return result
	}

	result.Outcome = Outcome(Classify(err))
	result.Error = err.Error()
	if detail, ok := Detail(err).(issue.Record); ok {
		result.Record = &detail
	}
	if result.Outcome == OutcomeInternal {
		result.Error = "internal error"
	}
	return result
}

func validateBulk(request BulkStatusRequest) error {
	if len(request.Items) == 0 {
		return &issue.ValidationError{Field: "items", Reason: "at least one record is required"}
	}
	if len(request.Items) > MaxBulkItems {
		return &issue.ValidationError{Field: "items", Reason: fmt.Sprintf("at most %d records per request", MaxBulkItems)}
	}
	if request.Actor == "" {
		return &issue.ValidationError{Field: "actor", Reason: "is required"}
	}
	if !request.Status.IsKnown() {
		return &issue.ValidationError{Field: string(issue.FieldStatus), Reason: fmt.Sprintf("unknown status %q", request.Status)}
	}
	seen := make(map[int64]struct{}, len(request.Items))
	for _, item := range request.Items {
		if _, duplicate := seen[item.RecordID]; duplicate {
			return &issue.ValidationError{Field: "items", Reason: fmt.Sprintf("record %d listed more than once", item.RecordID)}
		}
		seen[item.RecordID] = struct{}{}
	}
	return nil
}
