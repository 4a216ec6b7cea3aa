// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package mutation is the single entry point for changing an issue.
//
// Submit runs one request through the commit pipeline:
//
//	Start -> VersionChecked -> Diffed -> Appended -> Committed
//	Start -> VersionChecked -> Rejected       (stale expected version)
//	Start -> Failed                            (not found, invalid, store error)
//
// The version check, field assignment, version bump, and diff all
// happen inside one recordstore CompareAndSwap. Events are appended to
// the audit log only after the swap commits. If the append fails the
// committed record stands and Submit returns *AuditWriteError.
//
// A per-record lane spans the swap and the append, so for any one
// record the audit log receives batches in version order. Requests
// for different records never share a lock.
package mutation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/md-786910/heaven-assignment/lib/auditlog"
	"github.com/md-786910/heaven-assignment/lib/changediff"
	"github.com/md-786910/heaven-assignment/lib/clock"
	"github.com/md-786910/heaven-assignment/lib/issue"
	"github.com/md-786910/heaven-assignment/lib/recordstore"
)

// Request is one proposed mutation. It is never persisted.
type Request struct {
	RecordID        int64
	ExpectedVersion uint64
	Changes         issue.Changes
	Actor           issue.UserID
}

// Config wires a Coordinator. Store and Log are required.
type Config struct {
	Store recordstore.Store
	Log   auditlog.Log

	// Clock stamps mutations. Nil means clock.Monotonic(clock.Real()).
	Clock clock.Clock

	// Logger receives one line per outcome. Nil discards.
	Logger *slog.Logger
}

// Coordinator owns the commit pipeline. Safe for concurrent use.
type Coordinator struct {
	store  recordstore.Store
	log    auditlog.Log
	clock  clock.Clock
	logger *slog.Logger
	lanes  lanes
}

// New validates cfg and returns a Coordinator.
func New(cfg Config) (*Coordinator, error) {
	if cfg.Store == nil {
		return nil, errors.New("mutation: Store is required")
	}
	if cfg.Log == nil {
		return nil, errors.New("mutation: Log is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Monotonic(clock.Real())
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Coordinator{
		store:  cfg.Store,
		log:    cfg.Log,
		clock:  cfg.Clock,
		logger: cfg.Logger,
	}, nil
}

// Submit applies request.Changes to the record if its stored version
// still equals request.ExpectedVersion.
//
// On success it returns the record as committed. A request whose
// values all equal the current ones returns the current record with
// its version unchanged and appends nothing.
//
// Errors: ErrNotFound; *ConflictError (ErrVersionConflict) with the
// current record; *issue.ValidationError for bad input; and
// *AuditWriteError (ErrAuditWriteFailed) when the record committed but
// its history did not.
func (c *Coordinator) Submit(ctx context.Context, request Request) (issue.Record, error) {
	logger := c.logger.With(
		"record_id", request.RecordID,
		"expected_version", request.ExpectedVersion,
		"actor", request.Actor,
	)
	stage := StageStart

	if err := validateRequest(request); err != nil {
		logger.Info("mutation rejected", "stage", StageFailed, "error", err)
		return issue.Record{}, err
	}

	release, err := c.lanes.acquire(ctx, request.RecordID)
	if err != nil {
		logger.Info("mutation abandoned", "stage", stage, "error", err)
		return issue.Record{}, err
	}
	defer release()

	now := c.clock.Now()
	var events []issue.ChangeEvent
	record, result, err := c.store.CompareAndSwap(ctx, request.RecordID, request.ExpectedVersion,
		func(current issue.Record) (issue.Record, bool, error) {
			stage = StageVersionChecked
			next, diffed, err := apply(current, request, now)
			if err != nil {
				return issue.Record{}, false, err
			}
			stage = StageDiffed
			events = diffed
			return next, len(diffed) > 0, nil
		})
	if err != nil {
		switch {
		case errors.Is(err, recordstore.ErrVersionConflict):
			stage = StageRejected
			var conflict *ConflictError
			if errors.As(err, &conflict) {
				logger = logger.With("current_version", conflict.Current.Version)
			}
			logger.Info("mutation rejected", "stage", stage, "error", err)
		case errors.Is(err, recordstore.ErrNotFound), errors.Is(err, issue.ErrValidation):
			stage = StageFailed
			logger.Info("mutation rejected", "stage", stage, "error", err)
		default:
			stage = StageFailed
			logger.Error("mutation failed", "stage", stage, "error", err)
		}
		return issue.Record{}, err
	}

	if result == recordstore.Unchanged {
		logger.Info("mutation was a no-op", "stage", stage, "version", record.Version)
		return record, nil
	}

	// Committed. From here on nothing undoes the record; an append
	// failure (including ctx cancellation) is reported, not reversed.
	if _, err := c.log.Append(ctx, events); err != nil {
		auditErr := &AuditWriteError{Record: record, Events: events, Err: err}
		logger.Error("audit append failed after commit",
			"stage", stage,
			"version", record.Version,
			"events", len(events),
			"error", err,
		)
		return record, auditErr
	}
	logger.Debug("audit events appended", "stage", StageAppended, "events", len(events))

	stage = StageCommitted
	logger.Info("mutation committed",
		"stage", stage,
		"version", record.Version,
		"events", len(events),
	)
	return record, nil
}

// apply computes the next record and its events. It is the pure body
// of the CompareAndSwap mutator.
func apply(current issue.Record, request Request, now time.Time) (issue.Record, []issue.ChangeEvent, error) {
	// Never stamp a mutation earlier than the state it replaces.
	at := now
	if at.Before(current.UpdatedAt) {
		at = current.UpdatedAt
	}

	events := changediff.Diff(current.ID, current.Fields, request.Changes, request.Actor, at)
	if len(events) == 0 {
		return current, nil, nil
	}

	next := current
	next.Fields = changediff.Apply(current.Fields, request.Changes)
	if err := next.Fields.Validate(); err != nil {
		return issue.Record{}, nil, err
	}
	next.UpdatedAt = at
	if next.Status == issue.StatusResolved && current.ResolvedAt == nil {
		resolvedAt := at
		next.ResolvedAt = &resolvedAt
	}

	version := current.Version + 1
	for i := range events {
		events[i].Version = version
	}
	return next, events, nil
}

func validateRequest(request Request) error {
	if request.Actor == "" {
		return &issue.ValidationError{Field: "actor", Reason: "is required"}
	}
	if request.ExpectedVersion < issue.InitialVersion {
		return &issue.ValidationError{Field: "expected_version", Reason: fmt.Sprintf("must be at least %d", issue.InitialVersion)}
	}
	return request.Changes.Validate()
}

// Create stores a new version-1 record. Creation appends no
// ChangeEvents; a record's history starts with its first mutation.
func (c *Coordinator) Create(ctx context.Context, draft issue.Draft) (issue.Record, error) {
	if err := draft.Validate(); err != nil {
		return issue.Record{}, err
	}
	record, err := c.store.Create(ctx, issue.NewRecord(draft, c.clock.Now()))
	if err != nil {
		c.logger.Error("issue create failed", "created_by", draft.CreatedBy, "error", err)
		return issue.Record{}, err
	}
	c.logger.Info("issue created", "record_id", record.ID, "created_by", record.CreatedBy)
	return record, nil
}

// Get returns the current record or ErrNotFound.
func (c *Coordinator) Get(ctx context.Context, id int64) (issue.Record, error) {
	record, found, err := c.store.Get(ctx, id)
	if err != nil {
		return issue.Record{}, err
	}
	if !found {
		return issue.Record{}, fmt.Errorf("record %d: %w", id, ErrNotFound)
	}
	return record, nil
}

// List returns records matching filter, in ID order.
func (c *Coordinator) List(ctx context.Context, filter issue.Filter) ([]issue.Record, error) {
	filter, err := filter.Normalize()
	if err != nil {
		return nil, err
	}
	return c.store.List(ctx, filter)
}

// History returns the record's ChangeEvents, oldest first. It reflects
// every append that completed before the call. A record that exists
// but was never mutated has an empty history; an unknown ID is
// ErrNotFound.
func (c *Coordinator) History(ctx context.Context, id int64) ([]issue.ChangeEvent, error) {
	if _, err := c.Get(ctx, id); err != nil {
		return nil, err
	}
	return c.log.Query(ctx, id)
}

// Verification summarizes a history integrity check.
type Verification struct {
	RecordID int64  `json:"record_id"`
	Events   int    `json:"events"`
	Version  uint64 `json:"version"`
	Intact   bool   `json:"intact"`
	Problem  string `json:"problem,omitempty"`
}

// VerifyHistory checks the record's hash chain and that the history
// accounts for every committed version from 2 through the record's
// current one. A version lost to an AuditWriteError shows up here as
// a gap. Verification problems are reported in the result, not as an
// error.
func (c *Coordinator) VerifyHistory(ctx context.Context, id int64) (Verification, error) {
	record, err := c.Get(ctx, id)
	if err != nil {
		return Verification{}, err
	}
	events, err := c.log.Query(ctx, id)
	if err != nil {
		return Verification{}, err
	}

	verification := Verification{RecordID: id, Events: len(events), Version: record.Version, Intact: true}
	err = auditlog.Verify(events)
	if err == nil {
		err = auditlog.VerifyCoverage(id, events, record.Version)
	}
	if err != nil {
		verification.Intact = false
		verification.Problem = err.Error()
		c.logger.Warn("history verification failed", "record_id", id, "problem", verification.Problem)
	}
	return verification, nil
}
