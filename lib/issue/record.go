// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package issue

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// InitialVersion is the version of a freshly created record. Every
// committed mutation increments it by exactly one.
const InitialVersion uint64 = 1

// MaxTitleLength is the maximum title length in characters.
const MaxTitleLength = 255

// Fields holds the mutable attributes of an issue.
type Fields struct {
	// Title is a short summary. Required, 1 to MaxTitleLength
	// characters.
	Title string `json:"title"`

	// Description is free text. Nil means no description was ever
	// given, which is distinct from an empty description.
	Description *string `json:"description"`

	Status   Status   `json:"status"`
	Priority Priority `json:"priority"`

	// Assignee references the user working the issue. Nil means
	// unassigned.
	Assignee *UserID `json:"assignee"`
}

// Clone returns a deep copy of f. Pointer fields are copied so the
// result shares no memory with f.
func (f Fields) Clone() Fields {
	clone := f
	if f.Description != nil {
		description := *f.Description
		clone.Description = &description
	}
	if f.Assignee != nil {
		assignee := *f.Assignee
		clone.Assignee = &assignee
	}
	return clone
}

// Validate checks every field against its constraints.
func (f Fields) Validate() error {
	if err := validateTitle(f.Title); err != nil {
		return err
	}
	if !f.Status.IsKnown() {
		return &ValidationError{Field: string(FieldStatus), Reason: fmt.Sprintf("unknown status %q", f.Status)}
	}
	if !f.Priority.IsKnown() {
		return &ValidationError{Field: string(FieldPriority), Reason: fmt.Sprintf("unknown priority %q", f.Priority)}
	}
	if f.Assignee != nil && *f.Assignee == "" {
		return &ValidationError{Field: string(FieldAssignee), Reason: "must be null or a non-empty user id"}
	}
	return nil
}

func validateTitle(title string) error {
	length := utf8.RuneCountInString(title)
	if length == 0 {
		return &ValidationError{Field: string(FieldTitle), Reason: "is required"}
	}
	if length > MaxTitleLength {
		return &ValidationError{Field: string(FieldTitle), Reason: fmt.Sprintf("exceeds %d characters", MaxTitleLength)}
	}
	return nil
}

// Record is the current state of one issue.
type Record struct {
	// ID is assigned by the store at creation and never changes.
	ID int64 `json:"id"`

	Fields

	// CreatedBy is the actor that created the issue. Immutable.
	CreatedBy UserID `json:"created_by"`

	// CreatedAt is the creation time. Immutable.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the time of the last committed mutation, or
	// CreatedAt if the record has never been mutated.
	UpdatedAt time.Time `json:"updated_at"`

	// ResolvedAt is set the first time the status becomes
	// "resolved" and is never cleared afterwards.
	ResolvedAt *time.Time `json:"resolved_at"`

	// Version starts at InitialVersion and increases by exactly one
	// per committed mutation.
	Version uint64 `json:"version"`
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	clone := r
	clone.Fields = r.Fields.Clone()
	if r.ResolvedAt != nil {
		resolvedAt := *r.ResolvedAt
		clone.ResolvedAt = &resolvedAt
	}
	return clone
}

// Draft is the input for creating an issue. Zero-valued Status and
// Priority take the defaults "open" and "medium".
type Draft struct {
	Title       string   `json:"title"`
	Description *string  `json:"description,omitempty"`
	Status      Status   `json:"status,omitempty"`
	Priority    Priority `json:"priority,omitempty"`
	Assignee    *UserID  `json:"assignee,omitempty"`
	CreatedBy   UserID   `json:"created_by"`
}

// Fields returns the draft's initial field values with defaults
// applied.
func (d Draft) Fields() Fields {
	fields := Fields{
		Title:       d.Title,
		Description: d.Description,
		Status:      d.Status,
		Priority:    d.Priority,
		Assignee:    d.Assignee,
	}
	if fields.Status == "" {
		fields.Status = StatusOpen
	}
	if fields.Priority == "" {
		fields.Priority = PriorityMedium
	}
	return fields.Clone()
}

// Validate checks the draft, including the defaults it would take.
func (d Draft) Validate() error {
	if d.CreatedBy == "" {
		return &ValidationError{Field: "created_by", Reason: "is required"}
	}
	return d.Fields().Validate()
}

// NewRecord builds the version-1 record for a validated draft. The
// store assigns the ID.
func NewRecord(draft Draft, at time.Time) Record {
	record := Record{
		Fields:    draft.Fields(),
		CreatedBy: draft.CreatedBy,
		CreatedAt: at,
		UpdatedAt: at,
		Version:   InitialVersion,
	}
	if record.Status == StatusResolved {
		resolvedAt := at
		record.ResolvedAt = &resolvedAt
	}
	return record
}

// DefaultListLimit is the page size when Filter.Limit is zero.
const DefaultListLimit = 100

// MaxListLimit caps Filter.Limit.
const MaxListLimit = 1000

// Filter selects records for listing. Nil criteria match everything.
type Filter struct {
	Status    *Status
	Assignee  *UserID
	CreatedBy *UserID

	// Skip is the number of matching records to skip, in ID order.
	Skip int

	// Limit is the maximum number of records returned. Zero means
	// DefaultListLimit.
	Limit int
}

// Normalize validates the filter and applies the default limit.
func (f Filter) Normalize() (Filter, error) {
	if f.Status != nil && !f.Status.IsKnown() {
		return Filter{}, &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", *f.Status)}
	}
	if f.Skip < 0 {
		return Filter{}, &ValidationError{Field: "skip", Reason: "must not be negative"}
	}
	switch {
	case f.Limit < 0:
		return Filter{}, &ValidationError{Field: "limit", Reason: "must not be negative"}
	case f.Limit == 0:
		f.Limit = DefaultListLimit
	case f.Limit > MaxListLimit:
		f.Limit = MaxListLimit
	}
	return f, nil
}

// Matches reports whether r satisfies the filter's criteria. Skip and
// Limit are applied by the caller.
func (f Filter) Matches(r Record) bool {
	if f.Status != nil && r.Status != *f.Status {
		return false
	}
	if f.CreatedBy != nil && r.CreatedBy != *f.CreatedBy {
		return false
	}
	if f.Assignee != nil {
		if r.Assignee == nil || *r.Assignee != *f.Assignee {
			return false
		}
	}
	return true
}
