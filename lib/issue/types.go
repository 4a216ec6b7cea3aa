// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package issue

import "fmt"

// UserID is an opaque, already-authenticated actor identity. The
// pipeline never interprets it beyond identity comparison.
type UserID string

// Status is the lifecycle state of an issue. Any status may move to
// any other status; there is no enforced workflow.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

// Statuses lists every valid status in display order.
var Statuses = []Status{StatusOpen, StatusInProgress, StatusResolved, StatusClosed}

// IsKnown reports whether s is one of the defined statuses.
func (s Status) IsKnown() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// ParseStatus converts caller input to a Status.
func ParseStatus(value string) (Status, error) {
	status := Status(value)
	if !status.IsKnown() {
		return "", &ValidationError{Field: string(FieldStatus), Reason: fmt.Sprintf("unknown status %q (valid: %v)", value, Statuses)}
	}
	return status, nil
}

// Priority ranks issues for triage.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Priorities lists every valid priority from lowest to highest.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

// IsKnown reports whether p is one of the defined priorities.
func (p Priority) IsKnown() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// ParsePriority converts caller input to a Priority.
func ParsePriority(value string) (Priority, error) {
	priority := Priority(value)
	if !priority.IsKnown() {
		return "", &ValidationError{Field: string(FieldPriority), Reason: fmt.Sprintf("unknown priority %q (valid: %v)", value, Priorities)}
	}
	return priority, nil
}

// Field names one mutable attribute of an issue.
type Field string

const (
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
	FieldStatus      Field = "status"
	FieldPriority    Field = "priority"
	FieldAssignee    Field = "assignee"
)

// FieldOrder is the fixed order in which fields are diffed and in
// which their ChangeEvents appear within one mutation. It does not
// depend on the order of keys in the caller's request.
var FieldOrder = []Field{FieldTitle, FieldDescription, FieldStatus, FieldPriority, FieldAssignee}

// immutableFields are attribute names callers may see on a Record but
// may never assign through Changes.
var immutableFields = map[string]struct{}{
	"id":          {},
	"version":     {},
	"created_by":  {},
	"created_at":  {},
	"updated_at":  {},
	"resolved_at": {},
}

// ParseField converts a caller-supplied field name to a Field.
func ParseField(name string) (Field, error) {
	for _, field := range FieldOrder {
		if string(field) == name {
			return field, nil
		}
	}
	if _, immutable := immutableFields[name]; immutable {
		return "", &ValidationError{Field: name, Reason: "field is immutable"}
	}
	return "", &ValidationError{Field: name, Reason: "unknown field"}
}
