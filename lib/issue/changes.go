// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package issue

import (
	"fmt"
	"sort"
)

// Patch is an optional assignment of one field. Set distinguishes
// "not mentioned in the request" from "assign the zero value": for a
// nullable field, Patch{Set: true, Value: nil} clears it.
type Patch[T any] struct {
	Set   bool
	Value T
}

// To returns a Patch that assigns value.
func To[T any](value T) Patch[T] {
	return Patch[T]{Set: true, Value: value}
}

// Changes is the closed set of field assignments a mutation may
// carry. Fields not Set are left untouched.
type Changes struct {
	Title       Patch[string]
	Description Patch[*string]
	Status      Patch[Status]
	Priority    Patch[Priority]
	Assignee    Patch[*UserID]
}

// IsEmpty reports whether no field is Set.
func (c Changes) IsEmpty() bool {
	return !c.Title.Set && !c.Description.Set && !c.Status.Set &&
		!c.Priority.Set && !c.Assignee.Set
}

// Validate checks every Set value against the field's constraints.
func (c Changes) Validate() error {
	if c.Title.Set {
		if err := validateTitle(c.Title.Value); err != nil {
			return err
		}
	}
	if c.Status.Set && !c.Status.Value.IsKnown() {
		return &ValidationError{Field: string(FieldStatus), Reason: fmt.Sprintf("unknown status %q", c.Status.Value)}
	}
	if c.Priority.Set && !c.Priority.Value.IsKnown() {
		return &ValidationError{Field: string(FieldPriority), Reason: fmt.Sprintf("unknown priority %q", c.Priority.Value)}
	}
	if c.Assignee.Set && c.Assignee.Value != nil && *c.Assignee.Value == "" {
		return &ValidationError{Field: string(FieldAssignee), Reason: "must be null or a non-empty user id"}
	}
	return nil
}

// Apply returns a copy of fields with every Set value assigned.
func (c Changes) Apply(fields Fields) Fields {
	next := fields.Clone()
	if c.Title.Set {
		next.Title = c.Title.Value
	}
	if c.Description.Set {
		next.Description = cloneString(c.Description.Value)
	}
	if c.Status.Set {
		next.Status = c.Status.Value
	}
	if c.Priority.Set {
		next.Priority = c.Priority.Value
	}
	if c.Assignee.Set {
		next.Assignee = cloneUserID(c.Assignee.Value)
	}
	return next
}

// Map renders the Set assignments as a field-name keyed map, the
// inverse of ParseChanges. Cleared nullable fields map to nil.
func (c Changes) Map() map[string]any {
	result := make(map[string]any)
	if c.Title.Set {
		result[string(FieldTitle)] = c.Title.Value
	}
	if c.Description.Set {
		result[string(FieldDescription)] = nullableString(c.Description.Value)
	}
	if c.Status.Set {
		result[string(FieldStatus)] = string(c.Status.Value)
	}
	if c.Priority.Set {
		result[string(FieldPriority)] = string(c.Priority.Value)
	}
	if c.Assignee.Set {
		if c.Assignee.Value == nil {
			result[string(FieldAssignee)] = nil
		} else {
			result[string(FieldAssignee)] = string(*c.Assignee.Value)
		}
	}
	return result
}

// ParseChanges converts a decoded request body into Changes. Values
// must be strings, or nil for the nullable fields (description,
// assignee). Unknown or immutable field names are rejected rather
// than ignored. The input may come from JSON or CBOR decoding.
func ParseChanges(raw map[string]any) (Changes, error) {
	var changes Changes

	// Sorted so the first reported error does not depend on map
	// iteration order.
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		field, err := ParseField(name)
		if err != nil {
			return Changes{}, err
		}
		value := raw[name]

		var text *string
		switch typed := value.(type) {
		case nil:
		case string:
			text = &typed
		default:
			return Changes{}, &ValidationError{Field: name, Reason: fmt.Sprintf("expected string or null, got %T", value)}
		}

		switch field {
		case FieldTitle:
			if text == nil {
				return Changes{}, &ValidationError{Field: name, Reason: "cannot be null"}
			}
			changes.Title = To(*text)
		case FieldDescription:
			changes.Description = To(text)
		case FieldStatus:
			if text == nil {
				return Changes{}, &ValidationError{Field: name, Reason: "cannot be null"}
			}
			status, err := ParseStatus(*text)
			if err != nil {
				return Changes{}, err
			}
			changes.Status = To(status)
		case FieldPriority:
			if text == nil {
				return Changes{}, &ValidationError{Field: name, Reason: "cannot be null"}
			}
			priority, err := ParsePriority(*text)
			if err != nil {
				return Changes{}, err
			}
			changes.Priority = To(priority)
		case FieldAssignee:
			if text == nil {
				changes.Assignee = To[*UserID](nil)
			} else {
				assignee := UserID(*text)
				changes.Assignee = To(&assignee)
			}
		}
	}

	if err := changes.Validate(); err != nil {
		return Changes{}, err
	}
	return changes, nil
}

// Value renders one field of f for the audit trail. Unset nullable
// fields render as nil, never as "".
func (f Fields) Value(field Field) *string {
	switch field {
	case FieldTitle:
		return cloneString(&f.Title)
	case FieldDescription:
		return cloneString(f.Description)
	case FieldStatus:
		value := string(f.Status)
		return &value
	case FieldPriority:
		value := string(f.Priority)
		return &value
	case FieldAssignee:
		if f.Assignee == nil {
			return nil
		}
		value := string(*f.Assignee)
		return &value
	}
	return nil
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneUserID(value *UserID) *UserID {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func nullableString(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}
