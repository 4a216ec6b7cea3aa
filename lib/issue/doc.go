// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package issue defines the record types shared by the mutation
// pipeline: the versioned issue Record, the closed set of mutable
// Fields, the typed partial update (Changes), and the ChangeEvent
// that the audit log stores.
//
// Field names form a closed set. Transports decode caller input into
// a generic map and hand it to ParseChanges, which rejects unknown or
// immutable field names with a *ValidationError instead of silently
// dropping them.
//
// Nullable fields (description, assignee) are pointers. A nil pointer
// is "unset", which is distinct from the empty string everywhere:
// in Fields, in Changes, and in ChangeEvent old/new values.
package issue
