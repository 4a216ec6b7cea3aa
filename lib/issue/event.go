// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package issue

import "time"

// ChangeEvent records one field changing in one committed mutation.
// Events are immutable once appended to the audit log.
type ChangeEvent struct {
	RecordID int64 `json:"record_id"`

	// Sequence is the event's position in the record's history,
	// starting at 1 with no gaps. Assigned by the audit log.
	Sequence uint64 `json:"sequence"`

	// Version is the record version the mutation committed. All
	// events of one mutation share it.
	Version uint64 `json:"version"`

	Field Field `json:"field"`

	// Old and New are nil when the field was unset on that side.
	Old *string `json:"old"`
	New *string `json:"new"`

	Actor     UserID    `json:"actor"`
	Timestamp time.Time `json:"timestamp"`

	// Digest chains this event to its predecessor. Hex-encoded,
	// assigned by the audit log.
	Digest string `json:"digest,omitempty"`
}
