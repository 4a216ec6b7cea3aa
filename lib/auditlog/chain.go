// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package auditlog

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/md-786910/heaven-assignment/lib/codec"
	"github.com/md-786910/heaven-assignment/lib/issue"
)

// ErrChainBroken is matched by every *ChainError.
var ErrChainBroken = errors.New("audit chain broken")

// ChainError reports the first event at which Verify found the
// stream inconsistent.
type ChainError struct {
	RecordID int64
	Sequence uint64
	Reason   string
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("audit chain for record %d broken at sequence %d: %s", e.RecordID, e.Sequence, e.Reason)
}

func (e *ChainError) Is(target error) bool {
	return target == ErrChainBroken
}

// chainDomainKey separates audit chain digests from any other BLAKE3
// use. ASCII "tracker.audit.chain", zero-padded to 32 bytes. Changing
// it invalidates every stored digest.
var chainDomainKey = [32]byte{
	't', 'r', 'a', 'c', 'k', 'e', 'r', '.', 'a', 'u', 'd', 'i', 't', '.',
	'c', 'h', 'a', 'i', 'n', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// Link computes the digest of event chained to previous, the hex
// digest of the event before it ("" for the first event of a
// stream). The event's own Digest field is excluded from the input.
//
// The digest covers the canonical CBOR encoding of the event, so any
// change to record, sequence, version, field, values, actor, or
// timestamp changes it, as does reordering or removing an earlier
// event.
func Link(previous string, event issue.ChangeEvent) (string, error) {
	var previousHash [32]byte
	if previous != "" {
		decoded, err := hex.DecodeString(previous)
		if err != nil || len(decoded) != len(previousHash) {
			return "", fmt.Errorf("auditlog: malformed previous digest %q", previous)
		}
		copy(previousHash[:], decoded)
	}

	event.Digest = ""
	encoded, err := codec.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("auditlog: encoding event %d/%d: %w", event.RecordID, event.Sequence, err)
	}

	hasher, err := blake3.NewKeyed(chainDomainKey[:])
	if err != nil {
		panic("auditlog: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(previousHash[:])
	hasher.Write(encoded)
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Verify checks that events form one intact stream as returned by
// Query: a single record, sequences 1..n without gaps, versions and
// timestamps non-decreasing, and every digest matching its chain
// link. Returns nil for an empty stream.
func Verify(events []issue.ChangeEvent) error {
	if len(events) == 0 {
		return nil
	}
	recordID := events[0].RecordID
	previous := ""
	for i, event := range events {
		broken := func(reason string) error {
			return &ChainError{RecordID: recordID, Sequence: event.Sequence, Reason: reason}
		}
		if event.RecordID != recordID {
			return broken(fmt.Sprintf("event belongs to record %d", event.RecordID))
		}
		if want := uint64(i) + 1; event.Sequence != want {
			return broken(fmt.Sprintf("expected sequence %d", want))
		}
		if i > 0 {
			if event.Version < events[i-1].Version {
				return broken("version decreased")
			}
			if event.Timestamp.Before(events[i-1].Timestamp) {
				return broken("timestamp decreased")
			}
		}
		digest, err := Link(previous, event)
		if err != nil {
			return broken(err.Error())
		}
		if digest != event.Digest {
			return broken("digest mismatch")
		}
		previous = digest
	}
	return nil
}

// ErrHistoryIncomplete is matched by every *GapError.
var ErrHistoryIncomplete = errors.New("audit history incomplete")

// GapError reports a committed version with no events in the stream.
type GapError struct {
	RecordID int64

	// Version is the first version the stream does not account for.
	Version uint64

	Reason string
}

func (e *GapError) Error() string {
	return fmt.Sprintf("audit history for record %d incomplete at version %d: %s", e.RecordID, e.Version, e.Reason)
}

func (e *GapError) Is(target error) bool {
	return target == ErrHistoryIncomplete
}

// VerifyCoverage checks that events account for every committed
// version of a record now at version. Each committed mutation bumps
// the version by one and appends at least one event, so the event
// versions must run 2, 3, ... version with repeats only within a
// batch. A version-1 record must have no events.
//
// A batch that was never appended, or trailing events deleted outright,
// leave the hash chain intact. Only the version sequence shows them.
func VerifyCoverage(recordID int64, events []issue.ChangeEvent, version uint64) error {
	gap := func(at uint64, reason string) error {
		return &GapError{RecordID: recordID, Version: at, Reason: reason}
	}
	last := issue.InitialVersion
	for _, event := range events {
		switch {
		case event.Version == last && last != issue.InitialVersion:
		case event.Version == last+1:
			last = event.Version
		case event.Version > last+1:
			return gap(last+1, fmt.Sprintf("no events for version %d (next event is version %d)", last+1, event.Version))
		default:
			return gap(event.Version, fmt.Sprintf("event at sequence %d is out of version order", event.Sequence))
		}
	}
	if last > version {
		return gap(version+1, fmt.Sprintf("history reaches version %d beyond record version %d", last, version))
	}
	if last < version {
		return gap(last+1, fmt.Sprintf("history ends at version %d but record is at version %d", last, version))
	}
	return nil
}
