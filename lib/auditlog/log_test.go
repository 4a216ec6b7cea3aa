// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package auditlog_test

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/md-786910/heaven-assignment/lib/auditlog"
	"github.com/md-786910/heaven-assignment/lib/issue"
	"github.com/md-786910/heaven-assignment/lib/sqlitepool"
)

var start = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func backends(t *testing.T, test func(t *testing.T, log auditlog.Log)) {
	t.Run("memory", func(t *testing.T) {
		test(t, auditlog.NewMemoryLog())
	})
	t.Run("sqlite", func(t *testing.T) {
		pool, err := sqlitepool.Open(sqlitepool.Config{
			Path:   filepath.Join(t.TempDir(), "audit.db"),
			Schema: auditlog.Schema,
		})
		if err != nil {
			t.Fatalf("sqlitepool.Open: %v", err)
		}
		t.Cleanup(func() { pool.Close() })
		test(t, auditlog.NewSQLiteLog(pool))
	})
}

func text(value string) *string { return &value }

// mutation builds the events of one committed mutation.
func mutation(recordID int64, version uint64, at time.Time, fields ...issue.Field) []issue.ChangeEvent {
	events := make([]issue.ChangeEvent, len(fields))
	for i, field := range fields {
		events[i] = issue.ChangeEvent{
			RecordID:  recordID,
			Version:   version,
			Field:     field,
			Old:       nil,
			New:       text(string(field) + "-v" + strconv.FormatUint(version, 10)),
			Actor:     "alice",
			Timestamp: at,
		}
	}
	return events
}

func mustAppend(t *testing.T, log auditlog.Log, events []issue.ChangeEvent) []issue.ChangeEvent {
	t.Helper()
	stored, err := log.Append(context.Background(), events)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	return stored
}

func mustQuery(t *testing.T, log auditlog.Log, recordID int64) []issue.ChangeEvent {
	t.Helper()
	events, err := log.Query(context.Background(), recordID)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	return events
}

func TestAppendAssignsDenseSequences(t *testing.T) {
	backends(t, func(t *testing.T, log auditlog.Log) {
		first := mustAppend(t, log, mutation(1, 2, start, issue.FieldTitle, issue.FieldStatus))
		second := mustAppend(t, log, mutation(1, 3, start.Add(time.Second), issue.FieldAssignee))

		if first[0].Sequence != 1 || first[1].Sequence != 2 || second[0].Sequence != 3 {
			t.Errorf("sequences = %d,%d,%d, want 1,2,3", first[0].Sequence, first[1].Sequence, second[0].Sequence)
		}
		for _, event := range append(first, second...) {
			if event.Digest == "" {
				t.Errorf("sequence %d has no digest", event.Sequence)
			}
		}

		events := mustQuery(t, log, 1)
		if len(events) != 3 {
			t.Fatalf("Query returned %d events, want 3", len(events))
		}
		if events[0].Old != nil {
			t.Errorf("nil old value came back as %q", *events[0].Old)
		}
		if err := auditlog.Verify(events); err != nil {
			t.Errorf("Verify: %v", err)
		}
	})
}

func TestQueryIsPrefixStable(t *testing.T) {
	backends(t, func(t *testing.T, log auditlog.Log) {
		var previous []issue.ChangeEvent
		for version := uint64(2); version <= 6; version++ {
			mustAppend(t, log, mutation(7, version, start.Add(time.Duration(version)*time.Second), issue.FieldPriority))
			current := mustQuery(t, log, 7)
			if len(current) != len(previous)+1 {
				t.Fatalf("after version %d: %d events, want %d", version, len(current), len(previous)+1)
			}
			for i := range previous {
				if current[i].Digest != previous[i].Digest || current[i].Sequence != previous[i].Sequence {
					t.Fatalf("after version %d: event %d changed", version, i)
				}
			}
			previous = current
		}
	})
}

func TestStreamsAreIndependent(t *testing.T) {
	backends(t, func(t *testing.T, log auditlog.Log) {
		mustAppend(t, log, mutation(1, 2, start, issue.FieldTitle))
		stored := mustAppend(t, log, mutation(2, 2, start, issue.FieldTitle))
		if stored[0].Sequence != 1 {
			t.Errorf("record 2 starts at sequence %d, want 1", stored[0].Sequence)
		}
		if events := mustQuery(t, log, 3); len(events) != 0 {
			t.Errorf("unknown record has %d events", len(events))
		}
	})
}

func TestAppendRejectsBadBatches(t *testing.T) {
	backends(t, func(t *testing.T, log auditlog.Log) {
		if _, err := log.Append(context.Background(), nil); !errors.Is(err, auditlog.ErrInvalidBatch) {
			t.Errorf("empty batch: %v, want ErrInvalidBatch", err)
		}
		mixed := append(mutation(1, 2, start, issue.FieldTitle), mutation(2, 2, start, issue.FieldTitle)...)
		if _, err := log.Append(context.Background(), mixed); !errors.Is(err, auditlog.ErrInvalidBatch) {
			t.Errorf("mixed batch: %v, want ErrInvalidBatch", err)
		}
	})
}

func TestAppendCancelledLeavesNoTrace(t *testing.T) {
	backends(t, func(t *testing.T, log auditlog.Log) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := log.Append(ctx, mutation(1, 2, start, issue.FieldTitle)); err == nil {
			t.Fatal("Append with a cancelled context succeeded")
		}
		if events := mustQuery(t, log, 1); len(events) != 0 {
			t.Errorf("cancelled append stored %d events", len(events))
		}
	})
}

func TestConcurrentAppendsStayDense(t *testing.T) {
	backends(t, func(t *testing.T, log auditlog.Log) {
		const appenders = 12
		var waitGroup sync.WaitGroup
		errs := make(chan error, appenders*2)
		for i := range appenders {
			for _, recordID := range []int64{1, 2} {
				waitGroup.Add(1)
				go func() {
					defer waitGroup.Done()
					_, err := log.Append(context.Background(),
						mutation(recordID, uint64(i)+2, start, issue.FieldTitle, issue.FieldStatus))
					errs <- err
				}()
			}
		}
		waitGroup.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Fatalf("Append: %v", err)
			}
		}

		for _, recordID := range []int64{1, 2} {
			events := mustQuery(t, log, recordID)
			if len(events) != appenders*2 {
				t.Fatalf("record %d: %d events, want %d", recordID, len(events), appenders*2)
			}
			for i, event := range events {
				if event.Sequence != uint64(i)+1 {
					t.Fatalf("record %d: events[%d].Sequence = %d", recordID, i, event.Sequence)
				}
			}
			// Batches are atomic: both events of a mutation are adjacent.
			for i := 0; i < len(events); i += 2 {
				if events[i].Version != events[i+1].Version {
					t.Errorf("record %d: batch split at sequence %d", recordID, events[i].Sequence)
				}
			}
		}
	})
}
