// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package auditlog

import (
	"context"
	"fmt"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/md-786910/heaven-assignment/lib/issue"
	"github.com/md-786910/heaven-assignment/lib/sqlitepool"
)

// Schema creates the change_events table. The primary key makes
// (record_id, sequence) unique, so two appends can never claim the
// same slot even if callers race.
const Schema = `
CREATE TABLE IF NOT EXISTS change_events (
	record_id INTEGER NOT NULL,
	sequence  INTEGER NOT NULL,
	version   INTEGER NOT NULL,
	field     TEXT    NOT NULL,
	old_value TEXT,
	new_value TEXT,
	actor     TEXT    NOT NULL,
	timestamp INTEGER NOT NULL,
	digest    TEXT    NOT NULL,
	PRIMARY KEY (record_id, sequence)
) WITHOUT ROWID;
`

// SQLiteLog is a Log backed by a sqlitepool.Pool opened with Schema.
// It does not own the pool.
type SQLiteLog struct {
	pool *sqlitepool.Pool
}

// NewSQLiteLog wraps pool.
func NewSQLiteLog(pool *sqlitepool.Pool) *SQLiteLog {
	return &SQLiteLog{pool: pool}
}

// Append reads the stream tail and inserts the sealed batch in one
// IMMEDIATE transaction.
func (l *SQLiteLog) Append(ctx context.Context, events []issue.ChangeEvent) ([]issue.ChangeEvent, error) {
	recordID, err := checkBatch(events)
	if err != nil {
		return nil, err
	}

	var sealed []issue.ChangeEvent
	err = l.pool.Write(ctx, func(conn *sqlite.Conn) error {
		var lastSequence uint64
		var lastDigest string
		err := sqlitex.Execute(conn, `SELECT sequence, digest FROM change_events
			WHERE record_id = ? ORDER BY sequence DESC LIMIT 1`, &sqlitex.ExecOptions{
			Args: []any{recordID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				lastSequence = uint64(stmt.ColumnInt64(0))
				lastDigest = stmt.ColumnText(1)
				return nil
			},
		})
		if err != nil {
			return err
		}

		sealed, err = seal(events, lastSequence, lastDigest)
		if err != nil {
			return err
		}
		for _, event := range sealed {
			err := sqlitex.Execute(conn, `INSERT INTO change_events
				(record_id, sequence, version, field, old_value, new_value, actor, timestamp, digest)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{
				Args: []any{
					event.RecordID,
					int64(event.Sequence),
					int64(event.Version),
					string(event.Field),
					nullableText(event.Old),
					nullableText(event.New),
					string(event.Actor),
					event.Timestamp.UnixNano(),
					event.Digest,
				},
			})
			if err != nil {
				return fmt.Errorf("inserting sequence %d: %w", event.Sequence, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("auditlog: append to record %d: %w", recordID, err)
	}
	return cloneEvents(sealed), nil
}

// Query selects the stream in sequence order.
func (l *SQLiteLog) Query(ctx context.Context, recordID int64) ([]issue.ChangeEvent, error) {
	events := []issue.ChangeEvent{}
	err := l.pool.Read(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `SELECT sequence, version, field, old_value, new_value, actor, timestamp, digest
			FROM change_events WHERE record_id = ? ORDER BY sequence`, &sqlitex.ExecOptions{
			Args: []any{recordID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				event := issue.ChangeEvent{
					RecordID:  recordID,
					Sequence:  uint64(stmt.ColumnInt64(0)),
					Version:   uint64(stmt.ColumnInt64(1)),
					Field:     issue.Field(stmt.ColumnText(2)),
					Actor:     issue.UserID(stmt.ColumnText(5)),
					Timestamp: time.Unix(0, stmt.ColumnInt64(6)).UTC(),
					Digest:    stmt.ColumnText(7),
				}
				if !stmt.ColumnIsNull(3) {
					old := stmt.ColumnText(3)
					event.Old = &old
				}
				if !stmt.ColumnIsNull(4) {
					value := stmt.ColumnText(4)
					event.New = &value
				}
				events = append(events, event)
				return nil
			},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("auditlog: query record %d: %w", recordID, err)
	}
	return events, nil
}

// Close is a no-op; the pool belongs to the caller.
func (l *SQLiteLog) Close() error { return nil }

func nullableText(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}
