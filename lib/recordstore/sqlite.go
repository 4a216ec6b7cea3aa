// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package recordstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/md-786910/heaven-assignment/lib/issue"
	"github.com/md-786910/heaven-assignment/lib/sqlitepool"
)

// Schema creates the issues table. Pass it (alongside any other
// component schemas sharing the database) as sqlitepool.Config.Schema.
// Timestamps are Unix nanoseconds in UTC.
const Schema = `
CREATE TABLE IF NOT EXISTS issues (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	title       TEXT    NOT NULL,
	description TEXT,
	status      TEXT    NOT NULL,
	priority    TEXT    NOT NULL,
	assignee    TEXT,
	created_by  TEXT    NOT NULL,
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL,
	resolved_at INTEGER,
	version     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS issues_status ON issues (status);
CREATE INDEX IF NOT EXISTS issues_assignee ON issues (assignee);
CREATE INDEX IF NOT EXISTS issues_created_by ON issues (created_by);
`

const recordColumns = `id, title, description, status, priority, assignee,
	created_by, created_at, updated_at, resolved_at, version`

// SQLiteStore is a Store backed by a sqlitepool.Pool. The pool must
// have been opened with Schema applied. SQLiteStore does not own the
// pool; Close is a no-op and the caller closes the pool.
type SQLiteStore struct {
	pool *sqlitepool.Pool
}

// NewSQLiteStore wraps pool.
func NewSQLiteStore(pool *sqlitepool.Pool) *SQLiteStore {
	return &SQLiteStore{pool: pool}
}

// Create inserts record and returns it with the assigned ID.
func (s *SQLiteStore) Create(ctx context.Context, record issue.Record) (issue.Record, error) {
	if record.Version != issue.InitialVersion {
		return issue.Record{}, fmt.Errorf("recordstore: new record has version %d, want %d", record.Version, issue.InitialVersion)
	}
	record = record.Clone()
	err := s.pool.Write(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn, `INSERT INTO issues
			(title, description, status, priority, assignee,
			 created_by, created_at, updated_at, resolved_at, version)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{
			Args: []any{
				record.Title,
				nullableText(record.Description),
				string(record.Status),
				string(record.Priority),
				nullableUser(record.Assignee),
				string(record.CreatedBy),
				record.CreatedAt.UnixNano(),
				record.UpdatedAt.UnixNano(),
				nullableTime(record.ResolvedAt),
				int64(record.Version),
			},
		})
		if err != nil {
			return err
		}
		record.ID = conn.LastInsertRowID()
		return nil
	})
	if err != nil {
		return issue.Record{}, fmt.Errorf("recordstore: insert: %w", err)
	}
	return record, nil
}

// Get reads one record.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (issue.Record, bool, error) {
	var record issue.Record
	var found bool
	err := s.pool.Read(ctx, func(conn *sqlite.Conn) error {
		var err error
		record, found, err = selectRecord(conn, id)
		return err
	})
	if err != nil {
		return issue.Record{}, false, fmt.Errorf("recordstore: get %d: %w", id, err)
	}
	return record, found, nil
}

// List runs one filtered, paged query ordered by id.
func (s *SQLiteStore) List(ctx context.Context, filter issue.Filter) ([]issue.Record, error) {
	var conditions []string
	var args []any
	if filter.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.Assignee != nil {
		conditions = append(conditions, "assignee = ?")
		args = append(args, string(*filter.Assignee))
	}
	if filter.CreatedBy != nil {
		conditions = append(conditions, "created_by = ?")
		args = append(args, string(*filter.CreatedBy))
	}

	query := "SELECT " + recordColumns + " FROM issues"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id LIMIT ? OFFSET ?"
	limit := filter.Limit
	if limit <= 0 {
		limit = -1
	}
	args = append(args, limit, filter.Skip)

	records := []issue.Record{}
	err := s.pool.Read(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
			Args: args,
			ResultFunc: func(stmt *sqlite.Stmt) error {
				records = append(records, scanRecord(stmt))
				return nil
			},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("recordstore: list: %w", err)
	}
	return records, nil
}

// CompareAndSwap reads the row, runs fn, and issues the conditional
// UPDATE inside one IMMEDIATE transaction. The UPDATE still carries
// "AND version = ?" so a row that moved underneath is never
// overwritten.
func (s *SQLiteStore) CompareAndSwap(ctx context.Context, id int64, expected uint64, fn Mutator) (issue.Record, CommitResult, error) {
	var stored issue.Record
	var result CommitResult
	err := s.pool.Write(ctx, func(conn *sqlite.Conn) error {
		current, found, err := selectRecord(conn, id)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("record %d: %w", id, ErrNotFound)
		}

		next, swapResult, err := swap(current, expected, fn)
		if err != nil {
			return err
		}
		if swapResult == Unchanged {
			stored, result = next, Unchanged
			return nil
		}

		err = sqlitex.Execute(conn, `UPDATE issues SET
			title = ?, description = ?, status = ?, priority = ?, assignee = ?,
			updated_at = ?, resolved_at = ?, version = ?
			WHERE id = ? AND version = ?`, &sqlitex.ExecOptions{
			Args: []any{
				next.Title,
				nullableText(next.Description),
				string(next.Status),
				string(next.Priority),
				nullableUser(next.Assignee),
				next.UpdatedAt.UnixNano(),
				nullableTime(next.ResolvedAt),
				int64(next.Version),
				id,
				int64(expected),
			},
		})
		if err != nil {
			return err
		}
		if conn.Changes() != 1 {
			return &ConflictError{Expected: expected, Current: current}
		}
		stored, result = next, Committed
		return nil
	})
	if err != nil {
		return issue.Record{}, Unchanged, fmt.Errorf("recordstore: compare-and-swap %d: %w", id, err)
	}
	return stored, result, nil
}

// Close is a no-op; the pool belongs to the caller.
func (s *SQLiteStore) Close() error { return nil }

func selectRecord(conn *sqlite.Conn, id int64) (issue.Record, bool, error) {
	var record issue.Record
	var found bool
	err := sqlitex.Execute(conn, "SELECT "+recordColumns+" FROM issues WHERE id = ?", &sqlitex.ExecOptions{
		Args: []any{id},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			record = scanRecord(stmt)
			found = true
			return nil
		},
	})
	return record, found, err
}

// scanRecord reads a row selected with recordColumns.
func scanRecord(stmt *sqlite.Stmt) issue.Record {
	record := issue.Record{
		ID: stmt.ColumnInt64(0),
		Fields: issue.Fields{
			Title:    stmt.ColumnText(1),
			Status:   issue.Status(stmt.ColumnText(3)),
			Priority: issue.Priority(stmt.ColumnText(4)),
		},
		CreatedBy: issue.UserID(stmt.ColumnText(6)),
		CreatedAt: fromNanos(stmt.ColumnInt64(7)),
		UpdatedAt: fromNanos(stmt.ColumnInt64(8)),
		Version:   uint64(stmt.ColumnInt64(10)),
	}
	if !stmt.ColumnIsNull(2) {
		description := stmt.ColumnText(2)
		record.Description = &description
	}
	if !stmt.ColumnIsNull(5) {
		assignee := issue.UserID(stmt.ColumnText(5))
		record.Assignee = &assignee
	}
	if !stmt.ColumnIsNull(9) {
		resolvedAt := fromNanos(stmt.ColumnInt64(9))
		record.ResolvedAt = &resolvedAt
	}
	return record
}

func fromNanos(nanos int64) time.Time {
	return time.Unix(0, nanos).UTC()
}

func nullableText(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableUser(value *issue.UserID) any {
	if value == nil {
		return nil
	}
	return string(*value)
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UnixNano()
}
