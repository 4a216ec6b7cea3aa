// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool is the shared SQLite connection pool behind the
// durable record store and audit log.
//
// It wraps zombiezen.com/go/sqlite's sqlitex.Pool and gives every
// connection the same pragmas: WAL journaling so readers never block
// the writer, synchronous=NORMAL, a five second busy timeout, and an
// in-memory temp store. A Config.Schema script is applied to each
// connection as it is prepared, so callers never see a connection
// without their tables.
//
// Callers either Take/Put connections directly or use the Read and
// Write helpers. Write wraps its callback in BEGIN IMMEDIATE, which is
// what compare-and-swap updates need: the version read and the
// conditional update happen under one write lock.
//
//	pool, err := sqlitepool.Open(sqlitepool.Config{
//	    Path:   "/var/lib/tracker/tracker.db",
//	    Logger: logger,
//	    Schema: schema,
//	})
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	err = pool.Write(ctx, func(conn *sqlite.Conn) error {
//	    return sqlitex.Execute(conn, "UPDATE ...", &sqlitex.ExecOptions{Args: args})
//	})
package sqlitepool
