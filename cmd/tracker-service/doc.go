// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// tracker-service owns the issue records and their change history.
//
// Every mutation goes through one mutation.Coordinator, which checks
// the caller's expected version, applies the change, and appends a
// ChangeEvent per changed field. Two transports share the coordinator:
//
//   - A CBOR Unix socket (socket.path) with actions status, create,
//     show, list, update, history, and verify. trackerctl speaks this
//     protocol.
//   - A JSON HTTP API (http.address), see lib/httpapi.
//
// Failures carry a category (not_found, conflict, validation,
// audit_write_failed, internal). A conflict response includes the
// record as currently stored so the caller can re-base its edit.
//
// Storage is selected by store.backend: "memory" keeps everything in
// process and loses it on exit, "sqlite" keeps records and history in
// one database file so a record and its events share a disk.
//
// Configuration comes from --config or TRACKER_CONFIG; see lib/config.
package main
