// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package service provides the server scaffolding the tracker service
// runs on: a CBOR request-response server on a Unix socket, its
// client, and a TCP HTTP server with the same lifecycle.
//
// The socket protocol is one request per connection. The client
// writes a CBOR map with an "action" key plus action-specific fields;
// the server answers with a Response envelope:
//
//	{ok: true, data: <cbor>}
//	{ok: false, error: "...", category: "conflict", data: <cbor>}
//
// Failure categories come from the server's ErrorClassifier, so a
// client can tell a version conflict from a missing record without
// parsing the message, and the detail in data (for a conflict, the
// current record) saves it a second round trip.
//
// Both servers block in Serve until their context is cancelled and
// expose a Ready channel that closes once they are listening.
package service
