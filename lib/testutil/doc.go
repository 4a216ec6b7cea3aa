// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds test helpers shared across packages.
//
// [RequireReceive], [RequireSend], and [RequireClosed] wrap the
// select-with-timeout pattern so tests never block forever on a
// channel. They are the only place tests wait on the wall clock.
//
// [SocketDir] returns a short /tmp directory for Unix sockets, and
// [RunServer] runs a Serve(ctx) loop for the duration of a test.
//
// [UniqueID] generates distinct identifiers (actors, titles) without
// reading the clock.
//
// All helpers fail the test with t.Fatalf rather than returning errors.
package testutil
