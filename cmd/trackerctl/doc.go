// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// trackerctl is the command-line client for tracker-service.
//
// It talks to the service over its Unix socket (--socket, default
// $TRACKER_SOCKET or ~/.cache/tracker/tracker.sock):
//
//	trackerctl create --title "Login broken" --priority high
//	trackerctl show 1
//	trackerctl list --status open --assignee bob
//	trackerctl update 1 --expected-version 1 --status in_progress --assignee bob
//	trackerctl update 1 --expected-version 2 --changes-file edit.jsonc
//	trackerctl history 1 --reverse
//	trackerctl verify 1
//
// update always names the version it was based on. If another writer
// committed first, trackerctl prints the issue as it now stands and
// exits with status 2; re-read it and resubmit. Exit status 3 means
// the update committed but its history entry could not be written.
package main
