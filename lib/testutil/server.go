// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"context"
	"os"
	"testing"
	"time"
)

// SocketDir creates a short directory under /tmp for Unix sockets.
// sun_path is limited to 108 bytes and t.TempDir() paths can exceed
// it. Removed when the test completes.
func SocketDir(t *testing.T) string {
	t.Helper()
	directory, err := os.MkdirTemp("/tmp", "tracker-test-*")
	if err != nil {
		t.Fatalf("creating socket directory: %v", err)
	}
	t.Cleanup(func() {
		_ = os.RemoveAll(directory)
	})
	return directory
}

// RunServer starts serve in a goroutine and waits for ready to close.
// At cleanup it cancels the server's context and fails the test if
// serve returns an error or does not return within five seconds.
//
//	server := service.NewSocketServer(path, nil, logger)
//	testutil.RunServer(t, server.Serve, server.Ready())
func RunServer(t *testing.T, serve func(ctx context.Context) error, ready <-chan struct{}) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx)
	}()

	select {
	case <-ready:
	case err := <-done:
		cancel()
		t.Fatalf("server exited before becoming ready: %v", err)
	case <-time.After(5 * time.Second): //nolint:realclock test hang prevention
		cancel()
		t.Fatalf("server not ready after 5s")
	}

	t.Cleanup(func() {
		cancel()
		if err := RequireReceive[error](t, done, 5*time.Second, "waiting for server shutdown"); err != nil {
			t.Errorf("server returned %v", err)
		}
	})
}
