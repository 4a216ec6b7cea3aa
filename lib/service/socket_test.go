// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/md-786910/heaven-assignment/lib/codec"
	"github.com/md-786910/heaven-assignment/lib/testutil"
)

// sendRequest writes one raw CBOR request and decodes the response
// envelope.
func sendRequest(t *testing.T, socketPath string, request any) Response {
	t.Helper()

	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		t.Fatalf("connecting to socket: %v", err)
	}
	defer conn.Close()

	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		t.Fatalf("writing request: %v", err)
	}
	if unixConn, ok := conn.(*net.UnixConn); ok {
		unixConn.CloseWrite()
	}

	var response Response
	if err := codec.NewDecoder(conn).Decode(&response); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return response
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var errStale = errors.New("stale")

type staleDetail struct {
	Current int `cbor:"current"`
}

func classifyTestError(err error) (string, any) {
	if errors.Is(err, errStale) {
		return "conflict", staleDetail{Current: 7}
	}
	return "internal", nil
}

// startTestServer runs a server with "echo", "empty", and "stale"
// actions and returns its socket path.
func startTestServer(t *testing.T) string {
	t.Helper()
	socketPath := filepath.Join(testutil.SocketDir(t), "tracker.sock")
	server := NewSocketServer(socketPath, classifyTestError, testLogger())

	server.Handle("echo", func(ctx context.Context, raw []byte) (any, error) {
		var request struct {
			Message string `cbor:"message"`
		}
		if err := codec.Unmarshal(raw, &request); err != nil {
			return nil, err
		}
		return map[string]string{"message": request.Message}, nil
	})
	server.Handle("empty", func(ctx context.Context, raw []byte) (any, error) {
		return nil, nil
	})
	server.Handle("stale", func(ctx context.Context, raw []byte) (any, error) {
		return nil, errStale
	})
	server.Handle("broken", func(ctx context.Context, raw []byte) (any, error) {
		return nil, errors.New("broken")
	})

	testutil.RunServer(t, server.Serve, server.Ready())
	return socketPath
}

func TestSocketServerSuccess(t *testing.T) {
	socketPath := startTestServer(t)

	response := sendRequest(t, socketPath, map[string]any{"action": "echo", "message": "hello"})
	if !response.OK {
		t.Fatalf("echo failed: %s", response.Error)
	}
	var data map[string]string
	if err := codec.Unmarshal(response.Data, &data); err != nil {
		t.Fatalf("decoding data: %v", err)
	}
	if data["message"] != "hello" {
		t.Errorf("message = %q, want hello", data["message"])
	}

	response = sendRequest(t, socketPath, map[string]any{"action": "empty"})
	if !response.OK || len(response.Data) != 0 {
		t.Errorf("empty response = %+v", response)
	}
}

func TestSocketServerFailureCategories(t *testing.T) {
	socketPath := startTestServer(t)

	response := sendRequest(t, socketPath, map[string]any{"action": "stale"})
	if response.OK || response.Category != "conflict" || response.Error != "stale" {
		t.Fatalf("stale response = %+v", response)
	}
	var detail staleDetail
	if err := codec.Unmarshal(response.Data, &detail); err != nil {
		t.Fatalf("decoding detail: %v", err)
	}
	if detail.Current != 7 {
		t.Errorf("detail = %+v", detail)
	}

	response = sendRequest(t, socketPath, map[string]any{"action": "broken"})
	if response.OK || response.Category != "internal" || len(response.Data) != 0 {
		t.Errorf("broken response = %+v", response)
	}
}

func TestSocketServerRejectsMalformedRequests(t *testing.T) {
	socketPath := startTestServer(t)

	tests := []struct {
		name    string
		request any
	}{
		{"missing action", map[string]any{"message": "hi"}},
		{"unknown action", map[string]any{"action": "launch"}},
		{"not a map", "just a string"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			response := sendRequest(t, socketPath, test.request)
			if response.OK {
				t.Fatal("malformed request succeeded")
			}
			if response.Category != "validation" {
				t.Errorf("category = %q, want validation", response.Category)
			}
		})
	}
}

func TestSocketServerConcurrentRequests(t *testing.T) {
	socketPath := startTestServer(t)
	client := NewServiceClient(socketPath)

	const callers = 16
	var waitGroup sync.WaitGroup
	errs := make(chan error, callers)
	for range callers {
		waitGroup.Add(1)
		go func() {
			defer waitGroup.Done()
			message := testutil.UniqueID("caller")
			var result map[string]string
			if err := client.Call(context.Background(), "echo", map[string]any{"message": message}, &result); err != nil {
				errs <- err
				return
			}
			if result["message"] != message {
				errs <- errors.New("echo mismatch: " + result["message"])
			}
		}()
	}
	waitGroup.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestSocketServerDuplicateHandlerPanics(t *testing.T) {
	server := NewSocketServer(filepath.Join(t.TempDir(), "dup.sock"), nil, nil)
	server.Handle("echo", func(context.Context, []byte) (any, error) { return nil, nil })
	defer func() {
		if recover() == nil {
			t.Error("duplicate Handle did not panic")
		}
	}()
	server.Handle("echo", func(context.Context, []byte) (any, error) { return nil, nil })
}
