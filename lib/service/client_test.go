// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/md-786910/heaven-assignment/lib/testutil"
)

func TestClientServiceError(t *testing.T) {
	socketPath := startTestServer(t)
	client := NewServiceClient(socketPath)

	err := client.Call(context.Background(), "stale", nil, nil)
	var serviceErr *ServiceError
	if !errors.As(err, &serviceErr) {
		t.Fatalf("error = %v, want *ServiceError", err)
	}
	if serviceErr.Action != "stale" || serviceErr.Category != "conflict" || serviceErr.Message != "stale" {
		t.Errorf("ServiceError = %+v", serviceErr)
	}

	var detail staleDetail
	found, err := serviceErr.DecodeData(&detail)
	if err != nil || !found {
		t.Fatalf("DecodeData: found=%v err=%v", found, err)
	}
	if detail.Current != 7 {
		t.Errorf("detail = %+v", detail)
	}
}

func TestClientNoDetail(t *testing.T) {
	socketPath := startTestServer(t)
	err := NewServiceClient(socketPath).Call(context.Background(), "broken", nil, nil)
	var serviceErr *ServiceError
	if !errors.As(err, &serviceErr) {
		t.Fatalf("error = %v, want *ServiceError", err)
	}
	var detail staleDetail
	if found, err := serviceErr.DecodeData(&detail); found || err != nil {
		t.Errorf("DecodeData on a bare failure: found=%v err=%v", found, err)
	}
}

func TestClientConnectionError(t *testing.T) {
	missing := filepath.Join(testutil.SocketDir(t), "absent.sock")
	err := NewServiceClient(missing).Call(context.Background(), "echo", nil, nil)
	if err == nil {
		t.Fatal("Call on a missing socket succeeded")
	}
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		t.Errorf("connection failure reported as *ServiceError: %v", err)
	}
}
