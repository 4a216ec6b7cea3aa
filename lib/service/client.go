// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/md-786910/heaven-assignment/lib/codec"
)

const (
	dialTimeout = 5 * time.Second

	// responseReadTimeout covers the server's read and write timeouts
	// plus handler time.
	responseReadTimeout = 45 * time.Second

	maxResponseSize = 1024 * 1024
)

// ServiceError is returned by Call when the server answers ok=false.
type ServiceError struct {
	Action   string
	Category string
	Message  string

	// Data is the failure detail, if the server sent one. Decode it
	// with DecodeData.
	Data codec.RawMessage
}

func (e *ServiceError) Error() string {
	if e.Category == "" {
		return fmt.Sprintf("%s: %s", e.Action, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Action, e.Message, e.Category)
}

// DecodeData decodes the failure detail into target. Returns false if
// the server sent none.
func (e *ServiceError) DecodeData(target any) (bool, error) {
	if len(e.Data) == 0 {
		return false, nil
	}
	if err := codec.Unmarshal(e.Data, target); err != nil {
		return false, fmt.Errorf("decoding %s failure detail: %w", e.Action, err)
	}
	return true, nil
}

// ServiceClient sends requests to a SocketServer. Each Call uses a
// fresh connection.
type ServiceClient struct {
	socketPath string
}

// NewServiceClient returns a client for the socket at socketPath.
func NewServiceClient(socketPath string) *ServiceClient {
	return &ServiceClient{socketPath: socketPath}
}

// Call sends action with fields and decodes the response data into
// result (if both are non-nil). fields must not contain "action".
//
// A server-side failure is returned as *ServiceError; connection and
// encoding problems are plain errors.
func (c *ServiceClient) Call(ctx context.Context, action string, fields map[string]any, result any) error {
	request := make(map[string]any, len(fields)+1)
	for key, value := range fields {
		request[key] = value
	}
	request["action"] = action

	response, err := c.send(ctx, request)
	if err != nil {
		return fmt.Errorf("calling %q on %s: %w", action, c.socketPath, err)
	}

	if !response.OK {
		return &ServiceError{
			Action:   action,
			Category: response.Category,
			Message:  response.Error,
			Data:     response.Data,
		}
	}

	if result != nil && len(response.Data) > 0 {
		if err := codec.Unmarshal(response.Data, result); err != nil {
			return fmt.Errorf("decoding response data for %q: %w", action, err)
		}
	}
	return nil
}

func (c *ServiceClient) send(ctx context.Context, request any) (*Response, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("connecting: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		return nil, fmt.Errorf("writing request: %w", err)
	}
	if unixConn, ok := conn.(*net.UnixConn); ok {
		unixConn.CloseWrite()
	}

	if _, ok := ctx.Deadline(); !ok {
		conn.SetReadDeadline(time.Now().Add(responseReadTimeout))
	}
	var response Response
	if err := codec.NewDecoder(io.LimitReader(conn, maxResponseSize)).Decode(&response); err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return &response, nil
}
