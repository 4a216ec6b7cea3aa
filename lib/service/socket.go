// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/md-786910/heaven-assignment/lib/codec"
)

// ActionFunc processes one socket request. raw is the full CBOR
// request, including the "action" field; the handler decodes its own
// fields from it.
//
// A nil result produces {ok: true}. A non-nil result is CBOR-encoded
// into the response's "data" field. An error produces a failure
// response classified by the server's ErrorClassifier.
type ActionFunc func(ctx context.Context, raw []byte) (any, error)

// ErrorClassifier maps a handler error to a wire category and an
// optional detail value sent in the failure response's "data" field.
type ErrorClassifier func(err error) (category string, detail any)

// Response is the envelope of every socket response.
type Response struct {
	OK       bool             `cbor:"ok"`
	Error    string           `cbor:"error,omitempty"`
	Category string           `cbor:"category,omitempty"`
	Data     codec.RawMessage `cbor:"data,omitempty"`
}

// SocketServer serves a CBOR request-response protocol on a Unix
// socket. Each connection carries exactly one request and one
// response. Register actions with Handle before calling Serve.
type SocketServer struct {
	socketPath string
	handlers   map[string]ActionFunc
	classify   ErrorClassifier
	logger     *slog.Logger

	ready chan struct{}

	activeConnections sync.WaitGroup
}

// NewSocketServer creates a server for socketPath. classify may be
// nil, in which case every failure has category "internal" and no
// detail.
func NewSocketServer(socketPath string, classify ErrorClassifier, logger *slog.Logger) *SocketServer {
	if classify == nil {
		classify = func(error) (string, any) { return "internal", nil }
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SocketServer{
		socketPath: socketPath,
		handlers:   make(map[string]ActionFunc),
		classify:   classify,
		logger:     logger,
		ready:      make(chan struct{}),
	}
}

// Handle registers handler for action. Panics on a duplicate action.
// Not safe to call once Serve has started.
func (s *SocketServer) Handle(action string, handler ActionFunc) {
	if _, exists := s.handlers[action]; exists {
		panic(fmt.Sprintf("service.SocketServer: duplicate handler for action %q", action))
	}
	s.handlers[action] = handler
}

// Ready is closed once the socket is listening.
func (s *SocketServer) Ready() <-chan struct{} {
	return s.ready
}

// Serve listens on the socket and dispatches requests until ctx is
// cancelled, then waits for in-flight requests. A stale socket file is
// removed first; the socket file is removed on return.
func (s *SocketServer) Serve(ctx context.Context) error {
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket %s: %w", s.socketPath, err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.socketPath, err)
	}
	defer func() {
		listener.Close()
		os.Remove(s.socketPath)
	}()

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	s.logger.Info("socket server listening", "path", s.socketPath)
	close(s.ready)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}

		s.activeConnections.Add(1)
		go func() {
			defer s.activeConnections.Done()
			s.handleConnection(ctx, conn)
		}()
	}

	s.activeConnections.Wait()
	s.logger.Info("socket server stopped", "path", s.socketPath)
	return nil
}

const (
	readTimeout    = 30 * time.Second
	writeTimeout   = 10 * time.Second
	maxRequestSize = 1024 * 1024
)

func (s *SocketServer) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(readTimeout))

	// CBOR is self-delimiting, so one Decode reads exactly one request.
	var raw codec.RawMessage
	if err := codec.NewDecoder(io.LimitReader(conn, maxRequestSize)).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return
		}
		s.writeFailure(conn, Response{Error: fmt.Sprintf("invalid request: %v", err), Category: "validation"})
		return
	}

	var header struct {
		Action string `cbor:"action"`
	}
	if err := codec.Unmarshal(raw, &header); err != nil {
		s.writeFailure(conn, Response{Error: fmt.Sprintf("invalid request: %v", err), Category: "validation"})
		return
	}
	if header.Action == "" {
		s.writeFailure(conn, Response{Error: "missing required field: action", Category: "validation"})
		return
	}

	handler, exists := s.handlers[header.Action]
	if !exists {
		s.writeFailure(conn, Response{Error: fmt.Sprintf("unknown action %q", header.Action), Category: "validation"})
		return
	}

	result, err := handler(ctx, []byte(raw))
	if err != nil {
		category, detail := s.classify(err)
		s.logger.Debug("action failed", "action", header.Action, "category", category, "error", err)
		response := Response{Error: err.Error(), Category: category}
		if detail != nil {
			data, marshalErr := codec.Marshal(detail)
			if marshalErr != nil {
				s.logger.Error("encoding failure detail", "action", header.Action, "error", marshalErr)
			} else {
				response.Data = data
			}
		}
		s.writeFailure(conn, response)
		return
	}

	s.writeSuccess(conn, result)
}

func (s *SocketServer) writeFailure(conn net.Conn, response Response) {
	response.OK = false
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := codec.NewEncoder(conn).Encode(response); err != nil {
		s.logger.Debug("failed to write error response", "error", err)
	}
}

func (s *SocketServer) writeSuccess(conn net.Conn, result any) {
	response := Response{OK: true}
	if result != nil {
		data, err := codec.Marshal(result)
		if err != nil {
			s.writeFailure(conn, Response{Error: fmt.Sprintf("marshaling response: %v", err), Category: "internal"})
			return
		}
		response.Data = data
	}

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := codec.NewEncoder(conn).Encode(response); err != nil {
		s.logger.Debug("failed to write success response", "error", err)
	}
}
